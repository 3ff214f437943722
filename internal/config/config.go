package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the bootstrap configuration: everything the process needs
// before it can reach the property store. Runtime behavior (model, admin
// list, retention) lives in the store itself and is admin-editable via chat.
type Config struct {
	HTTPAddress string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MaxPropertyBytes caps stored value size, mirroring the small property
	// stores this bot was designed around. 0 disables the cap.
	MaxPropertyBytes int

	// OpenAIAPIKey is a fallback for the OPENAI_API_KEY property.
	OpenAIAPIKey string
	// OpenAIBaseURL is a fallback for the OPENAI_BASE_URL property.
	OpenAIBaseURL string

	// VerificationToken, when set, must match the token of inbound webhook
	// events.
	VerificationToken string
}

// LoadConfig loads configuration from files and environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envMappings := map[string]string{
		"HTTPAddress":       "HTTP_ADDRESS",
		"RedisAddr":         "REDIS_ADDR",
		"RedisPassword":     "REDIS_PASSWORD",
		"RedisDB":           "REDIS_DB",
		"MaxPropertyBytes":  "MAX_PROPERTY_BYTES",
		"OpenAIAPIKey":      "OPENAI_API_KEY",
		"OpenAIBaseURL":     "OPENAI_BASE_URL",
		"VerificationToken": "VERIFICATION_TOKEN",
	}

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("chatrelay_config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.chatrelay")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTPAddress", ":8080")
	v.SetDefault("RedisAddr", "localhost:6379")
	// Script property stores cap values around 9 KB; keeping the same cap
	// keeps ledger trimming behavior observable in development.
	v.SetDefault("MaxPropertyBytes", 9*1024)
}

func validateConfig(config *Config) error {
	if config.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR must not be empty")
	}
	if config.RedisDB < 0 {
		return fmt.Errorf("REDIS_DB must not be negative")
	}
	return nil
}
