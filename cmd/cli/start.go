package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/chatrelay/chatrelay/internal/bot"
	"github.com/chatrelay/chatrelay/internal/config"
	"github.com/chatrelay/chatrelay/internal/controllers"
	"github.com/chatrelay/chatrelay/internal/history"
	"github.com/chatrelay/chatrelay/internal/openai"
	"github.com/chatrelay/chatrelay/internal/props"
	"github.com/chatrelay/chatrelay/internal/scopeconfig"
	"github.com/chatrelay/chatrelay/internal/server"
	"github.com/chatrelay/chatrelay/internal/version"
)

func NewStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart()
		},
	}

	return cmd
}

func runStart() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("version", version.GetShortVersion()).
		Str("http_address", cfg.HTTPAddress).
		Str("redis_addr", cfg.RedisAddr).
		Msg("Starting chatrelay")

	store := props.NewRedisStore(props.RedisStoreOptions{
		Addr:          cfg.RedisAddr,
		Password:      cfg.RedisPassword,
		DB:            cfg.RedisDB,
		MaxValueBytes: cfg.MaxPropertyBytes,
	})

	if err := store.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Property store is unreachable")
	}

	ai := openai.NewService(store, openai.ServiceOptions{
		FallbackAPIKey:  cfg.OpenAIAPIKey,
		FallbackBaseURL: cfg.OpenAIBaseURL,
	})

	handler := bot.NewHandler(bot.HandlerDependencies{
		Store:          store,
		History:        history.NewService(store),
		ScopeConfig:    scopeconfig.NewStore(store),
		Completer:      ai,
		ImageGenerator: ai,
		Moderator:      ai,
	})

	controller := controllers.NewWebhookController(controllers.WebhookControllerDependencies{
		Handler:           handler,
		VerificationToken: cfg.VerificationToken,
	})

	app := server.NewHTTPServer(server.HTTPServerDependencies{
		WebhookController: controller,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down")
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
		return err
	}

	return nil
}
