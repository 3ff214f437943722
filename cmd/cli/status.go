package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatrelay/chatrelay/internal/config"
	"github.com/chatrelay/chatrelay/internal/history"
	"github.com/chatrelay/chatrelay/internal/props"
	"github.com/chatrelay/chatrelay/internal/scopeconfig"
	"github.com/chatrelay/chatrelay/internal/version"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check property store connectivity and show stored state counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	store := props.NewRedisStore(props.RedisStoreOptions{
		Addr:          cfg.RedisAddr,
		Password:      cfg.RedisPassword,
		DB:            cfg.RedisDB,
		MaxValueBytes: cfg.MaxPropertyBytes,
	})

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("property store unreachable at %s: %w", cfg.RedisAddr, err)
	}

	keys, err := store.ListKeys(ctx)
	if err != nil {
		return err
	}

	var ledgers, properties int
	hasScopeConfigs := false
	for _, key := range keys {
		switch {
		case strings.HasPrefix(key, history.KeyPrefix):
			ledgers++
		case key == scopeconfig.Key:
			hasScopeConfigs = true
		default:
			properties++
		}
	}

	fmt.Printf("chatrelay %s\n", version.GetShortVersion())
	fmt.Printf("store: %s (ok)\n", cfg.RedisAddr)
	fmt.Printf("history ledgers: %d\n", ledgers)
	fmt.Printf("scope configs stored: %v\n", hasScopeConfigs)
	fmt.Printf("properties: %d\n", properties)

	return nil
}
