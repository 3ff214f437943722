package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/chatrelay/chatrelay/internal/config"
	"github.com/chatrelay/chatrelay/internal/props"
)

// NewPropsCommand gives operators direct access to the property store the
// bot runs on. Unlike the chat /show command it does not hide secrets; it
// runs with store credentials, not chat credentials.
func NewPropsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "props",
		Short: "Inspect and edit the property store",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all property keys",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(func(ctx context.Context, store *props.RedisStore) error {
					keys, err := store.ListKeys(ctx)
					if err != nil {
						return err
					}
					sort.Strings(keys)
					for _, key := range keys {
						fmt.Println(key)
					}
					return nil
				}, cmd)
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a property value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(func(ctx context.Context, store *props.RedisStore) error {
					value, ok, err := store.Get(ctx, args[0])
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("property %q is not set", args[0])
					}
					fmt.Println(value)
					return nil
				}, cmd)
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a property value",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(func(ctx context.Context, store *props.RedisStore) error {
					return store.Set(ctx, args[0], args[1])
				}, cmd)
			},
		},
		&cobra.Command{
			Use:   "del <key>",
			Short: "Delete a property",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withStore(func(ctx context.Context, store *props.RedisStore) error {
					return store.Delete(ctx, args[0])
				}, cmd)
			},
		},
	)

	return cmd
}

func withStore(fn func(context.Context, *props.RedisStore) error, cmd *cobra.Command) error {
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

	return fn(cmd.Context(), store)
}
