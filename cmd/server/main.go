package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/wishlist/internal/config"
	"github.com/mcoot/wishlist/internal/factory"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	defaults := config.Defaults()

	rootCmd := &cobra.Command{
		Use:   "wishlist-server",
		Short: "Secret Santa wish-list server",
		Long: `wishlist-server accepts TCP clients speaking the wish-list line protocol.

Settings come from flags, WISHLIST_* environment variables (for example
WISHLIST_SERVER_PORT), an optional wishlist.yaml, and built-in defaults,
in that order of precedence.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cmd, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), c)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a wishlist.yaml config file")
	flags.String("server.host", defaults["server.host"].(string), "TCP listen host")
	flags.Int("server.port", defaults["server.port"].(int), "TCP listen port")
	flags.Int("admin.port", defaults["admin.port"].(int), "Admin HTTP port, 0 disables the admin API")
	flags.String("storage.type", defaults["storage.type"].(string), "Storage backend: memory, redis")
	flags.String("storage.redis_url", defaults["storage.redis_url"].(string), "Redis URL for the redis backend")
	flags.String("log.level", defaults["log.level"].(string), "Log level: debug, info, warn, error")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(cmd, configFile)
			if err != nil {
				return err
			}
			out, err := c.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	return rootCmd
}

func run(ctx context.Context, c config.Config) error {
	level, err := c.Log.SlogLevel()
	if err != nil {
		return err
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := factory.New(ctx, factory.FromConfig(c, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	if err := app.Listen(); err != nil {
		logger.Error("failed to bind", slog.String("error", err.Error()))
		return err
	}

	attrs := []any{
		slog.String("addr", app.Server.Addr()),
		slog.String("storage", c.Storage.Type),
	}
	if app.Admin != nil {
		attrs = append(attrs, slog.String("admin_addr", app.Admin.Addr()))
	}
	logger.Info("server started", attrs...)

	if err := app.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return fmt.Errorf("run: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
