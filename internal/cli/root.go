package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Client for the Secret Santa wish-list server",
		Long: `wishlist talks to a wish-list server over its line protocol.

Commands: register <name> <password>, login <name> <password>,
post-wish <name> <gift>, get-wish, logout, disconnect.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfg.Server, "server", "s", cfg.Server, "Server address host:port (env: WISHLIST_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.AdminURL, "admin", cfg.AdminURL, "Admin API base URL (env: WISHLIST_ADMIN)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-command network timeout")

	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newExecCmd())
	rootCmd.AddCommand(newShellCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
