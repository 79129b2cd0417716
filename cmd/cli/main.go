package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"valles-rodes/internal/config"
	"valles-rodes/internal/logger"
)

var (
	// Global flags
	verbose bool

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "vallesctl",
	Short: "Operator tools for the Vallès Rodes site",
	Long: `vallesctl runs the site's pricing and booking rules from the shell.

Use it to check what a customer sees for a tire size, whether a pick-up
window would be accepted, or which contact links the page renders.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		var err error
		log, err = logger.New(cfg.Env, level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(quoteCmd, windowCmd, linksCmd, askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
