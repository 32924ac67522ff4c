// Package cli implements the fintrack command line.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fintrack-sync/internal/config"
	"fintrack-sync/internal/logging"
)

// rootOptions carries state prepared by the root command for subcommands.
type rootOptions struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCmd creates the root Cobra command for the fintrack CLI.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "fintrack",
		Short:         "Cached read service for personal finance data",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if version != "" && version != "dev" {
				cfg.App.Version = version
			}
			opts.cfg = cfg

			debug, _ := cmd.Flags().GetBool("debug")
			opts.logger = setupLogging(cmd, cfg, debug)
			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.AddCommand(newServeCmd(opts), newCacheCmd(opts), newGatewayCmd(opts))

	return cmd
}

// setupLogging builds the process logger and stores it in the command context.
func setupLogging(cmd *cobra.Command, cfg *config.Config, debug bool) zerolog.Logger {
	logCfg := logging.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: cmd.ErrOrStderr(),
	}
	if debug || cfg.App.Debug {
		logCfg.Level = "debug"
		logCfg.Format = "console"
	}

	logger := logging.New(logCfg).With().Str("service", cfg.App.Name).Logger()
	cmd.SetContext(logger.WithContext(cmd.Context()))

	logger.Debug().Str("command", cmd.Name()).Msg("command started")
	return logger
}

// Execute runs the root command and exits non-zero on failure.
func Execute(version string) {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
