// Package main implements raizelctl, the operator tool of the Raizel
// academic assistant.
//
// Usage:
//
//	raizelctl check-csv --dir ./data
//	raizelctl check-server --url http://localhost:5000 --reg RA2111003010001
//	raizelctl ask --reg RA2111003010001 "show my marks"
//	raizelctl import --dir ./data
//	raizelctl migrate status
//	raizelctl hash-pin 4821
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raizel-hub/academic-assistant/config"
	"github.com/raizel-hub/academic-assistant/pkg/logger"
)

// app carries what every command shares. Commands load configuration lazily
// so that hash-pin works without any environment.
type app struct {
	envFile  string
	logLevel string

	log *slog.Logger
}

func (a *app) config() (*config.Config, error) {
	if a.envFile != "" {
		if err := os.Setenv("ENV_FILE", a.envFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "raizelctl",
		Short: "Operator tool for the Raizel academic assistant",
		Long: `raizelctl checks record files and running servers, asks the assistant
one-off questions, manages the Postgres record store and hashes login PINs.

Configuration is read from the environment and an optional .env file,
exactly as the server reads it.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.log = logger.New(logger.Options{
				Level:  logger.ParseLevel(a.logLevel),
				Format: logger.FormatText,
				Output: cmd.ErrOrStderr(),
			})
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file to load (default .env)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newCheckCSVCmd(a),
		newCheckServerCmd(a),
		newAskCmd(a),
		newImportCmd(a),
		newMigrateCmd(a),
		newHashPINCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
