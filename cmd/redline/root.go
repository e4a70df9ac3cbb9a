// Package redline implements the redline command line interface.
package redline

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kamilpajak/redline/internal/app"
	"github.com/kamilpajak/redline/internal/config"
	"github.com/kamilpajak/redline/internal/logging"
)

var (
	configPath string
	logLevel   string
	noLLM      bool

	// Set by loadApp for subcommands that need the pipeline.
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "redline",
	Short: "Compare vendor contracts against their templates",
	Long: `redline compares a contract against the matching template, classifies every
difference by business risk and produces Word, Excel and PDF review reports.

Configuration is read from redline.yaml (current directory or ~/.redline),
REDLINE_* environment variables and a .env file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadApp,
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: redline.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noLLM, "no-llm", false, "Classify with heuristics only")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadApp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if noLLM {
		cfg.LLM.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	application, err = app.New(cmd.Context(), cfg, logger, app.Options{DisableLLM: noLLM})
	return err
}
