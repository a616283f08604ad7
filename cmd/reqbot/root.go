package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rendis/reqbot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "reqbot",
	Short: "ReqBot is a conversational requirements-elicitation assistant",
	Long: `ReqBot interviews stakeholders, extracts structured software requirements from the
conversation and synthesizes a report with an executive summary, an activity diagram,
a cost estimate and references.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file (default: $REQBOT_CONFIG)")
	rootCmd.PersistentFlags().String("log-level", "", "override the configured log level: debug, info, warn, error")
}

// loadConfig resolves the configuration for cmd. Flags win over the
// environment and the config file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("REQBOT_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, nil
}

// openApp loads the configuration and wires the runtime.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg)
}
