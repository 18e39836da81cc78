package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	accessible bool
)

var rootCmd = &cobra.Command{
	Use:   "serp2snow",
	Short: "Set up a SerpWow to Snowflake ingestion pipeline",
	Long: `serp2snow provisions everything needed for SerpWow batch results to land
in Snowflake:

  • an S3 bucket SerpWow writes results to
  • IAM users, policies and a role for SerpWow and Snowflake
  • a SerpWow destination pointing at the bucket
  • a Snowflake storage integration, table, stage and auto-ingest pipe

Progress is saved after every step, so an interrupted setup can resume.
Run without a command for the interactive menu.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadApp,
	RunE:              runMenu,
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which interrupts prompts
// and cloud calls when cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default is settings.yaml in the user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides log_level)")
	rootCmd.PersistentFlags().BoolVar(&accessible, "accessible", false, "use plain line-based prompts")

	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(warehouseCmd)
	rootCmd.AddCommand(versionCmd)
}
