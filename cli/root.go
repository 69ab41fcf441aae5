package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tablekit/tablekit/server/config"
)

var rootCmd = &cobra.Command{
	Use:   "tablekit",
	Short: "Metadata-driven data access server",
	Long: `Tablekit serves a configured catalog of tables over a JSON API:
dynamic selects, entity trees, aggregate records, and the distinct-value
queries that drive filter UIs. All table and column names are validated
against the catalog before any SQL runs.`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves configuration for a subcommand: the --config flag if
// given, then tablekit.yml in the working directory, then built-in
// defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadConfig(path)
	}
	if _, err := os.Stat("tablekit.yml"); err == nil {
		return config.LoadConfig("tablekit.yml")
	}
	return config.LoadDefaultConfig(), nil
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
}
