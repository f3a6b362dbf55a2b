// Package cli implements the PlugPoint command-line interface using Cobra.
// Each subcommand maps to one gamification operation run against the local store.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plugpoint/plugpoint/internal/api"
)

var rootCmd = &cobra.Command{
	Use:   "plugpoint",
	Short: "PlugPoint gamification engine for EV charging apps",
	Long: `PlugPoint turns driver actions into points, badges, quests and streaks.
Run 'plugpoint serve' for the HTTP API, or use the subcommands to inspect
and drive profiles directly against the configured store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var jsonOutput bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version
	api.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
