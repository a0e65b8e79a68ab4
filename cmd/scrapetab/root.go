package main

import (
	"github.com/spf13/cobra"

	"github.com/scrapetab/scrapetab/internal/api"
	"github.com/scrapetab/scrapetab/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "scrapetab",
	Short: "LLM-powered extraction of structured rows from raw page text",
	Long: `Scrapetab turns raw page text into structured tabular data using an
LLM completion endpoint.

Callers name the fields they want and supply the text; the server prompts
the model for strict JSON, normalizes whatever comes back into well-formed
rows, and stores every extraction keyed by requester identity.

The service provides:
  - One-shot field extraction with a fixed completion budget
  - Requester-scoped extraction history and CSV export
  - Completion call audit with token usage tracking`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.scrapetab/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "scrapetab home directory (default: ~/.scrapetab)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
