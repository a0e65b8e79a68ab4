package main

import (
	"github.com/spf13/cobra"

	"github.com/scrapetab/scrapetab/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Scrapetab server via HTTP.

These commands require a running server (scrapetab serve).
Use --server to specify a custom server URL.

Examples:
  scrapetab api health                          # Check server health
  scrapetab api extract --fields name,price \
      --file page.txt                           # Run an extraction
  scrapetab api extractions list alice          # List stored extractions`,
}

var extractionsCmd = &cobra.Command{
	Use:   "extractions",
	Short: "Extraction history commands",
}

var llmcallsCmd = &cobra.Command{
	Use:   "llmcalls",
	Short: "Completion call history commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Extraction at top level
	apiCmd.AddCommand((&endpoints.ExtractEndpoint{}).Command(getServerURL))

	// Extraction history as subcommand group
	for _, ep := range endpoints.ExtractionCommands() {
		extractionsCmd.AddCommand(ep.Command(getServerURL))
	}

	// LLM calls as subcommand group
	for _, ep := range endpoints.LLMCallCommands() {
		llmcallsCmd.AddCommand(ep.Command(getServerURL))
	}

	// Swagger spec
	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(extractionsCmd)
	apiCmd.AddCommand(llmcallsCmd)
	rootCmd.AddCommand(apiCmd)
}
