package main

import (
	"github.com/spf13/cobra"

	"github.com/awilliams/curator/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Curator server via HTTP.

These commands require a running server (curator serve).
Use --server to specify a custom server URL.

Examples:
  curator api health                      # Check server health
  curator api queue status                # Show queue state
  curator api documents upload file.pdf   # Upload a document`,
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Queue control commands",
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Document upload and download commands",
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
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ListLLMCallsEndpoint{}).Command(getServerURL))

	// Queue as subcommand group
	for _, ep := range endpoints.QueueCommands() {
		queueCmd.AddCommand(ep.Command(getServerURL))
	}

	// Documents as subcommand group
	for _, ep := range endpoints.DocumentCommands() {
		documentsCmd.AddCommand(ep.Command(getServerURL))
	}

	apiCmd.AddCommand(queueCmd)
	apiCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(apiCmd)
}
