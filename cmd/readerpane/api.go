package main

import (
	"github.com/spf13/cobra"

	"github.com/julia-Lukaszewska/readerpane/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running readerpane server via HTTP.

These commands require a running server (readerpane serve).
Use --server to specify a custom server URL.

Examples:
  readerpane api health              # Check server health
  readerpane api docs list           # List documents
  readerpane api docs upload a.pdf   # Upload a document`,
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Document management commands",
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

	// Docs as subcommand group
	docsCmd.AddCommand((&endpoints.UploadEndpoint{}).Command(getServerURL))
	docsCmd.AddCommand((&endpoints.ListDocsEndpoint{}).Command(getServerURL))
	docsCmd.AddCommand((&endpoints.DocInfoEndpoint{}).Command(getServerURL))
	docsCmd.AddCommand((&endpoints.DocMetaEndpoint{}).Command(getServerURL))
	docsCmd.AddCommand((&endpoints.DeleteDocEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(apiCmd)
}
