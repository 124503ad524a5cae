// Package cli provides the command-line interface for repolens.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/davidgraf/repolens/internal/client"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	serverURL string

	// API client, created before every command.
	api *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "Chat with your repositories",
	Long: `RepoLens indexes source repositories (files, commit history, meeting
recordings) and answers questions about them using retrieval-augmented
generation.

All heavy lifting happens on the repolens server; this CLI talks to its
HTTP API.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		api = client.New(serverURL)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default REPOLENS_SERVER_URL or http://localhost:8080)")
}
