package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumistudy/tutorai/internal/cli"
	"github.com/lumistudy/tutorai/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "tutor",
		Short: "TutorAI CLI - course question answering",
		Long: `TutorAI CLI asks questions against course material and previews retrieval.

Environment variables:
  TUTOR_API_KEY   API key for authentication (optional for local servers)
  TUTOR_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.RetrieveCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
