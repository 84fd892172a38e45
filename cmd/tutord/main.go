package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumistudy/tutorai/internal/cli"
	"github.com/lumistudy/tutorai/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tutord",
		Short: "TutorAI daemon",
		Long:  "TutorAI daemon for running the question answering API server",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
