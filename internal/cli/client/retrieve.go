package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// RetrieveRequest represents the retrieve API request.
type RetrieveRequest struct {
	Question string `json:"question"`
	CourseID int64  `json:"course_id,omitempty"`
}

// RetrieveResult represents a ranked retrieval result.
type RetrieveResult struct {
	Title            string  `json:"title"`
	Snippet          string  `json:"snippet"`
	Category         string  `json:"category,omitempty"`
	Similarity       float64 `json:"similarity"`
	SourceDocumentID string  `json:"source_document_id"`
}

// RetrieveResponse represents the retrieve API response.
type RetrieveResponse struct {
	Results []RetrieveResult `json:"results"`
	Count   int              `json:"count"`
}

// RetrieveCmd creates the retrieve command.
func RetrieveCmd() *cobra.Command {
	var courseID int64

	cmd := &cobra.Command{
		Use:   "retrieve <question>",
		Short: "Preview retrieval",
		Long:  "Shows which knowledge chunks would ground an answer, without generating one.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runRetrieve(cmd, args[0], courseID, outputJSON)
		},
	}

	cmd.Flags().Int64VarP(&courseID, "course", "c", 0, "Restrict retrieval to a course ID")

	return cmd
}

func runRetrieve(cmd *cobra.Command, question string, courseID int64, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/retrieve", RetrieveRequest{Question: question, CourseID: courseID})
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	var retrieveResp RetrieveResponse
	if err := json.Unmarshal(resp.Data, &retrieveResp); err != nil {
		return fmt.Errorf("failed to parse retrieval results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(retrieveResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(retrieveResp.Results) == 0 {
		fmt.Println("No matching material found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(retrieveResp.Results))
	for i, result := range retrieveResp.Results {
		fmt.Printf("%d. %s (%.2f)\n", i+1, result.Title, result.Similarity)
		if result.Snippet != "" {
			fmt.Printf("   %s\n", result.Snippet)
		}
		if result.Category != "" {
			fmt.Printf("   Category: %s\n", result.Category)
		}
		if i < len(retrieveResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
