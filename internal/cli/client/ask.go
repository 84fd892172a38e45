package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest represents the ask API request.
type AskRequest struct {
	Question string `json:"question"`
	CourseID int64  `json:"course_id,omitempty"`
}

// AskSource is a cited source returned with an answer.
type AskSource struct {
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Category string `json:"category,omitempty"`
}

// AskResponse represents the synchronous ask API response.
type AskResponse struct {
	Answer     string      `json:"answer"`
	Sources    []AskSource `json:"sources"`
	Confidence float64     `json:"confidence"`
	HasContext bool        `json:"has_context"`
}

// streamFrame is the union of the event payloads on the stream endpoint,
// discriminated by Type.
type streamFrame struct {
	Type       string      `json:"type"`
	Sources    []AskSource `json:"sources,omitempty"`
	HasContext bool        `json:"has_context,omitempty"`
	Content    string      `json:"content,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		courseID int64
		sync     bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question",
		Long:  "Asks a question against the course knowledge base and streams the answer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			req := AskRequest{Question: args[0], CourseID: courseID}
			if sync {
				outputJSON, _ := cmd.Flags().GetBool("output")
				return runAskSync(api, req, outputJSON)
			}
			return runAskStream(api, req)
		},
	}

	cmd.Flags().Int64VarP(&courseID, "course", "c", 0, "Restrict retrieval to a course ID")
	cmd.Flags().Bool("sync", false, "Wait for the full answer instead of streaming")

	return cmd
}

func runAskStream(api *APIClient, req AskRequest) error {
	resp, err := api.PostStream("/v1/ask/stream", req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	defer resp.Body.Close()

	var sources []AskSource
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			return fmt.Errorf("failed to parse stream event: %w", err)
		}

		switch frame.Type {
		case "metadata":
			sources = frame.Sources
		case "content":
			fmt.Print(frame.Content)
		case "done":
			fmt.Println()
			printSources(sources)
			return nil
		case "error":
			fmt.Println()
			return fmt.Errorf("ask failed: %s", frame.Error)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream interrupted: %w", err)
	}

	return fmt.Errorf("stream ended without a terminal event")
}

func runAskSync(api *APIClient, req AskRequest, outputJSON bool) error {
	resp, err := api.Post("/v1/ask", req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var askResp AskResponse
	if err := json.Unmarshal(resp.Data, &askResp); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(askResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(askResp.Answer)
	printSources(askResp.Sources)
	if askResp.HasContext {
		fmt.Printf("\nConfidence: %.2f\n", askResp.Confidence)
	}

	return nil
}

func printSources(sources []AskSource) {
	if len(sources) == 0 {
		return
	}

	fmt.Println("\nSources:")
	for i, source := range sources {
		fmt.Printf("%d. %s", i+1, source.Title)
		if source.Category != "" {
			fmt.Printf(" (%s)", source.Category)
		}
		fmt.Println()
	}
}
