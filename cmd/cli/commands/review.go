package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// submitTimeout allows for the upload of a full-size document.
const submitTimeout = 2 * time.Minute

// GetSubmitCmd returns the submit command
func GetSubmitCmd() *cobra.Command {
	var (
		file   string
		prompt string
		agents []string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a PDF document for review",
		RunE: func(_ *cobra.Command, _ []string) error {
			document, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
			defer cancel()

			jobID, err := apiClient.SubmitReview(ctx, filepath.Base(file), document, prompt, agents)
			if err != nil {
				return fmt.Errorf("failed to submit review: %w", err)
			}

			fmt.Printf("Submitted. Job ID: %s\n", jobID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the PDF document")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Review prompt")
	cmd.Flags().StringSliceVarP(&agents, "agents", "a", nil, "Agent ids to run (comma separated)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("prompt")
	_ = cmd.MarkFlagRequired("agents")

	return cmd
}

// GetStatusCmd returns the status command
func GetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current status of a review job",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			status, err := apiClient.GetStatus(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("error fetching status: %w", err)
			}

			fmt.Printf("Status:   %s\n", status.Status)
			fmt.Printf("Stage:    %s\n", status.Stage)
			fmt.Printf("Progress: %.0f%%\n", status.Progress*100)
			if status.EstimatedTimeRemaining > 0 {
				fmt.Printf("ETA:      %ds\n", status.EstimatedTimeRemaining)
			}
			if len(status.AgentStatuses) > 0 {
				parts := make([]string, 0, len(status.AgentStatuses))
				for id, st := range status.AgentStatuses {
					parts = append(parts, fmt.Sprintf("%s=%s", id, st))
				}
				fmt.Printf("Agents:   %s\n", strings.Join(parts, " "))
			}
			if status.Error != "" {
				fmt.Printf("Error:    %s\n", status.Error)
			}
			return nil
		},
	}
}

// GetResultsCmd returns the results command
func GetResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <job-id>",
		Short: "Fetch the final report of a completed review job",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			results, err := apiClient.GetResults(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("error fetching results: %w", err)
			}

			if !results.Completed() {
				fmt.Printf("Job is still processing (status: %s, progress: %.0f%%)\n",
					results.Processing.Status, results.Processing.Progress*100)
				return nil
			}

			var pretty map[string]interface{}
			if err := json.Unmarshal(results.Report, &pretty); err != nil {
				return fmt.Errorf("failed to decode report: %w", err)
			}
			out, err := json.MarshalIndent(pretty, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format report: %w", err)
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

// GetAgentsCmd returns the agents command
func GetAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the configured review agents",
		RunE: func(_ *cobra.Command, _ []string) error {
			agents, err := apiClient.ListAgents(context.Background())
			if err != nil {
				return fmt.Errorf("error fetching agents: %w", err)
			}
			for _, agent := range agents {
				fmt.Printf("%-8s %-20s %s\n", agent.ID, agent.Name, agent.Model)
			}
			return nil
		},
	}
}
