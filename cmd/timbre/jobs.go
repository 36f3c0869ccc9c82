package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/audionhq/timbre/internal/api"
	"github.com/audionhq/timbre/internal/models"
)

func newJobsCmd() *cobra.Command {
	var (
		addr   string
		secret string
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage training jobs on a running service",
	}

	cmd.PersistentFlags().StringVar(&addr, "addr", "http://localhost:8081", "base URL of the Timbre service")
	cmd.PersistentFlags().StringVar(&secret, "secret", "", "shared auth secret")

	cmd.AddCommand(newJobsListCmd(&addr, &secret))
	cmd.AddCommand(newJobsStatusCmd(&addr, &secret))
	cmd.AddCommand(newJobsDeleteCmd(&addr, &secret))
	return cmd
}

func newJobsListCmd(addr, secret *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tracked jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				TotalJobs int                 `json:"totalJobs"`
				Jobs      []models.JobSummary `json:"jobs"`
			}
			if err := apiCall(http.MethodGet, *addr+"/train/jobs", *secret, &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d job(s)\n", resp.TotalJobs)
			for _, j := range resp.Jobs {
				fmt.Fprintf(out, "  %s  %-8s  %3d%%  %s\n", j.ID, j.Status, j.Progress, j.VoiceFileID)
			}
			return nil
		},
	}
}

func newJobsStatusCmd(addr, secret *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show one job's full status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var job models.Job
			if err := apiCall(http.MethodGet, *addr+"/train/status/"+args[0], *secret, &job); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:      %s\n", job.ID)
			fmt.Fprintf(out, "Status:   %s (%d%%)\n", job.Status, job.Progress)
			fmt.Fprintf(out, "Message:  %s\n", job.Message)
			fmt.Fprintf(out, "Voice:    %s\n", job.VoiceFileID)
			fmt.Fprintf(out, "Started:  %s\n", job.StartedAt.Format(time.RFC3339))
			if job.ModelPath != "" {
				fmt.Fprintf(out, "Model:    %s\n", job.ModelPath)
			}
			if job.PreviewURL != "" {
				fmt.Fprintf(out, "Preview:  %s\n", job.PreviewURL)
			}
			if job.ErrorDetail != "" {
				fmt.Fprintf(out, "Error:    %s\n", job.ErrorDetail)
			}
			return nil
		},
	}
}

func newJobsDeleteCmd(addr, secret *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a finished job record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Message string `json:"message"`
			}
			if err := apiCall(http.MethodDelete, *addr+"/train/jobs/"+args[0], *secret, &resp); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	}
}

// apiCall performs one authenticated request and decodes the JSON response
// into out. Non-2xx responses surface the service's detail message.
func apiCall(method, url, secret string, out any) error {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	req.Header.Set(api.AuthHeader, secret)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("jobs: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &e) == nil && e.Detail != "" {
			return fmt.Errorf("jobs: %s: %s", resp.Status, e.Detail)
		}
		return fmt.Errorf("jobs: %s", resp.Status)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("jobs: decode response: %w", err)
	}
	return nil
}
