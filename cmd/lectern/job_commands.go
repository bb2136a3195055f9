package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "List recent background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload struct {
				Jobs []api.JobView `json:"jobs"`
			}
			path := "/api/jobs?limit=" + strconv.Itoa(limit)
			if err := ctx.client().getJSON(cmd.Context(), path, &payload); err != nil {
				return err
			}
			if len(payload.Jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded.")
				return nil
			}
			rows := make([][]string, 0, len(payload.Jobs))
			for _, job := range payload.Jobs {
				rows = append(rows, []string{
					job.ID,
					job.Kind,
					job.Status,
					strconv.Itoa(job.Progress) + "%",
					job.Message,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Kind", "Status", "Progress", "Message"}, rows))
			return nil
		},
	}
	jobsCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")

	showCmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload struct {
				Job api.JobView `json:"job"`
			}
			if err := ctx.client().getJSON(cmd.Context(), "/api/jobs/"+args[0], &payload); err != nil {
				return err
			}
			return writeJSON(cmd, payload.Job)
		},
	}

	jobsCmd.AddCommand(showCmd)
	return jobsCmd
}

// waitForJob polls until the job reaches a terminal state, echoing progress
// messages as they change.
func waitForJob(cmd *cobra.Command, client *apiClient, jobID string) (api.JobView, error) {
	ctx := cmd.Context()
	lastMessage := ""
	for {
		var payload struct {
			Job api.JobView `json:"job"`
		}
		if err := client.getJSON(ctx, "/api/jobs/"+jobID, &payload); err != nil {
			return api.JobView{}, err
		}
		job := payload.Job
		if job.Message != "" && job.Message != lastMessage {
			fmt.Fprintf(cmd.OutOrStdout(), "  %3d%% %s\n", job.Progress, job.Message)
			lastMessage = job.Message
		}
		if job.Status == "success" || job.Status == "error" {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return api.JobView{}, context.Cause(ctx)
		case <-time.After(time.Second):
		}
	}
}
