package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/api"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "transcribe <session-id>",
		Short: "Transcribe the latest uploaded recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitJob(cmd, ctx, args[0], "transcribe", wait)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", true, "Poll until the job finishes")
	return cmd
}

func newNotesCommand(ctx *commandContext) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "notes <session-id>",
		Short: "Generate study notes for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitJob(cmd, ctx, args[0], "notes", wait)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", true, "Poll until the job finishes")
	return cmd
}

func submitJob(cmd *cobra.Command, ctx *commandContext, sessionID, action string, wait bool) error {
	client := ctx.client()
	var submitted struct {
		Job api.JobView `json:"job"`
	}
	path := "/api/sessions/" + sessionID + "/" + action
	if err := client.postJSON(cmd.Context(), path, nil, &submitted); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Submitted %s job %s\n", submitted.Job.Kind, submitted.Job.ID)
	if !wait {
		return nil
	}

	job := submitted.Job
	if !terminal(job.Status) {
		var err error
		job, err = waitForJob(cmd, client, job.ID)
		if err != nil {
			return err
		}
	}
	if job.Status == "error" {
		return errors.New(job.Message)
	}
	fmt.Fprintf(out, "Done: %s\n", job.Message)
	if job.ResultPath != "" {
		fmt.Fprintf(out, "Result: %s\n", job.ResultPath)
	}
	return nil
}

func terminal(status string) bool {
	return status == "success" || status == "error"
}
