package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var pdfOut bool
	var skipAudio bool
	var skipAttachments bool

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session as a ZIP study pack or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload struct {
				Path     string `json:"path"`
				FileName string `json:"fileName"`
			}
			client := ctx.client()
			if pdfOut {
				path := "/api/sessions/" + args[0] + "/export/pdf"
				if err := client.postJSON(cmd.Context(), path, nil, &payload); err != nil {
					return err
				}
			} else {
				opts := export.AllOptions()
				opts.Audio = !skipAudio
				opts.Attachments = !skipAttachments
				path := "/api/sessions/" + args[0] + "/export"
				if err := client.postJSON(cmd.Context(), path, opts, &payload); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", payload.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&pdfOut, "pdf", false, "Export transcript and notes as a PDF")
	cmd.Flags().BoolVar(&skipAudio, "no-audio", false, "Exclude audio files from the pack")
	cmd.Flags().BoolVar(&skipAttachments, "no-attachments", false, "Exclude attachments from the pack")
	return cmd
}
