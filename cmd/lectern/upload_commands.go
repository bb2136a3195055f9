package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	uploadCmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload audio or attachments to a session",
	}

	audioCmd := &cobra.Command{
		Use:   "audio <session-id> <file>",
		Short: "Upload a lecture recording",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return upload(cmd, ctx, args[0], "audio", args[1])
		},
	}

	attachmentCmd := &cobra.Command{
		Use:   "attachment <session-id> <file>",
		Short: "Upload slides or reading material",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return upload(cmd, ctx, args[0], "attachments", args[1])
		},
	}

	uploadCmd.AddCommand(audioCmd)
	uploadCmd.AddCommand(attachmentCmd)
	return uploadCmd
}

func upload(cmd *cobra.Command, ctx *commandContext, sessionID, kind, filePath string) error {
	var payload struct {
		FileName string `json:"fileName"`
	}
	path := "/api/sessions/" + sessionID + "/" + kind
	if err := ctx.client().uploadFile(cmd.Context(), path, filePath, &payload); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s\n", payload.FileName)
	return nil
}
