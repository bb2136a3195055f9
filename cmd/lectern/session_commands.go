package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/api"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions <module-id>",
		Short: "List and manage sessions within a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSessions(cmd, ctx, args[0])
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <module-id> <name>",
		Short: "Create a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args[1:], " ")
			var session api.SessionView
			path := "/api/modules/" + args[0] + "/sessions"
			if err := ctx.client().postJSON(cmd.Context(), path, map[string]string{"name": name}, &session); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created session %s (%s)\n", session.Name, session.ID)
			return nil
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename <session-id> <name>",
		Short: "Rename a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args[1:], " ")
			path := "/api/sessions/" + args[0] + "/rename"
			if err := ctx.client().postJSON(cmd.Context(), path, map[string]string{"name": name}, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed session to %s\n", strings.TrimSpace(name))
			return nil
		},
	}

	filesCmd := &cobra.Command{
		Use:   "files <session-id>",
		Short: "List session attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload struct {
				Files []api.FileView `json:"files"`
			}
			path := "/api/sessions/" + args[0] + "/attachments"
			if err := ctx.client().getJSON(cmd.Context(), path, &payload); err != nil {
				return err
			}
			if len(payload.Files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No attachments uploaded.")
				return nil
			}
			rows := make([][]string, 0, len(payload.Files))
			for _, file := range payload.Files {
				rows = append(rows, []string{file.Name, fmt.Sprintf("%d", file.Size), yesNo(file.HasText)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Bytes", "Text"}, rows))
			return nil
		},
	}

	messagesCmd := &cobra.Command{
		Use:   "messages <session-id>",
		Short: "Show the Q&A conversation for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload struct {
				Messages []api.MessageView `json:"messages"`
			}
			path := "/api/sessions/" + args[0] + "/ai/messages"
			if err := ctx.client().getJSON(cmd.Context(), path, &payload); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, message := range payload.Messages {
				fmt.Fprintf(out, "[%s] %s\n", message.Role, message.Content)
				for _, source := range message.Sources {
					fmt.Fprintf(out, "    [%s] %s\n", source.SourceID, source.Label)
				}
			}
			return nil
		},
	}

	sessionsCmd.AddCommand(createCmd)
	sessionsCmd.AddCommand(renameCmd)
	sessionsCmd.AddCommand(filesCmd)
	sessionsCmd.AddCommand(messagesCmd)
	return sessionsCmd
}

func listSessions(cmd *cobra.Command, ctx *commandContext, moduleID string) error {
	var payload struct {
		Sessions []api.SessionView `json:"sessions"`
	}
	if err := ctx.client().getJSON(cmd.Context(), "/api/modules/"+moduleID+"/sessions", &payload); err != nil {
		return err
	}
	if len(payload.Sessions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions in this module yet.")
		return nil
	}
	rows := make([][]string, 0, len(payload.Sessions))
	for _, session := range payload.Sessions {
		rows = append(rows, []string{session.ID, session.Name, session.CreatedAt})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Created"}, rows))
	return nil
}
