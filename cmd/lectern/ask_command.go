package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/api"
)

func newAskCommand(ctx *commandContext) *cobra.Command {
	var scope string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "ask <session-id> <question...>",
		Short: "Ask a question grounded in the session's materials",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.AskRequest{
				SessionID: args[0],
				Question:  strings.Join(args[1:], " "),
				Scope:     scope,
			}
			var answer api.AskResponse
			if err := ctx.client().postJSON(cmd.Context(), "/api/ai/ask", req, &answer); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, answer)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer.Answer)

			var sources []struct {
				ID          int    `json:"id"`
				Title       string `json:"title"`
				SessionName string `json:"session_name"`
			}
			if len(answer.Sources) > 0 {
				if err := json.Unmarshal(answer.Sources, &sources); err == nil && len(sources) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Sources:")
					for _, source := range sources {
						line := fmt.Sprintf("  [%d] %s", source.ID, source.Title)
						if source.SessionName != "" {
							line += " (" + source.SessionName + ")"
						}
						fmt.Fprintln(out, line)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "session", "Search scope: session or module")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit raw JSON")
	return cmd
}
