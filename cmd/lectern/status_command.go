package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"lectern/internal/api"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiBlue  = "\x1b[34m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status api.DaemonStatus
			if err := ctx.client().getJSON(cmd.Context(), "/api/status", &status); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit raw JSON")
	return cmd
}

func renderStatus(out io.Writer, status api.DaemonStatus) {
	colorize := shouldColorize(out)

	fmt.Fprintln(out, sectionHeader("Daemon", colorize))
	fmt.Fprintf(out, "  %-12s %s\n", "Running:", yesNo(status.Running))
	fmt.Fprintf(out, "  %-12s %d\n", "PID:", status.PID)
	fmt.Fprintf(out, "  %-12s %s\n", "Store:", status.StorePath)
	fmt.Fprintln(out)

	fmt.Fprintln(out, sectionHeader("Dependencies", colorize))
	rows := make([][]string, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		state := "missing"
		if dep.Available {
			state = "ok"
		}
		if colorize {
			if dep.Available {
				state = ansiGreen + state + ansiReset
			} else {
				state = ansiRed + state + ansiReset
			}
		}
		rows = append(rows, []string{dep.Name, dep.Command, state, dep.Detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Name", "Command", "State", "Detail"}, rows))
}

func sectionHeader(title string, colorize bool) string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	if colorize {
		return ansiBlue + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
