package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/api"
)

func newModulesCommand(ctx *commandContext) *cobra.Command {
	modulesCmd := &cobra.Command{
		Use:   "modules",
		Short: "List and create modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listModules(cmd, ctx)
		},
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a module",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			var module api.ModuleView
			if err := ctx.client().postJSON(cmd.Context(), "/api/modules", map[string]string{"name": name}, &module); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created module %s (%s)\n", module.Name, module.ID)
			return nil
		},
	}

	modulesCmd.AddCommand(createCmd)
	return modulesCmd
}

func listModules(cmd *cobra.Command, ctx *commandContext) error {
	var payload struct {
		Modules []api.ModuleView `json:"modules"`
	}
	if err := ctx.client().getJSON(cmd.Context(), "/api/modules", &payload); err != nil {
		return err
	}
	if len(payload.Modules) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No modules yet. Create one with `lectern modules create <name>`.")
		return nil
	}
	rows := make([][]string, 0, len(payload.Modules))
	for _, module := range payload.Modules {
		rows = append(rows, []string{module.ID, module.Name, module.CreatedAt})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Created"}, rows))
	return nil
}
