package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"estimator/internal/cli"
)

func newProjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			projects, err := a.ws.Projects.Load(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to fetch projects")
			}

			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "\n  No projects found.")
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, cli.RenderTitle(fmt.Sprintf("PROJECTS  %d total", len(projects))))
			fmt.Fprintln(out)
			fmt.Fprint(out, cli.RenderTable(cli.Table{
				Headers: []string{"Project", "Client", "Status", "Start", "End"},
				Rows:    cli.ProjectRows(projects),
			}))
			return nil
		},
	}
}
