package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"estimator/internal/cli"
	"estimator/internal/core"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Overview of projects and recent estimations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.ws.Refresh(ctx); err != nil {
				return a.fail(ctx, err, "Failed to load dashboard")
			}

			projects := a.ws.Projects.Items()
			byStatus := map[core.ProjectStatus]int{}
			for _, p := range projects {
				byStatus[p.Status]++
			}
			recent := a.ws.Estimations.Items()
			var value float64
			for _, e := range recent {
				value += core.EstimationTotal(e.Sections)
			}

			rows := [][]string{
				{"Projects", strconv.Itoa(len(projects))},
			}
			for _, s := range []core.ProjectStatus{core.ProjectActive, core.ProjectOnHold, core.ProjectCompleted} {
				rows = append(rows, []string{"  " + s.Label(), strconv.Itoa(byStatus[s])})
			}
			rows = append(rows,
				[]string{cli.Separator},
				[]string{"Estimations", strconv.Itoa(a.ws.Estimations.Total())},
				[]string{fmt.Sprintf("  Value of latest %d", len(recent)), a.money.Format(value)},
			)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintln(out, cli.RenderTitle("DASHBOARD"))
			fmt.Fprintln(out)
			fmt.Fprint(out, cli.RenderTable(cli.Table{Rows: rows}))
			return nil
		},
	}
}
