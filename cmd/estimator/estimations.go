package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"estimator/internal/cli"
	"estimator/internal/core"
)

func newEstimationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "estimations",
		Aliases: []string{"est"},
		Short:   "List and inspect estimations",
	}
	cmd.AddCommand(newEstimationsListCmd(a), newEstimationsShowCmd(a))
	return cmd
}

type listFlags struct {
	search string
	status string
	from   string
	to     string
	page   int
	limit  int
}

func (f listFlags) filters() (core.EstimationFilters, error) {
	out := core.EstimationFilters{Search: f.search, Status: f.status}
	var err error
	if f.from != "" {
		if out.StartDate, err = core.ParseDate(f.from); err != nil {
			return out, fmt.Errorf("--from must be a date in YYYY-MM-DD format")
		}
	}
	if f.to != "" {
		if out.EndDate, err = core.ParseDate(f.to); err != nil {
			return out, fmt.Errorf("--to must be a date in YYYY-MM-DD format")
		}
	}
	return out, nil
}

func newEstimationsListCmd(a *app) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List estimations matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filters, err := f.filters()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store := a.ws.Estimations
			store.SetFilters(filters)
			store.SetPage(f.page)
			store.SetItemsPerPage(f.limit)

			page, err := store.Load(ctx)
			if err != nil {
				return a.fail(ctx, err, "Failed to fetch estimations")
			}

			out := cmd.OutOrStdout()
			if len(page.Items) == 0 {
				fmt.Fprintln(out, "\n  No estimations found.")
				return nil
			}
			q := store.Query()
			fmt.Fprintln(out)
			fmt.Fprintln(out, cli.RenderTitle("ESTIMATIONS"))
			fmt.Fprintln(out)
			fmt.Fprint(out, cli.RenderTable(cli.Table{
				Headers: []string{"ID", "Name", "Status", "Created", "Total"},
				Rows:    cli.EstimationRows(page.Items, a.money),
			}))
			fmt.Fprintln(out, cli.RenderMuted(fmt.Sprintf("  Page %d of %d  (%d estimations)", q.Page, pageCount(page.Total, q.Limit), page.Total)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "Match name or description")
	cmd.Flags().StringVar(&f.status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&f.from, "from", "", "Created on or after (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "Created on or before (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&f.page, "page", "p", core.DefaultPage, "Page number")
	cmd.Flags().IntVarP(&f.limit, "limit", "l", core.DefaultItemsPerPage, "Estimations per page")
	return cmd
}

func newEstimationsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the priced lines and totals of an estimation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			summary, err := a.client.Summary(ctx, args[0])
			if err != nil {
				return a.fail(ctx, err, "Failed to fetch estimation")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintln(out, cli.RenderTitle(summary.Name))
			fmt.Fprintln(out)
			fmt.Fprint(out, cli.RenderTable(cli.Table{
				Headers: []string{"Item", "Qty", "Price", "Margin", "Total"},
				Rows:    cli.SummaryRows(summary, a.money),
			}))
			return nil
		},
	}
}

func pageCount(total, limit int) int {
	if limit < 1 || total == 0 {
		return 1
	}
	return (total + limit - 1) / limit
}
