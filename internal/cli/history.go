package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"condor-screener/internal/errors"
	"condor-screener/internal/store"
	"condor-screener/pkg/utils"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse past screening runs",
		Long:  "List, inspect and prune the scan history database.",
	}

	cmd.AddCommand(newHistoryListCmd(app))
	cmd.AddCommand(newHistoryShowCmd(app))
	cmd.AddCommand(newHistoryPruneCmd(app))

	return cmd
}

// openHistory opens the history database or explains why it is unavailable.
func openHistory(app *App) (store.HistoryStore, error) {
	history, err := app.history()
	if err != nil {
		return nil, err
	}
	if history == nil {
		return nil, errors.NewConfigError("history.enabled", false, "scan history is disabled")
	}
	return history, nil
}

func newHistoryListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			filter := store.ScanFilter{}
			filter.Symbol, _ = cmd.Flags().GetString("symbol")
			filter.Symbol = strings.ToUpper(filter.Symbol)
			filter.Limit, _ = cmd.Flags().GetInt("limit")
			if filter.Limit <= 0 {
				return errors.NewConfigError("limit", filter.Limit, "must be > 0")
			}
			if days, _ := cmd.Flags().GetInt("days"); days > 0 {
				filter.Since = app.now().AddDate(0, 0, -days)
			}

			history, err := openHistory(app)
			if err != nil {
				return err
			}
			defer history.Close()

			scans, err := history.ListScans(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if scans == nil {
				scans = []store.ScanRecord{}
			}

			if output.IsStructured() {
				return output.Emit(scans)
			}
			if len(scans) == 0 {
				output.Dim("No scans recorded")
				return nil
			}

			table := NewTable(output, "ID", "Symbol", "As Of", "Spot", "Days", "Exps", "Candidates", "Selected", "Criteria", "Took")
			for _, rec := range scans {
				table.AddRow(
					ShortID(rec.ID),
					rec.Symbol,
					FormatDateTime(rec.AsOf),
					utils.FormatUSD(rec.SpotPrice),
					fmt.Sprintf("%d", rec.MaxDays),
					fmt.Sprintf("%d", rec.Expirations),
					fmt.Sprintf("%d", rec.Candidates),
					fmt.Sprintf("%d", rec.Selected),
					string(rec.Params.RankKey),
					FormatDuration(rec.Duration),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "only scans of this symbol")
	cmd.Flags().Int("limit", 20, "maximum scans to list")
	cmd.Flags().Int("days", 0, "only scans from the last N days")

	return cmd
}

func newHistoryShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one scan with its selected condors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			history, err := openHistory(app)
			if err != nil {
				return err
			}
			defer history.Close()

			rec, err := history.GetScan(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output.IsStructured() {
				return output.Emit(rec)
			}

			output.Box(fmt.Sprintf("Scan %s", rec.ID), []string{
				fmt.Sprintf("Symbol:      %s @ %s", rec.Symbol, utils.FormatUSD(rec.SpotPrice)),
				fmt.Sprintf("As of:       %s", FormatDateTime(rec.AsOf)),
				fmt.Sprintf("Window:      %d days, %d expirations (%d skipped)", rec.MaxDays, rec.Expirations, rec.Skipped),
				fmt.Sprintf("Candidates:  %d, selected %d by %s", rec.Candidates, rec.Selected, rec.Params.RankKey),
				fmt.Sprintf("Earnings:    %v", rec.HasEarnings),
				fmt.Sprintf("Took:        %s", FormatDuration(rec.Duration)),
			})
			if len(rec.Condors) > 0 {
				output.Println()
				renderCondors(output, rec.Condors)
			}
			return nil
		},
	}
}

func newHistoryPruneCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete scans older than --days",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)

			days, _ := cmd.Flags().GetInt("days")
			if days <= 0 {
				return errors.NewConfigError("days", days, "must be > 0")
			}
			cutoff := app.now().Add(-time.Duration(days) * 24 * time.Hour)

			history, err := openHistory(app)
			if err != nil {
				return err
			}
			defer history.Close()

			n, err := history.DeleteScansBefore(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			app.Logger.Info().Int64("deleted", n).Time("before", cutoff).Msg("Scan history pruned")

			if output.IsStructured() {
				return output.Emit(map[string]interface{}{"deleted": n, "before": cutoff})
			}
			output.Success("Deleted %d scans before %s", n, FormatDateTime(cutoff))
			return nil
		},
	}

	cmd.Flags().Int("days", 90, "keep scans from the last N days")

	return cmd
}
