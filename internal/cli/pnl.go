package cli

import (
	"github.com/spf13/cobra"

	"condor-screener/internal/analysis/pnl"
	"condor-screener/internal/errors"
	"condor-screener/internal/store"
	"condor-screener/pkg/utils"
)

func newPnLCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pnl",
		Short: "Calculate P&L for expired iron condors",
		Long: `Settle the condors of a CSV export against the underlying's close on
each expiration date. Condors expiring today or later are reported as
pending. Pass --symbol to read the default export for that symbol.`,
		Example: `  condor pnl --csv data/spy_iron_condors.csv
  condor pnl --symbol SPY --as-of 2024-06-24`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("csv")
			if path == "" {
				symbol, _ := cmd.Flags().GetString("symbol")
				if symbol == "" {
					return errors.NewConfigError("csv", path, "pass --csv or --symbol")
				}
				path = store.CSVPath(app.Config.Output.DataDir, symbol)
			}
			return runPnL(cmd, app, path)
		},
	}

	cmd.Flags().String("csv", "", "path to a CSV file written by find")
	cmd.Flags().String("symbol", "", "read <data_dir>/<symbol>_iron_condors.csv")
	cmd.Flags().String("as-of", "", "evaluation date (YYYY-MM-DD), default now")

	return cmd
}

func runPnL(cmd *cobra.Command, app *App, path string) error {
	output := app.output(cmd)

	asOf, err := asOfFlag(cmd, app.now())
	if err != nil {
		return err
	}

	rows, err := store.ReadCSV(path)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return errors.NewDataError("csv", path, "no condors in file", errors.ErrDataNotFound)
	}

	positions := make([]pnl.Position, 0, len(rows))
	for _, row := range rows {
		ic, err := row.Condor()
		if err != nil {
			return err
		}
		positions = append(positions, pnl.Position{Symbol: row.Symbol, Condor: ic})
	}

	prov, release, err := app.provider()
	if err != nil {
		return err
	}
	defer release()

	if !output.IsStructured() {
		output.Info("Calculating P&L for %d iron condors...", len(positions))
	}

	summary, err := pnl.NewEvaluator(prov).Evaluate(cmd.Context(), positions, asOf)
	if err != nil {
		return err
	}
	app.Logger.Info().
		Str("csv", path).
		Int("evaluated", summary.Evaluated).
		Int("pending", summary.Pending).
		Int("missing", summary.Missing).
		Float64("total_pnl", summary.TotalPnL).
		Msg("P&L evaluated")

	if output.IsStructured() {
		return output.Emit(summary)
	}
	displayPnL(output, summary)
	return nil
}

func displayPnL(output *Output, s pnl.Summary) {
	if len(s.Outcomes) > 0 {
		output.Println()
		table := NewTable(output, "Symbol", "Exp", "Call Spread", "Put Spread", "Credit", "Close", "In Zone", "P&L")
		for _, o := range s.Outcomes {
			ic := o.Position.Condor
			inZone := "no"
			if o.InZone {
				inZone = "yes"
			}
			table.AddRow(
				o.Position.Symbol,
				FormatDate(ic.Expiration),
				FormatCallSpread(ic.CallSpread),
				FormatPutSpread(ic.PutSpread),
				utils.FormatUSD(ic.NetCredit),
				utils.FormatUSD(o.Settlement),
				inZone,
				output.ColoredString(output.PnLColor(o.PnL), utils.FormatPnL(o.PnL)),
			)
		}
		table.Render()
	}

	output.Println()
	output.Bold("P&L Summary")
	output.Printf("  Total Trades:      %d\n", s.Total)
	output.Printf("  Evaluated:         %d\n", s.Evaluated)
	if s.Pending > 0 {
		output.Printf("  Pending:           %d\n", s.Pending)
	}
	if s.Missing > 0 {
		output.Warning("  No settlement:     %d", s.Missing)
	}
	if s.Evaluated == 0 {
		output.Dim("  Nothing has expired yet")
		return
	}
	output.Printf("  Profitable Trades: %d\n", s.Profitable)
	output.Printf("  Win Rate:          %.1f%%\n", s.WinRate)
	output.Printf("  Total P&L:         %s\n", output.ColoredString(output.PnLColor(s.TotalPnL), utils.FormatPnL(s.TotalPnL)))
	output.Printf("  Avg P&L per Trade: %s\n", utils.FormatPnL(s.AvgPnL))
}
