package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"condor-screener/internal/errors"
	"condor-screener/internal/provider"
	"condor-screener/pkg/utils"
)

func newSnapshotCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot SYMBOL",
		Short: "Save the current market data of a symbol as an offline fixture",
		Long: `Fetch spot price, expirations and option chains for SYMBOL from the
configured provider and write them to <out>/<SYMBOL>.json. Point
provider.fixtures_dir at the directory and set provider.name = "file"
to screen the snapshot offline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			symbol := strings.ToUpper(strings.TrimSpace(args[0]))

			maxDays := app.Config.Screener.MaxDays
			if cmd.Flags().Changed("max-days") {
				maxDays, _ = cmd.Flags().GetInt("max-days")
			}
			if maxDays <= 0 {
				return errors.NewConfigError("max_days", maxDays, "must be > 0")
			}
			dir, _ := cmd.Flags().GetString("out")
			if dir == "" {
				dir = app.Config.Provider.FixturesDir
			}

			prov, release, err := app.provider()
			if err != nil {
				return err
			}
			defer release()

			from := utils.Date(app.now())
			snap, err := provider.Capture(cmd.Context(), prov, symbol, from, from.AddDate(0, 0, maxDays))
			if err != nil {
				return err
			}
			path, err := provider.SaveSnapshot(dir, snap)
			if err != nil {
				return err
			}
			app.Logger.Info().Str("symbol", symbol).Str("path", path).Int("contracts", len(snap.Contracts)).Msg("Snapshot saved")

			if output.IsStructured() {
				return output.Emit(map[string]interface{}{
					"symbol":    symbol,
					"path":      path,
					"contracts": len(snap.Contracts),
				})
			}
			output.Success("Saved %d contracts for %s to %s", len(snap.Contracts), symbol, path)
			return nil
		},
	}

	cmd.Flags().Int("max-days", 0, "days of expirations to capture (default screener.max_days)")
	cmd.Flags().String("out", "", "output directory (default provider.fixtures_dir)")

	return cmd
}
