package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"condor-screener/internal/analysis/condor"
	"condor-screener/internal/errors"
	"condor-screener/internal/models"
	"condor-screener/internal/store"
	"condor-screener/pkg/utils"
)

func newFindCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find [SYMBOL]",
		Short: "Find iron condor opportunities",
		Long: `Screen every expiration of SYMBOL within --max-days for short iron condors.

Candidates must pass the credit, risk and probability thresholds and are
ranked by --criteria. The selected condors are written to
<data_dir>/<symbol>_iron_condors.csv for later P&L evaluation.`,
		Example: `  condor find SPY
  condor find --symbol QQQ --max-days 14 --criteria probability
  condor find SPY --window spot --min-probability 50 --format yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, _ := cmd.Flags().GetString("symbol")
			if len(args) == 1 {
				symbol = args[0]
			}
			if strings.TrimSpace(symbol) == "" {
				return errors.NewConfigError("symbol", symbol, "pass SYMBOL or --symbol")
			}
			return runFind(cmd, app, strings.ToUpper(strings.TrimSpace(symbol)))
		},
	}

	cmd.Flags().String("symbol", "", "underlying symbol (e.g. SPY)")
	cmd.Flags().Int("max-days", 0, "maximum days to expiration")
	cmd.Flags().Float64("min-credit", 0, "minimum net credit")
	cmd.Flags().Float64("max-risk", 0, "maximum loss per share")
	cmd.Flags().Float64("min-probability", 0, "minimum probability of profit, percent")
	cmd.Flags().String("criteria", "", "ranking criteria: credit, probability, risk_reward")
	cmd.Flags().Int("limit", 0, "maximum number of condors to keep")
	cmd.Flags().String("window", "", "leg window: first or spot")
	cmd.Flags().String("as-of", "", "evaluation date (YYYY-MM-DD), default now")
	cmd.Flags().Int("top", 0, "rows to display (default output.top_n)")
	cmd.Flags().Bool("no-csv", false, "skip the CSV export")

	return cmd
}

// findOptions is the screener section after flag overrides.
type findOptions struct {
	maxDays int
	params  condor.Params
}

// applyFlags overrides options with the flags a user set.
func (sc *findOptions) applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("max-days") {
		sc.maxDays, _ = flags.GetInt("max-days")
	}
	if flags.Changed("min-credit") {
		sc.params.MinNetCredit, _ = flags.GetFloat64("min-credit")
	}
	if flags.Changed("max-risk") {
		sc.params.MaxRisk, _ = flags.GetFloat64("max-risk")
	}
	if flags.Changed("min-probability") {
		sc.params.MinProbabilityPct, _ = flags.GetFloat64("min-probability")
	}
	if flags.Changed("criteria") {
		v, _ := flags.GetString("criteria")
		sc.params.RankKey = models.RankKey(v)
	}
	if flags.Changed("limit") {
		sc.params.ResultLimit, _ = flags.GetInt("limit")
	}
	if flags.Changed("window") {
		v, _ := flags.GetString("window")
		sc.params.Window = models.LegWindow(v)
	}
	return sc.params.Validate()
}

// asOfFlag parses --as-of as 9:30 New York on that date.
func asOfFlag(cmd *cobra.Command, now time.Time) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("as-of")
	if raw == "" {
		return now, nil
	}
	d, err := utils.ParseDate(raw)
	if err != nil {
		return time.Time{}, errors.NewConfigError("as_of", raw, "must be YYYY-MM-DD")
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 9, 30, 0, 0, utils.NewYorkLocation), nil
}

// FindResult is the structured output of find.
type FindResult struct {
	condor.ScanResult `yaml:",inline"`
	CSVPath           string `json:"csv_path,omitempty" yaml:"csv_path,omitempty"`
}

func runFind(cmd *cobra.Command, app *App, symbol string) error {
	cfg := app.Config
	output := app.output(cmd)

	sc := findOptions{maxDays: cfg.Screener.MaxDays, params: cfg.Screener.Params()}
	if err := sc.applyFlags(cmd); err != nil {
		return err
	}
	asOf, err := asOfFlag(cmd, app.now())
	if err != nil {
		return err
	}
	topN := cfg.Output.TopN
	if cmd.Flags().Changed("top") {
		topN, _ = cmd.Flags().GetInt("top")
	}

	prov, release, err := app.provider()
	if err != nil {
		return err
	}
	defer release()

	req := condor.ScanRequest{
		Symbol:  symbol,
		MaxDays: sc.maxDays,
		Params:  sc.params,
		AsOf:    asOf,
	}

	if !output.IsStructured() {
		output.Info("Scanning %s for iron condor opportunities (next %d days)...", symbol, sc.maxDays)
	}

	scanner := condor.NewScanner(prov, app.Logger, cfg.Screener.Concurrency)
	res, err := scanner.Scan(cmd.Context(), req)
	if err != nil {
		return err
	}

	csvPath := ""
	noCSV, _ := cmd.Flags().GetBool("no-csv")
	if cfg.Output.WriteCSV && !noCSV {
		csvPath, err = store.WriteCSV(cfg.Output.DataDir, symbol, res.Condors, res.HasEarnings, app.now())
		if err != nil {
			return err
		}
	}

	recordHistory(cmd.Context(), app, req, res)

	if output.IsStructured() {
		return output.Emit(FindResult{ScanResult: *res, CSVPath: csvPath})
	}

	displayFind(output, res, sc.params, topN)
	if csvPath != "" {
		output.Println()
		output.Success("Saved CSV file: %s", csvPath)
		output.Dim("Next step: run 'condor pnl --csv %s' after expiration", csvPath)
	}
	return nil
}

// recordHistory stores the scan when history is enabled. Failures only
// warn: the scan itself succeeded.
func recordHistory(ctx context.Context, app *App, req condor.ScanRequest, res *condor.ScanResult) {
	history, err := app.history()
	if err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to open scan history")
		return
	}
	if history == nil {
		return
	}
	defer history.Close()

	if err := history.SaveScan(ctx, store.NewScanRecord(req, res)); err != nil {
		app.Logger.Warn().Err(err).Str("scan_id", res.ID).Msg("Failed to record scan history")
	}
}

func displayFind(output *Output, res *condor.ScanResult, params condor.Params, topN int) {
	output.Printf("Current spot price: %s\n", utils.FormatUSD(res.SpotPrice))
	if res.HasEarnings {
		output.Warning("Warning: %s has upcoming earnings inside the scan window", res.Symbol)
	}
	if len(res.Expirations) == 0 {
		output.Error("No expirations found for %s", res.Symbol)
		return
	}
	output.Printf("Found %d expirations, %d candidates", len(res.Expirations), res.Candidates)
	if res.Skipped > 0 {
		output.Printf(" (%d expirations skipped)", res.Skipped)
	}
	output.Println()
	output.Dim("Filters: min credit %s, max risk %s, min PoP %.1f%%",
		utils.FormatUSD(params.MinNetCredit), utils.FormatUSD(params.MaxRisk), params.MinProbabilityPct)

	if len(res.Condors) == 0 {
		output.Println()
		output.Error("No iron condors found matching criteria")
		output.Dim("Try a different symbol, relax the filters or increase --max-days")
		return
	}

	shown := res.Condors
	if topN > 0 && len(shown) > topN {
		shown = shown[:topN]
	}

	output.Println()
	output.Bold("Top %d by %s (highest first)", len(shown), criteriaTitle(params.RankKey))
	renderCondors(output, shown)

	best := res.Condors[0]
	output.Println()
	output.Success("Top Recommendation: %s %s call spread + %s put spread",
		FormatDate(best.Expiration), FormatCallSpread(best.CallSpread), FormatPutSpread(best.PutSpread))
	output.Printf("  Net Credit: %s | Max Profit: %s | PoP: %s | Risk/Reward: %s\n",
		utils.FormatUSD(best.NetCredit), utils.FormatUSD(best.MaxProfit),
		FormatProbability(best.ProbabilityOfProfit), FormatRiskReward(best.RiskReward))
	output.Printf("  Profit Zone: %s\n", FormatZone(best.ProfitZone))
}

// renderCondors prints condors as a table.
func renderCondors(output *Output, condors []models.IronCondor) {
	table := NewTable(output, "Exp", "Call Spread", "Put Spread", "Net Credit", "Max Profit", "Max Loss", "PoP%", "Risk/Reward")
	for _, ic := range condors {
		table.AddRow(
			FormatExpiration(ic.Expiration),
			FormatCallSpread(ic.CallSpread),
			FormatPutSpread(ic.PutSpread),
			utils.FormatUSD(ic.NetCredit),
			utils.FormatUSD(ic.MaxProfit),
			utils.FormatUSD(ic.MaxLoss),
			FormatProbability(ic.ProbabilityOfProfit),
			FormatRiskReward(ic.RiskReward),
		)
	}
	table.Render()
}

func criteriaTitle(key models.RankKey) string {
	switch key {
	case models.RankByProbability:
		return "Probability"
	case models.RankByRiskReward:
		return "Risk/Reward"
	default:
		return "Credit"
	}
}
