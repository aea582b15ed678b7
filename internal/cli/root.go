// Package cli provides the command-line interface for the condor screener.
package cli

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"condor-screener/internal/config"
	"condor-screener/internal/logging"
	"condor-screener/internal/provider"
	"condor-screener/internal/security"
	"condor-screener/internal/store"
	"condor-screener/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// skipConfig marks commands that must run without a valid configuration.
const skipConfig = "skip_config"

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Now is the evaluation clock. Nil means time.Now.
	Now func() time.Time
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{Logger: logger})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "condor",
		Short: "Iron condor screener",
		Long: `condor screens option chains for short iron condors.

It fetches spot prices, expirations and option chains from a market data
provider, enumerates every valid call/put spread pair within the liquid
strikes and ranks the candidates by credit, probability of profit or
risk/reward. Selected condors are exported to CSV for later P&L
evaluation and every run is kept in a local history database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if cmd.Annotations[skipConfig] == "" {
				path, _ := cmd.Flags().GetString("config")
				cfg, err := config.Load(path)
				if err != nil {
					return err
				}
				app.Config = cfg
				app.Logger = logging.NewLoggerWithConfig(logConfig(cfg))
			}

			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/condor-screener/config.toml)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().String("format", "", "output format: table, json or yaml")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newFindCmd(app))
	rootCmd.AddCommand(newPnLCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newSnapshotCmd(app))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))

	return rootCmd
}

// logConfig maps the logging section onto the logger settings.
func logConfig(cfg *config.Config) logging.LogConfig {
	lc := logging.DefaultLogConfig()
	lc.Level = cfg.Logging.Level
	lc.File = cfg.Logging.File
	lc.FilePath = cfg.Logging.FilePath
	return lc
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// output creates an Output honouring the configured defaults.
func (a *App) output(cmd *cobra.Command) *Output {
	if a.Config == nil {
		return NewOutput(cmd, FormatTable, true)
	}
	return NewOutput(cmd, a.Config.Output.Format, a.Config.Output.ColorEnabled)
}

// provider builds the configured market data provider. The returned
// function releases it.
func (a *App) provider() (provider.Provider, func(), error) {
	p, err := provider.New(a.Config, a.Logger)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if c, ok := p.(interface{ Close() }); ok {
			c.Close()
		}
	}
	return p, release, nil
}

// history opens the scan history database, or returns nil when history
// is disabled.
func (a *App) history() (store.HistoryStore, error) {
	if !a.Config.History.Enabled {
		return nil, nil
	}
	s, err := store.NewSQLiteStore(a.Config.History.Path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, FormatTable, true)
			if output.IsStructured() {
				return output.Emit(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("condor-screener v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the screener configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := app.output(cmd)
			masked := *app.Config
			masked.Provider.APIKey = security.MaskSecret(masked.Provider.APIKey)
			if output.IsStructured() {
				return output.Emit(masked)
			}
			showConfig(output, &masked)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration file path",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, FormatTable, false)
			path := configPath(cmd)
			if output.IsStructured() {
				return output.Emit(map[string]string{"path": path})
			}
			output.Println(path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd, FormatTable, true)
			path := configPath(cmd)
			if _, err := config.Load(path); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsStructured() {
				return output.Emit(map[string]interface{}{"path": path, "valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

// configPath resolves the --config flag to the file that will be read.
func configPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	return config.DefaultConfigPath()
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Screener")
	output.Printf("  Max Days:        %d\n", cfg.Screener.MaxDays)
	output.Printf("  Min Volume:      %d\n", cfg.Screener.MinVolume)
	output.Printf("  Min Open Int:    %d\n", cfg.Screener.MinOpenInterest)
	output.Printf("  Legs Per Side:   %d (%s)\n", cfg.Screener.MaxLegsPerSide, cfg.Screener.Window)
	output.Printf("  Max Candidates:  %d\n", cfg.Screener.MaxCandidates)
	output.Printf("  Min Net Credit:  %s\n", utils.FormatUSD(cfg.Screener.MinNetCredit))
	output.Printf("  Max Risk:        %s\n", utils.FormatUSD(cfg.Screener.MaxRisk))
	output.Printf("  Min PoP:         %.1f%%\n", cfg.Screener.MinProbability)
	output.Printf("  Criteria:        %s\n", cfg.Screener.Criteria)
	output.Printf("  Limit:           %d\n", cfg.Screener.Limit)
	output.Printf("  Volatility:      %.2f\n", cfg.Screener.Volatility)
	output.Printf("  Concurrency:     %d\n", cfg.Screener.Concurrency)
	output.Println()

	output.Bold("Provider")
	output.Printf("  Name:            %s\n", cfg.Provider.Name)
	if cfg.Provider.Name == config.ProviderFile {
		output.Printf("  Fixtures:        %s\n", cfg.Provider.FixturesDir)
	} else {
		output.Printf("  Base URL:        %s\n", cfg.Provider.BaseURL)
		output.Printf("  API Key:         %s\n", cfg.Provider.APIKey)
		output.Printf("  Timeout:         %s\n", cfg.Provider.Timeout)
		output.Printf("  Max Retries:     %d\n", cfg.Provider.MaxRetries)
		if cfg.Provider.RequestsPerMinute > 0 {
			output.Printf("  Rate Limit:      %d/min\n", cfg.Provider.RequestsPerMinute)
		}
	}
	output.Println()

	output.Bold("Output")
	output.Printf("  Format:          %s\n", cfg.Output.Format)
	output.Printf("  Top N:           %d\n", cfg.Output.TopN)
	output.Printf("  Write CSV:       %v\n", cfg.Output.WriteCSV)
	output.Printf("  Data Dir:        %s\n", cfg.Output.DataDir)
	output.Println()

	output.Bold("History")
	output.Printf("  Enabled:         %v\n", cfg.History.Enabled)
	output.Printf("  Path:            %s\n", cfg.History.Path)
	output.Println()

	output.Bold("Cache")
	output.Printf("  Enabled:         %v\n", cfg.Cache.Enabled)
	output.Printf("  Chain TTL:       %s\n", cfg.Cache.ChainTTL)
	output.Printf("  Spot TTL:        %s\n", cfg.Cache.SpotTTL)
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr)
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:           %s\n", cfg.Logging.Level)
	if cfg.Logging.File {
		output.Printf("  File:            %s\n", cfg.Logging.FilePath)
	}
}
