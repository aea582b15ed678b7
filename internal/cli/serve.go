package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"condor-screener/internal/analysis/condor"
	"condor-screener/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the screener over HTTP",
		Long: `Start the HTTP API.

Routes:
  GET /api/v1/condors/{symbol}   screen a symbol (query overrides: max_days,
                                 min_credit, max_risk, min_probability,
                                 criteria, limit, window, as_of)
  GET /api/v1/scans              recent scans (symbol, limit)
  GET /api/v1/scans/{id}         one scan with its condors
  GET /health, /ready, /metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config
			addr := cfg.Server.Addr
			if cmd.Flags().Changed("addr") {
				addr, _ = cmd.Flags().GetString("addr")
			}

			prov, release, err := app.provider()
			if err != nil {
				return err
			}
			defer release()

			history, err := app.history()
			if err != nil {
				return err
			}
			if history != nil {
				defer history.Close()
			}

			srv := server.New(server.Config{
				Addr:         addr,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				Logger:       app.Logger,
				Scanner:      condor.NewScanner(prov, app.Logger, cfg.Screener.Concurrency),
				Screener:     cfg.Screener,
				History:      history,
				Now:          app.Now,
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			// Graceful shutdown
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err := <-errCh:
				return err
			case sig := <-quit:
				app.Logger.Info().Str("signal", sig.String()).Msg("Shutting down server")
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default server.addr)")

	return cmd
}
