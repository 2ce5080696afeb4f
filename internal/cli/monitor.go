package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var monitorOpts struct {
	categories  []string
	metricsAddr string
	schedule    string
}

func init() {
	f := monitorCmd.Flags()
	f.StringSliceVar(&monitorOpts.categories, "categories", nil, "Categories to monitor (default all)")
	f.StringVar(&monitorOpts.schedule, "schedule", "", `Cron expression for cycles, e.g. "*/15 * * * *" (overrides monitoring_interval)`)
	f.StringVar(&monitorOpts.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address, e.g. :9090")
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor [--categories c1,c2] [--schedule cron] [--metrics-addr :9090]",
	Short: "Scrapes the configured categories every monitoring interval until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if monitorOpts.schedule != "" {
			cfg.MonitorSchedule = monitorOpts.schedule
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			return a.Monitor(ctx, monitorOpts.categories)
		})

		if monitorOpts.metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", a.Metrics().Handler())
			srv := &http.Server{
				Addr:              monitorOpts.metricsAddr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}

			g.Go(func() error {
				slog.Info("[metrics] Serving", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		}

		return g.Wait()
	},
}
