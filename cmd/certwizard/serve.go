package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/certwizard"
	"github.com/aretw0/certwizard/internal/cli"
	httpAdapter "github.com/aretw0/certwizard/pkg/adapters/http"
	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/aretw0/certwizard/pkg/observability"
	"github.com/aretw0/certwizard/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wizard as an HTML form and JSON API",
	Long: `Starts the control server: an HTML page mirroring the wizard form, a JSON API,
a server-sent event stream of view changes and prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetString("port")
		noMetrics, _ := cmd.Flags().GetBool("no-metrics")

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(reg)

		streams := httpAdapter.NewStreamManager()
		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		wizard, cleanup, err := cli.NewWizard(ctx, cfg, cli.WizardOptions{
			Views:  []ports.View{httpAdapter.NewStreamView(streams)},
			Hooks:  []domain.LifecycleHooks{metrics.Hooks(), observability.LogHooks(logger)},
			Logger: logger,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		opts := []httpAdapter.ServerOption{
			httpAdapter.WithStreams(streams),
			httpAdapter.WithServerLogger(logger),
			httpAdapter.WithVersion(certwizard.Version),
		}
		if !noMetrics {
			opts = append(opts, httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		}

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           httpAdapter.NewHandler(wizard, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting certwizard server", "addr", srv.Addr, "endpoint", cfg.Endpoint)
			fmt.Printf("Serving the wizard for %s on http://localhost%s\n", cfg.Endpoint, srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			fmt.Printf("\nStart shutdown... Signal: %v\n", ctx.Signal())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			fmt.Println("certwizard server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Bool("no-metrics", false, "Do not expose /metrics")
}
