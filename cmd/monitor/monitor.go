package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Navezjt/master-me/internal/conf"
	"github.com/Navezjt/master-me/internal/logging"
	"github.com/Navezjt/master-me/internal/monitor"
)

// Command creates the command for the loudness telemetry consumer.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Consume loudness telemetry from a running mastering process",
		Long:  "Attach to the shared memory region, drain windowed loudness readings and expose them as Prometheus metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}
	return cmd
}

// setupFlags configures flags specific to the monitor command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Monitor.MetricsAddr, "listen", viper.GetString("monitor.metricsaddr"), "Listen address of the Prometheus endpoint, empty disables")
	cmd.Flags().IntVar(&settings.Monitor.PollIntervalMS, "poll", viper.GetInt("monitor.pollintervalms"), "Drain interval in milliseconds")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func run(ctx context.Context, settings *conf.Settings) error {
	logger := logging.ForService("monitor")

	metrics, err := monitor.NewMetrics()
	if err != nil {
		return err
	}
	mon, err := monitor.New(settings.Telemetry.Region, metrics, logger)
	if err != nil {
		return err
	}

	var server *http.Server
	if settings.Monitor.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
		server = &http.Server{
			Addr:              settings.Monitor.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics endpoint listening", "addr", settings.Monitor.MetricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	pollInterval := time.Duration(settings.Monitor.PollIntervalMS) * time.Millisecond
	runErr := mon.Run(ctx, pollInterval)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics endpoint shutdown", "error", err)
		}
	}
	return runErr
}
