package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/cypherpunk-labs/handlepay/service/config"
	"github.com/cypherpunk-labs/handlepay/service/events"
	"github.com/cypherpunk-labs/handlepay/service/ledger"
	"github.com/cypherpunk-labs/handlepay/service/metrics"
	"github.com/cypherpunk-labs/handlepay/service/temporal"
)

func workerCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run the payment-recording Temporal worker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "Listen address for the Prometheus /metrics endpoint",
				EnvVars: []string{"METRICS_ADDR"},
				Value:   ":9090",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: cfg.LogLevel,
			},
		},
		Action: func(c *cli.Context) error {
			logger := workerLogger(c.String("log-level"))
			ctx := context.Background()

			registry := prometheus.NewRegistry()
			m := metrics.NewMetrics(registry)

			store, closeStore, err := newStore(ctx, c)
			if err != nil {
				return err
			}
			defer closeStore()
			history := ledger.New(store, m, logger)

			var publisher events.Publisher
			if natsURL := c.String("nats-url"); natsURL != "" {
				p, err := events.NewPublisher(natsURL, m, logger)
				if err != nil {
					return err
				}
				defer p.Close()
				publisher = p
			}

			worker, err := temporal.NewWorker(temporal.WorkerConfig{
				TemporalHost:      c.String("temporal-host"),
				TemporalNamespace: c.String("temporal-namespace"),
				TaskQueue:         c.String("task-queue"),
				History:           history,
				Publisher:         publisher,
				Metrics:           m,
				Logger:            logger,
			})
			if err != nil {
				return err
			}

			// Serve metrics alongside the worker.
			metricsAddr := c.String("metrics-addr")
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
				logger.Info("serving metrics", "addr", metricsAddr)
				if err := http.ListenAndServe(metricsAddr, mux); err != nil {
					logger.Error("metrics server stopped", "error", err)
				}
			}()

			if err := worker.Start(); err != nil {
				return fmt.Errorf("worker failed: %w", err)
			}
			return nil
		},
	}
}

func workerLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
