package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"custos/internal/amqp"
	"custos/internal/backend"
	"custos/internal/cli"
	apphttp "custos/internal/http"
	applog "custos/internal/log"
	"custos/internal/metrics"
	"custos/internal/services"
	"custos/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	m := metrics.New()

	srcCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid source configuration", applog.FieldError, err)
		os.Exit(1)
	}
	source, err := backend.NewFactory(logger, m.ObserveCache).CreateSource(context.Background(), srcCfg)
	if err != nil {
		logger.Error("Failed to initialize cost sheet source", applog.FieldError, err, "type", cfg.DataSource)
		os.Exit(1)
	}

	opts := services.Options{Metrics: m, Logger: logger}

	history := cli.InitHistory(logger, cfg)
	var pruner worker.Pruner
	if history != nil {
		opts.History = history
		pruner = history
	}

	var broker *amqp.Client
	if cfg.AMQPEnabled() {
		broker, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// The dashboard works without the broker.
			logger.Warn("AMQP unavailable, load events disabled", applog.FieldError, err)
			broker = nil
		} else {
			opts.Publisher = broker
			logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewDashboardService(source.Source, opts)

	bg := worker.NewRefreshWorker(svc, pruner, worker.Config{
		RefreshInterval:  cfg.RefreshInterval,
		HistoryRetention: cfg.HistoryRetention,
	}, logger)
	if err := bg.StartupCheck(context.Background()); err != nil {
		logger.Warn("Startup history check failed", applog.FieldError, err)
	}

	warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.RemoteTimeout+10*time.Second)
	if _, err := svc.Load(warmCtx); err != nil {
		logger.Error("Initial load failed", applog.FieldError, err, applog.FieldOperation, applog.OpStartup)
	}
	warmCancel()

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:           logger,
		Metrics:          m,
		RefreshPerMinute: cfg.RefreshRatePerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if broker != nil {
			if err := broker.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if err := source.Cleanup(); err != nil {
			logger.Warn("Source cleanup error", applog.FieldError, err)
		}
		if history != nil {
			if err := history.Close(); err != nil {
				logger.Warn("History close error", applog.FieldError, err)
			}
		}
	})

	go bg.Run(ctx)

	if broker != nil {
		go func() {
			err := broker.RunRefreshConsumer(ctx, svc.HandleRefreshRequest)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Refresh consumer stopped", applog.FieldError, err)
			}
		}()
	}

	logger.Info("Starting custos server",
		"port", cfg.Port,
		applog.FieldSource, svc.SourceKey(),
		"history", svc.HistoryEnabled(),
		"amqp", broker != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
