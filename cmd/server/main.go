package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"assignment-status/internal/api"
	"assignment-status/internal/app"
	"assignment-status/internal/config"
	"assignment-status/internal/logging"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	a, err := app.New(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if l := a.Listener(cfg); l != nil {
		defer l.Close()
		go func() {
			if err := l.Run(ctx); err != nil {
				logger.Error("change feed stopped", zap.Error(err))
			}
		}()
		logger.Info("change feed listening", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	srv, err := api.NewServer(&api.Options{
		Address:    cfg.HTTPAddr,
		Debug:      cfg.Debug,
		Reconciler: a.Engine,
		Logger:     logger,
		Metrics:    a.Metrics,
	})
	if err != nil {
		log.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	logger.Info("api listening", zap.String("addr", cfg.HTTPAddr), zap.String("source", a.Source()))

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("api stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
