package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/transitlab/demandcast/dataset"
	"github.com/transitlab/demandcast/forecast"
	"github.com/transitlab/demandcast/internal/config"
	"github.com/transitlab/demandcast/internal/httpapi"
	"github.com/transitlab/demandcast/internal/logging"
	"github.com/transitlab/demandcast/internal/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.Init(cfg.LogLevel)

	store, err := dataset.Open(cfg.DataPath)
	if err != nil {
		logger.Error("booking store not found", "path", cfg.DataPath, "error", err)
		os.Exit(1)
	}

	// A missing or empty store is fatal for the session.
	obs, err := store.Load()
	if err != nil {
		logger.Error("failed to load booking store", "path", cfg.DataPath, "error", err)
		os.Exit(1)
	}
	logger.Info("booking store loaded", "path", cfg.DataPath, "rows", len(obs))

	opts := forecast.DefaultOptions()
	opts.CacheSize = cfg.CacheSize
	runner, err := forecast.NewRunner(opts)
	if err != nil {
		logger.Error("failed to create runner", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	server := httpapi.New(store, runner, obs, logger, m, cfg.CORSOrigin)

	srv := &http.Server{
		Addr:         cfg.HTTPBind,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // a cold SARIMA fit can take a while
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPBind)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
