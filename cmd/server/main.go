// Package main is the entry point for the sasu-tax HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sasu-tax/adapters/storage"
	"sasu-tax/api"
	"sasu-tax/core/rates"
	"sasu-tax/internal/config"
	"sasu-tax/internal/logging"
)

var version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "config file (json, yaml or toml)")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	flag.Parse()

	if err := run(*configPath, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "sasu-tax server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addrOverride string) error {
	// 1. Configuration and logging
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addrOverride != "" {
		cfg.Server.Addr = addrOverride
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}
	defer logging.Sync()
	logger := logging.Named("server")

	// 2. Rate tables
	registry, err := rates.Builtin()
	if err != nil {
		return err
	}
	if cfg.Rates.Dir != "" {
		years, err := registry.LoadDir(cfg.Rates.Dir)
		if err != nil {
			return err
		}
		logger.Info("rate overrides loaded", zap.String("dir", cfg.Rates.Dir), zap.Ints("years", years))
	}
	if _, err := registry.Get(cfg.Rates.Year); err != nil {
		return fmt.Errorf("default tax year %d has no rate table: %w", cfg.Rates.Year, err)
	}

	// 3. Calculation store
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	// 4. HTTP server
	handler := api.NewServer(api.Options{
		Registry:           registry,
		Store:              store,
		DefaultYear:        cfg.Rates.Year,
		Version:            version,
		Logger:             logging.Named("http"),
		CORSOrigins:        cfg.Server.CORSOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})
	defer handler.Close()

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server started",
			zap.String("addr", cfg.Server.Addr),
			zap.String("storage", cfg.Storage.Backend),
			zap.Ints("tax_years", registry.Years()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown requested")
	}

	// 5. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
