// Package main provides the comparison API server entrypoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/config"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/factories"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfgPath := flag.String("config", os.Getenv("CONFIG_PATH"), "config file path")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	svc, err := factories.Build(context.Background(), cfg, factories.Options{
		ServiceName: cfg.Observability.ServiceName,
		Generation:  true,
		History:     true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialise services: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	logger := svc.Logger
	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("database", cfg.Database.Driver).
		Str("backend", cfg.Generation.Backend).
		Bool("cache", cfg.Cache.Enabled).
		Msg("Starting Comparison API")

	router := NewRouter(logger, RouterDeps{
		Comparer:       svc.Pipeline(),
		Runs:           svc.Runs,
		Topics:         svc.Topics,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: []string{"*"},
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}
