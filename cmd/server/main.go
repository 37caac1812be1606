// Command server runs the jastip HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-jastip/internal/config"
	"github.com/goliatone/go-jastip/internal/httpapi"
	"github.com/goliatone/go-jastip/internal/logging"
	"github.com/goliatone/go-jastip/internal/storage"
	"github.com/goliatone/go-jastip/pkg/di"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.CreateSchema(ctx, db); err != nil {
		return err
	}

	container, err := di.NewContainer(db, di.Config{
		Cache:     cfg.Cache,
		JWTSecret: cfg.JWTSecret,
		JWTTTL:    cfg.JWTExpiresIn,
		HTTP: httpapi.Config{
			Development:    cfg.Development(),
			AllowedOrigins: cfg.CORSOrigins,
			ResponseTTL:    httpapi.DefaultResponseTTL,
		},
	}, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.HTTPAddr, "env", cfg.Env, "cache", cfg.Cache.Driver)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	stats := container.CacheService().Stats()
	logger.Info("server stopped", "cache_hits", stats.Hits, "cache_misses", stats.Misses)
	return nil
}
