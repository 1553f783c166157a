package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"novac/internal/bootstrap"
	"novac/internal/config"
	"novac/kit/observability"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger().Error("config load error", "layer", "main", "error", err.Error())
		return err
	}
	logger, logFile, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		observability.NewLogger().Error("logger init error", "layer", "main", "error", err.Error())
		return err
	}
	if logFile != nil {
		defer func() { _ = logFile.Close() }()
	}

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Error("app init error", "layer", "main", "error", err.Error())
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("app close error", "layer", "main", "error", err.Error())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Migrate(ctx); err != nil {
		logger.Error("migrate error", "layer", "main", "error", err.Error())
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newRouter(app),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("web server started", "layer", "main", "addr", srv.Addr, "mode", cfg.Gateway.Mode, "config", cfg.Redacted())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("web server error", "layer", "main", "error", err.Error())
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	logger.Info("web server shutting down", "layer", "main")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("web server shutdown error", "layer", "main", "error", err.Error())
		return err
	}
	return nil
}
