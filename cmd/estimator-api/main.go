package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"estimator/internal/auth"
	"estimator/internal/backend"
	"estimator/internal/cli"
	apphttp "estimator/internal/http"
	"estimator/internal/log"
)

func main() {
	cfg, err := cli.LoadConfig()
	if err != nil {
		log.Default(log.ComponentApp).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	accounts := auth.NewService(res.Accounts, auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL))
	srv := apphttp.NewServer(":"+cfg.Port, res.Resources, accounts, apphttp.Options{
		RequireAuth:    cfg.RequireAuth,
		RateLimit:      cfg.RateLimit,
		Ready:          res.Ready,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger.WithComponent(log.ComponentHTTP),
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting estimator API",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"require_auth", cfg.RequireAuth,
			"events", cfg.AMQPEnabled(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
