package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ent0n29/lankachat/internal/app"
	"github.com/ent0n29/lankachat/internal/config"
	"github.com/ent0n29/lankachat/internal/logging"
	"github.com/ent0n29/lankachat/internal/memory"
)

type serveCommander struct{}

func newServeCmd() *cobra.Command {
	cmder := &serveCommander{}
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}
}

func (c *serveCommander) run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	built, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(built.Resolver.Providers()))
	for _, p := range built.Resolver.Providers() {
		names = append(names, p.Name())
	}
	logger.Info("chat service configured",
		zap.String("store", memory.BackendOf(cfg.DatabaseURL)),
		zap.Strings("providers", names),
		zap.Int("history_limit", cfg.HistoryLimit),
	)

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           built.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			_ = built.Cleanup(context.Background())
			return fmt.Errorf("listen error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}
	if err := built.Cleanup(shutdownCtx); err != nil {
		logger.Warn("cleanup failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}
