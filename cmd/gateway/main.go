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

	"github.com/tendant/campus-gateway/pkg/config"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Println(config.Usage())
		return
	}

	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}
	if cfg.Environment == "production" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	ctx := context.Background()
	svc, cleanup, err := cfg.BuildService(ctx)
	if err != nil {
		slog.Error("Failed to build resource service", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	fwd, err := cfg.BuildForwarder()
	if err != nil {
		slog.Error("Failed to build forwarder", "err", err)
		os.Exit(1)
	}

	tokenAuth := cfg.BuildTokenAuth()
	if tokenAuth == nil {
		slog.Warn("JWT_SECRET is not set; uploads and deletes will be rejected as unauthenticated")
	}

	server := NewHTTPServer(svc, fwd, tokenAuth, cfg)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Gateway starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"api_prefix", cfg.APIPrefix,
			"upstream", fwd.BaseURL(),
			"storage", cfg.Resources.StorageURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "err", err)
	}

	slog.Info("Server exiting")
}
