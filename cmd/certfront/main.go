package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"certgen/frontend/internal/api"
	"certgen/frontend/internal/config"
	"certgen/frontend/internal/jobs"
	"certgen/frontend/internal/session"
	"certgen/frontend/internal/shell"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env file ignored: %v", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := session.NewStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("session storage init failed: %v", err)
	}
	store, err := session.Open(ctx, storage, session.Options{Logger: logger})
	if err != nil {
		log.Fatalf("session open failed: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("session close error: %v", err)
		}
	}()

	client, err := api.New(api.Options{
		BaseURL:    cfg.APIURL,
		Timeout:    cfg.APITimeout,
		Tokens:     store,
		Logger:     logger,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		log.Fatalf("api client init failed: %v", err)
	}

	jobs.StartSessionExpiryJob(ctx, cfg, store, logger)

	server := shell.NewServer(cfg, client, store, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("certfront listening on %s (api %s, session %s)", cfg.HTTPAddr, client.BaseURL(), cfg.SessionBackend)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
