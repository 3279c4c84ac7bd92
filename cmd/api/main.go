package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthmate/backend/internal/assistant"
	"healthmate/backend/internal/config"
	"healthmate/backend/internal/logger"
	"healthmate/backend/internal/observability"
	"healthmate/backend/internal/server"
	"healthmate/backend/internal/store"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	mode := "dev"
	if cfg.IsProduction() {
		mode = "prod"
	}
	appLog, err := logger.New(mode, cfg.LogRedact)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer appLog.Sync()

	ctx := context.Background()
	shutdownTracing := observability.InitTracing(ctx, cfg, appLog)

	docs, err := store.Open(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("document store init failed", "backend", cfg.StoreBackend, "err", err)
	}
	defer docs.Close()

	app := server.New(cfg, docs, assistant.NewGenerator(cfg), appLog)
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info(
			"healthmate api listening",
			"addr", "http://localhost:"+cfg.AppPort,
			"store", cfg.StoreBackend,
			"ai_provider", cfg.AIProvider,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("server failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("graceful shutdown failed", "err", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		appLog.Warn("tracing shutdown failed", "err", err)
	}
}
