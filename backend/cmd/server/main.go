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

	"crux-monitor-app/backend/internal/app"
	"crux-monitor-app/backend/internal/bootstrap"
	"crux-monitor-app/backend/internal/config"
	appLogger "crux-monitor-app/backend/internal/infra/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := appLogger.Init()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer appLogger.Sync()
	sugar := logger.Sugar().With("component", "main")

	runtimeCfg, err := config.LoadRuntime()
	if err != nil {
		sugar.Fatalw("load runtime config failed", "error", err)
	}

	resources, err := app.Bootstrap(ctx)
	if err != nil {
		sugar.Fatalw("bootstrap failed", "error", err)
	}
	defer func() {
		if err := resources.Close(); err != nil {
			sugar.Warnw("resource cleanup error", "error", err)
		}
	}()

	application, err := bootstrap.BuildApplication(ctx, sugar, resources, runtimeCfg)
	if err != nil {
		sugar.Fatalw("build application failed", "error", err)
	}

	application.Collector.Start(ctx)

	srv := &http.Server{
		Addr:    ":" + runtimeCfg.Port,
		Handler: application.Router,
	}

	go func() {
		sugar.Infow("http server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("http server shutdown error", "error", err)
	}
}
