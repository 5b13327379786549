package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikkim/gomarketplace-cart/config"
	"github.com/ikkim/gomarketplace-cart/internal/app/controller"
	"github.com/ikkim/gomarketplace-cart/internal/app/repository"
	"github.com/ikkim/gomarketplace-cart/internal/app/service"
	"github.com/ikkim/gomarketplace-cart/internal/router"
	"github.com/ikkim/gomarketplace-cart/internal/scheduler"
	"github.com/ikkim/gomarketplace-cart/internal/storage"
	"github.com/ikkim/gomarketplace-cart/internal/websocket"
	"github.com/ikkim/gomarketplace-cart/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logger.Initialize(logger.Config{
		Level:       cfg.LogLevel(),
		Format:      cfg.Log.Format,
		EnableColor: cfg.Log.Format == "console",
	})

	logger.Info("Starting GoMarketplace cart server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"storage":     cfg.Storage.Driver,
		"log_level":   cfg.LogLevel(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open cart storage", err, map[string]interface{}{
			"driver": cfg.Storage.Driver,
		})
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Error("Failed to close cart storage", err)
		}
	}()

	cartRepo := repository.NewCartRepository(kv, cfg.Cart.StorageKey)
	cartStore := service.NewCartService(cartRepo, cfg.Cart.PersistTimeout)

	// A failed hydrate leaves an empty, usable cart; /health reports it.
	if err := cartStore.Hydrate(ctx); err != nil {
		logger.Error("Starting with an empty cart", err)
	}

	hub := websocket.NewHub(cartStore)
	go hub.Run(ctx)

	audit := scheduler.NewCartAuditScheduler(cartStore, cartRepo, cfg.Audit.Schedule, cfg.Audit.Resync)
	if err := audit.Start(); err != nil {
		logger.Fatal("Failed to start cart audit scheduler", err)
	}

	cartController := controller.NewCartController(hub, cfg.CORS.AllowedOrigins, cfg.Cart.PersistTimeout)
	healthController := controller.NewHealthController(cfg.Storage.Driver)

	r := router.NewRouter(cartController, healthController, cartStore, cfg)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err)
	}
	audit.Stop()
	cancel()

	if err := cartStore.Flush(shutdownCtx); err != nil {
		logger.Error("Pending cart writes did not finish", err)
	}

	logger.Info("Server stopped successfully")
}
