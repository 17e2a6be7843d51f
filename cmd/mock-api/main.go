package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/birbparty/birb-baas/internal/api"
	"github.com/birbparty/birb-baas/internal/cleanup"
	"github.com/birbparty/birb-baas/internal/queue"
	"github.com/birbparty/birb-baas/internal/telemetry"
)

func main() {
	telemetryCfg := telemetry.NewConfigFromEnv()
	telemetryCfg.ServiceName = "birb-baas-mock"
	if err := telemetry.Init(telemetryCfg); err != nil {
		telemetry.L().WithError(err).Fatal("Failed to initialize telemetry")
	}
	log := telemetry.L()

	// Load API configuration
	cfg, err := api.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	log.WithFields(map[string]interface{}{
		"blobBackend": cfg.BlobBackend,
		"requireAuth": cfg.RequireAuth,
		"apiKeys":     len(cfg.APIKeys),
	}).Info("Birb BaaS mock API starting")

	blobs, err := cfg.NewBlobStore()
	if err != nil {
		log.WithError(err).Fatal("Failed to create blob store")
	}

	app, store := api.NewApp(cfg, blobs, telemetry.M())

	// Expired sessions are reaped in the background; notifications go to
	// NATS when NATS_URL is set
	var publisher cleanup.Publisher
	if os.Getenv("NATS_URL") != "" {
		natsCfg, err := queue.NewConfigFromEnv()
		if err != nil {
			log.WithError(err).Fatal("Failed to load NATS configuration")
		}
		nc, err := queue.Connect(natsCfg, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to NATS")
		}
		defer nc.Close()
		publisher = nc
	}

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	reaper := cleanup.NewService(store, blobs, publisher, telemetry.M(), log, cleanup.LoadConfig())
	go reaper.Start(cleanupCtx)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down gracefully...")
		stopCleanup()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Error("Server forced to shutdown")
		}
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Failed to shut down telemetry")
		}
	}()

	log.WithField("address", cfg.Address()).Info("Mock API listening")
	if err := app.Listen(cfg.Address()); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}
