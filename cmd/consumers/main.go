package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studiobook/cmd/consumers/jobs"
	"studiobook/internal/config"
	"studiobook/internal/consumers"
	"studiobook/internal/external"
	"studiobook/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	logger.Get().Info("Starting consumers service...")

	cfg.NATS.ClientID = "studiobook-consumers"

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		logger.Fatal("Failed to create consumer service", "error", err)
	}

	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	repos := consumerService.Repositories()
	notifyClient := external.NewNotifyClient(cfg.Notify)

	reminderJob := jobs.NewSessionReminderJob(repos.Sessions, repos.Bookings, notifyClient)
	reminderJob.Start(context.Background())

	logger.Get().Info("Consumers service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info("Shutting down consumers service...")

	reminderJob.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(ctx); err != nil {
		logger.Get().Error("Error during shutdown", "error", err)
	}

	logger.Get().Info("Consumers service stopped")
}
