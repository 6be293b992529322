package consumers

import (
	"context"
	"log/slog"

	"studiobook/internal/config"
	"studiobook/internal/database"
	"studiobook/internal/external"
	"studiobook/internal/messaging"
	"studiobook/internal/repository"
)

// ConsumerService runs the notification consumers: it subscribes to the
// booking engine's events and forwards member-facing notifications to the
// gateway. Losing a message loses a notification, never booking state.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)
	notifyClient := external.NewNotifyClient(cfg.Notify)
	handlers := NewHandlers(repos, notifyClient)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
	}, nil
}

func (cs *ConsumerService) Repositories() *repository.Repositories {
	return cs.repos
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	if _, err := cs.nats.SubscribeQueue("booking.confirmed", "consumers", cs.handlers.HandleBookingConfirmed); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue("booking.waitlisted", "consumers", cs.handlers.HandleBookingWaitlisted); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue("booking.cancelled", "consumers", cs.handlers.HandleBookingCancelled); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue("waitlist.promoted", "consumers", cs.handlers.HandleWaitlistPromoted); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue("session.cancelled", "consumers", cs.handlers.HandleSessionCancelled); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue("dropin.recorded", "consumers", cs.handlers.HandleDropInRecorded); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue("dropin.removed", "consumers", cs.handlers.HandleDropInRemoved); err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
