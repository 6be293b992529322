package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"studiobook/internal/external"
	"studiobook/internal/models"
	"studiobook/internal/repository"

	"github.com/nats-io/stan.go"
)

type Handlers struct {
	repos        *repository.Repositories
	notifyClient *external.NotifyClient
}

func NewHandlers(repos *repository.Repositories, notifyClient *external.NotifyClient) *Handlers {
	return &Handlers{
		repos:        repos,
		notifyClient: notifyClient,
	}
}

func (h *Handlers) HandleBookingConfirmed(m *stan.Msg) {
	var event models.BookingEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking confirmed event", "error", err)
		return
	}

	h.notify(event.MemberID, external.KindBookingConfirmed, map[string]interface{}{
		"booking_id": event.BookingID,
		"session_id": event.SessionID,
	})

	m.Ack()
}

func (h *Handlers) HandleBookingWaitlisted(m *stan.Msg) {
	var event models.BookingEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking waitlisted event", "error", err)
		return
	}

	h.notify(event.MemberID, external.KindWaitlistJoined, map[string]interface{}{
		"booking_id": event.BookingID,
		"session_id": event.SessionID,
	})

	m.Ack()
}

func (h *Handlers) HandleBookingCancelled(m *stan.Msg) {
	var event models.BookingEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking cancelled event", "error", err)
		return
	}

	h.notify(event.MemberID, external.KindBookingCancelled, map[string]interface{}{
		"booking_id": event.BookingID,
		"session_id": event.SessionID,
	})

	m.Ack()
}

func (h *Handlers) HandleWaitlistPromoted(m *stan.Msg) {
	var event models.WaitlistPromotedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal waitlist promoted event", "error", err)
		return
	}

	h.notify(event.MemberID, external.KindWaitlistPromoted, map[string]interface{}{
		"booking_id": event.BookingID,
		"session_id": event.SessionID,
	})

	m.Ack()
}

// HandleSessionCancelled fans out to every member still holding an active
// booking on the cancelled session.
func (h *Handlers) HandleSessionCancelled(m *stan.Msg) {
	var event models.SessionCancelledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal session cancelled event", "error", err)
		return
	}

	ctx := context.Background()
	bookings, err := h.repos.Bookings.ListBySession(ctx, event.SessionID, "")
	if err != nil {
		slog.Error("Failed to list bookings for cancelled session",
			"session_id", event.SessionID, "error", err)
		return
	}

	for _, booking := range bookings {
		if !booking.Active() {
			continue
		}
		h.notify(booking.MemberID, external.KindSessionCancelled, map[string]interface{}{
			"session_id": event.SessionID,
		})
	}

	m.Ack()
}

func (h *Handlers) HandleDropInRecorded(m *stan.Msg) {
	var event models.DropInEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal drop-in recorded event", "error", err)
		return
	}

	slog.Info("Drop-in recorded",
		"dropin_id", event.DropInID,
		"session_id", event.SessionID,
		"member_id", event.MemberID,
		"credit_deducted", event.CreditDeducted)

	m.Ack()
}

// HandleDropInRemoved only logs. Drop-ins are recorded by staff at the desk,
// so the member is not notified about register corrections.
func (h *Handlers) HandleDropInRemoved(m *stan.Msg) {
	var event models.DropInEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal drop-in removed event", "error", err)
		return
	}

	slog.Info("Drop-in removed",
		"dropin_id", event.DropInID,
		"session_id", event.SessionID,
		"member_id", event.MemberID,
		"credit_deducted", event.CreditDeducted)

	m.Ack()
}

func (h *Handlers) notify(memberID int64, kind string, context map[string]interface{}) {
	if err := h.notifyClient.Send(memberID, kind, context); err != nil {
		slog.Error("Failed to send notification",
			"member_id", memberID, "kind", kind, "error", err)
	}
}
