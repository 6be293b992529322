package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "studiobook/internal/errors"
	"studiobook/internal/logger"
	"studiobook/internal/metrics"
	"studiobook/internal/models"
)

// BookingService drives the booking state machine: book, rebook, cancel and
// leaveWaitlist, with waitlist promotion as a cancellation side effect. The
// atomic transitions live in the store; this layer validates the
// (member, session) pair, applies policy, publishes events and counts.
type BookingService struct {
	bookingStore BookingStore
	sessionStore SessionStore
	memberStore  MemberStore
	publisher    Publisher
	cfg          BookingConfig
}

func NewBookingService(bookingStore BookingStore, sessionStore SessionStore, memberStore MemberStore, publisher Publisher, cfg BookingConfig) *BookingService {
	if cfg.PromotionDebitPolicy == "" {
		cfg.PromotionDebitPolicy = PromotionDebitAlways
	}
	return &BookingService{
		bookingStore: bookingStore,
		sessionStore: sessionStore,
		memberStore:  memberStore,
		publisher:    publisher,
		cfg:          cfg,
	}
}

// Book reserves a seat for a first-time booking. A full session routes to
// the waitlist without error; only a confirmed seat consumes a credit.
func (s *BookingService) Book(ctx context.Context, req *models.BookRequest) (*models.BookResponse, error) {
	return s.reserve(ctx, req, false)
}

// Rebook reactivates a previously cancelled booking for the same
// (member, session) pair, with the same capacity and credit rules as Book.
func (s *BookingService) Rebook(ctx context.Context, req *models.BookRequest) (*models.BookResponse, error) {
	return s.reserve(ctx, req, true)
}

func (s *BookingService) reserve(ctx context.Context, req *models.BookRequest, rebook bool) (*models.BookResponse, error) {
	if err := s.checkPair(ctx, req.SessionID, req.MemberID); err != nil {
		return nil, err
	}

	booking, err := s.bookingStore.Reserve(ctx, req.SessionID, req.MemberID, rebook)
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientCredits) {
			metrics.InsufficientCreditsTotal.Inc()
		}
		return nil, fmt.Errorf("failed to reserve booking: %w", err)
	}

	metrics.BookingsTotal.WithLabelValues(booking.Status).Inc()
	if booking.CreditDeducted {
		metrics.CreditDebitsTotal.Inc()
	}

	subject := models.EventBookingWaitlisted
	if booking.Status == models.BookingConfirmed {
		subject = models.EventBookingConfirmed
	}
	s.publish(ctx, subject, models.BookingEvent{
		BookingID: booking.ID,
		SessionID: booking.SessionID,
		MemberID:  booking.MemberID,
		Status:    booking.Status,
		Timestamp: time.Now(),
	})

	return &models.BookResponse{ID: booking.ID, Status: booking.Status}, nil
}

// Cancel releases a booking. Cancelling a confirmed booking refunds the
// held credit and promotes the oldest waitlisted member into the freed
// seat, all within one transaction.
func (s *BookingService) Cancel(ctx context.Context, req *models.BookRequest) (*models.CancelResponse, error) {
	return s.release(ctx, req, false)
}

// LeaveWaitlist cancels a waitlisted booking. No credit moves and no
// promotion runs: a waitlist departure never frees a confirmed seat.
func (s *BookingService) LeaveWaitlist(ctx context.Context, req *models.BookRequest) (*models.CancelResponse, error) {
	return s.release(ctx, req, true)
}

func (s *BookingService) release(ctx context.Context, req *models.BookRequest, waitlistOnly bool) (*models.CancelResponse, error) {
	forceDebit := s.cfg.PromotionDebitPolicy != PromotionDebitSkip

	outcome, err := s.bookingStore.Cancel(ctx, req.SessionID, req.MemberID, waitlistOnly, forceDebit)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	metrics.BookingsTotal.WithLabelValues(models.BookingCancelled).Inc()
	if outcome.Refunded {
		metrics.CreditRefundsTotal.Inc()
	}

	s.publish(ctx, models.EventBookingCancelled, models.BookingEvent{
		BookingID: outcome.Cancelled.ID,
		SessionID: outcome.Cancelled.SessionID,
		MemberID:  outcome.Cancelled.MemberID,
		Status:    outcome.Cancelled.Status,
		Timestamp: time.Now(),
	})

	resp := &models.CancelResponse{
		ID:     outcome.Cancelled.ID,
		Status: outcome.Cancelled.Status,
	}

	if outcome.Promoted != nil {
		metrics.WaitlistPromotionsTotal.Inc()
		if outcome.Promoted.CreditDeducted {
			metrics.CreditDebitsTotal.Inc()
		}

		s.publish(ctx, models.EventWaitlistPromoted, models.WaitlistPromotedEvent{
			BookingID: outcome.Promoted.ID,
			SessionID: outcome.Promoted.SessionID,
			MemberID:  outcome.Promoted.MemberID,
			Timestamp: time.Now(),
		})

		promotedID := outcome.Promoted.MemberID
		resp.PromotedMemberID = &promotedID
	}

	return resp, nil
}

// List returns a member's bookings, newest first.
func (s *BookingService) List(ctx context.Context, memberID int64) ([]models.ListBookingsResponseItem, error) {
	bookings, err := s.bookingStore.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	result := make([]models.ListBookingsResponseItem, len(bookings))
	for i, booking := range bookings {
		result[i] = models.ListBookingsResponseItem{
			ID:             booking.ID,
			SessionID:      booking.SessionID,
			Status:         booking.Status,
			CreditDeducted: booking.CreditDeducted,
			CreatedAt:      booking.CreatedAt,
		}
	}

	return result, nil
}

// checkPair validates existence and tenancy before entering the atomic
// transition. The transaction re-checks existence under its own locks; the
// studio membership check only needs the immutable studio ids.
func (s *BookingService) checkPair(ctx context.Context, sessionID, memberID int64) error {
	session, err := s.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return apperrors.ErrSessionNotFound
	}

	member, err := s.memberStore.GetByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return apperrors.ErrMemberNotFound
	}

	if member.StudioID != session.StudioID {
		return apperrors.ErrForbidden
	}

	return nil
}

func (s *BookingService) publish(ctx context.Context, subject string, event interface{}) {
	if err := s.publisher.Publish(subject, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}
