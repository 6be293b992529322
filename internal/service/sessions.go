package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "studiobook/internal/errors"
	"studiobook/internal/logger"
	"studiobook/internal/models"
)

// SessionService manages the class schedule. Writes go to Postgres first;
// the search index is updated best-effort afterwards and can always be
// rebuilt from the database.
type SessionService struct {
	sessionStore SessionStore
	bookingStore BookingStore
	indexer      SessionIndexer
	publisher    Publisher
}

func NewSessionService(sessionStore SessionStore, bookingStore BookingStore, indexer SessionIndexer, publisher Publisher) *SessionService {
	return &SessionService{
		sessionStore: sessionStore,
		bookingStore: bookingStore,
		indexer:      indexer,
		publisher:    publisher,
	}
}

// Create schedules a new session for a studio.
func (s *SessionService) Create(ctx context.Context, studioID int64, req *models.CreateSessionRequest) (*models.CreateSessionResponse, error) {
	session := &models.ClassSession{
		StudioID: studioID,
		Title:    req.Title,
		StartsAt: req.StartsAt,
		Capacity: req.Capacity,
	}

	if err := s.sessionStore.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.index(ctx, session)

	return &models.CreateSessionResponse{ID: session.ID}, nil
}

// Get returns one session.
func (s *SessionService) Get(ctx context.Context, id int64) (*models.SessionResponseItem, error) {
	session, err := s.sessionStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, apperrors.ErrSessionNotFound
	}

	return &models.SessionResponseItem{
		ID:        session.ID,
		Title:     session.Title,
		StartsAt:  session.StartsAt,
		Capacity:  session.Capacity,
		Cancelled: session.Cancelled,
	}, nil
}

// List returns the schedule, optionally filtered to one date (YYYY-MM-DD).
func (s *SessionService) List(ctx context.Context, date string, page, pageSize int) ([]models.SessionResponseItem, error) {
	sessions, err := s.sessionStore.List(ctx, date, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	result := make([]models.SessionResponseItem, len(sessions))
	for i, session := range sessions {
		result[i] = models.SessionResponseItem{
			ID:        session.ID,
			Title:     session.Title,
			StartsAt:  session.StartsAt,
			Capacity:  session.Capacity,
			Cancelled: session.Cancelled,
		}
	}

	return result, nil
}

// Cancel marks a session cancelled. Existing bookings are left in place;
// staff handles bulk refunds through the booking cancel flow.
func (s *SessionService) Cancel(ctx context.Context, id int64) error {
	if err := s.sessionStore.Cancel(ctx, id); err != nil {
		return fmt.Errorf("failed to cancel session: %w", err)
	}

	session, err := s.sessionStore.GetByID(ctx, id)
	if err == nil && session != nil {
		s.index(ctx, session)
	}

	if err := s.publisher.Publish(models.EventSessionCancelled, models.SessionCancelledEvent{
		SessionID: id,
		Timestamp: time.Now(),
	}); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", models.EventSessionCancelled)
	}

	return nil
}

// ConfirmedCount reports how many confirmed bookings a session holds,
// always read fresh from the database.
func (s *SessionService) ConfirmedCount(ctx context.Context, sessionID int64) (*models.ConfirmedCountResponse, error) {
	session, err := s.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, apperrors.ErrSessionNotFound
	}

	count, err := s.bookingStore.ConfirmedCount(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count confirmed bookings: %w", err)
	}

	return &models.ConfirmedCountResponse{
		SessionID:      session.ID,
		Capacity:       session.Capacity,
		ConfirmedCount: count,
	}, nil
}

// Search queries the schedule read model by title and date.
func (s *SessionService) Search(ctx context.Context, query, date string, page, pageSize int) ([]models.SessionResponseItem, error) {
	if s.indexer == nil {
		return nil, errors.New("search is not available")
	}

	items, err := s.indexer.Search(ctx, query, date, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search sessions: %w", err)
	}

	return items, nil
}

func (s *SessionService) index(ctx context.Context, session *models.ClassSession) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexSession(ctx, session); err != nil {
		logger.WithContext(ctx).Error("Failed to index session",
			"error", err,
			"session_id", session.ID)
	}
}
