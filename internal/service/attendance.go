package service

import (
	"context"
	"fmt"
	"time"

	apperrors "studiobook/internal/errors"
	"studiobook/internal/logger"
	"studiobook/internal/metrics"
	"studiobook/internal/models"
)

// AttendanceService records and removes drop-in attendance. Drop-ins are a
// staff-side register: they ignore capacity, and a member without credits is
// admitted on a free pass instead of being turned away.
type AttendanceService struct {
	attendanceStore AttendanceStore
	sessionStore    SessionStore
	memberStore     MemberStore
	publisher       Publisher
}

func NewAttendanceService(attendanceStore AttendanceStore, sessionStore SessionStore, memberStore MemberStore, publisher Publisher) *AttendanceService {
	return &AttendanceService{
		attendanceStore: attendanceStore,
		sessionStore:    sessionStore,
		memberStore:     memberStore,
		publisher:       publisher,
	}
}

// Add records a walk-in. One credit is taken when the member has a finite
// plan with a positive balance; otherwise the drop-in goes through with no
// ledger movement.
func (s *AttendanceService) Add(ctx context.Context, req *models.AddDropInRequest) (*models.AddDropInResponse, error) {
	if err := s.checkPair(ctx, req.SessionID, req.MemberID); err != nil {
		return nil, err
	}

	dropIn, err := s.attendanceStore.Add(ctx, req.SessionID, req.MemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to record drop-in: %w", err)
	}

	metrics.DropInsTotal.WithLabelValues("recorded").Inc()
	if dropIn.CreditDeducted {
		metrics.CreditDebitsTotal.Inc()
	}

	s.publish(ctx, models.EventDropInRecorded, models.DropInEvent{
		DropInID:       dropIn.ID,
		SessionID:      dropIn.SessionID,
		MemberID:       dropIn.MemberID,
		CreditDeducted: dropIn.CreditDeducted,
		Timestamp:      time.Now(),
	})

	return &models.AddDropInResponse{ID: dropIn.ID, CreditDeducted: dropIn.CreditDeducted}, nil
}

// Remove deletes a drop-in record and refunds the credit it took, if it
// took one. Removing the same record twice fails with not found.
func (s *AttendanceService) Remove(ctx context.Context, id string) error {
	dropIn, err := s.attendanceStore.Remove(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to remove drop-in: %w", err)
	}

	metrics.DropInsTotal.WithLabelValues("removed").Inc()
	if dropIn.CreditDeducted {
		metrics.CreditRefundsTotal.Inc()
	}

	s.publish(ctx, models.EventDropInRemoved, models.DropInEvent{
		DropInID:       dropIn.ID,
		SessionID:      dropIn.SessionID,
		MemberID:       dropIn.MemberID,
		CreditDeducted: dropIn.CreditDeducted,
		Timestamp:      time.Now(),
	})

	return nil
}

// ListBySession returns the drop-in register for one session.
func (s *AttendanceService) ListBySession(ctx context.Context, sessionID int64) ([]models.AttendanceResponseItem, error) {
	session, err := s.sessionStore.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, apperrors.ErrSessionNotFound
	}

	dropIns, err := s.attendanceStore.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drop-ins: %w", err)
	}

	result := make([]models.AttendanceResponseItem, len(dropIns))
	for i, d := range dropIns {
		result[i] = models.AttendanceResponseItem{
			ID:             d.ID,
			MemberID:       d.MemberID,
			CreditDeducted: d.CreditDeducted,
			CreatedAt:      d.CreatedAt,
		}
	}

	return result, nil
}

func (s *AttendanceService) checkPair(ctx context.Context, sessionID, memberID int64) error {
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

func (s *AttendanceService) publish(ctx context.Context, subject string, event interface{}) {
	if err := s.publisher.Publish(subject, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}
