package repository

import (
	"context"
	"database/sql"
	"fmt"

	"studiobook/internal/database"
	apperrors "studiobook/internal/errors"
	"studiobook/internal/models"
)

type AttendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Add records walk-in attendance in one transaction. A member with a
// confirmed booking or an existing drop-in for the session is a conflict.
// The debit is skipped for unlimited members and for finite members with an
// empty balance: a walk-in with zero credits still gets in, recorded with
// credit_deducted = FALSE. This differs on purpose from booking, which
// rejects an empty balance outright.
func (r *AttendanceRepository) Add(ctx context.Context, sessionID, memberID int64) (*models.DropIn, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	session, err := lockSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Cancelled {
		return nil, fmt.Errorf("session is cancelled: %w", apperrors.ErrInvalidAction)
	}

	member, err := lockMember(ctx, tx, memberID)
	if err != nil {
		return nil, err
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM bookings WHERE session_id = $1 AND member_id = $2 AND status = $3`,
		sessionID, memberID, models.BookingConfirmed).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		return nil, apperrors.ErrDuplicateDropIn
	}

	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM drop_ins WHERE session_id = $1 AND member_id = $2 FOR UPDATE`,
		sessionID, memberID).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		return nil, apperrors.ErrDuplicateDropIn
	}

	shouldDeduct := !member.Unlimited && member.Credits >= 1
	if shouldDeduct {
		if err := debitCredits(ctx, tx, memberID); err != nil {
			return nil, err
		}
	}

	dropIn := &models.DropIn{
		SessionID:      sessionID,
		MemberID:       memberID,
		CreditDeducted: shouldDeduct,
	}

	insert := `
		INSERT INTO drop_ins (session_id, member_id, credit_deducted)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	if err := tx.QueryRowContext(ctx, insert, sessionID, memberID, shouldDeduct).
		Scan(&dropIn.ID, &dropIn.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return dropIn, nil
}

// Remove deletes a drop-in record and reverses its debit, if it holds one,
// in the same transaction. Deleting the row inside the refund transaction
// makes the refund happen at most once: a second Remove finds nothing.
func (r *AttendanceRepository) Remove(ctx context.Context, id string) (*models.DropIn, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	dropIn := &models.DropIn{ID: id}
	query := `
		SELECT session_id, member_id, credit_deducted, created_at
		FROM drop_ins
		WHERE id = $1
		FOR UPDATE`

	err = tx.QueryRowContext(ctx, query, id).Scan(
		&dropIn.SessionID,
		&dropIn.MemberID,
		&dropIn.CreditDeducted,
		&dropIn.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrDropInNotFound
	}
	if err != nil {
		return nil, err
	}

	if dropIn.CreditDeducted {
		if err := refundCredits(ctx, tx, dropIn.MemberID); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM drop_ins WHERE id = $1`, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return dropIn, nil
}

func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.DropIn, error) {
	var dropIns []models.DropIn
	query := `
		SELECT id, session_id, member_id, credit_deducted, created_at
		FROM drop_ins
		WHERE session_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var dropIn models.DropIn
		err := rows.Scan(
			&dropIn.ID,
			&dropIn.SessionID,
			&dropIn.MemberID,
			&dropIn.CreditDeducted,
			&dropIn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		dropIns = append(dropIns, dropIn)
	}

	return dropIns, rows.Err()
}
