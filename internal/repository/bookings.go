package repository

import (
	"context"
	"database/sql"
	"fmt"

	"studiobook/internal/database"
	apperrors "studiobook/internal/errors"
	"studiobook/internal/models"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Reserve performs the book/rebook transition as a single transaction:
// lock session, lock member, re-check the existing record, count confirmed
// seats under the lock, debit on a confirmed target, then insert or reuse
// the booking row. A full session routes to WAITLIST without error; the
// waitlist never consumes a credit.
//
// With rebook=true a cancelled record must already exist; with rebook=false
// a cancelled record is reused as well, so the (session, member) pair never
// grows a second row.
func (r *BookingRepository) Reserve(ctx context.Context, sessionID, memberID int64, rebook bool) (*models.Booking, error) {
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

	existing, err := lockBooking(ctx, tx, sessionID, memberID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Active() {
		return nil, apperrors.ErrDuplicateBooking
	}
	if rebook && existing == nil {
		return nil, apperrors.ErrBookingNotFound
	}

	confirmed, err := confirmedCountTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	status := models.BookingConfirmed
	if confirmed >= session.Capacity {
		status = models.BookingWaitlist
	}

	creditDeducted := false
	if status == models.BookingConfirmed && !member.Unlimited {
		if err := debitCredits(ctx, tx, memberID); err != nil {
			return nil, err
		}
		creditDeducted = true
	}

	booking := &models.Booking{
		SessionID:      sessionID,
		MemberID:       memberID,
		Status:         status,
		CreditDeducted: creditDeducted,
	}

	if existing == nil {
		insert := `
			INSERT INTO bookings (session_id, member_id, status, credit_deducted)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`
		err = tx.QueryRowContext(ctx, insert, sessionID, memberID, status, creditDeducted).
			Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	} else {
		update := `
			UPDATE bookings SET status = $1, credit_deducted = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING created_at, updated_at`
		booking.ID = existing.ID
		err = tx.QueryRowContext(ctx, update, status, creditDeducted, existing.ID).
			Scan(&booking.CreatedAt, &booking.UpdatedAt)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return booking, nil
}

// Cancel performs the cancel/leaveWaitlist transition and, when a confirmed
// seat is freed, promotes the oldest waitlisted booking inside the same
// transaction. Exactly one promotion happens per freed seat.
//
// forcePromoDebit selects the promotion debit policy: true debits the
// promoted finite member unconditionally (balance may go negative), false
// leaves the booking waitlisted when the balance is too low.
func (r *BookingRepository) Cancel(ctx context.Context, sessionID, memberID int64, waitlistOnly, forcePromoDebit bool) (*models.CancelOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	session, err := lockSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}

	booking, err := lockBooking(ctx, tx, sessionID, memberID)
	if err != nil {
		return nil, err
	}
	if booking == nil || !booking.Active() {
		return nil, apperrors.ErrBookingNotFound
	}
	if waitlistOnly && booking.Status != models.BookingWaitlist {
		return nil, fmt.Errorf("booking is not waitlisted: %w", apperrors.ErrInvalidAction)
	}

	wasConfirmed := booking.Status == models.BookingConfirmed

	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = $1, credit_deducted = FALSE, updated_at = NOW() WHERE id = $2`,
		models.BookingCancelled, booking.ID)
	if err != nil {
		return nil, err
	}

	// Refund exactly once: the flag records whether this row holds a debit.
	refunded := booking.CreditDeducted
	if refunded {
		if err := refundCredits(ctx, tx, memberID); err != nil {
			return nil, err
		}
	}

	booking.Status = models.BookingCancelled
	booking.CreditDeducted = false

	var promoted *models.Booking
	if wasConfirmed {
		promoted, err = promoteOldest(ctx, tx, session, forcePromoDebit)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &models.CancelOutcome{
		Cancelled: booking,
		Promoted:  promoted,
		Refunded:  refunded,
	}, nil
}

// promoteOldest moves the longest-waiting waitlisted booking into the seat
// freed by a cancellation. Runs with the session row already locked. A
// cancelled session never promotes: the seat stays vacant and nobody is
// debited for a class that will not run.
func promoteOldest(ctx context.Context, tx *sql.Tx, session *models.ClassSession, forceDebit bool) (*models.Booking, error) {
	if session.Cancelled {
		return nil, nil
	}

	confirmed, err := confirmedCountTx(ctx, tx, session.ID)
	if err != nil {
		return nil, err
	}
	if confirmed >= session.Capacity {
		return nil, nil
	}

	candidate := &models.Booking{SessionID: session.ID}
	query := `
		SELECT id, member_id, created_at
		FROM bookings
		WHERE session_id = $1 AND status = $2
		ORDER BY created_at ASC, id ASC
		LIMIT 1
		FOR UPDATE`

	err = tx.QueryRowContext(ctx, query, session.ID, models.BookingWaitlist).
		Scan(&candidate.ID, &candidate.MemberID, &candidate.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	member, err := lockMember(ctx, tx, candidate.MemberID)
	if err != nil {
		return nil, err
	}

	creditDeducted := false
	if !member.Unlimited {
		if forceDebit {
			if err := forceDebitCredits(ctx, tx, candidate.MemberID); err != nil {
				return nil, err
			}
		} else {
			if err := debitCredits(ctx, tx, candidate.MemberID); err != nil {
				if err == apperrors.ErrInsufficientCredits {
					// Skip policy: the seat stays open, the booking stays waitlisted.
					return nil, nil
				}
				return nil, err
			}
		}
		creditDeducted = true
	}

	update := `
		UPDATE bookings SET status = $1, credit_deducted = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at`
	if err := tx.QueryRowContext(ctx, update, models.BookingConfirmed, creditDeducted, candidate.ID).
		Scan(&candidate.UpdatedAt); err != nil {
		return nil, err
	}

	candidate.Status = models.BookingConfirmed
	candidate.CreditDeducted = creditDeducted
	return candidate, nil
}

func (r *BookingRepository) GetBySessionAndMember(ctx context.Context, sessionID, memberID int64) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `
		SELECT id, session_id, member_id, status, credit_deducted, created_at, updated_at
		FROM bookings
		WHERE session_id = $1 AND member_id = $2`

	err := r.db.QueryRowContext(ctx, query, sessionID, memberID).Scan(
		&booking.ID,
		&booking.SessionID,
		&booking.MemberID,
		&booking.Status,
		&booking.CreditDeducted,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return booking, err
}

func (r *BookingRepository) ListByMember(ctx context.Context, memberID int64) ([]models.Booking, error) {
	query := `
		SELECT id, session_id, member_id, status, credit_deducted, created_at, updated_at
		FROM bookings
		WHERE member_id = $1
		ORDER BY created_at DESC`

	return r.queryBookings(ctx, query, memberID)
}

func (r *BookingRepository) ListBySession(ctx context.Context, sessionID int64, status string) ([]models.Booking, error) {
	query := `
		SELECT id, session_id, member_id, status, credit_deducted, created_at, updated_at
		FROM bookings
		WHERE session_id = $1`
	args := []interface{}{sessionID}

	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}

	query += " ORDER BY created_at ASC, id ASC"

	return r.queryBookings(ctx, query, args...)
}

// ConfirmedCount recomputes the confirmed seat count on every call. It is
// deliberately uncached; inside transactions the locked variant is used.
func (r *BookingRepository) ConfirmedCount(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE session_id = $1 AND status = $2`,
		sessionID, models.BookingConfirmed).Scan(&count)
	return count, err
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...interface{}) ([]models.Booking, error) {
	var bookings []models.Booking

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.SessionID,
			&booking.MemberID,
			&booking.Status,
			&booking.CreditDeducted,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func confirmedCountTx(ctx context.Context, tx *sql.Tx, sessionID int64) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE session_id = $1 AND status = $2`,
		sessionID, models.BookingConfirmed).Scan(&count)
	return count, err
}

func lockBooking(ctx context.Context, tx *sql.Tx, sessionID, memberID int64) (*models.Booking, error) {
	booking := &models.Booking{SessionID: sessionID, MemberID: memberID}
	query := `
		SELECT id, status, credit_deducted, created_at, updated_at
		FROM bookings
		WHERE session_id = $1 AND member_id = $2
		FOR UPDATE`

	err := tx.QueryRowContext(ctx, query, sessionID, memberID).Scan(
		&booking.ID,
		&booking.Status,
		&booking.CreditDeducted,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return booking, nil
}
