package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studiobook/internal/database"
	apperrors "studiobook/internal/errors"
	"studiobook/internal/models"
)

type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *models.ClassSession) error {
	query := `
		INSERT INTO class_sessions (studio_id, title, starts_at, capacity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		session.StudioID,
		session.Title,
		session.StartsAt,
		session.Capacity,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.ClassSession, error) {
	session := &models.ClassSession{}
	query := `
		SELECT id, studio_id, title, starts_at, capacity, cancelled, created_at, updated_at
		FROM class_sessions
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.StudioID,
		&session.Title,
		&session.StartsAt,
		&session.Capacity,
		&session.Cancelled,
		&session.CreatedAt,
		&session.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return session, err
}

func (r *SessionRepository) List(ctx context.Context, date string, page, pageSize int) ([]models.ClassSession, error) {
	var sessions []models.ClassSession
	var args []interface{}
	argIndex := 1

	query := `
		SELECT id, studio_id, title, starts_at, capacity, cancelled, created_at, updated_at
		FROM class_sessions`

	if date != "" {
		query += fmt.Sprintf(" WHERE DATE(starts_at) = $%d", argIndex)
		args = append(args, date)
		argIndex++
	}

	query += " ORDER BY starts_at, id"

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var session models.ClassSession
		err := rows.Scan(
			&session.ID,
			&session.StudioID,
			&session.Title,
			&session.StartsAt,
			&session.Capacity,
			&session.Cancelled,
			&session.CreatedAt,
			&session.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// ListStartingBetween returns non-cancelled sessions starting inside the
// window, used by the reminder job.
func (r *SessionRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.ClassSession, error) {
	query := `
		SELECT id, studio_id, title, starts_at, capacity, cancelled, created_at, updated_at
		FROM class_sessions
		WHERE cancelled = FALSE AND starts_at >= $1 AND starts_at < $2
		ORDER BY starts_at, id`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ClassSession
	for rows.Next() {
		var session models.ClassSession
		err := rows.Scan(
			&session.ID,
			&session.StudioID,
			&session.Title,
			&session.StartsAt,
			&session.Capacity,
			&session.Cancelled,
			&session.CreatedAt,
			&session.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// Cancel flags a session as cancelled. Sessions are immutable otherwise.
func (r *SessionRepository) Cancel(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE class_sessions SET cancelled = TRUE, updated_at = NOW() WHERE id = $1`,
		id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrSessionNotFound
	}

	return nil
}

// lockSession reads and row-locks a session inside a transaction. Every
// state transition locks the session row first, which serializes competing
// bookings, cancellations and promotions on the same session.
func lockSession(ctx context.Context, tx *sql.Tx, sessionID int64) (*models.ClassSession, error) {
	session := &models.ClassSession{ID: sessionID}
	query := `SELECT studio_id, capacity, cancelled FROM class_sessions WHERE id = $1 FOR UPDATE`

	err := tx.QueryRowContext(ctx, query, sessionID).Scan(
		&session.StudioID,
		&session.Capacity,
		&session.Cancelled,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return session, nil
}
