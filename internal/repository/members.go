package repository

import (
	"context"
	"database/sql"
	"fmt"

	"studiobook/internal/database"
	apperrors "studiobook/internal/errors"
	"studiobook/internal/models"
)

type MemberRepository struct {
	db *database.DB
}

func NewMemberRepository(db *database.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	query := `
		INSERT INTO members (studio_id, email, password_hash, first_name, surname, role, credits, unlimited)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, is_active, joined_at`

	err := r.db.QueryRowContext(ctx, query,
		member.StudioID,
		member.Email,
		member.PasswordHash,
		member.FirstName,
		member.Surname,
		member.Role,
		member.Credits,
		member.Unlimited,
	).Scan(&member.ID, &member.IsActive, &member.JoinedAt)

	return err
}

func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	member := &models.Member{}
	query := `
		SELECT id, studio_id, email, password_hash, first_name, surname, role,
		       credits, unlimited, is_active, joined_at
		FROM members
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&member.ID,
		&member.StudioID,
		&member.Email,
		&member.PasswordHash,
		&member.FirstName,
		&member.Surname,
		&member.Role,
		&member.Credits,
		&member.Unlimited,
		&member.IsActive,
		&member.JoinedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return member, err
}

func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	member := &models.Member{}
	query := `
		SELECT id, studio_id, email, password_hash, first_name, surname, role,
		       credits, unlimited, is_active, joined_at
		FROM members
		WHERE email = $1`

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&member.ID,
		&member.StudioID,
		&member.Email,
		&member.PasswordHash,
		&member.FirstName,
		&member.Surname,
		&member.Role,
		&member.Credits,
		&member.Unlimited,
		&member.IsActive,
		&member.JoinedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return member, err
}

// SetPlan applies an admin correction or plan change. This is the only
// write path that sets a balance directly; every other mutation goes
// through the conditional debit/credit statements.
func (r *MemberRepository) SetPlan(ctx context.Context, id int64, credits *int, unlimited *bool) error {
	if credits == nil && unlimited == nil {
		return nil
	}

	query := `UPDATE members SET `
	var args []interface{}
	argIndex := 1

	if credits != nil {
		query += fmt.Sprintf("credits = $%d", argIndex)
		args = append(args, *credits)
		argIndex++
	}
	if unlimited != nil {
		if argIndex > 1 {
			query += ", "
		}
		query += fmt.Sprintf("unlimited = $%d", argIndex)
		args = append(args, *unlimited)
		argIndex++
	}

	query += fmt.Sprintf(" WHERE id = $%d", argIndex)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrMemberNotFound
	}

	return nil
}

// lockMember reads and row-locks a member inside a transaction. Lock order
// across the package is always session first, then member.
func lockMember(ctx context.Context, tx *sql.Tx, memberID int64) (*models.Member, error) {
	member := &models.Member{ID: memberID}
	query := `SELECT studio_id, credits, unlimited, is_active FROM members WHERE id = $1 FOR UPDATE`

	err := tx.QueryRowContext(ctx, query, memberID).Scan(
		&member.StudioID,
		&member.Credits,
		&member.Unlimited,
		&member.IsActive,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}

	return member, nil
}

// debitCredits decrements a finite member's balance, failing when the
// balance is too low. Unlimited members must not be passed here; the
// caller branches on the flag after locking the member row.
func debitCredits(ctx context.Context, tx *sql.Tx, memberID int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE members SET credits = credits - 1 WHERE id = $1 AND unlimited = FALSE AND credits >= 1`,
		memberID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrInsufficientCredits
	}

	return nil
}

// forceDebitCredits decrements a finite member's balance unconditionally.
// Used by promotion under the "always" policy; the balance may go negative.
func forceDebitCredits(ctx context.Context, tx *sql.Tx, memberID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE members SET credits = credits - 1 WHERE id = $1 AND unlimited = FALSE`,
		memberID)
	return err
}

// refundCredits increments a finite member's balance. No upper bound is
// enforced on refunded credits.
func refundCredits(ctx context.Context, tx *sql.Tx, memberID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE members SET credits = credits + 1 WHERE id = $1 AND unlimited = FALSE`,
		memberID)
	return err
}
