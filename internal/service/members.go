package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	apperrors "studiobook/internal/errors"
	"studiobook/internal/models"
)

// MemberService manages members and their credit plans.
type MemberService struct {
	memberStore MemberStore
}

func NewMemberService(memberStore MemberStore) *MemberService {
	return &MemberService{memberStore: memberStore}
}

// Create registers a new member with an initial plan.
func (s *MemberService) Create(ctx context.Context, req *models.CreateMemberRequest) (*models.CreateMemberResponse, error) {
	member := &models.Member{
		StudioID:     req.StudioID,
		Email:        req.Email,
		PasswordHash: HashPassword(req.Password),
		FirstName:    req.FirstName,
		Surname:      req.Surname,
		Role:         models.RoleMember,
		Credits:      req.Credits,
		Unlimited:    req.Unlimited,
	}

	if err := s.memberStore.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	return &models.CreateMemberResponse{ID: member.ID}, nil
}

// Get returns one member with the current credit balance.
func (s *MemberService) Get(ctx context.Context, id int64) (*models.MemberResponse, error) {
	member, err := s.memberStore.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return nil, apperrors.ErrMemberNotFound
	}

	return &models.MemberResponse{
		ID:        member.ID,
		StudioID:  member.StudioID,
		Email:     member.Email,
		FirstName: member.FirstName,
		Surname:   member.Surname,
		Credits:   member.Credits,
		Unlimited: member.Unlimited,
	}, nil
}

// AdjustPlan sets a member's balance or unlimited flag directly. This is
// the staff correction path, not part of the booking ledger.
func (s *MemberService) AdjustPlan(ctx context.Context, id int64, req *models.AdjustCreditsRequest) (*models.MemberResponse, error) {
	if req.Credits == nil && req.Unlimited == nil {
		return nil, fmt.Errorf("%w: nothing to adjust", apperrors.ErrInvalidAction)
	}
	if req.Credits != nil && *req.Credits < 0 {
		return nil, fmt.Errorf("%w: credits must not be negative", apperrors.ErrInvalidAction)
	}

	if err := s.memberStore.SetPlan(ctx, id, req.Credits, req.Unlimited); err != nil {
		return nil, fmt.Errorf("failed to adjust plan: %w", err)
	}

	return s.Get(ctx, id)
}

// HashPassword derives the stored password hash.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
