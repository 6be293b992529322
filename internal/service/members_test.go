package service_test

import (
	"context"
	"testing"

	apperrors "studiobook/internal/errors"
	"studiobook/internal/models"
	"studiobook/internal/service"
	"studiobook/internal/service/servicetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMemberHashesPassword(t *testing.T) {
	store := servicetest.NewStore()
	svc := service.NewMemberService(store.Members())

	ctx := context.Background()
	resp, err := svc.Create(ctx, &models.CreateMemberRequest{
		StudioID:  1,
		Email:     "alex@example.test",
		Password:  "correct horse",
		FirstName: "Alex",
		Surname:   "Rivera",
		Credits:   10,
	})
	require.NoError(t, err)
	require.NotZero(t, resp.ID)

	stored, err := store.Members().GetByEmail(ctx, "alex@example.test")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "correct horse", stored.PasswordHash)
	assert.Equal(t, service.HashPassword("correct horse"), stored.PasswordHash)
}

func TestGetMemberNotFound(t *testing.T) {
	store := servicetest.NewStore()
	svc := service.NewMemberService(store.Members())

	_, err := svc.Get(context.Background(), 12)
	assert.ErrorIs(t, err, apperrors.ErrMemberNotFound)
}

func TestAdjustPlanSetsCreditsAndUnlimited(t *testing.T) {
	store := servicetest.NewStore()
	svc := service.NewMemberService(store.Members())

	memberID := store.AddMember(&models.Member{StudioID: 1, Credits: 2})

	ctx := context.Background()
	credits := 15
	unlimited := true
	resp, err := svc.AdjustPlan(ctx, memberID, &models.AdjustCreditsRequest{
		Credits:   &credits,
		Unlimited: &unlimited,
	})
	require.NoError(t, err)

	assert.Equal(t, 15, resp.Credits)
	assert.True(t, resp.Unlimited)
}

func TestAdjustPlanRejectsEmptyAndNegative(t *testing.T) {
	store := servicetest.NewStore()
	svc := service.NewMemberService(store.Members())

	memberID := store.AddMember(&models.Member{StudioID: 1, Credits: 2})

	ctx := context.Background()
	_, err := svc.AdjustPlan(ctx, memberID, &models.AdjustCreditsRequest{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAction)

	negative := -1
	_, err = svc.AdjustPlan(ctx, memberID, &models.AdjustCreditsRequest{Credits: &negative})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAction)

	assert.Equal(t, 2, store.Credits(memberID))
}
