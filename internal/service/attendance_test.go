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

type attendanceFixture struct {
	store     *servicetest.Store
	publisher *servicetest.Publisher
	svc       *service.AttendanceService
}

func newAttendanceFixture() *attendanceFixture {
	store := servicetest.NewStore()
	publisher := &servicetest.Publisher{}

	svc := service.NewAttendanceService(
		store.Attendance(),
		store.Sessions(),
		store.Members(),
		publisher,
	)

	return &attendanceFixture{store: store, publisher: publisher, svc: svc}
}

func (f *attendanceFixture) addMember(credits int, unlimited bool) int64 {
	return f.store.AddMember(&models.Member{
		StudioID:  1,
		Credits:   credits,
		Unlimited: unlimited,
	})
}

func (f *attendanceFixture) addSession() int64 {
	return f.store.AddSession(&models.ClassSession{
		StudioID: 1,
		Title:    "Open Gym",
		Capacity: 10,
	})
}

func TestDropInDebitsCredit(t *testing.T) {
	f := newAttendanceFixture()
	memberID := f.addMember(3, false)
	sessionID := f.addSession()

	resp, err := f.svc.Add(context.Background(), &models.AddDropInRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	assert.True(t, resp.CreditDeducted)
	assert.Equal(t, 2, f.store.Credits(memberID))
	assert.Equal(t, []string{models.EventDropInRecorded}, f.publisher.Subjects())
}

func TestDropInZeroCreditsIsFreePass(t *testing.T) {
	f := newAttendanceFixture()
	memberID := f.addMember(0, false)
	sessionID := f.addSession()

	resp, err := f.svc.Add(context.Background(), &models.AddDropInRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	// Unlike booking, an empty balance admits the walk-in without a debit
	assert.False(t, resp.CreditDeducted)
	assert.Equal(t, 0, f.store.Credits(memberID))
}

func TestDropInUnlimitedNoDebit(t *testing.T) {
	f := newAttendanceFixture()
	memberID := f.addMember(0, true)
	sessionID := f.addSession()

	resp, err := f.svc.Add(context.Background(), &models.AddDropInRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)
	assert.False(t, resp.CreditDeducted)
}

func TestDropInDuplicateRejected(t *testing.T) {
	f := newAttendanceFixture()
	memberID := f.addMember(3, false)
	sessionID := f.addSession()

	ctx := context.Background()
	_, err := f.svc.Add(ctx, &models.AddDropInRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	_, err = f.svc.Add(ctx, &models.AddDropInRequest{SessionID: sessionID, MemberID: memberID})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateDropIn)
	assert.Equal(t, 2, f.store.Credits(memberID))
}

func TestDropInConflictsWithConfirmedBooking(t *testing.T) {
	f := newAttendanceFixture()
	memberID := f.addMember(3, false)
	sessionID := f.addSession()

	ctx := context.Background()
	_, err := f.store.Bookings().Reserve(ctx, sessionID, memberID, false)
	require.NoError(t, err)

	_, err = f.svc.Add(ctx, &models.AddDropInRequest{SessionID: sessionID, MemberID: memberID})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateDropIn)
}

func TestDropInCancelledSessionRejected(t *testing.T) {
	f := newAttendanceFixture()
	memberID := f.addMember(3, false)
	sessionID := f.addSession()

	ctx := context.Background()
	require.NoError(t, f.store.Sessions().Cancel(ctx, sessionID))

	_, err := f.svc.Add(ctx, &models.AddDropInRequest{SessionID: sessionID, MemberID: memberID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAction)
}

func TestRemoveRefundsExactlyOnce(t *testing.T) {
	f := newAttendanceFixture()
	memberID := f.addMember(3, false)
	sessionID := f.addSession()

	ctx := context.Background()
	resp, err := f.svc.Add(ctx, &models.AddDropInRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)
	require.Equal(t, 2, f.store.Credits(memberID))

	require.NoError(t, f.svc.Remove(ctx, resp.ID))
	assert.Equal(t, 3, f.store.Credits(memberID))

	err = f.svc.Remove(ctx, resp.ID)
	assert.ErrorIs(t, err, apperrors.ErrDropInNotFound)
	assert.Equal(t, 3, f.store.Credits(memberID))
}

func TestRemoveFreePassNoRefund(t *testing.T) {
	f := newAttendanceFixture()
	memberID := f.addMember(0, false)
	sessionID := f.addSession()

	ctx := context.Background()
	resp, err := f.svc.Add(ctx, &models.AddDropInRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(ctx, resp.ID))
	assert.Equal(t, 0, f.store.Credits(memberID))
}

func TestListBySessionReturnsRegister(t *testing.T) {
	f := newAttendanceFixture()
	first := f.addMember(3, false)
	second := f.addMember(3, false)
	sessionID := f.addSession()

	ctx := context.Background()
	_, err := f.svc.Add(ctx, &models.AddDropInRequest{SessionID: sessionID, MemberID: first})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, &models.AddDropInRequest{SessionID: sessionID, MemberID: second})
	require.NoError(t, err)

	items, err := f.svc.ListBySession(ctx, sessionID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestListBySessionUnknownSession(t *testing.T) {
	f := newAttendanceFixture()

	_, err := f.svc.ListBySession(context.Background(), 42)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}
