package service_test

import (
	"context"
	"sync"
	"testing"

	apperrors "studiobook/internal/errors"
	"studiobook/internal/models"
	"studiobook/internal/service"
	"studiobook/internal/service/servicetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	store     *servicetest.Store
	publisher *servicetest.Publisher
	svc       *service.BookingService
}

func newBookingFixture(policy string) *bookingFixture {
	store := servicetest.NewStore()
	publisher := &servicetest.Publisher{}

	svc := service.NewBookingService(
		store.Bookings(),
		store.Sessions(),
		store.Members(),
		publisher,
		service.BookingConfig{PromotionDebitPolicy: policy},
	)

	return &bookingFixture{store: store, publisher: publisher, svc: svc}
}

func (f *bookingFixture) addMember(credits int, unlimited bool) int64 {
	return f.store.AddMember(&models.Member{
		StudioID:  1,
		Credits:   credits,
		Unlimited: unlimited,
	})
}

func (f *bookingFixture) addSession(capacity int) int64 {
	return f.store.AddSession(&models.ClassSession{
		StudioID: 1,
		Title:    "Morning Flow",
		Capacity: capacity,
	})
}

func TestBookConfirmsAndDebits(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.addMember(3, false)
	sessionID := f.addSession(5)

	resp, err := f.svc.Book(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	assert.Equal(t, models.BookingConfirmed, resp.Status)
	assert.Equal(t, 2, f.store.Credits(memberID))
	assert.Equal(t, []string{models.EventBookingConfirmed}, f.publisher.Subjects())
}

func TestBookFullSessionGoesToWaitlist(t *testing.T) {
	f := newBookingFixture("")
	first := f.addMember(2, false)
	second := f.addMember(2, false)
	sessionID := f.addSession(1)

	_, err := f.svc.Book(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: first})
	require.NoError(t, err)

	resp, err := f.svc.Book(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: second})
	require.NoError(t, err)

	assert.Equal(t, models.BookingWaitlist, resp.Status)
	// Waitlist spots are free
	assert.Equal(t, 2, f.store.Credits(second))
	assert.Equal(t, models.EventBookingWaitlisted, f.publisher.Subjects()[1])
}

func TestBookUnlimitedMemberKeepsBalance(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.addMember(0, true)
	sessionID := f.addSession(5)

	resp, err := f.svc.Book(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	assert.Equal(t, models.BookingConfirmed, resp.Status)
	booking := f.store.Booking(sessionID, memberID)
	assert.False(t, booking.CreditDeducted)
}

func TestBookInsufficientCredits(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.addMember(0, false)
	sessionID := f.addSession(5)

	_, err := f.svc.Book(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	require.Error(t, err)

	assert.ErrorIs(t, err, apperrors.ErrInsufficientCredits)
	assert.Equal(t, 0, f.store.Credits(memberID))
	assert.Nil(t, f.store.Booking(sessionID, memberID))
}

func TestBookDuplicateRejected(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.addMember(5, false)
	sessionID := f.addSession(5)

	_, err := f.svc.Book(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	_, err = f.svc.Book(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateBooking)
	// The failed attempt must not touch the balance
	assert.Equal(t, 4, f.store.Credits(memberID))
}

func TestBookCancelledSessionRejected(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.addMember(5, false)
	sessionID := f.addSession(5)

	require.NoError(t, f.store.Sessions().Cancel(context.Background(), sessionID))

	_, err := f.svc.Book(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAction)
}

func TestBookOtherStudioForbidden(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.store.AddMember(&models.Member{StudioID: 2, Credits: 5})
	sessionID := f.addSession(5)

	_, err := f.svc.Book(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestBookUnknownSessionAndMember(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.addMember(5, false)
	sessionID := f.addSession(5)

	_, err := f.svc.Book(context.Background(), &models.BookRequest{SessionID: 99, MemberID: memberID})
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	_, err = f.svc.Book(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: 99})
	assert.ErrorIs(t, err, apperrors.ErrMemberNotFound)
}

func TestCancelRefundsAndPromotesOldest(t *testing.T) {
	f := newBookingFixture("")
	holder := f.addMember(2, false)
	first := f.addMember(2, false)
	second := f.addMember(2, false)
	sessionID := f.addSession(1)

	ctx := context.Background()
	_, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: holder})
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: first})
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: second})
	require.NoError(t, err)

	resp, err := f.svc.Cancel(ctx, &models.BookRequest{SessionID: sessionID, MemberID: holder})
	require.NoError(t, err)

	assert.Equal(t, models.BookingCancelled, resp.Status)
	require.NotNil(t, resp.PromotedMemberID)
	assert.Equal(t, first, *resp.PromotedMemberID)

	// Refund for the canceller, debit for the promoted member
	assert.Equal(t, 2, f.store.Credits(holder))
	assert.Equal(t, 1, f.store.Credits(first))
	assert.Equal(t, 2, f.store.Credits(second))

	assert.Equal(t, models.BookingConfirmed, f.store.Booking(sessionID, first).Status)
	assert.Equal(t, models.BookingWaitlist, f.store.Booking(sessionID, second).Status)

	assert.Contains(t, f.publisher.Subjects(), models.EventWaitlistPromoted)
}

func TestCancelWaitlistedNoRefundNoPromotion(t *testing.T) {
	f := newBookingFixture("")
	holder := f.addMember(2, false)
	waiter := f.addMember(2, false)
	sessionID := f.addSession(1)

	ctx := context.Background()
	_, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: holder})
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: waiter})
	require.NoError(t, err)

	resp, err := f.svc.Cancel(ctx, &models.BookRequest{SessionID: sessionID, MemberID: waiter})
	require.NoError(t, err)

	assert.Nil(t, resp.PromotedMemberID)
	assert.Equal(t, 2, f.store.Credits(waiter))
	assert.Equal(t, models.BookingConfirmed, f.store.Booking(sessionID, holder).Status)
}

func TestCancelTwiceNotFound(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.addMember(2, false)
	sessionID := f.addSession(1)

	ctx := context.Background()
	_, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	assert.ErrorIs(t, err, apperrors.ErrBookingNotFound)
	// The single refund from the first cancel stands
	assert.Equal(t, 2, f.store.Credits(memberID))
}

func TestLeaveWaitlistNeverPromotes(t *testing.T) {
	f := newBookingFixture("")
	holder := f.addMember(2, false)
	first := f.addMember(2, false)
	second := f.addMember(2, false)
	sessionID := f.addSession(1)

	ctx := context.Background()
	for _, id := range []int64{holder, first, second} {
		_, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: id})
		require.NoError(t, err)
	}

	resp, err := f.svc.LeaveWaitlist(ctx, &models.BookRequest{SessionID: sessionID, MemberID: first})
	require.NoError(t, err)

	assert.Nil(t, resp.PromotedMemberID)
	assert.Equal(t, models.BookingWaitlist, f.store.Booking(sessionID, second).Status)
}

func TestLeaveWaitlistOnConfirmedRejected(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.addMember(2, false)
	sessionID := f.addSession(1)

	ctx := context.Background()
	_, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	_, err = f.svc.LeaveWaitlist(ctx, &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidAction)
	assert.Equal(t, models.BookingConfirmed, f.store.Booking(sessionID, memberID).Status)
}

func TestRebookReusesCancelledRecord(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.addMember(2, false)
	sessionID := f.addSession(1)

	ctx := context.Background()
	first, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	resp, err := f.svc.Rebook(ctx, &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)

	assert.Equal(t, first.ID, resp.ID)
	assert.Equal(t, models.BookingConfirmed, resp.Status)
	assert.Equal(t, 1, f.store.Credits(memberID))
}

func TestRebookWithoutHistoryNotFound(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.addMember(2, false)
	sessionID := f.addSession(1)

	_, err := f.svc.Rebook(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	assert.ErrorIs(t, err, apperrors.ErrBookingNotFound)
}

func TestPromotionAlwaysPolicyDebitsIntoNegative(t *testing.T) {
	f := newBookingFixture(service.PromotionDebitAlways)
	holder := f.addMember(2, false)
	broke := f.addMember(1, false)
	sessionID := f.addSession(1)

	ctx := context.Background()
	_, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: holder})
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: broke})
	require.NoError(t, err)

	// Drain the waitlisted member's balance before the promotion lands
	zero := 0
	require.NoError(t, f.store.Members().SetPlan(ctx, broke, &zero, nil))

	resp, err := f.svc.Cancel(ctx, &models.BookRequest{SessionID: sessionID, MemberID: holder})
	require.NoError(t, err)

	require.NotNil(t, resp.PromotedMemberID)
	assert.Equal(t, broke, *resp.PromotedMemberID)
	assert.Equal(t, -1, f.store.Credits(broke))
	assert.Equal(t, models.BookingConfirmed, f.store.Booking(sessionID, broke).Status)
}

func TestPromotionSkipPolicyLeavesInsolventWaitlisted(t *testing.T) {
	f := newBookingFixture(service.PromotionDebitSkip)
	holder := f.addMember(2, false)
	broke := f.addMember(1, false)
	sessionID := f.addSession(1)

	ctx := context.Background()
	_, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: holder})
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: broke})
	require.NoError(t, err)

	zero := 0
	require.NoError(t, f.store.Members().SetPlan(ctx, broke, &zero, nil))

	resp, err := f.svc.Cancel(ctx, &models.BookRequest{SessionID: sessionID, MemberID: holder})
	require.NoError(t, err)

	assert.Nil(t, resp.PromotedMemberID)
	assert.Equal(t, 0, f.store.Credits(broke))
	assert.Equal(t, models.BookingWaitlist, f.store.Booking(sessionID, broke).Status)
}

func TestCancelOnCancelledSessionDoesNotPromote(t *testing.T) {
	f := newBookingFixture("")
	holder := f.addMember(2, false)
	waiter := f.addMember(2, false)
	sessionID := f.addSession(1)

	ctx := context.Background()
	_, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: holder})
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: waiter})
	require.NoError(t, err)

	require.NoError(t, f.store.Sessions().Cancel(ctx, sessionID))

	resp, err := f.svc.Cancel(ctx, &models.BookRequest{SessionID: sessionID, MemberID: holder})
	require.NoError(t, err)

	// There is no class to promote into. The holder gets the refund and
	// the waitlisted member keeps their balance and their waitlist row.
	assert.Nil(t, resp.PromotedMemberID)
	assert.Equal(t, 2, f.store.Credits(holder))
	assert.Equal(t, 2, f.store.Credits(waiter))
	assert.Equal(t, models.BookingWaitlist, f.store.Booking(sessionID, waiter).Status)
	assert.NotContains(t, f.publisher.Subjects(), models.EventWaitlistPromoted)
}

func TestUnlimitedMemberWaitlistAndPromotion(t *testing.T) {
	f := newBookingFixture("")
	holder := f.addMember(2, false)
	unlimited := f.addMember(0, true)
	sessionID := f.addSession(1)

	ctx := context.Background()
	_, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: holder})
	require.NoError(t, err)

	resp, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: unlimited})
	require.NoError(t, err)
	assert.Equal(t, models.BookingWaitlist, resp.Status)
	assert.False(t, f.store.Booking(sessionID, unlimited).CreditDeducted)

	cancelResp, err := f.svc.Cancel(ctx, &models.BookRequest{SessionID: sessionID, MemberID: holder})
	require.NoError(t, err)

	require.NotNil(t, cancelResp.PromotedMemberID)
	assert.Equal(t, unlimited, *cancelResp.PromotedMemberID)
	promoted := f.store.Booking(sessionID, unlimited)
	assert.Equal(t, models.BookingConfirmed, promoted.Status)
	assert.False(t, promoted.CreditDeducted)
	assert.Equal(t, 0, f.store.Credits(unlimited))
	assert.Contains(t, f.publisher.Subjects(), models.EventWaitlistPromoted)
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newBookingFixture("")
	f.publisher.Err = assert.AnError
	memberID := f.addMember(2, false)
	sessionID := f.addSession(5)

	resp, err := f.svc.Book(context.Background(), &models.BookRequest{SessionID: sessionID, MemberID: memberID})
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, resp.Status)
}

func TestListReturnsMemberBookings(t *testing.T) {
	f := newBookingFixture("")
	memberID := f.addMember(5, false)
	first := f.addSession(5)
	second := f.addSession(5)

	ctx := context.Background()
	_, err := f.svc.Book(ctx, &models.BookRequest{SessionID: first, MemberID: memberID})
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, &models.BookRequest{SessionID: second, MemberID: memberID})
	require.NoError(t, err)

	items, err := f.svc.List(ctx, memberID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestConcurrentBookingNeverOverfills(t *testing.T) {
	f := newBookingFixture("")
	sessionID := f.addSession(3)

	memberIDs := make([]int64, 10)
	for i := range memberIDs {
		memberIDs[i] = f.addMember(1, false)
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for _, id := range memberIDs {
		wg.Add(1)
		go func(memberID int64) {
			defer wg.Done()
			_, err := f.svc.Book(ctx, &models.BookRequest{SessionID: sessionID, MemberID: memberID})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	confirmed, err := f.store.Bookings().ConfirmedCount(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, confirmed)

	waitlisted, err := f.store.Bookings().ListBySession(ctx, sessionID, models.BookingWaitlist)
	require.NoError(t, err)
	assert.Len(t, waitlisted, 7)

	// Only confirmed seats consumed credits
	spent := 0
	for _, id := range memberIDs {
		spent += 1 - f.store.Credits(id)
	}
	assert.Equal(t, 3, spent)
}
