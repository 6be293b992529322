package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"studiobook/internal/models"
)

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@integration.test", prefix, time.Now().UnixNano())
}

func (c *TestClient) newMember(t *testing.T, credits int) (int64, *TestClient) {
	t.Helper()

	email := uniqueEmail("member")
	password := "integration-pass-1"
	id := c.CreateMember(t, models.CreateMemberRequest{
		StudioID:  1,
		Email:     email,
		Password:  password,
		FirstName: "Integration",
		Surname:   "Member",
		Credits:   credits,
	})
	return id, c.As(email, password)
}

func (c *TestClient) newSession(t *testing.T, capacity int) int64 {
	t.Helper()

	return c.CreateSession(t, models.CreateSessionRequest{
		Title:    "Integration Session",
		StartsAt: time.Now().Add(72 * time.Hour),
		Capacity: capacity,
	})
}

func TestBookingLifecycle(t *testing.T) {
	staff := requireStack(t)

	memberID, member := staff.newMember(t, 3)
	sessionID := staff.newSession(t, 5)

	book := member.Book(t, sessionID, memberID)
	if book.Status != models.BookingConfirmed {
		t.Fatalf("Expected CONFIRMED, got %s", book.Status)
	}

	if got := staff.GetMember(t, memberID).Credits; got != 2 {
		t.Fatalf("Expected 2 credits after booking, got %d", got)
	}

	member.Cancel(t, sessionID, memberID)
	if got := staff.GetMember(t, memberID).Credits; got != 3 {
		t.Fatalf("Expected refund to 3 credits, got %d", got)
	}

	rebook := member.Rebook(t, sessionID, memberID)
	if rebook.ID != book.ID {
		t.Fatalf("Expected rebooking to reuse record %d, got %d", book.ID, rebook.ID)
	}
	if got := staff.GetMember(t, memberID).Credits; got != 2 {
		t.Fatalf("Expected 2 credits after rebooking, got %d", got)
	}
}

func TestWaitlistAndPromotion(t *testing.T) {
	staff := requireStack(t)

	holderID, holder := staff.newMember(t, 2)
	waiterID, waiter := staff.newMember(t, 2)
	sessionID := staff.newSession(t, 1)

	if got := holder.Book(t, sessionID, holderID).Status; got != models.BookingConfirmed {
		t.Fatalf("Expected CONFIRMED for holder, got %s", got)
	}
	if got := waiter.Book(t, sessionID, waiterID).Status; got != models.BookingWaitlist {
		t.Fatalf("Expected WAITLIST for waiter, got %s", got)
	}

	// Waitlist spot is free
	if got := staff.GetMember(t, waiterID).Credits; got != 2 {
		t.Fatalf("Expected waitlisted member to keep 2 credits, got %d", got)
	}

	cancel := holder.Cancel(t, sessionID, holderID)
	if cancel.PromotedMemberID == nil || *cancel.PromotedMemberID != waiterID {
		t.Fatalf("Expected promotion of member %d, got %+v", waiterID, cancel.PromotedMemberID)
	}

	count := staff.ConfirmedCount(t, sessionID)
	if count.ConfirmedCount != 1 {
		t.Fatalf("Expected 1 confirmed seat after promotion, got %d", count.ConfirmedCount)
	}
	if got := staff.GetMember(t, waiterID).Credits; got != 1 {
		t.Fatalf("Expected promoted member to hold 1 credit, got %d", got)
	}
}

func TestDuplicateBookingConflict(t *testing.T) {
	staff := requireStack(t)

	memberID, member := staff.newMember(t, 5)
	sessionID := staff.newSession(t, 5)

	member.Book(t, sessionID, memberID)
	member.BookExpectStatus(t, sessionID, memberID, http.StatusConflict)
}

func TestInsufficientCreditsRejection(t *testing.T) {
	staff := requireStack(t)

	memberID, member := staff.newMember(t, 0)
	sessionID := staff.newSession(t, 5)

	member.BookExpectStatus(t, sessionID, memberID, http.StatusPaymentRequired)
}

func TestDropInRegister(t *testing.T) {
	staff := requireStack(t)

	memberID, _ := staff.newMember(t, 1)
	sessionID := staff.newSession(t, 5)

	dropIn := staff.AddDropIn(t, sessionID, memberID)
	if !dropIn.CreditDeducted {
		t.Fatal("Expected drop-in to deduct a credit")
	}
	if got := staff.GetMember(t, memberID).Credits; got != 0 {
		t.Fatalf("Expected 0 credits after drop-in, got %d", got)
	}

	staff.RemoveDropIn(t, dropIn.ID)
	if got := staff.GetMember(t, memberID).Credits; got != 1 {
		t.Fatalf("Expected refund to 1 credit after removal, got %d", got)
	}
}

func TestDropInFreePassForEmptyBalance(t *testing.T) {
	staff := requireStack(t)

	memberID, _ := staff.newMember(t, 0)
	sessionID := staff.newSession(t, 5)

	dropIn := staff.AddDropIn(t, sessionID, memberID)
	if dropIn.CreditDeducted {
		t.Fatal("Expected free-pass drop-in with no deduction")
	}
}
