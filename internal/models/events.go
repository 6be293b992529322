package models

import "time"

// NATS event subjects. All publishes are fire-and-forget: a failed publish
// is logged and never rolls back the state transition that produced it.
const (
	EventBookingConfirmed  = "booking.confirmed"
	EventBookingWaitlisted = "booking.waitlisted"
	EventBookingCancelled  = "booking.cancelled"
	EventWaitlistPromoted  = "waitlist.promoted"
	EventDropInRecorded    = "dropin.recorded"
	EventDropInRemoved     = "dropin.removed"
	EventSessionCancelled  = "session.cancelled"
)

// BookingEvent covers booking.confirmed, booking.waitlisted and
// booking.cancelled.
type BookingEvent struct {
	BookingID int64     `json:"booking_id"`
	SessionID int64     `json:"session_id"`
	MemberID  int64     `json:"member_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// WaitlistPromotedEvent is published when a cancellation frees a seat and
// the oldest waitlisted booking takes it.
type WaitlistPromotedEvent struct {
	BookingID int64     `json:"booking_id"`
	SessionID int64     `json:"session_id"`
	MemberID  int64     `json:"member_id"`
	Timestamp time.Time `json:"timestamp"`
}

// DropInEvent covers dropin.recorded and dropin.removed.
type DropInEvent struct {
	DropInID       string    `json:"dropin_id"`
	SessionID      int64     `json:"session_id"`
	MemberID       int64     `json:"member_id"`
	CreditDeducted bool      `json:"credit_deducted"`
	Timestamp      time.Time `json:"timestamp"`
}

// SessionCancelledEvent is published when staff cancels a whole session.
type SessionCancelledEvent struct {
	SessionID int64     `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}
