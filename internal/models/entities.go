package models

import (
	"time"
)

// Booking statuses
const (
	BookingConfirmed = "CONFIRMED"
	BookingWaitlist  = "WAITLIST"
	BookingCancelled = "CANCELLED"
)

// Member roles
const (
	RoleMember = "member"
	RoleStaff  = "staff"
)

// Member represents a studio member. Credits are only meaningful for finite
// plans; unlimited members are exempt from every balance check and their
// credits column is never touched by the booking engine.
type Member struct {
	ID           int64     `json:"id" db:"id"`
	StudioID     int64     `json:"studio_id" db:"studio_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	Surname      string    `json:"surname" db:"surname"`
	Role         string    `json:"role" db:"role"`
	Credits      int       `json:"credits" db:"credits"`
	Unlimited    bool      `json:"unlimited" db:"unlimited"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	JoinedAt     time.Time `json:"joined_at" db:"joined_at"`
}

// ClassSession represents a scheduled class with a fixed capacity. The
// booking engine treats capacity and the cancellation flag as ground truth.
type ClassSession struct {
	ID        int64     `json:"id" db:"id"`
	StudioID  int64     `json:"studio_id" db:"studio_id"`
	Title     string    `json:"title" db:"title"`
	StartsAt  time.Time `json:"starts_at" db:"starts_at"`
	Capacity  int       `json:"capacity" db:"capacity"`
	Cancelled bool      `json:"cancelled" db:"cancelled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Booking relates one member to one session. There is at most one row per
// (session, member) pair; cancellation flips status, the row is never
// deleted. CreditDeducted records whether this row currently holds a ledger
// debit, so a refund can happen exactly once.
type Booking struct {
	ID             int64     `json:"id" db:"id"`
	SessionID      int64     `json:"session_id" db:"session_id"`
	MemberID       int64     `json:"member_id" db:"member_id"`
	Status         string    `json:"status" db:"status"`
	CreditDeducted bool      `json:"credit_deducted" db:"credit_deducted"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// DropIn represents walk-in attendance recorded by staff, independent of any
// booking. Unlike bookings, drop-in rows are hard-deleted on removal; the
// delete and the at-most-once refund happen in one transaction.
type DropIn struct {
	ID             string    `json:"id" db:"id"`
	SessionID      int64     `json:"session_id" db:"session_id"`
	MemberID       int64     `json:"member_id" db:"member_id"`
	CreditDeducted bool      `json:"credit_deducted" db:"credit_deducted"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Active reports whether the booking currently occupies a seat or a
// waitlist spot.
func (b *Booking) Active() bool {
	return b.Status == BookingConfirmed || b.Status == BookingWaitlist
}

// CancelOutcome reports what a cancellation transaction did: the cancelled
// booking, the waitlisted booking promoted into the freed seat (nil when
// none), and whether the canceller's debit was refunded.
type CancelOutcome struct {
	Cancelled *Booking
	Promoted  *Booking
	Refunded  bool
}
