package models

import "time"

// Request/response models for the HTTP API.

// BookRequest - POST /api/bookings and the PATCH booking actions
type BookRequest struct {
	SessionID int64 `json:"session_id" binding:"required"`
	MemberID  int64 `json:"member_id" binding:"required"`
}

// BookResponse is returned by book and rebook. Status tells the client
// whether the member got a seat or was routed to the waitlist; a full
// session is not an error.
type BookResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// CancelResponse is returned by cancel and leaveWaitlist.
type CancelResponse struct {
	ID               int64  `json:"id"`
	Status           string `json:"status"`
	PromotedMemberID *int64 `json:"promoted_member_id,omitempty"`
}

// ListBookingsResponseItem - element of GET /api/bookings
type ListBookingsResponseItem struct {
	ID             int64     `json:"id"`
	SessionID      int64     `json:"session_id"`
	Status         string    `json:"status"`
	CreditDeducted bool      `json:"credit_deducted"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateSessionRequest - POST /api/sessions
type CreateSessionRequest struct {
	Title    string    `json:"title" binding:"required"`
	StartsAt time.Time `json:"starts_at" binding:"required"`
	Capacity int       `json:"capacity" binding:"required,min=1"`
}

// CreateSessionResponse - response of POST /api/sessions
type CreateSessionResponse struct {
	ID int64 `json:"id"`
}

// SessionResponseItem - element of session listings
type SessionResponseItem struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	Capacity  int       `json:"capacity"`
	Cancelled bool      `json:"cancelled"`
}

// ConfirmedCountResponse - GET /api/sessions/:id/confirmedCount
type ConfirmedCountResponse struct {
	SessionID      int64 `json:"session_id"`
	Capacity       int   `json:"capacity"`
	ConfirmedCount int   `json:"confirmed_count"`
}

// AddDropInRequest - POST /api/attendance
type AddDropInRequest struct {
	SessionID int64 `json:"session_id" binding:"required"`
	MemberID  int64 `json:"member_id" binding:"required"`
}

// AddDropInResponse - response of POST /api/attendance
type AddDropInResponse struct {
	ID             string `json:"id"`
	CreditDeducted bool   `json:"credit_deducted"`
}

// AttendanceResponseItem - element of GET /api/sessions/:id/attendance
type AttendanceResponseItem struct {
	ID             string    `json:"id"`
	MemberID       int64     `json:"member_id"`
	CreditDeducted bool      `json:"credit_deducted"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateMemberRequest - POST /api/members
type CreateMemberRequest struct {
	StudioID  int64  `json:"studio_id" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	Surname   string `json:"surname" binding:"required"`
	Credits   int    `json:"credits" binding:"min=0"`
	Unlimited bool   `json:"unlimited"`
}

// CreateMemberResponse - response of POST /api/members
type CreateMemberResponse struct {
	ID int64 `json:"id"`
}

// MemberResponse - GET /api/members/:id
type MemberResponse struct {
	ID        int64  `json:"id"`
	StudioID  int64  `json:"studio_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Credits   int    `json:"credits"`
	Unlimited bool   `json:"unlimited"`
}

// AdjustCreditsRequest - PATCH /api/members/:id/credits. Admin correction or
// plan change; the only path that sets a balance directly.
type AdjustCreditsRequest struct {
	Credits   *int  `json:"credits"`
	Unlimited *bool `json:"unlimited"`
}
