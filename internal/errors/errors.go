package errors

import "errors"

// Sentinel errors returned by the booking engine. Services wrap them with
// context via fmt.Errorf("...: %w", err); handlers map them to HTTP statuses.

var ErrUnauthorized = errors.New("caller is not authenticated")
var ErrForbidden = errors.New("operation is forbidden for caller")

var ErrMemberNotFound = errors.New("member not found")
var ErrSessionNotFound = errors.New("session not found")
var ErrBookingNotFound = errors.New("booking not found")
var ErrDropInNotFound = errors.New("drop-in attendance not found")

var ErrDuplicateBooking = errors.New("member already has an active booking for this session")
var ErrDuplicateDropIn = errors.New("member already attends this session")

var ErrInsufficientCredits = errors.New("not enough credits")
var ErrInvalidAction = errors.New("action is not valid for the current state")
