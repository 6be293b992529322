package repository

import (
	"studiobook/internal/database"
)

type Repositories struct {
	Members    *MemberRepository
	Sessions   *SessionRepository
	Bookings   *BookingRepository
	Attendance *AttendanceRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Members:    NewMemberRepository(db),
		Sessions:   NewSessionRepository(db),
		Bookings:   NewBookingRepository(db),
		Attendance: NewAttendanceRepository(db),
	}
}
