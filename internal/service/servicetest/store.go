// Package servicetest provides in-memory store fakes for service tests.
// The fakes reproduce the repository transitions, including atomicity: every
// mutating call holds one mutex for its whole check-then-act sequence.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "studiobook/internal/errors"
	"studiobook/internal/models"
)

type Store struct {
	mu sync.Mutex

	members  map[int64]*models.Member
	sessions map[int64]*models.ClassSession
	bookings map[int64]*models.Booking
	dropIns  map[string]*models.DropIn

	nextMemberID  int64
	nextSessionID int64
	nextBookingID int64
	nextDropInID  int64
}

func NewStore() *Store {
	return &Store{
		members:  make(map[int64]*models.Member),
		sessions: make(map[int64]*models.ClassSession),
		bookings: make(map[int64]*models.Booking),
		dropIns:  make(map[string]*models.DropIn),
	}
}

func (s *Store) Members() *MemberStore         { return &MemberStore{s: s} }
func (s *Store) Sessions() *SessionStore       { return &SessionStore{s: s} }
func (s *Store) Bookings() *BookingStore       { return &BookingStore{s: s} }
func (s *Store) Attendance() *AttendanceStore  { return &AttendanceStore{s: s} }

// AddMember seeds a member and returns its id.
func (s *Store) AddMember(m *models.Member) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMemberID++
	m.ID = s.nextMemberID
	if m.Role == "" {
		m.Role = models.RoleMember
	}
	m.IsActive = true
	m.JoinedAt = time.Now()
	s.members[m.ID] = m
	return m.ID
}

// AddSession seeds a session and returns its id.
func (s *Store) AddSession(sess *models.ClassSession) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSessionID++
	sess.ID = s.nextSessionID
	sess.CreatedAt = time.Now()
	sess.UpdatedAt = sess.CreatedAt
	s.sessions[sess.ID] = sess
	return sess.ID
}

// Credits reads a member's current balance.
func (s *Store) Credits(memberID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[memberID].Credits
}

// Booking reads the booking row for a (session, member) pair.
func (s *Store) Booking(sessionID, memberID int64) *models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b := s.findBooking(sessionID, memberID); b != nil {
		copied := *b
		return &copied
	}
	return nil
}

func (s *Store) findBooking(sessionID, memberID int64) *models.Booking {
	for _, b := range s.bookings {
		if b.SessionID == sessionID && b.MemberID == memberID {
			return b
		}
	}
	return nil
}

func (s *Store) confirmedCount(sessionID int64) int {
	count := 0
	for _, b := range s.bookings {
		if b.SessionID == sessionID && b.Status == models.BookingConfirmed {
			count++
		}
	}
	return count
}

type MemberStore struct {
	s *Store
}

func (m *MemberStore) Create(ctx context.Context, member *models.Member) error {
	m.s.AddMember(member)
	return nil
}

func (m *MemberStore) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	member, ok := m.s.members[id]
	if !ok {
		return nil, nil
	}
	copied := *member
	return &copied, nil
}

func (m *MemberStore) GetByEmail(ctx context.Context, email string) (*models.Member, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, member := range m.s.members {
		if member.Email == email {
			copied := *member
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MemberStore) SetPlan(ctx context.Context, id int64, credits *int, unlimited *bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	member, ok := m.s.members[id]
	if !ok {
		return apperrors.ErrMemberNotFound
	}
	if credits != nil {
		member.Credits = *credits
	}
	if unlimited != nil {
		member.Unlimited = *unlimited
	}
	return nil
}

type SessionStore struct {
	s *Store
}

func (st *SessionStore) Create(ctx context.Context, session *models.ClassSession) error {
	st.s.AddSession(session)
	return nil
}

func (st *SessionStore) GetByID(ctx context.Context, id int64) (*models.ClassSession, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	session, ok := st.s.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (st *SessionStore) List(ctx context.Context, date string, page, pageSize int) ([]models.ClassSession, error) {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	var sessions []models.ClassSession
	for _, session := range st.s.sessions {
		if date != "" && session.StartsAt.Format("2006-01-02") != date {
			continue
		}
		sessions = append(sessions, *session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartsAt.Equal(sessions[j].StartsAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartsAt.Before(sessions[j].StartsAt)
	})

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		if offset >= len(sessions) {
			return nil, nil
		}
		end := offset + pageSize
		if end > len(sessions) {
			end = len(sessions)
		}
		sessions = sessions[offset:end]
	}

	return sessions, nil
}

func (st *SessionStore) Cancel(ctx context.Context, id int64) error {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()

	session, ok := st.s.sessions[id]
	if !ok {
		return apperrors.ErrSessionNotFound
	}
	session.Cancelled = true
	session.UpdatedAt = time.Now()
	return nil
}

type BookingStore struct {
	s *Store
}

func (b *BookingStore) Reserve(ctx context.Context, sessionID, memberID int64, rebook bool) (*models.Booking, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	session, ok := b.s.sessions[sessionID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	if session.Cancelled {
		return nil, fmt.Errorf("session is cancelled: %w", apperrors.ErrInvalidAction)
	}

	member, ok := b.s.members[memberID]
	if !ok {
		return nil, apperrors.ErrMemberNotFound
	}

	existing := b.s.findBooking(sessionID, memberID)
	if existing != nil && existing.Active() {
		return nil, apperrors.ErrDuplicateBooking
	}
	if rebook && existing == nil {
		return nil, apperrors.ErrBookingNotFound
	}

	status := models.BookingConfirmed
	if b.s.confirmedCount(sessionID) >= session.Capacity {
		status = models.BookingWaitlist
	}

	creditDeducted := false
	if status == models.BookingConfirmed && !member.Unlimited {
		if member.Credits < 1 {
			return nil, apperrors.ErrInsufficientCredits
		}
		member.Credits--
		creditDeducted = true
	}

	now := time.Now()
	if existing == nil {
		b.s.nextBookingID++
		existing = &models.Booking{
			ID:        b.s.nextBookingID,
			SessionID: sessionID,
			MemberID:  memberID,
			CreatedAt: now,
		}
		b.s.bookings[existing.ID] = existing
	}
	existing.Status = status
	existing.CreditDeducted = creditDeducted
	existing.UpdatedAt = now

	copied := *existing
	return &copied, nil
}

func (b *BookingStore) Cancel(ctx context.Context, sessionID, memberID int64, waitlistOnly, forcePromoDebit bool) (*models.CancelOutcome, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	session, ok := b.s.sessions[sessionID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	booking := b.s.findBooking(sessionID, memberID)
	if booking == nil || !booking.Active() {
		return nil, apperrors.ErrBookingNotFound
	}
	if waitlistOnly && booking.Status != models.BookingWaitlist {
		return nil, fmt.Errorf("booking is not waitlisted: %w", apperrors.ErrInvalidAction)
	}

	wasConfirmed := booking.Status == models.BookingConfirmed

	refunded := booking.CreditDeducted
	if refunded {
		if member, ok := b.s.members[memberID]; ok && !member.Unlimited {
			member.Credits++
		}
	}

	booking.Status = models.BookingCancelled
	booking.CreditDeducted = false
	booking.UpdatedAt = time.Now()

	var promoted *models.Booking
	if wasConfirmed {
		promoted = b.promoteOldest(session, forcePromoDebit)
	}

	cancelled := *booking
	return &models.CancelOutcome{
		Cancelled: &cancelled,
		Promoted:  promoted,
		Refunded:  refunded,
	}, nil
}

func (b *BookingStore) promoteOldest(session *models.ClassSession, forceDebit bool) *models.Booking {
	if session.Cancelled {
		return nil
	}
	if b.s.confirmedCount(session.ID) >= session.Capacity {
		return nil
	}

	var candidate *models.Booking
	for _, booking := range b.s.bookings {
		if booking.SessionID != session.ID || booking.Status != models.BookingWaitlist {
			continue
		}
		if candidate == nil ||
			booking.CreatedAt.Before(candidate.CreatedAt) ||
			(booking.CreatedAt.Equal(candidate.CreatedAt) && booking.ID < candidate.ID) {
			candidate = booking
		}
	}
	if candidate == nil {
		return nil
	}

	member := b.s.members[candidate.MemberID]

	creditDeducted := false
	if !member.Unlimited {
		if !forceDebit && member.Credits < 1 {
			return nil
		}
		member.Credits--
		creditDeducted = true
	}

	candidate.Status = models.BookingConfirmed
	candidate.CreditDeducted = creditDeducted
	candidate.UpdatedAt = time.Now()

	copied := *candidate
	return &copied
}

func (b *BookingStore) GetBySessionAndMember(ctx context.Context, sessionID, memberID int64) (*models.Booking, error) {
	return b.s.Booking(sessionID, memberID), nil
}

func (b *BookingStore) ListByMember(ctx context.Context, memberID int64) ([]models.Booking, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	var bookings []models.Booking
	for _, booking := range b.s.bookings {
		if booking.MemberID == memberID {
			bookings = append(bookings, *booking)
		}
	}

	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID > bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})

	return bookings, nil
}

func (b *BookingStore) ListBySession(ctx context.Context, sessionID int64, status string) ([]models.Booking, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	var bookings []models.Booking
	for _, booking := range b.s.bookings {
		if booking.SessionID != sessionID {
			continue
		}
		if status != "" && booking.Status != status {
			continue
		}
		bookings = append(bookings, *booking)
	}

	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})

	return bookings, nil
}

func (b *BookingStore) ConfirmedCount(ctx context.Context, sessionID int64) (int, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return b.s.confirmedCount(sessionID), nil
}

type AttendanceStore struct {
	s *Store
}

func (a *AttendanceStore) Add(ctx context.Context, sessionID, memberID int64) (*models.DropIn, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	session, ok := a.s.sessions[sessionID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	if session.Cancelled {
		return nil, fmt.Errorf("session is cancelled: %w", apperrors.ErrInvalidAction)
	}

	member, ok := a.s.members[memberID]
	if !ok {
		return nil, apperrors.ErrMemberNotFound
	}

	if booking := a.s.findBooking(sessionID, memberID); booking != nil && booking.Status == models.BookingConfirmed {
		return nil, apperrors.ErrDuplicateDropIn
	}
	for _, dropIn := range a.s.dropIns {
		if dropIn.SessionID == sessionID && dropIn.MemberID == memberID {
			return nil, apperrors.ErrDuplicateDropIn
		}
	}

	shouldDeduct := !member.Unlimited && member.Credits >= 1
	if shouldDeduct {
		member.Credits--
	}

	a.s.nextDropInID++
	dropIn := &models.DropIn{
		ID:             fmt.Sprintf("dropin-%d", a.s.nextDropInID),
		SessionID:      sessionID,
		MemberID:       memberID,
		CreditDeducted: shouldDeduct,
		CreatedAt:      time.Now(),
	}
	a.s.dropIns[dropIn.ID] = dropIn

	copied := *dropIn
	return &copied, nil
}

func (a *AttendanceStore) Remove(ctx context.Context, id string) (*models.DropIn, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	dropIn, ok := a.s.dropIns[id]
	if !ok {
		return nil, apperrors.ErrDropInNotFound
	}

	if dropIn.CreditDeducted {
		if member, ok := a.s.members[dropIn.MemberID]; ok && !member.Unlimited {
			member.Credits++
		}
	}

	delete(a.s.dropIns, id)

	copied := *dropIn
	return &copied, nil
}

func (a *AttendanceStore) ListBySession(ctx context.Context, sessionID int64) ([]models.DropIn, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	var dropIns []models.DropIn
	for _, dropIn := range a.s.dropIns {
		if dropIn.SessionID == sessionID {
			dropIns = append(dropIns, *dropIn)
		}
	}

	sort.Slice(dropIns, func(i, j int) bool {
		return dropIns[i].ID < dropIns[j].ID
	})

	return dropIns, nil
}
