package service

import (
	"context"

	"studiobook/internal/messaging"
	"studiobook/internal/models"
	"studiobook/internal/repository"
	"studiobook/internal/search"
)

// Promotion debit policies, see BookingConfig.
const (
	PromotionDebitAlways = "always"
	PromotionDebitSkip   = "skip"
)

// BookingConfig tunes the booking engine.
type BookingConfig struct {
	// PromotionDebitPolicy is PromotionDebitAlways (debit the promoted
	// member unconditionally, historical behavior, finite balances may go
	// negative) or PromotionDebitSkip (an insolvent member keeps the
	// waitlist spot and the seat stays open).
	PromotionDebitPolicy string
}

// Store contracts implemented by the repository layer. Each mutating
// operation is atomic: the check-then-act sequence it describes happens in
// one transaction, never as separate unguarded calls.

type MemberStore interface {
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id int64) (*models.Member, error)
	GetByEmail(ctx context.Context, email string) (*models.Member, error)
	SetPlan(ctx context.Context, id int64, credits *int, unlimited *bool) error
}

type SessionStore interface {
	Create(ctx context.Context, session *models.ClassSession) error
	GetByID(ctx context.Context, id int64) (*models.ClassSession, error)
	List(ctx context.Context, date string, page, pageSize int) ([]models.ClassSession, error)
	Cancel(ctx context.Context, id int64) error
}

type BookingStore interface {
	Reserve(ctx context.Context, sessionID, memberID int64, rebook bool) (*models.Booking, error)
	Cancel(ctx context.Context, sessionID, memberID int64, waitlistOnly, forcePromoDebit bool) (*models.CancelOutcome, error)
	GetBySessionAndMember(ctx context.Context, sessionID, memberID int64) (*models.Booking, error)
	ListByMember(ctx context.Context, memberID int64) ([]models.Booking, error)
	ListBySession(ctx context.Context, sessionID int64, status string) ([]models.Booking, error)
	ConfirmedCount(ctx context.Context, sessionID int64) (int, error)
}

type AttendanceStore interface {
	Add(ctx context.Context, sessionID, memberID int64) (*models.DropIn, error)
	Remove(ctx context.Context, id string) (*models.DropIn, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.DropIn, error)
}

// Publisher is the fire-and-forget event hook. Publish failures are logged
// by callers and never fail the operation that produced the event.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// SessionIndexer feeds the schedule search read model.
type SessionIndexer interface {
	IndexSession(ctx context.Context, session *models.ClassSession) error
	Search(ctx context.Context, query, date string, page, pageSize int) ([]models.SessionResponseItem, error)
}

type Services struct {
	Members    *MemberService
	Sessions   *SessionService
	Bookings   *BookingService
	Attendance *AttendanceService
}

func NewServices(repos *repository.Repositories, natsClient *messaging.NATSClient, esClient *search.ElasticsearchClient, cfg BookingConfig) *Services {
	var indexer SessionIndexer
	if esClient != nil {
		indexer = esClient
	}

	memberService := NewMemberService(repos.Members)
	sessionService := NewSessionService(repos.Sessions, repos.Bookings, indexer, natsClient)
	bookingService := NewBookingService(repos.Bookings, repos.Sessions, repos.Members, natsClient, cfg)
	attendanceService := NewAttendanceService(repos.Attendance, repos.Sessions, repos.Members, natsClient)

	return &Services{
		Members:    memberService,
		Sessions:   sessionService,
		Bookings:   bookingService,
		Attendance: attendanceService,
	}
}
