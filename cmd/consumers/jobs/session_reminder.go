package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"studiobook/internal/external"
	"studiobook/internal/models"
	"studiobook/internal/repository"
)

const ReminderWindow = 2 * time.Hour

// SessionReminderJob notifies confirmed members shortly before their
// session starts. Reminders are tracked in memory per process; a restart
// may re-send, which the gateway deduplicates.
type SessionReminderJob struct {
	sessionRepo  *repository.SessionRepository
	bookingRepo  *repository.BookingRepository
	notifyClient *external.NotifyClient
	ticker       *time.Ticker
	done         chan bool

	mu       sync.Mutex
	reminded map[int64]bool
}

func NewSessionReminderJob(sessionRepo *repository.SessionRepository, bookingRepo *repository.BookingRepository, notifyClient *external.NotifyClient) *SessionReminderJob {
	return &SessionReminderJob{
		sessionRepo:  sessionRepo,
		bookingRepo:  bookingRepo,
		notifyClient: notifyClient,
		done:         make(chan bool),
		reminded:     make(map[int64]bool),
	}
}

// Start begins the background job that checks for upcoming sessions every
// five minutes.
func (j *SessionReminderJob) Start(ctx context.Context) {
	slog.Info("Starting session reminder job",
		"check_interval", "5m", "window", ReminderWindow)

	j.ticker = time.NewTicker(5 * time.Minute)

	go j.checkUpcomingSessions(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.checkUpcomingSessions(ctx)
			case <-j.done:
				slog.Info("Session reminder job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job.
func (j *SessionReminderJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *SessionReminderJob) checkUpcomingSessions(ctx context.Context) {
	now := time.Now()
	sessions, err := j.sessionRepo.ListStartingBetween(ctx, now, now.Add(ReminderWindow))
	if err != nil {
		slog.Error("Failed to list upcoming sessions", "error", err)
		return
	}

	for _, session := range sessions {
		if j.alreadyReminded(session.ID) {
			continue
		}

		bookings, err := j.bookingRepo.ListBySession(ctx, session.ID, models.BookingConfirmed)
		if err != nil {
			slog.Error("Failed to list bookings for reminder",
				"session_id", session.ID, "error", err)
			continue
		}

		for _, booking := range bookings {
			if err := j.notifyClient.Send(booking.MemberID, external.KindSessionReminder, map[string]interface{}{
				"session_id": session.ID,
				"title":      session.Title,
				"starts_at":  session.StartsAt,
			}); err != nil {
				slog.Error("Failed to send session reminder",
					"session_id", session.ID, "member_id", booking.MemberID, "error", err)
			}
		}

		j.markReminded(session.ID)
		slog.Info("Sent session reminders",
			"session_id", session.ID, "recipients", len(bookings))
	}
}

func (j *SessionReminderJob) alreadyReminded(sessionID int64) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.reminded[sessionID]
}

func (j *SessionReminderJob) markReminded(sessionID int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reminded[sessionID] = true
}
