package service_test

import (
	"context"
	"testing"
	"time"

	apperrors "studiobook/internal/errors"
	"studiobook/internal/models"
	"studiobook/internal/service"
	"studiobook/internal/service/servicetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService(store *servicetest.Store, indexer service.SessionIndexer) (*service.SessionService, *servicetest.Publisher) {
	publisher := &servicetest.Publisher{}
	svc := service.NewSessionService(store.Sessions(), store.Bookings(), indexer, publisher)
	return svc, publisher
}

func TestCreateSessionIndexesIt(t *testing.T) {
	store := servicetest.NewStore()
	indexer := &servicetest.Indexer{}
	svc, _ := newSessionService(store, indexer)

	resp, err := svc.Create(context.Background(), 1, &models.CreateSessionRequest{
		Title:    "Evening Pilates",
		StartsAt: time.Now().Add(24 * time.Hour),
		Capacity: 12,
	})
	require.NoError(t, err)
	assert.NotZero(t, resp.ID)

	indexed := indexer.Indexed()
	require.Len(t, indexed, 1)
	assert.Equal(t, "Evening Pilates", indexed[0].Title)
}

func TestConfirmedCountReflectsBookings(t *testing.T) {
	store := servicetest.NewStore()
	svc, _ := newSessionService(store, nil)

	sessionID := store.AddSession(&models.ClassSession{StudioID: 1, Capacity: 4})
	memberID := store.AddMember(&models.Member{StudioID: 1, Credits: 5})

	ctx := context.Background()
	_, err := store.Bookings().Reserve(ctx, sessionID, memberID, false)
	require.NoError(t, err)

	resp, err := svc.ConfirmedCount(ctx, sessionID)
	require.NoError(t, err)

	assert.Equal(t, 4, resp.Capacity)
	assert.Equal(t, 1, resp.ConfirmedCount)
}

func TestConfirmedCountUnknownSession(t *testing.T) {
	store := servicetest.NewStore()
	svc, _ := newSessionService(store, nil)

	_, err := svc.ConfirmedCount(context.Background(), 7)
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestCancelSessionPublishesEvent(t *testing.T) {
	store := servicetest.NewStore()
	svc, publisher := newSessionService(store, nil)

	sessionID := store.AddSession(&models.ClassSession{StudioID: 1, Capacity: 4})

	ctx := context.Background()
	require.NoError(t, svc.Cancel(ctx, sessionID))

	session, err := svc.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.True(t, session.Cancelled)

	assert.Equal(t, []string{models.EventSessionCancelled}, publisher.Subjects())
}

func TestSearchUnavailableWithoutIndexer(t *testing.T) {
	store := servicetest.NewStore()
	svc, _ := newSessionService(store, nil)

	_, err := svc.Search(context.Background(), "yoga", "", 1, 20)
	assert.Error(t, err)
}

func TestSearchDelegatesToIndexer(t *testing.T) {
	store := servicetest.NewStore()
	indexer := &servicetest.Indexer{
		Results: []models.SessionResponseItem{{ID: 1, Title: "Vinyasa Flow"}},
	}
	svc, _ := newSessionService(store, indexer)

	items, err := svc.Search(context.Background(), "vinyasa", "", 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Vinyasa Flow", items[0].Title)
}

func TestListFiltersByDate(t *testing.T) {
	store := servicetest.NewStore()
	svc, _ := newSessionService(store, nil)

	day := time.Date(2026, 9, 3, 9, 0, 0, 0, time.UTC)
	store.AddSession(&models.ClassSession{StudioID: 1, Title: "On the day", StartsAt: day, Capacity: 10})
	store.AddSession(&models.ClassSession{StudioID: 1, Title: "Day after", StartsAt: day.AddDate(0, 0, 1), Capacity: 10})

	items, err := svc.List(context.Background(), "2026-09-03", 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "On the day", items[0].Title)
}
