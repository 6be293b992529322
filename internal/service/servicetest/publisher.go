package servicetest

import (
	"context"
	"sync"

	"studiobook/internal/models"
)

// Publisher records published events. Set Err to simulate a broken broker;
// operations must still succeed when publishing fails.
type Publisher struct {
	mu     sync.Mutex
	Err    error
	events []Event
}

type Event struct {
	Subject string
	Data    interface{}
}

func (p *Publisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, Event{Subject: subject, Data: data})
	return nil
}

func (p *Publisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Subjects returns the published subjects in order.
func (p *Publisher) Subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	subjects := make([]string, len(p.events))
	for i, e := range p.events {
		subjects[i] = e.Subject
	}
	return subjects
}

// Indexer records indexed sessions and serves canned search results.
type Indexer struct {
	mu      sync.Mutex
	Results []models.SessionResponseItem
	indexed []models.ClassSession
}

func (ix *Indexer) IndexSession(ctx context.Context, session *models.ClassSession) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.indexed = append(ix.indexed, *session)
	return nil
}

func (ix *Indexer) Search(ctx context.Context, query, date string, page, pageSize int) ([]models.SessionResponseItem, error) {
	return ix.Results, nil
}

func (ix *Indexer) Indexed() []models.ClassSession {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]models.ClassSession(nil), ix.indexed...)
}
