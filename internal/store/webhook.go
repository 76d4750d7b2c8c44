package store

import (
	"sync"

	"github.com/psmarinho/paperarena/internal/domain"
)

// WebhookStore is a thread-safe in-memory store for webhook subscriptions.
// Primary index: webhook_id → webhook. Secondary index: event → webhook
// (one subscription per event, since the arena runs a single account).
//
// Unlike the simulator-owned stores this one is locked: subscriptions are
// managed from handler goroutines while dispatch reads happen from the
// simulation side.
type WebhookStore struct {
	mu       sync.RWMutex
	webhooks map[string]*domain.Webhook // webhook_id → webhook
	byEvent  map[string]*domain.Webhook // event → webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks: make(map[string]*domain.Webhook),
		byEvent:  make(map[string]*domain.Webhook),
	}
}

// Upsert inserts or updates a subscription keyed by event. If a
// subscription already exists for the event, its URL and UpdatedAt are
// updated and the webhook_id remains stable. Returns true if a new
// subscription was created.
func (s *WebhookStore) Upsert(w *domain.Webhook) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byEvent[w.Event]; ok {
		if existing.URL != w.URL {
			existing.URL = w.URL
			existing.UpdatedAt = w.UpdatedAt
		}
		return false
	}

	s.webhooks[w.WebhookID] = w
	s.byEvent[w.Event] = w
	return true
}

// Get retrieves a webhook by ID. It returns domain.ErrWebhookNotFound if
// the webhook does not exist.
func (s *WebhookStore) Get(id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.webhooks[id]
	if !ok {
		return nil, domain.ErrWebhookNotFound
	}
	return w, nil
}

// GetByEvent returns the subscription for an event, or nil if none exists.
func (s *WebhookStore) GetByEvent(event string) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byEvent[event]
}

// List returns all subscriptions.
func (s *WebhookStore) List() []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Webhook, 0, len(s.byEvent))
	for _, w := range s.byEvent {
		result = append(result, w)
	}
	return result
}

// Delete removes a webhook by ID, cleaning up both indexes. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.webhooks, id)
	delete(s.byEvent, w.Event)
	return nil
}
