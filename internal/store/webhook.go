package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

// subscription identifies the single webhook an account may hold per event.
type subscription struct {
	account domain.AccountID
	event   string
}

// WebhookStore keeps webhook subscriptions in memory. Each subscription is
// reachable by its id and by its (account, event) pair; both indexes point
// at the same record.
type WebhookStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Webhook
	bySub  map[subscription]*domain.Webhook
	counts map[domain.AccountID]int
}

// NewWebhookStore returns an empty store.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		byID:   make(map[string]*domain.Webhook),
		bySub:  make(map[subscription]*domain.Webhook),
		counts: make(map[domain.AccountID]int),
	}
}

// Upsert stores w unless the account already subscribes to w.Event, in
// which case the existing record keeps its id and takes the new URL. The
// returned bool reports whether a record was created.
func (s *WebhookStore) Upsert(w *domain.Webhook) (*domain.Webhook, bool) {
	key := subscription{w.AccountID, w.Event}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.bySub[key]; ok {
		if cur.URL != w.URL {
			cur.URL, cur.UpdatedAt = w.URL, w.UpdatedAt
		}
		return cloneWebhook(cur), false
	}

	rec := cloneWebhook(w)
	s.byID[rec.WebhookID] = rec
	s.bySub[key] = rec
	s.counts[rec.AccountID]++
	return cloneWebhook(rec), true
}

// Get returns the webhook with the given id or domain.ErrWebhookNotFound.
func (s *WebhookStore) Get(id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if w, ok := s.byID[id]; ok {
		return cloneWebhook(w), nil
	}
	return nil, domain.ErrWebhookNotFound
}

// ListByAccount returns the account's subscriptions sorted by event name.
func (s *WebhookStore) ListByAccount(account domain.AccountID) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Webhook, 0, s.counts[account])
	if s.counts[account] == 0 {
		return out
	}
	for key, w := range s.bySub {
		if key.account == account {
			out = append(out, cloneWebhook(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Event < out[j].Event })
	return out
}

// Delete drops the webhook with the given id or returns
// domain.ErrWebhookNotFound.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.byID[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.byID, id)
	delete(s.bySub, subscription{w.AccountID, w.Event})
	if s.counts[w.AccountID]--; s.counts[w.AccountID] == 0 {
		delete(s.counts, w.AccountID)
	}
	return nil
}

// GetByAccountEvent returns the account's subscription to event, or nil.
func (s *WebhookStore) GetByAccountEvent(account domain.AccountID, event string) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if w, ok := s.bySub[subscription{account, event}]; ok {
		return cloneWebhook(w)
	}
	return nil
}

func cloneWebhook(w *domain.Webhook) *domain.Webhook {
	c := *w
	return &c
}
