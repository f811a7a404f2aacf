package store

import (
	"sync"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

// TradeStore is a thread-safe in-memory store for fills,
// keyed by pair id. Fills are append-only and chronological.
type TradeStore struct {
	mu    sync.RWMutex
	fills map[uint64][]*domain.Fill // pair id → fills (chronological)
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		fills: make(map[uint64][]*domain.Fill),
	}
}

// Append adds fills to their pairs' chronological lists.
func (s *TradeStore) Append(fills ...domain.Fill) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range fills {
		f := fills[i]
		s.fills[f.PairID] = append(s.fills[f.PairID], &f)
	}
}

// ListByPair returns the most recent fills for a pair, newest first.
// A non-positive limit returns all of them. Returns an empty slice if the
// pair never traded.
func (s *TradeStore) ListByPair(pairID uint64, limit int) []*domain.Fill {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.fills[pairID]
	n := len(all)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]*domain.Fill, 0, n)
	for i := len(all) - 1; i >= 0 && len(result) < n; i-- {
		f := *all[i]
		result = append(result, &f)
	}
	return result
}

// Last returns the most recent fill for a pair.
func (s *TradeStore) Last(pairID uint64) (*domain.Fill, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.fills[pairID]
	if len(all) == 0 {
		return nil, false
	}
	f := *all[len(all)-1]
	return &f, true
}

// Reset drops every fill.
func (s *TradeStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fills = make(map[uint64][]*domain.Fill)
}
