package engine

import (
	"sort"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

type pairKey struct {
	base  domain.AssetType
	quote domain.AssetType
}

// PairRegistry maps a directed (base, quote) combination to its trading
// pair. Pairs are created lazily by the first order posted on them and
// never change afterwards. The registry is not safe for concurrent use;
// the Matcher serializes access.
type PairRegistry struct {
	pairs  map[pairKey]*domain.TradingPair
	byID   map[uint64]*domain.TradingPair
	nextID uint64
}

// NewPairRegistry creates an empty PairRegistry.
func NewPairRegistry() *PairRegistry {
	return &PairRegistry{
		pairs: make(map[pairKey]*domain.TradingPair),
		byID:  make(map[uint64]*domain.TradingPair),
	}
}

// Find returns the pair for exactly this direction without creating it.
func (r *PairRegistry) Find(base, quote domain.AssetType) (*domain.TradingPair, bool) {
	p, ok := r.pairs[pairKey{base: base, quote: quote}]
	return p, ok
}

// FindOrCreate returns the existing pair for this direction, allocating a
// new id when none exists. created reports whether a pair was allocated.
func (r *PairRegistry) FindOrCreate(base, quote domain.AssetType) (p *domain.TradingPair, created bool, err error) {
	if base == quote {
		return nil, false, domain.ErrInvalidExchange
	}
	if p, ok := r.Find(base, quote); ok {
		return p, false, nil
	}
	p = &domain.TradingPair{ID: r.nextID, Base: base, Quote: quote}
	r.nextID++
	r.pairs[pairKey{base: base, quote: quote}] = p
	r.byID[p.ID] = p
	return p, true, nil
}

// Get returns the pair with the given id.
func (r *PairRegistry) Get(id uint64) (*domain.TradingPair, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// List returns all pairs ordered by id.
func (r *PairRegistry) List() []domain.TradingPair {
	out := make([]domain.TradingPair, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered pairs.
func (r *PairRegistry) Len() int {
	return len(r.byID)
}

// drop removes the most recently created pair and hands its id back.
// Only used to undo a FindOrCreate inside a failed request.
func (r *PairRegistry) drop(id uint64) {
	p, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.pairs, pairKey{base: p.Base, quote: p.Quote})
	if id+1 == r.nextID {
		r.nextID = id
	}
}

// Reset removes every pair and restarts id allocation.
func (r *PairRegistry) Reset() {
	r.pairs = make(map[pairKey]*domain.TradingPair)
	r.byID = make(map[uint64]*domain.TradingPair)
	r.nextID = 0
}
