package engine

import (
	"time"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/google/btree"
)

// bookKey positions a resting order in price order. Orders at the same
// price keep insertion order because ids only grow.
type bookKey struct {
	price domain.Price
	id    uint64
}

// keyLess orders the book by price ascending, then order id ascending.
func keyLess(a, b bookKey) bool {
	if c := a.price.Cmp(b.price); c != 0 {
		return c < 0
	}
	return a.id < b.id
}

// PriceLevel aggregates every resting order posted at one price. When a
// total would overflow it is capped at the largest quantity and Saturated
// is set; OrderCount still counts every order.
type PriceLevel struct {
	Price      domain.Price
	TotalBase  domain.Amount
	TotalQuote domain.Amount
	OrderCount int
	Saturated  bool
}

// OrderBook holds the resting orders of a single trading pair. Each order
// record is stored once in index; the B-tree only holds (price, id) keys
// pointing into it, so a lookup by id and a walk by price always see the
// same set. The book is not safe for concurrent use; the Matcher
// serializes access.
type OrderBook struct {
	pair   domain.TradingPair
	tree   *btree.BTreeG[bookKey]
	index  map[uint64]*domain.RestingOrder
	nextID uint64
}

// NewOrderBook creates an empty order book for the given pair.
func NewOrderBook(pair domain.TradingPair) *OrderBook {
	const degree = 32
	return &OrderBook{
		pair:  pair,
		tree:  btree.NewG[bookKey](degree, keyLess),
		index: make(map[uint64]*domain.RestingOrder),
	}
}

// Pair returns the trading pair this book belongs to.
func (ob *OrderBook) Pair() domain.TradingPair {
	return ob.pair
}

// Get returns the live order record with the given id.
func (ob *OrderBook) Get(id uint64) (*domain.RestingOrder, bool) {
	o, ok := ob.index[id]
	return o, ok
}

// InsertOrCombine posts base for quote on behalf of manager. If the manager
// already has an order at exactly the same price the amounts are added to
// it and its id is kept; otherwise a new order is inserted under a fresh id.
// The returned order is the live record.
func (ob *OrderBook) InsertOrCombine(manager domain.AccountID, base, quote domain.Amount, now time.Time) (order *domain.RestingOrder, combined bool) {
	price := domain.NewPrice(base, quote)

	if existing := ob.findCombinable(manager, price); existing != nil {
		// Partial fills may have moved the remaining ratio away from the
		// posted price, so the recomputed price can differ and the key
		// must move with it.
		ob.tree.Delete(bookKey{price: existing.Price, id: existing.ID})
		existing.Base = existing.Base.Add(base)
		existing.Quote = existing.Quote.Add(quote)
		existing.Price = domain.NewPrice(existing.Base, existing.Quote)
		ob.tree.ReplaceOrInsert(bookKey{price: existing.Price, id: existing.ID})
		return existing, true
	}

	order = &domain.RestingOrder{
		ID:        ob.nextID,
		PairID:    ob.pair.ID,
		Manager:   manager,
		Base:      base,
		Quote:     quote,
		Price:     price,
		CreatedAt: now,
	}
	ob.nextID++
	ob.insert(order)
	return order, false
}

// findCombinable returns the manager's order resting at exactly price.
func (ob *OrderBook) findCombinable(manager domain.AccountID, price domain.Price) *domain.RestingOrder {
	var found *domain.RestingOrder
	ob.tree.AscendGreaterOrEqual(bookKey{price: price}, func(k bookKey) bool {
		if !k.price.Equal(price) {
			return false
		}
		if o := ob.index[k.id]; o.Manager == manager {
			found = o
			return false
		}
		return true
	})
	return found
}

func (ob *OrderBook) insert(o *domain.RestingOrder) {
	ob.tree.ReplaceOrInsert(bookKey{price: o.Price, id: o.ID})
	ob.index[o.ID] = o
}

// Remove deletes an order from both indexes and returns the removed record.
func (ob *OrderBook) Remove(id uint64) (*domain.RestingOrder, error) {
	o, ok := ob.index[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	delete(ob.index, id)
	ob.tree.Delete(bookKey{price: o.Price, id: o.ID})
	return o, nil
}

// Reduce subtracts baseDelta and quoteDelta from an order in one step.
// Leaving either side at or below zero is an invariant breach: callers
// remove an order they exhaust instead of reducing it to zero.
func (ob *OrderBook) Reduce(id uint64, baseDelta, quoteDelta domain.Amount) error {
	o, ok := ob.index[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if baseDelta.Type != o.Base.Type || quoteDelta.Type != o.Quote.Type ||
		baseDelta.Quantity < 0 || quoteDelta.Quantity < 0 ||
		baseDelta.Quantity >= o.Base.Quantity || quoteDelta.Quantity >= o.Quote.Quantity {
		return domain.ErrIncorrectState
	}
	o.Base = o.Base.Sub(baseDelta)
	o.Quote = o.Quote.Sub(quoteDelta)
	return nil
}

// restore puts a saved copy of an order back, replacing whatever the book
// currently holds under that id.
func (ob *OrderBook) restore(saved *domain.RestingOrder) {
	if cur, ok := ob.index[saved.ID]; ok {
		ob.tree.Delete(bookKey{price: cur.Price, id: cur.ID})
	}
	ob.insert(saved.Clone())
}

// unInsert removes a freshly inserted order and hands its id back.
func (ob *OrderBook) unInsert(id uint64) {
	if _, err := ob.Remove(id); err != nil {
		return
	}
	if id+1 == ob.nextID {
		ob.nextID = id
	}
}

// Len returns the number of resting orders.
func (ob *OrderBook) Len() int {
	return len(ob.index)
}

// Walk visits orders by ascending price, then insertion order. fn returns
// false to stop. fn must not mutate the book; use a Cursor for that.
func (ob *OrderBook) Walk(fn func(*domain.RestingOrder) bool) {
	ob.tree.Ascend(func(k bookKey) bool {
		return fn(ob.index[k.id])
	})
}

// Orders returns copies of all resting orders in price order.
func (ob *OrderBook) Orders() []domain.RestingOrder {
	out := make([]domain.RestingOrder, 0, ob.Len())
	ob.Walk(func(o *domain.RestingOrder) bool {
		out = append(out, *o)
		return true
	})
	return out
}

// Depth aggregates the book into at most n price levels, lowest price first.
func (ob *OrderBook) Depth(n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	ob.Walk(func(o *domain.RestingOrder) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price.Equal(o.Price) {
			last := &levels[len(levels)-1]
			var okBase, okQuote bool
			last.TotalBase, okBase = last.TotalBase.SaturatingAdd(o.Base)
			last.TotalQuote, okQuote = last.TotalQuote.SaturatingAdd(o.Quote)
			last.Saturated = last.Saturated || !okBase || !okQuote
			last.OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:      o.Price,
			TotalBase:  o.Base,
			TotalQuote: o.Quote,
			OrderCount: 1,
		})
		return true
	})
	return levels
}

// Cursor walks a book in price order while the caller mutates it. Each
// call to Next resumes strictly after the last key it returned, so an
// order removed or reduced in between is never revisited and later orders
// are read from the live state.
type Cursor struct {
	book    *OrderBook
	last    bookKey
	started bool
}

// Cursor returns a cursor positioned before the first order.
func (ob *OrderBook) Cursor() *Cursor {
	return &Cursor{book: ob}
}

// Next returns the next order, or false when the book is exhausted.
func (c *Cursor) Next() (*domain.RestingOrder, bool) {
	var (
		next  bookKey
		found bool
	)
	visit := func(k bookKey) bool {
		if c.started && !keyLess(c.last, k) {
			return true
		}
		next, found = k, true
		return false
	}
	if c.started {
		c.book.tree.AscendGreaterOrEqual(c.last, visit)
	} else {
		c.book.tree.Ascend(visit)
	}
	if !found {
		return nil, false
	}
	c.last, c.started = next, true
	return c.book.index[next.id], true
}
