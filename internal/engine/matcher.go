package engine

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

// Custody moves funds on the external ledger. Apply must execute the whole
// batch or none of it.
type Custody interface {
	Apply(batch []domain.Instruction) error
}

// AccessGate answers authorization and whitelist questions for the engine.
type AccessGate interface {
	// Authorize fails with domain.ErrUnauthorized unless the request in ctx
	// may act for account.
	Authorize(ctx context.Context, account domain.AccountID) error
	IsWhitelisted(account domain.AccountID) bool
}

// ExactTrade consumes one resting order at exactly its posted size.
type ExactTrade struct {
	OrderID uint64
	Seller  domain.AccountID
	Sell    domain.Amount // must equal the order's quote
	Receive domain.Amount // must equal the order's base
}

// MarketTrade obtains exactly Receive, selling as much SellType as needed.
type MarketTrade struct {
	Seller   domain.AccountID
	SellType domain.AssetType
	Receive  domain.Amount
}

// LimitTrade sells exactly Sell, receiving as much ReceiveType as the book
// provides.
type LimitTrade struct {
	Seller      domain.AccountID
	Sell        domain.Amount
	ReceiveType domain.AssetType
}

// TradeResult is the outcome of a successful trade request.
type TradeResult struct {
	Pair     domain.TradingPair
	Kind     domain.TradeKind
	Fills    []domain.Fill
	Sold     domain.Amount
	Received domain.Amount
}

// CreateResult is the outcome of posting an order.
type CreateResult struct {
	Pair     domain.TradingPair
	Order    domain.RestingOrder
	Combined bool
}

// Matcher is the exchange core: it owns the pair registry and one order
// book per pair, and executes order management and trade requests against
// them. Requests run one at a time to completion. A request either commits
// every book change together with its settlement batch, or fails and
// leaves books, registry and balances exactly as they were.
type Matcher struct {
	mu      sync.Mutex
	pairs   *PairRegistry
	books   map[uint64]*OrderBook
	custody Custody
	gate    AccessGate
	now     func() time.Time
}

// NewMatcher creates a Matcher settling against custody and checking
// callers with gate.
func NewMatcher(custody Custody, gate AccessGate) *Matcher {
	return &Matcher{
		pairs:   NewPairRegistry(),
		books:   make(map[uint64]*OrderBook),
		custody: custody,
		gate:    gate,
		now:     time.Now,
	}
}

// CreateOrder posts baseDeposit in exchange for quoteDeposit, creating the
// pair on first use and combining with the creator's order at the same
// price if there is one. The base deposit is escrowed; if escrow fails the
// book is left untouched.
func (m *Matcher) CreateOrder(ctx context.Context, creator domain.AccountID, baseDeposit, quoteDeposit domain.Amount) (_ *CreateResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.admit(ctx, creator); err != nil {
		return nil, err
	}
	if !baseDeposit.Positive() || !quoteDeposit.Positive() {
		return nil, domain.ErrInvalidAmount
	}
	if baseDeposit.Type == quoteDeposit.Type {
		return nil, domain.ErrInvalidExchange
	}

	tx := &txn{}
	defer func() {
		if err != nil {
			tx.rollback()
		}
	}()

	book, err := m.findOrCreateBook(tx, baseDeposit.Type, quoteDeposit.Type)
	if err != nil {
		return nil, err
	}

	price := domain.NewPrice(baseDeposit, quoteDeposit)
	if existing := book.findCombinable(creator, price); existing != nil {
		if existing.Base.Quantity > math.MaxInt64-baseDeposit.Quantity ||
			existing.Quote.Quantity > math.MaxInt64-quoteDeposit.Quantity {
			return nil, domain.ErrInvalidAmount
		}
		saved := existing.Clone()
		tx.onRollback(func() { book.restore(saved) })
	}

	order, combined := book.InsertOrCombine(creator, baseDeposit, quoteDeposit, m.now())
	if !combined {
		id := order.ID
		tx.onRollback(func() { book.unInsert(id) })
	}

	tx.emit(domain.Escrow(creator, baseDeposit))
	if err := m.commit(tx); err != nil {
		return nil, err
	}

	return &CreateResult{Pair: book.Pair(), Order: *order, Combined: combined}, nil
}

// CancelOrder removes an order from the (baseType, quoteType) book and
// releases its remaining base back to the manager. Only the manager may
// cancel. Cancelling does not require the manager to be whitelisted.
func (m *Matcher) CancelOrder(ctx context.Context, orderID uint64, baseType, quoteType domain.AssetType) (_ *domain.RestingOrder, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pair, ok := m.pairs.Find(baseType, quoteType)
	if !ok {
		return nil, domain.ErrPairNotFound
	}
	book := m.books[pair.ID]

	order, ok := book.Get(orderID)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if err := m.gate.Authorize(ctx, order.Manager); err != nil {
		return nil, err
	}

	tx := &txn{}
	defer func() {
		if err != nil {
			tx.rollback()
		}
	}()

	removed, err := m.removeOrder(tx, book, orderID)
	if err != nil {
		return nil, err
	}
	tx.emit(domain.Release(removed.Manager, removed.Base))
	if err := m.commit(tx); err != nil {
		return nil, err
	}
	return removed, nil
}

// TradeExact consumes one specific resting order in full. The request's
// receive and sell amounts must equal the order's base and quote exactly.
func (m *Matcher) TradeExact(ctx context.Context, req ExactTrade) (_ *TradeResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.admit(ctx, req.Seller); err != nil {
		return nil, err
	}
	if !req.Sell.Valid() || !req.Receive.Valid() {
		return nil, domain.ErrInvalidAmount
	}
	if req.Sell.Type == req.Receive.Type {
		return nil, domain.ErrInvalidExchange
	}
	book, err := m.book(req.Receive.Type, req.Sell.Type)
	if err != nil {
		return nil, err
	}

	order, ok := book.Get(req.OrderID)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if !order.Base.Equal(req.Receive) || !order.Quote.Equal(req.Sell) {
		return nil, domain.ErrAmountMismatch
	}

	tx := &txn{}
	defer func() {
		if err != nil {
			tx.rollback()
		}
	}()

	removed, err := m.removeOrder(tx, book, req.OrderID)
	if err != nil {
		return nil, err
	}
	fill := m.settle(tx, domain.TradeKindExact, req.Seller, removed, req.Sell, req.Receive)
	if err := m.commit(tx); err != nil {
		return nil, err
	}

	return &TradeResult{
		Pair:     book.Pair(),
		Kind:     domain.TradeKindExact,
		Fills:    []domain.Fill{fill},
		Sold:     req.Sell,
		Received: req.Receive,
	}, nil
}

// TradeMarket sweeps the book in price order until exactly req.Receive has
// been obtained, paying whatever quote each consumed order asks. If the
// book runs out first the whole request fails with ErrUnableToFill.
func (m *Matcher) TradeMarket(ctx context.Context, req MarketTrade) (_ *TradeResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.admit(ctx, req.Seller); err != nil {
		return nil, err
	}
	if !req.Receive.Valid() || !req.SellType.Valid() {
		return nil, domain.ErrInvalidAmount
	}
	baseType, quoteType := req.Receive.Type, req.SellType
	if baseType == quoteType {
		return nil, domain.ErrInvalidExchange
	}
	book, err := m.book(baseType, quoteType)
	if err != nil {
		return nil, err
	}
	if req.Receive.Quantity <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	tx := &txn{}
	defer func() {
		if err != nil {
			tx.rollback()
		}
	}()

	result := &TradeResult{
		Pair:     book.Pair(),
		Kind:     domain.TradeKindMarket,
		Sold:     domain.NewAmount(0, quoteType),
		Received: domain.NewAmount(0, baseType),
	}

	cur := book.Cursor()
	for result.Received.Less(req.Receive) {
		order, ok := cur.Next()
		if !ok {
			break
		}
		if !eligible(order, req.Seller, baseType, quoteType) {
			continue
		}

		take := domain.Min(order.Base, req.Receive.Sub(result.Received))
		cost, err := Convert(take, quoteType, order)
		if err != nil {
			return nil, err
		}

		snapshot := order.Clone()
		if take.Equal(order.Base) {
			if _, err := m.removeOrder(tx, book, order.ID); err != nil {
				return nil, err
			}
		} else if err := m.reduceOrder(tx, book, order.ID, take, cost); err != nil {
			return nil, err
		}

		result.Fills = append(result.Fills, m.settle(tx, domain.TradeKindMarket, req.Seller, snapshot, cost, take))
		result.Received = result.Received.Add(take)
		result.Sold = result.Sold.Add(cost)
	}

	if !result.Received.Equal(req.Receive) {
		return nil, domain.ErrUnableToFill
	}
	if err := m.commit(tx); err != nil {
		return nil, err
	}
	return result, nil
}

// TradeLimit sweeps the book in price order until exactly req.Sell has been
// spent, receiving whatever base the consumed orders yield. If the book
// runs out first the whole request fails with ErrUnableToFill.
func (m *Matcher) TradeLimit(ctx context.Context, req LimitTrade) (_ *TradeResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.admit(ctx, req.Seller); err != nil {
		return nil, err
	}
	if !req.Sell.Valid() || !req.ReceiveType.Valid() {
		return nil, domain.ErrInvalidAmount
	}
	baseType, quoteType := req.ReceiveType, req.Sell.Type
	if baseType == quoteType {
		return nil, domain.ErrInvalidExchange
	}
	book, err := m.book(baseType, quoteType)
	if err != nil {
		return nil, err
	}
	if req.Sell.Quantity <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	tx := &txn{}
	defer func() {
		if err != nil {
			tx.rollback()
		}
	}()

	result := &TradeResult{
		Pair:     book.Pair(),
		Kind:     domain.TradeKindLimit,
		Sold:     domain.NewAmount(0, quoteType),
		Received: domain.NewAmount(0, baseType),
	}

	cur := book.Cursor()
	for result.Sold.Less(req.Sell) {
		order, ok := cur.Next()
		if !ok {
			break
		}
		if !eligible(order, req.Seller, baseType, quoteType) {
			continue
		}

		take := domain.Min(order.Quote, req.Sell.Sub(result.Sold))
		output, err := Convert(take, baseType, order)
		if err != nil {
			return nil, err
		}

		snapshot := order.Clone()
		if take.Equal(order.Quote) {
			if _, err := m.removeOrder(tx, book, order.ID); err != nil {
				return nil, err
			}
		} else if err := m.reduceOrder(tx, book, order.ID, output, take); err != nil {
			return nil, err
		}

		result.Fills = append(result.Fills, m.settle(tx, domain.TradeKindLimit, req.Seller, snapshot, take, output))
		result.Sold = result.Sold.Add(take)
		result.Received = result.Received.Add(output)
	}

	if !result.Sold.Equal(req.Sell) {
		return nil, domain.ErrUnableToFill
	}
	if err := m.commit(tx); err != nil {
		return nil, err
	}
	return result, nil
}

// eligible reports whether order may be matched by a trade from seller
// exchanging quoteType for baseType. Sellers never match their own orders.
func eligible(order *domain.RestingOrder, seller domain.AccountID, baseType, quoteType domain.AssetType) bool {
	return order.Manager != seller &&
		order.Base.Type == baseType &&
		order.Quote.Type == quoteType
}

// admit runs the access checks every trade and create request starts with.
func (m *Matcher) admit(ctx context.Context, account domain.AccountID) error {
	if err := m.gate.Authorize(ctx, account); err != nil {
		return err
	}
	if !m.gate.IsWhitelisted(account) {
		return domain.ErrNotWhitelisted
	}
	return nil
}

// book resolves an existing pair's order book. Trades never create pairs.
func (m *Matcher) book(base, quote domain.AssetType) (*OrderBook, error) {
	pair, ok := m.pairs.Find(base, quote)
	if !ok {
		return nil, domain.ErrPairNotFound
	}
	return m.books[pair.ID], nil
}

func (m *Matcher) findOrCreateBook(tx *txn, base, quote domain.AssetType) (*OrderBook, error) {
	pair, created, err := m.pairs.FindOrCreate(base, quote)
	if err != nil {
		return nil, err
	}
	if !created {
		return m.books[pair.ID], nil
	}
	book := NewOrderBook(*pair)
	m.books[pair.ID] = book
	id := pair.ID
	tx.onRollback(func() {
		delete(m.books, id)
		m.pairs.drop(id)
	})
	return book, nil
}

func (m *Matcher) removeOrder(tx *txn, book *OrderBook, id uint64) (*domain.RestingOrder, error) {
	removed, err := book.Remove(id)
	if err != nil {
		return nil, err
	}
	saved := removed.Clone()
	tx.onRollback(func() { book.restore(saved) })
	return saved.Clone(), nil
}

func (m *Matcher) reduceOrder(tx *txn, book *OrderBook, id uint64, baseDelta, quoteDelta domain.Amount) error {
	order, ok := book.Get(id)
	if !ok {
		return domain.ErrOrderNotFound
	}
	saved := order.Clone()
	if err := book.Reduce(id, baseDelta, quoteDelta); err != nil {
		return err
	}
	tx.onRollback(func() { book.restore(saved) })
	return nil
}

// settle queues the fund movements of one match: the taker escrows and pays
// paid to the maker, and the maker's escrowed base pays received to the
// taker.
func (m *Matcher) settle(tx *txn, kind domain.TradeKind, taker domain.AccountID, order *domain.RestingOrder, paid, received domain.Amount) domain.Fill {
	tx.emit(
		domain.Escrow(taker, paid),
		domain.Settle(taker, order.Manager, paid),
		domain.Settle(order.Manager, taker, received),
	)
	return domain.Fill{
		TradeID:    uuid.New().String(),
		OrderID:    order.ID,
		PairID:     order.PairID,
		Kind:       kind,
		Taker:      taker,
		Maker:      order.Manager,
		Paid:       paid,
		Received:   received,
		ExecutedAt: m.now(),
	}
}

func (m *Matcher) commit(tx *txn) error {
	if len(tx.batch) == 0 {
		return nil
	}
	return m.custody.Apply(tx.batch)
}

// QuoteLevel is the part of a simulated market fill taken at one price.
type QuoteLevel struct {
	Price    domain.Price
	Received domain.Amount
	Cost     domain.Amount
}

// QuoteResult estimates a market trade without executing it. Saturated
// means the cost exceeded the largest representable quantity: Cost and the
// last level's Cost are capped and the walk stopped there, so the trade
// could never be paid for.
type QuoteResult struct {
	Pair          domain.TradingPair
	Available     domain.Amount
	Cost          domain.Amount
	FullyFillable bool
	Saturated     bool
	Levels        []QuoteLevel
}

// Quote performs a read-only walk of the book to estimate what a market
// trade by seller for receive would cost. It applies the same eligibility
// and conversion rules as TradeMarket, so a fully fillable quote predicts
// the trade's outcome as long as the book does not change in between.
func (m *Matcher) Quote(seller domain.AccountID, sellType domain.AssetType, receive domain.Amount) (*QuoteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !receive.Positive() || !sellType.Valid() {
		return nil, domain.ErrInvalidAmount
	}
	if receive.Type == sellType {
		return nil, domain.ErrInvalidExchange
	}
	book, err := m.book(receive.Type, sellType)
	if err != nil {
		return nil, err
	}

	result := &QuoteResult{
		Pair:      book.Pair(),
		Available: domain.NewAmount(0, receive.Type),
		Cost:      domain.NewAmount(0, sellType),
		Levels:    make([]QuoteLevel, 0),
	}

	var convErr error
	book.Walk(func(o *domain.RestingOrder) bool {
		if !result.Available.Less(receive) {
			return false
		}
		if !eligible(o, seller, receive.Type, sellType) {
			return true
		}
		take := domain.Min(o.Base, receive.Sub(result.Available))
		cost, err := Convert(take, sellType, o)
		if err != nil {
			convErr = err
			return false
		}
		result.Available = result.Available.Add(take)
		var ok bool
		if result.Cost, ok = result.Cost.SaturatingAdd(cost); !ok {
			result.Saturated = true
		}

		if n := len(result.Levels); n > 0 && result.Levels[n-1].Price.Equal(o.Price) {
			lvl := &result.Levels[n-1]
			lvl.Received = lvl.Received.Add(take)
			if lvl.Cost, ok = lvl.Cost.SaturatingAdd(cost); !ok {
				result.Saturated = true
			}
		} else {
			result.Levels = append(result.Levels, QuoteLevel{Price: o.Price, Received: take, Cost: cost})
		}
		return !result.Saturated
	})
	if convErr != nil {
		return nil, convErr
	}

	result.FullyFillable = !result.Saturated && result.Available.Equal(receive)
	return result, nil
}

// Book returns the pair and a snapshot of its resting orders in traversal
// order.
func (m *Matcher) Book(base, quote domain.AssetType) (domain.TradingPair, []domain.RestingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, err := m.book(base, quote)
	if err != nil {
		return domain.TradingPair{}, nil, err
	}
	return book.Pair(), book.Orders(), nil
}

// Depth returns up to n aggregated price levels of the pair's book.
func (m *Matcher) Depth(base, quote domain.AssetType, n int) (domain.TradingPair, []PriceLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, err := m.book(base, quote)
	if err != nil {
		return domain.TradingPair{}, nil, err
	}
	return book.Pair(), book.Depth(n), nil
}

// Order returns a copy of one resting order.
func (m *Matcher) Order(base, quote domain.AssetType, id uint64) (*domain.RestingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, err := m.book(base, quote)
	if err != nil {
		return nil, err
	}
	o, ok := book.Get(id)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o.Clone(), nil
}

// Pairs lists every registered pair ordered by id.
func (m *Matcher) Pairs() []domain.TradingPair {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairs.List()
}

// Pair returns the registered pair (base, quote).
func (m *Matcher) Pair(base, quote domain.AssetType) (domain.TradingPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pairs.Find(base, quote)
	if !ok {
		return domain.TradingPair{}, domain.ErrPairNotFound
	}
	return *p, nil
}

// Reset drops every pair and every resting order, releasing each order's
// remaining base to its manager. Nothing changes if the release fails.
func (m *Matcher) Reset() ([]domain.RestingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &txn{}
	var dropped []domain.RestingOrder
	for _, p := range m.pairs.List() {
		for _, o := range m.books[p.ID].Orders() {
			dropped = append(dropped, o)
			tx.emit(domain.Release(o.Manager, o.Base))
		}
	}
	if err := m.commit(tx); err != nil {
		return nil, err
	}
	m.pairs.Reset()
	m.books = make(map[uint64]*OrderBook)
	return dropped, nil
}
