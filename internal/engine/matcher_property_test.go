package engine

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/store"
)

var propAccounts = []domain.AccountID{"a", "b", "c"}

// newPropMatcher funds every property account with both assets.
func newPropMatcher(t *rapid.T, assets []domain.AssetType) (*Matcher, *store.Ledger) {
	ledger := store.NewLedger()
	wl := store.NewWhitelist("admin")
	for _, id := range propAccounts {
		_, _ = ledger.Create(id)
		_ = wl.Add(id)
		for _, at := range assets {
			q := rapid.Int64Range(0, 5000).Draw(t, "deposit")
			if q > 0 {
				_, _ = ledger.Deposit(id, domain.NewAmount(q, at))
			}
		}
	}
	return NewMatcher(ledger, wl), ledger
}

type matcherState struct {
	pairs     []domain.TradingPair
	pairsNext uint64
	books     map[uint64][]domain.RestingOrder
	booksNext map[uint64]uint64
	accounts  []*domain.Account
}

func captureState(m *Matcher, l *store.Ledger) matcherState {
	s := matcherState{
		pairs:     m.pairs.List(),
		pairsNext: m.pairs.nextID,
		books:     make(map[uint64][]domain.RestingOrder),
		booksNext: make(map[uint64]uint64),
		accounts:  l.List(),
	}
	for id, b := range m.books {
		s.books[id] = b.Orders()
		s.booksNext[id] = b.nextID
	}
	return s
}

func assertSameState(t *rapid.T, before, after matcherState, assets []domain.AssetType) {
	if len(before.pairs) != len(after.pairs) || before.pairsNext != after.pairsNext {
		t.Fatalf("pair registry changed: %d/%d -> %d/%d",
			len(before.pairs), before.pairsNext, len(after.pairs), after.pairsNext)
	}
	if len(before.books) != len(after.books) {
		t.Fatalf("book count changed: %d -> %d", len(before.books), len(after.books))
	}
	for id, orders := range before.books {
		if !sameBook(orders, after.books[id]) {
			t.Fatalf("book %d changed", id)
		}
		if before.booksNext[id] != after.booksNext[id] {
			t.Fatalf("book %d id counter changed", id)
		}
	}
	for i, a := range before.accounts {
		for _, at := range assets {
			if a.Holding(at) != after.accounts[i].Holding(at) {
				t.Fatalf("%s %s changed: %+v -> %+v", a.ID, at.Symbol, a.Holding(at), after.accounts[i].Holding(at))
			}
		}
	}
}

// assertInvariants checks that every resting order is strictly positive,
// that both indexes of every book agree, and that each account's held
// balance is exactly the base its resting orders still offer.
func assertInvariants(t *rapid.T, m *Matcher, l *store.Ledger, assets []domain.AssetType, totals map[domain.AssetType]int64) {
	escrowed := make(map[domain.AccountID]map[domain.AssetType]int64)
	for _, b := range m.books {
		walked := 0
		b.Walk(func(o *domain.RestingOrder) bool {
			walked++
			if o.Base.Quantity <= 0 || o.Quote.Quantity <= 0 {
				t.Fatalf("order %d rests with %s/%s", o.ID, o.Base, o.Quote)
			}
			if escrowed[o.Manager] == nil {
				escrowed[o.Manager] = make(map[domain.AssetType]int64)
			}
			escrowed[o.Manager][o.Base.Type] += o.Base.Quantity
			return true
		})
		if walked != b.Len() {
			t.Fatalf("price index holds %d orders, id index %d", walked, b.Len())
		}
	}

	for _, a := range l.List() {
		for _, at := range assets {
			h := a.Holding(at)
			if h.Available < 0 || h.Held < 0 {
				t.Fatalf("%s has negative %s balance %+v", a.ID, at.Symbol, h)
			}
			if h.Held != escrowed[a.ID][at] {
				t.Fatalf("%s holds %d %s but its orders offer %d", a.ID, h.Held, at.Symbol, escrowed[a.ID][at])
			}
		}
	}
	for _, at := range assets {
		if got := l.Total(at); got != totals[at] {
			t.Fatalf("%s total changed from %d to %d", at.Symbol, totals[at], got)
		}
	}
}

func TestProperty_RandomRequestsPreserveInvariants(t *testing.T) {
	assets := []domain.AssetType{assetX, assetY, assetE}

	rapid.Check(t, func(t *rapid.T) {
		m, l := newPropMatcher(t, assets)
		totals := make(map[domain.AssetType]int64)
		for _, at := range assets {
			totals[at] = l.Total(at)
		}

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			who := rapid.SampledFrom(propAccounts).Draw(t, "who")
			base := rapid.SampledFrom(assets).Draw(t, "base")
			quote := rapid.SampledFrom(assets).Draw(t, "quote")
			bq := rapid.Int64Range(0, 800).Draw(t, "base_qty")
			qq := rapid.Int64Range(0, 800).Draw(t, "quote_qty")

			before := captureState(m, l)
			var err error

			switch op := rapid.IntRange(0, 4).Draw(t, "op"); op {
			case 0, 1:
				_, err = m.CreateOrder(as(who), who, domain.NewAmount(bq, base), domain.NewAmount(qq, quote))
			case 2:
				_, err = m.TradeMarket(as(who), MarketTrade{Seller: who, SellType: quote, Receive: domain.NewAmount(bq, base)})
			case 3:
				_, err = m.TradeLimit(as(who), LimitTrade{Seller: who, Sell: domain.NewAmount(qq, quote), ReceiveType: base})
			case 4:
				var orders []domain.RestingOrder
				if _, orders, err = m.Book(base, quote); err == nil && len(orders) > 0 {
					o := rapid.SampledFrom(orders).Draw(t, "cancel")
					_, err = m.CancelOrder(as(who), o.ID, base, quote)
				}
			}

			if err != nil {
				if err == domain.ErrIncorrectState {
					t.Fatalf("invariant breach surfaced: %v", err)
				}
				assertSameState(t, before, captureState(m, l), assets)
			}
			assertInvariants(t, m, l, assets, totals)
		}
	})
}

func TestProperty_TradeConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m, l, wl := newTestMatcher()
		_, _ = l.Create("taker")
		_ = wl.Add("taker")
		_, _ = l.Deposit("taker", y(1_000_000))

		makers := rapid.IntRange(1, 6).Draw(t, "makers")
		for i := 0; i < makers; i++ {
			id := domain.AccountID(rapid.SampledFrom([]string{"m1", "m2", "m3"}).Draw(t, "maker"))
			if !l.Exists(id) {
				_, _ = l.Create(id)
				_ = wl.Add(id)
				_, _ = l.Deposit(id, x(1_000_000))
			}
			bq := rapid.Int64Range(1, 1000).Draw(t, "base")
			qq := rapid.Int64Range(1, 1000).Draw(t, "quote")
			if _, err := m.CreateOrder(as(id), id, x(bq), y(qq)); err != nil {
				t.Fatalf("create: %v", err)
			}
		}

		takerBefore, _ := l.Get("taker")
		var (
			res *TradeResult
			err error
		)
		if rapid.Bool().Draw(t, "market") {
			res, err = m.TradeMarket(as("taker"), MarketTrade{Seller: "taker", SellType: assetY, Receive: x(rapid.Int64Range(1, 3000).Draw(t, "receive"))})
		} else {
			res, err = m.TradeLimit(as("taker"), LimitTrade{Seller: "taker", Sell: y(rapid.Int64Range(1, 3000).Draw(t, "sell")), ReceiveType: assetX})
		}
		if err != nil {
			if err != domain.ErrUnableToFill {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}

		paid, received := y(0), x(0)
		for _, f := range res.Fills {
			paid = paid.Add(f.Paid)
			received = received.Add(f.Received)
		}
		if !paid.Equal(res.Sold) || !received.Equal(res.Received) {
			t.Fatalf("fills sum to %s/%s, result says %s/%s", paid, received, res.Sold, res.Received)
		}

		takerAfter, _ := l.Get("taker")
		if d := takerBefore.Holding(assetY).Available - takerAfter.Holding(assetY).Available; d != res.Sold.Quantity {
			t.Fatalf("taker paid %d, result says %d", d, res.Sold.Quantity)
		}
		if d := takerAfter.Holding(assetX).Available - takerBefore.Holding(assetX).Available; d != res.Received.Quantity {
			t.Fatalf("taker received %d, result says %d", d, res.Received.Quantity)
		}
	})
}

func TestProperty_CombineIdempotence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m, l, wl := newTestMatcher()
		_, _ = l.Create("m")
		_ = wl.Add("m")
		_, _ = l.Deposit("m", x(1_000_000))

		b := rapid.Int64Range(1, 500).Draw(t, "base")
		q := rapid.Int64Range(1, 500).Draw(t, "quote")
		k1 := rapid.Int64Range(1, 10).Draw(t, "k1")
		k2 := rapid.Int64Range(1, 10).Draw(t, "k2")

		first, err := m.CreateOrder(as("m"), "m", x(b*k1), y(q*k1))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		second, err := m.CreateOrder(as("m"), "m", x(b*k2), y(q*k2))
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		if !second.Combined || second.Order.ID != first.Order.ID {
			t.Fatalf("expected combine into %d, got %+v", first.Order.ID, second)
		}
		_, orders, _ := m.Book(assetX, assetY)
		if len(orders) != 1 {
			t.Fatalf("expected one order, got %d", len(orders))
		}
		if !orders[0].Base.Equal(x(b*(k1+k2))) || !orders[0].Quote.Equal(y(q*(k1+k2))) {
			t.Fatalf("expected summed deposits, got %s/%s", orders[0].Base, orders[0].Quote)
		}
	})
}

func TestProperty_SelfTradeExclusion(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m, l, wl := newTestMatcher()
		for _, id := range []domain.AccountID{"self", "other"} {
			_, _ = l.Create(id)
			_ = wl.Add(id)
			_, _ = l.Deposit(id, x(100_000))
			_, _ = l.Deposit(id, y(100_000))
		}

		n := rapid.IntRange(1, 8).Draw(t, "orders")
		for i := 0; i < n; i++ {
			id := domain.AccountID(rapid.SampledFrom([]string{"self", "other"}).Draw(t, "owner"))
			_, _ = m.CreateOrder(as(id), id,
				x(rapid.Int64Range(1, 500).Draw(t, "base")),
				y(rapid.Int64Range(1, 500).Draw(t, "quote")))
		}

		res, err := m.TradeMarket(as("self"), MarketTrade{Seller: "self", SellType: assetY, Receive: x(rapid.Int64Range(1, 2000).Draw(t, "receive"))})
		if err != nil {
			return
		}
		for _, f := range res.Fills {
			if f.Maker == "self" {
				t.Fatalf("trade matched the requester's own order %d", f.OrderID)
			}
		}
	})
}
