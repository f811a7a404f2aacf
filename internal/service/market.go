package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/engine"
	"github.com/efreitasn/tokenexchange/internal/store"
)

const (
	defaultTradeLimit = 50
	maxTradeLimit     = 100
)

// PriceResponse is the reference price of a pair.
type PriceResponse struct {
	Pair           domain.TradingPair
	CurrentPrice   *domain.Price // nil when the pair never traded
	Window         string
	TradesInWindow int
	LastTradeAt    *time.Time
}

// BookResponse is an aggregated snapshot of a pair's book.
type BookResponse struct {
	Pair       domain.TradingPair
	Levels     []engine.PriceLevel
	SnapshotAt time.Time
}

// QuoteResponse estimates a market trade without placing it.
type QuoteResponse struct {
	Requested domain.Amount
	Result    *engine.QuoteResult
	QuotedAt  time.Time
}

// MarketService answers read-only queries about pairs, books and trades.
type MarketService struct {
	matcher    *engine.Matcher
	catalog    *domain.AssetCatalog
	trades     *store.TradeStore
	vwapWindow time.Duration
	now        func() time.Time
}

// NewMarketService creates a new MarketService with the given dependencies.
func NewMarketService(
	matcher *engine.Matcher,
	catalog *domain.AssetCatalog,
	trades *store.TradeStore,
	vwapWindow time.Duration,
) *MarketService {
	return &MarketService{
		matcher:    matcher,
		catalog:    catalog,
		trades:     trades,
		vwapWindow: vwapWindow,
		now:        time.Now,
	}
}

// ListAssets returns every listed asset ordered by symbol.
func (s *MarketService) ListAssets() []domain.AssetType {
	assets := s.catalog.List()
	sortAssets(assets)
	return assets
}

// ListPairs returns every pair ordered by id.
func (s *MarketService) ListPairs() []domain.TradingPair {
	return s.matcher.Pairs()
}

// GetBook returns the cheapest depth price levels of the (base, quote) book.
func (s *MarketService) GetBook(base, quote string, depth int) (*BookResponse, error) {
	if depth < 1 || depth > 50 {
		return nil, &domain.ValidationError{Message: "depth must be between 1 and 50"}
	}
	b, q, err := s.assets(base, quote)
	if err != nil {
		return nil, err
	}
	pair, levels, err := s.matcher.Depth(b, q, depth)
	if err != nil {
		return nil, err
	}
	return &BookResponse{Pair: pair, Levels: levels, SnapshotAt: s.now()}, nil
}

// GetOrders returns every resting order of the (base, quote) book in
// matching order.
func (s *MarketService) GetOrders(base, quote string) (domain.TradingPair, []domain.RestingOrder, error) {
	b, q, err := s.assets(base, quote)
	if err != nil {
		return domain.TradingPair{}, nil, err
	}
	return s.matcher.Book(b, q)
}

// GetOrder returns one resting order.
func (s *MarketService) GetOrder(base, quote string, id uint64) (*domain.RestingOrder, error) {
	b, q, err := s.assets(base, quote)
	if err != nil {
		return nil, err
	}
	return s.matcher.Order(b, q, id)
}

// GetTrades returns the most recent fills of a pair, newest first. A zero
// limit selects the default.
func (s *MarketService) GetTrades(base, quote string, limit int) (domain.TradingPair, []*domain.Fill, error) {
	if limit == 0 {
		limit = defaultTradeLimit
	}
	if limit < 1 || limit > maxTradeLimit {
		return domain.TradingPair{}, nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit must be between 1 and %d", maxTradeLimit),
		}
	}
	pair, err := s.pair(base, quote)
	if err != nil {
		return domain.TradingPair{}, nil, err
	}
	return pair, s.trades.ListByPair(pair.ID, limit), nil
}

// GetQuote simulates a market trade in which seller receives receive of
// the pair's base and pays in its quote. An empty seller excludes nobody.
func (s *MarketService) GetQuote(seller domain.AccountID, base, quote string, quantity string) (*QuoteResponse, error) {
	b, q, err := s.assets(base, quote)
	if err != nil {
		return nil, err
	}
	receive, err := resolveAmount(s.catalog, "receive", AmountInput{Quantity: quantity, Symbol: b.Symbol})
	if err != nil {
		return nil, err
	}
	if !receive.Positive() {
		return nil, &domain.ValidationError{Message: "receive must be positive"}
	}
	res, err := s.matcher.Quote(seller, q, receive)
	if err != nil {
		return nil, err
	}
	return &QuoteResponse{Requested: receive, Result: res, QuotedAt: s.now()}, nil
}

// GetPrice returns the volume weighted price of the pair's fills over the
// configured window, in whole base units per whole quote unit. It falls
// back to the last fill when nothing traded inside the window.
func (s *MarketService) GetPrice(base, quote string) (*PriceResponse, error) {
	pair, err := s.pair(base, quote)
	if err != nil {
		return nil, err
	}

	resp := &PriceResponse{Pair: pair, Window: formatDuration(s.vwapWindow)}
	last, ok := s.trades.Last(pair.ID)
	if !ok {
		return resp, nil
	}
	resp.LastTradeAt = &last.ExecutedAt

	windowStart := s.now().Add(-s.vwapWindow)
	received := domain.NewAmount(0, pair.Base)
	paid := domain.NewAmount(0, pair.Quote)
	for _, f := range s.trades.ListByPair(pair.ID, 0) {
		if f.ExecutedAt.Before(windowStart) {
			break
		}
		if received.Quantity > math.MaxInt64-f.Received.Quantity ||
			paid.Quantity > math.MaxInt64-f.Paid.Quantity {
			break
		}
		received = received.Add(f.Received)
		paid = paid.Add(f.Paid)
		resp.TradesInWindow++
	}

	switch {
	case paid.Quantity > 0 && received.Quantity > 0:
		p := domain.NewPrice(received, paid)
		resp.CurrentPrice = &p
	case last.Paid.Quantity > 0 && last.Received.Quantity > 0:
		p := domain.NewPrice(last.Received, last.Paid)
		resp.CurrentPrice = &p
	}
	return resp, nil
}

func (s *MarketService) assets(base, quote string) (domain.AssetType, domain.AssetType, error) {
	b, err := resolveAsset(s.catalog, "base", base)
	if err != nil {
		return domain.AssetType{}, domain.AssetType{}, err
	}
	q, err := resolveAsset(s.catalog, "quote", quote)
	if err != nil {
		return domain.AssetType{}, domain.AssetType{}, err
	}
	return b, q, nil
}

func (s *MarketService) pair(base, quote string) (domain.TradingPair, error) {
	b, q, err := s.assets(base, quote)
	if err != nil {
		return domain.TradingPair{}, err
	}
	return s.matcher.Pair(b, q)
}

func sortAssets(assets []domain.AssetType) {
	sort.Slice(assets, func(i, j int) bool {
		if assets[i].Symbol != assets[j].Symbol {
			return assets[i].Symbol < assets[j].Symbol
		}
		return assets[i].Issuer < assets[j].Issuer
	})
}

// formatDuration converts a time.Duration to a human-readable string
// like "5m" for the window field.
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	minutes := int(d.Minutes())
	if d == time.Duration(minutes)*time.Minute && minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return d.String()
}
