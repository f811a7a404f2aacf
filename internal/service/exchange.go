package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/engine"
	"github.com/efreitasn/tokenexchange/internal/store"
)

// CreateOrderRequest posts Base in exchange for Quote on behalf of Creator.
type CreateOrderRequest struct {
	Creator domain.AccountID
	Base    AmountInput
	Quote   AmountInput
}

// CancelOrderRequest names an order by its id within the (Base, Quote) book.
type CancelOrderRequest struct {
	OrderID uint64
	Base    string
	Quote   string
}

// ExactTradeRequest consumes one order exactly.
type ExactTradeRequest struct {
	Seller  domain.AccountID
	OrderID uint64
	Sell    AmountInput
	Receive AmountInput
}

// MarketTradeRequest buys exactly Receive, paying in SellSymbol.
type MarketTradeRequest struct {
	Seller     domain.AccountID
	SellSymbol string
	Receive    AmountInput
}

// LimitTradeRequest spends at most Sell, receiving ReceiveSymbol.
type LimitTradeRequest struct {
	Seller        domain.AccountID
	Sell          AmountInput
	ReceiveSymbol string
}

// ExchangeService resolves wire requests into engine calls and publishes
// what they commit. Mutations are serialized here as well as in the
// matcher so that events leave in commit order.
type ExchangeService struct {
	mu        sync.Mutex
	matcher   *engine.Matcher
	catalog   *domain.AssetCatalog
	whitelist *store.Whitelist
	trades    *store.TradeStore
	events    *Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewExchangeService creates a new ExchangeService with the given dependencies.
func NewExchangeService(
	matcher *engine.Matcher,
	catalog *domain.AssetCatalog,
	whitelist *store.Whitelist,
	trades *store.TradeStore,
	events *Publisher,
	logger *slog.Logger,
) *ExchangeService {
	return &ExchangeService{
		matcher:   matcher,
		catalog:   catalog,
		whitelist: whitelist,
		trades:    trades,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateOrder validates and posts an order, or adds to the creator's order
// at the same price.
func (s *ExchangeService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*engine.CreateResult, error) {
	if err := validateAccountID("creator", string(req.Creator)); err != nil {
		return nil, err
	}
	base, err := resolveAmount(s.catalog, "base", req.Base)
	if err != nil {
		return nil, err
	}
	quote, err := resolveAmount(s.catalog, "quote", req.Quote)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.matcher.CreateOrder(ctx, req.Creator, base, quote)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		slog.Uint64("pair_id", res.Pair.ID),
		slog.Uint64("order_id", res.Order.ID),
		slog.String("manager", string(res.Order.Manager)),
		slog.String("base", base.String()),
		slog.String("quote", quote.String()),
		slog.Float64("price", res.Order.Price.Float64()),
		slog.Bool("combined", res.Combined),
	)

	payload := NewOrderPayload(res.Order)
	payload.Combined = res.Combined
	s.events.Publish(Event{
		Type:     EventOrderCreated,
		At:       res.Order.CreatedAt,
		Accounts: []domain.AccountID{res.Order.Manager},
		Data:     payload,
	})
	return res, nil
}

// CancelOrder removes an order and releases its remaining base.
func (s *ExchangeService) CancelOrder(ctx context.Context, req CancelOrderRequest) (*domain.RestingOrder, error) {
	base, err := resolveAsset(s.catalog, "base", req.Base)
	if err != nil {
		return nil, err
	}
	quote, err := resolveAsset(s.catalog, "quote", req.Quote)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.matcher.CancelOrder(ctx, req.OrderID, base, quote)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled",
		slog.Uint64("pair_id", order.PairID),
		slog.Uint64("order_id", order.ID),
		slog.String("manager", string(order.Manager)),
		slog.String("released", order.Base.String()),
	)
	s.publishCancelled(*order, CancelReasonRequested)
	return order, nil
}

// TradeExact consumes one order in full.
func (s *ExchangeService) TradeExact(ctx context.Context, req ExactTradeRequest) (*engine.TradeResult, error) {
	if err := validateAccountID("seller", string(req.Seller)); err != nil {
		return nil, err
	}
	sell, err := resolveAmount(s.catalog, "sell", req.Sell)
	if err != nil {
		return nil, err
	}
	receive, err := resolveAmount(s.catalog, "receive", req.Receive)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.matcher.TradeExact(ctx, engine.ExactTrade{
		OrderID: req.OrderID,
		Seller:  req.Seller,
		Sell:    sell,
		Receive: receive,
	})
	if err != nil {
		return nil, err
	}
	s.recordTrade(req.Seller, res)
	return res, nil
}

// TradeMarket sweeps the book until Receive is filled exactly.
func (s *ExchangeService) TradeMarket(ctx context.Context, req MarketTradeRequest) (*engine.TradeResult, error) {
	if err := validateAccountID("seller", string(req.Seller)); err != nil {
		return nil, err
	}
	sellType, err := resolveAsset(s.catalog, "sell_symbol", req.SellSymbol)
	if err != nil {
		return nil, err
	}
	receive, err := resolveAmount(s.catalog, "receive", req.Receive)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.matcher.TradeMarket(ctx, engine.MarketTrade{
		Seller:   req.Seller,
		SellType: sellType,
		Receive:  receive,
	})
	if err != nil {
		return nil, err
	}
	s.recordTrade(req.Seller, res)
	return res, nil
}

// TradeLimit sweeps the book spending at most Sell.
func (s *ExchangeService) TradeLimit(ctx context.Context, req LimitTradeRequest) (*engine.TradeResult, error) {
	if err := validateAccountID("seller", string(req.Seller)); err != nil {
		return nil, err
	}
	sell, err := resolveAmount(s.catalog, "sell", req.Sell)
	if err != nil {
		return nil, err
	}
	receiveType, err := resolveAsset(s.catalog, "receive_symbol", req.ReceiveSymbol)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.matcher.TradeLimit(ctx, engine.LimitTrade{
		Seller:      req.Seller,
		Sell:        sell,
		ReceiveType: receiveType,
	})
	if err != nil {
		return nil, err
	}
	s.recordTrade(req.Seller, res)
	return res, nil
}

// Reset drops every pair and order and clears trade history. Only the
// administrator may reset; every dropped order is reported as cancelled.
func (s *ExchangeService) Reset(ctx context.Context) ([]domain.RestingOrder, error) {
	if err := s.whitelist.AuthorizeAdmin(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dropped, err := s.matcher.Reset()
	if err != nil {
		return nil, err
	}
	s.trades.Reset()

	s.logger.Warn("exchange reset", slog.Int("orders_released", len(dropped)))
	for _, o := range dropped {
		s.publishCancelled(o, CancelReasonReset)
	}
	return dropped, nil
}

// recordTrade stores the fills of a committed trade and publishes one
// trade.executed event per fill to both counterparties.
func (s *ExchangeService) recordTrade(taker domain.AccountID, res *engine.TradeResult) {
	s.trades.Append(res.Fills...)

	s.logger.Info("trade executed",
		slog.Uint64("pair_id", res.Pair.ID),
		slog.String("kind", string(res.Kind)),
		slog.String("taker", string(taker)),
		slog.Int("fills", len(res.Fills)),
		slog.String("sold", res.Sold.String()),
		slog.String("received", res.Received.String()),
	)

	for _, f := range res.Fills {
		s.events.Publish(Event{
			Type:     EventTradeExecuted,
			At:       f.ExecutedAt,
			Accounts: []domain.AccountID{f.Taker, f.Maker},
			Data:     NewFillPayload(f),
		})
	}
}

func (s *ExchangeService) publishCancelled(o domain.RestingOrder, reason string) {
	payload := NewOrderPayload(o)
	payload.Reason = reason
	s.events.Publish(Event{
		Type:     EventOrderCancelled,
		At:       s.now(),
		Accounts: []domain.AccountID{o.Manager},
		Data:     payload,
	})
}
