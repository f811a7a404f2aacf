package handler

import (
	"net/http"

	"github.com/efreitasn/tokenexchange/internal/engine"
	"github.com/efreitasn/tokenexchange/internal/service"
)

// TradeHandler handles HTTP requests for the three trade endpoints.
type TradeHandler struct {
	exchangeSvc *service.ExchangeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(exchangeSvc *service.ExchangeService) *TradeHandler {
	return &TradeHandler{exchangeSvc: exchangeSvc}
}

// exactTradeRequest is the JSON request body for POST /trades/exact.
type exactTradeRequest struct {
	AccountID string      `json:"account_id"`
	OrderID   *uint64     `json:"order_id"`
	Sell      amountInput `json:"sell"`
	Receive   amountInput `json:"receive"`
}

// marketTradeRequest is the JSON request body for POST /trades/market.
type marketTradeRequest struct {
	AccountID  string      `json:"account_id"`
	SellSymbol string      `json:"sell_symbol"`
	Receive    amountInput `json:"receive"`
}

// limitTradeRequest is the JSON request body for POST /trades/limit.
type limitTradeRequest struct {
	AccountID     string      `json:"account_id"`
	Sell          amountInput `json:"sell"`
	ReceiveSymbol string      `json:"receive_symbol"`
}

// tradeResponse is the JSON response for every trade endpoint.
type tradeResponse struct {
	Pair     pairResponse          `json:"pair"`
	Kind     string                `json:"kind"`
	Sold     service.AmountPayload `json:"sold"`
	Received service.AmountPayload `json:"received"`
	Fills    []fillResponse        `json:"fills"`
}

// TradeExact handles POST /trades/exact.
func (h *TradeHandler) TradeExact(w http.ResponseWriter, r *http.Request) {
	var req exactTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.OrderID == nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id is required")
		return
	}

	res, err := h.exchangeSvc.TradeExact(r.Context(), service.ExactTradeRequest{
		Seller:  actingAccount(r, req.AccountID),
		OrderID: *req.OrderID,
		Sell:    req.Sell.toService(),
		Receive: req.Receive.toService(),
	})
	writeTradeResult(w, res, err)
}

// TradeMarket handles POST /trades/market.
func (h *TradeHandler) TradeMarket(w http.ResponseWriter, r *http.Request) {
	var req marketTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.exchangeSvc.TradeMarket(r.Context(), service.MarketTradeRequest{
		Seller:     actingAccount(r, req.AccountID),
		SellSymbol: req.SellSymbol,
		Receive:    req.Receive.toService(),
	})
	writeTradeResult(w, res, err)
}

// TradeLimit handles POST /trades/limit.
func (h *TradeHandler) TradeLimit(w http.ResponseWriter, r *http.Request) {
	var req limitTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.exchangeSvc.TradeLimit(r.Context(), service.LimitTradeRequest{
		Seller:        actingAccount(r, req.AccountID),
		Sell:          req.Sell.toService(),
		ReceiveSymbol: req.ReceiveSymbol,
	})
	writeTradeResult(w, res, err)
}

func writeTradeResult(w http.ResponseWriter, res *engine.TradeResult, err error) {
	if err != nil {
		mapError(w, err)
		return
	}

	fills := make([]fillResponse, len(res.Fills))
	for i, f := range res.Fills {
		fills[i] = buildFill(f)
	}
	WriteJSON(w, http.StatusOK, tradeResponse{
		Pair:     buildPair(res.Pair),
		Kind:     string(res.Kind),
		Sold:     service.NewAmountPayload(res.Sold),
		Received: service.NewAmountPayload(res.Received),
		Fills:    fills,
	})
}
