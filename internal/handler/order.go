package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderHandler handles HTTP requests for order management endpoints.
type OrderHandler struct {
	exchangeSvc *service.ExchangeService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(exchangeSvc *service.ExchangeService) *OrderHandler {
	return &OrderHandler{exchangeSvc: exchangeSvc}
}

// createOrderRequest is the JSON request body for POST /orders. AccountID
// defaults to the signer.
type createOrderRequest struct {
	AccountID string      `json:"account_id"`
	Base      amountInput `json:"base"`
	Quote     amountInput `json:"quote"`
}

// createOrderResponse is the JSON response for POST /orders.
type createOrderResponse struct {
	Pair     pairResponse  `json:"pair"`
	Order    orderResponse `json:"order"`
	Combined bool          `json:"combined"`
}

// cancelOrderResponse is the JSON response for DELETE /orders/{order_id}.
type cancelOrderResponse struct {
	Order    orderResponse         `json:"order"`
	Released service.AmountPayload `json:"released"`
}

// resetResponse is the JSON response for POST /admin/reset.
type resetResponse struct {
	CancelledOrders []orderResponse `json:"cancelled_orders"`
}

// CreateOrder handles POST /orders. A new order answers 201 Created; an
// amount merged into the creator's existing order at the same price
// answers 200 OK.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.exchangeSvc.CreateOrder(r.Context(), service.CreateOrderRequest{
		Creator: actingAccount(r, req.AccountID),
		Base:    req.Base.toService(),
		Quote:   req.Quote.toService(),
	})
	if err != nil {
		mapError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Combined {
		status = http.StatusOK
	}
	WriteJSON(w, status, createOrderResponse{
		Pair:     buildPair(res.Pair),
		Order:    buildOrder(res.Order),
		Combined: res.Combined,
	})
}

// CancelOrder handles DELETE /orders/{order_id}?base=&quote=.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.exchangeSvc.CancelOrder(r.Context(), service.CancelOrderRequest{
		OrderID: id,
		Base:    r.URL.Query().Get("base"),
		Quote:   r.URL.Query().Get("quote"),
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, cancelOrderResponse{
		Order:    buildOrder(*order),
		Released: service.NewAmountPayload(order.Base),
	})
}

// Reset handles POST /admin/reset.
func (h *OrderHandler) Reset(w http.ResponseWriter, r *http.Request) {
	dropped, err := h.exchangeSvc.Reset(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, resetResponse{CancelledOrders: buildOrders(dropped)})
}

// actingAccount returns the account named in the body, or the signer when
// the body leaves it out.
func actingAccount(r *http.Request, bodyID string) domain.AccountID {
	if bodyID != "" {
		return domain.AccountID(bodyID)
	}
	id, _ := domain.SignerFromContext(r.Context())
	return id
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a non-negative integer")
		return 0, false
	}
	return id, true
}
