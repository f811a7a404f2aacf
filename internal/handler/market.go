package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/service"
	"github.com/go-chi/chi/v5"
)

const defaultBookDepth = 10

// MarketHandler handles HTTP requests for read-only market data.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// assetListResponse is the JSON response for GET /assets.
type assetListResponse struct {
	Assets []assetResponse `json:"assets"`
}

// pairListResponse is the JSON response for GET /pairs.
type pairListResponse struct {
	Pairs []pairResponse `json:"pairs"`
}

// levelResponse is a single price level in the book response.
type levelResponse struct {
	Price      string                `json:"price"`
	TotalBase  service.AmountPayload `json:"total_base"`
	TotalQuote service.AmountPayload `json:"total_quote"`
	OrderCount int                   `json:"order_count"`
	Saturated  bool                  `json:"saturated,omitempty"`
}

// bookResponse is the JSON response for GET /pairs/{base}/{quote}/book.
type bookResponse struct {
	Pair       pairResponse    `json:"pair"`
	Levels     []levelResponse `json:"levels"`
	SnapshotAt string          `json:"snapshot_at"`
}

// orderListResponse is the JSON response for GET /pairs/{base}/{quote}/orders.
type orderListResponse struct {
	Pair   pairResponse    `json:"pair"`
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
}

// tradeListResponse is the JSON response for GET /pairs/{base}/{quote}/trades.
type tradeListResponse struct {
	Pair   pairResponse   `json:"pair"`
	Trades []fillResponse `json:"trades"`
}

// quoteLevelResponse is one price level walked by a quote.
type quoteLevelResponse struct {
	Price    string                `json:"price"`
	Received service.AmountPayload `json:"received"`
	Cost     service.AmountPayload `json:"cost"`
}

// quoteResponse is the JSON response for GET /pairs/{base}/{quote}/quote.
type quoteResponse struct {
	Pair          pairResponse          `json:"pair"`
	Requested     service.AmountPayload `json:"requested"`
	Available     service.AmountPayload `json:"available"`
	Cost          service.AmountPayload `json:"cost"`
	FullyFillable bool                  `json:"fully_fillable"`
	Saturated     bool                  `json:"saturated,omitempty"`
	Levels        []quoteLevelResponse  `json:"levels"`
	QuotedAt      string                `json:"quoted_at"`
}

// priceResponse is the JSON response for GET /pairs/{base}/{quote}/price.
type priceResponse struct {
	Pair           pairResponse `json:"pair"`
	CurrentPrice   *string      `json:"current_price"`
	VWAPWindow     string       `json:"vwap_window"`
	TradesInWindow int          `json:"trades_in_window"`
	LastTradeAt    *string      `json:"last_trade_at"`
}

// ListAssets handles GET /assets.
func (h *MarketHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets := h.marketSvc.ListAssets()
	resp := assetListResponse{Assets: make([]assetResponse, len(assets))}
	for i, a := range assets {
		resp.Assets[i] = buildAsset(a)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// ListPairs handles GET /pairs.
func (h *MarketHandler) ListPairs(w http.ResponseWriter, r *http.Request) {
	pairs := h.marketSvc.ListPairs()
	resp := pairListResponse{Pairs: make([]pairResponse, len(pairs))}
	for i, p := range pairs {
		resp.Pairs[i] = buildPair(p)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetBook handles GET /pairs/{base}/{quote}/book.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	depth := defaultBookDepth
	if d := r.URL.Query().Get("depth"); d != "" {
		var err error
		depth, err = strconv.Atoi(d)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "depth must be a valid integer")
			return
		}
	}

	book, err := h.marketSvc.GetBook(chi.URLParam(r, "base"), chi.URLParam(r, "quote"), depth)
	if err != nil {
		mapError(w, err)
		return
	}

	levels := make([]levelResponse, len(book.Levels))
	for i, l := range book.Levels {
		levels[i] = levelResponse{
			Price:      l.Price.String(),
			TotalBase:  service.NewAmountPayload(l.TotalBase),
			TotalQuote: service.NewAmountPayload(l.TotalQuote),
			OrderCount: l.OrderCount,
			Saturated:  l.Saturated,
		}
	}
	WriteJSON(w, http.StatusOK, bookResponse{
		Pair:       buildPair(book.Pair),
		Levels:     levels,
		SnapshotAt: formatTime(book.SnapshotAt),
	})
}

// GetOrders handles GET /pairs/{base}/{quote}/orders.
func (h *MarketHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	pair, orders, err := h.marketSvc.GetOrders(chi.URLParam(r, "base"), chi.URLParam(r, "quote"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, orderListResponse{
		Pair:   buildPair(pair),
		Orders: buildOrders(orders),
		Total:  len(orders),
	})
}

// GetOrder handles GET /pairs/{base}/{quote}/orders/{order_id}.
func (h *MarketHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.marketSvc.GetOrder(chi.URLParam(r, "base"), chi.URLParam(r, "quote"), id)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrder(*order))
}

// GetTrades handles GET /pairs/{base}/{quote}/trades.
func (h *MarketHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
			return
		}
		if limit == 0 {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be between 1 and 100")
			return
		}
	}

	pair, fills, err := h.marketSvc.GetTrades(chi.URLParam(r, "base"), chi.URLParam(r, "quote"), limit)
	if err != nil {
		mapError(w, err)
		return
	}

	trades := make([]fillResponse, len(fills))
	for i, f := range fills {
		trades[i] = buildFill(*f)
	}
	WriteJSON(w, http.StatusOK, tradeListResponse{Pair: buildPair(pair), Trades: trades})
}

// GetQuote handles GET /pairs/{base}/{quote}/quote?receive=. The signer,
// when present, is excluded from the walk the way its own trade would be.
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	receive := r.URL.Query().Get("receive")
	if receive == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "receive query parameter is required")
		return
	}
	seller, _ := domain.SignerFromContext(r.Context())

	q, err := h.marketSvc.GetQuote(seller, chi.URLParam(r, "base"), chi.URLParam(r, "quote"), receive)
	if err != nil {
		mapError(w, err)
		return
	}

	levels := make([]quoteLevelResponse, len(q.Result.Levels))
	for i, l := range q.Result.Levels {
		levels[i] = quoteLevelResponse{
			Price:    l.Price.String(),
			Received: service.NewAmountPayload(l.Received),
			Cost:     service.NewAmountPayload(l.Cost),
		}
	}
	WriteJSON(w, http.StatusOK, quoteResponse{
		Pair:          buildPair(q.Result.Pair),
		Requested:     service.NewAmountPayload(q.Requested),
		Available:     service.NewAmountPayload(q.Result.Available),
		Cost:          service.NewAmountPayload(q.Result.Cost),
		FullyFillable: q.Result.FullyFillable,
		Saturated:     q.Result.Saturated,
		Levels:        levels,
		QuotedAt:      formatTime(q.QuotedAt),
	})
}

// GetPrice handles GET /pairs/{base}/{quote}/price.
func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	p, err := h.marketSvc.GetPrice(chi.URLParam(r, "base"), chi.URLParam(r, "quote"))
	if err != nil {
		mapError(w, err)
		return
	}

	resp := priceResponse{
		Pair:           buildPair(p.Pair),
		VWAPWindow:     p.Window,
		TradesInWindow: p.TradesInWindow,
	}
	if p.CurrentPrice != nil {
		s := p.CurrentPrice.String()
		resp.CurrentPrice = &s
	}
	if p.LastTradeAt != nil {
		s := formatTime(*p.LastTradeAt)
		resp.LastTradeAt = &s
	}
	WriteJSON(w, http.StatusOK, resp)
}
