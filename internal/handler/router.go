package handler

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/feed"
	"github.com/efreitasn/tokenexchange/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

// SignerHeader carries the account that authorizes a request.
const SignerHeader = "X-Account-ID"

// Options tunes the cross-cutting middleware.
type Options struct {
	CORSOrigins    []string
	RateLimitRPS   float64 // <= 0 disables rate limiting
	RateLimitBurst int
}

// NewRouter creates a chi router with all routes registered, request logging,
// CORS, signer extraction, rate limiting and Content-Type validation
// middleware.
func NewRouter(
	exchangeSvc *service.ExchangeService,
	accountSvc *service.AccountService,
	marketSvc *service.MarketService,
	webhookSvc *service.WebhookService,
	events *service.Publisher,
	hub *feed.Hub[service.Event],
	opts Options,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", SignerHeader},
			AllowCredentials: true,
		}).Handler)
	}
	r.Use(signer)
	if opts.RateLimitRPS > 0 {
		r.Use(newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).middleware)
	}
	r.Use(contentTypeJSON)

	// Create handlers.
	accountH := NewAccountHandler(accountSvc)
	orderH := NewOrderHandler(exchangeSvc)
	tradeH := NewTradeHandler(exchangeSvc)
	marketH := NewMarketHandler(marketSvc)
	webhookH := NewWebhookHandler(webhookSvc)
	streamH := NewStreamHandler(hub, accountSvc, logger)
	historyH := NewHistoryHandler(events)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Account routes.
	r.Post("/accounts", accountH.Register)
	r.Get("/accounts/{account_id}/balance", accountH.GetBalance)
	r.Post("/accounts/{account_id}/deposit", accountH.Deposit)
	r.Post("/accounts/{account_id}/withdraw", accountH.Withdraw)

	// Whitelist routes, administrator only.
	r.Get("/whitelist", accountH.ListWhitelist)
	r.Post("/whitelist", accountH.Whitelist)
	r.Delete("/whitelist", accountH.Unwhitelist)

	// Order routes.
	r.Post("/orders", orderH.CreateOrder)
	r.Delete("/orders/{order_id}", orderH.CancelOrder)

	// Trade routes.
	r.Post("/trades/exact", tradeH.TradeExact)
	r.Post("/trades/market", tradeH.TradeMarket)
	r.Post("/trades/limit", tradeH.TradeLimit)

	r.Post("/admin/reset", orderH.Reset)

	// Market data routes.
	r.Get("/assets", marketH.ListAssets)
	r.Get("/pairs", marketH.ListPairs)
	r.Route("/pairs/{base}/{quote}", func(r chi.Router) {
		r.Get("/book", marketH.GetBook)
		r.Get("/orders", marketH.GetOrders)
		r.Get("/orders/{order_id}", marketH.GetOrder)
		r.Get("/trades", marketH.GetTrades)
		r.Get("/quote", marketH.GetQuote)
		r.Get("/price", marketH.GetPrice)
	})

	// Webhook routes.
	r.Post("/webhooks", webhookH.Upsert)
	r.Get("/webhooks", webhookH.List)
	r.Delete("/webhooks/{webhook_id}", webhookH.Delete)

	// Event journal and live stream.
	r.Get("/events", historyH.List)
	r.Get("/ws", streamH.Stream)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, signer, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.String("signer", r.Header.Get(SignerHeader)),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	w.wroteHeader = true
	return h.Hijack()
}

// signer is middleware that attaches the X-Account-ID header to the request
// context. Requests without the header carry no signer and fail any
// authorization check.
func signer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(SignerHeader)); id != "" {
			r = r.WithContext(domain.WithSigner(r.Context(), domain.AccountID(id)))
		}
		next.ServeHTTP(w, r)
	})
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
