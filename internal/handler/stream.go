package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/feed"
	"github.com/efreitasn/tokenexchange/internal/service"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
	streamBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler upgrades requests to websockets and forwards committed
// events from the hub.
type StreamHandler struct {
	hub      *feed.Hub[service.Event]
	accounts *service.AccountService
	logger   *slog.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(hub *feed.Hub[service.Event], accounts *service.AccountService, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{hub: hub, accounts: accounts, logger: logger}
}

// streamFilter selects which events a connection receives. Empty fields
// match everything.
type streamFilter struct {
	events  []string
	account domain.AccountID
}

func (f streamFilter) match(ev service.Event) bool {
	if len(f.events) > 0 && !slices.Contains(f.events, ev.Type) {
		return false
	}
	if f.account != "" && !slices.Contains(ev.Accounts, f.account) {
		return false
	}
	return true
}

func parseStreamFilter(r *http.Request) (streamFilter, error) {
	var f streamFilter
	if raw := r.URL.Query().Get("events"); raw != "" {
		for _, e := range strings.Split(raw, ",") {
			e = strings.TrimSpace(e)
			if !service.ValidEventType(e) {
				return f, fmt.Errorf("Unknown event type: %s", e)
			}
			f.events = append(f.events, e)
		}
	}
	f.account = domain.AccountID(r.URL.Query().Get("account_id"))
	return f, nil
}

// Stream handles GET /ws?events=&account_id=. The unfiltered feed is
// public; following one account requires that account or the
// administrator as signer.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	filter, err := parseStreamFilter(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if filter.account != "" {
		if err := h.accounts.AuthorizeFeed(r.Context(), filter.account); err != nil {
			mapError(w, err)
			return
		}
	}

	// Subscribe before the handshake completes so the client sees every
	// event committed after its dial returns.
	sub := h.hub.Subscribe(streamBuffer)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.hub.Unsubscribe(sub)
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	h.logger.Info("stream subscriber connected",
		slog.String("remote", r.RemoteAddr),
		slog.Int("subscribers", h.hub.Len()),
	)

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, sub, filter, done)

	h.hub.Unsubscribe(sub)
	conn.Close()
	h.logger.Info("stream subscriber disconnected", slog.String("remote", r.RemoteAddr))
}

// readPump discards client messages and keeps the read deadline fresh on
// pongs. It closes done when the peer goes away.
func (h *StreamHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards matching events and pings the peer until either side
// closes.
func (h *StreamHandler) writePump(conn *websocket.Conn, sub *feed.Subscription[service.Event], filter streamFilter, done <-chan struct{}) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(streamWriteWait))
				return
			}
			if !filter.match(ev) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
