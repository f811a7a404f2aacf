package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/feed"
	"github.com/efreitasn/tokenexchange/internal/store"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// ErrJournalDisabled is returned by History when no journal is configured.
var ErrJournalDisabled = errors.New("journal_disabled")

// Event types published after a request commits.
const (
	EventOrderCreated   = "order.created"
	EventOrderCancelled = "order.cancelled"
	EventTradeExecuted  = "trade.executed"
)

// Reasons attached to order.cancelled events.
const (
	CancelReasonRequested = "requested"
	CancelReasonReset     = "reset"
)

// Event is one committed change, in the shape sent to webhooks and live
// subscribers. Accounts lists who is notified through webhooks.
type Event struct {
	Type     string             `json:"event"`
	At       time.Time          `json:"timestamp"`
	Accounts []domain.AccountID `json:"-"`
	Data     any                `json:"data"`
}

// OrderPayload describes a resting order in order.* events.
type OrderPayload struct {
	OrderID  uint64        `json:"order_id"`
	PairID   uint64        `json:"pair_id"`
	Manager  string        `json:"manager"`
	Base     AmountPayload `json:"base"`
	Quote    AmountPayload `json:"quote"`
	Price    string        `json:"price"`
	Combined bool          `json:"combined,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

// FillPayload describes one fill in trade.executed events.
type FillPayload struct {
	TradeID    string        `json:"trade_id"`
	OrderID    uint64        `json:"order_id"`
	PairID     uint64        `json:"pair_id"`
	Kind       string        `json:"kind"`
	Taker      string        `json:"taker"`
	Maker      string        `json:"maker"`
	Paid       AmountPayload `json:"paid"`
	Received   AmountPayload `json:"received"`
	ExecutedAt time.Time     `json:"executed_at"`
}

// NewOrderPayload builds the event payload of an order.
func NewOrderPayload(o domain.RestingOrder) OrderPayload {
	return OrderPayload{
		OrderID: o.ID,
		PairID:  o.PairID,
		Manager: string(o.Manager),
		Base:    NewAmountPayload(o.Base),
		Quote:   NewAmountPayload(o.Quote),
		Price:   o.Price.String(),
	}
}

// NewFillPayload builds the event payload of a fill.
func NewFillPayload(f domain.Fill) FillPayload {
	return FillPayload{
		TradeID:    f.TradeID,
		OrderID:    f.OrderID,
		PairID:     f.PairID,
		Kind:       string(f.Kind),
		Taker:      string(f.Taker),
		Maker:      string(f.Maker),
		Paid:       NewAmountPayload(f.Paid),
		Received:   NewAmountPayload(f.Received),
		ExecutedAt: f.ExecutedAt,
	}
}

// Publisher fans committed events out to the journal, the live feed and
// account webhooks. Any of the three may be nil.
type Publisher struct {
	journal  *store.Journal
	hub      *feed.Hub[Event]
	webhooks *WebhookService
	logger   *slog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(journal *store.Journal, hub *feed.Hub[Event], webhooks *WebhookService, logger *slog.Logger) *Publisher {
	return &Publisher{
		journal:  journal,
		hub:      hub,
		webhooks: webhooks,
		logger:   logger,
	}
}

// Publish records ev and notifies subscribers. The event is already
// committed, so delivery failures are logged and never returned.
func (p *Publisher) Publish(ev Event) {
	if p.journal != nil {
		if _, err := p.journal.Append(ev.Type, ev.At, ev.Data); err != nil {
			p.logger.Error("journal append failed",
				slog.String("event", ev.Type),
				slog.String("error", err.Error()),
			)
		}
	}
	if p.hub != nil {
		p.hub.Broadcast(ev)
	}
	if p.webhooks != nil {
		seen := make(map[domain.AccountID]bool, len(ev.Accounts))
		for _, a := range ev.Accounts {
			if seen[a] {
				continue
			}
			seen[a] = true
			p.webhooks.Dispatch(a, ev)
		}
	}
}

// ValidEventType reports whether t names a published event type.
func ValidEventType(t string) bool {
	return validWebhookEvents[t]
}

// History returns journaled events with a sequence number above after, in
// commit order. A zero limit selects the default.
func (p *Publisher) History(after uint64, limit int) ([]store.JournalEntry, error) {
	if p.journal == nil {
		return nil, ErrJournalDisabled
	}
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	if limit < 1 || limit > maxHistoryLimit {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit),
		}
	}
	return p.journal.Since(after, limit)
}
