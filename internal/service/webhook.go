package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/store"
	"github.com/google/uuid"
)

const maxWebhookURLLen = 2048

var validWebhookEvents = map[string]bool{
	EventOrderCreated:   true,
	EventOrderCancelled: true,
	EventTradeExecuted:  true,
}

// UpsertWebhookRequest subscribes AccountID to Events at URL.
type UpsertWebhookRequest struct {
	AccountID domain.AccountID
	URL       string
	Events    []string
}

// WebhookService manages webhook subscriptions and delivers events to them.
type WebhookService struct {
	store     *store.WebhookStore
	ledger    *store.Ledger
	whitelist *store.Whitelist
	client    *http.Client
	timeout   time.Duration
	logger    *slog.Logger
}

func NewWebhookService(
	webhookStore *store.WebhookStore,
	ledger *store.Ledger,
	whitelist *store.Whitelist,
	timeout time.Duration,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		store:     webhookStore,
		ledger:    ledger,
		whitelist: whitelist,
		client:    &http.Client{},
		timeout:   timeout,
		logger:    logger,
	}
}

// Upsert subscribes the account to every listed event. Events the account
// already subscribes to keep their webhook_id and take the new URL. The
// bool reports whether any subscription was created.
func (s *WebhookService) Upsert(ctx context.Context, req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	if err := s.ownedAccount(ctx, req.AccountID); err != nil {
		return nil, false, err
	}
	if err := checkWebhookURL(req.URL); err != nil {
		return nil, false, err
	}
	events, err := uniqueEvents(req.Events)
	if err != nil {
		return nil, false, err
	}

	now := time.Now().UTC().Truncate(time.Second)
	out := make([]*domain.Webhook, 0, len(events))
	anyCreated := false
	for _, ev := range events {
		stored, created := s.store.Upsert(&domain.Webhook{
			WebhookID: uuid.NewString(),
			AccountID: req.AccountID,
			Event:     ev,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		})
		anyCreated = anyCreated || created
		out = append(out, stored)
	}
	return out, anyCreated, nil
}

// List returns the account's subscriptions.
func (s *WebhookService) List(ctx context.Context, accountID domain.AccountID) ([]*domain.Webhook, error) {
	if err := s.ownedAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.ListByAccount(accountID), nil
}

// Delete removes a subscription. Only its owner or the administrator may.
func (s *WebhookService) Delete(ctx context.Context, webhookID string) error {
	wh, err := s.store.Get(webhookID)
	if err != nil {
		return err
	}
	if err := s.whitelist.Authorize(ctx, wh.AccountID); err != nil {
		return err
	}
	return s.store.Delete(webhookID)
}

func (s *WebhookService) ownedAccount(ctx context.Context, id domain.AccountID) error {
	if err := s.whitelist.Authorize(ctx, id); err != nil {
		return err
	}
	if !s.ledger.Exists(id) {
		return domain.ErrAccountNotFound
	}
	return nil
}

func checkWebhookURL(raw string) error {
	switch {
	case raw == "":
		return &domain.ValidationError{Message: "url is required"}
	case len(raw) > maxWebhookURLLen:
		return &domain.ValidationError{Message: fmt.Sprintf("url must be at most %d characters", maxWebhookURLLen)}
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || !u.IsAbs() {
		return &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if u.Scheme != "https" {
		return &domain.ValidationError{Message: "url must use https scheme"}
	}
	return nil
}

// uniqueEvents validates events and drops repeats, keeping first-seen order.
func uniqueEvents(events []string) ([]string, error) {
	if len(events) == 0 {
		return nil, &domain.ValidationError{Message: "events must be a non-empty array"}
	}
	seen := make(map[string]bool, len(events))
	out := events[:0:0]
	for _, ev := range events {
		if !validWebhookEvents[ev] {
			return nil, &domain.ValidationError{Message: fmt.Sprintf(
				"Unknown event type: %s. Must be one of: %s", ev,
				strings.Join([]string{EventOrderCreated, EventOrderCancelled, EventTradeExecuted}, ", "))}
		}
		if !seen[ev] {
			seen[ev] = true
			out = append(out, ev)
		}
	}
	return out, nil
}

// Dispatch posts ev to the account's subscription for ev.Type, if any.
// Delivery runs on its own goroutine and is never retried.
func (s *WebhookService) Dispatch(account domain.AccountID, ev Event) {
	wh := s.store.GetByAccountEvent(account, ev.Type)
	if wh == nil {
		return
	}
	go s.deliver(wh, ev)
}

func (s *WebhookService) deliver(wh *domain.Webhook, ev Event) {
	log := s.logger.With(
		slog.String("webhook_id", wh.WebhookID),
		slog.String("event", ev.Type),
	)

	body, err := json.Marshal(ev)
	if err != nil {
		log.Error("webhook encode failed", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		log.Error("webhook request build failed", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.NewString())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", ev.Type)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Warn("webhook delivery failed", slog.String("error", err.Error()))
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Warn("webhook rejected", slog.Int("status", resp.StatusCode))
	}
}
