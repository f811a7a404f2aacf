package handler

import (
	"time"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/service"
)

const timeFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// amountInput is an amount in a JSON request body.
type amountInput struct {
	Quantity string `json:"quantity"`
	Symbol   string `json:"symbol"`
}

func (a amountInput) toService() service.AmountInput {
	return service.AmountInput{Quantity: a.Quantity, Symbol: a.Symbol}
}

// assetResponse describes a listed asset.
type assetResponse struct {
	Symbol    string `json:"symbol"`
	Precision uint8  `json:"precision"`
	Issuer    string `json:"issuer"`
}

// pairResponse describes a trading pair.
type pairResponse struct {
	PairID uint64        `json:"pair_id"`
	Base   assetResponse `json:"base"`
	Quote  assetResponse `json:"quote"`
}

// orderResponse describes a resting order.
type orderResponse struct {
	OrderID   uint64                `json:"order_id"`
	PairID    uint64                `json:"pair_id"`
	Manager   string                `json:"manager"`
	Base      service.AmountPayload `json:"base"`
	Quote     service.AmountPayload `json:"quote"`
	Price     string                `json:"price"`
	CreatedAt string                `json:"created_at"`
}

// fillResponse describes one fill of a trade.
type fillResponse struct {
	TradeID    string                `json:"trade_id"`
	OrderID    uint64                `json:"order_id"`
	Kind       string                `json:"kind"`
	Taker      string                `json:"taker"`
	Maker      string                `json:"maker"`
	Paid       service.AmountPayload `json:"paid"`
	Received   service.AmountPayload `json:"received"`
	ExecutedAt string                `json:"executed_at"`
}

// webhookResponse describes one event subscription.
type webhookResponse struct {
	WebhookID string `json:"webhook_id"`
	AccountID string `json:"account_id"`
	Event     string `json:"event"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type webhooksResponse struct {
	Webhooks []webhookResponse `json:"webhooks"`
}

func buildAsset(t domain.AssetType) assetResponse {
	return assetResponse{Symbol: t.Symbol, Precision: t.Precision, Issuer: t.Issuer}
}

func buildPair(p domain.TradingPair) pairResponse {
	return pairResponse{PairID: p.ID, Base: buildAsset(p.Base), Quote: buildAsset(p.Quote)}
}

func buildOrder(o domain.RestingOrder) orderResponse {
	return orderResponse{
		OrderID:   o.ID,
		PairID:    o.PairID,
		Manager:   string(o.Manager),
		Base:      service.NewAmountPayload(o.Base),
		Quote:     service.NewAmountPayload(o.Quote),
		Price:     o.Price.String(),
		CreatedAt: formatTime(o.CreatedAt),
	}
}

func buildOrders(orders []domain.RestingOrder) []orderResponse {
	result := make([]orderResponse, len(orders))
	for i, o := range orders {
		result[i] = buildOrder(o)
	}
	return result
}

func buildFill(f domain.Fill) fillResponse {
	return fillResponse{
		TradeID:    f.TradeID,
		OrderID:    f.OrderID,
		Kind:       string(f.Kind),
		Taker:      string(f.Taker),
		Maker:      string(f.Maker),
		Paid:       service.NewAmountPayload(f.Paid),
		Received:   service.NewAmountPayload(f.Received),
		ExecutedAt: formatTime(f.ExecutedAt),
	}
}

func buildWebhook(wh *domain.Webhook) webhookResponse {
	return webhookResponse{
		WebhookID: wh.WebhookID,
		AccountID: string(wh.AccountID),
		Event:     wh.Event,
		URL:       wh.URL,
		CreatedAt: formatTime(wh.CreatedAt),
		UpdatedAt: formatTime(wh.UpdatedAt),
	}
}

func buildWebhooks(hooks []*domain.Webhook) []webhookResponse {
	result := make([]webhookResponse, len(hooks))
	for i, wh := range hooks {
		result[i] = buildWebhook(wh)
	}
	return result
}
