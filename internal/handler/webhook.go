package handler

import (
	"net/http"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/service"
	"github.com/go-chi/chi/v5"
)

// WebhookHandler serves the account's webhook subscriptions.
type WebhookHandler struct {
	hooks *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(hooks *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{hooks: hooks}
}

type subscribeRequest struct {
	AccountID string   `json:"account_id"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
}

// Upsert handles POST /webhooks. It answers 201 when any event was newly
// subscribed and 200 when every event only had its URL replaced.
func (h *WebhookHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var body subscribeRequest
	if err := ParseJSON(r, &body); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	hooks, created, err := h.hooks.Upsert(r.Context(), service.UpsertWebhookRequest{
		AccountID: actingAccount(r, body.AccountID),
		URL:       body.URL,
		Events:    body.Events,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	if created {
		writeWebhooks(w, http.StatusCreated, hooks)
		return
	}
	writeWebhooks(w, http.StatusOK, hooks)
}

// List handles GET /webhooks?account_id=, defaulting to the signer.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	account := actingAccount(r, r.URL.Query().Get("account_id"))
	if account == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "account_id query parameter is required")
		return
	}

	hooks, err := h.hooks.List(r.Context(), account)
	if err != nil {
		mapError(w, err)
		return
	}
	writeWebhooks(w, http.StatusOK, hooks)
}

// Delete handles DELETE /webhooks/{webhook_id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.hooks.Delete(r.Context(), chi.URLParam(r, "webhook_id")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeWebhooks(w http.ResponseWriter, status int, hooks []*domain.Webhook) {
	WriteJSON(w, status, webhooksResponse{Webhooks: buildWebhooks(hooks)})
}
