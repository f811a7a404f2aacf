package handler

import (
	"context"
	"net/http"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/service"
	"github.com/go-chi/chi/v5"
)

// AccountHandler handles HTTP requests for account and whitelist endpoints.
type AccountHandler struct {
	accountSvc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// registerAccountRequest is the JSON request body for POST /accounts.
type registerAccountRequest struct {
	AccountID string `json:"account_id"`
}

// custodyRequest is the JSON request body for deposits and withdrawals.
type custodyRequest struct {
	Amount amountInput `json:"amount"`
}

// whitelistRequest is the JSON request body for POST and DELETE /whitelist.
type whitelistRequest struct {
	Accounts []string `json:"accounts"`
}

// accountResponse is the JSON response for POST /accounts (201 Created).
type accountResponse struct {
	AccountID string `json:"account_id"`
	CreatedAt string `json:"created_at"`
}

// holdingResponse is a single asset of an account's balance.
type holdingResponse struct {
	Symbol    string `json:"symbol"`
	Issuer    string `json:"issuer"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
}

// balanceResponse is the JSON response for GET /accounts/{account_id}/balance.
type balanceResponse struct {
	AccountID string            `json:"account_id"`
	Holdings  []holdingResponse `json:"holdings"`
	UpdatedAt string            `json:"updated_at"`
}

// whitelistResponse is the JSON response for the whitelist endpoints.
type whitelistResponse struct {
	Accounts []string `json:"accounts"`
}

// Register handles POST /accounts.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerAccountRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	account, err := h.accountSvc.Register(req.AccountID)
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, accountResponse{
		AccountID: string(account.ID),
		CreatedAt: formatTime(account.CreatedAt),
	})
}

// Deposit handles POST /accounts/{account_id}/deposit.
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.custody(w, r, h.accountSvc.Deposit)
}

// Withdraw handles POST /accounts/{account_id}/withdraw.
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.custody(w, r, h.accountSvc.Withdraw)
}

type custodyFunc func(ctx context.Context, accountID domain.AccountID, in service.AmountInput) (*service.HoldingBalance, error)

func (h *AccountHandler) custody(w http.ResponseWriter, r *http.Request, move custodyFunc) {
	var req custodyRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	accountID := domain.AccountID(chi.URLParam(r, "account_id"))
	hb, err := move(r.Context(), accountID, req.Amount.toService())
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildHolding(*hb))
}

// GetBalance handles GET /accounts/{account_id}/balance.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := domain.AccountID(chi.URLParam(r, "account_id"))

	balance, err := h.accountSvc.GetBalance(accountID)
	if err != nil {
		mapError(w, err)
		return
	}

	holdings := make([]holdingResponse, len(balance.Holdings))
	for i, hb := range balance.Holdings {
		holdings[i] = buildHolding(hb)
	}

	WriteJSON(w, http.StatusOK, balanceResponse{
		AccountID: string(balance.Account.ID),
		Holdings:  holdings,
		UpdatedAt: formatTime(balance.Account.UpdatedAt),
	})
}

// ListWhitelist handles GET /whitelist.
func (h *AccountHandler) ListWhitelist(w http.ResponseWriter, r *http.Request) {
	ids, err := h.accountSvc.ListWhitelist(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}

	accounts := make([]string, len(ids))
	for i, id := range ids {
		accounts[i] = string(id)
	}
	WriteJSON(w, http.StatusOK, whitelistResponse{Accounts: accounts})
}

// Whitelist handles POST /whitelist.
func (h *AccountHandler) Whitelist(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.accountSvc.Whitelist(r.Context(), req.Accounts); err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, whitelistResponse{Accounts: req.Accounts})
}

// Unwhitelist handles DELETE /whitelist.
func (h *AccountHandler) Unwhitelist(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.accountSvc.Unwhitelist(r.Context(), req.Accounts); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildHolding(hb service.HoldingBalance) holdingResponse {
	return holdingResponse{
		Symbol:    hb.Asset.Symbol,
		Issuer:    hb.Asset.Issuer,
		Available: domain.FormatAmount(hb.Available),
		Held:      domain.FormatAmount(hb.Held),
		Total:     domain.FormatAmount(hb.Available.Add(hb.Held)),
	}
}
