package handler

import (
	"errors"
	"net/http"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/service"
)

// errorStatuses maps each sentinel to its HTTP status. The sentinel's
// text doubles as the machine-readable error code.
var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrUnauthorized, http.StatusForbidden},
	{domain.ErrNotWhitelisted, http.StatusForbidden},
	{domain.ErrInvalidAmount, http.StatusBadRequest},
	{domain.ErrInvalidExchange, http.StatusBadRequest},
	{domain.ErrInvalidConversion, http.StatusBadRequest},
	{domain.ErrPairNotFound, http.StatusNotFound},
	{domain.ErrOrderNotFound, http.StatusNotFound},
	{domain.ErrAccountNotFound, http.StatusNotFound},
	{domain.ErrAssetNotFound, http.StatusNotFound},
	{domain.ErrWebhookNotFound, http.StatusNotFound},
	{domain.ErrAmountMismatch, http.StatusConflict},
	{domain.ErrUnableToFill, http.StatusConflict},
	{domain.ErrInsufficientFunds, http.StatusConflict},
	{domain.ErrAlreadyWhitelisted, http.StatusConflict},
	{domain.ErrAccountExists, http.StatusConflict},
	{service.ErrJournalDisabled, http.StatusServiceUnavailable},
}

// mapError maps domain errors to HTTP responses.
func mapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			WriteError(w, e.status, e.err.Error(), err.Error())
			return
		}
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}
