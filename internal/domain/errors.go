package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotWhitelisted     = errors.New("not_whitelisted")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidExchange    = errors.New("invalid_exchange")
	ErrInvalidConversion  = errors.New("invalid_conversion")
	ErrPairNotFound       = errors.New("pair_not_found")
	ErrOrderNotFound      = errors.New("order_not_found")
	ErrAmountMismatch     = errors.New("amount_mismatch")
	ErrUnableToFill       = errors.New("unable_to_fill")
	ErrInsufficientFunds  = errors.New("insufficient_funds")
	ErrIncorrectState     = errors.New("incorrect_state")
	ErrAlreadyWhitelisted = errors.New("already_whitelisted")
	ErrAccountExists      = errors.New("account_already_exists")
	ErrAccountNotFound    = errors.New("account_not_found")
	ErrAssetNotFound      = errors.New("asset_not_found")
	ErrWebhookNotFound    = errors.New("webhook_not_found")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
