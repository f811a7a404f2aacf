package service

import (
	"fmt"
	"regexp"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

var accountIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// AmountInput is an amount as it arrives on the wire: a decimal string and
// the symbol of a listed asset.
type AmountInput struct {
	Quantity string
	Symbol   string
}

// AmountPayload is an amount as it leaves the service, e.g.
// {"quantity":"1.0000","symbol":"EOS"}.
type AmountPayload struct {
	Quantity string `json:"quantity"`
	Symbol   string `json:"symbol"`
}

// NewAmountPayload renders a with the precision of its asset.
func NewAmountPayload(a domain.Amount) AmountPayload {
	return AmountPayload{Quantity: domain.FormatAmount(a), Symbol: a.Type.Symbol}
}

// resolveAsset looks a symbol up in the catalog.
func resolveAsset(catalog *domain.AssetCatalog, field, symbol string) (domain.AssetType, error) {
	if symbol == "" {
		return domain.AssetType{}, &domain.ValidationError{Message: field + " is required"}
	}
	t, err := catalog.Lookup(symbol)
	if err != nil {
		return domain.AssetType{}, fmt.Errorf("%s %q: %w", field, symbol, err)
	}
	return t, nil
}

// resolveAmount turns a wire amount into a domain.Amount. Unknown symbols
// yield domain.ErrAssetNotFound; malformed quantities a ValidationError.
func resolveAmount(catalog *domain.AssetCatalog, field string, in AmountInput) (domain.Amount, error) {
	t, err := resolveAsset(catalog, field+".symbol", in.Symbol)
	if err != nil {
		return domain.Amount{}, err
	}
	if in.Quantity == "" {
		return domain.Amount{}, &domain.ValidationError{Message: field + ".quantity is required"}
	}
	a, err := domain.ParseAmount(in.Quantity, t)
	if err != nil {
		return domain.Amount{}, &domain.ValidationError{Message: field + ": " + err.Error()}
	}
	return a, nil
}

func validateAccountID(field, id string) error {
	if !accountIDRegex.MatchString(id) {
		return &domain.ValidationError{Message: field + " must match ^[a-zA-Z0-9_-]{1,64}$"}
	}
	return nil
}
