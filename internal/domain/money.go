package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string such as "12.5000" into an Amount of
// the given asset. It rejects negative values and values with more decimal
// places than the asset's precision.
func ParseAmount(s string, t AssetType) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("amount %q must not be negative", s)
	}
	scaled := d.Shift(int32(t.Precision))
	if !scaled.Equal(scaled.Truncate(0)) {
		return Amount{}, fmt.Errorf("amount %q has more than %d decimal places", s, t.Precision)
	}
	if !scaled.BigInt().IsInt64() {
		return Amount{}, fmt.Errorf("amount %q is out of range", s)
	}
	return Amount{Quantity: scaled.IntPart(), Type: t}, nil
}

// FormatAmount renders the quantity with exactly the asset's precision,
// e.g. 10000 with precision 4 becomes "1.0000".
func FormatAmount(a Amount) string {
	return decimal.New(a.Quantity, -int32(a.Type.Precision)).StringFixed(int32(a.Type.Precision))
}
