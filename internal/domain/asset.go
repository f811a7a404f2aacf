package domain

import (
	"fmt"
	"math"
	"regexp"
)

// MaxPrecision is the largest number of decimal places an asset may carry.
// 10^18 still fits in an int64.
const MaxPrecision = 18

var assetSymbolRegex = regexp.MustCompile(`^[A-Z]{1,7}$`)

// AssetType identifies a fungible token: its symbol, decimal precision and
// the account that issues it. Two tokens with the same symbol but a
// different issuer are different assets.
type AssetType struct {
	Symbol    string
	Precision uint8
	Issuer    string
}

// Valid reports whether the asset type is well-formed.
func (t AssetType) Valid() bool {
	return assetSymbolRegex.MatchString(t.Symbol) &&
		t.Precision <= MaxPrecision &&
		t.Issuer != ""
}

func (t AssetType) String() string {
	return fmt.Sprintf("%d,%s@%s", t.Precision, t.Symbol, t.Issuer)
}

// Amount is an integer quantity of an asset expressed in its smallest unit,
// so 1.0000 EOS with precision 4 is Quantity 10000.
type Amount struct {
	Quantity int64
	Type     AssetType
}

// NewAmount returns an Amount of the given quantity and type.
func NewAmount(quantity int64, t AssetType) Amount {
	return Amount{Quantity: quantity, Type: t}
}

// Valid reports whether the amount is non-negative and tied to a valid
// asset type.
func (a Amount) Valid() bool {
	return a.Quantity >= 0 && a.Type.Valid()
}

// Positive reports whether the amount is valid and strictly greater than zero.
func (a Amount) Positive() bool {
	return a.Valid() && a.Quantity > 0
}

// IsZero reports whether the quantity is zero.
func (a Amount) IsZero() bool {
	return a.Quantity == 0
}

// Equal reports whether both amounts have the same type and quantity.
func (a Amount) Equal(b Amount) bool {
	return a.Type == b.Type && a.Quantity == b.Quantity
}

// Less reports whether a is smaller than b. Both must share a type.
func (a Amount) Less(b Amount) bool {
	mustMatch(a, b)
	return a.Quantity < b.Quantity
}

// Add returns a+b. Both must share a type.
func (a Amount) Add(b Amount) Amount {
	mustMatch(a, b)
	return Amount{Quantity: a.Quantity + b.Quantity, Type: a.Type}
}

// SaturatingAdd returns a+b, or the largest representable quantity and
// false when the sum would overflow. Both must share a type and be
// non-negative.
func (a Amount) SaturatingAdd(b Amount) (Amount, bool) {
	mustMatch(a, b)
	if a.Quantity > math.MaxInt64-b.Quantity {
		return Amount{Quantity: math.MaxInt64, Type: a.Type}, false
	}
	return Amount{Quantity: a.Quantity + b.Quantity, Type: a.Type}, true
}

// Sub returns a-b. Both must share a type.
func (a Amount) Sub(b Amount) Amount {
	mustMatch(a, b)
	return Amount{Quantity: a.Quantity - b.Quantity, Type: a.Type}
}

// Min returns the smaller of a and b. Both must share a type.
func Min(a, b Amount) Amount {
	if a.Less(b) {
		return a
	}
	return b
}

func (a Amount) String() string {
	return FormatAmount(a) + " " + a.Type.Symbol
}

// mustMatch panics when two amounts of different assets are combined.
// Arithmetic across assets is a programming error, never user input.
func mustMatch(a, b Amount) {
	if a.Type != b.Type {
		panic(fmt.Sprintf("domain: amount type mismatch: %s vs %s", a.Type, b.Type))
	}
}
