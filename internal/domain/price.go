package domain

import (
	"math/big"
)

// Price is the exchange rate of a resting order: how many whole base units
// it offers per whole quote unit. It is kept as an exact rational so that
// orders posted at the same rate compare equal regardless of the sizes
// used to post them.
type Price struct {
	r *big.Rat
}

// NewPrice computes base/quote in whole units, correcting for the decimal
// precision of each side. Both amounts must be positive.
func NewPrice(base, quote Amount) Price {
	num := new(big.Int).Mul(big.NewInt(base.Quantity), Pow10(quote.Type.Precision))
	den := new(big.Int).Mul(big.NewInt(quote.Quantity), Pow10(base.Type.Precision))
	return Price{r: new(big.Rat).SetFrac(num, den)}
}

// Rat returns a copy of the underlying rational.
func (p Price) Rat() *big.Rat {
	if p.r == nil {
		return new(big.Rat)
	}
	return new(big.Rat).Set(p.r)
}

// Float64 returns the nearest float64 value of the price.
func (p Price) Float64() float64 {
	if p.r == nil {
		return 0
	}
	f, _ := p.r.Float64()
	return f
}

// Cmp compares two prices and returns -1, 0 or +1.
func (p Price) Cmp(q Price) int {
	switch {
	case p.r == nil && q.r == nil:
		return 0
	case p.r == nil:
		return new(big.Rat).Cmp(q.r)
	case q.r == nil:
		return p.r.Cmp(new(big.Rat))
	}
	return p.r.Cmp(q.r)
}

// Equal reports whether both prices are exactly the same rate.
func (p Price) Equal(q Price) bool {
	return p.Cmp(q) == 0
}

func (p Price) String() string {
	return p.Rat().FloatString(8)
}

// Pow10 returns 10^n as a big.Int.
func Pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
