package engine

import (
	"math/big"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

// Convert exchanges amount for the other side of order at the order's rate.
//
// Converting quote into base multiplies by the rate; converting base into
// quote multiplies by its inverse. The rate is the order's remaining
// base/quote ratio in whole units, which equals order.Price until rounding
// of earlier partial fills moves it, so every fill is priced against what
// the order still holds. The result is rescaled by 10^(to.precision -
// from.precision) and truncated toward zero only once, at the end.
//
// Returns ErrInvalidConversion if (amount.Type, to) is not the order's
// (base, quote) pair in either orientation.
func Convert(amount domain.Amount, to domain.AssetType, order *domain.RestingOrder) (domain.Amount, error) {
	rate := domain.NewPrice(order.Base, order.Quote).Rat()

	switch {
	case amount.Type == order.Base.Type && to == order.Quote.Type:
		rate.Inv(rate)
	case amount.Type == order.Quote.Type && to == order.Base.Type:
	default:
		return domain.Amount{}, domain.ErrInvalidConversion
	}

	v := new(big.Rat).SetInt64(amount.Quantity)
	v.Mul(v, rate)
	v.Mul(v, precisionScale(amount.Type.Precision, to.Precision))

	q := new(big.Int).Quo(v.Num(), v.Denom())
	if !q.IsInt64() {
		return domain.Amount{}, domain.ErrInvalidAmount
	}
	return domain.NewAmount(q.Int64(), to), nil
}

// precisionScale returns 10^(to-from) as an exact rational.
func precisionScale(from, to uint8) *big.Rat {
	if to >= from {
		return new(big.Rat).SetInt(domain.Pow10(to - from))
	}
	return new(big.Rat).SetFrac(big.NewInt(1), domain.Pow10(from-to))
}
