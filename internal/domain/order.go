package domain

import "time"

// AccountID names an account on the ledger.
type AccountID string

// TradingPair is a market between a base asset (what resting orders offer)
// and a quote asset (what they ask for). Direction matters: (A, B) and
// (B, A) are different pairs.
type TradingPair struct {
	ID    uint64
	Base  AssetType
	Quote AssetType
}

// RestingOrder is a standing offer of Base in exchange for Quote at a fixed
// rate. While an order exists both amounts are strictly positive; an order
// exhausted on either side is removed from its book.
type RestingOrder struct {
	ID        uint64
	PairID    uint64
	Manager   AccountID
	Base      Amount
	Quote     Amount
	Price     Price
	CreatedAt time.Time
}

// Clone returns a copy of the order. Price is immutable and shared.
func (o *RestingOrder) Clone() *RestingOrder {
	c := *o
	return &c
}
