package domain

import "time"

// TradeKind names the algorithm that produced a fill.
type TradeKind string

const (
	TradeKindExact  TradeKind = "exact"
	TradeKindMarket TradeKind = "market"
	TradeKindLimit  TradeKind = "limit"
)

// Fill records the consumption of one resting order by a trade request.
// Paid is the quote amount moved from the taker to the maker; Received is
// the base amount moved from the maker to the taker.
type Fill struct {
	TradeID    string
	OrderID    uint64
	PairID     uint64
	Kind       TradeKind
	Taker      AccountID
	Maker      AccountID
	Paid       Amount
	Received   Amount
	ExecutedAt time.Time
}
