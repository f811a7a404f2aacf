package domain

import "time"

// Holding is an account's balance of a single asset. Held funds back resting
// orders or in-flight trades and cannot be withdrawn.
type Holding struct {
	Available int64
	Held      int64
}

// Total returns available plus held.
func (h Holding) Total() int64 {
	return h.Available + h.Held
}

// Account is a participant on the ledger.
type Account struct {
	ID        AccountID
	Holdings  map[AssetType]*Holding
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Holding returns a copy of the holding for the given asset, or a zero
// holding when the account never touched it.
func (a *Account) Holding(t AssetType) Holding {
	h, ok := a.Holdings[t]
	if !ok {
		return Holding{}
	}
	return *h
}
