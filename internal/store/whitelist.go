package store

import (
	"context"
	"sort"
	"sync"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

// Whitelist is the access gate in front of the exchange: a thread-safe set
// of accounts allowed to trade, plus the signer check that decides who may
// act for an account.
type Whitelist struct {
	mu      sync.RWMutex
	admin   domain.AccountID
	members map[domain.AccountID]struct{}
}

// NewWhitelist creates an empty whitelist administered by admin. An empty
// admin disables administrative overrides.
func NewWhitelist(admin domain.AccountID) *Whitelist {
	return &Whitelist{
		admin:   admin,
		members: make(map[domain.AccountID]struct{}),
	}
}

// Authorize succeeds when the signer carried by ctx is account itself or
// the administrator.
func (w *Whitelist) Authorize(ctx context.Context, account domain.AccountID) error {
	signer, ok := domain.SignerFromContext(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	if signer == account || (w.admin != "" && signer == w.admin) {
		return nil
	}
	return domain.ErrUnauthorized
}

// AuthorizeAdmin succeeds only for the administrator.
func (w *Whitelist) AuthorizeAdmin(ctx context.Context) error {
	signer, ok := domain.SignerFromContext(ctx)
	if !ok || w.admin == "" || signer != w.admin {
		return domain.ErrUnauthorized
	}
	return nil
}

// IsWhitelisted reports whether account may trade.
func (w *Whitelist) IsWhitelisted(account domain.AccountID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, ok := w.members[account]
	return ok
}

// Add whitelists one account. It returns domain.ErrAlreadyWhitelisted if
// the account is already a member.
func (w *Whitelist) Add(account domain.AccountID) error {
	return w.AddMany([]domain.AccountID{account})
}

// Remove delists one account. It returns domain.ErrNotWhitelisted if the
// account is not a member.
func (w *Whitelist) Remove(account domain.AccountID) error {
	return w.RemoveMany([]domain.AccountID{account})
}

// AddMany whitelists every account or none: if any of them is already a
// member, or appears twice, nothing changes.
func (w *Whitelist) AddMany(accounts []domain.AccountID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[domain.AccountID]struct{}, len(accounts))
	for _, a := range accounts {
		if _, ok := w.members[a]; ok {
			return domain.ErrAlreadyWhitelisted
		}
		if _, ok := seen[a]; ok {
			return domain.ErrAlreadyWhitelisted
		}
		seen[a] = struct{}{}
	}
	for a := range seen {
		w.members[a] = struct{}{}
	}
	return nil
}

// RemoveMany delists every account or none.
func (w *Whitelist) RemoveMany(accounts []domain.AccountID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[domain.AccountID]struct{}, len(accounts))
	for _, a := range accounts {
		if _, ok := w.members[a]; !ok {
			return domain.ErrNotWhitelisted
		}
		if _, ok := seen[a]; ok {
			return domain.ErrNotWhitelisted
		}
		seen[a] = struct{}{}
	}
	for a := range seen {
		delete(w.members, a)
	}
	return nil
}

// List returns all members in lexical order.
func (w *Whitelist) List() []domain.AccountID {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]domain.AccountID, 0, len(w.members))
	for a := range w.members {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
