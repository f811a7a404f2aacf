package store

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

// Ledger is a thread-safe in-memory custody ledger, keyed by account id.
// Every asset an account holds is split into an available and a held
// balance; the matching engine moves funds between them through Apply.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[domain.AccountID]*domain.Account
	now      func() time.Time
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		accounts: make(map[domain.AccountID]*domain.Account),
		now:      time.Now,
	}
}

// Create opens an account with no holdings. It returns
// domain.ErrAccountExists if the id is taken.
func (l *Ledger) Create(id domain.AccountID) (*domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.accounts[id]; exists {
		return nil, domain.ErrAccountExists
	}
	now := l.now()
	a := &domain.Account{
		ID:        id,
		Holdings:  make(map[domain.AssetType]*domain.Holding),
		CreatedAt: now,
		UpdatedAt: now,
	}
	l.accounts[id] = a
	return snapshot(a), nil
}

// Get returns a snapshot of an account. It returns
// domain.ErrAccountNotFound if the account does not exist.
func (l *Ledger) Get(id domain.AccountID) (*domain.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, ok := l.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return snapshot(a), nil
}

// Exists returns true if an account with the given id exists.
func (l *Ledger) Exists(id domain.AccountID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.accounts[id]
	return ok
}

// Deposit credits amount to the account's available balance.
func (l *Ledger) Deposit(id domain.AccountID, amount domain.Amount) (domain.Holding, error) {
	if !amount.Positive() {
		return domain.Holding{}, domain.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[id]
	if !ok {
		return domain.Holding{}, domain.ErrAccountNotFound
	}
	h := holdingOf(a, amount.Type)
	if h.Available > math.MaxInt64-amount.Quantity {
		return domain.Holding{}, domain.ErrInvalidAmount
	}
	h.Available += amount.Quantity
	a.UpdatedAt = l.now()
	return *h, nil
}

// Withdraw debits amount from the account's available balance. Held funds
// cannot be withdrawn.
func (l *Ledger) Withdraw(id domain.AccountID, amount domain.Amount) (domain.Holding, error) {
	if !amount.Positive() {
		return domain.Holding{}, domain.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[id]
	if !ok {
		return domain.Holding{}, domain.ErrAccountNotFound
	}
	h, ok := a.Holdings[amount.Type]
	if !ok || h.Available < amount.Quantity {
		return domain.Holding{}, domain.ErrInsufficientFunds
	}
	h.Available -= amount.Quantity
	a.UpdatedAt = l.now()
	return *h, nil
}

type holdingKey struct {
	account domain.AccountID
	asset   domain.AssetType
}

// Apply executes a settlement batch all-or-nothing. The instructions run
// in order against working copies of the touched holdings; the copies are
// written back only if every instruction succeeds, so a failure leaves
// every balance as it was.
func (l *Ledger) Apply(batch []domain.Instruction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	work := make(map[holdingKey]domain.Holding)
	load := func(id domain.AccountID, t domain.AssetType) (domain.Holding, error) {
		k := holdingKey{account: id, asset: t}
		if h, ok := work[k]; ok {
			return h, nil
		}
		a, ok := l.accounts[id]
		if !ok {
			return domain.Holding{}, domain.ErrAccountNotFound
		}
		return a.Holding(t), nil
	}

	for _, in := range batch {
		if !in.Amount.Valid() {
			return domain.ErrInvalidAmount
		}
		qty := in.Amount.Quantity
		from, err := load(in.From, in.Amount.Type)
		if err != nil {
			return err
		}

		switch in.Kind {
		case domain.InstructionEscrow:
			if from.Available < qty {
				return domain.ErrInsufficientFunds
			}
			from.Available -= qty
			from.Held += qty
		case domain.InstructionRelease:
			if from.Held < qty {
				return domain.ErrInsufficientFunds
			}
			from.Held -= qty
			from.Available += qty
		case domain.InstructionSettle:
			if from.Held < qty {
				return domain.ErrInsufficientFunds
			}
			from.Held -= qty
		default:
			return domain.ErrIncorrectState
		}
		work[holdingKey{account: in.From, asset: in.Amount.Type}] = from

		if in.Kind == domain.InstructionSettle {
			to, err := load(in.To, in.Amount.Type)
			if err != nil {
				return err
			}
			if to.Available > math.MaxInt64-qty {
				return domain.ErrInvalidAmount
			}
			to.Available += qty
			work[holdingKey{account: in.To, asset: in.Amount.Type}] = to
		}
	}

	now := l.now()
	for k, h := range work {
		a := l.accounts[k.account]
		*holdingOf(a, k.asset) = h
		a.UpdatedAt = now
	}
	return nil
}

// Total returns the sum of available and held balances of one asset across
// all accounts.
func (l *Ledger) Total(t domain.AssetType) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for _, a := range l.accounts {
		total += a.Holding(t).Total()
	}
	return total
}

// List returns snapshots of all accounts ordered by id.
func (l *Ledger) List() []*domain.Account {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*domain.Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, snapshot(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func holdingOf(a *domain.Account, t domain.AssetType) *domain.Holding {
	h, ok := a.Holdings[t]
	if !ok {
		h = &domain.Holding{}
		a.Holdings[t] = h
	}
	return h
}

// snapshot copies an account so callers never alias ledger state.
func snapshot(a *domain.Account) *domain.Account {
	c := &domain.Account{
		ID:        a.ID,
		Holdings:  make(map[domain.AssetType]*domain.Holding, len(a.Holdings)),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	for t, h := range a.Holdings {
		hc := *h
		c.Holdings[t] = &hc
	}
	return c
}
