package service

import (
	"context"
	"log/slog"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"github.com/efreitasn/tokenexchange/internal/store"
)

// BalanceResponse is an account's holdings of every asset it touched.
type BalanceResponse struct {
	Account  *domain.Account
	Holdings []HoldingBalance
}

// HoldingBalance is one asset of a BalanceResponse.
type HoldingBalance struct {
	Asset     domain.AssetType
	Available domain.Amount
	Held      domain.Amount
}

// AccountService handles account registration, custody movements and
// whitelist administration.
type AccountService struct {
	ledger    *store.Ledger
	whitelist *store.Whitelist
	catalog   *domain.AssetCatalog
	logger    *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(
	ledger *store.Ledger,
	whitelist *store.Whitelist,
	catalog *domain.AssetCatalog,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		ledger:    ledger,
		whitelist: whitelist,
		catalog:   catalog,
		logger:    logger,
	}
}

// Register opens an empty account. Registration is open; trading still
// requires the administrator to whitelist the account.
func (s *AccountService) Register(accountID string) (*domain.Account, error) {
	if err := validateAccountID("account_id", accountID); err != nil {
		return nil, err
	}
	a, err := s.ledger.Create(domain.AccountID(accountID))
	if err != nil {
		return nil, err
	}
	s.logger.Info("account registered", slog.String("account_id", accountID))
	return a, nil
}

// Deposit credits an amount to the account's available balance.
func (s *AccountService) Deposit(ctx context.Context, accountID domain.AccountID, in AmountInput) (*HoldingBalance, error) {
	amount, err := s.custodyAmount(ctx, accountID, in)
	if err != nil {
		return nil, err
	}
	h, err := s.ledger.Deposit(accountID, amount)
	if err != nil {
		return nil, err
	}
	s.logger.Info("deposit",
		slog.String("account_id", string(accountID)),
		slog.String("amount", amount.String()),
	)
	return holdingBalance(amount.Type, h), nil
}

// Withdraw debits an amount from the account's available balance. Funds
// backing resting orders cannot be withdrawn.
func (s *AccountService) Withdraw(ctx context.Context, accountID domain.AccountID, in AmountInput) (*HoldingBalance, error) {
	amount, err := s.custodyAmount(ctx, accountID, in)
	if err != nil {
		return nil, err
	}
	h, err := s.ledger.Withdraw(accountID, amount)
	if err != nil {
		return nil, err
	}
	s.logger.Info("withdrawal",
		slog.String("account_id", string(accountID)),
		slog.String("amount", amount.String()),
	)
	return holdingBalance(amount.Type, h), nil
}

func (s *AccountService) custodyAmount(ctx context.Context, accountID domain.AccountID, in AmountInput) (domain.Amount, error) {
	if err := s.whitelist.Authorize(ctx, accountID); err != nil {
		return domain.Amount{}, err
	}
	amount, err := resolveAmount(s.catalog, "amount", in)
	if err != nil {
		return domain.Amount{}, err
	}
	if amount.Quantity <= 0 {
		return domain.Amount{}, &domain.ValidationError{Message: "amount must be positive"}
	}
	return amount, nil
}

// GetBalance returns every holding of the account ordered by symbol.
func (s *AccountService) GetBalance(accountID domain.AccountID) (*BalanceResponse, error) {
	a, err := s.ledger.Get(accountID)
	if err != nil {
		return nil, err
	}

	assets := make([]domain.AssetType, 0, len(a.Holdings))
	for t := range a.Holdings {
		assets = append(assets, t)
	}
	sortAssets(assets)

	resp := &BalanceResponse{Account: a, Holdings: make([]HoldingBalance, 0, len(assets))}
	for _, t := range assets {
		resp.Holdings = append(resp.Holdings, *holdingBalance(t, a.Holding(t)))
	}
	return resp, nil
}

// Whitelist admits accounts to trading, all or none. Administrator only.
func (s *AccountService) Whitelist(ctx context.Context, accounts []string) error {
	ids, err := s.adminAccounts(ctx, accounts)
	if err != nil {
		return err
	}
	if err := s.whitelist.AddMany(ids); err != nil {
		return err
	}
	s.logger.Info("accounts whitelisted", slog.Any("accounts", ids))
	return nil
}

// Unwhitelist removes accounts from trading, all or none. Administrator
// only. Their resting orders stay on the book but stop matching.
func (s *AccountService) Unwhitelist(ctx context.Context, accounts []string) error {
	ids, err := s.adminAccounts(ctx, accounts)
	if err != nil {
		return err
	}
	if err := s.whitelist.RemoveMany(ids); err != nil {
		return err
	}
	s.logger.Info("accounts unwhitelisted", slog.Any("accounts", ids))
	return nil
}

// AuthorizeFeed checks that the signer may follow account's live events:
// the account itself or the administrator.
func (s *AccountService) AuthorizeFeed(ctx context.Context, account domain.AccountID) error {
	return s.whitelist.Authorize(ctx, account)
}

// ListWhitelist returns the whitelisted accounts. Administrator only.
func (s *AccountService) ListWhitelist(ctx context.Context) ([]domain.AccountID, error) {
	if err := s.whitelist.AuthorizeAdmin(ctx); err != nil {
		return nil, err
	}
	return s.whitelist.List(), nil
}

func (s *AccountService) adminAccounts(ctx context.Context, accounts []string) ([]domain.AccountID, error) {
	if err := s.whitelist.AuthorizeAdmin(ctx); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, &domain.ValidationError{Message: "accounts must be a non-empty array"}
	}
	ids := make([]domain.AccountID, len(accounts))
	for i, a := range accounts {
		if err := validateAccountID("accounts", a); err != nil {
			return nil, err
		}
		ids[i] = domain.AccountID(a)
	}
	return ids, nil
}

func holdingBalance(t domain.AssetType, h domain.Holding) *HoldingBalance {
	return &HoldingBalance{
		Asset:     t,
		Available: domain.NewAmount(h.Available, t),
		Held:      domain.NewAmount(h.Held, t),
	}
}
