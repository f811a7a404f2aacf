package service

import (
	"errors"
	"testing"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

func TestRegister_Success(t *testing.T) {
	e := newTestEnv(t)

	a, err := e.accounts.Register("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "alice" {
		t.Errorf("got id %q, want alice", a.ID)
	}
	if e.whitelist.IsWhitelisted("alice") {
		t.Error("registration must not whitelist")
	}
}

func TestRegister_Errors(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.accounts.Register("alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"duplicate", "alice", domain.ErrAccountExists},
		{"empty", "", nil},
		{"bad characters", "al ice", nil},
		{"too long", string(make([]byte, 65)), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.accounts.Register(tt.id)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("got %v, want %v", err, tt.want)
				}
				return
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want ValidationError", err)
			}
		})
	}
}

func TestDeposit_CreditsAvailable(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.accounts.Register("alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	h, err := e.accounts.Deposit(as("alice"), "alice", AmountInput{Quantity: "12.5", Symbol: "EOS"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Available.Equal(eos(125_000)) || !h.Held.IsZero() {
		t.Errorf("got %+v, want 12.5000 EOS available", h)
	}
}

func TestDeposit_Errors(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.accounts.Register("alice"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := e.accounts.Deposit(as("bob"), "alice", AmountInput{"1", "EOS"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("wrong signer: got %v, want ErrUnauthorized", err)
	}
	if _, err := e.accounts.Deposit(as("alice"), "alice", AmountInput{"0", "EOS"}); err == nil {
		t.Error("zero deposit: expected error")
	}
	if _, err := e.accounts.Deposit(as("alice"), "alice", AmountInput{"1", "DOGE"}); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("unknown asset: got %v, want ErrAssetNotFound", err)
	}
	if _, err := e.accounts.Deposit(as(testAdmin), "ghost", AmountInput{"1", "EOS"}); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("unknown account: got %v, want ErrAccountNotFound", err)
	}
}

func TestWithdraw_HeldFundsStayPut(t *testing.T) {
	e := newTestEnv(t)
	seedBook(t, e)

	// alice holds 200.0000 EOS, 100.0000 of it escrowed by her order.
	if _, err := e.accounts.Withdraw(as("alice"), "alice", AmountInput{"150", "EOS"}); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
	h, err := e.accounts.Withdraw(as("alice"), "alice", AmountInput{"100", "EOS"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Available.IsZero() || !h.Held.Equal(eos(1_000_000)) {
		t.Errorf("got %+v, want 0 available and 100.0000 held", h)
	}
}

func TestGetBalance_SortedBySymbol(t *testing.T) {
	e := newTestEnv(t)
	seedBook(t, e)
	if _, err := e.exchange.TradeMarket(as("bob"), MarketTradeRequest{
		Seller:     "bob",
		SellSymbol: "USD",
		Receive:    AmountInput{Quantity: "10", Symbol: "EOS"},
	}); err != nil {
		t.Fatalf("trade: %v", err)
	}

	resp, err := e.accounts.GetBalance("bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Holdings) != 2 {
		t.Fatalf("got %d holdings, want 2", len(resp.Holdings))
	}
	if resp.Holdings[0].Asset != testEOS || resp.Holdings[1].Asset != testUSD {
		t.Errorf("got %v, %v; want EOS then USD", resp.Holdings[0].Asset, resp.Holdings[1].Asset)
	}
	if !resp.Holdings[1].Available.Equal(usd(99_500)) {
		t.Errorf("got bob USD %s, want 995.00", resp.Holdings[1].Available)
	}

	if _, err := e.accounts.GetBalance("ghost"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("got %v, want ErrAccountNotFound", err)
	}
}

func TestWhitelist_AdminOnly(t *testing.T) {
	e := newTestEnv(t)

	if err := e.accounts.Whitelist(as("alice"), []string{"alice"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if _, err := e.accounts.ListWhitelist(as("alice")); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestWhitelist_AllOrNothing(t *testing.T) {
	e := newTestEnv(t)
	admin := as(testAdmin)

	if err := e.accounts.Whitelist(admin, []string{"alice", "bob"}); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := e.accounts.Whitelist(admin, []string{"carol", "bob"}); !errors.Is(err, domain.ErrAlreadyWhitelisted) {
		t.Fatalf("got %v, want ErrAlreadyWhitelisted", err)
	}
	if e.whitelist.IsWhitelisted("carol") {
		t.Error("carol was whitelisted by a failed batch")
	}

	if err := e.accounts.Unwhitelist(admin, []string{"alice", "carol"}); !errors.Is(err, domain.ErrNotWhitelisted) {
		t.Fatalf("got %v, want ErrNotWhitelisted", err)
	}
	if !e.whitelist.IsWhitelisted("alice") {
		t.Error("alice was removed by a failed batch")
	}

	if err := e.accounts.Unwhitelist(admin, []string{"alice"}); err != nil {
		t.Fatalf("unwhitelist: %v", err)
	}
	list, err := e.accounts.ListWhitelist(admin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0] != "bob" {
		t.Errorf("got %v, want [bob]", list)
	}
}

func TestWhitelist_Validation(t *testing.T) {
	e := newTestEnv(t)
	admin := as(testAdmin)

	for _, accounts := range [][]string{nil, {"ok", "not ok"}} {
		err := e.accounts.Whitelist(admin, accounts)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%v: got %v, want ValidationError", accounts, err)
		}
	}
}
