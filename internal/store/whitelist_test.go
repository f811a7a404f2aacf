package store

import (
	"context"
	"testing"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

func TestWhitelist_AddRemove(t *testing.T) {
	w := NewWhitelist("admin")

	if err := w.Add("alice"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !w.IsWhitelisted("alice") {
		t.Fatal("expected alice to be whitelisted")
	}
	if err := w.Add("alice"); err != domain.ErrAlreadyWhitelisted {
		t.Fatalf("expected ErrAlreadyWhitelisted, got %v", err)
	}
	if err := w.Remove("alice"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if w.IsWhitelisted("alice") {
		t.Fatal("expected alice to be delisted")
	}
	if err := w.Remove("alice"); err != domain.ErrNotWhitelisted {
		t.Fatalf("expected ErrNotWhitelisted, got %v", err)
	}
}

func TestWhitelist_AddMany_AllOrNothing(t *testing.T) {
	w := NewWhitelist("admin")
	_ = w.Add("carol")

	if err := w.AddMany([]domain.AccountID{"alice", "bob", "carol"}); err != domain.ErrAlreadyWhitelisted {
		t.Fatalf("expected ErrAlreadyWhitelisted, got %v", err)
	}
	if w.IsWhitelisted("alice") || w.IsWhitelisted("bob") {
		t.Fatal("failed AddMany must not whitelist anyone")
	}

	if err := w.AddMany([]domain.AccountID{"alice", "alice"}); err != domain.ErrAlreadyWhitelisted {
		t.Fatalf("expected ErrAlreadyWhitelisted for duplicate entry, got %v", err)
	}

	if err := w.AddMany([]domain.AccountID{"alice", "bob"}); err != nil {
		t.Fatalf("add many: %v", err)
	}
	got := w.List()
	want := []domain.AccountID{"alice", "bob", "carol"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestWhitelist_RemoveMany_AllOrNothing(t *testing.T) {
	w := NewWhitelist("admin")
	_ = w.AddMany([]domain.AccountID{"alice", "bob"})

	if err := w.RemoveMany([]domain.AccountID{"alice", "zed"}); err != domain.ErrNotWhitelisted {
		t.Fatalf("expected ErrNotWhitelisted, got %v", err)
	}
	if !w.IsWhitelisted("alice") {
		t.Fatal("failed RemoveMany must not delist anyone")
	}
	if err := w.RemoveMany([]domain.AccountID{"alice", "bob"}); err != nil {
		t.Fatalf("remove many: %v", err)
	}
	if len(w.List()) != 0 {
		t.Fatalf("expected empty whitelist, got %v", w.List())
	}
}

func TestWhitelist_Authorize(t *testing.T) {
	w := NewWhitelist("admin")

	tests := []struct {
		name    string
		ctx     context.Context
		account domain.AccountID
		wantErr error
	}{
		{"self", domain.WithSigner(context.Background(), "alice"), "alice", nil},
		{"admin acts for anyone", domain.WithSigner(context.Background(), "admin"), "alice", nil},
		{"other account", domain.WithSigner(context.Background(), "bob"), "alice", domain.ErrUnauthorized},
		{"no signer", context.Background(), "alice", domain.ErrUnauthorized},
		{"empty signer", domain.WithSigner(context.Background(), ""), "", domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := w.Authorize(tt.ctx, tt.account); err != tt.wantErr {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWhitelist_AuthorizeAdmin(t *testing.T) {
	w := NewWhitelist("admin")
	if err := w.AuthorizeAdmin(domain.WithSigner(context.Background(), "admin")); err != nil {
		t.Fatalf("expected admin to pass, got %v", err)
	}
	if err := w.AuthorizeAdmin(domain.WithSigner(context.Background(), "alice")); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	noAdmin := NewWhitelist("")
	if err := noAdmin.AuthorizeAdmin(domain.WithSigner(context.Background(), "alice")); err != domain.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized without admin, got %v", err)
	}
}
