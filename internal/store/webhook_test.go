package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

func hook(id string, account domain.AccountID, event, url string) *domain.Webhook {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Webhook{WebhookID: id, AccountID: account, Event: event, URL: url, CreatedAt: at, UpdatedAt: at}
}

func TestWebhookStore_UpsertKeepsOneRecordPerEvent(t *testing.T) {
	s := NewWebhookStore()

	first, created := s.Upsert(hook("wh-1", "alice", "trade.executed", "https://alice.example/v1"))
	if !created || first.WebhookID != "wh-1" {
		t.Fatalf("first upsert: created=%v stored=%+v", created, first)
	}

	tests := []struct {
		name    string
		id, url string
		wantURL string
	}{
		{"same url is a no-op", "wh-2", "https://alice.example/v1", "https://alice.example/v1"},
		{"new url replaces old", "wh-3", "https://alice.example/v2", "https://alice.example/v2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := hook(tt.id, "alice", "trade.executed", tt.url)
			next.UpdatedAt = next.UpdatedAt.Add(time.Minute)

			stored, created := s.Upsert(next)
			if created {
				t.Fatal("existing subscription reported as created")
			}
			if stored.WebhookID != "wh-1" || stored.URL != tt.wantURL {
				t.Fatalf("stored = %+v", stored)
			}
			if _, err := s.Get(tt.id); !errors.Is(err, domain.ErrWebhookNotFound) {
				t.Fatalf("rejected id %s is retrievable: %v", tt.id, err)
			}
		})
	}
}

func TestWebhookStore_ReturnsCopies(t *testing.T) {
	s := NewWebhookStore()
	in := hook("wh-1", "alice", "order.created", "https://alice.example")
	out, _ := s.Upsert(in)

	in.URL = "https://mutated.example"
	out.URL = "https://mutated.example"

	got, err := s.Get("wh-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.URL != "https://alice.example" {
		t.Fatalf("store shares memory with callers: %s", got.URL)
	}
}

func TestWebhookStore_ListAndLookup(t *testing.T) {
	s := NewWebhookStore()
	s.Upsert(hook("wh-1", "alice", "trade.executed", "https://a.example/t"))
	s.Upsert(hook("wh-2", "alice", "order.created", "https://a.example/c"))
	s.Upsert(hook("wh-3", "alice", "order.cancelled", "https://a.example/x"))
	s.Upsert(hook("wh-4", "bob", "order.created", "https://b.example/c"))

	list := s.ListByAccount("alice")
	var events []string
	for _, w := range list {
		events = append(events, w.Event)
	}
	if fmt.Sprint(events) != "[order.cancelled order.created trade.executed]" {
		t.Fatalf("events = %v", events)
	}

	if empty := s.ListByAccount("carol"); empty == nil || len(empty) != 0 {
		t.Fatalf("unknown account list = %#v, want empty non-nil", empty)
	}

	if w := s.GetByAccountEvent("bob", "order.created"); w == nil || w.WebhookID != "wh-4" {
		t.Fatalf("bob order.created = %+v", w)
	}
	if w := s.GetByAccountEvent("bob", "trade.executed"); w != nil {
		t.Fatalf("bob has no trade hook, got %+v", w)
	}
}

func TestWebhookStore_Delete(t *testing.T) {
	s := NewWebhookStore()
	s.Upsert(hook("wh-1", "alice", "trade.executed", "https://a.example/t"))
	s.Upsert(hook("wh-2", "alice", "order.cancelled", "https://a.example/x"))

	if err := s.Delete("wh-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("wh-1"); !errors.Is(err, domain.ErrWebhookNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if s.GetByAccountEvent("alice", "trade.executed") != nil {
		t.Fatal("event index still holds the deleted hook")
	}
	if list := s.ListByAccount("alice"); len(list) != 1 || list[0].WebhookID != "wh-2" {
		t.Fatalf("remaining = %+v", list)
	}

	// The freed slot accepts a new subscription.
	if _, created := s.Upsert(hook("wh-5", "alice", "trade.executed", "https://a.example/t2")); !created {
		t.Fatal("re-subscribing after delete should create")
	}
}

func TestWebhookStore_Concurrent(t *testing.T) {
	s := NewWebhookStore()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acct := domain.AccountID(fmt.Sprintf("acct-%d", i%8))
			id := fmt.Sprintf("wh-%d", i)
			s.Upsert(hook(id, acct, fmt.Sprintf("ev-%d", i), "https://x.example"))
			s.ListByAccount(acct)
			if i%2 == 0 {
				_ = s.Delete(id)
			}
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 8; i++ {
		total += len(s.ListByAccount(domain.AccountID(fmt.Sprintf("acct-%d", i))))
	}
	if total != 32 {
		t.Fatalf("remaining = %d, want 32", total)
	}
}
