package engine

import (
	"testing"

	"github.com/efreitasn/tokenexchange/internal/domain"
)

func TestPairRegistry_FindOrCreate(t *testing.T) {
	r := NewPairRegistry()

	p, created, err := r.FindOrCreate(assetX, assetY)
	if err != nil || !created || p.ID != 0 {
		t.Fatalf("expected new pair 0, got %+v created=%v err=%v", p, created, err)
	}

	again, created, err := r.FindOrCreate(assetX, assetY)
	if err != nil || created || again.ID != 0 {
		t.Fatalf("expected existing pair 0, got %+v created=%v err=%v", again, created, err)
	}

	// Direction matters.
	rev, created, err := r.FindOrCreate(assetY, assetX)
	if err != nil || !created || rev.ID != 1 {
		t.Fatalf("expected new reverse pair 1, got %+v created=%v err=%v", rev, created, err)
	}

	if _, _, err := r.FindOrCreate(assetX, assetX); err != domain.ErrInvalidExchange {
		t.Fatalf("expected ErrInvalidExchange, got %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 pairs, got %d", r.Len())
	}
}

func TestPairRegistry_FindNeverCreates(t *testing.T) {
	r := NewPairRegistry()
	if _, ok := r.Find(assetX, assetY); ok {
		t.Fatal("expected no pair")
	}
	if r.Len() != 0 {
		t.Fatal("Find must not create pairs")
	}
}

func TestPairRegistry_ListAndGet(t *testing.T) {
	r := NewPairRegistry()
	_, _, _ = r.FindOrCreate(assetX, assetY)
	_, _, _ = r.FindOrCreate(assetE, assetU)
	_, _, _ = r.FindOrCreate(assetY, assetX)

	list := r.List()
	for i, p := range list {
		if p.ID != uint64(i) {
			t.Fatalf("list not ordered by id: %+v", list)
		}
	}
	p, ok := r.Get(1)
	if !ok || p.Base != assetE || p.Quote != assetU {
		t.Fatalf("unexpected pair 1: %+v", p)
	}
}

func TestPairRegistry_DropHandsIDBack(t *testing.T) {
	r := NewPairRegistry()
	p, _, _ := r.FindOrCreate(assetX, assetY)
	r.drop(p.ID)

	if _, ok := r.Find(assetX, assetY); ok {
		t.Fatal("dropped pair still registered")
	}
	again, _, _ := r.FindOrCreate(assetE, assetU)
	if again.ID != p.ID {
		t.Fatalf("expected id %d to be reused after drop, got %d", p.ID, again.ID)
	}
}

func TestPairRegistry_Reset(t *testing.T) {
	r := NewPairRegistry()
	_, _, _ = r.FindOrCreate(assetX, assetY)
	_, _, _ = r.FindOrCreate(assetY, assetX)
	r.Reset()

	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
	p, _, _ := r.FindOrCreate(assetE, assetU)
	if p.ID != 0 {
		t.Fatalf("expected ids to restart at 0, got %d", p.ID)
	}
}
