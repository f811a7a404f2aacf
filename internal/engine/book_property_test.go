package engine

import (
	"testing"

	"github.com/efreitasn/tokenexchange/internal/domain"
	"pgregory.net/rapid"
)

// checkBook asserts that the price tree and the id index describe the same
// orders and that traversal follows (price, id) order.
func checkBook(t *rapid.T, ob *OrderBook) {
	var (
		prev  *domain.RestingOrder
		count int
		base  int64
	)
	ob.Walk(func(o *domain.RestingOrder) bool {
		count++
		base += o.Base.Quantity
		if live, ok := ob.Get(o.ID); !ok || live != o {
			t.Fatalf("order %d walked but not indexed", o.ID)
		}
		if prev != nil && !keyLess(bookKey{prev.Price, prev.ID}, bookKey{o.Price, o.ID}) {
			t.Fatalf("order %d (%s) walked after %d (%s)", o.ID, o.Price, prev.ID, prev.Price)
		}
		prev = o
		return true
	})
	if count != ob.Len() {
		t.Fatalf("walked %d orders, index holds %d", count, ob.Len())
	}

	var levelBase int64
	for _, lvl := range ob.Depth(count + 1) {
		levelBase += lvl.TotalBase.Quantity
	}
	if levelBase != base {
		t.Fatalf("depth sums %d base, orders hold %d", levelBase, base)
	}
}

func TestProperty_BookIndexesAgree(t *testing.T) {
	managers := []domain.AccountID{"alice", "bob", "carol"}

	rapid.Check(t, func(t *rapid.T) {
		ob := newTestBook()
		var live []uint64

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			op := rapid.IntRange(0, 2).Draw(t, "op")
			switch {
			case op == 0 || len(live) == 0:
				o, combined := ob.InsertOrCombine(
					rapid.SampledFrom(managers).Draw(t, "manager"),
					x(rapid.Int64Range(1, 20).Draw(t, "base")),
					y(rapid.Int64Range(1, 20).Draw(t, "quote")),
					baseTime,
				)
				if !combined {
					live = append(live, o.ID)
				}
			case op == 1:
				idx := rapid.IntRange(0, len(live)-1).Draw(t, "removeIdx")
				if _, err := ob.Remove(live[idx]); err != nil {
					t.Fatalf("remove %d: %v", live[idx], err)
				}
				live = append(live[:idx], live[idx+1:]...)
			default:
				id := live[rapid.IntRange(0, len(live)-1).Draw(t, "reduceIdx")]
				o, _ := ob.Get(id)
				if o.Base.Quantity < 2 || o.Quote.Quantity < 2 {
					continue
				}
				db := rapid.Int64Range(0, o.Base.Quantity-1).Draw(t, "db")
				dq := rapid.Int64Range(0, o.Quote.Quantity-1).Draw(t, "dq")
				if err := ob.Reduce(id, x(db), y(dq)); err != nil {
					t.Fatalf("reduce %d by %d/%d: %v", id, db, dq, err)
				}
			}
			checkBook(t, ob)
		}
		if ob.Len() != len(live) {
			t.Fatalf("book holds %d orders, tracked %d", ob.Len(), len(live))
		}
	})
}

// A cursor must visit every order once, in order, even when the caller
// removes each order right after reading it.
func TestProperty_CursorSurvivesRemoval(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := newTestBook()
		n := rapid.IntRange(0, 40).Draw(t, "n")
		for i := 0; i < n; i++ {
			ob.InsertOrCombine(
				domain.AccountID(rapid.SampledFrom([]string{"m1", "m2", "m3", "m4"}).Draw(t, "manager")),
				x(rapid.Int64Range(1, 9).Draw(t, "base")),
				y(rapid.Int64Range(1, 9).Draw(t, "quote")),
				baseTime,
			)
		}
		want := bookIDs(ob)

		var got []uint64
		cur := ob.Cursor()
		for {
			o, ok := cur.Next()
			if !ok {
				break
			}
			got = append(got, o.ID)
			if rapid.Bool().Draw(t, "remove") {
				if _, err := ob.Remove(o.ID); err != nil {
					t.Fatalf("remove %d: %v", o.ID, err)
				}
			}
		}
		if !equalIDs(got, want) {
			t.Fatalf("cursor visited %v, want %v", got, want)
		}
	})
}
