package engine

import "github.com/efreitasn/tokenexchange/internal/domain"

// txn is the unit of work of a single request. Book and registry mutations
// register an undo step as they happen; settlement instructions are
// buffered and handed to custody in one batch at commit. If anything
// fails, rollback replays the undo steps in reverse so the request leaves
// no trace.
type txn struct {
	undo  []func()
	batch []domain.Instruction
}

func (t *txn) onRollback(f func()) {
	t.undo = append(t.undo, f)
}

// emit queues settlement instructions. Zero-quantity movements are dropped.
func (t *txn) emit(ins ...domain.Instruction) {
	for _, in := range ins {
		if in.Amount.IsZero() {
			continue
		}
		t.batch = append(t.batch, in)
	}
}

func (t *txn) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.batch = nil
}
