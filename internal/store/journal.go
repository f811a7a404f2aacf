package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// JournalEntry is one committed exchange event as stored on disk.
type JournalEntry struct {
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// Journal is an append-only, durable log of committed exchange events
// backed by pebble. Keys are "j:" followed by the big-endian sequence
// number, so iteration order is commit order.
type Journal struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq uint64
}

// OpenJournal opens or creates the journal in dir. A nil fs uses the
// operating system's filesystem; tests pass vfs.NewMem().
func OpenJournal(dir string, fs vfs.FS) (*Journal, error) {
	opts := &pebble.Options{}
	if fs != nil {
		opts.FS = fs
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.loadSeq(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func journalKey(seq uint64) []byte {
	k := make([]byte, 2+8)
	copy(k, "j:")
	binary.BigEndian.PutUint64(k[2:], seq)
	return k
}

// loadSeq resumes numbering after the last stored entry.
func (j *Journal) loadSeq() error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: journalKey(0),
		UpperBound: []byte("j;"),
	})
	if err != nil {
		return fmt.Errorf("scan journal: %w", err)
	}
	defer iter.Close()

	if iter.Last() {
		j.seq = binary.BigEndian.Uint64(iter.Key()[2:])
	}
	return nil
}

// Append stores one event and returns its sequence number. The write is
// synced before Append returns.
func (j *Journal) Append(typ string, at time.Time, payload any) (uint64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode %s payload: %w", typ, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	seq := j.seq + 1
	data, err := json.Marshal(JournalEntry{Seq: seq, Type: typ, At: at, Payload: raw})
	if err != nil {
		return 0, fmt.Errorf("encode journal entry: %w", err)
	}
	if err := j.db.Set(journalKey(seq), data, pebble.Sync); err != nil {
		return 0, fmt.Errorf("write journal entry: %w", err)
	}
	j.seq = seq
	return seq, nil
}

// Since returns up to limit entries with a sequence number greater than
// after, oldest first. A non-positive limit returns everything.
func (j *Journal) Since(after uint64, limit int) ([]JournalEntry, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: journalKey(after + 1),
		UpperBound: []byte("j;"),
	})
	if err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	defer iter.Close()

	out := make([]JournalEntry, 0)
	for iter.First(); iter.Valid(); iter.Next() {
		var e JournalEntry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("decode journal entry: %w", err)
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, iter.Error()
}

// LastSeq returns the sequence number of the newest entry, or 0.
func (j *Journal) LastSeq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.seq
}

// Close flushes and closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
