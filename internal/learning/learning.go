// Package learning keeps a bounded per-position score table that
// nudges the static evaluation toward results the engine has actually
// seen, persisted across sessions in a badger database.
package learning

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
)

// tableSize bounds the in-memory table. Collisions overwrite.
const tableSize = 1 << 20

type entry struct {
	key   uint64
	cum   int64 // cumulative centipawn score
	count uint32
}

// Table accumulates (score, count) per position hash and serves the
// clipped average as an evaluation adjustment. Records happen between
// moves while probes come from search workers, so access goes through
// a reader/writer lock.
type Table struct {
	mu      sync.RWMutex
	entries []entry

	// Rate scales the served adjustment, in percent.
	Rate int
	// MaxAdjust clips the adjustment, in centipawns.
	MaxAdjust int
}

// New creates an empty table with a 100% rate and a 50cp clip.
func New() *Table {
	return &Table{
		entries:   make([]entry, tableSize),
		Rate:      100,
		MaxAdjust: 50,
	}
}

// index mixes the zobrist key so clustered hashes spread across the
// table.
func index(hash uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], hash)
	return xxhash.Sum64(b[:]) & (tableSize - 1)
}

// Record adds one observed score for the position.
func (t *Table) Record(hash uint64, score int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := &t.entries[index(hash)]
	if e.count == 0 || e.key != hash {
		*e = entry{key: hash}
	}
	e.cum += int64(score)
	e.count++
}

// Adjust returns the clipped learned correction for the position, in
// centipawns. Implements the evaluation adjuster interface.
func (t *Table) Adjust(hash uint64) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e := &t.entries[index(hash)]
	if e.count == 0 || e.key != hash {
		return 0
	}
	adj := int(int64(t.Rate) * e.cum / (100 * int64(e.count)))
	if adj > t.MaxAdjust {
		adj = t.MaxAdjust
	} else if adj < -t.MaxAdjust {
		adj = -t.MaxAdjust
	}
	return adj
}

// Clear wipes every entry.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		t.entries[i] = entry{}
	}
}

// Len returns the number of occupied entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for i := range t.entries {
		if t.entries[i].count > 0 {
			n++
		}
	}
	return n
}

// openDB opens the badger database at path with logging silenced.
func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	return badger.Open(opts)
}

// Save persists every occupied entry to the database directory at
// path. Keys are the 8-byte position hash, values the cumulative
// score and count.
func (t *Table) Save(path string) error {
	db, err := openDB(path)
	if err != nil {
		return fmt.Errorf("open learning db: %w", err)
	}
	defer db.Close()

	wb := db.NewWriteBatch()
	defer wb.Cancel()

	t.mu.RLock()
	for i := range t.entries {
		e := &t.entries[i]
		if e.count == 0 {
			continue
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], e.key)
		var val [12]byte
		binary.LittleEndian.PutUint64(val[:8], uint64(e.cum))
		binary.LittleEndian.PutUint32(val[8:], e.count)
		if err := wb.Set(key[:], val[:]); err != nil {
			t.mu.RUnlock()
			return fmt.Errorf("write learning entry: %w", err)
		}
	}
	t.mu.RUnlock()

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush learning db: %w", err)
	}
	return nil
}

// Load merges entries from the database directory at path into the
// table. Missing databases are not an error; the table just starts
// empty.
func (t *Table) Load(path string) error {
	db, err := openDB(path)
	if err != nil {
		return fmt.Errorf("open learning db: %w", err)
	}
	defer db.Close()

	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := item.Key()
			if len(k) != 8 {
				continue
			}
			hash := binary.BigEndian.Uint64(k)
			err := item.Value(func(val []byte) error {
				if len(val) != 12 {
					return nil
				}
				cum := int64(binary.LittleEndian.Uint64(val[:8]))
				count := binary.LittleEndian.Uint32(val[8:])
				t.mu.Lock()
				t.entries[index(hash)] = entry{key: hash, cum: cum, count: count}
				t.mu.Unlock()
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
