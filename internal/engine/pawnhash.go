package engine

// PawnEntry caches a pawn structure score pair keyed by the pawn-only
// zobrist key.
type PawnEntry struct {
	Key     uint64
	MgScore int16
	EgScore int16
}

// PawnTable caches pawn structure evaluation. Pawn formations change
// rarely inside a search, so hit rates are high. Each worker owns its
// table; entries are whole-struct writes, never shared.
type PawnTable struct {
	entries []PawnEntry
	mask    uint64
}

// NewPawnTable allocates a pawn table of the given size in MB, rounded
// down to a power of two entries.
func NewPawnTable(sizeMB int) *PawnTable {
	entrySize := 12
	numEntries := sizeMB * 1024 * 1024 / entrySize
	size := 1
	for size*2 <= numEntries {
		size *= 2
	}
	return &PawnTable{
		entries: make([]PawnEntry, size),
		mask:    uint64(size - 1),
	}
}

// Probe returns the cached score pair for a pawn key.
func (pt *PawnTable) Probe(key uint64) (mg, eg int, found bool) {
	entry := &pt.entries[key&pt.mask]
	if entry.Key == key {
		return int(entry.MgScore), int(entry.EgScore), true
	}
	return 0, 0, false
}

// Store caches a score pair, always replacing.
func (pt *PawnTable) Store(key uint64, mg, eg int) {
	entry := &pt.entries[key&pt.mask]
	entry.Key = key
	entry.MgScore = int16(mg)
	entry.EgScore = int16(eg)
}

// Clear wipes the table.
func (pt *PawnTable) Clear() {
	for i := range pt.entries {
		pt.entries[i] = PawnEntry{}
	}
}
