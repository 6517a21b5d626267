package engine

import (
	"sync"
	"sync/atomic"

	"github.com/ABDO10DZ/Hugine/internal/board"
)

// Bound classifies the score stored in a transposition entry.
type Bound uint8

const (
	BoundNone  Bound = iota
	BoundUpper       // score failed low, true value <= Score
	BoundLower       // score failed high, true value >= Score
	BoundExact
)

// Number of lock shards (power of 2 for fast modulo)
const ttShardCount = 256
const ttShardMask = ttShardCount - 1

// TTEntry is one transposition table bucket.
type TTEntry struct {
	Key      uint64 // full hash, verified on probe
	BestMove board.Move
	Score    int16
	DTZ      int16 // tablebase distance-to-zero, 0 when unknown
	Depth    int8
	Bound    Bound
	Age      uint8
}

// TranspositionTable is shared by all search threads. Buckets are
// guarded by sharded reader-writer locks so concurrent probes never
// block each other and a multi-word entry is never torn.
type TranspositionTable struct {
	entries []TTEntry
	shards  [ttShardCount]sync.RWMutex
	mask    uint64
	age     atomic.Uint32
}

// NewTranspositionTable allocates a table of the given size in MB,
// rounded down to a power-of-two entry count.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	entrySize := uint64(24)
	numEntries := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / entrySize)
	if numEntries == 0 {
		numEntries = 1
	}
	return &TranspositionTable{
		entries: make([]TTEntry, numEntries),
		mask:    numEntries - 1,
	}
}

func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func (tt *TranspositionTable) shardIndex(idx uint64) int {
	return int(idx & ttShardMask)
}

// Probe looks up a position. hit is true only when the resident entry
// matches the key, has depth >= the requested depth, and its bound is
// usable inside the caller's window (EXACT always; LOWER only at or
// above beta; UPPER only at or below alpha). On a depth or bound
// mismatch the stored move and DTZ are still returned for ordering.
func (tt *TranspositionTable) Probe(hash uint64, depth, ply, alpha, beta int) (hit bool, score int, move board.Move, dtz int) {
	idx := hash & tt.mask
	shard := tt.shardIndex(idx)

	tt.shards[shard].RLock()
	entry := tt.entries[idx]
	tt.shards[shard].RUnlock()

	if entry.Key != hash || entry.Bound == BoundNone {
		return false, 0, board.NoMove, 0
	}

	move = entry.BestMove
	dtz = int(entry.DTZ)
	score = adjustScoreFromTT(int(entry.Score), ply)

	if int(entry.Depth) < depth {
		return false, score, move, dtz
	}
	switch entry.Bound {
	case BoundExact:
		return true, score, move, dtz
	case BoundLower:
		return score >= beta, score, move, dtz
	case BoundUpper:
		return score <= alpha, score, move, dtz
	}
	return false, score, move, dtz
}

// ProbeEntry returns the raw resident entry for the key, without depth
// or bound filtering. Used by singular extension and multi-cut.
func (tt *TranspositionTable) ProbeEntry(hash uint64) (TTEntry, bool) {
	idx := hash & tt.mask
	shard := tt.shardIndex(idx)

	tt.shards[shard].RLock()
	entry := tt.entries[idx]
	tt.shards[shard].RUnlock()

	if entry.Key == hash && entry.Bound != BoundNone {
		return entry, true
	}
	return TTEntry{}, false
}

// Store writes an entry. The resident survives only when it belongs to
// the current search generation and is strictly deeper.
func (tt *TranspositionTable) Store(hash uint64, depth, score, ply int, bound Bound, bestMove board.Move, dtz int) {
	idx := hash & tt.mask
	shard := tt.shardIndex(idx)
	currentAge := uint8(tt.age.Load())

	tt.shards[shard].Lock()
	entry := &tt.entries[idx]
	if entry.Bound != BoundNone && entry.Age == currentAge && int(entry.Depth) > depth {
		tt.shards[shard].Unlock()
		return
	}
	if bestMove == board.NoMove && entry.Key == hash {
		bestMove = entry.BestMove
	}
	entry.Key = hash
	entry.BestMove = bestMove
	entry.Score = int16(adjustScoreToTT(score, ply))
	entry.DTZ = int16(dtz)
	entry.Depth = int8(depth)
	entry.Bound = bound
	entry.Age = currentAge
	tt.shards[shard].Unlock()
}

// NewSearch bumps the generation counter so stale entries become
// replaceable.
func (tt *TranspositionTable) NewSearch() {
	tt.age.Add(1)
}

// Clear wipes the table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.entries {
		tt.entries[i] = TTEntry{}
	}
	tt.age.Store(0)
}

// HashFull estimates table occupancy in permille by sampling.
func (tt *TranspositionTable) HashFull() int {
	sampleSize := 1000
	if uint64(sampleSize) > tt.mask+1 {
		sampleSize = int(tt.mask + 1)
	}
	currentAge := uint8(tt.age.Load())
	used := 0
	for i := 0; i < sampleSize; i++ {
		if tt.entries[i].Bound != BoundNone && tt.entries[i].Age == currentAge {
			used++
		}
	}
	return used * 1000 / sampleSize
}

// Size returns the number of buckets.
func (tt *TranspositionTable) Size() uint64 {
	return tt.mask + 1
}

// Mate scores are stored relative to the root so entries stay valid at
// any ply; callers convert at the boundary.
func adjustScoreFromTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

func adjustScoreToTT(score, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
