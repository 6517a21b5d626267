package engine

import (
	"github.com/ABDO10DZ/Hugine/internal/board"
)

const correctionSize = 1 << 18
const correctionMask = correctionSize - 1

// CorrectionHistory tracks the error between the static evaluation and
// the eventual search score, keyed by the pawn-structure hash, and
// feeds it back as a correction to future static evaluations of
// positions with the same pawn skeleton.
type CorrectionHistory struct {
	table [correctionSize]int16
}

// NewCorrectionHistory creates an empty correction table.
func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{}
}

func correctionIndex(hash uint64) int {
	// Fold high bits into the index so nearby hashes spread out.
	return int((hash ^ (hash >> 18)) & correctionMask)
}

// Get returns the correction to add to a static evaluation.
func (ch *CorrectionHistory) Get(pos *board.Position) int {
	return int(ch.table[correctionIndex(pos.PawnKey)]) / 32
}

// Update records the search-versus-static error. Deeper searches are
// weighted more; a gravity step keeps entries bounded.
func (ch *CorrectionHistory) Update(pos *board.Position, searchScore, staticEval, depth int) {
	if depth < 1 {
		return
	}
	bonus := (searchScore - staticEval) * depth / 8
	if bonus > 256 {
		bonus = 256
	} else if bonus < -256 {
		bonus = -256
	}

	idx := correctionIndex(pos.PawnKey)
	old := int(ch.table[idx])
	next := old + (bonus*32-old)/16
	if next > 16000 {
		next = 16000
	} else if next < -16000 {
		next = -16000
	}
	ch.table[idx] = int16(next)
}

// Clear resets all corrections.
func (ch *CorrectionHistory) Clear() {
	for i := range ch.table {
		ch.table[i] = 0
	}
}
