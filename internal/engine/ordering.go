package engine

import (
	"github.com/ABDO10DZ/Hugine/internal/board"
)

// Move ordering scores, searched highest first.
const (
	ttMoveScore      = 1000000
	killer0Score     = 900000
	killer1Score     = 800000
	counterScore     = 700000
	followupScore    = 600000
	captureBaseScore = 500000
	checkBonusScore  = 400000
)

// historyMax bounds every history entry under the gravity update.
const historyMax = 16384

// History holds the per-worker move ordering tables. Killers live in
// the search stack; everything keyed by piece or square lives here.
type History struct {
	// main history, indexed by side to move, from, to
	main [2][64][64]int16

	// correction history, same shape as main but weighted 1/8 in the
	// quiet score
	correction [2][64][64]int16

	// butterfly history, indexed by moving piece, to
	butterfly [12][64]int16

	// capture history, indexed by attacker piece, to, victim type
	captures [12][64][6]int16

	// counter move and follow-up move, indexed by the prior move's
	// piece and destination
	counters  [12][64]board.Move
	followups [12][64]board.Move

	// continuation history, indexed by (prev piece, prev to, piece,
	// to). Heap allocated: 12*64*12*64 entries.
	continuation *[12][64][12][64]int16
}

// NewHistory allocates empty ordering tables.
func NewHistory() *History {
	return &History{
		continuation: &[12][64][12][64]int16{},
	}
}

// Clear wipes all tables for a new game.
func (h *History) Clear() {
	*h = History{continuation: &[12][64][12][64]int16{}}
}

// Age halves every score between searches so stale information decays
// without being discarded.
func (h *History) Age() {
	for s := range h.main {
		for f := range h.main[s] {
			for t := range h.main[s][f] {
				h.main[s][f][t] /= 2
				h.correction[s][f][t] /= 2
			}
		}
	}
	for p := range h.butterfly {
		for t := range h.butterfly[p] {
			h.butterfly[p][t] /= 2
		}
	}
	for p := range h.captures {
		for t := range h.captures[p] {
			for v := range h.captures[p][t] {
				h.captures[p][t][v] /= 2
			}
		}
	}
	for a := range h.continuation {
		for b := range h.continuation[a] {
			for c := range h.continuation[a][b] {
				for d := range h.continuation[a][b][c] {
					h.continuation[a][b][c][d] /= 2
				}
			}
		}
	}
}

// gravity nudges a history cell toward its bound: h += delta -
// h*|delta|/historyMax. Entries converge to [-historyMax, historyMax]
// without explicit clamping.
func gravity(cell *int16, delta int) {
	d := delta
	if d > historyMax {
		d = historyMax
	} else if d < -historyMax {
		d = -historyMax
	}
	v := int(*cell)
	v += d - v*abs(d)/historyMax
	*cell = int16(v)
}

// QuietScore combines the quiet-move histories for ordering.
func (h *History) QuietScore(side board.Color, pc board.Piece, m board.Move, prevPiece board.Piece, prevTo board.Square) int {
	score := int(h.main[side][m.From()][m.To()])
	score += int(h.butterfly[pc][m.To()])
	score += int(h.correction[side][m.From()][m.To()]) / 8
	if prevPiece != board.NoPiece {
		score += int(h.continuation[prevPiece][prevTo][pc][m.To()])
	}
	return score
}

// UpdateQuiet applies the gravity bonus or penalty (delta = ±depth²)
// to every quiet history for the move.
func (h *History) UpdateQuiet(side board.Color, pc board.Piece, m board.Move, prevPiece board.Piece, prevTo board.Square, delta int) {
	gravity(&h.main[side][m.From()][m.To()], delta)
	gravity(&h.correction[side][m.From()][m.To()], delta)
	gravity(&h.butterfly[pc][m.To()], delta)
	if prevPiece != board.NoPiece {
		gravity(&h.continuation[prevPiece][prevTo][pc][m.To()], delta)
	}
}

// CorrectionScore returns the correction term alone. Quiet scores get
// it through QuietScore; captures add it separately.
func (h *History) CorrectionScore(side board.Color, m board.Move) int {
	return int(h.correction[side][m.From()][m.To()]) / 8
}

// CaptureScore returns the capture history for an attacker landing on
// a victim type.
func (h *History) CaptureScore(pc board.Piece, to board.Square, victim board.PieceType) int {
	if victim >= board.King {
		return 0
	}
	return int(h.captures[pc][to][victim])
}

// UpdateCapture applies the gravity update to the capture history.
func (h *History) UpdateCapture(pc board.Piece, to board.Square, victim board.PieceType, delta int) {
	if victim >= board.King {
		return
	}
	gravity(&h.captures[pc][to][victim], delta)
}

// Counter returns the refutation recorded for the prior move.
func (h *History) Counter(prevPiece board.Piece, prevTo board.Square) board.Move {
	if prevPiece == board.NoPiece {
		return board.NoMove
	}
	return h.counters[prevPiece][prevTo]
}

// SetCounter records a quiet refutation of the prior move.
func (h *History) SetCounter(prevPiece board.Piece, prevTo board.Square, m board.Move) {
	if prevPiece == board.NoPiece {
		return
	}
	h.counters[prevPiece][prevTo] = m
}

// Followup returns the move recorded as strong after our own move two
// plies earlier.
func (h *History) Followup(prevPiece board.Piece, prevTo board.Square) board.Move {
	if prevPiece == board.NoPiece {
		return board.NoMove
	}
	return h.followups[prevPiece][prevTo]
}

// SetFollowup records a strong follow-up to our move two plies back.
func (h *History) SetFollowup(prevPiece board.Piece, prevTo board.Square, m board.Move) {
	if prevPiece == board.NoPiece {
		return
	}
	h.followups[prevPiece][prevTo] = m
}

// PickMove selects the best remaining move by score and swaps it to
// index, giving lazy selection sort: only as much ordering work as the
// search actually consumes.
func PickMove(moves *board.MoveList, scores []int, index int) {
	best := index
	for j := index + 1; j < moves.Len(); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	if best != index {
		moves.Swap(index, best)
		scores[index], scores[best] = scores[best], scores[index]
	}
}

// SortMoves fully sorts moves by score descending. Used at the root
// where every move is searched anyway.
func SortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}
