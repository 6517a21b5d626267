// Package tablebase defines the endgame tablebase probing interface
// the search consumes, plus the WDL-to-score mapping.
package tablebase

import (
	"github.com/ABDO10DZ/Hugine/internal/board"
)

// WDL is a win/draw/loss verdict from the side to move's perspective.
type WDL int

const (
	WDLLoss        WDL = -2
	WDLBlessedLoss WDL = -1 // loss the 50-move rule may rescue
	WDLDraw        WDL = 0
	WDLCursedWin   WDL = 1 // win the 50-move rule may spoil
	WDLWin         WDL = 2
)

// ProbeResult is the outcome of an in-tree WDL probe.
type ProbeResult struct {
	Found bool
	WDL   WDL
	DTZ   int // distance to the next zeroing move
}

// RootResult carries the tablebase-recommended move at the root.
type RootResult struct {
	Found bool
	Move  board.Move
	WDL   WDL
	DTZ   int
}

// Prober is the lookup interface the search consumes. Implementations
// must be safe for concurrent probes.
type Prober interface {
	// Probe looks up the position's WDL verdict.
	Probe(pos *board.Position) ProbeResult

	// ProbeRoot finds the best move for the position. More expensive
	// than Probe; called once per go command.
	ProbeRoot(pos *board.Position) RootResult

	// MaxPieces returns the largest piece count the tables cover.
	MaxPieces() int

	// Available reports whether any tables are loaded.
	Available() bool
}

// Tablebase scores sit below the mate range so a proven mate always
// outranks a tablebase win.
const tbWinScore = 25000

// WDLToScore maps a WDL verdict to a search score at the given ply.
// Cursed wins and blessed losses land just inside the winning and
// losing bands so the search still prefers clean results.
func WDLToScore(wdl WDL, ply int) int {
	switch wdl {
	case WDLWin:
		return tbWinScore - ply
	case WDLCursedWin:
		return tbWinScore - 100 - ply
	case WDLBlessedLoss:
		return -tbWinScore + 100 + ply
	case WDLLoss:
		return -tbWinScore + ply
	default:
		return 0
	}
}

// NoopProber never finds anything. Installed when no SyzygyPath is
// configured.
type NoopProber struct{}

func (NoopProber) Probe(pos *board.Position) ProbeResult {
	return ProbeResult{Found: false}
}

func (NoopProber) ProbeRoot(pos *board.Position) RootResult {
	return RootResult{Found: false}
}

func (NoopProber) MaxPieces() int { return 0 }

func (NoopProber) Available() bool { return false }

// CountPieces returns the total number of pieces on the board.
func CountPieces(pos *board.Position) int {
	return pos.AllOccupied.PopCount()
}
