package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ABDO10DZ/Hugine/internal/board"
	"github.com/ABDO10DZ/Hugine/internal/tablebase"
)

// Engine owns the shared search resources and options. One Engine
// serves one UCI session; Search is not reentrant.
type Engine struct {
	tt      *TranspositionTable
	tm      *TimeManager
	stop    atomic.Bool
	workers []*Worker
	tb      tablebase.Prober

	// options, applied between searches
	Threads      int
	MultiPV      int
	Contempt     int
	MoveOverhead time.Duration
	DepthCap     int // 0 = none, set from UCI_Elo
	Chess960     bool

	// NewEvaluator builds one evaluator per worker. Defaults to the
	// classical evaluator; the network loader replaces it.
	NewEvaluator func() Evaluator

	// Adjust, when non-nil, feeds the learning correction into every
	// static evaluation.
	Adjust EvalAdjuster

	// OnInfo receives one report per completed depth.
	OnInfo func(Info)
}

// NewEngine creates an engine with the given hash size in MB.
func NewEngine(hashMB int) *Engine {
	return &Engine{
		tt:           NewTranspositionTable(hashMB),
		tm:           NewTimeManager(100 * time.Millisecond),
		Threads:      1,
		MultiPV:      1,
		NewEvaluator: func() Evaluator { return NewClassicalEvaluator() },
	}
}

// ensureWorkers sizes the worker pool and rebinds it to the shared
// state of the upcoming search. Workers persist across searches so
// their history tables keep learning.
func (e *Engine) ensureWorkers(n int, shared *sharedState) {
	for len(e.workers) < n {
		e.workers = append(e.workers, NewWorker(len(e.workers), shared, e.NewEvaluator(), e.Adjust, e.tb))
	}
	e.workers = e.workers[:n]
	for _, w := range e.workers {
		w.shared = shared
		w.adjust = e.Adjust
		w.tb = e.tb
	}
}

// SetTablebase installs the endgame prober.
func (e *Engine) SetTablebase(tb tablebase.Prober) {
	e.tb = tb
}

// SetMoveOverhead adjusts the per-move clock safety margin.
func (e *Engine) SetMoveOverhead(d time.Duration) {
	e.MoveOverhead = d
	e.tm = NewTimeManager(d)
}

// ResizeHash reallocates the transposition table.
func (e *Engine) ResizeHash(mb int) {
	e.tt = NewTranspositionTable(mb)
}

// ClearHash wipes the transposition table.
func (e *Engine) ClearHash() {
	e.tt.Clear()
}

// NewGame resets all cross-search state.
func (e *Engine) NewGame() {
	e.tt.Clear()
	for _, w := range e.workers {
		w.hist.Clear()
		w.corr.Clear()
	}
}

// ReplaceEvaluators swaps the evaluator factory and rebuilds every
// worker's evaluator.
func (e *Engine) ReplaceEvaluators(factory func() Evaluator) {
	e.NewEvaluator = factory
	for _, w := range e.workers {
		w.eval = factory()
	}
}

// Stop flips the monotonic stop flag; workers unwind within one poll
// interval.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// PonderHit arms the clock limits of the running ponder search.
func (e *Engine) PonderHit() {
	e.tm.PonderHit()
}

// HashFull exposes the transposition table occupancy in permille.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

func (e *Engine) emitInfo(info Info) {
	if e.OnInfo != nil {
		e.OnInfo(info)
	}
}

// Evaluate returns the static evaluation from the side to move's
// perspective.
func (e *Engine) Evaluate(pos *board.Position) int {
	eval := e.NewEvaluator()
	return eval.Evaluate(pos)
}

// Perft counts leaf nodes to the given depth.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var nodes uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return nodes
}

// PerftDivide returns per-root-move leaf counts plus the total.
func (e *Engine) PerftDivide(pos *board.Position, depth int) ([]struct {
	Move  board.Move
	Nodes uint64
}, uint64) {
	moves := pos.GenerateLegalMoves()
	results := make([]struct {
		Move  board.Move
		Nodes uint64
	}, 0, moves.Len())
	var total uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		n := e.Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
		results = append(results, struct {
			Move  board.Move
			Nodes uint64
		}{m, n})
		total += n
	}
	return results, total
}

// IsMateScore reports whether a score encodes a forced mate.
func IsMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}

// MateIn converts a mate score to full moves, negative when the side
// to move is getting mated.
func MateIn(score int) int {
	if score > 0 {
		return (MateScore - score + 1) / 2
	}
	return -(MateScore + score + 1) / 2
}

// ScoreToString renders a score as pawns or a mate announcement.
func ScoreToString(score int) string {
	if IsMateScore(score) {
		n := MateIn(score)
		if n > 0 {
			return fmt.Sprintf("Mate in %d", n)
		}
		return fmt.Sprintf("Mated in %d", -n)
	}
	return fmt.Sprintf("%+.2f", float64(score)/100)
}
