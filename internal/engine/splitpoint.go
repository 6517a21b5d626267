package engine

import (
	"sync"
	"sync/atomic"

	"github.com/ABDO10DZ/Hugine/internal/board"
)

// Split point thresholds: only nodes deep and wide enough to amortize
// the coordination cost are shared.
const (
	splitMinDepth = 6
	splitMinMoves = 5
)

// SplitPoint shares the remaining moves of one node between its owner
// and any idle workers. The cursor hands out move indices lock-free;
// score reduction happens under the mutex.
type SplitPoint struct {
	mu   sync.Mutex
	cond *sync.Cond

	pos   *board.Position // node snapshot, cloned by each participant
	moves []board.Move
	depth int
	ply   int
	beta  int

	cursor atomic.Int32
	cut    atomic.Bool

	// guarded by mu
	alpha     int
	bestScore int
	bestMove  board.Move
	pv        []board.Move
	helpers   int
	finished  bool
}

func newSplitPoint(pos *board.Position, moves []board.Move, depth, ply, alpha, beta int) *SplitPoint {
	sp := &SplitPoint{
		pos:       pos.Copy(),
		moves:     moves,
		depth:     depth,
		ply:       ply,
		beta:      beta,
		alpha:     alpha,
		bestScore: -Infinity,
		bestMove:  board.NoMove,
	}
	sp.cond = sync.NewCond(&sp.mu)
	return sp
}

// next hands out the index of the next unsearched move, or -1.
func (sp *SplitPoint) next() int {
	if sp.cut.Load() {
		return -1
	}
	idx := int(sp.cursor.Add(1)) - 1
	if idx >= len(sp.moves) {
		return -1
	}
	return idx
}

// searchOne searches one split move on the given worker and reduces
// the result into the split point. Returns false when the queue is
// drained or the node cut off.
func (sp *SplitPoint) searchOne(w *Worker) bool {
	idx := sp.next()
	if idx < 0 {
		return false
	}
	m := sp.moves[idx]

	child := sp.pos.Copy()
	undo := child.MakeMove(m)
	if child.MoverInCheck() {
		child.UnmakeMove(m, undo)
		return true
	}

	sp.mu.Lock()
	alpha := sp.alpha
	sp.mu.Unlock()

	savedPos := w.pos
	w.pos = child
	w.stack[sp.ply].currentMove = m
	w.stack[sp.ply].movedPiece = child.Board[m.To()]
	w.stack[sp.ply].capturedPiece = undo.CapturedPiece

	score := -w.negamax(sp.depth-1, -alpha-1, -alpha, sp.ply+1, true, board.NoMove)
	if score > alpha && score < sp.beta && !w.stopped {
		score = -w.negamax(sp.depth-1, -sp.beta, -alpha, sp.ply+1, false, board.NoMove)
	}
	childPV := w.pv.moves[sp.ply+1][:w.pv.length[sp.ply+1]]

	w.pos = savedPos
	if w.stopped {
		return false
	}

	sp.mu.Lock()
	if score > sp.bestScore {
		sp.bestScore = score
		sp.bestMove = m
		if score > sp.alpha {
			sp.alpha = score
			sp.pv = append(sp.pv[:0], m)
			sp.pv = append(sp.pv, childPV...)
		}
	}
	cut := sp.alpha >= sp.beta
	sp.mu.Unlock()

	if cut {
		sp.cut.Store(true)
		return false
	}
	return true
}

// help runs a subscribed worker against the split queue until it
// drains, then signs off.
func (sp *SplitPoint) help(w *Worker) {
	for sp.searchOne(w) {
	}
	sp.mu.Lock()
	sp.helpers--
	if sp.helpers == 0 {
		sp.cond.Broadcast()
	}
	sp.mu.Unlock()
}

// waitDone blocks the master until every helper has signed off.
func (sp *SplitPoint) waitDone() {
	sp.mu.Lock()
	for sp.helpers > 0 {
		sp.cond.Wait()
	}
	sp.finished = true
	sp.mu.Unlock()
}

// splitRegistry publishes open split points to idle workers via one
// global mutex and condition variable.
type splitRegistry struct {
	mu     sync.Mutex
	cond   *sync.Cond
	points []*SplitPoint
	idle   int
	closed bool
}

func newSplitRegistry() *splitRegistry {
	r := &splitRegistry{}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// hasIdle reports whether any worker is waiting for split work.
func (r *splitRegistry) hasIdle() bool {
	r.mu.Lock()
	n := r.idle
	r.mu.Unlock()
	return n > 0
}

// publish makes a split point visible and wakes idle workers. The
// caller must later call retire.
func (r *splitRegistry) publish(sp *SplitPoint) {
	r.mu.Lock()
	r.points = append(r.points, sp)
	r.mu.Unlock()
	r.cond.Broadcast()
}

// retire removes a finished split point.
func (r *splitRegistry) retire(sp *SplitPoint) {
	r.mu.Lock()
	for i, p := range r.points {
		if p == sp {
			r.points = append(r.points[:i], r.points[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
}

// close releases every worker blocked in helperLoop.
func (r *splitRegistry) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cond.Broadcast()
}

// acquire blocks until a split point is available, registering a
// helper slot on it. Returns nil when the registry closes.
func (r *splitRegistry) acquire() *SplitPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		if r.closed {
			return nil
		}
		for _, sp := range r.points {
			sp.mu.Lock()
			open := !sp.finished && !sp.cut.Load() && int(sp.cursor.Load()) < len(sp.moves)
			if open {
				sp.helpers++
			}
			sp.mu.Unlock()
			if open {
				return sp
			}
		}
		r.idle++
		r.cond.Wait()
		r.idle--
	}
}

// helperLoop is the work-stealing loop a worker enters once its own
// root partition is exhausted.
func (w *Worker) helperLoop() {
	for {
		sp := w.shared.splits.acquire()
		if sp == nil {
			return
		}
		sp.help(w)
	}
}

// trySplit shares the remaining moves of the current node. Returns the
// merged result and true when a split happened; the caller then skips
// its own loop over those moves.
func (w *Worker) trySplit(remaining []board.Move, depth, ply, alpha, beta int) (score int, move board.Move, pv []board.Move, ok bool) {
	if depth < splitMinDepth || len(remaining) <= splitMinMoves || !w.shared.splits.hasIdle() {
		return 0, board.NoMove, nil, false
	}

	sp := newSplitPoint(w.pos, remaining, depth, ply, alpha, beta)
	sp.mu.Lock()
	sp.helpers++ // the master itself
	sp.mu.Unlock()
	w.shared.splits.publish(sp)

	sp.help(w)
	sp.waitDone()
	w.shared.splits.retire(sp)

	return sp.bestScore, sp.bestMove, sp.pv, true
}
