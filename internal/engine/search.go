package engine

import (
	"sync/atomic"
	"time"

	"github.com/ABDO10DZ/Hugine/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128

	// Workers poll the stop flag and clock this often.
	stopCheckInterval = 256

	// Quiescence explores at most this many plies past the horizon.
	maxQuiescenceDepth = 8
)

// SearchLimits carries the constraints of one go command.
type SearchLimits struct {
	Depth     int              // maximum depth (0 = none)
	Nodes     uint64           // maximum nodes (0 = none)
	MoveTime  time.Duration    // fixed time per move (0 = none)
	Time      [2]time.Duration // remaining clock per color
	Inc       [2]time.Duration // increment per color
	MovesToGo int              // moves to next time control (0 = sudden death)
	Infinite  bool
	Ponder    bool
}

// PVTable stores the principal variation as a triangular array.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

func (pv *PVTable) clear(ply int) {
	pv.length[ply] = 0
}

// update records m as the best move at ply and pulls up the child PV.
func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][0] = m
	childLen := 0
	if ply+1 < MaxPly {
		childLen = pv.length[ply+1]
	}
	for i := 0; i < childLen && i+1 < MaxPly; i++ {
		pv.moves[ply][i+1] = pv.moves[ply+1][i]
	}
	pv.length[ply] = childLen + 1
}

// Line returns the PV from the root.
func (pv *PVTable) Line() []board.Move {
	line := make([]board.Move, pv.length[0])
	copy(line, pv.moves[0][:pv.length[0]])
	return line
}

// sharedState ties the workers of one search together: the only state
// crossing thread boundaries besides the transposition table.
type sharedState struct {
	tt     *TranspositionTable
	tm     *TimeManager
	stop   *atomic.Bool
	nodes  atomic.Uint64
	tbhits atomic.Uint64

	// best-move/best-score latch, packed score<<32 | move and updated
	// only through strictly-improving compare-exchange
	best atomic.Int64

	splits *splitRegistry

	// root workers still running their own partitions
	activeRoots atomic.Int64

	nodeLimit uint64
	contempt  int
	maxDepth  int
	multiPV   int
}

func packBest(score int, m board.Move) int64 {
	return int64(score)<<32 | int64(uint32(m))
}

func unpackBest(v int64) (int, board.Move) {
	return int(v >> 32), board.Move(uint32(v))
}

// publishBest promotes a result into the shared latch when it strictly
// improves on the stored score.
func (s *sharedState) publishBest(score int, m board.Move) {
	if m == board.NoMove {
		return
	}
	for {
		old := s.best.Load()
		oldScore, oldMove := unpackBest(old)
		if oldMove != board.NoMove && score <= oldScore {
			return
		}
		if s.best.CompareAndSwap(old, packBest(score, m)) {
			return
		}
	}
}

// bestResult reads the latch. Safe after join; racy but monotone
// during search.
func (s *sharedState) bestResult() (int, board.Move) {
	return unpackBest(s.best.Load())
}

func newSharedState(tt *TranspositionTable, tm *TimeManager, stop *atomic.Bool) *sharedState {
	s := &sharedState{
		tt:      tt,
		tm:      tm,
		stop:    stop,
		splits:  newSplitRegistry(),
		multiPV: 1,
	}
	s.best.Store(packBest(-Infinity-1, board.NoMove))
	return s
}

// drawScore biases draws by contempt: positive contempt makes the
// engine avoid draws when it considers itself the stronger side.
func (s *sharedState) drawScore() int {
	return -s.contempt
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
