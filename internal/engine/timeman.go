package engine

import (
	"sync/atomic"
	"time"

	"github.com/ABDO10DZ/Hugine/internal/board"
)

// TimeManager derives a soft and a hard limit from the clock on go
// and rescales the soft limit after every completed depth. Workers
// poll it concurrently; the limits live in atomics.
type TimeManager struct {
	start    time.Time
	overhead time.Duration
	infinite bool
	ponder   atomic.Bool

	baseSoft time.Duration
	soft     atomic.Int64 // ns
	hard     atomic.Int64 // ns

	// best-move stability across the last iterations
	recentBest [3]board.Move
	scoreDrops int
	lastScore  int
	depthsSeen int
}

// NewTimeManager creates an unarmed time manager (infinite until Init).
func NewTimeManager(overhead time.Duration) *TimeManager {
	tm := &TimeManager{overhead: overhead, infinite: true}
	return tm
}

// Init arms the limits for one search.
func (tm *TimeManager) Init(limits SearchLimits, us board.Color) {
	tm.start = time.Now()
	tm.ponder.Store(limits.Ponder)
	tm.recentBest = [3]board.Move{}
	tm.scoreDrops = 0
	tm.lastScore = 0
	tm.depthsSeen = 0

	if limits.MoveTime > 0 {
		tm.infinite = false
		tm.baseSoft = limits.MoveTime
		tm.soft.Store(int64(limits.MoveTime))
		tm.hard.Store(int64(limits.MoveTime))
		return
	}
	if limits.Infinite || limits.Time[us] == 0 {
		tm.infinite = true
		tm.baseSoft = 0
		tm.soft.Store(int64(time.Hour))
		tm.hard.Store(int64(time.Hour))
		return
	}

	tm.infinite = false
	left := limits.Time[us]
	inc := limits.Inc[us]
	mtg := limits.MovesToGo
	if mtg < 5 {
		mtg = 5
	}

	soft := left/time.Duration(mtg) + inc/2
	hard := soft * 5
	if left/2 < hard {
		hard = left / 2
	}
	tm.baseSoft = soft
	tm.soft.Store(int64(soft))
	tm.hard.Store(int64(hard))
}

// ScaleBudget multiplies the soft limit by a factor derived from the
// root move count, clamped to [0.2, 1.5].
func (tm *TimeManager) ScaleBudget(legalMoves int) {
	if tm.infinite {
		return
	}
	factor := 0.5 + float64(legalMoves)/64
	if factor < 0.2 {
		factor = 0.2
	} else if factor > 1.5 {
		factor = 1.5
	}
	tm.baseSoft = time.Duration(float64(tm.baseSoft) * factor)
	tm.soft.Store(int64(tm.baseSoft))
}

// OnDepthComplete rescales the soft limit from the base after every
// finished iteration: more time when the best move is unstable or the
// score keeps dropping, with a phase-dependent factor.
func (tm *TimeManager) OnDepthComplete(best board.Move, score, phase int) {
	if tm.infinite {
		return
	}

	if tm.depthsSeen > 0 && score < tm.lastScore-20 {
		tm.scoreDrops++
	}
	tm.lastScore = score
	tm.recentBest[tm.depthsSeen%3] = best
	tm.depthsSeen++

	factor := 1.0
	unstable := false
	for _, m := range tm.recentBest {
		if m != board.NoMove && m != best {
			unstable = true
		}
	}
	if unstable {
		factor *= 1.5
	}
	if tm.scoreDrops > 2 {
		factor *= 1.3
	}
	// Middlegame positions deserve the most thought.
	factor *= 0.75 + 0.5*float64(phase)/24

	soft := time.Duration(float64(tm.baseSoft) * factor)
	if hard := time.Duration(tm.hard.Load()); soft > hard {
		soft = hard
	}
	tm.soft.Store(int64(soft))
}

// Elapsed returns the time since Init.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.start)
}

// StopEarly reports whether the hard limit is exhausted. Always false
// while infinite or pondering.
func (tm *TimeManager) StopEarly() bool {
	if tm.infinite || tm.ponder.Load() {
		return false
	}
	return tm.Elapsed()+tm.overhead >= time.Duration(tm.hard.Load())
}

// SoftExpired reports whether a new iteration should not be started.
func (tm *TimeManager) SoftExpired() bool {
	if tm.infinite || tm.ponder.Load() {
		return false
	}
	return tm.Elapsed()+tm.overhead >= time.Duration(tm.soft.Load())
}

// PonderHit flips out of pondering so the armed limits take effect,
// measured from now.
func (tm *TimeManager) PonderHit() {
	tm.start = time.Now()
	tm.ponder.Store(false)
}
