package engine

import (
	"github.com/ABDO10DZ/Hugine/internal/board"
	"github.com/ABDO10DZ/Hugine/internal/tablebase"
)

// stackFrame carries the per-ply search state of one worker.
type stackFrame struct {
	killers       [2]board.Move
	currentMove   board.Move
	movedPiece    board.Piece
	capturedPiece board.Piece
	staticEval    int
	inCheck       bool
}

// Worker is one search thread: an independent negamax searcher with
// its own position clone, history tables and evaluator. Workers share
// only the transposition table, the stop flag, the node counter and
// the best-move latch.
type Worker struct {
	id     int
	pos    *board.Position
	shared *sharedState

	eval   Evaluator
	adjust EvalAdjuster
	tb     tablebase.Prober

	hist  *History
	corr  *CorrectionHistory
	stack [MaxPly + 2]stackFrame
	pv    PVTable

	nodes      uint64
	sinceFlush uint64
	stopped    bool
}

// NewWorker creates a search worker. adjust and tb may be nil.
func NewWorker(id int, shared *sharedState, eval Evaluator, adjust EvalAdjuster, tb tablebase.Prober) *Worker {
	return &Worker{
		id:     id,
		shared: shared,
		eval:   eval,
		adjust: adjust,
		tb:     tb,
		hist:   NewHistory(),
		corr:   NewCorrectionHistory(),
	}
}

// prepare arms the worker for a new search on its own clone of pos.
func (w *Worker) prepare(pos *board.Position) {
	w.pos = pos.Copy()
	w.nodes = 0
	w.sinceFlush = 0
	w.stopped = false
	w.hist.Age()
	for i := range w.stack {
		w.stack[i] = stackFrame{}
	}
}

// Nodes returns the node count of this worker's current search.
func (w *Worker) Nodes() uint64 {
	return w.nodes
}

// evaluate applies the static evaluator plus the correction history
// and the learning adjustment, clamped away from the mate range.
func (w *Worker) evaluate() int {
	score := w.eval.Evaluate(w.pos)
	score += w.corr.Get(w.pos)
	if w.adjust != nil {
		score += w.adjust.Adjust(w.pos.Hash)
	}
	return clamp(score, -MateScore+MaxPly+1, MateScore-MaxPly-1)
}

// countNode bumps the node counters and, every stopCheckInterval
// nodes, polls the stop flag, the node limit and the clock. Returns
// true when the search must unwind.
func (w *Worker) countNode() bool {
	w.nodes++
	w.sinceFlush++
	if w.sinceFlush >= stopCheckInterval {
		w.flushNodes()
		switch {
		case w.shared.stop.Load():
			w.stopped = true
		case w.shared.nodeLimit > 0 && w.shared.nodes.Load() >= w.shared.nodeLimit:
			w.shared.stop.Store(true)
			w.stopped = true
		case w.shared.tm != nil && w.shared.tm.StopEarly():
			w.shared.stop.Store(true)
			w.stopped = true
		}
	}
	return w.stopped
}

func (w *Worker) flushNodes() {
	w.shared.nodes.Add(w.sinceFlush)
	w.sinceFlush = 0
}

// tbProbe consults the tablebase when the position is in range.
func (w *Worker) tbProbe(ply int) (int, bool) {
	if w.tb == nil || !w.tb.Available() {
		return 0, false
	}
	if tablebase.CountPieces(w.pos) > w.tb.MaxPieces() {
		return 0, false
	}
	result := w.tb.Probe(w.pos)
	if !result.Found {
		return 0, false
	}
	w.shared.tbhits.Add(1)
	return tablebase.WDLToScore(result.WDL, ply), true
}

// scoreMoves assigns ordering scores: TT move, killers, counter move,
// follow-up move, captures by SEE and capture history, then quiet
// histories, with a flat bonus for checking moves.
func (w *Worker) scoreMoves(moves *board.MoveList, ttMove board.Move, ply int) []int {
	scores := make([]int, moves.Len())

	var counter, followup board.Move
	var prevPiece, prev2Piece board.Piece = board.NoPiece, board.NoPiece
	var prevTo, prev2To board.Square
	if ply >= 1 && w.stack[ply-1].currentMove != board.NoMove && w.stack[ply-1].currentMove != board.NullMove {
		prevPiece = w.stack[ply-1].movedPiece
		prevTo = w.stack[ply-1].currentMove.To()
		counter = w.hist.Counter(prevPiece, prevTo)
	}
	if ply >= 2 && w.stack[ply-2].currentMove != board.NoMove && w.stack[ply-2].currentMove != board.NullMove {
		prev2Piece = w.stack[ply-2].movedPiece
		prev2To = w.stack[ply-2].currentMove.To()
		followup = w.hist.Followup(prev2Piece, prev2To)
	}
	killers := &w.stack[ply].killers

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		var s int
		switch {
		case m == ttMove:
			s = ttMoveScore
		case m == killers[0]:
			s = killer0Score
		case m == killers[1]:
			s = killer1Score
		case m == counter && !m.IsCapture():
			s = counterScore
		case m == followup && !m.IsCapture():
			s = followupScore
		case m.IsCapture():
			victim := board.Pawn
			if !m.IsEnPassant() {
				victim = w.pos.Board[m.To()].Type()
			}
			s = captureBaseScore + 100*w.pos.SEE(m)
			s += w.hist.CaptureScore(w.pos.Board[m.From()], m.To(), victim)
			s += w.hist.CorrectionScore(w.pos.SideToMove, m)
		default:
			s = w.hist.QuietScore(w.pos.SideToMove, w.pos.Board[m.From()], m, prevPiece, prevTo)
		}
		if s < ttMoveScore && w.pos.MoveGivesCheck(m) {
			s += checkBonusScore
		}
		scores[i] = s
	}
	return scores
}

// razorMargin returns the razoring margin for a depth in [1, 6].
func razorMargin(depth int) int {
	switch depth {
	case 1:
		return 300
	case 2:
		return 400
	case 3:
		return 600
	default:
		return 600 + 50*(depth-3)
	}
}

// negamax is the main alpha-beta search.
func (w *Worker) negamax(depth, alpha, beta, ply int, cutNode bool, excluded board.Move) int {
	w.pv.clear(ply)

	if ply >= MaxPly {
		return w.evaluate()
	}
	if w.countNode() {
		return 0
	}

	pos := w.pos
	isRoot := ply == 0
	isPV := beta-alpha > 1

	if !isRoot {
		if pos.HalfMoveClock >= 100 || pos.IsInsufficientMaterial() || pos.IsRepetition(2) {
			return w.shared.drawScore()
		}
		if depth <= 0 {
			if score, ok := w.tbProbe(ply); ok {
				return score
			}
		}

		// Mate distance pruning: a forced mate closer to the root
		// bounds anything findable here.
		alpha = max(alpha, -MateScore+ply)
		beta = min(beta, MateScore-ply-1)
		if alpha >= beta {
			return alpha
		}
	}

	ttHit, ttScore, ttMove, ttDTZ := w.shared.tt.Probe(pos.Hash, depth, ply, alpha, beta)
	if ttHit && !isRoot && !isPV && excluded == board.NoMove {
		return ttScore
	}

	inCheck := pos.IsCheck()
	staticEval := -Infinity
	if !inCheck {
		staticEval = w.evaluate()
	}
	w.stack[ply].inCheck = inCheck
	w.stack[ply].staticEval = staticEval

	improving := !inCheck && ply >= 2 && !w.stack[ply-2].inCheck &&
		staticEval > w.stack[ply-2].staticEval

	// Singular extension: when the TT move looks uniquely forced at a
	// reduced-depth verification, search it one ply deeper.
	if depth >= 8 && ttMove != board.NoMove && excluded == board.NoMove && !inCheck {
		if entry, ok := w.shared.tt.ProbeEntry(pos.Hash); ok &&
			int(entry.Depth) >= depth-3 && entry.Bound != BoundUpper &&
			abs(int(entry.Score)) < MateScore-MaxPly {
			singularBeta := adjustScoreFromTT(int(entry.Score), ply) - 50
			score := w.negamax(depth/2, singularBeta-1, singularBeta, ply, cutNode, ttMove)
			if w.stopped {
				return 0
			}
			if score < singularBeta {
				depth++
			}
		}
	}

	if depth <= 0 {
		return w.quiescence(alpha, beta, ply, 0)
	}

	// ProbCut: a capture that clears beta by a depth-scaled margin at
	// reduced depth almost always holds at full depth.
	if depth >= 5 && !inCheck && excluded == board.NoMove && abs(beta) < MateScore-MaxPly {
		margin := 100 + 20*depth
		probCutBeta := min(beta+margin, Infinity)
		captures := pos.GenerateCaptures()
		for i := 0; i < captures.Len(); i++ {
			m := captures.Get(i)
			if staticEval+pos.SEE(m)+margin < beta {
				continue
			}
			undo := pos.MakeMove(m)
			if pos.MoverInCheck() {
				pos.UnmakeMove(m, undo)
				continue
			}
			score := -w.negamax(depth-4, -probCutBeta, -probCutBeta+1, ply+1, !cutNode, board.NoMove)
			pos.UnmakeMove(m, undo)
			if w.stopped {
				return 0
			}
			if score >= probCutBeta {
				return score
			}
		}
	}

	// Null-move pruning
	if !inCheck && depth >= 2 && cutNode && excluded == board.NoMove &&
		pos.HasNonPawnMaterial() && abs(beta) < MateScore-MaxPly {
		reduction := 2 + depth/6
		w.stack[ply].currentMove = board.NullMove
		w.stack[ply].movedPiece = board.NoPiece
		undo := pos.MakeNullMove()
		score := -w.negamax(depth-reduction-1, -beta, -beta+1, ply+1, false, board.NoMove)
		pos.UnmakeNullMove(undo)
		if w.stopped {
			return 0
		}
		if score >= beta {
			return beta
		}
	}

	// Razoring: hopeless static eval at low depth drops straight into
	// a verification search; a confirmed fail-low returns.
	if !inCheck && depth <= 6 && excluded == board.NoMove && abs(alpha) < MateScore-MaxPly {
		if staticEval+razorMargin(depth) <= alpha {
			var score int
			if depth <= 3 {
				score = w.quiescence(alpha, alpha+1, ply, 0)
			} else {
				score = w.negamax(depth-3, alpha, alpha+1, ply, cutNode, board.NoMove)
			}
			if w.stopped {
				return 0
			}
			if score <= alpha {
				return score
			}
		}
	}

	// Reverse futility: static eval far above beta
	if !inCheck && excluded == board.NoMove && abs(beta) < MateScore-MaxPly {
		if depth > 7 && staticEval-200 >= beta {
			return staticEval
		}
		if depth <= 7 && staticEval-200*depth >= beta {
			return staticEval
		}
	}

	// Internal iterative deepening: populate a TT move for ordering.
	if ttMove == board.NoMove && depth >= 5 {
		w.negamax(depth-2, alpha, beta, ply, cutNode, board.NoMove)
		if w.stopped {
			return 0
		}
		if entry, ok := w.shared.tt.ProbeEntry(pos.Hash); ok {
			ttMove = entry.BestMove
		}
	}

	// Multi-cut: several non-TT moves failing high at half depth make
	// a full-depth cutoff overwhelmingly likely.
	if depth >= 6 && cutNode && !inCheck && ttMove != board.NoMove && excluded == board.NoMove {
		probed, failHigh := 0, 0
		mcMoves := pos.GeneratePseudoLegalMoves()
		for i := 0; i < mcMoves.Len() && probed < 3 && failHigh < 2; i++ {
			m := mcMoves.Get(i)
			if m == ttMove {
				continue
			}
			undo := pos.MakeMove(m)
			if pos.MoverInCheck() {
				pos.UnmakeMove(m, undo)
				continue
			}
			probed++
			w.stack[ply].currentMove = m
			w.stack[ply].movedPiece = pos.Board[m.To()]
			score := -w.negamax(depth/2, -beta, -beta+1, ply+1, false, board.NoMove)
			pos.UnmakeMove(m, undo)
			if w.stopped {
				return 0
			}
			if score >= beta {
				failHigh++
			}
		}
		if failHigh >= 2 {
			return beta
		}
	}

	moves := pos.GeneratePseudoLegalMoves()
	scores := w.scoreMoves(moves, ttMove, ply)
	origAlpha := alpha

	if ply+1 < MaxPly {
		w.stack[ply+1].killers = [2]board.Move{}
	}

	bestScore := -Infinity
	bestMove := board.NoMove
	legalMoves := 0
	var quietsTried [64]board.Move
	var capturesTried [32]board.Move
	quietCount, captureCount := 0, 0

	us := pos.SideToMove

	for i := 0; i < moves.Len(); i++ {
		// Young brothers wait: once the first move is searched, hand
		// the rest of a wide, deep node to idle workers.
		if legalMoves >= 1 && depth >= splitMinDepth && moves.Len()-i > splitMinMoves && w.shared.splits.hasIdle() {
			remaining := make([]board.Move, 0, moves.Len()-i)
			for j := i; j < moves.Len(); j++ {
				mj := moves.Get(j)
				if mj == excluded {
					continue
				}
				if v := pos.Board[mj.To()]; v != board.NoPiece && v.Type() == board.King {
					continue
				}
				remaining = append(remaining, mj)
			}
			if spScore, spMove, spPV, ok := w.trySplit(remaining, depth, ply, alpha, beta); ok {
				if w.stopped {
					return 0
				}
				if spMove != board.NoMove && spScore > bestScore {
					bestScore = spScore
					bestMove = spMove
					if spScore > alpha {
						alpha = spScore
						copy(w.pv.moves[ply][:], spPV)
						w.pv.length[ply] = len(spPV)
					}
				}
				break
			}
		}

		PickMove(moves, scores, i)
		m := moves.Get(i)
		if m == excluded {
			continue
		}
		// The generator never targets the king; this guards against a
		// corrupt TT move doing so.
		if victim := pos.Board[m.To()]; victim != board.NoPiece && victim.Type() == board.King {
			continue
		}

		quiet := !m.IsCapture() && !m.IsPromotion()
		histScore := scores[i]

		if quiet && !inCheck && legalMoves > 0 {
			// Per-move futility
			if depth <= 3 && staticEval+(-80+50*depth) <= alpha {
				continue
			}
			// Late move pruning
			if depth <= 7 {
				limit := 3 + 2*depth
				if improving {
					limit = 3 + 4*depth
				}
				if i >= limit {
					continue
				}
			}
		}

		undo := pos.MakeMove(m)
		if pos.MoverInCheck() {
			pos.UnmakeMove(m, undo)
			continue
		}
		legalMoves++
		w.stack[ply].currentMove = m
		w.stack[ply].movedPiece = pos.Board[m.To()]
		w.stack[ply].capturedPiece = undo.CapturedPiece

		givesCheck := pos.IsCheck()

		ext := 0
		if givesCheck {
			ext++
		}
		if ply >= 1 && m.IsCapture() && w.stack[ply-1].capturedPiece != board.NoPiece &&
			w.stack[ply-1].currentMove.To() == m.To() {
			ext++
		}
		if w.stack[ply].movedPiece.Type() == board.Pawn && m.To().RelativeRank(us) >= 4 &&
			passedMask[us][m.To()]&pos.Pieces[us.Other()][board.Pawn] == 0 {
			ext++
		}
		if ext > 2 {
			ext = 2
		}
		newDepth := depth - 1 + ext

		reduction := 0
		if i >= 3 && depth >= 3 && !inCheck {
			r := 1 + i/2
			if !improving {
				r++
			}
			if quiet && histScore < 0 {
				r++
			}
			if m.IsCapture() {
				r--
			}
			if givesCheck {
				r--
			}
			reduction = clamp(r, 0, depth-2)
		}

		var score int
		if legalMoves == 1 {
			score = -w.negamax(newDepth, -beta, -alpha, ply+1, false, board.NoMove)
		} else {
			score = -w.negamax(newDepth-reduction, -alpha-1, -alpha, ply+1, true, board.NoMove)
			if score > alpha && (reduction > 0 || score < beta) {
				score = -w.negamax(newDepth, -beta, -alpha, ply+1, false, board.NoMove)
			}
		}
		pos.UnmakeMove(m, undo)
		if w.stopped {
			return 0
		}

		if quiet && quietCount < len(quietsTried) {
			quietsTried[quietCount] = m
			quietCount++
		} else if !quiet && captureCount < len(capturesTried) {
			capturesTried[captureCount] = m
			captureCount++
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				w.pv.update(ply, m)
				if alpha >= beta {
					w.recordCutoff(m, quiet, depth, ply, quietsTried[:quietCount], capturesTried[:captureCount])
					break
				}
			}
		}
	}

	if legalMoves == 0 {
		if excluded != board.NoMove {
			return alpha
		}
		if inCheck {
			return -MateScore + ply
		}
		return w.shared.drawScore()
	}

	if excluded == board.NoMove {
		bound := BoundUpper
		if bestScore >= beta {
			bound = BoundLower
		} else if bestScore > origAlpha {
			bound = BoundExact
		}
		w.shared.tt.Store(pos.Hash, depth, bestScore, ply, bound, bestMove, ttDTZ)

		if !inCheck && (bound == BoundExact ||
			(bound == BoundLower && bestScore > staticEval) ||
			(bound == BoundUpper && bestScore < staticEval)) {
			w.corr.Update(pos, bestScore, staticEval, depth)
		}
	}

	return bestScore
}

// recordCutoff updates killers, refutation tables and histories after
// a beta cutoff. The cutoff move gets a bonus and every earlier tried
// move of the same class gets the matching penalty.
func (w *Worker) recordCutoff(m board.Move, quiet bool, depth, ply int, quiets, captures []board.Move) {
	pos := w.pos
	delta := depth * depth

	var prevPiece, prev2Piece board.Piece = board.NoPiece, board.NoPiece
	var prevTo, prev2To board.Square
	if ply >= 1 && w.stack[ply-1].currentMove != board.NoMove && w.stack[ply-1].currentMove != board.NullMove {
		prevPiece = w.stack[ply-1].movedPiece
		prevTo = w.stack[ply-1].currentMove.To()
	}
	if ply >= 2 && w.stack[ply-2].currentMove != board.NoMove && w.stack[ply-2].currentMove != board.NullMove {
		prev2Piece = w.stack[ply-2].movedPiece
		prev2To = w.stack[ply-2].currentMove.To()
	}

	if quiet {
		killers := &w.stack[ply].killers
		if killers[0] != m {
			killers[1] = killers[0]
			killers[0] = m
		}
		w.hist.SetCounter(prevPiece, prevTo, m)
		w.hist.SetFollowup(prev2Piece, prev2To, m)

		pc := pos.Board[m.From()]
		w.hist.UpdateQuiet(pos.SideToMove, pc, m, prevPiece, prevTo, delta)
		for _, q := range quiets {
			if q == m {
				continue
			}
			w.hist.UpdateQuiet(pos.SideToMove, pos.Board[q.From()], q, prevPiece, prevTo, -delta)
		}
	} else if m.IsCapture() {
		victim := board.Pawn
		if !m.IsEnPassant() {
			victim = pos.Board[m.To()].Type()
		}
		w.hist.UpdateCapture(pos.Board[m.From()], m.To(), victim, delta)
		for _, c := range captures {
			if c == m || !c.IsCapture() {
				continue
			}
			cv := board.Pawn
			if !c.IsEnPassant() {
				cv = pos.Board[c.To()].Type()
			}
			w.hist.UpdateCapture(pos.Board[c.From()], c.To(), cv, -delta)
		}
	}
}

// quiescence resolves captures (and evasions in check) until the
// position is quiet, at most maxQuiescenceDepth plies past the
// horizon.
func (w *Worker) quiescence(alpha, beta, ply, qdepth int) int {
	if ply >= MaxPly {
		return w.evaluate()
	}
	if w.countNode() {
		return 0
	}

	pos := w.pos
	if pos.HalfMoveClock >= 100 || pos.IsInsufficientMaterial() || pos.IsRepetition(2) {
		return w.shared.drawScore()
	}

	inCheck := pos.IsCheck()

	standPat := -Infinity
	if !inCheck {
		standPat = w.evaluate()
		if standPat >= beta {
			return standPat
		}
		if standPat > alpha {
			alpha = standPat
		}
		if qdepth >= maxQuiescenceDepth {
			return standPat
		}
	}

	var moves *board.MoveList
	if inCheck {
		moves = pos.GeneratePseudoLegalMoves()
	} else {
		moves = pos.GenerateCaptures()
	}

	seeScores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		seeScores[i] = pos.SEE(moves.Get(i))
	}

	bestScore := standPat
	legalMoves := 0

	for i := 0; i < moves.Len(); i++ {
		PickMove(moves, seeScores, i)
		m := moves.Get(i)
		if victim := pos.Board[m.To()]; victim != board.NoPiece && victim.Type() == board.King {
			continue
		}

		// Delta pruning: even winning the exchange plus a margin
		// cannot lift this capture above alpha.
		if !inCheck && seeScores[i]+200+standPat < alpha {
			continue
		}

		undo := pos.MakeMove(m)
		if pos.MoverInCheck() {
			pos.UnmakeMove(m, undo)
			continue
		}
		legalMoves++
		w.stack[ply].currentMove = m
		w.stack[ply].movedPiece = pos.Board[m.To()]
		w.stack[ply].capturedPiece = undo.CapturedPiece

		score := -w.quiescence(-beta, -alpha, ply+1, qdepth+1)
		pos.UnmakeMove(m, undo)
		if w.stopped {
			return 0
		}

		if score > bestScore {
			bestScore = score
			if score > alpha {
				alpha = score
				if alpha >= beta {
					return score
				}
			}
		}
	}

	if inCheck && legalMoves == 0 {
		return -MateScore + ply
	}
	return bestScore
}
