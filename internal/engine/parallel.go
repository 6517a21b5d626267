package engine

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ABDO10DZ/Hugine/internal/board"
	"github.com/ABDO10DZ/Hugine/internal/tablebase"
)

// Info is one per-depth search report.
type Info struct {
	Depth   int
	MultiPV int
	Score   int
	Nodes   uint64
	NPS     uint64
	Time    time.Duration
	TBHits  uint64
	PV      []board.Move
}

// SearchResult is the outcome of one go command.
type SearchResult struct {
	BestMove board.Move
	Ponder   board.Move
	Score    int
}

// rootPartition slices m moves contiguously across n workers.
func rootPartition(moves []board.Move, n int) [][]board.Move {
	if n < 1 {
		n = 1
	}
	if n > len(moves) {
		n = len(moves)
	}
	chunk := (len(moves) + n - 1) / n
	parts := make([][]board.Move, 0, n)
	for i := 0; i < len(moves); i += chunk {
		end := i + chunk
		if end > len(moves) {
			end = len(moves)
		}
		parts = append(parts, moves[i:end])
	}
	return parts
}

// Search runs a full parallel search and returns the best move. It
// blocks until every worker has joined.
func (e *Engine) Search(pos *board.Position, limits SearchLimits) SearchResult {
	e.stop.Store(false)
	e.tt.NewSearch()

	rootMoves := pos.GenerateLegalMoves().Slice()
	if len(rootMoves) == 0 {
		return SearchResult{BestMove: board.NoMove}
	}

	maxDepth := MaxPly - 1
	if limits.Depth > 0 && limits.Depth < maxDepth {
		maxDepth = limits.Depth
	}
	if e.DepthCap > 0 && e.DepthCap < maxDepth {
		maxDepth = e.DepthCap
	}

	e.tm.Init(limits, pos.SideToMove)
	e.tm.ScaleBudget(len(rootMoves))

	// A tablebase root hit settles the move outright.
	if e.tb != nil && e.tb.Available() && tablebase.CountPieces(pos) <= e.tb.MaxPieces() {
		if root := e.tb.ProbeRoot(pos); root.Found {
			return SearchResult{BestMove: root.Move, Score: tablebase.WDLToScore(root.WDL, 0)}
		}
	}

	shared := newSharedState(e.tt, e.tm, &e.stop)
	shared.nodeLimit = limits.Nodes
	shared.contempt = e.Contempt
	shared.maxDepth = maxDepth
	shared.multiPV = e.MultiPV

	threads := e.Threads
	if threads < 1 {
		threads = 1
	}
	e.ensureWorkers(threads, shared)

	if e.MultiPV > 1 {
		return e.searchMultiPV(pos, rootMoves, maxDepth, shared)
	}

	parts := rootPartition(rootMoves, threads)
	shared.activeRoots.Store(int64(len(parts)))

	var g errgroup.Group
	for i := range parts {
		w := e.workers[i]
		part := parts[i]
		g.Go(func() error {
			w.prepare(pos)
			var emit func(Info)
			if w.id == 0 {
				emit = e.emitInfo
			}
			w.iterateRoot(part, maxDepth, emit)
			w.flushNodes()
			// The last root to finish releases any helpers still
			// parked on the split registry.
			if shared.activeRoots.Add(-1) == 0 {
				shared.splits.close()
			} else {
				w.helperLoop()
			}
			return nil
		})
	}
	g.Wait()

	score, best := shared.bestResult()
	if best == board.NoMove {
		best = rootMoves[0]
	}
	return SearchResult{
		BestMove: best,
		Ponder:   e.ponderFromPV(pos, best),
		Score:    score,
	}
}

// searchMultiPV runs depth-synchronized searches: at each depth the
// top K root moves are established one at a time by excluding the
// lines already found, then reported together.
func (e *Engine) searchMultiPV(pos *board.Position, rootMoves []board.Move, maxDepth int, shared *sharedState) SearchResult {
	k := e.MultiPV
	if k > len(rootMoves) {
		k = len(rootMoves)
	}

	var best SearchResult
	for depth := 1; depth <= maxDepth; depth++ {
		if depth > 1 && e.tm.SoftExpired() {
			break
		}
		excluded := make(map[board.Move]bool, k)
		lines := make([]Info, 0, k)
		for pv := 0; pv < k; pv++ {
			candidates := make([]board.Move, 0, len(rootMoves))
			for _, m := range rootMoves {
				if !excluded[m] {
					candidates = append(candidates, m)
				}
			}
			score, move, line := e.fixedDepthSearch(pos, candidates, depth, shared)
			if e.stop.Load() || move == board.NoMove {
				break
			}
			excluded[move] = true
			lines = append(lines, Info{
				Depth:   depth,
				MultiPV: pv + 1,
				Score:   score,
				Nodes:   shared.nodes.Load(),
				Time:    e.tm.Elapsed(),
				TBHits:  shared.tbhits.Load(),
				PV:      line,
			})
		}
		if len(lines) == 0 {
			break
		}
		for i := range lines {
			if elapsed := lines[i].Time; elapsed > 0 {
				lines[i].NPS = uint64(float64(lines[i].Nodes) / elapsed.Seconds())
			}
			e.emitInfo(lines[i])
		}
		head := lines[0]
		best = SearchResult{BestMove: head.PV[0], Score: head.Score}
		if len(head.PV) > 1 {
			best.Ponder = head.PV[1]
		}
		shared.publishBest(head.Score, head.PV[0])
		e.tm.OnDepthComplete(head.PV[0], head.Score, pos.GamePhase())
		if e.stop.Load() {
			break
		}
	}
	if best.BestMove == board.NoMove {
		best.BestMove = rootMoves[0]
	}
	return best
}

// fixedDepthSearch searches the candidate root moves at exactly one
// depth across all workers and returns the winner with its line.
func (e *Engine) fixedDepthSearch(pos *board.Position, candidates []board.Move, depth int, shared *sharedState) (int, board.Move, []board.Move) {
	parts := rootPartition(candidates, len(e.workers))

	results := make([]struct {
		score int
		move  board.Move
		pv    []board.Move
	}, len(parts))

	var g errgroup.Group
	for i := range parts {
		i := i
		w := e.workers[i]
		part := parts[i]
		g.Go(func() error {
			w.prepare(pos)
			score, move := w.searchRoot(part, depth, -Infinity, Infinity)
			w.flushNodes()
			results[i].score = score
			results[i].move = move
			results[i].pv = w.validatedPV(pos)
			return nil
		})
	}
	g.Wait()

	bestScore, bestMove := -Infinity-1, board.NoMove
	var bestPV []board.Move
	for _, r := range results {
		if r.move != board.NoMove && r.score > bestScore {
			bestScore, bestMove, bestPV = r.score, r.move, r.pv
		}
	}
	if bestMove != board.NoMove && (len(bestPV) == 0 || bestPV[0] != bestMove) {
		bestPV = []board.Move{bestMove}
	}
	return bestScore, bestMove, bestPV
}

// iterateRoot is one worker's iterative deepening over its partition.
func (w *Worker) iterateRoot(rootMoves []board.Move, maxDepth int, emit func(Info)) {
	moves := make([]board.Move, len(rootMoves))
	copy(moves, rootMoves)

	bestScore := -Infinity
	bestMove := board.NoMove

	for depth := 1; depth <= maxDepth; depth++ {
		if depth > 1 && w.shared.tm != nil && w.shared.tm.SoftExpired() {
			break
		}

		// Prior iteration's best move leads.
		if bestMove != board.NoMove {
			for i, m := range moves {
				if m == bestMove && i > 0 {
					copy(moves[1:i+1], moves[:i])
					moves[0] = bestMove
					break
				}
			}
		}

		alpha, beta := -Infinity, Infinity
		if depth >= 5 && bestMove != board.NoMove {
			alpha, beta = bestScore-15, bestScore+15
		}

		var score int
		var move board.Move
		for {
			score, move = w.searchRoot(moves, depth, alpha, beta)
			if w.stopped || move == board.NoMove {
				break
			}
			if score <= alpha {
				alpha = max(alpha-50, -Infinity)
				continue
			}
			if score >= beta {
				beta = min(beta+50, Infinity)
				continue
			}
			break
		}
		if w.stopped || move == board.NoMove {
			break
		}

		bestScore, bestMove = score, move
		w.shared.publishBest(score, move)

		if emit != nil {
			w.flushNodes()
			nodes := w.shared.nodes.Load()
			elapsed := w.shared.tm.Elapsed()
			info := Info{
				Depth:   depth,
				MultiPV: 1,
				Score:   score,
				Nodes:   nodes,
				Time:    elapsed,
				TBHits:  w.shared.tbhits.Load(),
				PV:      w.validatedPV(w.pos),
			}
			if elapsed > 0 {
				info.NPS = uint64(float64(nodes) / elapsed.Seconds())
			}
			emit(info)
		}
		if w.shared.tm != nil {
			w.shared.tm.OnDepthComplete(move, score, w.pos.GamePhase())
		}
		if abs(score) >= MateScore-MaxPly {
			break
		}
	}
}

// searchRoot searches the partition at one depth with principal
// variation search.
func (w *Worker) searchRoot(moves []board.Move, depth, alpha, beta int) (int, board.Move) {
	pos := w.pos
	bestScore := -Infinity
	bestMove := board.NoMove
	legal := 0

	for _, m := range moves {
		undo := pos.MakeMove(m)
		if pos.MoverInCheck() {
			pos.UnmakeMove(m, undo)
			continue
		}
		legal++
		w.stack[0].currentMove = m
		w.stack[0].movedPiece = pos.Board[m.To()]
		w.stack[0].capturedPiece = undo.CapturedPiece

		var score int
		if legal == 1 {
			score = -w.negamax(depth-1, -beta, -alpha, 1, false, board.NoMove)
		} else {
			score = -w.negamax(depth-1, -alpha-1, -alpha, 1, true, board.NoMove)
			if score > alpha && score < beta && !w.stopped {
				score = -w.negamax(depth-1, -beta, -alpha, 1, false, board.NoMove)
			}
		}
		pos.UnmakeMove(m, undo)
		if w.stopped {
			return bestScore, bestMove
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				w.pv.update(0, m)
				if alpha >= beta {
					break
				}
			}
		}
	}
	return bestScore, bestMove
}

// validatedPV replays the worker's PV from the root, truncating at the
// first move that is not legal in its context. This guards the output
// against transposition table hash collisions.
func (w *Worker) validatedPV(root *board.Position) []board.Move {
	line := w.pv.Line()
	pos := root.Copy()
	valid := make([]board.Move, 0, len(line))
	for _, m := range line {
		if !pos.GenerateLegalMoves().Contains(m) {
			break
		}
		pos.MakeMove(m)
		valid = append(valid, m)
	}
	return valid
}

// ponderFromPV extracts the expected reply to the chosen best move.
func (e *Engine) ponderFromPV(pos *board.Position, best board.Move) board.Move {
	for _, w := range e.workers {
		line := w.validatedPV(pos)
		if len(line) >= 2 && line[0] == best {
			return line[1]
		}
	}
	return board.NoMove
}
