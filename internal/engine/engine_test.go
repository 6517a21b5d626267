package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/ABDO10DZ/Hugine/internal/board"
	"github.com/ABDO10DZ/Hugine/internal/tablebase"
)

func position(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("parse %q: %v", fen, err)
	}
	return pos
}

func startpos(t *testing.T) *board.Position {
	return position(t, board.StartFEN)
}

func TestSearchReturnsLegalMove(t *testing.T) {
	eng := NewEngine(16)
	pos := startpos(t)

	result := eng.Search(pos, SearchLimits{Depth: 2})
	if result.BestMove == board.NoMove {
		t.Fatal("search returned no move from the starting position")
	}
	if !pos.GenerateLegalMoves().Contains(result.BestMove) {
		t.Errorf("best move %s is not legal", pos.MoveToUCI(result.BestMove))
	}
}

func TestSearchNoLegalMoves(t *testing.T) {
	eng := NewEngine(16)
	// Fool's mate final position, black is checkmated.
	pos := position(t, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	pos.UpdateCheckers()
	if pos.HasLegalMoves() {
		t.Fatal("expected a checkmated position")
	}
	result := eng.Search(pos, SearchLimits{Depth: 2})
	if result.BestMove != board.NoMove {
		t.Errorf("checkmated position returned move %v", result.BestMove)
	}
}

func TestFindsMateInOne(t *testing.T) {
	eng := NewEngine(16)
	// Back-rank mate with Rd8.
	pos := position(t, "6k1/5ppp/8/8/8/8/5PPP/3R2K1 w - - 0 1")

	result := eng.Search(pos, SearchLimits{Depth: 4})
	if got := pos.MoveToUCI(result.BestMove); got != "d1d8" {
		t.Errorf("best move = %s, want d1d8", got)
	}
	if !IsMateScore(result.Score) || MateIn(result.Score) != 1 {
		t.Errorf("score = %d, want mate in 1", result.Score)
	}
}

func TestFindsMateInTwo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mate search in short mode")
	}
	eng := NewEngine(16)
	// 1.Kg6 Kg8 (forced) 2.Qa8#.
	pos := position(t, "7k/8/8/6K1/8/8/8/Q7 w - - 0 1")

	result := eng.Search(pos, SearchLimits{Depth: 8})
	if !IsMateScore(result.Score) {
		t.Fatalf("score = %d, want a mate score", result.Score)
	}
	if MateIn(result.Score) != 2 {
		t.Errorf("mate in %d, want 2", MateIn(result.Score))
	}
}

func TestSearchMultiThreaded(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping threaded search in short mode")
	}
	eng := NewEngine(32)
	eng.Threads = 4
	pos := position(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")

	result := eng.Search(pos, SearchLimits{Depth: 6})
	if result.BestMove == board.NoMove {
		t.Fatal("threaded search returned no move")
	}
	if !pos.GenerateLegalMoves().Contains(result.BestMove) {
		t.Errorf("best move %s is not legal", pos.MoveToUCI(result.BestMove))
	}
}

func TestFixedDepthDeterminism(t *testing.T) {
	fen := "r2qkb1r/ppp2ppp/2np1n2/4p1B1/2B1P1b1/2NP1N2/PPP2PPP/R2QK2R w KQkq - 4 6"
	limits := SearchLimits{Depth: 4}

	first := NewEngine(16).Search(position(t, fen), limits)
	second := NewEngine(16).Search(position(t, fen), limits)
	if first.BestMove != second.BestMove {
		t.Errorf("single-threaded fixed-depth search not deterministic: %v vs %v",
			first.BestMove, second.BestMove)
	}
	if first.Score != second.Score {
		t.Errorf("scores differ: %d vs %d", first.Score, second.Score)
	}
}

func TestMultiPVDistinctLines(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping multipv search in short mode")
	}
	eng := NewEngine(16)
	eng.MultiPV = 3
	pos := startpos(t)

	var lines []Info
	eng.OnInfo = func(info Info) {
		if info.Depth == 4 {
			lines = append(lines, info)
		}
	}
	result := eng.Search(pos, SearchLimits{Depth: 4})
	if result.BestMove == board.NoMove {
		t.Fatal("multipv search returned no move")
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines at depth 4, want 3", len(lines))
	}
	seen := map[board.Move]bool{}
	for i, line := range lines {
		if len(line.PV) == 0 {
			t.Fatalf("line %d has empty pv", i+1)
		}
		if seen[line.PV[0]] {
			t.Errorf("line %d repeats root move %v", i+1, line.PV[0])
		}
		seen[line.PV[0]] = true
		if i > 0 && line.Score > lines[i-1].Score {
			t.Errorf("line %d score %d exceeds line %d score %d",
				i+1, line.Score, i, lines[i-1].Score)
		}
	}
}

func TestNodeLimit(t *testing.T) {
	eng := NewEngine(16)
	pos := startpos(t)

	result := eng.Search(pos, SearchLimits{Nodes: 2000, Depth: 30})
	if result.BestMove == board.NoMove {
		t.Fatal("node-limited search returned no move")
	}
}

func TestTranspositionProbeStore(t *testing.T) {
	tt := NewTranspositionTable(1)
	const hash = 0xdeadbeefcafe1234
	m := board.NewMove(board.E2, board.E4)

	if hit, _, _, _ := tt.Probe(hash, 1, 0, -100, 100); hit {
		t.Fatal("probe hit on empty table")
	}

	tt.Store(hash, 6, 42, 0, BoundExact, m, 0)
	hit, score, move, _ := tt.Probe(hash, 6, 0, -100, 100)
	if !hit || score != 42 || move != m {
		t.Fatalf("probe = (%v, %d, %v), want hit 42 e2e4", hit, score, move)
	}

	// Deeper requests miss on depth but still yield the move.
	hit, _, move, _ = tt.Probe(hash, 8, 0, -100, 100)
	if hit {
		t.Error("shallow entry must not satisfy a deeper probe")
	}
	if move != m {
		t.Error("move should survive a depth miss")
	}
}

func TestTranspositionBoundCompat(t *testing.T) {
	tt := NewTranspositionTable(1)
	const hash = 0x1122334455667788

	tt.Store(hash, 4, 80, 0, BoundLower, board.NoMove, 0)
	if hit, _, _, _ := tt.Probe(hash, 4, 0, -100, 50); !hit {
		t.Error("lower bound at or above beta should hit")
	}
	if hit, _, _, _ := tt.Probe(hash, 4, 0, -100, 100); hit {
		t.Error("lower bound below beta should not hit")
	}

	tt.Store(hash, 5, -80, 0, BoundUpper, board.NoMove, 0)
	if hit, _, _, _ := tt.Probe(hash, 5, 0, -50, 100); !hit {
		t.Error("upper bound at or below alpha should hit")
	}
	if hit, _, _, _ := tt.Probe(hash, 5, 0, -100, 100); hit {
		t.Error("upper bound above alpha should not hit")
	}
}

func TestTranspositionMateScoreAdjust(t *testing.T) {
	tt := NewTranspositionTable(1)
	const hash = 0xaabbccddeeff0011

	// A mate found 3 plies below a node at ply 2.
	tt.Store(hash, 10, MateScore-5, 2, BoundExact, board.NoMove, 0)
	hit, score, _, _ := tt.Probe(hash, 10, 4, -Infinity, Infinity)
	if !hit {
		t.Fatal("expected a hit")
	}
	// Root-relative in the table, ply-relative coming out.
	if score != MateScore-7 {
		t.Errorf("score = %d, want %d", score, MateScore-7)
	}
}

func TestTimeManagerBudget(t *testing.T) {
	tm := NewTimeManager(0)
	tm.Init(SearchLimits{
		Time: [2]time.Duration{60 * time.Second, 60 * time.Second},
		Inc:  [2]time.Duration{time.Second, time.Second},
	}, board.White)

	if tm.SoftExpired() || tm.StopEarly() {
		t.Error("fresh 60s budget should not be expired")
	}

	tm.Init(SearchLimits{MoveTime: time.Millisecond}, board.White)
	time.Sleep(5 * time.Millisecond)
	if !tm.SoftExpired() || !tm.StopEarly() {
		t.Error("1ms budget should be exhausted")
	}
}

func TestTimeManagerPonder(t *testing.T) {
	tm := NewTimeManager(0)
	tm.Init(SearchLimits{MoveTime: time.Millisecond, Ponder: true}, board.White)
	time.Sleep(5 * time.Millisecond)
	if tm.StopEarly() || tm.SoftExpired() {
		t.Error("pondering search must not time out")
	}

	tm.PonderHit()
	time.Sleep(5 * time.Millisecond)
	if !tm.StopEarly() {
		t.Error("limits should arm after ponderhit")
	}
}

func TestTimeManagerInfinite(t *testing.T) {
	tm := NewTimeManager(0)
	tm.Init(SearchLimits{Infinite: true}, board.White)
	if tm.SoftExpired() || tm.StopEarly() {
		t.Error("infinite search must not time out")
	}
}

func TestPawnTable(t *testing.T) {
	pt := NewPawnTable(1)
	pos := startpos(t)

	if _, _, found := pt.Probe(pos.PawnKey); found {
		t.Error("expected a miss on a fresh table")
	}

	pt.Store(pos.PawnKey, -15, -20)
	mg, eg, found := pt.Probe(pos.PawnKey)
	if !found || mg != -15 || eg != -20 {
		t.Errorf("probe = (%d, %d, %v), want (-15, -20, true)", mg, eg, found)
	}

	oldKey := pos.PawnKey
	m := board.NewMove(board.E2, board.E4)
	undo := pos.MakeMove(m)
	if pos.PawnKey == oldKey {
		t.Error("pawn key should change when a pawn moves")
	}
	pos.UnmakeMove(m, undo)
	if pos.PawnKey != oldKey {
		t.Error("pawn key should be restored on unmake")
	}
}

func TestEvaluateSymmetry(t *testing.T) {
	eng := NewEngine(16)

	// Color-swapping and reflecting the board vertically, keeping the
	// side-to-move field, must negate the score exactly.
	mirrors := [][2]string{
		{
			"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
			"rnbqkbnr/pppp1ppp/8/4p3/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1",
		},
		{
			"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
			"rnbqkb1r/pppp1ppp/5n2/4p3/4P3/2N5/PPPP1PPP/R1BQKBNR w KQkq - 2 3",
		},
	}
	for _, pair := range mirrors {
		v := eng.Evaluate(position(t, pair[0]))
		m := eng.Evaluate(position(t, pair[1]))
		if v != -m {
			t.Errorf("mirror of %s scores %d, want %d", pair[0], m, -v)
		}
	}

	// The start position is its own mirror under either side to move.
	white := eng.Evaluate(startpos(t))
	black := eng.Evaluate(position(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b KQkq - 0 1"))
	if white != 0 || black != 0 {
		t.Errorf("self-mirrored startpos should score zero: white %d, black %d", white, black)
	}
}

func TestMateScoreHelpers(t *testing.T) {
	if !IsMateScore(MateScore - 1) || !IsMateScore(-MateScore + 4) {
		t.Error("near-mate scores should register as mate")
	}
	if IsMateScore(250) {
		t.Error("normal scores are not mate")
	}
	if MateIn(MateScore-1) != 1 {
		t.Errorf("MateIn(%d) = %d, want 1", MateScore-1, MateIn(MateScore-1))
	}
	if MateIn(MateScore-3) != 2 {
		t.Errorf("MateIn(%d) = %d, want 2", MateScore-3, MateIn(MateScore-3))
	}
	if MateIn(-MateScore+2) != -1 {
		t.Errorf("MateIn(%d) = %d, want -1", -MateScore+2, MateIn(-MateScore+2))
	}
	if got := ScoreToString(150); got != "+1.50" {
		t.Errorf("ScoreToString(150) = %q", got)
	}
	if got := ScoreToString(MateScore - 3); got != "Mate in 2" {
		t.Errorf("ScoreToString(mate) = %q", got)
	}
}

func TestHistoryGravity(t *testing.T) {
	h := NewHistory()
	pc := board.NewPiece(board.Knight, board.White)
	m := board.NewMove(board.G1, board.F3)

	h.UpdateQuiet(board.White, pc, m, board.NoPiece, board.A1, 64)
	first := h.QuietScore(board.White, pc, m, board.NoPiece, board.A1)
	if first <= 0 {
		t.Fatalf("score after bonus = %d, want positive", first)
	}

	// Repeated bonuses saturate instead of overflowing.
	for i := 0; i < 1000; i++ {
		h.UpdateQuiet(board.White, pc, m, board.NoPiece, board.A1, 400)
	}
	sat := h.QuietScore(board.White, pc, m, board.NoPiece, board.A1)
	if sat > 3*16384 {
		t.Errorf("history score %d exceeds gravity bound", sat)
	}

	for i := 0; i < 1000; i++ {
		h.UpdateQuiet(board.White, pc, m, board.NoPiece, board.A1, -400)
	}
	if after := h.QuietScore(board.White, pc, m, board.NoPiece, board.A1); after >= sat {
		t.Errorf("penalties should pull the score down: %d -> %d", sat, after)
	}
}

func TestQuietScoreCorrectionTerm(t *testing.T) {
	h := NewHistory()
	pc := board.NewPiece(board.Knight, board.White)
	m := board.NewMove(board.G1, board.F3)

	// One bonus from zero lands the full delta in each table, so the
	// quiet score is main + butterfly + correction/8.
	h.UpdateQuiet(board.White, pc, m, board.NoPiece, board.A1, 800)
	if got, want := h.QuietScore(board.White, pc, m, board.NoPiece, board.A1), 800+800+800/8; got != want {
		t.Errorf("quiet score = %d, want %d", got, want)
	}
}

func TestCorrectionHistoryKeyedByPawnStructure(t *testing.T) {
	ch := NewCorrectionHistory()
	a := startpos(t)
	// Same pawn skeleton, different piece placement.
	b := position(t, "rnbqkbnr/pppppppp/8/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - 1 1")

	ch.Update(a, 120, 40, 8)
	if ch.Get(a) == 0 {
		t.Fatal("correction should register after an update")
	}
	if ch.Get(b) != ch.Get(a) {
		t.Errorf("same pawn structure should share a correction: %d vs %d", ch.Get(b), ch.Get(a))
	}
}

// sideRecordingProber answers every probe with a draw and records the
// side to move of each probed position.
type sideRecordingProber struct {
	mu    sync.Mutex
	sides []board.Color
}

func (p *sideRecordingProber) Probe(pos *board.Position) tablebase.ProbeResult {
	p.mu.Lock()
	p.sides = append(p.sides, pos.SideToMove)
	p.mu.Unlock()
	return tablebase.ProbeResult{Found: true, WDL: tablebase.WDLDraw}
}

func (p *sideRecordingProber) ProbeRoot(pos *board.Position) tablebase.RootResult {
	return tablebase.RootResult{}
}

func (p *sideRecordingProber) MaxPieces() int  { return 7 }
func (p *sideRecordingProber) Available() bool { return true }

func TestTablebaseProbesOnlyAtHorizon(t *testing.T) {
	// King shuffles only: within two plies there are no checks,
	// captures or extensions, so every depth-1 node has white to move
	// and every depth-0 node has black to move.
	pos := position(t, "7k/8/8/8/8/8/P7/K7 b - - 0 1")
	prober := &sideRecordingProber{}

	eng := NewEngine(1)
	shared := newSharedState(eng.tt, nil, &eng.stop)
	w := NewWorker(0, shared, NewClassicalEvaluator(), nil, prober)
	w.prepare(pos)
	w.negamax(2, -Infinity, Infinity, 0, false, board.NoMove)

	if len(prober.sides) == 0 {
		t.Fatal("horizon nodes should consult the tablebase")
	}
	for _, side := range prober.sides {
		if side != board.Black {
			t.Fatal("interior node consulted the tablebase")
		}
	}
}

func TestPerftFromEngine(t *testing.T) {
	eng := NewEngine(1)
	pos := startpos(t)
	if n := eng.Perft(pos, 3); n != 8902 {
		t.Errorf("perft 3 = %d, want 8902", n)
	}
	divide, total := eng.PerftDivide(pos, 2)
	if len(divide) != 20 {
		t.Errorf("divide has %d moves, want 20", len(divide))
	}
	if total != 400 {
		t.Errorf("perft 2 total = %d, want 400", total)
	}
}
