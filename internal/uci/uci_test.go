package uci

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/ABDO10DZ/Hugine/internal/engine"
)

// syncWriter serializes writes from the search goroutine and the
// command loop.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// runScript feeds commands through a fresh session and returns the
// full output.
func runScript(t *testing.T, script string) string {
	t.Helper()
	out := &syncWriter{}
	u := New(engine.NewEngine(16), out)
	if code := u.Run(strings.NewReader(script)); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	return out.String()
}

func TestHandshake(t *testing.T) {
	out := runScript(t, "uci\nisready\nquit\n")

	for _, want := range []string{
		"id name Hugine",
		"option name Hash type spin",
		"option name Threads type spin",
		"option name MultiPV type spin",
		"option name SyzygyPath type string",
		"option name UCI_Elo type spin",
		"uciok",
		"readyok",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("handshake output missing %q", want)
		}
	}
}

func TestGoDepthEmitsBestmove(t *testing.T) {
	out := runScript(t, "position startpos\ngo depth 2\nquit\n")

	if !strings.Contains(out, "bestmove ") {
		t.Fatalf("no bestmove in output:\n%s", out)
	}
	if !strings.Contains(out, "info depth ") {
		t.Errorf("no info lines in output:\n%s", out)
	}
	// Every info line carries the mandated fields.
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "info depth") {
			continue
		}
		for _, field := range []string{"score", "nodes", "nps", "time", "tbhits", "pv"} {
			if !strings.Contains(line, field) {
				t.Errorf("info line missing %q: %s", field, line)
			}
		}
	}
}

func TestCheckmatedPositionYieldsNullMove(t *testing.T) {
	out := runScript(t,
		"position fen rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3\ngo depth 2\nquit\n")
	if !strings.Contains(out, "bestmove 0000") {
		t.Errorf("mated position should answer bestmove 0000:\n%s", out)
	}
}

func TestPositionMovesAndDisplay(t *testing.T) {
	out := runScript(t, "position startpos moves e2e4 e7e5\nd\nquit\n")

	if !strings.Contains(out, "Fen: ") {
		t.Fatalf("d output missing FEN:\n%s", out)
	}
	fenLine := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Fen: ") {
			fenLine = line
		}
	}
	if !strings.Contains(fenLine, "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w") {
		t.Errorf("unexpected position after e2e4 e7e5: %s", fenLine)
	}
}

func TestPerftDivide(t *testing.T) {
	out := runScript(t, "position startpos\nperft 2\nquit\n")

	if !strings.Contains(out, "Nodes searched: 400") {
		t.Errorf("perft 2 should count 400 nodes:\n%s", out)
	}
	if !strings.Contains(out, "e2e4: 20") {
		t.Errorf("divide output missing e2e4 count:\n%s", out)
	}
}

func TestEvalCommand(t *testing.T) {
	out := runScript(t, "position startpos\neval\nquit\n")
	if !strings.Contains(out, "Static eval: ") {
		t.Errorf("eval output missing:\n%s", out)
	}
}

func TestMalformedInputIgnored(t *testing.T) {
	out := runScript(t,
		"bogus command\nsetoption\nsetoption name\nposition\nposition fen not a fen\ngo depth 1\nquit\n")
	if !strings.Contains(out, "bestmove ") {
		t.Errorf("session should survive malformed input:\n%s", out)
	}
}

func TestSetOptionRouting(t *testing.T) {
	eng := engine.NewEngine(16)
	u := New(eng, &syncWriter{})

	u.cmdSetOption(strings.Fields("name Threads value 8"))
	if eng.Threads != 8 {
		t.Errorf("Threads = %d, want 8", eng.Threads)
	}
	u.cmdSetOption(strings.Fields("name Threads value 9999"))
	if eng.Threads != 64 {
		t.Errorf("Threads should clamp to 64, got %d", eng.Threads)
	}
	u.cmdSetOption(strings.Fields("name MultiPV value 3"))
	if eng.MultiPV != 3 {
		t.Errorf("MultiPV = %d, want 3", eng.MultiPV)
	}
	u.cmdSetOption(strings.Fields("name Contempt value -20"))
	if eng.Contempt != -20 {
		t.Errorf("Contempt = %d, want -20", eng.Contempt)
	}
	u.cmdSetOption(strings.Fields("name UCI_Chess960 value true"))
	if !eng.Chess960 || !u.pos.Chess960 {
		t.Error("Chess960 option did not propagate")
	}
}

func TestStrengthLimitDepthCap(t *testing.T) {
	eng := engine.NewEngine(16)
	u := New(eng, &syncWriter{})

	u.cmdSetOption(strings.Fields("name UCI_LimitStrength value true"))
	u.cmdSetOption(strings.Fields("name UCI_Elo value 1500"))
	if eng.DepthCap != 8 {
		t.Errorf("DepthCap at 1500 Elo = %d, want 8", eng.DepthCap)
	}

	u.cmdSetOption(strings.Fields("name UCI_Elo value 800"))
	if eng.DepthCap != 1 {
		t.Errorf("DepthCap at 800 Elo = %d, want 1", eng.DepthCap)
	}

	u.cmdSetOption(strings.Fields("name UCI_LimitStrength value false"))
	if eng.DepthCap != 0 {
		t.Errorf("DepthCap should clear when limiting is off, got %d", eng.DepthCap)
	}
}

func TestParseOptionMultiWordName(t *testing.T) {
	name, value := parseOption(strings.Fields("name Move Overhead value 250"))
	if name != "Move Overhead" || value != "250" {
		t.Errorf("parseOption = (%q, %q), want (Move Overhead, 250)", name, value)
	}
	name, value = parseOption(strings.Fields("name Clear Hash"))
	if name != "Clear Hash" || value != "" {
		t.Errorf("parseOption = (%q, %q), want (Clear Hash, )", name, value)
	}
}

func TestGoLimitParsing(t *testing.T) {
	u := New(engine.NewEngine(16), &syncWriter{})

	limits := u.parseGoLimits(strings.Fields(
		"wtime 60000 btime 50000 winc 1000 binc 2000 movestogo 30 depth 12 nodes 500000"))
	if ms := limits.Time[0].Milliseconds(); ms != 60000 {
		t.Errorf("wtime = %dms", ms)
	}
	if ms := limits.Time[1].Milliseconds(); ms != 50000 {
		t.Errorf("btime = %dms", ms)
	}
	if ms := limits.Inc[1].Milliseconds(); ms != 2000 {
		t.Errorf("binc = %dms", ms)
	}
	if limits.MovesToGo != 30 || limits.Depth != 12 || limits.Nodes != 500000 {
		t.Errorf("limits = %+v", limits)
	}

	limits = u.parseGoLimits(strings.Fields("infinite"))
	if !limits.Infinite {
		t.Error("infinite flag not parsed")
	}
	limits = u.parseGoLimits(strings.Fields("ponder movetime 3000"))
	if !limits.Ponder || limits.MoveTime.Milliseconds() != 3000 {
		t.Errorf("ponder limits = %+v", limits)
	}
	limits = u.parseGoLimits(strings.Fields("searchmoves e2e4 d2d4 depth 3"))
	if limits.Depth != 3 {
		t.Errorf("depth after searchmoves = %d, want 3", limits.Depth)
	}
}
