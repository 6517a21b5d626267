package tablebase

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ABDO10DZ/Hugine/internal/board"
)

func startpos(t *testing.T) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatal(err)
	}
	return pos
}

func TestNoopProber(t *testing.T) {
	prober := NoopProber{}

	if prober.Available() {
		t.Error("NoopProber should not be available")
	}
	if prober.MaxPieces() != 0 {
		t.Errorf("NoopProber MaxPieces = %d, want 0", prober.MaxPieces())
	}

	pos := startpos(t)
	if prober.Probe(pos).Found {
		t.Error("NoopProber should not find anything")
	}
	if prober.ProbeRoot(pos).Found {
		t.Error("NoopProber ProbeRoot should not find anything")
	}
}

func TestCountPieces(t *testing.T) {
	if n := CountPieces(startpos(t)); n != 32 {
		t.Errorf("starting position has %d pieces, want 32", n)
	}
}

func TestWDLToScore(t *testing.T) {
	tests := []struct {
		wdl      WDL
		ply      int
		positive bool
	}{
		{WDLWin, 0, true},
		{WDLWin, 10, true},
		{WDLCursedWin, 0, true},
		{WDLDraw, 0, false},
		{WDLBlessedLoss, 0, false},
		{WDLLoss, 0, false},
	}
	for _, tc := range tests {
		score := WDLToScore(tc.wdl, tc.ply)
		if tc.positive && score <= 0 {
			t.Errorf("WDL %d at ply %d should score positive, got %d", tc.wdl, tc.ply, score)
		}
		if !tc.positive && tc.wdl != WDLDraw && score > 0 {
			t.Errorf("WDL %d at ply %d should score non-positive, got %d", tc.wdl, tc.ply, score)
		}
	}
}

func TestWDLToScoreBelowMateRange(t *testing.T) {
	// A proven mate must always outrank a tablebase win.
	const mateFloor = 29000 - 128
	if s := WDLToScore(WDLWin, 0); s >= mateFloor {
		t.Errorf("tablebase win score %d reaches into the mate range", s)
	}
}

func TestSyzygyProberScan(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"KQvK.rtbw", "KQvK.rtbz", "KRvKN.rtbw", "KRvKN.rtbz", "KPvK.rtbw"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	sp := NewSyzygyProber(dir)
	if !sp.Available() {
		t.Fatal("prober should be available")
	}
	// KPvK lacks its DTZ half and must not be indexed.
	if got := sp.TableCount(); got != 2 {
		t.Errorf("TableCount = %d, want 2", got)
	}
	if got := sp.MaxPieces(); got != 4 {
		t.Errorf("MaxPieces = %d, want 4", got)
	}

	pos, err := board.ParseFEN("4k3/8/8/8/8/8/8/3QK3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if !sp.InRange(pos) {
		t.Error("KQvK position should be in range")
	}

	// Key orientation must not matter.
	flipped, err := board.ParseFEN("3qk3/8/8/8/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if !sp.InRange(flipped) {
		t.Error("KvKQ position should match the KQvK table")
	}

	if sp.InRange(startpos(t)) {
		t.Error("32-piece position cannot be in range")
	}
}

func TestSyzygyProberEmptyPath(t *testing.T) {
	sp := NewSyzygyProber("")
	if sp.Available() {
		t.Error("empty path should not be available")
	}
	sp.SetPath(t.TempDir())
	if sp.Available() {
		t.Error("empty directory should not be available")
	}
}
