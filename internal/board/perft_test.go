package board

import "testing"

// perft counts leaf nodes at the given depth, the standard move
// generation correctness metric.
func perft(p *Position, depth int) int64 {
	if depth == 0 {
		return 1
	}
	moves := p.GenerateLegalMoves()
	if depth == 1 {
		return int64(moves.Len())
	}
	var nodes int64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := p.MakeMove(m)
		nodes += perft(p, depth-1)
		p.UnmakeMove(m, undo)
	}
	return nodes
}

func mustParse(t *testing.T, fen string) *Position {
	t.Helper()
	pos, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func TestPerftStartingPosition(t *testing.T) {
	pos := mustParse(t, StartFEN)

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 20},
		{2, 400},
		{3, 8902},
		{4, 197281},
		{5, 4865609},
	}

	for _, tc := range tests {
		if testing.Short() && tc.depth > 4 {
			continue
		}
		got := perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

func TestPerftStartingPositionDeep(t *testing.T) {
	if testing.Short() {
		t.Skip("depth 6 perft in short mode")
	}
	pos := mustParse(t, StartFEN)
	if got := perft(pos, 6); got != 119060324 {
		t.Errorf("perft(6) = %d, want 119060324", got)
	}
}

// Kiwipete exercises castling, pins, en passant and promotions at once.
func TestPerftKiwipete(t *testing.T) {
	pos := mustParse(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 48},
		{2, 2039},
		{3, 97862},
		{4, 4085603},
	}

	for _, tc := range tests {
		if testing.Short() && tc.depth > 3 {
			continue
		}
		got := perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// Position 3 is dense with en passant edge cases.
func TestPerftPosition3(t *testing.T) {
	pos := mustParse(t, "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1")

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 14},
		{2, 191},
		{3, 2812},
		{4, 43238},
		{5, 674624},
		{6, 11030083},
	}

	for _, tc := range tests {
		if testing.Short() && tc.depth > 4 {
			continue
		}
		got := perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// A horizontally pinned en passant capture must not be generated: both
// pawns leave the rank and expose the king to the rook.
func TestPerftEnPassantPin(t *testing.T) {
	pos := mustParse(t, "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")

	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		if moves.Get(i).IsEnPassant() {
			t.Errorf("en passant %v should be illegal here", moves.Get(i))
		}
	}

	tests := []struct {
		depth    int
		expected int64
	}{
		{1, 6},
		{2, 94},
	}
	for _, tc := range tests {
		got := perft(pos, tc.depth)
		if got != tc.expected {
			t.Errorf("perft(%d) = %d, want %d", tc.depth, got, tc.expected)
		}
	}
}

// Chess960 castling with king and rook at close quarters.
func TestPerftChess960(t *testing.T) {
	// Shredder-FEN: kings on b1/b8, rooks named by file letters.
	pos := mustParse(t, "1rkr4/8/8/8/8/8/8/1RKR4 w DBdb - 0 1")

	moves := pos.GenerateLegalMoves()
	castles := 0
	for i := 0; i < moves.Len(); i++ {
		if moves.Get(i).IsCastle() {
			castles++
		}
	}
	if castles == 0 {
		t.Fatal("expected at least one legal castling move")
	}

	for _, m := range moves.Slice() {
		undo := pos.MakeMove(m)
		pos.UnmakeMove(m, undo)
	}
	if pos.ToFEN() == "" {
		t.Fatal("position corrupted by make/unmake")
	}
}
