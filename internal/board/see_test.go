package board

import "testing"

func mustMove(t *testing.T, p *Position, text string) Move {
	t.Helper()
	m, err := p.ParseUCIMove(text)
	if err != nil {
		t.Fatalf("ParseUCIMove(%q): %v", text, err)
	}
	return m
}

func TestSEE(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want int
	}{
		{
			"undefended pawn",
			"k7/8/8/3p4/8/8/3R4/K7 w - - 0 1",
			"d2d5", 100,
		},
		{
			"defended pawn loses the rook",
			"k7/8/2p5/3p4/8/8/3R4/K7 w - - 0 1",
			"d2d5", -400,
		},
		{
			"x-ray rook limits the loss",
			"k7/8/2p5/3p4/8/8/3R4/K2R4 w - - 0 1",
			"d2d5", -300,
		},
		{
			"undefended rook",
			"k7/8/8/3r4/8/8/3R4/K7 w - - 0 1",
			"d2d5", 500,
		},
		{
			"en passant counts the victim",
			"k7/8/8/3Pp3/8/8/8/K7 w - e6 0 1",
			"d5e6", 100,
		},
		{
			"classic rook takes pawn",
			"1k1r4/1pp4p/p7/4p3/8/P5P1/1PP4P/2K1R3 w - - 0 1",
			"e1e5", 100,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustParse(t, tc.fen)
			m := mustMove(t, pos, tc.move)
			if got := pos.SEE(m); got != tc.want {
				t.Errorf("SEE(%s) = %d, want %d", tc.move, got, tc.want)
			}
		})
	}
}

func TestSEEQuietMoveIsZero(t *testing.T) {
	pos := mustParse(t, StartFEN)
	m := mustMove(t, pos, "e2e4")
	if got := pos.SEE(m); got != 0 {
		t.Errorf("SEE of a quiet move = %d, want 0", got)
	}
}
