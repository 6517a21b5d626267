package board

import (
	"reflect"
	"testing"
)

var exerciseFENs = []string{
	StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
}

func snapshot(p *Position) Position {
	c := *p
	c.history = nil
	return c
}

// Applying any legal move and taking it back must restore the position
// bit for bit: bitboards, mailbox, hash, castling slots, clocks.
func TestMakeUnmakeRoundTrip(t *testing.T) {
	for _, fen := range exerciseFENs {
		pos := mustParse(t, fen)
		before := snapshot(pos)
		histLen := pos.HistoryLen()

		moves := pos.GenerateLegalMoves()
		for i := 0; i < moves.Len(); i++ {
			m := moves.Get(i)
			undo := pos.MakeMove(m)
			if !undo.Valid {
				t.Errorf("%s: legal move %v flagged invalid", fen, m)
			}
			pos.UnmakeMove(m, undo)

			after := snapshot(pos)
			if !reflect.DeepEqual(before, after) {
				t.Fatalf("%s: move %v did not round-trip\nbefore: %+v\nafter:  %+v", fen, m, before, after)
			}
			if pos.HistoryLen() != histLen {
				t.Fatalf("%s: move %v leaked history entries", fen, m)
			}
		}
	}
}

// The incremental hash maintained by MakeMove must match a full
// recompute at every node of a shallow walk.
func TestIncrementalHashEquivalence(t *testing.T) {
	var walk func(p *Position, depth int)
	walk = func(p *Position, depth int) {
		if p.Hash != p.ComputeHash() {
			t.Fatalf("incremental hash %x != recomputed %x at %s", p.Hash, p.ComputeHash(), p.ToFEN())
		}
		if p.PawnKey != p.ComputePawnKey() {
			t.Fatalf("incremental pawn key mismatch at %s", p.ToFEN())
		}
		if depth == 0 {
			return
		}
		moves := p.GenerateLegalMoves()
		for i := 0; i < moves.Len(); i++ {
			m := moves.Get(i)
			undo := p.MakeMove(m)
			walk(p, depth-1)
			p.UnmakeMove(m, undo)
		}
	}

	for _, fen := range exerciseFENs {
		walk(mustParse(t, fen), 2)
	}
}

func TestOccupancyInvariant(t *testing.T) {
	for _, fen := range exerciseFENs {
		pos := mustParse(t, fen)
		var union Bitboard
		for c := White; c <= Black; c++ {
			var colorUnion Bitboard
			for pt := Pawn; pt <= King; pt++ {
				colorUnion |= pos.Pieces[c][pt]
			}
			if colorUnion != pos.Occupied[c] {
				t.Errorf("%s: %v occupancy out of sync", fen, c)
			}
			union |= colorUnion
		}
		if union != pos.AllOccupied {
			t.Errorf("%s: AllOccupied out of sync", fen)
		}
		for sq := A1; sq <= H8; sq++ {
			pc := pos.Board[sq]
			if pc == NoPiece {
				if pos.AllOccupied.IsSet(sq) {
					t.Errorf("%s: mailbox empty but bitboard set at %s", fen, sq)
				}
				continue
			}
			if !pos.Pieces[pc.Color()][pc.Type()].IsSet(sq) {
				t.Errorf("%s: mailbox %v at %s not in bitboards", fen, pc, sq)
			}
		}
	}
}

func TestPackCastlingRoundTrip(t *testing.T) {
	pos := mustParse(t, StartFEN)
	packed := pos.PackCastling()

	saved := pos.CastleRooks
	pos.CastleRooks[White][KingSide] = NoSquare
	pos.CastleRooks[Black][QueenSide] = NoSquare
	pos.unpackCastling(packed)
	if pos.CastleRooks != saved {
		t.Errorf("packed castling did not round-trip: %+v != %+v", pos.CastleRooks, saved)
	}

	empty := NewPosition()
	if empty.PackCastling() != 0 {
		t.Errorf("no rights should pack to zero, got %x", empty.PackCastling())
	}
}

func TestCastlingSlotInvalidation(t *testing.T) {
	pos := mustParse(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	// Moving the king extinguishes both slots.
	m, err := pos.ParseUCIMove("e1d1")
	if err != nil {
		t.Fatal(err)
	}
	undo := pos.MakeMove(m)
	if pos.CastleRooks[White][KingSide] != NoSquare || pos.CastleRooks[White][QueenSide] != NoSquare {
		t.Error("king move should clear both white slots")
	}
	if pos.CastleRooks[Black][KingSide] != H8 || pos.CastleRooks[Black][QueenSide] != A8 {
		t.Error("black slots should be untouched")
	}
	pos.UnmakeMove(m, undo)

	// Capturing a rook clears the slot referencing its square.
	pos2 := mustParse(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	m2, err := pos2.ParseUCIMove("a1a8")
	if err != nil {
		t.Fatal(err)
	}
	pos2.MakeMove(m2)
	if pos2.CastleRooks[Black][QueenSide] != NoSquare {
		t.Error("capturing the a8 rook should clear black's queenside slot")
	}
	if pos2.CastleRooks[White][QueenSide] != NoSquare {
		t.Error("moving the a1 rook should clear white's queenside slot")
	}
	if pos2.CastleRooks[White][KingSide] != H1 {
		t.Error("white kingside slot should survive")
	}
}

func TestRepetitionDetection(t *testing.T) {
	pos := mustParse(t, StartFEN)

	// Knight shuffles: each full cycle revisits the start position.
	cycle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	apply := func(texts []string) {
		for _, text := range texts {
			m, err := pos.ParseUCIMove(text)
			if err != nil {
				t.Fatal(err)
			}
			pos.MakeMove(m)
		}
	}

	apply(cycle)
	if !pos.IsRepetition(1) {
		t.Error("one cycle should count as a first repetition")
	}
	if pos.IsRepetition(2) {
		t.Error("one cycle is not yet a second repetition")
	}
	apply(cycle)
	if !pos.IsRepetition(2) {
		t.Error("two cycles should reach the threefold threshold")
	}
}

func TestShredderFENRookSlots(t *testing.T) {
	// Letters name rook files directly.
	pos := mustParse(t, "nrk1brqn/pppppppp/8/8/8/8/PPPPPPPP/NRK1BRQN w FBfb - 0 1")
	if pos.CastleRooks[White][KingSide] != F1 {
		t.Errorf("white kingside rook = %s, want f1", pos.CastleRooks[White][KingSide])
	}
	if pos.CastleRooks[White][QueenSide] != B1 {
		t.Errorf("white queenside rook = %s, want b1", pos.CastleRooks[White][QueenSide])
	}
	if pos.CastleRooks[Black][KingSide] != F8 || pos.CastleRooks[Black][QueenSide] != B8 {
		t.Error("black rook slots wrong")
	}

	// KQkq on the same position resolves via first-rook scans.
	pos2 := mustParse(t, "nrk1brqn/pppppppp/8/8/8/8/PPPPPPPP/NRK1BRQN w KQkq - 0 1")
	if pos2.CastleRooks[White][KingSide] != F1 || pos2.CastleRooks[White][QueenSide] != B1 {
		t.Errorf("KQkq scan found %s/%s, want f1/b1",
			pos2.CastleRooks[White][KingSide], pos2.CastleRooks[White][QueenSide])
	}

	pos.Chess960 = true
	fen := pos.ToFEN()
	if want := "nrk1brqn/pppppppp/8/8/8/8/PPPPPPPP/NRK1BRQN w FBfb - 0 1"; fen != want {
		t.Errorf("Chess960 FEN = %q, want %q", fen, want)
	}
}

func TestNullMoveRoundTrip(t *testing.T) {
	pos := mustParse(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/PPPPPPPP b KQkq e3 0 1")
	// Malformed pawn ranks do not matter here; only state save/restore does.
	before := snapshot(pos)
	undo := pos.MakeNullMove()
	if pos.SideToMove != White || pos.EnPassant != NoSquare {
		t.Error("null move should flip side and clear en passant")
	}
	pos.UnmakeNullMove(undo)
	if after := snapshot(pos); !reflect.DeepEqual(before, after) {
		t.Error("null move did not round-trip")
	}
}
