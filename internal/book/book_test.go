package book

import (
	"bytes"
	"encoding/binary"
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

func TestPolyglotHashKnownKey(t *testing.T) {
	// Reference key for the starting position from the Polyglot spec.
	pos := startpos(t)
	if got := pos.PolyglotHash(); got != 0x463b96181691fc9c {
		t.Errorf("startpos PolyglotHash = %016x, want 463b96181691fc9c", got)
	}
}

func TestPolyglotHashRoundTrip(t *testing.T) {
	pos := startpos(t)
	hash1 := pos.PolyglotHash()

	m, err := pos.ParseUCIMove("e2e4")
	if err != nil {
		t.Fatal(err)
	}
	undo := pos.MakeMove(m)
	if pos.PolyglotHash() == hash1 {
		t.Error("PolyglotHash should change after a move")
	}
	pos.UnmakeMove(m, undo)
	if pos.PolyglotHash() != hash1 {
		t.Error("PolyglotHash not restored after unmake")
	}
}

// encodeRecord builds one 16-byte Polyglot record.
func encodeRecord(buf *bytes.Buffer, key uint64, move, weight uint16) {
	binary.Write(buf, binary.BigEndian, key)
	binary.Write(buf, binary.BigEndian, move)
	binary.Write(buf, binary.BigEndian, weight)
	binary.Write(buf, binary.BigEndian, uint32(0))
}

func TestBookLoadAndProbe(t *testing.T) {
	pos := startpos(t)
	key := pos.PolyglotHash()

	// e2e4: to_file | to_rank<<3 | from_file<<6 | from_rank<<9
	e2e4 := uint16(4 | 3<<3 | 4<<6 | 1<<9)

	var buf bytes.Buffer
	encodeRecord(&buf, key, e2e4, 100)

	b, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatalf("load book: %v", err)
	}
	if b.Size() != 1 {
		t.Errorf("book size = %d, want 1", b.Size())
	}

	move, found := b.Probe(pos)
	if !found {
		t.Fatal("expected a book hit")
	}
	if move.From() != board.E2 || move.To() != board.E4 {
		t.Errorf("book move = %s, want e2e4", move)
	}
}

func TestBookVarietyZeroIsDeterministic(t *testing.T) {
	pos := startpos(t)
	key := pos.PolyglotHash()

	e2e4 := uint16(4 | 3<<3 | 4<<6 | 1<<9)
	d2d4 := uint16(3 | 3<<3 | 3<<6 | 1<<9)

	var buf bytes.Buffer
	encodeRecord(&buf, key, d2d4, 10)
	encodeRecord(&buf, key, e2e4, 200)

	b, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		move, found := b.Probe(pos)
		if !found {
			t.Fatal("expected a book hit")
		}
		if move.From() != board.E2 || move.To() != board.E4 {
			t.Fatalf("variety 0 should always pick the heaviest move, got %s", move)
		}
	}
}

func TestBookVarietySamplesByWeightPower(t *testing.T) {
	pos := startpos(t)
	key := pos.PolyglotHash()

	e2e4 := uint16(4 | 3<<3 | 4<<6 | 1<<9)
	d2d4 := uint16(3 | 3<<3 | 3<<6 | 1<<9)

	// A zero weight raised to any positive exponent stays zero, so the
	// entry can never win the draw.
	var buf bytes.Buffer
	encodeRecord(&buf, key, d2d4, 0)
	encodeRecord(&buf, key, e2e4, 120)

	b, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	b.Variety = 5

	for i := 0; i < 50; i++ {
		move, found := b.Probe(pos)
		if !found {
			t.Fatal("expected a book hit")
		}
		if move.From() != board.E2 || move.To() != board.E4 {
			t.Fatalf("zero-weight entry should never be sampled, got %s", move)
		}
	}
}

func TestBookRejectsIllegalMove(t *testing.T) {
	pos := startpos(t)
	key := pos.PolyglotHash()

	// e2e5 is not a legal move from the start position.
	e2e5 := uint16(4 | 4<<3 | 4<<6 | 1<<9)
	var buf bytes.Buffer
	encodeRecord(&buf, key, e2e5, 50)

	b, err := LoadPolyglotReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	move, found := b.Probe(pos)
	if found && move != board.NoMove {
		t.Errorf("illegal book move should be rejected, got %s", move)
	}
}

func TestBookMiss(t *testing.T) {
	b := New()
	pos := startpos(t)
	move, found := b.Probe(pos)
	if found || move != board.NoMove {
		t.Error("empty book should miss")
	}
}

func TestDecodePolyglotMove(t *testing.T) {
	tests := []struct {
		data     uint16
		from, to board.Square
	}{
		{uint16(4 | 3<<3 | 4<<6 | 1<<9), board.E2, board.E4},
		{uint16(3 | 4<<3 | 3<<6 | 6<<9), board.D7, board.D5},
	}
	for _, tc := range tests {
		m := decodePolyglotMove(tc.data)
		if m.From() != tc.from || m.To() != tc.to {
			t.Errorf("decode(%04x) = %s, want %s%s", tc.data, m, tc.from, tc.to)
		}
	}

	// King-captures-rook castling converts to the king destination.
	e1h1 := uint16(7 | 0<<3 | 4<<6 | 0<<9)
	if m := decodePolyglotMove(e1h1); m.From() != board.E1 || m.To() != board.G1 {
		t.Errorf("castling decode = %s, want e1g1", m)
	}
}
