// Package book reads Polyglot opening books and samples moves from
// them with a configurable amount of variety.
package book

import (
	"encoding/binary"
	"io"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/ABDO10DZ/Hugine/internal/board"
)

// Entry is one book move with its popularity weight.
type Entry struct {
	Move   board.Move
	Weight uint16
}

// Book maps Polyglot position keys to weighted move sets.
type Book struct {
	entries map[uint64][]Entry

	// Variety enables weighted sampling: 0 always plays the top move,
	// higher values raise the exponent on the weights.
	Variety int
}

// New creates an empty book.
func New() *Book {
	return &Book{entries: make(map[uint64][]Entry)}
}

// LoadPolyglot loads a Polyglot .bin file.
func LoadPolyglot(filename string) (*Book, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadPolyglotReader(file)
}

// LoadPolyglotReader loads Polyglot records from a reader. Each record
// is 16 bytes big-endian: u64 key, u16 move, u16 weight, u32 learn
// (ignored).
func LoadPolyglotReader(r io.Reader) (*Book, error) {
	b := New()
	var record [16]byte
	for {
		_, err := io.ReadFull(r, record[:])
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			break // truncated trailing record
		}
		if err != nil {
			return nil, err
		}

		key := binary.BigEndian.Uint64(record[0:8])
		moveData := binary.BigEndian.Uint16(record[8:10])
		weight := binary.BigEndian.Uint16(record[10:12])

		move := decodePolyglotMove(moveData)
		if move != board.NoMove {
			b.entries[key] = append(b.entries[key], Entry{Move: move, Weight: weight})
		}
	}
	return b, nil
}

// decodePolyglotMove unpacks the Polyglot move word: bits 0-5 to
// square, 6-11 from square, 12-14 promotion (0 none, 1..4 N/B/R/Q).
// Polyglot encodes castling as king-captures-rook; convert to the
// standard king destination so legality matching works.
func decodePolyglotMove(data uint16) board.Move {
	toFile := data & 7
	toRank := (data >> 3) & 7
	fromFile := (data >> 6) & 7
	fromRank := (data >> 9) & 7
	promo := (data >> 12) & 7

	from := board.NewSquare(int(fromFile), int(fromRank))
	to := board.NewSquare(int(toFile), int(toRank))

	switch {
	case from == board.E1 && to == board.H1:
		to = board.G1
	case from == board.E1 && to == board.A1:
		to = board.C1
	case from == board.E8 && to == board.H8:
		to = board.G8
	case from == board.E8 && to == board.A8:
		to = board.C8
	}

	if promo > 0 && promo <= 4 {
		promoTypes := [5]board.PieceType{0, board.Knight, board.Bishop, board.Rook, board.Queen}
		return board.NewPromotion(from, to, promoTypes[promo], false)
	}
	return board.NewMove(from, to)
}

// Probe returns a book move for the position. With Variety 0 it plays
// the heaviest move; otherwise it samples with weights reshaped by
// the variety exponent.
func (b *Book) Probe(pos *board.Position) (board.Move, bool) {
	if b == nil {
		return board.NoMove, false
	}
	entries, ok := b.entries[pos.PolyglotHash()]
	if !ok || len(entries) == 0 {
		return board.NoMove, false
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})

	if b.Variety <= 0 {
		return verifyAndConvert(pos, sorted[0].Move), true
	}

	// Weights are raised to 1 + V/10 before sampling; zero-weight
	// entries drop out of the draw.
	exponent := 1.0 + float64(b.Variety)/10
	weights := make([]float64, len(sorted))
	total := 0.0
	for i, e := range sorted {
		w := math.Pow(float64(e.Weight), exponent)
		weights[i] = w
		total += w
	}

	r := rand.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return verifyAndConvert(pos, sorted[i].Move), true
		}
	}
	return verifyAndConvert(pos, sorted[0].Move), true
}

// ProbeAll returns every book move for the position, heaviest first.
func (b *Book) ProbeAll(pos *board.Position) []Entry {
	if b == nil {
		return nil
	}
	entries, ok := b.entries[pos.PolyglotHash()]
	if !ok {
		return nil
	}
	result := make([]Entry, len(entries))
	copy(result, entries)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Weight > result[j].Weight
	})
	return result
}

// verifyAndConvert matches the decoded move against the position's
// legal moves so it carries the right flags (castling, en passant),
// and rejects moves that are not legal here.
func verifyAndConvert(pos *board.Position, move board.Move) board.Move {
	legalMoves := pos.GenerateLegalMoves()
	for i := 0; i < legalMoves.Len(); i++ {
		lm := legalMoves.Get(i)
		if lm.From() != move.From() || lm.To() != move.To() {
			continue
		}
		if move.IsPromotion() != lm.IsPromotion() {
			continue
		}
		if move.IsPromotion() && move.Promotion() != lm.Promotion() {
			continue
		}
		return lm
	}
	return board.NoMove
}

// Size returns the number of distinct positions in the book.
func (b *Book) Size() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}
