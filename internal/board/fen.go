package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the FEN string for the starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN parses a FEN string into a Position. The castling field
// accepts both the standard KQkq form and the Chess960 Shredder form
// where letters name rook files directly.
func ParseFEN(fen string) (*Position, error) {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return nil, fmt.Errorf("invalid FEN %q: need at least 4 fields", fen)
	}

	pos := NewPosition()

	if err := parsePiecePlacement(pos, parts[0]); err != nil {
		return nil, err
	}

	switch parts[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return nil, fmt.Errorf("invalid side to move: %s", parts[1])
	}

	if err := parseCastling(pos, parts[2]); err != nil {
		return nil, err
	}

	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid en passant square: %s", parts[3])
		}
		pos.EnPassant = sq
	}

	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil {
			return nil, fmt.Errorf("invalid half-move clock: %s", parts[4])
		}
		pos.HalfMoveClock = hmc
	}
	if len(parts) > 5 {
		fmn, err := strconv.Atoi(parts[5])
		if err != nil {
			return nil, fmt.Errorf("invalid full-move number: %s", parts[5])
		}
		pos.FullMoveNumber = fmn
	}

	// setPiece accumulated the piece keys; fold in the remaining terms.
	if pos.SideToMove == Black {
		pos.Hash ^= zobristSideToMove
	}
	pos.Hash ^= zobristCastling[pos.castlingMask()]
	if pos.EnPassant != NoSquare {
		pos.Hash ^= zobristEnPassant[pos.EnPassant.File()]
	}

	pos.UpdateCheckers()
	pos.resetHistory()
	return pos, nil
}

func parsePiecePlacement(pos *Position, placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("invalid piece placement: need 8 ranks, got %d", len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0
		for _, c := range rankStr {
			if file > 7 {
				return fmt.Errorf("too many squares in rank %d", rank+1)
			}
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			piece := PieceFromChar(byte(c))
			if piece == NoPiece {
				return fmt.Errorf("invalid piece character: %c", c)
			}
			pos.setPiece(piece, NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fmt.Errorf("rank %d has %d squares", rank+1, file)
		}
	}
	return nil
}

// parseCastling fills the rook slots. K/k take the first rook to the
// king's right on the back rank, Q/q the first to its left; the
// Shredder letters A-H/a-h name the rook's file directly.
func parseCastling(pos *Position, castling string) error {
	if castling == "-" {
		return nil
	}

	setSlot := func(c Color, rsq Square) error {
		if pos.Board[rsq] != NewPiece(Rook, c) {
			return fmt.Errorf("castling right names %s but no %v rook is there", rsq, c)
		}
		side := KingSide
		if rsq < pos.KingSquare[c] {
			side = QueenSide
		}
		pos.CastleRooks[c][side] = rsq
		return nil
	}

	findRook := func(c Color, dir int) Square {
		ksq := pos.KingSquare[c]
		if ksq == NoSquare {
			return NoSquare
		}
		for f := ksq.File() + dir; f >= 0 && f <= 7; f += dir {
			sq := NewSquare(f, ksq.Rank())
			if pos.Board[sq] == NewPiece(Rook, c) {
				return sq
			}
		}
		return NoSquare
	}

	backRank := [2]int{0, 7}
	for _, ch := range castling {
		var c Color
		var rsq Square
		switch {
		case ch == 'K':
			c, rsq = White, findRook(White, 1)
		case ch == 'Q':
			c, rsq = White, findRook(White, -1)
		case ch == 'k':
			c, rsq = Black, findRook(Black, 1)
		case ch == 'q':
			c, rsq = Black, findRook(Black, -1)
		case ch >= 'A' && ch <= 'H':
			c, rsq = White, NewSquare(int(ch-'A'), backRank[White])
		case ch >= 'a' && ch <= 'h':
			c, rsq = Black, NewSquare(int(ch-'a'), backRank[Black])
		default:
			return fmt.Errorf("invalid castling character: %c", ch)
		}
		if rsq == NoSquare {
			return fmt.Errorf("castling right %c names no rook", ch)
		}
		if err := setSlot(c, rsq); err != nil {
			return err
		}
	}
	return nil
}

// ToFEN returns the FEN representation of the position. Chess960 mode
// prints Shredder-style castling letters.
func (p *Position) ToFEN() string {
	var sb strings.Builder

	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.Board[NewSquare(file, rank)]
			if piece == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	sb.WriteByte(' ')
	if p.SideToMove == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	sb.WriteString(p.castlingString())

	sb.WriteByte(' ')
	sb.WriteString(p.EnPassant.String())

	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.FullMoveNumber))

	return sb.String()
}

func (p *Position) castlingString() string {
	if p.castlingMask() == 0 {
		return "-"
	}
	var sb strings.Builder
	letters := [2][2]byte{{'K', 'Q'}, {'k', 'q'}}
	for c := White; c <= Black; c++ {
		for side := KingSide; side <= QueenSide; side++ {
			sq := p.CastleRooks[c][side]
			if sq == NoSquare {
				continue
			}
			if p.Chess960 {
				base := byte('A')
				if c == Black {
					base = 'a'
				}
				sb.WriteByte(base + byte(sq.File()))
			} else {
				sb.WriteByte(letters[c][side])
			}
		}
	}
	return sb.String()
}

// ComputeHash recomputes the zobrist hash from scratch. MakeMove keeps
// the hash incrementally; this is the reference for tests.
func (p *Position) ComputeHash() uint64 {
	var hash uint64
	for c := White; c <= Black; c++ {
		for pt := Pawn; pt <= King; pt++ {
			bb := p.Pieces[c][pt]
			for bb != 0 {
				hash ^= zobristPiece[c][pt][bb.PopLSB()]
			}
		}
	}
	if p.SideToMove == Black {
		hash ^= zobristSideToMove
	}
	hash ^= zobristCastling[p.castlingMask()]
	if p.EnPassant != NoSquare {
		hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	return hash
}

// ComputePawnKey recomputes the pawn-structure key from scratch.
func (p *Position) ComputePawnKey() uint64 {
	var key uint64
	for c := White; c <= Black; c++ {
		bb := p.Pieces[c][Pawn]
		for bb != 0 {
			key ^= zobristPiece[c][Pawn][bb.PopLSB()]
		}
	}
	return key
}
