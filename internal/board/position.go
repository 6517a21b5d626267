package board

import "strings"

// CastleSide indexes the two castling directions.
type CastleSide int

const (
	KingSide  CastleSide = 0
	QueenSide CastleSide = 1
)

// Position represents a chess position. Castling rights are stored as
// rook origin squares, one slot per (color, side), which covers both
// standard chess and Chess960 starts. The hash history backs repetition
// detection and grows by one entry per made move.
type Position struct {
	Pieces      [2][6]Bitboard // [Color][PieceType]
	Occupied    [2]Bitboard    // all pieces of each color
	AllOccupied Bitboard
	Board       [64]Piece // mailbox mirror of the bitboards

	SideToMove     Color
	CastleRooks    [2][2]Square // [Color][CastleSide], NoSquare when extinguished
	Chess960       bool
	EnPassant      Square // target square, NoSquare if none
	HalfMoveClock  int
	FullMoveNumber int

	Hash    uint64
	PawnKey uint64

	KingSquare [2]Square
	Checkers   Bitboard // pieces giving check to the side to move

	history []uint64
}

// NewPosition creates an empty position.
func NewPosition() *Position {
	p := &Position{EnPassant: NoSquare, FullMoveNumber: 1}
	for i := range p.Board {
		p.Board[i] = NoPiece
	}
	p.CastleRooks[White][KingSide] = NoSquare
	p.CastleRooks[White][QueenSide] = NoSquare
	p.CastleRooks[Black][KingSide] = NoSquare
	p.CastleRooks[Black][QueenSide] = NoSquare
	p.KingSquare[White] = NoSquare
	p.KingSquare[Black] = NoSquare
	return p
}

// Copy returns an independent clone of the position.
func (p *Position) Copy() *Position {
	c := *p
	c.history = make([]uint64, len(p.history), len(p.history)+64)
	copy(c.history, p.history)
	return &c
}

// PieceAt returns the piece on a square, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece {
	return p.Board[sq]
}

// IsEmpty reports whether the square holds no piece.
func (p *Position) IsEmpty(sq Square) bool {
	return p.Board[sq] == NoPiece
}

func (p *Position) setPiece(pc Piece, sq Square) {
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	p.Board[sq] = pc
	p.Hash ^= zobristPiece[c][pt][sq]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[c][Pawn][sq]
	} else if pt == King {
		p.KingSquare[c] = sq
	}
}

func (p *Position) removePiece(sq Square) Piece {
	pc := p.Board[sq]
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	p.Board[sq] = NoPiece
	p.Hash ^= zobristPiece[c][pt][sq]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[c][Pawn][sq]
	}
	return pc
}

func (p *Position) movePiece(from, to Square) {
	pc := p.Board[from]
	c, pt := pc.Color(), pc.Type()
	fromTo := SquareBB(from) | SquareBB(to)
	p.Pieces[c][pt] ^= fromTo
	p.Occupied[c] ^= fromTo
	p.AllOccupied ^= fromTo
	p.Board[from] = NoPiece
	p.Board[to] = pc
	p.Hash ^= zobristPiece[c][pt][from] ^ zobristPiece[c][pt][to]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[c][Pawn][from] ^ zobristPiece[c][Pawn][to]
	} else if pt == King {
		p.KingSquare[c] = to
	}
}

// castlingMask folds the four rook slots into a 4-bit rights mask for
// zobrist hashing.
func (p *Position) castlingMask() uint8 {
	var m uint8
	if p.CastleRooks[White][KingSide] != NoSquare {
		m |= 1
	}
	if p.CastleRooks[White][QueenSide] != NoSquare {
		m |= 2
	}
	if p.CastleRooks[Black][KingSide] != NoSquare {
		m |= 4
	}
	if p.CastleRooks[Black][QueenSide] != NoSquare {
		m |= 8
	}
	return m
}

// PackCastling packs the four rook slots into 32 bits, 7 bits per slot
// holding square+1 so that zero means no right. Saved by MakeMove and
// restored in O(1) by UnmakeMove.
func (p *Position) PackCastling() uint32 {
	pack := func(sq Square) uint32 {
		if sq == NoSquare {
			return 0
		}
		return uint32(sq) + 1
	}
	return pack(p.CastleRooks[White][KingSide]) |
		pack(p.CastleRooks[White][QueenSide])<<7 |
		pack(p.CastleRooks[Black][KingSide])<<14 |
		pack(p.CastleRooks[Black][QueenSide])<<21
}

func (p *Position) unpackCastling(v uint32) {
	unpack := func(bits uint32) Square {
		if bits == 0 {
			return NoSquare
		}
		return Square(bits - 1)
	}
	p.CastleRooks[White][KingSide] = unpack(v & 0x7F)
	p.CastleRooks[White][QueenSide] = unpack((v >> 7) & 0x7F)
	p.CastleRooks[Black][KingSide] = unpack((v >> 14) & 0x7F)
	p.CastleRooks[Black][QueenSide] = unpack((v >> 21) & 0x7F)
}

// clearRookSlot extinguishes any castling right referring to sq.
func (p *Position) clearRookSlot(sq Square) {
	for c := White; c <= Black; c++ {
		for side := KingSide; side <= QueenSide; side++ {
			if p.CastleRooks[c][side] == sq {
				p.CastleRooks[c][side] = NoSquare
			}
		}
	}
}

// IsCheck reports whether the side to move is in check.
func (p *Position) IsCheck() bool {
	return p.Checkers != 0
}

// MoverInCheck reports whether the side that just moved left its own
// king attacked. Used after a speculative make to reject illegal moves.
func (p *Position) MoverInCheck() bool {
	mover := p.SideToMove.Other()
	return p.IsSquareAttacked(p.KingSquare[mover], p.SideToMove)
}

// IsRepetition reports whether the current position occurred at least
// n times earlier in the game history. Only same-side entries can
// match, so the scan steps by two, bounded by the halfmove clock past
// which an irreversible move makes repetition impossible.
func (p *Position) IsRepetition(n int) bool {
	count := 0
	limit := len(p.history) - 1 - p.HalfMoveClock
	if limit < 0 {
		limit = 0
	}
	for i := len(p.history) - 3; i >= limit; i -= 2 {
		if p.history[i] == p.Hash {
			count++
			if count >= n {
				return true
			}
		}
	}
	return false
}

// HistoryLen returns the number of recorded position hashes.
func (p *Position) HistoryLen() int {
	return len(p.history)
}

func (p *Position) pushHash() {
	p.history = append(p.history, p.Hash)
}

func (p *Position) popHash() {
	p.history = p.history[:len(p.history)-1]
}

// resetHistory seeds the history with the current hash.
func (p *Position) resetHistory() {
	p.history = p.history[:0]
	p.history = append(p.history, p.Hash)
}

var phaseValue = [6]int{0, 1, 1, 2, 4, 0}

// GamePhase returns a 0..24 blend factor for tapered evaluation, 24 at
// full material and 0 in a pawn ending.
func (p *Position) GamePhase() int {
	phase := 0
	for c := White; c <= Black; c++ {
		for pt := Knight; pt <= Queen; pt++ {
			phase += phaseValue[pt] * p.Pieces[c][pt].PopCount()
		}
	}
	if phase > 24 {
		phase = 24
	}
	return phase
}

// HasNonPawnMaterial reports whether the side to move has at least one
// piece besides pawns and the king. Gates null-move pruning.
func (p *Position) HasNonPawnMaterial() bool {
	us := p.SideToMove
	return p.Occupied[us]&^(p.Pieces[us][Pawn]|p.Pieces[us][King]) != 0
}

// NullMoveUndo stores the state restored by UnmakeNullMove.
type NullMoveUndo struct {
	EnPassant Square
	Hash      uint64
	Checkers  Bitboard
}

// MakeNullMove passes the turn without moving a piece. Used by
// null-move pruning.
func (p *Position) MakeNullMove() NullMoveUndo {
	undo := NullMoveUndo{
		EnPassant: p.EnPassant,
		Hash:      p.Hash,
		Checkers:  p.Checkers,
	}
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove
	p.pushHash()
	p.UpdateCheckers()
	return undo
}

// UnmakeNullMove undoes a null move.
func (p *Position) UnmakeNullMove(undo NullMoveUndo) {
	p.popHash()
	p.SideToMove = p.SideToMove.Other()
	p.EnPassant = undo.EnPassant
	p.Hash = undo.Hash
	p.Checkers = undo.Checkers
}

// ComputePinned returns the pieces of color c absolutely pinned to
// their own king. X-ray detection: a sniper slider with exactly one own
// blocker between it and the king pins that blocker.
func (p *Position) ComputePinned(c Color) Bitboard {
	them := c.Other()
	ksq := p.KingSquare[c]
	pinned := Bitboard(0)

	snipers := (RookAttacks(ksq, 0) & (p.Pieces[them][Rook] | p.Pieces[them][Queen])) |
		(BishopAttacks(ksq, 0) & (p.Pieces[them][Bishop] | p.Pieces[them][Queen]))
	for snipers != 0 {
		sq := snipers.PopLSB()
		blockers := Between(sq, ksq) & p.AllOccupied
		if blockers.PopCount() == 1 && blockers&p.Occupied[c] != 0 {
			pinned |= blockers
		}
	}
	return pinned
}

// IsInsufficientMaterial reports the dead draws K vs K, KN vs K and
// KB vs K.
func (p *Position) IsInsufficientMaterial() bool {
	if p.Pieces[White][Pawn]|p.Pieces[Black][Pawn] != 0 {
		return false
	}
	if p.Pieces[White][Rook]|p.Pieces[Black][Rook]|
		p.Pieces[White][Queen]|p.Pieces[Black][Queen] != 0 {
		return false
	}
	minors := p.Pieces[White][Knight] | p.Pieces[White][Bishop] |
		p.Pieces[Black][Knight] | p.Pieces[Black][Bishop]
	return minors.PopCount() <= 1
}

// String renders the board for the UCI `d` command.
func (p *Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		sb.WriteString("  ")
		for file := 0; file < 8; file++ {
			pc := p.Board[NewSquare(file, rank)]
			if pc == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(pc.String() + " ")
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\n   a b c d e f g h\n")
	return sb.String()
}

// CastlingDiagnostics describes the rook slots for the `d` command.
func (p *Position) CastlingDiagnostics() string {
	var sb strings.Builder
	colors := [2]string{"white", "black"}
	sides := [2]string{"kingside", "queenside"}
	for c := White; c <= Black; c++ {
		for s := KingSide; s <= QueenSide; s++ {
			sb.WriteString(colors[c] + " " + sides[s] + ": ")
			if sq := p.CastleRooks[c][s]; sq == NoSquare {
				sb.WriteString("-\n")
			} else {
				sb.WriteString("rook " + sq.String() + "\n")
			}
		}
	}
	return sb.String()
}
