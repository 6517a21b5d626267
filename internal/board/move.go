package board

// Move packs a chess move into 32 bits:
// bits 0-5 from square, bits 6-11 to square, bits 12-15 flag.
// The flag carries capture-ness so IsCapture needs no board context.
type Move uint32

// Move flags.
const (
	FlagQuiet     uint32 = 0
	FlagCapture   uint32 = 1
	FlagEnPassant uint32 = 2
	FlagCastle    uint32 = 3
	// Promotion flags: 4-7 quiet promotions N/B/R/Q, 8-11 capturing promotions.
	FlagPromoKnight uint32 = 4
	FlagPromoQueen  uint32 = 7
)

const (
	// NoMove is the absent-move sentinel. It decodes as a quiet a1-a1,
	// which no legal move can be.
	NoMove Move = 0

	// NullMove is the null-move-pruning sentinel, distinct from every
	// encodable move.
	NullMove Move = 0xFFFFFFFF
)

// NewMove creates a quiet move.
func NewMove(from, to Square) Move {
	return Move(uint32(from) | uint32(to)<<6)
}

// NewCapture creates a capturing move.
func NewCapture(from, to Square) Move {
	return Move(uint32(from) | uint32(to)<<6 | FlagCapture<<12)
}

// NewPromotion creates a promotion move. capture marks a capturing promotion.
func NewPromotion(from, to Square, promo PieceType, capture bool) Move {
	flag := FlagPromoKnight + uint32(promo-Knight)
	if capture {
		flag += 4
	}
	return Move(uint32(from) | uint32(to)<<6 | flag<<12)
}

// NewEnPassant creates an en passant capture.
func NewEnPassant(from, to Square) Move {
	return Move(uint32(from) | uint32(to)<<6 | FlagEnPassant<<12)
}

// NewCastle creates a castling move. to is the king's destination
// (g-file or c-file on the back rank), for standard and Chess960 alike.
func NewCastle(from, to Square) Move {
	return Move(uint32(from) | uint32(to)<<6 | FlagCastle<<12)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Flag returns the 4-bit move flag.
func (m Move) Flag() uint32 {
	return uint32(m>>12) & 0xF
}

// IsCapture reports whether the move removes an enemy piece.
func (m Move) IsCapture() bool {
	f := m.Flag()
	return f == FlagCapture || f == FlagEnPassant || f >= 8
}

// IsPromotion reports whether the move promotes a pawn.
func (m Move) IsPromotion() bool {
	return m.Flag() >= FlagPromoKnight
}

// Promotion returns the promotion piece type, or NoPieceType for
// non-promotions.
func (m Move) Promotion() PieceType {
	if !m.IsPromotion() {
		return NoPieceType
	}
	return Knight + PieceType((m.Flag()-FlagPromoKnight)&3)
}

// IsEnPassant reports whether the move is an en passant capture.
func (m Move) IsEnPassant() bool {
	return m.Flag() == FlagEnPassant
}

// IsCastle reports whether the move is castling.
func (m Move) IsCastle() bool {
	return m.Flag() == FlagCastle
}

// IsQuiet reports whether the move is neither a capture nor a promotion.
func (m Move) IsQuiet() bool {
	f := m.Flag()
	return f == FlagQuiet || f == FlagCastle
}

// String returns the UCI notation with king-to-destination castling.
// Chess960 output goes through Position.MoveToUCI instead.
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	if m == NullMove {
		return "null"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(m.Promotion().Char())
	}
	return s
}

// MoveList is a fixed-capacity move buffer. 256 bounds the pseudo-legal
// move count of any reachable position.
type MoveList struct {
	moves [256]Move
	count int
}

// Add appends a move to the list.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves in the list.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set overwrites the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap exchanges the moves at indices i and j.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear resets the list to empty.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Contains reports whether the list holds m.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the populated portion of the buffer.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo carries the irreversible state saved by MakeMove so that
// UnmakeMove can restore the previous position bit for bit.
type UndoInfo struct {
	CapturedPiece Piece
	Castling      uint32 // packed rook slots, see Position.PackCastling
	EnPassant     Square
	HalfMoveClock int
	Hash          uint64
	PawnKey       uint64
	Checkers      Bitboard
	Valid         bool // false when the mover left its king in check
}
