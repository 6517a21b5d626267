package board

// GenerateLegalMoves generates all legal moves for the side to move.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := &MoveList{}
	p.generateAllMoves(ml)
	return p.filterLegalMoves(ml)
}

// GeneratePseudoLegalMoves generates all pseudo-legal moves; a move may
// still leave the own king in check.
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := &MoveList{}
	p.generateAllMoves(ml)
	return ml
}

// GenerateCaptures generates pseudo-legal captures only: moves whose
// destination is enemy-occupied, plus en passant. Used by quiescence
// and ProbCut.
func (p *Position) GenerateCaptures() *MoveList {
	ml := &MoveList{}
	p.generateCaptureMoves(ml)
	return ml
}

func (p *Position) generateAllMoves(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	occupied := p.AllOccupied
	// The enemy king is never a capture target.
	targets := p.Occupied[them] &^ p.Pieces[them][King]

	p.generatePawnMoves(ml, us, targets, occupied, false)

	p.generatePieceMoves(ml, us, targets, ^occupied, occupied)

	ksq := p.KingSquare[us]
	kingCaps := KingAttacks(ksq) & targets
	for kingCaps != 0 {
		ml.Add(NewCapture(ksq, kingCaps.PopLSB()))
	}
	kingQuiets := KingAttacks(ksq) &^ occupied
	for kingQuiets != 0 {
		ml.Add(NewMove(ksq, kingQuiets.PopLSB()))
	}

	p.generateCastlingMoves(ml, us)
}

func (p *Position) generateCaptureMoves(ml *MoveList) {
	us := p.SideToMove
	them := us.Other()
	occupied := p.AllOccupied
	targets := p.Occupied[them] &^ p.Pieces[them][King]

	p.generatePawnMoves(ml, us, targets, occupied, true)

	p.generatePieceMoves(ml, us, targets, 0, occupied)

	ksq := p.KingSquare[us]
	kingCaps := KingAttacks(ksq) & targets
	for kingCaps != 0 {
		ml.Add(NewCapture(ksq, kingCaps.PopLSB()))
	}
}

// generatePieceMoves emits knight, bishop, rook and queen moves against
// the given capture targets and quiet squares (quiets may be empty for
// captures-only generation).
func (p *Position) generatePieceMoves(ml *MoveList, us Color, targets, quiets, occupied Bitboard) {
	for pt := Knight; pt <= Queen; pt++ {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			var attacks Bitboard
			switch pt {
			case Knight:
				attacks = KnightAttacks(from)
			case Bishop:
				attacks = BishopAttacks(from, occupied)
			case Rook:
				attacks = RookAttacks(from, occupied)
			case Queen:
				attacks = QueenAttacks(from, occupied)
			}
			caps := attacks & targets
			for caps != 0 {
				ml.Add(NewCapture(from, caps.PopLSB()))
			}
			qs := attacks & quiets
			for qs != 0 {
				ml.Add(NewMove(from, qs.PopLSB()))
			}
		}
	}
}

func (p *Position) generatePawnMoves(ml *MoveList, us Color, enemies, occupied Bitboard, capturesOnly bool) {
	pawns := p.Pieces[us][Pawn]
	empty := ^occupied

	var push1, push2, attackL, attackR Bitboard
	var promotionRank Bitboard
	var pushDir int

	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	// Captures, left then right, with promotions on the back rank.
	for _, side := range [2]struct {
		bb   Bitboard
		back int // from = to - pushDir + back
	}{{attackL, 1}, {attackR, -1}} {
		nonPromo := side.bb &^ promotionRank
		for nonPromo != 0 {
			to := nonPromo.PopLSB()
			from := Square(int(to) - pushDir + side.back)
			ml.Add(NewCapture(from, to))
		}
		promo := side.bb & promotionRank
		for promo != 0 {
			to := promo.PopLSB()
			from := Square(int(to) - pushDir + side.back)
			addPromotions(ml, from, to, true)
		}
	}

	// En passant.
	if p.EnPassant != NoSquare {
		epBB := SquareBB(p.EnPassant)
		var epAttackers Bitboard
		if us == White {
			epAttackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
		} else {
			epAttackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
		}
		for epAttackers != 0 {
			ml.Add(NewEnPassant(epAttackers.PopLSB(), p.EnPassant))
		}
	}

	if capturesOnly {
		return
	}

	nonPromo := push1 &^ promotionRank
	for nonPromo != 0 {
		to := nonPromo.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir), to))
	}
	for push2 != 0 {
		to := push2.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to))
	}
	promoPush := push1 & promotionRank
	for promoPush != 0 {
		to := promoPush.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir), to, false)
	}
}

func addPromotions(ml *MoveList, from, to Square, capture bool) {
	ml.Add(NewPromotion(from, to, Queen, capture))
	ml.Add(NewPromotion(from, to, Rook, capture))
	ml.Add(NewPromotion(from, to, Bishop, capture))
	ml.Add(NewPromotion(from, to, Knight, capture))
}

// generateCastlingMoves emits castling for both sides of the board.
// The king's destination is always the g-file (kingside) or c-file
// (queenside), in standard chess and Chess960 alike.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	if p.Checkers != 0 {
		return
	}
	ksq := p.KingSquare[us]
	for side := KingSide; side <= QueenSide; side++ {
		rsq := p.CastleRooks[us][side]
		if rsq == NoSquare {
			continue
		}
		if p.castlePathClear(us, side, ksq, rsq) {
			kdest := NewSquare(6, ksq.Rank())
			if side == QueenSide {
				kdest = NewSquare(2, ksq.Rank())
			}
			ml.Add(NewCastle(ksq, kdest))
		}
	}
}

// castlePathClear validates the generalized castling conditions: the
// king's path (inclusive of destination) is unattacked and empty except
// for the castling rook itself, and the rook's path is empty except for
// the king's origin. Removing both movers from the occupancy expresses
// the two exceptions directly, which is what makes close-quarters
// Chess960 starts work.
func (p *Position) castlePathClear(us Color, side CastleSide, ksq, rsq Square) bool {
	them := us.Other()
	rank := ksq.Rank()
	kdest, rdest := NewSquare(6, rank), NewSquare(5, rank)
	if side == QueenSide {
		kdest, rdest = NewSquare(2, rank), NewSquare(3, rank)
	}

	occ := p.AllOccupied &^ (SquareBB(ksq) | SquareBB(rsq))

	ks, kd := int(ksq), int(kdest)
	step := 1
	if kd < ks {
		step = -1
	}
	for s := ks; ; s += step {
		sq := Square(s)
		if sq != ksq && occ.IsSet(sq) {
			return false
		}
		if p.IsSquareAttacked(sq, them) {
			return false
		}
		if s == kd {
			break
		}
	}

	rs, rd := int(rsq), int(rdest)
	if rs != rd {
		rstep := 1
		if rd < rs {
			rstep = -1
		}
		for s := rs + rstep; ; s += rstep {
			if occ.IsSet(Square(s)) {
				return false
			}
			if s == rd {
				break
			}
		}
	}
	return true
}

// filterLegalMoves drops pseudo-legal moves that leave the own king in
// check. Non-pinned, non-king, non-en-passant moves are legal without
// further work when not in check.
func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	result := &MoveList{}
	pinned := p.ComputePinned(p.SideToMove)
	ksq := p.KingSquare[p.SideToMove]
	inCheck := p.Checkers != 0

	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if !inCheck && m.From() != ksq && !m.IsEnPassant() &&
			pinned&SquareBB(m.From()) == 0 {
			result.Add(m)
			continue
		}
		if p.IsLegalFast(m, pinned) {
			result.Add(m)
		}
	}
	return result
}

// IsLegalFast reports whether a pseudo-legal move is legal, given the
// precomputed pinned set. Avoids make/unmake for everything except the
// en passant edge cases.
func (p *Position) IsLegalFast(m Move, pinned Bitboard) bool {
	from := m.From()
	to := m.To()
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	checkers := p.Checkers

	if from == ksq {
		if m.IsCastle() {
			// Attack checks ran during generation, which refuses to
			// castle out of check.
			return checkers == 0
		}
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(to, them, occ) == 0
	}

	if checkers != 0 {
		if checkers.PopCount() > 1 {
			return false // double check, only the king may move
		}
		checker := checkers.LSB()
		validTargets := SquareBB(checker) | Between(checker, ksq)

		if m.IsEnPassant() {
			capturedSq := epVictimSquare(us, to)
			if capturedSq == checker {
				return p.isLegalEnPassant(m)
			}
			return validTargets&SquareBB(to) != 0 && p.isLegalEnPassant(m)
		}
		if validTargets&SquareBB(to) == 0 {
			return false
		}
		return pinned&SquareBB(from) == 0 || Aligned(from, to, ksq)
	}

	if m.IsEnPassant() {
		// Removing two pawns from one rank can expose a horizontal pin
		// invisible to the single-piece pin logic.
		return p.isLegalEnPassant(m)
	}
	if pinned&SquareBB(from) == 0 {
		return true
	}
	return Aligned(from, to, ksq)
}

func epVictimSquare(us Color, to Square) Square {
	if us == White {
		return to - 8
	}
	return to + 8
}

func (p *Position) isLegalEnPassant(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	undo := p.MakeMove(m)
	attacked := p.IsSquareAttacked(ksq, them)
	p.UnmakeMove(m, undo)
	return undo.Valid && !attacked
}

// IsLegal reports move legality via make/unmake. Reference path, used
// by tests to cross-check IsLegalFast.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	if m.From() == ksq && !m.IsCastle() {
		occ := p.AllOccupied &^ SquareBB(m.From())
		return p.AttackersByColor(m.To(), them, occ) == 0
	}
	undo := p.MakeMove(m)
	legal := undo.Valid && !p.IsSquareAttacked(p.KingSquare[us], them)
	p.UnmakeMove(m, undo)
	return legal
}

// MakeMove applies a move in place and returns the state needed to
// reverse it. If the mover leaves its own king attacked the move is
// still applied but undo.Valid is false; the caller unmakes and skips.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		CapturedPiece: NoPiece,
		Castling:      p.PackCastling(),
		EnPassant:     p.EnPassant,
		HalfMoveClock: p.HalfMoveClock,
		Hash:          p.Hash,
		PawnKey:       p.PawnKey,
		Checkers:      p.Checkers,
		Valid:         true,
	}

	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	pt := p.Board[from].Type()

	p.Hash ^= zobristSideToMove
	p.Hash ^= zobristCastling[p.castlingMask()]
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}

	switch {
	case m.IsCastle():
		side := KingSide
		if to.File() == 2 {
			side = QueenSide
		}
		rookFrom := p.CastleRooks[us][side]
		rookTo := NewSquare(5, from.Rank())
		if side == QueenSide {
			rookTo = NewSquare(3, from.Rank())
		}
		// Lift both movers first: in Chess960 the king and rook may
		// stand on each other's destinations.
		p.removePiece(from)
		p.removePiece(rookFrom)
		p.setPiece(NewPiece(King, us), to)
		p.setPiece(NewPiece(Rook, us), rookTo)

	case m.IsEnPassant():
		undo.CapturedPiece = p.removePiece(epVictimSquare(us, to))
		p.movePiece(from, to)

	default:
		if m.IsCapture() {
			undo.CapturedPiece = p.removePiece(to)
		}
		p.movePiece(from, to)
		if m.IsPromotion() {
			p.removePiece(to)
			p.setPiece(NewPiece(m.Promotion(), us), to)
		}
	}

	if pt == King {
		p.CastleRooks[us][KingSide] = NoSquare
		p.CastleRooks[us][QueenSide] = NoSquare
	}
	p.clearRookSlot(from)
	p.clearRookSlot(to)
	p.Hash ^= zobristCastling[p.castlingMask()]

	if pt == Pawn {
		diff := int(to) - int(from)
		if diff == 16 || diff == -16 {
			ep := Square((int(from) + int(to)) / 2)
			p.EnPassant = ep
			p.Hash ^= zobristEnPassant[ep.File()]
		}
	}

	if pt == Pawn || undo.CapturedPiece != NoPiece {
		p.HalfMoveClock = 0
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}

	p.SideToMove = them
	p.pushHash()
	p.UpdateCheckers()

	if p.IsSquareAttacked(p.KingSquare[us], them) {
		undo.Valid = false
	}
	return undo
}

// UnmakeMove reverses MakeMove bit for bit.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	p.popHash()
	us := p.SideToMove.Other()
	from, to := m.From(), m.To()

	switch {
	case m.IsCastle():
		side := KingSide
		if to.File() == 2 {
			side = QueenSide
		}
		rookTo := NewSquare(5, from.Rank())
		if side == QueenSide {
			rookTo = NewSquare(3, from.Rank())
		}
		p.unpackCastling(undo.Castling)
		rookFrom := p.CastleRooks[us][side]
		p.removePiece(to)
		p.removePiece(rookTo)
		p.setPiece(NewPiece(King, us), from)
		p.setPiece(NewPiece(Rook, us), rookFrom)

	case m.IsEnPassant():
		p.movePiece(to, from)
		p.setPiece(undo.CapturedPiece, epVictimSquare(us, to))

	default:
		if m.IsPromotion() {
			p.removePiece(to)
			p.setPiece(NewPiece(Pawn, us), from)
		} else {
			p.movePiece(to, from)
		}
		if undo.CapturedPiece != NoPiece {
			p.setPiece(undo.CapturedPiece, to)
		}
	}

	p.unpackCastling(undo.Castling)
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.PawnKey = undo.PawnKey
	p.Checkers = undo.Checkers
	p.SideToMove = us
	if us == Black {
		p.FullMoveNumber--
	}
}

// HasLegalMoves reports whether the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	ml := p.GeneratePseudoLegalMoves()
	pinned := p.ComputePinned(p.SideToMove)
	ksq := p.KingSquare[p.SideToMove]
	inCheck := p.Checkers != 0
	for i := 0; i < ml.Len(); i++ {
		m := ml.Get(i)
		if !inCheck && m.From() != ksq && !m.IsEnPassant() &&
			pinned&SquareBB(m.From()) == 0 {
			return true
		}
		if p.IsLegalFast(m, pinned) {
			return true
		}
	}
	return false
}

// IsCheckmate reports whether the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.IsCheck() && !p.HasLegalMoves()
}

// IsStalemate reports whether the side to move is stalemated.
func (p *Position) IsStalemate() bool {
	return !p.IsCheck() && !p.HasLegalMoves()
}

// IsDraw reports stalemate, the 50-move rule, insufficient material
// and threefold repetition.
func (p *Position) IsDraw() bool {
	if p.HalfMoveClock >= 100 || p.IsInsufficientMaterial() {
		return true
	}
	if p.IsRepetition(2) {
		return true
	}
	return p.IsStalemate()
}

// MoveGivesCheck reports whether the move delivers a direct check to
// the enemy king. Discovered checks are not detected; callers needing
// exactness test after making the move.
func (p *Position) MoveGivesCheck(m Move) bool {
	us := p.SideToMove
	ksq := p.KingSquare[us.Other()]
	if ksq == NoSquare {
		return false
	}
	pc := p.Board[m.From()]
	if pc == NoPiece {
		return false
	}
	pt := pc.Type()
	if m.IsPromotion() {
		pt = m.Promotion()
	}
	to := m.To()
	occ := p.AllOccupied&^SquareBB(m.From()) | SquareBB(to)
	switch pt {
	case Pawn:
		return PawnAttacks(to, us).IsSet(ksq)
	case Knight:
		return KnightAttacks(to).IsSet(ksq)
	case Bishop:
		return BishopAttacks(to, occ).IsSet(ksq)
	case Rook:
		return RookAttacks(to, occ).IsSet(ksq)
	case Queen:
		return QueenAttacks(to, occ).IsSet(ksq)
	}
	return false
}
