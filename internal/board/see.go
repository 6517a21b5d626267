package board

// seeValue weighs pieces for exchange evaluation. The king's weight is
// high enough that a "capture" by the king only wins when nothing can
// recapture.
var seeValue = [6]int{100, 320, 330, 500, 900, 20000}

// SEE computes the static exchange evaluation of a move: the signed
// material gain assuming both sides recapture optimally on the
// destination square. Returns 0 when the move has no victim.
func (p *Position) SEE(m Move) int {
	from, to := m.From(), m.To()
	attacker := p.Board[from]
	if attacker == NoPiece {
		return 0
	}

	var gain0 int
	if m.IsEnPassant() {
		gain0 = seeValue[Pawn]
	} else {
		victim := p.Board[to]
		if victim == NoPiece {
			return 0
		}
		gain0 = seeValue[victim.Type()]
	}
	if m.IsPromotion() {
		gain0 += seeValue[m.Promotion()] - seeValue[Pawn]
	}

	return p.seeSwap(to, from, attacker, gain0)
}

// seeSwap runs the swap algorithm: alternate the cheapest attackers on
// the target square, accumulating a gain stack, then minimax it from
// the bottom. Removing each attacker from the occupancy exposes x-ray
// attackers behind it.
func (p *Position) seeSwap(target, firstFrom Square, firstAttacker Piece, gain0 int) int {
	var gain [32]int
	d := 0
	gain[0] = gain0

	occupied := p.AllOccupied &^ SquareBB(firstFrom)
	attackerValue := seeValue[firstAttacker.Type()]
	side := firstAttacker.Color().Other()

	for d < len(gain)-1 {
		d++
		gain[d] = attackerValue - gain[d-1]
		if maxInt(-gain[d-1], gain[d]) < 0 {
			break
		}

		sq, pc := p.leastValuableAttacker(target, side, occupied)
		if sq == NoSquare {
			break
		}
		occupied &^= SquareBB(sq)
		attackerValue = seeValue[pc.Type()]
		side = side.Other()
	}

	for d--; d > 0; d-- {
		gain[d-1] = -maxInt(-gain[d-1], gain[d])
	}
	return gain[0]
}

// leastValuableAttacker finds the cheapest piece of side attacking
// target under the given occupancy.
func (p *Position) leastValuableAttacker(target Square, side Color, occupied Bitboard) (Square, Piece) {
	if a := p.Pieces[side][Pawn] & PawnAttacks(target, side.Other()) & occupied; a != 0 {
		return a.LSB(), NewPiece(Pawn, side)
	}
	if a := p.Pieces[side][Knight] & KnightAttacks(target) & occupied; a != 0 {
		return a.LSB(), NewPiece(Knight, side)
	}
	diag := BishopAttacks(target, occupied)
	if a := p.Pieces[side][Bishop] & diag & occupied; a != 0 {
		return a.LSB(), NewPiece(Bishop, side)
	}
	straight := RookAttacks(target, occupied)
	if a := p.Pieces[side][Rook] & straight & occupied; a != 0 {
		return a.LSB(), NewPiece(Rook, side)
	}
	if a := p.Pieces[side][Queen] & (diag | straight) & occupied; a != 0 {
		return a.LSB(), NewPiece(Queen, side)
	}
	if a := p.Pieces[side][King] & KingAttacks(target) & occupied; a != 0 {
		return a.LSB(), NewPiece(King, side)
	}
	return NoSquare, NoPiece
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
