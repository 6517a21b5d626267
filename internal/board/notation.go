package board

import "fmt"

// MoveToUCI formats a move for UCI output in the context of this
// position. Chess960 castling prints as king-to-rook-origin; everything
// else is plain from-to notation.
func (p *Position) MoveToUCI(m Move) string {
	if m.IsCastle() && p.Chess960 {
		side := KingSide
		if m.To().File() == 2 {
			side = QueenSide
		}
		rsq := p.CastleRooks[p.SideToMove][side]
		if rsq != NoSquare {
			return m.From().String() + rsq.String()
		}
	}
	return m.String()
}

// ParseUCIMove resolves UCI move text against the legal moves of this
// position. Castling is recognized in both forms: the king moving two
// squares (standard) and the king moving onto its rook (Chess960).
func (p *Position) ParseUCIMove(text string) (Move, error) {
	if len(text) < 4 || len(text) > 5 {
		return NoMove, fmt.Errorf("invalid move: %s", text)
	}
	from, err := ParseSquare(text[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("invalid move: %s", text)
	}
	to, err := ParseSquare(text[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("invalid move: %s", text)
	}
	promo := NoPieceType
	if len(text) == 5 {
		switch text[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion in move: %s", text)
		}
	}

	legal := p.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		lm := legal.Get(i)
		if lm.From() != from {
			continue
		}
		if lm.IsCastle() {
			side := KingSide
			if lm.To().File() == 2 {
				side = QueenSide
			}
			rsq := p.CastleRooks[p.SideToMove][side]
			if to == lm.To() || to == rsq {
				return lm, nil
			}
			continue
		}
		if lm.To() == to && lm.Promotion() == promo {
			return lm, nil
		}
	}
	return NoMove, fmt.Errorf("illegal move: %s", text)
}
