// Package engine implements the search and evaluation core.
package engine

import (
	"github.com/ABDO10DZ/Hugine/internal/board"
)

// Evaluator scores a position in centipawns from the side to move's
// perspective. Implementations must be deterministic for a given
// position and safe for concurrent callers on distinct positions.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// EvalAdjuster supplies an additive centipawn correction keyed by the
// position hash. The persistent learning table implements this.
type EvalAdjuster interface {
	Adjust(hash uint64) int
}

// Evaluation constants
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

// Piece values array for quick lookup
var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// Tapered material values
var materialMg = [6]int{82, 337, 365, 477, 1025, 0}
var materialEg = [6]int{94, 281, 297, 512, 936, 0}

// Piece-square tables from white's perspective, a1 = index 0. Black
// mirrors by rank.
var psqtMg = [6][64]int{
	{ // pawn
		0, 0, 0, 0, 0, 0, 0, 0,
		-35, -1, -20, -23, -15, 24, 38, -22,
		-26, -4, -4, -10, 3, 3, 33, -12,
		-27, -2, -5, 12, 17, 6, 10, -25,
		-14, 13, 6, 21, 23, 12, 17, -23,
		-6, 7, 26, 31, 65, 56, 25, -20,
		98, 134, 61, 95, 68, 126, 34, -11,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	{ // knight
		-105, -21, -58, -33, -17, -28, -19, -23,
		-29, -53, -12, -3, -1, 18, -14, -19,
		-23, -9, 12, 10, 19, 17, 25, -16,
		-13, 4, 16, 13, 28, 19, 21, -8,
		-9, 17, 19, 53, 37, 69, 18, 22,
		-47, 60, 37, 65, 84, 129, 73, 44,
		-73, -41, 72, 36, 23, 62, 7, -17,
		-167, -89, -34, -49, 61, -97, -15, -107,
	},
	{ // bishop
		-33, -3, -14, -21, -13, -12, -39, -21,
		4, 15, 16, 0, 7, 21, 33, 1,
		0, 15, 15, 15, 14, 27, 18, 10,
		-6, 13, 13, 26, 34, 12, 10, 4,
		-4, 5, 19, 50, 37, 37, 7, -2,
		-16, 37, 43, 40, 35, 50, 37, -2,
		-26, 16, -18, -13, 30, 59, 18, -47,
		-29, 4, -82, -37, -25, -42, 7, -8,
	},
	{ // rook
		-19, -13, 1, 17, 16, 7, -37, -26,
		-44, -16, -20, -9, -1, 11, -6, -71,
		-45, -25, -16, -17, 3, 0, -5, -33,
		-36, -26, -12, -1, 9, -7, 6, -23,
		-24, -11, 7, 26, 24, 35, -8, -20,
		-5, 19, 26, 36, 17, 45, 61, 16,
		27, 32, 58, 62, 80, 67, 26, 44,
		32, 42, 32, 51, 63, 9, 31, 43,
	},
	{ // queen
		-1, -18, -9, 10, -15, -25, -31, -50,
		-35, -8, 11, 2, 8, 15, -3, 1,
		-14, 2, -11, -2, -5, 2, 14, 5,
		-9, -26, -9, -10, -2, -4, 3, -3,
		-27, -27, -16, -16, -1, 17, -2, 1,
		-13, -17, 7, 8, 29, 56, 47, 57,
		-24, -39, -5, 1, -16, 57, 28, 54,
		-28, 0, 29, 12, 59, 44, 43, 45,
	},
	{ // king
		-15, 36, 12, -54, 8, -28, 24, 14,
		1, 7, -8, -64, -43, -16, 9, 8,
		-14, -14, -22, -46, -44, -30, -15, -27,
		-49, -1, -27, -39, -46, -44, -33, -51,
		-17, -20, -12, -27, -30, -25, -14, -36,
		-9, 24, 2, -16, -20, 6, 22, -22,
		29, -1, -20, -7, -8, -4, -38, -29,
		-65, 23, 16, -15, -56, -34, 2, 13,
	},
}

var psqtEg = [6][64]int{
	{ // pawn
		0, 0, 0, 0, 0, 0, 0, 0,
		13, 8, 8, 10, 13, 0, 2, -7,
		4, 7, -6, 1, 0, -5, -1, -8,
		13, 9, -3, -7, -7, -8, 3, -1,
		32, 24, 13, 5, -2, 4, 17, 17,
		94, 100, 85, 67, 56, 53, 82, 84,
		178, 173, 158, 134, 147, 132, 165, 187,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	{ // knight
		-29, -51, -23, -15, -22, -18, -50, -64,
		-42, -20, -10, -5, -2, -20, -23, -44,
		-23, -3, -1, 15, 10, -3, -20, -22,
		-18, -6, 16, 25, 16, 17, 4, -18,
		-17, 3, 22, 22, 22, 11, 8, -18,
		-24, -20, 10, 9, -1, -9, -19, -41,
		-25, -8, -25, -2, -9, -25, -24, -52,
		-58, -38, -13, -28, -31, -27, -63, -99,
	},
	{ // bishop
		-23, -9, -23, -5, -9, -16, -5, -17,
		-14, -18, -7, -1, 4, -9, -15, -27,
		-12, -3, 8, 10, 13, 3, -7, -15,
		-6, 3, 13, 19, 7, 10, -3, -9,
		-3, 9, 12, 9, 14, 10, 3, 2,
		2, -8, 0, -1, -2, 6, 0, 4,
		-8, -4, 7, -12, -3, -13, -4, -14,
		-14, -21, -11, -8, -7, -9, -17, -24,
	},
	{ // rook
		-9, 2, 3, -1, -5, -13, 4, -20,
		-6, -6, 0, 2, -9, -9, -11, -3,
		-4, 0, -5, -1, -7, -12, -8, -16,
		3, 5, 8, 4, -5, -6, -8, -11,
		4, 3, 13, 1, 2, 1, -1, 2,
		7, 7, 7, 5, 4, -3, -5, -3,
		11, 13, 13, 11, -3, 3, 8, 3,
		13, 10, 18, 15, 12, 12, 8, 5,
	},
	{ // queen
		-33, -28, -22, -43, -5, -32, -20, -41,
		-22, -23, -30, -16, -16, -23, -36, -32,
		-16, -27, 15, 6, 9, 17, 10, 5,
		-18, 28, 19, 47, 31, 34, 39, 23,
		3, 22, 24, 45, 57, 40, 57, 36,
		-20, 6, 9, 49, 47, 35, 19, 9,
		-17, 20, 32, 41, 58, 25, 30, 0,
		-9, 22, 22, 27, 27, 19, 10, 20,
	},
	{ // king
		-53, -34, -21, -11, -28, -14, -24, -43,
		-27, -11, 4, 13, 14, 4, -5, -17,
		-19, -3, 11, 21, 23, 16, 7, -9,
		-18, -4, 21, 24, 27, 23, 9, -11,
		-8, 22, 24, 27, 26, 33, 26, 3,
		10, 17, 23, 15, 20, 45, 44, 13,
		-12, 17, 14, 17, 17, 38, 23, 11,
		-74, -35, -18, -18, -11, 15, 4, -17,
	},
}

// Passed pawn bonuses by relative rank
var passedBonusMg = [8]int{0, 5, 10, 20, 35, 60, 100, 0}
var passedBonusEg = [8]int{0, 10, 20, 40, 70, 120, 190, 0}

// Mobility weights per piece type (pawn and king unweighted)
var mobilityMg = [6]int{0, 4, 5, 2, 1, 0}
var mobilityEg = [6]int{0, 3, 4, 4, 2, 0}

// King attack weights per attacker type
var attackerWeight = [6]int{0, 20, 20, 40, 80, 0}

// Pawn structure terms
const (
	doubledPawnMg  = -10
	doubledPawnEg  = -20
	isolatedPawnMg = -12
	isolatedPawnEg = -8
)

const (
	bishopPairMg = 25
	bishopPairEg = 50

	rookOpenFileMg     = 20
	rookOpenFileEg     = 25
	rookSemiOpenFileMg = 10
	rookSemiOpenFileEg = 15

	pawnShieldBonus = 8
)

// passedMask[color][sq] covers the squares an enemy pawn would need to
// occupy to stop the pawn on sq: its front span plus adjacent files.
var passedMask [2][64]board.Bitboard

// shieldMask[color][sq] covers the three squares one rank ahead of a
// king on sq.
var shieldMask [2][64]board.Bitboard

func init() {
	for sq := board.A1; sq <= board.H8; sq++ {
		f, r := sq.File(), sq.Rank()
		for df := -1; df <= 1; df++ {
			nf := f + df
			if nf < 0 || nf > 7 {
				continue
			}
			for nr := r + 1; nr <= 7; nr++ {
				passedMask[board.White][sq] |= board.SquareBB(board.NewSquare(nf, nr))
			}
			for nr := r - 1; nr >= 0; nr-- {
				passedMask[board.Black][sq] |= board.SquareBB(board.NewSquare(nf, nr))
			}
			if r+1 <= 7 {
				shieldMask[board.White][sq] |= board.SquareBB(board.NewSquare(nf, r+1))
			}
			if r-1 >= 0 {
				shieldMask[board.Black][sq] |= board.SquareBB(board.NewSquare(nf, r-1))
			}
		}
	}
}

// ClassicalEvaluator is a tapered material + piece-square evaluator
// with mobility, pawn structure, king safety and a pawn hash cache.
// Each worker owns one; the pawn cache is not shared.
type ClassicalEvaluator struct {
	pawns *PawnTable
}

// NewClassicalEvaluator creates an evaluator with a 1MB pawn cache.
func NewClassicalEvaluator() *ClassicalEvaluator {
	return &ClassicalEvaluator{pawns: NewPawnTable(1)}
}

// Evaluate returns the score in centipawns from the side to move's
// perspective. Trivial draws score zero.
func (e *ClassicalEvaluator) Evaluate(pos *board.Position) int {
	if pos.HalfMoveClock >= 100 || pos.IsInsufficientMaterial() || pos.IsRepetition(2) {
		return 0
	}

	var mg, eg int

	mg, eg = e.pawnStructure(pos)

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		cmg, ceg := e.evalSide(pos, c)
		mg += sign * cmg
		eg += sign * ceg
	}

	phase := pos.GamePhase()
	if phase > 24 {
		phase = 24
	}
	score := (mg*phase + eg*(24-phase)) / 24

	if pos.SideToMove == board.Black {
		score = -score
	}
	return score
}

// evalSide scores one color's pieces from white's perspective sign
// convention (the caller applies the sign).
func (e *ClassicalEvaluator) evalSide(pos *board.Position, c board.Color) (mg, eg int) {
	them := c.Other()
	occ := pos.AllOccupied
	enemyPawnAttacks := pawnAttackSpan(pos.Pieces[them][board.Pawn], them)

	kingZone := board.KingAttacks(pos.KingSquare[them])
	kingAttackUnits := 0

	for pt := board.Pawn; pt <= board.King; pt++ {
		bb := pos.Pieces[c][pt]
		for bb != 0 {
			sq := bb.PopLSB()
			rel := sq
			if c == board.Black {
				rel = sq ^ 56
			}
			mg += materialMg[pt] + psqtMg[pt][rel]
			eg += materialEg[pt] + psqtEg[pt][rel]

			var attacks board.Bitboard
			switch pt {
			case board.Knight:
				attacks = board.KnightAttacks(sq)
			case board.Bishop:
				attacks = board.BishopAttacks(sq, occ)
			case board.Rook:
				attacks = board.RookAttacks(sq, occ)
			case board.Queen:
				attacks = board.QueenAttacks(sq, occ)
			}
			if pt >= board.Knight && pt <= board.Queen {
				mob := (attacks &^ pos.Occupied[c] &^ enemyPawnAttacks).PopCount()
				mg += mobilityMg[pt] * (mob - 4)
				eg += mobilityEg[pt] * (mob - 4)
				kingAttackUnits += attackerWeight[pt] * (attacks & kingZone).PopCount()
			}

			if pt == board.Rook {
				file := board.FileMask[sq.File()]
				if file&(pos.Pieces[c][board.Pawn]|pos.Pieces[them][board.Pawn]) == 0 {
					mg += rookOpenFileMg
					eg += rookOpenFileEg
				} else if file&pos.Pieces[c][board.Pawn] == 0 {
					mg += rookSemiOpenFileMg
					eg += rookSemiOpenFileEg
				}
			}
		}
	}

	if pos.Pieces[c][board.Bishop].PopCount() >= 2 {
		mg += bishopPairMg
		eg += bishopPairEg
	}

	// King safety: scaled attack pressure on the enemy king, capped so
	// a single queen cannot dominate, plus our own pawn shield.
	if kingAttackUnits > 500 {
		kingAttackUnits = 500
	}
	mg += kingAttackUnits * kingAttackUnits / 2500

	ksq := pos.KingSquare[c]
	shield := (shieldMask[c][ksq] & pos.Pieces[c][board.Pawn]).PopCount()
	mg += shield * pawnShieldBonus

	return mg, eg
}

// pawnStructure scores both sides' pawns, white minus black, consulting
// the pawn hash first.
func (e *ClassicalEvaluator) pawnStructure(pos *board.Position) (mg, eg int) {
	if cmg, ceg, ok := e.pawns.Probe(pos.PawnKey); ok {
		return cmg, ceg
	}

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		pawns := pos.Pieces[c][board.Pawn]
		enemyPawns := pos.Pieces[c.Other()][board.Pawn]

		bb := pawns
		for bb != 0 {
			sq := bb.PopLSB()
			f := sq.File()

			if (board.FileMask[f]&pawns).PopCount() > 1 {
				mg += sign * doubledPawnMg
				eg += sign * doubledPawnEg
			}

			isolated := true
			if f > 0 && board.FileMask[f-1]&pawns != 0 {
				isolated = false
			}
			if f < 7 && board.FileMask[f+1]&pawns != 0 {
				isolated = false
			}
			if isolated {
				mg += sign * isolatedPawnMg
				eg += sign * isolatedPawnEg
			}

			if passedMask[c][sq]&enemyPawns == 0 {
				r := sq.RelativeRank(c)
				mg += sign * passedBonusMg[r]
				eg += sign * passedBonusEg[r]
			}
		}
	}

	e.pawns.Store(pos.PawnKey, mg, eg)
	return mg, eg
}

// pawnAttackSpan returns every square attacked by any pawn of c.
func pawnAttackSpan(pawns board.Bitboard, c board.Color) board.Bitboard {
	if c == board.White {
		return pawns.NorthEast() | pawns.NorthWest()
	}
	return pawns.SouthEast() | pawns.SouthWest()
}
