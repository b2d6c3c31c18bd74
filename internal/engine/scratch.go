// Package engine implements the search core: evaluation, transposition
// table, move ordering, principal-variation alpha-beta, the parallel
// multi-PV driver and the engine handle.
package engine

import "github.com/makochess/mako/internal/board"

// Scratch carries per-position data that several consumers need and
// that is computed once per node: the full attack set of each color.
type Scratch struct {
	Attacks [2]board.Bitboard
}

// MakeScratch computes the scratch for the position.
func MakeScratch(pos *board.Position) Scratch {
	return Scratch{
		Attacks: [2]board.Bitboard{
			pos.AttacksBB(board.White),
			pos.AttacksBB(board.Black),
		},
	}
}

// KingUnderAttack reports whether c's king stands in the opponent's
// attack set.
func (s Scratch) KingUnderAttack(pos *board.Position, c board.Color) bool {
	ksq := pos.KingSquare[c]
	if !ksq.IsValid() {
		return false
	}
	return s.Attacks[c.Other()].IsSet(ksq)
}
