package board

import (
	"errors"
	"fmt"
)

// ErrInvalidMove wraps engine-move parse failures.
var ErrInvalidMove = errors.New("invalid move")

// ParseXBoardMove parses a move in the long algebraic wire form
// ("e2e4", "e7e8q") or one of the castle words (O-O, O-O-O, 0-0,
// 0-0-0). A castle may equally arrive as the two-file king move
// ("e1g1"). The move is resolved against the position so that special
// move kinds (castle, en passant, promotion) are tagged correctly.
func ParseXBoardMove(s string, pos *Position) (Move, error) {
	switch s {
	case "O-O", "0-0":
		if pos.SideToMove == White {
			return NewCastling(E1, G1), nil
		}
		return NewCastling(E8, G8), nil
	case "O-O-O", "0-0-0":
		if pos.SideToMove == White {
			return NewCastling(E1, C1), nil
		}
		return NewCastling(E8, C8), nil
	}

	if len(s) < 4 || len(s) > 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("%w: bad promotion %q", ErrInvalidMove, s[4])
		}
		return NewPromotion(from, to, promo), nil
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("%w: no piece on %s", ErrInvalidMove, from)
	}
	pt := piece.Type()

	// A king moving two files is a castle.
	if pt == King && abs(to.File()-from.File()) == 2 {
		return NewCastling(from, to), nil
	}
	if pt == Pawn && to == pos.EnPassant {
		return NewEnPassant(from, to), nil
	}
	// A pawn reaching the last rank without a promotion letter promotes
	// to queen.
	if pt == Pawn && (to.Rank() == 0 || to.Rank() == 7) {
		return NewPromotion(from, to, Queen), nil
	}
	return NewMove(from, to), nil
}
