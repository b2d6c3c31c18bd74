package engine

import (
	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/score"
)

// Material values per piece type, in pawns.
var materialValue = [6]score.Score{
	score.OfPawns(1.0), // pawn
	score.OfPawns(3.0), // knight
	score.OfPawns(3.0), // bishop
	score.OfPawns(5.0), // rook
	score.OfPawns(9.0), // queen
	score.Zero,         // king
}

// Piece-square tables in centi-pawns, written from White's point of
// view with rank 8 first (the visual orientation); Black reads them
// unmirrored, White through Square.Mirror.

var pawnPST = [64]int32{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int32{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int32{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int32{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int32{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingPST = [64]int32{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

// pieceSquare[pt][sq] is the positional score of a piece of type pt on
// sq, already converted to Score and oriented for Black (Black owns the
// raw table; White mirrors).
var pieceSquare [6][64]score.Score

func init() {
	raw := [6]*[64]int32{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST, &kingPST}
	for pt := 0; pt < 6; pt++ {
		for sq := 0; sq < 64; sq++ {
			pieceSquare[pt][sq] = score.OfCentiPawns(raw[pt][sq])
		}
	}
}

// pieceValue returns material plus piece-square score for a piece of
// the given color on sq.
func pieceValue(pt board.PieceType, c board.Color, sq board.Square) score.Score {
	idx := sq
	if c == board.White {
		idx = sq.Mirror()
	}
	return materialValue[pt].Add(pieceSquare[pt][idx])
}
