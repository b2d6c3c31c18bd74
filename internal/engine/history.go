package engine

import (
	"sort"

	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/score"
)

// Capture values used for move ordering, by captured piece type. Not
// the evaluation material values; these only rank moves.
var captureOrderValue = [7]score.Score{
	score.OfPawns(1), // pawn
	score.OfPawns(3), // knight
	score.OfPawns(2), // bishop
	score.OfPawns(5), // rook
	score.OfPawns(9), // queen
	score.OfPawns(2), // king (never actually capturable)
	score.Zero,       // empty destination
}

// highPriScore lifts the transposition-table suggestion above every
// other move.
var highPriScore = score.OfPawns(10000)

// memoryCap triggers halving so history cells never saturate.
var memoryCap = score.OfMilliPawns(512)

const historyPlies = 1024

// MoveHistory is the history heuristic: a per-ply table of
// origin x destination scores, bumped every time a move is chosen at
// that ply. Increments are racy best-effort when shared between
// workers; a lost update is harmless.
type MoveHistory struct {
	table *[historyPlies][64][64]score.Score
}

// NewMoveHistory allocates an empty history table.
func NewMoveHistory() *MoveHistory {
	return &MoveHistory{table: &[historyPlies][64][64]score.Score{}}
}

// Clear zeroes the table.
func (h *MoveHistory) Clear() {
	*h.table = [historyPlies][64][64]score.Score{}
}

func plyIndex(pos *board.Position) int {
	return pos.Ply() & (historyPlies - 1)
}

// Add credits the move chosen at the position's ply. When any cell of
// that ply reaches the cap, the whole ply is halved.
func (h *MoveHistory) Add(pos *board.Position, m board.Move) {
	t := &h.table[plyIndex(pos)]
	cell := &t[m.From()][m.To()]
	*cell = cell.Add(score.OfMilliPawns(1))
	if *cell >= memoryCap {
		for f := range t {
			for to := range t[f] {
				t[f][to] = t[f][to].DivInt(2)
			}
		}
	}
}

// Get returns the history score of a move at the position's ply.
func (h *MoveHistory) Get(pos *board.Position, m board.Move) score.Score {
	return h.table[plyIndex(pos)][m.From()][m.To()]
}

// SortMoves orders moves from likely best to worst: captured-piece
// value plus the scaled history score, with the high-priority move
// (the transposition-table suggestion) first. The sort is stable.
func (h *MoveHistory) SortMoves(pos *board.Position, moves *board.MoveList, highPri board.Move) {
	n := moves.Len()
	if n < 2 {
		return
	}
	t := &h.table[plyIndex(pos)]

	type moveScore struct {
		m     board.Move
		score score.Score
	}
	scored := make([]moveScore, n)
	for i := 0; i < n; i++ {
		m := moves.Get(i)
		s := captureOrderValue[pos.PieceAt(m.To()).Type()]
		s = s.Add(t[m.From()][m.To()].MulFrac(213, 128))
		if m.SameSquares(highPri) {
			s = s.Add(highPriScore)
		}
		scored[i] = moveScore{m: m, score: s}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	for i := 0; i < n; i++ {
		moves.Set(i, scored[i].m)
	}
}
