package engine

import (
	"testing"

	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/score"
)

func TestHistoryAddAndHalve(t *testing.T) {
	h := NewMoveHistory()
	pos := board.NewPosition()
	m, _ := board.ParseXBoardMove("g1f3", pos)

	for i := 0; i < 100; i++ {
		h.Add(pos, m)
	}
	if got := h.Get(pos, m); got != score.OfMilliPawns(100) {
		t.Fatalf("history score = %d, want 100 milli", got)
	}

	// Crossing the cap halves the whole ply table.
	other, _ := board.ParseXBoardMove("b1c3", pos)
	for i := 0; i < 100; i++ {
		h.Add(pos, other)
	}
	for i := 0; i < 412; i++ {
		h.Add(pos, m)
	}
	if got := h.Get(pos, m); got != score.OfMilliPawns(256) {
		t.Errorf("cell at cap should halve to 256 milli, got %d", got)
	}
	if got := h.Get(pos, other); got != score.OfMilliPawns(50) {
		t.Errorf("sibling cell should halve alongside, got %d", got)
	}
}

func TestHistoryIsPerPly(t *testing.T) {
	h := NewMoveHistory()
	pos := board.NewPosition()
	m, _ := board.ParseXBoardMove("g1f3", pos)
	h.Add(pos, m)

	later := pos.Copy()
	e4, _ := board.ParseXBoardMove("e2e4", later)
	later.MakeMove(e4)
	e5, _ := board.ParseXBoardMove("e7e5", later)
	later.MakeMove(e5)

	if got := h.Get(later, m); got != score.Zero {
		t.Errorf("history leaked across plies: %d", got)
	}
}

func TestSortMovesPrefersHighPriAndCaptures(t *testing.T) {
	h := NewMoveHistory()
	// A position where White can capture a queen or a pawn, or play
	// quiet moves.
	pos, err := board.ParseFEN("4k3/8/3q4/4p3/2N5/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	moves := pos.GenerateLegalMoves()

	quiet := board.NoMove
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if !m.IsCapture(pos) {
			quiet = m
			break
		}
	}

	// Without a hint, the queen capture (Nxd6 from c4) sorts first.
	h.SortMoves(pos, moves, board.NoMove)
	first := moves.Get(0)
	if pos.PieceAt(first.To()).Type() != board.Queen {
		t.Errorf("expected queen capture first, got %s", first)
	}

	// The TT suggestion outranks everything.
	h.SortMoves(pos, moves, quiet)
	if !moves.Get(0).SameSquares(quiet) {
		t.Errorf("high-priority move not sorted first: got %s want %s", moves.Get(0), quiet)
	}
}

func TestSortIsStableForEqualScores(t *testing.T) {
	h := NewMoveHistory()
	pos := board.NewPosition()
	moves := pos.GenerateLegalMoves()
	orig := append([]board.Move(nil), moves.Slice()...)

	// No captures, no history: every score ties, so order must be
	// preserved.
	h.SortMoves(pos, moves, board.NoMove)
	for i := range orig {
		if moves.Get(i) != orig[i] {
			t.Fatalf("stable sort reordered equal-score moves at %d", i)
		}
	}
}
