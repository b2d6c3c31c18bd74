package engine

import (
	"testing"

	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/score"
)

func evalFEN(t *testing.T, fen string) score.Score {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return EvalForWhite(pos, MakeScratch(pos), nil)
}

func TestStartPositionIsBalanced(t *testing.T) {
	if got := evalFEN(t, board.StartFEN); got != score.Zero {
		t.Errorf("starting position evaluates to %s, want +0.000", got)
	}
}

func TestMaterialDominates(t *testing.T) {
	up := evalFEN(t, "4k3/8/8/8/8/8/8/Q3K3 w - - 0 1")
	if up <= score.OfPawns(5) {
		t.Errorf("queen up should be worth far more than 5 pawns, got %s", up)
	}
	down := evalFEN(t, "q3k3/8/8/8/8/8/8/4K3 w - - 0 1")
	if down >= score.OfPawns(-5) {
		t.Errorf("queen down should be far below -5 pawns, got %s", down)
	}
}

func TestEvalMirrorSymmetry(t *testing.T) {
	// A position and its color-mirror must evaluate to opposite signs.
	fens := []struct {
		white string
		black string
	}{
		{
			"4k3/8/8/8/8/8/PPP5/4K2R w K - 0 1",
			"4k2r/ppp5/8/8/8/8/8/4K3 b k - 0 1",
		},
		{
			"4k3/8/8/3P4/8/8/8/4K3 w - - 0 1",
			"4k3/8/8/8/3p4/8/8/4K3 b - - 0 1",
		},
	}
	for _, tc := range fens {
		w := evalFEN(t, tc.white)
		b := evalFEN(t, tc.black)
		if w != b.Neg() {
			t.Errorf("mirror asymmetry: %q -> %s, %q -> %s", tc.white, w, tc.black, b)
		}
	}
}

func TestBishopPairBonus(t *testing.T) {
	pair := evalFEN(t, "4k3/8/8/8/8/8/8/2BB1K2 w - - 0 1")
	split := evalFEN(t, "4k3/8/8/8/8/8/8/1NB2K2 w - - 0 1")
	if pair <= split {
		t.Errorf("bishop pair (%s) should outscore bishop+knight (%s)", pair, split)
	}
}

func TestPassedPawnBonusGrowsWithRank(t *testing.T) {
	low := evalFEN(t, "4k3/8/8/8/8/3P4/8/4K3 w - - 0 1")
	high := evalFEN(t, "4k3/8/3P4/8/8/8/8/4K3 w - - 0 1")
	if high <= low {
		t.Errorf("advanced passer (%s) should outscore backward passer (%s)", high, low)
	}
}

func TestIsolatedPawnPenalty(t *testing.T) {
	// Same pawn count on comparable squares; the isolation term flips
	// the comparison.
	connected := evalFEN(t, "4k3/8/8/8/8/3PP3/8/4K3 w - - 0 1")
	isolated := evalFEN(t, "4k3/8/8/8/8/P6P/8/4K3 w - - 0 1")
	if isolated >= connected {
		t.Errorf("isolated pawns (%s) should score below connected (%s)", isolated, connected)
	}
}

func TestRookOnOpenFile(t *testing.T) {
	posOpen, err := board.ParseFEN("4k3/6p1/8/8/8/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	posBlocked, err := board.ParseFEN("4k3/8/8/8/P7/8/8/R3K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	fOpen := EvalFeatures(posOpen, MakeScratch(posOpen), nil)
	fBlocked := EvalFeatures(posBlocked, MakeScratch(posBlocked), nil)
	if fOpen.White.RooksOnOpenFile == score.Zero {
		t.Errorf("rook on open file earned no bonus")
	}
	if fBlocked.White.RooksOnOpenFile != score.Zero {
		t.Errorf("rook behind own pawn earned an open-file bonus")
	}
}

func TestFeatureVectorExposed(t *testing.T) {
	pos := board.NewPosition()
	f := EvalFeatures(pos, MakeScratch(pos), nil)
	if f.White.Material == score.Zero || f.Black.Material == score.Zero {
		t.Errorf("material features missing: %+v", f)
	}
	if f.White.Total() != f.Black.Total() {
		t.Errorf("symmetric start position has asymmetric feature totals")
	}
}

func TestCustomEvalHook(t *testing.T) {
	pos := board.NewPosition()
	params := &EvalParams{
		CustomEval: func(f Features, _ *board.Position) score.Score {
			return score.OfPawns(7)
		},
	}
	if got := EvalForWhite(pos, MakeScratch(pos), params); got != score.OfPawns(7) {
		t.Errorf("custom eval not applied: %s", got)
	}
	if got := EvalForCurrentPlayer(pos, MakeScratch(pos), params); got != score.OfPawns(7) {
		t.Errorf("white to move should see the custom score unflipped: %s", got)
	}
}
