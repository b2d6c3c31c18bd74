package engine

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/makochess/mako/internal/board"
)

func runMPV(t *testing.T, fen string, depth, pvs, workers int, onUpdate func([]*SearchResultInfo)) ([]*SearchResultInfo, error) {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	stop := &atomic.Bool{}
	tt := NewTranspositionTable(1 << 14)
	return SearchMPV(pos, depth, pvs, workers, tt, NewMoveHistory(), stop, nil, onUpdate)
}

func TestMPVReturnsDistinctTopMoves(t *testing.T) {
	results, err := runMPV(t, board.StartFEN, 3, 3, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) < 2 {
		t.Fatalf("want at least 2 PVs, got %d", len(results))
	}
	seen := map[board.Move]bool{}
	for _, r := range results {
		if seen[r.Move] {
			t.Errorf("duplicate root move %s in top-K", r.Move)
		}
		seen[r.Move] = true
		if len(r.PV) == 0 || r.PV[0] != r.Move {
			t.Errorf("PV must start with the root move: %+v", r)
		}
	}
}

func TestMPVResultsOrdered(t *testing.T) {
	results, err := runMPV(t, board.StartFEN, 3, 4, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results out of order at %d: %s > %s", i, results[i].Score, results[i-1].Score)
		}
		if results[i].Score == results[i-1].Score && results[i].Depth > results[i-1].Depth {
			t.Errorf("equal scores must tie-break by deeper first at %d", i)
		}
	}
}

func TestMPVUpdatesSerializedAndMonotonic(t *testing.T) {
	var mu sync.Mutex
	inCallback := false
	updates := 0

	onUpdate := func(rs []*SearchResultInfo) {
		mu.Lock()
		if inCallback {
			mu.Unlock()
			t.Errorf("update callback reentered")
			return
		}
		inCallback = true
		mu.Unlock()

		for i := 1; i < len(rs); i++ {
			if rs[i].Score > rs[i-1].Score {
				t.Errorf("update %d not sorted", updates)
			}
		}

		mu.Lock()
		inCallback = false
		updates++
		mu.Unlock()
	}

	if _, err := runMPV(t, board.StartFEN, 2, 2, 4, onUpdate); err != nil {
		t.Fatal(err)
	}
	if updates == 0 {
		t.Errorf("no incremental updates delivered")
	}
}

func TestMPVMateScoresSurface(t *testing.T) {
	results, err := runMPV(t, "4k3/8/3K4/3Q4/8/8/8/8 w - - 0 1", 4, 2, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if !results[0].Score.IsMate() || !results[0].Score.IsPositive() {
		t.Errorf("best line should be a winning mate, got %s", results[0].Score)
	}
}

func TestMPVNoLegalMoves(t *testing.T) {
	_, err := runMPV(t, "k1K5/2Q5/8/8/8/8/8/8 b - - 0 1", 3, 2, 2, nil)
	if err == nil {
		t.Fatalf("stalemate root must fail with no legal moves")
	}
}

func TestMPVSingleWorkerMatchesRequest(t *testing.T) {
	results, err := runMPV(t, board.StartFEN, 2, 1, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("asked for 1 PV, got %d", len(results))
	}
}

func TestMPVStopsPromptly(t *testing.T) {
	pos := board.NewPosition()
	stop := &atomic.Bool{}
	stop.Store(true)
	tt := NewTranspositionTable(1 << 12)
	_, err := SearchMPV(pos, 6, 2, 2, tt, NewMoveHistory(), stop, nil, nil)
	if err == nil {
		t.Errorf("stopped-before-start search cannot produce results")
	}
}
