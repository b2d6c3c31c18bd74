package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/score"
)

func TestEngineFindBestMove(t *testing.T) {
	eng := New(&Options{CacheSize: 1 << 14})
	defer eng.Close()

	pos := board.NewPosition()
	var updates []*SearchResultInfo
	result, err := eng.FindBestMove(pos, 3, 0, func(r *SearchResultInfo) {
		updates = append(updates, r)
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Move == board.NoMove || !pos.IsLegal(result.Move) {
		t.Fatalf("bad best move %s", result.Move)
	}
	if result.Depth != 3 {
		t.Errorf("final depth = %d, want 3", result.Depth)
	}
	if len(updates) != 3 {
		t.Errorf("want one update per depth, got %d", len(updates))
	}
	for i, u := range updates {
		if u.Depth != i+1 {
			t.Errorf("update %d has depth %d", i, u.Depth)
		}
	}
}

func TestEngineRequestValidation(t *testing.T) {
	eng := New(nil)
	defer eng.Close()
	pos := board.NewPosition()

	if _, err := eng.StartSearch(pos, 0, nil); !errors.Is(err, ErrDepthOutOfRange) {
		t.Errorf("depth 0: %v", err)
	}
	if _, err := eng.StartSearch(pos, MaxDepth+1, nil); !errors.Is(err, ErrDepthOutOfRange) {
		t.Errorf("depth too large: %v", err)
	}
	if _, err := eng.StartMPVSearch(pos, 3, 0, 1, nil); !errors.Is(err, ErrPVCountOutOfRange) {
		t.Errorf("pv count 0: %v", err)
	}
}

func TestEngineMateStopsDeepening(t *testing.T) {
	eng := New(&Options{CacheSize: 1 << 14})
	defer eng.Close()

	pos, err := board.ParseFEN("4k3/8/3K4/3Q4/8/8/8/8 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	result, err := eng.FindBestMove(pos, 50, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Score.IsMate() {
		t.Fatalf("score = %s, want mate", result.Score)
	}
	if result.Depth >= 50 {
		t.Errorf("deepening did not stop after confirming mate (depth %d)", result.Depth)
	}
}

func TestEngineMatedRootReturnsNoMove(t *testing.T) {
	eng := New(nil)
	defer eng.Close()
	pos, err := board.ParseFEN("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eng.FindBestMove(pos, 3, 0, nil); !errors.Is(err, ErrNoMove) {
		t.Errorf("mated root: err = %v, want ErrNoMove", err)
	}
}

func TestWaitAtMostCancels(t *testing.T) {
	eng := New(&Options{CacheSize: 1 << 14})
	defer eng.Close()

	pos := board.NewPosition()
	f, err := eng.StartSearch(pos, MaxDepth, nil)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	result, err := f.WaitAtMost(150 * time.Millisecond)
	elapsed := time.Since(start)

	// The search is far too deep to finish; the deadline must have
	// stopped it and a partial result must come back.
	if elapsed > 5*time.Second {
		t.Fatalf("WaitAtMost blocked for %s", elapsed)
	}
	if err != nil {
		t.Fatalf("partial search failed: %v", err)
	}
	if result.Move == board.NoMove {
		t.Errorf("partial result has no move")
	}
}

func TestEngineSerializesRequests(t *testing.T) {
	eng := New(&Options{CacheSize: 1 << 14})
	defer eng.Close()

	pos := board.NewPosition()
	for i := 0; i < 3; i++ {
		r, err := eng.FindBestMove(pos, 2, 0, nil)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if r.Move == board.NoMove {
			t.Fatalf("request %d returned no move", i)
		}
	}
}

func TestEngineMPVSingleThreaded(t *testing.T) {
	eng := New(&Options{CacheSize: 1 << 14})
	defer eng.Close()

	pos := board.NewPosition()
	results, err := eng.FindBestMovesMPVSP(pos, 3, 3, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) < 2 {
		t.Fatalf("want several PVs, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("MPV results out of order")
		}
	}
}

func TestEngineMPVParallel(t *testing.T) {
	eng := New(&Options{CacheSize: 1 << 14})
	defer eng.Close()

	pos := board.NewPosition()
	results, err := eng.FindBestMovesMPV(pos, 3, 3, 2, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].Move == board.NoMove {
		t.Errorf("best MPV entry has no move")
	}
}

func TestInProcessEngineDeadline(t *testing.T) {
	eng := NewInProcess(&Options{CacheSize: 1 << 14})
	pos := board.NewPosition()
	result, err := eng.FindBestMove(pos, MaxDepth, 100*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Move == board.NoMove {
		t.Errorf("deadline search returned no move")
	}
	if result.Score == score.Min {
		t.Errorf("unexpected sentinel score")
	}
}
