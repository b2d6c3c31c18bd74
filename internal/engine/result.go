package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/score"
)

// SearchResultInfo is one completed search outcome: the chosen move,
// its principal variation and score, and how much work it took.
type SearchResultInfo struct {
	Move    board.Move
	PV      []board.Move
	Score   score.Score
	Nodes   uint64
	Depth   int
	Elapsed time.Duration
}

// Clone returns an independent copy, so that update callbacks may
// retain results across iterations.
func (r *SearchResultInfo) Clone() *SearchResultInfo {
	dup := *r
	dup.PV = append([]board.Move(nil), r.PV...)
	return &dup
}

// FlipForColor converts the score to White's perspective for a result
// computed from the given side to move.
func (r *SearchResultInfo) FlipForColor(c board.Color) {
	r.Score = r.Score.FlipForColor(c)
}

func (r *SearchResultInfo) String() string {
	pv := make([]string, len(r.PV))
	for i, m := range r.PV {
		pv[i] = m.String()
	}
	return fmt.Sprintf("[d:%d s:%s pv:%s nodes:%d t:%s]",
		r.Depth, r.Score, strings.Join(pv, " "), r.Nodes, r.Elapsed)
}
