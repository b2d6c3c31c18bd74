package engine

import (
	"errors"
	"sync/atomic"

	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/book"
	"github.com/makochess/mako/internal/score"
)

// errInterrupted propagates cancellation up the search recursion. Only
// the root catches it; it never crosses the engine boundary.
var errInterrupted = errors.New("search interrupted")

// maxSearchPly caps the recursion; positions deeper than this score as
// draws.
const maxSearchPly = 512

// thresholdPerDepth is the margin per missing ply under which a
// shallower transposition-table bound still justifies a cutoff.
var thresholdPerDepth = score.OfMilliPawns(1100)

// searchResult is a score with the principal variation that realizes
// it. A nil PV means no move has been established yet.
type searchResult struct {
	score score.Score
	pv    []board.Move
}

func minResult() searchResult {
	return searchResult{score: score.Min}
}

func (r *searchResult) isMin() bool {
	return r.score == score.Min && r.pv == nil
}

func (r *searchResult) setScore(s score.Score) {
	r.score = s
	r.pv = nil
}

// updateMax adopts the candidate when it improves on the current best,
// prepending the move that led to it.
func (r *searchResult) updateMax(m board.Move, cand searchResult) {
	if cand.score > r.score || r.isMin() {
		r.score = cand.score
		pv := make([]board.Move, 0, len(cand.pv)+1)
		pv = append(pv, m)
		pv = append(pv, cand.pv...)
		r.pv = pv
	}
}

func combineResult(m board.Move, cand searchResult) searchResult {
	pv := make([]board.Move, 0, len(cand.pv)+1)
	pv = append(pv, m)
	pv = append(pv, cand.pv...)
	return searchResult{score: cand.score, pv: pv}
}

func singleMoveResult(m board.Move, s score.Score) searchResult {
	if m == board.NoMove {
		return searchResult{score: s}
	}
	return searchResult{score: s, pv: []board.Move{m}}
}

// SearchResultOneDepth is the outcome of one completed depth.
type SearchResultOneDepth struct {
	Score score.Score
	Move  board.Move
	PV    []board.Move
	Nodes uint64
}

// SearchCore runs principal-variation alpha-beta on a position it owns.
// The transposition table and move history may be shared with other
// cores; the stop flag is polled cooperatively at every node.
type SearchCore struct {
	pos          *board.Position
	tt           *TranspositionTable
	history      *MoveHistory
	book         book.LookupFunc
	evalParams   *EvalParams
	stop         *atomic.Bool
	allowPartial bool

	nodes         uint64
	interruptible bool
}

// NewSearchCore copies the board and wires the shared structures.
func NewSearchCore(pos *board.Position, tt *TranspositionTable, history *MoveHistory,
	bookFn book.LookupFunc, allowPartial bool, stop *atomic.Bool, evalParams *EvalParams) *SearchCore {
	return &SearchCore{
		pos:          pos.Copy(),
		tt:           tt,
		history:      history,
		book:         bookFn,
		evalParams:   evalParams,
		stop:         stop,
		allowPartial: allowPartial,
	}
}

// Nodes returns the node count of the last search.
func (c *SearchCore) Nodes() uint64 {
	return c.nodes
}

// Board returns the core's position.
func (c *SearchCore) Board() *board.Position {
	return c.pos
}

// SearchOneDepth searches to exactly the given depth inside the window.
// It returns (nil, nil) when the search was cancelled before finishing
// and no partial result survived.
func (c *SearchCore) SearchOneDepth(depth int, lower, upper score.Score) (*SearchResultOneDepth, error) {
	if depth <= 0 {
		return nil, errors.New("search depth must be at least 1")
	}
	c.nodes = 0
	c.interruptible = depth > 1

	var acc singleAccumulator
	acc.result = minResult()
	if err := c.searchRoot(depth, lower, upper, &acc); err != nil {
		if errors.Is(err, errInterrupted) {
			return nil, nil
		}
		return nil, err
	}

	res := acc.result
	var m board.Move
	if len(res.pv) > 0 {
		m = res.pv[0]
	}
	return &SearchResultOneDepth{
		Score: res.score,
		Move:  m,
		PV:    res.pv,
		Nodes: c.nodes,
	}, nil
}

// SearchOneDepthMPV is SearchOneDepth keeping the maxPVs best root
// lines instead of one.
func (c *SearchCore) SearchOneDepthMPV(depth, maxPVs int, lower, upper score.Score) ([]SearchResultOneDepth, error) {
	if depth <= 0 {
		return nil, errors.New("search depth must be at least 1")
	}
	c.nodes = 0
	c.interruptible = depth > 1

	acc := mpvAccumulator{maxPVs: maxPVs}
	if err := c.searchRoot(depth, lower, upper, &acc); err != nil {
		if errors.Is(err, errInterrupted) {
			return nil, nil
		}
		return nil, err
	}

	results := make([]SearchResultOneDepth, 0, len(acc.results))
	for _, res := range acc.results {
		var m board.Move
		if len(res.pv) > 0 {
			m = res.pv[0]
		}
		results = append(results, SearchResultOneDepth{
			Score: res.score,
			Move:  m,
			PV:    res.pv,
			Nodes: c.nodes,
		})
	}
	return results, nil
}

// rootAccumulator collects root-move results; the single and multi-PV
// searches differ only here.
type rootAccumulator interface {
	// minScore is the score a new candidate must beat; it feeds the
	// moving alpha bound.
	minScore() score.Score
	// maxScore is the best score seen so far.
	maxScore() score.Score
	updateMax(m board.Move, cand searchResult)
	setScore(s score.Score)
	hasResult() bool
	bestMove() board.Move
}

type singleAccumulator struct {
	result searchResult
}

func (a *singleAccumulator) minScore() score.Score { return a.result.score }
func (a *singleAccumulator) maxScore() score.Score { return a.result.score }
func (a *singleAccumulator) hasResult() bool       { return !a.result.isMin() }
func (a *singleAccumulator) setScore(s score.Score) {
	a.result.setScore(s)
}
func (a *singleAccumulator) updateMax(m board.Move, cand searchResult) {
	a.result.updateMax(m, cand)
}
func (a *singleAccumulator) bestMove() board.Move {
	if len(a.result.pv) > 0 {
		return a.result.pv[0]
	}
	return board.NoMove
}

// mpvAccumulator keeps the maxPVs best root results sorted descending.
type mpvAccumulator struct {
	maxPVs  int
	results []searchResult
}

func (a *mpvAccumulator) minScore() score.Score {
	if len(a.results) < a.maxPVs {
		return score.Min
	}
	return a.results[len(a.results)-1].score
}

func (a *mpvAccumulator) maxScore() score.Score {
	if len(a.results) == 0 {
		return score.Min
	}
	return a.results[0].score
}

func (a *mpvAccumulator) hasResult() bool { return len(a.results) > 0 }

func (a *mpvAccumulator) setScore(s score.Score) {
	a.results = []searchResult{{score: s}}
}

func (a *mpvAccumulator) updateMax(m board.Move, cand searchResult) {
	combined := combineResult(m, cand)

	idx := len(a.results)
	for i, r := range a.results {
		if combined.score > r.score {
			idx = i
			break
		}
	}
	a.results = append(a.results, searchResult{})
	copy(a.results[idx+1:], a.results[idx:])
	a.results[idx] = combined
	if len(a.results) > a.maxPVs {
		a.results = a.results[:a.maxPVs]
	}
}

func (a *mpvAccumulator) bestMove() board.Move {
	if len(a.results) > 0 && len(a.results[0].pv) > 0 {
		return a.results[0].pv[0]
	}
	return board.NoMove
}

// searchRoot is the root iteration of the alpha-beta loop. It differs
// from inner nodes in that cancellation may keep a partial result and
// that the terminal shortcuts (draw, book, mate pruning) do not apply.
func (c *SearchCore) searchRoot(depth int, inputAlpha, inputBeta score.Score, acc rootAccumulator) error {
	scratch := MakeScratch(c.pos)
	c.nodes++

	slot, slotFound := c.tt.Find(c.pos)
	highPri := board.NoMove
	if slotFound {
		highPri = slot.Move
	}

	list := c.pos.GeneratePseudoLegalMoves()
	c.history.SortMoves(c.pos, list, highPri)

	hasValidMove := false
	first := true

	for i := 0; i < list.Len(); i++ {
		m := list.Get(i)
		mi := c.pos.MakeMove(m)
		if !mi.Applied {
			continue
		}

		if mi.Valid {
			hasValidMove = true
			childScratch := MakeScratch(c.pos)
			cand, err := c.searchMove(childScratch, depth, 0, acc.minScore(), inputAlpha, inputBeta, first, slotFound, &mi)
			if err != nil {
				c.pos.UnmakeMove(m, mi)
				if errors.Is(err, errInterrupted) &&
					acc.hasResult() && slotFound && acc.maxScore() > inputAlpha && c.allowPartial {
					return nil
				}
				return err
			}
			acc.updateMax(m, cand)
			first = false
		}

		c.pos.UnmakeMove(m, mi)

		if acc.hasResult() && acc.minScore() >= inputBeta {
			break
		}
	}

	if !hasValidMove {
		if scratch.KingUnderAttack(c.pos, c.pos.SideToMove) {
			acc.setScore(score.OfMovesToMate(0).Neg())
		} else {
			acc.setScore(score.Zero)
		}
		return nil
	}

	if m := acc.bestMove(); m != board.NoMove {
		c.storeBounds(depth, acc.maxScore(), inputAlpha, inputBeta, m)
		c.history.Add(c.pos, m)
	}
	return nil
}

// searchMove runs the per-move part of the search loop: a null-window
// probe at a shortened depth for late moves, then the re-searches when
// the probe does not fail low.
func (c *SearchCore) searchMove(childScratch Scratch, depth, ply int, best, inputAlpha, inputBeta score.Score,
	first, slotFound bool, mi *board.UndoInfo) (searchResult, error) {

	isPV := inputAlpha.Next() == inputBeta
	newAlpha := inputAlpha
	if best > newAlpha {
		newAlpha = best
	}

	// Late quiet moves under a known table entry are probed two plies
	// shallower first.
	depthShorten := 0
	if !first && slotFound && depth >= 4 && mi.CapturedPiece == board.NoPiece {
		depthShorten = 2
	}

	didProbe := false
	var child searchResult
	var err error
	if !first && !isPV && depth > 1 {
		child, err = c.searchOuter(childScratch, depth-depthShorten, ply, newAlpha, newAlpha.Next())
		if err != nil {
			return searchResult{}, err
		}
		didProbe = true
	}

	if !didProbe || child.score > newAlpha {
		child, err = c.searchOuter(childScratch, depth-depthShorten, ply, newAlpha, inputBeta)
		if err != nil {
			return searchResult{}, err
		}
	}

	if depthShorten > 0 && child.score > newAlpha {
		child, err = c.searchOuter(childScratch, depth, ply, newAlpha, inputBeta)
		if err != nil {
			return searchResult{}, err
		}
	}
	return child, nil
}

// searchOuter descends one level: negates the window with the mate
// distance shifted one ply, searches the child and flips the result
// back.
func (c *SearchCore) searchOuter(scratch Scratch, depth, ply int, alpha, beta score.Score) (searchResult, error) {
	res, err := c.searchInner(scratch,
		depth-1, ply+1,
		beta.DecMateMoves(1).Neg(),
		alpha.DecMateMoves(1).Neg())
	if err != nil {
		return searchResult{}, err
	}
	res.score = res.score.Neg().IncMateMoves(1)
	return res, nil
}

// searchInner is an inner alpha-beta node. At depth <= 0 it runs
// quiescence: stand pat on the static evaluation and search captures
// only.
func (c *SearchCore) searchInner(preMoveScratch Scratch, depth, ply int, inputAlpha, inputBeta score.Score) (searchResult, error) {
	isPV := inputAlpha.Next() == inputBeta
	isQuiescent := depth <= 0

	c.nodes++
	if c.interruptible && c.stop.Load() {
		return searchResult{}, errInterrupted
	}

	result := minResult()

	if ply > maxSearchPly || c.pos.IsDrawWithoutStalemate() {
		result.setScore(score.Zero)
		return result, nil
	}

	// Shallow positions may be answered straight from the opening book.
	if c.book != nil && ply <= 3 {
		if entry, err := c.book(c.pos.ToFEN()); err == nil && entry != nil {
			if pv, ok := entry.ResolvePV(c.pos); ok {
				return searchResult{
					score: entry.Eval.FlipForColor(c.pos.SideToMove),
					pv:    pv,
				}, nil
			}
		}
	}

	// Mate-distance pruning; skipped on PV nodes so the line survives.
	if !isPV {
		if bestPossible := score.OfMovesToMate(1); bestPossible <= inputAlpha {
			result.setScore(inputAlpha)
			return result, nil
		}
		if worstPossible := score.OfMovesToMate(0).Neg(); worstPossible >= inputBeta {
			result.setScore(inputBeta)
			return result, nil
		}
	}

	highPri := board.NoMove
	var slot TTEntry
	slotFound := false
	if !isQuiescent {
		slot, slotFound = c.tt.Find(c.pos)
		if slotFound {
			if !isPV {
				if slot.Depth >= int32(depth) {
					if slot.LowerBound >= inputBeta {
						return singleMoveResult(slot.Move, slot.LowerBound), nil
					}
					if slot.UpperBound <= inputAlpha {
						return singleMoveResult(slot.Move, slot.UpperBound), nil
					}
				} else {
					gap := depth - int(slot.Depth)
					if slot.LowerBound.Sub(thresholdPerDepth.MulInt(gap)) >= inputBeta {
						return singleMoveResult(slot.Move, inputBeta), nil
					}
				}
			}
			if slot.Move != board.NoMove {
				highPri = slot.Move
			}
		}
	}

	var list *board.MoveList
	if isQuiescent {
		result.setScore(EvalForCurrentPlayer(c.pos, preMoveScratch, c.evalParams))
		if result.score >= inputBeta {
			return result, nil
		}
		list = c.pos.GeneratePseudoLegalCaptures()
	} else {
		list = c.pos.GeneratePseudoLegalMoves()
	}

	c.history.SortMoves(c.pos, list, highPri)

	hasValidMove := false
	first := true

	for i := 0; i < list.Len(); i++ {
		m := list.Get(i)
		mi := c.pos.MakeMove(m)
		if !mi.Applied {
			continue
		}

		if mi.Valid {
			hasValidMove = true
			childScratch := MakeScratch(c.pos)
			cand, err := c.searchMove(childScratch, depth, ply, result.score, inputAlpha, inputBeta, first, slotFound, &mi)
			if err != nil {
				c.pos.UnmakeMove(m, mi)
				return searchResult{}, err
			}
			result.updateMax(m, cand)
			first = false
		}

		c.pos.UnmakeMove(m, mi)

		if !result.isMin() && result.score >= inputBeta {
			break
		}
	}

	if !isQuiescent && !hasValidMove {
		if preMoveScratch.KingUnderAttack(c.pos, c.pos.SideToMove) {
			result.setScore(score.OfMovesToMate(0).Neg())
		} else {
			result.setScore(score.Zero)
		}
	}

	if len(result.pv) > 0 {
		m := result.pv[0]
		if !isQuiescent {
			c.storeBounds(depth, result.score, inputAlpha, inputBeta, m)
		}
		c.history.Add(c.pos, m)
	}

	return result, nil
}

// storeBounds records the outcome in the transposition table with the
// bound kind the window implies: upper bound on fail-low, lower bound
// on fail-high, exact in between.
func (c *SearchCore) storeBounds(depth int, s, inputAlpha, inputBeta score.Score, m board.Move) {
	switch {
	case s <= inputAlpha:
		c.tt.Insert(c.pos, depth, score.OfMovesToMate(1).Neg(), s, m)
	case s >= inputBeta:
		c.tt.Insert(c.pos, depth, s, score.OfMovesToMate(1), m)
	default:
		c.tt.Insert(c.pos, depth, s, s, m)
	}
}
