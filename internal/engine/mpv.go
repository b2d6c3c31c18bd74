package engine

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/score"
)

// ErrNoLegalMoves is reported when an MPV search starts from a position
// with no legal moves.
var ErrNoLegalMoves = errors.New("no legal moves")

// partialScore is what a bounded root search proved about a move:
// either the exact score, or only that it is at most some bound.
type partialScore struct {
	exact bool
	value score.Score
}

func atMost(s score.Score) partialScore  { return partialScore{value: s} }
func exactly(s score.Score) partialScore { return partialScore{exact: true, value: s} }

// moveSearchState is the per-root-move state machine of the driver.
type moveSearchState struct {
	m         board.Move
	taken     bool
	nextDepth int

	lastResult *SearchResultInfo
	lastScore  partialScore
}

// mpvDriver runs depth-per-root-move jobs on a worker pool and keeps
// the top-K principal variations. All shared state is guarded by mu;
// the mutex is held only while selecting work or recording a result,
// never across a search.
type mpvDriver struct {
	pos        *board.Position
	maxDepth   int
	maxPVs     int
	numWorkers int
	tt         *TranspositionTable
	history    *MoveHistory
	stop       *atomic.Bool
	evalParams *EvalParams
	onUpdate   func([]*SearchResultInfo)

	player board.Color
	start  time.Time

	mu           sync.Mutex
	legalMoves   []*moveSearchState
	currentDepth int
	nodeCount    uint64
	bestScores   [][]score.Score // per depth, ascending
	lowerBound   []score.Score   // per depth
	latest       []*SearchResultInfo
}

// SearchMPV runs the parallel multi-PV search and returns the final
// top-K list, best first. Incremental top-K snapshots are delivered
// through onUpdate, serialized under the driver mutex.
func SearchMPV(pos *board.Position, maxDepth, maxPVs, numWorkers int,
	tt *TranspositionTable, history *MoveHistory, stop *atomic.Bool,
	evalParams *EvalParams, onUpdate func([]*SearchResultInfo)) ([]*SearchResultInfo, error) {

	if maxDepth < 1 {
		return nil, errors.New("max depth must be at least 1")
	}
	if maxPVs < 1 {
		return nil, errors.New("max pvs must be at least 1")
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	if onUpdate == nil {
		onUpdate = func([]*SearchResultInfo) {}
	}

	d := &mpvDriver{
		pos:          pos.Copy(),
		maxDepth:     maxDepth,
		maxPVs:       maxPVs,
		numWorkers:   numWorkers,
		tt:           tt,
		history:      history,
		stop:         stop,
		evalParams:   evalParams,
		onUpdate:     onUpdate,
		player:       pos.SideToMove,
		currentDepth: 1,
	}
	return d.run()
}

func (d *mpvDriver) run() ([]*SearchResultInfo, error) {
	d.start = time.Now()

	legal := d.pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		d.legalMoves = append(d.legalMoves, &moveSearchState{
			m:         legal.Get(i),
			nextDepth: 1,
			lastScore: atMost(score.Max),
		})
	}
	if len(d.legalMoves) == 0 {
		d.onUpdate(nil)
		return nil, ErrNoLegalMoves
	}

	d.bestScores = make([][]score.Score, d.maxDepth+1)
	d.lowerBound = make([]score.Score, d.maxDepth+1)
	for i := range d.lowerBound {
		d.lowerBound[i] = score.Min
	}

	var g errgroup.Group
	for i := 0; i < d.numWorkers; i++ {
		g.Go(func() error {
			d.runWorker()
			return nil
		})
	}
	g.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.latest) == 0 {
		return nil, ErrNoMove
	}
	return d.latest, nil
}

// selectWork picks the next job: among not-busy, not-done moves whose
// next depth is within the driver's current depth, the one with the
// lowest completed depth, ties broken by lowest score, so the weakest
// information is refined first. When nothing qualifies the current
// depth advances, once, if any move still has work left.
func (d *mpvDriver) selectWork(canBumpDepth bool) *moveSearchState {
	higherPri := func(s1, s2 *moveSearchState) bool {
		switch {
		case s1.lastResult == nil && s2.lastResult == nil:
			return false
		case s1.lastResult == nil:
			return true
		case s2.lastResult == nil:
			return false
		case s1.lastResult.Depth != s2.lastResult.Depth:
			return s1.lastResult.Depth < s2.lastResult.Depth
		case s1.lastResult.Score != s2.lastResult.Score:
			return s1.lastResult.Score < s2.lastResult.Score
		default:
			return false
		}
	}

	var selected *moveSearchState
	hasNotTaken := false
	for _, m := range d.legalMoves {
		if m.taken {
			continue
		}
		hasNotTaken = true
		if m.nextDepth > d.currentDepth {
			continue
		}
		if selected == nil || higherPri(m, selected) {
			selected = m
		}
	}

	if selected == nil && canBumpDepth && hasNotTaken && d.currentDepth < d.maxDepth {
		d.currentDepth++
		return d.selectWork(false)
	}
	if selected != nil {
		selected.taken = true
	}
	return selected
}

type mpvJob struct {
	state      *moveSearchState
	depth      int
	lowerBound score.Score
}

func (d *mpvDriver) nextJob() (mpvJob, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.currentDepth > d.maxDepth {
		return mpvJob{}, false
	}
	state := d.selectWork(true)
	if state == nil {
		return mpvJob{}, false
	}
	depth := state.nextDepth
	state.nextDepth++
	return mpvJob{state: state, depth: depth, lowerBound: d.lowerBound[depth]}, true
}

// runWorker executes jobs until the driver is done or stopped. Each job
// is one root move searched at one depth from the position after that
// move, with the window narrowed by the current K-th best score.
func (d *mpvDriver) runWorker() {
	pos := d.pos.Copy()
	for {
		if d.stop.Load() {
			return
		}
		job, ok := d.nextJob()
		if !ok {
			return
		}

		m := job.state.m
		mi := pos.MakeMove(m)
		core := NewSearchCore(pos, d.tt, d.history, nil, false, d.stop, d.evalParams)
		pos.UnmakeMove(m, mi)

		result, err := core.SearchOneDepth(job.depth, score.Min, job.lowerBound.Neg())
		if err != nil || result == nil {
			// Cancelled; leave the move marked taken so no one retries
			// a stopping search.
			return
		}

		// Flip into the root's perspective and account the root move.
		rootScore := result.Score.Neg().IncMateMoves(1)
		pv := make([]board.Move, 0, len(result.PV)+1)
		pv = append(pv, m)
		pv = append(pv, result.PV...)

		d.mu.Lock()
		job.state.taken = false
		d.nodeCount += result.Nodes

		d.bestScores[job.depth] = insertSorted(d.bestScores[job.depth], rootScore)
		d.updateResult(job.state, rootScore, pv, job.depth, job.lowerBound)
		if len(d.bestScores[job.depth]) > d.maxPVs {
			d.bestScores[job.depth] = d.bestScores[job.depth][1:]
		}
		if len(d.bestScores[job.depth]) == d.maxPVs {
			d.lowerBound[job.depth] = d.bestScores[job.depth][0].Sub(score.OnePawn)
		}
		d.mu.Unlock()
	}
}

func insertSorted(scores []score.Score, s score.Score) []score.Score {
	idx := sort.Search(len(scores), func(i int) bool { return scores[i] >= s })
	scores = append(scores, score.Zero)
	copy(scores[idx+1:], scores[idx:])
	scores[idx] = s
	return scores
}

// updateResult records a finished job and emits the current top-K.
// Caller holds the driver mutex.
func (d *mpvDriver) updateResult(state *moveSearchState, s score.Score, pv []board.Move, depth int, lowerBound score.Score) {
	state.lastResult = &SearchResultInfo{
		Move:    state.m,
		PV:      pv,
		Score:   s,
		Nodes:   d.nodeCount,
		Depth:   depth,
		Elapsed: time.Since(d.start),
	}
	if s <= lowerBound {
		state.lastScore = atMost(lowerBound)
	} else {
		state.lastScore = exactly(s)
	}

	sorted := make([]*moveSearchState, len(d.legalMoves))
	copy(sorted, d.legalMoves)
	d.sortMoves(sorted)

	results := make([]*SearchResultInfo, 0, d.maxPVs)
	for _, m := range sorted {
		if m.lastResult == nil || !m.lastScore.exact {
			continue
		}
		r := m.lastResult.Clone()
		r.FlipForColor(d.player)
		results = append(results, r)
		if len(results) >= d.maxPVs {
			break
		}
	}
	if len(results) > 0 {
		d.latest = make([]*SearchResultInfo, 0, len(results))
		for _, r := range results {
			d.latest = append(d.latest, r.Clone())
		}
	}
	d.onUpdate(results)
}

// sortMoves orders root moves best first: exact scores before bounded
// ones, then by score, then by depth, then by a stable move order.
func (d *mpvDriver) sortMoves(moves []*moveSearchState) {
	sort.SliceStable(moves, func(i, j int) bool {
		m1, m2 := moves[i], moves[j]
		switch {
		case !m1.lastScore.exact:
			return false
		case !m2.lastScore.exact:
			return true
		}
		s1, s2 := m1.lastScore.value, m2.lastScore.value
		if s1 != s2 {
			return s1 > s2
		}
		switch {
		case m1.lastResult == nil:
			return false
		case m2.lastResult == nil:
			return true
		case m1.lastResult.Depth != m2.lastResult.Depth:
			return m1.lastResult.Depth > m2.lastResult.Depth
		default:
			return m1.m < m2.m
		}
	})
}
