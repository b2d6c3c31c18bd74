package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/book"
	"github.com/makochess/mako/internal/score"
)

// Request validation and terminal errors surfaced at the engine
// boundary.
var (
	ErrDepthOutOfRange   = errors.New("search depth out of range")
	ErrPVCountOutOfRange = errors.New("pv count out of range")
	ErrNoMove            = errors.New("engine produced no move")
)

// MaxDepth bounds search requests.
const MaxDepth = 512

// searchWindow is the aspiration half-width around the previous
// iteration's score.
var searchWindow = score.OfMilliPawns(554)

// Options configures an engine instance.
type Options struct {
	// CacheSize is the transposition-table bucket count per side.
	CacheSize int
	// ClearCacheBeforeMove drops the table and history before every
	// request instead of carrying them across moves.
	ClearCacheBeforeMove bool
	// Book, when set, is consulted at shallow plies.
	Book book.LookupFunc
	// Eval overrides the default evaluation parameters.
	Eval EvalParams
}

const defaultCacheSize = 1 << 20

func (o *Options) withDefaults() Options {
	out := Options{}
	if o != nil {
		out = *o
	}
	if out.CacheSize <= 0 {
		out.CacheSize = defaultCacheSize
	}
	return out
}

// FutureResult pairs a pending result with the stop flag that cancels
// the computation producing it.
type FutureResult[T any] struct {
	stop *atomic.Bool
	ch   chan outcome[T]

	done   bool
	result outcome[T]
}

type outcome[T any] struct {
	value T
	err   error
}

func newFuture[T any]() *FutureResult[T] {
	return &FutureResult[T]{
		stop: &atomic.Bool{},
		ch:   make(chan outcome[T], 1),
	}
}

// Stop raises the cancellation flag without waiting.
func (f *FutureResult[T]) Stop() {
	f.stop.Store(true)
}

// Wait blocks until the result is available.
func (f *FutureResult[T]) Wait() (T, error) {
	if !f.done {
		f.result = <-f.ch
		f.done = true
	}
	return f.result.value, f.result.err
}

// WaitAtMost waits up to d for the result; on timeout it raises the
// stop flag and then blocks until the worker hands over whatever it
// has, so the computation has fully released its resources when
// WaitAtMost returns.
func (f *FutureResult[T]) WaitAtMost(d time.Duration) (T, error) {
	if f.done {
		return f.result.value, f.result.err
	}
	select {
	case r := <-f.ch:
		f.result = r
		f.done = true
	case <-time.After(d):
		f.stop.Store(true)
		f.result = <-f.ch
		f.done = true
	}
	return f.result.value, f.result.err
}

// Requests processed by the engine's background goroutine, in FIFO
// order.
type requestSearch struct {
	stop     *atomic.Bool
	future   *FutureResult[*SearchResultInfo]
	board    *board.Position
	maxDepth int
	onUpdate func(*SearchResultInfo)
}

type requestMPV struct {
	stop       *atomic.Bool
	future     *FutureResult[[]*SearchResultInfo]
	board      *board.Position
	maxDepth   int
	maxPVs     int
	numWorkers int
	onUpdate   func([]*SearchResultInfo)
}

type requestMPVSP struct {
	stop     *atomic.Bool
	future   *FutureResult[[]*SearchResultInfo]
	board    *board.Position
	maxDepth int
	maxPVs   int
	onUpdate func([]*SearchResultInfo)
}

// Engine owns one background worker goroutine that serves search
// requests in order. The transposition table and move history live on
// that goroutine and persist across requests unless
// ClearCacheBeforeMove is set.
type Engine struct {
	opts     Options
	requests chan any

	stopCurrent func()
	closed      chan struct{}
}

// New starts an engine worker.
func New(opts *Options) *Engine {
	e := &Engine{
		opts:     opts.withDefaults(),
		requests: make(chan any, 16),
		closed:   make(chan struct{}),
	}
	go e.runBackground()
	return e
}

// Close cancels the active search, drains the queue and waits for the
// worker to exit.
func (e *Engine) Close() {
	if e.stopCurrent != nil {
		e.stopCurrent()
	}
	close(e.requests)
	<-e.closed
}

func (e *Engine) runBackground() {
	defer close(e.closed)

	tt := NewTranspositionTable(e.opts.CacheSize)
	history := NewMoveHistory()

	for req := range e.requests {
		if e.opts.ClearCacheBeforeMove {
			tt.Clear()
			history.Clear()
		}
		switch msg := req.(type) {
		case requestSearch:
			r, err := pvSearch(msg.board, msg.maxDepth, tt, history, e.opts.Book,
				msg.stop, &e.opts.Eval, msg.onUpdate)
			msg.future.ch <- outcome[*SearchResultInfo]{value: r, err: err}
		case requestMPV:
			r, err := SearchMPV(msg.board, msg.maxDepth, msg.maxPVs, msg.numWorkers,
				tt, history, msg.stop, &e.opts.Eval, msg.onUpdate)
			msg.future.ch <- outcome[[]*SearchResultInfo]{value: r, err: err}
		case requestMPVSP:
			r, err := mpvSearchSP(msg.board, msg.maxDepth, msg.maxPVs, tt, history,
				e.opts.Book, msg.stop, &e.opts.Eval, msg.onUpdate)
			msg.future.ch <- outcome[[]*SearchResultInfo]{value: r, err: err}
		}
	}
}

func validDepth(maxDepth int) error {
	if maxDepth < 1 || maxDepth > MaxDepth {
		return fmt.Errorf("%w: %d", ErrDepthOutOfRange, maxDepth)
	}
	return nil
}

// StartSearch queues a single-PV search and returns its future. Any
// search already in flight is cancelled first.
func (e *Engine) StartSearch(pos *board.Position, maxDepth int,
	onUpdate func(*SearchResultInfo)) (*FutureResult[*SearchResultInfo], error) {
	if err := validDepth(maxDepth); err != nil {
		return nil, err
	}
	f := newFuture[*SearchResultInfo]()
	e.replaceCurrent(f.stop)
	e.requests <- requestSearch{
		stop:     f.stop,
		future:   f,
		board:    pos.Copy(),
		maxDepth: maxDepth,
		onUpdate: onUpdate,
	}
	return f, nil
}

// StartMPVSearch queues a parallel multi-PV search.
func (e *Engine) StartMPVSearch(pos *board.Position, maxDepth, maxPVs, numWorkers int,
	onUpdate func([]*SearchResultInfo)) (*FutureResult[[]*SearchResultInfo], error) {
	if err := validDepth(maxDepth); err != nil {
		return nil, err
	}
	if maxPVs < 1 {
		return nil, fmt.Errorf("%w: %d", ErrPVCountOutOfRange, maxPVs)
	}
	f := newFuture[[]*SearchResultInfo]()
	e.replaceCurrent(f.stop)
	e.requests <- requestMPV{
		stop:       f.stop,
		future:     f,
		board:      pos.Copy(),
		maxDepth:   maxDepth,
		maxPVs:     maxPVs,
		numWorkers: numWorkers,
		onUpdate:   onUpdate,
	}
	return f, nil
}

// StartMPVSearchSP queues a single-threaded multi-PV search.
func (e *Engine) StartMPVSearchSP(pos *board.Position, maxDepth, maxPVs int,
	onUpdate func([]*SearchResultInfo)) (*FutureResult[[]*SearchResultInfo], error) {
	if err := validDepth(maxDepth); err != nil {
		return nil, err
	}
	if maxPVs < 1 {
		return nil, fmt.Errorf("%w: %d", ErrPVCountOutOfRange, maxPVs)
	}
	f := newFuture[[]*SearchResultInfo]()
	e.replaceCurrent(f.stop)
	e.requests <- requestMPVSP{
		stop:     f.stop,
		future:   f,
		board:    pos.Copy(),
		maxDepth: maxDepth,
		maxPVs:   maxPVs,
		onUpdate: onUpdate,
	}
	return f, nil
}

func (e *Engine) replaceCurrent(stop *atomic.Bool) {
	if e.stopCurrent != nil {
		e.stopCurrent()
	}
	e.stopCurrent = func() { stop.Store(true) }
}

// FindBestMove runs a single-PV search and waits, up to maxTime when
// set (zero means no limit).
func (e *Engine) FindBestMove(pos *board.Position, maxDepth int, maxTime time.Duration,
	onUpdate func(*SearchResultInfo)) (*SearchResultInfo, error) {
	f, err := e.StartSearch(pos, maxDepth, onUpdate)
	if err != nil {
		return nil, err
	}
	if maxTime > 0 {
		return f.WaitAtMost(maxTime)
	}
	return f.Wait()
}

// FindBestMovesMPV runs the parallel multi-PV search and waits.
func (e *Engine) FindBestMovesMPV(pos *board.Position, maxDepth, maxPVs, numWorkers int,
	maxTime time.Duration, onUpdate func([]*SearchResultInfo)) ([]*SearchResultInfo, error) {
	f, err := e.StartMPVSearch(pos, maxDepth, maxPVs, numWorkers, onUpdate)
	if err != nil {
		return nil, err
	}
	if maxTime > 0 {
		return f.WaitAtMost(maxTime)
	}
	return f.Wait()
}

// FindBestMovesMPVSP runs the single-threaded multi-PV search and
// waits.
func (e *Engine) FindBestMovesMPVSP(pos *board.Position, maxDepth, maxPVs int,
	maxTime time.Duration, onUpdate func([]*SearchResultInfo)) ([]*SearchResultInfo, error) {
	f, err := e.StartMPVSearchSP(pos, maxDepth, maxPVs, onUpdate)
	if err != nil {
		return nil, err
	}
	if maxTime > 0 {
		return f.WaitAtMost(maxTime)
	}
	return f.Wait()
}

// pvSearch is the iterative-deepening loop: each depth is searched in
// an aspiration window around the previous score and re-searched at
// full width when the score lands outside it. The callback fires after
// every completed depth with a retainable clone.
func pvSearch(pos *board.Position, maxDepth int, tt *TranspositionTable, history *MoveHistory,
	bookFn book.LookupFunc, stop *atomic.Bool, evalParams *EvalParams,
	onUpdate func(*SearchResultInfo)) (*SearchResultInfo, error) {

	start := time.Now()
	var nodeCount uint64
	var result *SearchResultInfo

	core := NewSearchCore(pos, tt, history, bookFn, true, stop, evalParams)

	for d := 1; d <= maxDepth; d++ {
		r, err := searchDepthAspirated(core, d, result)
		if err != nil {
			return nil, err
		}
		if r == nil {
			break // cancelled
		}
		if r.Move == board.NoMove {
			return nil, ErrNoMove
		}

		nodeCount += r.Nodes
		result = &SearchResultInfo{
			Move:    r.Move,
			PV:      r.PV,
			Score:   r.Score,
			Nodes:   nodeCount,
			Depth:   d,
			Elapsed: time.Since(start),
		}
		if onUpdate != nil {
			clone := result.Clone()
			clone.FlipForColor(pos.SideToMove)
			onUpdate(clone)
		}
		if result.Score.IsMate() {
			break // forced mate confirmed, deeper search cannot improve
		}
		if stop.Load() {
			break
		}
	}

	if result == nil {
		return nil, ErrNoMove
	}
	final := result.Clone()
	final.FlipForColor(pos.SideToMove)
	return final, nil
}

// searchDepthAspirated searches one depth inside the aspiration window
// derived from the previous result. A miss re-searches once at full
// width.
func searchDepthAspirated(core *SearchCore, depth int, prev *SearchResultInfo) (*SearchResultOneDepth, error) {
	lower, upper := score.Min, score.Max
	if prev != nil {
		if prev.Score.IsMate() {
			lower = prev.Score.DecMateMoves(2)
			upper = prev.Score.IncMateMoves(2)
		} else {
			lower = prev.Score.Sub(searchWindow)
			upper = prev.Score.Add(searchWindow)
		}
	}

	r, err := core.SearchOneDepth(depth, lower, upper)
	if err != nil || r == nil {
		return r, err
	}
	if r.Score > lower && r.Score < upper {
		return r, nil
	}
	return core.SearchOneDepth(depth, score.Min, score.Max)
}

// mpvSearchSP iterates the multi-PV root search on a single thread,
// emitting the full top-K after every depth.
func mpvSearchSP(pos *board.Position, maxDepth, maxPVs int, tt *TranspositionTable,
	history *MoveHistory, bookFn book.LookupFunc, stop *atomic.Bool, evalParams *EvalParams,
	onUpdate func([]*SearchResultInfo)) ([]*SearchResultInfo, error) {

	start := time.Now()
	var nodeCount uint64
	var results []*SearchResultInfo

	core := NewSearchCore(pos, tt, history, bookFn, false, stop, evalParams)

	for d := 1; d <= maxDepth; d++ {
		rs, err := core.SearchOneDepthMPV(d, maxPVs, score.Min, score.Max)
		if err != nil {
			return nil, err
		}
		if rs == nil {
			break // cancelled
		}

		depthResults := make([]*SearchResultInfo, 0, len(rs))
		elapsed := time.Since(start)
		for i := range rs {
			if rs[i].Move == board.NoMove {
				return nil, ErrNoMove
			}
			nodeCount += rs[i].Nodes
			depthResults = append(depthResults, &SearchResultInfo{
				Move:    rs[i].Move,
				PV:      rs[i].PV,
				Score:   rs[i].Score,
				Nodes:   nodeCount,
				Depth:   d,
				Elapsed: elapsed,
			})
		}
		results = depthResults

		if onUpdate != nil {
			clones := make([]*SearchResultInfo, 0, len(results))
			for _, r := range results {
				clone := r.Clone()
				clone.FlipForColor(pos.SideToMove)
				clones = append(clones, clone)
			}
			onUpdate(clones)
		}
		if stop.Load() {
			break
		}
	}

	if len(results) == 0 {
		return nil, ErrNoMove
	}
	for _, r := range results {
		r.FlipForColor(pos.SideToMove)
	}
	return results, nil
}

// InProcess is a synchronous engine variant: searches run on the
// caller's goroutine against a private cache, with an optional
// deadline.
type InProcess struct {
	opts    Options
	tt      *TranspositionTable
	history *MoveHistory
}

// NewInProcess creates a synchronous engine.
func NewInProcess(opts *Options) *InProcess {
	o := opts.withDefaults()
	return &InProcess{
		opts:    o,
		tt:      NewTranspositionTable(o.CacheSize),
		history: NewMoveHistory(),
	}
}

// ClearCache drops the transposition table.
func (e *InProcess) ClearCache() {
	e.tt.Clear()
}

// FindBestMove searches synchronously. When maxTime is positive the
// stop flag is raised after that long and the search returns its best
// partial result.
func (e *InProcess) FindBestMove(pos *board.Position, maxDepth int, maxTime time.Duration,
	onUpdate func(*SearchResultInfo)) (*SearchResultInfo, error) {
	if err := validDepth(maxDepth); err != nil {
		return nil, err
	}
	stop := &atomic.Bool{}
	if maxTime > 0 {
		timer := time.AfterFunc(maxTime, func() { stop.Store(true) })
		defer timer.Stop()
	}
	if e.opts.ClearCacheBeforeMove {
		e.tt.Clear()
		e.history.Clear()
	}
	return pvSearch(pos, maxDepth, e.tt, e.history, e.opts.Book, stop, &e.opts.Eval, onUpdate)
}
