// Command mako-analyze runs the engine on a position and prints the
// analysis: either the single best line or the top-K variations.
package main

import (
	"flag"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/book"
	"github.com/makochess/mako/internal/engine"
)

func main() {
	fen := flag.String("fen", board.StartFEN, "position to analyze (FEN)")
	depth := flag.Int("depth", 8, "maximum search depth")
	pvs := flag.Int("pvs", 1, "number of principal variations")
	workers := flag.Int("workers", runtime.NumCPU(), "multi-PV worker threads")
	maxTime := flag.Duration("time", 0, "time limit (0 = none)")
	bookDir := flag.String("book", "", "opening book directory (badger store)")
	pretty := flag.Bool("pretty", true, "human-readable log output")
	flag.Parse()

	var logWriter = zerolog.New(os.Stderr).With().Timestamp().Logger()
	if *pretty {
		logWriter = logWriter.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	log := logWriter

	pos, err := board.ParseFEN(*fen)
	if err != nil {
		log.Fatal().Err(err).Msg("bad position")
	}

	opts := &engine.Options{}
	if *bookDir != "" {
		store, err := book.OpenStore(*bookDir)
		if err != nil {
			log.Fatal().Err(err).Msg("open book")
		}
		defer store.Close()
		opts.Book = store.Lookup
	}

	eng := engine.New(opts)
	defer eng.Close()

	log.Info().Str("fen", *fen).Int("depth", *depth).Int("pvs", *pvs).Msg("analyzing")

	if *pvs <= 1 {
		analyzeSingle(log, eng, pos, *depth, *maxTime)
	} else {
		analyzeMPV(log, eng, pos, *depth, *pvs, *workers, *maxTime)
	}
}

func analyzeSingle(log zerolog.Logger, eng *engine.Engine, pos *board.Position, depth int, maxTime time.Duration) {
	onUpdate := func(r *engine.SearchResultInfo) {
		log.Info().
			Int("depth", r.Depth).
			Str("score", r.Score.String()).
			Uint64("nodes", r.Nodes).
			Dur("elapsed", r.Elapsed).
			Str("pv", pvString(pos, r.PV)).
			Msg("depth complete")
	}

	result, err := eng.FindBestMove(pos, depth, maxTime, onUpdate)
	if err != nil {
		log.Fatal().Err(err).Msg("search failed")
	}
	log.Info().
		Str("best", result.Move.ToSAN(pos)).
		Str("score", result.Score.String()).
		Uint64("nodes", result.Nodes).
		Dur("elapsed", result.Elapsed).
		Msg("done")
}

func analyzeMPV(log zerolog.Logger, eng *engine.Engine, pos *board.Position, depth, pvs, workers int, maxTime time.Duration) {
	onUpdate := func(rs []*engine.SearchResultInfo) {
		for i, r := range rs {
			log.Info().
				Int("rank", i+1).
				Int("depth", r.Depth).
				Str("move", r.Move.ToSAN(pos)).
				Str("score", r.Score.String()).
				Str("pv", pvString(pos, r.PV)).
				Msg("update")
		}
	}

	results, err := eng.FindBestMovesMPV(pos, depth, pvs, workers, maxTime, onUpdate)
	if err != nil {
		log.Fatal().Err(err).Msg("search failed")
	}
	for i, r := range results {
		log.Info().
			Int("rank", i+1).
			Int("depth", r.Depth).
			Str("move", r.Move.ToSAN(pos)).
			Str("score", r.Score.String()).
			Uint64("nodes", r.Nodes).
			Msg("final")
	}
}

func pvString(pos *board.Position, pv []board.Move) string {
	return strings.Join(board.MovesToSAN(pos, pv), " ")
}
