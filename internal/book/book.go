// Package book defines the opening-book contract the search consults
// at shallow plies, plus two implementations: an in-memory book and a
// badger-backed persistent store.
package book

import (
	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/score"
)

// Entry is one book record for a position: the recommended move, the
// line behind it and its evaluation from White's perspective, with the
// depth it was analyzed to.
type Entry struct {
	BestMove string      `json:"best_move"`      // long algebraic
	PV       []string    `json:"pv"`             // long algebraic line
	Eval     score.Score `json:"eval_milli"`     // milli-pawns, White POV
	Depth    int         `json:"depth"`          // analysis depth
	Source   string      `json:"source,omitempty"`
}

// LookupFunc resolves a FEN to a book entry. A nil entry with a nil
// error is a clean miss. The engine treats returned moves as trusted
// but still validates them against the position before use.
type LookupFunc func(fen string) (*Entry, error)

// ResolvePV parses and validates the entry's line against the
// position. It returns false when the entry's best move is missing,
// unparseable or illegal; subsequent PV moves are kept only as far as
// they stay legal.
func (e *Entry) ResolvePV(pos *board.Position) ([]board.Move, bool) {
	if e == nil || e.BestMove == "" {
		return nil, false
	}
	first, err := board.ParseXBoardMove(e.BestMove, pos)
	if err != nil || !isLegal(pos, first) {
		return nil, false
	}

	moves := []board.Move{first}
	p := pos.Copy()
	p.MakeMove(first)
	for _, s := range e.PV {
		if len(moves) == 1 && s == e.BestMove {
			continue // some books repeat the best move as the PV head
		}
		m, err := board.ParseXBoardMove(s, p)
		if err != nil || !isLegal(p, m) {
			break
		}
		moves = append(moves, m)
		p.MakeMove(m)
	}
	return moves, true
}

func isLegal(pos *board.Position, m board.Move) bool {
	legal := pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i).SameSquares(m) {
			return true
		}
	}
	return false
}

// Book is an in-memory opening book keyed by FEN.
type Book struct {
	entries map[string]*Entry
}

// New creates an empty book.
func New() *Book {
	return &Book{entries: make(map[string]*Entry)}
}

// Add records an entry for a FEN, replacing any previous one.
func (b *Book) Add(fen string, e *Entry) {
	b.entries[fen] = e
}

// Lookup implements LookupFunc.
func (b *Book) Lookup(fen string) (*Entry, error) {
	return b.entries[fen], nil
}

// Len returns the number of positions in the book.
func (b *Book) Len() int {
	return len(b.entries)
}
