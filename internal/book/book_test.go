package book

import (
	"testing"

	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/score"
)

func TestResolvePV(t *testing.T) {
	pos := board.NewPosition()
	e := &Entry{
		BestMove: "e2e4",
		PV:       []string{"e2e4", "e7e5", "g1f3"},
		Eval:     score.OfCentiPawns(30),
		Depth:    12,
	}
	pv, ok := e.ResolvePV(pos)
	if !ok {
		t.Fatalf("valid entry did not resolve")
	}
	if len(pv) != 3 {
		t.Fatalf("pv length = %d, want 3", len(pv))
	}
	if pv[0].From() != board.E2 || pv[0].To() != board.E4 {
		t.Errorf("first move = %s", pv[0])
	}
}

func TestResolvePVRejectsIllegal(t *testing.T) {
	pos := board.NewPosition()
	tests := []*Entry{
		nil,
		{},
		{BestMove: "e2e5"},   // not a legal pawn move
		{BestMove: "zz"},     // unparseable
		{BestMove: "e7e5"},   // wrong side
	}
	for i, e := range tests {
		if _, ok := e.ResolvePV(pos); ok {
			t.Errorf("entry %d should not resolve", i)
		}
	}
}

func TestResolvePVTruncatesAtIllegalContinuation(t *testing.T) {
	pos := board.NewPosition()
	e := &Entry{
		BestMove: "e2e4",
		PV:       []string{"e2e4", "e7e5", "e5e4"}, // third move is illegal
	}
	pv, ok := e.ResolvePV(pos)
	if !ok {
		t.Fatalf("entry should resolve up to the bad move")
	}
	if len(pv) != 2 {
		t.Errorf("pv length = %d, want 2", len(pv))
	}
}

func TestInMemoryBook(t *testing.T) {
	b := New()
	if e, err := b.Lookup("nope"); err != nil || e != nil {
		t.Fatalf("miss should be clean: %v %v", e, err)
	}
	b.Add("somefen", &Entry{BestMove: "e2e4"})
	e, err := b.Lookup("somefen")
	if err != nil || e == nil || e.BestMove != "e2e4" {
		t.Fatalf("lookup failed: %+v %v", e, err)
	}
	if b.Len() != 1 {
		t.Errorf("Len = %d", b.Len())
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := OpenStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	fen := board.StartFEN
	entry := &Entry{
		BestMove: "d2d4",
		PV:       []string{"d2d4", "g8f6"},
		Eval:     score.OfCentiPawns(25),
		Depth:    18,
		Source:   "selfplay",
	}
	if err := store.Put(fen, entry); err != nil {
		t.Fatal(err)
	}

	got, err := store.Lookup(fen)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.BestMove != entry.BestMove || got.Eval != entry.Eval || got.Depth != entry.Depth {
		t.Errorf("round trip mismatch: %+v", got)
	}

	miss, err := store.Lookup("missing")
	if err != nil || miss != nil {
		t.Errorf("miss should be clean: %v %v", miss, err)
	}

	n, err := store.Len()
	if err != nil || n != 1 {
		t.Errorf("Len = %d, %v", n, err)
	}
}
