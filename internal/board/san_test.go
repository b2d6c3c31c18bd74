package board

import (
	"errors"
	"testing"
)

// TestSANRoundTrip checks parse(pretty(m)) == m for every legal move in
// a set of positions covering disambiguation, castling, promotion and
// en passant.
func TestSANRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"n1n5/PPPk4/8/8/8/8/4Kppp/5N1N b - - 0 1",
		"rnbqkbnr/ppp1pppp/8/8/3pP3/8/PPPP1PP1/RNBQKBNR b KQkq e3 0 3",
		"3r3r/4k3/8/R7/8/8/4K3/R6R w - - 0 1", // rook disambiguation by file (a1/h1) and by rank (a1/a5)
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		moves := pos.GenerateLegalMoves()
		for i := 0; i < moves.Len(); i++ {
			m := moves.Get(i)
			san := m.ToSAN(pos)
			parsed, err := ParseSAN(san, pos)
			if err != nil {
				t.Errorf("%q: ParseSAN(%q) for %s: %v", fen, san, m, err)
				continue
			}
			if parsed != m {
				t.Errorf("%q: round trip %s -> %q -> %s", fen, m, san, parsed)
			}
		}
	}
}

func TestSANAnnotationsIgnored(t *testing.T) {
	pos := NewPosition()
	for _, s := range []string{"e4!", "e4?", "e4!?", "e4"} {
		m, err := ParseSAN(s, pos)
		if err != nil {
			t.Errorf("ParseSAN(%q): %v", s, err)
			continue
		}
		if m.From() != E2 || m.To() != E4 {
			t.Errorf("ParseSAN(%q) = %s", s, m)
		}
	}
}

func TestSANAmbiguous(t *testing.T) {
	// Knights on b1 and f3 can both reach d2; "Nd2" without
	// disambiguation is ambiguous.
	pos, err := ParseFEN("4k3/8/8/8/8/5N2/8/1N2K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseSAN("Nd2", pos); !errors.Is(err, ErrAmbiguousMove) {
		t.Errorf("Nd2 should be ambiguous, got %v", err)
	}
	if _, err := ParseSAN("Nbd2", pos); err != nil {
		t.Errorf("Nbd2 should resolve: %v", err)
	}
}

func TestSANNoMatch(t *testing.T) {
	pos := NewPosition()
	for _, s := range []string{"Qe4", "e5e6", "Kd4", "zz", ""} {
		if _, err := ParseSAN(s, pos); !errors.Is(err, ErrNoMatchingMove) {
			t.Errorf("ParseSAN(%q) should report no matching move, got %v", s, err)
		}
	}
}

func TestSANCheckAndMateSuffix(t *testing.T) {
	pos, err := ParseFEN("6k1/5ppp/8/8/8/8/8/4R1K1 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m, err := ParseSAN("Re8", pos)
	if err != nil {
		t.Fatal(err)
	}
	if san := m.ToSAN(pos); san != "Re8#" {
		t.Errorf("back rank mate rendered as %q", san)
	}

	pos2, err := ParseFEN("4k3/8/8/8/8/8/8/R5K1 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m2, err := ParseXBoardMove("a1a8", pos2)
	if err != nil {
		t.Fatal(err)
	}
	if san := m2.ToSAN(pos2); san != "Ra8+" {
		t.Errorf("check rendered as %q", san)
	}
}

func TestXBoardMoveParsing(t *testing.T) {
	pos, err := ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w K - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in     string
		castle bool
	}{
		{"O-O", true},
		{"0-0", true},
		{"e1g1", true},
		{"a2a3", false},
	}
	for _, tc := range tests {
		m, err := ParseXBoardMove(tc.in, pos)
		if err != nil {
			t.Errorf("ParseXBoardMove(%q): %v", tc.in, err)
			continue
		}
		if m.IsCastling() != tc.castle {
			t.Errorf("ParseXBoardMove(%q): castle = %v, want %v", tc.in, m.IsCastling(), tc.castle)
		}
	}

	if _, err := ParseXBoardMove("e9e4", pos); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("bad square should report ErrInvalidMove")
	}

	promoPos, err := ParseFEN("8/P3k3/8/8/8/8/4K3/8 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m, err := ParseXBoardMove("a7a8q", promoPos)
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsPromotion() || m.Promotion() != Queen {
		t.Errorf("a7a8q should be a queen promotion, got %s", m)
	}
	// Bare a7a8 promotes to queen by default.
	m2, err := ParseXBoardMove("a7a8", promoPos)
	if err != nil {
		t.Fatal(err)
	}
	if !m2.IsPromotion() || m2.Promotion() != Queen {
		t.Errorf("bare promotion push should default to queen, got %s", m2)
	}
}
