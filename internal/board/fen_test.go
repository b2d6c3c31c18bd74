package board

import (
	"errors"
	"testing"
)

func TestFENRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"4k3/8/3K4/3Q4/8/8/8/8 w - - 0 1",
		"rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2",
		"1k6/2p5/p2qp3/p6p/2KPb2P/1P3r2/P1R5/R7 b - - 0 42",
	}
	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Errorf("ParseFEN(%q): %v", fen, err)
			continue
		}
		if got := pos.ToFEN(); got != fen {
			t.Errorf("round trip: got %q, want %q", got, fen)
		}
	}
}

func TestFENLenientTrailingFields(t *testing.T) {
	tests := []struct {
		fen      string
		castling CastlingRights
		ep       Square
		hmc      int
		fmn      int
	}{
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w", NoCastling, NoSquare, 0, 1},
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq", AllCastling, NoSquare, 0, 1},
		{"rnbqkbnr/ppp1pppp/8/3p4/8/8/PPPPPPPP/RNBQKBNR w KQkq d6", AllCastling, D6, 0, 1},
	}
	for _, tc := range tests {
		pos, err := ParseFEN(tc.fen)
		if err != nil {
			t.Errorf("ParseFEN(%q): %v", tc.fen, err)
			continue
		}
		if pos.CastlingRights != tc.castling {
			t.Errorf("%q: castling = %v, want %v", tc.fen, pos.CastlingRights, tc.castling)
		}
		if pos.EnPassant != tc.ep {
			t.Errorf("%q: ep = %v, want %v", tc.fen, pos.EnPassant, tc.ep)
		}
		if pos.HalfMoveClock != tc.hmc || pos.FullMoveNumber != tc.fmn {
			t.Errorf("%q: clocks = %d/%d, want %d/%d", tc.fen, pos.HalfMoveClock, pos.FullMoveNumber, tc.hmc, tc.fmn)
		}
	}
}

func TestFENErrors(t *testing.T) {
	bad := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", // missing side
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w",        // 7 ranks
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNZ w", // bad piece
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x", // bad side
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w XQkq", // bad castling
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq z9", // bad ep
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - x", // bad clock
		"8/8/8/8/8/8/8/8 w",         // no kings
		"P7/8/8/8/3kK3/8/8/8 w",     // pawn on rank 8
		"rnbqkbnr/ppppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w", // 9 squares in rank
	}
	for _, fen := range bad {
		if _, err := ParseFEN(fen); err == nil {
			t.Errorf("ParseFEN(%q) should fail", fen)
		} else if !errors.Is(err, ErrInvalidFen) {
			t.Errorf("ParseFEN(%q) error not wrapped as ErrInvalidFen: %v", fen, err)
		}
	}
}
