package board

import (
	"errors"
	"fmt"
	"strings"
)

// SAN parse errors.
var (
	ErrAmbiguousMove  = errors.New("ambiguous move")
	ErrNoMatchingMove = errors.New("no matching move")
)

// ToSAN renders the move in Standard Algebraic Notation, with file,
// rank or full-square disambiguation as needed and a trailing + or #.
func (m Move) ToSAN(pos *Position) string {
	if m == NoMove {
		return "-"
	}
	from, to := m.From(), m.To()
	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return m.String()
	}

	var sb strings.Builder
	if m.IsCastling() {
		if to > from {
			sb.WriteString("O-O")
		} else {
			sb.WriteString("O-O-O")
		}
		sb.WriteString(checkSuffix(pos, m))
		return sb.String()
	}

	pt := piece.Type()
	isCapture := m.IsCapture(pos)

	if pt != Pawn {
		sb.WriteByte(pt.Letter())
		sb.WriteString(disambiguation(pos, m, pt))
	} else if isCapture {
		sb.WriteByte('a' + byte(from.File()))
	}
	if isCapture {
		sb.WriteByte('x')
	}
	sb.WriteString(to.String())
	if m.IsPromotion() {
		sb.WriteByte('=')
		sb.WriteByte(m.Promotion().Letter())
	}
	sb.WriteString(checkSuffix(pos, m))
	return sb.String()
}

func checkSuffix(pos *Position, m Move) string {
	after := pos.Copy()
	undo := after.MakeMove(m)
	if !undo.Valid {
		return ""
	}
	if after.IsCheckmate() {
		return "#"
	}
	if after.InCheck() {
		return "+"
	}
	return ""
}

func disambiguation(pos *Position, m Move, pt PieceType) string {
	from, to := m.From(), m.To()
	pieces := pos.Pieces[pos.SideToMove][pt]

	sameFile, sameRank, other := false, false, false
	all := pos.GenerateLegalMoves()
	for i := 0; i < all.Len(); i++ {
		cand := all.Get(i)
		if cand.To() != to || cand.From() == from || !pieces.IsSet(cand.From()) {
			continue
		}
		other = true
		if cand.From().File() == from.File() {
			sameFile = true
		}
		if cand.From().Rank() == from.Rank() {
			sameRank = true
		}
	}

	switch {
	case !other:
		return ""
	case !sameFile:
		return string('a' + byte(from.File()))
	case !sameRank:
		return string('1' + byte(from.Rank()))
	default:
		return from.String()
	}
}

// ParseSAN parses a SAN move for the position. Trailing annotations
// (!, ?, +, #) are ignored. It fails with ErrAmbiguousMove when more
// than one legal move matches and ErrNoMatchingMove when none does.
func ParseSAN(s string, pos *Position) (Move, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "!?+#")
	if s == "" {
		return NoMove, fmt.Errorf("%w: empty move string", ErrNoMatchingMove)
	}

	if s == "O-O" || s == "0-0" || s == "O-O-O" || s == "0-0-0" {
		return parseCastleWord(s, pos)
	}

	var promo PieceType = NoPieceType
	if idx := strings.IndexByte(s, '='); idx >= 0 {
		if idx+1 >= len(s) {
			return NoMove, fmt.Errorf("%w: missing promotion piece", ErrNoMatchingMove)
		}
		promo = PieceTypeFromLetter(s[idx+1])
		if promo == NoPieceType || promo == Pawn || promo == King {
			return NoMove, fmt.Errorf("%w: bad promotion piece %q", ErrNoMatchingMove, s[idx+1])
		}
		s = s[:idx]
	}

	isCapture := strings.ContainsRune(s, 'x')
	s = strings.ReplaceAll(s, "x", "")

	pt := Pawn
	if len(s) > 0 && s[0] >= 'A' && s[0] <= 'Z' {
		pt = PieceTypeFromLetter(s[0])
		if pt == NoPieceType {
			return NoMove, fmt.Errorf("%w: bad piece letter %q", ErrNoMatchingMove, s[0])
		}
		s = s[1:]
	}

	if len(s) < 2 {
		return NoMove, fmt.Errorf("%w: missing destination", ErrNoMatchingMove)
	}
	dest, err := ParseSquare(s[len(s)-2:])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrNoMatchingMove, err)
	}
	s = s[:len(s)-2]

	fromFile, fromRank := -1, -1
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'h':
			fromFile = int(c - 'a')
		case c >= '1' && c <= '8':
			fromRank = int(c - '1')
		default:
			return NoMove, fmt.Errorf("%w: bad disambiguation %q", ErrNoMatchingMove, c)
		}
	}

	var found Move
	matches := 0
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.To() != dest {
			continue
		}
		from := m.From()
		if pos.PieceAt(from).Type() != pt {
			continue
		}
		if fromFile >= 0 && from.File() != fromFile {
			continue
		}
		if fromRank >= 0 && from.Rank() != fromRank {
			continue
		}
		if isCapture && !m.IsCapture(pos) {
			continue
		}
		if promo != NoPieceType {
			if !m.IsPromotion() || m.Promotion() != promo {
				continue
			}
		} else if m.IsPromotion() && m.Promotion() != Queen {
			// Without an explicit =X only count one promotion choice.
			continue
		}
		found = m
		matches++
	}

	switch matches {
	case 0:
		return NoMove, fmt.Errorf("%w: %q", ErrNoMatchingMove, s)
	case 1:
		return found, nil
	default:
		return NoMove, fmt.Errorf("%w: %q", ErrAmbiguousMove, s)
	}
}

func parseCastleWord(s string, pos *Position) (Move, error) {
	kingSide := s == "O-O" || s == "0-0"
	var m Move
	if pos.SideToMove == White {
		if kingSide {
			m = NewCastling(E1, G1)
		} else {
			m = NewCastling(E1, C1)
		}
	} else {
		if kingSide {
			m = NewCastling(E8, G8)
		} else {
			m = NewCastling(E8, C8)
		}
	}
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		if moves.Get(i) == m {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %s", ErrNoMatchingMove, s)
}

// MovesToSAN renders a line of moves starting at pos.
func MovesToSAN(pos *Position, moves []Move) []string {
	out := make([]string, len(moves))
	p := pos.Copy()
	for i, m := range moves {
		out[i] = m.ToSAN(p)
		p.MakeMove(m)
	}
	return out
}
