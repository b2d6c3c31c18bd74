package board

import (
	"errors"
	"fmt"
)

// CastlingRights is a bitmask of the four castle options.
type CastlingRights uint8

const (
	WhiteKingSideCastle CastlingRights = 1 << iota
	WhiteQueenSideCastle
	BlackKingSideCastle
	BlackQueenSideCastle
	NoCastling  CastlingRights = 0
	AllCastling CastlingRights = WhiteKingSideCastle | WhiteQueenSideCastle |
		BlackKingSideCastle | BlackQueenSideCastle
)

// String returns the FEN castling field.
func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	s := ""
	if cr&WhiteKingSideCastle != 0 {
		s += "K"
	}
	if cr&WhiteQueenSideCastle != 0 {
		s += "Q"
	}
	if cr&BlackKingSideCastle != 0 {
		s += "k"
	}
	if cr&BlackQueenSideCastle != 0 {
		s += "q"
	}
	return s
}

// MaxHistory bounds the repetition history; a game longer than this is
// refused rather than silently wrapped.
const MaxHistory = 1024

// ErrHistoryFull is reported when the position has recorded MaxHistory
// half-moves and another move is attempted.
var ErrHistoryFull = errors.New("position history full")

// Position is the full game state: piece bitboards, occupancy, castling
// rights, en-passant target, clocks, the incrementally maintained
// Zobrist hash and the repetition history since the last irreversible
// move.
type Position struct {
	// Piece bitboards, [Color][PieceType].
	Pieces [2][6]Bitboard

	// Cached occupancy.
	Occupied    [2]Bitboard
	AllOccupied Bitboard

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square // en passant target, NoSquare if none
	HalfMoveClock  int    // half-moves since capture or pawn push
	FullMoveNumber int

	// Zobrist hash of the position.
	Hash uint64

	// Cached king squares and checkers of the side to move.
	KingSquare [2]Square
	Checkers   Bitboard

	// Zobrist keys of the positions before each recorded half-move;
	// the current position is not included. Keys from lastIrreversible
	// onward are repetition candidates.
	history          [MaxHistory]uint64
	historyLen       int
	lastIrreversible int

	// Ply of the position the history started from, derived from the
	// FEN move counters.
	basePly int
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	pos, _ := ParseFEN(StartFEN)
	return pos
}

// Copy returns a deep copy.
func (p *Position) Copy() *Position {
	dup := *p
	return &dup
}

// Ply returns the half-move number of the current position counted from
// the start of the game.
func (p *Position) Ply() int {
	return p.basePly + p.historyLen
}

// HistoryFull reports whether no further moves can be recorded.
func (p *Position) HistoryFull() bool {
	return p.historyLen >= MaxHistory
}

// SetHistory seeds the repetition history with hashes of positions that
// occurred before this one (the game record). The current position's
// hash is appended last by the caller's moves, not here.
func (p *Position) SetHistory(hashes []uint64) {
	n := len(hashes)
	if n > MaxHistory {
		hashes = hashes[n-MaxHistory:]
		n = MaxHistory
	}
	copy(p.history[:], hashes)
	p.historyLen = n
	p.lastIrreversible = 0
}

// Repeated reports whether the current hash already occurred since the
// last irreversible move.
func (p *Position) Repeated() bool {
	for i := p.lastIrreversible; i < p.historyLen; i++ {
		if p.history[i] == p.Hash {
			return true
		}
	}
	return false
}

// PieceAt returns the piece on sq, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece {
	bb := SquareBB(sq)
	if p.AllOccupied&bb == 0 {
		return NoPiece
	}
	var c Color
	if p.Occupied[White]&bb != 0 {
		c = White
	} else {
		c = Black
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces[c][pt]&bb != 0 {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// IsEmpty reports whether sq is empty.
func (p *Position) IsEmpty(sq Square) bool {
	return p.AllOccupied&SquareBB(sq) == 0
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.Checkers != 0
}

func (p *Position) setPiece(piece Piece, sq Square) {
	if piece == NoPiece {
		return
	}
	c, pt := piece.Color(), piece.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	if pt == King {
		p.KingSquare[c] = sq
	}
}

func (p *Position) removePiece(sq Square) Piece {
	piece := p.PieceAt(sq)
	if piece == NoPiece {
		return NoPiece
	}
	c, pt := piece.Color(), piece.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	return piece
}

func (p *Position) movePiece(from, to Square) {
	piece := p.PieceAt(from)
	if piece == NoPiece {
		return
	}
	c, pt := piece.Color(), piece.Type()
	moveBB := SquareBB(from) | SquareBB(to)
	p.Pieces[c][pt] ^= moveBB
	p.Occupied[c] ^= moveBB
	p.AllOccupied ^= moveBB
	if pt == King {
		p.KingSquare[c] = to
	}
}

func (p *Position) updateOccupied() {
	p.Occupied[White] = Empty
	p.Occupied[Black] = Empty
	for pt := Pawn; pt <= King; pt++ {
		p.Occupied[White] |= p.Pieces[White][pt]
		p.Occupied[Black] |= p.Pieces[Black][pt]
	}
	p.AllOccupied = p.Occupied[White] | p.Occupied[Black]
}

func (p *Position) findKings() {
	p.KingSquare[White] = p.Pieces[White][King].LSB()
	p.KingSquare[Black] = p.Pieces[Black][King].LSB()
}

// MakeMove applies a pseudo-legal move and returns undo information.
// The returned UndoInfo has Valid=false when the move could not be
// applied (no piece on the origin, wrong side, history full, or the
// move leaves the mover's king in check); the position is unchanged in
// the first three cases and must be restored with UnmakeMove in the
// last.
func (p *Position) MakeMove(m Move) UndoInfo {
	undo := UndoInfo{
		CapturedPiece:    NoPiece,
		CastlingRights:   p.CastlingRights,
		EnPassant:        p.EnPassant,
		HalfMoveClock:    p.HalfMoveClock,
		Hash:             p.Hash,
		Checkers:         p.Checkers,
		KingSquare:       p.KingSquare,
		Pieces:           p.Pieces,
		Occupied:         p.Occupied,
		AllOccupied:      p.AllOccupied,
		HistoryLen:       p.historyLen,
		LastIrreversible: p.lastIrreversible,
	}

	if p.HistoryFull() {
		return undo
	}

	us := p.SideToMove
	them := us.Other()
	from, to := m.From(), m.To()
	piece := p.PieceAt(from)
	if piece == NoPiece || piece.Color() != us {
		return undo
	}
	undo.Applied = true
	undo.Valid = true
	pt := piece.Type()

	// Record the pre-move hash; Repeated compares the current key
	// against these.
	p.history[p.historyLen] = p.Hash
	p.historyLen++

	p.Hash ^= zobristSideToMove
	p.Hash ^= zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare

	if m.IsEnPassant() {
		capturedSq := to - 8
		if us == Black {
			capturedSq = to + 8
		}
		undo.CapturedPiece = p.removePiece(capturedSq)
		p.Hash ^= zobristPiece[them][Pawn][capturedSq]
	} else if captured := p.PieceAt(to); captured != NoPiece {
		undo.CapturedPiece = captured
		p.removePiece(to)
		p.Hash ^= zobristPiece[them][captured.Type()][to]
	}

	p.movePiece(from, to)
	p.Hash ^= zobristPiece[us][pt][from]
	p.Hash ^= zobristPiece[us][pt][to]

	if m.IsPromotion() {
		promo := m.Promotion()
		p.Pieces[us][Pawn] &^= SquareBB(to)
		p.Pieces[us][promo] |= SquareBB(to)
		p.Hash ^= zobristPiece[us][Pawn][to]
		p.Hash ^= zobristPiece[us][promo][to]
	}

	if m.IsCastling() {
		var rookFrom, rookTo Square
		if to > from {
			rookFrom = NewSquare(7, from.Rank())
			rookTo = NewSquare(5, from.Rank())
		} else {
			rookFrom = NewSquare(0, from.Rank())
			rookTo = NewSquare(3, from.Rank())
		}
		p.movePiece(rookFrom, rookTo)
		p.Hash ^= zobristPiece[us][Rook][rookFrom]
		p.Hash ^= zobristPiece[us][Rook][rookTo]
	}

	if pt == King {
		if us == White {
			p.CastlingRights &^= WhiteKingSideCastle | WhiteQueenSideCastle
		} else {
			p.CastlingRights &^= BlackKingSideCastle | BlackQueenSideCastle
		}
	}
	if from == A1 || to == A1 {
		p.CastlingRights &^= WhiteQueenSideCastle
	}
	if from == H1 || to == H1 {
		p.CastlingRights &^= WhiteKingSideCastle
	}
	if from == A8 || to == A8 {
		p.CastlingRights &^= BlackQueenSideCastle
	}
	if from == H8 || to == H8 {
		p.CastlingRights &^= BlackKingSideCastle
	}
	p.Hash ^= zobristCastling[p.CastlingRights]

	// Double pawn push opens an en passant target.
	if pt == Pawn && abs(int(to)-int(from)) == 16 {
		ep := Square((int(from) + int(to)) / 2)
		p.EnPassant = ep
		p.Hash ^= zobristEnPassant[ep.File()]
	}

	if pt == Pawn || undo.CapturedPiece != NoPiece {
		p.HalfMoveClock = 0
		p.lastIrreversible = p.historyLen
	} else {
		p.HalfMoveClock++
	}
	if us == Black {
		p.FullMoveNumber++
	}
	p.SideToMove = them
	p.UpdateCheckers()

	// A move that leaves the mover's own king attacked was illegal;
	// flag it so the caller unmakes.
	if p.IsSquareAttacked(p.KingSquare[us], them) {
		undo.Valid = false
	}

	return undo
}

// UnmakeMove restores the position saved in undo.
func (p *Position) UnmakeMove(m Move, undo UndoInfo) {
	us := p.SideToMove.Other()
	p.CastlingRights = undo.CastlingRights
	p.EnPassant = undo.EnPassant
	p.HalfMoveClock = undo.HalfMoveClock
	p.Hash = undo.Hash
	p.Checkers = undo.Checkers
	p.KingSquare = undo.KingSquare
	p.Pieces = undo.Pieces
	p.Occupied = undo.Occupied
	p.AllOccupied = undo.AllOccupied
	// Clear the slot MakeMove filled so the history buffer comes back too.
	if undo.HistoryLen < MaxHistory {
		p.history[undo.HistoryLen] = 0
	}
	p.historyLen = undo.HistoryLen
	p.lastIrreversible = undo.LastIrreversible
	p.SideToMove = us
	if us == Black {
		p.FullMoveNumber--
	}
}

// ErrIllegalMove is reported by ApplyMove for moves the position does
// not admit.
var ErrIllegalMove = errors.New("illegal move")

// ApplyMove is the checked form of MakeMove for callers driving a game
// rather than a search: the move must be legal, and the position is
// left unchanged on error.
func (p *Position) ApplyMove(m Move) (UndoInfo, error) {
	if p.HistoryFull() {
		return UndoInfo{}, ErrHistoryFull
	}
	undo := p.MakeMove(m)
	if !undo.Applied {
		return UndoInfo{}, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	if !undo.Valid {
		p.UnmakeMove(m, undo)
		return UndoInfo{}, fmt.Errorf("%w: %s leaves the king in check", ErrIllegalMove, m)
	}
	return undo, nil
}

// NullUndo is the state saved by MakeNullMove.
type NullUndo struct {
	EnPassant Square
	Hash      uint64
	Checkers  Bitboard
}

// MakeNullMove passes the turn: flips the side to move and clears the
// en passant target.
func (p *Position) MakeNullMove() NullUndo {
	undo := NullUndo{EnPassant: p.EnPassant, Hash: p.Hash, Checkers: p.Checkers}
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
	}
	p.EnPassant = NoSquare
	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove
	p.UpdateCheckers()
	return undo
}

// UnmakeNullMove undoes MakeNullMove.
func (p *Position) UnmakeNullMove(undo NullUndo) {
	p.EnPassant = undo.EnPassant
	p.Hash = undo.Hash
	p.SideToMove = p.SideToMove.Other()
	p.Checkers = undo.Checkers
}

// CheckInvariants verifies the internal consistency of the position:
// occupancy caches, king squares and the Zobrist key. Used by tests and
// debug assertions.
func (p *Position) CheckInvariants() error {
	for c := White; c <= Black; c++ {
		var union Bitboard
		for pt := Pawn; pt <= King; pt++ {
			union |= p.Pieces[c][pt]
		}
		if union != p.Occupied[c] {
			return fmt.Errorf("%v occupancy does not match piece bitboards", c)
		}
	}
	if p.Occupied[White]|p.Occupied[Black] != p.AllOccupied {
		return errors.New("total occupancy mismatch")
	}
	if p.Occupied[White]&p.Occupied[Black] != 0 {
		return errors.New("colors overlap")
	}
	for c := White; c <= Black; c++ {
		if p.Pieces[c][King] != 0 && p.KingSquare[c] != p.Pieces[c][King].LSB() {
			return fmt.Errorf("%v king square cache stale", c)
		}
	}
	if (p.Pieces[White][Pawn]|p.Pieces[Black][Pawn])&(Rank1|Rank8) != 0 {
		return errors.New("pawn on back rank")
	}
	if got := p.ComputeHash(); got != p.Hash {
		return fmt.Errorf("hash mismatch: incremental %016x, recomputed %016x", p.Hash, got)
	}
	return nil
}

// String renders the position diagram with its state fields.
func (p *Position) String() string {
	s := "\n"
	for rank := 7; rank >= 0; rank-- {
		s += fmt.Sprintf("%d  ", rank+1)
		for file := 0; file < 8; file++ {
			piece := p.PieceAt(NewSquare(file, rank))
			if piece == NoPiece {
				s += ". "
			} else {
				s += piece.String() + " "
			}
		}
		s += "\n"
	}
	s += "\n   a b c d e f g h\n\n"
	s += fmt.Sprintf("Side to move: %s\n", p.SideToMove)
	s += fmt.Sprintf("Castling: %s\n", p.CastlingRights)
	s += fmt.Sprintf("En passant: %s\n", p.EnPassant)
	s += fmt.Sprintf("Hash: %016x\n", p.Hash)
	return s
}
