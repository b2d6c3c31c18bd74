package board

// Move packs a chess move into 16 bits:
// bits 0-5 from square, bits 6-11 to square,
// bits 12-13 promotion piece (Knight..Queen), bits 14-15 flag.
type Move uint16

const (
	flagNormal    uint16 = 0 << 14
	flagPromotion uint16 = 1 << 14
	flagEnPassant uint16 = 2 << 14
	flagCastling  uint16 = 3 << 14
)

// NoMove is the invalid move.
const NoMove Move = 0

// NewMove creates a normal move.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

// NewPromotion creates a promotion move.
func NewPromotion(from, to Square, promo PieceType) Move {
	return Move(from) | Move(to)<<6 | Move(promo-Knight)<<12 | Move(flagPromotion)
}

// NewEnPassant creates an en passant capture.
func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(flagEnPassant)
}

// NewCastling creates a castling move, expressed as the king's movement.
func NewCastling(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(flagCastling)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Promotion returns the promotion piece; only meaningful when
// IsPromotion reports true.
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

func (m Move) flag() uint16      { return uint16(m) & 0xC000 }
func (m Move) IsPromotion() bool { return m.flag() == flagPromotion }
func (m Move) IsCastling() bool  { return m.flag() == flagCastling }
func (m Move) IsEnPassant() bool { return m.flag() == flagEnPassant }

// SameSquares reports whether two moves share origin and destination.
// Promotion and flags are ignored; this is the equality the
// transposition-table suggestion and move-ordering bonuses use.
func (m Move) SameSquares(o Move) bool {
	return m != NoMove && o != NoMove && (m&0x0FFF) == (o&0x0FFF)
}

// IsCapture reports whether the move captures a piece on pos.
func (m Move) IsCapture(pos *Position) bool {
	return m.IsEnPassant() || !pos.IsEmpty(m.To())
}

// String renders the move in long algebraic form ("e2e4", "e7e8q").
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string("nbrq"[m.Promotion()-Knight])
	}
	return s
}

// MoveList is a fixed-capacity move accumulator; 256 is above the known
// maximum number of moves in a legal position.
type MoveList struct {
	moves [256]Move
	count int
}

// Add appends a move.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Set replaces the move at index i.
func (ml *MoveList) Set(i int, m Move) {
	ml.moves[i] = m
}

// Swap exchanges two moves.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Clear empties the list.
func (ml *MoveList) Clear() {
	ml.count = 0
}

// Slice returns the accumulated moves as a slice backed by the list.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo carries everything needed to restore a position after a
// move, including the repetition-history cursor. Restoring from it is
// bit-exact: the Zobrist key and all derived state come back unchanged.
type UndoInfo struct {
	CapturedPiece     Piece
	CastlingRights    CastlingRights
	EnPassant         Square
	HalfMoveClock     int
	Hash              uint64
	Checkers          Bitboard
	KingSquare        [2]Square
	Pieces            [2][6]Bitboard
	Occupied          [2]Bitboard
	AllOccupied       Bitboard
	HistoryLen        int
	LastIrreversible  int

	// Applied is true when the move was executed on the position (the
	// caller must unmake); Valid is true when it was executed and did
	// not leave the mover's king in check.
	Applied bool
	Valid   bool
}
