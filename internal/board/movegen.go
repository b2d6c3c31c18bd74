package board

// GeneratePseudoLegalMoves lists every pseudo-legal move for the side
// to move, including castling and en passant. Moves may leave the own
// king in check; use IsLegal or GenerateLegalMoves to filter.
func (p *Position) GeneratePseudoLegalMoves() *MoveList {
	ml := &MoveList{}
	p.generateAllMoves(ml)
	return ml
}

// GenerateLegalMoves lists every legal move for the side to move.
func (p *Position) GenerateLegalMoves() *MoveList {
	ml := &MoveList{}
	p.generateAllMoves(ml)
	return p.filterLegalMoves(ml)
}

// GenerateCaptures lists legal captures (plus push promotions, which
// quiescence search wants to see).
func (p *Position) GenerateCaptures() *MoveList {
	ml := &MoveList{}
	p.generateCaptures(ml)
	return p.filterLegalMoves(ml)
}

// GeneratePseudoLegalCaptures lists captures without the legality
// filter; callers validate through MakeMove.
func (p *Position) GeneratePseudoLegalCaptures() *MoveList {
	ml := &MoveList{}
	p.generateCaptures(ml)
	return ml
}

func (p *Position) generateAllMoves(ml *MoveList) {
	us := p.SideToMove
	occupied := p.AllOccupied
	enemies := p.Occupied[us.Other()]

	p.generatePawnMoves(ml, us, enemies, occupied)

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		p.pushTargets(ml, from, KnightAttacks(from)&^p.Occupied[us])
	}
	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		p.pushTargets(ml, from, BishopAttacks(from, occupied)&^p.Occupied[us])
	}
	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		p.pushTargets(ml, from, RookAttacks(from, occupied)&^p.Occupied[us])
	}
	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		p.pushTargets(ml, from, QueenAttacks(from, occupied)&^p.Occupied[us])
	}

	if kingBB := p.Pieces[us][King]; kingBB != 0 {
		from := kingBB.LSB()
		p.pushTargets(ml, from, KingAttacks(from)&^p.Occupied[us])
	}

	p.generateCastlingMoves(ml, us)
}

func (p *Position) pushTargets(ml *MoveList, from Square, targets Bitboard) {
	for targets != 0 {
		ml.Add(NewMove(from, targets.PopLSB()))
	}
}

func (p *Position) generatePawnMoves(ml *MoveList, us Color, enemies, occupied Bitboard) {
	pawns := p.Pieces[us][Pawn]
	empty := ^occupied

	var push1, push2, attackL, attackR, promotionRank Bitboard
	var pushDir int
	if us == White {
		push1 = pawns.North() & empty
		push2 = (push1 & Rank3).North() & empty
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		push1 = pawns.South() & empty
		push2 = (push1 & Rank6).South() & empty
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	for bb := push1 &^ promotionRank; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir), to))
	}
	for bb := push2; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-2*pushDir), to))
	}
	for bb := attackL &^ promotionRank; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir+1), to))
	}
	for bb := attackR &^ promotionRank; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir-1), to))
	}
	for bb := push1 & promotionRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir), to)
	}
	for bb := attackL & promotionRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir+1), to)
	}
	for bb := attackR & promotionRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir-1), to)
	}

	p.generateEnPassant(ml, us, pawns)
}

func (p *Position) generateEnPassant(ml *MoveList, us Color, pawns Bitboard) {
	if p.EnPassant == NoSquare {
		return
	}
	epBB := SquareBB(p.EnPassant)
	var attackers Bitboard
	if us == White {
		attackers = (epBB.SouthWest() | epBB.SouthEast()) & pawns
	} else {
		attackers = (epBB.NorthWest() | epBB.NorthEast()) & pawns
	}
	for attackers != 0 {
		ml.Add(NewEnPassant(attackers.PopLSB(), p.EnPassant))
	}
}

func addPromotions(ml *MoveList, from, to Square) {
	ml.Add(NewPromotion(from, to, Queen))
	ml.Add(NewPromotion(from, to, Rook))
	ml.Add(NewPromotion(from, to, Bishop))
	ml.Add(NewPromotion(from, to, Knight))
}

// generateCastlingMoves adds castles when the rights are present, the
// squares between king and rook are empty, and neither the king square
// nor the squares it crosses are attacked.
func (p *Position) generateCastlingMoves(ml *MoveList, us Color) {
	them := us.Other()
	if us == White {
		if p.CastlingRights&WhiteKingSideCastle != 0 &&
			p.AllOccupied&(SquareBB(F1)|SquareBB(G1)) == 0 &&
			!p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(F1, them) && !p.IsSquareAttacked(G1, them) {
			ml.Add(NewCastling(E1, G1))
		}
		if p.CastlingRights&WhiteQueenSideCastle != 0 &&
			p.AllOccupied&(SquareBB(B1)|SquareBB(C1)|SquareBB(D1)) == 0 &&
			!p.IsSquareAttacked(E1, them) && !p.IsSquareAttacked(D1, them) && !p.IsSquareAttacked(C1, them) {
			ml.Add(NewCastling(E1, C1))
		}
	} else {
		if p.CastlingRights&BlackKingSideCastle != 0 &&
			p.AllOccupied&(SquareBB(F8)|SquareBB(G8)) == 0 &&
			!p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(F8, them) && !p.IsSquareAttacked(G8, them) {
			ml.Add(NewCastling(E8, G8))
		}
		if p.CastlingRights&BlackQueenSideCastle != 0 &&
			p.AllOccupied&(SquareBB(B8)|SquareBB(C8)|SquareBB(D8)) == 0 &&
			!p.IsSquareAttacked(E8, them) && !p.IsSquareAttacked(D8, them) && !p.IsSquareAttacked(C8, them) {
			ml.Add(NewCastling(E8, C8))
		}
	}
}

func (p *Position) generateCaptures(ml *MoveList) {
	us := p.SideToMove
	enemies := p.Occupied[us.Other()]
	occupied := p.AllOccupied

	pawns := p.Pieces[us][Pawn]
	var attackL, attackR, promotionRank Bitboard
	var pushDir int
	if us == White {
		attackL = pawns.NorthWest() & enemies
		attackR = pawns.NorthEast() & enemies
		promotionRank = Rank8
		pushDir = 8
	} else {
		attackL = pawns.SouthWest() & enemies
		attackR = pawns.SouthEast() & enemies
		promotionRank = Rank1
		pushDir = -8
	}

	for bb := attackL &^ promotionRank; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir+1), to))
	}
	for bb := attackR &^ promotionRank; bb != 0; {
		to := bb.PopLSB()
		ml.Add(NewMove(Square(int(to)-pushDir-1), to))
	}
	for bb := attackL & promotionRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir+1), to)
	}
	for bb := attackR & promotionRank; bb != 0; {
		to := bb.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir-1), to)
	}

	// Push promotions count as noisy moves.
	var pushPromo Bitboard
	if us == White {
		pushPromo = pawns.North() & ^occupied & Rank8
	} else {
		pushPromo = pawns.South() & ^occupied & Rank1
	}
	for pushPromo != 0 {
		to := pushPromo.PopLSB()
		addPromotions(ml, Square(int(to)-pushDir), to)
	}

	p.generateEnPassant(ml, us, pawns)

	knights := p.Pieces[us][Knight]
	for knights != 0 {
		from := knights.PopLSB()
		p.pushTargets(ml, from, KnightAttacks(from)&enemies)
	}
	bishops := p.Pieces[us][Bishop]
	for bishops != 0 {
		from := bishops.PopLSB()
		p.pushTargets(ml, from, BishopAttacks(from, occupied)&enemies)
	}
	rooks := p.Pieces[us][Rook]
	for rooks != 0 {
		from := rooks.PopLSB()
		p.pushTargets(ml, from, RookAttacks(from, occupied)&enemies)
	}
	queens := p.Pieces[us][Queen]
	for queens != 0 {
		from := queens.PopLSB()
		p.pushTargets(ml, from, QueenAttacks(from, occupied)&enemies)
	}
	if kingBB := p.Pieces[us][King]; kingBB != 0 {
		from := kingBB.LSB()
		p.pushTargets(ml, from, KingAttacks(from)&enemies)
	}
}

// ComputePinned returns the side-to-move pieces pinned to their king.
func (p *Position) ComputePinned() Bitboard {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	if !ksq.IsValid() {
		return 0
	}
	pinned := Bitboard(0)

	snipers := RookAttacks(ksq, 0) & (p.Pieces[them][Rook] | p.Pieces[them][Queen])
	snipers |= BishopAttacks(ksq, 0) & (p.Pieces[them][Bishop] | p.Pieces[them][Queen])
	for snipers != 0 {
		sq := snipers.PopLSB()
		blockers := Between(sq, ksq) & p.AllOccupied
		if blockers.PopCount() == 1 && blockers&p.Occupied[us] != 0 {
			pinned |= blockers
		}
	}
	return pinned
}

func (p *Position) filterLegalMoves(ml *MoveList) *MoveList {
	result := &MoveList{}
	pinned := p.ComputePinned()
	for i := 0; i < ml.Len(); i++ {
		if p.isLegalFast(ml.Get(i), pinned) {
			result.Add(ml.Get(i))
		}
	}
	return result
}

// isLegalFast decides legality without make/unmake for the common
// cases: non-pinned, non-king, non-en-passant moves cannot expose the
// king. King moves, pins and en passant fall back to direct checks.
func (p *Position) isLegalFast(m Move, pinned Bitboard) bool {
	from, to := m.From(), m.To()
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]
	checkers := p.Checkers

	if from == ksq {
		if m.IsCastling() {
			// Castling through check was rejected at generation.
			return checkers == 0
		}
		occ := p.AllOccupied &^ SquareBB(from)
		return p.AttackersByColor(to, them, occ) == 0
	}

	if checkers != 0 {
		if checkers.PopCount() > 1 {
			return false // double check, only the king moves
		}
		checker := checkers.LSB()
		validTargets := SquareBB(checker) | Between(checker, ksq)

		if m.IsEnPassant() {
			capturedSq := to - 8
			if us == Black {
				capturedSq = to + 8
			}
			if capturedSq == checker {
				return p.IsLegal(m)
			}
			return false
		}
		if validTargets&SquareBB(to) == 0 {
			return false
		}
		if pinned&SquareBB(from) != 0 && !Aligned(from, to, ksq) {
			return false
		}
		return true
	}

	if m.IsEnPassant() {
		// Removing two pawns can expose a horizontal attack; verify by
		// making the move.
		return p.IsLegal(m)
	}
	if pinned&SquareBB(from) == 0 {
		return true
	}
	return Aligned(from, to, ksq)
}

// IsLegal reports whether a pseudo-legal move leaves the mover's king
// safe. It makes and unmakes the move.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	them := us.Other()
	ksq := p.KingSquare[us]

	if m.From() == ksq && !m.IsCastling() {
		occ := p.AllOccupied &^ SquareBB(m.From())
		return p.AttackersByColor(m.To(), them, occ) == 0
	}

	undo := p.MakeMove(m)
	if !undo.Applied {
		return false
	}
	p.UnmakeMove(m, undo)
	return undo.Valid
}

// HasLegalMoves reports whether the side to move has any legal move.
func (p *Position) HasLegalMoves() bool {
	ml := p.GeneratePseudoLegalMoves()
	pinned := p.ComputePinned()
	for i := 0; i < ml.Len(); i++ {
		if p.isLegalFast(ml.Get(i), pinned) {
			return true
		}
	}
	return false
}
