package engine

import (
	"github.com/makochess/mako/internal/board"
	"github.com/makochess/mako/internal/score"
)

// Evaluation coefficients. The attack and mobility products are scaled
// by a global multiplier each; king safety is a sum of independent
// terms.
var (
	kingSafetyFromQueenScore      = score.OfPawns(0.271)
	kingRoughSafetyFromQueenScore = score.OfPawns(0.247)
	kingRoughSafetyWithPawnsScore = score.OfPawns(0.3)
	kingIsBeingAttackedValue      = score.OfPawns(-0.274)
	attackMultiplier              = score.OfPawns(0.309)
	mobilityMultiplier            = score.OfPawns(1.839)
	knightMobilityMultiplier      = score.OfPawns(0.83)
	bishopMobilityMultiplier      = score.OfPawns(1.32)
	rookMobilityMultiplier        = score.OfPawns(1.0)
	knightMobilityScore           = score.OfPawns(0.04)
	bishopMobilityScore           = score.OfPawns(0.03)
	rookMobilityScore             = score.OfPawns(0.02)
	isolatedPawnScore             = score.OfPawns(-0.16)
	doubledPawnScore              = score.Zero
	rookOnOpenFileScore           = score.OfPawns(0.171)
	bishopPairValue               = score.OfPawns(0.2)
	passedPawnMultiplierNum       = 641 // x/1000 of the rank bonus
)

const kingSafetyFromQueenRanks = 5

// passedPawnScore indexes the passed-pawn bonus by the pawn's relative
// rank.
var passedPawnScore = [8]score.Score{
	score.Zero,
	score.OfPawns(0.50),
	score.OfPawns(0.55),
	score.OfPawns(0.61),
	score.OfPawns(0.68),
	score.OfPawns(0.76),
	score.OfPawns(0.85),
	score.Zero,
}

// Pawn-shield patterns for a castled king, from White's side; Black
// mirrors. Two accepted shapes per wing.
var (
	shieldKingSide1  = bbOf(board.F2, board.G2, board.H2)
	shieldKingSide2  = bbOf(board.F2, board.G2, board.H3)
	shieldQueenSide1 = bbOf(board.A2, board.B2, board.C2)
	shieldQueenSide2 = bbOf(board.A3, board.B2, board.C2)
)

func bbOf(squares ...board.Square) board.Bitboard {
	var bb board.Bitboard
	for _, sq := range squares {
		bb = bb.Set(sq)
	}
	return bb
}

// PlayerFeatures is the evaluation broken into its terms for one side.
type PlayerFeatures struct {
	Material               score.Score
	Attacks                score.Score
	Mobility               score.Score
	Pawns                  score.Score
	RooksOnOpenFile        score.Score
	BishopPair             score.Score
	KingSafeFromQueen      score.Score
	KingRoughSafeFromQueen score.Score
	KingRoughSafeWithPawns score.Score
	KingIsBeingAttacked    score.Score
	KingThreatFromPieces   score.Score
}

// Total sums the feature terms.
func (f PlayerFeatures) Total() score.Score {
	t := f.Material
	t = t.Add(f.Attacks)
	t = t.Add(f.Mobility)
	t = t.Add(f.Pawns)
	t = t.Add(f.RooksOnOpenFile)
	t = t.Add(f.BishopPair)
	t = t.Add(f.KingSafeFromQueen)
	t = t.Add(f.KingRoughSafeFromQueen)
	t = t.Add(f.KingRoughSafeWithPawns)
	t = t.Add(f.KingIsBeingAttacked)
	t = t.Add(f.KingThreatFromPieces)
	return t
}

// Features is the per-side feature vector of a position.
type Features struct {
	White PlayerFeatures
	Black PlayerFeatures
}

// EvalParams configures the evaluator. The zero value is the default
// configuration: built-in weights, king-threat term disabled.
type EvalParams struct {
	// CustomEval, when set, replaces the built-in weighting: it
	// receives the raw feature vector and produces the White-perspective
	// score.
	CustomEval func(Features, *board.Position) score.Score

	// KingThreatFromPieces enables the optional threat term with the
	// given weight in milli-pawns. Zero disables it.
	KingThreatFromPieces int32
}

// EvalForWhite evaluates the position from White's perspective.
func EvalForWhite(pos *board.Position, scratch Scratch, params *EvalParams) score.Score {
	if params != nil && params.CustomEval != nil {
		return params.CustomEval(EvalFeatures(pos, scratch, params), pos)
	}
	w := playerFeatures(pos, scratch, board.White, params)
	b := playerFeatures(pos, scratch, board.Black, params)
	return w.Total().Sub(b.Total())
}

// EvalForCurrentPlayer evaluates from the side to move's perspective.
func EvalForCurrentPlayer(pos *board.Position, scratch Scratch, params *EvalParams) score.Score {
	return EvalForWhite(pos, scratch, params).FlipForColor(pos.SideToMove)
}

// EvalFeatures returns the full feature vector, for callers that apply
// their own weighting.
func EvalFeatures(pos *board.Position, scratch Scratch, params *EvalParams) Features {
	return Features{
		White: playerFeatures(pos, scratch, board.White, params),
		Black: playerFeatures(pos, scratch, board.Black, params),
	}
}

func playerFeatures(pos *board.Position, scratch Scratch, c board.Color, params *EvalParams) PlayerFeatures {
	return PlayerFeatures{
		Material:               evalMaterial(pos, c),
		Attacks:                evalAttacks(pos, c),
		Mobility:               evalMobility(pos, c),
		Pawns:                  evalPawns(pos, c),
		RooksOnOpenFile:        evalRooksOnOpenFile(pos, c),
		BishopPair:             evalBishopPair(pos, c),
		KingSafeFromQueen:      evalKingSafeFromQueen(pos, c),
		KingRoughSafeFromQueen: evalKingRoughSafeFromQueen(pos, c),
		KingRoughSafeWithPawns: evalKingRoughSafeWithPawns(pos, c),
		KingIsBeingAttacked:    evalKingIsBeingAttacked(pos, scratch, c),
		KingThreatFromPieces:   evalKingThreatFromPieces(pos, c, params),
	}
}

func evalMaterial(pos *board.Position, c board.Color) score.Score {
	total := score.Zero
	for pt := board.Pawn; pt <= board.King; pt++ {
		bb := pos.Pieces[c][pt]
		for bb != 0 {
			total = total.Add(pieceValue(pt, c, bb.PopLSB()))
		}
	}
	return total
}

// countAttacks counts attacked enemy squares, ignoring enemy pawns.
func countAttacks(pos *board.Position, c board.Color, attacks board.Bitboard) int {
	return (attacks &^ pos.Pieces[c.Other()][board.Pawn]).PopCount()
}

func evalAttacks(pos *board.Position, c board.Color) score.Score {
	them := c.Other()
	occupied := pos.AllOccupied
	enemies := pos.Occupied[them]
	points := 0

	for bb := pos.Pieces[c][board.Knight]; bb != 0; {
		sq := bb.PopLSB()
		points += countAttacks(pos, c, board.KnightAttacks(sq)&enemies)
	}
	for bb := pos.Pieces[c][board.Bishop]; bb != 0; {
		sq := bb.PopLSB()
		points += countAttacks(pos, c, board.BishopAttacks(sq, occupied)&enemies)
	}
	for bb := pos.Pieces[c][board.Rook]; bb != 0; {
		sq := bb.PopLSB()
		points += countAttacks(pos, c, board.RookAttacks(sq, occupied)&enemies)
	}
	for bb := pos.Pieces[c][board.Queen]; bb != 0; {
		sq := bb.PopLSB()
		points += countAttacks(pos, c, board.QueenAttacks(sq, occupied)&enemies)
	}

	return attackMultiplier.MulInt(points)
}

// slidingMobility counts destination squares for a long-range piece,
// looking through friendly colleagues of the same ray kind: a rook
// behind another rook or the queen still counts the squares beyond it.
func slidingMobility(pos *board.Position, c board.Color, sq board.Square, pt board.PieceType) int {
	colleagues := pos.Pieces[c][pt] | pos.Pieces[c][board.Queen]
	block := pos.Occupied[c] ^ colleagues
	occ := block | pos.Occupied[c.Other()]

	var dest board.Bitboard
	if pt == board.Bishop {
		dest = board.BishopAttacks(sq, occ)
	} else {
		dest = board.RookAttacks(sq, occ)
	}
	return (dest &^ block).PopCount()
}

func evalMobility(pos *board.Position, c board.Color) score.Score {
	knightMoves := 0
	for bb := pos.Pieces[c][board.Knight]; bb != 0; {
		sq := bb.PopLSB()
		knightMoves += (board.KnightAttacks(sq) &^ pos.Occupied[c]).PopCount()
	}
	bishopMoves := 0
	for bb := pos.Pieces[c][board.Bishop]; bb != 0; {
		bishopMoves += slidingMobility(pos, c, bb.PopLSB(), board.Bishop)
	}
	rookMoves := 0
	for bb := pos.Pieces[c][board.Rook]; bb != 0; {
		rookMoves += slidingMobility(pos, c, bb.PopLSB(), board.Rook)
	}

	total := knightMobilityScore.MulInt(knightMoves).Mul(knightMobilityMultiplier)
	total = total.Add(bishopMobilityScore.MulInt(bishopMoves).Mul(bishopMobilityMultiplier))
	total = total.Add(rookMobilityScore.MulInt(rookMoves).Mul(rookMobilityMultiplier))
	return total.Mul(mobilityMultiplier)
}

func evalPawns(pos *board.Position, c board.Color) score.Score {
	them := c.Other()
	ownPawns := pos.Pieces[c][board.Pawn]
	enemyPawns := pos.Pieces[them][board.Pawn]
	total := score.Zero

	for bb := ownPawns; bb != 0; {
		sq := bb.PopLSB()
		if board.PassedPawnMask(c, sq)&enemyPawns == 0 {
			rank := sq.RelativeRank(c)
			total = total.Add(passedPawnScore[rank].MulFrac(passedPawnMultiplierNum, 1000))
		}
		if board.NeighborFileMask(sq)&ownPawns == 0 {
			total = total.Add(isolatedPawnScore)
		}
		if board.FileAheadMask(c, sq)&ownPawns != 0 {
			total = total.Add(doubledPawnScore)
		}
	}
	return total
}

func evalRooksOnOpenFile(pos *board.Position, c board.Color) score.Score {
	pawns := pos.Pieces[board.White][board.Pawn] | pos.Pieces[board.Black][board.Pawn]
	total := score.Zero
	for bb := pos.Pieces[c][board.Rook]; bb != 0; {
		sq := bb.PopLSB()
		if pawns&board.FileAheadMask(c, sq) == 0 {
			total = total.Add(rookOnOpenFileScore)
		}
	}
	return total
}

func evalBishopPair(pos *board.Position, c board.Color) score.Score {
	if pos.Pieces[c][board.Bishop].PopCount() >= 2 {
		return bishopPairValue
	}
	return score.Zero
}

// evalKingSafeFromQueen rewards a king that the enemy queen cannot
// approach: either there is no enemy queen, or no queen line from the
// king reaches into the opponent's near ranks.
func evalKingSafeFromQueen(pos *board.Position, c board.Color) score.Score {
	them := c.Other()
	if pos.Pieces[them][board.Queen] == 0 {
		return kingSafetyFromQueenScore
	}
	ksq := pos.KingSquare[c]
	if !ksq.IsValid() {
		return score.Zero
	}
	queenMoves := board.QueenAttacks(ksq, pos.AllOccupied) &^ pos.Occupied[c]
	if queenMoves&board.FirstNRanks(them, kingSafetyFromQueenRanks) == 0 {
		return kingSafetyFromQueenScore
	}
	return score.Zero
}

// evalKingRoughSafeFromQueen: back-rank king off the central files.
func evalKingRoughSafeFromQueen(pos *board.Position, c board.Color) score.Score {
	them := c.Other()
	if pos.Pieces[them][board.Queen] == 0 {
		return kingRoughSafetyFromQueenScore
	}
	ksq := pos.KingSquare[c]
	if !ksq.IsValid() {
		return score.Zero
	}
	if c == board.Black {
		ksq = ksq.Mirror()
	}
	if ksq.Rank() != 0 || (ksq.File() >= 3 && ksq.File() <= 5) {
		return score.Zero
	}
	return kingRoughSafetyFromQueenScore
}

// evalKingRoughSafeWithPawns: back-rank king on a wing with an intact
// three-pawn shield.
func evalKingRoughSafeWithPawns(pos *board.Position, c board.Color) score.Score {
	them := c.Other()
	if pos.Pieces[them][board.Queen] == 0 {
		return kingRoughSafetyWithPawnsScore
	}
	ksq := pos.KingSquare[c]
	if !ksq.IsValid() {
		return score.Zero
	}
	mk := ksq
	if c == board.Black {
		mk = mk.Mirror()
	}
	if mk.Rank() != 0 {
		return score.Zero
	}

	pawns := pos.Pieces[c][board.Pawn]
	shield := func(pattern board.Bitboard) bool {
		if c == board.Black {
			pattern = pattern.Mirror()
		}
		return pawns.ContainsAll(pattern)
	}

	switch {
	case mk.File() > 5:
		if shield(shieldKingSide1) || shield(shieldKingSide2) {
			return kingRoughSafetyWithPawnsScore
		}
	case mk.File() < 3:
		if shield(shieldQueenSide1) || shield(shieldQueenSide2) {
			return kingRoughSafetyWithPawnsScore
		}
	}
	return score.Zero
}

func evalKingIsBeingAttacked(pos *board.Position, scratch Scratch, c board.Color) score.Score {
	ksq := pos.KingSquare[c]
	if ksq.IsValid() && scratch.Attacks[c.Other()].IsSet(ksq) {
		return kingIsBeingAttackedValue
	}
	return score.Zero
}

// evalKingThreatFromPieces penalizes enemy pieces bearing on the castled
// king's area. Disabled unless the coefficient is set.
func evalKingThreatFromPieces(pos *board.Position, c board.Color, params *EvalParams) score.Score {
	if params == nil || params.KingThreatFromPieces == 0 {
		return score.Zero
	}
	ksq := pos.KingSquare[c]
	if !ksq.IsValid() {
		return score.Zero
	}
	mk := ksq
	if c == board.Black {
		mk = mk.Mirror()
	}
	if mk.Rank() >= 2 || (mk.File() > 3 && mk.File() < 5) {
		return score.Zero
	}

	var area board.Bitboard
	if mk.File() > 4 {
		area = bbOf(board.G2, board.H2, board.G3, board.H3)
	} else {
		area = bbOf(board.A2, board.B2, board.C2, board.A3, board.B3, board.C3)
	}
	if c == board.Black {
		area = area.Mirror()
	}

	them := c.Other()
	blockers := pos.Pieces[board.White][board.Pawn] | pos.Pieces[board.Black][board.Pawn]
	threats := 0
	for bb := pos.Pieces[them][board.Bishop]; bb != 0; {
		if board.BishopAttacks(bb.PopLSB(), blockers).Intersects(area) {
			threats++
		}
	}
	for bb := pos.Pieces[them][board.Queen]; bb != 0; {
		if board.QueenAttacks(bb.PopLSB(), blockers).Intersects(area) {
			threats++
		}
	}
	return score.OfMilliPawns(params.KingThreatFromPieces).MulInt(threats)
}
