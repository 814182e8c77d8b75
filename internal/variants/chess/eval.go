package chess

import (
	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
)

var centipawns = map[board.PieceKind]int{
	board.Pawn:   100,
	board.Knight: 320,
	board.Bishop: 330,
	board.Rook:   500,
	board.Queen:  900,
	board.King:   0,
}

// Piece-square tables from white's side, rank 1 first.
var pawnTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, -20, -20, 10, 10, 5,
	5, -5, -10, 0, 0, -10, -5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, 5, 10, 25, 25, 10, 5, 5,
	10, 10, 20, 30, 30, 20, 10, 10,
	50, 50, 50, 50, 50, 50, 50, 50,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightTable = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopTable = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var kingTable = [64]int{
	20, 30, 10, 0, 0, 10, 30, 20,
	20, 20, 0, 0, 0, 0, 20, 20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
}

const (
	mobilityWeight = 4
	shieldBonus    = 10
)

func squareBonus(kind board.PieceKind, sq int, owner board.Owner) int {
	if owner == board.OwnerB {
		p := pos(sq)
		sq = (Size-1-p.Y)*Size + p.X
	}
	switch kind {
	case board.Pawn:
		return pawnTable[sq]
	case board.Knight:
		return knightTable[sq]
	case board.Bishop:
		return bishopTable[sq]
	case board.King:
		return kingTable[sq]
	}
	return 0
}

// Evaluate scores material, piece placement, mobility and the pawn shield in
// front of each king.
func (r *Rules) Evaluate(s engine.State, p engine.Player) engine.Score {
	st, err := cast(s)
	if err != nil {
		return 0
	}
	if out, done := r.IsTerminal(st); done {
		return out.Value(p)
	}

	score := 0
	for i := 0; i < st.board.Len(); i++ {
		c := st.board.At(i)
		if !c.Occupied {
			continue
		}
		v := centipawns[c.Piece.Kind] + squareBonus(c.Piece.Kind, i, c.Piece.Owner)
		if c.Piece.Owner == p.Owner() {
			score += v
		} else {
			score -= v
		}
	}

	mine := &State{board: st.board, turn: p, epTarget: -1}
	theirs := &State{board: st.board, turn: p.Opponent(), epTarget: -1}
	score += mobilityWeight * (len(pseudoMoves(mine)) - len(pseudoMoves(theirs)))
	score += shieldBonus * (pawnShield(st.board, p) - pawnShield(st.board, p.Opponent()))
	return engine.Score(score)
}

// pawnShield counts friendly pawns directly in front of the king.
func pawnShield(b *board.Board, p engine.Player) int {
	k := kingSquare(b, p)
	if k < 0 {
		return 0
	}
	kp := pos(k)
	n := 0
	for dx := -1; dx <= 1; dx++ {
		front := board.Pos{X: kp.X + dx, Y: kp.Y + pawnDir(p)}
		if !inside(front) {
			continue
		}
		c := b.At(idx(front))
		if c.OwnedBy(p.Owner()) && c.Piece.Kind == board.Pawn {
			n++
		}
	}
	return n
}

// OrderHint puts promotions and captures of valuable pieces by cheap ones
// first.
func (r *Rules) OrderHint(s engine.State, m engine.Move) int {
	st, err := cast(s)
	if err != nil {
		return 0
	}
	hint := 0
	if m.Promotion != board.NoKind {
		hint += centipawns[m.Promotion]
	}
	if len(m.Captured) > 0 {
		victim := st.board.At(m.Captured[0])
		attacker := st.board.At(m.From)
		hint += 10*centipawns[victim.Piece.Kind] - centipawns[attacker.Piece.Kind]/10 + 1000
	}
	return hint
}
