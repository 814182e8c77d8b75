package checkers

import (
	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
)

const (
	manValue     = 100
	kingValue    = 150
	backRowBonus = 12
	advanceBonus = 3
	centerBonus  = 4
)

func (r *Rules) Evaluate(s engine.State, p engine.Player) engine.Score {
	st, err := cast(s)
	if err != nil {
		return 0
	}
	if out, done := r.IsTerminal(st); done {
		return out.Value(p)
	}
	return engine.Score(side(st.board, p) - side(st.board, p.Opponent()))
}

// side scores one player's material and structure.
func side(b *board.Board, p engine.Player) int {
	score := 0
	home := crownRank(p.Opponent())
	for i := 0; i < b.Len(); i++ {
		c := b.At(i)
		if !c.OwnedBy(p.Owner()) {
			continue
		}
		pos := b.PosOf(i)
		if pos.X >= 2 && pos.X <= 5 && pos.Y >= 2 && pos.Y <= 5 {
			score += centerBonus
		}
		if c.Piece.Kind == board.CrownedKing {
			score += kingValue
			continue
		}
		score += manValue
		if pos.Y == home {
			score += backRowBonus
		}
		advanced := pos.Y
		if p == engine.PlayerB {
			advanced = Size - 1 - pos.Y
		}
		score += advanced * advanceBonus
	}
	return score
}

// OrderHint tries longer capture chains first.
func (r *Rules) OrderHint(_ engine.State, m engine.Move) int {
	return len(m.Captured) * 10
}
