package reversi

import (
	"github.com/justinabrahms/boardcore/internal/engine"
)

// squareWeights favours corners and penalises the squares that give them
// away, indexed by y*8+x.
var squareWeights = [Size * Size]int{
	100, -20, 10, 5, 5, 10, -20, 100,
	-20, -50, -2, -2, -2, -2, -50, -20,
	10, -2, 1, 1, 1, 1, -2, 10,
	5, -2, 1, 0, 0, 1, -2, 5,
	5, -2, 1, 0, 0, 1, -2, 5,
	10, -2, 1, 1, 1, 1, -2, 10,
	-20, -50, -2, -2, -2, -2, -50, -20,
	100, -20, 10, 5, 5, 10, -20, 100,
}

const (
	mobilityWeight = 8
	discWeight     = 1
	// endgameEmpty is the number of empty squares below which raw disc count
	// dominates the evaluation.
	endgameEmpty = 12
)

func (r *Rules) Evaluate(s engine.State, p engine.Player) engine.Score {
	st, err := cast(s)
	if err != nil {
		return 0
	}
	if out, done := r.IsTerminal(st); done {
		return out.Value(p)
	}
	b := st.board
	me, them := p.Owner(), p.Opponent().Owner()

	positional, discs := 0, 0
	for i := 0; i < b.Len(); i++ {
		c := b.At(i)
		switch {
		case c.OwnedBy(me):
			positional += squareWeights[i]
			discs++
		case c.OwnedBy(them):
			positional -= squareWeights[i]
			discs--
		}
	}

	mobility := len(placements(b, p)) - len(placements(b, p.Opponent()))

	if b.EmptyCount() <= endgameEmpty {
		return engine.Score(discs*20 + positional/2 + mobility*mobilityWeight/2)
	}
	return engine.Score(positional + mobility*mobilityWeight + discs*discWeight)
}

// OrderHint plays corners first and X-squares last.
func (r *Rules) OrderHint(_ engine.State, m engine.Move) int {
	if m.IsPass() {
		return 0
	}
	return squareWeights[m.To]
}
