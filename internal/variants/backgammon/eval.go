package backgammon

import (
	"github.com/justinabrahms/boardcore/internal/engine"
)

const (
	pipWeight   = 2
	offWeight   = 12
	blotPenalty = 10
	pointBonus  = 6
)

// Evaluate compares the race, borne-off checkers, exposed blots and made
// points.
func (r *Rules) Evaluate(s engine.State, p engine.Player) engine.Score {
	st, err := cast(s)
	if err != nil {
		return 0
	}
	if out, done := r.IsTerminal(st); done {
		return out.Value(p)
	}
	l := &st.layout
	them := p.Opponent()
	score := pipWeight * (l.pips(them) - l.pips(p))
	score += offWeight * (int(l.off[slot(p)]) - int(l.off[slot(them)]))
	score += structure(l, p) - structure(l, them)
	return engine.Score(score)
}

func structure(l *layout, p engine.Player) int {
	score := 0
	for i := 0; i < Points; i++ {
		switch n := l.mine(p, i); {
		case n == 1:
			score -= blotPenalty
		case n >= 2:
			score += pointBonus
		}
	}
	return score
}

// OrderHint tries hitting plays first.
func (r *Rules) OrderHint(_ engine.State, m engine.Move) int {
	hint := 0
	for _, step := range m.Steps {
		if step.Hit {
			hint += 10
		}
	}
	return hint
}
