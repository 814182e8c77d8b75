package search

import (
	"github.com/justinabrahms/boardcore/internal/engine"
)

// Minimax is plain depth-limited minimax without pruning or tables. It
// scores from the view of the side to move at state and is meant for
// checking Search on small trees.
func Minimax(rules engine.Rules, state engine.State, depth int) (engine.Score, engine.Move) {
	chance, _ := rules.(engine.Chance)
	root := state.Turn()

	var value func(s engine.State, depth, ply int) engine.Score
	value = func(s engine.State, depth, ply int) engine.Score {
		if out, done := rules.IsTerminal(s); done {
			return terminalScore(out, root, ply)
		}
		if depth <= 0 {
			return rules.Evaluate(s, root)
		}
		if chance != nil && chance.NeedsRoll(s) {
			var sum int64
			for _, o := range chance.Outcomes(s) {
				sum += int64(value(o.State, depth, ply)) * int64(o.Weight)
			}
			return engine.Score(sum / int64(chance.TotalWeight()))
		}
		moves := rules.GenerateMoves(s)
		if len(moves) == 0 {
			return rules.Evaluate(s, root)
		}
		maximizing := s.Turn() == root
		best := engine.Infinity
		if maximizing {
			best = -engine.Infinity
		}
		for _, m := range moves {
			next, err := rules.ApplyMove(s, m)
			if err != nil {
				continue
			}
			v := value(next, depth-1, ply+1)
			if (maximizing && v > best) || (!maximizing && v < best) {
				best = v
			}
		}
		return best
	}

	best := -engine.Infinity
	var bestMove engine.Move
	for _, m := range rules.GenerateMoves(state) {
		next, err := rules.ApplyMove(state, m)
		if err != nil {
			continue
		}
		if v := value(next, depth-1, 1); v > best {
			best, bestMove = v, m
		}
	}
	return best, bestMove
}
