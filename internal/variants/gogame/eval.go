package gogame

import (
	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
)

const (
	pointValue   = 100
	atariPenalty = 40
)

// Evaluate estimates the area score margin and penalises chains in atari.
func (r *Rules) Evaluate(s engine.State, p engine.Player) engine.Score {
	st, err := cast(s)
	if err != nil {
		return 0
	}
	if out, done := r.IsTerminal(st); done {
		return out.Value(p)
	}
	black, white := AreaScore(st)
	margin := black - white
	if p == engine.PlayerB {
		margin = -margin
	}
	score := int(margin * pointValue)
	score -= atariPenalty * (chainsInAtari(st.board, p.Owner()) - chainsInAtari(st.board, p.Opponent().Owner()))
	return engine.Score(score)
}

func chainsInAtari(b *board.Board, owner board.Owner) int {
	seen := make([]bool, b.Len())
	n := 0
	for i := 0; i < b.Len(); i++ {
		if seen[i] || !b.At(i).OwnedBy(owner) {
			continue
		}
		group, libs := groupAt(b, i)
		for _, g := range group {
			seen[g] = true
		}
		if libs == 1 {
			n++
		}
	}
	return n
}

// OrderHint prefers placements next to existing stones and leaves the pass
// for last.
func (r *Rules) OrderHint(s engine.State, m engine.Move) int {
	st, err := cast(s)
	if err != nil || m.IsPass() {
		return -1
	}
	hint := 0
	for _, n := range st.board.NeighborIndices(m.To, board.AllEight) {
		if st.board.At(n).Occupied {
			hint++
		}
	}
	return hint
}
