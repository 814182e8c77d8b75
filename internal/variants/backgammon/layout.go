package backgammon

import (
	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
)

// Cell indices on the 28x1 board. Points 0-23 hold checkers of either side;
// the bar and borne-off trays are per player.
const (
	Points    = 24
	BarA      = 24
	BarB      = 25
	OffA      = 26
	OffB      = 27
	Cells     = 28
	Checkers  = 15
	homeWidth = 6
)

// layout is a compact mutable copy of the checker counts used during move
// generation. Positive point counts belong to A, negative to B.
type layout struct {
	points [Points]int8
	bar    [2]int8
	off    [2]int8
}

func slot(p engine.Player) int {
	if p == engine.PlayerB {
		return 1
	}
	return 0
}

func barOf(p engine.Player) int {
	if p == engine.PlayerB {
		return BarB
	}
	return BarA
}

func offOf(p engine.Player) int {
	if p == engine.PlayerB {
		return OffB
	}
	return OffA
}

func sign(p engine.Player) int8 {
	if p == engine.PlayerB {
		return -1
	}
	return 1
}

// mine returns how many of p's checkers stand on point i.
func (l *layout) mine(p engine.Player, i int) int {
	v := l.points[i] * sign(p)
	if v < 0 {
		return 0
	}
	return int(v)
}

func (l *layout) add(p engine.Player, i int, n int8) {
	l.points[i] += n * sign(p)
}

func inHome(p engine.Player, i int) bool {
	if p == engine.PlayerB {
		return i >= Points-homeWidth
	}
	return i < homeWidth
}

// allHome reports whether every checker p still has in play is in its home
// board.
func (l *layout) allHome(p engine.Player) bool {
	if l.bar[slot(p)] > 0 {
		return false
	}
	for i := 0; i < Points; i++ {
		if l.mine(p, i) > 0 && !inHome(p, i) {
			return false
		}
	}
	return true
}

// fartherInHome reports whether p has a checker in its home board farther
// from bearing off than point i.
func (l *layout) fartherInHome(p engine.Player, i int) bool {
	if p == engine.PlayerB {
		for j := Points - homeWidth; j < i; j++ {
			if l.mine(p, j) > 0 {
				return true
			}
		}
		return false
	}
	for j := i + 1; j < homeWidth; j++ {
		if l.mine(p, j) > 0 {
			return true
		}
	}
	return false
}

// entryPoint is the point a checker entering from the bar lands on.
func entryPoint(p engine.Player, die int) int {
	if p == engine.PlayerB {
		return die - 1
	}
	return Points - die
}

// step moves one checker of p from src (a point or p's bar) by die. It
// reports false when the step is not allowed.
func (l layout) step(p engine.Player, src, die int) (layout, engine.Step, bool) {
	s := slot(p)
	them := p.Opponent()
	st := engine.Step{From: src, Die: die}

	var target int
	if src == barOf(p) {
		if l.bar[s] == 0 {
			return l, st, false
		}
		target = entryPoint(p, die)
	} else {
		if l.bar[s] > 0 || l.mine(p, src) == 0 {
			return l, st, false
		}
		if p == engine.PlayerB {
			target = src + die
		} else {
			target = src - die
		}
	}

	if target < 0 || target >= Points {
		if !l.allHome(p) {
			return l, st, false
		}
		exact := target == -1 || target == Points
		if !exact && l.fartherInHome(p, src) {
			return l, st, false
		}
		l.add(p, src, -1)
		l.off[s]++
		st.To = offOf(p)
		return l, st, true
	}

	if l.mine(them, target) >= 2 {
		return l, st, false
	}
	if src == barOf(p) {
		l.bar[s]--
	} else {
		l.add(p, src, -1)
	}
	if l.mine(them, target) == 1 {
		l.add(them, target, -1)
		l.bar[slot(them)]++
		st.Hit = true
	}
	l.add(p, target, 1)
	st.To = target
	return l, st, true
}

// sources lists where p may move a checker from, bar first and then points
// from the farthest to the nearest.
func (l *layout) sources(p engine.Player) []int {
	if l.bar[slot(p)] > 0 {
		return []int{barOf(p)}
	}
	var out []int
	if p == engine.PlayerB {
		for i := 0; i < Points; i++ {
			if l.mine(p, i) > 0 {
				out = append(out, i)
			}
		}
		return out
	}
	for i := Points - 1; i >= 0; i-- {
		if l.mine(p, i) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// pips is p's race length, counting bar checkers as 25.
func (l *layout) pips(p engine.Player) int {
	total := int(l.bar[slot(p)]) * 25
	for i := 0; i < Points; i++ {
		n := l.mine(p, i)
		if n == 0 {
			continue
		}
		dist := i + 1
		if p == engine.PlayerB {
			dist = Points - i
		}
		total += n * dist
	}
	return total
}

func (l *layout) toBoard() *board.Board {
	return board.New(Cells, 1).Edit(func(e *board.Editor) {
		put := func(i int, p engine.Player, n int) {
			if n > 0 {
				e.Put(i, board.Occupied(board.Piece{Owner: p.Owner(), Kind: board.Checker, Count: uint8(n)}))
			}
		}
		for i := 0; i < Points; i++ {
			put(i, engine.PlayerA, l.mine(engine.PlayerA, i))
			put(i, engine.PlayerB, l.mine(engine.PlayerB, i))
		}
		put(BarA, engine.PlayerA, int(l.bar[0]))
		put(BarB, engine.PlayerB, int(l.bar[1]))
		put(OffA, engine.PlayerA, int(l.off[0]))
		put(OffB, engine.PlayerB, int(l.off[1]))
	})
}
