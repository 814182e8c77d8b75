// Package backgammon implements backgammon without the doubling cube.
// Player A moves from point 24 towards point 1 (indices 23 down to 0) and
// bears off below index 0; player B moves the opposite way.
package backgammon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
	"golang.org/x/exp/rand"
)

type State struct {
	layout     layout
	board      *board.Board
	turn       engine.Player
	dice       [2]int
	moveNumber int
}

func (s *State) Kind() engine.Kind {
	return engine.Backgammon
}

func (s *State) Board() *board.Board {
	return s.board
}

func (s *State) Turn() engine.Player {
	return s.turn
}

func (s *State) MoveNumber() int {
	return s.moveNumber
}

// Dice is the current roll, or zeros when the side to move has not rolled.
func (s *State) Dice() [2]int {
	return s.dice
}

func (s *State) Hash() uint64 {
	z := board.Zobrist(Cells)
	h := s.board.Hash()
	if s.turn == engine.PlayerB {
		h ^= z.Side()
	}
	if s.dice[0] > 0 {
		lo, hi := s.dice[0], s.dice[1]
		if lo > hi {
			lo, hi = hi, lo
		}
		h ^= z.Extra(20 + (lo-1)*6 + hi - 1)
	}
	return h
}

func newState(l layout, turn engine.Player, dice [2]int, moveNumber int) *State {
	return &State{layout: l, board: l.toBoard(), turn: turn, dice: dice, moveNumber: moveNumber}
}

// Setup builds a position. a and b map cell indices (points, BarA/BarB) to
// checker counts; checkers not placed are treated as borne off. Zero dice
// mean the side to move still has to roll.
func Setup(turn engine.Player, dice [2]int, a, b map[int]int) (*State, error) {
	var l layout
	for _, side := range []struct {
		p      engine.Player
		counts map[int]int
	}{{engine.PlayerA, a}, {engine.PlayerB, b}} {
		total := 0
		for i, n := range side.counts {
			if n < 0 {
				return nil, fmt.Errorf("negative checker count at %d", i)
			}
			total += n
			switch {
			case i == barOf(side.p):
				l.bar[slot(side.p)] += int8(n)
			case i >= 0 && i < Points:
				if l.mine(side.p.Opponent(), i) > 0 {
					return nil, fmt.Errorf("point %d holds checkers of both sides", i)
				}
				l.add(side.p, i, int8(n))
			default:
				return nil, fmt.Errorf("cell %d is not a point or %s's bar", i, side.p)
			}
		}
		if total > Checkers {
			return nil, fmt.Errorf("%s has %d checkers, more than %d", side.p, total, Checkers)
		}
		l.off[slot(side.p)] = int8(Checkers - total)
	}
	unrolled := dice[0] == 0 && dice[1] == 0
	for _, d := range dice {
		if !unrolled && (d < 1 || d > 6) {
			return nil, fmt.Errorf("invalid dice %v: both dice are 0 or both are 1-6", dice)
		}
	}
	return newState(l, turn, dice, 0), nil
}

type Rules struct{}

func New() *Rules {
	return &Rules{}
}

func (r *Rules) Kind() engine.Kind {
	return engine.Backgammon
}

func (r *Rules) SideName(p engine.Player) string {
	return p.String()
}

// NewGame returns the standard starting position with A to roll.
func (r *Rules) NewGame(engine.Options) (engine.State, error) {
	return Setup(engine.PlayerA, [2]int{},
		map[int]int{23: 2, 12: 5, 7: 3, 5: 5},
		map[int]int{0: 2, 11: 5, 16: 3, 18: 5},
	)
}

func cast(s engine.State) (*State, error) {
	st, ok := s.(*State)
	if !ok {
		return nil, fmt.Errorf("%w: expected backgammon state, got %T", engine.ErrWrongVariant, s)
	}
	return st, nil
}

func (r *Rules) NeedsRoll(s engine.State) bool {
	st, err := cast(s)
	if err != nil {
		return false
	}
	return st.dice[0] == 0 && winner(&st.layout) == engine.NoPlayer
}

// Roll returns s with two dice drawn from rng.
func (r *Rules) Roll(s engine.State, rng *rand.Rand) engine.State {
	st, err := cast(s)
	if err != nil || !r.NeedsRoll(st) {
		return s
	}
	return WithDice(st, rng.Intn(6)+1, rng.Intn(6)+1)
}

// WithDice returns s with the given roll.
func WithDice(s *State, d1, d2 int) *State {
	next := *s
	next.dice = [2]int{d1, d2}
	return &next
}

// Outcomes lists the 21 distinct rolls. Doubles weigh 1 and the rest 2, out
// of TotalWeight.
func (r *Rules) Outcomes(s engine.State) []engine.ChanceOutcome {
	st, err := cast(s)
	if err != nil {
		return nil
	}
	out := make([]engine.ChanceOutcome, 0, 21)
	for d1 := 1; d1 <= 6; d1++ {
		for d2 := d1; d2 <= 6; d2++ {
			w := 2
			if d1 == d2 {
				w = 1
			}
			out = append(out, engine.ChanceOutcome{State: WithDice(st, d1, d2), Weight: w})
		}
	}
	return out
}

func (r *Rules) TotalWeight() int {
	return 36
}

type sequence struct {
	steps []engine.Step
	end   layout
}

// GenerateMoves enumerates whole turns. Only plays that use the most dice
// are legal; when just one die of a non-double can be used it must be the
// larger one if possible. Plays reaching the same position are listed once.
func (r *Rules) GenerateMoves(s engine.State) []engine.Move {
	st, err := cast(s)
	if err != nil || st.dice[0] == 0 || winner(&st.layout) != engine.NoPlayer {
		return nil
	}

	d1, d2 := st.dice[0], st.dice[1]
	orders := [][]int{{d1, d2}, {d2, d1}}
	if d1 == d2 {
		orders = [][]int{{d1, d1, d1, d1}}
	}

	var all []sequence
	for _, dice := range orders {
		expand(st.layout, st.turn, dice, nil, &all)
	}

	longest := 0
	for _, seq := range all {
		if len(seq.steps) > longest {
			longest = len(seq.steps)
		}
	}
	if longest == 0 {
		return []engine.Move{engine.Pass()}
	}

	keep := all[:0:0]
	for _, seq := range all {
		if len(seq.steps) == longest {
			keep = append(keep, seq)
		}
	}
	if longest == 1 && d1 != d2 {
		big := d1
		if d2 > big {
			big = d2
		}
		var withBig []sequence
		for _, seq := range keep {
			if seq.steps[0].Die == big {
				withBig = append(withBig, seq)
			}
		}
		if len(withBig) > 0 {
			keep = withBig
		}
	}

	seen := make(map[layout]bool, len(keep))
	var moves []engine.Move
	for _, seq := range keep {
		if seen[seq.end] {
			continue
		}
		seen[seq.end] = true
		moves = append(moves, engine.Move{Steps: seq.steps})
	}
	return moves
}

// expand extends a play die by die. A play ends when the dice run out or the
// next die cannot be used.
func expand(l layout, p engine.Player, dice []int, steps []engine.Step, out *[]sequence) {
	if len(dice) == 0 {
		*out = append(*out, sequence{steps: steps, end: l})
		return
	}
	moved := false
	for _, src := range l.sources(p) {
		next, st, ok := l.step(p, src, dice[0])
		if !ok {
			continue
		}
		moved = true
		expand(next, p, dice[1:], append(append([]engine.Step(nil), steps...), st), out)
	}
	if !moved && len(steps) > 0 {
		*out = append(*out, sequence{steps: steps, end: l})
	}
}

func (r *Rules) ApplyMove(s engine.State, m engine.Move) (engine.State, error) {
	st, err := cast(s)
	if err != nil {
		return nil, err
	}
	if st.dice[0] == 0 {
		return nil, engine.Illegal(m, "dice have not been rolled")
	}
	legal, ok := engine.Find(r.GenerateMoves(st), m)
	if !ok {
		return nil, engine.Illegal(m, r.FormatMove(st, m)+" is not a legal play")
	}
	l := st.layout
	for _, step := range legal.Steps {
		next, _, ok := l.step(st.turn, step.From, step.Die)
		if !ok {
			return nil, engine.Illegal(m, "")
		}
		l = next
	}
	return newState(l, st.turn.Opponent(), [2]int{}, st.moveNumber+1), nil
}

func winner(l *layout) engine.Player {
	switch {
	case l.off[0] == Checkers:
		return engine.PlayerA
	case l.off[1] == Checkers:
		return engine.PlayerB
	}
	return engine.NoPlayer
}

func (r *Rules) IsTerminal(s engine.State) (engine.Outcome, bool) {
	st, err := cast(s)
	if err != nil {
		return engine.Outcome{}, false
	}
	if w := winner(&st.layout); w != engine.NoPlayer {
		return engine.Win(w, engine.ReasonBorneOff), true
	}
	return engine.Outcome{}, false
}

// pointName numbers points from the mover's side, 1 being the last point
// before bearing off.
func pointName(p engine.Player, i int) string {
	switch {
	case i == BarA || i == BarB:
		return "bar"
	case i == OffA || i == OffB:
		return "off"
	case p == engine.PlayerB:
		return strconv.Itoa(Points - i)
	default:
		return strconv.Itoa(i + 1)
	}
}

// FormatMove renders a play as "from/to" pairs, e.g. "bar/22 13/11*".
func (r *Rules) FormatMove(s engine.State, m engine.Move) string {
	if m.IsPass() {
		return "pass"
	}
	p := s.Turn()
	parts := make([]string, 0, len(m.Steps))
	for _, step := range m.Steps {
		part := pointName(p, step.From) + "/" + pointName(p, step.To)
		if step.Hit {
			part += "*"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}

// PipCount is p's remaining race length.
func PipCount(s *State, p engine.Player) int {
	return s.layout.pips(p)
}

// BorneOff is the number of checkers p has removed.
func BorneOff(s *State, p engine.Player) int {
	return int(s.layout.off[slot(p)])
}

// OnBar is the number of p's checkers waiting to enter.
func OnBar(s *State, p engine.Player) int {
	return int(s.layout.bar[slot(p)])
}

// Render lists the occupied points from A's side, then bar, borne-off and
// dice.
func Render(s *State) string {
	var sb strings.Builder
	for i := Points - 1; i >= 0; i-- {
		v := s.layout.points[i]
		switch {
		case v > 0:
			fmt.Fprintf(&sb, "%2d: A x%d\n", i+1, v)
		case v < 0:
			fmt.Fprintf(&sb, "%2d: B x%d\n", i+1, -v)
		}
	}
	fmt.Fprintf(&sb, "bar: A %d, B %d\n", s.layout.bar[0], s.layout.bar[1])
	fmt.Fprintf(&sb, "off: A %d, B %d\n", s.layout.off[0], s.layout.off[1])
	if s.dice[0] != 0 {
		fmt.Fprintf(&sb, "dice: %d-%d\n", s.dice[0], s.dice[1])
	}
	return sb.String()
}
