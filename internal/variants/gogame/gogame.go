// Package gogame implements the game of Go with area scoring, a simple ko
// rule and no suicide. Black is player A and plays first.
package gogame

import (
	"fmt"
	"strings"

	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
)

const (
	DefaultSize = 9
	DefaultKomi = 6.5
)

// ValidSizes lists the supported board sizes.
var ValidSizes = []int{9, 13, 19}

type State struct {
	board      *board.Board
	turn       engine.Player
	moveNumber int
	passes     int
	ko         int
	komi       float64
	prisoners  [2]int
}

func (s *State) Kind() engine.Kind {
	return engine.Go
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

func (s *State) Komi() float64 {
	return s.komi
}

// Ko is the point the side to move may not play on, or -1.
func (s *State) Ko() int {
	return s.ko
}

// Prisoners is the number of stones p has captured.
func (s *State) Prisoners(p engine.Player) int {
	if p == engine.PlayerB {
		return s.prisoners[1]
	}
	return s.prisoners[0]
}

func (s *State) Hash() uint64 {
	z := board.Zobrist(s.board.Len())
	h := s.board.Hash()
	if s.turn == engine.PlayerB {
		h ^= z.Side()
	}
	h ^= z.Extra(s.passes)
	if s.ko >= 0 {
		h = board.Mix(h, uint64(s.ko)+1)
	}
	return h
}

func (s *State) size() int {
	return s.board.Width()
}

func (s *State) over() bool {
	return s.passes >= 2 || s.moveNumber >= MoveLimit(s.size())
}

func stone(p engine.Player) board.Cell {
	return board.Occupied(board.Piece{Owner: p.Owner(), Kind: board.Stone})
}

// FromDiagram builds a position from rows listed top row first: 'X' black,
// 'O' white, anything else empty. The board is square with len(rows) lines.
func FromDiagram(turn engine.Player, komi float64, rows ...string) (*State, error) {
	n := len(rows)
	if !validSize(n) {
		return nil, fmt.Errorf("unsupported go board size %d", n)
	}
	b := board.NewSquare(n).Edit(func(e *board.Editor) {
		for r, row := range rows {
			y := n - 1 - r
			for x := 0; x < n && x < len(row); x++ {
				switch row[x] {
				case 'X':
					e.Put(y*n+x, stone(engine.PlayerA))
				case 'O':
					e.Put(y*n+x, stone(engine.PlayerB))
				}
			}
		}
	})
	return &State{board: b, turn: turn, ko: -1, komi: komi}, nil
}

func validSize(n int) bool {
	for _, v := range ValidSizes {
		if v == n {
			return true
		}
	}
	return false
}

type Rules struct{}

func New() *Rules {
	return &Rules{}
}

func (r *Rules) Kind() engine.Kind {
	return engine.Go
}

func (r *Rules) SideName(p engine.Player) string {
	switch p {
	case engine.PlayerA:
		return "black"
	case engine.PlayerB:
		return "white"
	default:
		return "none"
	}
}

// NewGame creates an empty board. A zero Size or Komi selects the defaults.
func (r *Rules) NewGame(opts engine.Options) (engine.State, error) {
	size := opts.Size
	if size == 0 {
		size = DefaultSize
	}
	if !validSize(size) {
		return nil, fmt.Errorf("unsupported go board size %d (want one of %v)", size, ValidSizes)
	}
	komi := opts.Komi
	if komi == 0 {
		komi = DefaultKomi
	}
	return &State{
		board: board.NewSquare(size),
		turn:  engine.PlayerA,
		ko:    -1,
		komi:  komi,
	}, nil
}

// MoveLimit is the ply count after which the game is scored regardless of
// passes.
func MoveLimit(size int) int {
	return 3 * size * size
}

func cast(s engine.State) (*State, error) {
	st, ok := s.(*State)
	if !ok {
		return nil, fmt.Errorf("%w: expected go state, got %T", engine.ErrWrongVariant, s)
	}
	return st, nil
}

// GenerateMoves lists every legal placement followed by the pass, which is
// always legal.
func (r *Rules) GenerateMoves(s engine.State) []engine.Move {
	st, err := cast(s)
	if err != nil || st.over() {
		return nil
	}
	var moves []engine.Move
	for i := 0; i < st.board.Len(); i++ {
		if _, ok := st.place(i); ok {
			moves = append(moves, engine.Place(i))
		}
	}
	return append(moves, engine.Pass())
}

// place plays a stone at i. It reports false for occupied points, the ko
// point and suicide.
func (s *State) place(i int) (*State, bool) {
	if s.board.At(i).Occupied || i == s.ko {
		return nil, false
	}
	me, them := s.turn, s.turn.Opponent()
	var captured []int
	b := s.board.Edit(func(e *board.Editor) {
		e.Put(i, stone(me))
		for _, n := range e.Board().NeighborIndices(i, board.Orthogonal) {
			if !e.Get(n).OwnedBy(them.Owner()) || containsInt(captured, n) {
				continue
			}
			group, libs := groupAt(e.Board(), n)
			if libs == 0 {
				captured = append(captured, group...)
			}
		}
		for _, c := range captured {
			e.Clear(c)
		}
	})
	group, libs := groupAt(b, i)
	if libs == 0 {
		return nil, false
	}

	next := &State{
		board:      b,
		turn:       them,
		moveNumber: s.moveNumber + 1,
		ko:         -1,
		komi:       s.komi,
		prisoners:  s.prisoners,
	}
	if me == engine.PlayerA {
		next.prisoners[0] += len(captured)
	} else {
		next.prisoners[1] += len(captured)
	}
	if len(captured) == 1 && len(group) == 1 && libs == 1 {
		next.ko = captured[0]
	}
	return next, true
}

// groupAt returns the chain containing i and its liberty count.
func groupAt(b *board.Board, i int) ([]int, int) {
	owner := b.At(i).Piece.Owner
	seen := map[int]bool{i: true}
	libs := map[int]bool{}
	stack := []int{i}
	var group []int
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		group = append(group, cur)
		for _, n := range b.NeighborIndices(cur, board.Orthogonal) {
			c := b.At(n)
			switch {
			case !c.Occupied:
				libs[n] = true
			case c.Piece.Owner == owner && !seen[n]:
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
	return group, len(libs)
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func (r *Rules) ApplyMove(s engine.State, m engine.Move) (engine.State, error) {
	st, err := cast(s)
	if err != nil {
		return nil, err
	}
	if st.over() {
		return nil, engine.Illegal(m, "the game is over")
	}
	if engine.Same(m, engine.Pass()) {
		return &State{
			board:      st.board,
			turn:       st.turn.Opponent(),
			moveNumber: st.moveNumber + 1,
			passes:     st.passes + 1,
			ko:         -1,
			komi:       st.komi,
			prisoners:  st.prisoners,
		}, nil
	}
	// Placements are legal exactly when place succeeds, which is the test
	// GenerateMoves applies to every point.
	if !engine.Same(m, engine.Place(m.To)) || m.To < 0 || m.To >= st.board.Len() {
		return nil, engine.Illegal(m, "")
	}
	next, ok := st.place(m.To)
	if !ok {
		return nil, engine.Illegal(m, r.FormatMove(st, m)+" is occupied, ko or suicide")
	}
	return next, nil
}

func (r *Rules) IsTerminal(s engine.State) (engine.Outcome, bool) {
	st, err := cast(s)
	if err != nil {
		return engine.Outcome{}, false
	}
	var reason string
	switch {
	case st.passes >= 2:
		reason = engine.ReasonBothPassed
	case st.moveNumber >= MoveLimit(st.size()):
		reason = engine.ReasonMoveLimit
	default:
		return engine.Outcome{}, false
	}
	black, white := AreaScore(st)
	switch {
	case black > white:
		return engine.Win(engine.PlayerA, reason), true
	case white > black:
		return engine.Win(engine.PlayerB, reason), true
	}
	return engine.DrawBy(reason), true
}

// AreaScore counts stones plus surrounded empty regions for each side. Komi
// is added to white.
func AreaScore(s *State) (black, white float64) {
	b := s.board
	for i := 0; i < b.Len(); i++ {
		switch {
		case b.At(i).OwnedBy(board.OwnerA):
			black++
		case b.At(i).OwnedBy(board.OwnerB):
			white++
		}
	}
	for _, region := range emptyRegions(b) {
		switch region.border {
		case board.OwnerA:
			black += float64(len(region.points))
		case board.OwnerB:
			white += float64(len(region.points))
		}
	}
	return black, white + s.komi
}

type region struct {
	points []int
	// border is the single owner touching the region, or NoOwner when both
	// colours (or neither) do.
	border board.Owner
}

func emptyRegions(b *board.Board) []region {
	seen := make([]bool, b.Len())
	var out []region
	for i := 0; i < b.Len(); i++ {
		if seen[i] || b.At(i).Occupied {
			continue
		}
		var reg region
		touchA, touchB := false, false
		stack := []int{i}
		seen[i] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			reg.points = append(reg.points, cur)
			for _, n := range b.NeighborIndices(cur, board.Orthogonal) {
				c := b.At(n)
				switch {
				case c.OwnedBy(board.OwnerA):
					touchA = true
				case c.OwnedBy(board.OwnerB):
					touchB = true
				case !seen[n]:
					seen[n] = true
					stack = append(stack, n)
				}
			}
		}
		switch {
		case touchA && !touchB:
			reg.border = board.OwnerA
		case touchB && !touchA:
			reg.border = board.OwnerB
		}
		out = append(out, reg)
	}
	return out
}

func (r *Rules) FormatMove(s engine.State, m engine.Move) string {
	if m.IsPass() {
		return "pass"
	}
	size := DefaultSize
	if st, err := cast(s); err == nil {
		size = st.size()
	}
	return board.SquareName(board.Pos{X: m.To % size, Y: m.To / size})
}

// Render draws the position using the FromDiagram letters.
func Render(s *State) string {
	out := s.board.Render(func(c board.Cell) byte {
		switch {
		case c.OwnedBy(board.OwnerA):
			return 'X'
		case c.OwnedBy(board.OwnerB):
			return 'O'
		}
		return '.'
	})
	return strings.TrimRight(out, "\n")
}
