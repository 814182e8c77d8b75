// Package checkers implements American checkers (English draughts). Black
// (player A) starts on ranks 1-3 and moves first; red (player B) starts on
// ranks 6-8.
package checkers

import (
	"fmt"
	"strings"

	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
)

const (
	Size = 8
	// QuietLimit is the number of plies without a capture or a man moving
	// after which the game is drawn.
	QuietLimit = 80
)

type State struct {
	board      *board.Board
	turn       engine.Player
	moveNumber int
	quiet      int
}

func (s *State) Kind() engine.Kind {
	return engine.Checkers
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

func (s *State) Hash() uint64 {
	h := s.board.Hash()
	if s.turn == engine.PlayerB {
		h ^= board.Zobrist(s.board.Len()).Side()
	}
	return h
}

// PliesToDraw is how many quiet plies remain before the game is drawn.
func (s *State) PliesToDraw() int {
	return QuietLimit - s.quiet
}

func NewState(b *board.Board, turn engine.Player) *State {
	return &State{board: b, turn: turn}
}

// FromDiagram builds a position from rows listed from rank 8 down to rank 1:
// 'b'/'B' black man/king, 'r'/'R' red man/king.
func FromDiagram(turn engine.Player, rows ...string) (*State, error) {
	if len(rows) != Size {
		return nil, fmt.Errorf("checkers diagram needs %d rows, got %d", Size, len(rows))
	}
	var bad error
	b := board.New(Size, Size).Edit(func(e *board.Editor) {
		for r, row := range rows {
			y := Size - 1 - r
			for x := 0; x < Size && x < len(row); x++ {
				var c board.Cell
				switch row[x] {
				case 'b':
					c = piece(engine.PlayerA, board.Man)
				case 'B':
					c = piece(engine.PlayerA, board.CrownedKing)
				case 'r':
					c = piece(engine.PlayerB, board.Man)
				case 'R':
					c = piece(engine.PlayerB, board.CrownedKing)
				default:
					continue
				}
				if !dark(x, y) {
					bad = fmt.Errorf("piece on light square %s", board.SquareName(board.Pos{X: x, Y: y}))
				}
				e.Put(y*Size+x, c)
			}
		}
	})
	if bad != nil {
		return nil, bad
	}
	return NewState(b, turn), nil
}

func piece(p engine.Player, kind board.PieceKind) board.Cell {
	return board.Occupied(board.Piece{Owner: p.Owner(), Kind: kind})
}

func dark(x, y int) bool {
	return (x+y)%2 == 0
}

// forward is the rank direction a player's men move in.
func forward(p engine.Player) int {
	if p == engine.PlayerA {
		return 1
	}
	return -1
}

func crownRank(p engine.Player) int {
	if p == engine.PlayerA {
		return Size - 1
	}
	return 0
}

func directions(p engine.Player, kind board.PieceKind) board.Pattern {
	if kind == board.CrownedKing {
		return board.Diagonal
	}
	f := forward(p)
	return board.Pattern{{DX: 1, DY: f}, {DX: -1, DY: f}}
}

type Rules struct{}

func New() *Rules {
	return &Rules{}
}

func (r *Rules) Kind() engine.Kind {
	return engine.Checkers
}

func (r *Rules) SideName(p engine.Player) string {
	switch p {
	case engine.PlayerA:
		return "black"
	case engine.PlayerB:
		return "red"
	default:
		return "none"
	}
}

func (r *Rules) NewGame(engine.Options) (engine.State, error) {
	b := board.New(Size, Size).Edit(func(e *board.Editor) {
		for y := 0; y < Size; y++ {
			for x := 0; x < Size; x++ {
				if !dark(x, y) {
					continue
				}
				switch {
				case y < 3:
					e.Put(y*Size+x, piece(engine.PlayerA, board.Man))
				case y > 4:
					e.Put(y*Size+x, piece(engine.PlayerB, board.Man))
				}
			}
		}
	})
	return NewState(b, engine.PlayerA), nil
}

func cast(s engine.State) (*State, error) {
	st, ok := s.(*State)
	if !ok {
		return nil, fmt.Errorf("%w: expected checkers state, got %T", engine.ErrWrongVariant, s)
	}
	return st, nil
}

func (r *Rules) GenerateMoves(s engine.State) []engine.Move {
	st, err := cast(s)
	if err != nil || st.quiet >= QuietLimit {
		return nil
	}
	return movesFor(st)
}

// movesFor is the move list ignoring the quiet-move draw.
func movesFor(st *State) []engine.Move {
	jumps := captures(st.board, st.turn)
	if len(jumps) > 0 {
		return jumps
	}
	return steps(st.board, st.turn)
}

func steps(b *board.Board, p engine.Player) []engine.Move {
	var moves []engine.Move
	for i := 0; i < b.Len(); i++ {
		c := b.At(i)
		if !c.OwnedBy(p.Owner()) {
			continue
		}
		from := b.PosOf(i)
		for _, d := range directions(p, c.Piece.Kind) {
			to := from.Add(d)
			if !b.Contains(to) {
				continue
			}
			j := to.Y*Size + to.X
			if b.At(j).Occupied {
				continue
			}
			moves = append(moves, engine.Move{From: i, To: j, Path: []int{j}})
		}
	}
	return moves
}

func captures(b *board.Board, p engine.Player) []engine.Move {
	var moves []engine.Move
	for i := 0; i < b.Len(); i++ {
		c := b.At(i)
		if !c.OwnedBy(p.Owner()) {
			continue
		}
		chain(b, p, c.Piece.Kind, i, i, nil, nil, &moves)
	}
	return moves
}

// chain extends a jump sequence from cur depth-first. Jumped pieces stay on
// the board until the move completes but cannot be jumped twice; a man that
// reaches the crown row ends its move there.
func chain(b *board.Board, p engine.Player, kind board.PieceKind, origin, cur int, path, taken []int, out *[]engine.Move) {
	extended := false
	from := b.PosOf(cur)
	for _, d := range directions(p, kind) {
		over := from.Add(d)
		land := over.Add(d)
		if !b.Contains(land) {
			continue
		}
		oi, li := over.Y*Size+over.X, land.Y*Size+land.X
		if !b.At(oi).OwnedBy(p.Opponent().Owner()) || contains(taken, oi) {
			continue
		}
		if b.At(li).Occupied && li != origin {
			continue
		}
		nextPath := append(append([]int(nil), path...), li)
		nextTaken := append(append([]int(nil), taken...), oi)
		extended = true
		if kind == board.Man && land.Y == crownRank(p) {
			*out = append(*out, engine.Move{From: origin, To: li, Path: nextPath, Captured: nextTaken})
			continue
		}
		chain(b, p, kind, origin, li, nextPath, nextTaken, out)
	}
	if !extended && len(path) > 0 {
		*out = append(*out, engine.Move{From: origin, To: cur, Path: path, Captured: taken})
	}
}

func contains(xs []int, v int) bool {
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
	legal, ok := engine.Find(r.GenerateMoves(st), m)
	if !ok {
		return nil, engine.Illegal(m, "")
	}
	moving := st.board.At(legal.From)
	manMoved := moving.Piece.Kind == board.Man
	if manMoved && legal.To/Size == crownRank(st.turn) {
		moving = piece(st.turn, board.CrownedKing)
	}
	next := &State{
		turn:       st.turn.Opponent(),
		moveNumber: st.moveNumber + 1,
		quiet:      st.quiet + 1,
	}
	if manMoved || len(legal.Captured) > 0 {
		next.quiet = 0
	}
	next.board = st.board.Edit(func(e *board.Editor) {
		e.Clear(legal.From)
		for _, i := range legal.Captured {
			e.Clear(i)
		}
		e.Put(legal.To, moving)
	})
	return next, nil
}

func (r *Rules) IsTerminal(s engine.State) (engine.Outcome, bool) {
	st, err := cast(s)
	if err != nil {
		return engine.Outcome{}, false
	}
	if len(movesFor(st)) == 0 {
		return engine.Win(st.turn.Opponent(), engine.ReasonNoMoves), true
	}
	if st.quiet >= QuietLimit {
		return engine.DrawBy(engine.ReasonQuietMoves), true
	}
	return engine.Outcome{}, false
}

func (r *Rules) FormatMove(_ engine.State, m engine.Move) string {
	name := func(i int) string {
		return board.SquareName(board.Pos{X: i % Size, Y: i / Size})
	}
	if len(m.Captured) == 0 {
		return name(m.From) + "-" + name(m.To)
	}
	parts := []string{name(m.From)}
	for _, i := range m.Path {
		parts = append(parts, name(i))
	}
	return strings.Join(parts, "x")
}

// Render draws the position using the FromDiagram letters.
func Render(s *State) string {
	out := s.board.Render(func(c board.Cell) byte {
		if !c.Occupied {
			return '.'
		}
		var ch byte = 'b'
		if c.Piece.Owner == board.OwnerB {
			ch = 'r'
		}
		if c.Piece.Kind == board.CrownedKing {
			ch -= 'a' - 'A'
		}
		return ch
	})
	return strings.TrimRight(out, "\n")
}
