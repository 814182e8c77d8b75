// Package reversi implements Reversi/Othello on an 8×8 board. White (player
// A) moves first from the D4/E5 black, D5/E4 white opening.
package reversi

import (
	"fmt"
	"strings"

	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
)

const Size = 8

// State is an immutable Reversi position.
type State struct {
	board      *board.Board
	turn       engine.Player
	moveNumber int
	// Passed is set when the side that should have moved had no legal move
	// and the turn came back to the current player.
	passed bool
}

func (s *State) Kind() engine.Kind { return engine.Reversi }
func (s *State) Board() *board.Board { return s.board }
func (s *State) Turn() engine.Player { return s.turn }
func (s *State) MoveNumber() int { return s.moveNumber }
func (s *State) Passed() bool { return s.passed }

func (s *State) Hash() uint64 {
	h := s.board.Hash()
	if s.turn == engine.PlayerB {
		h ^= board.Zobrist(s.board.Len()).Side()
	}
	return h
}

// NewState wraps a board in a state with the given side to move.
func NewState(b *board.Board, turn engine.Player) *State {
	return &State{board: b, turn: turn}
}

// FromDiagram builds a position from rows listed from rank 8 down to rank 1.
// 'W' is white (A), 'B' black (B), anything else empty.
func FromDiagram(turn engine.Player, rows ...string) (*State, error) {
	if len(rows) != Size {
		return nil, fmt.Errorf("reversi diagram needs %d rows, got %d", Size, len(rows))
	}
	b := board.New(Size, Size).Edit(func(e *board.Editor) {
		for r, row := range rows {
			y := Size - 1 - r
			for x := 0; x < Size && x < len(row); x++ {
				switch row[x] {
				case 'W', 'w':
					e.Put(y*Size+x, disc(engine.PlayerA))
				case 'B', 'b':
					e.Put(y*Size+x, disc(engine.PlayerB))
				}
			}
		}
	})
	return NewState(b, turn), nil
}

func disc(p engine.Player) board.Cell {
	return board.Occupied(board.Piece{Owner: p.Owner(), Kind: board.Stone})
}

type Rules struct{}

func New() *Rules {
	return &Rules{}
}

func (r *Rules) Kind() engine.Kind {
	return engine.Reversi
}

func (r *Rules) SideName(p engine.Player) string {
	switch p {
	case engine.PlayerA:
		return "white"
	case engine.PlayerB:
		return "black"
	default:
		return "none"
	}
}

func (r *Rules) NewGame(engine.Options) (engine.State, error) {
	b := board.New(Size, Size).Edit(func(e *board.Editor) {
		e.Put(e.Index(board.Pos{X: 3, Y: 3}), disc(engine.PlayerB)) // d4
		e.Put(e.Index(board.Pos{X: 4, Y: 4}), disc(engine.PlayerB)) // e5
		e.Put(e.Index(board.Pos{X: 3, Y: 4}), disc(engine.PlayerA)) // d5
		e.Put(e.Index(board.Pos{X: 4, Y: 3}), disc(engine.PlayerA)) // e4
	})
	return NewState(b, engine.PlayerA), nil
}

func cast(s engine.State) (*State, error) {
	st, ok := s.(*State)
	if !ok {
		return nil, fmt.Errorf("%w: expected reversi state, got %T", engine.ErrWrongVariant, s)
	}
	return st, nil
}

// flips returns the discs that playing i as p would turn over, in direction
// order.
func flips(b *board.Board, i int, p engine.Player) []int {
	if b.At(i).Occupied {
		return nil
	}
	var out []int
	from := b.PosOf(i)
	for _, d := range board.AllEight {
		var line []int
		n := from.Add(d)
		for b.Contains(n) {
			j := n.Y*Size + n.X
			c := b.At(j)
			if !c.Occupied {
				line = nil
				break
			}
			if c.Piece.Owner == p.Owner() {
				break
			}
			line = append(line, j)
			n = n.Add(d)
		}
		if !b.Contains(n) {
			continue
		}
		out = append(out, line...)
	}
	return out
}

func placements(b *board.Board, p engine.Player) []engine.Move {
	var moves []engine.Move
	for i := 0; i < b.Len(); i++ {
		if f := flips(b, i, p); len(f) > 0 {
			m := engine.Place(i)
			m.Captured = f
			moves = append(moves, m)
		}
	}
	return moves
}

func hasPlacement(b *board.Board, p engine.Player) bool {
	for i := 0; i < b.Len(); i++ {
		if len(flips(b, i, p)) > 0 {
			return true
		}
	}
	return false
}

func (r *Rules) GenerateMoves(s engine.State) []engine.Move {
	st, err := cast(s)
	if err != nil {
		return nil
	}
	moves := placements(st.board, st.turn)
	if len(moves) > 0 {
		return moves
	}
	if st.board.EmptyCount() > 0 && hasPlacement(st.board, st.turn.Opponent()) {
		return []engine.Move{engine.Pass()}
	}
	return nil
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
	next := &State{
		board:      st.board,
		turn:       st.turn.Opponent(),
		moveNumber: st.moveNumber + 1,
	}
	if legal.IsPass() {
		next.passed = true
		return next, nil
	}
	owner := disc(st.turn)
	next.board = st.board.Edit(func(e *board.Editor) {
		e.Put(legal.To, owner)
		for _, i := range legal.Captured {
			e.Put(i, owner)
		}
	})
	if !hasPlacement(next.board, next.turn) && hasPlacement(next.board, st.turn) {
		next.turn = st.turn
		next.passed = true
	}
	return next, nil
}

func (r *Rules) IsTerminal(s engine.State) (engine.Outcome, bool) {
	st, err := cast(s)
	if err != nil {
		return engine.Outcome{}, false
	}
	reason := engine.ReasonNoMoves
	if st.board.EmptyCount() == 0 {
		reason = engine.ReasonBoardFull
	} else if hasPlacement(st.board, st.turn) || hasPlacement(st.board, st.turn.Opponent()) {
		return engine.Outcome{}, false
	}
	a := st.board.Count(engine.PlayerA.Owner(), false)
	b := st.board.Count(engine.PlayerB.Owner(), false)
	switch {
	case a > b:
		return engine.Win(engine.PlayerA, reason), true
	case b > a:
		return engine.Win(engine.PlayerB, reason), true
	default:
		return engine.DrawBy(reason), true
	}
}

func (r *Rules) FormatMove(_ engine.State, m engine.Move) string {
	if m.IsPass() {
		return "pass"
	}
	return board.SquareName(board.Pos{X: m.To % Size, Y: m.To / Size})
}

// Render draws the position with W/B discs.
func Render(s *State) string {
	out := s.board.Render(func(c board.Cell) byte {
		switch {
		case c.OwnedBy(board.OwnerA):
			return 'W'
		case c.OwnedBy(board.OwnerB):
			return 'B'
		default:
			return '.'
		}
	})
	return strings.TrimRight(out, "\n")
}
