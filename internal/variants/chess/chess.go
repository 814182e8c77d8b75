// Package chess implements standard chess on the shared board model. White
// is player A and moves up the board (rank 1 to rank 8).
package chess

import (
	"fmt"
	"strings"

	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
)

// FiftyMovePlies is the halfmove clock value at which the game is drawn.
const FiftyMovePlies = 100

var backRank = []board.PieceKind{
	board.Rook, board.Knight, board.Bishop, board.Queen,
	board.King, board.Bishop, board.Knight, board.Rook,
}

func piece(p engine.Player, kind board.PieceKind) board.Cell {
	return board.Occupied(board.Piece{Owner: p.Owner(), Kind: kind})
}

// StartingPosition returns the standard initial position.
func StartingPosition() *State {
	b := board.NewSquare(Size).Edit(func(e *board.Editor) {
		for x, kind := range backRank {
			e.Put(x, piece(engine.PlayerA, kind))
			e.Put(Size+x, piece(engine.PlayerA, board.Pawn))
			e.Put(6*Size+x, piece(engine.PlayerB, board.Pawn))
			e.Put(7*Size+x, piece(engine.PlayerB, kind))
		}
	})
	return &State{
		board:    b,
		turn:     engine.PlayerA,
		castling: AllCastling,
		epTarget: -1,
		fullmove: 1,
	}
}

type Rules struct{}

func New() *Rules {
	return &Rules{}
}

func (r *Rules) Kind() engine.Kind {
	return engine.Chess
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

// NewGame starts from the standard position, or from opts.FEN when set.
func (r *Rules) NewGame(opts engine.Options) (engine.State, error) {
	if strings.TrimSpace(opts.FEN) != "" {
		return FromFEN(opts.FEN)
	}
	return StartingPosition(), nil
}

// RepetitionLimit is the number of occurrences of one position that draws.
func (r *Rules) RepetitionLimit() int {
	return 3
}

func cast(s engine.State) (*State, error) {
	st, ok := s.(*State)
	if !ok {
		return nil, fmt.Errorf("%w: expected chess state, got %T", engine.ErrWrongVariant, s)
	}
	return st, nil
}

func (r *Rules) GenerateMoves(s engine.State) []engine.Move {
	st, err := cast(s)
	if err != nil || drawn(st) {
		return nil
	}
	return legalMoves(st)
}

// drawn reports the draws that end the game while moves remain.
func drawn(st *State) bool {
	return st.halfmove >= FiftyMovePlies || InsufficientMaterial(st)
}

func (r *Rules) ApplyMove(s engine.State, m engine.Move) (engine.State, error) {
	st, err := cast(s)
	if err != nil {
		return nil, err
	}
	legal, ok := engine.Find(r.GenerateMoves(st), m)
	if !ok {
		return nil, engine.Illegal(m, r.FormatMove(st, m)+" is not legal here")
	}
	return play(st, legal), nil
}

func (r *Rules) IsTerminal(s engine.State) (engine.Outcome, bool) {
	st, err := cast(s)
	if err != nil {
		return engine.Outcome{}, false
	}
	if len(legalMoves(st)) == 0 {
		if InCheck(st) {
			return engine.Win(st.turn.Opponent(), engine.ReasonCheckmate), true
		}
		return engine.DrawBy(engine.ReasonStalemate), true
	}
	if st.halfmove >= FiftyMovePlies {
		return engine.DrawBy(engine.ReasonFiftyMove), true
	}
	if InsufficientMaterial(st) {
		return engine.DrawBy(engine.ReasonInsufficientMaterial), true
	}
	return engine.Outcome{}, false
}

// InsufficientMaterial reports positions where neither side can mate: bare
// kings, a single minor piece against a bare king, or bishops that all stand
// on one square colour.
func InsufficientMaterial(s *State) bool {
	var minors, knights int
	bishopColors := map[int]bool{}
	for i := 0; i < s.board.Len(); i++ {
		c := s.board.At(i)
		if !c.Occupied {
			continue
		}
		switch c.Piece.Kind {
		case board.King:
		case board.Knight:
			minors++
			knights++
		case board.Bishop:
			minors++
			p := pos(i)
			bishopColors[(p.X+p.Y)%2] = true
		default:
			return false
		}
	}
	switch {
	case minors <= 1:
		return true
	case knights == 0 && len(bishopColors) == 1:
		return true
	}
	return false
}

var promotionLetters = map[board.PieceKind]string{
	board.Queen:  "q",
	board.Rook:   "r",
	board.Bishop: "b",
	board.Knight: "n",
}

// FormatMove renders long algebraic coordinates, e.g. "e2e4" or "e7e8q".
func (r *Rules) FormatMove(_ engine.State, m engine.Move) string {
	if m.From < 0 || m.To < 0 {
		return "0000"
	}
	return board.SquareName(pos(m.From)) + board.SquareName(pos(m.To)) + promotionLetters[m.Promotion]
}

var glyphs = map[board.PieceKind]byte{
	board.Pawn:   'p',
	board.Knight: 'n',
	board.Bishop: 'b',
	board.Rook:   'r',
	board.Queen:  'q',
	board.King:   'k',
}

func glyph(c board.Cell) byte {
	if !c.Occupied {
		return '.'
	}
	ch := glyphs[c.Piece.Kind]
	if c.Piece.Owner == board.OwnerA {
		ch -= 'a' - 'A'
	}
	return ch
}

// Render draws the board rank 8 first using FEN letters.
func Render(s *State) string {
	return strings.TrimRight(s.board.Render(glyph), "\n")
}
