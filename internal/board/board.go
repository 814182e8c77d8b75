package board

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOutOfBounds is returned when a position does not lie on the board.
var ErrOutOfBounds = errors.New("position out of bounds")

// ErrBoardInUse is returned when JSON is decoded into a non-empty board.
var ErrBoardInUse = errors.New("cannot decode into a board in use")

// Owner identifies which side a piece belongs to. It mirrors engine.Player
// without importing it so the board stays a leaf package.
type Owner int8

const (
	NoOwner Owner = iota
	OwnerA
	OwnerB
)

// PieceKind is the variant-specific piece type.
type PieceKind uint8

const (
	NoKind PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
	Man
	CrownedKing
	Stone
	Checker
)

var kindNames = map[PieceKind]string{
	NoKind:      "",
	Pawn:        "pawn",
	Knight:      "knight",
	Bishop:      "bishop",
	Rook:        "rook",
	Queen:       "queen",
	King:        "king",
	Man:         "man",
	CrownedKing: "crowned_king",
	Stone:       "stone",
	Checker:     "checker",
}

func (k PieceKind) String() string {
	return kindNames[k]
}

// MarshalText keeps piece kinds readable in JSON.
func (k PieceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PieceKind) UnmarshalText(text []byte) error {
	s := string(text)
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown piece kind %q", s)
}

// Piece is what occupies a cell. Count is the stack height and is 1 for
// every variant except backgammon.
type Piece struct {
	Owner Owner     `json:"owner"`
	Kind  PieceKind `json:"kind"`
	Count uint8     `json:"count"`
}

// Cell is either empty or holds a piece.
type Cell struct {
	Piece    Piece `json:"piece"`
	Occupied bool  `json:"occupied"`
}

// Empty is the zero cell.
var Empty = Cell{}

// Occupied wraps a piece into a cell. A zero count is normalised to 1.
func Occupied(p Piece) Cell {
	if p.Count == 0 {
		p.Count = 1
	}
	return Cell{Piece: p, Occupied: true}
}

func (c Cell) IsEmpty() bool {
	return !c.Occupied
}

// OwnedBy reports whether the cell holds a piece of the given owner.
func (c Cell) OwnedBy(o Owner) bool {
	return c.Occupied && c.Piece.Owner == o
}

// Board is a fixed-shape grid of cells. Boards are never mutated once they
// are handed out: Set and Edit return fresh copies, so game states that share
// a board stay valid after later moves.
type Board struct {
	width  int
	height int
	cells  []Cell
}

func New(width, height int) *Board {
	return &Board{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
	}
}

// NewSquare builds a size×size board, as used by Go.
func NewSquare(size int) *Board {
	return New(size, size)
}

func (b *Board) Width() int { return b.width }
func (b *Board) Height() int { return b.height }
func (b *Board) Len() int { return len(b.cells) }

func (b *Board) Contains(p Pos) bool {
	return p.X >= 0 && p.X < b.width && p.Y >= 0 && p.Y < b.height
}

// Index converts a position to its linear index.
func (b *Board) Index(p Pos) (int, error) {
	if !b.Contains(p) {
		return -1, fmt.Errorf("%w: %v on %dx%d board", ErrOutOfBounds, p, b.width, b.height)
	}
	return p.Y*b.width + p.X, nil
}

// PosOf converts a linear index back to a position.
func (b *Board) PosOf(i int) Pos {
	return Pos{X: i % b.width, Y: i / b.width}
}

func (b *Board) Get(p Pos) (Cell, error) {
	i, err := b.Index(p)
	if err != nil {
		return Empty, err
	}
	return b.cells[i], nil
}

// At returns the cell at a linear index. The index must be valid; rule code
// only calls it while iterating the board's own indices.
func (b *Board) At(i int) Cell {
	return b.cells[i]
}

// Set returns a copy of the board with one cell replaced.
func (b *Board) Set(p Pos, c Cell) (*Board, error) {
	i, err := b.Index(p)
	if err != nil {
		return nil, err
	}
	next := b.Clone()
	next.cells[i] = c
	return next, nil
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	cells := make([]Cell, len(b.cells))
	copy(cells, b.cells)
	return &Board{width: b.width, height: b.height, cells: cells}
}

// Editor batches writes against a private copy of a board.
type Editor struct {
	b *Board
}

func (e *Editor) Get(i int) Cell { return e.b.cells[i] }
func (e *Editor) Put(i int, c Cell) { e.b.cells[i] = c }
func (e *Editor) Clear(i int) { e.b.cells[i] = Empty }
func (e *Editor) Board() *Board { return e.b }
func (e *Editor) PosOf(i int) Pos { return e.b.PosOf(i) }
func (e *Editor) Index(p Pos) int { return p.Y*e.b.width + p.X }
func (e *Editor) Contains(p Pos) bool { return e.b.Contains(p) }

// Edit copies the board once, applies fn to the copy and returns it.
func (b *Board) Edit(fn func(e *Editor)) *Board {
	next := b.Clone()
	fn(&Editor{b: next})
	return next
}

// Count returns how many cells (or stacked pieces when stacked is true) the
// owner holds.
func (b *Board) Count(o Owner, stacked bool) int {
	n := 0
	for _, c := range b.cells {
		if !c.OwnedBy(o) {
			continue
		}
		if stacked {
			n += int(c.Piece.Count)
		} else {
			n++
		}
	}
	return n
}

// EmptyCount returns the number of empty cells.
func (b *Board) EmptyCount() int {
	n := 0
	for _, c := range b.cells {
		if c.IsEmpty() {
			n++
		}
	}
	return n
}

func (b *Board) Equal(o *Board) bool {
	if b.width != o.width || b.height != o.height {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Cells returns a copy of the cells in index order.
func (b *Board) Cells() []Cell {
	out := make([]Cell, len(b.cells))
	copy(out, b.cells)
	return out
}

// Render draws the board with rank 1 at the bottom using glyph for pieces.
func (b *Board) Render(glyph func(Cell) byte) string {
	var sb strings.Builder
	for y := b.height - 1; y >= 0; y-- {
		for x := 0; x < b.width; x++ {
			sb.WriteByte(glyph(b.cells[y*b.width+x]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
