package board

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Pos is a 0-based grid coordinate. X is the file (column), Y the rank (row).
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pos) Add(d Dir) Pos {
	return Pos{X: p.X + d.DX, Y: p.Y + d.DY}
}

func (p Pos) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Dir is a step vector.
type Dir struct {
	DX int
	DY int
}

// Pattern is a set of step vectors applied from a position.
type Pattern []Dir

var (
	Orthogonal = Pattern{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	Diagonal   = Pattern{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	AllEight   = Pattern{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	KnightJump = Pattern{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
)

// Neighbors returns the on-board positions one step away along each
// direction of the pattern, in pattern order.
func (b *Board) Neighbors(p Pos, pattern Pattern) []Pos {
	out := make([]Pos, 0, len(pattern))
	for _, d := range pattern {
		n := p.Add(d)
		if b.Contains(n) {
			out = append(out, n)
		}
	}
	return out
}

// NeighborIndices is Neighbors over linear indices.
func (b *Board) NeighborIndices(i int, pattern Pattern) []int {
	p := b.PosOf(i)
	out := make([]int, 0, len(pattern))
	for _, d := range pattern {
		n := p.Add(d)
		if b.Contains(n) {
			out = append(out, n.Y*b.width+n.X)
		}
	}
	return out
}

// Ray returns the indices visited when sliding from p along d, stopping at the
// first occupied cell (included) or the board edge.
func (b *Board) Ray(p Pos, d Dir) []int {
	var out []int
	for n := p.Add(d); b.Contains(n); n = n.Add(d) {
		i := n.Y*b.width + n.X
		out = append(out, i)
		if b.cells[i].Occupied {
			break
		}
	}
	return out
}

// SquareName renders a position in algebraic form, e.g. (2,3) -> "c4".
func SquareName(p Pos) string {
	return string(rune('a'+p.X)) + strconv.Itoa(p.Y+1)
}

// ParseSquare parses an algebraic square such as "c4" or "k10".
func ParseSquare(s string) (Pos, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 || s[0] < 'a' || s[0] > 'z' {
		return Pos{}, fmt.Errorf("invalid square %q", s)
	}
	rank, err := strconv.Atoi(s[1:])
	if err != nil || rank < 1 {
		return Pos{}, fmt.Errorf("invalid square %q", s)
	}
	return Pos{X: int(s[0] - 'a'), Y: rank - 1}, nil
}

type boardJSON struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cells  []Cell `json:"cells"`
}

func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(boardJSON{Width: b.width, Height: b.height, Cells: b.cells})
}

// UnmarshalJSON only fills a zero Board; decoding over a board that may
// already be shared is an error.
func (b *Board) UnmarshalJSON(data []byte) error {
	if b.cells != nil {
		return ErrBoardInUse
	}
	var raw boardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Width <= 0 || raw.Height <= 0 || len(raw.Cells) != raw.Width*raw.Height {
		return fmt.Errorf("board shape %dx%d does not match %d cells", raw.Width, raw.Height, len(raw.Cells))
	}
	b.width, b.height, b.cells = raw.Width, raw.Height, raw.Cells
	return nil
}
