package engine

import (
	"fmt"
	"strings"

	"github.com/justinabrahms/boardcore/internal/board"
)

// NoSquare marks an unused From/To.
const NoSquare = -1

// Special tags moves that need more than a from/to pair to apply.
type Special string

const (
	SpecialNone        Special = ""
	SpecialCastleKing  Special = "castle_king"
	SpecialCastleQueen Special = "castle_queen"
	SpecialEnPassant   Special = "en_passant"
	SpecialDoublePush  Special = "double_push"
	SpecialPass        Special = "pass"
	SpecialPlace       Special = "place"
)

// Step is one checker movement inside a backgammon turn. From and To use the
// backgammon point numbering of the variant; the bar and bear-off have their
// own reserved values.
type Step struct {
	From int  `json:"from"`
	To   int  `json:"to"`
	Die  int  `json:"die"`
	Hit  bool `json:"hit,omitempty"`
}

// Move is an immutable value describing one ply. Which fields are set
// depends on the variant:
//   - chess: From, To, Promotion and Special for castling/en passant
//   - checkers: From, To and Path with every landing square of a jump chain
//   - reversi/go: To with SpecialPlace, or SpecialPass
//   - backgammon: Steps, or SpecialPass when no play exists
//
// Captured lists indices removed by the move. It is derived by the rules and
// ignored when matching a submitted move against the legal list.
type Move struct {
	From      int             `json:"from"`
	To        int             `json:"to"`
	Promotion board.PieceKind `json:"promotion,omitempty"`
	Special   Special         `json:"special,omitempty"`
	Path      []int           `json:"path,omitempty"`
	Captured  []int           `json:"captured,omitempty"`
	Steps     []Step          `json:"steps,omitempty"`
}

// Pass is the move for a side that gives up its turn.
func Pass() Move {
	return Move{From: NoSquare, To: NoSquare, Special: SpecialPass}
}

// Place is a stone/disc placement at an index.
func Place(i int) Move {
	return Move{From: NoSquare, To: i, Special: SpecialPlace}
}

func (m Move) IsPass() bool {
	return m.Special == SpecialPass
}

// IsCapture reports whether the move removes enemy material.
func (m Move) IsCapture() bool {
	if len(m.Captured) > 0 || m.Special == SpecialEnPassant {
		return true
	}
	for _, s := range m.Steps {
		if s.Hit {
			return true
		}
	}
	return false
}

// Same reports whether two moves identify the same action.
func Same(a, b Move) bool {
	if a.From != b.From || a.To != b.To || a.Promotion != b.Promotion || a.Special != b.Special {
		return false
	}
	if len(a.Path) != len(b.Path) || len(a.Steps) != len(b.Steps) {
		return false
	}
	for i := range a.Path {
		if a.Path[i] != b.Path[i] {
			return false
		}
	}
	for i := range a.Steps {
		if a.Steps[i].From != b.Steps[i].From || a.Steps[i].To != b.Steps[i].To || a.Steps[i].Die != b.Steps[i].Die {
			return false
		}
	}
	return true
}

// Find returns the legal move matching m.
func Find(legal []Move, m Move) (Move, bool) {
	for _, candidate := range legal {
		if Same(candidate, m) {
			return candidate, true
		}
	}
	return Move{}, false
}

// Illegal builds an ErrIllegalMove error for a move.
func Illegal(m Move, why string) error {
	if why == "" {
		return fmt.Errorf("%w: %+v", ErrIllegalMove, m)
	}
	return fmt.Errorf("%w: %s", ErrIllegalMove, why)
}

// ParseMove finds the legal move whose notation matches text.
func ParseMove(r Rules, s State, text string) (Move, error) {
	want := normalizeNotation(text)
	for _, m := range r.GenerateMoves(s) {
		if normalizeNotation(r.FormatMove(s, m)) == want {
			return m, nil
		}
	}
	return Move{}, fmt.Errorf("%w: %q is not a legal move", ErrIllegalMove, text)
}

func normalizeNotation(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
