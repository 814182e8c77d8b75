// Package variants maps variant kinds to their rules.
package variants

import (
	"fmt"

	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/justinabrahms/boardcore/internal/variants/backgammon"
	"github.com/justinabrahms/boardcore/internal/variants/checkers"
	"github.com/justinabrahms/boardcore/internal/variants/chess"
	"github.com/justinabrahms/boardcore/internal/variants/gogame"
	"github.com/justinabrahms/boardcore/internal/variants/reversi"
)

// New returns the rules for kind.
func New(kind engine.Kind) (engine.Rules, error) {
	switch kind {
	case engine.Chess:
		return chess.New(), nil
	case engine.Checkers:
		return checkers.New(), nil
	case engine.Reversi:
		return reversi.New(), nil
	case engine.Go:
		return gogame.New(), nil
	case engine.Backgammon:
		return backgammon.New(), nil
	}
	return nil, fmt.Errorf("%w: %q", engine.ErrUnknownVariant, kind)
}

// Parse resolves a variant name (including aliases such as "othello") to
// its rules.
func Parse(name string) (engine.Rules, error) {
	kind, err := engine.ParseKind(name)
	if err != nil {
		return nil, err
	}
	return New(kind)
}

// Info describes a variant for listings.
type Info struct {
	Kind   engine.Kind `json:"kind"`
	SideA  string      `json:"side_a"`
	SideB  string      `json:"side_b"`
	Chance bool        `json:"chance"`
}

// All describes every supported variant in a stable order.
func All() []Info {
	var out []Info
	for _, kind := range engine.Kinds() {
		r, err := New(kind)
		if err != nil {
			continue
		}
		_, chance := r.(engine.Chance)
		out = append(out, Info{
			Kind:   kind,
			SideA:  r.SideName(engine.PlayerA),
			SideB:  r.SideName(engine.PlayerB),
			Chance: chance,
		})
	}
	return out
}

// Render draws a state as text using its variant's renderer.
func Render(s engine.State) string {
	switch st := s.(type) {
	case *chess.State:
		return chess.Render(st)
	case *checkers.State:
		return checkers.Render(st)
	case *reversi.State:
		return reversi.Render(st)
	case *gogame.State:
		return gogame.Render(st)
	case *backgammon.State:
		return backgammon.Render(st)
	}
	return ""
}
