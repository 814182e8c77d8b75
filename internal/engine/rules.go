package engine

import (
	"github.com/justinabrahms/boardcore/internal/board"
	"golang.org/x/exp/rand"
)

// State is an immutable snapshot of a game. Implementations are owned by a
// variant package; everything outside that package treats them opaquely.
type State interface {
	Kind() Kind
	Board() *board.Board
	Turn() Player
	MoveNumber() int
	// Hash identifies the position including side to move and auxiliary
	// state. Equal positions hash equally; draw clocks are not part of the
	// position (see DrawClock).
	Hash() uint64
}

// Rules is the capability set every variant implements. The session
// controller and the search only ever talk to this interface.
type Rules interface {
	Kind() Kind
	// SideName names a player in the variant's terms ("white", "red", ...).
	SideName(p Player) string
	NewGame(opts Options) (State, error)
	// GenerateMoves returns every legal move for the side to move, in a fixed
	// order. It is empty once IsTerminal reports an outcome.
	GenerateMoves(s State) []Move
	// ApplyMove validates m against GenerateMoves and returns the next state.
	ApplyMove(s State, m Move) (State, error)
	IsTerminal(s State) (Outcome, bool)
	// Evaluate scores s from p's point of view.
	Evaluate(s State, p Player) Score
	FormatMove(s State, m Move) string
}

// ChanceOutcome is one random continuation of a chance state.
type ChanceOutcome struct {
	State State
	// Weight is the outcome's probability times TotalWeight.
	Weight int
}

// Chance is implemented by variants with dice. A state that NeedsRoll has no
// legal moves until Roll (or one of Outcomes) supplies the random part.
type Chance interface {
	NeedsRoll(s State) bool
	Roll(s State, rng *rand.Rand) State
	Outcomes(s State) []ChanceOutcome
	TotalWeight() int
}

// RepetitionLimiter is implemented by variants that draw when a position
// occurs Limit times.
type RepetitionLimiter interface {
	RepetitionLimit() int
}

// DrawClock is implemented by states carrying a counter that draws the game
// when it runs out, such as the fifty-move rule.
type DrawClock interface {
	PliesToDraw() int
}

// MoveOrderer lets a variant put promising moves first for the search.
type MoveOrderer interface {
	OrderHint(s State, m Move) int
}
