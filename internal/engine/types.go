package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/justinabrahms/boardcore/internal/board"
)

var (
	// ErrIllegalMove is returned when a move is not among the legal moves of
	// the state it is applied to.
	ErrIllegalMove = errors.New("illegal move")
	// ErrWrongVariant is returned when a state from one variant is handed to
	// another variant's rules.
	ErrWrongVariant = errors.New("state belongs to a different variant")
	// ErrUnknownVariant is returned for unrecognised variant names.
	ErrUnknownVariant = errors.New("unknown variant")
)

// Player is one of the two sides.
type Player int8

const (
	NoPlayer Player = iota
	PlayerA
	PlayerB
)

func (p Player) Opponent() Player {
	switch p {
	case PlayerA:
		return PlayerB
	case PlayerB:
		return PlayerA
	default:
		return NoPlayer
	}
}

func (p Player) String() string {
	switch p {
	case PlayerA:
		return "a"
	case PlayerB:
		return "b"
	default:
		return "none"
	}
}

// Owner converts a player to the board's owner tag.
func (p Player) Owner() board.Owner {
	return board.Owner(p)
}

// PlayerOf converts a board owner back to a player.
func PlayerOf(o board.Owner) Player {
	return Player(o)
}

func (p Player) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Player) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "a":
		*p = PlayerA
	case "b":
		*p = PlayerB
	case "none", "":
		*p = NoPlayer
	default:
		return fmt.Errorf("unknown player %q", string(text))
	}
	return nil
}

// Kind is the closed set of supported game variants.
type Kind string

const (
	Chess      Kind = "chess"
	Checkers   Kind = "checkers"
	Reversi    Kind = "reversi"
	Go         Kind = "go"
	Backgammon Kind = "backgammon"
)

// Kinds lists every variant in a fixed order.
func Kinds() []Kind {
	return []Kind{Chess, Checkers, Reversi, Go, Backgammon}
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "othello":
		return Reversi, nil
	case "draughts":
		return Checkers, nil
	case "weiqi", "baduk":
		return Go, nil
	}
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// Score is a static evaluation from one player's point of view.
type Score int

const (
	// WinScore is the value of a won terminal position. Search subtracts the
	// ply distance so faster wins score higher.
	WinScore Score = 1_000_000
	Infinity Score = 1 << 30
)

// Reason strings used in outcomes.
const (
	ReasonCheckmate            = "checkmate"
	ReasonStalemate            = "stalemate"
	ReasonFiftyMove            = "fifty_move_rule"
	ReasonInsufficientMaterial = "insufficient_material"
	ReasonRepetition           = "repetition"
	ReasonNoMoves              = "no_legal_moves"
	ReasonBoardFull            = "board_full"
	ReasonBothPassed           = "both_passed"
	ReasonMoveLimit            = "move_limit"
	ReasonBorneOff             = "borne_off"
	ReasonQuietMoves           = "quiet_move_limit"
	ReasonAbandoned            = "abandoned"
	ReasonTimeout              = "timeout"
)

// Outcome describes a finished game. Winner is NoPlayer for draws.
type Outcome struct {
	Winner Player `json:"winner"`
	Draw   bool   `json:"draw"`
	Reason string `json:"reason"`
}

func Win(p Player, reason string) Outcome {
	return Outcome{Winner: p, Reason: reason}
}

func DrawBy(reason string) Outcome {
	return Outcome{Draw: true, Reason: reason}
}

// Value scores the outcome for the given player.
func (o Outcome) Value(p Player) Score {
	switch {
	case o.Draw || o.Winner == NoPlayer:
		return 0
	case o.Winner == p:
		return WinScore
	default:
		return -WinScore
	}
}

func (o Outcome) String() string {
	if o.Draw {
		return "draw (" + o.Reason + ")"
	}
	return o.Winner.String() + " wins (" + o.Reason + ")"
}

// Options parametrise a new game.
type Options struct {
	// Size is the Go board size (9, 13 or 19). Ignored elsewhere.
	Size int `json:"size,omitempty" mapstructure:"size"`
	// Komi is added to the second player's Go score.
	Komi float64 `json:"komi,omitempty" mapstructure:"komi"`
	// FEN optionally sets up a chess position.
	FEN string `json:"fen,omitempty" mapstructure:"fen"`
}
