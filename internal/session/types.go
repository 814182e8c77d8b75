package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/justinabrahms/boardcore/internal/search"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrBusy              = fmt.Errorf("%w: AI move in progress", ErrInvalidTransition)
	ErrNotYourTurn       = errors.New("not your turn")
	ErrCancelled         = errors.New("AI move cancelled")
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusDrawn      Status = "drawn"
	StatusAbandoned  Status = "abandoned"
)

// Finished reports whether the status is terminal.
func (s Status) Finished() bool {
	return s == StatusWon || s == StatusDrawn || s == StatusAbandoned
}

// Opponent selects who plays the side the human does not.
type Opponent string

const (
	// OpponentAI lets the computer play the other side.
	OpponentAI Opponent = "ai"
	// OpponentHuman is hot-seat play: both sides are entered by hand.
	OpponentHuman Opponent = "human"
	// OpponentSelf lets the computer play both sides.
	OpponentSelf Opponent = "self"
)

// Side is the human's requested side.
type Side string

const (
	SideA      Side = "a"
	SideB      Side = "b"
	SideRandom Side = "random"
)

// Config starts a game.
type Config struct {
	Variant     engine.Kind       `json:"variant" mapstructure:"variant"`
	Difficulty  search.Difficulty `json:"difficulty" mapstructure:"difficulty"`
	PlayerSide  Side              `json:"player_side" mapstructure:"player_side"`
	Opponent    Opponent          `json:"opponent" mapstructure:"opponent"`
	Options     engine.Options    `json:"options" mapstructure:"options"`
	TimeControl TimeControl       `json:"time_control" mapstructure:"time_control"`
	// Seed drives dice, random side selection and randomized AI choices. Zero
	// picks a time-based seed.
	Seed uint64 `json:"seed,omitempty" mapstructure:"seed"`
}

// HistoryEntry records one applied move and the state it was played from.
type HistoryEntry struct {
	State    engine.State  `json:"-"`
	Move     engine.Move   `json:"move"`
	Notation string        `json:"notation"`
	Player   engine.Player `json:"player"`
	ByAI     bool          `json:"by_ai"`
	At       time.Time     `json:"at"`
}

// Result is reported once when a game ends.
type Result struct {
	SessionID  string        `json:"session_id"`
	Variant    engine.Kind   `json:"variant"`
	Winner     engine.Player `json:"winner"`
	Draw       bool          `json:"draw"`
	Reason     string        `json:"reason"`
	MoveCount  int           `json:"move_count"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Reporter receives finished games.
type Reporter interface {
	Report(ctx context.Context, r Result) error
}

type EventType string

const (
	EventStarted  EventType = "started"
	EventMove     EventType = "move"
	EventThinking EventType = "thinking"
	EventUndo     EventType = "undo"
	EventFinished EventType = "finished"
	EventReset    EventType = "reset"
)

// Event is pushed to subscribers after the session changed.
type Event struct {
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id"`
	Move      string          `json:"move,omitempty"`
	Player    engine.Player   `json:"player,omitempty"`
	Status    Status          `json:"status"`
	Outcome   *engine.Outcome `json:"outcome,omitempty"`
}

// ClockView is the clock as shown to players.
type ClockView struct {
	RemainingA   time.Duration `json:"remaining_a"`
	RemainingB   time.Duration `json:"remaining_b"`
	MoveDeadline time.Time     `json:"move_deadline,omitempty"`
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID          string            `json:"id"`
	Variant     engine.Kind       `json:"variant"`
	Status      Status            `json:"status"`
	Turn        engine.Player     `json:"turn"`
	TurnName    string            `json:"turn_name"`
	HumanSide   engine.Player     `json:"human_side"`
	Opponent    Opponent          `json:"opponent"`
	Difficulty  search.Difficulty `json:"difficulty"`
	Board       *board.Board      `json:"board"`
	MoveNumber  int               `json:"move_number"`
	Moves       []string          `json:"moves"`
	LegalMoves  []string          `json:"legal_moves"`
	Dice        []int             `json:"dice,omitempty"`
	Outcome     *engine.Outcome   `json:"outcome,omitempty"`
	Busy        bool              `json:"busy"`
	Clock       *ClockView        `json:"clock,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	LastMoveAt  time.Time         `json:"last_move_at,omitempty"`
	Text        string            `json:"text"`
}
