package session

import (
	"fmt"
	"time"

	"github.com/justinabrahms/boardcore/internal/engine"
)

// TimeControl limits thinking time. Zero fields are unlimited.
type TimeControl struct {
	// PerPlayer is each side's total thinking time for the game.
	PerPlayer time.Duration `json:"per_player" mapstructure:"per_player"`
	// PerMove caps a single turn.
	PerMove time.Duration `json:"per_move" mapstructure:"per_move"`
}

func (tc TimeControl) Enabled() bool {
	return tc.PerPlayer > 0 || tc.PerMove > 0
}

// Clock charges elapsed time to the side to move.
type Clock struct {
	tc        TimeControl
	used      [2]time.Duration
	turn      engine.Player
	turnStart time.Time
}

func NewClock(tc TimeControl, first engine.Player, now time.Time) *Clock {
	return &Clock{tc: tc, turn: first, turnStart: now}
}

func index(p engine.Player) int {
	if p == engine.PlayerB {
		return 1
	}
	return 0
}

// Switch ends the current turn at now and starts next's.
func (c *Clock) Switch(next engine.Player, now time.Time) {
	c.used[index(c.turn)] += now.Sub(c.turnStart)
	c.turn = next
	c.turnStart = now
}

// Restart begins a fresh turn for p without charging anyone, e.g. after an
// undo.
func (c *Clock) Restart(p engine.Player, now time.Time) {
	c.turn = p
	c.turnStart = now
}

// Remaining is p's thinking time left at now. Untimed games report zero.
func (c *Clock) Remaining(p engine.Player, now time.Time) time.Duration {
	if c.tc.PerPlayer <= 0 {
		return 0
	}
	used := c.used[index(p)]
	if p == c.turn {
		used += now.Sub(c.turnStart)
	}
	left := c.tc.PerPlayer - used
	if left < 0 {
		return 0
	}
	return left
}

// MoveDeadline is when the current turn times out, or zero.
func (c *Clock) MoveDeadline() time.Time {
	if c.tc.PerMove <= 0 {
		return time.Time{}
	}
	return c.turnStart.Add(c.tc.PerMove)
}

// Expired reports whether the side to move has run out of time at now.
func (c *Clock) Expired(now time.Time) bool {
	if !c.tc.Enabled() {
		return false
	}
	if c.tc.PerPlayer > 0 && c.Remaining(c.turn, now) <= 0 {
		return true
	}
	if c.tc.PerMove > 0 && now.Sub(c.turnStart) >= c.tc.PerMove {
		return true
	}
	return false
}

// Turn is the side whose time is running.
func (c *Clock) Turn() engine.Player {
	return c.turn
}

// FormatRemaining formats time remaining in a human-readable way.
func FormatRemaining(remaining time.Duration) string {
	if remaining <= 0 {
		return "Time expired"
	}

	days := int(remaining.Hours()) / 24
	hours := int(remaining.Hours()) % 24
	minutes := int(remaining.Minutes()) % 60
	seconds := int(remaining.Seconds()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%d days, %d hours", days, hours)
		}
		return fmt.Sprintf("%d days", days)
	}
	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%d hours, %d minutes", hours, minutes)
		}
		return fmt.Sprintf("%d hours", hours)
	}
	if minutes > 0 {
		if seconds > 0 {
			return fmt.Sprintf("%d minutes, %d seconds", minutes, seconds)
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	return fmt.Sprintf("%d seconds", seconds)
}
