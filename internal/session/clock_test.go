package session

import (
	"testing"
	"time"

	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/stretchr/testify/assert"
)

func TestClockChargesTheSideToMove(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(TimeControl{PerPlayer: 5 * time.Minute}, engine.PlayerA, t0)

	c.Switch(engine.PlayerB, t0.Add(time.Minute))
	c.Switch(engine.PlayerA, t0.Add(3*time.Minute))

	now := t0.Add(4 * time.Minute)
	assert.Equal(t, 3*time.Minute, c.Remaining(engine.PlayerA, now))
	assert.Equal(t, 3*time.Minute, c.Remaining(engine.PlayerB, now))
	assert.Equal(t, engine.PlayerA, c.Turn())
	assert.False(t, c.Expired(now))
	assert.True(t, c.Expired(t0.Add(8*time.Minute)))
	assert.True(t, c.MoveDeadline().IsZero())

	c.Restart(engine.PlayerB, now)
	assert.Equal(t, 4*time.Minute, c.Remaining(engine.PlayerA, now.Add(time.Hour)), "restart charges nobody")
}

func TestUntimedClockNeverExpires(t *testing.T) {
	t0 := time.Now()
	c := NewClock(TimeControl{}, engine.PlayerA, t0)
	assert.False(t, c.Expired(t0.Add(24*time.Hour)))
	assert.Zero(t, c.Remaining(engine.PlayerA, t0))
}

func TestPerMoveLimit(t *testing.T) {
	t0 := time.Now()
	c := NewClock(TimeControl{PerMove: 30 * time.Second}, engine.PlayerA, t0)
	assert.Equal(t, t0.Add(30*time.Second), c.MoveDeadline())
	assert.False(t, c.Expired(t0.Add(29*time.Second)))

	c.Switch(engine.PlayerB, t0.Add(29*time.Second))
	assert.False(t, c.Expired(t0.Add(58*time.Second)), "each turn gets its own limit")
	assert.True(t, c.Expired(t0.Add(59*time.Second)))
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{0, "Time expired"},
		{-1 * time.Hour, "Time expired"},
		{45 * time.Second, "45 seconds"},
		{2*time.Minute + 5*time.Second, "2 minutes, 5 seconds"},
		{30 * time.Minute, "30 minutes"},
		{1 * time.Hour, "1 hours"},
		{2*time.Hour + 30*time.Minute, "2 hours, 30 minutes"},
		{24 * time.Hour, "1 days"},
		{25 * time.Hour, "1 days, 1 hours"},
		{3*24*time.Hour + 6*time.Hour, "3 days, 6 hours"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatRemaining(tt.duration), tt.duration.String())
	}
}
