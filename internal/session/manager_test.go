package session

import (
	"context"
	"testing"
	"time"

	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreateGetRemove(t *testing.T) {
	rec := &recorder{}
	m := NewManager(WithReporter(rec))

	a, err := m.Create(hotseat(engine.Chess))
	require.NoError(t, err)
	b, err := m.Create(hotseat(engine.Reversi))
	require.NoError(t, err)

	got, ok := m.Get(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)

	list := m.List()
	require.Len(t, list, 2)
	assert.True(t, list[0].ID() < list[1].ID())

	_, err = m.Create(Config{Variant: "mancala"})
	assert.Error(t, err)
	assert.Len(t, m.List(), 2, "failed sessions are not kept")

	assert.True(t, m.Remove(b.ID()))
	assert.False(t, m.Remove(b.ID()))
	_, ok = m.Get(b.ID())
	assert.False(t, ok)
	assert.Equal(t, StatusAbandoned, b.Status())

	results := rec.all()
	require.Len(t, results, 1)
	assert.Equal(t, b.ID(), results[0].SessionID)
	assert.Equal(t, engine.ReasonAbandoned, results[0].Reason)
}

func TestManagerSweepTimeouts(t *testing.T) {
	clock := newFakeClock()
	m := NewManager(WithNow(clock.Now))

	cfg := hotseat(engine.Checkers)
	cfg.TimeControl = TimeControl{PerMove: 30 * time.Second}
	timed, err := m.Create(cfg)
	require.NoError(t, err)
	untimed, err := m.Create(hotseat(engine.Checkers))
	require.NoError(t, err)

	assert.Equal(t, 0, m.SweepTimeouts())
	clock.Advance(31 * time.Second)
	assert.Equal(t, 1, m.SweepTimeouts())
	assert.Equal(t, 0, m.SweepTimeouts(), "a finished game is not swept twice")

	assert.Equal(t, StatusAbandoned, timed.Status())
	out, ok := timed.Outcome()
	require.True(t, ok)
	assert.Equal(t, engine.ReasonTimeout, out.Reason)
	assert.Equal(t, engine.PlayerB, out.Winner)
	assert.Equal(t, StatusInProgress, untimed.Status())
}

func TestRunSweeperStopsWithContext(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
