package checkers

import (
	"errors"
	"testing"

	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(r *Rules, s engine.State, moves []engine.Move) []string {
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, r.FormatMove(s, m))
	}
	return out
}

func TestOpeningHasSevenMoves(t *testing.T) {
	r := New()
	start, err := r.NewGame(engine.Options{})
	require.NoError(t, err)

	moves := r.GenerateMoves(start)
	assert.Len(t, moves, 7)
	assert.Equal(t, []string{"a3-b4", "c3-d4", "c3-b4", "e3-f4", "e3-d4", "g3-h4", "g3-f4"}, names(r, start, moves))
	assert.Equal(t, 12, start.Board().Count(board.OwnerA, false))
	assert.Equal(t, 12, start.Board().Count(board.OwnerB, false))
}

func TestForcedCaptureExcludesQuietMoves(t *testing.T) {
	// Red to move; the man on d6 can take c5 and must do so.
	st, err := FromDiagram(engine.PlayerB,
		"........",
		"........",
		"...r...r",
		"..b.....",
		"........",
		"........",
		"........",
		"b.......",
	)
	require.NoError(t, err)

	r := New()
	moves := r.GenerateMoves(st)
	require.Len(t, moves, 1)
	assert.Equal(t, "d6xb4", r.FormatMove(st, moves[0]))
	for _, m := range moves {
		assert.NotEmpty(t, m.Captured)
	}

	quiet := engine.Move{From: 5*Size + 7, To: 4*Size + 6, Path: []int{4*Size + 6}}
	_, err = r.ApplyMove(st, quiet)
	assert.True(t, errors.Is(err, engine.ErrIllegalMove), "quiet move rejected while a capture exists")
}

func TestMultiJumpIsOneMove(t *testing.T) {
	st, err := FromDiagram(engine.PlayerA,
		"........",
		"........",
		"........",
		"........",
		"...r....",
		"........",
		".r......",
		"b.......",
	)
	require.NoError(t, err)

	r := New()
	moves := r.GenerateMoves(st)
	require.Len(t, moves, 1)
	assert.Equal(t, "a1xc3xe5", r.FormatMove(st, moves[0]))

	next, err := r.ApplyMove(st, moves[0])
	require.NoError(t, err)
	assert.Equal(t, 0, next.Board().Count(board.OwnerB, false))
	assert.Equal(t, engine.PlayerB, next.Turn())

	out, done := r.IsTerminal(next)
	require.True(t, done)
	assert.Equal(t, engine.PlayerA, out.Winner)
}

func TestManCrownsAndStops(t *testing.T) {
	st, err := FromDiagram(engine.PlayerA,
		"........",
		"..r.r...",
		".b......",
		"........",
		"........",
		"........",
		"........",
		"......r.",
	)
	require.NoError(t, err)

	r := New()
	moves := r.GenerateMoves(st)
	require.Len(t, moves, 1)
	// b6xd8 crowns; the chain stops even though e7 could be jumped by a king.
	assert.Equal(t, "b6xd8", r.FormatMove(st, moves[0]))

	next, err := r.ApplyMove(st, moves[0])
	require.NoError(t, err)
	p, err := board.ParseSquare("d8")
	require.NoError(t, err)
	cell, err := next.Board().Get(p)
	require.NoError(t, err)
	assert.Equal(t, board.CrownedKing, cell.Piece.Kind)
}

func TestKingMovesBackwards(t *testing.T) {
	st, err := FromDiagram(engine.PlayerA,
		"........",
		"........",
		"........",
		"........",
		"...B....",
		"........",
		"........",
		"......r.",
	)
	require.NoError(t, err)

	r := New()
	assert.ElementsMatch(t, []string{"d4-e5", "d4-e3", "d4-c3", "d4-c5"}, names(r, st, r.GenerateMoves(st)))
}

func TestNoMovesLoses(t *testing.T) {
	st, err := FromDiagram(engine.PlayerB,
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
		".b......",
		"r.......",
	)
	require.NoError(t, err)

	r := New()
	out, done := r.IsTerminal(st)
	require.True(t, done)
	assert.Equal(t, engine.PlayerA, out.Winner)
	assert.Equal(t, engine.ReasonNoMoves, out.Reason)
}

func TestQuietMoveLimitDraws(t *testing.T) {
	st, err := FromDiagram(engine.PlayerA,
		".......R",
		"........",
		"........",
		"........",
		"...B....",
		"........",
		"........",
		"........",
	)
	require.NoError(t, err)

	r := New()
	shuffle := []string{"d4-e5", "h8-g7", "e5-d4", "g7-h8"}
	var s engine.State = st
	var first engine.Move
	for ply := 0; ply < QuietLimit; ply++ {
		_, done := r.IsTerminal(s)
		require.False(t, done, "ply %d", ply)
		want := shuffle[ply%len(shuffle)]
		var picked *engine.Move
		for _, m := range r.GenerateMoves(s) {
			if r.FormatMove(s, m) == want {
				m := m
				picked = &m
			}
		}
		require.NotNil(t, picked, want)
		if ply == 0 {
			first = *picked
		}
		s, err = r.ApplyMove(s, *picked)
		require.NoError(t, err)
	}

	assert.Equal(t, st.Hash(), s.Hash(), "kings are back where they started")
	assert.Equal(t, QuietLimit, st.PliesToDraw())
	assert.Equal(t, 0, s.(*State).PliesToDraw())

	out, done := r.IsTerminal(s)
	require.True(t, done)
	assert.True(t, out.Draw)
	assert.Equal(t, engine.ReasonQuietMoves, out.Reason)
	assert.Empty(t, r.GenerateMoves(s))

	_, err = r.ApplyMove(s, first)
	assert.True(t, errors.Is(err, engine.ErrIllegalMove))
}

func TestLegalitySoundness(t *testing.T) {
	r := New()
	s, err := r.NewGame(engine.Options{})
	require.NoError(t, err)
	for ply := 0; ply < 30; ply++ {
		if _, done := r.IsTerminal(s); done {
			break
		}
		moves := r.GenerateMoves(s)
		for _, m := range moves {
			next, err := r.ApplyMove(s, m)
			require.NoError(t, err)
			assert.Equal(t, s.Turn().Opponent(), next.Turn())
		}
		s, err = r.ApplyMove(s, moves[ply%len(moves)])
		require.NoError(t, err)
	}
}

func TestDiagramRejectsLightSquares(t *testing.T) {
	_, err := FromDiagram(engine.PlayerA,
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
		".b......",
	)
	assert.Error(t, err)
}
