package gogame

import (
	"errors"
	"testing"

	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playMoves(t *testing.T, r *Rules, s engine.State, moves ...string) engine.State {
	t.Helper()
	for _, text := range moves {
		m, err := engine.ParseMove(r, s, text)
		require.NoError(t, err, text)
		s, err = r.ApplyMove(s, m)
		require.NoError(t, err, text)
	}
	return s
}

func hasMove(r *Rules, s engine.State, name string) bool {
	for _, m := range r.GenerateMoves(s) {
		if r.FormatMove(s, m) == name {
			return true
		}
	}
	return false
}

func TestNewGameSizes(t *testing.T) {
	r := New()
	tests := []struct {
		size  int
		moves int
	}{
		{0, 82},
		{9, 82},
		{13, 170},
		{19, 362},
	}
	for _, tt := range tests {
		s, err := r.NewGame(engine.Options{Size: tt.size})
		require.NoError(t, err)
		assert.Len(t, r.GenerateMoves(s), tt.moves)
		assert.Equal(t, DefaultKomi, s.(*State).Komi())
	}

	_, err := r.NewGame(engine.Options{Size: 10})
	assert.Error(t, err)
}

func TestCaptureRemovesChain(t *testing.T) {
	st, err := FromDiagram(engine.PlayerA, DefaultKomi,
		".........",
		".........",
		".........",
		".........",
		"....X....",
		"...XOX...",
		".........",
		".........",
		".........",
	)
	require.NoError(t, err)

	r := New()
	next := playMoves(t, r, st, "e3")
	assert.Equal(t, 0, next.Board().Count(board.OwnerB, false))
	assert.Equal(t, 1, next.(*State).Prisoners(engine.PlayerA))
}

func TestSuicideIsIllegal(t *testing.T) {
	st, err := FromDiagram(engine.PlayerA, DefaultKomi,
		".O.......",
		"O........",
		".........",
		".........",
		".........",
		".........",
		".........",
		".........",
		".........",
	)
	require.NoError(t, err)

	r := New()
	assert.False(t, hasMove(r, st, "a9"))
	_, err = r.ApplyMove(st, engine.Place(8*9))
	assert.True(t, errors.Is(err, engine.ErrIllegalMove))
}

func TestCaptureBeatsSuicide(t *testing.T) {
	// a9 has no liberties of its own and is legal only when it captures.
	st, err := FromDiagram(engine.PlayerA, DefaultKomi,
		".OX......",
		"O.X......",
		".X.......",
		".........",
		".........",
		".........",
		".........",
		".........",
		".........",
	)
	require.NoError(t, err)
	st2, err := FromDiagram(engine.PlayerA, DefaultKomi,
		".OX......",
		"OX.......",
		"X........",
		".........",
		".........",
		".........",
		".........",
		".........",
		".........",
	)
	require.NoError(t, err)

	r := New()
	assert.False(t, hasMove(r, st, "a9"), "b9 still has a liberty on b8")
	assert.True(t, hasMove(r, st2, "a9"))
	next := playMoves(t, r, st2, "a9")
	assert.Equal(t, 0, next.Board().Count(board.OwnerB, false))
}

func TestSimpleKo(t *testing.T) {
	st, err := FromDiagram(engine.PlayerA, DefaultKomi,
		".........",
		".........",
		".........",
		".........",
		".........",
		".........",
		".XO......",
		"XO.O.....",
		".XO......",
	)
	require.NoError(t, err)

	r := New()
	taken := playMoves(t, r, st, "c2")
	ts := taken.(*State)
	assert.Equal(t, 1*9+1, ts.Ko())
	assert.False(t, hasMove(r, taken, "b2"), "immediate recapture is ko")

	_, err = r.ApplyMove(taken, engine.Place(1*9+1))
	assert.True(t, errors.Is(err, engine.ErrIllegalMove))

	// After an exchange elsewhere the recapture is legal again.
	later := playMoves(t, r, taken, "i9", "i1")
	assert.True(t, hasMove(r, later, "b2"))
	assert.Equal(t, -1, playMoves(t, r, taken, "pass").(*State).Ko())
}

func TestTwoPassesEndTheGame(t *testing.T) {
	r := New()
	s, err := r.NewGame(engine.Options{})
	require.NoError(t, err)

	one := playMoves(t, r, s, "pass")
	_, done := r.IsTerminal(one)
	assert.False(t, done)

	two := playMoves(t, r, one, "pass")
	out, done := r.IsTerminal(two)
	require.True(t, done)
	assert.Equal(t, engine.Win(engine.PlayerB, engine.ReasonBothPassed), out)
	assert.Empty(t, r.GenerateMoves(two))
}

func TestNoMovesAfterTheGameEnds(t *testing.T) {
	r := New()
	s, err := r.NewGame(engine.Options{})
	require.NoError(t, err)
	ended := playMoves(t, r, s, "pass", "pass")

	for _, m := range []engine.Move{engine.Place(0), engine.Pass()} {
		_, err := r.ApplyMove(ended, m)
		assert.True(t, errors.Is(err, engine.ErrIllegalMove), "%+v", m)
	}
}

func TestMalformedMovesRejected(t *testing.T) {
	r := New()
	s, err := r.NewGame(engine.Options{})
	require.NoError(t, err)

	tests := []struct {
		name string
		move engine.Move
	}{
		{"pass with squares", engine.Move{From: 7, To: 12, Special: engine.SpecialPass}},
		{"placement with origin", engine.Move{From: 3, To: 12, Special: engine.SpecialPlace}},
		{"untagged placement", engine.Move{From: engine.NoSquare, To: 12}},
		{"off the board", engine.Place(81)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, found := engine.Find(r.GenerateMoves(s), tt.move)
			require.False(t, found)
			_, err := r.ApplyMove(s, tt.move)
			assert.True(t, errors.Is(err, engine.ErrIllegalMove))
		})
	}
}

func TestPassResetsAfterPlacement(t *testing.T) {
	r := New()
	s, err := r.NewGame(engine.Options{})
	require.NoError(t, err)

	s = playMoves(t, r, s, "pass", "e5", "pass")
	_, done := r.IsTerminal(s)
	assert.False(t, done)
}

func TestAreaScore(t *testing.T) {
	st, err := FromDiagram(engine.PlayerA, DefaultKomi,
		"....XO...",
		"....XO...",
		"....XO...",
		"....XO...",
		"....XO...",
		"....XO...",
		"....XO...",
		"....XO...",
		"....XO...",
	)
	require.NoError(t, err)

	black, white := AreaScore(st)
	assert.Equal(t, 45.0, black)
	assert.Equal(t, 42.5, white)

	r := New()
	assert.Greater(t, int(r.Evaluate(st, engine.PlayerA)), 0)
	assert.Less(t, int(r.Evaluate(st, engine.PlayerB)), 0)
}

func TestMoveLimitScoresTheBoard(t *testing.T) {
	st, err := FromDiagram(engine.PlayerA, 0.5,
		".........",
		".........",
		".........",
		".........",
		".........",
		".........",
		".........",
		".........",
		".........",
	)
	require.NoError(t, err)
	st.moveNumber = MoveLimit(9)

	r := New()
	out, done := r.IsTerminal(st)
	require.True(t, done)
	assert.Equal(t, engine.Win(engine.PlayerB, engine.ReasonMoveLimit), out)
}
