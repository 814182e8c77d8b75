package variants

import (
	"errors"
	"fmt"
	"testing"

	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestEveryKindHasRules(t *testing.T) {
	for _, kind := range engine.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			r, err := New(kind)
			require.NoError(t, err)
			assert.Equal(t, kind, r.Kind())

			s, err := r.NewGame(engine.Options{})
			require.NoError(t, err)
			assert.Equal(t, kind, s.Kind())
			assert.Equal(t, engine.PlayerA, s.Turn())
			_, done := r.IsTerminal(s)
			assert.False(t, done)
		})
	}
}

func TestParseAliases(t *testing.T) {
	r, err := Parse("othello")
	require.NoError(t, err)
	assert.Equal(t, engine.Reversi, r.Kind())

	_, err = Parse("mancala")
	assert.True(t, errors.Is(err, engine.ErrUnknownVariant))

	_, err = New(engine.Kind("mancala"))
	assert.True(t, errors.Is(err, engine.ErrUnknownVariant))
}

func TestAllListsChanceVariants(t *testing.T) {
	infos := All()
	require.Len(t, infos, len(engine.Kinds()))
	for _, info := range infos {
		assert.Equal(t, info.Kind == engine.Backgammon, info.Chance, info.Kind)
		assert.NotEmpty(t, info.SideA)
	}
}

// playoutPlies bounds each random game. Backgammon doubles are slow to
// enumerate, so its games are cut shorter.
var playoutPlies = map[engine.Kind]int{
	engine.Chess:      300,
	engine.Checkers:   300,
	engine.Reversi:    150,
	engine.Go:         300,
	engine.Backgammon: 120,
}

// nearMisses returns moves one field away from m, plus a bare pass.
func nearMisses(m engine.Move) []engine.Move {
	to, from := m, m
	to.To++
	from.From++
	return []engine.Move{to, from, engine.Pass()}
}

// Along seeded random games every variant lists its moves in a stable order,
// accepts each listed move, rejects moves that are not listed and lists
// nothing once the game is over.
func TestMoveGenerationContract(t *testing.T) {
	for _, kind := range engine.Kinds() {
		for seed := uint64(1); seed <= 2; seed++ {
			t.Run(fmt.Sprintf("%s/seed_%d", kind, seed), func(t *testing.T) {
				r, err := New(kind)
				require.NoError(t, err)
				chance, _ := r.(engine.Chance)
				rng := rand.New(rand.NewSource(seed))

				s, err := r.NewGame(engine.Options{})
				require.NoError(t, err)
				var last engine.Move
				for ply := 0; ply < playoutPlies[kind]; ply++ {
					if chance != nil && chance.NeedsRoll(s) {
						assert.Empty(t, r.GenerateMoves(s), "nothing to play before the roll")
						s = chance.Roll(s, rng)
					}
					moves := r.GenerateMoves(s)
					assert.Equal(t, moves, r.GenerateMoves(s), "ply %d", ply)

					if _, done := r.IsTerminal(s); done {
						assert.Empty(t, moves)
						for _, m := range []engine.Move{last, engine.Pass()} {
							_, err := r.ApplyMove(s, m)
							assert.True(t, errors.Is(err, engine.ErrIllegalMove), "%+v after the game ended", m)
						}
						return
					}
					require.NotEmpty(t, moves, "ply %d", ply)

					for _, m := range moves {
						next, err := r.ApplyMove(s, m)
						require.NoError(t, err, r.FormatMove(s, m))
						assert.Equal(t, kind, next.Kind())
						assert.Equal(t, s.MoveNumber()+1, next.MoveNumber())
					}

					for i := 0; i < 4; i++ {
						for _, m := range nearMisses(moves[rng.Intn(len(moves))]) {
							if _, ok := engine.Find(moves, m); ok {
								continue
							}
							_, err := r.ApplyMove(s, m)
							assert.True(t, errors.Is(err, engine.ErrIllegalMove), "ply %d: %+v accepted", ply, m)
						}
					}

					last = moves[rng.Intn(len(moves))]
					s, err = r.ApplyMove(s, last)
					require.NoError(t, err)
				}
			})
		}
	}
}

func TestRenderEveryVariant(t *testing.T) {
	for _, kind := range engine.Kinds() {
		r, err := New(kind)
		require.NoError(t, err)
		s, err := r.NewGame(engine.Options{})
		require.NoError(t, err)
		assert.NotEmpty(t, Render(s), kind)
	}
}
