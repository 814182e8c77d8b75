package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/justinabrahms/boardcore/internal/variants/backgammon"
	"github.com/justinabrahms/boardcore/internal/variants/checkers"
	"github.com/justinabrahms/boardcore/internal/variants/chess"
	"github.com/justinabrahms/boardcore/internal/variants/gogame"
	"github.com/justinabrahms/boardcore/internal/variants/reversi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isLegal(r engine.Rules, s engine.State, m engine.Move) bool {
	_, ok := engine.Find(r.GenerateMoves(s), m)
	return ok
}

type treeCase struct {
	name  string
	rules engine.Rules
	state engine.State
	depth int
}

func treeCases(t *testing.T) []treeCase {
	t.Helper()

	cs, err := chess.FromFEN("r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	require.NoError(t, err)

	ck := checkers.New()
	ckStart, err := ck.NewGame(engine.Options{})
	require.NoError(t, err)

	rv := reversi.New()
	rvStart, err := rv.NewGame(engine.Options{})
	require.NoError(t, err)

	gg := gogame.New()
	ggStart, err := gg.NewGame(engine.Options{})
	require.NoError(t, err)
	ggState, err := gg.ApplyMove(ggStart, engine.Place(40))
	require.NoError(t, err)

	bg := backgammon.New()
	bgStart, err := bg.NewGame(engine.Options{})
	require.NoError(t, err)

	return []treeCase{
		{"chess", chess.New(), cs, 2},
		{"checkers", ck, ckStart, 4},
		{"reversi", rv, rvStart, 4},
		{"go", gg, ggState, 2},
		{"backgammon", bg, backgammon.WithDice(bgStart.(*backgammon.State), 3, 1), 2},
	}
}

func TestAlphaBetaMatchesMinimax(t *testing.T) {
	for _, tc := range treeCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			want, _ := Minimax(tc.rules, tc.state, tc.depth)

			s := NewSearcher(tc.rules, WithTableSize(0))
			got, err := s.Search(context.Background(), tc.state, Limits{Depth: tc.depth})
			require.NoError(t, err)
			assert.Equal(t, want, got.Score)
			assert.True(t, isLegal(tc.rules, tc.state, got.Move))
		})
	}
}

func TestSearchNeverExceedsDepth(t *testing.T) {
	for _, tc := range treeCases(t) {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSearcher(tc.rules)
			res, err := s.Search(context.Background(), tc.state, Limits{Depth: tc.depth})
			require.NoError(t, err)
			assert.LessOrEqual(t, res.Stats.MaxPly, tc.depth)
			assert.Equal(t, tc.depth, res.Stats.CompletedDepth)
			assert.False(t, res.Cutoff)
			assert.Positive(t, res.Stats.Nodes)
		})
	}
}

func TestTableDoesNotChangeTheAnswer(t *testing.T) {
	rv := reversi.New()
	start, err := rv.NewGame(engine.Options{})
	require.NoError(t, err)

	plain, err := NewSearcher(rv, WithTableSize(0)).Search(context.Background(), start, Limits{Depth: 5})
	require.NoError(t, err)
	cached, err := NewSearcher(rv).Search(context.Background(), start, Limits{Depth: 5})
	require.NoError(t, err)
	assert.Equal(t, plain.Score, cached.Score)
}

func TestFindsMateInOne(t *testing.T) {
	st, err := chess.FromFEN("6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1")
	require.NoError(t, err)

	r := chess.New()
	res, err := NewSearcher(r).Search(context.Background(), st, Limits{Depth: 3})
	require.NoError(t, err)
	assert.Equal(t, "a1a8", r.FormatMove(st, res.Move))
	assert.Equal(t, engine.WinScore-1, res.Score)
}

func TestNodeBudgetStillReturnsAMove(t *testing.T) {
	r := chess.New()
	start, err := r.NewGame(engine.Options{})
	require.NoError(t, err)

	res, err := NewSearcher(r).Search(context.Background(), start, Limits{Depth: 10, Nodes: 600})
	require.NoError(t, err)
	assert.True(t, res.Cutoff)
	assert.True(t, isLegal(r, start, res.Move))
	assert.Less(t, res.Stats.CompletedDepth, 10)
}

func TestTimeBudgetStillReturnsAMove(t *testing.T) {
	r := chess.New()
	start, err := r.NewGame(engine.Options{})
	require.NoError(t, err)

	began := time.Now()
	res, err := NewSearcher(r).Search(context.Background(), start, Limits{Depth: 30, Time: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.True(t, res.Cutoff)
	assert.True(t, isLegal(r, start, res.Move))
	assert.Less(t, time.Since(began), 5*time.Second)
}

func TestCancelledSearchReturnsNoMove(t *testing.T) {
	r := chess.New()
	start, err := r.NewGame(engine.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewSearcher(r).Search(ctx, start, Limits{Depth: 4})
	assert.True(t, errors.Is(err, context.Canceled))

	ctx, cancel = context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	res, err := NewSearcher(r).Search(ctx, start, Limits{Depth: 30})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, engine.Move{}, res.Move)
}

func TestNothingToSearch(t *testing.T) {
	r := chess.New()
	mated, err := chess.FromFEN("rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	require.NoError(t, err)
	_, err = NewSearcher(r).Search(context.Background(), mated, Limits{Depth: 2})
	assert.True(t, errors.Is(err, ErrNoMoves))

	bg := backgammon.New()
	start, err := bg.NewGame(engine.Options{})
	require.NoError(t, err)
	_, err = NewSearcher(bg).Search(context.Background(), start, Limits{Depth: 1})
	assert.True(t, errors.Is(err, ErrNoMoves), "unrolled dice")
}

func TestForcedPassIsSearched(t *testing.T) {
	st, err := reversi.FromDiagram(engine.PlayerB,
		"WB......",
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
	)
	require.NoError(t, err)
	r := reversi.New()
	res, err := NewSearcher(r).Search(context.Background(), st, Limits{Depth: 3})
	require.NoError(t, err)
	assert.True(t, isLegal(r, st, res.Move))
}

func TestDifficultyProfiles(t *testing.T) {
	s := NewSearcher(gogame.New())
	limits, err := s.LimitsFor(Expert)
	require.NoError(t, err)
	assert.Equal(t, 2, limits.Depth, "go is capped")

	cs := NewSearcher(chess.New(), WithDepthCaps(map[engine.Kind]int{engine.Chess: 3}))
	limits, err = cs.LimitsFor(Hard)
	require.NoError(t, err)
	assert.Equal(t, 3, limits.Depth)

	limits, err = cs.LimitsFor(Easy)
	require.NoError(t, err)
	assert.Equal(t, 2, limits.Depth)
	assert.Equal(t, 3, limits.TopN)

	_, err = cs.LimitsFor(Difficulty("impossible"))
	assert.Error(t, err)

	d, err := ParseDifficulty(" HARD ")
	require.NoError(t, err)
	assert.Equal(t, Hard, d)
	_, err = ParseDifficulty("godlike")
	assert.Error(t, err)
}

func TestRandomizedChoiceIsSeeded(t *testing.T) {
	r := checkers.New()
	start, err := r.NewGame(engine.Options{})
	require.NoError(t, err)

	limits := Limits{Depth: 2, TopN: 3, Margin: 1000}
	a, err := NewSearcher(r, WithSeed(42)).Search(context.Background(), start, limits)
	require.NoError(t, err)
	b, err := NewSearcher(r, WithSeed(42)).Search(context.Background(), start, limits)
	require.NoError(t, err)
	assert.True(t, engine.Same(a.Move, b.Move))
	assert.True(t, isLegal(r, start, a.Move))
}

func TestChooseMove(t *testing.T) {
	r := reversi.New()
	start, err := r.NewGame(engine.Options{})
	require.NoError(t, err)

	res, err := NewSearcher(r, WithSeed(1)).ChooseMove(context.Background(), start, Medium)
	require.NoError(t, err)
	assert.True(t, isLegal(r, start, res.Move))
}

func TestTableGenerations(t *testing.T) {
	tt := newTable(10)
	assert.Len(t, tt.entries, 16)

	tt.store(5, 3, 42, ttExact, engine.Pass())
	e, ok := tt.probe(5)
	require.True(t, ok)
	assert.Equal(t, engine.Score(42), e.score)

	_, ok = tt.probe(21)
	assert.False(t, ok, "same slot, different key")

	tt.nextGeneration()
	_, ok = tt.probe(5)
	assert.False(t, ok)
}

func TestTableKeySeesNearbyDrawClock(t *testing.T) {
	const placement = "8/8/8/3k4/8/3K4/8/R6R w - - "
	key := func(halfmove string, depth int) uint64 {
		st, err := chess.FromFEN(placement + halfmove + " 60")
		require.NoError(t, err)
		return positionKey(st, depth)
	}

	tests := []struct {
		name  string
		a, b  string
		depth int
		same  bool
	}{
		{"clock far from the horizon", "0", "98", 1, true},
		{"clocks both far away", "10", "20", 4, true},
		{"clock inside the horizon", "0", "98", 4, false},
		{"clocks differ inside the horizon", "97", "98", 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.same {
				assert.Equal(t, key(tt.a, tt.depth), key(tt.b, tt.depth))
			} else {
				assert.NotEqual(t, key(tt.a, tt.depth), key(tt.b, tt.depth))
			}
		})
	}

	r := chess.New()
	st, err := chess.FromFEN(placement + "97 60")
	require.NoError(t, err)
	plain, err := NewSearcher(r, WithTableSize(0)).Search(context.Background(), st, Limits{Depth: 4})
	require.NoError(t, err)
	cached, err := NewSearcher(r).Search(context.Background(), st, Limits{Depth: 4})
	require.NoError(t, err)
	assert.Equal(t, plain.Score, cached.Score)
}
