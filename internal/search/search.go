// Package search picks moves with depth-limited minimax and alpha-beta
// pruning over the engine.Rules interface.
package search

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

// ErrNoMoves is returned for terminal positions and chance positions that
// have not been rolled.
var ErrNoMoves = errors.New("no moves to search")

// checkInterval is how many nodes pass between budget checks.
const checkInterval = 512

// Limits bound one search. Zero values mean unlimited, except Depth which
// defaults to 1.
type Limits struct {
	Depth int
	Time  time.Duration
	Nodes int64
	// TopN > 1 picks at random among the TopN best root moves scoring within
	// Margin of the best one.
	TopN   int
	Margin engine.Score
}

type Stats struct {
	Nodes          int64         `json:"nodes"`
	MaxPly         int           `json:"max_ply"`
	TTHits         int64         `json:"tt_hits"`
	Cutoffs        int64         `json:"cutoffs"`
	CompletedDepth int           `json:"completed_depth"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Result is the outcome of a search. Move is always a legal move when the
// error is nil.
type Result struct {
	Move  engine.Move  `json:"move"`
	Score engine.Score `json:"score"`
	// Cutoff is set when the time or node budget ended the search early.
	Cutoff bool  `json:"cutoff"`
	Stats  Stats `json:"stats"`
}

type Option func(s *Searcher)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Searcher) {
		s.log = logger
	}
}

// WithTableSize sets the transposition table size; zero or less disables it.
func WithTableSize(entries int) Option {
	return func(s *Searcher) {
		s.tableSize = entries
	}
}

// WithSeed seeds the generator used for randomized choices among top moves.
func WithSeed(seed uint64) Option {
	return func(s *Searcher) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithDepthCaps overrides the per-variant depth limits applied by ChooseMove.
func WithDepthCaps(caps map[engine.Kind]int) Option {
	return func(s *Searcher) {
		for k, v := range caps {
			s.caps[k] = v
		}
	}
}

// WithProfiles overrides difficulty profiles used by ChooseMove.
func WithProfiles(profiles map[Difficulty]Profile) Option {
	return func(s *Searcher) {
		for k, v := range profiles {
			s.profiles[k] = v
		}
	}
}

// Searcher runs one search at a time for a single variant.
type Searcher struct {
	mu        sync.Mutex
	rules     engine.Rules
	chance    engine.Chance
	orderer   engine.MoveOrderer
	log       zerolog.Logger
	tableSize int
	tt        *table
	rng       *rand.Rand
	caps      map[engine.Kind]int
	profiles  map[Difficulty]Profile
}

func NewSearcher(rules engine.Rules, options ...Option) *Searcher {
	s := &Searcher{
		rules:     rules,
		log:       zerolog.Nop(),
		tableSize: DefaultTableSize,
		rng:       rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
		caps:      DefaultDepthCaps(),
		profiles:  DefaultProfiles(),
	}
	s.chance, _ = rules.(engine.Chance)
	s.orderer, _ = rules.(engine.MoveOrderer)
	for _, option := range options {
		option(s)
	}
	if s.tableSize > 0 {
		s.tt = newTable(s.tableSize)
	}
	return s
}

// run holds the per-search bookkeeping.
type run struct {
	*Searcher
	ctx      context.Context
	root     engine.Player
	deadline time.Time
	maxNodes int64
	stats    Stats
	stopped  bool
}

type scored struct {
	move  engine.Move
	score engine.Score
}

// Search runs iterative deepening from depth 1 to limits.Depth. When the
// budget runs out the best move of the deepest completed iteration is
// returned; a cancelled context returns its error and no move.
func (s *Searcher) Search(ctx context.Context, state engine.State, limits Limits) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.rules.IsTerminal(state); done {
		return Result{}, ErrNoMoves
	}
	if s.chance != nil && s.chance.NeedsRoll(state) {
		return Result{}, ErrNoMoves
	}
	moves := s.rules.GenerateMoves(state)
	if len(moves) == 0 {
		return Result{}, ErrNoMoves
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	r := &run{Searcher: s, ctx: ctx, root: state.Turn(), maxNodes: limits.Nodes}
	if limits.Time > 0 {
		r.deadline = start.Add(limits.Time)
	}
	if s.tt != nil {
		s.tt.nextGeneration()
	}
	depth := limits.Depth
	if depth < 1 {
		depth = 1
	}

	result := Result{Move: moves[0]}
	if len(moves) == 1 {
		result.Score = s.rules.Evaluate(state, r.root)
		result.Stats.Elapsed = time.Since(start)
		return result, nil
	}

	var completed []scored
	for d := 1; d <= depth; d++ {
		ranked := r.searchRoot(state, moves, d, limits.TopN > 1)
		if r.stopped {
			if completed == nil && len(ranked) > 0 {
				completed = ranked
			}
			result.Cutoff = true
			break
		}
		completed = ranked
		r.stats.CompletedDepth = d
		// Search the previous best first next time.
		moves = reorder(moves, ranked[0].move)

		s.log.Debug().
			Str("variant", string(s.rules.Kind())).
			Int("depth", d).
			Int("score", int(ranked[0].score)).
			Str("move", s.rules.FormatMove(state, ranked[0].move)).
			Int64("nodes", r.stats.Nodes).
			Msg("search iteration complete")

		if ranked[0].score >= engine.WinScore-engine.Score(d) {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(completed) > 0 {
		pick := s.pick(completed, limits)
		result.Move, result.Score = pick.move, pick.score
	}
	result.Stats = r.stats
	result.Stats.Elapsed = time.Since(start)
	return result, nil
}

// pick returns the best move, or a random one among the TopN moves within
// Margin of the best.
func (s *Searcher) pick(ranked []scored, limits Limits) scored {
	if limits.TopN <= 1 || len(ranked) == 1 {
		return ranked[0]
	}
	best := ranked[0].score
	n := 0
	for n < len(ranked) && n < limits.TopN && best-ranked[n].score <= limits.Margin {
		n++
	}
	return ranked[s.rng.Intn(n)]
}

func reorder(moves []engine.Move, first engine.Move) []engine.Move {
	out := make([]engine.Move, 0, len(moves))
	out = append(out, first)
	for _, m := range moves {
		if !engine.Same(m, first) {
			out = append(out, m)
		}
	}
	return out
}

// searchRoot scores each root move at depth d and returns them best first.
// With exact set every move gets a full window so its score is exact;
// otherwise only the best score is exact.
func (r *run) searchRoot(state engine.State, moves []engine.Move, d int, exact bool) []scored {
	ranked := make([]scored, 0, len(moves))
	alpha := -engine.Infinity
	for _, m := range moves {
		next, err := r.rules.ApplyMove(state, m)
		if err != nil {
			continue
		}
		lo := alpha
		if exact {
			lo = -engine.Infinity
		}
		score := r.value(next, d-1, 1, lo, engine.Infinity)
		if r.stopped {
			break
		}
		ranked = append(ranked, scored{move: m, score: score})
		if score > alpha {
			alpha = score
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	return ranked
}

func (r *run) tick(ply int) {
	r.stats.Nodes++
	if ply > r.stats.MaxPly {
		r.stats.MaxPly = ply
	}
	if r.stats.Nodes%checkInterval != 0 {
		return
	}
	switch {
	case r.ctx.Err() != nil:
		r.stopped = true
	case !r.deadline.IsZero() && time.Now().After(r.deadline):
		r.stopped = true
	case r.maxNodes > 0 && r.stats.Nodes >= r.maxNodes:
		r.stopped = true
	}
}

// terminalScore rates a finished game from the root player's view, preferring
// quicker wins and slower losses.
func terminalScore(out engine.Outcome, root engine.Player, ply int) engine.Score {
	v := out.Value(root)
	switch {
	case v > 0:
		return v - engine.Score(ply)
	case v < 0:
		return v + engine.Score(ply)
	}
	return 0
}

// value is minimax with alpha-beta from the root player's point of view. The
// maximizing side is whoever is to move, compared against the root player,
// so turns that do not alternate are handled.
func (r *run) value(state engine.State, depth, ply int, alpha, beta engine.Score) engine.Score {
	r.tick(ply)
	if r.stopped {
		return 0
	}
	if out, done := r.rules.IsTerminal(state); done {
		return terminalScore(out, r.root, ply)
	}
	if depth <= 0 {
		return r.rules.Evaluate(state, r.root)
	}
	if r.chance != nil && r.chance.NeedsRoll(state) {
		return r.expected(state, depth, ply)
	}

	key := positionKey(state, depth)
	var hint engine.Move
	hasHint := false
	if r.tt != nil {
		if e, ok := r.tt.probe(key); ok {
			r.stats.TTHits++
			hint, hasHint = e.best, true
			if e.depth >= depth {
				switch {
				case e.flag == ttExact:
					return e.score
				case e.flag == ttLower && e.score >= beta:
					return e.score
				case e.flag == ttUpper && e.score <= alpha:
					return e.score
				}
			}
		}
	}

	moves := r.order(state, r.rules.GenerateMoves(state), hint, hasHint)
	if len(moves) == 0 {
		return r.rules.Evaluate(state, r.root)
	}

	maximizing := state.Turn() == r.root
	origAlpha, origBeta := alpha, beta
	best := engine.Infinity
	if maximizing {
		best = -engine.Infinity
	}
	var bestMove engine.Move
	for _, m := range moves {
		next, err := r.rules.ApplyMove(state, m)
		if err != nil {
			continue
		}
		v := r.value(next, depth-1, ply+1, alpha, beta)
		if r.stopped {
			return 0
		}
		if maximizing {
			if v > best {
				best, bestMove = v, m
			}
			if best > alpha {
				alpha = best
			}
		} else {
			if v < best {
				best, bestMove = v, m
			}
			if best < beta {
				beta = best
			}
		}
		if alpha >= beta {
			r.stats.Cutoffs++
			break
		}
	}

	if r.tt != nil {
		flag := ttExact
		switch {
		case best <= origAlpha:
			flag = ttUpper
		case best >= origBeta:
			flag = ttLower
		}
		r.tt.store(key, depth, best, flag, bestMove)
	}
	return best
}

// expected averages the outcomes of a chance node. Rolling does not use up
// a ply.
func (r *run) expected(state engine.State, depth, ply int) engine.Score {
	var sum int64
	for _, o := range r.chance.Outcomes(state) {
		v := r.value(o.State, depth, ply, -engine.Infinity, engine.Infinity)
		if r.stopped {
			return 0
		}
		sum += int64(v) * int64(o.Weight)
	}
	return engine.Score(sum / int64(r.chance.TotalWeight()))
}

// order puts the transposition move first, then moves the variant rates
// higher, then captures. Ties keep generation order.
func (s *Searcher) order(state engine.State, moves []engine.Move, hint engine.Move, hasHint bool) []engine.Move {
	rank := func(m engine.Move) int {
		if hasHint && engine.Same(m, hint) {
			return 1 << 30
		}
		if s.orderer != nil {
			return s.orderer.OrderHint(state, m)
		}
		if m.IsCapture() {
			return 1
		}
		return 0
	}
	ranks := make([]int, len(moves))
	for i, m := range moves {
		ranks[i] = rank(m)
	}
	idx := make([]int, len(moves))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return ranks[idx[a]] > ranks[idx[b]]
	})
	out := make([]engine.Move, len(moves))
	for i, j := range idx {
		out[i] = moves[j]
	}
	return out
}
