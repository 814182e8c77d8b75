// Package session drives a single game: it owns the current state, applies
// human moves, runs the computer player in the background and keeps the
// history needed for undo.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/justinabrahms/boardcore/internal/search"
	"github.com/justinabrahms/boardcore/internal/variants"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"
)

type Option func(s *Session)

// WithReporter sends the finished game to r.
func WithReporter(r Reporter) Option {
	return func(s *Session) {
		s.reporter = r
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.log = logger
	}
}

// WithNow replaces the wall clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithSubscriber registers fn before the session starts, so it also sees
// the start event.
func WithSubscriber(fn func(Event)) Option {
	return func(s *Session) {
		s.subs[s.nextSub] = fn
		s.nextSub++
	}
}

// WithSearchOptions configures the searcher created on Start.
func WithSearchOptions(opts ...search.Option) Option {
	return func(s *Session) {
		s.searchOpts = append(s.searchOpts, opts...)
	}
}

// Session is safe for concurrent use. Subscribers and the reporter are called
// after the session lock is released.
type Session struct {
	mu         sync.Mutex
	id         string
	log        zerolog.Logger
	now        func() time.Time
	reporter   Reporter
	searchOpts []search.Option

	cfg      Config
	rules    engine.Rules
	chance   engine.Chance
	searcher *search.Searcher
	rng      *rand.Rand
	human    engine.Player

	status     Status
	state      engine.State
	history    []HistoryEntry
	outcome    *engine.Outcome
	clock      *Clock
	startedAt  time.Time
	lastMoveAt time.Time
	reported   bool

	busy       bool
	generation uint64
	cancelAI   context.CancelFunc

	subs    map[int]func(Event)
	nextSub int
	outbox  []Event
	results []Result
}

// New creates a session that has not started yet. An empty id gets a random
// UUID.
func New(id string, options ...Option) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{
		id:     id,
		log:    log.Logger,
		now:    time.Now,
		status: StatusNotStarted,
		subs:   make(map[int]func(Event)),
	}
	for _, o := range options {
		o(s)
	}
	s.log = s.log.With().Str("session", id).Logger()
	return s
}

func (s *Session) ID() string {
	return s.id
}

// unlock releases the lock and then delivers queued results and events.
func (s *Session) unlock() {
	events, results := s.outbox, s.results
	s.outbox, s.results = nil, nil
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	reporter := s.reporter
	s.mu.Unlock()

	if reporter != nil {
		for _, r := range results {
			if err := reporter.Report(context.Background(), r); err != nil {
				s.log.Error().Err(err).Msg("Failed to report result")
			}
		}
	}
	for _, e := range events {
		for _, fn := range subs {
			fn(e)
		}
	}
}

func (s *Session) emit(e Event) {
	e.SessionID = s.id
	e.Status = s.status
	e.Outcome = s.outcome
	s.outbox = append(s.outbox, e)
}

// Subscribe registers fn for every future event and returns a function that
// removes it.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func normalize(cfg Config) (Config, error) {
	if cfg.Difficulty == "" {
		cfg.Difficulty = search.Medium
	}
	d, err := search.ParseDifficulty(string(cfg.Difficulty))
	if err != nil {
		return cfg, err
	}
	cfg.Difficulty = d

	switch cfg.Opponent {
	case "":
		cfg.Opponent = OpponentAI
	case OpponentAI, OpponentHuman, OpponentSelf:
	default:
		return cfg, fmt.Errorf("unknown opponent %q", cfg.Opponent)
	}

	switch cfg.PlayerSide {
	case "":
		cfg.PlayerSide = SideA
	case SideA, SideB, SideRandom:
	default:
		return cfg, fmt.Errorf("unknown side %q", cfg.PlayerSide)
	}
	return cfg, nil
}

// Start begins a game. It is only valid on a session that has not started.
func (s *Session) Start(cfg Config) error {
	s.mu.Lock()
	defer s.unlock()

	if s.status != StatusNotStarted {
		return fmt.Errorf("%w: cannot start a %s session", ErrInvalidTransition, s.status)
	}
	cfg, err := normalize(cfg)
	if err != nil {
		return err
	}
	rules, err := variants.New(cfg.Variant)
	if err != nil {
		return err
	}
	state, err := rules.NewGame(cfg.Options)
	if err != nil {
		return err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(s.now().UnixNano())
	}
	s.rng = rand.New(rand.NewSource(seed))

	switch cfg.PlayerSide {
	case SideB:
		s.human = engine.PlayerB
	case SideRandom:
		s.human = engine.PlayerA
		if s.rng.Intn(2) == 1 {
			s.human = engine.PlayerB
		}
	default:
		s.human = engine.PlayerA
	}

	opts := append([]search.Option{search.WithSeed(seed), search.WithLogger(s.log)}, s.searchOpts...)
	s.cfg = cfg
	s.rules = rules
	s.chance, _ = rules.(engine.Chance)
	s.searcher = search.NewSearcher(rules, opts...)
	s.state = state
	s.history = nil
	s.outcome = nil
	s.reported = false
	s.startedAt = s.now()
	s.lastMoveAt = time.Time{}
	s.status = StatusInProgress
	s.rollLocked()
	s.clock = NewClock(cfg.TimeControl, s.state.Turn(), s.startedAt)

	s.log.Info().
		Str("variant", string(rules.Kind())).
		Str("difficulty", string(cfg.Difficulty)).
		Str("opponent", string(cfg.Opponent)).
		Str("human", s.human.String()).
		Msg("Game started")
	s.emit(Event{Type: EventStarted, Player: s.state.Turn()})
	s.checkEndLocked()
	return nil
}

func (s *Session) rollLocked() {
	if s.chance != nil && s.chance.NeedsRoll(s.state) {
		s.state = s.chance.Roll(s.state, s.rng)
	}
}

func (s *Session) aiControls(p engine.Player) bool {
	switch s.cfg.Opponent {
	case OpponentSelf:
		return true
	case OpponentAI:
		return p != s.human
	}
	return false
}

// readyLocked checks that a move may be made now.
func (s *Session) readyLocked() error {
	if s.status != StatusInProgress {
		return fmt.Errorf("%w: game is %s", ErrInvalidTransition, s.status)
	}
	if s.busy {
		return ErrBusy
	}
	if s.timedOutLocked() {
		return fmt.Errorf("%w: time expired", ErrInvalidTransition)
	}
	return nil
}

// SubmitMove plays a human move and returns it as generated, with capture
// details filled in.
func (s *Session) SubmitMove(m engine.Move) (engine.Move, error) {
	s.mu.Lock()
	defer s.unlock()

	if err := s.readyLocked(); err != nil {
		return engine.Move{}, err
	}
	if turn := s.state.Turn(); s.aiControls(turn) {
		return engine.Move{}, fmt.Errorf("%w: %s is played by the computer", ErrNotYourTurn, s.rules.SideName(turn))
	}
	return s.applyLocked(m, false)
}

// SubmitNotation parses text in the variant's notation and plays it.
func (s *Session) SubmitNotation(text string) (engine.Move, error) {
	m, err := s.ParseMove(text)
	if err != nil {
		return engine.Move{}, err
	}
	return s.SubmitMove(m)
}

func (s *Session) applyLocked(m engine.Move, byAI bool) (engine.Move, error) {
	legal, ok := engine.Find(s.rules.GenerateMoves(s.state), m)
	if !ok {
		return engine.Move{}, engine.Illegal(m, "not legal in this position")
	}
	next, err := s.rules.ApplyMove(s.state, legal)
	if err != nil {
		return engine.Move{}, err
	}

	now := s.now()
	mover := s.state.Turn()
	notation := s.rules.FormatMove(s.state, legal)
	s.history = append(s.history, HistoryEntry{
		State:    s.state,
		Move:     legal,
		Notation: notation,
		Player:   mover,
		ByAI:     byAI,
		At:       now,
	})
	s.state = next
	s.lastMoveAt = now

	s.log.Debug().Str("move", notation).Str("player", mover.String()).Bool("ai", byAI).Msg("Move applied")
	s.emit(Event{Type: EventMove, Move: notation, Player: mover})

	s.checkEndLocked()
	if s.status == StatusInProgress {
		s.rollLocked()
	}
	s.clock.Switch(s.state.Turn(), now)
	return legal, nil
}

func (s *Session) repetitionsLocked() int {
	h := s.state.Hash()
	n := 1
	for _, e := range s.history {
		if e.State.Hash() == h {
			n++
		}
	}
	return n
}

func (s *Session) checkEndLocked() {
	if out, done := s.rules.IsTerminal(s.state); done {
		s.finishLocked(out, "")
		return
	}
	if lim, ok := s.rules.(engine.RepetitionLimiter); ok && s.repetitionsLocked() >= lim.RepetitionLimit() {
		s.finishLocked(engine.DrawBy(engine.ReasonRepetition), "")
	}
}

// finishLocked ends the game. An empty status is derived from the outcome.
func (s *Session) finishLocked(out engine.Outcome, status Status) {
	if status == "" {
		status = StatusDrawn
		if !out.Draw && out.Winner != engine.NoPlayer {
			status = StatusWon
		}
	}
	s.status = status
	s.outcome = &out

	s.log.Info().Str("status", string(status)).Str("outcome", out.String()).Int("moves", len(s.history)).Msg("Game finished")
	s.emit(Event{Type: EventFinished})

	if !s.reported {
		s.reported = true
		s.results = append(s.results, Result{
			SessionID:  s.id,
			Variant:    s.rules.Kind(),
			Winner:     out.Winner,
			Draw:       out.Draw,
			Reason:     out.Reason,
			MoveCount:  len(s.history),
			Duration:   s.now().Sub(s.startedAt),
			FinishedAt: s.now(),
		})
	}
}

// cancelPendingLocked drops any outstanding AI search. Its result, if it
// still arrives, is discarded.
func (s *Session) cancelPendingLocked() {
	if !s.busy {
		return
	}
	s.generation++
	s.busy = false
	if s.cancelAI != nil {
		s.cancelAI()
		s.cancelAI = nil
	}
}

// RequestAIMove starts a background search for the side to move, which must
// be played by the computer. The session stays busy until the returned
// Pending completes or is cancelled.
func (s *Session) RequestAIMove(ctx context.Context) (*Pending, error) {
	s.mu.Lock()
	defer s.unlock()

	if err := s.readyLocked(); err != nil {
		return nil, err
	}
	turn := s.state.Turn()
	if !s.aiControls(turn) {
		return nil, fmt.Errorf("%w: %s is not played by the computer", ErrNotYourTurn, s.rules.SideName(turn))
	}

	ctx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.generation++
	s.cancelAI = cancel
	p := &Pending{
		s:      s,
		gen:    s.generation,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.emit(Event{Type: EventThinking, Player: turn})
	go s.think(ctx, p, s.state, s.searcher, s.cfg.Difficulty)
	return p, nil
}

func (s *Session) think(ctx context.Context, p *Pending, state engine.State, searcher *search.Searcher, d search.Difficulty) {
	defer close(p.done)
	res, err := searcher.ChooseMove(ctx, state, d)

	s.mu.Lock()
	defer s.unlock()
	defer p.cancel()

	if s.generation != p.gen || !s.busy {
		p.err = ErrCancelled
		return
	}
	s.busy = false
	s.cancelAI = nil
	if err != nil {
		if ctx.Err() != nil {
			p.err = ErrCancelled
			return
		}
		s.log.Error().Err(err).Msg("AI search failed")
		p.err = err
		return
	}
	p.stats = res.Stats
	s.log.Debug().
		Int("depth", res.Stats.CompletedDepth).
		Int64("nodes", res.Stats.Nodes).
		Bool("cutoff", res.Cutoff).
		Dur("elapsed", res.Stats.Elapsed).
		Msg("AI move chosen")
	p.move, p.err = s.applyLocked(res.Move, true)
}

// PlayAI requests an AI move and waits for it.
func (s *Session) PlayAI(ctx context.Context) (engine.Move, error) {
	p, err := s.RequestAIMove(ctx)
	if err != nil {
		return engine.Move{}, err
	}
	return p.Wait(ctx)
}

// Undo takes back the last move. It also works after the game ended by play,
// which puts the game back in progress. An outstanding AI search is
// cancelled.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.unlock()
	return s.undoLocked(1)
}

// UndoPair takes back the last two moves, normally the human's move and the
// computer's reply.
func (s *Session) UndoPair() error {
	s.mu.Lock()
	defer s.unlock()
	return s.undoLocked(2)
}

func (s *Session) undoLocked(n int) error {
	switch s.status {
	case StatusInProgress, StatusWon, StatusDrawn:
	default:
		return fmt.Errorf("%w: cannot undo in a %s session", ErrInvalidTransition, s.status)
	}
	if len(s.history) < n {
		return fmt.Errorf("%w: only %d moves to undo", ErrInvalidTransition, len(s.history))
	}
	s.cancelPendingLocked()

	entry := s.history[len(s.history)-n]
	s.history = s.history[:len(s.history)-n]
	s.state = entry.State
	s.status = StatusInProgress
	s.outcome = nil
	s.clock.Restart(s.state.Turn(), s.now())

	s.log.Debug().Int("plies", n).Msg("Undo")
	s.emit(Event{Type: EventUndo, Player: s.state.Turn()})
	return nil
}

// Abandon ends a game in progress without a winner.
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.unlock()

	if s.status != StatusInProgress {
		return fmt.Errorf("%w: cannot abandon a %s session", ErrInvalidTransition, s.status)
	}
	s.cancelPendingLocked()
	s.finishLocked(engine.Outcome{Reason: engine.ReasonAbandoned}, StatusAbandoned)
	return nil
}

func (s *Session) timedOutLocked() bool {
	if s.status != StatusInProgress || s.clock == nil {
		return false
	}
	if !s.clock.Expired(s.now()) {
		return false
	}
	loser := s.state.Turn()
	s.cancelPendingLocked()
	s.finishLocked(engine.Win(loser.Opponent(), engine.ReasonTimeout), StatusAbandoned)
	return true
}

// CheckTimeout abandons the game if the side to move ran out of time, and
// reports whether it did.
func (s *Session) CheckTimeout() bool {
	s.mu.Lock()
	defer s.unlock()
	return s.timedOutLocked()
}

// Reset discards the game and returns the session to NotStarted, from any
// status.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.unlock()

	s.cancelPendingLocked()
	s.status = StatusNotStarted
	s.state = nil
	s.history = nil
	s.outcome = nil
	s.clock = nil
	s.reported = false
	s.emit(Event{Type: EventReset})
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// State is the current position, nil before Start.
func (s *Session) State() engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Rules() engine.Rules {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) HumanSide() engine.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.human
}

func (s *Session) Outcome() (engine.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return engine.Outcome{}, false
	}
	return *s.outcome, true
}

func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// LegalMoves lists the moves available to the side to move. It is empty
// unless the game is in progress.
func (s *Session) LegalMoves() []engine.Move {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return nil
	}
	return s.rules.GenerateMoves(s.state)
}

// ParseMove resolves text in the variant's notation against the current
// position.
func (s *Session) ParseMove(text string) (engine.Move, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return engine.Move{}, fmt.Errorf("%w: game is %s", ErrInvalidTransition, s.status)
	}
	return engine.ParseMove(s.rules, s.state, text)
}

type dicer interface {
	Dice() [2]int
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:         s.id,
		Variant:    s.cfg.Variant,
		Status:     s.status,
		HumanSide:  s.human,
		Opponent:   s.cfg.Opponent,
		Difficulty: s.cfg.Difficulty,
		Busy:       s.busy,
		StartedAt:  s.startedAt,
		LastMoveAt: s.lastMoveAt,
		Moves:      []string{},
		LegalMoves: []string{},
	}
	if s.state == nil {
		return snap
	}
	snap.Variant = s.rules.Kind()
	snap.Turn = s.state.Turn()
	snap.TurnName = s.rules.SideName(snap.Turn)
	snap.Board = s.state.Board()
	snap.MoveNumber = s.state.MoveNumber()
	snap.Text = variants.Render(s.state)
	for _, e := range s.history {
		snap.Moves = append(snap.Moves, e.Notation)
	}
	if s.status == StatusInProgress {
		for _, m := range s.rules.GenerateMoves(s.state) {
			snap.LegalMoves = append(snap.LegalMoves, s.rules.FormatMove(s.state, m))
		}
	}
	if d, ok := s.state.(dicer); ok {
		if dice := d.Dice(); dice[0] != 0 {
			snap.Dice = dice[:]
		}
	}
	if s.outcome != nil {
		out := *s.outcome
		snap.Outcome = &out
	}
	if s.cfg.TimeControl.Enabled() && s.clock != nil {
		now := s.now()
		snap.Clock = &ClockView{
			RemainingA:   s.clock.Remaining(engine.PlayerA, now),
			RemainingB:   s.clock.Remaining(engine.PlayerB, now),
			MoveDeadline: s.clock.MoveDeadline(),
		}
	}
	return snap
}

// Pending is an outstanding AI move.
type Pending struct {
	s      *Session
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}

	move  engine.Move
	stats search.Stats
	err   error
}

// Done is closed once the search finished and its move (if any) was applied.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the AI move was applied or discarded.
func (p *Pending) Wait(ctx context.Context) (engine.Move, error) {
	select {
	case <-p.done:
		return p.move, p.err
	case <-ctx.Done():
		return engine.Move{}, ctx.Err()
	}
}

// Stats describes the finished search. Valid after Done.
func (p *Pending) Stats() search.Stats {
	<-p.done
	return p.stats
}

// Cancel abandons the search. The session is free for moves immediately and
// its state is left as it was when the search started.
func (p *Pending) Cancel() {
	p.s.mu.Lock()
	if p.s.generation == p.gen && p.s.busy {
		p.s.generation++
		p.s.busy = false
		p.s.cancelAI = nil
	}
	p.s.mu.Unlock()
	p.cancel()
}
