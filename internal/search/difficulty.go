package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/justinabrahms/boardcore/internal/engine"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Expert Difficulty = "expert"
)

// Difficulties lists the levels from weakest to strongest.
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Medium, Hard, Expert}
}

func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Difficulties() {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// Profile is the search budget behind a difficulty.
type Profile struct {
	Depth  int           `mapstructure:"depth" json:"depth"`
	Time   time.Duration `mapstructure:"time" json:"time"`
	TopN   int           `mapstructure:"top_n" json:"top_n"`
	Margin int           `mapstructure:"margin" json:"margin"`
}

func DefaultProfiles() map[Difficulty]Profile {
	return map[Difficulty]Profile{
		Easy:   {Depth: 2, Time: 500 * time.Millisecond, TopN: 3, Margin: 150},
		Medium: {Depth: 4, Time: 1500 * time.Millisecond, TopN: 2, Margin: 30},
		Hard:   {Depth: 6, Time: 3 * time.Second, TopN: 1},
		Expert: {Depth: 8, Time: 8 * time.Second, TopN: 1},
	}
}

// DefaultDepthCaps bound the depth per variant. Wide or random games cannot
// afford the deeper profiles.
func DefaultDepthCaps() map[engine.Kind]int {
	return map[engine.Kind]int{
		engine.Chess:      6,
		engine.Checkers:   10,
		engine.Reversi:    8,
		engine.Go:         2,
		engine.Backgammon: 1,
	}
}

// LimitsFor turns a difficulty into search limits for this searcher's
// variant.
func (s *Searcher) LimitsFor(d Difficulty) (Limits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[d]
	if !ok {
		return Limits{}, fmt.Errorf("unknown difficulty %q", d)
	}
	depth := p.Depth
	if limit, ok := s.caps[s.rules.Kind()]; ok && limit > 0 && depth > limit {
		depth = limit
	}
	return Limits{
		Depth:  depth,
		Time:   p.Time,
		TopN:   p.TopN,
		Margin: engine.Score(p.Margin),
	}, nil
}

// ChooseMove searches state with the budget of a difficulty level.
func (s *Searcher) ChooseMove(ctx context.Context, state engine.State, d Difficulty) (Result, error) {
	limits, err := s.LimitsFor(d)
	if err != nil {
		return Result{}, err
	}
	return s.Search(ctx, state, limits)
}
