package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Manager keeps the live sessions of a server.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	options  []Option
}

// NewManager creates a manager whose sessions are built with options.
func NewManager(options ...Option) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		options:  options,
	}
}

// Create starts a new session. Extra options apply to this session only.
func (m *Manager) Create(cfg Config, extra ...Option) (*Session, error) {
	opts := append(append([]Option{}, m.options...), extra...)
	s := New("", opts...)
	if err := s.Start(cfg); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove forgets a session, abandoning it first if it is still in progress.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	if s.Status() == StatusInProgress {
		_ = s.Abandon()
	}
	return true
}

// List returns the sessions ordered by id.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// SweepTimeouts checks every session's clock and returns how many games
// timed out.
func (m *Manager) SweepTimeouts() int {
	n := 0
	for _, s := range m.List() {
		if s.CheckTimeout() {
			n++
		}
	}
	return n
}

// RunSweeper calls SweepTimeouts every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.SweepTimeouts(); n > 0 {
				log.Info().Int("count", n).Msg("Sessions timed out")
			}
		}
	}
}
