package web

import (
	"net/http"
	"time"

	"github.com/justinabrahms/boardcore/internal/board"
	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/justinabrahms/boardcore/internal/session"
	"github.com/justinabrahms/boardcore/internal/variants/chess"
)

// SessionIndex represents a session available for spectating
type SessionIndex struct {
	ID         string               `json:"id"`
	Variant    engine.Kind          `json:"variant"`
	Status     session.Status       `json:"status"`
	Turn       engine.Player        `json:"turn"`
	MoveCount  int                  `json:"move_count"`
	LastMoveAt *time.Time           `json:"last_move_at,omitempty"`
	Spectators int                  `json:"spectators"`
	Pieces     PieceCount           `json:"pieces"`
	Material   *chess.MaterialCount `json:"material,omitempty"`
}

// PieceCount is the number of pieces (checkers on the board for
// backgammon) each side has left.
type PieceCount struct {
	A int `json:"a"`
	B int `json:"b"`
}

func (s *Service) index(sess *session.Session) SessionIndex {
	snap := sess.Snapshot()
	idx := SessionIndex{
		ID:         snap.ID,
		Variant:    snap.Variant,
		Status:     snap.Status,
		Turn:       snap.Turn,
		MoveCount:  len(snap.Moves),
		Spectators: s.hub.ClientCount(snap.ID),
	}
	if !snap.LastMoveAt.IsZero() {
		t := snap.LastMoveAt
		idx.LastMoveAt = &t
	}
	if snap.Board != nil {
		idx.Pieces = PieceCount{
			A: snap.Board.Count(board.OwnerA, true),
			B: snap.Board.Count(board.OwnerB, true),
		}
	}
	if st, ok := sess.State().(*chess.State); ok {
		m := chess.Material(st)
		idx.Material = &m
	}
	return idx
}

// ListSessionsHandler returns the sessions in progress, or every session
// with ?all=true.
func (s *Service) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true"
	list := []SessionIndex{}
	for _, sess := range s.sessions.List() {
		if !all && sess.Status() != session.StatusInProgress {
			continue
		}
		list = append(list, s.index(sess))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": list,
		"total":    len(list),
	})
}
