package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/justinabrahms/boardcore/internal/results"
	"github.com/justinabrahms/boardcore/internal/search"
	"github.com/justinabrahms/boardcore/internal/session"
	"github.com/justinabrahms/boardcore/internal/variants"
	"github.com/rs/zerolog/log"
)

type Service struct {
	sessions *session.Manager
	ledger   *results.Ledger
	hub      *Hub
	defaults session.Config
}

func NewService(sessions *session.Manager, ledger *results.Ledger, hub *Hub, defaults session.Config) *Service {
	return &Service{
		sessions: sessions,
		ledger:   ledger,
		hub:      hub,
		defaults: defaults,
	}
}

// Router wires every endpoint, with permissive CORS for the browser UI.
func (s *Service) Router() *mux.Router {
	router := mux.NewRouter()

	// Add CORS middleware
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.HealthHandler).Methods("GET")
	api.HandleFunc("/variants", s.VariantsHandler).Methods("GET")
	api.HandleFunc("/sessions", s.CreateSessionHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions", s.ListSessionsHandler).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.GetSessionHandler).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.DeleteSessionHandler).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/sessions/{id}/moves", s.GetMovesHandler).Methods("GET")
	api.HandleFunc("/sessions/{id}/moves", s.MakeMoveHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/ai", s.AIMoveHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/undo", s.UndoHandler).Methods("POST", "OPTIONS")
	api.HandleFunc("/sessions/{id}/clock", s.ClockHandler).Methods("GET")
	api.HandleFunc("/results", s.ResultsHandler).Methods("GET")
	router.HandleFunc("/ws", s.WebSocketHandler(s.hub))
	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrIllegalMove), errors.Is(err, engine.ErrUnknownVariant):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotYourTurn),
		errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrCancelled),
		errors.Is(err, search.ErrNoMoves):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	http.Error(w, err.Error(), status)
}

func (s *Service) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "Missing session ID", http.StatusBadRequest)
		return nil, false
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func (s *Service) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": len(s.sessions.List()),
		"results":  s.ledger.Len(),
	})
}

func (s *Service) VariantsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"variants":     variants.All(),
		"difficulties": search.Difficulties(),
	})
}

type TimeControlRequest struct {
	PerPlayer string `json:"per_player,omitempty"`
	PerMove   string `json:"per_move,omitempty"`
}

type CreateSessionRequest struct {
	Variant     string              `json:"variant"`
	Difficulty  string              `json:"difficulty,omitempty"`
	PlayerSide  string              `json:"player_side,omitempty"`
	Opponent    string              `json:"opponent,omitempty"`
	Size        int                 `json:"size,omitempty"`
	Komi        *float64            `json:"komi,omitempty"`
	FEN         string              `json:"fen,omitempty"`
	Seed        uint64              `json:"seed,omitempty"`
	TimeControl *TimeControlRequest `json:"time_control,omitempty"`
}

// sessionConfig fills the request's gaps from the service defaults.
func (s *Service) sessionConfig(req CreateSessionRequest) (session.Config, error) {
	cfg := s.defaults
	if req.Variant != "" {
		kind, err := engine.ParseKind(req.Variant)
		if err != nil {
			return cfg, err
		}
		if kind != cfg.Variant {
			cfg.Options = engine.Options{}
		}
		cfg.Variant = kind
	}
	if req.Difficulty != "" {
		cfg.Difficulty = search.Difficulty(strings.ToLower(req.Difficulty))
	}
	if req.PlayerSide != "" {
		cfg.PlayerSide = session.Side(strings.ToLower(req.PlayerSide))
	}
	if req.Opponent != "" {
		cfg.Opponent = session.Opponent(strings.ToLower(req.Opponent))
	}
	if req.Size != 0 {
		cfg.Options.Size = req.Size
	}
	if req.Komi != nil {
		cfg.Options.Komi = *req.Komi
	}
	if req.FEN != "" {
		cfg.Options.FEN = req.FEN
	}
	cfg.Seed = req.Seed
	if tc := req.TimeControl; tc != nil {
		var err error
		if cfg.TimeControl.PerPlayer, err = parseDuration(tc.PerPlayer); err != nil {
			return cfg, fmt.Errorf("invalid per_player: %w", err)
		}
		if cfg.TimeControl.PerMove, err = parseDuration(tc.PerMove); err != nil {
			return cfg, fmt.Errorf("invalid per_move: %w", err)
		}
	}
	return cfg, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func (s *Service) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cfg, err := s.sessionConfig(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := s.sessions.Create(cfg, session.WithSubscriber(s.hub.Publish))
	if err != nil {
		log.Info().Err(err).Str("variant", string(cfg.Variant)).Msg("Rejected session")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Info().Str("session", sess.ID()).Str("variant", string(cfg.Variant)).Msg("Session created")
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Service) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Service) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.sessions.Remove(id) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	log.Info().Str("session", id).Msg("Session removed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) GetMovesHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": sess.History(),
		"legal":   snap.LegalMoves,
		"turn":    snap.Turn,
	})
}

type MakeMoveRequest struct {
	Move string `json:"move"`
	// Reply asks the computer to answer in the same request.
	Reply bool `json:"reply,omitempty"`
}

type MoveResponse struct {
	Move     string           `json:"move,omitempty"`
	Reply    string           `json:"reply,omitempty"`
	Stats    *search.Stats    `json:"stats,omitempty"`
	Snapshot session.Snapshot `json:"session"`
}

// lastNotation is the notation of the most recent move.
func lastNotation(sess *session.Session) string {
	h := sess.History()
	if len(h) == 0 {
		return ""
	}
	return h[len(h)-1].Notation
}

func (s *Service) MakeMoveHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req MakeMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Move) == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := sess.SubmitNotation(req.Move); err != nil {
		log.Debug().Err(err).Str("session", sess.ID()).Str("move", req.Move).Msg("Move rejected")
		writeError(w, err)
		return
	}
	resp := MoveResponse{Move: lastNotation(sess)}

	if req.Reply && sess.Status() == session.StatusInProgress {
		p, err := sess.RequestAIMove(r.Context())
		switch {
		case err == nil:
			if resp.Reply, resp.Stats, err = awaitAI(r, sess, p); err != nil {
				writeError(w, err)
				return
			}
		case !errors.Is(err, session.ErrNotYourTurn):
			writeError(w, err)
			return
		}
	}
	resp.Snapshot = sess.Snapshot()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) AIMoveHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	p, err := sess.RequestAIMove(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	notation, stats, err := awaitAI(r, sess, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MoveResponse{Move: notation, Stats: stats, Snapshot: sess.Snapshot()})
}

// awaitAI waits for p and reports the move it played. A client that goes
// away cancels the search.
func awaitAI(r *http.Request, sess *session.Session, p *session.Pending) (string, *search.Stats, error) {
	if _, err := p.Wait(r.Context()); err != nil {
		p.Cancel()
		return "", nil, err
	}
	stats := p.Stats()
	return lastNotation(sess), &stats, nil
}

type UndoRequest struct {
	Pair bool `json:"pair"`
}

func (s *Service) UndoHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req UndoRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	undo := sess.Undo
	if req.Pair {
		undo = sess.UndoPair
	}
	if err := undo(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Service) ClockHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	timedOut := sess.CheckTimeout()
	snap := sess.Snapshot()
	if snap.Clock == nil {
		http.Error(w, "Session has no time control", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":          sess.ID(),
		"timed_out":           timedOut,
		"status":              snap.Status,
		"remaining_a_seconds": int(snap.Clock.RemainingA.Seconds()),
		"remaining_b_seconds": int(snap.Clock.RemainingB.Seconds()),
		"remaining_a":         session.FormatRemaining(snap.Clock.RemainingA),
		"remaining_b":         session.FormatRemaining(snap.Clock.RemainingB),
		"move_deadline":       snap.Clock.MoveDeadline,
	})
}

func (s *Service) ResultsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := results.Filter{}
	if v := q.Get("variant"); v != "" {
		kind, err := engine.ParseKind(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.Variant = kind
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		f.Limit = n
	}
	list := s.ledger.List(f)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": list,
		"total":   len(list),
		"summary": s.ledger.Summary(),
	})
}
