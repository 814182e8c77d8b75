package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/justinabrahms/boardcore/internal/results"
	"github.com/justinabrahms/boardcore/internal/search"
	"github.com/justinabrahms/boardcore/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotView struct {
	ID         string   `json:"id"`
	Variant    string   `json:"variant"`
	Status     string   `json:"status"`
	Turn       string   `json:"turn"`
	HumanSide  string   `json:"human_side"`
	Moves      []string `json:"moves"`
	LegalMoves []string `json:"legal_moves"`
}

type moveView struct {
	Move    string        `json:"move"`
	Reply   string        `json:"reply"`
	Stats   *search.Stats `json:"stats"`
	Session snapshotView  `json:"session"`
}

func newTestService(t *testing.T) (*Service, *results.Ledger) {
	t.Helper()
	ledger := results.NewLedger(100)
	manager := session.NewManager(
		session.WithReporter(ledger),
		session.WithSearchOptions(search.WithProfiles(map[search.Difficulty]search.Profile{
			search.Easy: {Depth: 1, TopN: 1},
		})),
	)
	defaults := session.Config{
		Variant:    engine.Chess,
		Difficulty: search.Easy,
		PlayerSide: session.SideA,
		Opponent:   session.OpponentAI,
		Seed:       1,
	}
	return NewService(manager, ledger, NewHub(), defaults), ledger
}

func do(t *testing.T, s *Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, s *Service, body string) snapshotView {
	t.Helper()
	w := do(t, s, "POST", "/api/sessions", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var snap snapshotView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snap))
	return snap
}

func TestHealthAndVariants(t *testing.T) {
	s, _ := newTestService(t)

	w := do(t, s, "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = do(t, s, "GET", "/api/variants", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Variants     []map[string]interface{} `json:"variants"`
		Difficulties []string                 `json:"difficulties"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Len(t, body.Variants, 5)
	assert.Contains(t, body.Difficulties, "expert")
}

func TestCreateAndGetSession(t *testing.T) {
	s, _ := newTestService(t)

	snap := createSession(t, s, `{"variant":"chess"}`)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "in_progress", snap.Status)
	assert.Equal(t, "a", snap.Turn)
	assert.Len(t, snap.LegalMoves, 20)

	w := do(t, s, "GET", "/api/sessions/"+snap.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got snapshotView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, snap.ID, got.ID)

	w = do(t, s, "GET", "/api/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSessionRejectsBadInput(t *testing.T) {
	s, _ := newTestService(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"variant":`},
		{"unknown variant", `{"variant":"mancala"}`},
		{"unknown difficulty", `{"difficulty":"godlike"}`},
		{"bad duration", `{"time_control":{"per_move":"soon"}}`},
		{"bad go size", `{"variant":"go","size":4}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, "POST", "/api/sessions", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestMoveWithComputerReply(t *testing.T) {
	s, _ := newTestService(t)
	snap := createSession(t, s, `{"variant":"chess"}`)

	w := do(t, s, "POST", "/api/sessions/"+snap.ID+"/moves", `{"move":"e2e4","reply":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp moveView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "e2e4", resp.Move)
	assert.NotEmpty(t, resp.Reply)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, []string{"e2e4", resp.Reply}, resp.Session.Moves)
	assert.Equal(t, "a", resp.Session.Turn)

	w = do(t, s, "GET", "/api/sessions/"+snap.ID+"/moves", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"history"`)
}

func TestMoveErrors(t *testing.T) {
	s, _ := newTestService(t)
	snap := createSession(t, s, `{"variant":"chess"}`)
	path := "/api/sessions/" + snap.ID + "/moves"

	w := do(t, s, "POST", path, `{"move":"e2e5"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "illegal move")

	w = do(t, s, "POST", path, `{"move":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty move")

	w = do(t, s, "POST", path, `{"move":"e2e4"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, "POST", path, `{"move":"e7e5"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "the computer's turn")

	w = do(t, s, "POST", "/api/sessions/nope/moves", `{"move":"e2e4"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAIMoveAndUndo(t *testing.T) {
	s, _ := newTestService(t)
	snap := createSession(t, s, `{"variant":"checkers","player_side":"b"}`)
	assert.Equal(t, "b", snap.HumanSide)

	w := do(t, s, "POST", "/api/sessions/"+snap.ID+"/ai", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp moveView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Move)
	assert.Len(t, resp.Session.Moves, 1)

	w = do(t, s, "POST", "/api/sessions/"+snap.ID+"/ai", "")
	assert.Equal(t, http.StatusConflict, w.Code, "the human's turn")

	legal := resp.Session.LegalMoves
	require.NotEmpty(t, legal)
	w = do(t, s, "POST", "/api/sessions/"+snap.ID+"/moves", `{"move":"`+legal[0]+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, "POST", "/api/sessions/"+snap.ID+"/undo", `{"pair":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var undone snapshotView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&undone))
	assert.Len(t, undone.Moves, 0)

	w = do(t, s, "POST", "/api/sessions/"+snap.ID+"/undo", "")
	assert.Equal(t, http.StatusConflict, w.Code, "nothing left to undo")
}

func TestDeleteSessionRecordsResult(t *testing.T) {
	s, ledger := newTestService(t)
	snap := createSession(t, s, `{"variant":"reversi","opponent":"human"}`)

	w := do(t, s, "DELETE", "/api/sessions/"+snap.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, "GET", "/api/sessions/"+snap.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, "DELETE", "/api/sessions/"+snap.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1, ledger.Len())
	w = do(t, s, "GET", "/api/results?variant=reversi", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Results []map[string]interface{} `json:"results"`
		Total   int                      `json:"total"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, snap.ID, body.Results[0]["session_id"])
	assert.Equal(t, "abandoned", body.Results[0]["reason"])

	w = do(t, s, "GET", "/api/results?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSessions(t *testing.T) {
	s, _ := newTestService(t)
	chessGame := createSession(t, s, `{"variant":"chess","opponent":"human"}`)
	createSession(t, s, `{"variant":"backgammon","opponent":"human"}`)

	w := do(t, s, "POST", "/api/sessions/"+chessGame.ID+"/moves", `{"move":"e2e4"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, "GET", "/api/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Sessions []SessionIndex `json:"sessions"`
		Total    int            `json:"total"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, 2, body.Total)

	byVariant := map[engine.Kind]SessionIndex{}
	for _, idx := range body.Sessions {
		byVariant[idx.Variant] = idx
	}
	c := byVariant[engine.Chess]
	assert.Equal(t, 1, c.MoveCount)
	assert.NotNil(t, c.LastMoveAt)
	assert.Equal(t, PieceCount{A: 16, B: 16}, c.Pieces)
	require.NotNil(t, c.Material)
	assert.Equal(t, c.Material.White, c.Material.Black)

	bg := byVariant[engine.Backgammon]
	assert.Equal(t, PieceCount{A: 15, B: 15}, bg.Pieces)
	assert.Nil(t, bg.Material)

	require.Equal(t, http.StatusNoContent, do(t, s, "DELETE", "/api/sessions/"+chessGame.ID, "").Code)
	w = do(t, s, "GET", "/api/sessions?all=true", "")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 1, body.Total)
}

func TestClockEndpoint(t *testing.T) {
	s, _ := newTestService(t)
	untimed := createSession(t, s, `{"variant":"chess"}`)
	w := do(t, s, "GET", "/api/sessions/"+untimed.ID+"/clock", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	timed := createSession(t, s, `{"variant":"chess","time_control":{"per_player":"10m"}}`)
	w = do(t, s, "GET", "/api/sessions/"+timed.ID+"/clock", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, false, body["timed_out"])
	assert.Equal(t, "10 minutes", body["remaining_b"])
}

func TestHandlerWithURLVars(t *testing.T) {
	s, _ := newTestService(t)
	snap := createSession(t, s, `{"variant":"go","size":9}`)

	req := httptest.NewRequest("GET", "/api/sessions/"+snap.ID, nil)
	req = mux.SetURLVars(req, map[string]string{"id": snap.ID})
	w := httptest.NewRecorder()
	s.GetSessionHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var got snapshotView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "go", got.Variant)
	assert.Len(t, got.LegalMoves, 82, "every point plus pass")

	req = httptest.NewRequest("GET", "/api/sessions/", nil)
	w = httptest.NewRecorder()
	s.GetSessionHandler(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestService(t)
	w := do(t, s, "OPTIONS", "/api/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestWebSocketReceivesEvents(t *testing.T) {
	s, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx)

	server := httptest.NewServer(s.Router())
	defer server.Close()

	snap := createSession(t, s, `{"variant":"chess","opponent":"human"}`)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?session=" + snap.ID

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first Update
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "snapshot", first.Type)
	assert.Equal(t, snap.ID, first.SessionID)

	require.Eventually(t, func() bool {
		return s.hub.ClientCount(snap.ID) == 1
	}, 5*time.Second, 10*time.Millisecond)

	w := do(t, s, "POST", "/api/sessions/"+snap.ID+"/moves", `{"move":"g1f3"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var update struct {
		SessionID string        `json:"session_id"`
		Type      string        `json:"type"`
		Data      session.Event `json:"data"`
	}
	for update.Type != "move" {
		require.NoError(t, conn.ReadJSON(&update))
	}
	assert.Equal(t, "g1f3", update.Data.Move)
	assert.Equal(t, engine.PlayerA, update.Data.Player)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	var pong map[string]string
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong["type"])
}

func TestScholarsMateOverHTTP(t *testing.T) {
	s, ledger := newTestService(t)
	snap := createSession(t, s, `{"variant":"chess","opponent":"human"}`)
	path := "/api/sessions/" + snap.ID + "/moves"

	for _, move := range []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"} {
		w := do(t, s, "POST", path, `{"move":"`+move+`"}`)
		require.Equal(t, http.StatusOK, w.Code, "%s: %s", move, w.Body.String())
	}

	w := do(t, s, "GET", "/api/sessions/"+snap.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status     string          `json:"status"`
		LegalMoves []string        `json:"legal_moves"`
		Outcome    *engine.Outcome `json:"outcome"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "won", body.Status)
	assert.Empty(t, body.LegalMoves)
	require.NotNil(t, body.Outcome)
	assert.Equal(t, engine.PlayerA, body.Outcome.Winner)
	assert.Equal(t, engine.ReasonCheckmate, body.Outcome.Reason)

	w = do(t, s, "POST", path, `{"move":"a7a6"}`)
	assert.Equal(t, http.StatusConflict, w.Code, "game is over")
	assert.Equal(t, 1, ledger.Len())
}
