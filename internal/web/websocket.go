package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/justinabrahms/boardcore/internal/session"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// WebSocket upgrader with reasonable settings
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub maintains active WebSocket connections
type Hub struct {
	// Registered clients by session ID
	sessionClients map[string]map[*Client]bool

	broadcast  chan Update
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex
}

// Client represents a WebSocket connection
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string

	mu     sync.Mutex
	closed bool
}

// enqueue queues a message unless the client is closed or backed up.
func (c *Client) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Update is one message pushed to the clients of a session.
type Update struct {
	SessionID string      `json:"session_id"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		sessionClients: make(map[string]map[*Client]bool),
		broadcast:      make(chan Update, 256),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
	}
}

// Run starts the hub's main event loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.sessionClients {
				for client := range clients {
					client.close()
				}
				delete(h.sessionClients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.sessionClients[client.sessionID] == nil {
				h.sessionClients[client.sessionID] = make(map[*Client]bool)
			}
			h.sessionClients[client.sessionID][client] = true
			h.mu.Unlock()

			log.Info().Str("session", client.sessionID).Msg("Client connected to session")

		case client := <-h.unregister:
			h.remove(client)
			log.Info().Str("session", client.sessionID).Msg("Client disconnected from session")

		case update := <-h.broadcast:
			message, err := json.Marshal(update)
			if err != nil {
				log.Error().Err(err).Msg("Failed to marshal session update")
				continue
			}

			h.mu.RLock()
			var slow []*Client
			for client := range h.sessionClients[update.SessionID] {
				if !client.enqueue(message) {
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			// Client's send channel is full, drop it
			for _, client := range slow {
				h.remove(client)
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.sessionClients[client.sessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	client.close()

	// Clean up empty session rooms
	if len(clients) == 0 {
		delete(h.sessionClients, client.sessionID)
	}
}

// ClientCount is the number of connections watching a session.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessionClients[sessionID])
}

// Broadcast queues an update without blocking.
func (h *Hub) Broadcast(update Update) {
	select {
	case h.broadcast <- update:
	default:
		log.Warn().Str("session", update.SessionID).Msg("Broadcast channel full, dropping update")
	}
}

// Publish forwards a session event. It has the signature session
// subscribers expect.
func (h *Hub) Publish(e session.Event) {
	h.Broadcast(Update{SessionID: e.SessionID, Type: string(e.Type), Data: e})
}

// WebSocketHandler handles WebSocket upgrade requests
func (s *Service) WebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			http.Error(w, "Missing session parameter", http.StatusBadRequest)
			return
		}
		sess, ok := s.sessions.Get(sessionID)
		if !ok {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
			return
		}

		client := &Client{
			hub:       hub,
			conn:      conn,
			send:      make(chan []byte, 256),
			sessionID: sessionID,
		}

		// The first message is the current state.
		if data, err := json.Marshal(Update{SessionID: sessionID, Type: "snapshot", Data: sess.Snapshot()}); err == nil {
			client.enqueue(data)
		}
		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump handles incoming messages from the WebSocket
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("WebSocket error")
			}
			break
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &msg); err == nil && msg.Type == "ping" {
			if data, err := json.Marshal(map[string]string{"type": "pong"}); err == nil {
				c.enqueue(data)
			}
		}
	}
}

// writePump sends queued messages, one WebSocket message each, and pings
// the peer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
