package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/claude/rehabreps/internal/exercise"
	"github.com/claude/rehabreps/internal/pose"
	"github.com/claude/rehabreps/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients are served from other origins during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message types on the stream.
const (
	msgResult = "result"
	msgEvent  = "event"
	msgError  = "error"
)

// streamMessage is one message sent to a stream client.
type streamMessage struct {
	Type    string          `json:"type"`
	Session string          `json:"session"`
	Update  *session.Update `json:"update,omitempty"`
	Event   *exercise.Event `json:"event,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Hub tracks websocket clients per session and fans tracker events out to
// them. It implements session.Notifier.
//
// Events are queued on the clients synchronously, so a rep event always
// precedes the result of the frame that produced it.
type Hub struct {
	log *slog.Logger

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*Client]bool
}

// Client is one websocket connection streaming frames for a session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewHub creates a Hub. Run must be started before clients connect.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Run processes registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				c.close()
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Debug("stream client registered", "session", c.sessionID)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
			}
			h.mu.Unlock()
			h.log.Debug("stream client unregistered", "session", c.sessionID)
		}
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Clients returns how many clients watch sessionID.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.sessionID == sessionID {
			n++
		}
	}
	return n
}

// Notify queues ev on every client of sessionID. A client whose send
// buffer is full is closed; its read loop then unregisters it.
func (h *Hub) Notify(sessionID string, ev exercise.Event) error {
	data, err := json.Marshal(streamMessage{Type: msgEvent, Session: sessionID, Event: &ev})
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	var slow int
	for c := range h.clients {
		if c.sessionID != sessionID {
			continue
		}
		if !c.enqueue(data) {
			c.close()
			slow++
		}
	}
	if slow > 0 {
		return fmt.Errorf("event not delivered to %d stream clients", slow)
	}
	return nil
}

// enqueue queues data without blocking. It reports false when the client is
// closed or too slow.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
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

func (c *Client) reply(msg streamMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Error("marshal stream message", "error", err)
		return
	}
	c.enqueue(data)
}

// handleStream upgrades to a websocket. The client sends frames as JSON and
// receives a result per frame plus the session's events.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.Get(r.Context(), id); err != nil {
		writeSessionError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "session", id, "error", err)
		return
	}

	c := &Client{hub: s.hub, conn: conn, sessionID: id, send: make(chan []byte, sendBuffer)}
	if !s.hub.add(c) {
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(s.sessions)
}

// readPump feeds incoming frames to the session until the connection closes
// or the session finishes. Unregistering closes send, so writePump flushes
// the last replies and closes the connection.
func (c *Client) readPump(sessions *session.Manager) {
	defer c.hub.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("stream read error", "session", c.sessionID, "error", err)
			}
			return
		}

		var f pose.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.reply(streamMessage{Type: msgError, Session: c.sessionID, Error: "invalid frame: " + err.Error()})
			continue
		}

		up, err := sessions.Analyze(context.Background(), c.sessionID, f)
		if errors.Is(err, session.ErrNotFound) {
			c.reply(streamMessage{Type: msgError, Session: c.sessionID, Error: "session not found"})
			return
		}
		if err != nil {
			c.hub.log.Error("finishing session", "session", c.sessionID, "error", err)
		}
		c.reply(streamMessage{Type: msgResult, Session: c.sessionID, Update: up})
		if up.Statistics != nil {
			return
		}
	}
}

// writePump is the only writer to the connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
