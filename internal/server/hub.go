package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/thraizz/wildwood-server-go/internal/game"
)

// Message types on the websocket.
const (
	MsgEffects = "effects"
	MsgState   = "state"
	MsgResult  = "result"
	MsgAction  = "action"
	MsgEndDay  = "end_day"
	MsgError   = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSMessage is the websocket envelope in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func newMessage(kind, sessionID string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{Type: kind, SessionID: sessionID, Data: raw})
}

// MessageHandler answers a message a client sent. The reply, if any, goes
// back to that client only.
type MessageHandler func(ctx context.Context, sessionID string, msg WSMessage) (reply []byte)

type client struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

type outbound struct {
	sessionID string
	payload   []byte
}

// Hub fans side effects out to the websocket clients of each session. It
// implements game.EffectSink.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan outbound
	register   chan *client
	unregister chan *client
	done       chan struct{}
	logger     *zap.Logger

	mu      sync.RWMutex
	handler MessageHandler
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan outbound, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// SetHandler installs the handler for client messages.
func (h *Hub) SetHandler(fn MessageHandler) {
	h.mu.Lock()
	h.handler = fn
	h.mu.Unlock()
}

// Run serves registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("websocket client registered", zap.String("session_id", c.sessionID))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("websocket client unregistered", zap.String("session_id", c.sessionID))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				if c.sessionID != msg.sessionID {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					close(c.send)
					delete(h.clients, c)
					h.logger.Warn("dropping slow websocket client", zap.String("session_id", c.sessionID))
				}
			}
		}
	}
}

// Publish implements game.EffectSink.
func (h *Hub) Publish(ctx context.Context, sessionID string, effects []game.SideEffect) error {
	payload, err := newMessage(MsgEffects, sessionID, effects)
	if err != nil {
		return fmt.Errorf("encode effects: %w", err)
	}
	return h.send(ctx, sessionID, payload)
}

// PublishState pushes a state snapshot to the session's clients.
func (h *Hub) PublishState(ctx context.Context, sessionID string, st any) error {
	payload, err := newMessage(MsgState, sessionID, st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return h.send(ctx, sessionID, payload)
}

func (h *Hub) send(ctx context.Context, sessionID string, payload []byte) error {
	select {
	case h.broadcast <- outbound{sessionID: sessionID, payload: payload}:
		return nil
	case <-h.done:
		return fmt.Errorf("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeWS upgrades the request and attaches the connection to sessionID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	c := &client{
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(h)
}

func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.logger.Debug("bad websocket message", zap.String("session_id", c.sessionID), zap.Error(err))
			continue
		}

		h.mu.RLock()
		handler := h.handler
		h.mu.RUnlock()
		if handler == nil {
			continue
		}
		if reply := handler(context.Background(), c.sessionID, msg); reply != nil {
			select {
			case c.send <- reply:
			default:
			}
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}
