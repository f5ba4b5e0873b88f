package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/app"
)

// ConnectionConfig holds configuration for websocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  64 * 1024, // start_game may carry a full question list
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
}

// Hub owns every live websocket connection and implements app.Sink.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Connection

	upgrader websocket.Upgrader
	config   ConnectionConfig
}

// Connection is one websocket client. Writes go through Send and the write
// pump only; the socket is never written from two goroutines.
type Connection struct {
	ID          string
	PlayerID    string
	Credential  string
	ConnectedAt time.Time

	ws  *websocket.Conn
	hub *Hub

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func NewHub(config ConnectionConfig) *Hub {
	if config.SendBuffer <= 0 {
		config.SendBuffer = DefaultConnectionConfig().SendBuffer
	}
	return &Hub{
		conns: make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// Send queues evt for connID. A full buffer means the client cannot keep up;
// the connection is closed rather than stalling the session that sent it.
func (h *Hub) Send(connID string, evt app.Event) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	data, err := json.Marshal(outboundMessage{Type: evt.Type, Payload: evt.Payload})
	if err != nil {
		log.Error().Err(err).Str("event_type", evt.Type).Msg("marshal outbound event")
		return
	}
	if !c.enqueue(data) {
		log.Warn().
			Str("connection_id", c.ID).
			Str("event_type", evt.Type).
			Msg("connection send buffer full, closing connection")
		c.Close()
	}
}

// Count reports the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// upgrade switches the request to a websocket and registers it under id.
func (h *Hub) upgrade(w http.ResponseWriter, r *http.Request, id, playerID, credential string) (*Connection, error) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c := &Connection{
		ID:          id,
		PlayerID:    playerID,
		Credential:  credential,
		ConnectedAt: time.Now(),
		ws:          ws,
		hub:         h,
		send:        make(chan []byte, h.config.SendBuffer),
	}
	h.mu.Lock()
	h.conns[id] = c
	total := len(h.conns)
	h.mu.Unlock()

	log.Info().
		Str("connection_id", id).
		Str("player_id", playerID).
		Int("total_connections", total).
		Msg("websocket connection established")
	return c, nil
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c.ID] == c {
		delete(h.conns, c.ID)
	}
}

func (c *Connection) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close unregisters the connection and stops its pumps. Safe to call repeatedly.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	c.hub.unregister(c)
	_ = c.ws.Close()
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("write to websocket")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", c.ID).Msg("send ping")
				return
			}
		}
	}
}

// readPump delivers each inbound frame to handle until the socket fails.
func (c *Connection) readPump(handle func(raw []byte)) {
	c.ws.SetReadLimit(c.hub.config.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("connection_id", c.ID).Msg("unexpected websocket close")
			}
			return
		}
		handle(message)
		_ = c.ws.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	}
}
