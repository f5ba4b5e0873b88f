// Package client is a Go client for the quiz websocket protocol: a message
// channel with subscription handles, and pure view reducers for player and host
// screens.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/domain"
)

var ErrClosed = errors.New("connection closed")

// Handler receives the raw payload of one subscribed event.
type Handler func(payload json.RawMessage)

// Conn is a websocket channel carrying domain.Envelope frames. Handlers run on
// the read goroutine in arrival order.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string]map[uint64]Handler
	nextID   uint64

	done      chan struct{}
	closeOnce sync.Once
}

// Subscription is the handle returned by Subscribe. Release is idempotent.
type Subscription struct {
	conn  *Conn
	event string
	id    uint64
	once  sync.Once
}

// Dial connects to a quiz server websocket endpoint, e.g. ws://host/ws?playerId=p1.
// header may carry an Authorization bearer token for hosts.
func Dial(ctx context.Context, url string, header http.Header) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	c := &Conn{
		ws:       ws,
		handlers: make(map[string]map[uint64]Handler),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Emit sends one event.
func (c *Conn) Emit(eventType string, payload any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteJSON(domain.Envelope{Type: eventType, Payload: raw})
}

// Subscribe registers h for eventType until the returned handle is released.
func (c *Conn) Subscribe(eventType string, h Handler) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	if c.handlers[eventType] == nil {
		c.handlers[eventType] = make(map[uint64]Handler)
	}
	c.handlers[eventType][c.nextID] = h
	return &Subscription{conn: c, event: eventType, id: c.nextID}
}

func (s *Subscription) Release() {
	s.once.Do(func() {
		s.conn.mu.Lock()
		defer s.conn.mu.Unlock()
		delete(s.conn.handlers[s.event], s.id)
		if len(s.conn.handlers[s.event]) == 0 {
			delete(s.conn.handlers, s.event)
		}
	})
}

// Subscribers reports how many handlers are registered for eventType.
func (c *Conn) Subscribers(eventType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers[eventType])
}

// Done is closed once the connection stops reading.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		var env domain.Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("quiz connection closed")
			}
			return
		}
		for _, h := range c.snapshot(env.Type) {
			h(env.Payload)
		}
	}
}

func (c *Conn) snapshot(eventType string) []Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := c.handlers[eventType]
	out := make([]Handler, 0, len(ids))
	for _, h := range ids {
		out = append(out, h)
	}
	return out
}
