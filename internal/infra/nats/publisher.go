package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/app"
)

type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:           natsgo.DefaultURL,
		SubjectPrefix: "quiz.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// Envelope is the message body published for every session event.
type Envelope struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	RoomCode  string    `json:"roomCode"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Publisher fans session lifecycle events out to NATS subjects of the form
// <prefix>.<roomCode>.<eventType>. It implements app.Publisher.
type Publisher struct {
	nc     *natsgo.Conn
	prefix string
}

func Connect(cfg Config) (*Publisher, error) {
	opts := []natsgo.Option{
		natsgo.Name("live-quiz-service"),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		natsgo.ErrorHandler(func(nc *natsgo.Conn, sub *natsgo.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := natsgo.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = DefaultConfig().SubjectPrefix
	}
	return &Publisher{nc: nc, prefix: prefix}, nil
}

// Publish does not wait for the server; the client buffers while reconnecting.
func (p *Publisher) Publish(_ context.Context, roomCode string, evt app.Event) error {
	data, err := encode(roomCode, evt, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := p.nc.Publish(Subject(p.prefix, roomCode, evt.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

// Subject builds the NATS subject for an event. Room codes are [A-Z0-9] so
// they never contain subject separators.
func Subject(prefix, roomCode, eventType string) string {
	return strings.Join([]string{prefix, roomCode, eventType}, ".")
}

func encode(roomCode string, evt app.Event, at time.Time) ([]byte, error) {
	data, err := json.Marshal(Envelope{
		EventID:   uuid.NewString(),
		EventType: evt.Type,
		RoomCode:  roomCode,
		Timestamp: at,
		Payload:   evt.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}
