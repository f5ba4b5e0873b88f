package app

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Event is one outbound message addressed to a connection.
type Event struct {
	Type    string
	Payload any
}

// Sink delivers events to connections by id. Send must never block the caller;
// a slow or gone connection drops the event.
type Sink interface {
	Send(connID string, evt Event)
}

// Publisher receives session lifecycle events for consumers outside this process.
type Publisher interface {
	Publish(ctx context.Context, roomCode string, evt Event) error
}

// LogPublisher writes lifecycle events to the debug log.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, roomCode string, evt Event) error {
	log.Debug().Str("room_code", roomCode).Str("event_type", evt.Type).Msg("session event")
	return nil
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(connID string, evt Event)

func (f SinkFunc) Send(connID string, evt Event) { f(connID, evt) }
