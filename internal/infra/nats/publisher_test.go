package nats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

func TestSubject(t *testing.T) {
	require.Equal(t, "quiz.events.ABC123.game_started", Subject("quiz.events", "ABC123", domain.EventGameStarted))
}

func TestEncodeEnvelope(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := encode("ABC123", app.Event{
		Type:    domain.EventGameStarted,
		Payload: domain.GameStartedPayload{TotalQuestions: 3},
	}, at)
	require.NoError(t, err)

	var env struct {
		EventID   string          `json:"eventId"`
		EventType string          `json:"eventType"`
		RoomCode  string          `json:"roomCode"`
		Timestamp time.Time       `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	_, err = uuid.Parse(env.EventID)
	require.NoError(t, err)
	require.Equal(t, domain.EventGameStarted, env.EventType)
	require.Equal(t, "ABC123", env.RoomCode)
	require.True(t, at.Equal(env.Timestamp))
	require.JSONEq(t, `{"totalQuestions":3}`, string(env.Payload))
}
