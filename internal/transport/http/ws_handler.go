package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const commandTimeout = 5 * time.Second

type WSHandler struct {
	service *app.QuizService
	hub     *Hub
}

func NewWSHandler(service *app.QuizService, hub *Hub) *WSHandler {
	return &WSHandler{service: service, hub: hub}
}

// ServeWS upgrades the request and feeds every inbound frame to the quiz service.
// playerId is optional and lets a reconnecting player resume its seat.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	connID := uuid.NewString()
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		playerID = connID
	}

	c, err := h.hub.upgrade(w, r, connID, playerID, credential(r))
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	go c.writePump()

	c.readPump(func(raw []byte) {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		h.dispatch(ctx, c, raw)
	})

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	h.service.Disconnect(ctx, c.ID)
	c.Close()
	log.Info().Str("connection_id", c.ID).Str("player_id", c.PlayerID).Msg("websocket connection closed")
}

func credential(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

func (h *WSHandler) dispatch(ctx context.Context, c *Connection, raw []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.reply(c, domain.EventError, domain.ErrorPayload{Code: "InvalidMessage", Message: "message must be a JSON envelope"})
		return
	}
	if len(env.Payload) == 0 {
		env.Payload = json.RawMessage("{}")
	}

	switch env.Type {
	case domain.EventCreateRoom:
		var p domain.CreateRoomPayload
		if h.decode(c, env, &p) {
			_, err := h.service.CreateRoom(ctx, c.ID, c.Credential, p.RoomCode, string(p.QuizID))
			h.rejectHost(c, env.Type, err)
		}
	case domain.EventStartGame:
		var p domain.StartGamePayload
		if h.decode(c, env, &p) {
			h.rejectHost(c, env.Type, h.service.StartGame(ctx, c.ID, p.RoomCode, p.Questions))
		}
	case domain.EventEndQuestion:
		var p domain.QuestionIndexPayload
		if h.decode(c, env, &p) {
			h.rejectHost(c, env.Type, h.service.EndQuestion(ctx, c.ID, p.RoomCode, p.QuestionIndex))
		}
	case domain.EventNextQuestion:
		var p domain.QuestionIndexPayload
		if h.decode(c, env, &p) {
			h.rejectHost(c, env.Type, h.service.NextQuestion(ctx, c.ID, p.RoomCode, p.QuestionIndex))
		}
	case domain.EventValidateAnswer:
		var p domain.ValidateAnswerPayload
		if h.decode(c, env, &p) {
			h.rejectHost(c, env.Type, h.service.ValidateAnswer(ctx, c.ID, p))
		}
	case domain.EventJoinRoom:
		var p domain.JoinRoomPayload
		if h.decode(c, env, &p) {
			h.rejectPlayer(c, p.RoomCode, h.service.JoinRoom(ctx, c.ID, c.PlayerID, p.Pseudo, p.RoomCode))
		}
	case domain.EventSubmitAnswer:
		var p domain.SubmitAnswerPayload
		if !h.decode(c, env, &p) {
			return
		}
		_, err := h.service.SubmitAnswer(ctx, c.ID, p)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrRoomNotFound):
			h.reply(c, domain.EventRoomNotFound, domain.RoomNotFoundPayload{RoomCode: p.RoomCode})
		default:
			h.reply(c, domain.EventAnswerSubmitted, domain.AnswerSubmittedPayload{
				Success:    false,
				QuestionID: p.QuestionID,
				Reason:     domain.Code(err),
			})
		}
	case domain.EventLeaveRoom:
		var p domain.RoomPayload
		if h.decode(c, env, &p) {
			h.rejectPlayer(c, p.RoomCode, h.service.LeaveRoom(ctx, c.ID, p.RoomCode))
		}
	case domain.EventSyncState:
		var p domain.RoomPayload
		if h.decode(c, env, &p) {
			h.rejectPlayer(c, p.RoomCode, h.service.Sync(ctx, c.ID, p.RoomCode))
		}
	default:
		h.reply(c, domain.EventError, domain.ErrorPayload{Code: "UnknownEvent", Message: "unsupported message type " + env.Type})
	}
}

func (h *WSHandler) decode(c *Connection, env domain.Envelope, into any) bool {
	if err := json.Unmarshal(env.Payload, into); err != nil {
		h.reply(c, domain.EventError, domain.ErrorPayload{Code: "InvalidPayload", Message: "invalid " + env.Type + " payload"})
		return false
	}
	return true
}

func (h *WSHandler) rejectHost(c *Connection, command string, err error) {
	if err == nil {
		return
	}
	log.Info().Err(err).Str("connection_id", c.ID).Str("command", command).Msg("command rejected")
	h.reply(c, domain.EventCommandRejected, domain.CommandRejectedPayload{
		Command: command,
		Code:    domain.Code(err),
		Message: err.Error(),
	})
}

func (h *WSHandler) rejectPlayer(c *Connection, roomCode string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRoomNotFound):
		h.reply(c, domain.EventRoomNotFound, domain.RoomNotFoundPayload{RoomCode: roomCode})
	default:
		h.reply(c, domain.EventError, domain.ErrorPayload{Code: domain.Code(err), Message: err.Error()})
	}
}

func (h *WSHandler) reply(c *Connection, eventType string, payload any) {
	h.hub.Send(c.ID, app.Event{Type: eventType, Payload: payload})
}
