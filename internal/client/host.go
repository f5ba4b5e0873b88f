package client

import (
	"encoding/json"
	"sync"

	"live-quiz-service/internal/domain"
)

// Host drives a room over a Conn and keeps its HostView current.
type Host struct {
	conn *Conn

	mu       sync.Mutex
	view     HostView
	subs     []*Subscription
	onChange func(HostView)
}

func NewHost(conn *Conn) *Host {
	h := &Host{conn: conn, view: NewHostView()}
	for _, evt := range HostEvents {
		evt := evt
		h.subs = append(h.subs, conn.Subscribe(evt, func(raw json.RawMessage) {
			h.update(func(v HostView) HostView { return v.Apply(evt, raw) })
		}))
	}
	return h
}

func (h *Host) OnChange(fn func(HostView)) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

func (h *Host) View() HostView {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.view
}

// CreateRoom asks for a room for quizID. roomCode may be empty.
func (h *Host) CreateRoom(quizID, roomCode string) error {
	return h.conn.Emit(domain.EventCreateRoom, domain.CreateRoomPayload{RoomCode: roomCode, QuizID: domain.QuizRef(quizID)})
}

// StartGame starts the room. questions is only used when the room has none.
func (h *Host) StartGame(questions []domain.Question) error {
	return h.conn.Emit(domain.EventStartGame, domain.StartGamePayload{RoomCode: h.View().RoomCode, Questions: questions})
}

// EndQuestion closes the question currently shown.
func (h *Host) EndQuestion() error {
	v := h.View()
	idx := v.QuestionIndex
	return h.conn.Emit(domain.EventEndQuestion, domain.QuestionIndexPayload{RoomCode: v.RoomCode, QuestionIndex: &idx})
}

// NextQuestion advances past the question currently shown. The index lets the
// server drop duplicated clicks.
func (h *Host) NextQuestion() error {
	v := h.View()
	idx := v.QuestionIndex + 1
	return h.conn.Emit(domain.EventNextQuestion, domain.QuestionIndexPayload{RoomCode: v.RoomCode, QuestionIndex: &idx})
}

func (h *Host) Validate(playerID string, questionID int64, correct bool) error {
	return h.conn.Emit(domain.EventValidateAnswer, domain.ValidateAnswerPayload{
		RoomCode:   h.View().RoomCode,
		PlayerID:   playerID,
		QuestionID: questionID,
		IsCorrect:  correct,
	})
}

func (h *Host) Sync() error {
	return h.conn.Emit(domain.EventSyncState, domain.RoomPayload{RoomCode: h.View().RoomCode})
}

// Close releases every subscription the host holds. The Conn stays open.
func (h *Host) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = nil
	h.mu.Unlock()
	for _, s := range subs {
		s.Release()
	}
}

func (h *Host) update(fn func(HostView) HostView) {
	h.mu.Lock()
	h.view = fn(h.view)
	view, cb := h.view, h.onChange
	h.mu.Unlock()
	if cb != nil {
		cb(view)
	}
}
