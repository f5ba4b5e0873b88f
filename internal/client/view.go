package client

import (
	"encoding/json"

	"live-quiz-service/internal/domain"
)

// PlayerView is what a player screen renders. Apply never mutates the
// receiver; it returns the next view. Phase only moves on server events.
type PlayerView struct {
	PlayerID         string
	RoomCode         string
	Phase            domain.Phase
	QuestionIndex    int
	TotalQuestions   int
	Question         *domain.Question
	RemainingSeconds int
	Players          []domain.Player
	Me               *domain.Player
	Answered         bool
	LastResult       *domain.AnswerSubmittedPayload
	Validated        *domain.AnswerValidatedPayload
	LastEnd          *domain.QuestionEndPayload
	Ended            *domain.GameEndedPayload
	RoomMissing      bool
	Error            string
}

func NewPlayerView(playerID string) PlayerView {
	return PlayerView{PlayerID: playerID, QuestionIndex: -1}
}

// MarkAnswered flags the current question as answered before the server acks.
func (v PlayerView) MarkAnswered(questionID int64) PlayerView {
	if v.Question == nil || v.Question.ID != questionID || v.Phase != domain.PhaseAnswering {
		return v
	}
	v.Answered = true
	return v
}

// Restore replaces the view with a server snapshot.
func (v PlayerView) Restore(snap domain.Snapshot) PlayerView {
	next := NewPlayerView(v.PlayerID)
	next.RoomCode = snap.RoomCode
	next.Phase = snap.Phase
	next.QuestionIndex = snap.QuestionIndex
	next.TotalQuestions = snap.TotalQuestions
	next.Question = snap.Question
	next.RemainingSeconds = snap.RemainingSeconds
	next.Players = snap.Players
	next.Answered = snap.Answered
	next.LastResult = snap.LastResult
	if snap.You != nil {
		you := *snap.You
		next.Me = &you
		next.PlayerID = you.ID
	}
	return next
}

func (v PlayerView) Apply(eventType string, raw json.RawMessage) PlayerView {
	switch eventType {
	case domain.EventSessionState:
		var snap domain.Snapshot
		if decode(raw, &snap) {
			return v.Restore(snap)
		}
	case domain.EventRoomUpdate:
		var players []domain.Player
		if decode(raw, &players) {
			v = v.withPlayers(players)
		}
	case domain.EventGameStarted:
		var p domain.GameStartedPayload
		if decode(raw, &p) {
			v.TotalQuestions = p.TotalQuestions
		}
	case domain.EventQuestionStart:
		var p domain.QuestionStartPayload
		if decode(raw, &p) && p.QuestionIndex > v.QuestionIndex {
			q := p.Question
			v.QuestionIndex = p.QuestionIndex
			v.Question = &q
			v.TotalQuestions = p.TotalQuestions
			v.Phase = domain.PhaseReading
			v.RemainingSeconds = p.ReadingSeconds
			v.Answered = false
			v.LastResult = nil
			v.Validated = nil
			v.LastEnd = nil
		}
	case domain.EventAnsweringStart:
		var p domain.AnsweringStartPayload
		if decode(raw, &p) && p.QuestionIndex == v.QuestionIndex {
			v.Phase = domain.PhaseAnswering
			v.RemainingSeconds = p.TimeLimit
		}
	case domain.EventTimerUpdate:
		var p domain.TimerUpdatePayload
		if decode(raw, &p) && p.QuestionIndex == v.QuestionIndex && p.Phase == v.Phase {
			v.RemainingSeconds = p.RemainingSeconds
		}
	case domain.EventAnswerSubmitted:
		var p domain.AnswerSubmittedPayload
		if decode(raw, &p) && v.Question != nil && p.QuestionID == v.Question.ID {
			ack := p
			v.LastResult = &ack
			v.Answered = p.Success
		}
	case domain.EventAnswerValidated:
		var p domain.AnswerValidatedPayload
		if decode(raw, &p) {
			v.Validated = &p
		}
	case domain.EventQuestionEnd:
		var p domain.QuestionEndPayload
		if decode(raw, &p) && p.QuestionIndex == v.QuestionIndex {
			v.Phase = p.NextPhase
			v.RemainingSeconds = 0
			v.LastEnd = &p
		}
	case domain.EventScoresUpdate:
		var players []domain.Player
		if decode(raw, &players) {
			v = v.withPlayers(players)
			v.Phase = domain.PhaseScoreboard
		}
	case domain.EventGameEnded:
		var p domain.GameEndedPayload
		if decode(raw, &p) {
			v.Phase = domain.PhaseEnded
			v.Ended = &p
			if len(p.Scores) > 0 {
				v = v.withPlayers(p.Scores)
			}
		}
	case domain.EventRoomNotFound:
		v.RoomMissing = true
	case domain.EventError:
		var p domain.ErrorPayload
		if decode(raw, &p) {
			v.Error = p.Message
		}
	}
	return v
}

func (v PlayerView) withPlayers(players []domain.Player) PlayerView {
	v.Players = players
	v.Me = nil
	for i := range players {
		if players[i].ID == v.PlayerID {
			me := players[i]
			v.Me = &me
		}
	}
	return v
}

// HostView is what the host screen renders.
type HostView struct {
	RoomCode         string
	QuizID           string
	Phase            domain.Phase
	QuestionIndex    int
	TotalQuestions   int
	Question         *domain.Question
	RemainingSeconds int
	Players          []domain.Player
	Pending          []domain.PendingAnswer
	LastEnd          *domain.QuestionEndPayload
	Ended            *domain.GameEndedPayload
	Rejected         *domain.CommandRejectedPayload
}

func NewHostView() HostView {
	return HostView{QuestionIndex: -1}
}

func (v HostView) Restore(snap domain.Snapshot) HostView {
	next := NewHostView()
	next.RoomCode = snap.RoomCode
	next.QuizID = snap.QuizID
	next.Phase = snap.Phase
	next.QuestionIndex = snap.QuestionIndex
	next.TotalQuestions = snap.TotalQuestions
	next.Question = snap.Question
	next.RemainingSeconds = snap.RemainingSeconds
	next.Players = snap.Players
	next.Pending = snap.PendingAnswers
	return next
}

func (v HostView) Apply(eventType string, raw json.RawMessage) HostView {
	switch eventType {
	case domain.EventSessionState:
		var snap domain.Snapshot
		if decode(raw, &snap) {
			return v.Restore(snap)
		}
	case domain.EventRoomCreated:
		var p domain.RoomCreatedPayload
		if decode(raw, &p) {
			v.RoomCode = p.RoomCode
			v.QuizID = p.QuizID
			v.TotalQuestions = p.TotalQuestions
			v.Phase = domain.PhaseLobby
		}
	case domain.EventRoomUpdate:
		var players []domain.Player
		if decode(raw, &players) {
			v.Players = players
		}
	case domain.EventGameStarted:
		var p domain.GameStartedPayload
		if decode(raw, &p) {
			v.TotalQuestions = p.TotalQuestions
		}
	case domain.EventQuestionStart:
		var p domain.QuestionStartPayload
		if decode(raw, &p) && p.QuestionIndex > v.QuestionIndex {
			q := p.Question
			v.QuestionIndex = p.QuestionIndex
			v.Question = &q
			v.TotalQuestions = p.TotalQuestions
			v.Phase = domain.PhaseReading
			v.RemainingSeconds = p.ReadingSeconds
			v.LastEnd = nil
		}
	case domain.EventAnsweringStart:
		var p domain.AnsweringStartPayload
		if decode(raw, &p) && p.QuestionIndex == v.QuestionIndex {
			v.Phase = domain.PhaseAnswering
			v.RemainingSeconds = p.TimeLimit
		}
	case domain.EventTimerUpdate:
		var p domain.TimerUpdatePayload
		if decode(raw, &p) && p.QuestionIndex == v.QuestionIndex && p.Phase == v.Phase {
			v.RemainingSeconds = p.RemainingSeconds
		}
	case domain.EventPendingAnswersUpdate:
		var pending []domain.PendingAnswer
		if decode(raw, &pending) {
			v.Pending = pending
		}
	case domain.EventQuestionEnd:
		var p domain.QuestionEndPayload
		if decode(raw, &p) && p.QuestionIndex == v.QuestionIndex {
			v.Phase = p.NextPhase
			v.RemainingSeconds = 0
			v.LastEnd = &p
		}
	case domain.EventScoresUpdate:
		var players []domain.Player
		if decode(raw, &players) {
			v.Players = players
			v.Phase = domain.PhaseScoreboard
		}
	case domain.EventGameEnded:
		var p domain.GameEndedPayload
		if decode(raw, &p) {
			v.Phase = domain.PhaseEnded
			v.Ended = &p
			if len(p.Scores) > 0 {
				v.Players = p.Scores
			}
		}
	case domain.EventCommandRejected:
		var p domain.CommandRejectedPayload
		if decode(raw, &p) {
			v.Rejected = &p
		}
	}
	return v
}

// HostEvents lists every event HostView reacts to.
var HostEvents = []string{
	domain.EventSessionState, domain.EventRoomCreated, domain.EventRoomUpdate, domain.EventGameStarted,
	domain.EventQuestionStart, domain.EventAnsweringStart, domain.EventTimerUpdate,
	domain.EventPendingAnswersUpdate, domain.EventQuestionEnd, domain.EventScoresUpdate,
	domain.EventGameEnded, domain.EventCommandRejected,
}

// PlayerEvents lists every event PlayerView reacts to.
var PlayerEvents = []string{
	domain.EventSessionState, domain.EventRoomUpdate, domain.EventGameStarted, domain.EventQuestionStart,
	domain.EventAnsweringStart, domain.EventTimerUpdate, domain.EventAnswerSubmitted,
	domain.EventAnswerValidated, domain.EventQuestionEnd, domain.EventScoresUpdate,
	domain.EventGameEnded, domain.EventRoomNotFound, domain.EventError,
}

func decode(raw json.RawMessage, into any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, into) == nil
}
