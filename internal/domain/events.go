package domain

import (
	"bytes"
	"encoding/json"
)

// Event names on the wire.
const (
	// host -> core
	EventCreateRoom     = "create_room"
	EventStartGame      = "start_game"
	EventEndQuestion    = "end_question"
	EventNextQuestion   = "next_question"
	EventValidateAnswer = "validate_answer"

	// player -> core
	EventJoinRoom     = "join_room"
	EventSubmitAnswer = "submit_answer"
	EventLeaveRoom    = "leave_room"
	EventSyncState    = "sync_state"

	// core -> clients
	EventRoomCreated          = "room_created"
	EventRoomUpdate           = "room_update"
	EventGameStarted          = "game_started"
	EventQuestionStart        = "question_start"
	EventAnsweringStart       = "answering_start"
	EventTimerUpdate          = "timer_update"
	EventAnswerSubmitted      = "answer_submitted"
	EventPendingAnswersUpdate = "pending_answers_update"
	EventAnswerValidated      = "answer_validated"
	EventQuestionEnd          = "question_end"
	EventScoresUpdate         = "scores_update"
	EventGameEnded            = "game_ended"
	EventRoomNotFound         = "room_not_found"
	EventSessionState         = "session_state"
	EventCommandRejected      = "command_rejected"
	EventError                = "error"
)

// Envelope is the frame every message travels in.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// QuizRef accepts a quiz id sent either as a JSON string or a number.
type QuizRef string

func (r *QuizRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = QuizRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*r = QuizRef(n.String())
	return nil
}

type CreateRoomPayload struct {
	RoomCode string  `json:"roomCode"`
	QuizID   QuizRef `json:"quizId"`
}

type StartGamePayload struct {
	RoomCode  string     `json:"roomCode"`
	Questions []Question `json:"questions,omitempty"`
}

// QuestionIndexPayload is shared by end_question and next_question. A nil
// index skips the staleness check.
type QuestionIndexPayload struct {
	RoomCode      string `json:"roomCode"`
	QuestionIndex *int   `json:"questionIndex,omitempty"`
}

type ValidateAnswerPayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerID   string `json:"playerId"`
	QuestionID int64  `json:"questionId"`
	IsCorrect  bool   `json:"isCorrect"`
}

type JoinRoomPayload struct {
	Pseudo   string `json:"pseudo"`
	RoomCode string `json:"roomCode"`
}

type SubmitAnswerPayload struct {
	RoomCode     string   `json:"roomCode"`
	QuestionID   int64    `json:"questionId"`
	AnswerID     *int64   `json:"answerId,omitempty"`
	AnswerIDs    []int64  `json:"answerIds,omitempty"`
	AnswerText   *string  `json:"answerText,omitempty"`
	ResponseTime *float64 `json:"responseTime,omitempty"`
}

// Answer converts the wire shape into the scoring payload.
func (p SubmitAnswerPayload) Answer() AnswerPayload {
	return AnswerPayload{AnswerID: p.AnswerID, AnswerIDs: p.AnswerIDs, AnswerText: p.AnswerText}
}

type RoomPayload struct {
	RoomCode string `json:"roomCode"`
}

type RoomCreatedPayload struct {
	RoomCode       string `json:"roomCode"`
	QuizID         string `json:"quizId"`
	TotalQuestions int    `json:"totalQuestions"`
}

type GameStartedPayload struct {
	TotalQuestions int `json:"totalQuestions"`
}

type QuestionStartPayload struct {
	QuestionIndex  int      `json:"questionIndex"`
	Question       Question `json:"question"`
	TotalQuestions int      `json:"totalQuestions"`
	ReadingSeconds int      `json:"readingSeconds"`
}

type AnsweringStartPayload struct {
	QuestionIndex int   `json:"questionIndex"`
	QuestionID    int64 `json:"questionId"`
	TimeLimit     int   `json:"timeLimit"`
}

type TimerUpdatePayload struct {
	Phase            Phase `json:"phase"`
	QuestionIndex    int   `json:"questionIndex"`
	RemainingSeconds int   `json:"remainingSeconds"`
}

// AnswerSubmittedPayload acknowledges a submission to its sender only.
type AnswerSubmittedPayload struct {
	Success      bool   `json:"success"`
	QuestionID   int64  `json:"questionId"`
	IsCorrect    *bool  `json:"isCorrect,omitempty"`
	PointsEarned *int   `json:"pointsEarned,omitempty"`
	Pending      bool   `json:"pending,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type AnswerValidatedPayload struct {
	QuestionID   int64 `json:"questionId"`
	IsCorrect    bool  `json:"isCorrect"`
	PointsEarned int   `json:"pointsEarned"`
}

type QuestionEndPayload struct {
	QuestionIndex     int     `json:"questionIndex"`
	QuestionID        int64   `json:"questionId"`
	CorrectAnswerIDs  []int64 `json:"correctAnswerIds,omitempty"`
	CorrectAnswerText string  `json:"correctAnswerText,omitempty"`
	NextPhase         Phase   `json:"nextPhase"`
}

type GameEndedPayload struct {
	Reason string   `json:"reason,omitempty"`
	Scores []Player `json:"scores,omitempty"`
}

type RoomNotFoundPayload struct {
	RoomCode string `json:"roomCode,omitempty"`
}

type CommandRejectedPayload struct {
	Command string `json:"command"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Reasons carried by game_ended.
const (
	EndReasonCompleted = "completed"
	EndReasonHostLeft  = "host_left"
	EndReasonShutdown  = "shutdown"
)
