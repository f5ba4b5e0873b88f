package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Phase is the stage a session is currently in.
type Phase string

const (
	PhaseLobby      Phase = "LOBBY"
	PhaseReading    Phase = "READING"
	PhaseAnswering  Phase = "ANSWERING"
	PhaseReview     Phase = "REVIEW"
	PhaseScoreboard Phase = "SCOREBOARD"
	PhaseEnded      Phase = "ENDED"
)

// Timed reports whether the phase is driven by a countdown.
func (p Phase) Timed() bool {
	return p == PhaseReading || p == PhaseAnswering
}

const (
	// MaxPseudoLength bounds display names, counted in runes.
	MaxPseudoLength = 20
	// RoomCodeLength is the number of characters in a room code.
	RoomCodeLength = 6
)

// Player is a participant in one session. Score never decreases.
type Player struct {
	ID        string `json:"id"`
	Pseudo    string `json:"pseudo"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	JoinOrder int    `json:"-"`
}

// NormalizePseudo trims the display name and truncates it to MaxPseudoLength runes.
func NormalizePseudo(raw string) (string, error) {
	pseudo := strings.TrimSpace(raw)
	if pseudo == "" {
		return "", ErrInvalidPseudo
	}
	if utf8.RuneCountInString(pseudo) > MaxPseudoLength {
		pseudo = string([]rune(pseudo)[:MaxPseudoLength])
	}
	return pseudo, nil
}

// NormalizeRoomCode upper-cases and trims a human-typed code.
func NormalizeRoomCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidRoomCode reports whether code is RoomCodeLength characters of [A-Z0-9].
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for _, c := range code {
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// SubmissionState tracks a submission through scoring.
type SubmissionState string

const (
	SubmissionReceived      SubmissionState = "RECEIVED"
	SubmissionScored        SubmissionState = "SCORED"
	SubmissionPendingReview SubmissionState = "PENDING_REVIEW"
)

// AnswerPayload carries exactly one of the answer shapes a question type accepts.
type AnswerPayload struct {
	AnswerID   *int64
	AnswerIDs  []int64
	AnswerText *string
}

// Submission is one player's answer to one question.
type Submission struct {
	PlayerID        string
	QuestionID      int64
	Payload         AnswerPayload
	ResponseTime    float64
	State           SubmissionState
	IsCorrect       bool
	Points          int
	PotentialPoints int
	Seq             uint64
	ReceivedAt      time.Time
}

// PendingAnswer is a SHORT_ANSWER submission waiting for the host's verdict.
type PendingAnswer struct {
	PlayerID        string  `json:"playerId"`
	PlayerPseudo    string  `json:"playerPseudo"`
	QuestionID      int64   `json:"questionId"`
	AnswerText      string  `json:"answerText"`
	ResponseTime    float64 `json:"responseTime"`
	PotentialPoints int     `json:"potentialPoints"`
	Validated       bool    `json:"validated"`
}

// Snapshot is the full session view a client restores from after missing events.
type Snapshot struct {
	RoomCode         string                  `json:"roomCode"`
	QuizID           string                  `json:"quizId"`
	Phase            Phase                   `json:"phase"`
	QuestionIndex    int                     `json:"questionIndex"`
	TotalQuestions   int                     `json:"totalQuestions"`
	Question         *Question               `json:"question,omitempty"`
	RemainingSeconds int                     `json:"remainingSeconds"`
	Players          []Player                `json:"players"`
	You              *Player                 `json:"you,omitempty"`
	IsHost           bool                    `json:"isHost"`
	Answered         bool                    `json:"answered"`
	LastResult       *AnswerSubmittedPayload `json:"lastResult,omitempty"`
	PendingAnswers   []PendingAnswer         `json:"pendingAnswers,omitempty"`
}

// Stats summarizes the coordinator's live load.
type Stats struct {
	ActiveRooms       int `json:"activeRooms"`
	ActiveConnections int `json:"activeConnections"`
}
