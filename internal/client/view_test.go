package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"live-quiz-service/internal/domain"
)

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func questionStart(t *testing.T, idx int, id int64) json.RawMessage {
	return raw(t, domain.QuestionStartPayload{
		QuestionIndex:  idx,
		Question:       domain.Question{ID: id, Type: domain.MultipleChoice, TimeLimit: 20},
		TotalQuestions: 3,
		ReadingSeconds: 5,
	})
}

func answering(t *testing.T, v PlayerView, idx int, id int64) PlayerView {
	v = v.Apply(domain.EventQuestionStart, questionStart(t, idx, id))
	return v.Apply(domain.EventAnsweringStart, raw(t, domain.AnsweringStartPayload{QuestionIndex: idx, QuestionID: id, TimeLimit: 20}))
}

func TestPlayerViewIgnoresStaleQuestion(t *testing.T) {
	v := NewPlayerView("p1")
	v = v.Apply(domain.EventQuestionStart, questionStart(t, 1, 11))
	require.Equal(t, 1, v.QuestionIndex)
	require.Equal(t, domain.PhaseReading, v.Phase)

	v = v.Apply(domain.EventQuestionStart, questionStart(t, 0, 10))
	require.Equal(t, 1, v.QuestionIndex)
	require.Equal(t, int64(11), v.Question.ID)

	v = v.Apply(domain.EventAnsweringStart, raw(t, domain.AnsweringStartPayload{QuestionIndex: 0, QuestionID: 10}))
	require.Equal(t, domain.PhaseReading, v.Phase)

	v = v.Apply(domain.EventQuestionEnd, raw(t, domain.QuestionEndPayload{QuestionIndex: 0, NextPhase: domain.PhaseScoreboard}))
	require.Equal(t, domain.PhaseReading, v.Phase)
}

func TestPlayerViewOptimisticAnswerRollsBackOnTooLate(t *testing.T) {
	v := answering(t, NewPlayerView("p1"), 0, 10)

	v = v.MarkAnswered(10)
	require.True(t, v.Answered)

	v = v.Apply(domain.EventAnswerSubmitted, raw(t, domain.AnswerSubmittedPayload{Success: false, QuestionID: 10, Reason: "TooLate"}))
	require.False(t, v.Answered)
	require.Equal(t, "TooLate", v.LastResult.Reason)
}

func TestPlayerViewKeepsAnsweredOnAck(t *testing.T) {
	v := answering(t, NewPlayerView("p1"), 0, 10).MarkAnswered(10)
	points, correct := 900, true
	v = v.Apply(domain.EventAnswerSubmitted, raw(t, domain.AnswerSubmittedPayload{Success: true, QuestionID: 10, IsCorrect: &correct, PointsEarned: &points}))
	require.True(t, v.Answered)
	require.Equal(t, 900, *v.LastResult.PointsEarned)

	// An ack for another question does not touch the current one.
	other := v.Apply(domain.EventAnswerSubmitted, raw(t, domain.AnswerSubmittedPayload{Success: false, QuestionID: 99}))
	require.Equal(t, v, other)
}

func TestPlayerViewMarkAnsweredOnlyWhileAnswering(t *testing.T) {
	v := NewPlayerView("p1").Apply(domain.EventQuestionStart, questionStart(t, 0, 10))
	require.False(t, v.MarkAnswered(10).Answered)
}

func TestPlayerViewTimerNeverChangesPhase(t *testing.T) {
	v := answering(t, NewPlayerView("p1"), 0, 10)
	v = v.Apply(domain.EventTimerUpdate, raw(t, domain.TimerUpdatePayload{Phase: domain.PhaseAnswering, QuestionIndex: 0, RemainingSeconds: 0}))
	require.Equal(t, domain.PhaseAnswering, v.Phase)
	require.Zero(t, v.RemainingSeconds)

	// A late tick from the reading countdown is ignored.
	v = v.Apply(domain.EventTimerUpdate, raw(t, domain.TimerUpdatePayload{Phase: domain.PhaseReading, QuestionIndex: 0, RemainingSeconds: 3}))
	require.Zero(t, v.RemainingSeconds)

	v = v.Apply(domain.EventQuestionEnd, raw(t, domain.QuestionEndPayload{QuestionIndex: 0, NextPhase: domain.PhaseReview}))
	require.Equal(t, domain.PhaseReview, v.Phase)
}

func TestPlayerViewRestoreFromSnapshot(t *testing.T) {
	v := answering(t, NewPlayerView("conn-2"), 2, 12)
	q := domain.Question{ID: 10}
	snap := domain.Snapshot{
		RoomCode:      "ABC123",
		Phase:         domain.PhaseScoreboard,
		QuestionIndex: 0,
		Question:      &q,
		Players:       []domain.Player{{ID: "p1", Pseudo: "Alice", Score: 1000}},
		You:           &domain.Player{ID: "p1", Pseudo: "Alice", Score: 1000},
		Answered:      true,
	}
	v = v.Apply(domain.EventSessionState, raw(t, snap))
	require.Equal(t, domain.PhaseScoreboard, v.Phase)
	require.Equal(t, 0, v.QuestionIndex)
	require.Equal(t, "p1", v.PlayerID)
	require.Equal(t, 1000, v.Me.Score)
	require.True(t, v.Answered)
}

func TestPlayerViewScoresAndEnd(t *testing.T) {
	v := NewPlayerView("b")
	v = v.Apply(domain.EventScoresUpdate, raw(t, []domain.Player{{ID: "a", Score: 900}, {ID: "b", Score: 0}}))
	require.Equal(t, domain.PhaseScoreboard, v.Phase)
	require.Equal(t, "b", v.Me.ID)

	v = v.Apply(domain.EventGameEnded, raw(t, domain.GameEndedPayload{Reason: domain.EndReasonHostLeft}))
	require.Equal(t, domain.PhaseEnded, v.Phase)
	require.Equal(t, domain.EndReasonHostLeft, v.Ended.Reason)
	require.Len(t, v.Players, 2)

	v = v.Apply(domain.EventRoomNotFound, raw(t, domain.RoomNotFoundPayload{RoomCode: "ABC123"}))
	require.True(t, v.RoomMissing)
}

func TestPlayerViewIgnoresMalformedPayload(t *testing.T) {
	v := answering(t, NewPlayerView("p1"), 0, 10)
	require.Equal(t, v, v.Apply(domain.EventScoresUpdate, json.RawMessage(`{"oops":`)))
	require.Equal(t, v, v.Apply("something_new", raw(t, map[string]int{"x": 1})))
}

func TestHostViewFlow(t *testing.T) {
	v := NewHostView()
	v = v.Apply(domain.EventRoomCreated, raw(t, domain.RoomCreatedPayload{RoomCode: "ABC123", QuizID: "quiz-1", TotalQuestions: 2}))
	require.Equal(t, "ABC123", v.RoomCode)
	require.Equal(t, domain.PhaseLobby, v.Phase)

	v = v.Apply(domain.EventQuestionStart, questionStart(t, 0, 10))
	v = v.Apply(domain.EventAnsweringStart, raw(t, domain.AnsweringStartPayload{QuestionIndex: 0, QuestionID: 10, TimeLimit: 20}))
	v = v.Apply(domain.EventPendingAnswersUpdate, raw(t, []domain.PendingAnswer{{PlayerID: "p1", AnswerText: "Paris"}}))
	require.Len(t, v.Pending, 1)

	v = v.Apply(domain.EventQuestionEnd, raw(t, domain.QuestionEndPayload{QuestionIndex: 0, NextPhase: domain.PhaseReview}))
	require.Equal(t, domain.PhaseReview, v.Phase)

	v = v.Apply(domain.EventCommandRejected, raw(t, domain.CommandRejectedPayload{Command: "next_question", Code: "InvalidTransition"}))
	require.Equal(t, "InvalidTransition", v.Rejected.Code)
	require.Equal(t, domain.PhaseReview, v.Phase)

	v = v.Apply(domain.EventScoresUpdate, raw(t, []domain.Player{{ID: "p1", Score: 800}}))
	require.Equal(t, domain.PhaseScoreboard, v.Phase)

	// The review list is owned by the server; a new question leaves it alone.
	v = v.Apply(domain.EventQuestionStart, questionStart(t, 1, 11))
	require.Len(t, v.Pending, 1)
	require.Equal(t, 1, v.QuestionIndex)
}

func TestPlayerViewIgnoresRepeatedQuestionStart(t *testing.T) {
	v := answering(t, NewPlayerView("p1"), 0, 10).MarkAnswered(10)
	points, correct := 900, true
	v = v.Apply(domain.EventAnswerSubmitted, raw(t, domain.AnswerSubmittedPayload{Success: true, QuestionID: 10, IsCorrect: &correct, PointsEarned: &points}))

	again := v.Apply(domain.EventQuestionStart, questionStart(t, 0, 10))
	require.Equal(t, v, again)
	require.Equal(t, domain.PhaseAnswering, again.Phase)
	require.True(t, again.Answered)
	require.Equal(t, 900, *again.LastResult.PointsEarned)
}

func TestHostViewIgnoresRepeatedQuestionStart(t *testing.T) {
	v := NewHostView().Apply(domain.EventQuestionStart, questionStart(t, 0, 10))
	v = v.Apply(domain.EventAnsweringStart, raw(t, domain.AnsweringStartPayload{QuestionIndex: 0, QuestionID: 10, TimeLimit: 20}))
	v = v.Apply(domain.EventPendingAnswersUpdate, raw(t, []domain.PendingAnswer{{PlayerID: "p1", AnswerText: "Paris"}}))

	again := v.Apply(domain.EventQuestionStart, questionStart(t, 0, 10))
	require.Equal(t, domain.PhaseAnswering, again.Phase)
	require.Len(t, again.Pending, 1)
}
