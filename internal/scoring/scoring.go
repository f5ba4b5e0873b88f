// Package scoring decides correctness and speed-decayed points for a single
// submission. It holds no state.
package scoring

import (
	"fmt"
	"math"

	"live-quiz-service/internal/domain"
)

// Outcome is the result of evaluating one submission.
type Outcome struct {
	State     domain.SubmissionState
	IsCorrect bool
	Points    int
	// PotentialPoints is what a correct verdict is worth at this response time.
	PotentialPoints int
}

// Evaluate scores payload against q. SHORT_ANSWER is never auto-scored and
// comes back PENDING_REVIEW with its potential points precomputed.
func Evaluate(q domain.Question, payload domain.AnswerPayload, responseTime float64) (Outcome, error) {
	potential := Points(q, responseTime)

	var correct bool
	switch q.Type {
	case domain.TrueFalse, domain.MultipleChoice:
		if payload.AnswerID == nil {
			return Outcome{}, fmt.Errorf("%s expects answerId: %w", q.Type, domain.ErrInvalidAnswer)
		}
		answer, ok := q.FindAnswer(*payload.AnswerID)
		if !ok {
			return Outcome{}, fmt.Errorf("answer %d: %w", *payload.AnswerID, domain.ErrOptionNotFound)
		}
		correct = answer.IsCorrect
	case domain.MultipleSelect:
		if payload.AnswerIDs == nil {
			return Outcome{}, fmt.Errorf("%s expects answerIds: %w", q.Type, domain.ErrInvalidAnswer)
		}
		var err error
		correct, err = exactSet(q, payload.AnswerIDs)
		if err != nil {
			return Outcome{}, err
		}
	case domain.ShortAnswer:
		if payload.AnswerText == nil {
			return Outcome{}, fmt.Errorf("%s expects answerText: %w", q.Type, domain.ErrInvalidAnswer)
		}
		return Outcome{State: domain.SubmissionPendingReview, PotentialPoints: potential}, nil
	default:
		return Outcome{}, fmt.Errorf("type %q: %w", q.Type, domain.ErrInvalidQuestion)
	}

	out := Outcome{State: domain.SubmissionScored, IsCorrect: correct, PotentialPoints: potential}
	if correct {
		out.Points = potential
	}
	return out, nil
}

// Points is round(points * max(0, 1 - rt/limit)). Negative response times
// count as zero; anything at or past the limit earns nothing.
func Points(q domain.Question, responseTime float64) int {
	limit := float64(q.TimeLimit)
	if limit <= 0 {
		limit = domain.DefaultTimeLimit
	}
	if responseTime < 0 {
		responseTime = 0
	}
	if responseTime >= limit {
		return 0
	}
	factor := math.Max(0, 1-responseTime/limit)
	return int(math.Round(float64(q.Points) * factor))
}

func exactSet(q domain.Question, ids []int64) (bool, error) {
	submitted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := q.FindAnswer(id); !ok {
			return false, fmt.Errorf("answer %d: %w", id, domain.ErrOptionNotFound)
		}
		submitted[id] = struct{}{}
	}
	correct := q.CorrectIDs()
	if len(submitted) != len(correct) {
		return false, nil
	}
	for _, id := range correct {
		if _, ok := submitted[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}
