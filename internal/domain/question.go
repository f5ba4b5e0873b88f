package domain

import (
	"fmt"
	"sort"
)

// QuestionType selects how a question is answered and scored.
type QuestionType string

const (
	TrueFalse      QuestionType = "TRUE_FALSE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	MultipleSelect QuestionType = "MULTIPLE_SELECT"
	ShortAnswer    QuestionType = "SHORT_ANSWER"
)

const (
	DefaultTimeLimit = 30
	DefaultPoints    = 1000

	trueAnswerID  int64 = 1
	falseAnswerID int64 = 2
)

// Answer is one option of a choice-type question.
type Answer struct {
	ID        int64  `json:"id"`
	Text      string `json:"answerText"`
	IsCorrect bool   `json:"isCorrect,omitempty"`
}

// Question is immutable once a session has loaded it.
type Question struct {
	ID                int64        `json:"id"`
	Order             int          `json:"order"`
	Type              QuestionType `json:"type"`
	Text              string       `json:"questionText"`
	TimeLimit         int          `json:"timeLimit"`
	Points            int          `json:"points"`
	Answers           []Answer     `json:"answers"`
	CorrectAnswerText string       `json:"correctAnswerText,omitempty"`
	TrueFalseAnswer   *bool        `json:"trueFalseAnswer,omitempty"`
}

// Quiz is the authoring store's unit: an ordered question list.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Public strips everything that would reveal the correct answer.
func (q Question) Public() Question {
	out := q
	out.CorrectAnswerText = ""
	out.TrueFalseAnswer = nil
	out.Answers = make([]Answer, len(q.Answers))
	for i, a := range q.Answers {
		out.Answers[i] = Answer{ID: a.ID, Text: a.Text}
	}
	return out
}

// CorrectIDs lists the ids of answers flagged correct, in question order.
func (q Question) CorrectIDs() []int64 {
	var ids []int64
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// FindAnswer returns the answer with the given id.
func (q Question) FindAnswer(id int64) (Answer, bool) {
	for _, a := range q.Answers {
		if a.ID == id {
			return a, true
		}
	}
	return Answer{}, false
}

// NormalizeQuestions applies defaults, validates answer keys and sorts by Order.
// The input slice is not modified.
func NormalizeQuestions(in []Question) ([]Question, error) {
	out := make([]Question, 0, len(in))
	seen := make(map[int64]struct{}, len(in))
	for _, q := range in {
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("question %d: duplicate id: %w", q.ID, ErrInvalidQuestion)
		}
		seen[q.ID] = struct{}{}

		nq, err := normalizeQuestion(q)
		if err != nil {
			return nil, err
		}
		out = append(out, nq)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func normalizeQuestion(q Question) (Question, error) {
	if q.TimeLimit <= 0 {
		q.TimeLimit = DefaultTimeLimit
	}
	if q.Points <= 0 {
		q.Points = DefaultPoints
	}
	q.Answers = append([]Answer(nil), q.Answers...)

	switch q.Type {
	case TrueFalse:
		if len(q.Answers) == 0 && q.TrueFalseAnswer != nil {
			q.Answers = []Answer{
				{ID: trueAnswerID, Text: "True", IsCorrect: *q.TrueFalseAnswer},
				{ID: falseAnswerID, Text: "False", IsCorrect: !*q.TrueFalseAnswer},
			}
		}
		if len(q.Answers) != 2 {
			return q, fmt.Errorf("question %d: true/false needs two answers or trueFalseAnswer: %w", q.ID, ErrInvalidQuestion)
		}
		fallthrough
	case MultipleChoice:
		if n := len(q.CorrectIDs()); n != 1 {
			return q, fmt.Errorf("question %d: %d correct answers, want 1: %w", q.ID, n, ErrInvalidQuestion)
		}
	case MultipleSelect:
		if len(q.CorrectIDs()) == 0 {
			return q, fmt.Errorf("question %d: no correct answer: %w", q.ID, ErrInvalidQuestion)
		}
	case ShortAnswer:
		q.Answers = nil
	default:
		return q, fmt.Errorf("question %d: unknown type %q: %w", q.ID, q.Type, ErrInvalidQuestion)
	}
	return q, nil
}
