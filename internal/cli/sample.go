package cli

import "live-quiz-service/internal/domain"

// sampleQuizzes is served when no Postgres authoring store is configured.
func sampleQuizzes() map[string]domain.Quiz {
	yes := true
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					ID:        1,
					Order:     1,
					Type:      domain.MultipleChoice,
					Text:      "What is 2 + 2?",
					TimeLimit: 20,
					Points:    1000,
					Answers: []domain.Answer{
						{ID: 1, Text: "3"},
						{ID: 2, Text: "4", IsCorrect: true},
						{ID: 3, Text: "5"},
					},
				},
				{
					ID:              2,
					Order:           2,
					Type:            domain.TrueFalse,
					Text:            "Go has generics.",
					TimeLimit:       15,
					Points:          500,
					TrueFalseAnswer: &yes,
				},
				{
					ID:        3,
					Order:     3,
					Type:      domain.MultipleSelect,
					Text:      "Which of these are prime?",
					TimeLimit: 30,
					Points:    1000,
					Answers: []domain.Answer{
						{ID: 1, Text: "2", IsCorrect: true},
						{ID: 2, Text: "4"},
						{ID: 3, Text: "7", IsCorrect: true},
						{ID: 4, Text: "9"},
					},
				},
				{
					ID:                4,
					Order:             4,
					Type:              domain.ShortAnswer,
					Text:              "Name the Go mascot.",
					TimeLimit:         30,
					Points:            800,
					CorrectAnswerText: "Gopher",
				},
			},
		},
	}
}
