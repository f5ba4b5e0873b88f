package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	questions, err := repo.GetQuestions(context.Background(), "quiz-1")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.EqualValues(t, 1, loader.calls.Load())
	require.True(t, mr.Exists("quiz:quiz-1:questions"))

	// Second call should hit cache and keep the answer key intact.
	cached, err := repo.GetQuestions(context.Background(), "quiz-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, loader.calls.Load())
	require.Equal(t, questions, cached)
	require.Equal(t, []int64{2}, cached[0].CorrectIDs())
}

func TestQuizRepositoryReloadsAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()})}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	_, err = repo.GetQuestions(context.Background(), "quiz-1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	_, err = repo.GetQuestions(context.Background(), "quiz-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, loader.calls.Load())
}

func TestQuizRepositoryIgnoresCorruptEntries(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	require.NoError(t, mr.Set("quiz:quiz-1:questions", "{not json"))
	loader := &countingLoader{QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()})}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	questions, err := repo.GetQuestions(context.Background(), "quiz-1")
	require.NoError(t, err)
	require.Len(t, questions, 1)
	require.EqualValues(t, 1, loader.calls.Load())
}

type countingLoader struct {
	memory.QuizLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls.Add(1)
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{
				ID:   1,
				Type: domain.MultipleChoice,
				Text: "What is 2 + 2?",
				Answers: []domain.Answer{
					{ID: 1, Text: "3"},
					{ID: 2, Text: "4", IsCorrect: true},
					{ID: 3, Text: "5"},
				},
				Points: 1000,
			},
		},
	}
}
