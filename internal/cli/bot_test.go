package cli

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/scoring"
)

func TestRandomAnswersFitEveryQuestionType(t *testing.T) {
	questions, err := domain.NormalizeQuestions(sampleQuizzes()["quiz-1"].Questions)
	require.NoError(t, err)
	require.Len(t, questions, 4)

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		for _, q := range questions {
			answer := randomAnswer(rnd, q)
			require.Equal(t, q.ID, answer.QuestionID)
			_, err := scoring.Evaluate(q, answer.Answer(), 1)
			require.NoError(t, err, "question %d", q.ID)
		}
	}
}

func TestRootCommandWiresSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"start", "migrate", "bot"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, sub.Name())
	}
}
