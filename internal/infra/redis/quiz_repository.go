package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

// QuizRepository caches normalized question lists in Redis and falls back to
// a loader on cache miss. Questions are stored as one JSON string per quiz:
//
//	SET quiz:{quizID}:questions <json> EX ttl
type QuizRepository struct {
	client *redis.Client
	loader memory.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader memory.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	if questions, ok := r.cached(ctx, quizID); ok {
		return questions, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if questions, ok := r.cached(ctx, quizID); ok {
			return questions, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		questions, err := domain.NormalizeQuestions(quiz.Questions)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(questions)
		if err == nil {
			err = r.client.Set(ctx, r.questionsKey(quizID), raw, r.ttlWithJitter()).Err()
		}
		if err != nil {
			log.Warn().Err(err).Str("quiz_id", quizID).Msg("cache quiz questions")
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (r *QuizRepository) cached(ctx context.Context, quizID string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, r.questionsKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("quiz_id", quizID).Msg("read quiz cache")
		}
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		log.Warn().Err(err).Str("quiz_id", quizID).Msg("corrupt quiz cache entry")
		return nil, false
	}
	return questions, true
}

func (r *QuizRepository) questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
