package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
//   - Session actors live in this process; the local map is what Get reads.
//   - Redis holds a reservation key per room code (SET NX with TTL) so codes
//     stay unique across every coordinator instance sharing the same Redis.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Insert(ctx context.Context, session *app.Session) error {
	code := session.Code()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[code]; ok {
		return domain.ErrRoomCodeTaken
	}
	ok, err := s.client.SetNX(ctx, s.key(code), session.QuizID(), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve %s: %w", code, err)
	}
	if !ok {
		return domain.ErrRoomCodeTaken
	}
	s.sessions[code] = session
	return nil
}

func (s *SessionStore) Get(code string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	return session, ok
}

func (s *SessionStore) Delete(ctx context.Context, code string) {
	s.mu.Lock()
	_, owned := s.sessions[code]
	delete(s.sessions, code)
	s.mu.Unlock()

	// Only release reservations this instance made.
	if !owned {
		return
	}
	if err := s.client.Del(ctx, s.key(code)).Err(); err != nil {
		log.Warn().Err(err).Str("room_code", code).Msg("release room code")
	}
}

func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

func (s *SessionStore) key(code string) string {
	return "quiz:room:" + code
}
