package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/domain"
)

// SessionRepository abstracts where active sessions are indexed (in-memory, Redis, etc).
// Insert must fail with domain.ErrRoomCodeTaken when the code is in use.
type SessionRepository interface {
	Insert(ctx context.Context, session *Session) error
	Get(code string) (*Session, bool)
	Delete(ctx context.Context, code string)
	List() []*Session
}

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateRoomCode returns a random code of domain.RoomCodeLength characters.
func GenerateRoomCode() (string, error) {
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	buf := make([]byte, domain.RoomCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		buf[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// Registry maps room codes to sessions and regenerates codes on collision.
type Registry struct {
	store       SessionRepository
	maxAttempts int
	generate    func() (string, error)
}

func NewRegistry(store SessionRepository, maxAttempts int) *Registry {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Registry{store: store, maxAttempts: maxAttempts, generate: GenerateRoomCode}
}

// create reserves a code for a session built by build. A well-formed requested
// code is tried first; otherwise or on collision a fresh code is generated.
func (r *Registry) create(ctx context.Context, requested string, build func(code string) *Session) (*Session, error) {
	code := domain.NormalizeRoomCode(requested)
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 || !domain.ValidRoomCode(code) {
			var err error
			if code, err = r.generate(); err != nil {
				return nil, err
			}
		}
		session := build(code)
		err := r.store.Insert(ctx, session)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrRoomCodeTaken) {
			return nil, fmt.Errorf("reserve room code: %w", err)
		}
		log.Debug().Str("room_code", code).Int("attempt", attempt+1).Msg("room code collision")
	}
	return nil, fmt.Errorf("no free room code after %d attempts: %w", r.maxAttempts, domain.ErrRoomCodeTaken)
}

func (r *Registry) get(code string) (*Session, error) {
	session, ok := r.store.Get(domain.NormalizeRoomCode(code))
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return session, nil
}

func (r *Registry) remove(ctx context.Context, code string) {
	r.store.Delete(ctx, code)
}

func (r *Registry) list() []*Session {
	return r.store.List()
}
