package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
}

// HostAuthenticator verifies the bearer credential presented by a host.
type HostAuthenticator interface {
	VerifyHost(credential string) (subject string, err error)
}

// QuizService is the entry point used by transports. It binds connections to
// rooms and forwards each command to the owning session.
type QuizService struct {
	registry  *Registry
	quizzes   QuizRepository
	sink      Sink
	auth      HostAuthenticator
	publisher Publisher
	clock     clockwork.Clock
	cfg       SessionConfig

	mu       sync.RWMutex
	bindings map[string]string // connection id -> room code
}

type Option func(*QuizService)

func WithClock(clock clockwork.Clock) Option {
	return func(s *QuizService) { s.clock = clock }
}

func WithSessionConfig(cfg SessionConfig) Option {
	return func(s *QuizService) { s.cfg = cfg }
}

func WithPublisher(p Publisher) Option {
	return func(s *QuizService) { s.publisher = p }
}

// WithAuthenticator requires hosts to present a credential accepted by a.
func WithAuthenticator(a HostAuthenticator) Option {
	return func(s *QuizService) { s.auth = a }
}

func WithCodeAttempts(n int) Option {
	return func(s *QuizService) { s.registry.maxAttempts = n }
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, sink Sink, opts ...Option) *QuizService {
	s := &QuizService{
		registry:  NewRegistry(store, 10),
		quizzes:   quizzes,
		sink:      sink,
		publisher: LogPublisher{},
		clock:     clockwork.NewRealClock(),
		cfg:       DefaultSessionConfig(),
		bindings:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom allocates a session hosted by connID. The quiz's questions are
// fetched once here; an unknown quiz yields an empty session that can still be
// started with questions supplied by start_game.
func (s *QuizService) CreateRoom(ctx context.Context, connID, credential, requestedCode, quizID string) (domain.RoomCreatedPayload, error) {
	if code, ok := s.binding(connID); ok {
		return domain.RoomCreatedPayload{}, fmt.Errorf("connection already in room %s: %w", code, domain.ErrInvalidTransition)
	}
	if s.auth != nil {
		subject, err := s.auth.VerifyHost(credential)
		if err != nil {
			return domain.RoomCreatedPayload{}, err
		}
		log.Debug().Str("subject", subject).Str("quiz_id", quizID).Msg("host authenticated")
	}

	questions, err := s.loadQuestions(ctx, quizID)
	if err != nil {
		return domain.RoomCreatedPayload{}, err
	}

	session, err := s.registry.create(ctx, requestedCode, func(code string) *Session {
		return newSession(sessionParams{
			code:      code,
			quizID:    quizID,
			hostConn:  connID,
			questions: questions,
			clock:     s.clock,
			cfg:       s.cfg,
			sink:      s.sink,
			publisher: s.publisher,
			onEnd:     s.sessionEnded,
		})
	})
	if err != nil {
		return domain.RoomCreatedPayload{}, err
	}
	s.bind(connID, session.Code())
	session.start()

	return domain.RoomCreatedPayload{RoomCode: session.Code(), QuizID: quizID, TotalQuestions: len(questions)}, nil
}

func (s *QuizService) loadQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	if quizID == "" || s.quizzes == nil {
		return nil, nil
	}
	questions, err := s.quizzes.GetQuestions(ctx, quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		log.Warn().Str("quiz_id", quizID).Msg("quiz not in authoring store, waiting for start_game questions")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	return domain.NormalizeQuestions(questions)
}

func (s *QuizService) StartGame(ctx context.Context, connID, code string, questions []domain.Question) error {
	session, err := s.registry.get(code)
	if err != nil {
		return err
	}
	return session.Start(ctx, connID, questions)
}

func (s *QuizService) EndQuestion(ctx context.Context, connID, code string, index *int) error {
	session, err := s.registry.get(code)
	if err != nil {
		return err
	}
	return session.EndQuestion(ctx, connID, index)
}

func (s *QuizService) NextQuestion(ctx context.Context, connID, code string, index *int) error {
	session, err := s.registry.get(code)
	if err != nil {
		return err
	}
	return session.NextQuestion(ctx, connID, index)
}

func (s *QuizService) ValidateAnswer(ctx context.Context, connID string, p domain.ValidateAnswerPayload) error {
	session, err := s.registry.get(p.RoomCode)
	if err != nil {
		return err
	}
	return session.Validate(ctx, connID, p.PlayerID, p.QuestionID, p.IsCorrect)
}

// JoinRoom adds connID as playerID. Joining another room first leaves the
// current one, unless connID hosts it.
func (s *QuizService) JoinRoom(ctx context.Context, connID, playerID, pseudo, code string) error {
	session, err := s.registry.get(code)
	if err != nil {
		return err
	}
	if prev, ok := s.binding(connID); ok && prev != session.Code() {
		if current, err := s.registry.get(prev); err == nil && current.hostedBy(connID) {
			return fmt.Errorf("connection hosts room %s: %w", prev, domain.ErrInvalidTransition)
		}
		s.Disconnect(ctx, connID)
	}
	if err := session.Join(ctx, connID, playerID, pseudo); err != nil {
		return err
	}
	s.bind(connID, session.Code())
	return nil
}

func (s *QuizService) SubmitAnswer(ctx context.Context, connID string, p domain.SubmitAnswerPayload) (domain.AnswerSubmittedPayload, error) {
	session, err := s.registry.get(p.RoomCode)
	if err != nil {
		return domain.AnswerSubmittedPayload{}, err
	}
	return session.Submit(ctx, connID, p)
}

// Sync asks the session to send connID a fresh snapshot.
func (s *QuizService) Sync(ctx context.Context, connID, code string) error {
	session, err := s.registry.get(code)
	if err != nil {
		return err
	}
	return session.Sync(ctx, connID)
}

// LeaveRoom handles an explicit leave_room.
func (s *QuizService) LeaveRoom(ctx context.Context, connID, code string) error {
	session, err := s.registry.get(code)
	if err != nil {
		return err
	}
	if err := session.Leave(ctx, connID, true); err != nil {
		return err
	}
	s.unbind(connID)
	return nil
}

// Disconnect releases whatever room connID was bound to. It is safe to call
// for connections that never joined.
func (s *QuizService) Disconnect(ctx context.Context, connID string) {
	code, ok := s.unbind(connID)
	if !ok {
		return
	}
	session, err := s.registry.get(code)
	if err != nil {
		return
	}
	if err := session.Leave(ctx, connID, false); err != nil && !errors.Is(err, domain.ErrPlayerNotFound) && !errors.Is(err, domain.ErrRoomNotFound) {
		log.Warn().Err(err).Str("room_code", code).Str("connection_id", connID).Msg("leave on disconnect")
	}
}

// RoomSnapshot returns the public view of a room.
func (s *QuizService) RoomSnapshot(ctx context.Context, code string) (domain.Snapshot, error) {
	session, err := s.registry.get(code)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(ctx, "")
}

func (s *QuizService) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Stats{ActiveRooms: len(s.registry.list()), ActiveConnections: len(s.bindings)}
}

// Shutdown ends every active session and waits for them to stop.
func (s *QuizService) Shutdown(ctx context.Context) {
	for _, session := range s.registry.list() {
		if err := session.End(ctx, domain.EndReasonShutdown); err != nil && !errors.Is(err, domain.ErrRoomNotFound) {
			log.Warn().Err(err).Str("room_code", session.Code()).Msg("end session on shutdown")
			continue
		}
		select {
		case <-session.Done():
		case <-ctx.Done():
			return
		}
	}
}

// sessionEnded runs on the session goroutine after it stops.
func (s *QuizService) sessionEnded(session *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.registry.remove(ctx, session.Code())

	s.mu.Lock()
	for conn, code := range s.bindings {
		if code == session.Code() {
			delete(s.bindings, conn)
		}
	}
	s.mu.Unlock()
}

func (s *QuizService) binding(connID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.bindings[connID]
	return code, ok
}

func (s *QuizService) bind(connID, code string) {
	s.mu.Lock()
	s.bindings[connID] = code
	s.mu.Unlock()
}

func (s *QuizService) unbind(connID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.bindings[connID]
	delete(s.bindings, connID)
	return code, ok
}
