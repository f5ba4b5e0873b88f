package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

const hostConn = "host-conn"

// recorder is a Sink that keeps every event per connection.
type recorder struct {
	mu     sync.Mutex
	events map[string][]app.Event
}

func newRecorder() *recorder {
	return &recorder{events: make(map[string][]app.Event)}
}

func (r *recorder) Send(connID string, evt app.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[connID] = append(r.events[connID], evt)
}

func (r *recorder) all(connID, eventType string) []app.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []app.Event
	for _, evt := range r.events[connID] {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

func (r *recorder) last(connID, eventType string) (app.Event, bool) {
	evts := r.all(connID, eventType)
	if len(evts) == 0 {
		return app.Event{}, false
	}
	return evts[len(evts)-1], true
}

func (r *recorder) count(connID, eventType string) int {
	return len(r.all(connID, eventType))
}

// waitCount blocks until connID has seen at least n events of eventType.
func (r *recorder) waitCount(t *testing.T, connID, eventType string, n int) app.Event {
	t.Helper()
	require.Eventually(t, func() bool { return r.count(connID, eventType) >= n }, 2*time.Second, 5*time.Millisecond,
		"waiting for %d %s on %s", n, eventType, connID)
	evts := r.all(connID, eventType)
	return evts[n-1]
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	svc   *app.QuizService
	clock *clockwork.FakeClock
	sink  *recorder
	store *memory.SessionStore
}

func newHarness(t *testing.T, opts ...app.Option) *harness {
	t.Helper()
	clock := clockwork.NewFakeClock()
	sink := newRecorder()
	store := memory.NewSessionStore()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(fixtures()), time.Minute)

	base := []app.Option{
		app.WithClock(clock),
		app.WithSessionConfig(app.SessionConfig{ReadingDuration: 10 * time.Second, TickInterval: time.Second}),
	}
	svc := app.NewQuizService(store, quizzes, sink, append(base, opts...)...)
	h := &harness{t: t, ctx: context.Background(), svc: svc, clock: clock, sink: sink, store: store}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		svc.Shutdown(ctx)
	})
	return h
}

func (h *harness) createRoom(quizID string) string {
	h.t.Helper()
	created, err := h.svc.CreateRoom(h.ctx, hostConn, "", "", quizID)
	require.NoError(h.t, err)
	require.True(h.t, domain.ValidRoomCode(created.RoomCode))
	return created.RoomCode
}

func (h *harness) join(code, conn, pseudo string) {
	h.t.Helper()
	require.NoError(h.t, h.svc.JoinRoom(h.ctx, conn, conn, pseudo, code))
}

func (h *harness) start(code string) {
	h.t.Helper()
	require.NoError(h.t, h.svc.StartGame(h.ctx, hostConn, code, nil))
}

// toAnswering waits for question n (1-based count) and lets the reading time elapse.
func (h *harness) toAnswering(n int) {
	h.t.Helper()
	h.sink.waitCount(h.t, hostConn, domain.EventQuestionStart, n)
	h.clock.Advance(10 * time.Second)
	h.sink.waitCount(h.t, hostConn, domain.EventAnsweringStart, n)
}

func (h *harness) submit(code, conn string, p domain.SubmitAnswerPayload) (domain.AnswerSubmittedPayload, error) {
	p.RoomCode = code
	return h.svc.SubmitAnswer(h.ctx, conn, p)
}

func (h *harness) snapshot(code string) domain.Snapshot {
	h.t.Helper()
	snap, err := h.svc.RoomSnapshot(h.ctx, code)
	require.NoError(h.t, err)
	return snap
}

func players(t *testing.T, evt app.Event) []domain.Player {
	t.Helper()
	out, ok := evt.Payload.([]domain.Player)
	require.True(t, ok, "payload %T", evt.Payload)
	return out
}

func id(v int64) *int64 { return &v }

func secs(v float64) *float64 { return &v }

func text(v string) *string { return &v }

func idx(v int) *int { return &v }

func fixtures() map[string]domain.Quiz {
	yes := true
	return map[string]domain.Quiz{
		"true-false": {
			ID: "true-false",
			Questions: []domain.Question{
				{ID: 1, Type: domain.TrueFalse, Text: "Go has goroutines", TimeLimit: 30, Points: 1000, TrueFalseAnswer: &yes},
			},
		},
		"short": {
			ID: "short",
			Questions: []domain.Question{
				{ID: 5, Type: domain.ShortAnswer, Text: "Capital of France?", TimeLimit: 30, Points: 1000, CorrectAnswerText: "Paris"},
			},
		},
		"short-then-tf": {
			ID: "short-then-tf",
			Questions: []domain.Question{
				{ID: 20, Order: 1, Type: domain.ShortAnswer, Text: "Mascot of Go?", TimeLimit: 30, Points: 1000, CorrectAnswerText: "Gopher"},
				{ID: 21, Order: 2, Type: domain.TrueFalse, Text: "Go is garbage collected", TimeLimit: 30, Points: 1000, TrueFalseAnswer: &yes},
			},
		},
		"mixed": {
			ID: "mixed",
			Questions: []domain.Question{
				{ID: 10, Order: 1, Type: domain.MultipleChoice, Text: "2+2?", TimeLimit: 20, Points: 1000, Answers: []domain.Answer{
					{ID: 1, Text: "3"}, {ID: 2, Text: "4", IsCorrect: true}, {ID: 3, Text: "5"},
				}},
				{ID: 11, Order: 2, Type: domain.MultipleSelect, Text: "Even numbers", TimeLimit: 20, Points: 500, Answers: []domain.Answer{
					{ID: 1, Text: "1"}, {ID: 2, Text: "2", IsCorrect: true}, {ID: 3, Text: "4", IsCorrect: true}, {ID: 4, Text: "5"},
				}},
				{ID: 12, Order: 3, Type: domain.ShortAnswer, Text: "Name a gopher", TimeLimit: 20, Points: 800},
			},
		},
	}
}
