package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"live-quiz-service/internal/domain"
)

func TestCountdownRemainingRoundsUp(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newCountdown(clock, time.Second)
	require.Nil(t, c.C())
	require.Zero(t, c.remaining(clock.Now()))

	c.arm(10 * time.Second)
	require.NotNil(t, c.C())
	require.Equal(t, 10, c.remaining(clock.Now()))
	require.Equal(t, 10, c.remaining(clock.Now().Add(100*time.Millisecond)))
	require.Equal(t, 1, c.remaining(clock.Now().Add(9500*time.Millisecond)))
	require.False(t, c.expired(clock.Now().Add(9999*time.Millisecond)))
	require.True(t, c.expired(clock.Now().Add(10*time.Second)))
	require.Zero(t, c.remaining(clock.Now().Add(11*time.Second)))

	c.cancel()
	require.Nil(t, c.C())
	require.False(t, c.expired(clock.Now().Add(time.Hour)))
}

func TestCountdownRearmDropsOldTicker(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := newCountdown(clock, time.Second)
	c.arm(5 * time.Second)
	old := c.C()
	c.arm(20 * time.Second)
	require.NotEqual(t, old, c.C())
	require.Equal(t, 20, c.remaining(clock.Now()))

	clock.Advance(time.Second)
	select {
	case <-c.C():
	case <-time.After(time.Second):
		t.Fatal("expected tick from the new ticker")
	}
}

func TestLedgerKeepsFirstSubmission(t *testing.T) {
	l := newLedger()
	first, ok := l.record(&domain.Submission{PlayerID: "a", QuestionID: 1, Points: 900})
	require.True(t, ok)
	require.EqualValues(t, 1, first.Seq)

	again, ok := l.record(&domain.Submission{PlayerID: "a", QuestionID: 1, Points: 1000})
	require.False(t, ok)
	require.Same(t, first, again)
	require.Equal(t, 900, again.Points)

	other, ok := l.record(&domain.Submission{PlayerID: "a", QuestionID: 2})
	require.True(t, ok)
	require.EqualValues(t, 2, other.Seq)
	require.Equal(t, 1, l.count(1))
	require.Equal(t, 1, l.count(2))
	require.Zero(t, l.count(3))
}

func TestLedgerPendingInArrivalOrder(t *testing.T) {
	l := newLedger()
	for _, id := range []string{"c", "a", "b"} {
		l.record(&domain.Submission{PlayerID: id, QuestionID: 7, State: domain.SubmissionPendingReview})
	}
	l.record(&domain.Submission{PlayerID: "d", QuestionID: 7, State: domain.SubmissionScored})

	var order []string
	for _, sub := range l.pending(7) {
		order = append(order, sub.PlayerID)
	}
	require.Equal(t, []string{"c", "a", "b"}, order)
	require.Empty(t, l.pending(8))
}

func TestRankOrdering(t *testing.T) {
	players := map[string]*domain.Player{
		"early":  {ID: "early", Score: 100, JoinOrder: 4},
		"late":   {ID: "late", Score: 100, JoinOrder: 1},
		"silent": {ID: "silent", Score: 100, JoinOrder: 2},
		"quiet":  {ID: "quiet", Score: 100, JoinOrder: 3},
		"top":    {ID: "top", Score: 500, JoinOrder: 5},
	}
	l := newLedger()
	l.record(&domain.Submission{PlayerID: "early", QuestionID: 1})
	l.record(&domain.Submission{PlayerID: "late", QuestionID: 1})
	l.record(&domain.Submission{PlayerID: "top", QuestionID: 1})

	var ids []string
	for _, p := range rank(players, l, 1) {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"top", "early", "late", "silent", "quiet"}, ids)

	ids = ids[:0]
	for _, p := range byJoinOrder(players) {
		ids = append(ids, p.ID)
	}
	require.Equal(t, []string{"late", "silent", "quiet", "early", "top"}, ids)
}

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := GenerateRoomCode()
		require.NoError(t, err)
		require.True(t, domain.ValidRoomCode(code), code)
		seen[code] = struct{}{}
	}
	require.Greater(t, len(seen), 190)
}

type mapStore struct {
	sessions map[string]*Session
	fail     error
}

func (m *mapStore) Insert(_ context.Context, s *Session) error {
	if m.fail != nil {
		return m.fail
	}
	if _, ok := m.sessions[s.Code()]; ok {
		return domain.ErrRoomCodeTaken
	}
	m.sessions[s.Code()] = s
	return nil
}

func (m *mapStore) Get(code string) (*Session, bool) {
	s, ok := m.sessions[code]
	return s, ok
}

func (m *mapStore) Delete(_ context.Context, code string) { delete(m.sessions, code) }

func (m *mapStore) List() []*Session {
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

func TestRegistryRegeneratesOnCollision(t *testing.T) {
	store := &mapStore{sessions: map[string]*Session{}}
	r := NewRegistry(store, 3)
	codes := []string{"TAKEN1", "FRESH1"}
	r.generate = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	build := func(code string) *Session { return NewSession(code, "quiz") }

	_, err := r.create(context.Background(), "taken1", build)
	require.NoError(t, err)

	s, err := r.create(context.Background(), "TAKEN1", build)
	require.NoError(t, err)
	require.Equal(t, "FRESH1", s.Code())

	got, err := r.get(" fresh1 ")
	require.NoError(t, err)
	require.Same(t, s, got)

	r.remove(context.Background(), "FRESH1")
	_, err = r.get("FRESH1")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRegistryGivesUpAfterMaxAttempts(t *testing.T) {
	store := &mapStore{sessions: map[string]*Session{"SAME01": NewSession("SAME01", "quiz")}}
	r := NewRegistry(store, 3)
	calls := 0
	r.generate = func() (string, error) {
		calls++
		return "SAME01", nil
	}
	_, err := r.create(context.Background(), "", func(code string) *Session { return NewSession(code, "quiz") })
	require.ErrorIs(t, err, domain.ErrRoomCodeTaken)
	require.Equal(t, 3, calls)
}

func TestRegistrySurfacesStoreErrors(t *testing.T) {
	boom := errors.New("redis down")
	r := NewRegistry(&mapStore{sessions: map[string]*Session{}, fail: boom}, 3)
	_, err := r.create(context.Background(), "", func(code string) *Session { return NewSession(code, "quiz") })
	require.ErrorIs(t, err, boom)
}
