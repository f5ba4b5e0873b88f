package app

import (
	"sort"

	"live-quiz-service/internal/domain"
)

// ledger keeps at most one submission per (question, player). Seq records
// arrival order at the session and is the only tie-break used for ranking.
type ledger struct {
	seq        uint64
	byQuestion map[int64]map[string]*domain.Submission
}

func newLedger() *ledger {
	return &ledger{byQuestion: make(map[int64]map[string]*domain.Submission)}
}

func (l *ledger) get(questionID int64, playerID string) (*domain.Submission, bool) {
	sub, ok := l.byQuestion[questionID][playerID]
	return sub, ok
}

// record stores sub unless one already exists, in which case the original is
// returned with false.
func (l *ledger) record(sub *domain.Submission) (*domain.Submission, bool) {
	subs, ok := l.byQuestion[sub.QuestionID]
	if !ok {
		subs = make(map[string]*domain.Submission)
		l.byQuestion[sub.QuestionID] = subs
	}
	if existing, ok := subs[sub.PlayerID]; ok {
		return existing, false
	}
	l.seq++
	sub.Seq = l.seq
	subs[sub.PlayerID] = sub
	return sub, true
}

// pending lists unresolved submissions for a question in arrival order.
func (l *ledger) pending(questionID int64) []*domain.Submission {
	var out []*domain.Submission
	for _, sub := range l.byQuestion[questionID] {
		if sub.State == domain.SubmissionPendingReview {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (l *ledger) count(questionID int64) int {
	return len(l.byQuestion[questionID])
}
