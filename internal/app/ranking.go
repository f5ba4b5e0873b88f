package app

import (
	"sort"

	"live-quiz-service/internal/domain"
)

// rank orders players by score desc, then by arrival of their submission for
// questionID (players who did not answer after those who did), then by join order.
func rank(players map[string]*domain.Player, l *ledger, questionID int64) []domain.Player {
	out := make([]domain.Player, 0, len(players))
	for _, p := range players {
		out = append(out, *p)
	}
	seqOf := func(playerID string) (uint64, bool) {
		if l == nil {
			return 0, false
		}
		sub, ok := l.get(questionID, playerID)
		if !ok {
			return 0, false
		}
		return sub.Seq, true
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		si, iok := seqOf(out[i].ID)
		sj, jok := seqOf(out[j].ID)
		if iok != jok {
			return iok
		}
		if iok && si != sj {
			return si < sj
		}
		return out[i].JoinOrder < out[j].JoinOrder
	})
	return out
}

// byJoinOrder is the roster order used by room_update.
func byJoinOrder(players map[string]*domain.Player) []domain.Player {
	out := make([]domain.Player, 0, len(players))
	for _, p := range players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinOrder < out[j].JoinOrder })
	return out
}
