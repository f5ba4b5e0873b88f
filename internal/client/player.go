package client

import (
	"encoding/json"
	"sync"

	"live-quiz-service/internal/domain"
)

// Player drives one player seat over a Conn and keeps its PlayerView current.
type Player struct {
	conn *Conn

	mu       sync.Mutex
	view     PlayerView
	subs     []*Subscription
	onChange func(PlayerView)
}

func NewPlayer(conn *Conn, playerID string) *Player {
	p := &Player{conn: conn, view: NewPlayerView(playerID)}
	for _, evt := range PlayerEvents {
		evt := evt
		p.subs = append(p.subs, conn.Subscribe(evt, func(raw json.RawMessage) {
			p.update(func(v PlayerView) PlayerView { return v.Apply(evt, raw) })
		}))
	}
	return p
}

// OnChange registers fn to run after every view change, on the read goroutine.
func (p *Player) OnChange(fn func(PlayerView)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

func (p *Player) View() PlayerView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

func (p *Player) Join(roomCode, pseudo string) error {
	p.update(func(v PlayerView) PlayerView {
		v.RoomCode = domain.NormalizeRoomCode(roomCode)
		v.RoomMissing = false
		return v
	})
	return p.conn.Emit(domain.EventJoinRoom, domain.JoinRoomPayload{RoomCode: roomCode, Pseudo: pseudo})
}

// Submit marks the question answered locally and sends the answer. The mark
// is rolled back if the server rejects the submission.
func (p *Player) Submit(answer domain.SubmitAnswerPayload) error {
	p.update(func(v PlayerView) PlayerView {
		return v.MarkAnswered(answer.QuestionID)
	})
	answer.RoomCode = p.View().RoomCode
	return p.conn.Emit(domain.EventSubmitAnswer, answer)
}

func (p *Player) Sync() error {
	return p.conn.Emit(domain.EventSyncState, domain.RoomPayload{RoomCode: p.View().RoomCode})
}

func (p *Player) Leave() error {
	return p.conn.Emit(domain.EventLeaveRoom, domain.RoomPayload{RoomCode: p.View().RoomCode})
}

// Close releases every subscription the player holds. The Conn stays open.
func (p *Player) Close() {
	p.mu.Lock()
	subs := p.subs
	p.subs = nil
	p.mu.Unlock()
	for _, s := range subs {
		s.Release()
	}
}

func (p *Player) update(fn func(PlayerView) PlayerView) {
	p.mu.Lock()
	p.view = fn(p.view)
	view, cb := p.view, p.onChange
	p.mu.Unlock()
	if cb != nil {
		cb(view)
	}
}
