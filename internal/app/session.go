package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/scoring"
)

// SessionConfig holds the timing constants shared by every session.
type SessionConfig struct {
	// ReadingDuration is how long a question is shown before answers open. Zero skips READING.
	ReadingDuration time.Duration
	TickInterval    time.Duration
	CommandBuffer   int
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ReadingDuration: 10 * time.Second,
		TickInterval:    time.Second,
		CommandBuffer:   64,
	}
}

// Session coordinates one live quiz run. All mutable state below the cmds
// channel is owned by the run goroutine; every operation is queued as a command
// and applied in arrival order, with timer ticks handled in the same loop.
type Session struct {
	code      string
	quizID    string
	hostConn  string
	createdAt time.Time

	clock     clockwork.Clock
	cfg       SessionConfig
	sink      Sink
	publisher Publisher
	onEnd     func(*Session)

	cmds chan func()
	done chan struct{}

	phase       domain.Phase
	index       int
	questions   []domain.Question
	players     map[string]*domain.Player
	conns       map[string]string // player id -> connection id
	byConn      map[string]string // connection id -> player id
	joins       int
	ledger      *ledger
	unposted    map[string]int
	timer       *countdown
	answeringAt time.Time
	startedAt   time.Time
}

type sessionParams struct {
	code      string
	quizID    string
	hostConn  string
	questions []domain.Question
	clock     clockwork.Clock
	cfg       SessionConfig
	sink      Sink
	publisher Publisher
	onEnd     func(*Session)
}

func newSession(p sessionParams) *Session {
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.publisher == nil {
		p.publisher = LogPublisher{}
	}
	if p.cfg.CommandBuffer <= 0 {
		p.cfg.CommandBuffer = DefaultSessionConfig().CommandBuffer
	}
	return &Session{
		code:      p.code,
		quizID:    p.quizID,
		hostConn:  p.hostConn,
		createdAt: p.clock.Now(),
		clock:     p.clock,
		cfg:       p.cfg,
		sink:      p.sink,
		publisher: p.publisher,
		onEnd:     p.onEnd,
		cmds:      make(chan func(), p.cfg.CommandBuffer),
		done:      make(chan struct{}),
		phase:     domain.PhaseLobby,
		index:     -1,
		questions: p.questions,
		players:   make(map[string]*domain.Player),
		conns:     make(map[string]string),
		byConn:    make(map[string]string),
		ledger:    newLedger(),
		unposted:  make(map[string]int),
		timer:     newCountdown(p.clock, p.cfg.TickInterval),
	}
}

// NewSession is exported for infrastructure layers that need a session value
// without a running loop, such as store tests.
func NewSession(code, quizID string) *Session {
	return newSession(sessionParams{code: code, quizID: quizID, cfg: DefaultSessionConfig()})
}

func (s *Session) Code() string   { return s.code }
func (s *Session) QuizID() string { return s.quizID }

// hostedBy is safe off the loop: hostConn is fixed at construction.
func (s *Session) hostedBy(connID string) bool { return connID == s.hostConn }

// Done is closed once the session has ended and stopped processing commands.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) start() {
	go s.run()
}

func (s *Session) run() {
	defer func() {
		s.timer.cancel()
		close(s.done)
		if s.onEnd != nil {
			s.onEnd(s)
		}
	}()

	created := domain.RoomCreatedPayload{RoomCode: s.code, QuizID: s.quizID, TotalQuestions: len(s.questions)}
	s.send(s.hostConn, domain.EventRoomCreated, created)
	s.publish(domain.EventRoomCreated, created)
	log.Info().Str("room_code", s.code).Str("quiz_id", s.quizID).Int("questions", len(s.questions)).Msg("session created")

	for {
		select {
		case cmd := <-s.cmds:
			cmd()
		case <-s.timer.C():
			s.onTick()
		}
		if s.phase == domain.PhaseEnded {
			return
		}
	}
}

// do queues fn on the session loop and waits for it to be applied.
func (s *Session) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	select {
	case s.cmds <- func() { reply <- fn() }:
	case <-s.done:
		return domain.ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		// The command itself may have ended the session.
		select {
		case err := <-reply:
			return err
		default:
			return domain.ErrRoomNotFound
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join adds a player or resumes the existing record for playerID.
func (s *Session) Join(ctx context.Context, connID, playerID, pseudo string) error {
	return s.do(ctx, func() error { return s.join(connID, playerID, pseudo) })
}

// Leave detaches a connection. explicit is true for leave_room, false for a dropped transport.
func (s *Session) Leave(ctx context.Context, connID string, explicit bool) error {
	return s.do(ctx, func() error { return s.leave(connID, explicit) })
}

func (s *Session) Start(ctx context.Context, connID string, questions []domain.Question) error {
	return s.do(ctx, func() error { return s.startGame(connID, questions) })
}

func (s *Session) EndQuestion(ctx context.Context, connID string, index *int) error {
	return s.do(ctx, func() error { return s.endQuestion(connID, index) })
}

func (s *Session) NextQuestion(ctx context.Context, connID string, index *int) error {
	return s.do(ctx, func() error { return s.nextQuestion(connID, index) })
}

func (s *Session) Validate(ctx context.Context, connID, playerID string, questionID int64, isCorrect bool) error {
	return s.do(ctx, func() error { return s.validate(connID, playerID, questionID, isCorrect) })
}

// Submit records an answer. Duplicates return the original acknowledgement
// with Reason AlreadyAnswered and a nil error.
func (s *Session) Submit(ctx context.Context, connID string, p domain.SubmitAnswerPayload) (domain.AnswerSubmittedPayload, error) {
	var ack domain.AnswerSubmittedPayload
	err := s.do(ctx, func() error {
		var err error
		ack, err = s.submit(connID, p)
		return err
	})
	return ack, err
}

// Sync sends the caller a session_state snapshot.
func (s *Session) Sync(ctx context.Context, connID string) error {
	return s.do(ctx, func() error {
		if connID != s.hostConn {
			if _, ok := s.byConn[connID]; !ok {
				return domain.ErrPlayerNotFound
			}
		}
		s.send(connID, domain.EventSessionState, s.snapshot(connID))
		return nil
	})
}

// Snapshot returns the view for connID; an empty connID gives the public view.
func (s *Session) Snapshot(ctx context.Context, connID string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.do(ctx, func() error {
		snap = s.snapshot(connID)
		return nil
	})
	return snap, err
}

// End terminates the session with reason.
func (s *Session) End(ctx context.Context, reason string) error {
	return s.do(ctx, func() error {
		s.end(reason)
		return nil
	})
}

func (s *Session) join(connID, playerID, rawPseudo string) error {
	if connID == s.hostConn {
		return fmt.Errorf("host cannot join its own room: %w", domain.ErrInvalidTransition)
	}
	pseudo, err := domain.NormalizePseudo(rawPseudo)
	if err != nil {
		return err
	}
	if playerID == "" {
		playerID = connID
	}

	player, resumed := s.players[playerID]
	if resumed {
		if old, ok := s.conns[playerID]; ok && old != connID {
			delete(s.byConn, old)
		}
		player.Pseudo = pseudo
		player.Connected = true
	} else {
		s.joins++
		player = &domain.Player{ID: playerID, Pseudo: pseudo, Connected: true, JoinOrder: s.joins}
		s.players[playerID] = player
	}
	s.conns[playerID] = connID
	s.byConn[connID] = playerID

	log.Info().
		Str("room_code", s.code).
		Str("player_id", playerID).
		Str("phase", string(s.phase)).
		Bool("resumed", resumed).
		Msg("player joined")

	s.send(connID, domain.EventSessionState, s.snapshot(connID))
	s.broadcast(domain.EventRoomUpdate, byJoinOrder(s.players))
	return nil
}

func (s *Session) leave(connID string, explicit bool) error {
	if connID == s.hostConn {
		log.Info().Str("room_code", s.code).Msg("host left, abandoning session")
		s.end(domain.EndReasonHostLeft)
		return nil
	}
	playerID, ok := s.byConn[connID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	delete(s.byConn, connID)
	delete(s.conns, playerID)

	if s.phase == domain.PhaseLobby {
		delete(s.players, playerID)
	} else if p := s.players[playerID]; p != nil {
		p.Connected = false
	}
	log.Info().Str("room_code", s.code).Str("player_id", playerID).Bool("explicit", explicit).Msg("player left")
	s.broadcast(domain.EventRoomUpdate, byJoinOrder(s.players))
	return nil
}

func (s *Session) startGame(connID string, questions []domain.Question) error {
	if err := s.requireHost(connID); err != nil {
		return err
	}
	if s.phase != domain.PhaseLobby {
		return fmt.Errorf("start in %s: %w", s.phase, domain.ErrInvalidTransition)
	}
	candidate := s.questions
	if len(candidate) == 0 && len(questions) > 0 {
		normalized, err := domain.NormalizeQuestions(questions)
		if err != nil {
			return err
		}
		candidate = normalized
	}
	if len(candidate) == 0 {
		return fmt.Errorf("quiz has no questions: %w", domain.ErrPreconditionFailed)
	}
	if s.connectedPlayers() == 0 {
		return fmt.Errorf("no players in room: %w", domain.ErrPreconditionFailed)
	}

	s.questions = candidate
	s.startedAt = s.clock.Now()
	started := domain.GameStartedPayload{TotalQuestions: len(s.questions)}
	s.broadcast(domain.EventGameStarted, started)
	s.publish(domain.EventGameStarted, started)
	log.Info().Str("room_code", s.code).Int("players", len(s.players)).Msg("game started")

	s.enterReading(0)
	return nil
}

func (s *Session) endQuestion(connID string, index *int) error {
	if err := s.requireHost(connID); err != nil {
		return err
	}
	if index != nil && *index != s.index {
		return fmt.Errorf("end_question for %d while on %d: %w", *index, s.index, domain.ErrInvalidTransition)
	}
	switch s.phase {
	case domain.PhaseAnswering:
		s.closeAnswering()
	case domain.PhaseReview:
		s.enterScoreboard()
	default:
		return fmt.Errorf("end_question in %s: %w", s.phase, domain.ErrInvalidTransition)
	}
	return nil
}

func (s *Session) nextQuestion(connID string, index *int) error {
	if err := s.requireHost(connID); err != nil {
		return err
	}
	if s.phase != domain.PhaseScoreboard {
		return fmt.Errorf("next_question in %s: %w", s.phase, domain.ErrInvalidTransition)
	}
	next := s.index + 1
	if index != nil && *index != next {
		return fmt.Errorf("next_question to %d, expected %d: %w", *index, next, domain.ErrInvalidTransition)
	}
	if next >= len(s.questions) {
		s.end(domain.EndReasonCompleted)
		return nil
	}
	s.enterReading(next)
	return nil
}

func (s *Session) validate(connID, playerID string, questionID int64, isCorrect bool) error {
	if err := s.requireHost(connID); err != nil {
		return err
	}
	sub, ok := s.ledger.get(questionID, playerID)
	if !ok {
		return fmt.Errorf("player %s question %d: %w", playerID, questionID, domain.ErrSubmissionNotFound)
	}
	if sub.State != domain.SubmissionPendingReview {
		// Repeated verdicts are acknowledged without touching the score.
		s.sendPending()
		return nil
	}

	sub.State = domain.SubmissionScored
	sub.IsCorrect = isCorrect
	if isCorrect {
		sub.Points = sub.PotentialPoints
	}
	s.award(playerID, sub.Points)

	if conn, ok := s.conns[playerID]; ok {
		s.send(conn, domain.EventAnswerValidated, domain.AnswerValidatedPayload{
			QuestionID:   questionID,
			IsCorrect:    isCorrect,
			PointsEarned: sub.Points,
		})
	}
	s.sendPending()
	if s.phase == domain.PhaseScoreboard {
		s.broadcast(domain.EventScoresUpdate, s.scores())
	}
	return nil
}

func (s *Session) submit(connID string, p domain.SubmitAnswerPayload) (domain.AnswerSubmittedPayload, error) {
	playerID, ok := s.byConn[connID]
	if !ok {
		return domain.AnswerSubmittedPayload{}, domain.ErrPlayerNotFound
	}

	now := s.clock.Now()
	// The deadline is checked at processing time; a tick that has not been
	// handled yet does not extend it.
	if (s.phase == domain.PhaseReading || s.phase == domain.PhaseAnswering) && s.timer.expired(now) {
		s.expire()
	}

	if existing, ok := s.ledger.get(p.QuestionID, playerID); ok {
		ack := ackFor(existing)
		ack.Reason = domain.Code(domain.ErrAlreadyAnswered)
		s.send(connID, domain.EventAnswerSubmitted, ack)
		return ack, nil
	}

	q, idx, ok := s.findQuestion(p.QuestionID)
	if !ok {
		return domain.AnswerSubmittedPayload{}, fmt.Errorf("question %d: %w", p.QuestionID, domain.ErrQuestionNotFound)
	}
	if idx != s.index || s.phase != domain.PhaseAnswering {
		if idx > s.index || (idx == s.index && s.phase == domain.PhaseReading) {
			return domain.AnswerSubmittedPayload{}, domain.ErrTooEarly
		}
		return domain.AnswerSubmittedPayload{}, domain.ErrTooLate
	}

	rt := now.Sub(s.answeringAt).Seconds()
	if p.ResponseTime != nil {
		rt = math.Max(0, *p.ResponseTime)
	}
	out, err := scoring.Evaluate(q, p.Answer(), rt)
	if err != nil {
		return domain.AnswerSubmittedPayload{}, err
	}

	sub, _ := s.ledger.record(&domain.Submission{
		PlayerID:        playerID,
		QuestionID:      q.ID,
		Payload:         p.Answer(),
		ResponseTime:    rt,
		State:           out.State,
		IsCorrect:       out.IsCorrect,
		Points:          out.Points,
		PotentialPoints: out.PotentialPoints,
		ReceivedAt:      now,
	})
	if sub.State == domain.SubmissionScored {
		s.award(playerID, sub.Points)
	}

	ack := ackFor(sub)
	s.send(connID, domain.EventAnswerSubmitted, ack)
	if sub.State == domain.SubmissionPendingReview {
		s.sendPending()
	}
	return ack, nil
}

func (s *Session) onTick() {
	if s.timer.expired(s.clock.Now()) {
		s.expire()
		return
	}
	s.broadcastTimer()
}

// expire performs the timed transition. The countdown is disarmed first so a
// second expiry signal finds nothing to do.
func (s *Session) expire() {
	s.timer.cancel()
	switch s.phase {
	case domain.PhaseReading:
		s.enterAnswering()
	case domain.PhaseAnswering:
		s.closeAnswering()
	}
}

func (s *Session) enterReading(index int) {
	s.index = index
	s.phase = domain.PhaseReading
	q := s.questions[index]

	reading := s.cfg.ReadingDuration
	if reading > 0 {
		s.timer.arm(reading)
	} else {
		s.timer.cancel()
	}

	payload := domain.QuestionStartPayload{
		QuestionIndex:  index,
		Question:       q,
		TotalQuestions: len(s.questions),
		ReadingSeconds: int(math.Ceil(reading.Seconds())),
	}
	s.send(s.hostConn, domain.EventQuestionStart, payload)
	payload.Question = q.Public()
	s.toPlayers(domain.EventQuestionStart, payload)
	s.publish(domain.EventQuestionStart, payload)

	if reading <= 0 {
		s.enterAnswering()
		return
	}
	s.broadcastTimer()
}

func (s *Session) enterAnswering() {
	q := s.questions[s.index]
	s.phase = domain.PhaseAnswering
	s.answeringAt = s.clock.Now()
	s.timer.arm(time.Duration(q.TimeLimit) * time.Second)

	s.broadcast(domain.EventAnsweringStart, domain.AnsweringStartPayload{
		QuestionIndex: s.index,
		QuestionID:    q.ID,
		TimeLimit:     q.TimeLimit,
	})
	s.broadcastTimer()
}

func (s *Session) closeAnswering() {
	s.timer.cancel()
	q := s.questions[s.index]

	next := domain.PhaseScoreboard
	if q.Type == domain.ShortAnswer && len(s.ledger.pending(q.ID)) > 0 {
		next = domain.PhaseReview
	}
	s.broadcast(domain.EventQuestionEnd, domain.QuestionEndPayload{
		QuestionIndex:     s.index,
		QuestionID:        q.ID,
		CorrectAnswerIDs:  q.CorrectIDs(),
		CorrectAnswerText: q.CorrectAnswerText,
		NextPhase:         next,
	})
	log.Debug().
		Str("room_code", s.code).
		Int("question_index", s.index).
		Int("submissions", s.ledger.count(q.ID)).
		Str("next_phase", string(next)).
		Msg("answering closed")

	if next == domain.PhaseReview {
		s.phase = domain.PhaseReview
		s.sendPending()
		return
	}
	s.enterScoreboard()
}

func (s *Session) enterScoreboard() {
	s.timer.cancel()
	s.phase = domain.PhaseScoreboard
	s.postScores()
	scores := s.scores()
	s.broadcast(domain.EventScoresUpdate, scores)
	s.publish(domain.EventScoresUpdate, scores)
}

func (s *Session) end(reason string) {
	if s.phase == domain.PhaseEnded {
		return
	}
	s.timer.cancel()
	s.postScores()
	s.phase = domain.PhaseEnded
	ended := domain.GameEndedPayload{Reason: reason, Scores: s.scores()}
	s.broadcast(domain.EventGameEnded, ended)
	s.publish(domain.EventGameEnded, ended)
	log.Info().Str("room_code", s.code).Str("reason", reason).Msg("session ended")
}

// award credits points. Outside SCOREBOARD they are held back so the roster
// never shows a half-updated round.
func (s *Session) award(playerID string, points int) {
	if points <= 0 {
		return
	}
	if s.phase == domain.PhaseScoreboard {
		if p := s.players[playerID]; p != nil {
			p.Score += points
		}
		return
	}
	s.unposted[playerID] += points
}

func (s *Session) postScores() {
	for id, pts := range s.unposted {
		if p := s.players[id]; p != nil {
			p.Score += pts
		}
		delete(s.unposted, id)
	}
}

func (s *Session) scores() []domain.Player {
	if s.index < 0 {
		return byJoinOrder(s.players)
	}
	return rank(s.players, s.ledger, s.questions[s.index].ID)
}

func (s *Session) snapshot(connID string) domain.Snapshot {
	isHost := connID != "" && connID == s.hostConn
	snap := domain.Snapshot{
		RoomCode:       s.code,
		QuizID:         s.quizID,
		Phase:          s.phase,
		QuestionIndex:  s.index,
		TotalQuestions: len(s.questions),
		Players:        s.scores(),
		IsHost:         isHost,
	}
	if s.phase.Timed() {
		snap.RemainingSeconds = s.timer.remaining(s.clock.Now())
	}
	if s.index >= 0 && s.index < len(s.questions) {
		q := s.questions[s.index]
		if !isHost {
			q = q.Public()
		}
		snap.Question = &q
	}
	if isHost {
		snap.PendingAnswers = s.pendingAnswers()
	}
	if playerID, ok := s.byConn[connID]; ok {
		if p := s.players[playerID]; p != nil {
			you := *p
			snap.You = &you
		}
		if snap.Question != nil {
			if sub, ok := s.ledger.get(snap.Question.ID, playerID); ok {
				ack := ackFor(sub)
				snap.Answered = true
				snap.LastResult = &ack
			}
		}
	}
	return snap
}

// pendingAnswers lists every unresolved submission up to the current question,
// so answers left unvalidated when REVIEW closed can still be graded later.
func (s *Session) pendingAnswers() []domain.PendingAnswer {
	var subs []*domain.Submission
	for i := 0; i <= s.index && i < len(s.questions); i++ {
		subs = append(subs, s.ledger.pending(s.questions[i].ID)...)
	}
	out := make([]domain.PendingAnswer, 0, len(subs))
	for _, sub := range subs {
		pa := domain.PendingAnswer{
			PlayerID:        sub.PlayerID,
			QuestionID:      sub.QuestionID,
			ResponseTime:    sub.ResponseTime,
			PotentialPoints: sub.PotentialPoints,
		}
		if p := s.players[sub.PlayerID]; p != nil {
			pa.PlayerPseudo = p.Pseudo
		}
		if sub.Payload.AnswerText != nil {
			pa.AnswerText = *sub.Payload.AnswerText
		}
		out = append(out, pa)
	}
	return out
}

func (s *Session) sendPending() {
	s.send(s.hostConn, domain.EventPendingAnswersUpdate, s.pendingAnswers())
}

func (s *Session) broadcastTimer() {
	s.broadcast(domain.EventTimerUpdate, domain.TimerUpdatePayload{
		Phase:            s.phase,
		QuestionIndex:    s.index,
		RemainingSeconds: s.timer.remaining(s.clock.Now()),
	})
}

func (s *Session) findQuestion(id int64) (domain.Question, int, bool) {
	for i, q := range s.questions {
		if q.ID == id {
			return q, i, true
		}
	}
	return domain.Question{}, -1, false
}

func (s *Session) connectedPlayers() int {
	n := 0
	for _, p := range s.players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (s *Session) requireHost(connID string) error {
	if connID != s.hostConn {
		return domain.ErrNotHost
	}
	return nil
}

func (s *Session) send(connID string, eventType string, payload any) {
	if s.sink == nil || connID == "" {
		return
	}
	s.sink.Send(connID, Event{Type: eventType, Payload: payload})
}

func (s *Session) toPlayers(eventType string, payload any) {
	for _, connID := range s.conns {
		s.send(connID, eventType, payload)
	}
}

func (s *Session) broadcast(eventType string, payload any) {
	s.send(s.hostConn, eventType, payload)
	s.toPlayers(eventType, payload)
}

func (s *Session) publish(eventType string, payload any) {
	if err := s.publisher.Publish(context.Background(), s.code, Event{Type: eventType, Payload: payload}); err != nil {
		log.Warn().Err(err).Str("room_code", s.code).Str("event_type", eventType).Msg("publish session event")
	}
}

func ackFor(sub *domain.Submission) domain.AnswerSubmittedPayload {
	ack := domain.AnswerSubmittedPayload{Success: true, QuestionID: sub.QuestionID}
	switch sub.State {
	case domain.SubmissionPendingReview:
		ack.Pending = true
	case domain.SubmissionScored:
		correct, points := sub.IsCorrect, sub.Points
		ack.IsCorrect = &correct
		ack.PointsEarned = &points
	}
	return ack
}
