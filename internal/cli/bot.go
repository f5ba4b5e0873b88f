package cli

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"live-quiz-service/internal/client"
	"live-quiz-service/internal/domain"
)

type botOptions struct {
	serverURL string
	room      string
	count     int
	pseudo    string
	maxDelay  time.Duration
}

// NewBotCmd joins a room with simulated players that answer at random.
func NewBotCmd() *cobra.Command {
	opts := botOptions{}
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Join a room with simulated players",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.room == "" {
				return fmt.Errorf("--room is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runBots(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.serverURL, "url", "ws://localhost:8080/ws", "websocket endpoint")
	cmd.Flags().StringVar(&opts.room, "room", "", "room code to join")
	cmd.Flags().IntVar(&opts.count, "count", 3, "number of bots")
	cmd.Flags().StringVar(&opts.pseudo, "pseudo", "bot", "pseudo prefix")
	cmd.Flags().DurationVar(&opts.maxDelay, "max-delay", 5*time.Second, "longest think time before answering")
	return cmd
}

func runBots(ctx context.Context, opts botOptions) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.count; i++ {
		pseudo := fmt.Sprintf("%s-%d", opts.pseudo, i+1)
		g.Go(func() error { return runBot(gctx, opts, pseudo) })
	}
	return g.Wait()
}

func runBot(ctx context.Context, opts botOptions, pseudo string) error {
	playerID := uuid.NewString()
	u, err := url.Parse(opts.serverURL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("playerId", playerID)
	u.RawQuery = q.Encode()

	conn, err := client.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%s: dial: %w", pseudo, err)
	}
	defer conn.Close()

	player := client.NewPlayer(conn, playerID)
	defer player.Close()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	answering := make(chan domain.Question, 1)
	finished := make(chan client.PlayerView, 1)
	lastIndex := -1
	player.OnChange(func(v client.PlayerView) {
		switch {
		case v.Phase == domain.PhaseEnded || v.RoomMissing:
			select {
			case finished <- v:
			default:
			}
		case v.Phase == domain.PhaseAnswering && v.Question != nil && !v.Answered && v.QuestionIndex != lastIndex:
			lastIndex = v.QuestionIndex
			select {
			case answering <- *v.Question:
			default:
			}
		}
	})

	if err := player.Join(opts.room, pseudo); err != nil {
		return err
	}
	log.Info().Str("pseudo", pseudo).Str("room_code", opts.room).Msg("bot joined")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-conn.Done():
			return fmt.Errorf("%s: connection closed", pseudo)
		case v := <-finished:
			if v.RoomMissing {
				return fmt.Errorf("%s: room %s not found", pseudo, opts.room)
			}
			score := 0
			if v.Me != nil {
				score = v.Me.Score
			}
			log.Info().Str("pseudo", pseudo).Int("score", score).Msg("game over")
			return nil
		case question := <-answering:
			delay := time.Duration(rnd.Int63n(int64(opts.maxDelay) + 1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			answer := randomAnswer(rnd, question)
			if err := player.Submit(answer); err != nil {
				return err
			}
			log.Debug().Str("pseudo", pseudo).Int64("question_id", question.ID).Dur("delay", delay).Msg("bot answered")
		}
	}
}

func randomAnswer(rnd *rand.Rand, q domain.Question) domain.SubmitAnswerPayload {
	out := domain.SubmitAnswerPayload{QuestionID: q.ID}
	switch q.Type {
	case domain.ShortAnswer:
		text := "gopher"
		out.AnswerText = &text
	case domain.MultipleSelect:
		for _, a := range q.Answers {
			if rnd.Intn(2) == 0 {
				out.AnswerIDs = append(out.AnswerIDs, a.ID)
			}
		}
		if len(out.AnswerIDs) == 0 && len(q.Answers) > 0 {
			out.AnswerIDs = []int64{q.Answers[0].ID}
		}
	default:
		if len(q.Answers) > 0 {
			id := q.Answers[rnd.Intn(len(q.Answers))].ID
			out.AnswerID = &id
		}
	}
	return out
}
