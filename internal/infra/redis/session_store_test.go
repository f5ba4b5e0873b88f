package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

func TestSessionStoreReservesAndReleasesCodes(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	store := NewSessionStore(newClient(mr), time.Hour)

	require.NoError(t, store.Insert(ctx, app.NewSession("ROOM01", "quiz-1")))
	require.True(t, mr.Exists("quiz:room:ROOM01"))
	val, err := mr.Get("quiz:room:ROOM01")
	require.NoError(t, err)
	require.Equal(t, "quiz-1", val)
	require.Equal(t, time.Hour, mr.TTL("quiz:room:ROOM01"))

	_, ok := store.Get("ROOM01")
	require.True(t, ok)

	store.Delete(ctx, "ROOM01")
	require.False(t, mr.Exists("quiz:room:ROOM01"))
	_, ok = store.Get("ROOM01")
	require.False(t, ok)
}

func TestSessionStoreCodesAreUniqueAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	first := NewSessionStore(newClient(mr), time.Hour)
	second := NewSessionStore(newClient(mr), time.Hour)

	require.NoError(t, first.Insert(ctx, app.NewSession("ROOM01", "quiz-1")))
	err = second.Insert(ctx, app.NewSession("ROOM01", "quiz-2"))
	require.ErrorIs(t, err, domain.ErrRoomCodeTaken)

	// second never owned the code, so deleting there must not free it.
	second.Delete(ctx, "ROOM01")
	require.True(t, mr.Exists("quiz:room:ROOM01"))

	mr.FastForward(2 * time.Hour)
	require.NoError(t, second.Insert(ctx, app.NewSession("ROOM01", "quiz-2")))
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
