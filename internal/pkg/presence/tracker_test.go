package presence

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockZSet is an in-memory sorted set answering the commands the tracker sends
type mockZSet struct {
	mu      sync.Mutex
	scores  map[string]float64
	AddErr  error
	lastKey string
}

func newMockZSet() *mockZSet {
	return &mockZSet{scores: make(map[string]float64)}
}

func (m *mockZSet) ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastKey = key
	cmd := redis.NewIntCmd(ctx)
	if m.AddErr != nil {
		cmd.SetErr(m.AddErr)
		return cmd
	}
	for _, z := range members {
		m.scores[z.Member.(string)] = z.Score
	}
	cmd.SetVal(int64(len(members)))
	return cmd
}

func (m *mockZSet) ZRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, mem := range members {
		if _, ok := m.scores[mem.(string)]; ok {
			delete(m.scores, mem.(string))
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (m *mockZSet) ZCount(ctx context.Context, key, min, max string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	lo, _ := strconv.ParseFloat(min, 64)
	var n int64
	for _, s := range m.scores {
		if s >= lo {
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (m *mockZSet) ZRemRangeByScore(ctx context.Context, key, min, max string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := redis.NewIntCmd(ctx)
	// max arrives as an exclusive bound "(N"
	hi, _ := strconv.ParseFloat(max[1:], 64)
	var n int64
	for k, s := range m.scores {
		if s < hi {
			delete(m.scores, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestRedisTrackerCountsOnlyRecentHeartbeats(t *testing.T) {
	ctx := context.Background()
	zs := newMockZSet()
	tr := NewRedisTracker(zs, "")
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, tr.Touch(ctx, 1, now.Add(-10*time.Minute)))
	require.NoError(t, tr.Touch(ctx, 2, now.Add(-4*time.Minute)))
	require.NoError(t, tr.Touch(ctx, 3, now.Add(-30*time.Second)))
	assert.Equal(t, DefaultKey, zs.lastKey)

	n, err := tr.CountSince(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// the stale member was trimmed
	_, stale := zs.scores["1"]
	assert.False(t, stale)
}

func TestRedisTrackerTouchIsIdempotentPerUser(t *testing.T) {
	ctx := context.Background()
	zs := newMockZSet()
	tr := NewRedisTracker(zs, "presence:test")
	now := time.Now()

	require.NoError(t, tr.Touch(ctx, 7, now.Add(-time.Minute)))
	require.NoError(t, tr.Touch(ctx, 7, now))

	n, err := tr.CountSince(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, tr.Clear(ctx, 7))
	n, err = tr.CountSince(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisTrackerPropagatesErrors(t *testing.T) {
	zs := newMockZSet()
	zs.AddErr = errors.New("connection refused")
	tr := NewRedisTracker(zs, "")

	err := tr.Touch(context.Background(), 1, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

type fakeLastSeen struct {
	seen map[int64]*time.Time
}

func (f *fakeLastSeen) UpdateLastSeen(_ context.Context, userID int64, at *time.Time) error {
	f.seen[userID] = at
	return nil
}

func (f *fakeLastSeen) CountStudentsSeenSince(_ context.Context, since time.Time) (int64, error) {
	var n int64
	for _, at := range f.seen {
		if at != nil && !at.Before(since) {
			n++
		}
	}
	return n, nil
}

func TestStoreTracker(t *testing.T) {
	ctx := context.Background()
	store := &fakeLastSeen{seen: map[int64]*time.Time{}}
	tr := NewStoreTracker(store)
	now := time.Now()

	require.NoError(t, tr.Touch(ctx, 1, now))
	require.NoError(t, tr.Touch(ctx, 2, now.Add(-time.Hour)))
	n, err := tr.CountSince(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, tr.Clear(ctx, 1))
	assert.Nil(t, store.seen[1])
}
