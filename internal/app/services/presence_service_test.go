package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/pkg/metrics"
)

func TestPresenceCountsOnlyRecentStudents(t *testing.T) {
	tracker := newFakeTracker()
	m := metrics.New()
	svc := NewPresenceService(tracker, 5*time.Minute, m, zerolog.Nop())
	ctx := context.Background()

	svc.now = fixedClock(testNow.Add(-10 * time.Minute))
	require.NoError(t, svc.Heartbeat(ctx, 1, models.RoleStudent))

	svc.now = fixedClock(testNow.Add(-time.Minute))
	require.NoError(t, svc.Heartbeat(ctx, 2, models.RoleStudent))
	require.NoError(t, svc.Heartbeat(ctx, 3, models.RoleStudent))
	require.NoError(t, svc.Heartbeat(ctx, 4, models.RoleAdmin))

	svc.now = fixedClock(testNow)
	n, err := svc.CountOnline(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, svc.MarkOffline(ctx, 3))
	n, err = svc.CountOnline(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var gauge float64
	for _, f := range families {
		if f.GetName() == "studentportal_online_students" {
			gauge = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 1.0, gauge)
}

func TestPresenceCountError(t *testing.T) {
	tracker := newFakeTracker()
	tracker.err = errors.New("redis: connection refused")
	svc := NewPresenceService(tracker, 0, nil, zerolog.Nop())

	_, err := svc.CountOnline(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 5*time.Minute, svc.Window())
}
