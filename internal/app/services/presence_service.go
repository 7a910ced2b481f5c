package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/studentportal/internal/app/models"
	"github.com/yigit/studentportal/internal/pkg/metrics"
	"github.com/yigit/studentportal/internal/pkg/presence"
)

// PresenceService tracks student heartbeats and counts who is online
type PresenceService struct {
	tracker presence.Tracker
	window  time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
	logger  zerolog.Logger
}

func NewPresenceService(tracker presence.Tracker, window time.Duration, m *metrics.Metrics, logger zerolog.Logger) *PresenceService {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &PresenceService{
		tracker: tracker,
		window:  window,
		metrics: m,
		now:     time.Now,
		logger:  logger,
	}
}

// Window is how recent a heartbeat must be to count as online
func (s *PresenceService) Window() time.Duration {
	return s.window
}

// Heartbeat records that userID is active. Only students are tracked.
func (s *PresenceService) Heartbeat(ctx context.Context, userID int64, role models.RoleType) error {
	if role != models.RoleStudent {
		return nil
	}
	return s.tracker.Touch(ctx, userID, s.now())
}

// MarkOffline drops the user from the online set
func (s *PresenceService) MarkOffline(ctx context.Context, userID int64) error {
	return s.tracker.Clear(ctx, userID)
}

// CountOnline counts students with a heartbeat inside the window
func (s *PresenceService) CountOnline(ctx context.Context) (int64, error) {
	n, err := s.tracker.CountSince(ctx, s.now().Add(-s.window))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to count online students")
		return 0, err
	}
	s.metrics.SetOnlineStudents(n)
	return n, nil
}
