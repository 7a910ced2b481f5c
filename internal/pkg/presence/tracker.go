package presence

import (
	"context"
	"time"
)

// Tracker records when users were last seen and counts who is online.
// Implementations keep their state outside the process so every API
// instance sees the same numbers.
type Tracker interface {
	Touch(ctx context.Context, userID int64, at time.Time) error
	Clear(ctx context.Context, userID int64) error
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// LastSeenStore is the persistence the database tracker needs
type LastSeenStore interface {
	UpdateLastSeen(ctx context.Context, userID int64, at *time.Time) error
	CountStudentsSeenSince(ctx context.Context, since time.Time) (int64, error)
}

// StoreTracker derives presence from users.last_seen_at
type StoreTracker struct {
	store LastSeenStore
}

func NewStoreTracker(store LastSeenStore) *StoreTracker {
	return &StoreTracker{store: store}
}

func (t *StoreTracker) Touch(ctx context.Context, userID int64, at time.Time) error {
	return t.store.UpdateLastSeen(ctx, userID, &at)
}

func (t *StoreTracker) Clear(ctx context.Context, userID int64) error {
	return t.store.UpdateLastSeen(ctx, userID, nil)
}

func (t *StoreTracker) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return t.store.CountStudentsSeenSince(ctx, since)
}
