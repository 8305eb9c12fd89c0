package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shopmap/internal/models"
	"shopmap/internal/testutil"
)

type recordingSender struct {
	mu      sync.Mutex
	digests [][]models.Location
}

func (s *recordingSender) NotifyPendingDigest(_ context.Context, locs []models.Location, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests = append(s.digests, locs)
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.digests)
}

func TestPendingReminder_CheckOnce(t *testing.T) {
	store := testutil.NewMemStore()
	old := time.Now().Add(-72 * time.Hour)

	store.Put(models.Location{Name: "stale", Status: models.StatusPending, CreatedAt: old, UpdatedAt: old})
	store.Put(models.Location{Name: "fresh", Status: models.StatusPending})
	store.Put(models.Location{Name: "approved long ago", Status: models.StatusApproved, CreatedAt: old, UpdatedAt: old})

	sender := &recordingSender{}
	r := NewPendingReminder(store, sender, time.Hour, 48*time.Hour)

	assert.Equal(t, 1, r.checkOnce(context.Background()))
	if assert.Len(t, sender.digests, 1) {
		assert.Equal(t, "stale", sender.digests[0][0].Name)
	}
}

func TestPendingReminder_NothingOverdue(t *testing.T) {
	store := testutil.NewMemStore()
	store.Put(models.Location{Name: "fresh", Status: models.StatusPending})

	sender := &recordingSender{}
	r := NewPendingReminder(store, sender, time.Hour, 48*time.Hour)

	assert.Equal(t, 0, r.checkOnce(context.Background()))
	assert.Empty(t, sender.digests)
}

func TestPendingReminder_SourceError(t *testing.T) {
	store := testutil.NewMemStore()
	store.Fail = errors.New("db down")

	sender := &recordingSender{}
	r := NewPendingReminder(store, sender, time.Hour, time.Hour)

	assert.Equal(t, 0, r.checkOnce(context.Background()))
	assert.Empty(t, sender.digests)
}

func TestPendingReminder_StartStopsOnCancel(t *testing.T) {
	store := testutil.NewMemStore()
	old := time.Now().Add(-time.Hour)
	store.Put(models.Location{Status: models.StatusPending, CreatedAt: old, UpdatedAt: old})

	sender := &recordingSender{}
	r := NewPendingReminder(store, sender, 10*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sender.count() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
