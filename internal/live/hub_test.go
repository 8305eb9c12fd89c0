package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopmap/internal/models"
	"shopmap/internal/testutil"
)

func seed(store *testutil.MemStore, owner uuid.UUID, status, name string) models.Location {
	return store.Put(models.Location{
		Category: models.CategoryShop,
		Name:     name,
		OwnerID:  owner,
		Status:   status,
	})
}

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "channel closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
		return Snapshot{}
	}
}

func names(locs []models.Location) []string {
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.Name)
	}
	return out
}

func TestParseScope(t *testing.T) {
	for in, want := range map[string]Scope{"": ScopePublic, "public": ScopePublic, "mine": ScopeMine, "all": ScopeAll} {
		got, err := ParseScope(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseScope("pending")
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestHub_SubscribeDeliversInitialSnapshot(t *testing.T) {
	store := testutil.NewMemStore()
	owner := uuid.New()
	seed(store, owner, models.StatusApproved, "open")
	seed(store, owner, models.StatusPending, "waiting")

	hub := NewHub(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	public, err := hub.Subscribe(ctx, Query{Scope: ScopePublic})
	require.NoError(t, err)
	assert.Equal(t, []string{"open"}, names(receive(t, public).Locations))

	mine, err := hub.Subscribe(ctx, Query{Scope: ScopeMine, OwnerID: owner})
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "waiting"}, names(receive(t, mine).Locations))

	other, err := hub.Subscribe(ctx, Query{Scope: ScopeMine, OwnerID: uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, receive(t, other).Locations)
}

func TestHub_NotifyReplacesWholeSnapshot(t *testing.T) {
	store := testutil.NewMemStore()
	owner := uuid.New()
	seed(store, owner, models.StatusApproved, "first")

	hub := NewHub(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := hub.Subscribe(ctx, Query{Scope: ScopePublic})
	require.NoError(t, err)
	initial := receive(t, ch)

	seed(store, owner, models.StatusApproved, "second")
	hub.Notify(ctx)

	next := receive(t, ch)
	assert.Greater(t, next.Seq, initial.Seq)
	assert.Equal(t, []string{"first", "second"}, names(next.Locations))
	// The earlier snapshot is untouched.
	assert.Equal(t, []string{"first"}, names(initial.Locations))
}

func TestHub_SlowSubscriberSeesOnlyLatest(t *testing.T) {
	store := testutil.NewMemStore()
	owner := uuid.New()

	hub := NewHub(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := hub.Subscribe(ctx, Query{Scope: ScopeAll})
	require.NoError(t, err)

	for _, name := range []string{"a", "b", "c"} {
		seed(store, owner, models.StatusPending, name)
		hub.Notify(ctx)
	}

	snap := receive(t, ch)
	assert.Equal(t, []string{"a", "b", "c"}, names(snap.Locations))

	select {
	case extra := <-ch:
		t.Fatalf("unexpected queued snapshot %d", extra.Seq)
	default:
	}
}

func TestHub_FailedRefreshKeepsOldSnapshot(t *testing.T) {
	store := testutil.NewMemStore()
	hub := NewHub(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := hub.Subscribe(ctx, Query{Scope: ScopePublic})
	require.NoError(t, err)
	receive(t, ch)

	store.Fail = errors.New("connection refused")
	hub.Notify(ctx)

	select {
	case <-ch:
		t.Fatal("snapshot delivered after failed refresh")
	default:
	}
}

func TestHub_SubscribeErrorIsReturned(t *testing.T) {
	store := testutil.NewMemStore()
	store.Fail = errors.New("down")

	_, err := NewHub(store).Subscribe(context.Background(), Query{Scope: ScopePublic})
	assert.EqualError(t, err, "down")
}

func TestHub_CancelClosesChannel(t *testing.T) {
	hub := NewHub(testutil.NewMemStore())
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := hub.Subscribe(ctx, Query{Scope: ScopePublic})
	require.NoError(t, err)
	receive(t, ch)
	assert.Equal(t, 1, hub.Len())

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
	assert.Equal(t, 0, hub.Len())

	// Notifying with no subscribers is a no-op.
	hub.Notify(context.Background())
}

type fakeListener struct {
	calls  int32
	notify chan string
}

func (l *fakeListener) Listen(ctx context.Context, _ string, fn func(string)) error {
	n := atomic.AddInt32(&l.calls, 1)
	if n == 1 {
		return errors.New("connection reset")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-l.notify:
			fn(p)
		}
	}
}

func TestHub_FollowReconnectsAndRelaysNotifications(t *testing.T) {
	store := testutil.NewMemStore()
	owner := uuid.New()
	hub := NewHub(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := hub.Subscribe(ctx, Query{Scope: ScopeAll})
	require.NoError(t, err)
	receive(t, ch)

	// The reconnect refresh picks this up even without a notification.
	seed(store, owner, models.StatusPending, "missed")

	listener := &fakeListener{notify: make(chan string)}
	done := make(chan struct{})
	go func() {
		hub.Follow(ctx, listener, 10*time.Millisecond)
		close(done)
	}()

	assert.Equal(t, []string{"missed"}, names(receive(t, ch).Locations))

	seed(store, owner, models.StatusPending, "announced")
	listener.notify <- "some-id"
	assert.Equal(t, []string{"missed", "announced"}, names(receive(t, ch).Locations))

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Follow did not return after cancel")
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&listener.calls))
}
