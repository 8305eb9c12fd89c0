package geocode

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessions_GetReturnsSameResolver(t *testing.T) {
	s := NewSessions(nil, time.Second, time.Minute)

	r1 := s.Get("sess-1")
	r2 := s.Get("sess-1")
	r3 := s.Get("sess-2")

	assert.Same(t, r1, r2)
	assert.NotSame(t, r1, r3)
	assert.Equal(t, 2, s.Len())
}

func TestSessions_PeekAndForget(t *testing.T) {
	s := NewSessions(nil, time.Second, time.Minute)

	_, ok := s.Peek("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	s.Get("sess-1")
	_, ok = s.Peek("sess-1")
	assert.True(t, ok)

	s.Forget("sess-1")
	_, ok = s.Peek("sess-1")
	assert.False(t, ok)
}

func TestSessions_SweepRemovesIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewSessions(nil, time.Second, 10*time.Minute)
	s.now = func() time.Time { return now }

	s.Get("old")
	now = now.Add(8 * time.Minute)
	s.Get("fresh")
	now = now.Add(5 * time.Minute)

	assert.Equal(t, 1, s.Sweep())
	_, ok := s.Peek("old")
	assert.False(t, ok)
	_, ok = s.Peek("fresh")
	assert.True(t, ok)
}

func TestSessions_RunStopsOnCancel(t *testing.T) {
	s := NewSessions(nil, time.Second, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
