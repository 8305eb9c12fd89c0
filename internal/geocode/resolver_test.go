package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopmap/internal/apperr"
	"shopmap/internal/geo"
)

type lookupFunc func(ctx context.Context, c geo.Coordinate) (string, error)

func (f lookupFunc) Reverse(ctx context.Context, c geo.Coordinate) (string, error) {
	return f(ctx, c)
}

var (
	pointA = geo.Coordinate{Lat: 13.8197, Lng: 100.5146}
	pointB = geo.Coordinate{Lat: 13.8245, Lng: 100.5302}
)

func TestResolver_StaleResultIsDiscarded(t *testing.T) {
	r := NewResolver(nil, time.Second)

	a := r.Begin(pointA)
	b := r.Begin(pointB)

	assert.False(t, r.Complete(a, "Address A", nil), "stale ticket must not apply")
	snap := r.Snapshot()
	assert.Equal(t, StateResolving, snap.State)
	assert.Empty(t, snap.Address)
	require.NotNil(t, snap.Coordinates)
	assert.Equal(t, pointB, *snap.Coordinates)

	assert.True(t, r.Complete(b, "Address B", nil))
	assert.Equal(t, "Address B", r.Snapshot().Address)

	// A late duplicate of A still cannot overwrite B.
	assert.False(t, r.Complete(a, "Address A", nil))
	assert.Equal(t, "Address B", r.Snapshot().Address)
}

func TestResolver_ConcurrentPicksLastWins(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	lookup := lookupFunc(func(ctx context.Context, c geo.Coordinate) (string, error) {
		if c == pointA {
			close(started)
			<-release
			return "Address A", nil
		}
		return "Address B", nil
	})
	r := NewResolver(lookup, 5*time.Second)

	done := make(chan Snapshot)
	go func() { done <- r.Pick(context.Background(), pointA) }()

	<-started
	assert.False(t, r.CanSubmit(), "submit must wait for the in-flight lookup")

	snapB := r.Pick(context.Background(), pointB)
	assert.Equal(t, StateResolved, snapB.State)
	assert.Equal(t, "Address B", snapB.Address)

	close(release)
	snapA := <-done
	assert.Equal(t, "Address B", snapA.Address)
	assert.Equal(t, snapB.Seq, snapA.Seq, "a superseded pick reports the newer pick's sequence")
	assert.Equal(t, StateResolved, snapA.State)
	assert.Equal(t, "Address B", r.Snapshot().Address)
	assert.True(t, r.CanSubmit())
}

func TestResolver_ManualAddressSupersedesLookup(t *testing.T) {
	r := NewResolver(nil, time.Second)

	t1 := r.Begin(pointA)
	snap := r.SetManual("12 Soi Pracharat")
	assert.Equal(t, StateResolved, snap.State)
	assert.True(t, snap.Manual)

	assert.False(t, r.Complete(t1, "Address A", nil))
	assert.Equal(t, "12 Soi Pracharat", r.Snapshot().Address)
	assert.True(t, r.CanSubmit())
}

func TestResolver_Failure(t *testing.T) {
	tests := []struct {
		name   string
		lookup Lookup
	}{
		{"lookup error", lookupFunc(func(context.Context, geo.Coordinate) (string, error) {
			return "", errors.New("upstream down")
		})},
		{"empty address", lookupFunc(func(context.Context, geo.Coordinate) (string, error) {
			return "", nil
		})},
		{"no lookup configured", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.lookup, time.Second)
			snap := r.Pick(context.Background(), pointA)
			assert.Equal(t, StateFailed, snap.State)
			assert.NotEmpty(t, snap.Reason)
			assert.True(t, r.CanSubmit(), "a failed lookup must not block submission")
		})
	}
}

func TestResolver_FailureReasonHidesCause(t *testing.T) {
	upstream := lookupFunc(func(context.Context, geo.Coordinate) (string, error) {
		return "", apperr.Wrap(apperr.CodeGeocodeUnavailable,
			errors.New("dial tcp 10.0.0.7:443: connection refused"), "nominatim returned 502: <html>bad gateway</html>")
	})
	r := NewResolver(upstream, time.Second)
	snap := r.Pick(context.Background(), pointA)
	assert.Equal(t, StateFailed, snap.State)
	assert.Equal(t, apperr.MetadataFor(apperr.CodeGeocodeUnavailable).PublicMessage, snap.Reason)
	assert.NotContains(t, snap.Reason, "10.0.0.7")
	assert.NotContains(t, snap.Reason, "502")

	empty := NewResolver(lookupFunc(func(context.Context, geo.Coordinate) (string, error) {
		return "", apperr.Wrap(apperr.CodeGeocodeUnavailable, ErrNoResult, "no address found")
	}), time.Second)
	assert.Equal(t, ErrNoResult.Error(), empty.Pick(context.Background(), pointA).Reason)
}

func TestResolver_PickIsBoundedByTimeout(t *testing.T) {
	lookup := lookupFunc(func(ctx context.Context, c geo.Coordinate) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	r := NewResolver(lookup, 20*time.Millisecond)

	snap := r.Pick(context.Background(), pointA)
	assert.Equal(t, StateFailed, snap.State)
}

func TestResolver_InitialState(t *testing.T) {
	r := NewResolver(nil, 0)
	snap := r.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Coordinates)
	assert.True(t, r.CanSubmit())
}
