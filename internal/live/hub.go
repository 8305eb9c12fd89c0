// Package live pushes full location snapshots to subscribers whenever the
// locations table changes.
//
// Every snapshot replaces the previous one in its entirety. Consumers never
// merge deltas, and a slow consumer only ever sees the newest snapshot.
package live

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"shopmap/internal/db"
	"shopmap/internal/metrics"
	"shopmap/internal/models"
)

// Scope selects which records a subscription sees.
type Scope string

const (
	ScopePublic Scope = "public" // approved records only
	ScopeMine   Scope = "mine"   // every record of one owner
	ScopeAll    Scope = "all"    // every record, for admins
)

var ErrInvalidScope = errors.New("scope must be public, mine or all")

// ParseScope validates a scope name. Empty means public.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopePublic:
		return ScopePublic, nil
	case ScopeMine:
		return ScopeMine, nil
	case ScopeAll:
		return ScopeAll, nil
	}
	return "", ErrInvalidScope
}

// Query is the predicate of one subscription.
type Query struct {
	Scope   Scope
	OwnerID uuid.UUID // ScopeMine only
}

// Filter converts the query to a storage filter.
func (q Query) Filter() db.LocationFilter {
	switch q.Scope {
	case ScopeMine:
		id := q.OwnerID
		return db.LocationFilter{OwnerID: &id}
	case ScopeAll:
		return db.LocationFilter{}
	default:
		return db.LocationFilter{Statuses: []string{models.StatusApproved}}
	}
}

// Snapshot is the full result of a query at one point in time. It must be
// treated as read-only.
type Snapshot struct {
	Seq       uint64            `json:"seq"`
	At        time.Time         `json:"at"`
	Locations []models.Location `json:"locations"`
}

// Source lists locations for a query.
type Source interface {
	ListLocations(ctx context.Context, filter db.LocationFilter) ([]models.Location, error)
}

// Listener delivers change notifications. *db.DB implements it.
type Listener interface {
	Listen(ctx context.Context, channel string, fn func(payload string)) error
}

type subscription struct {
	query Query
	ch    chan Snapshot
}

// deliver replaces any unread snapshot with snap. Callers hold Hub.mu.
func (s *subscription) deliver(snap Snapshot) {
	for {
		select {
		case s.ch <- snap:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Hub fans out snapshots to subscribers.
type Hub struct {
	source Source
	now    func() time.Time

	// refresh serialises Notify so snapshots are delivered in query order.
	refresh sync.Mutex

	mu   sync.Mutex
	seq  uint64
	subs map[*subscription]struct{}
}

// NewHub creates a hub reading from source.
func NewHub(source Source) *Hub {
	return &Hub{
		source: source,
		now:    time.Now,
		subs:   make(map[*subscription]struct{}),
	}
}

// Subscribe returns a channel that immediately holds the current snapshot for
// q and receives a new one after every change. The channel is closed when ctx
// is cancelled.
func (h *Hub) Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error) {
	h.refresh.Lock()
	defer h.refresh.Unlock()

	locs, err := h.source.ListLocations(ctx, q.Filter())
	if err != nil {
		return nil, err
	}

	sub := &subscription{query: q, ch: make(chan Snapshot, 1)}

	h.mu.Lock()
	h.seq++
	sub.deliver(Snapshot{Seq: h.seq, At: h.now(), Locations: locs})
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	metrics.SubscriberOpened()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, sub)
		close(sub.ch)
		h.mu.Unlock()
		metrics.SubscriberClosed()
	}()

	return sub.ch, nil
}

// Len returns the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Notify re-runs every distinct subscribed query and pushes the results.
// Queries that fail are logged and their subscribers keep the old snapshot.
func (h *Hub) Notify(ctx context.Context) {
	h.refresh.Lock()
	defer h.refresh.Unlock()

	h.mu.Lock()
	queries := make(map[Query]struct{}, len(h.subs))
	for sub := range h.subs {
		queries[sub.query] = struct{}{}
	}
	h.mu.Unlock()

	if len(queries) == 0 {
		return
	}

	results := make(map[Query][]models.Location, len(queries))
	for q := range queries {
		locs, err := h.source.ListLocations(ctx, q.Filter())
		if err != nil {
			log.Error().Err(err).Str("scope", string(q.Scope)).Msg("failed to refresh live snapshot")
			continue
		}
		results[q] = locs
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	at := h.now()
	for sub := range h.subs {
		locs, ok := results[sub.query]
		if !ok {
			continue
		}
		sub.deliver(Snapshot{Seq: h.seq, At: at, Locations: slices.Clone(locs)})
	}
}

// Follow listens for table changes and calls Notify for each one. When the
// listen connection drops it refreshes once and reconnects after retry.
// Returns when ctx is cancelled.
func (h *Hub) Follow(ctx context.Context, listener Listener, retry time.Duration) {
	log.Info().Str("channel", db.LocationsChannel).Msg("live updates started")

	for {
		err := listener.Listen(ctx, db.LocationsChannel, func(string) {
			h.Notify(ctx)
		})
		if ctx.Err() != nil {
			log.Info().Msg("live updates stopped")
			return
		}
		if err != nil {
			log.Warn().Err(err).Dur("retry", retry).Msg("live listen connection lost")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("live updates stopped")
			return
		case <-time.After(retry):
		}
		// Changes made while disconnected were not announced.
		h.Notify(ctx)
	}
}
