package geocode

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	resolver *Resolver
	lastSeen time.Time
}

// Sessions holds one Resolver per form session and expires idle ones.
type Sessions struct {
	lookup  Lookup
	timeout time.Duration
	idle    time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

// NewSessions creates a registry whose resolvers share lookup.
func NewSessions(lookup Lookup, timeout, idle time.Duration) *Sessions {
	return &Sessions{
		lookup:  lookup,
		timeout: timeout,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*sessionEntry),
	}
}

// Get returns the resolver for id, creating it if needed.
func (s *Sessions) Get(id string) *Resolver {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		e = &sessionEntry{resolver: NewResolver(s.lookup, s.timeout)}
		s.entries[id] = e
	}
	e.lastSeen = s.now()
	return e.resolver
}

// Peek returns the resolver for id without creating one.
func (s *Sessions) Peek(id string) (*Resolver, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.resolver, true
}

// Forget drops the resolver for id, typically after a successful submit.
func (s *Sessions) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len returns the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes sessions idle for longer than the configured duration.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idle)
	removed := 0
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("expired geocode sessions")
			}
		}
	}
}
