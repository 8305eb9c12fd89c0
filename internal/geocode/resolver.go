package geocode

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"shopmap/internal/apperr"
	"shopmap/internal/geo"
)

// State of a form's address field.
type State string

const (
	StateIdle      State = "idle"
	StateResolving State = "resolving"
	StateResolved  State = "resolved"
	StateFailed    State = "failed"
)

// ErrLookupInFlight is returned when a form is submitted while its address
// is still being resolved.
var ErrLookupInFlight = errors.New("address lookup in progress")

// Ticket identifies one lookup. Only the ticket with the latest sequence
// number may change the resolver's state.
type Ticket struct {
	Seq         uint64
	Coordinates geo.Coordinate
}

// Snapshot is the observable state of a resolver.
type Snapshot struct {
	State       State           `json:"state"`
	Seq         uint64          `json:"seq"`
	Address     string          `json:"address,omitempty"`
	Manual      bool            `json:"manual"`
	Reason      string          `json:"reason,omitempty"`
	Coordinates *geo.Coordinate `json:"coordinates,omitempty"`
}

// Resolver tracks the address lookup for a single form session.
type Resolver struct {
	lookup  Lookup
	timeout time.Duration

	mu     sync.Mutex
	seq    uint64
	state  State
	addr   string
	manual bool
	reason string
	coords *geo.Coordinate
}

// NewResolver creates an idle resolver. Each lookup is bounded by timeout.
func NewResolver(lookup Lookup, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Resolver{lookup: lookup, timeout: timeout, state: StateIdle}
}

// Begin records a new coordinate pick and supersedes any earlier lookup.
func (r *Resolver) Begin(c geo.Coordinate) Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.state = StateResolving
	r.addr = ""
	r.manual = false
	r.reason = ""
	r.coords = &c
	return Ticket{Seq: r.seq, Coordinates: c}
}

// Complete applies the result of t's lookup. It reports false and changes
// nothing when a newer pick or a manual address superseded t.
func (r *Resolver) Complete(t Ticket, addr string, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.Seq != r.seq {
		return false
	}

	switch {
	case err != nil:
		log.Warn().Err(err).Stringer("coordinates", t.Coordinates).Msg("address lookup failed")
		r.state = StateFailed
		r.reason = failureReason(err)
	case addr == "":
		r.state = StateFailed
		r.reason = ErrNoResult.Error()
	default:
		r.state = StateResolved
		r.addr = addr
	}
	return true
}

// failureReason is the client-facing text for a failed lookup. Upstream
// bodies and transport errors stay in the log.
func failureReason(err error) string {
	if errors.Is(err, ErrNoResult) {
		return ErrNoResult.Error()
	}
	return apperr.MetadataFor(apperr.CodeGeocodeUnavailable).PublicMessage
}

// SetManual records a typed address. Late lookup results are discarded.
func (r *Resolver) SetManual(addr string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.state = StateResolved
	r.addr = addr
	r.manual = true
	r.reason = ""
	return r.snapshotLocked()
}

// Pick starts a lookup for c and waits for it. The returned snapshot is the
// resolver's state afterwards, which belongs to a newer pick if c was superseded.
func (r *Resolver) Pick(ctx context.Context, c geo.Coordinate) Snapshot {
	t := r.Begin(c)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		addr string
		err  error
	)
	if r.lookup == nil {
		err = errors.New("geocoding is disabled")
	} else {
		addr, err = r.lookup.Reverse(ctx, c)
	}
	r.Complete(t, addr, err)

	return r.Snapshot()
}

// Snapshot returns the current state.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Resolver) snapshotLocked() Snapshot {
	s := Snapshot{
		State:   r.state,
		Seq:     r.seq,
		Address: r.addr,
		Manual:  r.manual,
		Reason:  r.reason,
	}
	if r.coords != nil {
		c := *r.coords
		s.Coordinates = &c
	}
	return s
}

// CanSubmit is false while a lookup is in flight.
func (r *Resolver) CanSubmit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state != StateResolving
}
