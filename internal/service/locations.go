// Package service runs moderation transitions against storage and reports
// every failure as an apperr.Error the transport layer can render.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"shopmap/internal/apperr"
	"shopmap/internal/db"
	"shopmap/internal/directory"
	"shopmap/internal/metrics"
	"shopmap/internal/models"
	"shopmap/internal/moderation"
)

// Store is the storage the service needs. *db.DB implements it.
type Store interface {
	CreateLocation(ctx context.Context, loc *models.Location) error
	GetLocationByID(ctx context.Context, id uuid.UUID) (*models.Location, error)
	ListLocations(ctx context.Context, filter db.LocationFilter) ([]models.Location, error)
	UpdateLocation(ctx context.Context, loc *models.Location) error
	DeleteLocation(ctx context.Context, id uuid.UUID) error
}

// Notifier is told about transitions after they are stored.
type Notifier interface {
	NotifyLocationSubmitted(ctx context.Context, loc *models.Location)
	NotifyLocationResubmitted(ctx context.Context, loc *models.Location)
	NotifyLocationApproved(ctx context.Context, loc *models.Location)
	NotifyLocationRejected(ctx context.Context, loc *models.Location)
}

// LocationService applies moderation transitions to stored locations.
type LocationService struct {
	store    Store
	machine  *moderation.Machine
	notifier Notifier
}

// New creates a service. notifier may be nil.
func New(store Store, machine *moderation.Machine, notifier Notifier) *LocationService {
	return &LocationService{store: store, machine: machine, notifier: notifier}
}

// Machine returns the moderation machine, for listing allowed actions.
func (s *LocationService) Machine() *moderation.Machine {
	return s.machine
}

// Submit admits a new location as pending and stores it.
func (s *LocationService) Submit(ctx context.Context, actor models.Actor, draft models.LocationDraft) (*models.Location, error) {
	if actor.IsAnonymous() {
		return nil, record(moderation.ActionSubmit, unauthorized())
	}

	loc, err := s.machine.Submit(actor, draft)
	recordAdmission(err)
	if err != nil {
		return nil, record(moderation.ActionSubmit, err)
	}

	if err := s.store.CreateLocation(ctx, &loc); err != nil {
		return nil, record(moderation.ActionSubmit, persistence(err, "failed to save location"))
	}
	record(moderation.ActionSubmit, nil)

	log.Info().
		Str("location_id", loc.ID.String()).
		Str("owner_id", actor.ID.String()).
		Str("category", loc.Category).
		Msg("location submitted")

	if s.notifier != nil {
		s.notifier.NotifyLocationSubmitted(ctx, &loc)
	}
	return &loc, nil
}

// Get returns a location the actor may see. Approved locations are public,
// owners also see their own, admins see everything. Anything else is reported
// as not found.
func (s *LocationService) Get(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Location, error) {
	loc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(actor, loc) {
		return nil, apperr.New(apperr.CodeNotFound, "location not found")
	}
	return loc, nil
}

// CanView reports whether actor may see loc.
func CanView(actor models.Actor, loc *models.Location) bool {
	return loc.IsApproved() || actor.IsAdmin() || (!actor.IsAnonymous() && loc.IsOwnedBy(actor.ID))
}

// ListForActor returns every location for admins and the actor's own
// locations for owners, in submission order.
func (s *LocationService) ListForActor(ctx context.Context, actor models.Actor) ([]models.Location, error) {
	if actor.IsAnonymous() {
		return nil, unauthorized()
	}

	var filter db.LocationFilter
	if !actor.IsAdmin() {
		filter.OwnerID = &actor.ID
	}
	locs, err := s.store.ListLocations(ctx, filter)
	if err != nil {
		return nil, persistence(err, "failed to list locations")
	}
	return locs, nil
}

// ListOwned returns the actor's own locations, also for admins.
func (s *LocationService) ListOwned(ctx context.Context, actor models.Actor) ([]models.Location, error) {
	if actor.IsAnonymous() {
		return nil, unauthorized()
	}
	locs, err := s.store.ListLocations(ctx, db.LocationFilter{OwnerID: &actor.ID})
	if err != nil {
		return nil, persistence(err, "failed to list locations")
	}
	return locs, nil
}

// Directory projects the approved locations for the public map.
func (s *LocationService) Directory(ctx context.Context, filter directory.Filter) (directory.View, error) {
	locs, err := s.store.ListLocations(ctx, db.LocationFilter{Statuses: []string{models.StatusApproved}})
	if err != nil {
		return directory.View{}, persistence(err, "failed to load directory")
	}
	return directory.Project(locs, filter), nil
}

// Resubmit edits a location and sends it back to review.
func (s *LocationService) Resubmit(ctx context.Context, actor models.Actor, id uuid.UUID, draft models.LocationDraft) (*models.Location, error) {
	return s.transition(ctx, actor, id, moderation.ActionResubmit, func(loc models.Location) (models.Location, error) {
		next, err := s.machine.Resubmit(actor, loc, draft)
		if !errors.Is(err, moderation.ErrNotPermitted) && !errors.Is(err, moderation.ErrInvalidState) {
			recordAdmission(err)
		}
		return next, err
	})
}

// Approve publishes a pending or rejected location.
func (s *LocationService) Approve(ctx context.Context, actor models.Actor, id uuid.UUID) (*models.Location, error) {
	return s.transition(ctx, actor, id, moderation.ActionApprove, func(loc models.Location) (models.Location, error) {
		return s.machine.Approve(actor, loc)
	})
}

// Reject returns a pending or approved location to its owner with reason.
func (s *LocationService) Reject(ctx context.Context, actor models.Actor, id uuid.UUID, reason string) (*models.Location, error) {
	return s.transition(ctx, actor, id, moderation.ActionReject, func(loc models.Location) (models.Location, error) {
		return s.machine.Reject(actor, loc, reason)
	})
}

// Archive withdraws an owner's location with reason.
func (s *LocationService) Archive(ctx context.Context, actor models.Actor, id uuid.UUID, reason string) (*models.Location, error) {
	return s.transition(ctx, actor, id, moderation.ActionArchive, func(loc models.Location) (models.Location, error) {
		return s.machine.Archive(actor, loc, reason)
	})
}

// Delete permanently removes a location. Admins only.
func (s *LocationService) Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	if actor.IsAnonymous() {
		return record(moderation.ActionDelete, unauthorized())
	}

	loc, err := s.load(ctx, id)
	if err != nil {
		return record(moderation.ActionDelete, err)
	}
	if err := s.machine.Authorize(actor, moderation.ActionDelete, loc); err != nil {
		return record(moderation.ActionDelete, err)
	}

	if err := s.store.DeleteLocation(ctx, id); err != nil {
		if errors.Is(err, db.ErrLocationNotFound) {
			return record(moderation.ActionDelete, apperr.Wrap(apperr.CodeNotFound, err, "location not found"))
		}
		return record(moderation.ActionDelete, persistence(err, "failed to delete location"))
	}
	record(moderation.ActionDelete, nil)

	log.Info().
		Str("location_id", id.String()).
		Str("admin_id", actor.ID.String()).
		Str("status", loc.Status).
		Msg("location deleted")
	return nil
}

// transition loads the record, applies fn and stores the result. The stored
// record is untouched when fn or the write fails.
func (s *LocationService) transition(
	ctx context.Context,
	actor models.Actor,
	id uuid.UUID,
	action moderation.Action,
	fn func(models.Location) (models.Location, error),
) (*models.Location, error) {
	if actor.IsAnonymous() {
		return nil, record(action, unauthorized())
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, record(action, err)
	}

	next, err := fn(*current)
	if err != nil {
		return nil, record(action, err)
	}

	if err := s.store.UpdateLocation(ctx, &next); err != nil {
		if errors.Is(err, db.ErrLocationNotFound) {
			return nil, record(action, apperr.Wrap(apperr.CodeNotFound, err, "location not found"))
		}
		return nil, record(action, persistence(err, "failed to save location"))
	}
	record(action, nil)

	log.Info().
		Str("location_id", next.ID.String()).
		Str("actor_id", actor.ID.String()).
		Str("action", string(action)).
		Str("from", current.Status).
		Str("to", next.Status).
		Msg("location transitioned")

	s.notify(ctx, action, &next)
	return &next, nil
}

func (s *LocationService) notify(ctx context.Context, action moderation.Action, loc *models.Location) {
	if s.notifier == nil {
		return
	}
	switch action {
	case moderation.ActionResubmit:
		s.notifier.NotifyLocationResubmitted(ctx, loc)
	case moderation.ActionApprove:
		s.notifier.NotifyLocationApproved(ctx, loc)
	case moderation.ActionReject:
		s.notifier.NotifyLocationRejected(ctx, loc)
	}
}

func (s *LocationService) load(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	loc, err := s.store.GetLocationByID(ctx, id)
	if errors.Is(err, db.ErrLocationNotFound) {
		return nil, apperr.Wrap(apperr.CodeNotFound, err, "location not found")
	}
	if err != nil {
		return nil, persistence(err, "failed to load location")
	}
	return loc, nil
}

func unauthorized() *apperr.Error {
	return apperr.New(apperr.CodeUnauthorized, "sign in to continue")
}

// persistence maps a storage error. Constraint violations mean the write was
// refused as invalid, not that storage is unavailable.
func persistence(err error, msg string) *apperr.Error {
	if errors.Is(err, db.ErrConstraint) {
		return apperr.Wrap(apperr.CodeValidation, err, "location violates a data constraint")
	}
	return apperr.Wrap(apperr.CodePersistence, err, msg)
}

// record counts the outcome of action and returns err unchanged.
func record(action moderation.Action, err error) error {
	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
	case apperr.Is(err, apperr.CodePersistence), apperr.Is(err, apperr.CodeInternal):
		outcome = metrics.OutcomeError
	default:
		outcome = metrics.OutcomeDenied
	}
	metrics.RecordTransition(string(action), outcome)
	return err
}

func recordAdmission(err error) {
	switch {
	case err == nil:
		metrics.RecordAdmission(true)
	case apperr.Is(err, apperr.CodeAdmissionRejected):
		metrics.RecordAdmission(false)
	}
}
