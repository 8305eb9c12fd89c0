// Package moderation implements the lifecycle of a location record: which
// actor may move a record between pending, approved, rejected and archived,
// and the field resets each move applies.
//
// Transitions never mutate their input. They return a modified copy, so a
// failed transition leaves the caller's record exactly as it was.
package moderation

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"shopmap/internal/apperr"
	"shopmap/internal/geo"
	"shopmap/internal/models"
)

var (
	ErrNotPermitted      = errors.New("actor is not permitted to perform this action")
	ErrInvalidState      = errors.New("action is not available in the current state")
	ErrReasonRequired    = errors.New("a reason is required")
	ErrMissingField      = errors.New("required field is missing")
	ErrCategoryImmutable = errors.New("category cannot be changed")
	ErrInvalidCategory   = errors.New("category must be shop or booth")
	ErrInvalidCoordinate = errors.New("coordinates are out of range")
	ErrOutsideGeofence   = errors.New("location is outside the permitted area")
)

// Action names a transition.
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionResubmit Action = "resubmit"
	ActionArchive  Action = "archive"
	ActionDelete   Action = "delete"
)

// Who may perform a transition.
type party int

const (
	partyAdmin party = 1 << iota
	partyOwner       // any signed-in owner, regardless of the record
	partyRecordOwner // the owner of this record
)

type rule struct {
	from []string // empty means no record exists yet
	to   string   // empty means the record is removed
	by   party
	any  bool // available from every state
}

var rules = map[Action]rule{
	ActionSubmit:   {to: models.StatusPending, by: partyOwner | partyAdmin},
	ActionApprove:  {from: []string{models.StatusPending, models.StatusRejected}, to: models.StatusApproved, by: partyAdmin},
	ActionReject:   {from: []string{models.StatusPending, models.StatusApproved}, to: models.StatusRejected, by: partyAdmin},
	ActionResubmit: {from: []string{models.StatusApproved, models.StatusPending, models.StatusRejected}, to: models.StatusPending, by: partyRecordOwner | partyAdmin},
	ActionArchive:  {from: []string{models.StatusPending, models.StatusApproved, models.StatusRejected}, to: models.StatusArchived, by: partyRecordOwner},
	ActionDelete:   {any: true, by: partyAdmin},
}

// AdmissionDetails is attached to ADMISSION_REJECTED errors.
type AdmissionDetails struct {
	DistanceKm  float64 `json:"distance_km"`
	MaxRadiusKm float64 `json:"max_radius_km"`
}

// Machine applies transitions. The geofence gates submit and resubmit.
type Machine struct {
	fence geo.Geofence
	now   func() time.Time
}

// New creates a machine that admits submissions within fence.
func New(fence geo.Geofence) *Machine {
	return &Machine{fence: fence, now: time.Now}
}

// WithClock replaces the clock used for timestamps.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// Geofence returns the configured fence.
func (m *Machine) Geofence() geo.Geofence {
	return m.fence
}

// Authorize reports whether actor may perform action on loc. loc is nil for
// submit. The result depends only on the arguments.
func (m *Machine) Authorize(actor models.Actor, action Action, loc *models.Location) error {
	r, ok := rules[action]
	if !ok {
		return validation(ErrNotPermitted, fmt.Sprintf("unknown action %q", action))
	}

	if !r.permits(actor, loc) {
		return validation(ErrNotPermitted, fmt.Sprintf("you are not allowed to %s this location", action)).
			WithHTTPStatus(http.StatusForbidden)
	}

	if action == ActionSubmit {
		return nil
	}
	if loc == nil {
		return validation(ErrInvalidState, "location is required")
	}
	if !r.any && !slices.Contains(r.from, loc.Status) {
		return validation(ErrInvalidState, fmt.Sprintf("cannot %s a location that is %s", action, loc.Status))
	}
	return nil
}

// Allowed lists the actions actor may currently perform on loc.
func (m *Machine) Allowed(actor models.Actor, loc *models.Location) []Action {
	var out []Action
	for _, a := range []Action{ActionApprove, ActionReject, ActionResubmit, ActionArchive, ActionDelete} {
		if m.Authorize(actor, a, loc) == nil {
			out = append(out, a)
		}
	}
	return out
}

func (r rule) permits(actor models.Actor, loc *models.Location) bool {
	if actor.IsAnonymous() {
		return false
	}
	if r.by&partyAdmin != 0 && actor.IsAdmin() {
		return true
	}
	if r.by&partyOwner != 0 && actor.Role == models.RoleOwner {
		return true
	}
	if r.by&partyRecordOwner != 0 && loc != nil && loc.IsOwnedBy(actor.ID) {
		return true
	}
	return false
}

// Submit admits a new location and returns it in the pending state.
func (m *Machine) Submit(actor models.Actor, draft models.LocationDraft) (models.Location, error) {
	if err := m.Authorize(actor, ActionSubmit, nil); err != nil {
		return models.Location{}, err
	}
	if !models.IsValidCategory(draft.Category) {
		return models.Location{}, validation(ErrInvalidCategory, "category must be shop or booth")
	}

	draft = normalize(draft)
	if err := checkFields(draft); err != nil {
		return models.Location{}, err
	}
	if err := m.admit(draft.Coordinates); err != nil {
		return models.Location{}, err
	}

	now := m.now()
	return models.Location{
		Category:       draft.Category,
		Name:           draft.Name,
		Address:        draft.Address,
		OperatingHours: draft.OperatingHours,
		Description:    draft.Description,
		Coordinates:    draft.Coordinates,
		OwnerID:        actor.ID,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Resubmit applies an edit and sends the location back to review.
func (m *Machine) Resubmit(actor models.Actor, loc models.Location, draft models.LocationDraft) (models.Location, error) {
	if err := m.Authorize(actor, ActionResubmit, &loc); err != nil {
		return loc, err
	}
	if draft.Category == "" {
		draft.Category = loc.Category
	}
	if draft.Category != loc.Category {
		return loc, validation(ErrCategoryImmutable, "category cannot be changed")
	}

	draft = normalize(draft)
	if err := checkFields(draft); err != nil {
		return loc, err
	}
	if err := m.admit(draft.Coordinates); err != nil {
		return loc, err
	}

	next := loc
	next.Name = draft.Name
	next.Address = draft.Address
	next.OperatingHours = draft.OperatingHours
	next.Description = draft.Description
	next.Coordinates = draft.Coordinates
	next.Status = models.StatusPending
	next.RejectionReason = ""
	next.UpdatedAt = m.now()
	return next, nil
}

// Approve publishes the location.
func (m *Machine) Approve(actor models.Actor, loc models.Location) (models.Location, error) {
	if err := m.Authorize(actor, ActionApprove, &loc); err != nil {
		return loc, err
	}

	now := m.now()
	next := loc
	next.Status = models.StatusApproved
	next.RejectionReason = ""
	next.ReviewedBy = &actor.ID
	next.ReviewedAt = &now
	next.UpdatedAt = now
	return next, nil
}

// Reject sends the location back to its owner with a reason.
func (m *Machine) Reject(actor models.Actor, loc models.Location, reason string) (models.Location, error) {
	if err := m.Authorize(actor, ActionReject, &loc); err != nil {
		return loc, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return loc, validation(ErrReasonRequired, "a rejection reason is required")
	}

	now := m.now()
	next := loc
	next.Status = models.StatusRejected
	next.RejectionReason = reason
	next.ReviewedBy = &actor.ID
	next.ReviewedAt = &now
	next.UpdatedAt = now
	return next, nil
}

// Archive withdraws the location. Only its owner may do this.
func (m *Machine) Archive(actor models.Actor, loc models.Location, reason string) (models.Location, error) {
	if err := m.Authorize(actor, ActionArchive, &loc); err != nil {
		return loc, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return loc, validation(ErrReasonRequired, "an archive reason is required")
	}

	next := loc
	next.Status = models.StatusArchived
	next.ArchiveReason = reason
	next.RejectionReason = ""
	next.UpdatedAt = m.now()
	return next, nil
}

func (m *Machine) admit(c geo.Coordinate) error {
	if !c.Valid() {
		return validation(ErrInvalidCoordinate, "coordinates are out of range")
	}
	d := m.fence.Admit(c)
	if d.Accepted {
		return nil
	}
	return apperr.Wrap(apperr.CodeAdmissionRejected, ErrOutsideGeofence,
		fmt.Sprintf("location is %.2f km away; it must be within %.2f km", d.DistanceKm, m.fence.MaxRadiusKm)).
		WithDetails(AdmissionDetails{DistanceKm: d.DistanceKm, MaxRadiusKm: m.fence.MaxRadiusKm})
}

func normalize(d models.LocationDraft) models.LocationDraft {
	d.Name = strings.TrimSpace(d.Name)
	d.Address = strings.TrimSpace(d.Address)
	d.OperatingHours = strings.TrimSpace(d.OperatingHours)
	d.Description = strings.TrimSpace(d.Description)
	if d.Category == models.CategoryBooth && d.OperatingHours == "" {
		d.OperatingHours = models.DefaultBoothHours
	}
	return d
}

func checkFields(d models.LocationDraft) error {
	var missing []string
	if d.Name == "" {
		missing = append(missing, "name")
	}
	if d.Address == "" {
		missing = append(missing, "address")
	}
	if d.OperatingHours == "" {
		missing = append(missing, "operating_hours")
	}
	if len(missing) == 0 {
		return nil
	}
	return validation(ErrMissingField, "missing required fields: "+strings.Join(missing, ", ")).
		WithDetails(map[string][]string{"missing": missing})
}

func validation(cause error, msg string) *apperr.Error {
	return apperr.Wrap(apperr.CodeValidation, cause, msg)
}
