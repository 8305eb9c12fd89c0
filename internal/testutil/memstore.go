package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopmap/internal/db"
	"shopmap/internal/models"
)

// MemStore is an in-memory location store with the same semantics as db.DB.
// Set Fail to make every call return that error, or FailWrites to fail only
// creates, updates and deletes.
type MemStore struct {
	mu        sync.Mutex
	locations []models.Location
	users     map[uuid.UUID]models.User

	Fail       error
	FailWrites error
	Writes     int
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{users: make(map[uuid.UUID]models.User)}
}

// Put inserts loc as-is, assigning an ID if it has none. It bypasses Fail.
func (s *MemStore) Put(loc models.Location) models.Location {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now()
		loc.UpdatedAt = loc.CreatedAt
	}
	s.locations = append(s.locations, loc)
	return loc
}

// AddUser registers a user for GetUserByID and GetAdminEmails.
func (s *MemStore) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemStore) writeErr() error {
	if s.Fail != nil {
		return s.Fail
	}
	return s.FailWrites
}

func (s *MemStore) index(id uuid.UUID) int {
	return slices.IndexFunc(s.locations, func(l models.Location) bool { return l.ID == id })
}

func (s *MemStore) CreateLocation(_ context.Context, loc *models.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr(); err != nil {
		return err
	}
	loc.ID = uuid.New()
	if loc.CreatedAt.IsZero() {
		loc.CreatedAt = time.Now()
	}
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = loc.CreatedAt
	}
	s.locations = append(s.locations, *loc)
	s.Writes++
	return nil
}

func (s *MemStore) GetLocationByID(_ context.Context, id uuid.UUID) (*models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return nil, s.Fail
	}
	i := s.index(id)
	if i < 0 {
		return nil, db.ErrLocationNotFound
	}
	loc := s.locations[i]
	return &loc, nil
}

func (s *MemStore) ListLocations(_ context.Context, filter db.LocationFilter) ([]models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return nil, s.Fail
	}
	out := []models.Location{}
	for _, l := range s.locations {
		if filter.OwnerID != nil && l.OwnerID != *filter.OwnerID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, l.Status) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *MemStore) UpdateLocation(_ context.Context, loc *models.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr(); err != nil {
		return err
	}
	i := s.index(loc.ID)
	if i < 0 {
		return db.ErrLocationNotFound
	}
	if s.locations[i].Category != loc.Category {
		return errors.Join(db.ErrConstraint, errors.New("category is immutable"))
	}
	s.locations[i] = *loc
	s.Writes++
	return nil
}

func (s *MemStore) DeleteLocation(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr(); err != nil {
		return err
	}
	i := s.index(id)
	if i < 0 {
		return db.ErrLocationNotFound
	}
	s.locations = slices.Delete(s.locations, i, i+1)
	s.Writes++
	return nil
}

func (s *MemStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	return &u, nil
}

func (s *MemStore) GetAdminEmails(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var emails []string
	for _, u := range s.users {
		if u.IsAdmin() && u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	slices.Sort(emails)
	return emails, nil
}

func (s *MemStore) GetPendingOlderThan(_ context.Context, age time.Duration) ([]models.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Fail != nil {
		return nil, s.Fail
	}
	cutoff := time.Now().Add(-age)
	var out []models.Location
	for _, l := range s.locations {
		if l.Status == models.StatusPending && l.UpdatedAt.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out, nil
}
