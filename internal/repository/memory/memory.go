// Package memory is an in-process implementation of the repository
// contracts. It backs STORAGE=memory for local runs and the unit tests of
// the packages above it, and enforces the same uniqueness rules as the
// Postgres schema.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/crmerr"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/lalith-99/sitetrack/internal/repository"
)

// DB holds every table. The zero value is not usable; call New.
type DB struct {
	mu    sync.Mutex
	now   func() time.Time
	seq   int64
	order map[uuid.UUID]int64

	owners map[uuid.UUID]models.Owner
	actors map[uuid.UUID]models.Actor
	reps   map[uuid.UUID]models.Representative
	sites  map[uuid.UUID]models.Site
	logs   map[uuid.UUID]models.ActivityLog
}

type Option func(*DB)

// WithClock overrides time.Now for created_at and log dates.
func WithClock(now func() time.Time) Option {
	return func(db *DB) {
		if now != nil {
			db.now = now
		}
	}
}

func New(opts ...Option) *DB {
	db := &DB{
		now:    time.Now,
		order:  make(map[uuid.UUID]int64),
		owners: make(map[uuid.UUID]models.Owner),
		actors: make(map[uuid.UUID]models.Actor),
		reps:   make(map[uuid.UUID]models.Representative),
		sites:  make(map[uuid.UUID]models.Site),
		logs:   make(map[uuid.UUID]models.ActivityLog),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Backend returns the entity repositories a store.Store needs.
func (db *DB) Backend() repository.Backend {
	return repository.Backend{
		Representatives: RepresentativeStore{db},
		Sites:           SiteStore{db},
		Logs:            ActivityLogStore{db},
	}
}

func (db *DB) Owners() repository.OwnerRepository { return OwnerStore{db} }
func (db *DB) Actors() ActorStore                  { return ActorStore{db} }

// newID must be called with mu held. The sequence keeps list order stable
// when two rows share a timestamp.
func (db *DB) newID() uuid.UUID {
	id := uuid.New()
	db.seq++
	db.order[id] = db.seq
	return id
}

func (db *DB) less(a, b uuid.UUID) bool { return db.order[a] < db.order[b] }

// OwnerStore -------------------------------------------------------------

type OwnerStore struct{ db *DB }

func (s OwnerStore) Create(_ context.Context, name string) (*models.Owner, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	o := models.Owner{ID: s.db.newID(), Name: name, CreatedAt: s.db.now()}
	s.db.owners[o.ID] = o
	return &o, nil
}

// ActorStore -------------------------------------------------------------

type ActorStore struct{ db *DB }

func (s ActorStore) Create(_ context.Context, ownerID uuid.UUID, email, displayName, passwordHash string) (*models.Actor, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, a := range s.db.actors {
		if strings.EqualFold(a.Email, email) {
			return nil, crmerr.Validation("email already registered: %s", email)
		}
	}
	a := models.Actor{
		ID:           s.db.newID(),
		OwnerID:      ownerID,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    s.db.now(),
	}
	s.db.actors[a.ID] = a
	return &a, nil
}

func (s ActorStore) GetByID(_ context.Context, actorID uuid.UUID) (*models.Actor, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a, ok := s.db.actors[actorID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s ActorStore) GetByEmail(_ context.Context, email string) (*models.Actor, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, a := range s.db.actors {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, nil
}

// Delete removes an actor. Used to revoke access; the next background
// session check then logs the actor out.
func (s ActorStore) Delete(_ context.Context, actorID uuid.UUID) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.actors, actorID)
}
