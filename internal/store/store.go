// Package store is the entity repository for one owner: a mirror of that
// owner's representatives, sites and activity logs, loaded once and kept in
// step with the backing repositories.
//
// Reads are served from memory. Writes go to the backend first; the mirror
// is patched from the record the backend returns, and only after the write
// succeeded. A failed write leaves the mirror exactly as it was.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/crmerr"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/lalith-99/sitetrack/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Store struct {
	ownerID  uuid.UUID
	backend  repository.Backend
	logger   *zap.Logger
	validate *validator.Validate

	// mu guards the mirror. Mutations hold it across the backend call so
	// the write and the cache patch are seen as one step by readers.
	mu     sync.RWMutex
	loaded bool
	reps   []models.Representative
	sites  []*models.Site
	logs   []models.ActivityLog // ascending by date
}

func New(ownerID uuid.UUID, backend repository.Backend, logger *zap.Logger) *Store {
	return &Store{
		ownerID:  ownerID,
		backend:  backend,
		logger:   logger.With(zap.String("owner_id", ownerID.String())),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Store) OwnerID() uuid.UUID { return s.ownerID }

// Load fetches all three collections for the owner in parallel and
// replaces the mirror. It is the only bulk read the store ever does.
func (s *Store) Load(ctx context.Context) error {
	var (
		reps  []models.Representative
		sites []models.Site
		logs  []models.ActivityLog
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reps, err = s.backend.Representatives.ListByOwner(gctx, s.ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		sites, err = s.backend.Sites.ListByOwner(gctx, s.ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		logs, err = s.backend.Logs.ListByOwner(gctx, s.ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return crmerr.Storage("load owner data", err)
	}

	sortLogs(logs)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reps = reps
	s.sites = make([]*models.Site, 0, len(sites))
	for i := range sites {
		s.sites = append(s.sites, sites[i].Clone())
	}
	s.logs = logs
	s.loaded = true

	s.logger.Info("store loaded",
		zap.Int("representatives", len(reps)),
		zap.Int("sites", len(sites)),
		zap.Int("logs", len(logs)),
	)
	return nil
}

// Loaded reports whether Load has completed at least once.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// sortLogs orders by date, keeping the backend's order for equal dates.
func sortLogs(logs []models.ActivityLog) {
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].Date.Before(logs[j].Date) })
}

// wrapBackend passes domain errors through and wraps the rest as storage
// failures.
func wrapBackend(op string, err error) error {
	var domain *crmerr.Error
	if errors.As(err, &domain) {
		return err
	}
	return crmerr.Storage(op, err)
}

// Representatives -----------------------------------------------------------

// Representatives returns a copy of every representative, oldest first.
func (s *Store) Representatives() []models.Representative {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Representative(nil), s.reps...)
}

func (s *Store) Representative(id uuid.UUID) (*models.Representative, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.repIndex(id); i >= 0 {
		r := s.reps[i]
		return &r, true
	}
	return nil, false
}

func (s *Store) repIndex(id uuid.UUID) int {
	for i := range s.reps {
		if s.reps[i].ID == id {
			return i
		}
	}
	return -1
}

// repCollision must be called with mu held. Name matching is exact and
// case-sensitive.
func (s *Store) repCollision(skip uuid.UUID, name, phone string) error {
	for _, r := range s.reps {
		if r.ID == skip {
			continue
		}
		if name != "" && r.Name == name {
			return crmerr.DuplicateName(name)
		}
		if phone != "" && r.Phone == phone {
			return crmerr.DuplicatePhone(phone)
		}
	}
	return nil
}

func (s *Store) AddRepresentative(ctx context.Context, name, phone string) (*models.Representative, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, crmerr.Validation("representative name is required")
	}
	phone = FormatPhone(phone)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repCollision(uuid.Nil, name, phone); err != nil {
		return nil, err
	}

	rep, err := s.backend.Representatives.Create(ctx, s.ownerID, name, phone)
	if err != nil {
		return nil, wrapBackend("insert representative", err)
	}
	s.reps = append(s.reps, *rep)

	s.logger.Debug("representative added", zap.String("rep_id", rep.ID.String()))
	out := *rep
	return &out, nil
}

// RepresentativePatch carries the optional fields of an update. A nil
// field is left unchanged; an empty Phone clears the number.
type RepresentativePatch struct {
	Name  *string
	Phone *string
}

func (s *Store) UpdateRepresentative(ctx context.Context, id uuid.UUID, patch RepresentativePatch) (*models.Representative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.repIndex(id)
	if i < 0 {
		return nil, crmerr.NotFound("representative", id)
	}
	current := s.reps[i]

	name := current.Name
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, crmerr.Validation("representative name is required")
		}
	}
	phone := current.Phone
	if patch.Phone != nil {
		phone = FormatPhone(*patch.Phone)
	}

	checkName, checkPhone := "", ""
	if name != current.Name {
		checkName = name
	}
	if phone != current.Phone {
		checkPhone = phone
	}
	if err := s.repCollision(id, checkName, checkPhone); err != nil {
		return nil, err
	}

	rep, err := s.backend.Representatives.Update(ctx, s.ownerID, id, name, phone)
	if err != nil {
		return nil, wrapBackend("update representative", err)
	}
	if rep == nil {
		// Gone from the backend behind our back: drop it here too.
		s.reps = append(s.reps[:i], s.reps[i+1:]...)
		return nil, crmerr.NotFound("representative", id)
	}
	s.reps[i] = *rep

	out := *rep
	return &out, nil
}

// DeleteRepresentative removes the rep and unassigns every ACTIVE site it
// held, which go back to NEW. Logs are kept; the trajectory of a deleted
// rep is still reachable by id. The sites that were released are returned.
func (s *Store) DeleteRepresentative(ctx context.Context, id uuid.UUID) ([]models.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.repIndex(id)
	if i < 0 {
		return nil, crmerr.NotFound("representative", id)
	}

	released, err := s.backend.Sites.UnassignRep(ctx, s.ownerID, id)
	if err != nil {
		return nil, wrapBackend("unassign deleted representative", err)
	}
	for k := range released {
		s.replaceSite(&released[k])
	}

	if err := s.backend.Representatives.Delete(ctx, s.ownerID, id); err != nil {
		return released, wrapBackend("delete representative", err)
	}
	s.reps = append(s.reps[:i], s.reps[i+1:]...)

	s.logger.Info("representative deleted",
		zap.String("rep_id", id.String()),
		zap.Int("released_sites", len(released)),
	)
	return released, nil
}

// ImportEntry is one contact from a bulk import.
type ImportEntry struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// ImportResult reports how a bulk import went. Skipped maps the entry
// name to the reason it was not added.
type ImportResult struct {
	Added   []models.Representative `json:"added"`
	Skipped map[string]string       `json:"skipped"`
}

// ImportRepresentatives adds entries one by one. Duplicates and invalid
// entries are skipped rather than failing the batch; a storage failure
// stops the import and is returned with what was added so far.
func (s *Store) ImportRepresentatives(ctx context.Context, entries []ImportEntry) (ImportResult, error) {
	res := ImportResult{
		Added:   make([]models.Representative, 0, len(entries)),
		Skipped: make(map[string]string),
	}
	for _, e := range entries {
		rep, err := s.AddRepresentative(ctx, e.Name, e.Phone)
		if err != nil {
			if crmerr.KindOf(err) == crmerr.KindStorage {
				return res, err
			}
			res.Skipped[e.Name] = err.Error()
			continue
		}
		res.Added = append(res.Added, *rep)
	}
	return res, nil
}
