package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Registry hands out one loaded Store per owner. The first request after
// login triggers the bulk load; concurrent first requests share it.
type Registry struct {
	backend repository.Backend
	logger  *zap.Logger

	mu     sync.Mutex
	stores map[uuid.UUID]*Store
	group  singleflight.Group
}

func NewRegistry(backend repository.Backend, logger *zap.Logger) *Registry {
	return &Registry{
		backend: backend,
		logger:  logger,
		stores:  make(map[uuid.UUID]*Store),
	}
}

// Get returns the owner's store, loading it on first use.
func (r *Registry) Get(ctx context.Context, ownerID uuid.UUID) (*Store, error) {
	r.mu.Lock()
	st, ok := r.stores[ownerID]
	r.mu.Unlock()
	if ok {
		return st, nil
	}

	v, err, _ := r.group.Do(ownerID.String(), func() (any, error) {
		r.mu.Lock()
		if st, ok := r.stores[ownerID]; ok {
			r.mu.Unlock()
			return st, nil
		}
		r.mu.Unlock()

		st := New(ownerID, r.backend, r.logger)
		if err := st.Load(ctx); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.stores[ownerID] = st
		r.mu.Unlock()
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

// Evict drops the owner's mirror, e.g. on logout. The next Get reloads.
func (r *Registry) Evict(ownerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, ownerID)
}
