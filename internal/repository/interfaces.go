package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/sitetrack/internal/models"
)

// Every method takes ctx first because every implementation may touch the
// network, and the HTTP request's deadline should reach the query.
//
// ownerID appears on every entity method. The caller takes it from the JWT;
// implementations always filter by it, so a guessed site id from another
// owner reads as "not found".
//
// Lookups return nil, nil when the row doesn't exist. Duplicate-key
// violations come back as crmerr.DuplicateName / DuplicatePhone /
// DuplicateTitle; everything else is wrapped with fmt.Errorf.

// NewSite is the insert payload for a site. Status is derived by the
// implementation: ACTIVE when AssignedRepID is set, NEW otherwise.
type NewSite struct {
	Title         string
	Address       string
	Lat           float64
	Lng           float64
	AssignedRepID *uuid.UUID
	Photo         []byte
	Notes         string
}

// OwnerRepository creates the top-level accounts.
type OwnerRepository interface {
	Create(ctx context.Context, name string) (*models.Owner, error)
}

// ActorRepository handles the accounts that log in.
type ActorRepository interface {
	Create(ctx context.Context, ownerID uuid.UUID, email, displayName, passwordHash string) (*models.Actor, error)

	// GetByID is the authoritative check behind session verification.
	GetByID(ctx context.Context, actorID uuid.UUID) (*models.Actor, error)

	// GetByEmail looks an actor up globally. Used for login.
	GetByEmail(ctx context.Context, email string) (*models.Actor, error)
}

// RepresentativeRepository persists representatives.
type RepresentativeRepository interface {
	Create(ctx context.Context, ownerID uuid.UUID, name, phone string) (*models.Representative, error)

	// Update overwrites name and phone. Returns nil, nil if the rep is gone.
	Update(ctx context.Context, ownerID, repID uuid.UUID, name, phone string) (*models.Representative, error)

	// Delete is idempotent.
	Delete(ctx context.Context, ownerID, repID uuid.UUID) error

	// ListByOwner returns every rep of the owner, oldest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Representative, error)
}

// SiteRepository persists sites. Operations that must also append an
// activity log (create-with-rep, assign) do both writes atomically and
// return both records.
type SiteRepository interface {
	// Create inserts a site; when in.AssignedRepID is set it also appends
	// the creation log and returns it, otherwise the log is nil.
	Create(ctx context.Context, ownerID uuid.UUID, in NewSite) (*models.Site, *models.ActivityLog, error)

	// Update writes every mutable column of site. Returns nil, nil if gone.
	Update(ctx context.Context, ownerID uuid.UUID, site *models.Site) (*models.Site, error)

	// Assign sets the rep, flips the site to ACTIVE and appends one log.
	// Returns nil, nil, nil if the site is gone.
	Assign(ctx context.Context, ownerID, siteID, repID uuid.UUID) (*models.Site, *models.ActivityLog, error)

	// UnassignRep clears every ACTIVE site held by repID back to NEW and
	// returns the updated rows.
	UnassignRep(ctx context.Context, ownerID, repID uuid.UUID) ([]models.Site, error)

	// Delete reports whether a row was removed.
	Delete(ctx context.Context, ownerID, siteID uuid.UUID) (bool, error)

	// ListByOwner returns every site of the owner, oldest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Site, error)
}

// ActivityLogRepository persists the append-only assignment history.
type ActivityLogRepository interface {
	Create(ctx context.Context, ownerID, repID, siteID uuid.UUID) (*models.ActivityLog, error)

	// Delete removes one log by id. Deleting a missing log is not an error.
	Delete(ctx context.Context, ownerID, logID uuid.UUID) error

	// DeleteByRepAndSite removes every log pairing repID with siteID and
	// returns how many rows went.
	DeleteByRepAndSite(ctx context.Context, ownerID, repID, siteID uuid.UUID) (int64, error)

	// ListByOwner returns every log of the owner, oldest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ActivityLog, error)
}

// Backend bundles the entity repositories a store needs.
type Backend struct {
	Representatives RepresentativeRepository
	Sites           SiteRepository
	Logs            ActivityLogRepository
}
