package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/lalith-99/sitetrack/internal/repository"
)

type SiteStore struct {
	pool *pgxpool.Pool
}

func NewSiteStore(pool *pgxpool.Pool) *SiteStore {
	return &SiteStore{pool: pool}
}

const siteColumns = `id, owner_id, title, address, lat, lng, assigned_rep_id, status, photo, notes, created_at`

// Create inserts the site and, if it starts with a rep, its first activity
// log. Both rows go in one transaction: a site that claims to be ACTIVE
// without the log that explains it would break the trajectory.
func (s *SiteStore) Create(ctx context.Context, ownerID uuid.UUID, in repository.NewSite) (*models.Site, *models.ActivityLog, error) {
	status := models.StatusNew
	if in.AssignedRepID != nil {
		status = models.StatusActive
	}

	query := `
		INSERT INTO sites (owner_id, title, address, lat, lng, assigned_rep_id, status, photo, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING ` + siteColumns

	var (
		site *models.Site
		log  *models.ActivityLog
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		site, err = scanSite(tx.QueryRow(ctx, query,
			ownerID, in.Title, in.Address, in.Lat, in.Lng, in.AssignedRepID, string(status), in.Photo, in.Notes))
		if err != nil {
			return translateUnique(err, "", "", in.Title)
		}
		if in.AssignedRepID != nil {
			log, err = insertLog(ctx, tx, ownerID, *in.AssignedRepID, site.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("insert site: %w", err)
	}
	return site, log, nil
}

func (s *SiteStore) Update(ctx context.Context, ownerID uuid.UUID, site *models.Site) (*models.Site, error) {
	query := `
		UPDATE sites
		SET title = $3, address = $4, lat = $5, lng = $6,
		    assigned_rep_id = $7, status = $8, photo = $9, notes = $10
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + siteColumns

	updated, err := scanSite(s.pool.QueryRow(ctx, query,
		site.ID, ownerID, site.Title, site.Address, site.Lat, site.Lng,
		site.AssignedRepID, string(site.Status), site.Photo, site.Notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update site: %w", translateUnique(err, "", "", site.Title))
	}
	return updated, nil
}

func (s *SiteStore) Assign(ctx context.Context, ownerID, siteID, repID uuid.UUID) (*models.Site, *models.ActivityLog, error) {
	query := `
		UPDATE sites
		SET assigned_rep_id = $3, status = 'active'
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + siteColumns

	var (
		site *models.Site
		log  *models.ActivityLog
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		site, err = scanSite(tx.QueryRow(ctx, query, siteID, ownerID, repID))
		if err != nil {
			return err
		}
		log, err = insertLog(ctx, tx, ownerID, repID, siteID)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("assign site: %w", err)
	}
	return site, log, nil
}

func (s *SiteStore) UnassignRep(ctx context.Context, ownerID, repID uuid.UUID) ([]models.Site, error) {
	query := `
		UPDATE sites
		SET assigned_rep_id = NULL, status = 'new'
		WHERE owner_id = $1 AND assigned_rep_id = $2
		RETURNING ` + siteColumns

	rows, err := s.pool.Query(ctx, query, ownerID, repID)
	if err != nil {
		return nil, fmt.Errorf("unassign rep: %w", err)
	}
	return collectSites(rows)
}

func (s *SiteStore) Delete(ctx context.Context, ownerID, siteID uuid.UUID) (bool, error) {
	query := `DELETE FROM sites WHERE id = $1 AND owner_id = $2`

	tag, err := s.pool.Exec(ctx, query, siteID, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete site: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *SiteStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Site, error) {
	query := `
		SELECT ` + siteColumns + `
		FROM sites
		WHERE owner_id = $1
		ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return collectSites(rows)
}

func collectSites(rows pgx.Rows) ([]models.Site, error) {
	defer rows.Close()

	sites := make([]models.Site, 0)
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, *site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}
	return sites, nil
}

func scanSite(row pgx.Row) (*models.Site, error) {
	var (
		site   models.Site
		status string
	)
	err := row.Scan(
		&site.ID,
		&site.OwnerID,
		&site.Title,
		&site.Address,
		&site.Lat,
		&site.Lng,
		&site.AssignedRepID,
		&status,
		&site.Photo,
		&site.Notes,
		&site.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	site.Status = models.SiteStatus(status)
	return &site, nil
}
