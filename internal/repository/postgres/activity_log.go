package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/sitetrack/internal/models"
)

type ActivityLogStore struct {
	pool *pgxpool.Pool
}

func NewActivityLogStore(pool *pgxpool.Pool) *ActivityLogStore {
	return &ActivityLogStore{pool: pool}
}

const logColumns = `id, owner_id, rep_id, site_id, date`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the insert can
// run on its own or inside the site store's transactions.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertLog(ctx context.Context, q querier, ownerID, repID, siteID uuid.UUID) (*models.ActivityLog, error) {
	query := `
		INSERT INTO activity_logs (owner_id, rep_id, site_id, date)
		VALUES ($1, $2, $3, clock_timestamp())
		RETURNING ` + logColumns

	var l models.ActivityLog
	err := q.QueryRow(ctx, query, ownerID, repID, siteID).Scan(
		&l.ID,
		&l.OwnerID,
		&l.RepID,
		&l.SiteID,
		&l.Date,
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity log: %w", err)
	}
	return &l, nil
}

func (s *ActivityLogStore) Create(ctx context.Context, ownerID, repID, siteID uuid.UUID) (*models.ActivityLog, error) {
	return insertLog(ctx, s.pool, ownerID, repID, siteID)
}

func (s *ActivityLogStore) Delete(ctx context.Context, ownerID, logID uuid.UUID) error {
	query := `DELETE FROM activity_logs WHERE id = $1 AND owner_id = $2`

	if _, err := s.pool.Exec(ctx, query, logID, ownerID); err != nil {
		return fmt.Errorf("delete activity log: %w", err)
	}
	return nil
}

func (s *ActivityLogStore) DeleteByRepAndSite(ctx context.Context, ownerID, repID, siteID uuid.UUID) (int64, error) {
	query := `
		DELETE FROM activity_logs
		WHERE owner_id = $1 AND rep_id = $2 AND site_id = $3`

	tag, err := s.pool.Exec(ctx, query, ownerID, repID, siteID)
	if err != nil {
		return 0, fmt.Errorf("delete activity logs by rep and site: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *ActivityLogStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ActivityLog, error) {
	query := `
		SELECT ` + logColumns + `
		FROM activity_logs
		WHERE owner_id = $1
		ORDER BY date, id`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	logs := make([]models.ActivityLog, 0)
	for rows.Next() {
		var l models.ActivityLog
		if err := rows.Scan(
			&l.ID,
			&l.OwnerID,
			&l.RepID,
			&l.SiteID,
			&l.Date,
		); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity logs: %w", err)
	}

	return logs, nil
}
