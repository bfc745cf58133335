package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/sitetrack/internal/models"
)

type OwnerStore struct {
	pool *pgxpool.Pool
}

func NewOwnerStore(pool *pgxpool.Pool) *OwnerStore {
	return &OwnerStore{pool: pool}
}

func (s *OwnerStore) Create(ctx context.Context, name string) (*models.Owner, error) {
	query := `
		INSERT INTO owners (name, created_at)
		VALUES ($1, now())
		RETURNING id, name, created_at`

	var o models.Owner
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&o.ID,
		&o.Name,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert owner: %w", err)
	}
	return &o, nil
}
