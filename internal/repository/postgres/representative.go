package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/sitetrack/internal/models"
)

type RepresentativeStore struct {
	pool *pgxpool.Pool
}

func NewRepresentativeStore(pool *pgxpool.Pool) *RepresentativeStore {
	return &RepresentativeStore{pool: pool}
}

const repColumns = `id, owner_id, name, phone, created_at`

func (s *RepresentativeStore) Create(ctx context.Context, ownerID uuid.UUID, name, phone string) (*models.Representative, error) {
	query := `
		INSERT INTO representatives (owner_id, name, phone, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING ` + repColumns

	r, err := scanRep(s.pool.QueryRow(ctx, query, ownerID, name, phone))
	if err != nil {
		return nil, fmt.Errorf("insert representative: %w", translateUnique(err, name, phone, ""))
	}
	return r, nil
}

func (s *RepresentativeStore) Update(ctx context.Context, ownerID, repID uuid.UUID, name, phone string) (*models.Representative, error) {
	query := `
		UPDATE representatives
		SET name = $3, phone = $4
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + repColumns

	r, err := scanRep(s.pool.QueryRow(ctx, query, repID, ownerID, name, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update representative: %w", translateUnique(err, name, phone, ""))
	}
	return r, nil
}

func (s *RepresentativeStore) Delete(ctx context.Context, ownerID, repID uuid.UUID) error {
	query := `DELETE FROM representatives WHERE id = $1 AND owner_id = $2`

	if _, err := s.pool.Exec(ctx, query, repID, ownerID); err != nil {
		return fmt.Errorf("delete representative: %w", err)
	}
	return nil
}

func (s *RepresentativeStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Representative, error) {
	query := `
		SELECT ` + repColumns + `
		FROM representatives
		WHERE owner_id = $1
		ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list representatives: %w", err)
	}
	defer rows.Close()

	reps := make([]models.Representative, 0)
	for rows.Next() {
		r, err := scanRep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan representative: %w", err)
		}
		reps = append(reps, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate representatives: %w", err)
	}

	return reps, nil
}

func scanRep(row pgx.Row) (*models.Representative, error) {
	var r models.Representative
	err := row.Scan(
		&r.ID,
		&r.OwnerID,
		&r.Name,
		&r.Phone,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
