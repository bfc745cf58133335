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

type ActorStore struct {
	pool *pgxpool.Pool
}

func NewActorStore(pool *pgxpool.Pool) *ActorStore {
	return &ActorStore{pool: pool}
}

const actorColumns = `id, owner_id, email, display_name, password_hash, created_at`

// Create inserts a new actor row. Postgres generates the UUID and timestamp.
func (s *ActorStore) Create(ctx context.Context, ownerID uuid.UUID, email, displayName, passwordHash string) (*models.Actor, error) {
	query := `
		INSERT INTO actors (owner_id, email, display_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING ` + actorColumns

	a, err := scanActor(s.pool.QueryRow(ctx, query, ownerID, email, displayName, passwordHash))
	if err != nil {
		return nil, fmt.Errorf("insert actor: %w", err)
	}
	return a, nil
}

func (s *ActorStore) GetByID(ctx context.Context, actorID uuid.UUID) (*models.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE id = $1`

	a, err := scanActor(s.pool.QueryRow(ctx, query, actorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get actor: %w", err)
	}
	return a, nil
}

// GetByEmail looks up an actor by email (globally, not owner-scoped).
// Used for login.
func (s *ActorStore) GetByEmail(ctx context.Context, email string) (*models.Actor, error) {
	query := `SELECT ` + actorColumns + ` FROM actors WHERE email = $1`

	a, err := scanActor(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get actor by email: %w", err)
	}
	return a, nil
}

func scanActor(row pgx.Row) (*models.Actor, error) {
	var a models.Actor
	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.Email,
		&a.DisplayName,
		&a.PasswordHash,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
