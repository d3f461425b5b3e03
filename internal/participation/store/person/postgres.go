package person

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gestion/internal/participation/models"
	"gestion/internal/platform/postgres"
	"gestion/pkg/platform/sentinel"
)

// PostgresStore persists persons in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, p *models.Person) error {
	query := `
		INSERT INTO persons (id, first_name, last_name, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email
	`
	_, err := postgres.QueryerFrom(ctx, s.db).ExecContext(ctx, query, string(p.ID), p.FirstName, p.LastName, p.Email)
	if err != nil {
		return fmt.Errorf("upsert person: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id models.PersonID) (*models.Person, error) {
	var p models.Person
	var personID string
	err := postgres.QueryerFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email FROM persons WHERE id = $1`, string(id),
	).Scan(&personID, &p.FirstName, &p.LastName, &p.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find person by id: %w", err)
	}
	p.ID = models.PersonID(personID)
	return &p, nil
}

// Lock takes a row lock on the person for the rest of the surrounding
// transaction, serializing concurrent registrations for the same person.
func (s *PostgresStore) Lock(ctx context.Context, id models.PersonID) error {
	var personID string
	err := postgres.QueryerFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT id FROM persons WHERE id = $1 FOR UPDATE`, string(id),
	).Scan(&personID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("lock person: %w", err)
	}
	return nil
}
