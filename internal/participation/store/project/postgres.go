package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gestion/internal/participation/models"
	"gestion/internal/platform/postgres"
	"gestion/pkg/platform/sentinel"
)

// PostgresStore persists projects in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, p *models.Project) error {
	var endDate sql.NullTime
	if p.EndDate != nil {
		endDate = sql.NullTime{Time: *p.EndDate, Valid: true}
	}
	query := `
		INSERT INTO projects (code, name, start_date, end_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date
	`
	_, err := postgres.QueryerFrom(ctx, s.db).ExecContext(ctx, query, string(p.Code), p.Name, p.StartDate, endDate)
	if err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByCode(ctx context.Context, code models.ProjectCode) (*models.Project, error) {
	var p models.Project
	var projectCode string
	var endDate sql.NullTime
	err := postgres.QueryerFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT code, name, start_date, end_date FROM projects WHERE code = $1`, string(code),
	).Scan(&projectCode, &p.Name, &p.StartDate, &endDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find project by code: %w", err)
	}
	p.Code = models.ProjectCode(projectCode)
	if endDate.Valid {
		end := endDate.Time
		p.EndDate = &end
	}
	return &p, nil
}
