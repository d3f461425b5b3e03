package participation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gestion/internal/participation/models"
	"gestion/internal/platform/postgres"
	"gestion/pkg/platform/sentinel"
)

// PostgresStore persists participations in PostgreSQL. Uniqueness of
// (person_id, project_code) is a table constraint.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectParticipation = `SELECT id, person_id, project_code, role, percentage::float8, created_at FROM participations`

func (s *PostgresStore) Create(ctx context.Context, p *models.Participation) error {
	query := `
		INSERT INTO participations (id, person_id, project_code, role, percentage, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := postgres.QueryerFrom(ctx, s.db).ExecContext(ctx, query,
		p.ID, string(p.PersonID), string(p.ProjectCode), string(p.Role), p.Percentage, p.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("insert participation: %w: %w", sentinel.ErrConflict, err)
		}
		return fmt.Errorf("insert participation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Participation, error) {
	row := postgres.QueryerFrom(ctx, s.db).QueryRowContext(ctx, selectParticipation+` WHERE id = $1`, id)
	p, err := scanParticipation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find participation by id: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListByPerson(ctx context.Context, personID models.PersonID) ([]*models.Participation, error) {
	return s.list(ctx, selectParticipation+` WHERE person_id = $1 ORDER BY created_at, id`, string(personID))
}

func (s *PostgresStore) ListByProject(ctx context.Context, code models.ProjectCode) ([]*models.Participation, error) {
	return s.list(ctx, selectParticipation+` WHERE project_code = $1 ORDER BY created_at, id`, string(code))
}

// SumPercentage totals the person's percentages on every project except exclude.
func (s *PostgresStore) SumPercentage(ctx context.Context, personID models.PersonID, exclude models.ProjectCode) (float64, error) {
	var total float64
	err := postgres.QueryerFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT COALESCE(SUM(percentage), 0)::float8 FROM participations WHERE person_id = $1 AND project_code <> $2`,
		string(personID), string(exclude),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum participation percentage: %w", err)
	}
	return total, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*models.Participation, error) {
	rows, err := postgres.QueryerFrom(ctx, s.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Participation, 0)
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participation: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participations: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipation(row scanner) (*models.Participation, error) {
	var (
		id          uuid.UUID
		personID    string
		projectCode string
		role        string
		percentage  float64
		createdAt   time.Time
	)
	if err := row.Scan(&id, &personID, &projectCode, &role, &percentage, &createdAt); err != nil {
		return nil, err
	}
	return &models.Participation{
		ID:          id,
		PersonID:    models.PersonID(personID),
		ProjectCode: models.ProjectCode(projectCode),
		Role:        models.Role(role),
		Percentage:  percentage,
		CreatedAt:   createdAt,
	}, nil
}
