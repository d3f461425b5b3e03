//go:build integration

package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gestion/internal/participation/models"
	"gestion/internal/participation/store"
	participationstore "gestion/internal/participation/store/participation"
	personstore "gestion/internal/participation/store/person"
	projectstore "gestion/internal/participation/store/project"
	"gestion/internal/platform/postgres"
	dErrors "gestion/pkg/domain-errors"
	"gestion/pkg/platform/sentinel"
	"gestion/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg             *containers.PostgresContainer
	persons        *personstore.PostgresStore
	projects       *projectstore.PostgresStore
	participations *participationstore.PostgresStore
	tx             *postgres.TxRunner
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.Require().NoError(postgres.Migrate(s.pg.DB, store.Migrations, store.MigrationsDir, logger))

	s.persons = personstore.NewPostgres(s.pg.DB)
	s.projects = projectstore.NewPostgres(s.pg.DB)
	s.participations = participationstore.NewPostgres(s.pg.DB)
	s.tx = postgres.NewTxRunner(s.pg.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.pg.Terminate(s.T())
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.pg.TruncateTables(ctx, "participations", "projects", "persons"))
	_, _, err := store.Seed(ctx, []byte(`
persons:
  - id: P1
    firstName: Ada
projects:
  - code: X1
    name: Compiler
    startDate: "2025-01-01"
  - code: X2
    name: Legacy
    startDate: "2020-01-01"
    endDate: "2021-06-30"
`), s.persons, s.projects)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newParticipation(code models.ProjectCode, pct float64) *models.Participation {
	p, err := models.NewParticipation(uuid.New(), "P1", code, "DEV", pct, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return p
}

func (s *PostgresStoreSuite) TestLookups() {
	ctx := context.Background()

	person, err := s.persons.FindByID(ctx, "P1")
	s.Require().NoError(err)
	s.Equal("Ada", person.FirstName)

	_, err = s.persons.FindByID(ctx, "nobody")
	s.True(errors.Is(err, sentinel.ErrNotFound))

	legacy, err := s.projects.FindByCode(ctx, "X2")
	s.Require().NoError(err)
	s.Require().NotNil(legacy.EndDate)
	s.True(legacy.IsFinished(time.Now()))

	_, err = s.projects.FindByCode(ctx, "nope")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestCreateAndRead() {
	ctx := context.Background()
	p := s.newParticipation("X1", 37.5)
	s.Require().NoError(s.participations.Create(ctx, p))

	found, err := s.participations.FindByID(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.PersonID, found.PersonID)
	s.InDelta(37.5, found.Percentage, 1e-9)

	byProject, err := s.participations.ListByProject(ctx, "X1")
	s.Require().NoError(err)
	s.Len(byProject, 1)

	total, err := s.participations.SumPercentage(ctx, "P1", "")
	s.Require().NoError(err)
	s.InDelta(37.5, total, 1e-9)

	other, err := s.participations.SumPercentage(ctx, "P1", "X1")
	s.Require().NoError(err)
	s.Zero(other)
}

func (s *PostgresStoreSuite) TestPercentagePrecision() {
	ctx := context.Background()

	s.Run("two-decimal values read back unchanged", func() {
		for code, pct := range map[models.ProjectCode]float64{"X1": 33.33, "X2": 0.01} {
			p := s.newParticipation(code, pct)
			s.Require().NoError(s.participations.Create(ctx, p))

			found, err := s.participations.FindByID(ctx, p.ID)
			s.Require().NoError(err)
			s.Equal(pct, found.Percentage)
		}
	})

	s.Run("finer values never reach the column", func() {
		for _, pct := range []float64{0.001, 33.333} {
			_, err := models.NewParticipation(uuid.New(), "P1", "X1", "DEV", pct, time.Now())
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		}
	})
}

func (s *PostgresStoreSuite) TestDuplicateIsConflict() {
	ctx := context.Background()
	s.Require().NoError(s.participations.Create(ctx, s.newParticipation("X1", 50)))

	err := s.participations.Create(ctx, s.newParticipation("X1", 10))
	s.True(errors.Is(err, sentinel.ErrConflict))
}

func (s *PostgresStoreSuite) TestConcurrentDuplicatesOneWins() {
	ctx := context.Background()
	const workers = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
				if err := s.persons.Lock(ctx, "P1"); err != nil {
					return err
				}
				return s.participations.Create(ctx, s.newParticipation("X1", 50))
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, sentinel.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(workers-1, conflicts)
}

func (s *PostgresStoreSuite) TestRollbackDiscardsWrites() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.participations.Create(ctx, s.newParticipation("X1", 20)); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	list, err := s.participations.ListByPerson(ctx, "P1")
	s.Require().NoError(err)
	s.Empty(list)
}
