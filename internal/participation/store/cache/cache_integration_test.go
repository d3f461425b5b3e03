//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gestion/internal/participation/models"
	personstore "gestion/internal/participation/store/person"
	projectstore "gestion/internal/participation/store/project"
	"gestion/pkg/platform/sentinel"
	"gestion/pkg/testutil/containers"
)

type CacheIntegrationSuite struct {
	suite.Suite
	redis    *containers.RedisContainer
	persons  *personstore.InMemory
	projects *projectstore.InMemory
}

func TestCacheIntegrationSuite(t *testing.T) {
	suite.Run(t, new(CacheIntegrationSuite))
}

func (s *CacheIntegrationSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *CacheIntegrationSuite) TearDownSuite() {
	s.redis.Terminate(s.T())
}

func (s *CacheIntegrationSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.persons = personstore.NewInMemory()
	s.projects = projectstore.NewInMemory()
}

func (s *CacheIntegrationSuite) TestPersonIsServedFromCacheAfterFirstRead() {
	ctx := context.Background()
	s.Require().NoError(s.persons.Upsert(ctx, &models.Person{ID: "P1", FirstName: "Ada"}))
	store := NewPersonStore(s.persons, s.redis.Client, WithTTL(time.Minute))

	_, err := store.FindByID(ctx, "P1")
	s.Require().NoError(err)

	// Change the source; the cached copy should still be returned.
	s.Require().NoError(s.persons.Upsert(ctx, &models.Person{ID: "P1", FirstName: "Grace"}))
	p, err := store.FindByID(ctx, "P1")
	s.Require().NoError(err)
	s.Equal("Ada", p.FirstName)

	s.Require().NoError(store.Invalidate(ctx, "P1"))
	p, err = store.FindByID(ctx, "P1")
	s.Require().NoError(err)
	s.Equal("Grace", p.FirstName)
}

func (s *CacheIntegrationSuite) TestNotFoundIsNotCached() {
	ctx := context.Background()
	store := NewProjectStore(s.projects, s.redis.Client)

	_, err := store.FindByCode(ctx, "X1")
	s.True(errors.Is(err, sentinel.ErrNotFound))

	end := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.projects.Upsert(ctx, &models.Project{Code: "X1", Name: "Late", EndDate: &end}))

	p, err := store.FindByCode(ctx, "X1")
	s.Require().NoError(err)
	s.Equal("Late", p.Name)
	s.Require().NotNil(p.EndDate)
	s.True(end.Equal(*p.EndDate))
}

func (s *CacheIntegrationSuite) TestWriterEvictsCachedProject() {
	ctx := context.Background()
	s.Require().NoError(s.projects.Upsert(ctx, &models.Project{Code: "X1", Name: "Compiler"}))
	store := NewProjectStore(s.projects, s.redis.Client, WithTTL(time.Hour))
	writer := NewProjectWriter(s.projects, store)

	p, err := store.FindByCode(ctx, "X1")
	s.Require().NoError(err)
	s.Nil(p.EndDate)

	end := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(writer.Upsert(ctx, &models.Project{Code: "X1", Name: "Compiler", EndDate: &end}))

	p, err = store.FindByCode(ctx, "X1")
	s.Require().NoError(err)
	s.Require().NotNil(p.EndDate)
	s.True(p.IsFinished(time.Now()))
}

func (s *CacheIntegrationSuite) TestWriterEvictsCachedPerson() {
	ctx := context.Background()
	s.Require().NoError(s.persons.Upsert(ctx, &models.Person{ID: "P1", FirstName: "Ada"}))
	store := NewPersonStore(s.persons, s.redis.Client, WithTTL(time.Hour))

	_, err := store.FindByID(ctx, "P1")
	s.Require().NoError(err)

	s.Require().NoError(NewPersonWriter(s.persons, store).Upsert(ctx, &models.Person{ID: "P1", FirstName: "Grace"}))
	p, err := store.FindByID(ctx, "P1")
	s.Require().NoError(err)
	s.Equal("Grace", p.FirstName)
}
