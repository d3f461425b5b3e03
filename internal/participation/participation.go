// Package participation wires the participation stores, service and HTTP
// handler together.
package participation

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"gestion/internal/participation/handler"
	"gestion/internal/participation/service"
	"gestion/internal/participation/store"
	"gestion/internal/participation/store/cache"
	participationstore "gestion/internal/participation/store/participation"
	personstore "gestion/internal/participation/store/person"
	projectstore "gestion/internal/participation/store/project"
	"gestion/internal/platform/metrics"
	"gestion/internal/platform/postgres"
	"gestion/pkg/platform/circuit"
	"gestion/pkg/platform/tx"
)

// Service registers and reads participations.
type Service = service.Service

// Handler serves the participation HTTP endpoints.
type Handler = handler.Handler

// Stores bundles the backends the service runs on.
type Stores struct {
	Persons        service.PersonStore
	Projects       service.ProjectStore
	Participations service.ParticipationStore
	Tx             tx.Runner

	// PersonWriter and ProjectWriter receive seed data.
	PersonWriter  store.PersonWriter
	ProjectWriter store.ProjectWriter
}

// NewInMemoryStores returns map-backed stores serialized by a single lock.
func NewInMemoryStores() *Stores {
	persons := personstore.NewInMemory()
	projects := projectstore.NewInMemory()
	return &Stores{
		Persons:        persons,
		Projects:       projects,
		Participations: participationstore.NewInMemory(),
		Tx:             store.NewInMemoryTx(),
		PersonWriter:   persons,
		ProjectWriter:  projects,
	}
}

// NewPostgresStores returns stores backed by db. Apply store.Migrations first.
func NewPostgresStores(db *sql.DB) *Stores {
	persons := personstore.NewPostgres(db)
	projects := projectstore.NewPostgres(db)
	return &Stores{
		Persons:        persons,
		Projects:       projects,
		Participations: participationstore.NewPostgres(db),
		Tx:             postgres.NewTxRunner(db),
		PersonWriter:   persons,
		ProjectWriter:  projects,
	}
}

// WithCache puts a Redis read-through cache in front of person and project
// lookups. Seed writes through the returned stores evict stale entries.
func (s *Stores) WithCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Stores {
	opts := []cache.Option{
		cache.WithTTL(ttl),
		cache.WithLogger(logger),
		cache.WithBreaker(circuit.New("redis-cache")),
	}
	persons := cache.NewPersonStore(s.Persons, client, opts...)
	projects := cache.NewProjectStore(s.Projects, client, opts...)
	out := *s
	out.Persons = persons
	out.Projects = projects
	out.PersonWriter = cache.NewPersonWriter(s.PersonWriter, persons)
	out.ProjectWriter = cache.NewProjectWriter(s.ProjectWriter, projects)
	return &out
}

// NewService constructs the participation service over stores.
func NewService(stores *Stores, opts ...service.Option) *Service {
	return service.New(stores.Persons, stores.Projects, stores.Participations, stores.Tx, opts...)
}

// NewHandler constructs the HTTP handler for the participation resource.
func NewHandler(s *Service, logger *slog.Logger, m *metrics.Metrics, opts ...handler.Option) *Handler {
	return handler.New(s, logger, m, opts...)
}
