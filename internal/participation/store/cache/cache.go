// Package cache provides Redis read-through decorators for the person and
// project stores. Lookups happen on every registration while persons and
// projects change rarely.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"gestion/internal/participation/models"
	"gestion/pkg/platform/circuit"
)

const (
	personKeyPrefix  = "gestion:person:"
	projectKeyPrefix = "gestion:project:"

	defaultTTL = 5 * time.Minute
)

type PersonSource interface {
	FindByID(ctx context.Context, id models.PersonID) (*models.Person, error)
	Lock(ctx context.Context, id models.PersonID) error
}

type ProjectSource interface {
	FindByCode(ctx context.Context, code models.ProjectCode) (*models.Project, error)
}

type config struct {
	ttl     time.Duration
	logger  *slog.Logger
	breaker *circuit.Breaker
}

// Option configures a cached store.
type Option func(*config)

func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBreaker shares a circuit breaker between stores so an unreachable Redis
// is skipped instead of costing a dial timeout on every lookup.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *config) {
		if b != nil {
			c.breaker = b
		}
	}
}

func newConfig(opts []Option) config {
	cfg := config{ttl: defaultTTL, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.breaker == nil {
		cfg.breaker = circuit.New("redis-cache")
	}
	return cfg
}

// PersonStore caches FindByID results. Lock always goes to the source.
type PersonStore struct {
	source PersonSource
	client *redis.Client
	cfg    config
}

func NewPersonStore(source PersonSource, client *redis.Client, opts ...Option) *PersonStore {
	return &PersonStore{source: source, client: client, cfg: newConfig(opts)}
}

func (s *PersonStore) FindByID(ctx context.Context, id models.PersonID) (*models.Person, error) {
	key := personKeyPrefix + string(id)
	var cached models.Person
	if get(ctx, s.client, key, &cached, s.cfg) {
		return &cached, nil
	}
	p, err := s.source.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	set(ctx, s.client, key, p, s.cfg)
	return p, nil
}

func (s *PersonStore) Lock(ctx context.Context, id models.PersonID) error {
	return s.source.Lock(ctx, id)
}

// Invalidate drops a cached person. Writes through PersonWriter call it.
func (s *PersonStore) Invalidate(ctx context.Context, id models.PersonID) error {
	return s.client.Del(ctx, personKeyPrefix+string(id)).Err()
}

// ProjectStore caches FindByCode results.
type ProjectStore struct {
	source ProjectSource
	client *redis.Client
	cfg    config
}

func NewProjectStore(source ProjectSource, client *redis.Client, opts ...Option) *ProjectStore {
	return &ProjectStore{source: source, client: client, cfg: newConfig(opts)}
}

func (s *ProjectStore) FindByCode(ctx context.Context, code models.ProjectCode) (*models.Project, error) {
	key := projectKeyPrefix + string(code)
	var cached models.Project
	if get(ctx, s.client, key, &cached, s.cfg) {
		return &cached, nil
	}
	p, err := s.source.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	set(ctx, s.client, key, p, s.cfg)
	return p, nil
}

func (s *ProjectStore) Invalidate(ctx context.Context, code models.ProjectCode) error {
	return s.client.Del(ctx, projectKeyPrefix+string(code)).Err()
}

type PersonUpserter interface {
	Upsert(ctx context.Context, p *models.Person) error
}

type ProjectUpserter interface {
	Upsert(ctx context.Context, p *models.Project) error
}

// PersonWriter upserts into the source store and evicts the cached copy, so a
// re-seeded person is visible on the next lookup.
type PersonWriter struct {
	next  PersonUpserter
	cache *PersonStore
}

func NewPersonWriter(next PersonUpserter, cache *PersonStore) *PersonWriter {
	return &PersonWriter{next: next, cache: cache}
}

func (w *PersonWriter) Upsert(ctx context.Context, p *models.Person) error {
	if err := w.next.Upsert(ctx, p); err != nil {
		return err
	}
	if err := w.cache.Invalidate(ctx, p.ID); err != nil {
		w.cache.cfg.logger.WarnContext(ctx, "failed to evict cached person", "person_id", p.ID, "error", err)
	}
	return nil
}

// ProjectWriter is PersonWriter for projects.
type ProjectWriter struct {
	next  ProjectUpserter
	cache *ProjectStore
}

func NewProjectWriter(next ProjectUpserter, cache *ProjectStore) *ProjectWriter {
	return &ProjectWriter{next: next, cache: cache}
}

func (w *ProjectWriter) Upsert(ctx context.Context, p *models.Project) error {
	if err := w.next.Upsert(ctx, p); err != nil {
		return err
	}
	if err := w.cache.Invalidate(ctx, p.Code); err != nil {
		w.cache.cfg.logger.WarnContext(ctx, "failed to evict cached project", "project_code", p.Code, "error", err)
	}
	return nil
}

// get reports a cache hit. Misses, Redis failures and an open breaker all fall
// through to the source.
func get(ctx context.Context, client *redis.Client, key string, dst any, cfg config) bool {
	if !cfg.breaker.Allow() {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		cfg.breaker.RecordSuccess()
		return false
	}
	if err != nil {
		recordFailure(ctx, cfg, "cache read failed", key, err)
		return false
	}
	cfg.breaker.RecordSuccess()
	if err := json.Unmarshal(raw, dst); err != nil {
		cfg.logger.WarnContext(ctx, "cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func set(ctx context.Context, client *redis.Client, key string, v any, cfg config) {
	if !cfg.breaker.Allow() {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := client.Set(ctx, key, raw, cfg.ttl).Err(); err != nil {
		recordFailure(ctx, cfg, "cache write failed", key, err)
		return
	}
	cfg.breaker.RecordSuccess()
}

func recordFailure(ctx context.Context, cfg config, msg, key string, err error) {
	_, change := cfg.breaker.RecordFailure()
	cfg.logger.WarnContext(ctx, msg, "key", key, "error", err)
	if change.Opened {
		cfg.logger.WarnContext(ctx, "redis cache circuit opened", "breaker", cfg.breaker.Name())
	}
}
