// Package store holds the participation module's persistence: per-aggregate
// stores in subpackages, the embedded schema, seeding, and the in-memory
// transaction runner.
package store

import (
	"context"
	"embed"
	"sync"
)

// Migrations holds the Postgres schema, applied with postgres.Migrate(db, Migrations, MigrationsDir, logger).
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// InMemoryTx serializes transactional callbacks with a single lock. It gives the
// in-memory stores the same check-then-write atomicity Postgres gets from row locks.
// Writes made before a failing step are not rolled back.
type InMemoryTx struct {
	mu sync.Mutex
}

func NewInMemoryTx() *InMemoryTx {
	return &InMemoryTx{}
}

func (t *InMemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
