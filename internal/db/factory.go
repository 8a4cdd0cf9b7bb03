package db

import (
	"context"
	"fmt"

	"github.com/curatedthreads/threads-backend/internal/db/backends/memory"
	"github.com/curatedthreads/threads-backend/internal/db/backends/postgres"
	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// Config holds content-store configuration.
type Config struct {
	Type string // "memory" or "postgres"
	DSN  string // connection string for SQL backends
}

// NewDatabase creates a store backend from configuration. An empty type or
// missing DSN falls back to the in-memory backend so the service always
// starts in development.
func NewDatabase(cfg Config) (interfaces.Database, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.NewDatabase(), nil
	case "postgres":
		if cfg.DSN == "" {
			return memory.NewDatabase(), nil
		}
		return postgres.NewDatabase(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}

// NewInMemoryDatabase creates an in-memory store (tests, dev).
func NewInMemoryDatabase() interfaces.Database {
	return memory.NewDatabase()
}

// ConnectAndMigrate connects to the store and applies/verifies schemas.
func ConnectAndMigrate(ctx context.Context, database interfaces.Database, schemas []*interfaces.Schema) error {
	if err := database.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}

	if !database.IsHealthy(ctx) {
		return fmt.Errorf("store health check failed")
	}

	if err := database.Migrate(ctx, schemas); err != nil {
		return fmt.Errorf("failed to migrate store: %w", err)
	}

	return nil
}

// AllSchemas returns every collection schema for migration.
func AllSchemas() []*interfaces.Schema {
	return []*interfaces.Schema{
		entities.PostSchema,
		entities.CategorySchema,
	}
}
