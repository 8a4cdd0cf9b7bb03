package interfaces

import "context"

// Database is the content-store boundary.
type Database interface {
	// Connect establishes a connection to the store.
	Connect(ctx context.Context) error

	// Disconnect closes the store connection.
	Disconnect(ctx context.Context) error

	// IsHealthy checks if the store connection is healthy.
	IsHealthy(ctx context.Context) bool

	// Transaction executes fn within a store transaction. Repositories
	// obtained from tx see and mutate transactional state; on error the
	// whole transaction rolls back.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error

	// Repository returns a repository for the given schema.
	Repository(schema *Schema) Repository

	// Migrate creates collections and applies schema changes.
	Migrate(ctx context.Context, schemas []*Schema) error

	// Seed inserts initial data into the store.
	Seed(ctx context.Context, schema *Schema, data []map[string]interface{}) error
}
