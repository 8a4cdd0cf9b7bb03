package interfaces

import "context"

// Transaction represents a store transaction.
type Transaction interface {
	// Repository returns a repository whose operations run inside the
	// transaction.
	Repository(schema *Schema) Repository

	// Commit commits the transaction.
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction.
	Rollback(ctx context.Context) error

	// IsCompleted returns true once committed or rolled back.
	IsCompleted() bool
}
