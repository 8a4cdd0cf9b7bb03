package memory

import (
	"context"
	"sync"

	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// Database implements the Database interface for in-memory storage. It is
// the default backend for development and tests; the single mutex gives the
// same single-writer feel as the document store it stands in for.
type Database struct {
	mu        sync.RWMutex
	tables    map[string]map[string]map[string]interface{} // tableName -> recordID -> record
	schemas   map[string]*interfaces.Schema
	connected bool
}

// NewDatabase creates a new in-memory database.
func NewDatabase() *Database {
	return &Database{
		tables:  make(map[string]map[string]map[string]interface{}),
		schemas: make(map[string]*interfaces.Schema),
	}
}

func (db *Database) Connect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = true
	return nil
}

func (db *Database) Disconnect(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.connected = false
	db.tables = make(map[string]map[string]map[string]interface{})
	db.schemas = make(map[string]*interfaces.Schema)
	return nil
}

func (db *Database) IsHealthy(ctx context.Context) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.connected
}

// Transaction executes fn with snapshot-rollback semantics: the table state
// is copied up front and restored wholesale if fn fails.
func (db *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrStoreNotConnected
	}

	tx := NewTransaction(db)

	defer func() {
		if !tx.IsCompleted() {
			tx.Rollback(ctx)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

func (db *Database) Repository(schema *interfaces.Schema) interfaces.Repository {
	db.mu.Lock()
	db.schemas[schema.TableName] = schema
	db.mu.Unlock()

	return NewRepository(db, schema)
}

func (db *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrStoreNotConnected
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	for _, schema := range schemas {
		db.schemas[schema.TableName] = schema
		if _, exists := db.tables[schema.TableName]; !exists {
			db.tables[schema.TableName] = make(map[string]map[string]interface{})
		}
	}

	return nil
}

func (db *Database) Seed(ctx context.Context, schema *interfaces.Schema, data []map[string]interface{}) error {
	if !db.IsHealthy(ctx) {
		return interfaces.ErrStoreNotConnected
	}

	repo := db.Repository(schema)
	for _, record := range data {
		if _, err := repo.Create(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

// Clear removes all data from all tables (for tests).
func (db *Database) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()

	for tableName := range db.tables {
		db.tables[tableName] = make(map[string]map[string]interface{})
	}
}
