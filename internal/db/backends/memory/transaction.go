package memory

import (
	"context"
	"sync"

	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// Transaction is a snapshot-rollback transaction over the in-memory tables.
// Repositories obtained from it write to the live tables; Rollback restores
// the snapshot taken at creation.
type Transaction struct {
	mu         sync.RWMutex
	db         *Database
	snapshot   map[string]map[string]map[string]interface{}
	committed  bool
	rolledBack bool
}

// NewTransaction snapshots the current table state.
func NewTransaction(db *Database) *Transaction {
	tx := &Transaction{
		db:       db,
		snapshot: make(map[string]map[string]map[string]interface{}),
	}

	db.mu.RLock()
	for tableName, table := range db.tables {
		tx.snapshot[tableName] = make(map[string]map[string]interface{})
		for id, record := range table {
			recordCopy := make(map[string]interface{}, len(record))
			for k, v := range record {
				recordCopy[k] = v
			}
			tx.snapshot[tableName][id] = recordCopy
		}
	}
	db.mu.RUnlock()

	return tx
}

// Repository returns a repository operating on the live tables; isolation
// comes from the snapshot restore on rollback, not from buffering writes.
func (tx *Transaction) Repository(schema *interfaces.Schema) interfaces.Repository {
	return NewRepository(tx.db, schema)
}

func (tx *Transaction) Commit(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.committed || tx.rolledBack {
		return interfaces.ErrTransactionCompleted
	}

	tx.committed = true
	return nil
}

func (tx *Transaction) Rollback(ctx context.Context) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.committed || tx.rolledBack {
		return interfaces.ErrTransactionCompleted
	}

	tx.db.mu.Lock()
	tx.db.tables = tx.snapshot
	tx.db.mu.Unlock()

	tx.rolledBack = true
	return nil
}

func (tx *Transaction) IsCompleted() bool {
	tx.mu.RLock()
	defer tx.mu.RUnlock()

	return tx.committed || tx.rolledBack
}
