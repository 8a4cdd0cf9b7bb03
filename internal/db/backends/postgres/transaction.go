package postgres

import (
	"context"
	"database/sql"
	"sync"

	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// Transaction wraps a sql.Tx.
type Transaction struct {
	mu         sync.Mutex
	tx         *sql.Tx
	committed  bool
	rolledBack bool
}

func (t *Transaction) Repository(schema *interfaces.Schema) interfaces.Repository {
	return newRepositoryWithRunner(t.tx, schema)
}

func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.committed || t.rolledBack {
		return interfaces.ErrTransactionCompleted
	}

	if err := t.tx.Commit(); err != nil {
		return &interfaces.StoreError{Op: "commit", Err: err}
	}
	t.committed = true
	return nil
}

func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.committed || t.rolledBack {
		return interfaces.ErrTransactionCompleted
	}

	if err := t.tx.Rollback(); err != nil {
		return &interfaces.StoreError{Op: "rollback", Err: err}
	}
	t.rolledBack = true
	return nil
}

func (t *Transaction) IsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.committed || t.rolledBack
}
