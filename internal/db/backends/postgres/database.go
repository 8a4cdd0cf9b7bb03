package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// Database implements the Database interface over PostgreSQL via the pgx
// stdlib driver. Schema DDL is managed by goose (cmd/migrate, sql/); Migrate
// here only verifies the expected tables exist.
type Database struct {
	dsn string
	db  *sql.DB
}

// NewDatabase creates a PostgreSQL-backed database for the given DSN.
func NewDatabase(dsn string) *Database {
	return &Database{dsn: dsn}
}

func (d *Database) Connect(ctx context.Context) error {
	db, err := sql.Open("pgx", d.dsn)
	if err != nil {
		return &interfaces.StoreError{Op: "connect", Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return &interfaces.StoreError{Op: "connect", Err: err}
	}

	d.db = db
	return nil
}

func (d *Database) Disconnect(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

func (d *Database) IsHealthy(ctx context.Context) bool {
	if d.db == nil {
		return false
	}
	return d.db.PingContext(ctx) == nil
}

// Transaction runs fn inside a real SQL transaction. This is what makes the
// category rename/delete cascades atomic on this backend.
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.Transaction) error) error {
	if d.db == nil {
		return interfaces.ErrStoreNotConnected
	}

	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return &interfaces.StoreError{Op: "begin", Err: err}
	}

	tx := &Transaction{tx: sqlTx}

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

func (d *Database) Repository(schema *interfaces.Schema) interfaces.Repository {
	return NewRepository(d.db, schema)
}

func (d *Database) Migrate(ctx context.Context, schemas []*interfaces.Schema) error {
	if d.db == nil {
		return interfaces.ErrStoreNotConnected
	}

	for _, schema := range schemas {
		var exists bool
		err := d.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
			schema.TableName,
		).Scan(&exists)
		if err != nil {
			return &interfaces.StoreError{Op: "migrate", Err: err}
		}
		if !exists {
			return &interfaces.StoreError{
				Op:  "migrate",
				Err: fmt.Errorf("table %q missing; run cmd/migrate up first", schema.TableName),
			}
		}
	}

	return nil
}

func (d *Database) Seed(ctx context.Context, schema *interfaces.Schema, data []map[string]interface{}) error {
	repo := d.Repository(schema)
	for _, record := range data {
		if _, err := repo.Create(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
