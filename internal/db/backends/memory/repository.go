package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
	"github.com/curatedthreads/threads-backend/internal/db/query"
)

// Repository implements collection operations over the in-memory tables.
type Repository struct {
	db        *Database
	schema    *interfaces.Schema
	builder   *query.Builder
	tableName string
}

// NewRepository creates a new in-memory repository.
func NewRepository(db *Database, schema *interfaces.Schema) *Repository {
	return &Repository{
		db:        db,
		schema:    schema,
		builder:   query.NewBuilder(schema),
		tableName: schema.TableName,
	}
}

func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (map[string]interface{}, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	table, exists := r.db.tables[r.tableName]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	record, exists := table[id.String()]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	return copyRecord(record), nil
}

func (r *Repository) FindOne(ctx context.Context, q *interfaces.Query) (map[string]interface{}, error) {
	if q == nil {
		q = &interfaces.Query{}
	}

	limit := 1
	q.Limit = &limit

	result, err := r.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, interfaces.ErrNotFound
	}

	return result.Data[0], nil
}

func (r *Repository) FindMany(ctx context.Context, q *interfaces.Query) (*interfaces.ResultPage, error) {
	if q == nil {
		q = &interfaces.Query{}
	}

	r.db.mu.RLock()
	table, exists := r.db.tables[r.tableName]
	if !exists {
		r.db.mu.RUnlock()
		return &interfaces.ResultPage{Data: []map[string]interface{}{}}, nil
	}

	records := make([]map[string]interface{}, 0, len(table))
	for _, record := range table {
		records = append(records, copyRecord(record))
	}
	r.db.mu.RUnlock()

	if q.Where != nil {
		var filtered []map[string]interface{}
		for _, record := range records {
			if r.builder.MatchesFilters(record, q.Where) {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	total := int64(len(records))

	// Default to insertion order so callers get a stable list even without
	// an explicit sort; map iteration order would leak through otherwise.
	orderBy := q.OrderBy
	if len(orderBy) == 0 {
		orderBy = []interfaces.OrderBy{{Field: "inserted_at", Direction: "asc"}}
	}
	records = r.builder.ApplySort(records, orderBy)

	records = r.builder.ApplyPagination(records, q.Limit, q.Offset)

	return &interfaces.ResultPage{
		Data:  records,
		Total: total,
	}, nil
}

func (r *Repository) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	if err := r.builder.ValidateData(data); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	record := copyRecord(data)

	if _, exists := record["id"]; !exists {
		record["id"] = uuid.New().String()
	}

	now := time.Now()
	record["inserted_at"] = now
	record["updated_at"] = now

	for fieldName, fieldSchema := range r.schema.Fields {
		if _, exists := record[fieldName]; !exists && fieldSchema.DefaultValue != nil {
			record[fieldName] = fieldSchema.DefaultValue
		}
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.tables[r.tableName]; !exists {
		r.db.tables[r.tableName] = make(map[string]map[string]interface{})
	}

	table := r.db.tables[r.tableName]
	id := record["id"].(string)

	if _, exists := table[id]; exists {
		return nil, fmt.Errorf("record with id '%s' already exists", id)
	}

	if err := r.validateUniqueConstraints(table, record, ""); err != nil {
		return nil, err
	}

	table[id] = record

	return copyRecord(record), nil
}

func (r *Repository) Update(ctx context.Context, id interfaces.ID, data map[string]interface{}) (map[string]interface{}, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	table, exists := r.db.tables[r.tableName]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	existing, exists := table[id.String()]
	if !exists {
		return nil, interfaces.ErrNotFound
	}

	updated := copyRecord(existing)
	for k, v := range data {
		if v == nil {
			delete(updated, k)
			continue
		}
		updated[k] = v
	}
	updated["updated_at"] = time.Now()

	if err := r.validateUniqueConstraints(table, updated, id.String()); err != nil {
		return nil, err
	}

	table[id.String()] = updated

	return copyRecord(updated), nil
}

// UpdateMany applies data to every record matching filters. A nil value in
// data clears the field (this is how category delete nulls posts.category).
func (r *Repository) UpdateMany(ctx context.Context, filters *interfaces.Filters, data map[string]interface{}) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	table, exists := r.db.tables[r.tableName]
	if !exists {
		return 0, nil
	}

	now := time.Now()
	var touched int64
	for id, record := range table {
		if !r.builder.MatchesFilters(record, filters) {
			continue
		}

		updated := copyRecord(record)
		for k, v := range data {
			if v == nil {
				delete(updated, k)
				continue
			}
			updated[k] = v
		}
		updated["updated_at"] = now
		table[id] = updated
		touched++
	}

	return touched, nil
}

func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	table, exists := r.db.tables[r.tableName]
	if !exists {
		return interfaces.ErrNotFound
	}

	if _, exists := table[id.String()]; !exists {
		return interfaces.ErrNotFound
	}

	delete(table, id.String())
	return nil
}

func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	if q == nil {
		r.db.mu.RLock()
		defer r.db.mu.RUnlock()

		if table, exists := r.db.tables[r.tableName]; exists {
			return int64(len(table)), nil
		}
		return 0, nil
	}

	result, err := r.FindMany(ctx, &interfaces.Query{Where: q.Where})
	if err != nil {
		return 0, err
	}

	return result.Total, nil
}

func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

func (r *Repository) validateUniqueConstraints(table map[string]map[string]interface{}, record map[string]interface{}, excludeID string) error {
	for fieldName, fieldSchema := range r.schema.Fields {
		if !fieldSchema.Unique {
			continue
		}

		value, exists := record[fieldName]
		if !exists || value == nil {
			continue
		}

		for id, existing := range table {
			if id == excludeID {
				continue
			}
			if existingValue, ok := existing[fieldName]; ok && existingValue == value {
				return fmt.Errorf("%w: field '%s' value '%v'", interfaces.ErrUniqueConstraint, fieldName, value)
			}
		}
	}

	return nil
}

func copyRecord(record map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(record))
	for k, v := range record {
		result[k] = v
	}
	return result
}
