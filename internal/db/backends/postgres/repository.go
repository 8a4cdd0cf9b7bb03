package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// runner abstracts *sql.DB and *sql.Tx so the same repository code serves
// both transactional and non-transactional calls.
type runner interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository compiles collection queries to SQL for one schema.
type Repository struct {
	run       runner
	schema    *interfaces.Schema
	tableName string
	columns   []string
}

// NewRepository creates a PostgreSQL repository for a schema.
func NewRepository(db *sql.DB, schema *interfaces.Schema) *Repository {
	return newRepositoryWithRunner(db, schema)
}

func newRepositoryWithRunner(run runner, schema *interfaces.Schema) *Repository {
	columns := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	return &Repository{
		run:       run,
		schema:    schema,
		tableName: schema.TableName,
		columns:   columns,
	}
}

func (r *Repository) GetByID(ctx context.Context, id interfaces.ID) (map[string]interface{}, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, strings.Join(r.columns, ", "), r.tableName)

	row := r.run.QueryRowContext(ctx, q, id.String())
	record, err := r.scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, interfaces.ErrNotFound
		}
		return nil, &interfaces.StoreError{Op: "get", Err: err}
	}

	return record, nil
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

	where, args := r.compileFilters(q.Where, 1)

	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, r.tableName, where)
	var total int64
	if err := r.run.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, &interfaces.StoreError{Op: "count", Err: err}
	}

	selectSQL := fmt.Sprintf(`SELECT %s FROM %s%s%s`,
		strings.Join(r.columns, ", "), r.tableName, where, r.compileOrder(q.OrderBy))

	n := len(args)
	if q.Limit != nil {
		n++
		selectSQL += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, *q.Limit)
	}
	if q.Offset != nil {
		n++
		selectSQL += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, *q.Offset)
	}

	rows, err := r.run.QueryContext(ctx, selectSQL, args...)
	if err != nil {
		return nil, &interfaces.StoreError{Op: "find", Err: err}
	}
	defer rows.Close()

	data := []map[string]interface{}{}
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, &interfaces.StoreError{Op: "find", Err: err}
		}
		data = append(data, record)
	}
	if err := rows.Err(); err != nil {
		return nil, &interfaces.StoreError{Op: "find", Err: err}
	}

	return &interfaces.ResultPage{Data: data, Total: total}, nil
}

func (r *Repository) Create(ctx context.Context, data map[string]interface{}) (map[string]interface{}, error) {
	record := make(map[string]interface{}, len(data))
	for k, v := range data {
		record[k] = v
	}

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

	cols := make([]string, 0, len(record))
	placeholders := make([]string, 0, len(record))
	args := make([]interface{}, 0, len(record))
	i := 1
	for _, col := range r.columns {
		value, exists := record[col]
		if !exists {
			continue
		}
		cols = append(cols, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i))
		args = append(args, value)
		i++
	}

	q := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		r.tableName, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if _, err := r.run.ExecContext(ctx, q, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrUniqueConstraint, err)
		}
		return nil, &interfaces.StoreError{Op: "create", Err: err}
	}

	return r.GetByID(ctx, interfaces.StringID(record["id"].(string)))
}

func (r *Repository) Update(ctx context.Context, id interfaces.ID, data map[string]interface{}) (map[string]interface{}, error) {
	set, args := r.compileSet(data, 1)
	args = append(args, id.String())

	q := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`, r.tableName, set, len(args))

	result, err := r.run.ExecContext(ctx, q, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrUniqueConstraint, err)
		}
		return nil, &interfaces.StoreError{Op: "update", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, &interfaces.StoreError{Op: "update", Err: err}
	}
	if affected == 0 {
		return nil, interfaces.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *Repository) UpdateMany(ctx context.Context, filters *interfaces.Filters, data map[string]interface{}) (int64, error) {
	set, args := r.compileSet(data, 1)
	where, whereArgs := r.compileFilters(filters, len(args)+1)
	args = append(args, whereArgs...)

	q := fmt.Sprintf(`UPDATE %s SET %s%s`, r.tableName, set, where)

	result, err := r.run.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, &interfaces.StoreError{Op: "update_many", Err: err}
	}

	return result.RowsAffected()
}

func (r *Repository) Delete(ctx context.Context, id interfaces.ID) error {
	result, err := r.run.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tableName), id.String())
	if err != nil {
		return &interfaces.StoreError{Op: "delete", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &interfaces.StoreError{Op: "delete", Err: err}
	}
	if affected == 0 {
		return interfaces.ErrNotFound
	}

	return nil
}

func (r *Repository) Count(ctx context.Context, q *interfaces.Query) (int64, error) {
	var where string
	var args []interface{}
	if q != nil {
		where, args = r.compileFilters(q.Where, 1)
	}

	var total int64
	err := r.run.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, r.tableName, where), args...).Scan(&total)
	if err != nil {
		return 0, &interfaces.StoreError{Op: "count", Err: err}
	}

	return total, nil
}

func (r *Repository) GetSchema() *interfaces.Schema {
	return r.schema
}

// compileSet builds the SET clause. Nil values compile to NULL, matching the
// memory backend's field-clearing semantics.
func (r *Repository) compileSet(data map[string]interface{}, startArg int) (string, []interface{}) {
	cols := make([]string, 0, len(data))
	for col := range data {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols)+1)
	args := make([]interface{}, 0, len(cols))
	i := startArg
	for _, col := range cols {
		if data[col] == nil {
			parts = append(parts, fmt.Sprintf("%s = NULL", col))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, data[col])
		i++
	}
	parts = append(parts, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now())

	return strings.Join(parts, ", "), args
}

// compileFilters builds a WHERE clause (with leading " WHERE ") or "".
func (r *Repository) compileFilters(filters *interfaces.Filters, startArg int) (string, []interface{}) {
	clause, args := r.compileGroup(filters, startArg)
	if clause == "" {
		return "", nil
	}
	return " WHERE " + clause, args
}

func (r *Repository) compileGroup(filters *interfaces.Filters, startArg int) (string, []interface{}) {
	if filters == nil {
		return "", nil
	}

	var parts []string
	var args []interface{}
	next := startArg

	appendPart := func(clause string, clauseArgs []interface{}) {
		if clause == "" {
			return
		}
		parts = append(parts, clause)
		args = append(args, clauseArgs...)
		next += len(clauseArgs)
	}

	for _, condition := range filters.Conditions {
		clause, clauseArgs := r.compileCondition(condition, next)
		appendPart(clause, clauseArgs)
	}

	for _, andGroup := range filters.AND {
		clause, clauseArgs := r.compileGroup(andGroup, next)
		if clause != "" {
			appendPart("("+clause+")", clauseArgs)
		}
	}

	if len(filters.OR) > 0 {
		var orParts []string
		for _, orGroup := range filters.OR {
			clause, clauseArgs := r.compileGroup(orGroup, next)
			if clause != "" {
				orParts = append(orParts, "("+clause+")")
				args = append(args, clauseArgs...)
				next += len(clauseArgs)
			}
		}
		if len(orParts) > 0 {
			parts = append(parts, "("+strings.Join(orParts, " OR ")+")")
		}
	}

	return strings.Join(parts, " AND "), args
}

func (r *Repository) compileCondition(condition interfaces.Filter, startArg int) (string, []interface{}) {
	field := condition.Field

	if condition.Operator == nil {
		if condition.Value == nil {
			return fmt.Sprintf("%s IS NULL", field), nil
		}
		return fmt.Sprintf("%s = $%d", field, startArg), []interface{}{condition.Value}
	}

	op := condition.Operator

	switch {
	case op.IsNull:
		return fmt.Sprintf("%s IS NULL", field), nil
	case op.IsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", field), nil
	case op.Eq != nil:
		if op.CaseSensitive != nil && !*op.CaseSensitive {
			return fmt.Sprintf("LOWER(%s) = LOWER($%d)", field, startArg), []interface{}{op.Eq}
		}
		return fmt.Sprintf("%s = $%d", field, startArg), []interface{}{op.Eq}
	case op.Ne != nil:
		return fmt.Sprintf("%s <> $%d", field, startArg), []interface{}{op.Ne}
	case op.Gt != nil:
		return fmt.Sprintf("%s > $%d", field, startArg), []interface{}{op.Gt}
	case op.Gte != nil:
		return fmt.Sprintf("%s >= $%d", field, startArg), []interface{}{op.Gte}
	case op.Lt != nil:
		return fmt.Sprintf("%s < $%d", field, startArg), []interface{}{op.Lt}
	case op.Lte != nil:
		return fmt.Sprintf("%s <= $%d", field, startArg), []interface{}{op.Lte}
	case len(op.In) > 0:
		placeholders := make([]string, len(op.In))
		for i := range op.In {
			placeholders[i] = fmt.Sprintf("$%d", startArg+i)
		}
		return fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", ")), op.In
	case op.Like != "":
		pattern := op.Like
		if !strings.Contains(pattern, "%") {
			pattern = "%" + pattern + "%"
		}
		if op.CaseSensitive == nil || *op.CaseSensitive {
			return fmt.Sprintf("%s LIKE $%d", field, startArg), []interface{}{pattern}
		}
		return fmt.Sprintf("%s ILIKE $%d", field, startArg), []interface{}{pattern}
	}

	return "", nil
}

func (r *Repository) compileOrder(orderBy []interfaces.OrderBy) string {
	// Stable fallback: insertion order.
	if len(orderBy) == 0 {
		return " ORDER BY inserted_at ASC"
	}

	parts := make([]string, 0, len(orderBy))
	for _, order := range orderBy {
		dir := "ASC"
		if order.Direction == "desc" {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("%s %s", order.Field, dir))
	}

	return " ORDER BY " + strings.Join(parts, ", ")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanRecord(row rowScanner) (map[string]interface{}, error) {
	dests := make([]interface{}, len(r.columns))
	for i, col := range r.columns {
		dests[i] = newScanDest(r.schema.Fields[col])
	}

	if err := row.Scan(dests...); err != nil {
		return nil, err
	}

	record := make(map[string]interface{}, len(r.columns))
	for i, col := range r.columns {
		if value, ok := scannedValue(dests[i]); ok {
			record[col] = value
		}
	}

	return record, nil
}

func newScanDest(field interfaces.FieldSchema) interface{} {
	switch field.Type {
	case "int", "int64":
		return &sql.NullInt64{}
	case "float64":
		return &sql.NullFloat64{}
	case "bool":
		return &sql.NullBool{}
	case "time":
		return &sql.NullTime{}
	default:
		return &sql.NullString{}
	}
}

// scannedValue unwraps a scan destination; NULL columns are simply absent
// from the record, matching the memory backend.
func scannedValue(dest interface{}) (interface{}, bool) {
	switch v := dest.(type) {
	case *sql.NullString:
		if v.Valid {
			return v.String, true
		}
	case *sql.NullInt64:
		if v.Valid {
			return int(v.Int64), true
		}
	case *sql.NullFloat64:
		if v.Valid {
			return v.Float64, true
		}
	case *sql.NullBool:
		if v.Valid {
			return v.Bool, true
		}
	case *sql.NullTime:
		if v.Valid {
			return v.Time, true
		}
	}
	return nil, false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
