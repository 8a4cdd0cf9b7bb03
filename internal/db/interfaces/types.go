package interfaces

import (
	"errors"
	"time"
)

// ID represents a record identifier.
type ID interface {
	String() string
}

// StringID implements ID for string identifiers.
type StringID string

func (s StringID) String() string {
	return string(s)
}

// FilterOperator represents different filter operations.
type FilterOperator struct {
	Eq            interface{}   `json:"eq,omitempty"`
	Ne            interface{}   `json:"ne,omitempty"`
	Gt            interface{}   `json:"gt,omitempty"`
	Gte           interface{}   `json:"gte,omitempty"`
	Lt            interface{}   `json:"lt,omitempty"`
	Lte           interface{}   `json:"lte,omitempty"`
	In            []interface{} `json:"in,omitempty"`
	Like          string        `json:"like,omitempty"`
	IsNull        bool          `json:"is_null,omitempty"`
	IsNotNull     bool          `json:"is_not_null,omitempty"`
	CaseSensitive *bool         `json:"case_sensitive,omitempty"`
}

// Filter represents a single field condition.
type Filter struct {
	Field    string          `json:"field"`
	Value    interface{}     `json:"value,omitempty"`
	Operator *FilterOperator `json:"operator,omitempty"`
}

// Filters represents composed filtering with AND/OR logic.
type Filters struct {
	Conditions []Filter   `json:"conditions,omitempty"`
	AND        []*Filters `json:"and,omitempty"`
	OR         []*Filters `json:"or,omitempty"`
}

// OrderBy represents sorting configuration.
type OrderBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// Query represents a collection query with filtering, sorting, and pagination.
type Query struct {
	Where   *Filters  `json:"where,omitempty"`
	OrderBy []OrderBy `json:"order_by,omitempty"`
	Limit   *int      `json:"limit,omitempty"`
	Offset  *int      `json:"offset,omitempty"`
}

// ResultPage represents paginated query results.
type ResultPage struct {
	Data  []map[string]interface{} `json:"data"`
	Total int64                    `json:"total"`
}

// Schema represents a collection schema definition. There is deliberately no
// foreign-key support: posts.category is denormalized text kept in sync by
// application-level cascades, not by a store constraint.
type Schema struct {
	TableName string                 `json:"table_name"`
	Fields    map[string]FieldSchema `json:"fields"`
	Indexes   []Index                `json:"indexes,omitempty"`
}

// FieldSchema represents a field definition.
type FieldSchema struct {
	Type         string      `json:"type"` // "string", "int", "int64", "bool", "time", "float64"
	Nullable     bool        `json:"nullable"`
	DefaultValue interface{} `json:"default_value,omitempty"`
	Unique       bool        `json:"unique"`
	PrimaryKey   bool        `json:"primary_key"`
}

// Index represents a collection index.
type Index struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
}

// Entity carries the record fields common to every collection.
type Entity struct {
	ID        ID        `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Common store errors.
var (
	ErrNotFound             = errors.New("record not found")
	ErrUniqueConstraint     = errors.New("unique constraint violation")
	ErrInvalidQuery         = errors.New("invalid query")
	ErrTransactionCompleted = errors.New("transaction already completed")
	ErrStoreNotConnected    = errors.New("store not connected")
)

// StoreError wraps backend-specific errors with the failing operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
