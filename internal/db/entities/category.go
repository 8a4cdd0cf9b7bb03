package entities

import (
	"time"

	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// Category represents a named tag posts can be associated with by name.
// Name uniqueness is case-insensitive but enforced by a query-time check in
// the lifecycle manager, not by the schema; a race window exists between
// check and insert.
type Category struct {
	ID           string    `json:"id" db:"id"`
	CategoryName string    `json:"category_name" db:"category_name"`
	InsertedAt   time.Time `json:"inserted_at" db:"inserted_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CategoryFromRecord maps a store record onto a Category.
func CategoryFromRecord(record map[string]interface{}) Category {
	c := Category{
		ID:           stringField(record, "id"),
		CategoryName: stringField(record, "category_name"),
	}
	if t, ok := record["inserted_at"].(time.Time); ok {
		c.InsertedAt = t
	}
	if t, ok := record["updated_at"].(time.Time); ok {
		c.UpdatedAt = t
	}
	return c
}

// CategorySchema defines the store schema for categories.
var CategorySchema = &interfaces.Schema{
	TableName: "categories",
	Fields: map[string]interfaces.FieldSchema{
		"id": {
			Type:       "string",
			PrimaryKey: true,
		},
		"category_name": {
			Type: "string",
		},
		"inserted_at": {
			Type: "time",
		},
		"updated_at": {
			Type: "time",
		},
	},
	Indexes: []interfaces.Index{
		{
			Name:    "idx_categories_name",
			Columns: []string{"category_name"},
		},
	},
}
