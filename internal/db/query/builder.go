package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

// Builder evaluates queries against in-memory records and validates data
// against a schema. The SQL backend compiles the same query shapes to SQL
// instead.
type Builder struct {
	schema *interfaces.Schema
}

// NewBuilder creates a new query builder for a schema.
func NewBuilder(schema *interfaces.Schema) *Builder {
	return &Builder{schema: schema}
}

// MatchesFilters checks if a record matches the given filters.
func (b *Builder) MatchesFilters(record map[string]interface{}, filters *interfaces.Filters) bool {
	if filters == nil {
		return true
	}

	for _, andFilter := range filters.AND {
		if !b.MatchesFilters(record, andFilter) {
			return false
		}
	}

	if len(filters.OR) > 0 {
		hasMatch := false
		for _, orFilter := range filters.OR {
			if b.MatchesFilters(record, orFilter) {
				hasMatch = true
				break
			}
		}
		if !hasMatch {
			return false
		}
	}

	for _, condition := range filters.Conditions {
		if !b.matchesCondition(record, condition) {
			return false
		}
	}

	return true
}

func (b *Builder) matchesCondition(record map[string]interface{}, condition interfaces.Filter) bool {
	fieldValue, exists := record[condition.Field]

	// Simple equality when no operator is given.
	if condition.Operator == nil {
		if !exists && condition.Value == nil {
			return true
		}
		return fieldValue == condition.Value
	}

	op := condition.Operator

	if op.IsNull {
		return fieldValue == nil || !exists
	}
	if op.IsNotNull {
		return fieldValue != nil && exists
	}

	if !exists {
		return false
	}

	if op.Eq != nil {
		if eqStr, ok := op.Eq.(string); ok && op.CaseSensitive != nil && !*op.CaseSensitive {
			fieldStr, ok := fieldValue.(string)
			return ok && strings.EqualFold(fieldStr, eqStr)
		}
		return fieldValue == op.Eq
	}
	if op.Ne != nil {
		return fieldValue != op.Ne
	}

	if op.Gt != nil {
		return b.compare(fieldValue, op.Gt) > 0
	}
	if op.Gte != nil {
		return b.compare(fieldValue, op.Gte) >= 0
	}
	if op.Lt != nil {
		return b.compare(fieldValue, op.Lt) < 0
	}
	if op.Lte != nil {
		return b.compare(fieldValue, op.Lte) <= 0
	}

	if len(op.In) > 0 {
		for _, val := range op.In {
			if fieldValue == val {
				return true
			}
		}
		return false
	}

	if op.Like != "" {
		strValue, ok := fieldValue.(string)
		if !ok {
			return false
		}
		pattern := strings.ReplaceAll(op.Like, "%", "")
		caseSensitive := op.CaseSensitive == nil || *op.CaseSensitive
		if !caseSensitive {
			strValue = strings.ToLower(strValue)
			pattern = strings.ToLower(pattern)
		}
		return strings.Contains(strValue, pattern)
	}

	return true
}

func (b *Builder) compare(a, other interface{}) int {
	switch av := a.(type) {
	case int:
		if bv, ok := other.(int); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case int64:
		if bv, ok := other.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case float64:
		if bv, ok := other.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := other.(string); ok {
			return strings.Compare(av, bv)
		}
	case time.Time:
		if bv, ok := other.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	}
	return 0
}

// ApplySort stably sorts records according to the OrderBy specification,
// so equal keys keep their fetch order.
func (b *Builder) ApplySort(records []map[string]interface{}, orderBy []interfaces.OrderBy) []map[string]interface{} {
	if len(orderBy) == 0 {
		return records
	}

	sorted := make([]map[string]interface{}, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		for _, order := range orderBy {
			cmp := b.compare(sorted[i][order.Field], sorted[j][order.Field])
			if cmp == 0 {
				continue
			}
			if order.Direction == "desc" {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	return sorted
}

// ApplyPagination applies limit and offset to the records.
func (b *Builder) ApplyPagination(records []map[string]interface{}, limit, offset *int) []map[string]interface{} {
	start := 0
	if offset != nil {
		start = *offset
	}

	if start >= len(records) {
		return []map[string]interface{}{}
	}

	end := len(records)
	if limit != nil {
		end = start + *limit
		if end > len(records) {
			end = len(records)
		}
	}

	return records[start:end]
}

// ValidateData validates data against the schema.
func (b *Builder) ValidateData(data map[string]interface{}) error {
	for fieldName, fieldSchema := range b.schema.Fields {
		value, exists := data[fieldName]

		// System fields are auto-generated. Note "created_at" is NOT a
		// system field here: for posts it is the source-supplied display
		// date string. Record timestamps are inserted_at/updated_at.
		if fieldName == "id" || fieldName == "inserted_at" || fieldName == "updated_at" {
			continue
		}

		if !fieldSchema.Nullable && !exists && fieldSchema.DefaultValue == nil {
			return fmt.Errorf("field '%s' is required", fieldName)
		}

		if !exists {
			continue
		}

		if value == nil && !fieldSchema.Nullable {
			return fmt.Errorf("field '%s' cannot be null", fieldName)
		}

		if value != nil {
			if err := b.validateFieldType(fieldName, value, fieldSchema.Type); err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *Builder) validateFieldType(fieldName string, value interface{}, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' must be a string", fieldName)
		}
	case "int":
		if _, ok := value.(int); !ok {
			return fmt.Errorf("field '%s' must be an integer", fieldName)
		}
	case "int64":
		if _, ok := value.(int64); !ok {
			return fmt.Errorf("field '%s' must be an int64", fieldName)
		}
	case "bool":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("field '%s' must be a boolean", fieldName)
		}
	case "float64":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("field '%s' must be a float64", fieldName)
		}
	case "time":
		switch value.(type) {
		case string, time.Time:
		default:
			return fmt.Errorf("field '%s' must be a time value", fieldName)
		}
	}

	return nil
}
