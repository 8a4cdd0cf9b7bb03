package postgres

import (
	"strings"
	"testing"

	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

func boolPtr(b bool) *bool { return &b }

func newTestRepository() *Repository {
	return newRepositoryWithRunner(nil, entities.PostSchema)
}

func TestCompileConditionCaseInsensitiveEq(t *testing.T) {
	r := newTestRepository()

	clause, args := r.compileCondition(interfaces.Filter{
		Field: "category",
		Operator: &interfaces.FilterOperator{
			Eq:            "cardiology",
			CaseSensitive: boolPtr(false),
		},
	}, 1)

	if clause != "LOWER(category) = LOWER($1)" {
		t.Errorf("clause = %q", clause)
	}
	if len(args) != 1 || args[0] != "cardiology" {
		t.Errorf("args = %v", args)
	}
}

func TestCompileConditionLike(t *testing.T) {
	r := newTestRepository()

	clause, args := r.compileCondition(interfaces.Filter{
		Field:    "tweet_text",
		Operator: &interfaces.FilterOperator{Like: "fever"},
	}, 3)

	if clause != "tweet_text LIKE $3" {
		t.Errorf("clause = %q", clause)
	}
	if args[0] != "%fever%" {
		t.Errorf("pattern = %v, want wildcards added", args[0])
	}

	clause, _ = r.compileCondition(interfaces.Filter{
		Field: "tweet_text",
		Operator: &interfaces.FilterOperator{
			Like:          "%fever%",
			CaseSensitive: boolPtr(false),
		},
	}, 1)

	if clause != "tweet_text ILIKE $1" {
		t.Errorf("case-insensitive clause = %q, want ILIKE", clause)
	}
}

func TestCompileConditionNullAndIn(t *testing.T) {
	r := newTestRepository()

	clause, args := r.compileCondition(interfaces.Filter{
		Field: "category", Value: nil,
	}, 1)
	if clause != "category IS NULL" || args != nil {
		t.Errorf("nil value clause = %q args = %v", clause, args)
	}

	clause, args = r.compileCondition(interfaces.Filter{
		Field:    "category",
		Operator: &interfaces.FilterOperator{In: []interface{}{"a", "b"}},
	}, 2)
	if clause != "category IN ($2, $3)" {
		t.Errorf("in clause = %q", clause)
	}
	if len(args) != 2 {
		t.Errorf("in args = %v", args)
	}
}

func TestCompileFiltersArgNumbering(t *testing.T) {
	r := newTestRepository()

	where, args := r.compileFilters(&interfaces.Filters{
		Conditions: []interfaces.Filter{
			{Field: "flag", Value: true},
			{Field: "favorite_count", Operator: &interfaces.FilterOperator{Gte: 100}},
		},
	}, 1)

	if where != " WHERE flag = $1 AND favorite_count >= $2" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 || args[0] != true || args[1] != 100 {
		t.Errorf("args = %v", args)
	}
}

func TestCompileFiltersEmpty(t *testing.T) {
	r := newTestRepository()

	where, args := r.compileFilters(nil, 1)
	if where != "" || args != nil {
		t.Errorf("nil filters compiled to %q / %v", where, args)
	}
}

func TestCompileOrder(t *testing.T) {
	r := newTestRepository()

	if got := r.compileOrder(nil); got != " ORDER BY inserted_at ASC" {
		t.Errorf("default order = %q", got)
	}

	got := r.compileOrder([]interfaces.OrderBy{
		{Field: "favorite_count", Direction: "desc"},
		{Field: "screen_name", Direction: "asc"},
	})
	if got != " ORDER BY favorite_count DESC, screen_name ASC" {
		t.Errorf("order = %q", got)
	}
}

func TestCompileSetNullsClearFields(t *testing.T) {
	r := newTestRepository()

	set, args := r.compileSet(map[string]interface{}{
		"category": nil,
		"flag":     true,
	}, 1)

	if !strings.Contains(set, "category = NULL") {
		t.Errorf("set = %q, want NULL assignment for category", set)
	}
	if !strings.Contains(set, "flag = $1") {
		t.Errorf("set = %q", set)
	}
	// flag value plus the updated_at timestamp.
	if len(args) != 2 {
		t.Errorf("args = %v", args)
	}
}
