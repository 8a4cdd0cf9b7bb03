package query

import (
	"testing"

	"github.com/curatedthreads/threads-backend/internal/db/entities"
	"github.com/curatedthreads/threads-backend/internal/db/interfaces"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestMatchesFilters(t *testing.T) {
	b := NewBuilder(entities.PostSchema)

	record := map[string]interface{}{
		"screen_name":    "drexample",
		"tweet_text":     "Fever workup thresholds by age",
		"favorite_count": 240,
		"category":       "Cardiology",
		"flag":           true,
	}

	tests := []struct {
		name    string
		filters *interfaces.Filters
		want    bool
	}{
		{
			name: "equality match",
			filters: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "flag", Value: true},
			}},
			want: true,
		},
		{
			name: "equality mismatch",
			filters: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "screen_name", Value: "someone_else"},
			}},
			want: false,
		},
		{
			name: "case insensitive eq",
			filters: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "category", Operator: &interfaces.FilterOperator{
					Eq: "cardiology", CaseSensitive: boolPtr(false),
				}},
			}},
			want: true,
		},
		{
			name: "case sensitive eq mismatch",
			filters: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "category", Operator: &interfaces.FilterOperator{
					Eq: "cardiology",
				}},
			}},
			want: false,
		},
		{
			name: "case insensitive like",
			filters: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "tweet_text", Operator: &interfaces.FilterOperator{
					Like: "%fever%", CaseSensitive: boolPtr(false),
				}},
			}},
			want: true,
		},
		{
			name: "gte",
			filters: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "favorite_count", Operator: &interfaces.FilterOperator{Gte: 100}},
			}},
			want: true,
		},
		{
			name: "lt mismatch",
			filters: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "favorite_count", Operator: &interfaces.FilterOperator{Lt: 100}},
			}},
			want: false,
		},
		{
			name: "in",
			filters: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "category", Operator: &interfaces.FilterOperator{
					In: []interface{}{"Neurology", "Cardiology"},
				}},
			}},
			want: true,
		},
		{
			name: "is null on absent field",
			filters: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "avatar_url", Operator: &interfaces.FilterOperator{IsNull: true}},
			}},
			want: true,
		},
		{
			name: "or group",
			filters: &interfaces.Filters{OR: []*interfaces.Filters{
				{Conditions: []interfaces.Filter{{Field: "screen_name", Value: "nobody"}}},
				{Conditions: []interfaces.Filter{{Field: "screen_name", Value: "drexample"}}},
			}},
			want: true,
		},
		{
			name: "and group fails together",
			filters: &interfaces.Filters{Conditions: []interfaces.Filter{
				{Field: "flag", Value: true},
				{Field: "category", Value: "Neurology"},
			}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.MatchesFilters(record, tt.filters); got != tt.want {
				t.Errorf("MatchesFilters() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplySortStable(t *testing.T) {
	b := NewBuilder(entities.PostSchema)

	records := []map[string]interface{}{
		{"id": "a", "favorite_count": 10},
		{"id": "b", "favorite_count": 20},
		{"id": "c", "favorite_count": 10},
	}

	sorted := b.ApplySort(records, []interfaces.OrderBy{
		{Field: "favorite_count", Direction: "desc"},
	})

	got := []string{
		sorted[0]["id"].(string),
		sorted[1]["id"].(string),
		sorted[2]["id"].(string),
	}
	want := []string{"b", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sort order = %v, want %v", got, want)
		}
	}

	// Input slice must not be reordered.
	if records[0]["id"] != "a" {
		t.Error("ApplySort mutated its input")
	}
}

func TestApplyPagination(t *testing.T) {
	b := NewBuilder(entities.PostSchema)

	records := []map[string]interface{}{
		{"id": "a"}, {"id": "b"}, {"id": "c"},
	}

	page := b.ApplyPagination(records, intPtr(2), intPtr(0))
	if len(page) != 2 || page[0]["id"] != "a" {
		t.Errorf("first page = %v", page)
	}

	page = b.ApplyPagination(records, intPtr(2), intPtr(2))
	if len(page) != 1 || page[0]["id"] != "c" {
		t.Errorf("last page = %v", page)
	}

	page = b.ApplyPagination(records, intPtr(2), intPtr(10))
	if len(page) != 0 {
		t.Errorf("out-of-range page = %v, want empty", page)
	}
}

func TestValidateData(t *testing.T) {
	b := NewBuilder(entities.PostSchema)

	valid := map[string]interface{}{
		"screen_name": "drexample",
		"tweet_id":    "1",
		"rest_id":     "1",
		"tweet_text":  "hello",
		"created_at":  "2nd April 2024",
		"tweet_url":   "https://twitter.com/drexample/status/1",
	}
	if err := b.ValidateData(valid); err != nil {
		t.Fatalf("ValidateData() = %v, want nil", err)
	}

	missing := map[string]interface{}{"screen_name": "drexample"}
	if err := b.ValidateData(missing); err == nil {
		t.Error("expected error for missing required fields")
	}

	wrongType := map[string]interface{}{}
	for k, v := range valid {
		wrongType[k] = v
	}
	wrongType["retweet_count"] = "twelve"
	if err := b.ValidateData(wrongType); err == nil {
		t.Error("expected error for string retweet_count")
	}
}
