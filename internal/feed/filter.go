package feed

import (
	"sort"
	"strings"
	"time"
)

// DefaultPageSize is how many cards a feed page holds.
const DefaultPageSize = 9

// Sort orders for the feed.
const (
	SortAll       = "all"
	SortPopular   = "popular"
	SortRecent    = "recent"
	SortDiscussed = "discussed"
)

// Request carries the public filter controls. Zero values mean "no
// constraint" for every field.
type Request struct {
	Search     string     `json:"search"`
	MinLikes   int        `json:"min_likes"`
	DateFrom   *time.Time `json:"date_from"`
	DateTo     *time.Time `json:"date_to"`
	Authors    []string   `json:"authors"`
	Categories []string   `json:"categories"`
	Sort       string     `json:"sort"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}

// Page is one page of filtered feed results.
type Page struct {
	Items      []Item `json:"items"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
}

// Apply runs the filter pipeline over items. Stages always run in the
// same order: search, likes threshold, date range, authors, categories,
// sort, then pagination. Out-of-range pages return empty items with the
// real totals so clients can reset to page 1.
func Apply(items []Item, req Request) Page {
	filtered := items
	filtered = filterSearch(filtered, req.Search)
	filtered = filterMinLikes(filtered, req.MinLikes)
	filtered = filterDateRange(filtered, req.DateFrom, req.DateTo)
	filtered = filterAuthors(filtered, req.Authors)
	filtered = filterCategories(filtered, req.Categories)
	filtered = applySort(filtered, req.Sort)

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Items:      filtered[start:end],
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// filterSearch keeps items where the query appears in the content, the
// author name, the handle, or any tag. Matching is case-insensitive.
func filterSearch(items []Item, search string) []Item {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return items
	}

	matched := make([]Item, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Content), search) ||
			strings.Contains(strings.ToLower(item.Name), search) ||
			strings.Contains(strings.ToLower(item.Handle), search) ||
			tagsMatch(item.Tags, search) {
			matched = append(matched, item)
		}
	}
	return matched
}

func tagsMatch(tags []string, search string) bool {
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

func filterMinLikes(items []Item, minLikes int) []Item {
	if minLikes <= 0 {
		return items
	}

	matched := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Likes >= minLikes {
			matched = append(matched, item)
		}
	}
	return matched
}

// filterDateRange keeps items whose parsed date falls inside [from, to].
// Items with unparseable dates only survive when no range is set.
func filterDateRange(items []Item, from, to *time.Time) []Item {
	if from == nil && to == nil {
		return items
	}

	matched := make([]Item, 0, len(items))
	for _, item := range items {
		if item.SortDate.IsZero() {
			continue
		}
		if from != nil && item.SortDate.Before(*from) {
			continue
		}
		if to != nil && item.SortDate.After(*to) {
			continue
		}
		matched = append(matched, item)
	}
	return matched
}

// filterAuthors keeps items from the named authors. Names match the
// handle (with or without @) or the display name, case-insensitively.
func filterAuthors(items []Item, authors []string) []Item {
	if len(authors) == 0 {
		return items
	}

	wanted := make(map[string]struct{}, len(authors))
	for _, author := range authors {
		author = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(author), "@"))
		if author != "" {
			wanted[author] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return items
	}

	matched := make([]Item, 0, len(items))
	for _, item := range items {
		handle := strings.TrimPrefix(item.Handle, "@")
		if _, ok := wanted[handle]; ok {
			matched = append(matched, item)
			continue
		}
		if _, ok := wanted[strings.ToLower(item.Name)]; ok {
			matched = append(matched, item)
		}
	}
	return matched
}

func filterCategories(items []Item, categories []string) []Item {
	if len(categories) == 0 {
		return items
	}

	wanted := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if category != "" {
			wanted[category] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return items
	}

	matched := make([]Item, 0, len(items))
	for _, item := range items {
		for _, tag := range item.Tags {
			if _, ok := wanted[strings.ToLower(tag)]; ok {
				matched = append(matched, item)
				break
			}
		}
	}
	return matched
}

// applySort orders items. "all" and unknown values keep the input order,
// which is newest-insert-first from the store. Sorts are stable so ties
// keep that order too.
func applySort(items []Item, sortOrder string) []Item {
	var less func(a, b Item) bool

	switch sortOrder {
	case SortPopular:
		less = func(a, b Item) bool { return a.Likes > b.Likes }
	case SortRecent:
		less = func(a, b Item) bool { return a.SortDate.After(b.SortDate) }
	case SortDiscussed:
		less = func(a, b Item) bool { return a.Replies > b.Replies }
	default:
		return items
	}

	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	return sorted
}
