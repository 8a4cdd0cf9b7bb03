package feed

import (
	"regexp"
	"strings"
	"time"
)

// DateUnavailable is the display value for dates that cannot be parsed.
const DateUnavailable = "Date unavailable"

var ordinalSuffixPattern = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)

// dateLayouts are the formats source dates have been observed in: the
// provider's native format, RFC3339 from ingestion fallbacks, and
// human-entered forms from the legacy importer.
var dateLayouts = []string{
	time.RubyDate,             // Tue Apr 02 10:00:00 +0000 2024
	time.RFC3339,              // 2024-04-02T10:00:00Z
	"2006-01-02T15:04:05.000Z",
	"2006-01-02",
	"2 January 2006",  // 2nd April 2024, after suffix stripping
	"January 2, 2006", // April 2nd, 2024, after suffix stripping
	"2 Jan 2006",
}

// ParseDate parses a source date string. Ordinal suffixes ("2nd April
// 2024") are stripped before matching. The zero time and false come back
// for anything unparseable.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	cleaned := ordinalSuffixPattern.ReplaceAllString(raw, "$1")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DisplayDate renders a source date for feed cards, or DateUnavailable.
func DisplayDate(raw string) string {
	t, ok := ParseDate(raw)
	if !ok {
		return DateUnavailable
	}
	return t.Format("Jan 2, 2006")
}

// SortDate returns the timestamp used for recency ordering. Unparseable
// dates sort as the epoch zero, pushing them to the end of a recent-first
// feed instead of dropping the posts.
func SortDate(raw string) time.Time {
	t, ok := ParseDate(raw)
	if !ok {
		return time.Time{}
	}
	return t
}
