package normalize

import (
	"strings"
	"time"
)

// DateParts is a creation timestamp broken into calendar components.
type DateParts struct {
	Year  int
	Month int
	Day   int
	Date  string // YYYY-MM-DD
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DecomposeDate parses an API timestamp such as "2024-10-18T09:12:44.000Z".
// The second return value is false when no known layout matches.
func DecomposeDate(ts string) (DateParts, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return DateParts{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, ts)
		if err != nil {
			continue
		}
		return DateParts{
			Year:  t.Year(),
			Month: int(t.Month()),
			Day:   t.Day(),
			Date:  t.Format("2006-01-02"),
		}, true
	}
	return DateParts{}, false
}
