package filter

import (
	"strings"

	"github.com/amishk599/jobmarket/internal/model"
	"github.com/amishk599/jobmarket/internal/normalize"
)

// CategoryFilter keeps rows that were classified into a data category.
// Optionally it also drops titles containing an excluded keyword and keeps
// only postal codes starting with one of the configured prefixes.
// Matching is case-insensitive. Empty lists are treated as "match all".
type CategoryFilter struct {
	excludeTitles  []string
	postalPrefixes []string
}

// NewCategoryFilter returns a filter that rejects the Other category, any
// title containing an excluded keyword, and postal codes outside the prefixes.
func NewCategoryFilter(excludeTitles []string, postalPrefixes []string) *CategoryFilter {
	return &CategoryFilter{
		excludeTitles:  excludeTitles,
		postalPrefixes: postalPrefixes,
	}
}

// Match returns true if the row should be persisted.
func (f *CategoryFilter) Match(row model.EnrichedRow) bool {
	if row.JobCategory == "" || row.JobCategory == string(normalize.Other) {
		return false
	}

	if len(f.excludeTitles) > 0 {
		titleLower := strings.ToLower(row.Title)
		for _, kw := range f.excludeTitles {
			if strings.Contains(titleLower, strings.ToLower(kw)) {
				return false
			}
		}
	}

	if len(f.postalPrefixes) > 0 {
		matched := false
		for _, p := range f.postalPrefixes {
			if strings.HasPrefix(row.PostalCode, p) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}
