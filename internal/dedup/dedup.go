// Package dedup separates rows that are new from rows already stored.
package dedup

import (
	"context"
	"fmt"

	"github.com/amishk599/jobmarket/internal/model"
)

// IDSource lists the ids already persisted.
type IDSource interface {
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)
}

// FilterNew returns the rows whose id is not in existing, preserving order.
// When an id repeats inside rows only its first occurrence is kept.
func FilterNew(rows []model.EnrichedRow, existing map[string]struct{}) []model.EnrichedRow {
	out := make([]model.EnrichedRow, 0, len(rows))
	batch := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if _, ok := existing[r.ID]; ok {
			continue
		}
		if _, ok := batch[r.ID]; ok {
			continue
		}
		batch[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Deduplicator filters batches against an IDSource.
type Deduplicator struct {
	ids IDSource
}

func New(ids IDSource) *Deduplicator {
	return &Deduplicator{ids: ids}
}

// NewRows returns the rows not yet stored and how many were dropped.
func (d *Deduplicator) NewRows(ctx context.Context, rows []model.EnrichedRow) ([]model.EnrichedRow, int, error) {
	existing, err := d.ids.ExistingIDs(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("loading existing ids: %w", err)
	}
	fresh := FilterNew(rows, existing)
	return fresh, len(rows) - len(fresh), nil
}
