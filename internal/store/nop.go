package store

import (
	"context"

	"github.com/amishk599/jobmarket/internal/model"
)

// NopStore is a no-op store used in dry-run mode. It reports no existing ids,
// so every fetched row appears new, and discards writes.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) ExistingIDs(context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}
func (s *NopStore) Append(_ context.Context, rows []model.EnrichedRow) (int, error) {
	return len(rows), nil
}
func (s *NopStore) All(context.Context) ([]model.EnrichedRow, error) { return nil, nil }
func (s *NopStore) RecordRun(context.Context, model.RunReport) error { return nil }
func (s *NopStore) Close() error                                     { return nil }
