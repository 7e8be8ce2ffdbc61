package model

import (
	"context"
	"fmt"
	"time"
)

// Query holds the search parameters shared by every page of a run.
// Creation-date bounds are only sent when both are set.
type Query struct {
	Keyword     string
	MinCreation *time.Time
	MaxCreation *time.Time
}

// PageRange is an inclusive result range, sent as range=<start>-<end>.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// TokenSource returns a bearer token for the offers API.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// PageFetcher fetches one page of raw offers using the given bearer token.
type PageFetcher interface {
	FetchPage(ctx context.Context, token string, q Query, r PageRange) ([]RawOffer, error)
}

// RowFilter decides whether an enriched row is kept for persistence.
type RowFilter interface {
	Match(row EnrichedRow) bool
}

// RowStore is the relational store holding enriched rows keyed by id.
type RowStore interface {
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)
	Append(ctx context.Context, rows []EnrichedRow) (int, error)
	All(ctx context.Context) ([]EnrichedRow, error)
	RecordRun(ctx context.Context, report RunReport) error
}

// Notifier announces the outcome of an ingestion run.
type Notifier interface {
	Notify(ctx context.Context, report RunReport) error
}
