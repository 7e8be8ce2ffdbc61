// Package blob stores named objects: snapshots are put, listed and fetched
// by key.
package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/amishk599/jobmarket/internal/snapshot"
)

// ErrNotFound is returned by Get when no object has the key.
var ErrNotFound = errors.New("blob not found")

// Bucket is a flat key/value object store.
type Bucket interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// LatestSnapshot returns the key of the most recent dated snapshot of kind
// under prefix, or ErrNotFound when there is none.
func LatestSnapshot(ctx context.Context, b Bucket, prefix string, kind snapshot.Kind) (string, error) {
	keys, err := b.List(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("listing snapshots under %q: %w", prefix, err)
	}
	key, ok := snapshot.Latest(keys, kind)
	if !ok {
		return "", fmt.Errorf("no %s snapshot under %q: %w", kind, prefix, ErrNotFound)
	}
	return key, nil
}
