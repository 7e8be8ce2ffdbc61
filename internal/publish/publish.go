// Package publish writes a batch of new rows to the relational store and a
// dated parquet snapshot to blob storage.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobmarket/internal/blob"
	"github.com/amishk599/jobmarket/internal/model"
	"github.com/amishk599/jobmarket/internal/snapshot"
)

// ErrSnapshotUpload marks a failed snapshot upload. The rows were already
// committed to the store when it is returned.
var ErrSnapshotUpload = errors.New("snapshot upload failed")

// Appender inserts rows atomically.
type Appender interface {
	Append(ctx context.Context, rows []model.EnrichedRow) (int, error)
}

// Report is the outcome of one Publish call.
type Report struct {
	Inserted        int
	SnapshotKey     string
	SnapshotBytes   int
	NothingToInsert bool
}

// Publisher persists batches of new rows.
type Publisher struct {
	store  Appender
	bucket blob.Bucket
	prefix string
	logger *slog.Logger
}

func New(store Appender, bucket blob.Bucket, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		store:  store,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

// Publish appends rows to the store, then uploads them as
// jobdata_<runDate>.parquet. An empty batch is a no-op. An upload failure
// wraps ErrSnapshotUpload and leaves the insert in place.
func (p *Publisher) Publish(ctx context.Context, rows []model.EnrichedRow, runDate time.Time) (*Report, error) {
	if len(rows) == 0 {
		p.logger.Info("nothing to insert")
		return &Report{NothingToInsert: true}, nil
	}

	n, err := p.store.Append(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("appending %d rows: %w", len(rows), err)
	}
	rep := &Report{Inserted: n}

	key, size, err := p.upload(ctx, rows, snapshot.Key(p.prefix, runDate))
	if err != nil {
		return rep, err
	}
	rep.SnapshotKey, rep.SnapshotBytes = key, size

	p.logger.Info("published batch",
		"inserted", n,
		"snapshot", key,
		"bytes", size,
	)
	return rep, nil
}

// Export uploads a snapshot of every row, typically the result of a full
// table read, as jobdata_full_<runDate>.parquet so it never replaces the run
// snapshot of the same day. Nothing is written to the store.
func (p *Publisher) Export(ctx context.Context, rows []model.EnrichedRow, runDate time.Time) (*Report, error) {
	key, size, err := p.upload(ctx, rows, snapshot.FullKey(p.prefix, runDate))
	if err != nil {
		return nil, err
	}
	p.logger.Info("exported dataset", "rows", len(rows), "snapshot", key, "bytes", size)
	return &Report{SnapshotKey: key, SnapshotBytes: size}, nil
}

func (p *Publisher) upload(ctx context.Context, rows []model.EnrichedRow, key string) (string, int, error) {
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, rows); err != nil {
		return key, 0, fmt.Errorf("%w: encoding %s: %w", ErrSnapshotUpload, key, err)
	}
	if err := p.bucket.Put(ctx, key, buf.Bytes(), snapshot.ContentType); err != nil {
		return key, 0, fmt.Errorf("%w: %w", ErrSnapshotUpload, err)
	}
	return key, buf.Len(), nil
}
