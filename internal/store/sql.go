package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/amishk599/jobmarket/internal/model"
)

const (
	DefaultTable = "ft_jobdata"
	runsTable    = "ingestion_runs"
)

// ErrDuplicateID is returned by Append when a row's id is already stored.
var ErrDuplicateID = errors.New("duplicate job id")

// SQLStore persists enriched rows in a relational table keyed by id and keeps
// a log of ingestion runs.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// Open connects to the database described by driver and dsn, then creates
// the tables if they do not exist.
func Open(ctx context.Context, driver, dsn, table string) (*SQLStore, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", dialect, err)
	}
	if dialect == SQLite {
		// One writer at a time avoids SQLITE_BUSY inside Append's transaction.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s db: %w", dialect, err)
	}

	s, err := NewSQLStore(db, dialect, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an existing connection. An empty table selects DefaultTable.
func NewSQLStore(db *sql.DB, dialect Dialect, table string) (*SQLStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if err := validIdent(table); err != nil {
		return nil, err
	}
	return &SQLStore{db: db, dialect: dialect, table: table}, nil
}

// Migrate creates the job and run tables if they are missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	cols := columns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		def := quoteIdent(c.name) + " " + s.dialect.typeName(c.kind)
		if c.name == "id" {
			def += " PRIMARY KEY"
		}
		defs[i] = def
	}
	jobs := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quoteIdent(s.table), strings.Join(defs, ",\n\t"))
	if _, err := s.db.ExecContext(ctx, jobs); err != nil {
		return fmt.Errorf("creating %s table: %w", s.table, err)
	}

	runs := `CREATE TABLE IF NOT EXISTS ` + quoteIdent(runsTable) + ` (
		"run_id"          TEXT PRIMARY KEY,
		"keyword"         TEXT,
		"window_from"     TEXT,
		"window_to"       TEXT,
		"started_at"      TEXT,
		"finished_at"     TEXT,
		"pages_requested" INTEGER,
		"pages_skipped"   INTEGER,
		"skipped_ranges"  TEXT,
		"fetched"         INTEGER,
		"dropped"         INTEGER,
		"duplicates"      INTEGER,
		"inserted"        INTEGER,
		"snapshot_key"    TEXT,
		"status"          TEXT,
		"error"           TEXT
	)`
	if _, err := s.db.ExecContext(ctx, runs); err != nil {
		return fmt.Errorf("creating %s table: %w", runsTable, err)
	}
	return nil
}

// ExistingIDs returns every id currently stored.
func (s *SQLStore) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+quoteIdent("id")+" FROM "+quoteIdent(s.table))
	if err != nil {
		return nil, fmt.Errorf("listing ids in %s: %w", s.table, err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing ids in %s: %w", s.table, err)
	}
	return ids, nil
}

func (s *SQLStore) insertStatement() string {
	names := ColumnNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(s.table), strings.Join(quoted, ", "), s.dialect.placeholders(len(names)))
}

// Append inserts rows in a single transaction. Any failure rolls the whole
// batch back. A primary-key conflict is reported as ErrDuplicateID.
func (s *SQLStore) Append(ctx context.Context, rows []model.EnrichedRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt := s.insertStatement()
	for _, r := range rows {
		vals, err := rowValues(r)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, stmt, vals...); err != nil {
			tx.Rollback()
			if isUniqueViolation(err) {
				return 0, fmt.Errorf("inserting %s: %w: %w", r.ID, ErrDuplicateID, err)
			}
			return 0, fmt.Errorf("inserting %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing insert of %d rows: %w", len(rows), err)
	}
	return len(rows), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// All returns every stored row ordered by id.
func (s *SQLStore) All(ctx context.Context) ([]model.EnrichedRow, error) {
	names := ColumnNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ", "), quoteIdent(s.table), quoteIdent("id"))

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.table, err)
	}
	defer rows.Close()

	var out []model.EnrichedRow
	for rows.Next() {
		sc := newRowScanner()
		if err := rows.Scan(sc.dest()...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", s.table, err)
		}
		r, err := sc.row()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.table, err)
	}
	return out, nil
}

// RecordRun stores the outcome of one ingestion run.
func (s *SQLStore) RecordRun(ctx context.Context, r model.RunReport) error {
	skipped, err := json.Marshal(r.SkippedRanges)
	if err != nil {
		return fmt.Errorf("encoding skipped ranges: %w", err)
	}

	q := `INSERT INTO ` + quoteIdent(runsTable) + ` ("run_id", "keyword", "window_from", "window_to",
		"started_at", "finished_at", "pages_requested", "pages_skipped", "skipped_ranges",
		"fetched", "dropped", "duplicates", "inserted", "snapshot_key", "status", "error")
		VALUES (` + s.dialect.placeholders(16) + `)`

	_, err = s.db.ExecContext(ctx, q,
		r.RunID, r.Keyword, r.From, r.To,
		formatTime(r.StartedAt), formatTime(r.FinishedAt),
		r.PagesRequested, r.PagesSkipped, string(skipped),
		r.Fetched, r.Dropped, r.Duplicates, r.Inserted,
		r.SnapshotKey, r.Status, r.Error,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", r.RunID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, most recent first.
func (s *SQLStore) RecentRuns(ctx context.Context, limit int) ([]model.RunReport, error) {
	q := `SELECT "run_id", "keyword", "window_from", "window_to", "started_at", "finished_at",
		"pages_requested", "pages_skipped", "skipped_ranges", "fetched", "dropped",
		"duplicates", "inserted", "snapshot_key", "status", "error"
		FROM ` + quoteIdent(runsTable) + ` ORDER BY "started_at" DESC LIMIT ` + s.dialect.placeholder(1)

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []model.RunReport
	for rows.Next() {
		var (
			r                 model.RunReport
			started, finished string
			skipped           sql.NullString
			from, to          sql.NullString
			snapshot, errText sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.Keyword, &from, &to, &started, &finished,
			&r.PagesRequested, &r.PagesSkipped, &skipped, &r.Fetched, &r.Dropped,
			&r.Duplicates, &r.Inserted, &snapshot, &r.Status, &errText); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.From, r.To = from.String, to.String
		r.SnapshotKey, r.Error = snapshot.String, errText.String
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		if skipped.Valid && skipped.String != "" {
			if err := json.Unmarshal([]byte(skipped.String), &r.SkippedRanges); err != nil {
				return nil, fmt.Errorf("decoding skipped ranges for %s: %w", r.RunID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
