package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobmarket/internal/dedup"
	"github.com/amishk599/jobmarket/internal/model"
	"github.com/amishk599/jobmarket/internal/normalize"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), "sqlite", dbPath, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fp(v float64) *float64 { return &v }

func sampleRow(id string) model.EnrichedRow {
	skills := normalize.ExtractSkills("Python, SQL et Power BI")
	return model.EnrichedRow{
		ID:             id,
		Title:          "Data Engineer H/F",
		DateCreation:   "2025-03-04",
		Latitude:       fp(48.85),
		Longitude:      fp(2.35),
		PostalCode:     "75001",
		ContractType:   "CDI",
		ExperienceBool: "Y",
		Experience:     fp(3),
		Competencies:   []string{"Python", "Modéliser des données"},
		JobCategory:    "Data Engineer",
		Chef:           "Other",
		Skills:         skills,
		Year:           2025,
		Month:          3,
		Day:            4,
		MinSalary:      fp(45000),
		MaxSalary:      fp(55000),
		AvgSalary:      fp(50000),
		ExtractedDate:  "2025-03-15",
	}
}

func TestAppendThenAll_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := sampleRow("185XKQW")
	sparse := model.EnrichedRow{ID: "185XKQX", Title: "Data Analyst", JobCategory: "Data Analyst", Chef: "Other", ExperienceBool: "N", ExtractedDate: "2025-03-15"}

	n, err := s.Append(ctx, []model.EnrichedRow{in, sparse})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(all))
	}

	got := all[0]
	if got.ID != in.ID || got.Title != in.Title || got.PostalCode != "75001" {
		t.Errorf("unexpected row: %+v", got)
	}
	if got.Latitude == nil || *got.Latitude != 48.85 {
		t.Errorf("latitude = %v", got.Latitude)
	}
	if got.AvgSalary == nil || *got.AvgSalary != 50000 {
		t.Errorf("avg salary = %v", got.AvgSalary)
	}
	if len(got.Competencies) != 2 || got.Competencies[1] != "Modéliser des données" {
		t.Errorf("competencies = %v", got.Competencies)
	}
	if !got.Skills["power_bi"] || got.Skills["java"] {
		t.Errorf("unexpected skills: power_bi=%v java=%v", got.Skills["power_bi"], got.Skills["java"])
	}
	if got.Year != 2025 || got.Month != 3 || got.Day != 4 {
		t.Errorf("date parts = %d-%d-%d", got.Year, got.Month, got.Day)
	}

	sp := all[1]
	if sp.Latitude != nil || sp.Experience != nil || sp.MinSalary != nil {
		t.Errorf("expected nil optional fields, got %+v", sp)
	}
	if sp.Competencies != nil {
		t.Errorf("expected nil competencies, got %v", sp.Competencies)
	}
}

func TestExistingIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids, err := s.ExistingIDs(ctx)
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty store, got %d ids", len(ids))
	}

	if _, err := s.Append(ctx, []model.EnrichedRow{sampleRow("a"), sampleRow("b")}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	ids, err = s.ExistingIDs(ctx)
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	if _, ok := ids["a"]; !ok || len(ids) != 2 {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestRerunIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := dedup.New(s)
	batch := []model.EnrichedRow{sampleRow("1"), sampleRow("2"), sampleRow("3")}

	for run := 1; run <= 2; run++ {
		fresh, _, err := d.NewRows(ctx, batch)
		if err != nil {
			t.Fatalf("run %d NewRows: %v", run, err)
		}
		if _, err := s.Append(ctx, fresh); err != nil {
			t.Fatalf("run %d Append: %v", run, err)
		}
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows after two identical runs, got %d", len(all))
	}
}

func TestAppend_DuplicateRollsBackBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Append(ctx, []model.EnrichedRow{sampleRow("1")}); err != nil {
		t.Fatalf("seed Append: %v", err)
	}

	_, err := s.Append(ctx, []model.EnrichedRow{sampleRow("2"), sampleRow("1")})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	ids, err := s.ExistingIDs(ctx)
	if err != nil {
		t.Fatalf("ExistingIDs: %v", err)
	}
	if _, ok := ids["2"]; ok {
		t.Error("expected row 2 to be rolled back with the failed batch")
	}
}

func TestAppend_EmptyBatch(t *testing.T) {
	s := newTestStore(t)
	n, err := s.Append(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("expected 0, nil; got %d, %v", n, err)
	}
}

func TestRecordRunThenRecentRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)

	older := model.RunReport{RunID: "r1", Keyword: "data", StartedAt: start, FinishedAt: start.Add(time.Minute), Status: model.RunSuccess, Inserted: 10}
	newer := model.RunReport{
		RunID: "r2", Keyword: "data", From: "2025-03-01", To: "2025-03-16",
		StartedAt: start.Add(24 * time.Hour), FinishedAt: start.Add(25 * time.Hour),
		PagesRequested: 60, PagesSkipped: 1, SkippedRanges: []string{"50-99"},
		Status: model.RunPartial, SnapshotKey: "jobdata_2025-03-16.parquet",
	}
	for _, r := range []model.RunReport{older, newer} {
		if err := s.RecordRun(ctx, r); err != nil {
			t.Fatalf("RecordRun %s: %v", r.RunID, err)
		}
	}

	runs, err := s.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	got := runs[0]
	if got.RunID != "r2" || got.Status != model.RunPartial || got.From != "2025-03-01" {
		t.Errorf("unexpected latest run: %+v", got)
	}
	if len(got.SkippedRanges) != 1 || got.SkippedRanges[0] != "50-99" {
		t.Errorf("skipped ranges = %v", got.SkippedRanges)
	}
	if !got.StartedAt.Equal(newer.StartedAt) {
		t.Errorf("started at = %v", got.StartedAt)
	}
}

func TestOpen_RejectsBadTableName(t *testing.T) {
	_, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "x.db"), "jobs; DROP TABLE x")
	if err == nil {
		t.Fatal("expected error for invalid table name")
	}
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"sqlite": SQLite, "SQLite3": SQLite, "postgres": Postgres, "postgresql": Postgres} {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Error("expected error for mysql")
	}
}
