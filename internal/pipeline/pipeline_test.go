package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobmarket/internal/auth"
	"github.com/amishk599/jobmarket/internal/filter"
	"github.com/amishk599/jobmarket/internal/model"
)

// --- Fakes ---

type staticTokens struct {
	calls int
	err   error
}

func (s *staticTokens) Token(_ context.Context) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("tok-%d", s.calls), nil
}

// pagedFetcher serves canned pages keyed by range and records every request.
type pagedFetcher struct {
	pages   map[string][]model.RawOffer
	fail    map[string]error
	queries []model.Query
	tokens  []string
	ranges  []string
}

func (f *pagedFetcher) FetchPage(_ context.Context, token string, q model.Query, r model.PageRange) ([]model.RawOffer, error) {
	f.tokens = append(f.tokens, token)
	f.queries = append(f.queries, q)
	f.ranges = append(f.ranges, r.String())
	if err, ok := f.fail[r.String()]; ok {
		return nil, err
	}
	return f.pages[r.String()], nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 15, 8, 30, 0, 0, time.UTC)
}

func offer(id, title string) model.RawOffer {
	return model.RawOffer{ID: id, Title: title, DateCreation: "2025-03-04T10:15:00.000Z"}
}

// fullPage returns PageSize data engineer offers with ids prefix-0..prefix-49.
func fullPage(prefix string) []model.RawOffer {
	out := make([]model.RawOffer, 50)
	for i := range out {
		out[i] = offer(fmt.Sprintf("%s-%d", prefix, i), "Data Engineer")
	}
	return out
}

func newPipeline(tokens model.TokenSource, fetcher model.PageFetcher) *Pipeline {
	return New(tokens, fetcher, filter.NewCategoryFilter(nil, nil), fixedClock, discardLogger())
}

// --- Tests ---

func TestRun_DropsOtherAndEnriches(t *testing.T) {
	fetcher := &pagedFetcher{pages: map[string][]model.RawOffer{
		"0-49": {
			offer("1", "Data Engineer H/F"),
			offer("2", "Boulanger"),
			offer("3", "Chef de projet data"),
		},
	}}

	res, err := newPipeline(&staticTokens{}, fetcher).Run(context.Background(), Request{RunID: "r1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Fetched != 3 {
		t.Errorf("expected 3 fetched, got %d", res.Fetched)
	}
	if res.Dropped != 1 {
		t.Errorf("expected 1 dropped, got %d", res.Dropped)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	for _, r := range res.Rows {
		if r.JobCategory == "Other" {
			t.Errorf("row %s persisted with category Other", r.ID)
		}
		if r.ExtractedDate != "2025-03-15" {
			t.Errorf("expected extracted date 2025-03-15, got %s", r.ExtractedDate)
		}
	}
	if res.Rows[1].Chef != "Chef" {
		t.Errorf("expected Chef flag on project lead, got %s", res.Rows[1].Chef)
	}
}

func TestRun_FreshTokenPerPage(t *testing.T) {
	fetcher := &pagedFetcher{pages: map[string][]model.RawOffer{
		"0-49":  fullPage("a"),
		"50-99": fullPage("b"),
	}}
	tokens := &staticTokens{}

	res, err := newPipeline(tokens, fetcher).Run(context.Background(), Request{MaxResults: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens.calls != 2 {
		t.Errorf("expected 2 token requests, got %d", tokens.calls)
	}
	if fetcher.tokens[0] == fetcher.tokens[1] {
		t.Errorf("expected a distinct token per page, got %v", fetcher.tokens)
	}
	if res.PagesRequested != 2 || len(res.Rows) != 100 {
		t.Errorf("unexpected result: pages=%d rows=%d", res.PagesRequested, len(res.Rows))
	}
}

func TestRun_StopsAfterShortPage(t *testing.T) {
	fetcher := &pagedFetcher{pages: map[string][]model.RawOffer{
		"0-49":  fullPage("a"),
		"50-99": {offer("z", "Data Analyst")},
	}}

	res, err := newPipeline(&staticTokens{}, fetcher).Run(context.Background(), Request{MaxResults: 3000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PagesRequested != 2 {
		t.Errorf("expected paging to stop after 2 pages, got %d", res.PagesRequested)
	}
	if len(fetcher.ranges) != 2 {
		t.Errorf("expected 2 fetches, got %v", fetcher.ranges)
	}
}

func TestRun_SkipsFailedPage(t *testing.T) {
	fetcher := &pagedFetcher{
		pages: map[string][]model.RawOffer{
			"0-49":    fullPage("a"),
			"100-149": {offer("c", "Data Scientist")},
		},
		fail: map[string]error{
			"50-99": &model.HTTPError{StatusCode: 500},
		},
	}

	res, err := newPipeline(&staticTokens{}, fetcher).Run(context.Background(), Request{MaxResults: 150})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PagesSkipped != 1 {
		t.Errorf("expected 1 skipped page, got %d", res.PagesSkipped)
	}
	if len(res.SkippedRanges) != 1 || res.SkippedRanges[0] != "50-99" {
		t.Errorf("unexpected skipped ranges: %v", res.SkippedRanges)
	}
	if len(res.Rows) != 51 {
		t.Errorf("expected rows from surviving pages, got %d", len(res.Rows))
	}
}

func TestRun_AuthFailureAborts(t *testing.T) {
	fetcher := &pagedFetcher{}
	tokens := &staticTokens{err: fmt.Errorf("%w: HTTP 401", auth.ErrAuth)}

	_, err := newPipeline(tokens, fetcher).Run(context.Background(), Request{})
	if !errors.Is(err, auth.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if len(fetcher.ranges) != 0 {
		t.Errorf("expected no fetch after auth failure, got %v", fetcher.ranges)
	}
}

func TestRun_RepeatedIDWithinRunKeptOnce(t *testing.T) {
	page := fullPage("a")
	fetcher := &pagedFetcher{pages: map[string][]model.RawOffer{
		"0-49":  page,
		"50-99": {page[0], offer("new", "Data Analyst")},
	}}

	res, err := newPipeline(&staticTokens{}, fetcher).Run(context.Background(), Request{MaxResults: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Repeated != 1 {
		t.Errorf("expected 1 repeated id, got %d", res.Repeated)
	}
	if len(res.Rows) != 51 {
		t.Errorf("expected 51 rows, got %d", len(res.Rows))
	}
}

func TestRun_IDsDifferingOnlyInWhitespaceAreRepeats(t *testing.T) {
	fetcher := &pagedFetcher{pages: map[string][]model.RawOffer{
		"0-49": {
			offer("175XKQP", "Data Engineer"),
			offer(" 175XKQP ", "Data Engineer"),
		},
	}}

	res, err := newPipeline(&staticTokens{}, fetcher).Run(context.Background(), Request{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0].ID != "175XKQP" {
		t.Fatalf("expected one row with the trimmed id, got %+v", res.Rows)
	}
	if res.Repeated != 1 {
		t.Errorf("expected 1 repeated id, got %d", res.Repeated)
	}
}

func TestRun_WindowSentAsQueryBounds(t *testing.T) {
	fetcher := &pagedFetcher{}
	w, err := ExplicitWindow("2025-03-31", "2025-03-01")
	if err != nil {
		t.Fatalf("ExplicitWindow: %v", err)
	}

	if _, err := newPipeline(&staticTokens{}, fetcher).Run(context.Background(), Request{Keyword: "python", Window: w}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := fetcher.queries[0]
	if q.Keyword != "python" {
		t.Errorf("expected keyword python, got %q", q.Keyword)
	}
	if q.MinCreation == nil || q.MaxCreation == nil {
		t.Fatal("expected both creation bounds")
	}
	if !q.MinCreation.Before(*q.MaxCreation) {
		t.Errorf("expected ordered bounds, got %v > %v", q.MinCreation, q.MaxCreation)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPipeline(&staticTokens{}, &pagedFetcher{}).Run(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEnrich(t *testing.T) {
	lat := 48.85
	f := model.FlatRow{
		ID:             "185XKQW",
		Title:          "Data Engineer H/F",
		Description:    "Stack : Python, SQL et Power BI. Connaissance de sas-based appréciée.",
		DateCreation:   "2024-10-18T09:12:44.000Z",
		Latitude:       &lat,
		PostalCode:     "75001",
		ExperienceBool: "E",
		Experience:     "3 An(s)",
		Salary:         "Mensuel de 3000.0 Euros à 4000.0 Euros sur 12 mois",
		Competencies:   []string{"Python"},
	}

	row := Enrich(f, fixedClock())

	if row.JobCategory != "Data Engineer" {
		t.Errorf("category = %q", row.JobCategory)
	}
	if row.Chef != "Other" {
		t.Errorf("chef = %q", row.Chef)
	}
	if row.DateCreation != "2024-10-18" || row.Year != 2024 || row.Month != 10 || row.Day != 18 {
		t.Errorf("unexpected date parts: %s %d-%d-%d", row.DateCreation, row.Year, row.Month, row.Day)
	}
	if row.ExperienceBool != "Y" {
		t.Errorf("experience_bool = %q", row.ExperienceBool)
	}
	if row.Experience == nil || *row.Experience != 3 {
		t.Errorf("experience = %v", row.Experience)
	}
	if row.MinSalary == nil || *row.MinSalary != 36000 || *row.MaxSalary != 48000 || *row.AvgSalary != 42000 {
		t.Errorf("unexpected salary: %v %v %v", row.MinSalary, row.MaxSalary, row.AvgSalary)
	}
	for col, want := range map[string]bool{"python": true, "sql": true, "power_bi": true, "sas": false, "java": false} {
		if row.Skills[col] != want {
			t.Errorf("skill %s = %v, want %v", col, row.Skills[col], want)
		}
	}
	if row.ExtractedDate != "2025-03-15" {
		t.Errorf("extracted date = %q", row.ExtractedDate)
	}
}

func TestEnrich_UnparseableFieldsAreNil(t *testing.T) {
	row := Enrich(model.FlatRow{ID: "x", Title: "Data", DateCreation: "hier", Experience: "Expérience exigée", Salary: "Selon profil"}, fixedClock())

	if row.Experience != nil {
		t.Errorf("expected nil experience, got %v", *row.Experience)
	}
	if row.MinSalary != nil || row.MaxSalary != nil || row.AvgSalary != nil {
		t.Error("expected nil salary triple")
	}
	if row.Year != 0 || row.DateCreation != "hier" {
		t.Errorf("expected raw date kept with zero parts, got %q %d", row.DateCreation, row.Year)
	}
}
