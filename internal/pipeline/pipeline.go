// Package pipeline turns pages of raw offers into enriched, filtered rows.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobmarket/internal/adapter"
	"github.com/amishk599/jobmarket/internal/extract"
	"github.com/amishk599/jobmarket/internal/model"
	"github.com/amishk599/jobmarket/internal/normalize"
)

const (
	DefaultKeyword    = "data"
	DefaultMaxResults = 3000
)

// Request describes one ingestion run.
type Request struct {
	RunID      string
	Keyword    string
	Window     Window
	MaxResults int
}

// Result holds the rows kept by a run together with its counters.
type Result struct {
	Rows []model.EnrichedRow

	PagesRequested int
	PagesSkipped   int
	SkippedRanges  []string
	Fetched        int
	Dropped        int // rejected by the filter, mostly unclassifiable titles
	Repeated       int // ids seen earlier in the same run
}

// Pipeline owns token, fetch, flatten, enrich and filter for one run.
type Pipeline struct {
	tokens  model.TokenSource
	fetcher model.PageFetcher
	filter  model.RowFilter
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a pipeline wired with its dependencies. A nil now uses time.Now.
func New(
	tokens model.TokenSource,
	fetcher model.PageFetcher,
	filter model.RowFilter,
	now func() time.Time,
	logger *slog.Logger,
) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		tokens:  tokens,
		fetcher: fetcher,
		filter:  filter,
		now:     now,
		logger:  logger,
	}
}

// Run pages through the search results. A token is requested before every
// page and a token failure aborts the run. A page that still fails after the
// fetcher's retries is skipped and recorded in the result. Paging stops early
// once a page returns fewer than a full page of offers.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Keyword == "" {
		req.Keyword = DefaultKeyword
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}

	q := model.Query{Keyword: req.Keyword}
	if !req.Window.IsZero() {
		from, to := req.Window.From, req.Window.To
		q.MinCreation, q.MaxCreation = &from, &to
	}

	runDate := p.now()
	res := &Result{}
	seen := make(map[string]struct{})

	for _, r := range adapter.Pages(req.MaxResults) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.PagesRequested++

		token, err := p.tokens.Token(ctx)
		if err != nil {
			return res, fmt.Errorf("run %s: token for range %s: %w", req.RunID, r, err)
		}

		offers, err := p.fetcher.FetchPage(ctx, token, q, r)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.PagesSkipped++
			res.SkippedRanges = append(res.SkippedRanges, r.String())
			p.logger.Warn("skipping page",
				"run_id", req.RunID,
				"range", r.String(),
				"error", err,
			)
			continue
		}

		res.Fetched += len(offers)
		kept := 0
		for _, f := range extract.FlattenAll(offers) {
			if _, dup := seen[f.ID]; dup {
				res.Repeated++
				continue
			}
			seen[f.ID] = struct{}{}

			row := Enrich(f, runDate)
			if !p.filter.Match(row) {
				res.Dropped++
				continue
			}
			res.Rows = append(res.Rows, row)
			kept++
		}

		p.logger.Debug("fetched page",
			"run_id", req.RunID,
			"range", r.String(),
			"fetched", len(offers),
			"kept", kept,
		)

		if len(offers) < adapter.PageSize {
			break
		}
	}

	p.logger.Info("pipeline finished",
		"run_id", req.RunID,
		"keyword", req.Keyword,
		"window", req.Window.String(),
		"pages", res.PagesRequested,
		"skipped", res.PagesSkipped,
		"fetched", res.Fetched,
		"dropped", res.Dropped,
		"kept", len(res.Rows),
	)

	return res, nil
}

// Enrich classifies and normalizes one flattened offer. runDate is stamped
// as the extraction date.
func Enrich(f model.FlatRow, runDate time.Time) model.EnrichedRow {
	row := model.EnrichedRow{
		ID:                f.ID,
		Title:             f.Title,
		DateCreation:      f.DateCreation,
		DateActualization: f.DateActualization,
		Latitude:          f.Latitude,
		Longitude:         f.Longitude,
		PostalCode:        f.PostalCode,
		ContractType:      f.ContractType,
		ContractNature:    f.ContractNature,
		ExperienceBool:    normalize.MapExperienceRequired(f.ExperienceBool),
		Experience:        normalize.ParseExperience(f.Experience),
		CompanyField:      f.CompanyField,
		Competencies:      f.Competencies,
		JobCategory:       string(normalize.ClassifyJobTitle(f.Title)),
		Chef:              normalize.ClassifyChef(f.Title),
		Skills:            normalize.ExtractSkills(f.Description),
		ExtractedDate:     runDate.Format(dayLayout),
	}

	if d, ok := normalize.DecomposeDate(f.DateCreation); ok {
		row.DateCreation = d.Date
		row.Year, row.Month, row.Day = d.Year, d.Month, d.Day
	}

	s := normalize.ParseSalary(f.Salary)
	row.MinSalary, row.MaxSalary, row.AvgSalary = s.Min, s.Max, s.Avg

	return row
}
