package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/amishk599/jobmarket/internal/model"
)

const (
	DefaultSearchURL = "https://api.francetravail.io/partenaire/offresdemploi/v2/offres/search"

	// PageSize is the number of offers requested per range.
	PageSize = 50

	dateLayout = "2006-01-02T15:04:05Z"
)

// FranceTravailAdapter fetches pages of offers from the France Travail
// offers search API.
type FranceTravailAdapter struct {
	searchURL string
	client    *http.Client
}

// NewFranceTravailAdapter creates an adapter. An empty searchURL selects
// DefaultSearchURL.
func NewFranceTravailAdapter(searchURL string, client *http.Client) *FranceTravailAdapter {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return &FranceTravailAdapter{
		searchURL: searchURL,
		client:    client,
	}
}

// FetchPage performs one authenticated search request for the given range.
// 200 and 206 carry results, 204 means the range is past the end.
func (a *FranceTravailAdapter) FetchPage(ctx context.Context, token string, q model.Query, r model.PageRange) ([]model.RawOffer, error) {
	u, err := url.Parse(a.searchURL)
	if err != nil {
		return nil, fmt.Errorf("francetravail fetch %s: %w", r, err)
	}
	u.RawQuery = searchParams(q, r).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("francetravail fetch %s: %w", r, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("francetravail fetch %s: %w", r, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
	case http.StatusNoContent:
		return nil, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Body:       strings.TrimSpace(string(body)),
			Err:        fmt.Errorf("francetravail fetch %s: unexpected status %d", r, resp.StatusCode),
		}
	}

	var sr model.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("francetravail fetch %s: decoding response: %w", r, err)
	}
	return sr.Results, nil
}

func searchParams(q model.Query, r model.PageRange) url.Values {
	v := url.Values{}
	v.Set("range", r.String())
	if q.Keyword != "" {
		v.Set("motsCles", q.Keyword)
	}
	if q.MinCreation != nil && q.MaxCreation != nil {
		v.Set("minCreationDate", q.MinCreation.UTC().Format(dateLayout))
		v.Set("maxCreationDate", q.MaxCreation.UTC().Format(dateLayout))
	}
	return v
}

// Pages returns the ranges 0-49, 50-99, ... whose starts lie below
// maxResults. Every range spans a full PageSize.
func Pages(maxResults int) []model.PageRange {
	if maxResults <= 0 {
		return nil
	}
	pages := make([]model.PageRange, 0, (maxResults+PageSize-1)/PageSize)
	for start := 0; start < maxResults; start += PageSize {
		pages = append(pages, model.PageRange{Start: start, End: start + PageSize - 1})
	}
	return pages
}
