// Package scraper downloads location schedule pages and turns their tables
// into slot snapshots.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"nyurban_tracker/internal/logging"
	"nyurban_tracker/internal/metrics"
	"nyurban_tracker/internal/model"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const maxBodySize = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Scraper fetches location pages one at a time.
type Scraper struct {
	client    HTTPClient
	baseURL   string
	timeout   time.Duration
	columns   ColumnMap
	matchers  []TableMatcher
	locations []model.Location
	log       *slog.Logger
}

// New creates a Scraper for baseURL with the given HTTP client.
func New(client HTTPClient, baseURL string, timeout time.Duration, log *slog.Logger) *Scraper {
	return &Scraper{
		client:    client,
		baseURL:   baseURL,
		timeout:   timeout,
		columns:   DefaultColumns,
		matchers:  DefaultMatchers,
		locations: model.Locations,
		log:       log,
	}
}

// SetLocations overrides the locations checked by FetchAll.
func (s *Scraper) SetLocations(locs []model.Location) {
	s.locations = locs
}

// LocationURL returns the schedule page for a location filter.
func (s *Scraper) LocationURL(id int) (string, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("filter_id", strconv.Itoa(id))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchAll checks every location in order and unions the results. Locations
// that fail contribute nothing.
func (s *Scraper) FetchAll(ctx context.Context) model.Snapshot {
	log := logging.FromContext(ctx, s.log)
	var all model.Snapshot
	for _, loc := range s.locations {
		if ctx.Err() != nil {
			break
		}
		log.Info("checking location", "location", loc.Name)
		slots := s.FetchLocation(ctx, loc)
		if slots.Len() > 0 {
			log.Info("found slots", "location", loc.Name, "count", slots.Len())
		}
		all.Merge(slots)
	}
	return all
}

// FetchLocation scrapes one location. Any failure is logged and yields an
// empty snapshot.
func (s *Scraper) FetchLocation(ctx context.Context, loc model.Location) model.Snapshot {
	start := time.Now()
	snap, err := s.fetchLocation(ctx, loc)
	metrics.ObserveFetch(loc.Name, time.Since(start), err)
	if err != nil {
		logging.FromContext(ctx, s.log).Warn("fetch location", "location", loc.Name, "error", err)
		return model.Snapshot{}
	}
	return snap
}

func (s *Scraper) fetchLocation(ctx context.Context, loc model.Location) (model.Snapshot, error) {
	doc, err := s.fetchDocument(ctx, loc.ID)
	if err != nil {
		return model.Snapshot{}, err
	}

	table, matcher := selectTable(doc, s.matchers)
	if table == nil {
		return model.Snapshot{}, errors.New("no table found")
	}
	logging.FromContext(ctx, s.log).Debug("selected table", "location", loc.Name, "matcher", matcher)

	var snap model.Snapshot
	for _, cells := range dataRows(table, 6) {
		slot, ok := s.columns.ExtractRow(loc.Name, cells)
		if !ok {
			continue
		}
		snap.Add(slot)
	}
	return snap, nil
}

func (s *Scraper) fetchDocument(ctx context.Context, id int) (*goquery.Document, error) {
	pageURL, err := s.LocationURL(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
