package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"nyurban_tracker/internal/model"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error

	mu   sync.Mutex
	urls []string
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.urls = append(m.urls, req.URL.String())
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScraper(client HTTPClient) *Scraper {
	return New(client, "https://example.com/?page_id=400&gametypeid=1", time.Second, discardLogger())
}

var laGuardia = model.Location{ID: 1, Name: "LaGuardia / Fri."}

func TestFetchLocation(t *testing.T) {
	html := loadFixture(t, "../../testdata/schedule.html")

	s := newTestScraper(&mockTransport{body: html, statusCode: 200})
	got := s.FetchLocation(context.Background(), laGuardia)

	want := []model.Slot{
		{
			Location: "LaGuardia / Fri.", Date: "Fri, Jan 10", Gym: "LaGuardia HS", Level: "Intermediate",
			Time: "7:00pm - 10:00pm", Fee: "$20.00", Available: "Sold Out", IsAvailable: false,
		},
		{
			Location: "LaGuardia / Fri.", Date: "Fri, Jan 17", Gym: "LaGuardia HS", Level: "Intermediate",
			Time: "7:00pm - 10:00pm", Fee: "$20.00", Available: "3 Available", IsAvailable: true,
		},
		{
			Location: "LaGuardia / Fri.", Date: "Fri, Feb 7", Gym: "LaGuardia HS", Level: "Advanced",
			Time: "7:00pm - 10:00pm", Fee: "$25.00", Available: "SOLD OUT", IsAvailable: false,
		},
	}
	if diff := cmp.Diff(want, got.Slots()); diff != "" {
		t.Errorf("FetchLocation mismatch (-want +got):\n%s", diff)
	}

	wantKey := "LaGuardia / Fri.|Fri, Jan 17|LaGuardia HS|Intermediate|7:00pm - 10:00pm"
	if _, ok := got.Get(wantKey); !ok {
		t.Errorf("missing key %q in %v", wantKey, got.Keys())
	}
}

func TestFetchLocationFailuresYieldEmpty(t *testing.T) {
	tests := []struct {
		name      string
		transport *mockTransport
	}{
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
		},
		{
			name:      "not modified status",
			transport: &mockTransport{statusCode: http.StatusNotModified},
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
		},
		{
			name:      "no table",
			transport: &mockTransport{body: "<html><body><p>maintenance</p></body></html>", statusCode: 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newTestScraper(tt.transport).FetchLocation(context.Background(), laGuardia)
			if diff := cmp.Diff(0, got.Len()); diff != "" {
				t.Errorf("slot count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchLocationAcceptsSuccessStatus(t *testing.T) {
	html := loadFixture(t, "../../testdata/schedule.html")

	for _, code := range []int{http.StatusOK, http.StatusNonAuthoritativeInfo, http.StatusPartialContent} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			got := newTestScraper(&mockTransport{body: html, statusCode: code}).FetchLocation(context.Background(), laGuardia)
			if diff := cmp.Diff(3, got.Len()); diff != "" {
				t.Errorf("slot count mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDataRowsCountsNestedCells(t *testing.T) {
	html := `<table id="outer">
<tr><td>x</td><td><table><tr><td>a</td><td>b</td><td>c</td><td>d</td><td>e</td></tr></table></td></tr>
<tr><td>x</td><td>Sun</td><td>Gym</td><td>Adv</td><td>2pm</td></tr>
</table>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}

	got := dataRows(doc.Find("#outer"), 6)
	want := [][]string{{"x", "abcde", "a", "b", "c", "d", "e"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dataRows mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchLocationFallsBackToFirstTable(t *testing.T) {
	html := `<table>
<tr><td>x</td><td>Sat</td><td>Gym A</td><td>Beg</td><td>1pm</td><td>$5</td><td>Open</td></tr>
</table>
<table><tr><td>other</td></tr></table>`

	got := newTestScraper(&mockTransport{body: html, statusCode: 200}).FetchLocation(context.Background(), laGuardia)

	want := []model.Slot{model.NewSlot("LaGuardia / Fri.", "Sat", "Gym A", "Beg", "1pm", "$5", "Open")}
	if diff := cmp.Diff(want, got.Slots()); diff != "" {
		t.Errorf("FetchLocation mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchLocationPrefersHeaderTable(t *testing.T) {
	html := `<table>
<tr><td>x</td><td>Sat</td><td>Decoy</td><td>Beg</td><td>1pm</td><td>$5</td><td>Open</td></tr>
</table>
<table>
<tr><th>Select</th><th>DATE</th><th>Gym</th><th>Level</th><th>Time</th><th>Fee</th><th>AVAILABLE</th></tr>
<tr><td>x</td><td>Sun</td><td>Real</td><td>Adv</td><td>2pm</td><td>$9</td><td>1 Open</td></tr>
</table>`

	got := newTestScraper(&mockTransport{body: html, statusCode: 200}).FetchLocation(context.Background(), laGuardia)

	want := []model.Slot{model.NewSlot("LaGuardia / Fri.", "Sun", "Real", "Adv", "2pm", "$9", "1 Open")}
	if diff := cmp.Diff(want, got.Slots()); diff != "" {
		t.Errorf("FetchLocation mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateRowsOverwrite(t *testing.T) {
	html := `<table>
<tr><td>x</td><td>Sun</td><td>Gym</td><td>Adv</td><td>2pm</td><td>$9</td><td>Sold Out</td></tr>
<tr><td>x</td><td>Sun</td><td>Gym</td><td>Adv</td><td>2pm</td><td>$9</td><td>2 Open</td></tr>
</table>`

	got := newTestScraper(&mockTransport{body: html, statusCode: 200}).FetchLocation(context.Background(), laGuardia)

	want := []model.Slot{model.NewSlot("LaGuardia / Fri.", "Sun", "Gym", "Adv", "2pm", "$9", "2 Open")}
	if diff := cmp.Diff(want, got.Slots()); diff != "" {
		t.Errorf("FetchLocation mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchAllUnionsLocations(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("filter_id")
		mu.Lock()
		seen = append(seen, id)
		mu.Unlock()
		if id == "2" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "Mozilla") {
			t.Errorf("User-Agent = %q", got)
		}
		fmt.Fprintf(w, `<table><tr><td>x</td><td>Day %s</td><td>Gym</td><td>L</td><td>T</td><td>$1</td><td>Open</td></tr></table>`, id)
	}))
	defer srv.Close()

	s := New(srv.Client(), srv.URL+"/?page_id=400&gametypeid=1", time.Second, discardLogger())
	s.SetLocations([]model.Location{{ID: 1, Name: "One"}, {ID: 2, Name: "Two"}, {ID: 3, Name: "Three"}})

	got := s.FetchAll(context.Background())

	wantKeys := []string{"One|Day 1|Gym|L|T", "Three|Day 3|Gym|L|T"}
	if diff := cmp.Diff(wantKeys, got.Keys()); diff != "" {
		t.Errorf("FetchAll keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "2", "3"}, seen); diff != "" {
		t.Errorf("fetch order mismatch (-want +got):\n%s", diff)
	}
}

func TestLocationURL(t *testing.T) {
	s := newTestScraper(&mockTransport{})
	got, err := s.LocationURL(4)
	if err != nil {
		t.Fatalf("LocationURL: %v", err)
	}
	want := "https://example.com/?filter_id=4&gametypeid=1&page_id=400"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LocationURL mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractRow(t *testing.T) {
	tests := []struct {
		name   string
		cells  []string
		want   model.Slot
		wantOK bool
	}{
		{
			name:   "complete row",
			cells:  []string{"", " Fri ", "Gym", "Int", "7pm", "$20", " Sold Out "},
			want:   model.NewSlot("Loc", "Fri", "Gym", "Int", "7pm", "$20", "Sold Out"),
			wantOK: true,
		},
		{
			name:   "extra trailing cells ignored",
			cells:  []string{"", "Fri", "Gym", "Int", "7pm", "$20", "Open", "notes"},
			want:   model.NewSlot("Loc", "Fri", "Gym", "Int", "7pm", "$20", "Open"),
			wantOK: true,
		},
		{
			name:  "too few cells",
			cells: []string{"", "Fri", "Gym", "Int", "7pm", "$20"},
		},
		{
			name:  "empty date",
			cells: []string{"", "  ", "Gym", "Int", "7pm", "$20", "Open"},
		},
		{
			name:  "empty gym",
			cells: []string{"", "Fri", "", "Int", "7pm", "$20", "Open"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DefaultColumns.ExtractRow("Loc", tt.cells)
			if diff := cmp.Diff(tt.wantOK, ok); diff != "" {
				t.Fatalf("ok mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ExtractRow mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
