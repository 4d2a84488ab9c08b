package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
)

// TableMatcher picks one table out of every table on a page. It returns the
// index of the chosen table, or -1 if none qualifies.
type TableMatcher struct {
	Name  string
	Match func(tables *goquery.Selection) int
}

// DefaultMatchers are tried in order; the first one that finds a table wins.
var DefaultMatchers = []TableMatcher{
	{Name: "headers", Match: firstContaining("available", "date")},
	{Name: "first", Match: firstTable},
}

// firstContaining matches the first table whose text contains every word,
// ignoring case.
func firstContaining(words ...string) func(*goquery.Selection) int {
	return func(tables *goquery.Selection) int {
		fold := cases.Fold()
		idx := -1
		tables.EachWithBreak(func(i int, t *goquery.Selection) bool {
			text := fold.String(t.Text())
			for _, w := range words {
				if !strings.Contains(text, fold.String(w)) {
					return true
				}
			}
			idx = i
			return false
		})
		return idx
	}
}

func firstTable(tables *goquery.Selection) int {
	if tables.Length() == 0 {
		return -1
	}
	return 0
}

// selectTable runs matchers in priority order over every table in doc.
func selectTable(doc *goquery.Document, matchers []TableMatcher) (*goquery.Selection, string) {
	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, ""
	}
	for _, m := range matchers {
		if i := m.Match(tables); i >= 0 {
			return tables.Eq(i), m.Name
		}
	}
	return nil, ""
}

// dataRows returns the td texts of rows that look like data: at least
// minCells td/th cells with a td first. Header rows start with th. Cells
// are counted at any depth below the row, including nested markup.
func dataRows(table *goquery.Selection, minCells int) [][]string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td, th")
		if cells.Length() < minCells || goquery.NodeName(cells.First()) != "td" {
			return
		}
		var texts []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			texts = append(texts, strings.TrimSpace(td.Text()))
		})
		rows = append(rows, texts)
	})
	return rows
}
