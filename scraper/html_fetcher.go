package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sublet_monitor/config"
	"sublet_monitor/httputil"
	"sublet_monitor/models"
)

// HTMLFetcher reads the sheet's "publish to web" HTML page. Used when CSV
// export is disabled on the document.
type HTMLFetcher struct {
	url    string
	rules  *config.SheetRules
	client *http.Client
}

func NewHTMLFetcher(url string, rules *config.SheetRules, client *http.Client) *HTMLFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTMLFetcher{url: url, rules: rules, client: client}
}

func (f *HTMLFetcher) Fetch(ctx context.Context) (*models.Table, error) {
	req, err := httputil.NewGet(ctx, f.url)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: f.url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: f.url, StatusCode: resp.StatusCode, Err: fmt.Errorf("parse document: %w", err)}
	}

	return extractTable(doc, f.rules), nil
}

// extractTable reads the first table in doc. Only td cells count: published
// sheets put column letters and row numbers in th cells.
func extractTable(doc *goquery.Document, rules *config.SheetRules) *models.Table {
	var rows [][]string
	doc.Find("table").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := make([]string, 0, 10)
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		if isBlankRow(cells) {
			return
		}
		rows = append(rows, cells)
	})

	if len(rows) == 0 {
		return &models.Table{}
	}
	return buildTable(rows[0], rows[1:], rules)
}
