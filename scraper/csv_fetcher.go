package scraper

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sublet_monitor/config"
	"sublet_monitor/httputil"
	"sublet_monitor/models"
)

// CSVFetcher downloads the sheet's CSV export.
type CSVFetcher struct {
	url    string
	rules  *config.SheetRules
	client *http.Client
}

func NewCSVFetcher(url string, rules *config.SheetRules, client *http.Client) *CSVFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &CSVFetcher{url: url, rules: rules, client: client}
}

func (f *CSVFetcher) Fetch(ctx context.Context) (*models.Table, error) {
	req, err := httputil.NewGet(ctx, f.url)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: f.url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	// A private sheet answers 200 with a sign-in page.
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		return nil, &FetchError{URL: f.url, StatusCode: resp.StatusCode, Err: fmt.Errorf("got %s instead of csv, is the sheet published?", ct)}
	}

	table, err := parseCSV(resp.Body, f.rules)
	if err != nil {
		return nil, &FetchError{URL: f.url, StatusCode: resp.StatusCode, Err: err}
	}
	return table, nil
}

func parseCSV(r io.Reader, rules *config.SheetRules) (*models.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &models.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv rows: %w", err)
	}

	return buildTable(header, rows, rules), nil
}
