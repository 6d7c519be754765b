package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sublet_monitor/config"
	"sublet_monitor/models"
)

var ErrFetch = errors.New("fetch failed")

// FetchError is a run-level failure to obtain the sheet. StatusCode is 0 when
// no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// Fetcher loads the current sheet contents.
type Fetcher interface {
	Fetch(ctx context.Context) (*models.Table, error)
}

func NewFetcher(sheetCfg config.SheetConfig, rules *config.SheetRules, client *http.Client) Fetcher {
	switch sheetCfg.Format {
	case "html":
		return NewHTMLFetcher(sheetCfg.URL, rules, client)
	default:
		return NewCSVFetcher(sheetCfg.URL, rules, client)
	}
}

// buildTable maps published rows onto canonical records. It repairs the
// sheet's known header damage: the first header is always the poster name,
// and an unlabeled last column holds the status.
func buildTable(header []string, rows [][]string, rules *config.SheetRules) *models.Table {
	if rules == nil {
		rules = config.DefaultSheetRules()
	}

	table := &models.Table{
		RawHeader: make([]string, len(header)),
		Header:    make([]string, len(header)),
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		table.RawHeader[i] = h
		table.Header[i] = rules.CanonicalColumn(h)
	}
	if len(header) > 0 {
		table.Header[0] = models.ColName
		last := len(header) - 1
		if last > 0 && table.RawHeader[last] == "" {
			table.Header[last] = models.ColStatus
		}
	}

	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		rec := make(models.RawRecord, len(table.Header))
		for i, key := range table.Header {
			if key == "" {
				continue
			}
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if _, dup := rec[key]; dup && cell == "" {
				continue
			}
			rec[key] = cell
		}
		table.Records = append(table.Records, rec)
	}

	return table
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
