package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"sublet_monitor/config"
	"sublet_monitor/models"
)

// TableSource is the sheet fetcher as seen by the health check.
type TableSource interface {
	Fetch(ctx context.Context) (*models.Table, error)
}

type StateValidator interface {
	Validate(ctx context.Context) error
}

type RunHistory interface {
	LastCompletedRun(ctx context.Context) (*models.RunReport, error)
}

// CheckResult is the outcome of one health check.
type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

type HealthReport struct {
	CheckedAt time.Time
	Checks    []CheckResult
}

// Healthy reports whether every check passed.
func (r HealthReport) Healthy() bool {
	return len(r.Failures()) == 0
}

// Failures returns one line per failed check.
func (r HealthReport) Failures() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.OK {
			out = append(out, fmt.Sprintf("%s: %s", c.Name, c.Detail))
		}
	}
	return out
}

// HealthcheckService verifies, out of band, that the sheet still looks like
// the sheet the monitor was written for and that seen state is readable.
type HealthcheckService struct {
	source  TableSource
	state   StateValidator
	history RunHistory
	rules   *config.SheetRules
	cfg     config.HealthcheckConfig
	now     func() time.Time
}

func NewHealthcheckService(source TableSource, state StateValidator, rules *config.SheetRules, cfg config.HealthcheckConfig) *HealthcheckService {
	if rules == nil {
		rules = config.DefaultSheetRules()
	}
	return &HealthcheckService{
		source: source,
		state:  state,
		rules:  rules,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SetHistory enables the stale-run check.
func (s *HealthcheckService) SetHistory(h RunHistory) {
	s.history = h
}

func (s *HealthcheckService) Check(ctx context.Context) HealthReport {
	report := HealthReport{CheckedAt: s.now()}
	add := func(name string, ok bool, detail string) {
		report.Checks = append(report.Checks, CheckResult{Name: name, OK: ok, Detail: detail})
	}

	table, err := s.source.Fetch(ctx)
	if err != nil {
		add("sheet reachable", false, err.Error())
	} else {
		add("sheet reachable", true, "ok")
		s.checkTable(table, add)
	}

	if err := s.state.Validate(ctx); err != nil {
		add("seen state", false, err.Error())
	} else {
		add("seen state", true, "ok")
	}

	if s.history != nil && s.cfg.MaxRunAge > 0 {
		s.checkLastRun(ctx, add)
	}

	return report
}

func (s *HealthcheckService) checkTable(table *models.Table, add func(string, bool, string)) {
	rows := len(table.Records)
	if rows < s.cfg.MinRows {
		add("row count", false, fmt.Sprintf("only %d rows returned, sheet tab may have shifted", rows))
	} else {
		add("row count", true, fmt.Sprintf("%d rows", rows))
	}

	present := make(map[string]bool, len(table.RawHeader))
	for _, h := range table.RawHeader {
		present[strings.ToLower(h)] = true
	}
	var missing []string
	for _, col := range s.rules.ExpectedColumns {
		if !present[strings.ToLower(strings.TrimSpace(col))] {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	if len(missing) > 0 {
		add("expected columns", false, "missing "+strings.Join(missing, ", "))
	} else {
		add("expected columns", true, "ok")
	}

	first := ""
	if len(table.RawHeader) > 0 {
		first = table.RawHeader[0]
	}
	if !containsFold(s.rules.FirstHeaderNames, first) {
		add("first header", false, fmt.Sprintf("first column header is %q instead of \"Name\" (the monitor copes, but the sheet header is corrupted)", first))
	} else {
		add("first header", true, first)
	}
}

func (s *HealthcheckService) checkLastRun(ctx context.Context, add func(string, bool, string)) {
	last, err := s.history.LastCompletedRun(ctx)
	switch {
	case err != nil:
		add("last run", false, err.Error())
	case last == nil:
		add("last run", false, "no completed run recorded")
	default:
		age := s.now().Sub(last.StartedAt)
		if age > s.cfg.MaxRunAge {
			add("last run", false, fmt.Sprintf("last completed run was %s ago", age.Round(time.Minute)))
		} else {
			add("last run", true, fmt.Sprintf("%s ago", age.Round(time.Second)))
		}
	}
}

func containsFold(list []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}
