package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sublet_monitor/models"
)

// SheetRules describes the published sheet layout and the phrases the
// normalizer looks for. Everything is matched case-insensitively.
type SheetRules struct {
	Columns          map[string][]string `yaml:"columns"` // canonical key -> header aliases
	TakenKeywords    []string            `yaml:"taken_keywords"`
	WholeUnitPhrases []string            `yaml:"whole_unit_phrases"`
	WeeklyMarkers    []string            `yaml:"weekly_markers"`
	ExpectedColumns  []string            `yaml:"expected_columns"` // raw headers the health check requires
	FirstHeaderNames []string            `yaml:"first_header_names"`
}

func DefaultSheetRules() *SheetRules {
	return &SheetRules{
		Columns: map[string][]string{
			models.ColName:        {"name"},
			models.ColCity:        {"city"},
			models.ColBedrooms:    {"bedrooms in apt", "bedrooms"},
			models.ColRooms:       {"rooms available", "rooms"},
			models.ColDates:       {"dates available", "dates", "availability"},
			models.ColRent:        {"rent", "price"},
			models.ColContact:     {"contact", "email"},
			models.ColDescription: {"description", "notes"},
			models.ColStatus:      {"status"},
		},
		TakenKeywords: []string{"taken", "pending"},
		WholeUnitPhrases: []string{
			"entire unit", "entire apartment", "entire apt", "entire place",
			"whole unit", "whole apartment", "full apartment",
		},
		WeeklyMarkers:    []string{"/week", "per week", "/wk", "per wk", "a week", "weekly"},
		ExpectedColumns:  []string{"City", "Bedrooms in Apt", "Rooms available", "Rent", "Contact"},
		FirstHeaderNames: []string{"name", "nie", "ame"},
	}
}

// LoadSheetRules reads path over the defaults. A missing file is not an error.
func LoadSheetRules(path string) (*SheetRules, error) {
	rules := DefaultSheetRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return rules, nil
		}
		return nil, fmt.Errorf("read sheet rules: %w", err)
	}

	var fileRules SheetRules
	if err := yaml.Unmarshal(data, &fileRules); err != nil {
		return nil, fmt.Errorf("parse sheet rules %s: %w", path, err)
	}

	rules.merge(&fileRules)
	return rules, nil
}

func (r *SheetRules) merge(o *SheetRules) {
	for key, aliases := range o.Columns {
		if len(aliases) > 0 {
			r.Columns[key] = aliases
		}
	}
	if len(o.TakenKeywords) > 0 {
		r.TakenKeywords = o.TakenKeywords
	}
	if len(o.WholeUnitPhrases) > 0 {
		r.WholeUnitPhrases = o.WholeUnitPhrases
	}
	if len(o.WeeklyMarkers) > 0 {
		r.WeeklyMarkers = o.WeeklyMarkers
	}
	if len(o.ExpectedColumns) > 0 {
		r.ExpectedColumns = o.ExpectedColumns
	}
	if len(o.FirstHeaderNames) > 0 {
		r.FirstHeaderNames = o.FirstHeaderNames
	}
}

// CanonicalColumn maps a published header to its canonical key, or "".
func (r *SheetRules) CanonicalColumn(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return ""
	}
	for key, aliases := range r.Columns {
		for _, alias := range aliases {
			if strings.ToLower(alias) == h {
				return key
			}
		}
	}
	return ""
}
