package services

import (
	"errors"
	"testing"

	"sublet_monitor/config"
	"sublet_monitor/models"
)

func TestParseRent(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$1,200", 1200},
		{"1200", 1200},
		{"1.2k", 1200},
		{"$1.5K/month", 1500},
		{"$300/week", 1299},
		{"300 per week", 1299},
		{"$2,050 + utilities", 2050},
		{"  $ 950  ", 950},
		{"$425 weekly", 1840.25},
		{"$300 / week", 1299},
		{"$300 per  week", 1299},
		{"$300 a week", 1299},
		{"1.2k/wk", 5196},
		{"$ 1 200", 1200},
		{"$1,500 (available in a week)", 1500},
		{"$1,800, cleaned weekly", 1800},
		{"$1,200/mo ($300/week)", 1200},
		{"$1,000/wknd parking", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRent(tt.in)
			if err != nil {
				t.Fatalf("ParseRent(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseRent(%q) = %v; want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRent_NoNumber(t *testing.T) {
	for _, in := range []string{"", "ask", "negotiable", "$"} {
		if _, err := ParseRent(in); !errors.Is(err, ErrMalformedRent) {
			t.Errorf("ParseRent(%q) err = %v; want ErrMalformedRent", in, err)
		}
	}
}

func TestParseBedrooms(t *testing.T) {
	tests := map[string]models.Bedrooms{
		"2":            2,
		"3 bedrooms":   3,
		"Studio":       models.BedroomsStudio,
		"studio (1BA)": models.BedroomsStudio,
		"":             models.BedroomsUnknown,
		"lots":         models.BedroomsUnknown,
	}
	for in, want := range tests {
		if got := ParseBedrooms(in); got != want {
			t.Errorf("ParseBedrooms(%q) = %v; want %v", in, got, want)
		}
	}
}

func record(name, bedrooms, rooms, rent, contact, status string) models.RawRecord {
	return models.RawRecord{
		models.ColName:     name,
		models.ColBedrooms: bedrooms,
		models.ColRooms:    rooms,
		models.ColRent:     rent,
		models.ColContact:  contact,
		models.ColStatus:   status,
	}
}

func TestNormalize_StatusIsCaseInsensitive(t *testing.T) {
	n := NewNormalizer(nil)
	for _, status := range []string{"TAKEN", "Pending review", "sublet pending"} {
		l, err := n.Normalize(record("Ann", "1", "Entire unit", "$1000", "ann@x.edu", status))
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		if !l.TakenOrPending {
			t.Errorf("status %q should be taken or pending", status)
		}
	}

	l, _ := n.Normalize(record("Ann", "1", "Entire unit", "$1000", "ann@x.edu", "Available"))
	if l.TakenOrPending {
		t.Errorf("available listing flagged as taken")
	}
}

func TestNormalize_TakenInDatesColumn(t *testing.T) {
	n := NewNormalizer(nil)
	rec := record("Ann", "1", "Entire unit", "$1000", "ann@x.edu", "")
	rec[models.ColDates] = "TAKEN - sorry!"

	l, err := n.Normalize(rec)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !l.TakenOrPending {
		t.Fatalf("dates column marker should count as taken")
	}
}

func TestNormalize_EntireUnit(t *testing.T) {
	n := NewNormalizer(nil)
	tests := []struct {
		bedrooms string
		rooms    string
		want     bool
	}{
		{"2", "Entire unit", true},
		{"2", "entire apartment, both rooms", true},
		{"Studio", "the studio", true},
		{"2", "2 bedrooms", true},
		{"3", "1 of 3 bedrooms", false},
		{"3", "1 bedroom", false},
		{"2", "master bedroom", false},
		{"", "1 room", false},
	}
	for _, tt := range tests {
		l, err := n.Normalize(record("Ann", tt.bedrooms, tt.rooms, "$1000", "ann@x.edu", ""))
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		if l.EntireUnit != tt.want {
			t.Errorf("bedrooms=%q rooms=%q: EntireUnit = %v; want %v", tt.bedrooms, tt.rooms, l.EntireUnit, tt.want)
		}
	}
}

func TestNormalize_MalformedRentIsFieldLevel(t *testing.T) {
	n := NewNormalizer(nil)
	l, err := n.Normalize(record("Ann", "1", "Entire unit", "make an offer", "ann@x.edu", ""))
	if err != nil {
		t.Fatalf("field-level failure must not fail the row: %v", err)
	}
	if !l.HasMalformed(models.FieldRent) {
		t.Fatalf("expected rent marker, got %v", l.Malformed)
	}
	if l.RawRent != "make an offer" {
		t.Fatalf("raw rent not preserved: %q", l.RawRent)
	}
}

func TestNormalizeAll_SkipsRowsWithoutIdentity(t *testing.T) {
	n := NewNormalizer(nil)
	records := []models.RawRecord{
		record("Ann", "1", "Entire unit", "$1000", "ann@x.edu", ""),
		record("", "2", "Entire unit", "$1500", "", ""),
		record("", "1", "Entire unit", "$900", "bob@x.edu", ""),
	}

	listings, errs := n.NormalizeAll(records)
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	if listings[0].Row != 1 || listings[1].Row != 3 {
		t.Fatalf("unexpected rows %d, %d", listings[0].Row, listings[1].Row)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}

	var mre *MalformedRecordError
	if !errors.As(errs[0], &mre) || mre.Row != 2 {
		t.Fatalf("expected MalformedRecordError for row 2, got %v", errs[0])
	}
	if !errors.Is(errs[0], ErrMalformedRecord) {
		t.Fatalf("error should match ErrMalformedRecord")
	}
}

func TestNormalize_MonthlyRentMentioningAWeekStaysUnderCeiling(t *testing.T) {
	n := NewNormalizer(nil)
	l, err := n.Normalize(record("Ann", "1", "Entire unit", "$1,500 (available in a week)", "ann@x.edu", ""))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if l.RentAmount != 1500 {
		t.Fatalf("RentAmount = %v; want 1500", l.RentAmount)
	}
	if res := Filter([]models.Listing{l}, 3000); len(res.Accepted) != 1 {
		t.Fatalf("monthly rent should be accepted, excluded: %+v", res.Excluded)
	}
}

func TestNormalize_ConfiguredWeeklyMarkerIsNormalized(t *testing.T) {
	rules := config.DefaultSheetRules()
	rules.WeeklyMarkers = []string{" / Week "}
	n := NewNormalizer(rules)

	l, err := n.Normalize(record("Ann", "1", "Entire unit", "$300 /  WEEK", "ann@x.edu", ""))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if l.RentAmount != 1299 {
		t.Fatalf("RentAmount = %v; want 1299", l.RentAmount)
	}
}
