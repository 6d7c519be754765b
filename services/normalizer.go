package services

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"sublet_monitor/config"
	"sublet_monitor/models"
)

// WeeksPerMonth converts weekly rents to monthly figures.
const WeeksPerMonth = 4.33

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrMalformedRent   = errors.New("rent has no numeric amount")
)

var (
	thousandsRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*k\b`)
	numberRegex    = regexp.MustCompile(`\d+(?:\.\d+)?`)
	integerRegex   = regexp.MustCompile(`\d+`)
	roomCountRegex = regexp.MustCompile(`^(\d+)\s*(?:bedrooms?|beds?|br|rooms?)\b`)
	slashSpace     = regexp.MustCompile(`\s*/\s*`)
	digitGroup     = regexp.MustCompile(`(\d) (\d{3})\b`)
	currencyStrip  = strings.NewReplacer(",", "", "$", "", "€", "", "£", "")
)

var defaultWeeklyMarkers = normalizeMarkers(config.DefaultSheetRules().WeeklyMarkers)

// MalformedRecordError reports a row or field that could not be parsed.
// Field is "identity" when the whole row was unusable.
type MalformedRecordError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("row %d: malformed %s", e.Row, e.Field)
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// Normalizer turns raw sheet rows into typed listings.
type Normalizer struct {
	takenKeywords    []string
	wholeUnitPhrases []string
	weeklyMarkers    []string
}

func NewNormalizer(rules *config.SheetRules) *Normalizer {
	if rules == nil {
		rules = config.DefaultSheetRules()
	}
	return &Normalizer{
		takenKeywords:    lowerAll(rules.TakenKeywords),
		wholeUnitPhrases: lowerAll(rules.WholeUnitPhrases),
		weeklyMarkers:    normalizeMarkers(rules.WeeklyMarkers),
	}
}

// NormalizeAll normalizes records in order. Rows whose identity cannot be
// recovered are returned as errors and left out of the listings.
func (n *Normalizer) NormalizeAll(records []models.RawRecord) ([]models.Listing, []error) {
	listings := make([]models.Listing, 0, len(records))
	var errs []error
	for i, rec := range records {
		listing, err := n.Normalize(rec)
		if err != nil {
			var mre *MalformedRecordError
			if errors.As(err, &mre) {
				mre.Row = i + 1
			}
			errs = append(errs, err)
			continue
		}
		listing.Row = i + 1
		listings = append(listings, listing)
	}
	return listings, errs
}

// Normalize parses one record. Field-level failures are recorded on the
// listing; an error is returned only when neither poster name nor contact
// is present.
func (n *Normalizer) Normalize(rec models.RawRecord) (models.Listing, error) {
	name := strings.TrimSpace(rec.Get(models.ColName))
	contact := strings.TrimSpace(rec.Get(models.ColContact))
	if name == "" && contact == "" {
		return models.Listing{}, &MalformedRecordError{Field: "identity", Err: errors.New("poster name and contact are both empty")}
	}

	listing := models.Listing{
		PosterName:         name,
		City:               rec.Get(models.ColCity),
		RawBedrooms:        rec.Get(models.ColBedrooms),
		OfferedUnit:        rec.Get(models.ColRooms),
		AvailabilityWindow: rec.Get(models.ColDates),
		RawRent:            rec.Get(models.ColRent),
		Contact:            contact,
		Description:        rec.Get(models.ColDescription),
		Status:             rec.Get(models.ColStatus),
	}

	listing.TotalBedrooms = ParseBedrooms(listing.RawBedrooms)

	rent, err := parseRent(listing.RawRent, n.weeklyMarkers)
	if err != nil {
		listing.Malformed = append(listing.Malformed, models.FieldRent)
	} else {
		listing.RentAmount = rent
	}

	listing.TakenOrPending = n.isTakenOrPending(listing.Status, listing.AvailabilityWindow)
	listing.EntireUnit = n.isEntireUnit(listing.OfferedUnit, listing.TotalBedrooms)

	return listing, nil
}

// ParseRent converts free-text rent into a monthly amount rounded to cents.
// A weekly marker only counts when it directly follows the amount.
//
//	"$1,200"      → 1200
//	"1.2k"        → 1200
//	"$300 / week" → 1299 (300 × 4.33)
//	"$ 1 200"     → 1200
func ParseRent(raw string) (float64, error) {
	return parseRent(raw, defaultWeeklyMarkers)
}

func parseRent(raw string, weeklyMarkers []string) (float64, error) {
	s := normalizeRentText(currencyStrip.Replace(raw))
	if s == "" {
		return 0, ErrMalformedRent
	}

	var amount float64
	var end int
	if m := thousandsRegex.FindStringSubmatchIndex(s); m != nil {
		v, err := strconv.ParseFloat(s[m[2]:m[3]], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedRent, err)
		}
		amount, end = v*1000, m[1]
	} else {
		m := numberRegex.FindStringIndex(s)
		if m == nil {
			return 0, ErrMalformedRent
		}
		v, err := strconv.ParseFloat(s[m[0]:m[1]], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedRent, err)
		}
		amount, end = v, m[1]
	}

	if hasMarkerPrefix(strings.TrimLeft(s[end:], " "), weeklyMarkers) {
		amount *= WeeksPerMonth
	}

	return math.Round(amount*100) / 100, nil
}

// normalizeRentText lowercases s, collapses whitespace, tightens slashes and
// joins thousands groups split by a space ("1 200").
func normalizeRentText(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	s = slashSpace.ReplaceAllString(s, "/")
	for {
		joined := digitGroup.ReplaceAllString(s, "${1}${2}")
		if joined == s {
			return s
		}
		s = joined
	}
}

// hasMarkerPrefix reports whether s starts with one of markers as a whole word.
func hasMarkerPrefix(s string, markers []string) bool {
	for _, m := range markers {
		if m == "" || !strings.HasPrefix(s, m) {
			continue
		}
		rest := s[len(m):]
		if rest == "" || !isWordByte(rest[0]) {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('0' <= b && b <= '9')
}

func normalizeMarkers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		if m = normalizeRentText(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

// ParseBedrooms reads the first integer in s. "studio" wins over any number;
// text without a number is BedroomsUnknown.
func ParseBedrooms(s string) models.Bedrooms {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return models.BedroomsUnknown
	}
	if strings.Contains(s, "studio") {
		return models.BedroomsStudio
	}
	m := integerRegex.FindString(s)
	if m == "" {
		return models.BedroomsUnknown
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return models.BedroomsUnknown
	}
	return models.Bedrooms(n)
}

// IsTakenOrPending reports whether status mentions a taken keyword.
func (n *Normalizer) IsTakenOrPending(status string) bool {
	return containsAny(strings.ToLower(status), n.takenKeywords)
}

// Editors often write "TAKEN" into the dates column instead of status.
func (n *Normalizer) isTakenOrPending(status, dates string) bool {
	return n.IsTakenOrPending(status + " " + dates)
}

func (n *Normalizer) isEntireUnit(rooms string, bedrooms models.Bedrooms) bool {
	r := strings.ToLower(strings.TrimSpace(rooms))
	if containsAny(r, n.wholeUnitPhrases) {
		return true
	}
	if bedrooms.IsStudio() {
		return true
	}

	// "2 bedrooms" offered out of a 2 bedroom apartment
	m := roomCountRegex.FindStringSubmatch(r)
	if m == nil || bedrooms <= 0 {
		return false
	}
	offered, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	return models.Bedrooms(offered) == bedrooms
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
