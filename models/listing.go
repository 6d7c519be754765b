package models

import "strconv"

// Canonical column keys. Published headers are mapped onto these through the
// aliases in config/sheet.yaml.
const (
	ColName        = "name"
	ColCity        = "city"
	ColBedrooms    = "bedrooms"
	ColRooms       = "rooms"
	ColDates       = "dates"
	ColRent        = "rent"
	ColContact     = "contact"
	ColDescription = "description"
	ColStatus      = "status"
)

// RawRecord is one sheet row keyed by canonical column name.
type RawRecord map[string]string

// Get returns the trimmed cell for key, or "" when the column is absent.
func (r RawRecord) Get(key string) string {
	return r[key]
}

// Table is the result of one fetch.
type Table struct {
	RawHeader []string    // headers as published, BOM and whitespace stripped
	Header    []string    // canonical keys, "" for unmapped columns
	Records   []RawRecord // non-blank rows in source order
}

// HasColumn reports whether a canonical column was present in the header.
func (t *Table) HasColumn(key string) bool {
	for _, h := range t.Header {
		if h == key {
			return true
		}
	}
	return false
}

// Bedrooms is a parsed bedroom count. Non-negative values are counts.
type Bedrooms int

const (
	BedroomsUnknown Bedrooms = -1
	BedroomsStudio  Bedrooms = -2
)

func (b Bedrooms) IsStudio() bool { return b == BedroomsStudio }
func (b Bedrooms) IsKnown() bool  { return b != BedroomsUnknown }

func (b Bedrooms) String() string {
	switch b {
	case BedroomsStudio:
		return "studio"
	case BedroomsUnknown:
		return "unknown"
	default:
		return strconv.Itoa(int(b))
	}
}

// Field names used in Listing.Malformed.
const (
	FieldRent = "rent"
)

// Listing is a normalized sheet row.
type Listing struct {
	Row                int // 1-based data row in the sheet
	PosterName         string
	City               string
	TotalBedrooms      Bedrooms
	RawBedrooms        string
	OfferedUnit        string
	EntireUnit         bool
	AvailabilityWindow string
	RentAmount         float64 // monthly
	RawRent            string
	Contact            string
	Description        string
	Status             string
	TakenOrPending     bool
	Malformed          []string // fields that failed to parse
}

// IsMalformed reports whether any field carried a parse failure.
func (l Listing) IsMalformed() bool {
	return len(l.Malformed) > 0
}

// HasMalformed reports whether field failed to parse.
func (l Listing) HasMalformed(field string) bool {
	for _, f := range l.Malformed {
		if f == field {
			return true
		}
	}
	return false
}

// ExclusionReason tags why the filter rejected a listing.
type ExclusionReason string

const (
	ReasonTakenOrPending ExclusionReason = "taken_or_pending"
	ReasonPartialUnit    ExclusionReason = "partial_unit"
	ReasonOverBudget     ExclusionReason = "over_budget"
	ReasonMalformed      ExclusionReason = "malformed"
)

// Excluded pairs a rejected listing with its reason. Kept for manual review.
type Excluded struct {
	Listing Listing
	Reason  ExclusionReason
}
