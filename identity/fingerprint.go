package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"sublet_monitor/models"
)

var (
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	// Keep characters that carry meaning in emails and phone numbers.
	nonKeyRegex = regexp.MustCompile(`[^a-z0-9@.+\s]`)
)

// Fingerprint identifies a listing by poster, contact, monthly rent and
// bedroom count. Other fields (description, dates, status) do not take part,
// so editing them in the sheet never produces a "new" listing.
func Fingerprint(listing models.Listing) string {
	rent := fmt.Sprintf("%.2f", listing.RentAmount)
	if listing.HasMalformed(models.FieldRent) {
		rent = Normalize(listing.RawRent)
	}
	input := strings.Join([]string{
		Normalize(listing.PosterName),
		Normalize(listing.Contact),
		rent,
		listing.TotalBedrooms.String(),
	}, "|")
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// Normalize lowercases s, drops punctuation and collapses whitespace.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonKeyRegex.ReplaceAllString(s, " ")
	s = multiSpaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Diff returns the fingerprints in current that are not in seen, in the order
// they first appear in current.
func Diff(current []string, seen SeenSet) []string {
	var fresh []string
	emitted := make(map[string]struct{}, len(current))
	for _, fp := range current {
		if seen.Has(fp) {
			continue
		}
		if _, dup := emitted[fp]; dup {
			continue
		}
		emitted[fp] = struct{}{}
		fresh = append(fresh, fp)
	}
	return fresh
}
