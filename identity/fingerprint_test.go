package identity

import (
	"testing"

	"sublet_monitor/models"
)

func baseListing() models.Listing {
	return models.Listing{
		PosterName:    "Jane Doe",
		Contact:       "jane@law.georgetown.edu",
		RentAmount:    2200,
		RawRent:       "$2,200",
		TotalBedrooms: 2,
		Description:   "Sunny 2BR near campus",
		Status:        "",
	}
}

func TestFingerprint_IgnoresDescriptionAndStatus(t *testing.T) {
	a := baseListing()
	b := baseListing()
	b.Description = "Sunny 2BR near campus. UPDATE: furniture included!"
	b.AvailabilityWindow = "May 15 - Aug 10"
	b.Status = "Pending"

	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("description/status edits must not change the fingerprint")
	}
}

func TestFingerprint_CosmeticEdits(t *testing.T) {
	a := baseListing()
	b := baseListing()
	b.PosterName = "  JANE   doe "
	b.Contact = "Jane@Law.Georgetown.edu"

	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("case and whitespace edits must not change the fingerprint")
	}
}

func TestFingerprint_IdentityFieldsMatter(t *testing.T) {
	base := Fingerprint(baseListing())

	tests := []struct {
		name   string
		mutate func(*models.Listing)
	}{
		{"name", func(l *models.Listing) { l.PosterName = "John Doe" }},
		{"contact", func(l *models.Listing) { l.Contact = "john@example.com" }},
		{"rent", func(l *models.Listing) { l.RentAmount = 2100 }},
		{"bedrooms", func(l *models.Listing) { l.TotalBedrooms = models.BedroomsStudio }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := baseListing()
			tt.mutate(&l)
			if Fingerprint(l) == base {
				t.Fatalf("changing %s should change the fingerprint", tt.name)
			}
		})
	}
}

func TestFingerprint_MalformedRentUsesRawText(t *testing.T) {
	a := baseListing()
	a.RentAmount = 0
	a.RawRent = "ask me"
	a.Malformed = []string{models.FieldRent}

	b := a
	b.RawRent = "make an offer"

	if Fingerprint(a) == Fingerprint(b) {
		t.Fatalf("distinct raw rent text should give distinct fingerprints")
	}
	if len(Fingerprint(a)) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(Fingerprint(a)))
	}
}

func TestDiff_PreservesOrderAndDedupes(t *testing.T) {
	seen := NewSeenSet("b")
	got := Diff([]string{"c", "b", "a", "c"}, seen)

	want := []string{"c", "a"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSeenSet_UnionDoesNotMutate(t *testing.T) {
	s := NewSeenSet("x")
	u := s.Union("y", "x", "")

	if s.Len() != 1 {
		t.Fatalf("original set mutated: %v", s.Sorted())
	}
	if u.Len() != 2 || !u.Has("y") {
		t.Fatalf("unexpected union %v", u.Sorted())
	}
	sorted := u.Sorted()
	if sorted[0] != "x" || sorted[1] != "y" {
		t.Fatalf("expected sorted output, got %v", sorted)
	}
}
