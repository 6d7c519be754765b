package services

import (
	"testing"

	"sublet_monitor/models"
)

func listing(name string, rent float64, entire, taken bool) models.Listing {
	return models.Listing{
		PosterName:     name,
		Contact:        name + "@x.edu",
		RentAmount:     rent,
		TotalBedrooms:  1,
		EntireUnit:     entire,
		TakenOrPending: taken,
	}
}

func TestFilter_CeilingIsInclusive(t *testing.T) {
	res := Filter([]models.Listing{
		listing("at", 3000, true, false),
		listing("above", 3000.01, true, false),
	}, 3000)

	if len(res.Accepted) != 1 || res.Accepted[0].PosterName != "at" {
		t.Fatalf("rent equal to ceiling should be accepted: %+v", res.Accepted)
	}
	if len(res.Excluded) != 1 || res.Excluded[0].Reason != models.ReasonOverBudget {
		t.Fatalf("expected one over_budget exclusion, got %+v", res.Excluded)
	}
}

func TestFilter_ReasonsAndOrder(t *testing.T) {
	malformed := listing("malformed", 0, true, false)
	malformed.Malformed = []string{models.FieldRent}

	in := []models.Listing{
		listing("ok1", 1200, true, false),
		listing("taken", 1200, true, true),
		listing("partial", 1200, false, false),
		listing("pricey", 5000, true, false),
		malformed,
		listing("ok2", 2999, true, false),
		// taken wins over every other failing rule
		listing("taken-partial", 9000, false, true),
	}

	res := Filter(in, 3000)

	if len(res.Accepted) != 2 || res.Accepted[0].PosterName != "ok1" || res.Accepted[1].PosterName != "ok2" {
		t.Fatalf("unexpected accepted %+v", res.Accepted)
	}

	want := []struct {
		name   string
		reason models.ExclusionReason
	}{
		{"taken", models.ReasonTakenOrPending},
		{"partial", models.ReasonPartialUnit},
		{"pricey", models.ReasonOverBudget},
		{"malformed", models.ReasonMalformed},
		{"taken-partial", models.ReasonTakenOrPending},
	}
	if len(res.Excluded) != len(want) {
		t.Fatalf("expected %d excluded, got %d", len(want), len(res.Excluded))
	}
	for i, w := range want {
		got := res.Excluded[i]
		if got.Listing.PosterName != w.name || got.Reason != w.reason {
			t.Errorf("excluded[%d] = %s/%s; want %s/%s", i, got.Listing.PosterName, got.Reason, w.name, w.reason)
		}
	}

	counts := res.Counts()
	if counts[models.ReasonTakenOrPending] != 2 || counts[models.ReasonOverBudget] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestFilter_WeeklyRentComparedAfterRounding(t *testing.T) {
	rent, err := ParseRent("$300/week")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res := Filter([]models.Listing{listing("weekly", rent, true, false)}, 1299)
	if len(res.Accepted) != 1 {
		t.Fatalf("1299.00 should fit a 1299 ceiling, got %+v", res.Excluded)
	}
}
