package services

import "sublet_monitor/models"

// FilterResult partitions listings. Both slices keep source order.
type FilterResult struct {
	Accepted []models.Listing
	Excluded []models.Excluded
}

// Filter applies the listing rules in order and tags each rejection with the
// first rule that failed. The ceiling is inclusive.
func Filter(listings []models.Listing, ceiling float64) FilterResult {
	var result FilterResult
	for _, l := range listings {
		if reason, ok := exclusionReason(l, ceiling); ok {
			result.Excluded = append(result.Excluded, models.Excluded{Listing: l, Reason: reason})
			continue
		}
		result.Accepted = append(result.Accepted, l)
	}
	return result
}

func exclusionReason(l models.Listing, ceiling float64) (models.ExclusionReason, bool) {
	switch {
	case l.TakenOrPending:
		return models.ReasonTakenOrPending, true
	case !l.EntireUnit:
		return models.ReasonPartialUnit, true
	case l.HasMalformed(models.FieldRent):
		return models.ReasonMalformed, true
	case l.RentAmount > ceiling:
		return models.ReasonOverBudget, true
	}
	return "", false
}

// Counts tallies exclusions by reason, for run logs.
func (r FilterResult) Counts() map[models.ExclusionReason]int {
	counts := make(map[models.ExclusionReason]int)
	for _, e := range r.Excluded {
		counts[e.Reason]++
	}
	return counts
}
