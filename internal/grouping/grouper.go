package grouping

import (
	"sort"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"
)

// MergeAdjacent collapses a set of periods into the minimal list of merged
// periods: every input is contained in exactly one output, no two outputs
// overlap or are adjacent, and output order is ascending by fom. The result
// is independent of input order.
func MergeAdjacent(periods []domain.Period) []domain.Period {
	if len(periods) == 0 {
		return nil
	}

	sorted := make([]domain.Period, len(periods))
	copy(sorted, periods)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Fom.Equal(sorted[j].Fom) {
			return sorted[i].Fom.Before(sorted[j].Fom)
		}
		return sorted[i].Tom.Before(sorted[j].Tom)
	})

	var out []domain.Period
	for i, p := range sorted {
		// Anything overlapping the previous output was already absorbed
		// when that output was built.
		if len(out) > 0 && out[len(out)-1].Contains(p) {
			continue
		}
		merged := p
		// Quadratic in the group size; groups are per-person payout
		// histories and stay small.
		for _, q := range sorted[i+1:] {
			if merged.Overlaps(q) || merged.Adjacent(q) {
				merged = merged.Merge(q)
			}
		}
		out = append(out, merged)
	}
	return out
}

// TagsWithin unions the tags of every payout whose period overlaps the merged
// bounds. Membership is re-derived against the final boundaries so that tags
// from periods absorbed indirectly are not lost.
func TagsWithin(merged domain.Period, payouts []domain.PayoutPeriod) domain.TagSet {
	tags := domain.NewTagSet()
	for _, p := range payouts {
		if merged.Overlaps(p.Period) {
			tags.Add(p.Tags)
		}
	}
	return tags
}
