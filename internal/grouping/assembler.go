package grouping

import (
	"sort"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"
)

// LabeledPeriods is one upstream category's contribution, labeled with its
// source name for optional source-based grouping.
type LabeledPeriods struct {
	Source  string
	Periods []domain.PayoutPeriod
}

// Options tunes the assembly.
type Options struct {
	// DropTags excludes provenance tags from the output entirely, for
	// consumers who only care about existence.
	DropTags bool
}

const dateLayout = "2006-01-02"

// Assemble merges each labeled collection's payout periods under the given
// grouping key and serializes them to wire rows. When the key includes the
// source dimension each collection is grouped independently and the results
// concatenated; otherwise all collections are combined before grouping. The
// two paths are mutually exclusive: combining first and separating afterwards
// would double-count merges.
func Assemble(collections []LabeledPeriods, key domain.GroupingKey, opts Options) []domain.PayoutPeriodRow {
	var rows []domain.PayoutPeriodRow
	if key.Has(domain.GroupBySource) {
		for _, c := range collections {
			rows = append(rows, assembleSet(c.Periods, key, opts)...)
		}
	} else {
		var combined []domain.PayoutPeriod
		for _, c := range collections {
			combined = append(combined, c.Periods...)
		}
		rows = assembleSet(combined, key, opts)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Fom != rows[j].Fom {
			return rows[i].Fom < rows[j].Fom
		}
		if rows[i].Tom != rows[j].Tom {
			return rows[i].Tom < rows[j].Tom
		}
		return deref(rows[i].PersonIdent)+"|"+deref(rows[i].OrgNumber) <
			deref(rows[j].PersonIdent)+"|"+deref(rows[j].OrgNumber)
	})
	return rows
}

func assembleSet(payouts []domain.PayoutPeriod, key domain.GroupingKey, opts Options) []domain.PayoutPeriodRow {
	var withEmployer, without []domain.PayoutPeriod
	for _, p := range payouts {
		if p.HasEmployer() {
			withEmployer = append(withEmployer, p)
		} else {
			without = append(without, p)
		}
	}

	var rows []domain.PayoutPeriodRow

	// Payouts without an employer (benefit paid directly to the person)
	// are never grouped with anything and pass through as singletons.
	for _, p := range without {
		rows = append(rows, toRow(p.Period, p, key, tagsFor(p.Period, []domain.PayoutPeriod{p}, opts)))
	}

	groups := make(map[string][]domain.PayoutPeriod)
	var order []string
	for _, p := range withEmployer {
		k := key.Projection(p)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], p)
	}

	for _, k := range order {
		group := groups[k]
		periods := make([]domain.Period, len(group))
		for i, p := range group {
			periods[i] = p.Period
		}
		for _, merged := range MergeAdjacent(periods) {
			rows = append(rows, toRow(merged, group[0], key, tagsFor(merged, group, opts)))
		}
	}
	return rows
}

func tagsFor(merged domain.Period, payouts []domain.PayoutPeriod, opts Options) []string {
	if opts.DropTags {
		return nil
	}
	return TagsWithin(merged, payouts).Sorted()
}

// toRow emits only the dimensions that were part of the grouping; omitted
// dimensions are left out of the JSON entirely.
func toRow(period domain.Period, sample domain.PayoutPeriod, key domain.GroupingKey, tags []string) domain.PayoutPeriodRow {
	row := domain.PayoutPeriodRow{
		Fom:  period.Fom.Format(dateLayout),
		Tom:  period.Tom.Format(dateLayout),
		Tags: tags,
	}
	if key.Has(domain.GroupByPerson) {
		ident := sample.PersonIdent
		row.PersonIdent = &ident
	}
	if key.Has(domain.GroupByEmployer) && sample.OrgNumber != nil {
		org := *sample.OrgNumber
		row.OrgNumber = &org
	}
	if key.Has(domain.GroupByGrad) {
		grad := sample.Grad
		row.Grad = &grad
	}
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
