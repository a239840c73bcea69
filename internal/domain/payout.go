package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Provenance tags identifying the originating subsystem or table generation.
const (
	TagLegacy        = "Infotrygd"
	TagSpleis        = "Spleis"
	TagVedtakOld     = "Vedtak"
	TagVedtakGammel  = "GamleUtbetalinger"
	TagVedtakCurrent = "Utbetaling"
	TagEventStore    = "Tbd"
)

// PayoutPeriod is the normalized unit every source adapter produces: one paid
// interval at one coverage percentage, tagged with where it came from.
type PayoutPeriod struct {
	PersonIdent      string
	Period           Period
	Grad             int
	OrgNumber        *string
	PaymentReference string
	Tags             TagSet
}

// HasEmployer reports whether the payout was refunded to an employer rather
// than paid directly to the person.
func (p PayoutPeriod) HasEmployer() bool {
	return p.OrgNumber != nil && *p.OrgNumber != ""
}

// TagSet is a set of provenance tags.
type TagSet map[string]struct{}

func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

func (s TagSet) Add(tags TagSet) {
	for t := range tags {
		s[t] = struct{}{}
	}
}

// Sorted returns the tags in lexical order for stable serialization.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// GroupingDimension is one component of a grouping key.
type GroupingDimension string

const (
	GroupByPerson   GroupingDimension = "person"
	GroupByEmployer GroupingDimension = "organisasjon"
	GroupByGrad     GroupingDimension = "grad"
	GroupBySource   GroupingDimension = "kilde"
)

// GroupingKey is the subset of dimensions payout periods are partitioned by
// before adjacent periods are merged.
type GroupingKey map[GroupingDimension]struct{}

// ParseGroupingKey maps wire-level groupBy names onto a GroupingKey. Unknown
// names are rejected rather than ignored.
func ParseGroupingKey(names []string) (GroupingKey, error) {
	key := make(GroupingKey, len(names))
	for _, n := range names {
		dim := GroupingDimension(strings.ToLower(strings.TrimSpace(n)))
		switch dim {
		case GroupByPerson, GroupByEmployer, GroupByGrad, GroupBySource:
			key[dim] = struct{}{}
		default:
			return nil, fmt.Errorf("unknown grouping dimension %q", n)
		}
	}
	return key, nil
}

// DefaultGroupingKey groups by person, employer and coverage grade.
func DefaultGroupingKey() GroupingKey {
	return GroupingKey{
		GroupByPerson:   {},
		GroupByEmployer: {},
		GroupByGrad:     {},
	}
}

func (k GroupingKey) Has(dim GroupingDimension) bool {
	_, ok := k[dim]
	return ok
}

// Projection builds the partition key for one payout period under this
// grouping. Periods with equal projections are merge candidates.
func (k GroupingKey) Projection(p PayoutPeriod) string {
	var b strings.Builder
	if k.Has(GroupByPerson) {
		b.WriteString(p.PersonIdent)
	}
	b.WriteByte('|')
	if k.Has(GroupByEmployer) && p.OrgNumber != nil {
		b.WriteString(*p.OrgNumber)
	}
	b.WriteByte('|')
	if k.Has(GroupByGrad) {
		fmt.Fprintf(&b, "%d", p.Grad)
	}
	return b.String()
}
