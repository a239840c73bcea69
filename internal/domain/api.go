package domain

import "time"

// DTOs for requests and responses

type PayoutPeriodsRequest struct {
	PersonIdents []string `json:"personIdentifiers" validate:"required,min=1,dive,len=11,numeric"`
	Fom          string   `json:"fom" validate:"required,datetime=2006-01-02"`
	Tom          string   `json:"tom" validate:"required,datetime=2006-01-02"`
	GroupBy      []string `json:"groupBy,omitempty"`
}

// PayoutPeriodRow is one merged period on the wire. Dimensions that were not
// part of the requested grouping are omitted entirely, not emitted as null.
type PayoutPeriodRow struct {
	PersonIdent *string  `json:"personIdentifier,omitempty"`
	OrgNumber   *string  `json:"organizationIdentifier,omitempty"`
	Grad        *int     `json:"grad,omitempty"`
	Fom         string   `json:"fom"`
	Tom         string   `json:"tom"`
	Tags        []string `json:"tags"`
}

type PayoutPeriodsResponse struct {
	PayoutPeriods []PayoutPeriodRow `json:"payoutPeriods"`
}

// PayoutRow is one row per requested identifier for the batch lookup. An
// identifier with no data gets the sentinel shape: fom/tom null, grad 0.
type PayoutRow struct {
	PersonIdent string   `json:"personIdentifier"`
	Fom         *string  `json:"fom"`
	Tom         *string  `json:"tom"`
	Grad        int      `json:"grad"`
	Tags        []string `json:"tags,omitempty"`
}

// NoDataRow builds the sentinel row for an identifier without payouts.
func NoDataRow(personIdent string) PayoutRow {
	return PayoutRow{PersonIdent: personIdent, Grad: 0}
}

// BasisLine is one payout line within a basis decision.
type BasisLine struct {
	Fom  string `json:"fom"`
	Tom  string `json:"tom"`
	Grad int    `json:"grad"`
}

// BasisRow is one decision aggregated across legacy and internal sources.
type BasisRow struct {
	Reference   string      `json:"reference"`
	PayoutLines []BasisLine `json:"payoutLines"`
	DecidedAt   time.Time   `json:"decidedAt"`
}

// PeriodQueryResponse is the republished answer to a period-query event.
type PeriodQueryResponse struct {
	RequestID     string            `json:"requestId"`
	PayoutPeriods []PayoutPeriodRow `json:"payoutPeriods"`
}
