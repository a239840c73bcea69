package domain

import "time"

// Event type discriminators carried in the stream envelope.
const (
	EventTypeSettlement  = "utbetaling"
	EventTypeReversal    = "annullering"
	EventTypePeriodQuery = "periode_forespoersel"
	EventTypeTick        = "hel_time"
)

// PaymentLineEvent is one fom/tom/grad triple within a settlement event.
type PaymentLineEvent struct {
	Fom  string `json:"fom" validate:"required,datetime=2006-01-02"`
	Tom  string `json:"tom" validate:"required,datetime=2006-01-02"`
	Grad int    `json:"grad" validate:"gte=0,lte=100"`
}

// PaymentSideEvent carries one payer side's payment reference and its lines.
type PaymentSideEvent struct {
	PaymentReference string             `json:"paymentReference" validate:"required"`
	Mottaker         string             `json:"mottaker" validate:"required"`
	Lines            []PaymentLineEvent `json:"lines" validate:"dive"`
}

// SettlementEvent is an inbound settlement or revision for one correlation id.
// At least one payer side must be present.
type SettlementEvent struct {
	CorrelationID string            `json:"correlationId" validate:"required"`
	PersonIdent   string            `json:"personIdentifier" validate:"required,len=11,numeric"`
	OrgNumber     *string           `json:"organizationIdentifier,omitempty" validate:"omitempty,len=9,numeric"`
	RemainingDays int               `json:"remainingBenefitDays" validate:"gte=0"`
	EmployerSide  *PaymentSideEvent `json:"employerPaymentLines,omitempty"`
	PersonSide    *PaymentSideEvent `json:"personPaymentLines,omitempty"`
	PaidAt        time.Time         `json:"utbetaltTidspunkt"`
}

// HasSide reports whether the event carries at least one payer side.
func (e SettlementEvent) HasSide() bool {
	return e.EmployerSide != nil || e.PersonSide != nil
}

// ReversalEvent voids earlier payouts by payment reference. At least one
// reference must be present.
type ReversalEvent struct {
	EmployerReference *string `json:"employerPaymentReference,omitempty"`
	PersonReference   *string `json:"personPaymentReference,omitempty"`
}

func (e ReversalEvent) Valid() bool {
	return (e.EmployerReference != nil && *e.EmployerReference != "") ||
		(e.PersonReference != nil && *e.PersonReference != "")
}

// PeriodQueryEvent triggers the same aggregation as the HTTP endpoint; the
// response is republished instead of returned synchronously.
type PeriodQueryEvent struct {
	RequestID    string   `json:"requestId" validate:"required"`
	PersonIdents []string `json:"personIdentifiers" validate:"required,min=1,dive,len=11,numeric"`
	Fom          string   `json:"fom" validate:"required,datetime=2006-01-02"`
	Tom          string   `json:"tom" validate:"required,datetime=2006-01-02"`
	Resolution   []string `json:"resolution,omitempty"`
}

// TickEvent drives the health-check engine. The timestamp is the scheduler's
// wall clock at publish time, not the consumer's.
type TickEvent struct {
	Timestamp time.Time `json:"timestamp" validate:"required"`
}
