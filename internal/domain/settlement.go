package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentSide distinguishes who a payment line was paid out to.
type PaymentSide string

const (
	SideEmployer PaymentSide = "employer"
	SidePerson   PaymentSide = "person"
)

// PaymentLine is one paid interval within a settlement, belonging to either
// the employer-side or person-side payer.
type PaymentLine struct {
	ID               uuid.UUID   `db:"id"`
	CorrelationID    string      `db:"correlation_id"`
	Side             PaymentSide `db:"side"`
	PaymentReference string      `db:"payment_reference"`
	Fom              time.Time   `db:"fom"`
	Tom              time.Time   `db:"tom"`
	Grad             int         `db:"grad"`
}

// Settlement is the current state of one settlement case: one row per
// correlation id, spanning the first payment through all its revisions.
type Settlement struct {
	CorrelationID     string    `db:"correlation_id"`
	PersonIdent       string    `db:"person_ident"`
	OrgNumber         *string   `db:"org_number"`
	RemainingDays     int       `db:"remaining_days"`
	EmployerReference *string   `db:"employer_reference"`
	PersonReference   *string   `db:"person_reference"`
	LastMessageID     uuid.UUID `db:"last_message_id"`
	LastPaidAt        time.Time `db:"last_paid_at"`
	EmployerLines     []PaymentLine
	PersonLines       []PaymentLine
}

// PayoutPeriods expands both payer sides into normalized payout periods.
// Employer-side lines carry the org number, person-side lines do not.
func (s Settlement) PayoutPeriods() []PayoutPeriod {
	out := make([]PayoutPeriod, 0, len(s.EmployerLines)+len(s.PersonLines))
	for _, l := range s.EmployerLines {
		out = append(out, PayoutPeriod{
			PersonIdent:      s.PersonIdent,
			Period:           Period{Fom: Midnight(l.Fom), Tom: Midnight(l.Tom)},
			Grad:             l.Grad,
			OrgNumber:        s.OrgNumber,
			PaymentReference: l.PaymentReference,
			Tags:             NewTagSet(TagEventStore),
		})
	}
	for _, l := range s.PersonLines {
		out = append(out, PayoutPeriod{
			PersonIdent:      s.PersonIdent,
			Period:           Period{Fom: Midnight(l.Fom), Tom: Midnight(l.Tom)},
			Grad:             l.Grad,
			PaymentReference: l.PaymentReference,
			Tags:             NewTagSet(TagEventStore),
		})
	}
	return out
}

// Reversal voids previously recorded payouts matched by payment reference.
// At least one of the two references is set; once recorded the match is
// permanent.
type Reversal struct {
	EmployerReference *string   `db:"employer_reference"`
	PersonReference   *string   `db:"person_reference"`
	RecordedAt        time.Time `db:"recorded_at"`
}

// Valid reports whether the reversal carries at least one reference.
func (a Reversal) Valid() bool {
	return (a.EmployerReference != nil && *a.EmployerReference != "") ||
		(a.PersonReference != nil && *a.PersonReference != "")
}
