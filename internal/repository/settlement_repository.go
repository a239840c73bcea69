package repository

import (
	"context"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type settlementRepository struct {
	db *sqlx.DB
}

func NewSettlementRepository(db *sqlx.DB) SettlementRepository {
	return &settlementRepository{db: db}
}

func (r *settlementRepository) LogRawMessage(ctx context.Context, eventType string, payload []byte) (uuid.UUID, error) {
	id := uuid.New()
	query := `
		INSERT INTO melding (id, type, data, opprettet)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, id, eventType, payload, time.Now())
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// UpsertSettlement applies one settlement event: the header is inserted or
// updated and each affected payer side's payment lines are replaced wholesale
// (delete-all-then-insert), all in one transaction. Replaying the same event
// lands in the same end state.
func (r *settlementRepository) UpsertSettlement(ctx context.Context, settlement domain.Settlement, sides []domain.PaymentSide) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// COALESCE keeps an already-known reference when a revision omits that
	// side, and backfills a reference the first event lacked.
	headerQuery := `
		INSERT INTO oppgjoer (correlation_id, person_ident, org_number, remaining_days, employer_reference, person_reference, last_message_id, last_paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (correlation_id) DO UPDATE SET
			remaining_days     = EXCLUDED.remaining_days,
			employer_reference = COALESCE(EXCLUDED.employer_reference, oppgjoer.employer_reference),
			person_reference   = COALESCE(EXCLUDED.person_reference, oppgjoer.person_reference),
			last_message_id    = EXCLUDED.last_message_id,
			last_paid_at       = EXCLUDED.last_paid_at
	`

	_, err = tx.ExecContext(ctx, headerQuery,
		settlement.CorrelationID,
		settlement.PersonIdent,
		settlement.OrgNumber,
		settlement.RemainingDays,
		settlement.EmployerReference,
		settlement.PersonReference,
		settlement.LastMessageID,
		settlement.LastPaidAt,
	)
	if err != nil {
		return err
	}

	// A reversed reference stays dead: redelivering the original settlement
	// event must not resurrect lines the reversal already removed.
	lineQuery := `
		INSERT INTO oppgjoerslinje (id, correlation_id, side, payment_reference, fom, tom, grad, opprettet)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8
		WHERE NOT EXISTS (
			SELECT 1 FROM oppgjoer_annullering
			WHERE side = $3 AND payment_reference = $4
		)
	`

	now := time.Now()
	for _, side := range sides {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM oppgjoerslinje WHERE correlation_id = $1 AND side = $2`,
			settlement.CorrelationID, side,
		)
		if err != nil {
			return err
		}

		lines := settlement.EmployerLines
		if side == domain.SidePerson {
			lines = settlement.PersonLines
		}
		for _, line := range lines {
			_, err = tx.ExecContext(ctx, lineQuery,
				uuid.New(),
				settlement.CorrelationID,
				side,
				line.PaymentReference,
				line.Fom,
				line.Tom,
				line.Grad,
				now,
			)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// ApplyReversal removes constituent payment lines matching the reversed
// reference(s) and records the reversal. Replays are no-ops for the record
// and delete nothing further.
func (r *settlementRepository) ApplyReversal(ctx context.Context, reversal domain.Reversal) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for side, ref := range map[domain.PaymentSide]*string{
		domain.SideEmployer: reversal.EmployerReference,
		domain.SidePerson:   reversal.PersonReference,
	} {
		if ref == nil || *ref == "" {
			continue
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM oppgjoerslinje WHERE side = $1 AND payment_reference = $2`,
			side, *ref,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO oppgjoer_annullering (side, payment_reference, recorded_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (side, payment_reference) DO NOTHING`,
			side, *ref, reversal.RecordedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

type settlementRow struct {
	CorrelationID     string    `db:"correlation_id"`
	PersonIdent       string    `db:"person_ident"`
	OrgNumber         *string   `db:"org_number"`
	RemainingDays     int       `db:"remaining_days"`
	EmployerReference *string   `db:"employer_reference"`
	PersonReference   *string   `db:"person_reference"`
	LastMessageID     uuid.UUID `db:"last_message_id"`
	LastPaidAt        time.Time `db:"last_paid_at"`
}

func (r *settlementRepository) FetchSettlements(ctx context.Context, personIdents []string) ([]domain.Settlement, error) {
	headerQuery := `
		SELECT correlation_id, person_ident, org_number, remaining_days, employer_reference, person_reference, last_message_id, last_paid_at
		FROM oppgjoer
		WHERE person_ident = ANY($1)
	`

	var headers []settlementRow
	if err := r.db.SelectContext(ctx, &headers, headerQuery, pq.Array(personIdents)); err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, nil
	}

	ids := make([]string, len(headers))
	for i, h := range headers {
		ids[i] = h.CorrelationID
	}

	var lines []domain.PaymentLine
	lineQuery := `
		SELECT id, correlation_id, side, payment_reference, fom, tom, grad
		FROM oppgjoerslinje
		WHERE correlation_id = ANY($1)
		ORDER BY fom
	`
	if err := r.db.SelectContext(ctx, &lines, lineQuery, pq.Array(ids)); err != nil {
		return nil, err
	}

	linesByCorrelation := make(map[string][]domain.PaymentLine)
	for _, l := range lines {
		linesByCorrelation[l.CorrelationID] = append(linesByCorrelation[l.CorrelationID], l)
	}

	out := make([]domain.Settlement, 0, len(headers))
	for _, h := range headers {
		s := domain.Settlement{
			CorrelationID:     h.CorrelationID,
			PersonIdent:       h.PersonIdent,
			OrgNumber:         h.OrgNumber,
			RemainingDays:     h.RemainingDays,
			EmployerReference: h.EmployerReference,
			PersonReference:   h.PersonReference,
			LastMessageID:     h.LastMessageID,
			LastPaidAt:        h.LastPaidAt,
		}
		for _, l := range linesByCorrelation[h.CorrelationID] {
			if l.Side == domain.SideEmployer {
				s.EmployerLines = append(s.EmployerLines, l)
			} else {
				s.PersonLines = append(s.PersonLines, l)
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *settlementRepository) CountPayoutsSince(ctx context.Context, side domain.PaymentSide, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(1) FROM oppgjoerslinje WHERE side = $1 AND opprettet > $2`,
		side, since,
	)
	return count, err
}

func (r *settlementRepository) CountReversalsSince(ctx context.Context, side domain.PaymentSide, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(1) FROM oppgjoer_annullering WHERE side = $1 AND recorded_at > $2`,
		side, since,
	)
	return count, err
}
