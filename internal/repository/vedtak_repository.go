package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// GenerationCutoffs marks where each historical table generation's coverage
// ends. A generation is skipped when the requested range starts after its
// cutoff; the zero value means the generation is still live.
type GenerationCutoffs struct {
	OldEnd          time.Time
	IntermediateEnd time.Time
}

type vedtakRepository struct {
	db      *sqlx.DB
	cutoffs GenerationCutoffs
}

func NewVedtakRepository(db *sqlx.DB, cutoffs GenerationCutoffs) VedtakRepository {
	return &vedtakRepository{db: db, cutoffs: cutoffs}
}

// Per-generation SELECTs sharing one output shape. Each generation anti-joins
// its reversals so a reversed payment reference never leaves the database.
const (
	oldGenerationQuery = `
		SELECT v.fodselsnummer, v.orgnummer, v.fom, v.tom, v.grad, v.utbetalingsref, 'Vedtak' AS kilde
		FROM old_vedtak v
		LEFT JOIN annullering a ON a.utbetalingsref = v.utbetalingsref
		WHERE a.utbetalingsref IS NULL
		  AND v.fodselsnummer = ANY($1) AND v.fom <= $3 AND v.tom >= $2`

	intermediateGenerationQuery = `
		SELECT v.fodselsnummer, v.orgnummer, u.fom, u.tom, u.grad, v.utbetalingsref, 'GamleUtbetalinger' AS kilde
		FROM gamle_vedtak v
		JOIN gamle_utbetaling u ON u.vedtak_id = v.id
		LEFT JOIN annullering a ON a.utbetalingsref = v.utbetalingsref
		WHERE a.utbetalingsref IS NULL
		  AND v.fodselsnummer = ANY($1) AND u.fom <= $3 AND u.tom >= $2`

	currentGenerationQuery = `
		SELECT v.fodselsnummer, v.orgnummer, u.fom, u.tom, u.grad, v.utbetalingsref, 'Utbetaling' AS kilde
		FROM vedtak v
		JOIN utbetaling u ON u.vedtak_id = v.id
		LEFT JOIN annullering a ON a.utbetalingsref = v.utbetalingsref
		WHERE a.utbetalingsref IS NULL
		  AND v.fodselsnummer = ANY($1) AND u.fom <= $3 AND u.tom >= $2`
)

type payoutRow struct {
	Fodselsnummer  string         `db:"fodselsnummer"`
	Orgnummer      sql.NullString `db:"orgnummer"`
	Fom            time.Time      `db:"fom"`
	Tom            time.Time      `db:"tom"`
	Grad           int            `db:"grad"`
	Utbetalingsref string         `db:"utbetalingsref"`
	Kilde          string         `db:"kilde"`
}

func (r *vedtakRepository) FetchPayoutPeriods(ctx context.Context, personIdents []string, fom, tom time.Time) ([]domain.PayoutPeriod, error) {
	var parts []string
	// Generations with a known end-of-coverage date contribute nothing to
	// ranges starting after that date; skip the scan entirely.
	if r.cutoffs.OldEnd.IsZero() || !fom.After(r.cutoffs.OldEnd) {
		parts = append(parts, oldGenerationQuery)
	}
	if r.cutoffs.IntermediateEnd.IsZero() || !fom.After(r.cutoffs.IntermediateEnd) {
		parts = append(parts, intermediateGenerationQuery)
	}
	parts = append(parts, currentGenerationQuery)

	query := strings.Join(parts, "\n\t\tUNION ALL\n")

	var rows []payoutRow
	err := r.db.SelectContext(ctx, &rows, query, pq.Array(personIdents), fom, tom)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PayoutPeriod, 0, len(rows))
	for _, row := range rows {
		p := domain.PayoutPeriod{
			PersonIdent:      row.Fodselsnummer,
			Period:           domain.Period{Fom: domain.Midnight(row.Fom), Tom: domain.Midnight(row.Tom)},
			Grad:             row.Grad,
			PaymentReference: row.Utbetalingsref,
			Tags:             domain.NewTagSet(row.Kilde),
		}
		if row.Orgnummer.Valid && row.Orgnummer.String != "" {
			org := row.Orgnummer.String
			p.OrgNumber = &org
		}
		out = append(out, p)
	}
	return out, nil
}

type basisHeaderRow struct {
	ID               string    `db:"id"`
	Utbetalingsref   string    `db:"utbetalingsref"`
	VedtattTidspunkt time.Time `db:"vedtatt_tidspunkt"`
}

type basisLineRow struct {
	VedtakID string    `db:"vedtak_id"`
	Fom      time.Time `db:"fom"`
	Tom      time.Time `db:"tom"`
	Grad     int       `db:"grad"`
}

func (r *vedtakRepository) FetchBasis(ctx context.Context, personIdent string, fom *time.Time) ([]domain.BasisRow, error) {
	headerQuery := `
		SELECT v.id, v.utbetalingsref, v.vedtatt_tidspunkt
		FROM vedtak v
		LEFT JOIN annullering a ON a.utbetalingsref = v.utbetalingsref
		WHERE a.utbetalingsref IS NULL AND v.fodselsnummer = $1
		ORDER BY v.vedtatt_tidspunkt`

	var headers []basisHeaderRow
	if err := r.db.SelectContext(ctx, &headers, headerQuery, personIdent); err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		return nil, nil
	}

	ids := make([]string, len(headers))
	for i, h := range headers {
		ids[i] = h.ID
	}

	lineQuery := `
		SELECT u.vedtak_id, u.fom, u.tom, u.grad
		FROM utbetaling u
		WHERE u.vedtak_id = ANY($1)
		ORDER BY u.fom`

	var lines []basisLineRow
	if err := r.db.SelectContext(ctx, &lines, lineQuery, pq.Array(ids)); err != nil {
		return nil, err
	}

	linesByVedtak := make(map[string][]domain.BasisLine)
	for _, l := range lines {
		if fom != nil && l.Tom.Before(*fom) {
			continue
		}
		linesByVedtak[l.VedtakID] = append(linesByVedtak[l.VedtakID], domain.BasisLine{
			Fom:  l.Fom.Format("2006-01-02"),
			Tom:  l.Tom.Format("2006-01-02"),
			Grad: l.Grad,
		})
	}

	out := make([]domain.BasisRow, 0, len(headers))
	for _, h := range headers {
		payoutLines := linesByVedtak[h.ID]
		if fom != nil && len(payoutLines) == 0 {
			continue
		}
		out = append(out, domain.BasisRow{
			Reference:   h.Utbetalingsref,
			PayoutLines: payoutLines,
			DecidedAt:   h.VedtattTidspunkt,
		})
	}
	return out, nil
}

func (r *vedtakRepository) RecordAnnulment(ctx context.Context, reversal domain.Reversal) error {
	query := `
		INSERT INTO annullering (utbetalingsref, recorded_at)
		VALUES ($1, $2)
		ON CONFLICT (utbetalingsref) DO NOTHING
	`

	// Both references land atomically so a reversal is never half applied.
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ref := range []*string{reversal.EmployerReference, reversal.PersonReference} {
		if ref == nil || *ref == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, query, *ref, reversal.RecordedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
