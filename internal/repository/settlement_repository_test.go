package repository

import (
	"context"
	"testing"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettlementRepoFixture(t *testing.T) (SettlementRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSettlementRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestUpsertSettlementGuardsReversedReferences(t *testing.T) {
	repo, mock := newSettlementRepoFixture(t)

	settlement := domain.Settlement{
		CorrelationID:     "corr-1",
		PersonIdent:       "12345678901",
		RemainingDays:     200,
		EmployerReference: strPtr("REF-AG"),
		LastMessageID:     uuid.New(),
		LastPaidAt:        time.Date(2023, 4, 25, 12, 0, 0, 0, time.UTC),
		EmployerLines: []domain.PaymentLine{{
			CorrelationID:    "corr-1",
			Side:             domain.SideEmployer,
			PaymentReference: "REF-AG",
			Fom:              time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
			Tom:              time.Date(2023, 4, 20, 0, 0, 0, 0, time.UTC),
			Grad:             100,
		}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO oppgjoer \(correlation_id`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM oppgjoerslinje WHERE correlation_id").
		WithArgs("corr-1", "employer").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// The line insert must refuse references already recorded as reversed,
	// so replaying a settlement cannot bring a reversed payout back.
	mock.ExpectExec("INSERT INTO oppgjoerslinje.*WHERE NOT EXISTS.*FROM oppgjoer_annullering").
		WithArgs(sqlmock.AnyArg(), "corr-1", "employer", "REF-AG",
			settlement.EmployerLines[0].Fom, settlement.EmployerLines[0].Tom, 100, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpsertSettlement(context.Background(), settlement, []domain.PaymentSide{domain.SideEmployer})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyReversalDeletesAndRecordsInOneTransaction(t *testing.T) {
	repo, mock := newSettlementRepoFixture(t)
	recordedAt := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM oppgjoerslinje WHERE side").
		WithArgs("employer", "REF-AG").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO oppgjoer_annullering").
		WithArgs("employer", "REF-AG", recordedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyReversal(context.Background(), domain.Reversal{
		EmployerReference: strPtr("REF-AG"),
		RecordedAt:        recordedAt,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
