package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVedtakRepoFixture(t *testing.T) (VedtakRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewVedtakRepository(sqlx.NewDb(db, "sqlmock"), GenerationCutoffs{}), mock
}

func strPtr(s string) *string { return &s }

func TestRecordAnnulmentUsesOneTransaction(t *testing.T) {
	repo, mock := newVedtakRepoFixture(t)
	recordedAt := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO annullering").
		WithArgs("REF-AG", recordedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO annullering").
		WithArgs("REF-P", recordedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RecordAnnulment(context.Background(), domain.Reversal{
		EmployerReference: strPtr("REF-AG"),
		PersonReference:   strPtr("REF-P"),
		RecordedAt:        recordedAt,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAnnulmentRollsBackOnFailure(t *testing.T) {
	repo, mock := newVedtakRepoFixture(t)
	recordedAt := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO annullering").
		WithArgs("REF-AG", recordedAt).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.RecordAnnulment(context.Background(), domain.Reversal{
		EmployerReference: strPtr("REF-AG"),
		PersonReference:   strPtr("REF-P"),
		RecordedAt:        recordedAt,
	})

	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordAnnulmentSkipsMissingReferences(t *testing.T) {
	repo, mock := newVedtakRepoFixture(t)
	recordedAt := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO annullering").
		WithArgs("REF-P", recordedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.RecordAnnulment(context.Background(), domain.Reversal{
		PersonReference: strPtr("REF-P"),
		RecordedAt:      recordedAt,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
