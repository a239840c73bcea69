package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"
	"github.com/navikt/helse-spokelse-sub000/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func testSettlement(ident string, lastPaidAt time.Time, lines ...domain.PaymentLine) domain.Settlement {
	org := "987654321"
	ref := "emp-ref-1"
	return domain.Settlement{
		CorrelationID:     "corr-1",
		PersonIdent:       ident,
		OrgNumber:         &org,
		EmployerReference: &ref,
		LastPaidAt:        lastPaidAt,
		EmployerLines:     lines,
	}
}

func TestEventSourceFetch(t *testing.T) {
	ident := "12345678901"
	trustedAfter := date(2022, 6, 1)
	line := func(fom, tom time.Time) domain.PaymentLine {
		return domain.PaymentLine{Side: domain.SideEmployer, PaymentReference: "emp-ref-1", Fom: fom, Tom: tom, Grad: 100}
	}

	tests := []struct {
		name        string
		settlements []domain.Settlement
		fom, tom    time.Time
		expected    int
	}{
		{
			name: "line inside window survives",
			settlements: []domain.Settlement{
				testSettlement(ident, date(2023, 2, 1), line(date(2023, 1, 1), date(2023, 1, 31))),
			},
			fom:      date(2023, 1, 1),
			tom:      date(2023, 12, 31),
			expected: 1,
		},
		{
			name: "line outside window is filtered",
			settlements: []domain.Settlement{
				testSettlement(ident, date(2023, 2, 1), line(date(2023, 1, 1), date(2023, 1, 31))),
			},
			fom:      date(2023, 6, 1),
			tom:      date(2023, 12, 31),
			expected: 0,
		},
		{
			name: "partially overlapping line survives",
			settlements: []domain.Settlement{
				testSettlement(ident, date(2023, 2, 1), line(date(2023, 1, 15), date(2023, 2, 15))),
			},
			fom:      date(2023, 2, 1),
			tom:      date(2023, 12, 31),
			expected: 1,
		},
		{
			name: "settlement paid before trust cutoff is ignored",
			settlements: []domain.Settlement{
				testSettlement(ident, date(2022, 1, 1), line(date(2023, 1, 1), date(2023, 1, 31))),
			},
			fom:      date(2023, 1, 1),
			tom:      date(2023, 12, 31),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockSettlementRepository)
			repo.On("FetchSettlements", mock.Anything, []string{ident}).Return(tt.settlements, nil)

			src := NewEventSource(repo, trustedAfter)
			payouts, err := src.Fetch(context.Background(), []string{ident}, tt.fom, tt.tom)
			require.NoError(t, err)
			assert.Len(t, payouts, tt.expected)

			if tt.expected > 0 {
				p := payouts[0]
				assert.Equal(t, ident, p.PersonIdent)
				require.NotNil(t, p.OrgNumber)
				assert.Equal(t, []string{domain.TagEventStore}, p.Tags.Sorted())
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestEventSourceFetchRepositoryError(t *testing.T) {
	repo := new(mocks.MockSettlementRepository)
	repo.On("FetchSettlements", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	src := NewEventSource(repo, date(2022, 6, 1))
	_, err := src.Fetch(context.Background(), []string{"12345678901"}, date(2023, 1, 1), date(2023, 12, 31))
	require.Error(t, err)
}

func TestFetchAllKeepsSourceOrder(t *testing.T) {
	ident := "12345678901"
	first := &mocks.MockSource{SourceName: domain.TagLegacy}
	second := &mocks.MockSource{SourceName: domain.TagEventStore}
	first.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]domain.PayoutPeriod{}, nil)
	second.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]domain.PayoutPeriod{}, nil)

	results, err := FetchAll(context.Background(), []Source{first, second}, []string{ident}, date(2023, 1, 1), date(2023, 12, 31))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.TagLegacy, results[0].Source)
	assert.Equal(t, domain.TagEventStore, results[1].Source)
}

func TestFetchAllPropagatesFailure(t *testing.T) {
	ok := &mocks.MockSource{SourceName: domain.TagLegacy}
	broken := &mocks.MockSource{SourceName: domain.TagEventStore}
	ok.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]domain.PayoutPeriod{}, nil).Maybe()
	broken.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, err := FetchAll(context.Background(), []Source{ok, broken}, []string{"12345678901"}, date(2023, 1, 1), date(2023, 12, 31))
	require.Error(t, err)
}
