package service

import (
	"context"
	"errors"
	"testing"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"
	"github.com/navikt/helse-spokelse-sub000/internal/source"
	customError "github.com/navikt/helse-spokelse-sub000/pkg/errors"
	"github.com/navikt/helse-spokelse-sub000/tests/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const aggIdent = "12345678901"

func aggPayout(ident, fom, tom string, grad int, org *string, tag string) domain.PayoutPeriod {
	period, err := domain.ParsePeriod(fom, tom)
	if err != nil {
		panic(err)
	}
	return domain.PayoutPeriod{
		PersonIdent: ident,
		Period:      period,
		Grad:        grad,
		OrgNumber:   org,
		Tags:        domain.NewTagSet(tag),
	}
}

func newAggregationFixture(t *testing.T, srcs ...*mocks.MockSource) (*AggregationService, func()) {
	t.Helper()
	sources := make([]source.Source, len(srcs))
	for i, s := range srcs {
		sources[i] = s
	}
	svc := NewAggregationService(sources, nil, new(mocks.MockVedtakRepository), new(mocks.MockSettlementRepository), zerolog.Nop())
	return svc, func() {
		for _, s := range srcs {
			s.AssertExpectations(t)
		}
	}
}

func TestPayoutPeriods(t *testing.T) {
	t.Run("merges across sources under default grouping", func(t *testing.T) {
		org := "987654321"
		legacy := &mocks.MockSource{SourceName: domain.TagLegacy}
		events := &mocks.MockSource{SourceName: domain.TagEventStore}
		legacy.On("Fetch", mock.Anything, []string{aggIdent}, mock.Anything, mock.Anything).
			Return([]domain.PayoutPeriod{aggPayout(aggIdent, "2023-01-01", "2023-01-15", 100, &org, domain.TagLegacy)}, nil)
		events.On("Fetch", mock.Anything, []string{aggIdent}, mock.Anything, mock.Anything).
			Return([]domain.PayoutPeriod{aggPayout(aggIdent, "2023-01-16", "2023-01-31", 100, &org, domain.TagEventStore)}, nil)

		svc, verify := newAggregationFixture(t, legacy, events)
		defer verify()

		resp, err := svc.PayoutPeriods(context.Background(), domain.PayoutPeriodsRequest{
			PersonIdents: []string{aggIdent},
			Fom:          "2023-01-01",
			Tom:          "2023-12-31",
		})
		require.NoError(t, err)
		require.Len(t, resp.PayoutPeriods, 1)

		row := resp.PayoutPeriods[0]
		assert.Equal(t, "2023-01-01", row.Fom)
		assert.Equal(t, "2023-01-31", row.Tom)
		assert.Equal(t, []string{domain.TagLegacy, domain.TagEventStore}, row.Tags)
	})

	t.Run("reversed payout never resurfaces", func(t *testing.T) {
		// A reversal deletes settlement lines at write time, so the event
		// store source simply has nothing left to return.
		legacy := &mocks.MockSource{SourceName: domain.TagLegacy}
		events := &mocks.MockSource{SourceName: domain.TagEventStore}
		legacy.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]domain.PayoutPeriod{aggPayout(aggIdent, "2023-01-01", "2023-01-15", 100, nil, domain.TagLegacy)}, nil)
		events.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]domain.PayoutPeriod{}, nil)

		svc, verify := newAggregationFixture(t, legacy, events)
		defer verify()

		resp, err := svc.PayoutPeriods(context.Background(), domain.PayoutPeriodsRequest{
			PersonIdents: []string{aggIdent},
			Fom:          "2023-01-01",
			Tom:          "2023-12-31",
		})
		require.NoError(t, err)
		require.Len(t, resp.PayoutPeriods, 1)
		assert.Equal(t, "2023-01-15", resp.PayoutPeriods[0].Tom)
		assert.Equal(t, []string{domain.TagLegacy}, resp.PayoutPeriods[0].Tags)
	})

	t.Run("no payouts yields empty slice not null", func(t *testing.T) {
		src := &mocks.MockSource{SourceName: domain.TagLegacy}
		src.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]domain.PayoutPeriod{}, nil)

		svc, verify := newAggregationFixture(t, src)
		defer verify()

		resp, err := svc.PayoutPeriods(context.Background(), domain.PayoutPeriodsRequest{
			PersonIdents: []string{aggIdent},
			Fom:          "2023-01-01",
			Tom:          "2023-12-31",
		})
		require.NoError(t, err)
		assert.NotNil(t, resp.PayoutPeriods)
		assert.Empty(t, resp.PayoutPeriods)
	})

	t.Run("inverted range is a validation error", func(t *testing.T) {
		svc, _ := newAggregationFixture(t)
		_, err := svc.PayoutPeriods(context.Background(), domain.PayoutPeriodsRequest{
			PersonIdents: []string{aggIdent},
			Fom:          "2023-06-01",
			Tom:          "2023-01-01",
		})
		require.Error(t, err)
		assert.True(t, customError.IsValidation(err))
	})

	t.Run("unknown grouping dimension is rejected", func(t *testing.T) {
		svc, _ := newAggregationFixture(t)
		_, err := svc.PayoutPeriods(context.Background(), domain.PayoutPeriodsRequest{
			PersonIdents: []string{aggIdent},
			Fom:          "2023-01-01",
			Tom:          "2023-12-31",
			GroupBy:      []string{"postnummer"},
		})
		require.Error(t, err)

		var bizErr *customError.BusinessError
		require.ErrorAs(t, err, &bizErr)
		assert.Equal(t, customError.ErrCodeUnknownGrouping, bizErr.Code)
	})

	t.Run("source failure fails the whole request", func(t *testing.T) {
		ok := &mocks.MockSource{SourceName: domain.TagLegacy}
		broken := &mocks.MockSource{SourceName: domain.TagEventStore}
		ok.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]domain.PayoutPeriod{}, nil).Maybe()
		broken.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("connection refused"))

		svc, _ := newAggregationFixture(t, ok, broken)
		_, err := svc.PayoutPeriods(context.Background(), domain.PayoutPeriodsRequest{
			PersonIdents: []string{aggIdent},
			Fom:          "2023-01-01",
			Tom:          "2023-12-31",
		})
		require.Error(t, err)
	})
}

func TestPayouts(t *testing.T) {
	t.Run("returns latest covering period per identifier", func(t *testing.T) {
		other := "98765432109"
		src := &mocks.MockSource{SourceName: domain.TagLegacy}
		src.On("Fetch", mock.Anything, []string{aggIdent, other}, mock.Anything, mock.Anything).
			Return([]domain.PayoutPeriod{
				aggPayout(aggIdent, "2022-01-01", "2022-03-31", 50, nil, domain.TagLegacy),
				aggPayout(aggIdent, "2023-02-01", "2023-02-14", 80, nil, domain.TagLegacy),
				aggPayout(aggIdent, "2023-02-15", "2023-02-28", 100, nil, domain.TagLegacy),
			}, nil)

		svc, verify := newAggregationFixture(t, src)
		defer verify()

		rows, err := svc.Payouts(context.Background(), []string{aggIdent, other})
		require.NoError(t, err)
		require.Len(t, rows, 2)

		latest := rows[0]
		assert.Equal(t, aggIdent, latest.PersonIdent)
		require.NotNil(t, latest.Fom)
		require.NotNil(t, latest.Tom)
		assert.Equal(t, "2023-02-01", *latest.Fom)
		assert.Equal(t, "2023-02-28", *latest.Tom)
		assert.Equal(t, 100, latest.Grad)

		sentinel := rows[1]
		assert.Equal(t, other, sentinel.PersonIdent)
		assert.Nil(t, sentinel.Fom)
		assert.Nil(t, sentinel.Tom)
		assert.Equal(t, 0, sentinel.Grad)
	})
}
