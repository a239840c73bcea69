package service

import (
	"context"
	"sort"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"
	"github.com/navikt/helse-spokelse-sub000/internal/grouping"
	"github.com/navikt/helse-spokelse-sub000/internal/repository"
	"github.com/navikt/helse-spokelse-sub000/internal/source"
	customError "github.com/navikt/helse-spokelse-sub000/pkg/errors"
	"github.com/navikt/helse-spokelse-sub000/pkg/utils"

	"github.com/rs/zerolog"
)

// earliestLookup bounds unconstrained history lookups.
var earliestLookup = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// AggregationService answers period queries by fanning out to every source,
// merging the surviving periods per grouping key and serializing the result.
type AggregationService struct {
	sources     []source.Source
	legacy      *source.LegacySource
	vedtakRepo  repository.VedtakRepository
	settlements repository.SettlementRepository
	logger      zerolog.Logger
}

func NewAggregationService(
	sources []source.Source,
	legacy *source.LegacySource,
	vedtakRepo repository.VedtakRepository,
	settlements repository.SettlementRepository,
	logger zerolog.Logger,
) *AggregationService {
	return &AggregationService{
		sources:     sources,
		legacy:      legacy,
		vedtakRepo:  vedtakRepo,
		settlements: settlements,
		logger:      logger,
	}
}

// PayoutPeriods runs the full aggregation for one request.
func (s *AggregationService) PayoutPeriods(ctx context.Context, req domain.PayoutPeriodsRequest) (*domain.PayoutPeriodsResponse, error) {
	window, err := domain.ParsePeriod(req.Fom, req.Tom)
	if err != nil {
		return nil, customError.WrapValidationError(err.Error(), customError.ErrInvalidPeriod)
	}

	key := domain.DefaultGroupingKey()
	if len(req.GroupBy) > 0 {
		key, err = domain.ParseGroupingKey(req.GroupBy)
		if err != nil {
			return nil, customError.WrapUnknownGroupingKey(err.Error())
		}
	}

	collections, err := source.FetchAll(ctx, s.sources, req.PersonIdents, window.Fom, window.Tom)
	if err != nil {
		s.logger.Error().Strs("person_idents", req.PersonIdents).Err(err).Msg("source fetch failed")
		return nil, err
	}

	rows := grouping.Assemble(collections, key, grouping.Options{})
	if rows == nil {
		rows = []domain.PayoutPeriodRow{}
	}
	return &domain.PayoutPeriodsResponse{PayoutPeriods: rows}, nil
}

// Payouts returns exactly one row per requested identifier: the most recent
// merged payout period, or the no-data sentinel when the identifier has none.
func (s *AggregationService) Payouts(ctx context.Context, personIdents []string) ([]domain.PayoutRow, error) {
	tom := domain.Midnight(time.Now())

	collections, err := source.FetchAll(ctx, s.sources, personIdents, earliestLookup, tom)
	if err != nil {
		return nil, err
	}

	byPerson := make(map[string][]domain.PayoutPeriod)
	for _, c := range collections {
		for _, p := range c.Periods {
			byPerson[p.PersonIdent] = append(byPerson[p.PersonIdent], p)
		}
	}

	rows := make([]domain.PayoutRow, 0, len(personIdents))
	for _, ident := range personIdents {
		payouts := byPerson[ident]
		if len(payouts) == 0 {
			rows = append(rows, domain.NoDataRow(ident))
			continue
		}
		rows = append(rows, latestPayoutRow(ident, payouts))
	}
	return rows, nil
}

func latestPayoutRow(ident string, payouts []domain.PayoutPeriod) domain.PayoutRow {
	latest := payouts[0]
	for _, p := range payouts[1:] {
		if p.Period.Tom.After(latest.Period.Tom) {
			latest = p
		}
	}

	// Merge everything contiguous with the latest payout so a revision split
	// across sources still reads as one period.
	periods := make([]domain.Period, 0, len(payouts))
	for _, p := range payouts {
		periods = append(periods, p.Period)
	}
	merged := grouping.MergeAdjacent(periods)
	covering := merged[len(merged)-1]

	fom := utils.FormatDate(covering.Fom)
	tomStr := utils.FormatDate(covering.Tom)
	return domain.PayoutRow{
		PersonIdent: ident,
		Fom:         &fom,
		Tom:         &tomStr,
		Grad:        latest.Grad,
		Tags:        grouping.TagsWithin(covering, payouts).Sorted(),
	}
}

// Basis aggregates decision rows across the legacy system and both internal
// stores.
func (s *AggregationService) Basis(ctx context.Context, personIdent string, fom *time.Time) ([]domain.BasisRow, error) {
	legacyRows, err := s.legacy.FetchBasis(ctx, personIdent, fom)
	if err != nil {
		return nil, err
	}

	storeRows, err := s.vedtakRepo.FetchBasis(ctx, personIdent, fom)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	settlements, err := s.settlements.FetchSettlements(ctx, []string{personIdent})
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	rows := append(legacyRows, storeRows...)
	rows = append(rows, settlementBasisRows(settlements, fom)...)

	sort.Slice(rows, func(i, j int) bool { return rows[i].DecidedAt.Before(rows[j].DecidedAt) })
	return rows, nil
}

func settlementBasisRows(settlements []domain.Settlement, fom *time.Time) []domain.BasisRow {
	var out []domain.BasisRow
	for _, s := range settlements {
		for _, side := range []struct {
			ref   *string
			lines []domain.PaymentLine
		}{
			{s.EmployerReference, s.EmployerLines},
			{s.PersonReference, s.PersonLines},
		} {
			if side.ref == nil || len(side.lines) == 0 {
				continue
			}
			row := domain.BasisRow{Reference: *side.ref, DecidedAt: s.LastPaidAt}
			for _, l := range side.lines {
				if fom != nil && l.Tom.Before(*fom) {
					continue
				}
				row.PayoutLines = append(row.PayoutLines, domain.BasisLine{
					Fom:  utils.FormatDate(l.Fom),
					Tom:  utils.FormatDate(l.Tom),
					Grad: l.Grad,
				})
			}
			if len(row.PayoutLines) > 0 {
				out = append(out, row)
			}
		}
	}
	return out
}
