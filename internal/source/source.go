package source

import (
	"context"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"
	"github.com/navikt/helse-spokelse-sub000/internal/grouping"

	"golang.org/x/sync/errgroup"
)

// Source is the common adapter contract: normalized payout periods for a set
// of person identifiers within a date range. An adapter error fails the whole
// fetch; a source with nothing to contribute returns an empty, non-error
// result.
type Source interface {
	Name() string
	Fetch(ctx context.Context, personIdents []string, fom, tom time.Time) ([]domain.PayoutPeriod, error)
}

// FetchAll queries every source concurrently and waits for all of them;
// there is no partial or streaming result. The output keeps the source
// order regardless of completion order.
func FetchAll(ctx context.Context, sources []Source, personIdents []string, fom, tom time.Time) ([]grouping.LabeledPeriods, error) {
	results := make([]grouping.LabeledPeriods, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			periods, err := src.Fetch(ctx, personIdents, fom, tom)
			if err != nil {
				return err
			}
			results[i] = grouping.LabeledPeriods{Source: src.Name(), Periods: periods}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
