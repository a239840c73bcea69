package source

import (
	"context"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"
	"github.com/navikt/helse-spokelse-sub000/internal/repository"
	customError "github.com/navikt/helse-spokelse-sub000/pkg/errors"
)

// EventSource reads the event-sourced settlement store. Reversed payment
// lines never exist in the store: the reconciler removes them on reversal and
// the upsert refuses to re-insert a reversed reference on redelivery, so no
// read-time filtering is needed beyond the migration trust cutoff.
type EventSource struct {
	repo repository.SettlementRepository
	// trustedAfter guards against a known window of incomplete migration:
	// settlements last paid before this moment are ignored.
	trustedAfter time.Time
}

func NewEventSource(repo repository.SettlementRepository, trustedAfter time.Time) *EventSource {
	return &EventSource{repo: repo, trustedAfter: trustedAfter}
}

func (s *EventSource) Name() string {
	return domain.TagEventStore
}

func (s *EventSource) Fetch(ctx context.Context, personIdents []string, fom, tom time.Time) ([]domain.PayoutPeriod, error) {
	settlements, err := s.repo.FetchSettlements(ctx, personIdents)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	window := domain.Period{Fom: domain.Midnight(fom), Tom: domain.Midnight(tom)}

	var out []domain.PayoutPeriod
	for _, settlement := range settlements {
		if settlement.LastPaidAt.Before(s.trustedAfter) {
			continue
		}
		for _, payout := range settlement.PayoutPeriods() {
			if window.Overlaps(payout.Period) {
				out = append(out, payout)
			}
		}
	}
	return out, nil
}
