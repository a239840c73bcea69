package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/navikt/helse-spokelse-sub000/internal/domain"
)

// VedtakRepository defines the interface for the multi-generation payout store
type VedtakRepository interface {
	// FetchPayoutPeriods runs the generation UNION for the identifiers and
	// range, with reversed payment references excluded in the query itself
	FetchPayoutPeriods(ctx context.Context, personIdents []string, fom, tom time.Time) ([]domain.PayoutPeriod, error)

	// FetchBasis retrieves decision rows with their payout lines for one person
	FetchBasis(ctx context.Context, personIdent string, fom *time.Time) ([]domain.BasisRow, error)

	// RecordAnnulment stores a reversal for the anti-join; replays are no-ops
	RecordAnnulment(ctx context.Context, reversal domain.Reversal) error
}

// SettlementRepository defines the interface for the event-sourced store
type SettlementRepository interface {
	// LogRawMessage durably appends the raw event before any mutation
	LogRawMessage(ctx context.Context, eventType string, payload []byte) (uuid.UUID, error)

	// UpsertSettlement replaces the affected payer sides' payment lines and
	// updates the header in one transaction
	UpsertSettlement(ctx context.Context, settlement domain.Settlement, sides []domain.PaymentSide) error

	// ApplyReversal deletes payment lines matching the supplied references
	ApplyReversal(ctx context.Context, reversal domain.Reversal) error

	// FetchSettlements reads current settlement state for the identifiers
	FetchSettlements(ctx context.Context, personIdents []string) ([]domain.Settlement, error)

	// CountPayoutsSince counts payment lines recorded for one side after since
	CountPayoutsSince(ctx context.Context, side domain.PaymentSide, since time.Time) (int, error)

	// CountReversalsSince counts reversals recorded for one side after since
	CountReversalsSince(ctx context.Context, side domain.PaymentSide, since time.Time) (int, error)
}
