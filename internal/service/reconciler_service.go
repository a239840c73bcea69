package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"
	"github.com/navikt/helse-spokelse-sub000/internal/repository"
	customError "github.com/navikt/helse-spokelse-sub000/pkg/errors"
	"github.com/navikt/helse-spokelse-sub000/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReconcilerService maintains the event-sourced settlement store: settlement
// events create or revise one row per correlation id, reversal events remove
// the matching payment lines. Every event is durably logged before any
// mutation, and each mutation is one transaction.
type ReconcilerService struct {
	settlements repository.SettlementRepository
	vedtakRepo  repository.VedtakRepository
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewReconcilerService(settlements repository.SettlementRepository, vedtakRepo repository.VedtakRepository, logger zerolog.Logger) *ReconcilerService {
	return &ReconcilerService{
		settlements: settlements,
		vedtakRepo:  vedtakRepo,
		validate:    validator.New(),
		logger:      logger,
	}
}

// HandleSettlement applies one settlement event. Replaying the identical
// event lands in the same end state: the affected sides' lines are replaced
// wholesale either way.
func (s *ReconcilerService) HandleSettlement(ctx context.Context, payload []byte) error {
	var event domain.SettlementEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return customError.WrapValidationError("malformed settlement event", err)
	}
	if err := s.validate.Struct(event); err != nil {
		return customError.WrapValidationError("invalid settlement event", err)
	}
	if !event.HasSide() {
		return customError.WrapValidationError("settlement event without payment lines", customError.ErrEmptySettlement)
	}

	messageID, err := s.settlements.LogRawMessage(ctx, domain.EventTypeSettlement, payload)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	settlement, sides, err := toSettlement(event, messageID)
	if err != nil {
		return customError.WrapValidationError("invalid settlement event", err)
	}

	if err := s.settlements.UpsertSettlement(ctx, settlement, sides); err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.logger.Info().
		Str("correlation_id", event.CorrelationID).
		Str("message_id", messageID.String()).
		Int("sides", len(sides)).
		Msg("settlement applied")
	return nil
}

// HandleReversal records a reversal and removes the matching payment lines.
// Replays are no-ops after the first application.
func (s *ReconcilerService) HandleReversal(ctx context.Context, payload []byte) error {
	var event domain.ReversalEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return customError.WrapValidationError("malformed reversal event", err)
	}
	if !event.Valid() {
		return customError.WrapValidationError("reversal event without references", customError.ErrEmptyReversal)
	}

	messageID, err := s.settlements.LogRawMessage(ctx, domain.EventTypeReversal, payload)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	reversal := domain.Reversal{
		EmployerReference: event.EmployerReference,
		PersonReference:   event.PersonReference,
		RecordedAt:        time.Now(),
	}

	if err := s.settlements.ApplyReversal(ctx, reversal); err != nil {
		return customError.WrapDatabaseError(err)
	}

	// The multi-generation store keeps its own reversal table for the
	// read-time anti-join.
	if err := s.vedtakRepo.RecordAnnulment(ctx, reversal); err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.logger.Info().
		Str("message_id", messageID.String()).
		Msg("reversal applied")
	return nil
}

func toSettlement(event domain.SettlementEvent, messageID uuid.UUID) (domain.Settlement, []domain.PaymentSide, error) {
	paidAt := event.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	settlement := domain.Settlement{
		CorrelationID: event.CorrelationID,
		PersonIdent:   event.PersonIdent,
		OrgNumber:     event.OrgNumber,
		RemainingDays: event.RemainingDays,
		LastMessageID: messageID,
		LastPaidAt:    paidAt,
	}

	var sides []domain.PaymentSide
	if event.EmployerSide != nil {
		ref := event.EmployerSide.PaymentReference
		settlement.EmployerReference = &ref
		lines, err := toLines(event.CorrelationID, domain.SideEmployer, *event.EmployerSide)
		if err != nil {
			return domain.Settlement{}, nil, err
		}
		settlement.EmployerLines = lines
		sides = append(sides, domain.SideEmployer)
	}
	if event.PersonSide != nil {
		ref := event.PersonSide.PaymentReference
		settlement.PersonReference = &ref
		lines, err := toLines(event.CorrelationID, domain.SidePerson, *event.PersonSide)
		if err != nil {
			return domain.Settlement{}, nil, err
		}
		settlement.PersonLines = lines
		sides = append(sides, domain.SidePerson)
	}
	return settlement, sides, nil
}

func toLines(correlationID string, side domain.PaymentSide, payer domain.PaymentSideEvent) ([]domain.PaymentLine, error) {
	lines := make([]domain.PaymentLine, 0, len(payer.Lines))
	for _, l := range payer.Lines {
		fom, err := utils.ParseDate(l.Fom)
		if err != nil {
			return nil, err
		}
		tom, err := utils.ParseDate(l.Tom)
		if err != nil {
			return nil, err
		}
		lines = append(lines, domain.PaymentLine{
			CorrelationID:    correlationID,
			Side:             side,
			PaymentReference: payer.PaymentReference,
			Fom:              fom,
			Tom:              tom,
			Grad:             l.Grad,
		})
	}
	return lines, nil
}
