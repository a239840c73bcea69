package mocks

import (
	"context"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockVedtakRepository struct {
	mock.Mock
}

func (m *MockVedtakRepository) FetchPayoutPeriods(ctx context.Context, personIdents []string, fom, tom time.Time) ([]domain.PayoutPeriod, error) {
	args := m.Called(ctx, personIdents, fom, tom)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PayoutPeriod), args.Error(1)
}

func (m *MockVedtakRepository) FetchBasis(ctx context.Context, personIdent string, fom *time.Time) ([]domain.BasisRow, error) {
	args := m.Called(ctx, personIdent, fom)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BasisRow), args.Error(1)
}

func (m *MockVedtakRepository) RecordAnnulment(ctx context.Context, reversal domain.Reversal) error {
	args := m.Called(ctx, reversal)
	return args.Error(0)
}

type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) LogRawMessage(ctx context.Context, eventType string, payload []byte) (uuid.UUID, error) {
	args := m.Called(ctx, eventType, payload)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockSettlementRepository) UpsertSettlement(ctx context.Context, settlement domain.Settlement, sides []domain.PaymentSide) error {
	args := m.Called(ctx, settlement, sides)
	return args.Error(0)
}

func (m *MockSettlementRepository) ApplyReversal(ctx context.Context, reversal domain.Reversal) error {
	args := m.Called(ctx, reversal)
	return args.Error(0)
}

func (m *MockSettlementRepository) FetchSettlements(ctx context.Context, personIdents []string) ([]domain.Settlement, error) {
	args := m.Called(ctx, personIdents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) CountPayoutsSince(ctx context.Context, side domain.PaymentSide, since time.Time) (int, error) {
	args := m.Called(ctx, side, since)
	return args.Int(0), args.Error(1)
}

func (m *MockSettlementRepository) CountReversalsSince(ctx context.Context, side domain.PaymentSide, since time.Time) (int, error) {
	args := m.Called(ctx, side, since)
	return args.Int(0), args.Error(1)
}

type MockSource struct {
	mock.Mock
	SourceName string
}

func (m *MockSource) Name() string {
	return m.SourceName
}

func (m *MockSource) Fetch(ctx context.Context, personIdents []string, fom, tom time.Time) ([]domain.PayoutPeriod, error) {
	args := m.Called(ctx, personIdents, fom, tom)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PayoutPeriod), args.Error(1)
}
