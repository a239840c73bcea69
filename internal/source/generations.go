package source

import (
	"context"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"
	"github.com/navikt/helse-spokelse-sub000/internal/repository"
	customError "github.com/navikt/helse-spokelse-sub000/pkg/errors"
)

// GenerationSource reads the multi-generation relational store. Generation
// short-circuiting and the reversal anti-join both live in the repository
// query; an empty generation is a valid, non-error contribution.
type GenerationSource struct {
	repo repository.VedtakRepository
}

func NewGenerationSource(repo repository.VedtakRepository) *GenerationSource {
	return &GenerationSource{repo: repo}
}

func (s *GenerationSource) Name() string {
	return "Vedtak"
}

func (s *GenerationSource) Fetch(ctx context.Context, personIdents []string, fom, tom time.Time) ([]domain.PayoutPeriod, error) {
	periods, err := s.repo.FetchPayoutPeriods(ctx, personIdents, fom, tom)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return periods, nil
}
