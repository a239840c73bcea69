package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/auth"
	"github.com/navikt/helse-spokelse-sub000/internal/domain"
	customError "github.com/navikt/helse-spokelse-sub000/pkg/errors"
	"github.com/navikt/helse-spokelse-sub000/pkg/utils"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Period-type codes the legacy system is known to send. RF is an employer
// refund, SP a direct payout to the person. Anything else was gathered
// upstream and is dropped per record with a warning instead of failing the
// whole batch.
const (
	periodeTypeRefusjon   = "RF"
	periodeTypeSykepenger = "SP"
)

// LegacySource queries the remote legacy benefits system with one batched
// request per fetch. Remote failures are hard errors: a non-2xx response or
// timeout fails the whole aggregation, with no retry at this layer.
type LegacySource struct {
	baseURL string
	scope   string
	tokens  *auth.TokenCache
	client  *http.Client
	logger  zerolog.Logger
}

func NewLegacySource(baseURL, scope string, tokens *auth.TokenCache, timeout time.Duration, logger zerolog.Logger) *LegacySource {
	return &LegacySource{
		baseURL: baseURL,
		scope:   scope,
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (s *LegacySource) Name() string {
	return domain.TagLegacy
}

type legacyRequest struct {
	PersonIdents []string `json:"personIdentifiers"`
	Fom          string   `json:"fom"`
	Tom          string   `json:"tom"`
}

type legacyPeriod struct {
	Fom       string          `json:"fom"`
	Tom       string          `json:"tom"`
	Grad      decimal.Decimal `json:"utbetalingsgrad"`
	TypeKode  string          `json:"typeKode"`
	OrgNumber *string         `json:"orgnummer,omitempty"`
}

type legacyVedtak struct {
	PersonIdent string         `json:"personIdentifier"`
	Reference   string         `json:"vedtaksreferanse"`
	DecidedAt   time.Time      `json:"vedtattTidspunkt"`
	Perioder    []legacyPeriod `json:"perioder"`
}

func (s *LegacySource) Fetch(ctx context.Context, personIdents []string, fom, tom time.Time) ([]domain.PayoutPeriod, error) {
	vedtak, err := s.query(ctx, personIdents, fom, tom)
	if err != nil {
		return nil, err
	}

	var out []domain.PayoutPeriod
	for _, v := range vedtak {
		for _, p := range v.Perioder {
			payout, ok := s.toPayout(v, p)
			if !ok {
				continue
			}
			out = append(out, payout)
		}
	}
	return out, nil
}

// FetchBasis maps the same legacy response onto basis decision rows.
func (s *LegacySource) FetchBasis(ctx context.Context, personIdent string, fom *time.Time) ([]domain.BasisRow, error) {
	from := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	if fom != nil {
		from = *fom
	}
	to := domain.Midnight(time.Now())

	vedtak, err := s.query(ctx, []string{personIdent}, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]domain.BasisRow, 0, len(vedtak))
	for _, v := range vedtak {
		row := domain.BasisRow{Reference: v.Reference, DecidedAt: v.DecidedAt}
		for _, p := range v.Perioder {
			grad, ok := s.grad(v, p)
			if !ok {
				continue
			}
			row.PayoutLines = append(row.PayoutLines, domain.BasisLine{Fom: p.Fom, Tom: p.Tom, Grad: grad})
		}
		if len(row.PayoutLines) > 0 {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *LegacySource) query(ctx context.Context, personIdents []string, fom, tom time.Time) ([]legacyVedtak, error) {
	token, err := s.tokens.Get(ctx, s.scope)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(legacyRequest{
		PersonIdents: personIdents,
		Fom:          utils.FormatDate(fom),
		Tom:          utils.FormatDate(tom),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/utbetalinger", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, customError.WrapUpstreamFailure(s.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, customError.WrapUpstreamFailure(s.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	var vedtak []legacyVedtak
	if err := json.NewDecoder(resp.Body).Decode(&vedtak); err != nil {
		return nil, customError.WrapUpstreamFailure(s.Name(), err)
	}
	return vedtak, nil
}

func (s *LegacySource) toPayout(v legacyVedtak, p legacyPeriod) (domain.PayoutPeriod, bool) {
	grad, ok := s.grad(v, p)
	if !ok {
		return domain.PayoutPeriod{}, false
	}

	period, err := domain.ParsePeriod(p.Fom, p.Tom)
	if err != nil {
		s.logger.Warn().
			Str("person", v.PersonIdent).
			Str("reference", v.Reference).
			Err(err).
			Msg("dropping legacy record with unparseable period")
		return domain.PayoutPeriod{}, false
	}

	payout := domain.PayoutPeriod{
		PersonIdent:      v.PersonIdent,
		Period:           period,
		Grad:             grad,
		PaymentReference: v.Reference,
		Tags:             domain.NewTagSet(domain.TagLegacy),
	}
	if p.TypeKode == periodeTypeRefusjon {
		if p.OrgNumber == nil || !utils.IsOrgNumber(*p.OrgNumber) {
			s.logger.Warn().
				Str("person", v.PersonIdent).
				Str("reference", v.Reference).
				Msg("dropping employer refund without a valid organization number")
			return domain.PayoutPeriod{}, false
		}
		payout.OrgNumber = p.OrgNumber
	}
	return payout, true
}

func (s *LegacySource) grad(v legacyVedtak, p legacyPeriod) (int, bool) {
	switch p.TypeKode {
	case periodeTypeRefusjon, periodeTypeSykepenger:
		return int(p.Grad.Round(0).IntPart()), true
	default:
		s.logger.Warn().
			Str("person", v.PersonIdent).
			Str("reference", v.Reference).
			Str("type_kode", p.TypeKode).
			Err(customError.ErrUnknownPeriodCode).
			Msg("dropping legacy record with unrecognized period-type code")
		return 0, false
	}
}
