package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"
	"github.com/navikt/helse-spokelse-sub000/internal/service"
	customError "github.com/navikt/helse-spokelse-sub000/pkg/errors"
	"github.com/navikt/helse-spokelse-sub000/pkg/response"
	"github.com/navikt/helse-spokelse-sub000/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type PayoutHandler struct {
	service   *service.AggregationService
	validator *validator.Validate
	logger    zerolog.Logger
}

func NewPayoutHandler(service *service.AggregationService, logger zerolog.Logger) *PayoutHandler {
	return &PayoutHandler{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// PayoutPeriods handles POST /payout-periods.
func (h *PayoutHandler) PayoutPeriods(w http.ResponseWriter, r *http.Request) {
	var req domain.PayoutPeriodsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "malformed request body", err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, "invalid request", err)
		return
	}

	result, err := h.service.PayoutPeriods(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	response.Success(w, result)
}

// Payouts handles POST /payouts: one row per requested identifier.
func (h *PayoutHandler) Payouts(w http.ResponseWriter, r *http.Request) {
	var personIdents []string
	if err := json.NewDecoder(r.Body).Decode(&personIdents); err != nil {
		response.BadRequest(w, "malformed request body", err)
		return
	}
	if len(personIdents) == 0 {
		response.BadRequest(w, "no person identifiers supplied", nil)
		return
	}
	for _, ident := range personIdents {
		if !utils.IsPersonIdent(ident) {
			response.BadRequest(w, "invalid person identifier", customError.ErrInvalidPersonIdent)
			return
		}
	}

	rows, err := h.service.Payouts(r.Context(), personIdents)
	if err != nil {
		h.respondError(w, err)
		return
	}
	response.Success(w, rows)
}

// Basis handles GET /basis?personIdentifier=...&fom=...
func (h *PayoutHandler) Basis(w http.ResponseWriter, r *http.Request) {
	personIdent := r.URL.Query().Get("personIdentifier")
	if !utils.IsPersonIdent(personIdent) {
		response.BadRequest(w, "invalid person identifier", customError.ErrInvalidPersonIdent)
		return
	}

	var fom *time.Time
	if raw := r.URL.Query().Get("fom"); raw != "" {
		parsed, err := utils.ParseDate(raw)
		if err != nil {
			response.BadRequest(w, "invalid fom", err)
			return
		}
		fom = &parsed
	}

	rows, err := h.service.Basis(r.Context(), personIdent, fom)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.BasisRow{}
	}
	response.Success(w, rows)
}

func (h *PayoutHandler) respondError(w http.ResponseWriter, err error) {
	switch {
	case customError.IsValidation(err):
		response.BadRequest(w, "invalid request", err)
	case customError.IsUpstream(err):
		h.logger.Error().Err(err).Msg("upstream dependency failed")
		response.BadGateway(w, "upstream system unavailable", err)
	default:
		var be *customError.BusinessError
		if errors.As(err, &be) && be.Code == customError.ErrCodeUnknownGrouping {
			response.BadRequest(w, "unknown grouping key", err)
			return
		}
		h.logger.Error().Err(err).Msg("aggregation failed")
		response.InternalServerError(w, "aggregation failed", err)
	}
}
