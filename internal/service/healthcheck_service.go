package service

import (
	"context"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/domain"
	"github.com/navikt/helse-spokelse-sub000/internal/repository"
	customError "github.com/navikt/helse-spokelse-sub000/pkg/errors"

	"github.com/rs/zerolog"
)

// Report levels emitted by the rule engine.
const (
	ReportLevelDanger = "danger"
	ReportLevelInfo   = "info"
)

// Report is the health-check outcome published on the alert stream.
type Report struct {
	Level             string    `json:"level"`
	Message           string    `json:"message"`
	EmployerPayouts   int       `json:"employerPayoutsLastHour"`
	PersonPayouts     int       `json:"personPayoutsLastHour"`
	EmployerReversals int       `json:"employerReversalsLastWeek"`
	PersonReversals   int       `json:"personReversalsLastWeek"`
	CheckedAt         time.Time `json:"checkedAt"`
}

// HealthCheckService evaluates a conservative ingestion rule once a day: if
// any recent activity count is exactly zero, something upstream has likely
// stopped delivering.
type HealthCheckService struct {
	settlements repository.SettlementRepository
	hour        int
	minute      int
	reportDay   time.Weekday
	logger      zerolog.Logger
}

func NewHealthCheckService(settlements repository.SettlementRepository, hour, minute int, reportDay time.Weekday, logger zerolog.Logger) *HealthCheckService {
	return &HealthCheckService{
		settlements: settlements,
		hour:        hour,
		minute:      minute,
		reportDay:   reportDay,
		logger:      logger,
	}
}

// Evaluate runs the rule for one tick. The tick's own timestamp, not the
// consumer's clock, decides whether this is the daily firing; off-schedule
// ticks return nil. A nil report with nil error means nothing to publish.
func (s *HealthCheckService) Evaluate(ctx context.Context, tick time.Time) (*Report, error) {
	if tick.Hour() != s.hour || tick.Minute() != s.minute {
		return nil, nil
	}

	lastHour := tick.Add(-time.Hour)
	lastWeek := tick.AddDate(0, 0, -7)

	employerPayouts, err := s.settlements.CountPayoutsSince(ctx, domain.SideEmployer, lastHour)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	personPayouts, err := s.settlements.CountPayoutsSince(ctx, domain.SidePerson, lastHour)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	employerReversals, err := s.settlements.CountReversalsSince(ctx, domain.SideEmployer, lastWeek)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	personReversals, err := s.settlements.CountReversalsSince(ctx, domain.SidePerson, lastWeek)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	report := Report{
		EmployerPayouts:   employerPayouts,
		PersonPayouts:     personPayouts,
		EmployerReversals: employerReversals,
		PersonReversals:   personReversals,
		CheckedAt:         tick,
	}

	// Any single zero trips the rule.
	if employerPayouts == 0 || personPayouts == 0 || employerReversals == 0 || personReversals == 0 {
		report.Level = ReportLevelDanger
		report.Message = "possible ingestion outage: at least one activity count is zero"
		s.logger.Warn().
			Int("employer_payouts", employerPayouts).
			Int("person_payouts", personPayouts).
			Int("employer_reversals", employerReversals).
			Int("person_reversals", personReversals).
			Msg("health check tripped")
		return &report, nil
	}

	if tick.Weekday() != s.reportDay {
		return nil, nil
	}

	report.Level = ReportLevelInfo
	report.Message = "weekly ingestion summary"
	return &report, nil
}
