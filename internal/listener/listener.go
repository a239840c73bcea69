package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/navikt/helse-spokelse-sub000/internal/config"
	"github.com/navikt/helse-spokelse-sub000/internal/domain"
	"github.com/navikt/helse-spokelse-sub000/internal/service"
	customError "github.com/navikt/helse-spokelse-sub000/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	pendingClaimMinIdle = time.Minute
	pendingClaimEvery   = time.Minute
)

// streamClient is the slice of the redis client the listener uses.
// *redis.Client satisfies it.
type streamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
}

// Listener consumes the inbound event stream through a single consumer group,
// which is what gives settlement revisions for the same correlation id their
// ordering. Delivery is at-least-once: handlers are safe to re-apply, and a
// message is only acknowledged after its handler succeeds. Unacknowledged
// entries are picked back up from the pending list, on startup for this
// consumer's own and periodically for those abandoned by other consumers.
type Listener struct {
	rdb         streamClient
	streams     config.StreamConfig
	reconciler  *service.ReconcilerService
	aggregation *service.AggregationService
	healthCheck *service.HealthCheckService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func New(
	rdb streamClient,
	streams config.StreamConfig,
	reconciler *service.ReconcilerService,
	aggregation *service.AggregationService,
	healthCheck *service.HealthCheckService,
	logger zerolog.Logger,
) *Listener {
	return &Listener{
		rdb:         rdb,
		streams:     streams,
		reconciler:  reconciler,
		aggregation: aggregation,
		healthCheck: healthCheck,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Run blocks until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	err := l.rdb.XGroupCreateMkStream(ctx, l.streams.Inbound, l.streams.ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return customError.WrapEventBusError(err)
	}

	if err := l.drainPending(ctx); err != nil {
		return err
	}

	nextClaim := time.Now().Add(pendingClaimEvery)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if time.Now().After(nextClaim) {
			l.claimStale(ctx)
			nextClaim = time.Now().Add(pendingClaimEvery)
		}

		streams, err := l.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    l.streams.ConsumerGroup,
			Consumer: l.streams.ConsumerName,
			Streams:  []string{l.streams.Inbound, ">"},
			Count:    16,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			l.logger.Error().Err(err).Msg("stream read failed")
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				l.handle(ctx, msg)
			}
		}
	}
}

// drainPending re-handles entries this consumer read but never acknowledged
// before its last shutdown. Reading from an explicit id returns history
// without blocking, and the cursor advances past entries that fail again, so
// the pass always terminates.
func (l *Listener) drainPending(ctx context.Context) error {
	cursor := "0"
	for {
		streams, err := l.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    l.streams.ConsumerGroup,
			Consumer: l.streams.ConsumerName,
			Streams:  []string{l.streams.Inbound, cursor},
			Count:    16,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return customError.WrapEventBusError(err)
		}

		empty := true
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				empty = false
				l.handle(ctx, msg)
				cursor = msg.ID
			}
		}
		if empty {
			return nil
		}
	}
}

// claimStale takes over pending entries other consumers left idle, so a
// message read by a crashed consumer is not lost in its pending list.
func (l *Listener) claimStale(ctx context.Context) {
	start := "0-0"
	for {
		msgs, next, err := l.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   l.streams.Inbound,
			Group:    l.streams.ConsumerGroup,
			Consumer: l.streams.ConsumerName,
			MinIdle:  pendingClaimMinIdle,
			Start:    start,
			Count:    16,
		}).Result()
		if err != nil {
			l.logger.Error().Err(err).Msg("claiming stale pending entries failed")
			return
		}

		for _, msg := range msgs {
			l.handle(ctx, msg)
		}
		if len(msgs) == 0 || next == "0-0" {
			return
		}
		start = next
	}
}

func (l *Listener) handle(ctx context.Context, msg redis.XMessage) {
	err := l.dispatch(ctx, msg)
	if err == nil || customError.IsValidation(err) {
		// Malformed events are logged and dropped; redelivering them
		// can never succeed.
		if err != nil {
			l.logger.Warn().Str("message_id", msg.ID).Err(err).Msg("dropping invalid event")
		}
		if ackErr := l.rdb.XAck(ctx, l.streams.Inbound, l.streams.ConsumerGroup, msg.ID).Err(); ackErr != nil {
			l.logger.Error().Str("message_id", msg.ID).Err(ackErr).Msg("ack failed")
		}
		return
	}

	// Left unacknowledged for redelivery.
	l.logger.Error().Str("message_id", msg.ID).Err(err).Msg("event handling failed")
}

func (l *Listener) dispatch(ctx context.Context, msg redis.XMessage) error {
	eventType, _ := msg.Values["type"].(string)
	payload, _ := msg.Values["data"].(string)

	switch eventType {
	case domain.EventTypeSettlement:
		return l.reconciler.HandleSettlement(ctx, []byte(payload))
	case domain.EventTypeReversal:
		return l.reconciler.HandleReversal(ctx, []byte(payload))
	case domain.EventTypePeriodQuery:
		return l.handlePeriodQuery(ctx, []byte(payload))
	case domain.EventTypeTick:
		return l.handleTick(ctx, []byte(payload))
	default:
		return customError.WrapValidationError(fmt.Sprintf("unknown event type %q", eventType), nil)
	}
}

func (l *Listener) handlePeriodQuery(ctx context.Context, payload []byte) error {
	var event domain.PeriodQueryEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return customError.WrapValidationError("malformed period query", err)
	}
	if err := l.validate.Struct(event); err != nil {
		return customError.WrapValidationError("invalid period query", err)
	}

	result, err := l.aggregation.PayoutPeriods(ctx, domain.PayoutPeriodsRequest{
		PersonIdents: event.PersonIdents,
		Fom:          event.Fom,
		Tom:          event.Tom,
		GroupBy:      event.Resolution,
	})
	if err != nil {
		return err
	}

	return l.publish(ctx, l.streams.Responses, domain.PeriodQueryResponse{
		RequestID:     event.RequestID,
		PayoutPeriods: result.PayoutPeriods,
	})
}

func (l *Listener) handleTick(ctx context.Context, payload []byte) error {
	var event domain.TickEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return customError.WrapValidationError("malformed tick", err)
	}
	if event.Timestamp.IsZero() {
		return customError.WrapValidationError("tick without timestamp", nil)
	}

	report, err := l.healthCheck.Evaluate(ctx, event.Timestamp)
	if err != nil {
		return err
	}
	if report == nil {
		return nil
	}
	return l.publish(ctx, l.streams.Alerts, report)
}

func (l *Listener) publish(ctx context.Context, stream string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	err = l.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		return customError.WrapEventBusError(err)
	}
	return nil
}
