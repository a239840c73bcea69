package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/navikt/helse-spokelse-sub000/pkg/response"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// HealthHandler answers liveness and readiness. The service cannot serve
// payout queries without its database, and cannot keep the settlement store
// current without the event bus, so readiness covers both.
type HealthHandler struct {
	db       *sqlx.DB
	eventBus *redis.Client
}

func NewHealthHandler(db *sqlx.DB, eventBus *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:       db,
		eventBus: eventBus,
	}
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health reports liveness only; it stays green while dependencies are down.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	response.Success(w, status)
}

// Ready pings the settlement database and the event bus and reports 503 when
// either is unreachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		status.Status = "error"
		status.Checks["database"] = "failed: " + err.Error()
	} else {
		status.Checks["database"] = "ok"
	}

	if err := h.eventBus.Ping(ctx).Err(); err != nil {
		status.Status = "error"
		status.Checks["event_bus"] = "failed: " + err.Error()
	} else {
		status.Checks["event_bus"] = "ok"
	}

	if status.Status == "error" {
		response.Error(w, http.StatusServiceUnavailable, "service not ready", nil)
		return
	}

	response.Success(w, status)
}
