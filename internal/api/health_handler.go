package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/songcraft/songcraft-api/internal/api/shared"
	"github.com/songcraft/songcraft-api/internal/platform/logger"
	"github.com/songcraft/songcraft-api/internal/task"
)

// Pinger checks database connectivity. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PoolStats reports worker pool state. *task.WorkerPool satisfies it.
type PoolStats interface {
	Stats() task.Stats
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string     `json:"status"`
	Database string     `json:"database"`
	Workers  task.Stats `json:"workers"`
}

// HealthHandler reports service liveness.
type HealthHandler struct {
	db     Pinger
	pool   PoolStats
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db Pinger, pool PoolStats, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{db: db, pool: pool, logger: logger.With(slog.String("component", "health_handler"))}
}

// Health handles GET /health. An unreachable database answers 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "ok", Workers: h.pool.Stats()}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).
			Error("database ping failed", slog.String("error", err.Error()))
		resp.Status = "degraded"
		resp.Database = "unreachable"
		shared.RespondWithJSON(w, r, http.StatusServiceUnavailable, resp)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
