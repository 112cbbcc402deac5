package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/housing/backend/internal/infrastructure/cache"
	"github.com/housing/backend/internal/infrastructure/logger"
	"github.com/housing/backend/internal/infrastructure/scheduler"
	"github.com/housing/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger checks store connectivity
type Pinger interface {
	PingContext(ctx context.Context) error
}

// JobRuns reports the latest run of each background job
type JobRuns interface {
	Runs() map[string]scheduler.JobRun
}

// CacheReporter reports per-cache counters
type CacheReporter interface {
	CacheStats() map[string]cache.CacheStats
}

// SystemHandler serves the health check
type SystemHandler struct {
	BaseHandler
	db        Pinger
	jobs      JobRuns
	caches    CacheReporter
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. jobs and caches may be nil.
func NewSystemHandler(db Pinger, jobs JobRuns, caches CacheReporter) *SystemHandler {
	return &SystemHandler{db: db, jobs: jobs, caches: caches, startTime: time.Now()}
}

// HealthResponse is the body of GET /health
// @name HandlerHealthResponse
type HealthResponse struct {
	Status   string                      `json:"status" example:"healthy"`
	Time     string                      `json:"time" example:"2026-01-23T12:00:00Z"`
	Uptime   string                      `json:"uptime" example:"1h30m45s"`
	Database string                      `json:"database" example:"ok"`
	Jobs     map[string]scheduler.JobRun `json:"jobs,omitempty"`
	Caches   map[string]cache.CacheStats `json:"caches,omitempty"`
}

// Health godoc
// @ID           getHealth
// @Summary      Health check
// @Description  Pings the database and reports background job and cache state. Failing jobs do not make the service unhealthy.
// @Tags         system
// @Produce      json
// @Success      200  {object}  APIResponse[HealthResponse]
// @Failure      503  {object}  APIResponse[HealthResponse]
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:   "healthy",
		Time:     time.Now().UTC().Format(time.RFC3339),
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
		Database: "ok",
	}
	if h.jobs != nil {
		resp.Jobs = h.jobs.Runs()
	}
	if h.caches != nil {
		resp.Caches = h.caches.CacheStats()
	}

	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
		resp.Status, resp.Database = "unhealthy", "error"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
