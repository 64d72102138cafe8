package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/interfaces/http/dto"
)

// Pinger checks a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of the health check
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks"`
	Checked time.Time         `json:"checked_at"`
}

// SystemHandler serves liveness and readiness
type SystemHandler struct {
	BaseHandler
	service string
	checks  map[string]Pinger
	timeout time.Duration
}

// NewSystemHandler creates a new SystemHandler. Every entry of checks is
// pinged on each health request.
func NewSystemHandler(service string, checks map[string]Pinger) *SystemHandler {
	return &SystemHandler{service: service, checks: checks, timeout: 2 * time.Second}
}

// Health answers 200 when every dependency responds and 503 otherwise
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:  "ok",
		Service: h.service,
		Checks:  make(map[string]string, len(h.checks)),
		Checked: time.Now().UTC(),
	}
	status := http.StatusOK
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	out := dto.NewSuccessResponse(resp)
	if status != http.StatusOK {
		out.OK = false
		out.ErrorCode = shared.CodeInternal
		out.Details = "dependency check failed"
	}
	c.JSON(status, out)
}
