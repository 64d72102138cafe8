package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sellerops/console/internal/application/ordersync"
	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/scheduler"
	"github.com/sellerops/console/internal/interfaces/http/dto"
)

// Jobs is the scheduler surface the sync endpoints use.
type Jobs interface {
	Submit(job *scheduler.Job) error
	History(limit int) []*scheduler.Job
}

// PullRequest bounds a manual pull. Both bounds are optional and accept
// RFC 3339 or YYYY-MM-DD.
type PullRequest struct {
	Since string `json:"since"`
	Until string `json:"until"`
}

// SubmitJobRequest queues a scheduler job outside the trigger cadence.
type SubmitJobRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=SYNC STOCK_PUSH"`
	Marketplace string `json:"marketplace" binding:"required"`
}

// JobHistoryQuery limits the job history listing.
type JobHistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// JobResponse is the API view of a scheduler job.
type JobResponse struct {
	ID          uuid.UUID  `json:"id"`
	Kind        string     `json:"kind"`
	Marketplace string     `json:"marketplace"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RetryCount  int        `json:"retry_count"`
	MaxRetries  int        `json:"max_retries"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
}

// ToJobResponse converts a scheduler job to a response.
func ToJobResponse(j *scheduler.Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		Kind:        string(j.Kind),
		Marketplace: string(j.Marketplace),
		Status:      string(j.Status),
		Error:       j.Error,
		Summary:     j.Summary,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		RetryCount:  j.RetryCount,
		MaxRetries:  j.MaxRetries,
		NextRetryAt: j.NextRetryAt,
	}
}

// SyncHandler handles order pulls and scheduler jobs. adapters and jobs
// may be nil; their routes then answer CONFIG_ERROR.
type SyncHandler struct {
	BaseHandler
	sync     *ordersync.Service
	adapters Adapters
	jobs     Jobs
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(sync *ordersync.Service, adapters Adapters, jobs Jobs) *SyncHandler {
	return &SyncHandler{sync: sync, adapters: adapters, jobs: jobs}
}

// Pull handles POST /sync/{source}/pull: pull orders from one marketplace now.
// Returns once the foreground batch is committed. Orders
// queued for the background path are counted in "background".
func (h *SyncHandler) Pull(c *gin.Context) {
	if h.adapters == nil {
		h.NotConfigured(c, "marketplace adapters")
		return
	}
	var req PullRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	m, err := marketplace.Parse(c.Param("source"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	window, err := h.window(req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	src, err := h.adapters.Source(m)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	report, err := h.sync.Pull(c.Request.Context(), src, window)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report.View())
}

func (h *SyncHandler) window(req PullRequest) (marketplace.Window, error) {
	since, err := parseBound("since", req.Since)
	if err != nil {
		return marketplace.Window{}, err
	}
	until, err := parseBound("until", req.Until)
	if err != nil {
		return marketplace.Window{}, err
	}
	return h.sync.Window(since, until)
}

func parseBound(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := marketplace.ParseOrderDate(v)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithDetails("%s: cannot parse %q", field, v)
	}
	return &t, nil
}

// SubmitJob queues a sync or stock push job on the scheduler
func (h *SyncHandler) SubmitJob(c *gin.Context) {
	if h.jobs == nil {
		h.NotConfigured(c, "scheduler")
		return
	}
	var req SubmitJobRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m, err := marketplace.Parse(req.Marketplace)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	job := scheduler.NewJob(scheduler.JobKind(req.Kind), m, 0)
	// workers own the job once it is queued
	resp := ToJobResponse(job)
	if err := h.jobs.Submit(job); err != nil {
		switch {
		case errors.Is(err, scheduler.ErrJobInFlight):
			h.Fail(c, dto.ErrCodeJobInFlight, err.Error())
		case errors.Is(err, scheduler.ErrJobQueueFull), errors.Is(err, scheduler.ErrSchedulerNotRunning):
			h.Fail(c, dto.ErrCodeSchedulerBusy, err.Error())
		default:
			h.HandleError(c, err)
		}
		return
	}
	h.Accepted(c, resp)
}

// Jobs lists recent scheduler job attempts, newest first
func (h *SyncHandler) Jobs(c *gin.Context) {
	if h.jobs == nil {
		h.NotConfigured(c, "scheduler")
		return
	}
	var q JobHistoryQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Limit == 0 {
		q.Limit = 50
	}
	history := h.jobs.History(q.Limit)
	items := make([]JobResponse, 0, len(history))
	for _, j := range history {
		items = append(items, ToJobResponse(j))
	}
	h.Success(c, items)
}
