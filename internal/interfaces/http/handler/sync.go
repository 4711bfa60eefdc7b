package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appintegration "github.com/crm/backend/internal/application/integration"
	"github.com/crm/backend/internal/domain/integration"
	"github.com/crm/backend/internal/interfaces/http/dto"
)

// SyncRunner starts sync runs and lists their history
type SyncRunner interface {
	Start(ctx context.Context, trigger integration.Trigger) (*integration.RunSummary, error)
	History(ctx context.Context, limit int) ([]integration.RunSummary, error)
}

// ConflictLister lists identity conflicts awaiting review
type ConflictLister interface {
	ListUnresolved(ctx context.Context, limit int) ([]appintegration.ConflictResponse, error)
}

// SyncHandler handles sync run and conflict review endpoints
type SyncHandler struct {
	BaseHandler
	runner    SyncRunner
	conflicts ConflictLister
}

// NewSyncHandler creates a new SyncHandler. A nil runner makes the run
// endpoints answer 503, for servers started without storefront credentials.
func NewSyncHandler(runner SyncRunner, conflicts ConflictLister) *SyncHandler {
	return &SyncHandler{runner: runner, conflicts: conflicts}
}

// StartRun godoc
// @Summary      Start a sync run
// @Description  Starts a run in the background. Answers 409 while another run holds the lock.
// @Tags         sync
// @Produce      json
// @Success      202 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /sync/runs [post]
func (h *SyncHandler) StartRun(c *gin.Context) {
	if h.runner == nil {
		h.HandleError(c, integration.ErrPlatformNotConfigured)
		return
	}

	summary, err := h.runner.Start(c.Request.Context(), integration.TriggerHTTP)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, appintegration.ToRunResponse(summary))
}

// ListRuns godoc
// @Summary      List recent sync runs
// @Tags         sync
// @Produce      json
// @Param        limit query int false "Maximum runs to return" minimum(1) maximum(200)
// @Success      200 {object} dto.Response
// @Router       /sync/runs [get]
func (h *SyncHandler) ListRuns(c *gin.Context) {
	if h.runner == nil {
		h.HandleError(c, integration.ErrPlatformNotConfigured)
		return
	}
	var req dto.LimitRequest
	if !h.BindQuery(c, &req) {
		return
	}

	runs, err := h.runner.History(c.Request.Context(), req.LimitOrDefault())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]appintegration.RunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, appintegration.ToRunResponse(&runs[i]))
	}
	h.Success(c, out)
}

// ListConflicts godoc
// @Summary      List identity conflicts awaiting review
// @Tags         sync
// @Produce      json
// @Param        limit query int false "Maximum conflicts to return" minimum(1) maximum(200)
// @Success      200 {object} dto.Response
// @Router       /sync/conflicts [get]
func (h *SyncHandler) ListConflicts(c *gin.Context) {
	var req dto.LimitRequest
	if !h.BindQuery(c, &req) {
		return
	}

	conflicts, err := h.conflicts.ListUnresolved(c.Request.Context(), req.LimitOrDefault())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, conflicts)
}
