package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"yieldhub/internal/scheduler"
	"yieldhub/internal/service"
)

type SyncHandler struct {
	Scheduler *scheduler.Scheduler
	Logger    *zap.Logger
}

func (h *SyncHandler) Register(r gin.IRouter) {
	r.POST("/sync/:source", h.trigger)
}

// sourceJobs maps the admin-facing source names onto job names.
var sourceJobs = map[string]string{
	"defillama": service.JobDefiLlamaSync,
	"morpho":    service.JobMorphoSync,
	"lido":      service.JobLidoSync,
	"holders":   service.JobHolderSync,
	"outlook":   service.JobOutlookRefresh,
}

// @Summary Trigger one sync run
// @Tags sync
// @Param source path string true "source name"
// @Success 202 {object} apiResponse
// @Router /api/v1/sync/{source} [post]
func (h *SyncHandler) trigger(c *gin.Context) {
	source := c.Param("source")
	job, ok := sourceJobs[source]
	if !ok {
		Error(c, http.StatusNotFound, "unknown source", nil)
		return
	}
	if err := h.Scheduler.RunNow(job); err != nil {
		Error(c, http.StatusInternalServerError, "failed to trigger sync", nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("manual sync triggered", zap.String("job", job))
	}
	c.JSON(http.StatusAccepted, apiResponse{Code: 0, Message: "accepted", Data: gin.H{"job": job}})
}
