package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"yieldhub/internal/repository"
	"yieldhub/internal/service"
)

type SystemHandler struct {
	Repo    repository.Repository
	Monitor *service.HealthMonitor
}

func (h *SystemHandler) Register(r gin.IRouter) {
	r.GET("/system/health", h.health)
	r.GET("/sync/states", h.syncStates)
}

// @Summary Aggregate system health
// @Tags system
// @Success 200 {object} apiResponse
// @Router /api/v1/system/health [get]
func (h *SystemHandler) health(c *gin.Context) {
	Ok(c, h.Monitor.Get(c.Request.Context()), nil)
}

// @Summary Per-job sync state
// @Tags system
// @Success 200 {object} apiResponse
// @Router /api/v1/sync/states [get]
func (h *SystemHandler) syncStates(c *gin.Context) {
	states, err := h.Repo.ListSyncStates(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list sync states", nil)
		return
	}
	Ok(c, states, nil)
}
