package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"yieldhub/internal/repository"
	"yieldhub/internal/scheduler"
)

type ServiceHandler struct {
	Repo      repository.Repository
	Scheduler *scheduler.Scheduler
	Logger    *zap.Logger
}

func (h *ServiceHandler) Register(r gin.IRouter) {
	r.GET("/services", h.list)
	r.PUT("/services/:name", h.update)
}

// @Summary List scheduled services
// @Tags services
// @Success 200 {object} apiResponse
// @Router /api/v1/services [get]
func (h *ServiceHandler) list(c *gin.Context) {
	configs, err := h.Repo.ListServiceConfigs(c.Request.Context())
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list services", nil)
		return
	}
	Ok(c, gin.H{
		"configs": configs,
		"runtime": h.Scheduler.Snapshot(),
	}, nil)
}

type serviceUpdateRequest struct {
	IntervalMinutes *int  `json:"interval_minutes"`
	Enabled         *bool `json:"enabled"`
}

// @Summary Update a scheduled service
// @Tags services
// @Param name path string true "job name"
// @Param body body serviceUpdateRequest true "fields to change"
// @Success 200 {object} apiResponse
// @Router /api/v1/services/{name} [put]
func (h *ServiceHandler) update(c *gin.Context) {
	name := c.Param("name")
	var req serviceUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if req.IntervalMinutes == nil && req.Enabled == nil {
		Error(c, http.StatusBadRequest, "nothing to update", nil)
		return
	}

	existing, err := h.Repo.GetServiceConfig(c.Request.Context(), name)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load service", nil)
		return
	}
	if existing == nil {
		Error(c, http.StatusNotFound, "service not found", nil)
		return
	}

	updated := *existing
	if req.IntervalMinutes != nil {
		updated.IntervalMinutes = *req.IntervalMinutes
	}
	if req.Enabled != nil {
		updated.Enabled = *req.Enabled
	}

	// Apply to the live scheduler first; an invalid config must not reach
	// the DB and come back on next boot.
	if err := h.Scheduler.Apply(updated); err != nil {
		var cfgErr *scheduler.ConfigError
		if errors.As(err, &cfgErr) {
			Error(c, http.StatusBadRequest, cfgErr.Error(), nil)
			return
		}
		Error(c, http.StatusInternalServerError, "failed to reschedule", nil)
		return
	}
	if err := h.Repo.SaveServiceConfig(c.Request.Context(), &updated); err != nil {
		Error(c, http.StatusInternalServerError, "failed to persist service config", nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("service reconfigured",
			zap.String("service", name),
			zap.Int("interval_minutes", updated.IntervalMinutes),
			zap.Bool("enabled", updated.Enabled))
	}
	Ok(c, updated, nil)
}
