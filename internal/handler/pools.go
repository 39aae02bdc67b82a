package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"yieldhub/internal/repository"
)

type PoolHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *PoolHandler) Register(r gin.IRouter) {
	r.GET("/pools", h.list)
	r.GET("/pools/:id", h.get)
	r.PATCH("/pools/:id/visibility", h.setVisibility)
	r.GET("/pools/:id/holders", h.holders)
}

var poolOrderColumns = map[string]bool{
	"apy":            true,
	"tvl_usd":        true,
	"last_synced_at": true,
	"created_at":     true,
}

// @Summary List pools
// @Tags pools
// @Param limit query int false "page size"
// @Param offset query int false "page offset"
// @Param provider query string false "filter by provider"
// @Param visible query bool false "filter by visibility"
// @Success 200 {object} apiResponse
// @Router /api/v1/pools [get]
func (h *PoolHandler) list(c *gin.Context) {
	orderBy, asc := parseOrder(c, poolOrderColumns)
	params := repository.ListPoolsParams{
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
		Provider:  strQueryPtr(c, "provider"),
		ChainID:   uint64QueryPtr(c, "chain_id"),
		Visible:   boolQueryPtr(c, "visible"),
		Active:    boolQueryPtr(c, "active"),
		RiskLevel: strQueryPtr(c, "risk_level"),
		OrderBy:   orderBy,
		Asc:       asc,
	}
	items, err := h.Repo.ListPools(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list pools", nil)
		return
	}
	total, err := h.Repo.CountPools(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to count pools", nil)
		return
	}
	Ok(c, items, map[string]any{
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// @Summary Get one pool
// @Tags pools
// @Param id path int true "pool id"
// @Success 200 {object} apiResponse
// @Router /api/v1/pools/{id} [get]
func (h *PoolHandler) get(c *gin.Context) {
	id, ok := poolID(c)
	if !ok {
		return
	}
	pool, err := h.Repo.GetPoolByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load pool", nil)
		return
	}
	if pool == nil {
		Error(c, http.StatusNotFound, "pool not found", nil)
		return
	}
	outlook, err := h.Repo.GetPoolOutlook(c.Request.Context(), pool.ID)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load outlook", nil)
		return
	}
	Ok(c, gin.H{"pool": pool, "outlook": outlook}, nil)
}

type visibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// @Summary Set pool visibility
// @Tags pools
// @Param id path int true "pool id"
// @Param body body visibilityRequest true "visibility"
// @Success 200 {object} apiResponse
// @Router /api/v1/pools/{id}/visibility [patch]
func (h *PoolHandler) setVisibility(c *gin.Context) {
	id, ok := poolID(c)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Visible == nil {
		Error(c, http.StatusBadRequest, "visible is required", nil)
		return
	}
	pool, err := h.Repo.GetPoolByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load pool", nil)
		return
	}
	if pool == nil {
		Error(c, http.StatusNotFound, "pool not found", nil)
		return
	}
	if err := h.Repo.SetPoolVisibility(c.Request.Context(), id, *req.Visible); err != nil {
		Error(c, http.StatusInternalServerError, "failed to update visibility", nil)
		return
	}
	if h.Logger != nil {
		h.Logger.Info("pool visibility changed",
			zap.Uint64("pool_id", id), zap.Bool("visible", *req.Visible))
	}
	Ok(c, gin.H{"id": id, "visible": *req.Visible}, nil)
}

// @Summary List pool holders
// @Tags pools
// @Param id path int true "pool id"
// @Success 200 {object} apiResponse
// @Router /api/v1/pools/{id}/holders [get]
func (h *PoolHandler) holders(c *gin.Context) {
	id, ok := poolID(c)
	if !ok {
		return
	}
	pool, err := h.Repo.GetPoolByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to load pool", nil)
		return
	}
	if pool == nil {
		Error(c, http.StatusNotFound, "pool not found", nil)
		return
	}
	holders, err := h.Repo.ListPoolHolders(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusInternalServerError, "failed to list holders", nil)
		return
	}
	Ok(c, holders, map[string]any{"count": len(holders)})
}

func poolID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid pool id", nil)
		return 0, false
	}
	return id, true
}
