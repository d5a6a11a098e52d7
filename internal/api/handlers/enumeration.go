package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/internal/metrics"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/pkg/cache"
	"github.com/stitts-dev/squad-optimizer/pkg/config"
	"github.com/stitts-dev/squad-optimizer/pkg/utils"
)

type EnumerationHandler struct {
	cache  ResultStore
	config *config.Config
	logger *logrus.Entry
}

func NewEnumerationHandler(cache ResultStore, cfg *config.Config, logger *logrus.Entry) *EnumerationHandler {
	return &EnumerationHandler{cache: cache, config: cfg, logger: logger}
}

// EnumerateRequest asks for the best groups of fixed per-position sizes.
// Large counts over a large pool are accepted as-is; the search is cut off by
// the solver timeout or a client disconnect.
type EnumerateRequest struct {
	Players []PlayerInput         `json:"players" binding:"required,min=1"`
	Counts  optimizer.GroupCounts `json:"counts"`
	Budget  *float64              `json:"budget"`
	TopN    *int                  `json:"top_n"`
}

type EnumerateResponse struct {
	Groups []optimizer.Group `json:"groups"`
}

// Enumerate handles POST /api/v1/enumerate.
func (h *EnumerationHandler) Enumerate(c *gin.Context) {
	var req EnumerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return
	}

	cat, err := buildCatalog(req.Players, h.config.MaxPlayers)
	if err != nil {
		sendOptimizationError(c, err)
		return
	}
	budget := h.config.DefaultBudget
	if req.Budget != nil {
		budget = *req.Budget
	}
	topN := h.config.DefaultTopN
	if req.TopN != nil {
		topN = *req.TopN
	}

	cacheKey, keyErr := cache.Key(cache.EnumerationPrefix, struct {
		Players []PlayerInput
		Counts  optimizer.GroupCounts
		Budget  float64
		TopN    int
	}{req.Players, req.Counts, budget, topN})

	if h.cache != nil && keyErr == nil {
		groups, err := h.cache.GetGroups(c.Request.Context(), cacheKey)
		metrics.ObserveCacheLookup(err == nil)
		if err == nil {
			utils.SendSuccessWithMeta(c, EnumerateResponse{Groups: groups}, &utils.Meta{Cached: true, Total: int64(len(groups))})
			return
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.WithError(err).Warn("Cache lookup failed")
		}
	}

	ctx, cancel := withSolverTimeout(c.Request.Context(), h.config.SolverTimeout)
	defer cancel()

	groups, err := optimizer.EnumerateGroupsContext(ctx, cat, req.Counts, budget, topN)
	if err != nil {
		sendOptimizationError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"players": cat.Len(),
		"counts":  req.Counts,
		"kept":    len(groups),
	}).Info("Enumeration completed")

	if h.cache != nil && keyErr == nil {
		if err := h.cache.SetGroups(c.Request.Context(), cacheKey, groups); err != nil {
			h.logger.WithError(err).Warn("Failed to cache groups")
		}
	}
	utils.SendSuccessWithMeta(c, EnumerateResponse{Groups: groups}, &utils.Meta{Total: int64(len(groups))})
}
