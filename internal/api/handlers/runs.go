package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/pkg/utils"
)

const maxRunsLimit = 100

type RunsHandler struct {
	history RunStore
	logger  *logrus.Entry
}

func NewRunsHandler(history RunStore, logger *logrus.Entry) *RunsHandler {
	return &RunsHandler{history: history, logger: logger}
}

// ListRuns handles GET /api/v1/runs?limit=N.
func (h *RunsHandler) ListRuns(c *gin.Context) {
	if h.history == nil {
		utils.SendError(c, utils.NewAppError(utils.ErrCodeUnavailable, "Run history is not configured"))
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.SendValidationError(c, "Invalid limit", raw)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		utils.SendError(c, utils.NewAppError(utils.ErrCodeInternal, "Failed to list runs"))
		return
	}
	utils.SendSuccessWithMeta(c, runs, &utils.Meta{Total: int64(len(runs))})
}
