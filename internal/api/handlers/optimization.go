package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/internal/metrics"
	"github.com/stitts-dev/squad-optimizer/internal/models"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/internal/solver"
	"github.com/stitts-dev/squad-optimizer/internal/websocket"
	"github.com/stitts-dev/squad-optimizer/pkg/cache"
	"github.com/stitts-dev/squad-optimizer/pkg/config"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
	"github.com/stitts-dev/squad-optimizer/pkg/utils"
)

type OptimizationHandler struct {
	engine  solver.Engine
	cache   ResultStore
	history RunStore
	hub     ProgressBroadcaster
	config  *config.Config
	logger  *logrus.Entry
}

// NewOptimizationHandler wires the handler. cache, history and hub may be nil.
func NewOptimizationHandler(
	engine solver.Engine,
	cache ResultStore,
	history RunStore,
	hub ProgressBroadcaster,
	cfg *config.Config,
	logger *logrus.Entry,
) *OptimizationHandler {
	return &OptimizationHandler{
		engine:  engine,
		cache:   cache,
		history: history,
		hub:     hub,
		config:  cfg,
		logger:  logger,
	}
}

// OptimizeRequest compares formations, optionally evolving a baseline roster.
type OptimizeRequest struct {
	Players      []PlayerInput `json:"players" binding:"required,min=1"`
	Budget       *float64      `json:"budget"`
	Formations   []string      `json:"formations"`
	Baseline     []string      `json:"baseline"`
	MaxChanges   *int          `json:"max_changes"`
	ForceReplace string        `json:"force_replace"`
	// RunID lets a client subscribe to /ws/runs/:run_id before posting.
	RunID string `json:"run_id"`
}

type OptimizeResponse struct {
	RunID string `json:"run_id"`
	*optimizer.Comparison
}

// FormationRequest solves one formation.
type FormationRequest struct {
	Players      []PlayerInput        `json:"players" binding:"required,min=1"`
	Formation    *optimizer.Formation `json:"formation" binding:"required"`
	Budget       *float64             `json:"budget"`
	Baseline     []string             `json:"baseline"`
	MaxChanges   *int                 `json:"max_changes"`
	ForceReplace string               `json:"force_replace"`
}

func (h *OptimizationHandler) budget(b *float64) float64 {
	if b != nil {
		return *b
	}
	return h.config.DefaultBudget
}

func (h *OptimizationHandler) evolution(baseline []string, maxChanges *int, forced string) *optimizer.Evolution {
	if len(baseline) == 0 {
		if forced == "" {
			return nil
		}
		// A forced exclusion alone is an evolution with nothing to retain.
		return &optimizer.Evolution{ForcedExclusion: forced}
	}
	changes := h.config.DefaultMaxChanges
	if maxChanges != nil {
		changes = *maxChanges
	}
	return &optimizer.Evolution{Baseline: baseline, ChangeBudget: changes, ForcedExclusion: forced}
}

func (h *OptimizationHandler) solveContext(parent context.Context) (context.Context, context.CancelFunc) {
	return withSolverTimeout(parent, h.config.SolverTimeout)
}

// Optimize handles POST /api/v1/optimize.
func (h *OptimizationHandler) Optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return
	}

	cat, err := buildCatalog(req.Players, h.config.MaxPlayers)
	if err != nil {
		sendOptimizationError(c, err)
		return
	}
	specs := req.Formations
	if len(specs) == 0 {
		specs = h.config.Formations
	}
	formations, err := optimizer.ParseFormations(specs)
	if err != nil {
		sendOptimizationError(c, err)
		return
	}
	budget := h.budget(req.Budget)
	evo := h.evolution(req.Baseline, req.MaxChanges, req.ForceReplace)

	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	log := logger.WithRunContext(runID, modeFor(evo))

	cacheKey, keyErr := cache.Key(cache.ComparisonPrefix, struct {
		Engine     string
		Players    []PlayerInput
		Formations []optimizer.Formation
		Budget     float64
		Evolution  *optimizer.Evolution
	}{h.engine.Name(), req.Players, formations, budget, evo})

	if h.cache != nil && keyErr == nil {
		cached, err := h.cache.GetComparison(c.Request.Context(), cacheKey)
		metrics.ObserveCacheLookup(err == nil)
		if err == nil {
			log.WithField("cache_key", cacheKey).Info("Returning cached comparison")
			utils.SendSuccessWithMeta(c, OptimizeResponse{RunID: runID, Comparison: cached}, &utils.Meta{RunID: runID, Cached: true})
			return
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.WithError(err).Warn("Cache lookup failed")
		}
	}

	ctx, cancel := h.solveContext(c.Request.Context())
	defer cancel()

	driver := optimizer.NewDriver(h.engine)
	driver.Logger = log
	if h.hub != nil {
		driver.Progress = func(u optimizer.ProgressUpdate) {
			h.hub.BroadcastToRun(runID, websocket.Message{Type: websocket.MessageProgress, Data: u})
		}
	}

	start := time.Now()
	cmp, err := driver.BestAcrossFormations(ctx, cat, formations, budget, evo)
	if err != nil {
		log.WithError(err).Error("Optimization failed")
		if h.hub != nil {
			h.hub.BroadcastToRun(runID, websocket.Message{Type: websocket.MessageFailed, Data: err.Error()})
		}
		sendOptimizationError(c, err)
		return
	}

	log.WithFields(logrus.Fields{
		"formations":  len(formations),
		"feasible":    cmp.Best != nil,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Optimization completed")

	if h.hub != nil {
		h.hub.BroadcastToRun(runID, websocket.Message{Type: websocket.MessageComplete, Data: cmp.Best})
	}
	if h.cache != nil && keyErr == nil {
		if err := h.cache.SetComparison(c.Request.Context(), cacheKey, cmp); err != nil {
			log.WithError(err).Warn("Failed to cache comparison")
		}
	}
	h.record(c.Request.Context(), log, runID, modeFor(evo), budget, cat.Len(), cmp)

	utils.SendSuccessWithMeta(c, OptimizeResponse{RunID: runID, Comparison: cmp}, &utils.Meta{RunID: runID})
}

// OptimizeFormation handles POST /api/v1/optimize/formation.
func (h *OptimizationHandler) OptimizeFormation(c *gin.Context) {
	var req FormationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request format", err.Error())
		return
	}

	cat, err := buildCatalog(req.Players, h.config.MaxPlayers)
	if err != nil {
		sendOptimizationError(c, err)
		return
	}
	budget := h.budget(req.Budget)
	evo := h.evolution(req.Baseline, req.MaxChanges, req.ForceReplace)

	ctx, cancel := h.solveContext(c.Request.Context())
	defer cancel()

	res, err := optimizer.SolveOneFormation(ctx, h.engine, cat, *req.Formation, budget, evo)
	if err != nil {
		h.logger.WithError(err).Error("Formation solve failed")
		sendOptimizationError(c, err)
		return
	}

	fr := optimizer.FormationResult{
		Formation:  *req.Formation,
		Name:       req.Formation.String(),
		TotalScore: res.TotalScore,
		Result:     res,
	}
	cmp := &optimizer.Comparison{Results: []optimizer.FormationResult{fr}}
	if res.Feasible() {
		cmp.Best = &fr
	}
	runID := uuid.New().String()
	h.record(c.Request.Context(), h.logger, runID, models.ModeFormation, budget, cat.Len(), cmp)

	utils.SendSuccessWithMeta(c, fr, &utils.Meta{RunID: runID})
}

func (h *OptimizationHandler) record(ctx context.Context, log *logrus.Entry, runID, mode string, budget float64, players int, cmp *optimizer.Comparison) {
	if h.history == nil {
		return
	}
	id, err := uuid.Parse(runID)
	if err != nil {
		// Client-chosen run ids that are not uuids get a fresh one in storage.
		id = uuid.New()
	}
	run := &models.OptimizationRun{
		ID:          id,
		Mode:        mode,
		Engine:      h.engine.Name(),
		Budget:      budget,
		PlayerCount: players,
	}
	if err := h.history.Record(ctx, run, cmp); err != nil {
		log.WithError(err).Warn("Failed to record run history")
	}
}

func modeFor(evo *optimizer.Evolution) string {
	if evo != nil && len(evo.Baseline) > 0 {
		return models.ModeEvolution
	}
	return models.ModeFresh
}
