package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/squad-optimizer/internal/catalog"
	"github.com/stitts-dev/squad-optimizer/internal/models"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
	"github.com/stitts-dev/squad-optimizer/internal/websocket"
	"github.com/stitts-dev/squad-optimizer/pkg/utils"
)

// ResultStore caches solved requests. A nil store disables caching.
type ResultStore interface {
	GetComparison(ctx context.Context, key string) (*optimizer.Comparison, error)
	SetComparison(ctx context.Context, key string, cmp *optimizer.Comparison) error
	GetGroups(ctx context.Context, key string) ([]optimizer.Group, error)
	SetGroups(ctx context.Context, key string, groups []optimizer.Group) error
}

// RunStore persists comparisons. A nil store disables run history.
type RunStore interface {
	Record(ctx context.Context, run *models.OptimizationRun, cmp *optimizer.Comparison) error
	Recent(ctx context.Context, limit int) ([]models.OptimizationRun, error)
}

// ProgressBroadcaster pushes run progress to subscribers.
type ProgressBroadcaster interface {
	BroadcastToRun(runID string, msg websocket.Message)
}

// PlayerInput is a player in a request body. Cost and score are pointers so a
// missing field is reported instead of read as zero.
type PlayerInput struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Position string   `json:"position"`
	Cost     *float64 `json:"cost"`
	Score    *float64 `json:"score"`
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func buildCatalog(players []PlayerInput, maxPlayers int) (*catalog.Catalog, error) {
	if maxPlayers > 0 && len(players) > maxPlayers {
		return nil, fmt.Errorf("%w: %d players exceeds limit of %d", utils.ErrInvalidInput, len(players), maxPlayers)
	}
	records := make([]catalog.Record, len(players))
	for i, p := range players {
		records[i] = catalog.Record{
			ID:       p.ID,
			Name:     p.Name,
			Position: p.Position,
			Cost:     formatOptional(p.Cost),
			Score:    formatOptional(p.Score),
		}
	}
	return catalog.New(records)
}

func isInputError(err error) bool {
	var verr *catalog.ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, utils.ErrInvalidInput) ||
		errors.Is(err, optimizer.ErrInvalidFormation) ||
		errors.Is(err, optimizer.ErrDuplicateBaseline) ||
		errors.Is(err, optimizer.ErrUnknownPlayer) ||
		errors.Is(err, optimizer.ErrInvalidChangeBudget) ||
		errors.Is(err, optimizer.ErrInvalidTopN)
}

// withSolverTimeout bounds a request's compute by timeout; zero leaves only the
// request's own cancellation.
func withSolverTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}

// sendOptimizationError maps core errors onto API responses.
func sendOptimizationError(c *gin.Context, err error) {
	switch {
	case isInputError(err):
		utils.SendValidationError(c, "Invalid optimization input", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		utils.SendError(c, utils.NewAppError(utils.ErrCodeSolver, "Solver timed out", err.Error()).WithStatus(http.StatusGatewayTimeout))
	case errors.Is(err, context.Canceled):
		utils.SendError(c, utils.NewAppError(utils.ErrCodeSolver, "Request cancelled", err.Error()).WithStatus(http.StatusRequestTimeout))
	case errors.Is(err, optimizer.ErrSolverInvocation):
		utils.SendError(c, utils.NewAppError(utils.ErrCodeSolver, "Solver failed", err.Error()))
	default:
		utils.SendError(c, utils.NewAppError(utils.ErrCodeOptimization, "Optimization failed", err.Error()))
	}
}
