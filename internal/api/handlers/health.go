package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything with a reachability check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Engine    string            `json:"engine"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

type HealthHandler struct {
	engine string
	db     Pinger
	cache  Pinger
}

// NewHealthHandler takes optional dependencies; nil ones report not_configured.
func NewHealthHandler(engine string, db, cache Pinger) *HealthHandler {
	return &HealthHandler{engine: engine, db: db, cache: cache}
}

// GetHealth reports "degraded" when an optional store is unreachable; the
// solver path works without either.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	resp := HealthStatus{
		Status:    "ok",
		Service:   "squad-optimizer",
		Engine:    h.engine,
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	check := func(name string, p Pinger) {
		if p == nil {
			resp.Checks[name] = "not_configured"
			return
		}
		if err := p.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = "failed: " + err.Error()
			return
		}
		resp.Checks[name] = "ok"
	}
	check("database", h.db)
	check("cache", h.cache)

	c.JSON(http.StatusOK, resp)
}
