package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Emmanuel246/natours/internal/config"
	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz gates on the database; a node that cannot reach Postgres should
// be pulled from rotation.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.db != nil {
		cctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()

		if err := h.db.Ping(cctx); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
