package handler

import (
	"context"
	"net/http"

	"github.com/amoylab/contentd/pkg/version"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger checks that the backing store answers queries
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthInfo is returned by the health endpoint
type HealthInfo struct {
	Version string `json:"version"`
	DB      string `json:"db"`
}

type App struct {
	db     Pinger
	logger *zap.Logger
}

func NewApp(db Pinger, logger *zap.Logger) *App {
	return &App{db: db, logger: logger.Named("apiserver.handler.app")}
}

func (h *App) HandleHello(c *gin.Context) {
	c.String(http.StatusOK, "Hello, World.")
}

// HandleHealth reports the build version and database reachability
func (h *App) HandleHealth(c *gin.Context) {
	info := HealthInfo{Version: version.Get()}
	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("database ping failed", zap.Error(err))
		info.DB = err.Error()
		c.JSON(http.StatusServiceUnavailable, info)
		return
	}
	info.DB = "OK"
	c.JSON(http.StatusOK, info)
}
