package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/apierrors"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
	Plugins       int     `json:"plugins"`
	WatcherActive bool    `json:"watcherActive"`
	Subscribers   int     `json:"subscribers"`
}

// HandleHealth reports liveness.
// GET /api/health
func (h *Handlers) HandleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(h.started).Seconds(),
		Plugins:       h.registry.Len(),
	}
	if h.watch != nil {
		resp.WatcherActive = h.watch.Watching()
	}
	if h.channel != nil {
		resp.Subscribers = h.channel.Count()
	}
	c.JSON(http.StatusOK, resp)
}

// HandleErrorCodes lists the registered API error codes.
// GET /api/errors?namespace=devserver
func (h *Handlers) HandleErrorCodes(c *gin.Context) {
	codes := apierrors.Registry.All()
	if ns := c.Query("namespace"); ns != "" {
		codes = apierrors.Registry.ByNamespace(ns)
	}
	if codes == nil {
		codes = []apierrors.ErrorCode{}
	}
	c.JSON(http.StatusOK, gin.H{"errors": codes})
}
