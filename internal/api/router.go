package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/apierrors"
)

// Streams are the notification endpoints mounted next to the API.
type Streams struct {
	WebSocket http.Handler
	SSE       http.Handler
}

// NewRouter wires every route onto a new gin engine.
func NewRouter(h *Handlers, streams Streams) *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.logger.Error("handler panic", "path", c.Request.URL.Path, "panic", recovered)
		apierrors.Error(c, apierrors.CodeInternalError)
	}), requestLogger(h.logger))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", h.HandleHealth)
		apiGroup.GET("/errors", h.HandleErrorCodes)
		apiGroup.GET("/plugins", h.HandlePluginList)
		apiGroup.GET("/plugins/:id", h.HandlePluginGet)
		apiGroup.POST("/plugins/:id/rebuild", h.HandlePluginRebuild)
		apiGroup.GET("/plugins/:id/builds", h.HandlePluginBuilds)
	}

	r.GET("/plugins/:id/files/*filepath", h.HandlePluginFile)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if streams.WebSocket != nil {
		r.GET("/ws", gin.WrapH(streams.WebSocket))
	}
	if streams.SSE != nil {
		r.GET("/events", gin.WrapH(streams.SSE))
	}
	return r
}

// requestLogger logs each request at debug level, errors at warn.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
		)
	}
}
