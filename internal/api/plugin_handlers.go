package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/apierrors"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin/builder"
)

// HandlePluginList returns all registered plugins.
// GET /api/plugins
func (h *Handlers) HandlePluginList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plugins": plugin.Views(h.registry.List())})
}

// HandlePluginGet returns one plugin.
// GET /api/plugins/:id
func (h *Handlers) HandlePluginGet(c *gin.Context) {
	rec, ok := h.registry.Get(c.Param("id"))
	if !ok {
		apierrors.Error(c, apierrors.CodeNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plugin": rec.View()})
}

// HandlePluginRebuild builds a plugin synchronously and returns the result.
// POST /api/plugins/:id/rebuild
func (h *Handlers) HandlePluginRebuild(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.rebuilder.Rebuild(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"plugin": rec.View()})
	case errors.Is(err, plugin.ErrNotFound):
		apierrors.Error(c, apierrors.CodeNotFound)
	case errors.Is(err, builder.ErrNoEntryPoint):
		apierrors.ErrorWithData(c, apierrors.CodeNoEntryPoint, err.Error(), gin.H{"plugin": rec.View()})
	default:
		apierrors.ErrorWithData(c, apierrors.CodeBuildFailed, err.Error(), gin.H{"plugin": rec.View()})
	}
}

// HandlePluginBuilds returns the build history of a plugin, newest first.
// GET /api/plugins/:id/builds?limit=N
func (h *Handlers) HandlePluginBuilds(c *gin.Context) {
	id := c.Param("id")
	if !h.registry.Has(id) {
		apierrors.Error(c, apierrors.CodeNotFound)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			apierrors.ErrorWithMessage(c, apierrors.CodeInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries := []plugin.BuildLogEntry{}
	if h.buildLog != nil {
		entries = h.buildLog.GetByPlugin(id)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"builds": entries})
}
