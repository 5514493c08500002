package api

import (
	"os"
	"path"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/apierrors"
)

// HandlePluginFile serves files from a plugin's output directory.
// GET /plugins/:id/files/*filepath
func (h *Handlers) HandlePluginFile(c *gin.Context) {
	rec, ok := h.registry.Get(c.Param("id"))
	if !ok {
		apierrors.Error(c, apierrors.CodeNotFound)
		return
	}

	// Cleaning against "/" drops any ".." before the join.
	rel := path.Clean("/" + c.Param("filepath"))
	if rel == "/" {
		apierrors.ErrorWithMessage(c, apierrors.CodeNotFound, "File not found")
		return
	}
	full := filepath.Join(rec.OutputDir(), filepath.FromSlash(rel))

	fi, err := os.Stat(full)
	if err != nil || fi.IsDir() {
		apierrors.ErrorWithMessage(c, apierrors.CodeNotFound, "File not found")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.File(full)
}
