// Package api exposes the dev server over HTTP.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/notify"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin"
)

// Rebuilder runs the build orchestrator for one plugin.
type Rebuilder interface {
	Rebuild(ctx context.Context, id string) (plugin.Record, error)
}

// WatchStatus reports whether the filesystem watcher is running.
type WatchStatus interface {
	Watching() bool
}

// Handlers holds the dependencies of every route.
type Handlers struct {
	registry  *plugin.Registry
	rebuilder Rebuilder
	buildLog  *plugin.BuildLog
	channel   *notify.Channel
	watch     WatchStatus
	started   time.Time
	logger    *slog.Logger
}

// Deps lists what NewHandlers needs. BuildLog, Channel and Watch are optional.
type Deps struct {
	Registry  *plugin.Registry
	Rebuilder Rebuilder
	BuildLog  *plugin.BuildLog
	Channel   *notify.Channel
	Watch     WatchStatus
	Logger    *slog.Logger
}

// NewHandlers creates route handlers. Uptime is measured from this call.
func NewHandlers(d Deps) *Handlers {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		registry:  d.Registry,
		rebuilder: d.Rebuilder,
		buildLog:  d.BuildLog,
		channel:   d.Channel,
		watch:     d.Watch,
		started:   time.Now(),
		logger:    logger,
	}
}
