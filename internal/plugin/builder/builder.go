// Package builder turns a registered plugin into a bundle, one build per
// plugin id at a time.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/notify"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin"
	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin/bundler"
)

// ErrNoEntryPoint is returned when none of a plugin's entry point candidates exist.
var ErrNoEntryPoint = errors.New("no entry point found")

// Notifier receives build notifications.
type Notifier interface {
	Broadcast(notify.Event)
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(notify.Event) {}

// Orchestrator runs builds and records their outcome in the registry.
// Builds for the same id are serialized; different ids build concurrently.
type Orchestrator struct {
	registry *plugin.Registry
	bundler  bundler.Bundler
	notifier Notifier
	buildLog *plugin.BuildLog
	logger   *slog.Logger
	metrics  *buildMetrics
	now      func() time.Time

	guardsMu sync.Mutex
	guards   map[string]*sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithNotifier sets where build events are broadcast.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithBuildLog records every build outcome in log.
func WithBuildLog(log *plugin.BuildLog) Option {
	return func(o *Orchestrator) {
		o.buildLog = log
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides time.Now for build timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// New creates an orchestrator building plugins from reg with b.
func New(reg *plugin.Registry, b bundler.Bundler, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: reg,
		bundler:  b,
		notifier: nopNotifier{},
		logger:   slog.Default(),
		metrics:  globalBuildMetrics(),
		now:      time.Now,
		guards:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// guard returns the in-flight guard for id.
func (o *Orchestrator) guard(id string) *sync.Mutex {
	o.guardsMu.Lock()
	defer o.guardsMu.Unlock()

	g, ok := o.guards[id]
	if !ok {
		g = &sync.Mutex{}
		o.guards[id] = g
	}
	return g
}

// Build compiles plugin id and returns its updated record. A second call for
// the same id waits for the first to finish. Build failures are recorded in
// the registry and broadcast; the returned error describes them but the
// caller does not need to act on it. An unknown id (plugin.ErrNotFound) and
// a context cancelled before the build starts return without touching state.
func (o *Orchestrator) Build(ctx context.Context, id string) (plugin.Record, error) {
	g := o.guard(id)
	g.Lock()
	defer g.Unlock()

	rec, ok := o.registry.Get(id)
	if !ok {
		return plugin.Record{}, fmt.Errorf("build %q: %w", id, plugin.ErrNotFound)
	}

	// A caller that gave up while waiting on the guard leaves no trace.
	if err := ctx.Err(); err != nil {
		return rec, err
	}

	start := o.now()
	entry, err := resolveEntryPoint(rec)
	if err != nil {
		return o.fail(rec, start, err), err
	}

	rec = o.setStatus(rec, plugin.Building())
	o.metrics.inFlight.Inc()
	o.notifier.Broadcast(notify.BuildStart(id))
	o.logger.Info("building plugin", "plugin", id, "entry", entry)

	res, err := o.bundler.Bundle(ctx, bundler.Request{
		EntryFile: entry,
		OutFile:   rec.OutputPath(),
	})
	o.metrics.inFlight.Dec()
	if err != nil {
		return o.fail(rec, start, err), err
	}

	// The new bundle is already in place, so a stale manifest copy only warns.
	if err := copyManifest(rec); err != nil {
		o.logger.Warn("copy manifest", "plugin", id, "error", err)
	}

	size := res.OutputBytes
	if fi, err := os.Stat(rec.OutputPath()); err == nil {
		size = fi.Size()
	}

	finished := o.now()
	inputs := res.InputFiles
	rec, err = o.registry.Upsert(id, plugin.Patch{
		Status:     ptr(plugin.Succeeded(finished, size)),
		InputFiles: &inputs,
	})
	if err != nil {
		o.logger.Error("record build result", "plugin", id, "error", err)
	}
	for _, w := range res.Warnings {
		o.logger.Warn("bundle warning", "plugin", id, "warning", w)
	}

	elapsed := finished.Sub(start)
	o.metrics.observe("success", elapsed)
	o.record(id, rec.Status, elapsed)
	o.logger.Info("plugin built", "plugin", id, "bytes", size, "inputs", inputs, "duration", elapsed)

	o.notifier.Broadcast(notify.BuildComplete(id))
	o.notifier.Broadcast(notify.Reload(id))
	return rec, nil
}

// fail marks rec Failed with err's message and broadcasts an error event.
// Previous output on disk is left as it is.
func (o *Orchestrator) fail(rec plugin.Record, start time.Time, err error) plugin.Record {
	finished := o.now()
	rec = o.setStatus(rec, plugin.Failed(finished, err.Error()))

	elapsed := finished.Sub(start)
	o.metrics.observe("failure", elapsed)
	o.record(rec.ID, rec.Status, elapsed)
	o.logger.Warn("plugin build failed", "plugin", rec.ID, "error", err)

	o.notifier.Broadcast(notify.Error(rec.ID, err.Error()))
	return rec
}

func (o *Orchestrator) setStatus(rec plugin.Record, s plugin.BuildStatus) plugin.Record {
	next, err := o.registry.Upsert(rec.ID, plugin.StatusPatch(s.Next(rec.Status)))
	if err != nil {
		o.logger.Error("update build status", "plugin", rec.ID, "error", err)
		return rec
	}
	return next
}

func (o *Orchestrator) record(id string, s plugin.BuildStatus, d time.Duration) {
	if o.buildLog == nil {
		return
	}
	o.buildLog.Add(plugin.BuildLogEntry{
		Timestamp:       s.BuiltAt,
		Plugin:          id,
		State:           s.State,
		Duration:        d,
		BundleSizeBytes: s.BundleSizeBytes,
		Error:           s.Error,
	})
}

// Remove unregisters id once any build in flight for it has finished.
func (o *Orchestrator) Remove(id string) bool {
	g := o.guard(id)
	g.Lock()
	defer g.Unlock()
	return o.registry.Remove(id)
}

// resolveEntryPoint returns the first existing candidate as an absolute path.
func resolveEntryPoint(rec plugin.Record) (string, error) {
	candidates := rec.EntryPointCandidates
	if len(candidates) == 0 {
		candidates = plugin.DefaultEntryPointCandidates
	}
	for _, c := range candidates {
		p := filepath.Join(rec.RootPath, filepath.FromSlash(c))
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (tried %s)", ErrNoEntryPoint, strings.Join(candidates, ", "))
}

// copyManifest refreshes the manifest copy served next to the bundle.
func copyManifest(rec plugin.Record) error {
	if rec.ManifestPath == "" {
		return nil
	}
	data, err := os.ReadFile(rec.ManifestPath)
	if err != nil {
		return err
	}
	return bundler.WriteFileAtomic(filepath.Join(rec.OutputDir(), "manifest.json"), data)
}

func ptr[T any](v T) *T { return &v }
