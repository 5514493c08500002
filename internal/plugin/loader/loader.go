// Package loader discovers plugin projects under the plugins root, watches
// their sources and schedules rebuilds.
package loader

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

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin"
	pkgplugin "github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/pkg/plugin"
)

// Builder is the build orchestrator as seen by the loader.
type Builder interface {
	Build(ctx context.Context, id string) (plugin.Record, error)
	Remove(id string) bool
}

// DiscoveryError describes a plugin directory that was skipped.
type DiscoveryError struct {
	Dir string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %s: %v", filepath.Base(e.Dir), e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ErrDuplicateID is returned when two directories declare the same plugin id.
var ErrDuplicateID = errors.New("duplicate plugin id")

// DiscoveryResult summarizes one discovery run.
type DiscoveryResult struct {
	Registered []string
	Removed    []string
	Skipped    []*DiscoveryError
}

// Changed reports whether the run added or removed plugins.
func (r DiscoveryResult) Changed() bool {
	return len(r.Registered) > 0 || len(r.Removed) > 0
}

// Loader owns discovery and the filesystem watch of the plugins root.
type Loader struct {
	root         string
	manifestFile string
	candidates   []string
	parallel     int
	debounce     time.Duration
	registry     *plugin.Registry
	builder      Builder
	logger       *slog.Logger

	discoverMu sync.Mutex

	// Hot reload
	watchMu   sync.Mutex
	watcher   *fsnotify.Watcher
	coalescer *Coalescer
	watchDone chan struct{}
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithManifestFile sets the manifest file name looked up in each plugin dir.
func WithManifestFile(name string) LoaderOption {
	return func(l *Loader) {
		if name != "" {
			l.manifestFile = name
		}
	}
}

// WithEntryPointCandidates sets the source entry candidates for new records.
func WithEntryPointCandidates(c []string) LoaderOption {
	return func(l *Loader) {
		if len(c) > 0 {
			l.candidates = c
		}
	}
}

// WithMaxParallelBuilds bounds concurrent builds during discovery and drains.
func WithMaxParallelBuilds(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.parallel = n
		}
	}
}

// WithDebounce sets the coalescing window for change events.
func WithDebounce(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader for the plugins root dir.
func NewLoader(root string, reg *plugin.Registry, b Builder, opts ...LoaderOption) *Loader {
	l := &Loader{
		root:         root,
		manifestFile: pkgplugin.DefaultManifestFile,
		candidates:   plugin.DefaultEntryPointCandidates,
		parallel:     4,
		debounce:     300 * time.Millisecond,
		registry:     reg,
		builder:      b,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if abs, err := filepath.Abs(root); err == nil {
		l.root = abs
	}
	return l
}

// Root returns the absolute plugins root.
func (l *Loader) Root() string {
	return l.root
}

// Discover scans the immediate subdirectories of the root, registers every
// plugin with a valid manifest and builds the newly registered ones. Plugins
// already registered are left alone; plugins whose directory vanished are
// removed. Bad manifests skip that directory only. Discover is safe to run
// again.
func (l *Loader) Discover(ctx context.Context) (DiscoveryResult, error) {
	l.discoverMu.Lock()
	defer l.discoverMu.Unlock()

	var res DiscoveryResult

	if _, err := os.Stat(l.root); os.IsNotExist(err) {
		l.logger.Info("plugin directory does not exist, creating", "path", l.root)
		if err := os.MkdirAll(l.root, 0o755); err != nil {
			return res, fmt.Errorf("create plugin dir: %w", err)
		}
	}

	entries, err := os.ReadDir(l.root)
	if err != nil {
		return res, fmt.Errorf("read plugin dir: %w", err)
	}

	seen := make(map[string]string) // id -> dir
	for _, e := range entries {
		if !e.IsDir() || skipDir(e.Name()) {
			continue
		}
		dir := filepath.Join(l.root, e.Name())

		id, isNew, err := l.register(dir, seen)
		if err != nil {
			derr := &DiscoveryError{Dir: dir, Err: err}
			res.Skipped = append(res.Skipped, derr)
			l.logger.Warn("skipping plugin directory", "path", dir, "error", err)
			continue
		}
		seen[id] = dir
		if isNew {
			res.Registered = append(res.Registered, id)
		}
	}

	for _, rec := range l.registry.List() {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		if rec.ManifestPath != "" {
			if _, err := os.Stat(rec.ManifestPath); err == nil {
				// Still on disk but its manifest turned invalid; keep serving it.
				continue
			}
		}
		if l.builder.Remove(rec.ID) {
			res.Removed = append(res.Removed, rec.ID)
			l.logger.Info("plugin removed", "plugin", rec.ID, "path", rec.RootPath)
		}
	}

	l.buildAll(ctx, res.Registered)
	return res, nil
}

// register parses dir's manifest and adds it to the registry. isNew is false
// when the same plugin was registered by an earlier run.
func (l *Loader) register(dir string, seen map[string]string) (id string, isNew bool, err error) {
	manifestPath := filepath.Join(dir, l.manifestFile)
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return "", false, fmt.Errorf("read manifest: %w", err)
	}
	m, warnings, err := plugin.ParseManifest(data)
	if err != nil {
		return "", false, err
	}
	for _, w := range warnings {
		l.logger.Debug("manifest warning", "path", manifestPath, "warning", w)
	}

	if other, dup := seen[m.ID]; dup {
		return "", false, fmt.Errorf("%w %q (also in %s)", ErrDuplicateID, m.ID, filepath.Base(other))
	}
	if existing, ok := l.registry.Get(m.ID); ok {
		if existing.RootPath != dir {
			return "", false, fmt.Errorf("%w %q (also in %s)", ErrDuplicateID, m.ID, filepath.Base(existing.RootPath))
		}
		return m.ID, false, nil
	}

	if _, err := l.registry.Upsert(m.ID, plugin.PatchFromManifest(m, dir, manifestPath, l.candidates)); err != nil {
		return "", false, err
	}
	l.logger.Debug("discovered plugin", "plugin", m.ID, "path", dir, "sandbox", m.Sandbox)
	return m.ID, true, nil
}

// buildAll builds ids with bounded concurrency and waits for all of them.
func (l *Loader) buildAll(ctx context.Context, ids []string) {
	var g errgroup.Group
	g.SetLimit(l.parallel)
	for _, id := range ids {
		g.Go(func() error {
			// Failures are recorded in the registry by the builder.
			l.builder.Build(ctx, id)
			return nil
		})
	}
	g.Wait()
}

// Rebuild refreshes id's metadata from its manifest and builds it.
func (l *Loader) Rebuild(ctx context.Context, id string) (plugin.Record, error) {
	l.refreshManifest(id)
	return l.builder.Build(ctx, id)
}

// refreshManifest applies name, version, sandbox and entryPoint edits. A
// manifest that no longer parses or changed its id keeps the old metadata.
func (l *Loader) refreshManifest(id string) {
	rec, ok := l.registry.Get(id)
	if !ok || rec.ManifestPath == "" {
		return
	}
	data, err := os.ReadFile(rec.ManifestPath)
	if err != nil {
		l.logger.Warn("manifest unreadable, keeping previous metadata", "plugin", id, "error", err)
		return
	}
	m, _, err := plugin.ParseManifest(data)
	if err != nil {
		l.logger.Warn("manifest invalid, keeping previous metadata", "plugin", id, "error", err)
		return
	}
	if m.ID != id {
		l.logger.Warn("manifest id changed; restart to re-register", "plugin", id, "new_id", m.ID)
		return
	}
	sandbox := m.Sandbox
	l.registry.Upsert(id, plugin.Patch{
		DisplayName: &m.Name,
		Version:     &m.Version,
		Sandbox:     &sandbox,
		EntryPoint:  &m.EntryPoint,
	})
}

// skipDir reports directories never treated as plugins or watched.
func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}
