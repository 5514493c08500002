package loader

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin"
)

// WatchDir starts watching the plugins root. Source changes are coalesced
// and each affected plugin is rebuilt once per window.
func (l *Loader) WatchDir(ctx context.Context) error {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	if l.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(l.root); err != nil {
		watcher.Close()
		return fmt.Errorf("watch plugin dir: %w", err)
	}
	l.addTree(watcher, l.root)

	l.watcher = watcher
	l.coalescer = NewCoalescer(l.debounce, func(ctx context.Context, id string) {
		l.Rebuild(ctx, id)
	}, l.parallel, l.logger)
	l.watchDone = make(chan struct{})

	l.logger.Info("hot reload enabled", "path", l.root, "debounce", l.debounce)

	go l.watchLoop(ctx, watcher, l.coalescer, l.watchDone)
	return nil
}

// StopWatch stops accepting change events and waits for a running rebuild
// pass to finish.
func (l *Loader) StopWatch() {
	l.watchMu.Lock()
	watcher, coalescer, done := l.watcher, l.coalescer, l.watchDone
	l.watcher, l.coalescer, l.watchDone = nil, nil, nil
	l.watchMu.Unlock()

	if watcher == nil {
		return
	}
	watcher.Close()
	<-done
	coalescer.Stop()
	l.logger.Info("hot reload stopped")
}

// Watching reports whether the watcher is active.
func (l *Loader) Watching() bool {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()
	return l.watcher != nil
}

// Coalescer returns the active coalescer, or nil when not watching.
func (l *Loader) Coalescer() *Coalescer {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()
	return l.coalescer
}

func (l *Loader) watchLoop(ctx context.Context, w *fsnotify.Watcher, c *Coalescer, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			l.handleFSEvent(w, c, event)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.logger.Error("watcher error", "error", err)
		}
	}
}

func (l *Loader) handleFSEvent(w *fsnotify.Watcher, c *Coalescer, event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	if event.Op&fsnotify.Create == fsnotify.Create {
		l.addTree(w, event.Name)
	}

	id, ok := l.ownerOf(event.Name)
	if !ok {
		return
	}
	l.logger.Debug("source changed", "plugin", id, "path", event.Name, "op", event.Op.String())
	c.Add(id)
}

// ownerOf maps a changed path to the registered plugin whose directory is the
// first path segment below the root. Dependency dirs, editor temp files and
// build outputs have no owner. A dedicated output dir is ignored as a whole;
// one shared with sources only hides the files the builder writes there.
func (l *Loader) ownerOf(path string) (string, bool) {
	rel, err := filepath.Rel(l.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for _, s := range segments {
		if skipDir(s) {
			return "", false
		}
	}
	if base := segments[len(segments)-1]; strings.HasSuffix(base, "~") {
		return "", false
	}

	dir := filepath.Join(l.root, segments[0])
	for _, rec := range l.registry.List() {
		if rec.RootPath != dir {
			continue
		}
		if within(rec.OutputDir(), path) && (!l.sharesSources(rec) || isBuildOutput(rec, path)) {
			return "", false
		}
		return rec.ID, true
	}
	return "", false
}

// addTree watches dir and every subdirectory that could hold plugin sources.
func (l *Loader) addTree(w *fsnotify.Watcher, dir string) {
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != l.root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if l.isOutputDir(path) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			l.logger.Debug("watch failed", "path", path, "error", err)
		}
		return nil
	})
}

func (l *Loader) isOutputDir(path string) bool {
	for _, rec := range l.registry.List() {
		if rec.OutputDir() == path && !l.sharesSources(rec) {
			return true
		}
	}
	return false
}

// sharesSources reports whether any entry candidate lives under the record's
// output dir, as with an entryPoint of "src/bundle.js".
func (l *Loader) sharesSources(rec plugin.Record) bool {
	candidates := rec.EntryPointCandidates
	if len(candidates) == 0 {
		candidates = l.candidates
	}
	for _, c := range candidates {
		if within(rec.OutputDir(), filepath.Join(rec.RootPath, filepath.FromSlash(c))) {
			return true
		}
	}
	return false
}

// isBuildOutput matches the files a build writes into the output dir.
func isBuildOutput(rec plugin.Record, path string) bool {
	switch path {
	case rec.OutputPath(), rec.OutputPath() + ".map", filepath.Join(rec.OutputDir(), "manifest.json"):
		return true
	}
	base := filepath.Base(path)
	return filepath.Dir(path) == rec.OutputDir() && strings.HasPrefix(base, ".") && strings.Contains(base, ".tmp-")
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
