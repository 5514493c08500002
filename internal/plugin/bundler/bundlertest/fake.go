// Package bundlertest provides an in-memory stand-in for the esbuild bundler.
package bundlertest

import (
	"context"
	"os"
	"sync"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin/bundler"
)

// Fake "bundles" by copying the entry file behind a header line. It records
// calls and the peak number of concurrent calls per output file.
type Fake struct {
	mu        sync.Mutex
	calls     []bundler.Request
	active    map[string]int
	peak      map[string]int
	failOn    func(bundler.Request) error
	beforeOut func(bundler.Request)
}

var _ bundler.Bundler = (*Fake)(nil)

// New creates a fake bundler.
func New() *Fake {
	return &Fake{
		active: make(map[string]int),
		peak:   make(map[string]int),
	}
}

// FailOn makes Bundle return fn's error when it is non-nil.
func (f *Fake) FailOn(fn func(bundler.Request) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn = fn
}

// BeforeWrite runs fn inside Bundle before any output is written, e.g. to
// block a build.
func (f *Fake) BeforeWrite(fn func(bundler.Request)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beforeOut = fn
}

func (f *Fake) Bundle(ctx context.Context, req bundler.Request) (*bundler.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.active[req.OutFile]++
	if f.active[req.OutFile] > f.peak[req.OutFile] {
		f.peak[req.OutFile] = f.active[req.OutFile]
	}
	failOn, before := f.failOn, f.beforeOut
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active[req.OutFile]--
		f.mu.Unlock()
	}()

	if before != nil {
		before(req)
	}
	if failOn != nil {
		if err := failOn(req); err != nil {
			return nil, err
		}
	}

	src, err := os.ReadFile(req.EntryFile)
	if err != nil {
		return nil, &bundler.BundleError{Messages: []string{err.Error()}}
	}
	out := append([]byte("// bundled\n"), src...)
	if err := bundler.WriteFileAtomic(req.OutFile, out); err != nil {
		return nil, err
	}
	return &bundler.Result{OutputBytes: int64(len(out)), InputFiles: 1}, nil
}

// Calls returns a copy of every request seen so far.
func (f *Fake) Calls() []bundler.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bundler.Request(nil), f.calls...)
}

// CallCount returns the number of Bundle calls.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// PeakConcurrency returns the most simultaneous calls seen for outFile.
func (f *Fake) PeakConcurrency(outFile string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak[outFile]
}
