// Package bundler compiles one plugin entry point into one browser bundle.
package bundler

import (
	"context"
	"strings"
)

// Request names the source entry and the bundle to produce, both absolute.
type Request struct {
	EntryFile string
	OutFile   string
}

// Result describes a successful bundle.
type Result struct {
	OutputBytes int64
	InputFiles  int
	Externals   []string
	Warnings    []string
}

// Bundler compiles a request. On failure it returns a *BundleError and leaves
// any previous output untouched.
type Bundler interface {
	Bundle(ctx context.Context, req Request) (*Result, error)
}

// BundleError is a compile failure reported by the bundler.
type BundleError struct {
	Messages []string
}

func (e *BundleError) Error() string {
	if len(e.Messages) == 0 {
		return "bundle failed"
	}
	return strings.Join(e.Messages, "\n")
}
