package bundler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
)

// ESBuild bundles with esbuild's Go API.
type ESBuild struct {
	opts Options
}

var _ Bundler = (*ESBuild)(nil)

// NewESBuild creates an esbuild-backed bundler.
func NewESBuild(opts Options) (*ESBuild, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &ESBuild{opts: opts}, nil
}

// Bundle compiles req. esbuild runs to completion once started; ctx is only
// checked before the build begins. Outputs are written only when the build
// has no errors, each through a temp file and rename.
func (b *ESBuild) Bundle(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := api.Build(b.opts.buildOptions(req))
	if len(res.Errors) > 0 {
		return nil, &BundleError{Messages: formatMessages(res.Errors)}
	}

	out := &Result{Warnings: formatMessages(res.Warnings)}
	for _, f := range res.OutputFiles {
		if err := writeFileAtomic(f.Path, f.Contents); err != nil {
			return nil, fmt.Errorf("write %s: %w", filepath.Base(f.Path), err)
		}
		if filepath.Clean(f.Path) == filepath.Clean(req.OutFile) {
			out.OutputBytes = int64(len(f.Contents))
		}
	}

	if res.Metafile != "" {
		var meta Metafile
		if err := json.Unmarshal([]byte(res.Metafile), &meta); err == nil {
			a := Analyze(&meta)
			out.InputFiles = len(a.InputFiles)
			out.Externals = a.ExternalImports
		}
	}
	return out, nil
}

func formatMessages(msgs []api.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location == nil {
			out = append(out, m.Text)
			continue
		}
		out = append(out, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
	}
	return out
}

// writeFileAtomic replaces path so readers see either the old or the new bytes.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// WriteFileAtomic is exported for collaborators that refresh files next to a
// bundle, such as the manifest copy.
func WriteFileAtomic(path string, data []byte) error {
	return writeFileAtomic(path, data)
}
