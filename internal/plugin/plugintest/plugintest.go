// Package plugintest writes plugin project fixtures for tests.
package plugintest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// Manifest returns manifest JSON for id with a dist/index.js entry point.
func Manifest(id string) string {
	data, _ := json.Marshal(map[string]string{
		"id":         id,
		"name":       id + " plugin",
		"version":    "1.0.0",
		"entryPoint": "dist/index.js",
	})
	return string(data)
}

// WriteFile writes content to root/rel, creating parent directories.
func WriteFile(t testing.TB, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// Plugin creates root/dir with the given manifest and a src/index.ts entry.
// It returns the plugin directory.
func Plugin(t testing.TB, root, dir, manifest string) string {
	t.Helper()
	WriteFile(t, root, filepath.Join(dir, "manifest.json"), manifest)
	WriteFile(t, root, filepath.Join(dir, "src", "index.ts"), "export const name = "+`"`+dir+`"`+";\n")
	return filepath.Join(root, dir)
}
