package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrInvalidManifest is returned when a manifest fails validation.
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest represents a plugin manifest.json file.
type Manifest struct {
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	Version     string      `json:"version,omitempty"`
	EntryPoint  string      `json:"entryPoint,omitempty"` // bundle path relative to the plugin dir
	Sandbox     SandboxKind `json:"sandbox,omitempty"`    // "proxy" (default) or "iframe"
	Description string      `json:"description,omitempty"`
	Author      string      `json:"author,omitempty"`
}

// OutputDir returns the plugin-relative directory the bundle is written to.
func (m *Manifest) OutputDir() string {
	return path.Dir(m.EntryPoint)
}

// ParseManifest decodes and validates manifest bytes. Defaults are applied to
// optional fields. Warnings are returned alongside a valid manifest; any
// validation error yields ErrInvalidManifest.
func ParseManifest(data []byte) (*Manifest, []string, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: malformed JSON: %v", ErrInvalidManifest, err)
	}

	report := Validate(data)
	if !report.Valid() {
		return nil, report.Warnings, fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(report.Errors, "; "))
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, report.Warnings, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if m.Sandbox == "" {
		m.Sandbox = SandboxProxy
	}
	if m.EntryPoint == "" {
		m.EntryPoint = DefaultEntryPoint
	}
	m.EntryPoint = strings.TrimPrefix(path.Clean(m.EntryPoint), "./")
	if path.IsAbs(m.EntryPoint) || m.EntryPoint == ".." || strings.HasPrefix(m.EntryPoint, "../") {
		return nil, report.Warnings, fmt.Errorf("%w: entryPoint %q escapes the plugin directory", ErrInvalidManifest, m.EntryPoint)
	}
	if m.OutputDir() == "." {
		return nil, report.Warnings, fmt.Errorf("%w: entryPoint %q must live in an output subdirectory", ErrInvalidManifest, m.EntryPoint)
	}
	return &m, report.Warnings, nil
}
