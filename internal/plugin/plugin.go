// Package plugin holds the dev server's in-memory view of discovered plugins.
//
// The public manifest contract lives in pkg/plugin; it is re-exported here so
// internal code only needs this import.
package plugin

import (
	pkgplugin "github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/pkg/plugin"
)

type Manifest = pkgplugin.Manifest
type SandboxKind = pkgplugin.SandboxKind
type ValidationReport = pkgplugin.ValidationReport

const (
	SandboxProxy  = pkgplugin.SandboxProxy
	SandboxIframe = pkgplugin.SandboxIframe
)

// ParseManifest re-exports the manifest parser.
var ParseManifest = pkgplugin.ParseManifest

// DefaultEntryPointCandidates are the source files probed, in order, when no
// candidates are configured.
var DefaultEntryPointCandidates = []string{
	"src/index.tsx",
	"src/index.ts",
	"src/index.jsx",
	"src/index.js",
}
