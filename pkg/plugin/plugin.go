// Package plugin defines the public manifest contract for viewer plugins.
//
// A plugin is a directory under the plugins root holding a manifest file and
// a browser source tree. The dev server compiles the source entry point into
// a single ES module bundle at the path the manifest declares as entryPoint.
//
// Plugin authors can import this package to validate a manifest with the same
// rules the dev server applies at discovery time.
package plugin

// SandboxKind selects how the host isolates a plugin at runtime.
type SandboxKind string

const (
	// SandboxProxy runs the plugin in the host realm behind a capability proxy.
	SandboxProxy SandboxKind = "proxy"
	// SandboxIframe runs the plugin inside a sandboxed iframe.
	SandboxIframe SandboxKind = "iframe"
)

// Valid reports whether k is a known sandbox kind.
func (k SandboxKind) Valid() bool {
	return k == SandboxProxy || k == SandboxIframe
}

// DefaultManifestFile is the manifest file name looked up in each plugin directory.
const DefaultManifestFile = "manifest.json"

// DefaultEntryPoint is used when a manifest does not declare an entryPoint.
const DefaultEntryPoint = "dist/index.js"
