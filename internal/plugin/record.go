package plugin

import (
	"path"
	"path/filepath"
	"slices"
	"time"
)

// BuildState is the tag of a BuildStatus.
type BuildState string

const (
	StatePending   BuildState = "pending"
	StateBuilding  BuildState = "building"
	StateSucceeded BuildState = "succeeded"
	StateFailed    BuildState = "failed"
)

// BuildStatus is the last known build state of a plugin. BuiltAt is set for
// Succeeded and Failed, Error only for Failed. BundleSizeBytes is the size of
// the last good bundle on disk and survives Building and Failed.
type BuildStatus struct {
	State           BuildState `json:"state"`
	BuiltAt         time.Time  `json:"builtAt,omitzero"`
	BundleSizeBytes int64      `json:"bundleSizeBytes,omitempty"`
	Error           string     `json:"error,omitempty"`
}

func Pending() BuildStatus { return BuildStatus{State: StatePending} }

// Next returns status s carried forward from prev, keeping the last good size.
func (s BuildStatus) Next(prev BuildStatus) BuildStatus {
	if s.State != StateSucceeded {
		s.BundleSizeBytes = prev.BundleSizeBytes
	}
	return s
}

func Building() BuildStatus { return BuildStatus{State: StateBuilding} }

func Succeeded(at time.Time, size int64) BuildStatus {
	return BuildStatus{State: StateSucceeded, BuiltAt: at, BundleSizeBytes: size}
}

func Failed(at time.Time, msg string) BuildStatus {
	return BuildStatus{State: StateFailed, BuiltAt: at, Error: msg}
}

// Record is one discovered plugin. Records are values; the registry hands out
// copies so callers cannot mutate registry state.
type Record struct {
	ID          string
	DisplayName string
	Version     string

	// RootPath is the absolute plugin directory. Fixed once the record exists.
	RootPath string
	Sandbox  SandboxKind

	// EntryPointCandidates are source paths relative to RootPath, first existing wins.
	EntryPointCandidates []string

	// ManifestPath is the absolute path of the manifest file.
	ManifestPath string

	// EntryPoint is the manifest-declared bundle path, relative to RootPath.
	EntryPoint string

	Status BuildStatus

	// InputFiles is the number of source files that went into the last good bundle.
	InputFiles int
}

// OutputPath is the absolute bundle path.
func (r Record) OutputPath() string {
	return filepath.Join(r.RootPath, filepath.FromSlash(r.EntryPoint))
}

// OutputDir is the absolute directory the bundle and manifest copy live in.
func (r Record) OutputDir() string {
	return filepath.Dir(r.OutputPath())
}

// BundleFile is the bundle's file name inside OutputDir.
func (r Record) BundleFile() string {
	return path.Base(r.EntryPoint)
}

// Name returns the display name, falling back to the id.
func (r Record) Name() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.ID
}

func (r Record) clone() Record {
	r.EntryPointCandidates = slices.Clone(r.EntryPointCandidates)
	return r
}

// Patch is a partial update to a Record. Nil fields are left untouched.
type Patch struct {
	DisplayName          *string
	Version              *string
	RootPath             *string
	Sandbox              *SandboxKind
	EntryPointCandidates []string
	ManifestPath         *string
	EntryPoint           *string
	Status               *BuildStatus
	InputFiles           *int
}

// StatusPatch is shorthand for a patch that only changes the build status.
func StatusPatch(s BuildStatus) Patch {
	return Patch{Status: &s}
}

// apply returns the record resulting from merging p into r.
func (p Patch) apply(r Record) Record {
	if p.DisplayName != nil {
		r.DisplayName = *p.DisplayName
	}
	if p.Version != nil {
		r.Version = *p.Version
	}
	if p.RootPath != nil {
		r.RootPath = *p.RootPath
	}
	if p.Sandbox != nil {
		r.Sandbox = *p.Sandbox
	}
	if p.EntryPointCandidates != nil {
		r.EntryPointCandidates = slices.Clone(p.EntryPointCandidates)
	}
	if p.ManifestPath != nil {
		r.ManifestPath = *p.ManifestPath
	}
	if p.EntryPoint != nil {
		r.EntryPoint = *p.EntryPoint
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.InputFiles != nil {
		r.InputFiles = *p.InputFiles
	}
	return r
}

// PatchFromManifest builds the patch that registers a freshly parsed manifest.
func PatchFromManifest(m *Manifest, rootPath, manifestPath string, candidates []string) Patch {
	status := Pending()
	sandbox := m.Sandbox
	return Patch{
		DisplayName:          &m.Name,
		Version:              &m.Version,
		RootPath:             &rootPath,
		Sandbox:              &sandbox,
		EntryPointCandidates: candidates,
		ManifestPath:         &manifestPath,
		EntryPoint:           &m.EntryPoint,
		Status:               &status,
	}
}
