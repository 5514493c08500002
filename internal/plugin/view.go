package plugin

import (
	"net/url"
	"time"
)

// View is the client-facing projection of a Record, shared by the HTTP API
// and the plugins-list notification.
type View struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Version         string      `json:"version,omitempty"`
	BundleURL       string      `json:"bundleUrl"`
	ManifestURL     string      `json:"manifestUrl"`
	Sandbox         SandboxKind `json:"sandbox"`
	Status          BuildState  `json:"status"`
	LastBuildTime   *time.Time  `json:"lastBuildTime,omitempty"`
	LastBuildError  string      `json:"lastBuildError,omitempty"`
	BundleSizeBytes int64       `json:"bundleSizeBytes,omitempty"`
}

// FilesURL returns the URL prefix static files for plugin id are served under.
func FilesURL(id string) string {
	return "/plugins/" + url.PathEscape(id) + "/files/"
}

// View projects the record for clients.
func (r Record) View() View {
	v := View{
		ID:              r.ID,
		Name:            r.Name(),
		Version:         r.Version,
		BundleURL:       FilesURL(r.ID) + url.PathEscape(r.BundleFile()),
		ManifestURL:     FilesURL(r.ID) + "manifest.json",
		Sandbox:         r.Sandbox,
		Status:          r.Status.State,
		LastBuildError:  r.Status.Error,
		BundleSizeBytes: r.Status.BundleSizeBytes,
	}
	if !r.Status.BuiltAt.IsZero() {
		t := r.Status.BuiltAt
		v.LastBuildTime = &t
	}
	return v
}

// Views projects a list of records.
func Views(recs []Record) []View {
	out := make([]View, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.View())
	}
	return out
}
