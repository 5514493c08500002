package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mongoistkeingemuese/3D-Viewer-Plugins-sub001/internal/plugin"
)

func TestPrintStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	built := now.Add(-5 * time.Minute)

	views := []plugin.View{
		{ID: "alpha", Version: "1.0.0", Status: plugin.StateSucceeded, LastBuildTime: &built, BundleSizeBytes: 2048},
		{ID: "beta", Status: plugin.StateFailed, LastBuildTime: &built, LastBuildError: "src/index.ts:1:1: boom\nmore detail"},
		{ID: "gamma", Status: plugin.StatePending},
	}

	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, views, now))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "alpha")
	assert.Contains(t, lines[1], "2.0 KiB")
	assert.Contains(t, lines[1], "minutes ago")
	assert.Contains(t, lines[2], "src/index.ts:1:1: boom")
	assert.NotContains(t, buf.String(), "more detail")
	assert.Contains(t, lines[3], "pending")
}

func TestPrintStatusEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, nil, time.Now()))
	assert.Equal(t, "No plugins registered.\n", buf.String())
}

func TestFetchPlugins(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/plugins", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"plugins":[{"id":"alpha","name":"Alpha","status":"succeeded","sandbox":"proxy"}]}`))
		}))
		defer srv.Close()

		views, err := fetchPlugins(context.Background(), srv.URL+"/")
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, "alpha", views[0].ID)
		assert.Equal(t, plugin.StateSucceeded, views[0].Status)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := fetchPlugins(context.Background(), srv.URL)
		assert.ErrorContains(t, err, "500")
	})
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "a", firstLine("a\nb"))
	assert.Equal(t, "a", firstLine("a"))
	assert.Equal(t, "-", orDash(""))
}

func TestBaseURL(t *testing.T) {
	tests := map[string]string{
		":3100":          "http://localhost:3100",
		"0.0.0.0:3100":   "http://localhost:3100",
		"127.0.0.1:8080": "http://127.0.0.1:8080",
		"[::]:3100":      "http://localhost:3100",
		"devbox:3100":    "http://devbox:3100",
	}
	for addr, want := range tests {
		assert.Equal(t, want, baseURL(addr), addr)
	}
}
