package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		m, warnings, err := ParseManifest([]byte(`{"id":"alpha"}`))
		require.NoError(t, err)
		assert.Equal(t, "alpha", m.ID)
		assert.Equal(t, SandboxProxy, m.Sandbox)
		assert.Equal(t, DefaultEntryPoint, m.EntryPoint)
		assert.Equal(t, "dist", m.OutputDir())
		assert.NotEmpty(t, warnings)
	})

	t.Run("keeps declared fields", func(t *testing.T) {
		m, warnings, err := ParseManifest([]byte(`{
			"id": "viewer-tools",
			"name": "Viewer Tools",
			"version": "2.1.0",
			"entryPoint": "./build/out/tools.js",
			"sandbox": "iframe"
		}`))
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Equal(t, "Viewer Tools", m.Name)
		assert.Equal(t, "2.1.0", m.Version)
		assert.Equal(t, "build/out/tools.js", m.EntryPoint)
		assert.Equal(t, "build/out", m.OutputDir())
		assert.Equal(t, SandboxIframe, m.Sandbox)
	})

	tests := []struct {
		name string
		data string
	}{
		{"malformed json", `{"id": `},
		{"missing id", `{"name":"beta"}`},
		{"empty id", `{"id":""}`},
		{"id with spaces", `{"id":"Not Valid"}`},
		{"id not a string", `{"id":42}`},
		{"unknown sandbox", `{"id":"x","sandbox":"worker"}`},
		{"escaping entry point", `{"id":"x","entryPoint":"../other/index.js"}`},
		{"absolute entry point", `{"id":"x","entryPoint":"/tmp/index.js"}`},
		{"entry point without output dir", `{"id":"x","entryPoint":"index.js"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, err := ParseManifest([]byte(tt.data))
			assert.Nil(t, m)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidManifest), "got %v", err)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("missing id is an error", func(t *testing.T) {
		report := Validate([]byte(`{"name":"beta"}`))
		assert.False(t, report.Valid())
		assert.NotEmpty(t, report.Errors)
	})

	t.Run("warns about optional fields", func(t *testing.T) {
		report := Validate([]byte(`{"id":"alpha","entryPoint":"dist/index.css"}`))
		require.True(t, report.Valid(), "errors: %v", report.Errors)
		assert.Len(t, report.Warnings, 3)
	})

	t.Run("clean manifest", func(t *testing.T) {
		report := Validate([]byte(`{"id":"alpha","name":"Alpha","version":"1.0.0","entryPoint":"dist/index.js"}`))
		assert.True(t, report.Valid())
		assert.Empty(t, report.Warnings)
	})
}

func TestSandboxKindValid(t *testing.T) {
	assert.True(t, SandboxProxy.Valid())
	assert.True(t, SandboxIframe.Valid())
	assert.False(t, SandboxKind("worker").Valid())
}
