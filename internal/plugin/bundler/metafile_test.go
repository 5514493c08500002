package bundler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	raw := `{
		"inputs": {
			"src/index.ts": {"bytes": 120, "imports": [{"path": "src/util.ts", "kind": "import-statement"}]},
			"src/util.ts": {"bytes": 40, "imports": []}
		},
		"outputs": {
			"dist/index.js": {
				"bytes": 300,
				"inputs": {"src/index.ts": {"bytesInOutput": 90}, "src/util.ts": {"bytesInOutput": 30}},
				"imports": [
					{"path": "react", "kind": "import-statement", "external": true},
					{"path": "react/jsx-runtime", "kind": "import-statement", "external": true},
					{"path": "react", "kind": "import-statement", "external": true}
				],
				"exports": ["default"],
				"entryPoint": "src/index.ts"
			},
			"dist/index.js.map": {"bytes": 500, "inputs": {}, "imports": [], "exports": []}
		}
	}`

	var m Metafile
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	a := Analyze(&m)
	assert.Equal(t, 800, a.TotalBytes)
	assert.Equal(t, []string{"src/index.ts", "src/util.ts"}, a.InputFiles)
	assert.Equal(t, []string{"react", "react/jsx-runtime"}, a.ExternalImports)
}

func TestAnalyzeNil(t *testing.T) {
	a := Analyze(nil)
	assert.Zero(t, a.TotalBytes)
	assert.Empty(t, a.InputFiles)
}
