package bundler

import "sort"

// Metafile represents the esbuild metafile JSON structure.
type Metafile struct {
	Inputs  map[string]MetafileInput  `json:"inputs"`
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileInput represents an input file in the metafile.
type MetafileInput struct {
	Bytes   int              `json:"bytes"`
	Imports []MetafileImport `json:"imports"`
	Format  string           `json:"format,omitempty"`
}

// MetafileImport represents an import in the metafile.
type MetafileImport struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	External bool   `json:"external,omitempty"`
	Original string `json:"original,omitempty"`
}

// MetafileOutput represents an output file in the metafile.
type MetafileOutput struct {
	Bytes      int                     `json:"bytes"`
	Inputs     map[string]InputContrib `json:"inputs"`
	Imports    []MetafileImport        `json:"imports"`
	Exports    []string                `json:"exports"`
	EntryPoint string                  `json:"entryPoint,omitempty"`
}

// InputContrib is the contribution of an input to an output.
type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

// Analysis summarizes a metafile.
type Analysis struct {
	TotalBytes      int
	InputFiles      []string
	ExternalImports []string
}

// Analyze summarizes the inputs and external imports of a build.
func Analyze(m *Metafile) Analysis {
	var a Analysis
	if m == nil {
		return a
	}
	for path := range m.Inputs {
		a.InputFiles = append(a.InputFiles, path)
	}
	sort.Strings(a.InputFiles)

	seen := make(map[string]bool)
	for _, out := range m.Outputs {
		a.TotalBytes += out.Bytes
		for _, imp := range out.Imports {
			if imp.External && !seen[imp.Path] {
				seen[imp.Path] = true
				a.ExternalImports = append(a.ExternalImports, imp.Path)
			}
		}
	}
	sort.Strings(a.ExternalImports)
	return a
}
