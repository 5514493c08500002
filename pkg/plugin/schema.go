package plugin

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id"],
  "properties": {
    "id":          {"type": "string", "minLength": 1, "pattern": "^[a-z0-9][a-z0-9._-]*$"},
    "name":        {"type": "string"},
    "version":     {"type": "string"},
    "entryPoint":  {"type": "string", "minLength": 1},
    "sandbox":     {"type": "string", "enum": ["proxy", "iframe"]},
    "description": {"type": "string"},
    "author":      {"type": "string"}
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(manifestSchema))
	})
	return compiledSchema, schemaErr
}

// ValidationReport holds the outcome of validating a manifest document.
type ValidationReport struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether no errors were found.
func (r ValidationReport) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks raw manifest JSON against the manifest schema. It is a pure
// function: data in, errors and warnings out.
func Validate(data []byte) ValidationReport {
	var report ValidationReport

	schema, err := loadSchema()
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("schema: %v", err))
		return report
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	for _, re := range result.Errors() {
		report.Errors = append(report.Errors, re.String())
	}
	if !result.Valid() {
		return report
	}

	doc, _ := gojsonschema.NewBytesLoader(data).LoadJSON()
	fields, _ := doc.(map[string]any)
	if s, _ := fields["name"].(string); strings.TrimSpace(s) == "" {
		report.Warnings = append(report.Warnings, "name is empty; id will be displayed instead")
	}
	if s, _ := fields["version"].(string); s == "" {
		report.Warnings = append(report.Warnings, "version is not set")
	}
	if s, ok := fields["entryPoint"].(string); !ok {
		report.Warnings = append(report.Warnings, "entryPoint is not set; defaulting to "+DefaultEntryPoint)
	} else if !strings.HasSuffix(s, ".js") && !strings.HasSuffix(s, ".mjs") {
		report.Warnings = append(report.Warnings, "entryPoint does not end in .js or .mjs")
	}
	return report
}
