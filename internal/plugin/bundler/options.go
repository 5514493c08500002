package bundler

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Options is the fixed configuration every plugin is built with.
type Options struct {
	// Target is an ECMAScript version such as "es2020".
	Target string
	// Externals are host-provided runtime packages left out of the bundle.
	Externals []string
	// GlobalName is the host global the UI runtime is bound from.
	GlobalName string
	Sourcemap  bool
	// Defines are extra compile-time replacements on top of NODE_ENV.
	Defines map[string]string
}

// DefaultOptions returns the browser/ES2020/ESM development configuration.
func DefaultOptions() Options {
	return Options{
		Target:     "es2020",
		Externals:  []string{"react", "react-dom", "react/jsx-runtime"},
		GlobalName: "__HOST_REACT__",
		Sourcemap:  true,
	}
}

// Banner is the shim prepended to every bundle binding the host runtime.
func (o Options) Banner() string {
	if o.GlobalName == "" {
		return ""
	}
	return fmt.Sprintf("const React = globalThis.%s;", o.GlobalName)
}

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

func parseTarget(s string) (api.Target, error) {
	if s == "" {
		return api.ES2020, nil
	}
	t, ok := targets[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unknown bundler target %q", s)
	}
	return t, nil
}

// Validate checks options before the first build.
func (o Options) Validate() error {
	_, err := parseTarget(o.Target)
	return err
}

func (o Options) buildOptions(req Request) api.BuildOptions {
	target, _ := parseTarget(o.Target)

	define := map[string]string{
		"process.env.NODE_ENV": `"development"`,
	}
	for k, v := range o.Defines {
		define[k] = v
	}

	sourcemap := api.SourceMapNone
	if o.Sourcemap {
		sourcemap = api.SourceMapLinked
	}

	bo := api.BuildOptions{
		EntryPoints: []string{req.EntryFile},
		Outfile:     req.OutFile,
		Bundle:      true,
		Write:       false,
		Metafile:    true,
		Platform:    api.PlatformBrowser,
		Format:      api.FormatESModule,
		Target:      target,
		External:    o.Externals,
		Sourcemap:   sourcemap,
		Define:      define,
		LogLevel:    api.LogLevelSilent,
	}
	if banner := o.Banner(); banner != "" {
		bo.Banner = map[string]string{"js": banner}
	}
	return bo
}
