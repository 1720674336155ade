package polyfill

import (
	"fmt"
	"slices"
)

// disabledModules are server-runtime modules with no browser equivalent.
// Imports of them resolve to an empty module.
var disabledModules = []string{
	"fs",
	"tls",
	"net",
	"path",
	"os",
	"child_process",
}

// polyfillPackages maps server-runtime modules to the browser package that
// provides the same interface. A trailing slash selects the package's own
// entry rather than a built-in of the same name.
var polyfillPackages = []struct {
	module    string
	specifier string
}{
	{"zlib", "browserify-zlib"},
	{"http", "stream-http"},
	{"https", "https-browserify"},
	{"stream", "stream-browserify"},
	{"util", "util/"},
	{"crypto", "crypto-browserify"},
	{"url", "url/"},
	{"assert", "assert/"},
}

const (
	// ProcessAlias is the alias key pointing the process global at its
	// browser polyfill, which keeps the global injection and React Refresh
	// from resolving "process" differently.
	ProcessAlias = "process"

	processSpecifier = "process/browser"
	bufferSpecifier  = "buffer/"
)

// Locator resolves a package specifier to an absolute file path, the way
// require.resolve does.
type Locator interface {
	Locate(specifier string) (string, error)
}

// ModuleNames returns the modules the override adds to the fallback table,
// disabled ones first.
func ModuleNames() []string {
	names := slices.Clone(disabledModules)
	for _, p := range polyfillPackages {
		names = append(names, p.module)
	}
	return names
}

// IsDisabled reports whether the override maps module to an empty stub.
func IsDisabled(module string) bool {
	return slices.Contains(disabledModules, module)
}

// Specifier returns the package specifier the override resolves for module.
func Specifier(module string) (string, bool) {
	for _, p := range polyfillPackages {
		if p.module == module {
			return p.specifier, true
		}
	}
	return "", false
}

// Specifiers returns every package specifier the override needs located,
// including the process and Buffer globals.
func Specifiers() []string {
	out := make([]string, 0, len(polyfillPackages)+2)
	for _, p := range polyfillPackages {
		out = append(out, p.specifier)
	}
	return append(out, processSpecifier, bufferSpecifier)
}

// Overrider applies the polyfill override with package paths resolved once
// up front.
type Overrider struct {
	fallback    map[string]Fallback
	processPath string
	bufferPath  string
}

// NewOverrider locates every polyfill package with loc.
func NewOverrider(loc Locator) (*Overrider, error) {
	o := &Overrider{
		fallback: make(map[string]Fallback, len(disabledModules)+len(polyfillPackages)),
	}
	for _, m := range disabledModules {
		o.fallback[m] = Disabled
	}
	for _, p := range polyfillPackages {
		path, err := loc.Locate(p.specifier)
		if err != nil {
			return nil, fmt.Errorf("locating %s polyfill: %w", p.module, err)
		}
		o.fallback[p.module] = PathFallback(path)
	}

	var err error
	if o.processPath, err = loc.Locate(processSpecifier); err != nil {
		return nil, fmt.Errorf("locating process polyfill: %w", err)
	}
	if o.bufferPath, err = loc.Locate(bufferSpecifier); err != nil {
		return nil, fmt.Errorf("locating buffer polyfill: %w", err)
	}
	return o, nil
}

// ProcessPath is the resolved path of the process polyfill.
func (o *Overrider) ProcessPath() string { return o.processPath }

// BufferPath is the resolved path of the buffer polyfill.
func (o *Overrider) BufferPath() string { return o.bufferPath }

// Fallback returns the entry the override sets for module.
func (o *Overrider) Fallback(module string) (Fallback, bool) {
	fb, ok := o.fallback[module]
	return fb, ok
}
