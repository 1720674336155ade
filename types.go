package polyfill

import (
	"maps"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// Environment is the build mode label the host passes along with the config.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Test        Environment = "test"
)

// Fallback is a fallback-table entry: either a resolved file path or the
// disabled marker, which makes the module resolve to an empty stub.
type Fallback struct {
	Path     string
	Disabled bool
}

// Disabled is the fallback value for modules with no browser equivalent.
var Disabled = Fallback{Disabled: true}

// PathFallback returns a fallback entry pointing at a resolved file.
func PathFallback(path string) Fallback {
	return Fallback{Path: path}
}

func (f Fallback) String() string {
	if f.Disabled {
		return "false"
	}
	return f.Path
}

// ResolveConfig holds the module-resolution tables of a BuildConfig.
type ResolveConfig struct {
	Fallback map[string]Fallback // module name -> polyfill path or Disabled
	Alias    map[string]string   // module name -> replacement module or path
}

// BuildConfig is the bundler configuration the override operates on.
// Resolve is required.
type BuildConfig struct {
	Resolve *ResolveConfig
	Plugins []Plugin
}

// Plugin is an entry of BuildConfig.Plugins.
type Plugin interface {
	PluginName() string
}

// ProvideTarget names the module export bound to a global identifier.
// An empty Export binds the module's default export.
type ProvideTarget struct {
	Module string
	Export string
}

// ProvidePlugin binds global identifiers to module exports at bundle scope,
// so code can use them without importing.
type ProvidePlugin struct {
	Globals map[string]ProvideTarget
}

func (p *ProvidePlugin) PluginName() string { return "provide" }

// EsbuildPlugin carries a host esbuild plugin through the config unchanged.
type EsbuildPlugin struct {
	Plugin esbuild.Plugin
}

func (p *EsbuildPlugin) PluginName() string { return p.Plugin.Name }

// Clone returns a copy of c whose tables and plugin list can be modified
// without affecting c. Plugin values themselves are shared. A nil Resolve
// stays nil; nil tables inside a present Resolve become empty maps.
func (c *BuildConfig) Clone() *BuildConfig {
	if c == nil {
		return nil
	}
	out := &BuildConfig{
		Plugins: make([]Plugin, len(c.Plugins), len(c.Plugins)+1),
	}
	copy(out.Plugins, c.Plugins)
	if c.Resolve != nil {
		out.Resolve = &ResolveConfig{
			Fallback: make(map[string]Fallback, len(c.Resolve.Fallback)+len(disabledModules)+len(polyfillPackages)),
			Alias:    make(map[string]string, len(c.Resolve.Alias)+1),
		}
		maps.Copy(out.Resolve.Fallback, c.Resolve.Fallback)
		maps.Copy(out.Resolve.Alias, c.Resolve.Alias)
	}
	return out
}
