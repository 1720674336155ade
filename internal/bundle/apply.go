package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
	log "github.com/sirupsen/logrus"

	polyfill "github.com/cryguy/polyfill"
)

// Apply translates cfg onto a copy of opts: the fallback and alias tables
// become a resolve plugin placed ahead of the host plugins, each
// ProvidePlugin becomes an injected shim file, and EsbuildPlugins are
// appended in config order. The returned cleanup removes the shim files and
// must be called once the build has finished.
func Apply(cfg *polyfill.BuildConfig, opts esbuild.BuildOptions) (esbuild.BuildOptions, func(), error) {
	noop := func() {}
	if err := polyfill.Validate(cfg); err != nil {
		return opts, noop, err
	}
	snap := cfg.Clone()

	out := opts
	out.Plugins = []esbuild.Plugin{resolvePlugin(&tables{
		fallback: snap.Resolve.Fallback,
		alias:    snap.Resolve.Alias,
	})}
	out.Plugins = append(out.Plugins, opts.Plugins...)
	out.Inject = slices.Clone(opts.Inject)

	var shimDir string
	cleanup := func() {
		if shimDir != "" {
			_ = os.RemoveAll(shimDir)
		}
	}

	for i, p := range snap.Plugins {
		switch p := p.(type) {
		case *polyfill.EsbuildPlugin:
			out.Plugins = append(out.Plugins, p.Plugin)
		case *polyfill.ProvidePlugin:
			if len(p.Globals) == 0 {
				continue
			}
			if shimDir == "" {
				dir, err := os.MkdirTemp("", "polyfill-inject-*")
				if err != nil {
					return opts, noop, fmt.Errorf("creating inject dir: %w", err)
				}
				shimDir = dir
			}
			path := filepath.Join(shimDir, fmt.Sprintf("provide-%d.js", i))
			if err := os.WriteFile(path, []byte(provideShim(p)), 0644); err != nil {
				cleanup()
				return opts, noop, fmt.Errorf("writing inject shim: %w", err)
			}
			log.WithFields(log.Fields{"shim": path, "globals": len(p.Globals)}).Debug("injecting globals")
			out.Inject = append(out.Inject, path)
		default:
			cleanup()
			return opts, noop, fmt.Errorf("plugins[%d]: unsupported plugin type %T", i, p)
		}
	}
	return out, cleanup, nil
}

// provideShim renders an inject file exporting each global under its own
// name, which esbuild binds wherever bundled code uses it as a free
// identifier.
func provideShim(p *polyfill.ProvidePlugin) string {
	names := make([]string, 0, len(p.Globals))
	for name := range p.Globals {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	for i, name := range names {
		target := p.Globals[name]
		module := filepath.ToSlash(target.Module)
		local := fmt.Sprintf("__provide_%d", i)
		if target.Export == "" {
			fmt.Fprintf(&b, "import %s from %q;\n", local, module)
		} else {
			fmt.Fprintf(&b, "import { %s as %s } from %q;\n", target.Export, local, module)
		}
		fmt.Fprintf(&b, "export { %s as %s };\n", local, name)
	}
	return b.String()
}
