package bundle

import (
	"regexp"
	"slices"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"

	polyfill "github.com/cryguy/polyfill"
)

const (
	pluginName = "polyfill-resolve"

	// EmptyNamespace holds the stub modules disabled fallbacks resolve to.
	EmptyNamespace = "polyfill-empty"

	emptyModule = "module.exports = {};\n"
)

// reentry marks resolutions the plugin starts itself, so its own OnResolve
// callback lets them through to esbuild's resolver.
type reentry struct{}

// tables is an immutable snapshot of the resolve config shared by the
// plugin callbacks, which esbuild may run concurrently.
type tables struct {
	fallback map[string]polyfill.Fallback
	alias    map[string]string
}

// filter matches every request the tables could apply to, with an optional
// node: prefix and subpath.
func (t *tables) filter() string {
	keys := make([]string, 0, len(t.fallback)+len(t.alias))
	for k := range t.fallback {
		keys = append(keys, regexp.QuoteMeta(k))
	}
	for k := range t.alias {
		keys = append(keys, regexp.QuoteMeta(k))
	}
	if len(keys) == 0 {
		return ""
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)
	return `^(?:node:)?(?:` + strings.Join(keys, "|") + `)(?:/.*)?$`
}

// lookup finds the longest key of m that is path or a slash-separated
// prefix of it, and returns the remaining subpath.
func lookup[V any](m map[string]V, path string) (key, rest string, v V, ok bool) {
	for key = path; key != ""; {
		if v, ok = m[key]; ok {
			return key, strings.TrimPrefix(strings.TrimPrefix(path, key), "/"), v, true
		}
		i := strings.LastIndexByte(key, '/')
		if i < 0 {
			break
		}
		key = key[:i]
	}
	return "", "", v, false
}

func resolvePlugin(t *tables) esbuild.Plugin {
	return esbuild.Plugin{
		Name: pluginName,
		Setup: func(build esbuild.PluginBuild) {
			build.OnLoad(esbuild.OnLoadOptions{Filter: ".*", Namespace: EmptyNamespace},
				func(args esbuild.OnLoadArgs) (esbuild.OnLoadResult, error) {
					contents := emptyModule
					return esbuild.OnLoadResult{Contents: &contents, Loader: esbuild.LoaderJS}, nil
				})

			filter := t.filter()
			if filter == "" {
				return
			}
			build.OnResolve(esbuild.OnResolveOptions{Filter: filter},
				func(args esbuild.OnResolveArgs) (esbuild.OnResolveResult, error) {
					if _, ok := args.PluginData.(reentry); ok {
						return esbuild.OnResolveResult{}, nil
					}
					return t.resolve(build, args), nil
				})
		},
	}
}

func (t *tables) resolve(build esbuild.PluginBuild, args esbuild.OnResolveArgs) esbuild.OnResolveResult {
	request := strings.TrimPrefix(args.Path, "node:")

	// An alias that fails to resolve falls through to the fallback table and
	// normal resolution, so "process/browser" still works next to a
	// "process" alias pointing at a file.
	if _, rest, target, ok := lookup(t.alias, request); ok {
		if rest != "" {
			target = strings.TrimSuffix(target, "/") + "/" + rest
		}
		if res := build.Resolve(target, reresolveOptions(args)); len(res.Errors) == 0 {
			return fromResolveResult(res)
		}
	}

	key, rest, fb, ok := lookup(t.fallback, request)
	if !ok || (!fb.Disabled && rest != "") {
		return esbuild.OnResolveResult{}
	}

	// Fallbacks only apply when normal resolution fails.
	if res := build.Resolve(args.Path, reresolveOptions(args)); len(res.Errors) == 0 {
		return fromResolveResult(res)
	}
	if fb.Disabled {
		return esbuild.OnResolveResult{
			Path:        key,
			Namespace:   EmptyNamespace,
			SideEffects: esbuild.SideEffectsFalse,
		}
	}
	return esbuild.OnResolveResult{Path: fb.Path}
}

func reresolveOptions(args esbuild.OnResolveArgs) esbuild.ResolveOptions {
	return esbuild.ResolveOptions{
		Importer:   args.Importer,
		Namespace:  args.Namespace,
		ResolveDir: args.ResolveDir,
		Kind:       args.Kind,
		PluginData: reentry{},
	}
}

func fromResolveResult(res esbuild.ResolveResult) esbuild.OnResolveResult {
	out := esbuild.OnResolveResult{
		Path:      res.Path,
		External:  res.External,
		Namespace: res.Namespace,
		Suffix:    res.Suffix,
		Warnings:  res.Warnings,
	}
	if !res.SideEffects {
		out.SideEffects = esbuild.SideEffectsFalse
	}
	return out
}
