package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	polyfill "github.com/cryguy/polyfill"
	"github.com/cryguy/polyfill/internal/fixture"
	"github.com/cryguy/polyfill/internal/resolve"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	dir := t.TempDir()

	p, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if p.File.Entry != DefaultEntry || p.File.Outdir != DefaultOutdir {
		t.Errorf("defaults not applied: %+v", p.File)
	}
	if p.Environment != polyfill.Development {
		t.Errorf("Environment = %q, want development", p.Environment)
	}
	if p.Dir != dir {
		t.Errorf("Dir = %q, want %q", p.Dir, dir)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv("NODE_ENV", "")
	dir := t.TempDir()
	fixture.WriteFile(t, dir, FileName, `entry: app/main.js
outdir: dist
html: public/index.html
compress: true
fallback:
  vm: vm-browserify
  worker_threads: false
alias:
  react: ./vendor/preact.js
`)
	fixture.WriteFile(t, dir, EnvFileName, "NODE_ENV=production\nAPI_URL=https://api.example.com\n")

	p, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := File{
		Entry:    "app/main.js",
		Outdir:   "dist",
		HTML:     "public/index.html",
		Compress: true,
		Fallback: map[string]FallbackValue{
			"vm":             {Specifier: "vm-browserify"},
			"worker_threads": {Disabled: true},
		},
		Alias: map[string]string{"react": "./vendor/preact.js"},
	}
	if diff := cmp.Diff(want, p.File); diff != "" {
		t.Errorf("file mismatch (-want +got):\n%s", diff)
	}
	if p.Environment != polyfill.Production {
		t.Errorf("Environment = %q, want production", p.Environment)
	}
	if p.Env["API_URL"] != "https://api.example.com" {
		t.Errorf("Env = %v", p.Env)
	}
}

func TestLoad_EnvironmentFromProcess(t *testing.T) {
	t.Setenv("NODE_ENV", "test")
	dir := t.TempDir()
	fixture.WriteFile(t, dir, EnvFileName, "NODE_ENV=production\n")

	p, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if p.Environment != polyfill.Test {
		t.Errorf("Environment = %q, want test", p.Environment)
	}
}

func TestLoad_NodePath(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "shared")
	t.Setenv("NODE_PATH", strings.Join([]string{"vendor", "", abs}, string(filepath.ListSeparator)))

	p, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "vendor"), abs}
	if diff := cmp.Diff(want, p.NodePaths); diff != "" {
		t.Errorf("NodePaths mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name, contents, want string
	}{
		{"unknown key", "entyr: src/main.js\n", "entyr"},
		{"fallback true", "fallback:\n  fs: true\n", "not allowed"},
		{"fallback list", "fallback:\n  fs: [a, b]\n", "module specifier or false"},
		{"empty specifier", "fallback:\n  fs: \"\"\n", "empty fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			fixture.WriteFile(t, dir, FileName, tt.contents)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	nm := fixture.WriteNodeModules(t, dir)
	fixture.WriteFile(t, dir, "node_modules/vm-browserify/index.js", `exports.runInThisContext = function () {};`)

	p := &Project{
		Dir: dir,
		File: File{
			Fallback: map[string]FallbackValue{
				"vm":     {Specifier: "vm-browserify"},
				"crypto": {Disabled: true},
			},
			Alias: map[string]string{"react": "./vendor/preact.js"},
		},
	}

	o, err := polyfill.NewOverrider(resolve.New(dir))
	if err != nil {
		t.Fatal(err)
	}
	base, err := o.Override(&polyfill.BuildConfig{Resolve: &polyfill.ResolveConfig{}}, polyfill.Development)
	if err != nil {
		t.Fatal(err)
	}

	got, err := p.Apply(base, resolve.New(dir))
	if err != nil {
		t.Fatal(err)
	}
	if fb := got.Resolve.Fallback["vm"]; fb.Path != filepath.Join(nm, "vm-browserify", "index.js") {
		t.Errorf("vm fallback = %v", fb)
	}
	if !got.Resolve.Fallback["crypto"].Disabled {
		t.Error("project config should override the crypto polyfill")
	}
	if got.Resolve.Alias["react"] != filepath.Join(dir, "vendor", "preact.js") {
		t.Errorf("react alias = %q", got.Resolve.Alias["react"])
	}
	if got.Resolve.Alias["process"] != o.ProcessPath() {
		t.Error("process alias should survive")
	}
	if base.Resolve.Fallback["crypto"].Disabled {
		t.Error("Apply modified its input")
	}
}

func TestApply_LocateError(t *testing.T) {
	p := &Project{Dir: t.TempDir(), File: File{Fallback: map[string]FallbackValue{"vm": {Specifier: "vm-browserify"}}}}
	_, err := p.Apply(&polyfill.BuildConfig{Resolve: &polyfill.ResolveConfig{}}, resolve.New(p.Dir))
	if err == nil || !strings.Contains(err.Error(), "fallback vm") {
		t.Errorf("expected locate error naming the entry, got %v", err)
	}
}
