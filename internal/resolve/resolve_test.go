package resolve

import (
	"errors"
	"path/filepath"
	"testing"

	polyfill "github.com/cryguy/polyfill"
	"github.com/cryguy/polyfill/internal/fixture"
)

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	nm := fixture.WriteNodeModules(t, dir)

	tests := []struct {
		specifier string
		want      string
	}{
		{"browserify-zlib", "browserify-zlib/lib/index.js"},
		{"stream-http", "stream-http/index.js"},
		{"https-browserify", "https-browserify/index.js"},
		{"stream-browserify", "stream-browserify/index.js"},
		{"util/", "util/util.js"},
		{"crypto-browserify", "crypto-browserify/browser.js"},
		{"url/", "url/url.js"},
		{"assert/", "assert/build/assert.js"},
		{"process/browser", "process/browser.js"},
		{"process", "process/browser.js"},
		{"buffer/", "buffer/index.js"},
		{"buffer/index.js", "buffer/index.js"},
	}

	loc := New(dir)
	for _, tt := range tests {
		t.Run(tt.specifier, func(t *testing.T) {
			got, err := loc.Locate(tt.specifier)
			if err != nil {
				t.Fatal(err)
			}
			want := filepath.Join(nm, filepath.FromSlash(tt.want))
			if got != want {
				t.Errorf("Locate(%q) = %q, want %q", tt.specifier, got, want)
			}
		})
	}
}

func TestLocate_FromNestedDir(t *testing.T) {
	dir := t.TempDir()
	nm := fixture.WriteNodeModules(t, dir)
	nested := filepath.Join(dir, "src", "components")

	got, err := New(nested).Locate("stream-http")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(nm, "stream-http", "index.js"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLocate_NodePaths(t *testing.T) {
	dir := t.TempDir()
	fixture.WriteFile(t, dir, "vendor/leftpad/index.js", `module.exports = function () {};`)

	got, err := New(t.TempDir(), filepath.Join(dir, "vendor")).Locate("leftpad")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "vendor", "leftpad", "index.js"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLocate_Scoped(t *testing.T) {
	dir := t.TempDir()
	fixture.WriteFile(t, dir, "node_modules/@scope/pkg/package.json", `{"main":"dist/main.cjs"}`)
	fixture.WriteFile(t, dir, "node_modules/@scope/pkg/dist/main.cjs", `module.exports = 1;`)
	fixture.WriteFile(t, dir, "node_modules/@scope/pkg/extra/index.mjs", `export default 2;`)

	loc := New(dir)
	got, err := loc.Locate("@scope/pkg")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "node_modules", "@scope", "pkg", "dist", "main.cjs"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	got, err = loc.Locate("@scope/pkg/extra")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "node_modules", "@scope", "pkg", "extra", "index.mjs"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLocate_NotFound(t *testing.T) {
	_, err := New(t.TempDir()).Locate("crypto-browserify")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if nf.Specifier != "crypto-browserify" || len(nf.Searched) == 0 {
		t.Errorf("unexpected error contents: %+v", nf)
	}
}

func TestLocate_BadPackageJSON(t *testing.T) {
	dir := t.TempDir()
	fixture.WriteFile(t, dir, "node_modules/broken/package.json", `{"main":`)

	_, err := New(dir).Locate("broken")
	if err == nil {
		t.Fatal("expected parse error")
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		t.Error("parse failure should not be reported as not found")
	}
}

func TestLocate_InvalidSpecifier(t *testing.T) {
	for _, spec := range []string{"", "./local", "../up", "/abs/path", "@scope"} {
		if _, err := New(t.TempDir()).Locate(spec); err == nil {
			t.Errorf("Locate(%q) should fail", spec)
		}
	}
}

func TestNodeModulesAsOverrideLocator(t *testing.T) {
	dir := t.TempDir()
	nm := fixture.WriteNodeModules(t, dir)

	o, err := polyfill.NewOverrider(New(dir))
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(nm, "process", "browser.js"); o.ProcessPath() != want {
		t.Errorf("ProcessPath() = %q, want %q", o.ProcessPath(), want)
	}
	fb, ok := o.Fallback("crypto")
	if !ok || fb.Path != filepath.Join(nm, "crypto-browserify", "browser.js") {
		t.Errorf("crypto fallback = %v", fb)
	}
}
