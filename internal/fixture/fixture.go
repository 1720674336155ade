// Package fixture writes a minimal node_modules tree with stand-ins for the
// browser polyfill packages, for tests that resolve or bundle against them.
package fixture

import (
	"os"
	"path/filepath"
	"testing"
)

// Packages maps file paths under node_modules to their contents.
var Packages = map[string]string{
	"browserify-zlib/package.json": `{"name":"browserify-zlib","main":"lib/index.js"}`,
	"browserify-zlib/lib/index.js": `exports.name = "zlib";`,

	"stream-http/package.json": `{"name":"stream-http","main":"index.js"}`,
	"stream-http/index.js":     `exports.name = "http"; exports.request = function () { return null; };`,

	"https-browserify/index.js": `exports.name = "https";`,

	"stream-browserify/package.json": `{"name":"stream-browserify","main":"index"}`,
	"stream-browserify/index.js":     `exports.name = "stream"; exports.Readable = function Readable() {};`,

	"util/package.json": `{"name":"util","main":"./util.js","browser":{"./support/isBuffer.js":"./support/isBufferBrowser.js"}}`,
	"util/util.js":      `exports.name = "util"; exports.inspect = function (v) { return String(v); };`,

	"crypto-browserify/package.json": `{"name":"crypto-browserify","browser":"browser.js","main":"index.js"}`,
	"crypto-browserify/index.js":     `throw new Error("server entry loaded");`,
	"crypto-browserify/browser.js":   `exports.name = "crypto"; exports.randomBytes = function (n) { return new Array(n).fill(4); };`,

	"url/package.json": `{"name":"url","main":"./url.js"}`,
	"url/url.js":       `exports.name = "url"; exports.parse = function (s) { return { href: s }; };`,

	"assert/package.json":     `{"name":"assert","main":"build/assert.js"}`,
	"assert/build/assert.js": `module.exports = function assert(v) { if (!v) throw new Error("assertion failed"); }; module.exports.name = "assert";`,

	"process/package.json": `{"name":"process","main":"./index.js","browser":"./browser.js"}`,
	"process/index.js":     `module.exports = global.process;`,
	"process/browser.js": `var process = module.exports = {};
process.env = {};
process.browser = true;
process.title = "browser";
process.nextTick = function (fn) { Promise.resolve().then(fn); };
process.cwd = function () { return "/"; };`,

	"buffer/package.json": `{"name":"buffer","main":"index.js"}`,
	"buffer/index.js": `function Buffer(s) { this.value = String(s); this.length = this.value.length; }
Buffer.from = function (s) { return new Buffer(s); };
Buffer.isBuffer = function (b) { return b instanceof Buffer; };
Buffer.prototype.toString = function () { return this.value; };
exports.Buffer = Buffer;`,
}

// WriteNodeModules writes Packages into dir/node_modules and returns that
// directory.
func WriteNodeModules(t testing.TB, dir string) string {
	t.Helper()
	root := filepath.Join(dir, "node_modules")
	for name, contents := range Packages {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// WriteFile writes contents to dir/name, creating parent directories.
func WriteFile(t testing.TB, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}
