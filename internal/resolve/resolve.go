package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// extensions probed, in order, when a specifier names a file without one.
var extensions = []string{".js", ".cjs", ".mjs", ".json"}

// NotFoundError is returned when no search directory contains the package.
type NotFoundError struct {
	Specifier string
	Searched  []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cannot find module %q (searched %s)", e.Specifier, strings.Join(e.Searched, ", "))
}

// NodeModules locates packages the way require.resolve does from Dir: each
// node_modules directory from Dir up to the filesystem root, then NodePaths.
type NodeModules struct {
	Dir       string
	NodePaths []string
}

// New returns a NodeModules rooted at dir.
func New(dir string, nodePaths ...string) *NodeModules {
	return &NodeModules{Dir: dir, NodePaths: nodePaths}
}

// Locate returns the absolute path of the file specifier resolves to.
// "pkg" and "pkg/" load the package entry, "pkg/sub" loads a file or
// directory inside the package.
func (n *NodeModules) Locate(specifier string) (string, error) {
	name, sub, err := splitSpecifier(specifier)
	if err != nil {
		return "", err
	}
	dirs, err := n.searchDirs()
	if err != nil {
		return "", err
	}

	for _, dir := range dirs {
		pkgDir := filepath.Join(dir, filepath.FromSlash(name))
		if !isDir(pkgDir) {
			continue
		}
		var found string
		if sub == "" {
			found, err = loadDirectory(pkgDir)
		} else {
			target := filepath.Join(pkgDir, filepath.FromSlash(sub))
			if found = loadFile(target); found == "" {
				found, err = loadDirectory(target)
			}
		}
		if err != nil {
			return "", fmt.Errorf("resolving %q: %w", specifier, err)
		}
		if found != "" {
			return found, nil
		}
	}
	return "", &NotFoundError{Specifier: specifier, Searched: dirs}
}

// searchDirs lists node_modules directories from Dir upward, then NodePaths.
func (n *NodeModules) searchDirs() ([]string, error) {
	start := n.Dir
	if start == "" {
		start = "."
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolving base dir: %w", err)
	}

	var dirs []string
	for dir := abs; ; {
		if filepath.Base(dir) != "node_modules" {
			dirs = append(dirs, filepath.Join(dir, "node_modules"))
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	for _, p := range n.NodePaths {
		if p, err := filepath.Abs(p); err == nil {
			dirs = append(dirs, p)
		}
	}
	return dirs, nil
}

// splitSpecifier separates the package name (including a scope) from the
// subpath. A trailing slash leaves the subpath empty.
func splitSpecifier(spec string) (name, sub string, err error) {
	trimmed := strings.TrimSuffix(spec, "/")
	if trimmed == "" || strings.HasPrefix(trimmed, ".") || filepath.IsAbs(trimmed) {
		return "", "", fmt.Errorf("not a package specifier: %q", spec)
	}
	parts := strings.SplitN(trimmed, "/", 3)
	if strings.HasPrefix(trimmed, "@") {
		if len(parts) < 2 {
			return "", "", fmt.Errorf("scoped specifier without a name: %q", spec)
		}
		name = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			sub = parts[2]
		}
		return name, sub, nil
	}
	name, sub, _ = strings.Cut(trimmed, "/")
	return name, sub, nil
}

type packageJSON struct {
	Main    string          `json:"main"`
	Browser json.RawMessage `json:"browser"`
}

// loadDirectory resolves a package directory through package.json's
// browser (string form) and main fields, then index files.
func loadDirectory(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	switch {
	case err == nil:
		var pkg packageJSON
		if err := json.Unmarshal(data, &pkg); err != nil {
			return "", fmt.Errorf("parsing %s: %w", filepath.Join(dir, "package.json"), err)
		}
		var browser string
		_ = json.Unmarshal(pkg.Browser, &browser) // object form is a module map, not an entry
		for _, entry := range []string{browser, pkg.Main} {
			if entry == "" {
				continue
			}
			target := filepath.Join(dir, filepath.FromSlash(entry))
			if found := loadFile(target); found != "" {
				return found, nil
			}
			if found := loadIndex(target); found != "" {
				return found, nil
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", err
	}
	return loadIndex(dir), nil
}

func loadFile(path string) string {
	if isFile(path) {
		return path
	}
	for _, ext := range extensions {
		if isFile(path + ext) {
			return path + ext
		}
	}
	return ""
}

func loadIndex(dir string) string {
	for _, ext := range extensions {
		p := filepath.Join(dir, "index"+ext)
		if isFile(p) {
			return p
		}
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
