package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	polyfill "github.com/cryguy/polyfill"
)

const (
	// FileName is the optional project config file.
	FileName = "polyfill.yaml"
	// EnvFileName is the optional dotenv file read alongside it.
	EnvFileName = ".env"

	DefaultEntry  = "src/index.js"
	DefaultOutdir = "build"
)

// FallbackValue is a fallback entry as written in the config file: a
// package specifier or path, or false.
type FallbackValue struct {
	Specifier string
	Disabled  bool
}

func (v *FallbackValue) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: fallback must be a module specifier or false", n.Line)
	}
	if n.Tag == "!!bool" {
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		if b {
			return fmt.Errorf("line %d: fallback true is not allowed, use a module specifier", n.Line)
		}
		v.Disabled = true
		return nil
	}
	if n.Value == "" {
		return fmt.Errorf("line %d: empty fallback specifier", n.Line)
	}
	v.Specifier = n.Value
	return nil
}

// File is the contents of polyfill.yaml.
type File struct {
	Entry    string                   `yaml:"entry"`
	Outdir   string                   `yaml:"outdir"`
	HTML     string                   `yaml:"html"`
	Compress bool                     `yaml:"compress"`
	Fallback map[string]FallbackValue `yaml:"fallback"`
	Alias    map[string]string        `yaml:"alias"`
}

// Project is a loaded project directory.
type Project struct {
	Dir         string
	File        File
	Env         map[string]string // values read from .env, not exported to the process
	Environment polyfill.Environment
	NodePaths   []string // NODE_PATH entries, searched after node_modules
}

// Load reads polyfill.yaml and .env from dir. Both files are optional.
func Load(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project dir: %w", err)
	}
	p := &Project{
		Dir: abs,
		File: File{
			Entry:  DefaultEntry,
			Outdir: DefaultOutdir,
		},
		Env: map[string]string{},
	}

	data, err := os.ReadFile(filepath.Join(abs, FileName))
	switch {
	case err == nil:
		if err := decode(data, &p.File); err != nil {
			return nil, fmt.Errorf("reading %s: %w", filepath.Join(abs, FileName), err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	envPath := filepath.Join(abs, EnvFileName)
	if _, err := os.Stat(envPath); err == nil {
		if p.Env, err = godotenv.Read(envPath); err != nil {
			return nil, fmt.Errorf("reading %s: %w", envPath, err)
		}
	}

	// The process environment wins over .env.
	p.Environment = polyfill.Development
	if v := os.Getenv("NODE_ENV"); v != "" {
		p.Environment = polyfill.Environment(v)
	} else if v := p.Env["NODE_ENV"]; v != "" {
		p.Environment = polyfill.Environment(v)
	}
	for _, np := range filepath.SplitList(os.Getenv("NODE_PATH")) {
		if np != "" {
			p.NodePaths = append(p.NodePaths, p.Path(np))
		}
	}
	return p, nil
}

func decode(data []byte, f *File) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Path resolves a project-relative path.
func (p *Project) Path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Dir, filepath.FromSlash(rel))
}

// Apply returns a copy of cfg with the project's fallback and alias entries
// merged in, replacing entries of the same name. Package specifiers are
// located with loc; relative paths are taken from the project dir.
func (p *Project) Apply(cfg *polyfill.BuildConfig, loc polyfill.Locator) (*polyfill.BuildConfig, error) {
	if err := polyfill.Validate(cfg); err != nil {
		return nil, err
	}
	out := cfg.Clone()

	for name, v := range p.File.Fallback {
		if v.Disabled {
			out.Resolve.Fallback[name] = polyfill.Disabled
			continue
		}
		path, err := p.target(v.Specifier, loc)
		if err != nil {
			return nil, fmt.Errorf("fallback %s: %w", name, err)
		}
		out.Resolve.Fallback[name] = polyfill.PathFallback(path)
	}
	for name, spec := range p.File.Alias {
		path, err := p.target(spec, loc)
		if err != nil {
			return nil, fmt.Errorf("alias %s: %w", name, err)
		}
		out.Resolve.Alias[name] = path
	}
	return out, nil
}

func (p *Project) target(spec string, loc polyfill.Locator) (string, error) {
	if filepath.IsAbs(spec) || strings.HasPrefix(spec, ".") {
		return p.Path(spec), nil
	}
	return loc.Locate(spec)
}
