package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	esbuild "github.com/evanw/esbuild/pkg/api"
	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	polyfill "github.com/cryguy/polyfill"
	"github.com/cryguy/polyfill/internal/artifact"
	"github.com/cryguy/polyfill/internal/bundle"
	"github.com/cryguy/polyfill/internal/config"
	"github.com/cryguy/polyfill/internal/jscheck"
	"github.com/cryguy/polyfill/internal/resolve"
	"github.com/cryguy/polyfill/internal/watch"
)

type options struct {
	dir      string
	outdir   string
	env      string
	html     string
	compress bool
	check    bool
	watch    bool
	verbose  bool
	entry    string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("polyfill-bundle", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: polyfill-bundle [flags] [entry]\n\n")
		fs.PrintDefaults()
	}

	o := &options{}
	fs.StringVarP(&o.dir, "dir", "C", ".", "project directory")
	fs.StringVarP(&o.outdir, "outdir", "o", "", "output directory (default from polyfill.yaml, then \"build\")")
	fs.StringVarP(&o.env, "env", "e", "", "build environment (default NODE_ENV, then \"development\")")
	fs.StringVar(&o.html, "html", "", "HTML page to copy into the output with the bundle script added")
	fs.BoolVar(&o.compress, "compress", false, "write .gz and .br siblings (always on for production)")
	fs.BoolVar(&o.check, "check", false, "evaluate the bundle in an embedded JS engine after building")
	fs.BoolVarP(&o.watch, "watch", "w", false, "rebuild when the entry, polyfill.yaml or .env changes")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		o.entry = fs.Arg(0)
	default:
		fs.Usage()
		return nil, fmt.Errorf("expected at most one entry point, got %d", fs.NArg())
	}
	return o, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.WithFields(log.Fields{"err": err}).Error("build failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	log.SetOutput(stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if o.verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	if err := buildOnce(ctx, o, stderr); err != nil {
		if !o.watch {
			return err
		}
		log.WithFields(log.Fields{"err": err}).Error("build failed, waiting for changes")
	}
	if !o.watch {
		return nil
	}

	project, err := config.Load(o.dir)
	if err != nil {
		return err
	}
	files := []string{
		project.Path(config.FileName),
		project.Path(config.EnvFileName),
		project.Path(entryOf(o, project)),
	}
	log.WithFields(log.Fields{"files": files}).Info("watching for changes")
	return watch.Watch(ctx, files, func(path string) {
		log.WithFields(log.Fields{"file": path}).Info("rebuilding")
		if err := buildOnce(ctx, o, stderr); err != nil {
			log.WithFields(log.Fields{"err": err}).Error("build failed")
		}
	})
}

func entryOf(o *options, p *config.Project) string {
	if o.entry != "" {
		return o.entry
	}
	return p.File.Entry
}

// buildOnce loads the project, applies the polyfill override and writes
// the bundle.
func buildOnce(ctx context.Context, o *options, stderr io.Writer) error {
	project, err := config.Load(o.dir)
	if err != nil {
		return err
	}
	env := project.Environment
	if o.env != "" {
		env = polyfill.Environment(o.env)
	}
	outdir := project.File.Outdir
	if o.outdir != "" {
		outdir = o.outdir
	}
	htmlPage := project.File.HTML
	if o.html != "" {
		htmlPage = o.html
	}
	compress := o.compress || project.File.Compress || env == polyfill.Production

	loc := resolve.New(project.Dir, project.NodePaths...)
	overrider, err := polyfill.NewOverrider(loc)
	if err != nil {
		return fmt.Errorf("%w (install with: npm install %s)", err, installHint())
	}
	logPolyfills(overrider)
	cfg, err := overrider.Override(&polyfill.BuildConfig{Resolve: &polyfill.ResolveConfig{}}, env)
	if err != nil {
		return err
	}
	if cfg, err = project.Apply(cfg, loc); err != nil {
		return err
	}

	entry := project.Path(entryOf(o, project))
	opts := bundle.Options(env, project.Dir, []string{entry}, project.Path(outdir))
	opts.NodePaths = project.NodePaths
	log.WithFields(log.Fields{"entry": entry, "env": env, "outdir": opts.Outdir}).Info("building")

	res, err := bundle.Build(ctx, cfg, opts)
	if err != nil {
		var be *bundle.BuildError
		if errors.As(err, &be) {
			printMessages(stderr, color.New(color.FgRed, color.Bold), "error", be.Messages)
		}
		return err
	}
	printMessages(stderr, color.New(color.FgYellow), "warning", res.Warnings)

	if o.check {
		for _, f := range res.OutputFiles {
			if filepath.Ext(f.Path) != ".js" {
				continue
			}
			if err := jscheck.Check(string(f.Contents)); err != nil {
				return fmt.Errorf("checking %s: %w", f.Path, err)
			}
			log.WithFields(log.Fields{"file": f.Path}).Info("bundle evaluated cleanly")
		}
	}

	written, err := artifact.WriteOutputs(res.OutputFiles, compress)
	if err != nil {
		return err
	}
	if htmlPage != "" {
		page, err := writeHTML(project.Path(htmlPage), opts.Outdir, res.OutputFiles, compress)
		if err != nil {
			return err
		}
		written = append(written, page...)
	}

	log.WithFields(log.Fields{
		"files":     len(written),
		"polyfills": strings.Join(sortedKeys(res.Report.Polyfills), ","),
		"stubs":     strings.Join(res.Report.Stubs, ","),
	}).Info("build complete")
	return nil
}

// installHint lists the npm packages the fallback table and the injected
// globals need.
func installHint() string {
	var pkgs []string
	for _, spec := range polyfill.Specifiers() {
		pkg := strings.TrimSuffix(spec, "/")
		if i := strings.Index(pkg, "/"); i > 0 {
			pkg = pkg[:i]
		}
		if !slices.Contains(pkgs, pkg) {
			pkgs = append(pkgs, pkg)
		}
	}
	return strings.Join(pkgs, " ")
}

func logPolyfills(o *polyfill.Overrider) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	for _, module := range polyfill.ModuleNames() {
		if polyfill.IsDisabled(module) {
			log.WithFields(log.Fields{"module": module}).Debug("stubbed")
			continue
		}
		spec, _ := polyfill.Specifier(module)
		fb, _ := o.Fallback(module)
		log.WithFields(log.Fields{"module": module, "package": spec, "path": fb.Path}).Debug("polyfilled")
	}
	log.WithFields(log.Fields{"process": o.ProcessPath(), "Buffer": o.BufferPath()}).Debug("provided globals")
}

// writeHTML copies the page into outdir with a script tag for every JS
// output.
func writeHTML(page, outdir string, files []esbuild.OutputFile, compress bool) ([]string, error) {
	data, err := os.ReadFile(page)
	if err != nil {
		return nil, fmt.Errorf("reading html page: %w", err)
	}
	doc := string(data)
	for _, f := range files {
		if filepath.Ext(f.Path) != ".js" {
			continue
		}
		rel, err := filepath.Rel(outdir, f.Path)
		if err != nil {
			return nil, fmt.Errorf("locating %s: %w", f.Path, err)
		}
		if doc, err = artifact.InjectScript(doc, "./"+filepath.ToSlash(rel)); err != nil {
			return nil, err
		}
	}
	out := esbuild.OutputFile{Path: filepath.Join(outdir, filepath.Base(page)), Contents: []byte(doc)}
	return artifact.WriteOutputs([]esbuild.OutputFile{out}, compress)
}

func printMessages(w io.Writer, c *color.Color, kind string, msgs []esbuild.Message) {
	for _, m := range msgs {
		loc := ""
		if m.Location != nil {
			loc = fmt.Sprintf("%s:%d:%d: ", m.Location.File, m.Location.Line, m.Location.Column)
		}
		c.Fprintf(w, "%s: ", kind)
		fmt.Fprintf(w, "%s%s\n", loc, m.Text)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
