package bundle

import (
	"context"
	"strconv"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
	log "github.com/sirupsen/logrus"

	polyfill "github.com/cryguy/polyfill"
)

// BuildError carries every error esbuild reported for a build.
type BuildError struct {
	Messages []esbuild.Message
}

func (e *BuildError) Error() string {
	msgs := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		msgs = append(msgs, m.Text)
	}
	return "bundling: " + strings.Join(msgs, "; ")
}

// Result is a finished build.
type Result struct {
	OutputFiles []esbuild.OutputFile
	Warnings    []esbuild.Message
	Report      *Report
}

// Options returns the host build options for env. Production builds are
// minified; other environments keep inline source maps. Both define
// process.env.NODE_ENV.
func Options(env polyfill.Environment, dir string, entryPoints []string, outdir string) esbuild.BuildOptions {
	if env == "" {
		env = polyfill.Development
	}
	opts := esbuild.BuildOptions{
		EntryPoints:   entryPoints,
		AbsWorkingDir: dir,
		Outdir:        outdir,
		Bundle:        true,
		Write:         false,
		Metafile:      true,
		Format:        esbuild.FormatIIFE,
		Platform:      esbuild.PlatformBrowser,
		Target:        esbuild.ES2020,
		LogLevel:      esbuild.LogLevelSilent,
		Define: map[string]string{
			"process.env.NODE_ENV": strconv.Quote(string(env)),
			"global":               "globalThis",
		},
	}
	if env == polyfill.Production {
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	} else {
		opts.Sourcemap = esbuild.SourceMapInline
	}
	return opts
}

// Build applies cfg to opts and runs esbuild. Cancelling ctx cancels the
// build in flight.
func Build(ctx context.Context, cfg *polyfill.BuildConfig, opts esbuild.BuildOptions) (*Result, error) {
	opts.Metafile = true
	applied, cleanup, err := Apply(cfg, opts)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bctx, cerr := esbuild.Context(applied)
	if cerr != nil {
		return nil, &BuildError{Messages: cerr.Errors}
	}
	defer bctx.Dispose()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			bctx.Cancel()
		case <-done:
		}
	}()

	result := bctx.Rebuild()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		return nil, &BuildError{Messages: result.Errors}
	}

	report, err := NewReport(result.Metafile, opts.AbsWorkingDir, cfg.Resolve.Fallback)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"outputs":   len(result.OutputFiles),
		"warnings":  len(result.Warnings),
		"polyfills": len(report.Polyfills),
		"stubs":     len(report.Stubs),
	}).Debug("bundle built")

	return &Result{
		OutputFiles: result.OutputFiles,
		Warnings:    result.Warnings,
		Report:      report,
	}, nil
}
