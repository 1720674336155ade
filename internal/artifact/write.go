package artifact

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/andybalholm/brotli"
	esbuild "github.com/evanw/esbuild/pkg/api"
)

// compressible lists the output extensions that get precompressed siblings.
var compressible = []string{".js", ".css", ".html", ".map", ".json"}

// Encodings written next to each compressible output, by file suffix.
var encodings = []struct {
	suffix    string
	newWriter func(io.Writer) io.WriteCloser
}{
	{".gz", func(w io.Writer) io.WriteCloser {
		zw, _ := gzip.NewWriterLevel(w, gzip.BestCompression)
		return zw
	}},
	{".br", func(w io.Writer) io.WriteCloser {
		return brotli.NewWriterLevel(w, brotli.BestCompression)
	}},
}

// WriteOutputs writes esbuild output files to disk. With compress set, each
// compressible output also gets .gz and .br siblings. It returns every path
// written.
func WriteOutputs(files []esbuild.OutputFile, compress bool) ([]string, error) {
	var written []string
	for _, f := range files {
		if err := writeFile(f.Path, f.Contents); err != nil {
			return written, err
		}
		written = append(written, f.Path)

		if !compress || !slices.Contains(compressible, filepath.Ext(f.Path)) {
			continue
		}
		for _, enc := range encodings {
			data, err := Compress(f.Contents, enc.newWriter)
			if err != nil {
				return written, fmt.Errorf("compressing %s: %w", f.Path, err)
			}
			path := f.Path + enc.suffix
			if err := writeFile(path, data); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}

// Compress runs data through a writer created by newWriter.
func Compress(data []byte, newWriter func(io.Writer) io.WriteCloser) ([]byte, error) {
	var buf bytes.Buffer
	w := newWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
