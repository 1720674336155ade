package bundle

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	polyfill "github.com/cryguy/polyfill"
)

// metafile is the subset of esbuild's metafile JSON the report reads.
type metafile struct {
	Inputs  map[string]metafileInput  `json:"inputs"`
	Outputs map[string]metafileOutput `json:"outputs"`
}

type metafileInput struct {
	Bytes int `json:"bytes"`
}

type metafileOutput struct {
	Bytes  int `json:"bytes"`
	Inputs map[string]struct {
		BytesInOutput int `json:"bytesInOutput"`
	} `json:"inputs"`
}

// Report says which fallback entries a bundle actually reached.
type Report struct {
	Polyfills  map[string]int // module -> bytes the polyfill entry contributes to outputs
	Stubs      []string       // disabled modules imported somewhere, sorted
	InputBytes int
	OutputSize map[string]int // output path -> bytes
}

// NewReport decodes an esbuild metafile. dir is the build's working
// directory, which metafile paths are relative to.
func NewReport(meta, dir string, fallback map[string]polyfill.Fallback) (*Report, error) {
	r := &Report{
		Polyfills:  map[string]int{},
		OutputSize: map[string]int{},
	}
	if meta == "" {
		return r, nil
	}
	var mf metafile
	if err := json.Unmarshal([]byte(meta), &mf); err != nil {
		return nil, fmt.Errorf("decoding metafile: %w", err)
	}

	byPath := make(map[string]string, len(fallback))
	for name, fb := range fallback {
		if !fb.Disabled {
			byPath[filepath.Clean(fb.Path)] = name
		}
	}

	contributed := map[string]int{}
	for out, o := range mf.Outputs {
		r.OutputSize[out] = o.Bytes
		for in, c := range o.Inputs {
			contributed[in] += c.BytesInOutput
		}
	}

	for in, info := range mf.Inputs {
		r.InputBytes += info.Bytes
		if name, ok := strings.CutPrefix(in, EmptyNamespace+":"); ok {
			name = strings.TrimPrefix(name, "node:")
			if !slices.Contains(r.Stubs, name) {
				r.Stubs = append(r.Stubs, name)
			}
			continue
		}
		path := in
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, filepath.FromSlash(in))
		}
		if name, ok := byPath[filepath.Clean(path)]; ok {
			r.Polyfills[name] += contributed[in]
		}
	}
	slices.Sort(r.Stubs)
	return r, nil
}
