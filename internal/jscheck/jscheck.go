// Package jscheck evaluates built bundles in an embedded JS engine
// (QuickJS by default, V8 with -tags v8).
package jscheck

import "fmt"

// MemoryLimitMB caps the engine heap while a bundle runs.
const MemoryLimitMB = 64

// browserPrelude gives bundles the browser global aliases they commonly
// probe before touching anything else.
const browserPrelude = `globalThis.window = globalThis; globalThis.self = globalThis;`

// engine is the subset of a JS runtime a check needs.
type engine interface {
	Eval(js, name string) error
	EvalString(js, name string) (string, error)
	Close()
}

// Run evaluates source as a classic script and then expr, returning expr's
// value converted to a string.
func Run(source, expr string) (string, error) {
	e, err := newEngine(MemoryLimitMB)
	if err != nil {
		return "", err
	}
	defer e.Close()

	if err := e.Eval(browserPrelude, "prelude.js"); err != nil {
		return "", fmt.Errorf("running prelude: %w", err)
	}
	if err := e.Eval(source, "bundle.js"); err != nil {
		return "", fmt.Errorf("running bundle: %w", err)
	}
	out, err := e.EvalString("String("+expr+")", "probe.js")
	if err != nil {
		return "", fmt.Errorf("evaluating %q: %w", expr, err)
	}
	return out, nil
}

// Check reports whether source evaluates without throwing.
func Check(source string) error {
	_, err := Run(source, "''")
	return err
}
