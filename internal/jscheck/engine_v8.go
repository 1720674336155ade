//go:build v8

package jscheck

import (
	v8 "github.com/tommie/v8go"
)

type v8Engine struct {
	iso *v8.Isolate
	ctx *v8.Context
}

func newEngine(memoryLimitMB int) (engine, error) {
	var iso *v8.Isolate
	if memoryLimitMB > 0 {
		heapSize := uint64(memoryLimitMB) * 1024 * 1024
		iso = v8.NewIsolate(v8.WithResourceConstraints(heapSize/2, heapSize))
	} else {
		iso = v8.NewIsolate()
	}
	return &v8Engine{iso: iso, ctx: v8.NewContext(iso)}, nil
}

func (e *v8Engine) Eval(js, name string) error {
	_, err := e.ctx.RunScript(js, name)
	return err
}

func (e *v8Engine) EvalString(js, name string) (string, error) {
	val, err := e.ctx.RunScript(js, name)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return val.String(), nil
}

func (e *v8Engine) Close() {
	e.ctx.Close()
	e.iso.Dispose()
}
