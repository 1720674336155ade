//go:build !v8

package jscheck

import (
	"fmt"

	"modernc.org/quickjs"
)

type qjsEngine struct {
	vm *quickjs.VM
}

func newEngine(memoryLimitMB int) (engine, error) {
	vm, err := quickjs.NewVM()
	if err != nil {
		return nil, fmt.Errorf("creating QuickJS VM: %w", err)
	}
	if memoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(memoryLimitMB) * 1024 * 1024)
	}
	return &qjsEngine{vm: vm}, nil
}

func (e *qjsEngine) Eval(js, _ string) error {
	v, err := e.vm.EvalValue(js, quickjs.EvalGlobal)
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

func (e *qjsEngine) EvalString(js, _ string) (string, error) {
	result, err := e.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return fmt.Sprint(result), nil
}

func (e *qjsEngine) Close() { e.vm.Close() }
