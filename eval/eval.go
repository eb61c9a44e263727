// Package eval evaluates expr-lang expressions against the serialized state
// of a model.
//
// The members of the plugin are variables of the expression environment,
// keyed by name, so "gain * 2" or "sub.value > 0" read the current snapshot.
// The functions get, has, paths and getenv plus any registered with Register
// are available as well.
package eval

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/signadot/tony-format/go-dash/model"
)

// Evaluator compiles and runs expressions over one model.  Compiled programs
// are cached by source.  Callers serialize access to the model: Eval takes a
// snapshot, which runs every getter.
type Evaluator struct {
	m     *model.Model
	mu    sync.Mutex
	cache map[string]*vm.Program
}

func New(m *model.Model) *Evaluator {
	return &Evaluator{m: m, cache: map[string]*vm.Program{}}
}

// Eval evaluates src against the current snapshot of the model.
func (e *Evaluator) Eval(src string) (any, error) {
	prg, err := e.compile(src)
	if err != nil {
		return nil, err
	}
	env, err := e.m.Snapshot()
	if err != nil {
		return nil, err
	}
	return Run(prg, env)
}

// Run runs prg with env.
func Run(prg *vm.Program, env map[string]any) (any, error) {
	res, err := expr.Run(prg, env)
	if err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	return res, nil
}

func (e *Evaluator) compile(src string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, ok := e.cache[src]; ok {
		return prg, nil
	}
	prg, err := expr.Compile(src, exprOpts(e.m)...)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	e.cache[src] = prg
	return prg, nil
}

// Len returns the number of cached programs.
func (e *Evaluator) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}
