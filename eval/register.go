package eval

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Func is a function callable from expressions.  Types optionally gives
// the function signatures for type checking, as with expr.Function.
type Func struct {
	Name  string
	Fn    func(params ...any) (any, error)
	Types []any
}

var (
	mu sync.RWMutex
	d  = map[string]*Func{}
)

var ErrFuncExists = errors.New("function exists")

// Register adds f to the functions available to every evaluator created
// afterwards.
func Register(f *Func) error {
	mu.Lock()
	defer mu.Unlock()
	if _, present := d[f.Name]; present || slices.Contains(builtins, f.Name) {
		return fmt.Errorf("%s: %w", f.Name, ErrFuncExists)
	}
	d[f.Name] = f
	return nil
}

// Lookup returns the registered function called name, or nil.
func Lookup(name string) *Func {
	mu.RLock()
	defer mu.RUnlock()
	return d[name]
}

// Funcs returns the registered functions sorted by name.
func Funcs() []*Func {
	mu.RLock()
	defer mu.RUnlock()
	res := make([]*Func, 0, len(d))
	for _, f := range d {
		res = append(res, f)
	}
	slices.SortFunc(res, func(a, b *Func) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return res
}
