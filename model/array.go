package model

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/signadot/tony-format/go-dash/kpath"
)

// Array is a live view of the slice or array at an array node, or of a
// sub-array of it.  Like nodes, an Array holds no value: every access re-reads
// the plugin.
type Array struct {
	m      *Model
	node   *Node
	prefix []int
}

// Path returns the path of the viewed array.
func (a *Array) Path() string {
	p := a.node.Path
	for _, i := range a.prefix {
		p = kpath.JoinIndex(p, i)
	}
	return p
}

func (a *Array) value(idx []int) (reflect.Value, bool, error) {
	v, err := a.node.acc.get(a.m.root)
	if err != nil {
		return reflect.Value{}, false, err
	}
	return locate(v, slices.Concat(a.prefix, idx), a.node.inPlace)
}

// locate indexes v by idx.  shared reports whether the result is storage the
// plugin owns rather than part of a copy: it becomes true once the walk passes
// through a pointer or a slice.
func locate(v reflect.Value, idx []int, shared bool) (reflect.Value, bool, error) {
	for _, i := range idx {
		for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return reflect.Value{}, false, ErrNilPointer
			}
			if v.Kind() == reflect.Pointer {
				shared = true
			}
			v = v.Elem()
		}
		switch v.Kind() {
		case reflect.Slice:
			shared = true
		case reflect.Array:
		default:
			return reflect.Value{}, false, fmt.Errorf("%w: %s is not an array", ErrTypeMismatch, v.Type())
		}
		if i < 0 || i >= v.Len() {
			return reflect.Value{}, false, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, i, v.Len())
		}
		v = v.Index(i)
	}
	return v, shared, nil
}

func arrayValue(v reflect.Value) (reflect.Value, error) {
	v, err := indirect(v)
	if err != nil {
		return reflect.Value{}, err
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return reflect.Value{}, fmt.Errorf("%w: %s is not an array", ErrTypeMismatch, v.Type())
	}
	return v, nil
}

// Len returns the current length of the array.
func (a *Array) Len() (int, error) {
	v, _, err := a.value(nil)
	if err != nil {
		return 0, err
	}
	v, err = arrayValue(v)
	if err != nil {
		return 0, err
	}
	return v.Len(), nil
}

// Get returns the element at idx, one index per dimension.  With no indices
// Get returns the whole array.
func (a *Array) Get(idx ...int) (any, error) {
	v, _, err := a.value(idx)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// Set writes v to the element at idx.  The write happens in place, so every
// holder of the underlying slice observes it.
func (a *Array) Set(v any, idx ...int) error {
	full := slices.Concat(a.prefix, idx)
	if len(full) == 0 {
		return a.m.Set(a.node.Path, v)
	}
	if !a.node.Settable {
		return ErrNotSettable
	}
	dst, shared, err := a.value(idx)
	if err != nil {
		return err
	}
	if !shared || !dst.CanSet() {
		return ErrNotSettable
	}
	path := a.node.Path
	for _, i := range full {
		path = kpath.JoinIndex(path, i)
	}
	rv, err := a.m.coerce(path, dst.Type(), v)
	if err != nil {
		return err
	}
	dst.Set(rv)
	return nil
}

// At returns the sub-array at idx.
func (a *Array) At(idx ...int) (*Array, error) {
	v, _, err := a.value(idx)
	if err != nil {
		return nil, err
	}
	if _, err := arrayValue(v); err != nil {
		return nil, err
	}
	return &Array{m: a.m, node: a.node, prefix: slices.Concat(a.prefix, idx)}, nil
}

// Serialize returns the array as nested []any of plain values.
func (a *Array) Serialize() ([]any, error) {
	v, _, err := a.value(nil)
	if err != nil {
		return nil, err
	}
	if _, err := arrayValue(v); err != nil {
		return nil, err
	}
	s, err := a.m.serializeValue(v)
	if err != nil {
		return nil, err
	}
	res, _ := s.([]any)
	if res == nil {
		res = []any{}
	}
	return res, nil
}
