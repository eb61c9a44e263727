package model

import (
	"fmt"
	"reflect"
)

type stepKind uint8

const (
	fieldStep stepKind = iota
	indexStep
	getStep
)

// step is one hop of an accessor path.  Accessor paths are re-walked from the
// root on every access so a node never holds on to a value.
type step struct {
	kind  stepKind
	field int
	index int
	get   func(recv reflect.Value) reflect.Value
}

func appendStep(steps []step, s step) []step {
	res := make([]step, len(steps), len(steps)+1)
	copy(res, steps)
	return append(res, s)
}

// walk follows steps starting at root.
func walk(root reflect.Value, steps []step) (reflect.Value, error) {
	cur := root
	for _, s := range steps {
		switch s.kind {
		case fieldStep:
			v, err := indirect(cur)
			if err != nil {
				return reflect.Value{}, err
			}
			if v.Kind() != reflect.Struct {
				return reflect.Value{}, fmt.Errorf("%w: %s is not a struct", ErrTypeMismatch, v.Type())
			}
			cur = v.Field(s.field)
		case indexStep:
			v, err := indirect(cur)
			if err != nil {
				return reflect.Value{}, err
			}
			if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
				return reflect.Value{}, fmt.Errorf("%w: %s is not an array", ErrTypeMismatch, v.Type())
			}
			if s.index >= v.Len() {
				return reflect.Value{}, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfRange, s.index, v.Len())
			}
			cur = v.Index(s.index)
		case getStep:
			recv, err := pointerTo(cur)
			if err != nil {
				return reflect.Value{}, err
			}
			cur = s.get(recv)
		}
	}
	return cur, nil
}

// indirect dereferences pointers and interfaces.
func indirect(v reflect.Value) (reflect.Value, error) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, ErrNilPointer
		}
		v = v.Elem()
	}
	return v, nil
}

// pointerTo returns a pointer to the struct held by v, suitable as a method
// receiver.
func pointerTo(v reflect.Value) (reflect.Value, error) {
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, ErrNilPointer
		}
		v = v.Elem()
	}
	switch {
	case v.Kind() == reflect.Pointer:
		if v.IsNil() {
			return reflect.Value{}, ErrNilPointer
		}
		return v, nil
	case v.CanAddr():
		return v.Addr(), nil
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p, nil
}

// access holds the live accessors of a node.
type access struct {
	get  func(root reflect.Value) (reflect.Value, error)
	set  func(root, v reflect.Value) error
	call func(root reflect.Value, args []reflect.Value) ([]reflect.Value, error)
}

func fieldAccess(steps []step) access {
	return access{
		get: func(root reflect.Value) (reflect.Value, error) {
			return walk(root, steps)
		},
		set: func(root, v reflect.Value) error {
			dst, err := walk(root, steps)
			if err != nil {
				return err
			}
			if !dst.CanSet() {
				return ErrNotSettable
			}
			dst.Set(v)
			return nil
		},
	}
}

func propAccess(recvSteps []step, d *decl) access {
	getSteps := appendStep(recvSteps, step{kind: getStep, get: d.get})
	a := access{
		get: func(root reflect.Value) (reflect.Value, error) {
			return walk(root, getSteps)
		},
	}
	if d.set != nil {
		set := d.set
		a.set = func(root, v reflect.Value) error {
			recv, err := walk(root, recvSteps)
			if err != nil {
				return err
			}
			p, err := pointerTo(recv)
			if err != nil {
				return err
			}
			set(p, v)
			return nil
		}
	}
	return a
}

func methodAccess(recvSteps []step, fn reflect.Value) access {
	return access{
		call: func(root reflect.Value, args []reflect.Value) ([]reflect.Value, error) {
			recv, err := walk(root, recvSteps)
			if err != nil {
				return nil, err
			}
			p, err := pointerTo(recv)
			if err != nil {
				return nil, err
			}
			return fn.Call(append([]reflect.Value{p}, args...)), nil
		},
	}
}

func funcFieldAccess(steps []step) access {
	return access{
		call: func(root reflect.Value, args []reflect.Value) ([]reflect.Value, error) {
			fn, err := walk(root, steps)
			if err != nil {
				return nil, err
			}
			if fn.IsNil() {
				return nil, ErrNilPointer
			}
			return fn.Call(args), nil
		},
	}
}
