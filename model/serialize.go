package model

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/signadot/tony-format/go-dash/meta"
)

// Serialize returns the current value at path as plain JSON-compatible data:
// int64, uint64, float64, bool, string, nil, []any and map[string]any.  Enum
// values become their canonical strings and objects become maps keyed by
// member name.  The empty path serializes the whole plugin.
func (m *Model) Serialize(path string) (any, error) {
	if path == "" {
		return m.serializeValue(m.root)
	}
	n, idx, err := m.lookup(path)
	if err != nil {
		return nil, pathErr("serialize", path, err)
	}
	if n.Kind == MethodKind {
		return nil, pathErr("serialize", path, fmt.Errorf("%w: %s is a method", ErrTypeMismatch, path))
	}
	v, err := n.acc.get(m.root)
	if err == nil {
		v, _, err = locate(v, idx, false)
	}
	if err != nil {
		return nil, pathErr("serialize", path, err)
	}
	res, err := m.serializeValue(v)
	if err != nil {
		return nil, pathErr("serialize", path, err)
	}
	return res, nil
}

// SerializeValue serializes an arbitrary value the way Serialize does,
// using the model's enumeration registry.
func (m *Model) SerializeValue(v any) (any, error) {
	return m.serializeValue(reflect.ValueOf(v))
}

// Snapshot serializes the whole plugin.
func (m *Model) Snapshot() (map[string]any, error) {
	v, err := m.serializeValue(m.root)
	if err != nil {
		return nil, err
	}
	res, _ := v.(map[string]any)
	return res, nil
}

func (m *Model) serializeValue(v reflect.Value) (any, error) {
	s := &serializer{m: m, seen: map[uintptr]bool{}}
	return s.value(v)
}

var textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()

type serializer struct {
	m *Model
	// struct pointers being serialized; a pointer met again is a cycle and
	// serializes as nil.
	seen map[uintptr]bool
}

func (s *serializer) value(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if codec, ok := s.m.enums.Lookup(v.Type()); ok {
		return codec.EncodeValue(v)
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		if v.IsNil() {
			if v.Kind() == reflect.Slice {
				return []any{}, nil
			}
			return nil, nil
		}
	}
	if v.Type().Implements(textMarshalerType) && v.CanInterface() {
		d, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, err
		}
		return string(d), nil
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.Elem().Kind() == reflect.Struct {
			addr := v.Pointer()
			if s.seen[addr] {
				return nil, nil
			}
			s.seen[addr] = true
			defer delete(s.seen, addr)
		}
		return s.value(v.Elem())
	case reflect.Interface:
		return s.value(v.Elem())
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		if v.Type() == jsonNumberType {
			return normalizeNumber(json.Number(v.String())), nil
		}
		return v.String(), nil
	case reflect.Slice, reflect.Array:
		res := make([]any, v.Len())
		for i := range res {
			e, err := s.value(v.Index(i))
			if err != nil {
				return nil, err
			}
			res[i] = e
		}
		return res, nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			break
		}
		res := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			e, err := s.value(iter.Value())
			if err != nil {
				return nil, err
			}
			res[iter.Key().String()] = e
		}
		return res, nil
	case reflect.Struct:
		return s.object(v)
	}
	return nil, fmt.Errorf("%w: cannot serialize %s", ErrTypeMismatch, v.Type())
}

func (s *serializer) object(v reflect.Value) (map[string]any, error) {
	res := map[string]any{}
	if err := s.fields(v, res); err != nil {
		return nil, err
	}
	t := v.Type()
	if !reflect.PointerTo(t).Implements(pluginType) {
		return res, nil
	}
	for _, mem := range reflect.New(t).Interface().(Plugin).Members() {
		d := mem.decl()
		if d.kind != propDecl || d.err != nil {
			continue
		}
		bind, ok := embedPath(t, d.recv.Elem())
		if !ok {
			continue
		}
		r := v
		for _, i := range bind {
			var err error
			if r, err = indirect(r); err != nil {
				return nil, err
			}
			r = r.Field(i)
		}
		p, err := pointerTo(r)
		if err != nil {
			return nil, err
		}
		x, err := s.value(d.get(p))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.name, err)
		}
		res[d.name] = x
	}
	return res, nil
}

func (s *serializer) fields(v reflect.Value, res map[string]any) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fv := v.Field(i)
		if f.Anonymous {
			if !f.IsExported() {
				continue
			}
			ev := fv
			if ev.Kind() == reflect.Pointer {
				if ev.IsNil() {
					continue
				}
				ev = ev.Elem()
			}
			if ev.Kind() == reflect.Struct {
				if err := s.fields(ev, res); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() || !serializable(f.Type) {
			continue
		}
		tag, err := meta.ParseTag(f.Tag.Get(meta.TagKey))
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t, f.Name, err)
		}
		if tag.Skip {
			continue
		}
		name := f.Name
		if tag.Name != "" {
			name = tag.Name
		}
		x, err := s.value(fv)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		res[name] = x
	}
	return nil
}

func serializable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128,
		reflect.UnsafePointer, reflect.Uintptr:
		return false
	case reflect.Map:
		return t.Key().Kind() == reflect.String
	}
	return true
}
