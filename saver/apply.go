package saver

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/signadot/tony-format/go-dash/kpath"
	"github.com/signadot/tony-format/go-dash/model"
)

// Warning reports a setting that was ignored.
type Warning struct {
	Path    string
	Message string
}

func (w Warning) String() string {
	return w.Path + ": " + w.Message
}

type class int

const (
	classNull class = iota
	classInt
	classFloat
	classBool
	classString
	classList
	classMap
	classOther
)

var classNames = map[class]string{
	classNull:   "null",
	classInt:    "int",
	classFloat:  "float",
	classBool:   "bool",
	classString: "string",
	classList:   "list",
	classMap:    "map",
	classOther:  "other",
}

func (c class) String() string { return classNames[c] }

func classOf(v any) class {
	if v == nil {
		return classNull
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return classNull
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return classInt
	case reflect.Float32, reflect.Float64:
		return classFloat
	case reflect.Bool:
		return classBool
	case reflect.String:
		return classString
	case reflect.Slice, reflect.Array:
		return classList
	case reflect.Map, reflect.Struct:
		return classMap
	}
	return classOther
}

func typeClass(t model.TypeTag) class {
	switch t {
	case model.IntType:
		return classInt
	case model.FloatType:
		return classFloat
	case model.BoolType:
		return classBool
	case model.StringType:
		return classString
	case model.ArrayType:
		return classList
	case model.ObjectType:
		return classMap
	}
	return classOther
}

// ApplyDocument writes every setting of doc through m.  Unknown settings are
// logged and returned as warnings.  The first setting that cannot be applied
// stops the walk.
func (s *Saver) ApplyDocument(m *model.Model, doc Document) ([]Warning, error) {
	var ws []Warning
	err := s.apply(m, "", doc, &ws)
	return ws, err
}

func (s *Saver) apply(m *model.Model, prefix string, doc map[string]any, ws *[]Warning) error {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		path := kpath.Join(prefix, k)
		v := doc[k]
		n, err := m.Node(path)
		if errors.Is(err, model.ErrNotFound) {
			s.warn(ws, path, "no such property")
			continue
		}
		if err != nil {
			return err
		}
		switch n.Kind {
		case model.MethodKind:
			s.warn(ws, path, "cannot override a method")
			continue
		case model.ObjectKind:
			sub, ok := v.(map[string]any)
			if !ok {
				return override(n, v)
			}
			if err := s.apply(m, path, sub, ws); err != nil {
				return err
			}
			continue
		case model.ArrayKind:
			if list, ok := v.([]any); ok && n.Elem != nil && *n.Elem == model.ObjectType {
				if err := s.applyElems(m, n, list, ws); err != nil {
					return err
				}
				continue
			}
		}
		if !n.Settable {
			return fmt.Errorf("%s: %w", path, model.ErrNotSettable)
		}
		if n.Kind == model.EnumKind {
			if err := applyEnum(m, n, v); err != nil {
				return err
			}
			continue
		}
		want := typeClass(n.Type)
		if want == classOther {
			cur, err := m.Get(path)
			if err != nil {
				return err
			}
			want = classOf(cur)
		}
		if got := classOf(v); want != classNull && got != want {
			return override(n, v)
		}
		if err := m.Set(path, v); err != nil {
			return err
		}
	}
	return nil
}

// applyElems applies the entries of list to the elements of the object array
// n, in place and by index.  Null entries leave their element alone.
func (s *Saver) applyElems(m *model.Model, n *model.Node, list []any, ws *[]Warning) error {
	for i, e := range list {
		path := kpath.JoinIndex(n.Path, i)
		if e == nil {
			continue
		}
		en, err := m.Node(path)
		if errors.Is(err, model.ErrNotFound) {
			s.warn(ws, path, "no such element")
			continue
		}
		if err != nil {
			return err
		}
		sub, ok := e.(map[string]any)
		if !ok {
			return override(en, e)
		}
		if err := s.apply(m, path, sub, ws); err != nil {
			return err
		}
	}
	return nil
}

func applyEnum(m *model.Model, n *model.Node, v any) error {
	codec := n.Codec()
	rv, err := codec.FromAny(v)
	if err != nil {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("%s: %w", n.Path, err)
		}
		if rv, err = codec.DecodeValue(s); err != nil {
			return fmt.Errorf("%s: %w", n.Path, err)
		}
	}
	return m.Set(n.Path, rv.Interface())
}

func override(n *model.Node, v any) error {
	return &model.TypeError{
		Path:    n.Path,
		Message: fmt.Sprintf("cannot override class parameter of type %s with %s %v", n.Type, classOf(v), v),
	}
}

func (s *Saver) warn(ws *[]Warning, path, msg string) {
	s.log.Warn("ignoring setting", "path", path, "reason", msg)
	*ws = append(*ws, Warning{Path: path, Message: msg})
}
