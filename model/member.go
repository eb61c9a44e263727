package model

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/signadot/tony-format/go-dash/meta"
)

// Plugin is implemented by plugin types that declare computed properties or
// methods in addition to their exported fields.  Members is called on a zero
// value of the plugin type and must not depend on receiver state.
//
//	func (*Lab) Members() []model.Member {
//		return []model.Member{
//			model.Prop("voltage", (*Lab).Voltage),
//			model.PropRW("gain", (*Lab).Gain, (*Lab).SetGain).
//				OnGet(meta.Doc("amplifier gain")),
//			model.Method("reset", (*Lab).Reset),
//		}
//	}
type Plugin interface {
	Members() []Member
}

// Member is a declared computed property or method.
type Member interface {
	decl() *decl
}

type declKind int

const (
	propDecl declKind = iota
	methodDecl
)

type annotation struct {
	role meta.Role
	opts []meta.Option
}

type decl struct {
	kind declKind
	name string
	recv reflect.Type // *R
	typ  reflect.Type // property value type, or method func type
	get  func(recv reflect.Value) reflect.Value
	set  func(recv, v reflect.Value)
	fn   reflect.Value
	args []string

	goGet, goSet string
	anns         []annotation
	err          error
}

// Property is a computed property declaration with receiver R and value
// type T.
type Property[R, T any] struct {
	d decl
}

// Prop declares a read-only computed property.  get is invoked on every read
// of the property and never during model construction.
func Prop[R, T any](name string, get func(*R) T) *Property[R, T] {
	p := &Property[R, T]{d: decl{
		kind:  propDecl,
		name:  name,
		recv:  reflect.TypeFor[*R](),
		typ:   reflect.TypeFor[T](),
		goGet: goName(get),
	}}
	if get == nil {
		p.d.err = fmt.Errorf("property %s: nil getter", name)
		return p
	}
	p.d.get = func(recv reflect.Value) reflect.Value {
		v := get(recv.Interface().(*R))
		return reflect.ValueOf(&v).Elem()
	}
	return p
}

// PropRW declares a computed property with a getter and a setter.
func PropRW[R, T any](name string, get func(*R) T, set func(*R, T)) *Property[R, T] {
	p := Prop(name, get)
	if set == nil {
		p.d.err = fmt.Errorf("property %s: nil setter", name)
		return p
	}
	p.d.goSet = goName(set)
	p.d.set = func(recv, v reflect.Value) {
		var t T
		reflect.ValueOf(&t).Elem().Set(v)
		set(recv.Interface().(*R), t)
	}
	return p
}

// OnGet annotates the getter.  Annotations apply in the order they are
// declared, so metadata given to a later OnGet or OnSet replaces earlier
// metadata.
func (p *Property[R, T]) OnGet(opts ...meta.Option) *Property[R, T] {
	p.d.anns = append(p.d.anns, annotation{role: meta.RoleGetter, opts: opts})
	return p
}

// OnSet annotates the setter.  Documentation given to a setter is
// discarded.
func (p *Property[R, T]) OnSet(opts ...meta.Option) *Property[R, T] {
	p.d.anns = append(p.d.anns, annotation{role: meta.RoleSetter, opts: opts})
	return p
}

func (p *Property[R, T]) decl() *decl { return &p.d }

// MethodDecl is a declared callable method.
type MethodDecl struct {
	d decl
}

// Method declares a method callable through the model.  fn must be a method
// expression or function taking *R as its first parameter, for example
// (*Lab).Reset.  args names the remaining parameters; missing names default
// to arg0, arg1, ...
func Method[R any](name string, fn any, args ...string) *MethodDecl {
	m := &MethodDecl{d: decl{
		kind: methodDecl,
		name: name,
		recv: reflect.TypeFor[*R](),
	}}
	fv := reflect.ValueOf(fn)
	if fn == nil || fv.Kind() != reflect.Func || fv.IsNil() {
		m.d.err = fmt.Errorf("method %s: not a function", name)
		return m
	}
	ft := fv.Type()
	if ft.NumIn() == 0 || ft.In(0) != m.d.recv {
		m.d.err = fmt.Errorf("method %s: first parameter must be %s", name, m.d.recv)
		return m
	}
	if ft.IsVariadic() {
		m.d.err = fmt.Errorf("method %s: variadic methods are not supported", name)
		return m
	}
	if len(args) > ft.NumIn()-1 {
		m.d.err = fmt.Errorf("method %s: %d argument names for %d parameters", name, len(args), ft.NumIn()-1)
		return m
	}
	m.d.fn = fv
	m.d.typ = ft
	m.d.goGet = goName(fn)
	m.d.args = argNames(ft.NumIn()-1, 0, args)
	return m
}

// Annotate attaches documentation or metadata to the method.
func (m *MethodDecl) Annotate(opts ...meta.Option) *MethodDecl {
	m.d.anns = append(m.d.anns, annotation{role: meta.RoleMethod, opts: opts})
	return m
}

func (m *MethodDecl) decl() *decl { return &m.d }

func argNames(n, skip int, given []string) []string {
	res := make([]string, n)
	for i := range res {
		if i < len(given) && given[i] != "" {
			res[i] = given[i]
			continue
		}
		res[i] = fmt.Sprintf("arg%d", i+skip)
	}
	return res
}

// goName returns the Go identifier of a method expression, or "" for
// closures.
func goName(fn any) string {
	if fn == nil {
		return ""
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	name := strings.TrimSuffix(f.Name(), "-fm")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if strings.HasPrefix(name, "func") && strings.Trim(name[4:], "0123456789") == "" {
		return ""
	}
	return name
}
