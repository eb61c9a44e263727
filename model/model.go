// Package model exposes a Go object graph as a tree of addressable
// properties.
//
// A Model is built once from a root plugin, a non-nil pointer to a struct.
// Exported fields, in declaration order, and then the computed properties
// and methods the plugin declares through Plugin.Members become nodes
// addressed by paths such as "branch.simple.A_int" or "array2d[0][1]".
// Nodes never hold values: every Get re-reads the plugin and every Set
// writes through to it.
//
// A Model does no locking.  Callers serving concurrent clients must
// serialize access themselves.
package model

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"

	"github.com/signadot/tony-format/go-dash/enum"
	"github.com/signadot/tony-format/go-dash/kpath"
	"github.com/signadot/tony-format/go-dash/meta"
)

// Node describes one addressable member of the tree.
type Node struct {
	Path     string
	Name     string
	Kind     Kind
	Type     TypeTag
	Elem     *TypeTag // element type of arrays
	Settable bool
	Doc      string
	Meta     map[string]any
	Args     []Arg    // method parameters
	Returns  *TypeTag // method result, if any
	Enum     []string // canonical strings of enum members

	parent   string
	typ      reflect.Type // declared Go type of the value, or func type of methods
	argTypes []reflect.Type
	codec    enum.Codec
	acc      access
	// inPlace reports whether the value read by acc.get is the plugin's own
	// storage rather than a copy returned by a getter.
	inPlace bool
}

// Codec returns the enumeration codec of an enum node, or nil.
func (n *Node) Codec() enum.Codec {
	return n.codec
}

// Arg describes one method parameter.
type Arg struct {
	Name string  `json:"name"`
	Type TypeTag `json:"type"`
}

// Model is the property tree of one plugin.
type Model struct {
	root     reflect.Value
	typ      reflect.Type
	nodes    map[string]*Node
	order    []string
	children map[string][]*Node
	enums    *enum.Registry
	meta     *meta.Registry
	log      *slog.Logger
}

// Option configures New.
type Option func(*Model)

// WithLogger sets the logger used for construction diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.log = l }
}

// WithEnums sets the enumeration registry.  The default is enum.Default.
func WithEnums(r *enum.Registry) Option {
	return func(m *Model) { m.enums = r }
}

// WithMeta sets the annotation registry.  The default is meta.Default.  The
// model works on a copy and never modifies r.
func WithMeta(r *meta.Registry) Option {
	return func(m *Model) { m.meta = r }
}

// New builds the model of root, which must be a non-nil pointer to a struct.
func New(root any, opts ...Option) (*Model, error) {
	rv := reflect.ValueOf(root)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("model root must be a non-nil pointer to a struct, got %T", root)
	}
	m := &Model{
		root:     rv,
		typ:      rv.Elem().Type(),
		nodes:    make(map[string]*Node),
		children: make(map[string][]*Node),
		enums:    enum.Default,
		meta:     meta.Default,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.meta = m.meta.Clone()
	m.log = m.log.With("plugin", m.typ.Name())
	b := newBuilder(m)
	if err := b.object("", m.typ, rv.Elem(), nil, false); err != nil {
		return nil, err
	}
	return m, nil
}

// Root returns the plugin the model was built from.
func (m *Model) Root() any {
	return m.root.Interface()
}

// Name returns the display name of the plugin: its String method if it has
// one, otherwise its type name.
func (m *Model) Name() string {
	if s, ok := m.root.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return m.typ.Name()
}

// Paths returns all node paths in tree order.
func (m *Model) Paths() []string {
	return slices.Clone(m.order)
}

// Node returns the node at path.
func (m *Model) Node(path string) (*Node, error) {
	n, idx, err := m.lookup(path)
	if err != nil {
		return nil, pathErr("lookup", path, err)
	}
	if len(idx) != 0 {
		return nil, pathErr("lookup", path, fmt.Errorf("%w: %s is an array element", ErrNotFound, path))
	}
	return n, nil
}

// lookup finds the node at path.  Paths that continue with index segments
// below an array node resolve to that node and the trailing indices.
func (m *Model) lookup(path string) (*Node, []int, error) {
	if n, ok := m.nodes[path]; ok {
		return n, nil, nil
	}
	kp, err := kpath.Parse(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if kp == nil {
		return nil, nil, fmt.Errorf("%w: empty path", ErrNotFound)
	}
	var (
		prefix string
		best   *Node
		rest   *kpath.KPath
	)
	for x := kp; x != nil; x = x.Next {
		if x.Field != nil {
			prefix = kpath.Join(prefix, *x.Field)
		} else {
			prefix = kpath.JoinIndex(prefix, *x.Index)
		}
		if n, ok := m.nodes[prefix]; ok {
			best, rest = n, x.Next
		}
	}
	if best == nil {
		return nil, nil, ErrNotFound
	}
	if rest == nil {
		return best, nil, nil
	}
	if best.Kind != ArrayKind {
		return nil, nil, ErrNotFound
	}
	var idx []int
	for x := rest; x != nil; x = x.Next {
		if x.Index == nil {
			return nil, nil, ErrNotFound
		}
		idx = append(idx, *x.Index)
	}
	return best, idx, nil
}

// Get returns the current value at path.  Computed properties invoke their
// getter once per call.
func (m *Model) Get(path string) (any, error) {
	n, idx, err := m.lookup(path)
	if err != nil {
		return nil, pathErr("get", path, err)
	}
	if len(idx) != 0 {
		a := &Array{m: m, node: n}
		v, err := a.Get(idx...)
		if err != nil {
			return nil, pathErr("get", path, err)
		}
		return v, nil
	}
	if n.Kind == MethodKind {
		return nil, pathErr("get", path, fmt.Errorf("%w: %s is a method", ErrTypeMismatch, path))
	}
	v, err := n.acc.get(m.root)
	if err != nil {
		return nil, pathErr("get", path, err)
	}
	return v.Interface(), nil
}

// Set writes v to the property at path.
func (m *Model) Set(path string, v any) error {
	n, idx, err := m.lookup(path)
	if err != nil {
		return pathErr("set", path, err)
	}
	if len(idx) != 0 {
		a := &Array{m: m, node: n}
		if err := a.Set(v, idx...); err != nil {
			return pathErr("set", path, err)
		}
		return nil
	}
	if !n.Settable || n.acc.set == nil {
		return pathErr("set", path, ErrNotSettable)
	}
	rv, err := m.coerce(path, n.typ, v)
	if err != nil {
		return err
	}
	if err := n.acc.set(m.root, rv); err != nil {
		return pathErr("set", path, err)
	}
	return nil
}

// Array returns the array proxy for path.
func (m *Model) Array(path string) (*Array, error) {
	n, idx, err := m.lookup(path)
	if err != nil {
		return nil, pathErr("array", path, err)
	}
	if n.Kind != ArrayKind {
		return nil, pathErr("array", path, fmt.Errorf("%w: %s is not an array", ErrTypeMismatch, path))
	}
	a := &Array{m: m, node: n}
	if len(idx) == 0 {
		return a, nil
	}
	sub, err := a.At(idx...)
	if err != nil {
		return nil, pathErr("array", path, err)
	}
	return sub, nil
}

// Call invokes the method at path with args, converted to the declared
// parameter types.  If the method's last result is a non-nil error, Call
// returns it.  Otherwise Call returns the first result, if any.
func (m *Model) Call(path string, args ...any) (any, error) {
	n, err := m.Node(path)
	if err != nil {
		return nil, err
	}
	if n.Kind != MethodKind {
		return nil, pathErr("call", path, ErrNotCallable)
	}
	if len(args) != len(n.argTypes) {
		return nil, &TypeError{
			Path:    path,
			Message: fmt.Sprintf("expected %d arguments, got %d", len(n.argTypes), len(args)),
		}
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		v, err := m.coerce(path+"("+n.Args[i].Name+")", n.argTypes[i], a)
		if err != nil {
			return nil, err
		}
		in[i] = v
	}
	out, err := n.acc.call(m.root, in)
	if err != nil {
		return nil, pathErr("call", path, err)
	}
	if len(out) > 0 && out[len(out)-1].Type() == errorType {
		last := out[len(out)-1]
		out = out[:len(out)-1]
		if !last.IsNil() {
			return nil, pathErr("call", path, last.Interface().(error))
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

var errorType = reflect.TypeFor[error]()

func (m *Model) add(n *Node) {
	m.nodes[n.Path] = n
	m.order = append(m.order, n.Path)
	m.children[n.parent] = append(m.children[n.parent], n)
}
