package model

import (
	"fmt"
	"maps"
	"reflect"
	"strconv"

	"github.com/signadot/tony-format/go-dash/debug"
	"github.com/signadot/tony-format/go-dash/kpath"
	"github.com/signadot/tony-format/go-dash/meta"
)

var pluginType = reflect.TypeFor[Plugin]()

type builder struct {
	m *Model
	// pointers and types of the objects currently being walked, for cycle
	// detection
	onStack   map[uintptr]bool
	typeStack map[reflect.Type]bool
	annotated map[meta.ID]bool
}

func newBuilder(m *Model) *builder {
	return &builder{
		m:         m,
		onStack:   map[uintptr]bool{m.root.Pointer(): true},
		typeStack: map[reflect.Type]bool{},
		annotated: map[meta.ID]bool{},
	}
}

// valueCtx carries what is known about a value before it is classified.
type valueCtx struct {
	path   string
	name   string
	parent string
	typ    reflect.Type
	// val is the live value, or invalid when walking by type.
	val   reflect.Value
	steps []step
	acc   access
	// settable is whether the value itself may be assigned.
	settable bool
	// readOnly marks values reached through a copy; nothing below them can
	// be assigned.
	readOnly bool
	inPlace  bool
	info     func(obj reflect.Type) meta.Info
}

// object walks the fields and then the declared members of struct type t.
func (b *builder) object(path string, t reflect.Type, v reflect.Value, steps []step, readOnly bool) error {
	if err := b.fields(path, t, v, steps, readOnly); err != nil {
		return err
	}
	return b.members(path, t, steps, readOnly)
}

func (b *builder) fields(path string, t reflect.Type, v reflect.Value, steps []step, readOnly bool) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fsteps := appendStep(steps, step{kind: fieldStep, field: i})
		var fv reflect.Value
		if v.IsValid() {
			fv = v.Field(i)
		}
		if f.Anonymous {
			if !f.IsExported() {
				b.m.log.Debug("skipping unexported embedded field", "type", t.String(), "field", f.Name)
				continue
			}
			et, ev := f.Type, fv
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
				if ev.IsValid() {
					if ev.IsNil() {
						ev = reflect.Value{}
					} else {
						ev = ev.Elem()
					}
				}
			}
			if et.Kind() == reflect.Struct {
				if err := b.fields(path, et, ev, fsteps, readOnly); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
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
		err = b.value(valueCtx{
			path:     kpath.Join(path, name),
			name:     name,
			parent:   path,
			typ:      f.Type,
			val:      fv,
			steps:    fsteps,
			acc:      fieldAccess(fsteps),
			settable: !readOnly && !tag.ReadOnly,
			readOnly: readOnly,
			inPlace:  true,
			info:     b.fieldInfo(t, f.Name, name, tag),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) fieldInfo(owner reflect.Type, goName, name string, tag *meta.Tag) func(reflect.Type) meta.Info {
	return func(obj reflect.Type) meta.Info {
		id := meta.NewID(owner, name, meta.RoleField)
		info := b.m.meta.Resolve([]meta.ID{id}, []meta.ID{id})
		if info.Doc == "" && tag.HasDoc {
			info.Doc = tag.Doc
		}
		if info.Doc == "" {
			info.Doc = b.doc(meta.NewID(owner, goName, meta.RoleSource))
		}
		if info.Doc == "" && obj != nil {
			info.Doc = b.typeDoc(obj)
		}
		if info.Meta == nil && tag.Meta != nil {
			info.Meta = maps.Clone(tag.Meta)
		}
		return info
	}
}

func (b *builder) doc(ids ...meta.ID) string {
	return b.m.meta.Resolve(ids, nil).Doc
}

func (b *builder) typeDoc(t reflect.Type) string {
	return b.doc(meta.NewID(t, "", meta.RoleType), meta.NewID(t, "", meta.RoleSource))
}

// value classifies one value and adds its node, recursing into objects.
func (b *builder) value(c valueCtx) error {
	if _, dup := b.m.nodes[c.path]; dup {
		return fmt.Errorf("duplicate property %s", c.path)
	}
	n := &Node{
		Path:    c.path,
		Name:    c.name,
		parent:  c.parent,
		typ:     c.typ,
		acc:     c.acc,
		inPlace: c.inPlace,
	}
	t := c.typ
	if codec, ok := b.m.enums.Lookup(t); ok {
		n.Kind, n.Type = EnumKind, EnumType
		n.codec = codec
		n.Enum = codec.Strings()
		return b.leaf(n, c)
	}
	switch t.Kind() {
	case reflect.Bool:
		n.Type = BoolType
		return b.leaf(n, c)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n.Type = IntType
		return b.leaf(n, c)
	case reflect.Float32, reflect.Float64:
		n.Type = FloatType
		return b.leaf(n, c)
	case reflect.String:
		n.Type = StringType
		return b.leaf(n, c)
	case reflect.Interface:
		return b.dynamic(n, c)
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			break
		}
		n.Type = AnyType
		return b.leaf(n, c)
	case reflect.Slice, reflect.Array:
		return b.array(n, c, t)
	case reflect.Struct:
		return b.objectNode(n, c, t, c.val, 0)
	case reflect.Pointer:
		if t.Elem().Kind() != reflect.Struct {
			break
		}
		var sv reflect.Value
		var addr uintptr
		if c.val.IsValid() && !c.val.IsNil() {
			sv, addr = c.val.Elem(), c.val.Pointer()
		}
		return b.objectNode(n, c, t.Elem(), sv, addr)
	case reflect.Func:
		if !c.inPlace || t.IsVariadic() {
			break
		}
		n.Kind, n.Type = MethodKind, CallableType
		n.acc = funcFieldAccess(c.steps)
		b.signature(n, t, 0, nil)
		return b.add(n, c.info(nil))
	}
	b.m.log.Debug("skipping unsupported property", "path", c.path, "type", t.String())
	return nil
}

// dynamic classifies an interface value by what it holds at construction.
func (b *builder) dynamic(n *Node, c valueCtx) error {
	if !c.val.IsValid() || c.val.IsNil() {
		n.Type = AnyType
		return b.leaf(n, c)
	}
	dv := c.val.Elem()
	dt := dv.Type()
	switch {
	case dt.Kind() == reflect.Pointer && dt.Elem().Kind() == reflect.Struct:
		if dv.IsNil() {
			break
		}
		return b.objectNode(n, c, dt.Elem(), dv.Elem(), dv.Pointer())
	case dt.Kind() == reflect.Struct:
		c.readOnly = true
		return b.objectNode(n, c, dt, dv, 0)
	case dt.Kind() == reflect.Slice || dt.Kind() == reflect.Array:
		c.val = dv
		return b.array(n, c, dt)
	}
	n.Type = AnyType
	return b.leaf(n, c)
}

func (b *builder) leaf(n *Node, c valueCtx) error {
	n.Settable = c.settable
	return b.add(n, c.info(nil))
}

func (b *builder) add(n *Node, info meta.Info) error {
	n.Doc = info.Doc
	n.Meta = info.Meta
	for _, w := range meta.Validate(n.Meta) {
		b.m.log.Warn("invalid metadata", "path", n.Path, "warning", w)
	}
	if debug.Walk() {
		debug.Logf("node %s kind=%s type=%s settable=%t", n.Path, n.Kind, n.Type, n.Settable)
	}
	b.m.add(n)
	return nil
}

func (b *builder) objectNode(n *Node, c valueCtx, st reflect.Type, sv reflect.Value, addr uintptr) error {
	if addr != 0 {
		if b.onStack[addr] {
			b.m.log.Debug("skipping pointer cycle", "path", c.path, "type", st.String())
			return nil
		}
		b.onStack[addr] = true
		defer delete(b.onStack, addr)
	} else if !sv.IsValid() {
		if b.typeStack[st] {
			b.m.log.Debug("skipping recursive type", "path", c.path, "type", st.String())
			return nil
		}
		b.typeStack[st] = true
		defer delete(b.typeStack, st)
	}
	n.Kind, n.Type = ObjectKind, ObjectType
	if err := b.add(n, c.info(st)); err != nil {
		return err
	}
	readOnly := c.readOnly
	if c.typ.Kind() == reflect.Struct && !c.inPlace {
		readOnly = true
	}
	return b.object(n.Path, st, sv, c.steps, readOnly)
}

func (b *builder) array(n *Node, c valueCtx, t reflect.Type) error {
	n.Kind, n.Type = ArrayKind, ArrayType
	et := b.staticTag(t.Elem())
	n.Elem = &et
	n.Settable = c.settable
	if err := b.add(n, c.info(nil)); err != nil {
		return err
	}
	elem := t.Elem()
	st := elem
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct || !c.val.IsValid() {
		return nil
	}
	sv := c.val
	for i := 0; i < sv.Len(); i++ {
		ev := sv.Index(i)
		esteps := appendStep(c.steps, step{kind: indexStep, index: i})
		en := &Node{
			Path:    kpath.JoinIndex(n.Path, i),
			Name:    "[" + strconv.Itoa(i) + "]",
			parent:  n.Path,
			typ:     elem,
			acc:     fieldAccess(esteps),
			inPlace: c.inPlace,
		}
		ec := valueCtx{
			path:     en.Path,
			name:     en.Name,
			parent:   n.Path,
			typ:      elem,
			val:      ev,
			steps:    esteps,
			readOnly: c.readOnly,
			inPlace:  c.inPlace,
			info: func(obj reflect.Type) meta.Info {
				return meta.Info{Doc: b.typeDoc(obj)}
			},
		}
		var (
			obj  reflect.Value
			addr uintptr
		)
		switch {
		case elem.Kind() == reflect.Struct:
			obj = ev
		case !ev.IsNil():
			obj, addr = ev.Elem(), ev.Pointer()
		}
		if err := b.objectNode(en, ec, st, obj, addr); err != nil {
			return err
		}
	}
	return nil
}

// staticTag returns the type tag of values of type t without inspecting any
// value.
func (b *builder) staticTag(t reflect.Type) TypeTag {
	if _, ok := b.m.enums.Lookup(t); ok {
		return EnumType
	}
	switch t.Kind() {
	case reflect.Bool:
		return BoolType
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return IntType
	case reflect.Float32, reflect.Float64:
		return FloatType
	case reflect.String:
		return StringType
	case reflect.Slice, reflect.Array:
		return ArrayType
	case reflect.Struct:
		return ObjectType
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Struct {
			return ObjectType
		}
	case reflect.Func:
		return CallableType
	}
	return AnyType
}

func (b *builder) members(path string, t reflect.Type, steps []step, readOnly bool) error {
	if !reflect.PointerTo(t).Implements(pluginType) {
		return nil
	}
	decls := reflect.New(t).Interface().(Plugin).Members()
	for _, mem := range decls {
		d := mem.decl()
		if d.err != nil {
			return fmt.Errorf("%s: %w", t, d.err)
		}
		owner := d.recv.Elem()
		bind, ok := embedPath(t, owner)
		if !ok {
			return fmt.Errorf("%s: member %s has receiver %s", t, d.name, d.recv)
		}
		rsteps := steps
		for _, i := range bind {
			rsteps = appendStep(rsteps, step{kind: fieldStep, field: i})
		}
		b.annotate(owner, d)
		var err error
		switch d.kind {
		case propDecl:
			err = b.prop(path, owner, d, rsteps, readOnly)
		case methodDecl:
			err = b.method(path, owner, d, rsteps)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// annotate applies inline member annotations once per declaring type.
func (b *builder) annotate(owner reflect.Type, d *decl) {
	key := meta.NewID(owner, d.name, meta.RoleMethod)
	if b.annotated[key] {
		return
	}
	b.annotated[key] = true
	for _, a := range d.anns {
		b.m.meta.Annotate(meta.NewID(owner, d.name, a.role), a.opts...)
	}
}

// embedPath returns the field indices of the chain of exported embedded
// fields leading from t to target.
func embedPath(t, target reflect.Type) ([]int, bool) {
	if t == target {
		return nil, true
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous || !f.IsExported() {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Struct {
			continue
		}
		if p, ok := embedPath(ft, target); ok {
			return append([]int{i}, p...), true
		}
	}
	return nil, false
}

func (b *builder) prop(parent string, owner reflect.Type, d *decl, rsteps []step, readOnly bool) error {
	g := meta.NewID(owner, d.name, meta.RoleGetter)
	s := meta.NewID(owner, d.name, meta.RoleSetter)
	return b.value(valueCtx{
		path:     kpath.Join(parent, d.name),
		name:     d.name,
		parent:   parent,
		typ:      d.typ,
		steps:    appendStep(rsteps, step{kind: getStep, get: d.get}),
		acc:      propAccess(rsteps, d),
		settable: d.set != nil && !readOnly,
		readOnly: readOnly,
		info: func(obj reflect.Type) meta.Info {
			info := b.m.meta.Resolve([]meta.ID{g}, []meta.ID{g, s})
			if info.Doc == "" && d.goGet != "" {
				info.Doc = b.doc(meta.NewID(owner, d.goGet, meta.RoleSource))
			}
			if info.Doc == "" && obj != nil {
				info.Doc = b.typeDoc(obj)
			}
			return info
		},
	})
}

func (b *builder) method(parent string, owner reflect.Type, d *decl, rsteps []step) error {
	path := kpath.Join(parent, d.name)
	if _, dup := b.m.nodes[path]; dup {
		return fmt.Errorf("duplicate property %s", path)
	}
	n := &Node{
		Path:   path,
		Name:   d.name,
		Kind:   MethodKind,
		Type:   CallableType,
		parent: parent,
		typ:    d.typ,
		acc:    methodAccess(rsteps, d.fn),
	}
	b.signature(n, d.typ, 1, d.args)
	id := meta.NewID(owner, d.name, meta.RoleMethod)
	info := b.m.meta.Resolve([]meta.ID{id}, []meta.ID{id})
	if info.Doc == "" && d.goGet != "" {
		info.Doc = b.doc(meta.NewID(owner, d.goGet, meta.RoleSource))
	}
	return b.add(n, info)
}

// signature fills in the parameters and result of method node n from func
// type ft, skipping the first skip parameters.
func (b *builder) signature(n *Node, ft reflect.Type, skip int, names []string) {
	if names == nil {
		names = argNames(ft.NumIn()-skip, 0, nil)
	}
	for i := skip; i < ft.NumIn(); i++ {
		n.argTypes = append(n.argTypes, ft.In(i))
		n.Args = append(n.Args, Arg{Name: names[i-skip], Type: b.staticTag(ft.In(i))})
	}
	for i := 0; i < ft.NumOut(); i++ {
		if ft.Out(i) == errorType {
			continue
		}
		tag := b.staticTag(ft.Out(i))
		n.Returns = &tag
		break
	}
}
