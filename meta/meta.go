// Package meta holds documentation and metadata annotations for plugin
// members and resolves them for model properties.
//
// Annotations are keyed by ID: the plugin type, the member name and the role
// of the accessor that was annotated.  A computed property may have its getter
// and its setter annotated independently; Resolve applies the precedence
// rules: documentation comes from the getter only, and metadata comes from
// whichever of getter and setter was annotated last, replacing rather than
// merging.
package meta

import (
	"maps"
	"reflect"
	"sync"
)

// Role identifies what kind of accessor an annotation is attached to.
type Role uint8

const (
	RoleType Role = iota
	RoleField
	RoleGetter
	RoleSetter
	RoleMethod
	// RoleSource annotations carry documentation harvested from Go source and
	// are keyed by Go identifier rather than property name.
	RoleSource
)

var roleNames = [...]string{
	RoleType:   "type",
	RoleField:  "field",
	RoleGetter: "getter",
	RoleSetter: "setter",
	RoleMethod: "method",
	RoleSource: "source",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "role(?)"
}

// ID identifies an annotated accessor.  Type is always a non-pointer type.
type ID struct {
	Type   reflect.Type
	Member string
	Role   Role
}

func (id ID) String() string {
	name := "<nil>"
	if id.Type != nil {
		name = id.Type.String()
	}
	if id.Member == "" {
		return name + "(" + id.Role.String() + ")"
	}
	return name + "." + id.Member + "(" + id.Role.String() + ")"
}

func elem(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// NewID returns the ID for member of t with role.  Pointer types are
// dereferenced.
func NewID(t reflect.Type, member string, role Role) ID {
	return ID{Type: elem(t), Member: member, Role: role}
}

// TypeOf returns the ID under which documentation for type T itself is kept.
func TypeOf[T any]() ID { return NewID(reflect.TypeFor[T](), "", RoleType) }

// Field returns the ID of property name backed by a field of T.
func Field[T any](name string) ID { return NewID(reflect.TypeFor[T](), name, RoleField) }

// Getter returns the ID of the getter of computed property name of T.
func Getter[T any](name string) ID { return NewID(reflect.TypeFor[T](), name, RoleGetter) }

// Setter returns the ID of the setter of computed property name of T.
func Setter[T any](name string) ID { return NewID(reflect.TypeFor[T](), name, RoleSetter) }

// Method returns the ID of method name of T.
func Method[T any](name string) ID { return NewID(reflect.TypeFor[T](), name, RoleMethod) }

// Source returns the ID of source documentation for Go identifier ident of T.
// The empty identifier refers to the type declaration.
func Source[T any](ident string) ID { return NewID(reflect.TypeFor[T](), ident, RoleSource) }

// Annotation is the accumulated state of all Annotate calls for one ID.
type Annotation struct {
	Doc     string
	HasDoc  bool
	Meta    map[string]any
	HasMeta bool

	// seq orders metadata assignments across IDs.
	seq uint64
}

// Option modifies an annotation.
type Option func(*Annotation)

// Doc sets the documentation string.
func Doc(s string) Option {
	return func(a *Annotation) {
		a.Doc = s
		a.HasDoc = true
	}
}

// With sets the metadata, replacing any earlier metadata for the same ID.
func With(m map[string]any) Option {
	return func(a *Annotation) {
		a.Meta = maps.Clone(m)
		if a.Meta == nil {
			a.Meta = map[string]any{}
		}
		a.HasMeta = true
	}
}

// Set adds one metadata key.  Within a single Annotate call it merges with
// keys set by preceding options; across calls it behaves like With.
func Set(key string, value any) Option {
	return func(a *Annotation) {
		if a.Meta == nil {
			a.Meta = map[string]any{}
		}
		a.Meta[key] = value
		a.HasMeta = true
	}
}

// Registry is a set of annotations.  It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	seq     uint64
	entries map[ID]*Annotation
}

// Default is the process wide registry.
var Default = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[ID]*Annotation)}
}

// Annotate applies opts to the annotation for id.  Documentation and metadata
// supplied by a later call replace those supplied by an earlier one.
func (r *Registry) Annotate(id ID, opts ...Option) {
	var next Annotation
	for _, opt := range opts {
		opt(&next)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	cur := r.entries[id]
	if cur == nil {
		cur = &Annotation{}
		r.entries[id] = cur
	}
	if next.HasDoc {
		cur.Doc, cur.HasDoc = next.Doc, true
	}
	if next.HasMeta {
		cur.Meta, cur.HasMeta = next.Meta, true
		cur.seq = r.seq
	}
}

// Lookup returns a copy of the annotation for id.
func (r *Registry) Lookup(id ID) (Annotation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.entries[id]
	if !ok {
		return Annotation{}, false
	}
	res := *a
	res.Meta = maps.Clone(a.Meta)
	return res, true
}

// Clone returns an independent copy of r.  Sequence numbers carry over so
// annotations made on the clone come after all annotations in r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := &Registry{seq: r.seq, entries: make(map[ID]*Annotation, len(r.entries))}
	for id, a := range r.entries {
		c := *a
		c.Meta = maps.Clone(a.Meta)
		res.entries[id] = &c
	}
	return res
}

// Len returns the number of annotated IDs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Info is the resolved documentation and metadata of one property.
type Info struct {
	Doc  string
	Meta map[string]any
}

// Resolve computes the Info for a property.  Documentation is taken from the
// first ID in docFrom that carries any.  Metadata is taken from the ID in
// metaFrom whose metadata was assigned last.
func (r *Registry) Resolve(docFrom, metaFrom []ID) Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var info Info
	for _, id := range docFrom {
		if a := r.entries[id]; a != nil && a.HasDoc {
			info.Doc = a.Doc
			break
		}
	}
	var best *Annotation
	for _, id := range metaFrom {
		a := r.entries[id]
		if a == nil || !a.HasMeta {
			continue
		}
		if best == nil || a.seq > best.seq {
			best = a
		}
	}
	if best != nil {
		info.Meta = maps.Clone(best.Meta)
	}
	return info
}
