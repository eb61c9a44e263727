package enum

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry maps Go types to their enumeration codecs.  It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Codec
}

// Default is the registry populated by Define.
var Default = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[reflect.Type]Codec)}
}

// Register adds c to the registry.  Registering a second codec for the same
// type is an error.
func (r *Registry) Register(c Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byType[c.Type()]; ok {
		return fmt.Errorf("enum type %s already registered as %s", c.Type(), prev.Name())
	}
	r.byType[c.Type()] = c
	return nil
}

// Lookup returns the codec registered for t.
func (r *Registry) Lookup(t reflect.Type) (Codec, bool) {
	if r == nil || t == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byType[t]
	return c, ok
}

// Len returns the number of registered codecs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byType)
}

// Define creates an enumeration and registers it in Default.  It panics on
// error and is meant for package level variable initialization:
//
//	var Colors = enum.Define("Color",
//		enum.Self(Red, "RED"),
//		enum.Self(Green, "GREEN"))
func Define[T comparable](name string, entries ...Entry[T]) *Enum[T] {
	e, err := New(name, entries...)
	if err != nil {
		panic(err)
	}
	if err := Default.Register(e); err != nil {
		panic(err)
	}
	return e
}
