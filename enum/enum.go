// Package enum maps symbolic enumeration members to and from their canonical
// string form.
//
// A Go enumeration is a set of typed constants.  Each member is declared with
// a symbolic name and an underlying value; the canonical string of a member is
// the formatted underlying value, never its name.  Members whose values are
// equal are aliases: only the first declared of them is reachable through the
// string form.
package enum

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// ErrLookup is returned when a string or value matches no reachable member.
var ErrLookup = errors.New("enum lookup failed")

// Entry declares one member of an enumeration.
type Entry[T comparable] struct {
	Member T
	Name   string
	Value  any
}

// Of declares member with symbolic name and underlying value.
func Of[T comparable](member T, name string, value any) Entry[T] {
	return Entry[T]{Member: member, Name: name, Value: value}
}

// Self declares member with symbolic name, using the member itself as its
// underlying value.
func Self[T comparable](member T, name string) Entry[T] {
	return Entry[T]{Member: member, Name: name, Value: basicValue(reflect.ValueOf(member))}
}

// Codec is the type-erased view of an Enum used by reflective callers.
type Codec interface {
	Name() string
	Type() reflect.Type
	EncodeValue(v reflect.Value) (string, error)
	DecodeValue(s string) (reflect.Value, error)
	FromAny(v any) (reflect.Value, error)
	Strings() []string
}

// Enum is the codec for enumeration type T.
type Enum[T comparable] struct {
	name    string
	entries []Entry[T]
	// canon maps each member to the index of the first declared entry with an
	// equal value.
	canon map[T]int
	// reachable are the indices of the canonical entries, in declaration order.
	reachable []int
	strs      []string
}

// New creates an enumeration codec named name.  Entries are considered in
// declaration order.
func New[T comparable](name string, entries ...Entry[T]) (*Enum[T], error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("enum %s: no members", name)
	}
	e := &Enum[T]{
		name:    name,
		entries: entries,
		canon:   make(map[T]int, len(entries)),
	}
	names := make(map[string]bool, len(entries))
	for i := range entries {
		ent := &entries[i]
		if names[ent.Name] {
			return nil, fmt.Errorf("enum %s: duplicate member name %q", name, ent.Name)
		}
		names[ent.Name] = true
		if _, dup := e.canon[ent.Member]; dup {
			return nil, fmt.Errorf("enum %s: member %s declared twice", name, ent.Name)
		}
		c := i
		for _, j := range e.reachable {
			if sameValue(entries[j].Value, ent.Value) {
				c = j
				break
			}
		}
		e.canon[ent.Member] = c
		if c == i {
			e.reachable = append(e.reachable, i)
			e.strs = append(e.strs, format(ent.Value))
		}
	}
	return e, nil
}

// Name returns the enumeration's name.
func (e *Enum[T]) Name() string { return e.name }

// Type returns the Go type of the enumeration members.
func (e *Enum[T]) Type() reflect.Type { return reflect.TypeFor[T]() }

// Strings returns the canonical strings of the reachable members in
// declaration order.
func (e *Enum[T]) Strings() []string {
	return append([]string(nil), e.strs...)
}

// Members returns the reachable members in declaration order.
func (e *Enum[T]) Members() []T {
	res := make([]T, len(e.reachable))
	for i, j := range e.reachable {
		res[i] = e.entries[j].Member
	}
	return res
}

// Canonical returns the first declared member with a value equal to m's.
func (e *Enum[T]) Canonical(m T) (T, error) {
	i, ok := e.canon[m]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %v is not a member of %s", ErrLookup, m, e.name)
	}
	return e.entries[i].Member, nil
}

// NameOf returns the symbolic name of member m.
func (e *Enum[T]) NameOf(m T) (string, error) {
	for i := range e.entries {
		if e.entries[i].Member == m {
			return e.entries[i].Name, nil
		}
	}
	return "", fmt.Errorf("%w: %v is not a member of %s", ErrLookup, m, e.name)
}

// Encode returns the canonical string of m.  Aliases encode as the member
// they alias.
func (e *Enum[T]) Encode(m T) (string, error) {
	i, ok := e.canon[m]
	if !ok {
		return "", fmt.Errorf("%w: %v is not a member of %s", ErrLookup, m, e.name)
	}
	return format(e.entries[i].Value), nil
}

// Decode returns the member whose canonical string is s.
func (e *Enum[T]) Decode(s string) (T, error) {
	for k, j := range e.reachable {
		if e.strs[k] == s {
			return e.entries[j].Member, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %q is not a valid %s", ErrLookup, s, e.name)
}

// FromValue returns the first declared member whose underlying value equals v.
func (e *Enum[T]) FromValue(v any) (T, error) {
	if m, ok := v.(T); ok {
		if _, member := e.canon[m]; member {
			return e.Canonical(m)
		}
	}
	for _, j := range e.reachable {
		if sameValue(e.entries[j].Value, v) {
			return e.entries[j].Member, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: %s is not a valid %s", ErrLookup, formatArg(v), e.name)
}

// EncodeValue implements Codec.
func (e *Enum[T]) EncodeValue(v reflect.Value) (string, error) {
	m, ok := v.Interface().(T)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a %s", ErrLookup, v.Type(), e.name)
	}
	return e.Encode(m)
}

// DecodeValue implements Codec.
func (e *Enum[T]) DecodeValue(s string) (reflect.Value, error) {
	m, err := e.Decode(s)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(m), nil
}

// FromAny implements Codec.
func (e *Enum[T]) FromAny(v any) (reflect.Value, error) {
	m, err := e.FromValue(v)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(m), nil
}

func format(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func formatArg(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

// basicValue converts named basic kinds to their predeclared type so a
// member's value formats as its number or string rather than through any
// String method.
func basicValue(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Bool:
		return v.Bool()
	case reflect.String:
		return v.String()
	}
	return v.Interface()
}

type numeric struct {
	f     float64
	isNum bool
}

// toNumeric maps bools and all numeric kinds onto float64 so that true, 1 and
// 1.0 compare equal.
func toNumeric(v any) numeric {
	if v == nil {
		return numeric{}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return numeric{1, true}
		}
		return numeric{0, true}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return numeric{float64(rv.Int()), true}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return numeric{float64(rv.Uint()), true}
	case reflect.Float32, reflect.Float64:
		return numeric{rv.Float(), true}
	}
	return numeric{}
}

func sameValue(a, b any) bool {
	na, nb := toNumeric(a), toNumeric(b)
	if na.isNum || nb.isNum {
		return na.isNum && nb.isNum && na.f == nb.f && !math.IsNaN(na.f)
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		return ok && sa == sb
	}
	if _, ok := b.(string); ok {
		return false
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// String returns a description of e listing its members.
func (e *Enum[T]) String() string {
	parts := make([]string, len(e.entries))
	for i := range e.entries {
		parts[i] = e.entries[i].Name + "=" + format(e.entries[i].Value)
	}
	return e.name + "(" + strings.Join(parts, ", ") + ")"
}
