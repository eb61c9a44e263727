package model

import "fmt"

// Kind is the structural classification of a node.
type Kind int

const (
	ScalarKind Kind = iota
	ObjectKind
	ArrayKind
	MethodKind
	EnumKind
)

var kindNames = map[Kind]string{
	ScalarKind: "scalar",
	ObjectKind: "object",
	ArrayKind:  "array",
	MethodKind: "method",
	EnumKind:   "enum",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "<unknown kind>"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(d []byte) error {
	for kk, s := range kindNames {
		if s == string(d) {
			*k = kk
			return nil
		}
	}
	return fmt.Errorf("unrecognized kind %q", d)
}

// TypeTag is the value type of a node as reported to clients.
type TypeTag int

const (
	AnyType TypeTag = iota
	IntType
	FloatType
	BoolType
	StringType
	EnumType
	ArrayType
	ObjectType
	CallableType
)

var typeNames = map[TypeTag]string{
	AnyType:      "any",
	IntType:      "int",
	FloatType:    "float",
	BoolType:     "bool",
	StringType:   "string",
	EnumType:     "enum",
	ArrayType:    "array",
	ObjectType:   "object",
	CallableType: "callable",
}

func (t TypeTag) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "<unknown type>"
}

func (t TypeTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TypeTag) UnmarshalText(d []byte) error {
	for tt, s := range typeNames {
		if s == string(d) {
			*t = tt
			return nil
		}
	}
	return fmt.Errorf("unrecognized type %q", d)
}

// TypeTags returns all type tags.
func TypeTags() []TypeTag {
	return []TypeTag{
		AnyType,
		IntType,
		FloatType,
		BoolType,
		StringType,
		EnumType,
		ArrayType,
		ObjectType,
		CallableType,
	}
}

// IsLeaf reports whether values of type t have no addressable children.
func (t TypeTag) IsLeaf() bool {
	switch t {
	case ArrayType, ObjectType:
		return false
	default:
		return true
	}
}
