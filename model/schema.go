package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/signadot/tony-format/go-dash/meta"
)

// Descriptor is the static description of a node, as served to clients.
type Descriptor struct {
	Name     string         `json:"name"`
	Path     string         `json:"path"`
	Kind     Kind           `json:"kind"`
	Type     TypeTag        `json:"type"`
	Elem     *TypeTag       `json:"elem,omitempty"`
	Settable bool           `json:"settable"`
	Doc      string         `json:"doc,omitempty"`
	Meta     map[string]any `json:"metadata,omitempty"`
	Args     []Arg          `json:"args,omitempty"`
	Returns  *TypeTag       `json:"returns,omitempty"`
	Enum     []string       `json:"enums,omitempty"`
	Children Schema         `json:"children,omitempty"`
}

// Schema is an ordered list of sibling descriptors.  It encodes as a JSON object
// keyed by name, in order.
type Schema []*Descriptor

// Keys returns the names of the descriptors in order.
func (s Schema) Keys() []string {
	res := make([]string, len(s))
	for i, p := range s {
		res[i] = p.Name
	}
	return res
}

// Lookup returns the descriptor named name, or nil.
func (s Schema) Lookup(name string) *Descriptor {
	for _, p := range s {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (s Schema) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, p := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Schema) UnmarshalJSON(d []byte) error {
	dec := json.NewDecoder(bytes.NewReader(d))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("schema: expected object, got %v", tok)
	}
	var res Schema
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("schema: expected key, got %v", tok)
		}
		p := &Descriptor{}
		if err := dec.Decode(p); err != nil {
			return fmt.Errorf("schema %s: %w", key, err)
		}
		if p.Name == "" {
			p.Name = key
		}
		res = append(res, p)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = res
	return nil
}

// Props returns the schema of the node at path and everything below it.  The
// empty path describes the plugin itself.  Props never reads a value.
func (m *Model) Props(path string) (*Descriptor, error) {
	if path == "" {
		id := meta.NewID(m.typ, "", meta.RoleType)
		info := m.meta.Resolve([]meta.ID{id, meta.NewID(m.typ, "", meta.RoleSource)}, []meta.ID{id})
		return &Descriptor{
			Name:     m.Name(),
			Kind:     ObjectKind,
			Type:     ObjectType,
			Doc:      info.Doc,
			Meta:     info.Meta,
			Children: m.schema(""),
		}, nil
	}
	n, err := m.Node(path)
	if err != nil {
		return nil, err
	}
	return m.prop(n), nil
}

func (m *Model) prop(n *Node) *Descriptor {
	return &Descriptor{
		Name:     n.Name,
		Path:     n.Path,
		Kind:     n.Kind,
		Type:     n.Type,
		Elem:     n.Elem,
		Settable: n.Settable,
		Doc:      n.Doc,
		Meta:     n.Meta,
		Args:     n.Args,
		Returns:  n.Returns,
		Enum:     n.Enum,
		Children: m.schema(n.Path),
	}
}

func (m *Model) schema(path string) Schema {
	kids := m.children[path]
	if len(kids) == 0 {
		return nil
	}
	res := make(Schema, len(kids))
	for i, k := range kids {
		res[i] = m.prop(k)
	}
	return res
}
