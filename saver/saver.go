// Package saver loads plugin settings from a document on disk and applies
// them through a model, and writes model state back.
//
// Documents are JSON, JSONC, YAML, TOML or CBOR, chosen by file extension.
// Applying a document is strict: a value must have the same class (int,
// float, bool, string, list or map) as the property it overrides.
package saver

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/signadot/tony-format/go-dash/debug"
	"github.com/signadot/tony-format/go-dash/enum"
	"github.com/signadot/tony-format/go-dash/meta"
	"github.com/signadot/tony-format/go-dash/model"
)

// Saver reads and writes the settings document of one plugin.
type Saver struct {
	path   string
	format Format
	log    *slog.Logger
	enums  *enum.Registry
	meta   *meta.Registry
}

// Option configures New.
type Option func(*Saver)

// WithLogger sets the logger for warnings about ignored settings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Saver) { s.log = l }
}

// WithEnums sets the enumeration registry of the models the saver builds.
func WithEnums(r *enum.Registry) Option {
	return func(s *Saver) { s.enums = r }
}

// WithMeta sets the annotation registry of the models the saver builds.
func WithMeta(r *meta.Registry) Option {
	return func(s *Saver) { s.meta = r }
}

// WithFormat overrides the format implied by the file extension.
func WithFormat(f Format) Option {
	return func(s *Saver) { s.format = f }
}

// New returns a saver for the document at path.
func New(path string, opts ...Option) (*Saver, error) {
	s := &Saver{path: path, format: -1, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.format < 0 {
		f, err := FormatOf(path)
		if err != nil {
			return nil, err
		}
		s.format = f
	}
	s.log = s.log.With("settings", path)
	return s, nil
}

// Path returns the path of the settings document.
func (s *Saver) Path() string { return s.path }

// Format returns the format the document is read and written in.
func (s *Saver) Format() Format { return s.format }

// Model builds a model of obj with the saver's registries.
func (s *Saver) Model(obj any) (*model.Model, error) {
	opts := []model.Option{model.WithLogger(s.log)}
	if s.enums != nil {
		opts = append(opts, model.WithEnums(s.enums))
	}
	if s.meta != nil {
		opts = append(opts, model.WithMeta(s.meta))
	}
	return model.New(obj, opts...)
}

// Load reads the document.  A missing file is an empty document.
func (s *Saver) Load() (Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, nil
	}
	if err != nil {
		return nil, err
	}
	doc, err := Decode(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	if debug.Saver() {
		debug.LogAny(doc)
	}
	return doc, nil
}

// Apply loads the document and applies it to obj, a plugin or a
// *model.Model.
func (s *Saver) Apply(obj any) ([]Warning, error) {
	m, ok := obj.(*model.Model)
	if !ok {
		var err error
		if m, err = s.Model(obj); err != nil {
			return nil, err
		}
	}
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return s.ApplyDocument(m, doc)
}

// Wrap returns a constructor that builds a plugin with ctor and then applies
// the saved settings to it.
func Wrap[T any](s *Saver, ctor func() T) func() (T, error) {
	return func() (T, error) {
		obj := ctor()
		_, err := s.Apply(obj)
		return obj, err
	}
}

// Save writes the settable state of obj, a plugin or a *model.Model,
// replacing the document.  Read-only and computed properties are left out so
// the document can be applied back.
func (s *Saver) Save(obj any) error {
	m, ok := obj.(*model.Model)
	if !ok {
		var err error
		if m, err = s.Model(obj); err != nil {
			return err
		}
	}
	st, err := State(m)
	if err != nil {
		return err
	}
	data, err := Encode(st, s.format)
	if err != nil {
		return err
	}
	return writeFile(s.path, data)
}

// State returns the serialized values of the settable properties of m, nested
// by object.  Arrays of objects become lists of their elements' settable
// properties.  Objects behind nil pointers are left out.
func State(m *model.Model) (map[string]any, error) {
	root, err := m.Props("")
	if err != nil {
		return nil, err
	}
	return collect(m, root.Children)
}

// StateAt returns the value at path as State records it: arrays of objects
// keep only their elements' settable properties, anything else is the
// serialized value.
func StateAt(m *model.Model, path string) (any, error) {
	p, err := m.Props(path)
	if err != nil {
		return nil, err
	}
	if p.Kind == model.ArrayKind && objectElems(p) {
		elems, _, err := collectElems(m, p)
		return elems, err
	}
	return m.Serialize(path)
}

func objectElems(p *model.Descriptor) bool {
	return p.Elem != nil && *p.Elem == model.ObjectType
}

// collectElems returns the state of each element of an object array and
// whether any of them holds a setting.
func collectElems(m *model.Model, p *model.Descriptor) ([]any, bool, error) {
	elems := make([]any, len(p.Children))
	found := false
	for i, e := range p.Children {
		sub, err := collect(m, e.Children)
		if err != nil {
			return nil, false, err
		}
		elems[i] = sub
		found = found || len(sub) > 0
	}
	return elems, found, nil
}

func collect(m *model.Model, props model.Schema) (map[string]any, error) {
	res := map[string]any{}
	for _, p := range props {
		switch {
		case p.Kind == model.ObjectKind:
			sub, err := collect(m, p.Children)
			if err != nil {
				return nil, err
			}
			if len(sub) > 0 {
				res[p.Name] = sub
			}
		case p.Kind == model.ArrayKind && objectElems(p):
			elems, found, err := collectElems(m, p)
			if err != nil {
				return nil, err
			}
			if found {
				res[p.Name] = elems
			}
		case p.Kind == model.MethodKind || !p.Settable:
		default:
			v, err := m.Serialize(p.Path)
			if errors.Is(err, model.ErrNilPointer) {
				continue
			}
			if err != nil {
				return nil, err
			}
			res[p.Name] = v
		}
	}
	return res, nil
}

// writeFile replaces the file at path atomically.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
