package libdiff

import (
	"errors"
	"fmt"

	"github.com/signadot/tony-format/go-dash/kpath"
)

// ErrConflict is returned when a diff does not apply to a document.
var ErrConflict = errors.New("cannot patch")

// Patch applies d to doc and returns the result.  doc is not modified.  A
// top level Delete gives nil.
func Patch(doc any, d *Diff) (any, error) {
	return patch("", plain(doc), d)
}

func patch(path string, doc any, d *Diff) (any, error) {
	if d == nil {
		return doc, nil
	}
	switch d.Op {
	case Insert:
		return d.To, nil
	case Delete:
		if !Equal(doc, d.From) {
			return nil, conflict(path, "unexpected value %v", doc)
		}
		return nil, nil
	case Replace:
		if !Equal(doc, d.From) {
			return nil, conflict(path, "unexpected value %v, expected %v", doc, d.From)
		}
		return d.To, nil
	case StringDiff:
		s, ok := doc.(string)
		if !ok {
			return nil, conflict(path, "%s on %T", d.Op, doc)
		}
		return PatchString(path, s, d)
	case ArrayDiff:
		a, ok := doc.([]any)
		if !ok {
			return nil, conflict(path, "%s on %T", d.Op, doc)
		}
		return PatchArrayByIndex(path, a, d)
	case ObjectDiff:
		m, ok := doc.(map[string]any)
		if !ok {
			return nil, conflict(path, "%s on %T", d.Op, doc)
		}
		return patchObject(path, m, d)
	}
	return nil, fmt.Errorf("unexpected diff op %d at %q", d.Op, path)
}

func patchObject(path string, doc map[string]any, d *Diff) (map[string]any, error) {
	res := make(map[string]any, len(doc)+len(d.Fields))
	for k, v := range doc {
		res[k] = v
	}
	for _, k := range sortedFields(d.Fields) {
		fd := d.Fields[k]
		fp := kpath.Join(path, k)
		v, exists := res[k]
		switch fd.Op {
		case Insert:
			if exists {
				return nil, conflict(fp, "field exists")
			}
			res[k] = fd.To
			continue
		case Delete:
			if !exists {
				return nil, conflict(fp, "missing field")
			}
			if !Equal(v, fd.From) {
				return nil, conflict(fp, "unexpected value %v", v)
			}
			delete(res, k)
			continue
		}
		if !exists {
			return nil, conflict(fp, "missing field")
		}
		nv, err := patch(fp, plain(v), fd)
		if err != nil {
			return nil, err
		}
		res[k] = nv
	}
	return res, nil
}

func conflict(path, format string, args ...any) error {
	if path == "" {
		path = "(root)"
	}
	return fmt.Errorf("%w at %s: %s", ErrConflict, path, fmt.Sprintf(format, args...))
}
