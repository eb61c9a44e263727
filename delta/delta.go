// Package delta computes and applies changes to a model's serialized state
// as JSON merge patches (RFC 7386).
package delta

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/signadot/tony-format/go-dash/debug"
	"github.com/signadot/tony-format/go-dash/hub"
	"github.com/signadot/tony-format/go-dash/kpath"
	"github.com/signadot/tony-format/go-dash/model"
)

// Diff returns the merge patch turning the JSON document prev into cur and
// the changed leaves of that patch.  An empty prev diffs against {}.
func Diff(prev, cur []byte) ([]byte, []hub.Change, error) {
	if len(prev) == 0 {
		prev = []byte("{}")
	}
	patch, err := jsonpatch.CreateMergePatch(prev, cur)
	if err != nil {
		return nil, nil, err
	}
	changes, err := Changes(patch)
	if err != nil {
		return nil, nil, err
	}
	return patch, changes, nil
}

// Changes flattens a merge patch into its leaves in path order.  Nested
// objects are descended.  Arrays and scalars are leaves and a removed key is
// a leaf with a nil value.  Numbers are int64 if integral, else float64.
func Changes(patch []byte) ([]hub.Change, error) {
	doc, err := decode(patch)
	if err != nil {
		return nil, err
	}
	var res []hub.Change
	flatten("", doc, &res)
	return res, nil
}

func flatten(prefix string, v map[string]any, res *[]hub.Change) {
	for _, k := range sortedKeys(v) {
		p := kpath.Join(prefix, k)
		if sub, ok := v[k].(map[string]any); ok && len(sub) > 0 {
			flatten(p, sub, res)
			continue
		}
		*res = append(*res, hub.Change{Path: p, Value: plain(v[k])})
	}
}

// plain replaces the json.Numbers in v by int64 or float64.
func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = plain(x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = plain(x[k])
		}
	}
	return v
}

// Apply sets the values of a merge patch on m.  Keys naming object nodes
// recurse.  A map applied to a leaf holding a map is merged into its current
// value.  A list applied to an array of objects patches its elements in place
// by index; null entries are skipped and elements past the end are errors.
// Unknown keys are errors.
func Apply(m *model.Model, patch []byte) error {
	doc, err := decode(patch)
	if err != nil {
		return err
	}
	return apply(m, "", doc)
}

func apply(m *model.Model, prefix string, doc map[string]any) error {
	for _, k := range sortedKeys(doc) {
		p := kpath.Join(prefix, k)
		v := doc[k]
		n, err := m.Node(p)
		if err != nil {
			return err
		}
		if debug.Delta() {
			debug.Logf("delta apply %s: %v", p, v)
		}
		sub, isMap := v.(map[string]any)
		list, isList := v.([]any)
		switch {
		case n.Kind == model.ArrayKind && isList && objectElems(n):
			if err := applyElems(m, n, list); err != nil {
				return err
			}
			continue
		case n.Kind == model.ObjectKind && isMap:
			if err := apply(m, p, sub); err != nil {
				return err
			}
			continue
		case n.Kind == model.ScalarKind && isMap:
			if v, err = mergeLeaf(m, p, sub); err != nil {
				return err
			}
		}
		if err := m.Set(p, v); err != nil {
			return err
		}
	}
	return nil
}

func objectElems(n *model.Node) bool {
	return n.Elem != nil && *n.Elem == model.ObjectType
}

// applyElems merges each entry of list into the element of n at the same
// index, setting only the leaves whose values change.
func applyElems(m *model.Model, n *model.Node, list []any) error {
	for i, e := range list {
		if e == nil {
			continue
		}
		p := kpath.JoinIndex(n.Path, i)
		sub, ok := e.(map[string]any)
		if !ok {
			return &model.TypeError{Path: p, Expected: "object", Actual: fmt.Sprintf("%T", e)}
		}
		if _, err := m.Node(p); err != nil {
			return err
		}
		cur, err := m.Serialize(p)
		if err != nil {
			return err
		}
		curJSON, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		subJSON, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		merged, err := jsonpatch.MergePatch(curJSON, subJSON)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		changed, err := jsonpatch.CreateMergePatch(curJSON, merged)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		doc, err := decode(changed)
		if err != nil {
			return err
		}
		if err := apply(m, p, doc); err != nil {
			return err
		}
	}
	return nil
}

func mergeLeaf(m *model.Model, path string, sub map[string]any) (any, error) {
	cur, err := m.Serialize(path)
	if err != nil {
		return nil, err
	}
	if _, ok := cur.(map[string]any); !ok {
		return sub, nil
	}
	curJSON, err := json.Marshal(cur)
	if err != nil {
		return nil, err
	}
	subJSON, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}
	merged, err := jsonpatch.MergePatch(curJSON, subJSON)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res, err := decode(merged)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyOps applies a JSON patch (RFC 6902) to the serialized state of m.
// The operations run against the snapshot and the resulting differences are
// applied with Apply.
func ApplyOps(m *model.Model, ops []byte) error {
	p, err := jsonpatch.DecodePatch(ops)
	if err != nil {
		return err
	}
	snap, err := m.Snapshot()
	if err != nil {
		return err
	}
	before, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	after, err := p.Apply(before)
	if err != nil {
		return err
	}
	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return err
	}
	return Apply(m, patch)
}

// Snapshot returns the JSON encoding of m's serialized state.
func Snapshot(m *model.Model) ([]byte, error) {
	snap, err := m.Snapshot()
	if err != nil {
		return nil, err
	}
	return json.Marshal(snap)
}

func decode(d []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(d))
	dec.UseNumber()
	var res map[string]any
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("merge patch: %w", err)
	}
	if res == nil {
		return nil, errors.New("merge patch: not an object")
	}
	return res, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
