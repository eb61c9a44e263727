package libdiff

import "github.com/signadot/tony-format/go-dash/kpath"

// PatchArrayByIndex applies an ArrayDiff to doc.
func PatchArrayByIndex(path string, doc []any, d *Diff) ([]any, error) {
	res := make([]any, 0, len(doc)+len(d.Items))
	n := len(doc)
	fi := 0
	last := -1
	for _, di := range sortedItems(d.Items) {
		for p := last + 1; p < di; p++ {
			if fi >= n {
				return nil, conflict(path, "array too short")
			}
			res = append(res, doc[fi])
			fi++
		}
		last = di
		op := d.Items[di]
		if op.Op == Insert {
			res = append(res, op.To)
			continue
		}
		if fi >= n {
			return nil, conflict(kpath.JoinIndex(path, fi), "array too short")
		}
		if op.Op == Delete {
			if !Equal(doc[fi], op.From) {
				return nil, conflict(kpath.JoinIndex(path, fi), "unexpected value %v", doc[fi])
			}
			fi++
			continue
		}
		v, err := patch(kpath.JoinIndex(path, fi), plain(doc[fi]), op)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
		fi++
	}
	return append(res, doc[fi:]...), nil
}
