package libdiff

import "sort"

// DiffObject compares two maps field by field, using df on fields present
// in both.
func DiffObject(from, to map[string]any, df DiffFunc) *Diff {
	res := map[string]*Diff{}
	for k, fv := range from {
		tv, ok := to[k]
		if !ok {
			res[k] = &Diff{Op: Delete, From: fv}
			continue
		}
		if d := df(fv, tv); d != nil {
			res[k] = d
		}
	}
	for k, tv := range to {
		if _, ok := from[k]; !ok {
			res[k] = &Diff{Op: Insert, To: tv}
		}
	}
	if len(res) == 0 {
		return nil
	}
	return &Diff{Op: ObjectDiff, Fields: res}
}

func sortedFields(fields map[string]*Diff) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedItems(items map[int]*Diff) []int {
	keys := make([]int, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
