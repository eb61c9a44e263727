package libdiff

import (
	"strconv"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// DiffArrayByIndex compares two arrays.
//
//  1. each element is summarized as <type>-<value> for scalars and <type>
//     for containers and multi-line strings
//  2. the sequences of summaries are diffed
//  3. elements with equal summaries are compared with df
//  4. a delete directly followed by an insert becomes a replace
func DiffArrayByIndex(from, to []any, df DiffFunc) *Diff {
	m := map[string]rune{}
	fromRunes := mapValues(m, from)
	toRunes := mapValues(m, to)
	diffs := diffpatch.New().DiffMainRunes(fromRunes, toRunes, false)
	res := make(map[int]*Diff, len(diffs))

	fi, ti, ri := 0, 0, 0
	delIndex := -1
	for i := range diffs {
		diff := &diffs[i]
		n := len([]rune(diff.Text))
		switch diff.Type {
		case diffpatch.DiffDelete:
			for range n {
				res[ri] = &Diff{Op: Delete, From: from[fi]}
				delIndex = ri
				ri++
				fi++
			}
		case diffpatch.DiffEqual:
			delIndex = -1
			for range n {
				if d := df(from[fi], to[ti]); d != nil {
					res[ri] = d
				}
				ri++
				fi++
				ti++
			}
		case diffpatch.DiffInsert:
			for range n {
				if delIndex >= 0 && delIndex == ri-1 {
					res[ri-1] = replace(res[ri-1].From, to[ti])
				} else {
					res[ri] = &Diff{Op: Insert, To: to[ti]}
					ri++
				}
				ti++
				delIndex = -1
			}
		}
	}
	if len(res) == 0 {
		return nil
	}
	return &Diff{Op: ArrayDiff, Items: res}
}

func mapValues(m map[string]rune, vals []any) []rune {
	rs := make([]rune, len(vals))
	for i, v := range vals {
		sum := summaryStr(v)
		r, ok := m[sum]
		if !ok {
			r = rune(len(m))
			m[sum] = r
		}
		rs[i] = r
	}
	return rs
}

func summaryStr(v any) string {
	switch x := plain(v).(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case bool:
		return "bool-" + strconv.FormatBool(x)
	case string:
		if strings.Contains(x, "\n") {
			return "string/m"
		}
		return "string-" + x
	case int64:
		return "number-i-" + strconv.FormatInt(x, 10)
	case uint64:
		return "number-i-" + strconv.FormatUint(x, 10)
	case float64:
		return "number-f-" + strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return "other"
	}
}
