package libdiff

import "reflect"

// Compare returns the diff turning from into to, or nil if they are equal.
func Compare(from, to any) *Diff {
	from, to = plain(from), plain(to)
	switch f := from.(type) {
	case nil:
		if to == nil {
			return nil
		}
	case bool:
		if t, ok := to.(bool); ok {
			if f == t {
				return nil
			}
		}
	case int64, uint64, float64:
		if isNumber(to) {
			return DiffNumber(from, to)
		}
	case string:
		if t, ok := to.(string); ok {
			return DiffString(f, t)
		}
	case []any:
		if t, ok := to.([]any); ok {
			return DiffArrayByIndex(f, t, Compare)
		}
	case map[string]any:
		if t, ok := to.(map[string]any); ok {
			return DiffObject(f, t, Compare)
		}
	}
	return replace(from, to)
}

// Equal reports whether a and b are the same document.
func Equal(a, b any) bool {
	return Compare(a, b) == nil
}

// plain converts named document types and the smaller numeric types.
func plain(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return uint64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case map[string]any, []any:
		return v
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().ConvertibleTo(mapType) {
		return rv.Convert(mapType).Interface()
	}
	return v
}

var mapType = reflect.TypeFor[map[string]any]()
