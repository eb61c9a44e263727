package meta

import (
	"fmt"
	"slices"
	"sort"
)

// Metadata keys understood by frontends.
const (
	KeyMin         = "min"
	KeyMax         = "max"
	KeyStep        = "step"
	KeyUnits       = "units"
	KeyDisplayName = "displayName"
	KeyRenderAs    = "renderAs"
)

type keyKind int

const (
	kindNumber keyKind = iota
	kindString
	kindDeprecated
)

var knownKeys = map[string]keyKind{
	KeyMin:         kindNumber,
	KeyMax:         kindNumber,
	KeyStep:        kindNumber,
	KeyUnits:       kindString,
	KeyDisplayName: kindString,
	KeyRenderAs:    kindString,
	"isImage":      kindDeprecated,
	"isDataStream": kindDeprecated,
	"isSlider":     kindDeprecated,
}

// RenderAs values.
var renderAs = []string{"textarea", "slider", "image", "graph"}

// Validate checks known keys of m and returns human readable warnings.
// Unknown keys are allowed and pass through untouched.
func Validate(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var res []string
	for _, k := range keys {
		kind, ok := knownKeys[k]
		if !ok {
			continue
		}
		v := m[k]
		switch kind {
		case kindNumber:
			if !isNumber(v) {
				res = append(res, fmt.Sprintf("%s: expected a number, got %T", k, v))
			}
		case kindString:
			s, ok := v.(string)
			if !ok {
				res = append(res, fmt.Sprintf("%s: expected a string, got %T", k, v))
				continue
			}
			if k == KeyRenderAs && !slices.Contains(renderAs, s) {
				res = append(res, fmt.Sprintf("%s: unknown value %q", k, s))
			}
		case kindDeprecated:
			res = append(res, fmt.Sprintf("%s is deprecated, use %s", k, KeyRenderAs))
		}
	}
	if lo, ok := toFloat(m[KeyMin]); ok {
		if hi, ok := toFloat(m[KeyMax]); ok && lo > hi {
			res = append(res, fmt.Sprintf("min %v is greater than max %v", m[KeyMin], m[KeyMax]))
		}
	}
	return res
}

func isNumber(v any) bool {
	_, ok := toFloat(v)
	return ok
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
