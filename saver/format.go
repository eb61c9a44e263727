package saver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
)

// Format is the encoding of a settings document.
type Format int

const (
	JSON Format = iota
	JSONC
	YAML
	TOML
	CBOR
)

var formatNames = map[Format]string{
	JSON:  "json",
	JSONC: "jsonc",
	YAML:  "yaml",
	TOML:  "toml",
	CBOR:  "cbor",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "<unknown format>"
}

// ParseFormat parses a format name as printed by String.  "yml" is accepted
// for YAML.
func ParseFormat(s string) (Format, error) {
	if s == "yml" {
		return YAML, nil
	}
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown format %q", s)
}

// FormatOf returns the format of the file at path, from its extension.
func FormatOf(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return 0, fmt.Errorf("%s: no extension", path)
	}
	return ParseFormat(ext)
}

// Document is a decoded settings document.  Values are normalized to int64,
// uint64 (for integers beyond int64), float64, bool, string, nil, []any and
// map[string]any.
type Document map[string]any

var cborDec, _ = cbor.DecOptions{
	DefaultMapType: reflect.TypeFor[map[string]any](),
}.DecMode()

// Decode decodes a document.  Empty input is an empty document.
func Decode(data []byte, f Format) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, nil
	}
	var raw any
	switch f {
	case JSON, JSONC:
		if f == JSONC {
			data = jsonc.ToJSON(data)
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f, err)
		}
	case YAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f, err)
		}
	case TOML:
		m := map[string]any{}
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f, err)
		}
		raw = m
	case CBOR:
		if err := cborDec.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f, err)
		}
	default:
		return nil, fmt.Errorf("unknown format %d", f)
	}
	if raw == nil {
		return Document{}, nil
	}
	v, err := normalize(raw)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("settings document must be a map, got %T", v)
	}
	return Document(m), nil
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
			if u, err := strconv.ParseUint(s, 10, 64); err == nil {
				return u, nil
			}
		}
		return strconv.ParseFloat(s, 64)
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return normalize(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), nil
		}
		return x, nil
	case float32:
		return float64(x), nil
	case []any:
		res := make([]any, len(x))
		for i, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			res[i] = n
		}
		return res, nil
	case map[string]any:
		res := make(map[string]any, len(x))
		for k, e := range x {
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			res[k] = n
		}
		return res, nil
	case map[any]any:
		res := make(map[string]any, len(x))
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("settings key %v is not a string", k)
			}
			n, err := normalize(e)
			if err != nil {
				return nil, err
			}
			res[ks] = n
		}
		return res, nil
	}
	return v, nil
}

// Encode encodes v, typically a model snapshot, in format f.  Integral
// floats keep a fractional part in JSON so they decode as floats.
func Encode(v any, f Format) ([]byte, error) {
	switch f {
	case JSON, JSONC:
		d, err := json.MarshalIndent(jsonFloats(v), "", "  ")
		if err != nil {
			return nil, err
		}
		return append(d, '\n'), nil
	case YAML:
		return yaml.Marshal(v)
	case TOML:
		return toml.Marshal(dropNulls(v))
	case CBOR:
		return cbor.Marshal(v)
	}
	return nil, fmt.Errorf("unknown format %d", f)
}

// MarshalJSON encodes v compactly, writing integral floats with a ".0" so
// readers can tell them from integers.
func MarshalJSON(v any) ([]byte, error) {
	return json.Marshal(jsonFloats(v))
}

// jsonFloats replaces integral floats with number literals ending in ".0".
func jsonFloats(v any) any {
	switch x := v.(type) {
	case float64:
		return floatLiteral(x)
	case float32:
		return floatLiteral(float64(x))
	case []any:
		res := make([]any, len(x))
		for i, e := range x {
			res[i] = jsonFloats(e)
		}
		return res
	case map[string]any:
		res := make(map[string]any, len(x))
		for k, e := range x {
			res[k] = jsonFloats(e)
		}
		return res
	case Document:
		return jsonFloats(map[string]any(x))
	}
	return v
}

func floatLiteral(f float64) any {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return json.Number(s)
}

// dropNulls removes nil map entries, which TOML cannot represent.  Nil list
// entries become empty tables so the other entries keep their index.
func dropNulls(v any) any {
	switch x := v.(type) {
	case []any:
		res := make([]any, len(x))
		for i, e := range x {
			if e == nil {
				res[i] = map[string]any{}
				continue
			}
			res[i] = dropNulls(e)
		}
		return res
	case map[string]any:
		res := make(map[string]any, len(x))
		for k, e := range x {
			if e != nil {
				res[k] = dropNulls(e)
			}
		}
		return res
	case Document:
		return dropNulls(map[string]any(x))
	}
	return v
}
