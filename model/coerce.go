package model

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

var jsonNumberType = reflect.TypeFor[json.Number]()

// coerce converts v to a value assignable to t.
func (m *Model) coerce(path string, t reflect.Type, v any) (reflect.Value, error) {
	if codec, ok := m.enums.Lookup(t); ok {
		if s, ok := v.(string); ok && reflect.TypeOf(v) != t {
			rv, err := codec.DecodeValue(s)
			if err != nil {
				return reflect.Value{}, pathErr("set", path, err)
			}
			return rv, nil
		}
		if v != nil && reflect.TypeOf(v) == t {
			return codec.FromAny(v)
		}
		return reflect.Value{}, typeErr(path, codec.Name(), v)
	}
	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, typeErr(path, t.String(), v)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		switch v.(type) {
		case []any, map[string]any:
			return reflect.ValueOf(normalize(v)), nil
		}
		return rv, nil
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, ok := toInt(rv)
		if !ok {
			return reflect.Value{}, typeErr(path, "int", v)
		}
		res := reflect.New(t).Elem()
		if res.OverflowInt(i) {
			return reflect.Value{}, &TypeError{Path: path, Message: fmt.Sprintf("%d overflows %s", i, t)}
		}
		res.SetInt(i)
		return res, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, ok := toUint(rv)
		if !ok {
			return reflect.Value{}, typeErr(path, "unsigned int", v)
		}
		res := reflect.New(t).Elem()
		if res.OverflowUint(u) {
			return reflect.Value{}, &TypeError{Path: path, Message: fmt.Sprintf("%d overflows %s", u, t)}
		}
		res.SetUint(u)
		return res, nil
	case reflect.Float32, reflect.Float64:
		f, ok := toFloat(rv)
		if !ok {
			return reflect.Value{}, typeErr(path, "float", v)
		}
		res := reflect.New(t).Elem()
		res.SetFloat(f)
		return res, nil
	case reflect.Bool:
		if rv.Kind() != reflect.Bool {
			return reflect.Value{}, typeErr(path, "bool", v)
		}
		return rv.Convert(t), nil
	case reflect.String:
		if rv.Kind() != reflect.String || rv.Type() == jsonNumberType {
			return reflect.Value{}, typeErr(path, "string", v)
		}
		return rv.Convert(t), nil
	case reflect.Interface:
		v = normalize(v)
		rv = reflect.ValueOf(v)
		if !rv.Type().AssignableTo(t) {
			return reflect.Value{}, typeErr(path, t.String(), v)
		}
		res := reflect.New(t).Elem()
		res.Set(rv)
		return res, nil
	case reflect.Slice:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return reflect.Value{}, typeErr(path, "array", v)
		}
		res := reflect.MakeSlice(t, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := m.coerce(fmt.Sprintf("%s[%d]", path, i), t.Elem(), rv.Index(i).Interface())
			if err != nil {
				return reflect.Value{}, err
			}
			res.Index(i).Set(e)
		}
		return res, nil
	case reflect.Array:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return reflect.Value{}, typeErr(path, "array", v)
		}
		if rv.Len() != t.Len() {
			return reflect.Value{}, &TypeError{Path: path, Message: fmt.Sprintf("expected %d elements, got %d", t.Len(), rv.Len())}
		}
		res := reflect.New(t).Elem()
		for i := 0; i < rv.Len(); i++ {
			e, err := m.coerce(fmt.Sprintf("%s[%d]", path, i), t.Elem(), rv.Index(i).Interface())
			if err != nil {
				return reflect.Value{}, err
			}
			res.Index(i).Set(e)
		}
		return res, nil
	case reflect.Map:
		if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || t.Key().Kind() != reflect.String {
			return reflect.Value{}, typeErr(path, "map", v)
		}
		res := reflect.MakeMapWithSize(t, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			e, err := m.coerce(path+"."+k, t.Elem(), iter.Value().Interface())
			if err != nil {
				return reflect.Value{}, err
			}
			res.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), e)
		}
		return res, nil
	}
	if rv.Type().AssignableTo(t) {
		res := reflect.New(t).Elem()
		res.Set(rv)
		return res, nil
	}
	return reflect.Value{}, typeErr(path, t.String(), v)
}

func toInt(rv reflect.Value) (int64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.String:
		if rv.Type() != jsonNumberType {
			return 0, false
		}
		i, err := strconv.ParseInt(rv.String(), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toUint(rv reflect.Value) (uint64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i < 0 {
			return 0, false
		}
		return uint64(i), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	case reflect.String:
		if rv.Type() != jsonNumberType {
			return 0, false
		}
		u, err := strconv.ParseUint(rv.String(), 10, 64)
		return u, err == nil
	}
	return 0, false
}

func toFloat(rv reflect.Value) (float64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		if rv.Type() != jsonNumberType {
			return 0, false
		}
		f, err := strconv.ParseFloat(rv.String(), 64)
		return f, err == nil
	}
	return 0, false
}

// normalize replaces JSON number literals anywhere in v.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		return normalizeNumber(x)
	case []any:
		res := make([]any, len(x))
		for i, e := range x {
			res[i] = normalize(e)
		}
		return res
	case map[string]any:
		res := make(map[string]any, len(x))
		for k, e := range x {
			res[k] = normalize(e)
		}
		return res
	}
	return v
}

// normalizeNumber converts a JSON number literal to int64 when it is
// integral and to float64 otherwise.
func normalizeNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}
