package meta

import (
	"fmt"
	"strconv"
	"strings"
)

// TagKey is the struct tag key read by ParseTag.
const TagKey = "dash"

// Tag is a parsed `dash:"..."` struct tag.
//
//	Gain float64 `dash:"name=gain,doc='amplifier gain',min=0,max=10,step=0.5"`
//	secret  int  `dash:"-"`
//	Serial  string `dash:"readonly"`
type Tag struct {
	Name     string
	Doc      string
	HasDoc   bool
	Skip     bool
	ReadOnly bool
	Meta     map[string]any
}

// ParseTag parses a tag value.  Entries are separated by commas; each is
// either a flag or key=value.  Values may be single quoted to include commas,
// and unquoted values that parse as numbers or booleans are stored as such.
func ParseTag(tag string) (*Tag, error) {
	res := &Tag{}
	if tag == "" {
		return res, nil
	}
	if tag == "-" {
		res.Skip = true
		return res, nil
	}
	entries, err := splitTag(tag)
	if err != nil {
		return nil, err
	}
	for _, ent := range entries {
		key, val, hasVal := strings.Cut(ent.text, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("tag %q: empty key", tag)
		}
		switch key {
		case "name":
			res.Name = val
			continue
		case "doc":
			res.Doc, res.HasDoc = val, true
			continue
		case "readonly":
			if hasVal {
				return nil, fmt.Errorf("tag %q: readonly takes no value", tag)
			}
			res.ReadOnly = true
			continue
		}
		if res.Meta == nil {
			res.Meta = map[string]any{}
		}
		if !hasVal {
			res.Meta[key] = true
			continue
		}
		if ent.quoted {
			res.Meta[key] = val
			continue
		}
		res.Meta[key] = scalar(val)
	}
	return res, nil
}

type tagEntry struct {
	text   string
	quoted bool
}

// splitTag splits on commas outside single quotes and removes the quotes.
func splitTag(tag string) ([]tagEntry, error) {
	var (
		res    []tagEntry
		cur    strings.Builder
		quoted bool
		inQ    bool
	)
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		switch {
		case inQ && c == '\\' && i+1 < len(tag):
			i++
			cur.WriteByte(tag[i])
		case c == '\'':
			inQ = !inQ
			quoted = true
		case c == ',' && !inQ:
			res = append(res, tagEntry{text: cur.String(), quoted: quoted})
			cur.Reset()
			quoted = false
		default:
			cur.WriteByte(c)
		}
	}
	if inQ {
		return nil, fmt.Errorf("tag %q: unterminated quote", tag)
	}
	return append(res, tagEntry{text: cur.String(), quoted: quoted}), nil
}

func scalar(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
