// Package kpath implements the path syntax used to address model properties.
//
//   - "a.b" → field b of object a
//   - "a[0]" → element 0 of array a
//   - "a[0][1]" → element 1 of element 0 of a
//   - "list[1].field" → field of the object at list[1]
//   - "'odd.name'.x" → quoted field names may contain any character
package kpath

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// KPath is a linked list of path segments.  Exactly one of Field or Index is
// set on each segment.
type KPath struct {
	Field *string
	Index *int
	Next  *KPath
}

// FieldPath returns a single segment path for field f.
func FieldPath(f string) *KPath {
	return &KPath{Field: &f}
}

// IndexPath returns a single segment path for index i.
func IndexPath(i int) *KPath {
	return &KPath{Index: &i}
}

// String returns the canonical string representation of p.
func (p *KPath) String() string {
	if p == nil {
		return ""
	}
	buf := bytes.NewBuffer(nil)
	for x := p; x != nil; x = x.Next {
		switch {
		case x.Field != nil:
			if buf.Len() > 0 {
				buf.WriteByte('.')
			}
			buf.WriteString(QuoteField(*x.Field))
		case x.Index != nil:
			fmt.Fprintf(buf, "[%d]", *x.Index)
		}
	}
	return buf.String()
}

// SegmentString returns the string form of the first segment of p only.
func (p *KPath) SegmentString() string {
	if p == nil {
		return ""
	}
	switch {
	case p.Field != nil:
		return QuoteField(*p.Field)
	case p.Index != nil:
		return "[" + strconv.Itoa(*p.Index) + "]"
	}
	return ""
}

// Last returns the last segment of p.
func (p *KPath) Last() *KPath {
	if p == nil {
		return nil
	}
	x := p
	for x.Next != nil {
		x = x.Next
	}
	return x
}

// Len returns the number of segments in p.
func (p *KPath) Len() int {
	n := 0
	for x := p; x != nil; x = x.Next {
		n++
	}
	return n
}

// Append returns a copy of p followed by q.
func (p *KPath) Append(q *KPath) *KPath {
	if p == nil {
		return q.clone()
	}
	res := p.clone()
	res.Last().Next = q.clone()
	return res
}

func (p *KPath) clone() *KPath {
	if p == nil {
		return nil
	}
	res := &KPath{Field: p.Field, Index: p.Index}
	res.Next = p.Next.clone()
	return res
}

// Parse parses a path string.  The empty string is the root path and parses
// to nil.
func Parse(s string) (*KPath, error) {
	if s == "" {
		return nil, nil
	}
	root := &KPath{}
	if err := parseFrag(s, root, true); err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", s, err)
	}
	return root, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *KPath {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func parseFrag(frag string, parent *KPath, first bool) error {
	if len(frag) == 0 {
		return fmt.Errorf("unexpected end of path")
	}
	var rest string
	switch frag[0] {
	case '.':
		if first {
			return fmt.Errorf("leading '.'")
		}
		field, r, err := parseField(frag[1:])
		if err != nil {
			return err
		}
		parent.Field = &field
		rest = r
	case '[':
		i := strings.IndexByte(frag, ']')
		if i == -1 {
			return fmt.Errorf("expected '[' <index> ']'")
		}
		index, err := parseIndex(frag[1:i])
		if err != nil {
			return err
		}
		parent.Index = &index
		rest = frag[i+1:]
	default:
		if !first {
			return fmt.Errorf("expected '.' or '[', got %q", frag[0])
		}
		field, r, err := parseField(frag)
		if err != nil {
			return err
		}
		parent.Field = &field
		rest = r
	}
	if rest == "" {
		return nil
	}
	next := &KPath{}
	if err := parseFrag(rest, next, false); err != nil {
		return err
	}
	parent.Next = next
	return nil
}

func parseIndex(is string) (int, error) {
	u64, err := strconv.ParseUint(is, 10, 31)
	if err != nil {
		return 0, fmt.Errorf("invalid array index %q: %v", is, err)
	}
	return int(u64), nil
}

// parseField parses a field name, quoted or not, stopping at '.' or '['.
func parseField(frag string) (field, rest string, err error) {
	if len(frag) == 0 {
		return "", "", fmt.Errorf("expected field at end of string")
	}
	if frag[0] == '\'' || frag[0] == '"' {
		n, err := quotedEnd(frag)
		if err != nil {
			return "", "", fmt.Errorf("invalid quoted field: %w", err)
		}
		return unquote(frag[1 : n-1]), frag[n:], nil
	}
	i := strings.IndexAny(frag, ".[")
	if i == 0 {
		return "", "", fmt.Errorf("empty field")
	}
	if i == -1 {
		return frag, "", nil
	}
	return frag[:i], frag[i:], nil
}

// quotedEnd returns the length of the quoted string at the start of s,
// including both quotes.
func quotedEnd(s string) (int, error) {
	q := s[0]
	escaped := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == q:
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unterminated quote")
}

func unquote(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !escaped && c == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteByte(c)
	}
	return b.String()
}

// QuoteField returns f quoted if it cannot be written bare in a path.
func QuoteField(f string) string {
	if f != "" && !strings.ContainsAny(f, ".[]'\"\\ \t\n") {
		return f
	}
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(f); i++ {
		c := f[i]
		if c == '\'' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('\'')
	return b.String()
}

// Join joins a parent path string and a child field name.
func Join(parent, field string) string {
	if parent == "" {
		return QuoteField(field)
	}
	return parent + "." + QuoteField(field)
}

// JoinIndex appends index i to parent.
func JoinIndex(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

// Split returns the first segment of a path string and the remainder.
//
//   - Split("a.b.c") → ("a", "b.c")
//   - Split("a[0].b") → ("a", "[0].b")
//   - Split("[0].b") → ("[0]", "b")
func Split(s string) (first, rest string, err error) {
	p, err := Parse(s)
	if err != nil || p == nil {
		return "", "", err
	}
	return p.SegmentString(), p.Next.String(), nil
}

// SJSON returns p in the dotted form used by gjson and sjson, with array
// indices as numeric components and special characters escaped.
func (p *KPath) SJSON() string {
	var parts []string
	for x := p; x != nil; x = x.Next {
		switch {
		case x.Field != nil:
			parts = append(parts, sjsonEscape(*x.Field))
		case x.Index != nil:
			parts = append(parts, strconv.Itoa(*x.Index))
		}
	}
	return strings.Join(parts, ".")
}

func sjsonEscape(f string) string {
	if !strings.ContainsAny(f, ".*?|#@\\") {
		return f
	}
	var b strings.Builder
	for i := 0; i < len(f); i++ {
		switch f[i] {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(f[i])
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (p *KPath) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *KPath) UnmarshalText(d []byte) error {
	q, err := Parse(string(d))
	if err != nil {
		return err
	}
	if q == nil {
		*p = KPath{}
		return nil
	}
	*p = *q
	return nil
}
