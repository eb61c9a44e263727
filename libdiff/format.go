package libdiff

import (
	"fmt"
	"io"
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"github.com/signadot/tony-format/go-dash/kpath"
	"github.com/signadot/tony-format/go-dash/saver"
)

// Line is one leaf change of a diff.
type Line struct {
	Op   Op
	Path string
	Text string
}

func (l Line) String() string {
	path := l.Path
	if path == "" {
		path = "."
	}
	return l.Op.Prefix() + " " + path + ": " + l.Text
}

// Prefix returns the marker of op in rendered lines.
func (o Op) Prefix() string {
	switch o {
	case Insert:
		return "+"
	case Delete:
		return "-"
	}
	return "~"
}

// Lines flattens d into leaf changes in path order.  Array elements are
// named by their index in the source, inserted ones by their index in the
// result.
func Lines(d *Diff) []Line {
	var res []Line
	lines("", d, &res)
	return res
}

func lines(path string, d *Diff, res *[]Line) {
	if d == nil {
		return
	}
	switch d.Op {
	case Insert:
		*res = append(*res, Line{Op: Insert, Path: path, Text: value(d.To)})
	case Delete:
		*res = append(*res, Line{Op: Delete, Path: path, Text: value(d.From)})
	case Replace:
		*res = append(*res, Line{Op: Replace, Path: path, Text: value(d.From) + " -> " + value(d.To)})
	case StringDiff:
		*res = append(*res, Line{Op: StringDiff, Path: path, Text: text(d.Text)})
	case ObjectDiff:
		for _, k := range sortedFields(d.Fields) {
			lines(kpath.Join(path, k), d.Fields[k], res)
		}
	case ArrayDiff:
		fi, ti, last := 0, 0, -1
		for _, di := range sortedItems(d.Items) {
			gap := di - last - 1
			fi += gap
			ti += gap
			last = di
			item := d.Items[di]
			switch item.Op {
			case Insert:
				lines(kpath.JoinIndex(path, ti), item, res)
				ti++
			case Delete:
				lines(kpath.JoinIndex(path, fi), item, res)
				fi++
			default:
				lines(kpath.JoinIndex(path, fi), item, res)
				fi++
				ti++
			}
		}
	}
}

func value(v any) string {
	data, err := saver.MarshalJSON(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// text renders string edits inline, deletions as [-x-] and insertions as
// {+y+}.
func text(diffs []diffpatch.Diff) string {
	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffpatch.DiffEqual:
			sb.WriteString(d.Text)
		case diffpatch.DiffDelete:
			sb.WriteString("[-" + d.Text + "-]")
		case diffpatch.DiffInsert:
			sb.WriteString("{+" + d.Text + "+}")
		}
	}
	return fmt.Sprintf("%q", sb.String())
}

// Write writes the lines of d to w, passing each through style if it is
// not nil.
func Write(w io.Writer, d *Diff, style func(Line) string) error {
	for _, l := range Lines(d) {
		s := l.String()
		if style != nil {
			s = style(l)
		}
		if _, err := io.WriteString(w, s+"\n"); err != nil {
			return err
		}
	}
	return nil
}
