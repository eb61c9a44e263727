package libdiff

import diffpatch "github.com/sergi/go-diff/diffmatchpatch"

// Reverse returns the diff undoing d.
func Reverse(d *Diff) *Diff {
	if d == nil {
		return nil
	}
	res := &Diff{Op: d.Op, From: d.To, To: d.From}
	switch d.Op {
	case Insert:
		res.Op = Delete
	case Delete:
		res.Op = Insert
	case StringDiff:
		res.Text = make([]diffpatch.Diff, len(d.Text))
		for i, e := range d.Text {
			switch e.Type {
			case diffpatch.DiffInsert:
				e.Type = diffpatch.DiffDelete
			case diffpatch.DiffDelete:
				e.Type = diffpatch.DiffInsert
			}
			res.Text[i] = e
		}
	case ArrayDiff:
		res.Items = make(map[int]*Diff, len(d.Items))
		for i, item := range d.Items {
			res.Items[i] = Reverse(item)
		}
	case ObjectDiff:
		res.Fields = make(map[string]*Diff, len(d.Fields))
		for k, f := range d.Fields {
			res.Fields[k] = Reverse(f)
		}
	}
	return res
}
