package libdiff

import diffpatch "github.com/sergi/go-diff/diffmatchpatch"

// Diff is a node of a structural diff.
//
// Insert carries To, Delete carries From and Replace carries both.  The
// other ops carry the changes inside a value of the same type.
type Diff struct {
	Op   Op
	From any
	To   any

	// Fields holds the changed fields of an ObjectDiff.
	Fields map[string]*Diff

	// Items holds the changes of an ArrayDiff keyed by position in the
	// edit sequence.  Every position consumes one element of the source
	// except inserts, and one element of the result except deletes.
	// Positions absent from Items keep their element.
	Items map[int]*Diff

	// Text holds the edits of a StringDiff.
	Text []diffpatch.Diff
}

// DiffFunc compares two values, returning nil if they are equal.
type DiffFunc func(from, to any) *Diff

func replace(from, to any) *Diff {
	return &Diff{Op: Replace, From: from, To: to}
}
