package libdiff

// Op is the kind of a diff node.
type Op int

const (
	Insert Op = iota + 1
	Delete
	Replace
	StringDiff
	ArrayDiff
	ObjectDiff
)

const (
	DeleteTag     = "!delete"
	InsertTag     = "!insert"
	ReplaceTag    = "!replace"
	StringDiffTag = "!strdiff"
	ArrayDiffTag  = "!arraydiff"
	ObjectDiffTag = "!objdiff"
)

var opTags = map[Op]string{
	Insert:     InsertTag,
	Delete:     DeleteTag,
	Replace:    ReplaceTag,
	StringDiff: StringDiffTag,
	ArrayDiff:  ArrayDiffTag,
	ObjectDiff: ObjectDiffTag,
}

func (o Op) String() string {
	if t, ok := opTags[o]; ok {
		return t
	}
	return "!unknown"
}
