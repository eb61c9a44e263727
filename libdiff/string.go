package libdiff

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// DiffString compares two strings.  Small edits give a StringDiff, large
// ones a Replace.
func DiffString(from, to string) *Diff {
	if from == to {
		return nil
	}
	dmp := diffpatch.New()
	multiLine := strings.Contains(from, "\n") && strings.Contains(to, "\n")
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(from, to, multiLine))
	size := 0
	for _, d := range diffs {
		if d.Type != diffpatch.DiffEqual {
			size += len([]rune(d.Text))
		}
	}
	if size > min(len([]rune(from)), len([]rune(to)))/2 {
		return replace(from, to)
	}
	return &Diff{Op: StringDiff, Text: diffs}
}
