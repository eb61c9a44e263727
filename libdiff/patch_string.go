package libdiff

import (
	"strings"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// PatchString applies a StringDiff to doc.
func PatchString(path, doc string, d *Diff) (string, error) {
	var sb strings.Builder
	rest := doc
	for _, e := range d.Text {
		switch e.Type {
		case diffpatch.DiffEqual, diffpatch.DiffDelete:
			if !strings.HasPrefix(rest, e.Text) {
				return "", conflict(path, "unexpected text %q, expected %q", rest, e.Text)
			}
			rest = rest[len(e.Text):]
			if e.Type == diffpatch.DiffEqual {
				sb.WriteString(e.Text)
			}
		case diffpatch.DiffInsert:
			sb.WriteString(e.Text)
		}
	}
	if rest != "" {
		return "", conflict(path, "unexpected trailing text %q", rest)
	}
	return sb.String(), nil
}
