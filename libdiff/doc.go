// Package libdiff computes and applies structural diffs of settings
// documents.
//
// Documents are the plain values produced by decoding settings files: nil,
// bool, int64, uint64, float64, string, []any and map[string]any.
//
// # Usage
//
//	d := libdiff.Compare(oldDoc, newDoc)
//	patched, err := libdiff.Patch(oldDoc, d)
//	orig, err := libdiff.Patch(patched, libdiff.Reverse(d))
//
// A nil *Diff means the documents are equal.
package libdiff
