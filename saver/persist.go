package saver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/signadot/tony-format/go-dash/debug"
	"github.com/signadot/tony-format/go-dash/kpath"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
)

// Persist records a single setting, a serialized value, in the document.
// JSON documents are edited in place and left untouched when they already
// hold value.  JSONC documents lose their comments.  Other formats are
// rewritten whole.
func (s *Saver) Persist(path string, value any) error {
	kp, err := kpath.Parse(path)
	if err != nil {
		return err
	}
	if kp == nil {
		return fmt.Errorf("persist: empty path")
	}
	if s.format == JSON || s.format == JSONC {
		return s.persistJSON(kp, value)
	}
	doc, err := s.Load()
	if err != nil {
		return err
	}
	if _, err := setIn(map[string]any(doc), kp, value); err != nil {
		return fmt.Errorf("persist %s: %w", path, err)
	}
	data, err := Encode(doc, s.format)
	if err != nil {
		return err
	}
	return writeFile(s.path, data)
}

func (s *Saver) persistJSON(kp *kpath.KPath, value any) error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		data = []byte("{}\n")
	} else if err != nil {
		return err
	}
	if s.format == JSONC {
		data = jsonc.ToJSON(data)
	}
	raw, err := json.Marshal(jsonFloats(value))
	if err != nil {
		return err
	}
	p := kp.SJSON()
	if cur := gjson.GetBytes(data, p); cur.Exists() && cur.Raw == string(raw) {
		return nil
	}
	out, err := sjson.SetRawBytesOptions(data, p, raw, &sjson.Options{Optimistic: true})
	if err != nil {
		return fmt.Errorf("persist %s: %w", kp, err)
	}
	if debug.Saver() {
		debug.Logf("persist %s = %s", kp, raw)
	}
	return writeFile(s.path, out)
}

// setIn assigns value at kp inside cur and returns the updated container.
// Missing maps are created and lists are padded with nulls up to the index.
func setIn(cur any, kp *kpath.KPath, value any) (any, error) {
	if kp == nil {
		return value, nil
	}
	if kp.Field != nil {
		m, ok := cur.(map[string]any)
		if cur == nil {
			m, ok = map[string]any{}, true
		}
		if !ok {
			return nil, fmt.Errorf("%s is not a map", kp)
		}
		v, err := setIn(m[*kp.Field], kp.Next, value)
		if err != nil {
			return nil, err
		}
		m[*kp.Field] = v
		return m, nil
	}
	l, ok := cur.([]any)
	if cur == nil {
		ok = true
	}
	if !ok {
		return nil, fmt.Errorf("%s is not a list", kp)
	}
	for len(l) <= *kp.Index {
		l = append(l, nil)
	}
	v, err := setIn(l[*kp.Index], kp.Next, value)
	if err != nil {
		return nil, err
	}
	l[*kp.Index] = v
	return l, nil
}
