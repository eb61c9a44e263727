package saver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/tony-format/go-dash/demo"
	"github.com/signadot/tony-format/go-dash/enum"
	"github.com/signadot/tony-format/go-dash/model"
)

type Color string

const (
	Red   Color = "red"
	Green Color = "green"
	Blue  Color = "blue"
)

type Sub struct {
	Value float64 `dash:"name=value"`
}

type Simple1 struct {
	AFloat     float64   `dash:"name=a_float"`
	AInt       int       `dash:"name=a_int"`
	AString    string    `dash:"name=a_string"`
	ABool      bool      `dash:"name=a_bool"`
	AEnum      Color     `dash:"name=a_enum"`
	ArrayInt   []int     `dash:"name=array_int"`
	ArrayFloat []float64 `dash:"name=array_float"`
	ArrayMix   []any     `dash:"name=array_mix"`
	Sub        *Sub      `dash:"name=sub"`
	Serial     string    `dash:"name=serial,readonly"`
}

func newSimple1() *Simple1 {
	return &Simple1{
		AString:    "test",
		AEnum:      Red,
		ArrayInt:   []int{1, 2, 3, 4},
		ArrayFloat: []float64{0.1, 0.2, 0.3},
		ArrayMix:   []any{0, 0.1, false, "test"},
		Sub:        &Sub{},
	}
}

func colors(t *testing.T) *enum.Registry {
	t.Helper()
	e, err := enum.New("Color", enum.Self(Red, "RED"), enum.Self(Green, "GREEN"), enum.Self(Blue, "BLUE"))
	if err != nil {
		t.Fatal(err)
	}
	r := enum.NewRegistry()
	if err := r.Register(e); err != nil {
		t.Fatal(err)
	}
	return r
}

func writeSettings(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const jsonSettings = `{
	"a_float": 10.0,
	"a_int": 1,
	"array_int": [11, 12, 13, 14],
	"array_mix": [1, 0.2, true, "the test"],
	"sub": {"value": 1.0},
	"a_enum": "blue"
}`

func TestApplyFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "s.json", jsonSettings},
		{"jsonc", "s.jsonc", `{
	// comments and trailing commas are allowed
	"a_float": 10.0,
	"a_int": 1,
	"array_int": [11, 12, 13, 14,],
	"array_mix": [1, 0.2, true, "the test"],
	"sub": {"value": 1.0},
	"a_enum": "blue",
}`},
		{"yaml", "s.yaml", `
a_float: 10.0
a_int: 1
array_int: [11, 12, 13, 14]
array_mix: [1, 0.2, true, "the test"]
sub:
  value: 1.0
a_enum: blue
`},
		{"toml", "s.toml", `
a_float = 10.0
a_int = 1
array_int = [11, 12, 13, 14]
array_mix = [1, 0.2, true, "the test"]
a_enum = "blue"

[sub]
value = 1.0
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(writeSettings(t, tt.file, tt.content), WithEnums(colors(t)))
			if err != nil {
				t.Fatal(err)
			}
			obj, err := Wrap(s, newSimple1)()
			if err != nil {
				t.Fatal(err)
			}
			want := newSimple1()
			want.AFloat = 10
			want.AInt = 1
			want.ArrayInt = []int{11, 12, 13, 14}
			want.ArrayMix = []any{int64(1), 0.2, true, "the test"}
			want.Sub.Value = 1
			want.AEnum = Blue
			if diff := cmp.Diff(want, obj); diff != "" {
				t.Errorf("applied (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name     string
		settings string
		wantErr  error
		msg      string
	}{
		{"float for int", `{"a_int": 1.0}`, model.ErrTypeMismatch, "cannot override class parameter"},
		{"int for float", `{"sub": {"value": 0}}`, model.ErrTypeMismatch, "cannot override class parameter"},
		{"string for bool", `{"a_bool": "yes"}`, model.ErrTypeMismatch, "cannot override class parameter"},
		{"scalar for object", `{"sub": 3}`, model.ErrTypeMismatch, "cannot override class parameter"},
		{"enum number", `{"a_enum": 1.0}`, model.ErrEnumLookup, "1 is not a valid Color"},
		{"enum unknown", `{"a_enum": "yellow"}`, model.ErrEnumLookup, "is not a valid Color"},
		{"read only", `{"serial": "x"}`, model.ErrNotSettable, ""},
		{"bad element", `{"array_int": [1, "two"]}`, model.ErrTypeMismatch, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(writeSettings(t, "s.json", tt.settings), WithEnums(colors(t)))
			if err != nil {
				t.Fatal(err)
			}
			_, err = s.Apply(newSimple1())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestApplyUnknownKeys(t *testing.T) {
	s, err := New(writeSettings(t, "s.json", `{"some_param": 1.0, "sub": {"another_value": 1, "value": 2.5}}`), WithEnums(colors(t)))
	if err != nil {
		t.Fatal(err)
	}
	obj := newSimple1()
	ws, err := s.Apply(obj)
	if err != nil {
		t.Fatal(err)
	}
	want := []Warning{
		{Path: "some_param", Message: "no such property"},
		{Path: "sub.another_value", Message: "no such property"},
	}
	if diff := cmp.Diff(want, ws); diff != "" {
		t.Errorf("warnings (-want +got):\n%s", diff)
	}
	if obj.Sub.Value != 2.5 {
		t.Errorf("known key next to unknown ones was not applied")
	}
}

func TestMissingFile(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := s.Load()
	if err != nil || len(doc) != 0 {
		t.Errorf("Load = %v, %v", doc, err)
	}
	if _, err := New("settings"); err == nil {
		t.Errorf("New without an extension succeeded")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, ext := range []string{"json", "jsonc", "yaml", "toml", "cbor"} {
		t.Run(ext, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "s."+ext)
			s, err := New(p, WithEnums(colors(t)))
			if err != nil {
				t.Fatal(err)
			}
			src := newSimple1()
			src.AFloat = 3
			src.AEnum = Green
			src.Sub.Value = 4
			src.ArrayFloat = []float64{1, 2.5}
			if err := s.Save(src); err != nil {
				t.Fatal(err)
			}
			dst := newSimple1()
			ws, err := s.Apply(dst)
			if err != nil {
				t.Fatal(err)
			}
			if len(ws) != 0 {
				t.Errorf("warnings: %v", ws)
			}
			if dst.AFloat != 3 || dst.AEnum != Green || dst.Sub.Value != 4 {
				t.Errorf("reloaded %+v", dst)
			}
			if diff := cmp.Diff([]float64{1, 2.5}, dst.ArrayFloat); diff != "" {
				t.Errorf("array_float (-want +got):\n%s", diff)
			}
		})
	}
}

func TestObjectArrayRoundTrip(t *testing.T) {
	for _, ext := range []string{"json", "jsonc", "yaml", "toml", "cbor"} {
		t.Run(ext, func(t *testing.T) {
			s, err := New(filepath.Join(t.TempDir(), "lab."+ext))
			if err != nil {
				t.Fatal(err)
			}
			src := demo.NewLab()
			src.Channels[0].Offset = 0.25
			src.Channels[1].Enabled = true
			if err := s.Save(src); err != nil {
				t.Fatal(err)
			}
			doc, err := s.Load()
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := doc["channels"].([]any); !ok {
				t.Fatalf("channels saved as %#v", doc["channels"])
			}
			dst := demo.NewLab()
			first := dst.Channels[0]
			ws, err := s.Apply(dst)
			if err != nil {
				t.Fatal(err)
			}
			if len(ws) != 0 {
				t.Errorf("warnings: %v", ws)
			}
			if dst.Channels[0] != first {
				t.Errorf("channel 0 was replaced")
			}
			want := []demo.Channel{{Name: "a", Enabled: true, Offset: 0.25}, {Name: "b", Enabled: true}}
			for i, c := range dst.Channels {
				if diff := cmp.Diff(want[i], *c); diff != "" {
					t.Errorf("channels[%d] (-want +got):\n%s", i, diff)
				}
			}
		})
	}
}

func TestStateAt(t *testing.T) {
	lab := demo.NewLab()
	lab.Channels[1] = nil
	m, err := model.New(lab)
	if err != nil {
		t.Fatal(err)
	}
	got, err := StateAt(m, "channels")
	if err != nil {
		t.Fatal(err)
	}
	want := []any{
		map[string]any{"name": "a", "enabled": true, "offset": 0.0},
		map[string]any{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("channels (-want +got):\n%s", diff)
	}
	if got, err := StateAt(m, "gain"); err != nil || got != 1.0 {
		t.Errorf("gain = %v, %v", got, err)
	}
}

func TestPersistObjectArray(t *testing.T) {
	for _, ext := range []string{"json", "yaml", "toml"} {
		t.Run(ext, func(t *testing.T) {
			s, err := New(filepath.Join(t.TempDir(), "lab."+ext))
			if err != nil {
				t.Fatal(err)
			}
			if err := s.Persist("channels[1].enabled", true); err != nil {
				t.Fatal(err)
			}
			lab := demo.NewLab()
			if _, err := s.Apply(lab); err != nil {
				t.Fatal(err)
			}
			if !lab.Channels[1].Enabled {
				t.Errorf("channels[1].enabled not applied")
			}
			if c := lab.Channels[0]; c.Name != "a" || !c.Enabled {
				t.Errorf("channels[0] changed: %+v", c)
			}
		})
	}
}

func TestApplyObjectArrayErrors(t *testing.T) {
	s, err := New(writeSettings(t, "lab.json", `{"channels": [null, {"enabled": true}, {"enabled": true}]}`))
	if err != nil {
		t.Fatal(err)
	}
	lab := demo.NewLab()
	ws, err := s.Apply(lab)
	if err != nil {
		t.Fatal(err)
	}
	if len(ws) != 1 || ws[0].Path != "channels[2]" {
		t.Errorf("warnings: %v", ws)
	}
	if !lab.Channels[1].Enabled {
		t.Errorf("channels[1].enabled not applied")
	}

	s, err = New(writeSettings(t, "bad.json", `{"channels": [1]}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Apply(demo.NewLab()); !errors.Is(err, model.ErrTypeMismatch) {
		t.Errorf("Apply() error = %v, want type mismatch", err)
	}
}

func TestPersist(t *testing.T) {
	p := writeSettings(t, "s.json", "{\n  \"a_int\": 1,\n  \"sub\": {\"value\": 1.0}\n}\n")
	s, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	before, _ := os.Stat(p)
	if err := s.Persist("a_int", int64(1)); err != nil {
		t.Fatal(err)
	}
	after, _ := os.Stat(p)
	if !os.SameFile(before, after) {
		t.Errorf("no-op persist rewrote the file")
	}
	if err := s.Persist("sub.value", 2.0); err != nil {
		t.Fatal(err)
	}
	doc, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got := doc["sub"].(map[string]any)["value"]; got != 2.0 {
		t.Errorf("sub.value = %#v", got)
	}

	yp := filepath.Join(t.TempDir(), "s.yaml")
	ys, err := New(yp)
	if err != nil {
		t.Fatal(err)
	}
	if err := ys.Persist("sub.value", 2.5); err != nil {
		t.Fatal(err)
	}
	doc, err = ys.Load()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Document{"sub": map[string]any{"value": 2.5}}, doc); diff != "" {
		t.Errorf("yaml doc (-want +got):\n%s", diff)
	}
}

func TestWatch(t *testing.T) {
	p := writeSettings(t, "s.json", `{"a_int": 1}`)
	s, err := New(p)
	if err != nil {
		t.Fatal(err)
	}
	obj := newSimple1()
	m, err := s.Model(obj)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var mu sync.Mutex
	applied := make(chan error, 10)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, m, &mu, func(_ []Warning, err error) { applied <- err })
	}()
	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	if err := writeFile(p, []byte(`{"a_int": 7}`)); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-applied:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("settings change was not applied")
	}
	mu.Lock()
	got := obj.AInt
	mu.Unlock()
	if got != 7 {
		t.Errorf("a_int = %d", got)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch returned %v", err)
	}
}
