package delta

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/tony-format/go-dash/hub"
	"github.com/signadot/tony-format/go-dash/model"
)

type inner struct {
	Value float64 `dash:"name=value"`
}

type gadget struct {
	Level int            `dash:"name=level"`
	Tags  []string       `dash:"name=tags"`
	Extra map[string]any `dash:"name=extra"`
	Inner *inner         `dash:"name=inner"`

	hits int
}

func (g *gadget) Hits() int { return g.hits }

func (*gadget) Members() []model.Member {
	return []model.Member{model.Prop("hits", (*gadget).Hits)}
}

func newGadget() *gadget {
	return &gadget{
		Level: 1,
		Tags:  []string{"a"},
		Extra: map[string]any{"x": int64(1), "y": "keep"},
		Inner: &inner{Value: 0.5},
	}
}

func mustModel(t *testing.T, g *gadget) *model.Model {
	t.Helper()
	m, err := model.New(g)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur string
		want      []hub.Change
	}{
		{"same", `{"a": 1}`, `{"a": 1}`, nil},
		{"from nothing", ``, `{"a": 1}`, []hub.Change{{Path: "a", Value: int64(1)}}},
		{
			"nested",
			`{"a": 1, "b": {"c": 2, "d": [1]}}`,
			`{"a": 1, "b": {"c": 3, "d": [1, 2]}}`,
			[]hub.Change{
				{Path: "b.c", Value: int64(3)},
				{Path: "b.d", Value: []any{int64(1), int64(2)}},
			},
		},
		{"removed", `{"a": 1, "b": 2}`, `{"a": 1}`, []hub.Change{{Path: "b", Value: nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got, err := Diff([]byte(tt.prev), []byte(tt.cur))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("changes (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApply(t *testing.T) {
	g := newGadget()
	m := mustModel(t, g)
	patch := `{"level": 4, "inner": {"value": 2.5}, "extra": {"x": 2, "z": true}, "tags": ["b", "c"]}`
	if err := Apply(m, []byte(patch)); err != nil {
		t.Fatal(err)
	}
	want := &gadget{
		Level: 4,
		Tags:  []string{"b", "c"},
		Extra: map[string]any{"x": int64(2), "y": "keep", "z": true},
		Inner: &inner{Value: 2.5},
	}
	if diff := cmp.Diff(want, g, cmp.AllowUnexported(gadget{})); diff != "" {
		t.Errorf("gadget (-want +got):\n%s", diff)
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name, patch string
		want        error
	}{
		{"unknown", `{"nope": 1}`, model.ErrNotFound},
		{"computed", `{"hits": 3}`, model.ErrNotSettable},
		{"mismatch", `{"level": "high"}`, model.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Apply(mustModel(t, newGadget()), []byte(tt.patch))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
	if err := Apply(mustModel(t, newGadget()), []byte(`[1]`)); err == nil {
		t.Errorf("array patch accepted")
	}
}

func TestApplyOps(t *testing.T) {
	g := newGadget()
	m := mustModel(t, g)
	ops := `[
		{"op": "replace", "path": "/level", "value": 9},
		{"op": "add", "path": "/tags/-", "value": "z"}
	]`
	if err := ApplyOps(m, []byte(ops)); err != nil {
		t.Fatal(err)
	}
	if g.Level != 9 {
		t.Errorf("level = %d", g.Level)
	}
	if diff := cmp.Diff([]string{"a", "z"}, g.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

type slot struct {
	ID      string `dash:"name=id,readonly"`
	Enabled bool   `dash:"name=enabled"`
	Level   int    `dash:"name=level"`
}

type rack struct {
	Slots []*slot `dash:"name=slots"`
}

func newRack() *rack {
	return &rack{Slots: []*slot{{ID: "s0", Enabled: true}, {ID: "s1"}}}
}

func TestApplyObjectArray(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*model.Model) error
		want  []slot
	}{
		{
			"ops",
			func(m *model.Model) error {
				return ApplyOps(m, []byte(`[{"op": "replace", "path": "/slots/1/enabled", "value": true}]`))
			},
			[]slot{{ID: "s0", Enabled: true}, {ID: "s1", Enabled: true}},
		},
		{
			"merge",
			func(m *model.Model) error {
				return Apply(m, []byte(`{"slots": [null, {"level": 3}]}`))
			},
			[]slot{{ID: "s0", Enabled: true}, {ID: "s1", Level: 3}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRack()
			first := r.Slots[0]
			m, err := model.New(r)
			if err != nil {
				t.Fatal(err)
			}
			if err := tt.apply(m); err != nil {
				t.Fatal(err)
			}
			if r.Slots[0] != first {
				t.Errorf("slots[0] was replaced")
			}
			for i, s := range r.Slots {
				if diff := cmp.Diff(tt.want[i], *s); diff != "" {
					t.Errorf("slots[%d] (-want +got):\n%s", i, diff)
				}
			}
		})
	}
}

func TestApplyObjectArrayErrors(t *testing.T) {
	tests := []struct {
		name, patch string
		want        error
	}{
		{"past end", `{"slots": [null, null, {"level": 1}]}`, model.ErrNotFound},
		{"read only", `{"slots": [{"id": "x"}]}`, model.ErrNotSettable},
		{"not an object", `{"slots": [1]}`, model.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := model.New(newRack())
			if err != nil {
				t.Fatal(err)
			}
			if err := Apply(m, []byte(tt.patch)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPoller(t *testing.T) {
	g := newGadget()
	m := mustModel(t, g)
	var mu sync.Mutex
	h := hub.New()
	w := hub.NewWatcher("", "session", 10)
	h.Watch(w)
	p := NewPoller(m, &mu, h, nil)
	if err := p.Reset(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	g.hits = 3
	g.Inner.Value = 1
	mu.Unlock()
	if err := p.Poll(""); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-w.Events:
		if diff := cmp.Diff([]string{"hits", "inner.value"}, ev.Paths()); diff != "" {
			t.Errorf("paths (-want +got):\n%s", diff)
		}
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	// nothing changed
	if err := p.Poll(""); err != nil {
		t.Fatal(err)
	}
	// the session's own change is not echoed back
	mu.Lock()
	g.Level = 2
	ev, err := p.Changes("session")
	mu.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	p.Publish(ev)
	select {
	case ev := <-w.Events:
		t.Errorf("unexpected event %v", ev.Paths())
	case <-time.After(50 * time.Millisecond):
	}
}
