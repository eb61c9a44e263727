package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/tony-format/go-dash/meta"
)

type Simple struct {
	AInt    int     `dash:"name=a_int"`
	AFloat  float64 `dash:"name=a_float"`
	AString string  `dash:"name=a_string"`
	ABool   bool    `dash:"name=a_bool"`
}

type Tier struct {
	Simple *Simple `dash:"name=simple"`
	Serial string  `dash:"name=serial,readonly"`
	Hidden int     `dash:"-"`
}

type Branch struct {
	Tier  Tier  `dash:"name=tier"`
	Other *Tier `dash:"name=other"`

	notExported int
}

func newBranch() *Branch {
	return &Branch{Tier: Tier{Simple: &Simple{AInt: 1, AFloat: 0.5, AString: "x", ABool: true}, Serial: "s-1"}}
}

func mustNew(t *testing.T, root any, opts ...Option) *Model {
	t.Helper()
	m, err := New(root, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestNewRejectsNonStructPointers(t *testing.T) {
	for _, root := range []any{nil, Simple{}, (*Simple)(nil), new(int)} {
		if _, err := New(root); err == nil {
			t.Errorf("New(%T) succeeded", root)
		}
	}
}

func TestPaths(t *testing.T) {
	m := mustNew(t, newBranch())
	want := []string{
		"tier",
		"tier.simple",
		"tier.simple.a_int",
		"tier.simple.a_float",
		"tier.simple.a_string",
		"tier.simple.a_bool",
		"tier.serial",
		"other",
		"other.simple",
		"other.simple.a_int",
		"other.simple.a_float",
		"other.simple.a_string",
		"other.simple.a_bool",
		"other.serial",
	}
	if diff := cmp.Diff(want, m.Paths()); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
}

func TestGetSet(t *testing.T) {
	b := newBranch()
	m := mustNew(t, b)

	tests := []struct {
		name    string
		path    string
		value   any
		want    any
		wantErr error
	}{
		{"int", "tier.simple.a_int", 5, 5, nil},
		{"int from json", "tier.simple.a_int", json.Number("7"), 7, nil},
		{"int from uint", "tier.simple.a_int", uint8(3), 3, nil},
		{"int rejects float", "tier.simple.a_int", 1.5, nil, ErrTypeMismatch},
		{"int rejects fractional json", "tier.simple.a_int", json.Number("7.5"), nil, ErrTypeMismatch},
		{"int rejects bool", "tier.simple.a_int", true, nil, ErrTypeMismatch},
		{"float widens int", "tier.simple.a_float", 2, 2.0, nil},
		{"float", "tier.simple.a_float", 0.25, 0.25, nil},
		{"string", "tier.simple.a_string", "hello", "hello", nil},
		{"string rejects int", "tier.simple.a_string", 3, nil, ErrTypeMismatch},
		{"string rejects json number", "tier.simple.a_string", json.Number("3"), nil, ErrTypeMismatch},
		{"bool", "tier.simple.a_bool", false, false, nil},
		{"bool rejects int", "tier.simple.a_bool", 0, nil, ErrTypeMismatch},
		{"readonly", "tier.serial", "s-2", nil, ErrNotSettable},
		{"object", "tier", Tier{}, nil, ErrNotSettable},
		{"missing", "tier.nope", 1, nil, ErrNotFound},
		{"skipped", "tier.Hidden", 1, nil, ErrNotFound},
		{"nil pointer", "other.simple.a_int", 1, nil, ErrNilPointer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Set(tt.path, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Set(%q, %v): got %v, want %v", tt.path, tt.value, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set(%q, %v): %v", tt.path, tt.value, err)
			}
			got, err := m.Get(tt.path)
			if err != nil {
				t.Fatalf("Get(%q): %v", tt.path, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Get(%q) (-want +got):\n%s", tt.path, diff)
			}
		})
	}
	if b.Tier.Simple.AString != "hello" {
		t.Errorf("write did not reach the plugin: %q", b.Tier.Simple.AString)
	}
}

func TestTypeErrorMessage(t *testing.T) {
	m := mustNew(t, newBranch())
	err := m.Set("tier.simple.a_int", "five")
	var te *TypeError
	if !errors.As(err, &te) {
		t.Fatalf("got %v, want *TypeError", err)
	}
	if te.Path != "tier.simple.a_int" || !strings.Contains(err.Error(), "expected int") {
		t.Errorf("unexpected error %q", err)
	}
}

func TestNestedPathMatchesTraversal(t *testing.T) {
	b := newBranch()
	m := mustNew(t, b)
	v, err := m.Get("tier.simple")
	if err != nil {
		t.Fatal(err)
	}
	if v.(*Simple) != b.Tier.Simple {
		t.Errorf("tier.simple is not the plugin's own object")
	}
	b.Tier.Simple.AInt = 42
	got, err := m.Get("tier.simple.a_int")
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Errorf("got %v, want 42", got)
	}
	if _, err := m.Get("other.simple.a_int"); !errors.Is(err, ErrNilPointer) {
		t.Errorf("read through nil pointer: got %v", err)
	}
	b.Other = &Tier{Simple: &Simple{AInt: 9}}
	got, err = m.Get("other.simple.a_int")
	if err != nil || got != 9 {
		t.Errorf("after assigning other: got %v, %v", got, err)
	}
}

type ordered struct {
	B int `dash:"name=b"`
	A int `dash:"name=a"`
}

func (o *ordered) D() int    { return o.A + o.B }
func (o *ordered) C() string { return "c" }

func (*ordered) Members() []Member {
	return []Member{
		Prop("d", (*ordered).D),
		Prop("c", (*ordered).C),
	}
}

func TestOrder(t *testing.T) {
	m := mustNew(t, &ordered{B: 1, A: 2})
	if diff := cmp.Diff([]string{"b", "a", "d", "c"}, m.Paths()); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
	got, err := m.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"b": int64(1), "a": int64(2), "d": int64(3), "c": "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot (-want +got):\n%s", diff)
	}
}

type counted struct {
	n int
}

func (c *counted) Value() int {
	c.n++
	return c.n
}

func (*counted) Members() []Member {
	return []Member{Prop("value", (*counted).Value)}
}

func TestGetterCalls(t *testing.T) {
	c := &counted{}
	m := mustNew(t, c)
	if _, err := m.Props(""); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Props("value"); err != nil {
		t.Fatal(err)
	}
	if c.n != 0 {
		t.Fatalf("getter called %d times before any get", c.n)
	}
	for i := 1; i <= 3; i++ {
		v, err := m.Get("value")
		if err != nil {
			t.Fatal(err)
		}
		if v != i {
			t.Errorf("get %d returned %v", i, v)
		}
	}
	if c.n != 3 {
		t.Errorf("getter called %d times for 3 gets", c.n)
	}
	if err := m.Set("value", 1); !errors.Is(err, ErrNotSettable) {
		t.Errorf("set read-only property: got %v", err)
	}
}

type lab struct {
	gain float64
	sub  Simple
}

func (l *lab) Gain() float64                  { return l.gain }
func (l *lab) SetGain(g float64)              { l.gain = g }
func (l *lab) Sub() *Simple                   { return &l.sub }
func (l *lab) Copy() Simple                   { return l.sub }
func (l *lab) Fail() error                    { return errors.New("boom") }
func (l *lab) Reset()                         { l.gain = 1 }
func (l *lab) Scale(x float64, n int) float64 { return x * l.gain * float64(n) }

func (*lab) Members() []Member {
	return []Member{
		PropRW("gain", (*lab).Gain, (*lab).SetGain).
			OnGet(meta.Doc("amplifier gain"), meta.With(map[string]any{"min": 0.0})).
			OnSet(meta.Doc("ignored"), meta.With(map[string]any{"max": 10.0})),
		Prop("sub", (*lab).Sub),
		Prop("copy", (*lab).Copy),
		Method[lab]("scale", (*lab).Scale, "x", "n"),
		Method[lab]("fail", (*lab).Fail),
		Method[lab]("reset", (*lab).Reset),
	}
}

func TestComputedProperties(t *testing.T) {
	l := &lab{gain: 2}
	m := mustNew(t, l, WithMeta(meta.NewRegistry()))

	if err := m.Set("gain", 3); err != nil {
		t.Fatal(err)
	}
	if l.gain != 3 {
		t.Errorf("gain = %v", l.gain)
	}
	n, err := m.Node("gain")
	if err != nil {
		t.Fatal(err)
	}
	if n.Doc != "amplifier gain" {
		t.Errorf("doc = %q", n.Doc)
	}
	if diff := cmp.Diff(map[string]any{"max": 10.0}, n.Meta); diff != "" {
		t.Errorf("meta (-want +got):\n%s", diff)
	}

	if err := m.Set("sub.a_int", 4); err != nil {
		t.Fatal(err)
	}
	if l.sub.AInt != 4 {
		t.Errorf("sub.a_int = %d", l.sub.AInt)
	}
	got, err := m.Get("copy.a_int")
	if err != nil || got != 4 {
		t.Errorf("copy.a_int = %v, %v", got, err)
	}
	if err := m.Set("copy.a_int", 5); !errors.Is(err, ErrNotSettable) {
		t.Errorf("write through a copy: got %v", err)
	}
}

func TestCall(t *testing.T) {
	l := &lab{gain: 2}
	m := mustNew(t, l)

	got, err := m.Call("scale", 1.5, json.Number("2"))
	if err != nil {
		t.Fatal(err)
	}
	if got != 6.0 {
		t.Errorf("scale = %v", got)
	}
	if _, err := m.Call("scale", 1.0); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("wrong arity: got %v", err)
	}
	if _, err := m.Call("fail"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("fail: got %v", err)
	}
	if _, err := m.Call("gain"); !errors.Is(err, ErrNotCallable) {
		t.Errorf("call property: got %v", err)
	}
	if _, err := m.Get("scale"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("get method: got %v", err)
	}
	v, err := m.Call("reset")
	if err != nil || v != nil || l.gain != 1 {
		t.Errorf("reset: %v, %v, gain %v", v, err, l.gain)
	}

	p, err := m.Props("scale")
	if err != nil {
		t.Fatal(err)
	}
	ft := FloatType
	want := &Descriptor{
		Name:    "scale",
		Path:    "scale",
		Kind:    MethodKind,
		Type:    CallableType,
		Args:    []Arg{{Name: "x", Type: FloatType}, {Name: "n", Type: IntType}},
		Returns: &ft,
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("props (-want +got):\n%s", diff)
	}
}

type Base struct {
	Level int `dash:"name=level"`
}

func (b *Base) Double() int { return 2 * b.Level }
func (b *Base) Bump(n int)  { b.Level += n }

func (*Base) Members() []Member {
	return []Member{
		Prop("double", (*Base).Double),
		Method[Base]("bump", (*Base).Bump, "n"),
	}
}

type derived struct {
	Base
	Name string `dash:"name=name"`
}

func (d *derived) Title() string { return "dr " + d.Name }

func (d *derived) Members() []Member {
	return append(d.Base.Members(), Prop("title", (*derived).Title))
}

type promoted struct {
	*Base
}

func TestEmbedding(t *testing.T) {
	d := &derived{Name: "who"}
	m := mustNew(t, d)
	if diff := cmp.Diff([]string{"level", "name", "double", "bump", "title"}, m.Paths()); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
	if _, err := m.Call("bump", 2); err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Get("double"); got != 4 {
		t.Errorf("double = %v", got)
	}
	if got, _ := m.Get("title"); got != "dr who" {
		t.Errorf("title = %v", got)
	}

	p := &promoted{Base: &Base{Level: 3}}
	pm := mustNew(t, p)
	if diff := cmp.Diff([]string{"level", "double", "bump"}, pm.Paths()); diff != "" {
		t.Errorf("promoted paths (-want +got):\n%s", diff)
	}
	if err := pm.Set("level", 5); err != nil {
		t.Fatal(err)
	}
	if got, _ := pm.Get("double"); got != 10 {
		t.Errorf("double = %v", got)
	}
}

type link struct {
	Name string `dash:"name=name"`
	Next *link  `dash:"name=next"`
}

func TestPointerCycle(t *testing.T) {
	a := &link{Name: "a"}
	b := &link{Name: "b", Next: a}
	a.Next = b
	m := mustNew(t, a)
	if diff := cmp.Diff([]string{"name", "next", "next.name"}, m.Paths()); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
	got, err := m.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"name": "a", "next": map[string]any{"name": "b", "next": nil}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot (-want +got):\n%s", diff)
	}
}

type loose struct {
	Any    any               `dash:"name=any"`
	Labels map[string]string `dash:"name=labels"`
	OnFire func(n int) int   `dash:"name=on_fire"`
	Ch     chan int
	ptr    *int
}

func TestLooseKinds(t *testing.T) {
	l := &loose{Any: 3, OnFire: func(n int) int { return n + 1 }}
	m := mustNew(t, l)
	if diff := cmp.Diff([]string{"any", "labels", "on_fire"}, m.Paths()); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
	if err := m.Set("any", json.Number("2.5")); err != nil {
		t.Fatal(err)
	}
	if l.Any != 2.5 {
		t.Errorf("any = %#v", l.Any)
	}
	if err := m.Set("labels", map[string]any{"k": "v"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"k": "v"}, l.Labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
	got, err := m.Call("on_fire", 2)
	if err != nil || got != 3 {
		t.Errorf("on_fire = %v, %v", got, err)
	}
}

type documented struct {
	Volts float64 `dash:"name=volts,doc='tag doc',min=0,max=5,units=V"`
	Amps  float64 `dash:"name=amps,doc='tag doc'"`
	Sub   *Simple `dash:"name=sub"`
	Plain int     `dash:"name=plain"`
}

func TestMetadata(t *testing.T) {
	reg := meta.NewRegistry()
	reg.Annotate(meta.Field[documented]("amps"), meta.Doc("registry doc"), meta.With(map[string]any{"units": "A"}))
	reg.Annotate(meta.TypeOf[Simple](), meta.Doc("a simple object"))
	reg.Annotate(meta.Source[documented]("Plain"), meta.Doc("source doc"))
	m := mustNew(t, &documented{}, WithMeta(reg))

	tests := []struct {
		path string
		doc  string
		meta map[string]any
	}{
		{"volts", "tag doc", map[string]any{"min": int64(0), "max": int64(5), "units": "V"}},
		{"amps", "registry doc", map[string]any{"units": "A"}},
		{"sub", "a simple object", nil},
		{"plain", "source doc", nil},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n, err := m.Node(tt.path)
			if err != nil {
				t.Fatal(err)
			}
			if n.Doc != tt.doc {
				t.Errorf("doc = %q, want %q", n.Doc, tt.doc)
			}
			if diff := cmp.Diff(tt.meta, n.Meta); diff != "" {
				t.Errorf("meta (-want +got):\n%s", diff)
			}
		})
	}
	if reg.Len() != 3 {
		t.Errorf("model modified the caller's registry")
	}
}
