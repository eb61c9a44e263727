package meta

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type simple struct{}

var (
	meta1 = map[string]any{"min": 0.0, "max": 1.0, "step": 0.1}
	meta2 = map[string]any{"min": -5, "max": 5, "step": 1}
)

func resolveProp(r *Registry, name string) Info {
	g, s := Getter[simple](name), Setter[simple](name)
	return r.Resolve([]ID{g}, []ID{g, s})
}

func TestResolvePrecedence(t *testing.T) {
	r := NewRegistry()

	// a: annotated getter only
	r.Annotate(Getter[simple]("a"), Doc("This property `a` has a docstring."), With(meta1))

	// c: annotated getter, documented setter
	r.Annotate(Getter[simple]("c"), Doc("c getter"), With(meta1))
	r.Annotate(Setter[simple]("c"), Doc("c setter, ignored"))

	// d: metadata on the setter only
	r.Annotate(Getter[simple]("d"), Doc("d getter"))
	r.Annotate(Setter[simple]("d"), Doc("d setter"), With(meta1))

	// e: both annotated, setter last
	r.Annotate(Getter[simple]("e"), Doc("e getter"), With(meta1))
	r.Annotate(Setter[simple]("e"), Doc("e setter"), With(meta2))

	// f: both annotated, getter last
	r.Annotate(Setter[simple]("f"), With(meta2))
	r.Annotate(Getter[simple]("f"), Doc("f getter"), With(meta1))

	tests := []struct {
		name string
		want Info
	}{
		{"a", Info{Doc: "This property `a` has a docstring.", Meta: meta1}},
		{"c", Info{Doc: "c getter", Meta: meta1}},
		{"d", Info{Doc: "d getter", Meta: meta1}},
		{"e", Info{Doc: "e getter", Meta: meta2}},
		{"f", Info{Doc: "f getter", Meta: meta1}},
		{"missing", Info{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveProp(r, tt.name)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnnotateOverwrites(t *testing.T) {
	r := NewRegistry()
	id := Field[simple]("x")
	r.Annotate(id, Set("min", 1), Set("max", 2))
	r.Annotate(id, Set("units", "V"))
	got, ok := r.Lookup(id)
	if !ok {
		t.Fatal("Lookup failed")
	}
	if diff := cmp.Diff(map[string]any{"units": "V"}, got.Meta); diff != "" {
		t.Errorf("Meta mismatch (-want +got):\n%s", diff)
	}
	// doc-only annotation keeps metadata
	r.Annotate(id, Doc("x doc"))
	got, _ = r.Lookup(id)
	if got.Doc != "x doc" || got.Meta["units"] != "V" {
		t.Errorf("Lookup = %+v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := NewRegistry()
	g, s := Getter[simple]("p"), Setter[simple]("p")
	r.Annotate(g, With(meta1))
	c := r.Clone()
	c.Annotate(s, With(meta2))

	if got := r.Resolve(nil, []ID{g, s}).Meta; !cmp.Equal(got, meta1) {
		t.Errorf("original registry changed: %v", got)
	}
	if got := c.Resolve(nil, []ID{g, s}).Meta; !cmp.Equal(got, meta2) {
		t.Errorf("clone Resolve = %v, want %v", got, meta2)
	}
}

func TestIDsStripPointers(t *testing.T) {
	if Field[*simple]("x") != Field[simple]("x") {
		t.Error("pointer and value IDs differ")
	}
	id := NewID(reflect.TypeFor[**simple](), "", RoleType)
	if id != TypeOf[simple]() {
		t.Errorf("NewID = %v", id)
	}
	if got := Method[simple]("run").String(); got != "meta.simple.run(method)" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag     string
		want    *Tag
		wantErr bool
	}{
		{tag: "", want: &Tag{}},
		{tag: "-", want: &Tag{Skip: true}},
		{tag: "readonly", want: &Tag{ReadOnly: true}},
		{
			tag: "name=gain,doc='amplifier gain, in dB',min=0,max=10.5,units=dB,renderAs=slider,live",
			want: &Tag{
				Name:   "gain",
				Doc:    "amplifier gain, in dB",
				HasDoc: true,
				Meta: map[string]any{
					"min":      int64(0),
					"max":      10.5,
					"units":    "dB",
					"renderAs": "slider",
					"live":     true,
				},
			},
		},
		{
			tag:  "displayName='10'",
			want: &Tag{Meta: map[string]any{"displayName": "10"}},
		},
		{tag: "doc='oops", wantErr: true},
		{tag: "=3", wantErr: true},
		{tag: "readonly=true", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTag(tt.tag)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseTag(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
		}
		if tt.wantErr {
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseTag(%q) mismatch (-want +got):\n%s", tt.tag, diff)
		}
	}
}

func TestValidate(t *testing.T) {
	got := Validate(map[string]any{
		"min":      5,
		"max":      1,
		"step":     "big",
		"units":    "V",
		"renderAs": "knob",
		"isSlider": true,
		"custom":   []int{1},
	})
	want := []string{
		"isSlider is deprecated, use renderAs",
		`renderAs: unknown value "knob"`,
		"step: expected a number, got string",
		"min 5 is greater than max 1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Validate mismatch (-want +got):\n%s", diff)
	}
	if got := Validate(meta1); len(got) != 0 {
		t.Errorf("Validate(meta1) = %v", got)
	}
}
