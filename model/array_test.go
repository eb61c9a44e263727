package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type arrays struct {
	List  []int       `dash:"name=list"`
	Grid  [][]float64 `dash:"name=grid"`
	Fixed [3]int      `dash:"name=fixed"`
	Mixed []any       `dash:"name=mixed"`
	Items []*Simple   `dash:"name=items"`
}

func (a *arrays) Window() [2]int { return [2]int{a.List[0], a.List[1]} }

func (*arrays) Members() []Member {
	return []Member{Prop("window", (*arrays).Window)}
}

func newArrays() *arrays {
	return &arrays{
		List:  []int{1, 2, 3},
		Grid:  [][]float64{{1, 2}, {3, 4}},
		Mixed: []any{1, "two", 3.5},
		Items: []*Simple{{AInt: 1}, {AInt: 2}},
	}
}

func TestArrayPaths(t *testing.T) {
	m := mustNew(t, newArrays())
	want := []string{
		"list",
		"grid",
		"fixed",
		"mixed",
		"items",
		"items[0]",
		"items[0].a_int",
		"items[0].a_float",
		"items[0].a_string",
		"items[0].a_bool",
		"items[1]",
		"items[1].a_int",
		"items[1].a_float",
		"items[1].a_string",
		"items[1].a_bool",
		"window",
	}
	if diff := cmp.Diff(want, m.Paths()); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
	for path, want := range map[string]TypeTag{"list": IntType, "grid": ArrayType, "mixed": AnyType, "items": ObjectType} {
		n, err := m.Node(path)
		if err != nil {
			t.Fatal(err)
		}
		if n.Kind != ArrayKind || n.Elem == nil || *n.Elem != want {
			t.Errorf("%s: kind %s elem %v", path, n.Kind, n.Elem)
		}
	}
}

func TestArrayGetSet(t *testing.T) {
	a := newArrays()
	m := mustNew(t, a)
	row := a.Grid[1]

	got, err := m.Get("grid[1][0]")
	if err != nil || got != 3.0 {
		t.Fatalf("grid[1][0] = %v, %v", got, err)
	}
	if err := m.Set("grid[1][0]", 5); err != nil {
		t.Fatal(err)
	}
	if row[0] != 5 {
		t.Errorf("write was not in place: %v", row)
	}
	if err := m.Set("fixed[2]", 9); err != nil {
		t.Fatal(err)
	}
	if a.Fixed[2] != 9 {
		t.Errorf("fixed = %v", a.Fixed)
	}
	if err := m.Set("items[1].a_int", 7); err != nil {
		t.Fatal(err)
	}
	if a.Items[1].AInt != 7 {
		t.Errorf("items[1].a_int = %d", a.Items[1].AInt)
	}
	if err := m.Set("list", []any{json.Number("4"), json.Number("5")}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{4, 5}, a.List); diff != "" {
		t.Errorf("list (-want +got):\n%s", diff)
	}

	errTests := []struct {
		path    string
		value   any
		wantErr error
	}{
		{"list[5]", 1, ErrIndexOutOfRange},
		{"grid[0][7]", 1, ErrIndexOutOfRange},
		{"list[0]", "x", ErrTypeMismatch},
		{"list[0][1]", 1, ErrTypeMismatch},
		{"fixed", []int{1, 2}, ErrTypeMismatch},
		{"window[0]", 1, ErrNotSettable},
	}
	for _, tt := range errTests {
		if err := m.Set(tt.path, tt.value); !errors.Is(err, tt.wantErr) {
			t.Errorf("Set(%q): got %v, want %v", tt.path, err, tt.wantErr)
		}
	}
	if _, err := m.Get("list[5]"); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Get(list[5]): got %v", err)
	}
	got, err = m.Get("window[1]")
	if err != nil || got != 5 {
		t.Errorf("window[1] = %v, %v", got, err)
	}
}

func TestMixedArray(t *testing.T) {
	a := newArrays()
	m := mustNew(t, a)
	if err := m.Set("mixed[0]", json.Number("4")); err != nil {
		t.Fatal(err)
	}
	if err := m.Set("mixed[1]", "deux"); err != nil {
		t.Fatal(err)
	}
	if err := m.Set("mixed[2]", []any{true}); err != nil {
		t.Fatal(err)
	}
	got, err := m.Serialize("mixed")
	if err != nil {
		t.Fatal(err)
	}
	want := []any{int64(4), "deux", []any{true}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mixed (-want +got):\n%s", diff)
	}
	v, err := m.Get("mixed[2][0]")
	if err != nil || v != true {
		t.Errorf("mixed[2][0] = %v, %v", v, err)
	}
}

func TestArrayProxy(t *testing.T) {
	m := mustNew(t, newArrays())
	grid, err := m.Array("grid")
	if err != nil {
		t.Fatal(err)
	}
	if n, err := grid.Len(); err != nil || n != 2 {
		t.Fatalf("Len = %d, %v", n, err)
	}
	row, err := grid.At(1)
	if err != nil {
		t.Fatal(err)
	}
	if row.Path() != "grid[1]" {
		t.Errorf("path = %q", row.Path())
	}
	if err := row.Set(8.5, 1); err != nil {
		t.Fatal(err)
	}
	full, err := grid.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	sub, err := row.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(full[1], any(sub)); diff != "" {
		t.Errorf("sub-array serialize (-parent +sub):\n%s", diff)
	}
	if diff := cmp.Diff([]any{3.0, 8.5}, sub); diff != "" {
		t.Errorf("row (-want +got):\n%s", diff)
	}
	sub2, err := m.Array("grid[1]")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := sub2.Get(1); v != 8.5 {
		t.Errorf("grid[1][1] = %v", v)
	}
	if _, err := grid.At(0, 0); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("At on a scalar: got %v", err)
	}
	if _, err := m.Array("list[0]"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Array on a scalar element: got %v", err)
	}
	if _, err := m.Array("items[0].a_int"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Array on a scalar: got %v", err)
	}
}
