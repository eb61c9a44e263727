package docgen

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const labSrc = `package lab

// Lab is a test bench.
type Lab struct {
	// Gain is the input gain.
	Gain float64
	Label string // Label names the bench.
	count int
	Plain bool
}

type (
	// Probe measures.
	Probe struct{ Value float64 }
	Unit string
)

// Box holds a value.
type Box[T any] struct{ V T }

// Doubled returns twice the gain.
func (l *Lab) Doubled() float64 { return 2 * l.Gain }

// reset is not exported.
func (l *Lab) reset() {}

// Unit has methods too.
func (u Unit) String() string { return string(u) }

// Get returns V.
func (b *Box[T]) Get() T { return b.V }
`

func parseSrc(t *testing.T, src string) []*ast.File {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "lab.go", src, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}
	return []*ast.File{f}
}

func TestCollect(t *testing.T) {
	got := Collect(parseSrc(t, labSrc))
	want := []Doc{
		{Type: "Lab", Text: "Lab is a test bench."},
		{Type: "Lab", Ident: "Gain", Text: "Gain is the input gain."},
		{Type: "Lab", Ident: "Label", Text: "Label names the bench."},
		{Type: "Probe", Text: "Probe measures."},
		{Type: "Lab", Ident: "Doubled", Text: "Doubled returns twice the gain."},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("docs (-want +got):\n%s", diff)
	}
}

func TestCollectSkipsGenerated(t *testing.T) {
	src := "// Code generated by dash docgen. DO NOT EDIT.\n\n" + labSrc
	if got := Collect(parseSrc(t, src)); len(got) != 0 {
		t.Errorf("got %v", got)
	}
}

func TestGenerate(t *testing.T) {
	var sb strings.Builder
	docs := []Doc{
		{Type: "Lab", Text: "Lab is a test bench."},
		{Type: "Lab", Ident: "Gain", Text: "Gain is \"the\" input gain."},
	}
	if err := Generate(&sb, "lab", docs); err != nil {
		t.Fatal(err)
	}
	want := `// Code generated by dash docgen. DO NOT EDIT.

package lab

import "github.com/signadot/tony-format/go-dash/meta"

func init() {
	meta.Default.Annotate(meta.Source[Lab](""), meta.Doc("Lab is a test bench."))
	meta.Default.Annotate(meta.Source[Lab]("Gain"), meta.Doc("Gain is \"the\" input gain."))
}
`
	if diff := cmp.Diff(want, sb.String()); diff != "" {
		t.Errorf("generated (-want +got):\n%s", diff)
	}
	f, err := parser.ParseFile(token.NewFileSet(), "gen.go", sb.String(), parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}
	if !ast.IsGenerated(f) {
		t.Error("output not marked generated")
	}
}

func TestGenerateEmpty(t *testing.T) {
	var sb strings.Builder
	if err := Generate(&sb, "lab", nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(sb.String(), "import") {
		t.Errorf("unused import in\n%s", sb.String())
	}
	if _, err := parser.ParseFile(token.NewFileSet(), "gen.go", sb.String(), 0); err != nil {
		t.Error(err)
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"go.mod":      "module example.com/lab\n\ngo 1.21\n",
		"lab.go":      labSrc,
		"lab_test.go": "package lab\n\n// Fixture is for tests.\ntype Fixture struct{}\n",
		DefaultOutput: "// Code generated by dash docgen. DO NOT EDIT.\n\npackage lab\n\n// Old is stale.\ntype Old struct{}\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	pkgs, err := Scan(dir, ".")
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 1 {
		t.Fatalf("got %d packages", len(pkgs))
	}
	p := pkgs[0]
	if p.Name != "lab" || p.PkgPath != "example.com/lab" {
		t.Errorf("package %s %s", p.Name, p.PkgPath)
	}
	if len(p.Docs) != 5 {
		t.Errorf("docs %v", p.Docs)
	}
	if !strings.HasSuffix(p.Dir, filepath.Base(dir)) {
		t.Errorf("dir %s", p.Dir)
	}
}
