package docgen

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"strconv"
	"text/template"
)

// DefaultOutput is the file name dash docgen writes in each package.
const DefaultOutput = "zz_generated_docs.go"

var fileTmpl = template.Must(template.New("docs").Funcs(template.FuncMap{
	"quote": strconv.Quote,
}).Parse(`// Code generated by dash docgen. DO NOT EDIT.

package {{ .Pkg }}
{{ if .Docs }}
import "github.com/signadot/tony-format/go-dash/meta"
{{ end }}
func init() {
{{- range .Docs }}
	meta.Default.Annotate(meta.Source[{{ .Type }}]({{ quote .Ident }}), meta.Doc({{ quote .Text }}))
{{- end }}
}
`))

// Generate writes a Go file for package pkg whose init registers docs as
// source documentation in meta.Default.
func Generate(w io.Writer, pkg string, docs []Doc) error {
	var buf bytes.Buffer
	err := fileTmpl.Execute(&buf, struct {
		Pkg  string
		Docs []Doc
	}{pkg, docs})
	if err != nil {
		return err
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("formatting generated code: %w", err)
	}
	_, err = w.Write(src)
	return err
}
