// Package docgen harvests the Go doc comments of plugin types and generates
// code registering them as source documentation with package meta.
package docgen

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Doc is the documentation of one Go identifier of a struct type.  Ident is
// a field or method name, or empty for the type itself.
type Doc struct {
	Type  string
	Ident string
	Text  string
}

// Package is the harvested documentation of one Go package.
type Package struct {
	Name    string
	PkgPath string
	Dir     string
	Docs    []Doc
}

// Scan loads the packages matching patterns relative to dir and collects
// the docs of their struct types, exported fields and methods.  Test and
// generated files are skipped.
func Scan(dir string, patterns ...string) ([]*Package, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedSyntax,
		Dir:  dir,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %v: %w", patterns, err)
	}
	var res []*Package
	var errs []error
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			errs = append(errs, e)
		}
		p := &Package{Name: pkg.Name, PkgPath: pkg.PkgPath, Docs: Collect(pkg.Syntax)}
		if len(pkg.GoFiles) != 0 {
			p.Dir = filepath.Dir(pkg.GoFiles[0])
		}
		res = append(res, p)
	}
	if len(errs) != 0 {
		return nil, errors.Join(errs...)
	}
	return res, nil
}

// Collect returns the docs of the struct types declared in files, in
// declaration order.
func Collect(files []*ast.File) []Doc {
	var res []Doc
	structs := map[string]bool{}
	for _, f := range files {
		if ast.IsGenerated(f) {
			continue
		}
		for _, decl := range f.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				st, ok := ts.Type.(*ast.StructType)
				if !ok || ts.TypeParams != nil {
					continue
				}
				structs[ts.Name.Name] = true
				doc := ts.Doc
				if doc == nil && len(gd.Specs) == 1 {
					doc = gd.Doc
				}
				res = appendDoc(res, ts.Name.Name, "", doc)
				for _, field := range st.Fields.List {
					doc := field.Doc
					if doc == nil {
						doc = field.Comment
					}
					for _, name := range field.Names {
						if name.IsExported() {
							res = appendDoc(res, ts.Name.Name, name.Name, doc)
						}
					}
				}
			}
		}
	}
	for _, f := range files {
		if ast.IsGenerated(f) {
			continue
		}
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv == nil || len(fd.Recv.List) == 0 || !fd.Name.IsExported() {
				continue
			}
			recv := recvName(fd.Recv.List[0].Type)
			if !structs[recv] {
				continue
			}
			res = appendDoc(res, recv, fd.Name.Name, fd.Doc)
		}
	}
	return res
}

func appendDoc(docs []Doc, typ, ident string, cg *ast.CommentGroup) []Doc {
	if cg == nil {
		return docs
	}
	text := strings.TrimSpace(cg.Text())
	if text == "" {
		return docs
	}
	return append(docs, Doc{Type: typ, Ident: ident, Text: text})
}

func recvName(x ast.Expr) string {
	for {
		switch t := x.(type) {
		case *ast.StarExpr:
			x = t.X
		case *ast.ParenExpr:
			x = t.X
		case *ast.IndexExpr:
			x = t.X
		case *ast.IndexListExpr:
			x = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}
