package eval

import (
	"errors"
	"os"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/signadot/tony-format/go-dash/model"
)

var builtins = []string{"get", "has", "paths", "getenv"}

// exprOpts declares the plugin's top level members as variables of unknown
// type.  Members named like an expr builtin, such as count or max, disable
// that builtin.
func exprOpts(m *model.Model) []expr.Option {
	env := map[string]any{}
	var disabled []expr.Option
	if root, err := m.Props(""); err == nil {
		for _, name := range root.Children.Keys() {
			env[name] = nil
			disabled = append(disabled, expr.DisableBuiltin(name))
		}
	}
	opts := []expr.Option{
		expr.Env(env),
		expr.AllowUndefinedVariables(),
		expr.Function("get", func(params ...any) (any, error) {
			return m.Serialize(params[0].(string))
		},
			new(func(string) any)),
		expr.Function("has", func(params ...any) (any, error) {
			_, err := m.Serialize(params[0].(string))
			if errors.Is(err, model.ErrNotFound) {
				return false, nil
			}
			return err == nil, nil
		},
			new(func(string) bool)),
		expr.Function("paths", func(params ...any) (any, error) {
			prefix := params[0].(string)
			var res []any
			for _, p := range m.Paths() {
				if strings.HasPrefix(p, prefix) {
					res = append(res, p)
				}
			}
			return res, nil
		},
			new(func(string) []any)),
		expr.Function("getenv", func(params ...any) (any, error) {
			return os.Getenv(params[0].(string)), nil
		},
			new(func(string) string)),
	}
	for _, f := range Funcs() {
		opts = append(opts, expr.Function(f.Name, f.Fn, f.Types...))
	}
	return append(opts, disabled...)
}
