package demo

import (
	"fmt"
	"sort"
)

// Plugins are the constructors of the demo plugins by name.
var Plugins = map[string]func() any{
	"hello": func() any { return NewHelloWorld() },
	"lab":   func() any { return NewLab() },
}

// Names returns the names of the demo plugins.
func Names() []string {
	res := make([]string, 0, len(Plugins))
	for name := range Plugins {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// New returns a new instance of the named plugin.
func New(name string) (any, error) {
	ctor, ok := Plugins[name]
	if !ok {
		return nil, fmt.Errorf("unknown plugin %q, want one of %v", name, Names())
	}
	return ctor(), nil
}
