package main

import "github.com/fatih/color"

type palette struct {
	name, kind, doc, insert, delete, change *color.Color
}

func newPalette(on bool) *palette {
	p := &palette{
		name:   color.New(color.Bold),
		kind:   color.New(color.FgCyan),
		doc:    color.New(color.Faint),
		insert: color.New(color.FgGreen),
		delete: color.New(color.FgRed),
		change: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.name, p.kind, p.doc, p.insert, p.delete, p.change} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}
