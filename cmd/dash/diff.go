package main

import (
	"fmt"

	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-dash/libdiff"
)

func diff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		cfg.Diff.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff requires 2 args, got %v", cli.ErrUsage, args)
	}
	a, err := readDoc(args[0])
	if err != nil {
		return err
	}
	b, err := readDoc(args[1])
	if err != nil {
		return err
	}
	d := libdiff.Compare(a, b)
	if d == nil {
		return nil
	}
	if cfg.Reverse {
		d = libdiff.Reverse(d)
	}
	pal := newPalette(cfg.colors(cc.Out))
	err = libdiff.Write(cc.Out, d, func(l libdiff.Line) string {
		switch l.Op {
		case libdiff.Insert:
			return pal.insert.Sprint(l.String())
		case libdiff.Delete:
			return pal.delete.Sprint(l.String())
		}
		return pal.change.Sprint(l.String())
	})
	if err != nil {
		return err
	}
	return cli.ExitCodeErr(1)
}
