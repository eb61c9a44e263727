package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-dash/model"
	"github.com/signadot/tony-format/go-dash/rpc"
)

func dial(cfg *MainConfig) (*rpc.Client, error) {
	c, err := rpc.Dial(context.Background(), cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", cfg.Addr, err)
	}
	return c, nil
}

func props(cfg *PropsConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Props.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) > 1 {
		return fmt.Errorf("%w: props takes at most one path", cli.ErrUsage)
	}
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	c, err := dial(cfg.MainConfig)
	if err != nil {
		return err
	}
	defer c.Close()
	ctx := context.Background()
	p, err := c.Props(ctx, path)
	if err != nil {
		return err
	}
	if cfg.JSON {
		return writeValue(cc.Out, p)
	}
	name, err := c.Name(ctx)
	if err != nil {
		return err
	}
	pal := newPalette(cfg.colors(cc.Out))
	if path == "" {
		fmt.Fprintln(cc.Out, pal.name.Sprint(name))
	} else {
		writeDescriptor(cc.Out, pal, p, 0)
	}
	for _, child := range p.Children {
		writeDescriptor(cc.Out, pal, child, 1)
	}
	return nil
}

func writeDescriptor(w io.Writer, pal *palette, p *model.Descriptor, depth int) {
	indent := strings.Repeat("  ", depth)
	var sb strings.Builder
	sb.WriteString(indent)
	sb.WriteString(pal.name.Sprint(p.Name))
	sb.WriteString(" ")
	sb.WriteString(pal.kind.Sprint(signature(p)))
	if !p.Settable && p.Kind != model.ObjectKind && p.Kind != model.MethodKind {
		sb.WriteString(" (read only)")
	}
	if p.Doc != "" {
		doc, _, _ := strings.Cut(p.Doc, "\n")
		sb.WriteString("  ")
		sb.WriteString(pal.doc.Sprint("# " + doc))
	}
	fmt.Fprintln(w, sb.String())
	for _, child := range p.Children {
		writeDescriptor(w, pal, child, depth+1)
	}
}

func signature(p *model.Descriptor) string {
	switch p.Kind {
	case model.MethodKind:
		args := make([]string, len(p.Args))
		for i, a := range p.Args {
			args[i] = a.Name + " " + a.Type.String()
		}
		res := "(" + strings.Join(args, ", ") + ")"
		if p.Returns != nil {
			res += " " + p.Returns.String()
		}
		return res
	case model.EnumKind:
		return "enum{" + strings.Join(p.Enum, ",") + "}"
	case model.ArrayKind:
		if p.Elem != nil {
			return "[]" + p.Elem.String()
		}
	}
	return p.Type.String()
}

func get(cfg *GetConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Get.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{""}
	}
	c, err := dial(cfg.MainConfig)
	if err != nil {
		return err
	}
	defer c.Close()
	for _, path := range args {
		v, err := c.Serialize(context.Background(), path)
		if err != nil {
			return err
		}
		if err := writeValue(cc.Out, v); err != nil {
			return err
		}
	}
	return nil
}

func set(cfg *SetConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Set.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: set requires a path and a value", cli.ErrUsage)
	}
	var v any = args[1]
	if !cfg.String {
		v = parseValue(args[1])
	}
	c, err := dial(cfg.MainConfig)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.Set(context.Background(), args[0], v)
}

func call(cfg *CallConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Call.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: call requires a method path", cli.ErrUsage)
	}
	callArgs := make([]any, 0, len(args)-1)
	for _, a := range args[1:] {
		callArgs = append(callArgs, parseValue(a))
	}
	c, err := dial(cfg.MainConfig)
	if err != nil {
		return err
	}
	defer c.Close()
	v, err := c.Call(context.Background(), args[0], callArgs...)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return writeValue(cc.Out, v)
}

func evalExpr(cfg *EvalConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Eval.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: eval requires an expression", cli.ErrUsage)
	}
	c, err := dial(cfg.MainConfig)
	if err != nil {
		return err
	}
	defer c.Close()
	v, err := c.Eval(context.Background(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	return writeValue(cc.Out, v)
}

func watch(cfg *WatchConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Watch.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{""}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	c, err := dial(cfg.MainConfig)
	if err != nil {
		return err
	}
	defer c.Close()
	pal := newPalette(cfg.colors(cc.Out))
	for _, path := range args {
		if _, err := c.Watch(ctx, path); err != nil {
			return err
		}
	}
	n := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.Done():
			return fmt.Errorf("connection to %s closed", cfg.Addr)
		case ch := <-c.Changed():
			v, err := compact(ch.Value)
			if err != nil {
				return err
			}
			fmt.Fprintf(cc.Out, "%s %s = %s\n", pal.doc.Sprintf("#%d", ch.Seq), pal.name.Sprint(ch.Path), pal.change.Sprint(v))
			n++
			if cfg.Count > 0 && n >= cfg.Count {
				return nil
			}
		}
	}
}
