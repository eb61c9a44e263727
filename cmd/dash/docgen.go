package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-dash/docgen"
)

func docGen(cfg *DocGenConfig, cc *cli.Context, args []string) error {
	args, err := cfg.DocGen.Parse(cc, args)
	if err != nil {
		return err
	}
	out := cfg.Output
	if out == "" {
		out = docgen.DefaultOutput
	}
	pkgs, err := docgen.Scan(".", args...)
	if err != nil {
		return err
	}
	log := newLog(os.Stderr, cfg.Verbose)
	for _, p := range pkgs {
		if len(p.Docs) == 0 {
			log.Debug("no docs", "package", p.PkgPath)
			continue
		}
		var buf bytes.Buffer
		if err := docgen.Generate(&buf, p.Name, p.Docs); err != nil {
			return fmt.Errorf("%s: %w", p.PkgPath, err)
		}
		if cfg.DryRun {
			fmt.Fprintf(cc.Out, "// %s\n", filepath.Join(p.Dir, out))
			if _, err := cc.Out.Write(buf.Bytes()); err != nil {
				return err
			}
			continue
		}
		dst := filepath.Join(p.Dir, out)
		if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
			return err
		}
		log.Info("wrote", "file", dst, "docs", len(p.Docs))
	}
	return nil
}
