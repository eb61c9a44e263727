package main

import (
	"context"
	"fmt"
	"os"

	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-dash/saver"
)

func dump(cfg *DumpConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Dump.Parse(cc, args)
	if err != nil {
		return err
	}
	f, err := cfg.format()
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	var doc map[string]any
	switch len(args) {
	case 0:
		c, err := dial(cfg.MainConfig)
		if err != nil {
			return err
		}
		defer c.Close()
		if doc, err = c.Snapshot(context.Background()); err != nil {
			return err
		}
	case 1:
		d, err := readDoc(args[0])
		if err != nil {
			return err
		}
		doc = d
	default:
		return fmt.Errorf("%w: dump takes at most one file", cli.ErrUsage)
	}
	data, err := saver.Encode(doc, f)
	if err != nil {
		return err
	}
	_, err = cc.Out.Write(data)
	return err
}

// readDoc decodes the settings file at path in the format given by its
// extension.
func readDoc(path string) (saver.Document, error) {
	f, err := saver.FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", path, err)
	}
	doc, err := saver.Decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return doc, nil
}
