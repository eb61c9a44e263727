package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-dash/saver"
)

const defaultAddr = "localhost:7331"

type MainConfig struct {
	Addr    string `cli:"name=addr desc='server address' default=localhost:7331"`
	Verbose bool   `cli:"name=v desc='debug logging'"`
	Color   bool   `cli:"name=color desc='color output'"`

	Main *cli.Command
}

// colors reports whether output to w is colored: always with -color, and
// otherwise when w is a terminal.
func (cfg *MainConfig) colors(w io.Writer) bool {
	if cfg.Color {
		return true
	}
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type ServeConfig struct {
	*MainConfig
	Plugin   string `cli:"name=plugin desc='demo plugin to serve' default=lab"`
	Settings string `cli:"name=settings desc='settings file (json, jsonc, yaml, toml or cbor)'"`
	Persist  bool   `cli:"name=persist desc='write changes made by clients to the settings file'"`
	Stdio    bool   `cli:"name=stdio desc='serve one session on stdin/stdout'"`
	Poll     string `cli:"name=poll desc='interval to poll the plugin for changes, 0 to disable' default=1s"`

	Serve *cli.Command
}

type PropsConfig struct {
	*MainConfig
	JSON bool `cli:"name=j aliases=json desc='print the schema as json'"`

	Props *cli.Command
}

type GetConfig struct {
	*MainConfig
	Get *cli.Command
}

type SetConfig struct {
	*MainConfig
	String bool `cli:"name=s desc='set the value as a string'"`

	Set *cli.Command
}

type CallConfig struct {
	*MainConfig
	Call *cli.Command
}

type WatchConfig struct {
	*MainConfig
	Count int `cli:"name=n desc='exit after n changes'"`

	Watch *cli.Command
}

type EvalConfig struct {
	*MainConfig
	Eval *cli.Command
}

type DumpConfig struct {
	*MainConfig
	Format string `cli:"name=f desc='output format: json, yaml, toml or cbor' default=json"`

	Dump *cli.Command
}

func (cfg *DumpConfig) format() (saver.Format, error) {
	if cfg.Format == "" {
		return saver.JSON, nil
	}
	return saver.ParseFormat(cfg.Format)
}

type DiffConfig struct {
	*MainConfig
	Reverse bool `cli:"name=r desc='reverse the diff'"`

	Diff *cli.Command
}

type DocGenConfig struct {
	*MainConfig
	Output string `cli:"name=o desc='name of the generated file in each package'"`
	DryRun bool   `cli:"name=n desc='print the generated code instead of writing it'"`

	DocGen *cli.Command
}
