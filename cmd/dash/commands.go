package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{Addr: defaultAddr}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "dash").
		WithSynopsis("dash [opts] command [opts]").
		WithDescription("dash serves plugin objects as property trees and talks to them.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return dashMain(cfg, cc, args)
		}).
		WithSubs(
			ServeCommand(cfg),
			PropsCommand(cfg),
			GetCommand(cfg),
			SetCommand(cfg),
			CallCommand(cfg),
			WatchCommand(cfg),
			EvalCommand(cfg),
			DumpCommand(cfg),
			DiffCommand(cfg),
			DocGenCommand(cfg))
}

func ServeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ServeConfig{MainConfig: mainCfg, Plugin: "lab", Poll: "1s"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Serve, "serve").
		WithAliases("s").
		WithSynopsis("serve [-plugin name] [-settings file [-persist]] [-poll dur] [-stdio]").
		WithDescription("serve a demo plugin over json-rpc").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return serve(cfg, cc, args)
		})
}

func PropsCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &PropsConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Props, "props").
		WithAliases("p").
		WithSynopsis("props [path]").
		WithDescription("show the properties of the served plugin").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return props(cfg, cc, args)
		})
}

func GetCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &GetConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Get, "get").
		WithAliases("g").
		WithSynopsis("get <path>...").
		WithDescription("get property values").
		WithRun(func(cc *cli.Context, args []string) error {
			return get(cfg, cc, args)
		})
}

func SetCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SetConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Set, "set").
		WithSynopsis("set [-s] <path> <value>").
		WithDescription("set a property; the value is json unless -s is given").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return set(cfg, cc, args)
		})
}

func CallCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CallConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Call, "call").
		WithAliases("c").
		WithSynopsis("call <path> [args]").
		WithDescription("call a method; each argument is json or else a string").
		WithRun(func(cc *cli.Context, args []string) error {
			return call(cfg, cc, args)
		})
}

func WatchCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &WatchConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Watch, "watch").
		WithAliases("w").
		WithSynopsis("watch [-n count] [path]...").
		WithDescription("print changes to properties at or below paths").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return watch(cfg, cc, args)
		})
}

func EvalCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &EvalConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Eval, "eval").
		WithAliases("e").
		WithSynopsis("eval <expr>").
		WithDescription("evaluate an expression against the plugin's properties").
		WithRun(func(cc *cli.Context, args []string) error {
			return evalExpr(cfg, cc, args)
		})
}

func DumpCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DumpConfig{MainConfig: mainCfg, Format: "json"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Dump, "dump").
		WithSynopsis("dump [-f format] [settings file]").
		WithDescription("dump a settings file, or the served plugin's state, in another format").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return dump(cfg, cc, args)
		})
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Diff, "diff").
		WithAliases("d").
		WithSynopsis("diff [-r] a b").
		WithDescription("diff two settings files; exits 1 if they differ").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return diff(cfg, cc, args)
		})
}

func DocGenCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DocGenConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.DocGen, "docgen").
		WithSynopsis("docgen [-o file] [-n] [packages]").
		WithDescription("generate documentation registrations from go doc comments").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return docGen(cfg, cc, args)
		})
}
