package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"
	"github.com/signadot/tony-format/go-dash/demo"
	"github.com/signadot/tony-format/go-dash/model"
	"github.com/signadot/tony-format/go-dash/rpc"
	"github.com/signadot/tony-format/go-dash/saver"
	"golang.org/x/sync/errgroup"
)

func serve(cfg *ServeConfig, cc *cli.Context, args []string) error {
	_, err := cfg.Serve.Parse(cc, args)
	if err != nil {
		return err
	}
	poll, err := time.ParseDuration(cfg.Poll)
	if err != nil {
		return fmt.Errorf("%w: -poll: %w", cli.ErrUsage, err)
	}
	if cfg.Persist && cfg.Settings == "" {
		return fmt.Errorf("%w: -persist requires -settings", cli.ErrUsage)
	}
	// stdout carries the protocol with -stdio
	logOut := cc.Out
	if cfg.Stdio {
		logOut = os.Stderr
	}
	log := newLog(logOut, cfg.Verbose)

	if err := agent.Listen(agent.Options{}); err != nil {
		log.Warn("gops agent failed", "error", err)
	}

	ctor, ok := demo.Plugins[cfg.Plugin]
	if !ok {
		return fmt.Errorf("%w: unknown plugin %q, want one of %v", cli.ErrUsage, cfg.Plugin, demo.Names())
	}
	var sv *saver.Saver
	var m *model.Model
	if cfg.Settings != "" {
		sv, err = saver.New(cfg.Settings, saver.WithLogger(log))
		if err != nil {
			return err
		}
		obj, err := saver.Wrap(sv, ctor)()
		if err != nil {
			return err
		}
		if m, err = sv.Model(obj); err != nil {
			return err
		}
	} else if m, err = model.New(ctor(), model.WithLogger(log)); err != nil {
		return err
	}

	srv, err := rpc.New(&rpc.Spec{
		Model:   m,
		Log:     log,
		Saver:   sv,
		Persist: cfg.Persist,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	if poll > 0 {
		g.Go(func() error {
			return srv.PollEvery(ctx, poll)
		})
	}
	if sv != nil {
		g.Go(func() error {
			return sv.Watch(ctx, m, srv.Locker(), func(ws []saver.Warning, err error) {
				if err != nil {
					log.Error("reloading settings", "error", err)
					return
				}
				for _, w := range ws {
					log.Warn("settings", "warning", w.String())
				}
				if err := srv.Poll(); err != nil {
					log.Error("poll", "error", err)
				}
			})
		})
	}
	if cfg.Stdio {
		g.Go(func() error {
			defer stop()
			return srv.ServeConn(ctx, &stdio{r: cc.In, w: cc.Out})
		})
	} else {
		l, err := net.Listen("tcp", cfg.Addr)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return srv.Serve(ctx, l)
		})
	}
	if err := g.Wait(); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

type stdio struct {
	r io.Reader
	w io.Writer
}

func (s *stdio) Read(p []byte) (int, error)  { return s.r.Read(p) }
func (s *stdio) Write(p []byte) (int, error) { return s.w.Write(p) }
func (s *stdio) Close() error                { return nil }
