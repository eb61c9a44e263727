package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/signadot/tony-format/go-dash/debug"
	"github.com/signadot/tony-format/go-dash/delta"
	"github.com/signadot/tony-format/go-dash/hub"
	"github.com/signadot/tony-format/go-dash/model"
	"github.com/signadot/tony-format/go-dash/saver"
	"go.lsp.dev/jsonrpc2"
)

// Session is one client connection.
type Session struct {
	ID     string
	server *Server
	log    *slog.Logger
	conn   jsonrpc2.Conn

	// Watch state
	watchMu    sync.Mutex
	watches    map[string]*watch // path -> active watch
	forwarders sync.WaitGroup
	active     atomic.Int32

	done chan struct{}
}

// watch is an active watch and the channel stopping its forwarder.
type watch struct {
	w    *hub.Watcher
	stop chan struct{}
}

func newSession(id string, s *Server) *Session {
	return &Session{
		ID:      id,
		server:  s,
		log:     s.Spec.Log.With("session", id),
		watches: make(map[string]*watch),
		done:    make(chan struct{}),
	}
}

// run serves requests until the connection or ctx is closed.
func (s *Session) run(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.log.Debug("session started")
	s.conn = jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	s.conn.Go(ctx, s.handle)
	select {
	case <-s.conn.Done():
	case <-ctx.Done():
		s.conn.Close()
		<-s.conn.Done()
	}
	close(s.done)
	s.cleanupWatches()
	s.forwarders.Wait()
	s.log.Debug("session ended")
	if err := s.conn.Err(); err != nil && ctx.Err() == nil && !isClosed(err) {
		return err
	}
	return nil
}

func (s *Session) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if debug.RPC() {
		debug.Logf("rpc %s %s %s", s.ID, req.Method(), req.Params())
	}
	res, err := s.dispatch(req)
	if err != nil {
		s.log.Debug("request failed", "method", req.Method(), "error", err)
		return reply(ctx, nil, rpcError(err))
	}
	data, err := saver.MarshalJSON(res)
	if err != nil {
		return reply(ctx, nil, rpcError(err))
	}
	return reply(ctx, json.RawMessage(data), nil)
}

func (s *Session) dispatch(req jsonrpc2.Request) (any, error) {
	srv := s.server
	switch req.Method() {
	case MethodName:
		return srv.name(), nil

	case MethodProps:
		var p PathParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return srv.read(func(m *model.Model) (any, error) {
			return m.Props(p.Path)
		})

	case MethodGet:
		var p PathParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return srv.read(func(m *model.Model) (any, error) {
			v, err := m.Get(p.Path)
			if err != nil {
				return nil, err
			}
			return m.SerializeValue(v)
		})

	case MethodSerialize:
		var p PathParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return srv.read(func(m *model.Model) (any, error) {
			return m.Serialize(p.Path)
		})

	case MethodSnapshot:
		return srv.read(func(m *model.Model) (any, error) {
			return m.Snapshot()
		})

	case MethodSet:
		var p SetParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return srv.update(s.ID, func(m *model.Model) (any, error) {
			return nil, m.Set(p.Path, p.Value)
		})

	case MethodCall:
		var p CallParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return srv.update(s.ID, func(m *model.Model) (any, error) {
			v, err := m.Call(p.Path, p.Args...)
			if err != nil {
				return nil, err
			}
			return m.SerializeValue(v)
		})

	case MethodPatch:
		var p PatchParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return srv.update(s.ID, func(m *model.Model) (any, error) {
			if len(p.Ops) != 0 {
				return nil, delta.ApplyOps(m, p.Ops)
			}
			return nil, delta.Apply(m, p.Patch)
		})

	case MethodEval:
		var p EvalParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return srv.read(func(*model.Model) (any, error) {
			return srv.eval.Eval(p.Expr)
		})

	case MethodWatch:
		var p PathParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return s.handleWatch(p.Path)

	case MethodUnwatch:
		var p PathParams
		if err := decodeParams(req, &p); err != nil {
			return nil, err
		}
		return nil, s.handleUnwatch(p.Path)
	}
	return nil, jsonrpc2.Errorf(jsonrpc2.MethodNotFound, "method not found: %q", req.Method())
}

// handleWatch registers a watch and returns the current value at path.
func (s *Session) handleWatch(path string) (any, error) {
	srv := s.server
	cur, err := srv.read(func(m *model.Model) (any, error) {
		return m.Serialize(path)
	})
	if err != nil {
		return nil, err
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if _, exists := s.watches[path]; exists {
		return nil, fmt.Errorf("%w %q", ErrAlreadyWatching, path)
	}
	w := hub.NewWatcher(path, s.ID, srv.Spec.WatchBuffer)
	srv.Hub.Watch(w)
	wt := &watch{w: w, stop: make(chan struct{})}
	s.watches[path] = wt
	s.forwarders.Add(1)
	s.active.Add(1)
	go func() {
		defer s.forwarders.Done()
		defer s.active.Add(-1)
		s.forwardEvents(wt)
	}()
	return &WatchResult{ID: w.ID, Value: cur}, nil
}

func (s *Session) handleUnwatch(path string) error {
	s.watchMu.Lock()
	wt, exists := s.watches[path]
	if exists {
		delete(s.watches, path)
	}
	s.watchMu.Unlock()
	if !exists {
		return fmt.Errorf("%w %q", ErrNotWatching, path)
	}
	s.server.Hub.Unwatch(wt.w)
	close(wt.stop)
	return nil
}

// forwardEvents sends the changes of the watcher's events that concern its
// path to the client until the watch stops or fails.
func (s *Session) forwardEvents(wt *watch) {
	ctx := context.Background()
	w := wt.w
	for {
		select {
		case <-s.done:
			return
		case <-wt.stop:
			return
		case <-w.Failed:
			s.log.Warn("watch failed (slow consumer)", "path", w.Path)
			s.watchMu.Lock()
			if s.watches[w.Path] == wt {
				delete(s.watches, w.Path)
			}
			s.watchMu.Unlock()
			return
		case ev := <-w.Events:
			for _, c := range ev.Changes {
				if !hub.Matches(w.Path, c.Path) {
					continue
				}
				v, err := saver.MarshalJSON(c.Value)
				if err != nil {
					s.log.Error("encode change", "path", c.Path, "error", err)
					continue
				}
				err = s.conn.Notify(ctx, NotifyChanged, &Changed{
					Path:   c.Path,
					Value:  json.RawMessage(v),
					Source: ev.Source,
					Seq:    ev.Seq,
				})
				if err != nil {
					s.log.Debug("notify failed", "path", c.Path, "error", err)
					return
				}
			}
		}
	}
}

// cleanupWatches removes all watches on session close.
func (s *Session) cleanupWatches() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for path, wt := range s.watches {
		s.server.Hub.Unwatch(wt.w)
		close(wt.stop)
		delete(s.watches, path)
	}
}

// forwarding returns the number of watches with a running forwarder.
func (s *Session) forwarding() int {
	return int(s.active.Load())
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed)
}

// decodeParams decodes the request parameters into v, keeping numbers as
// json.Number so integers and floats stay distinct.
func decodeParams(req jsonrpc2.Request, v any) error {
	params := req.Params()
	if len(params) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(params))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%s: %v", req.Method(), err)
	}
	return nil
}
