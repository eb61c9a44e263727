package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/signadot/tony-format/go-dash/delta"
	"github.com/signadot/tony-format/go-dash/eval"
	"github.com/signadot/tony-format/go-dash/hub"
	"github.com/signadot/tony-format/go-dash/model"
	"github.com/signadot/tony-format/go-dash/saver"
	"golang.org/x/sync/errgroup"
)

// Spec holds what a server needs.  Model is required.
type Spec struct {
	Model *model.Model
	Log   *slog.Logger

	// Saver, if set with Persist, receives every settable change made by a
	// session.
	Saver   *saver.Saver
	Persist bool

	// WatchBuffer is the event buffer of each watch (default 64).
	WatchBuffer int
}

// Server serves one model to any number of sessions.  All model access is
// serialized by one mutex, which the server shares with its poller.
type Server struct {
	Spec Spec

	// Hub fans changes out to watching sessions.
	Hub *hub.Hub

	mu     sync.Mutex
	poller *delta.Poller
	eval   *eval.Evaluator

	sessionsMu sync.RWMutex
	sessions   map[string]*Session
}

// New creates a server.
func New(spec *Spec) (*Server, error) {
	if spec.Model == nil {
		return nil, errors.New("rpc: no model")
	}
	if spec.Log == nil {
		spec.Log = slog.Default()
	}
	if spec.WatchBuffer <= 0 {
		spec.WatchBuffer = 64
	}
	s := &Server{
		Spec:     *spec,
		Hub:      hub.New(),
		eval:     eval.New(spec.Model),
		sessions: make(map[string]*Session),
	}
	s.poller = delta.NewPoller(spec.Model, &s.mu, s.Hub, spec.Log)
	if err := s.poller.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Locker returns the mutex guarding the model.  Code outside the server that
// touches the plugin while it is served must hold it.
func (s *Server) Locker() sync.Locker {
	return &s.mu
}

// Poll publishes changes made to the plugin outside of any session, such as
// those of a settings watcher or of the plugin itself.
func (s *Server) Poll() error {
	return s.poller.Poll("")
}

// PollEvery polls until ctx is done.  Polling runs every getter of the
// plugin, so computed properties are only pushed to watchers when polling.
func (s *Server) PollEvery(ctx context.Context, interval time.Duration) error {
	return s.poller.Run(ctx, interval)
}

// Trigger pushes the current value of path to its watchers whether or not it
// changed.
func (s *Server) Trigger(path string) error {
	s.mu.Lock()
	v, err := s.Spec.Model.Serialize(path)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.Hub.Broadcast(&hub.Event{Changes: []hub.Change{{Path: path, Value: v}}})
	return nil
}

// Serve accepts connections on l until ctx is done or accepting fails.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.Spec.Log.Info("listening", "addr", l.Addr().String())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return l.Close()
	})
	g.Go(func() error {
		for {
			conn, err := l.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			s.Spec.Log.Debug("new connection", "remote", conn.RemoteAddr().String())
			g.Go(func() error {
				if err := s.ServeConn(ctx, conn); err != nil {
					s.Spec.Log.Error("session error", "error", err)
				}
				return nil
			})
		}
	})
	return g.Wait()
}

// ServeConn runs a session on rwc and blocks until it ends.
func (s *Server) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) error {
	ss := newSession(uuid.NewString(), s)
	s.sessionsMu.Lock()
	s.sessions[ss.ID] = ss
	s.sessionsMu.Unlock()
	defer func() {
		s.sessionsMu.Lock()
		delete(s.sessions, ss.ID)
		s.sessionsMu.Unlock()
	}()
	return ss.run(ctx, rwc)
}

// SessionCount returns the number of active sessions.
func (s *Server) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}

// update runs fn on the model under the lock and publishes the changes it
// made, attributed to source.  Settable changes are persisted if configured.
func (s *Server) update(source string, fn func(m *model.Model) (any, error)) (any, error) {
	s.mu.Lock()
	res, err := fn(s.Spec.Model)
	ev, derr := s.poller.Changes(source)
	if derr == nil && ev != nil {
		s.persist(ev.Changes)
	}
	s.mu.Unlock()
	if derr != nil {
		s.Spec.Log.Error("diff", "error", derr)
	}
	s.poller.Publish(ev)
	return res, err
}

// read runs fn on the model under the lock.
func (s *Server) read(fn func(m *model.Model) (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.Spec.Model)
}

func (s *Server) persist(changes []hub.Change) {
	if !s.Spec.Persist || s.Spec.Saver == nil {
		return
	}
	done := map[string]bool{}
	for _, c := range changes {
		p, ok := s.settableOwner(c.Path)
		if !ok || done[p] {
			continue
		}
		done[p] = true
		v, err := saver.StateAt(s.Spec.Model, p)
		if err == nil {
			err = s.Spec.Saver.Persist(p, v)
		}
		if err != nil {
			s.Spec.Log.Error("persist", "path", p, "error", err)
		}
	}
}

// settableOwner finds the node holding the value changed at path: path
// itself or, for keys inside a map-valued leaf, its nearest ancestor node.
func (s *Server) settableOwner(path string) (string, bool) {
	for path != "" {
		n, err := s.Spec.Model.Node(path)
		if err == nil {
			return path, n.Settable && n.Kind != model.ObjectKind && n.Kind != model.MethodKind
		}
		i := strings.LastIndexAny(path, ".[")
		if i < 0 {
			break
		}
		path = path[:i]
	}
	return "", false
}

func (s *Server) name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Spec.Model.Name()
}
