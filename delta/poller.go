package delta

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/signadot/tony-format/go-dash/debug"
	"github.com/signadot/tony-format/go-dash/hub"
	"github.com/signadot/tony-format/go-dash/kpath"
	"github.com/signadot/tony-format/go-dash/model"
)

// Poller tracks the serialized state of a model and publishes its changes
// to a hub.
//
// Snapshots run every getter of the plugin, so computed properties are only
// refreshed by polling.
type Poller struct {
	m      *model.Model
	locker sync.Locker
	hub    *hub.Hub
	log    *slog.Logger
	prev   []byte // guarded by locker
}

// NewPoller returns a poller for m.  locker guards every access to m.
func NewPoller(m *model.Model, locker sync.Locker, h *hub.Hub, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{m: m, locker: locker, hub: h, log: log}
}

// Reset takes the current state as the baseline without publishing.
func (p *Poller) Reset() error {
	p.locker.Lock()
	defer p.locker.Unlock()
	cur, err := Snapshot(p.m)
	if err != nil {
		return err
	}
	p.prev = cur
	return nil
}

// Changes diffs the current state against the baseline, advances the
// baseline and returns the resulting event attributed to source.  It
// returns nil if nothing changed or there was no baseline yet.  The caller
// must hold the locker.
func (p *Poller) Changes(source string) (*hub.Event, error) {
	snap, err := p.m.Snapshot()
	if err != nil {
		return nil, err
	}
	cur, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	prev := p.prev
	p.prev = cur
	if prev == nil {
		return nil, nil
	}
	patch, changes, err := Diff(prev, cur)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, nil
	}
	for i := range changes {
		if v, ok := valueAt(snap, changes[i].Path); ok {
			changes[i].Value = v
		}
	}
	if debug.Delta() {
		debug.Logf("delta %s: %s", source, patch)
	}
	return &hub.Event{Source: source, Changes: changes}, nil
}

// Poll publishes the changes since the last poll.
func (p *Poller) Poll(source string) error {
	p.locker.Lock()
	ev, err := p.Changes(source)
	p.locker.Unlock()
	if err != nil {
		return err
	}
	p.Publish(ev)
	return nil
}

// valueAt returns the value at path, a sequence of fields, in doc.
func valueAt(doc map[string]any, path string) (any, bool) {
	kp, err := kpath.Parse(path)
	if err != nil || kp == nil {
		return nil, false
	}
	var cur any = doc
	for x := kp; x != nil; x = x.Next {
		m, ok := cur.(map[string]any)
		if !ok || x.Field == nil {
			return nil, false
		}
		if cur, ok = m[*x.Field]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Publish broadcasts ev.  A nil event is ignored.
func (p *Poller) Publish(ev *hub.Event) {
	if ev == nil {
		return
	}
	p.hub.Broadcast(ev)
}

// Run polls every interval until ctx is done.  Errors are logged and polling
// continues.
func (p *Poller) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := p.Poll(""); err != nil {
				p.log.Error("poll", "error", err)
			}
		}
	}
}
