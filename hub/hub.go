// Package hub fans property change events out to watchers.
package hub

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultBroadcastTimeout is the default timeout for sending events to watchers.
// If a watcher doesn't read within this time, the watch is failed.
const DefaultBroadcastTimeout = 5 * time.Second

// Change is the new serialized value of one property.
type Change struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Event is a set of changes observed together.
type Event struct {
	Seq     int64
	Source  string // owner that caused the change, "" for the plugin itself
	Changes []Change
}

// Paths returns the paths of the changes.
func (e *Event) Paths() []string {
	res := make([]string, len(e.Changes))
	for i := range e.Changes {
		res[i] = e.Changes[i].Path
	}
	return res
}

// Hub manages watchers and broadcasts change events to them.  It is safe for
// concurrent use.
type Hub struct {
	mu               sync.RWMutex
	watchers         map[string]map[*Watcher]struct{} // path -> set of watchers
	broadcastTimeout time.Duration
	seq              int64
}

// Watcher is a watch on a path and everything below it.
// If the watcher can't keep up (Events channel blocks), the watch is failed
// and the Failed channel is closed.
type Watcher struct {
	ID     string
	Owner  string // events with this Source are not delivered
	Path   string
	Events chan *Event
	Failed chan struct{}

	failOnce sync.Once
}

// New creates a hub with the default broadcast timeout.
func New() *Hub {
	return NewWithTimeout(DefaultBroadcastTimeout)
}

// NewWithTimeout creates a hub with a custom broadcast timeout.
func NewWithTimeout(timeout time.Duration) *Hub {
	return &Hub{
		watchers:         make(map[string]map[*Watcher]struct{}),
		broadcastTimeout: timeout,
	}
}

// NewWatcher creates a watcher with a buffered events channel.
func NewWatcher(path, owner string, bufferSize int) *Watcher {
	return &Watcher{
		ID:     uuid.NewString(),
		Owner:  owner,
		Path:   path,
		Events: make(chan *Event, bufferSize),
		Failed: make(chan struct{}),
	}
}

// IsFailed returns true if the watch has failed (slow consumer).
func (w *Watcher) IsFailed() bool {
	select {
	case <-w.Failed:
		return true
	default:
		return false
	}
}

// Watch adds a watcher.  The caller must read its Events channel and call
// Unwatch when done.
func (h *Hub) Watch(w *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.watchers[w.Path] == nil {
		h.watchers[w.Path] = make(map[*Watcher]struct{})
	}
	h.watchers[w.Path][w] = struct{}{}
}

// Unwatch removes a watcher.  No more events are sent to it afterwards.
func (h *Hub) Unwatch(w *Watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(w)
}

func (h *Hub) remove(w *Watcher) {
	if ws, ok := h.watchers[w.Path]; ok {
		delete(ws, w)
		if len(ws) == 0 {
			delete(h.watchers, w.Path)
		}
	}
}

// Broadcast sends ev to every watcher whose path matches one of its changes.
// Events without changes are dropped.  Broadcast assigns ev.Seq.
//
// If a watcher's channel blocks for longer than the broadcast timeout, the
// watch is failed and the watcher is removed.
func (h *Hub) Broadcast(ev *Event) {
	if len(ev.Changes) == 0 {
		return
	}
	paths := ev.Paths()

	h.mu.Lock()
	h.seq++
	ev.Seq = h.seq
	var targets []*Watcher
	for watchPath, ws := range h.watchers {
		if !matchesPath(watchPath, paths) {
			continue
		}
		for w := range ws {
			if ev.Source != "" && w.Owner == ev.Source {
				continue
			}
			targets = append(targets, w)
		}
	}
	h.mu.Unlock()

	var failed []*Watcher
	for _, w := range targets {
		select {
		case <-w.Failed:
			continue
		default:
		}
		select {
		case w.Events <- ev:
		case <-time.After(h.broadcastTimeout):
			w.failOnce.Do(func() {
				close(w.Failed)
			})
			failed = append(failed, w)
		case <-w.Failed:
		}
	}

	if len(failed) > 0 {
		h.mu.Lock()
		for _, w := range failed {
			h.remove(w)
		}
		h.mu.Unlock()
	}
}

// WatcherCount returns the total number of active watchers.
func (h *Hub) WatcherCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, ws := range h.watchers {
		count += len(ws)
	}
	return count
}

// PathCount returns the number of distinct watched paths.
func (h *Hub) PathCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers)
}

// Matches reports whether a change at path concerns a watch on watchPath:
// either is a prefix of the other at a segment boundary.
func Matches(watchPath, path string) bool {
	if watchPath == "" || path == watchPath {
		return true
	}
	return under(path, watchPath) || under(watchPath, path)
}

func under(p, prefix string) bool {
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	next := p[len(prefix):]
	return len(next) > 0 && (next[0] == '.' || next[0] == '[')
}

func matchesPath(watchPath string, paths []string) bool {
	for _, p := range paths {
		if Matches(watchPath, p) {
			return true
		}
	}
	return false
}
