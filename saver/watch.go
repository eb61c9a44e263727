package saver

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/signadot/tony-format/go-dash/model"
)

// settle is how long Watch waits for writes to a document to stop before
// reapplying it.
const settle = 50 * time.Millisecond

// Watch reapplies the document to m whenever the file changes, until ctx is
// done.  fn receives the outcome of every reapplication.  The directory is
// watched rather than the file so editors that replace the file by renaming
// are followed.
//
// locker, if not nil, is held while the document is applied.
func (s *Saver) Watch(ctx context.Context, m *model.Model, locker sync.Locker, fn func([]Warning, error)) error {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			pending = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Error("watching settings", "error", err)
		case <-pending:
			pending = nil
			doc, err := s.Load()
			if err != nil {
				fn(nil, err)
				continue
			}
			if locker != nil {
				locker.Lock()
			}
			ws, err := s.ApplyDocument(m, doc)
			if locker != nil {
				locker.Unlock()
			}
			fn(ws, err)
		}
	}
}
