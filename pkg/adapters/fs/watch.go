package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/continuum/pkg/core"
)

// DebounceInterval coalesces bursts of events for the same document.
const DebounceInterval = 50 * time.Millisecond

// Watch reports changes to included documents whose relative path matches
// pattern (doublestar syntax, "" for all). The channel is closed once ctx is
// done and the watcher has shut down.
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := s.recursiveAdd(watcher, s.Path); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	events := make(chan core.Event)
	w := &watchWorker{
		store:     s,
		pattern:   pattern,
		events:    events,
		watcher:   watcher,
		debouncer: newDebouncer(DebounceInterval),
	}

	s.setWatcherActive(true)
	lifecycle.Go(ctx, w.run, lifecycle.WithErrorHandler(func(err error) {
		s.config.Logger.Error("watcher panic", "error", err)
		s.handleError(fmt.Errorf("watcher panic: %w", err))
	}))
	return events, nil
}

type watchWorker struct {
	store     *Store
	pattern   string
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
}

func (w *watchWorker) run(ctx context.Context) error {
	defer close(w.events)
	defer w.store.setWatcherActive(false)
	defer w.watcher.Close()
	// Runs first: no debounced send may outlive the channel.
	defer w.debouncer.stopAndWait(5 * time.Second)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.process(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.store.config.Logger.Error("fsnotify error", "error", err)
			w.store.handleError(err)
		}
	}
}

func (w *watchWorker) process(ctx context.Context, event fsnotify.Event) {
	w.store.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.store.skipDir(info.Name()) {
				if err := w.store.recursiveAdd(w.watcher, event.Name); err != nil {
					w.store.config.Logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
				}
			}
			return
		}
	}

	eType := mapEventType(event)
	if eType == "" {
		return
	}

	rel, err := filepath.Rel(w.store.Path, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if !w.store.included(rel) {
		return
	}
	if ok, _ := doublestar.Match(w.pattern, rel); !ok {
		return
	}
	if eType == core.EventDelete {
		w.store.cache.Delete(rel)
	}

	w.debouncer.add(core.Event{
		Type:      eType,
		ID:        documentID(rel),
		Timestamp: time.Now().Unix(),
	}, func(e core.Event) {
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	}
	return ""
}

func (s *Store) recursiveAdd(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != s.Path && s.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// debouncer delivers the last event per document ID once it has been quiet
// for delay. A CREATE followed by writes is still delivered as CREATE.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]core.Event
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]core.Event),
	}
}

func (d *debouncer) add(e core.Event, deliver func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if prev, ok := d.pending[e.ID]; ok && prev.Type == core.EventCreate && e.Type == core.EventModify {
		e.Type = core.EventCreate
	}
	d.pending[e.ID] = e

	if t, ok := d.timers[e.ID]; ok && t.Stop() {
		d.wg.Done()
	}

	id := e.ID
	var t *time.Timer
	d.wg.Add(1)
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		ev, ok := d.pending[id]
		delete(d.pending, id)
		if d.timers[id] == t {
			delete(d.timers, id)
		}
		stopped := d.stopped
		d.mu.Unlock()

		if ok && !stopped {
			deliver(ev)
		}
	})
	d.timers[id] = t
}

// stopAndWait drops pending events and waits for deliveries in progress.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for id, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, id)
	}
	d.pending = make(map[string]core.Event)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
