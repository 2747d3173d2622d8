// Package watcher turns filesystem notifications under a profiles directory
// into a single debounced "something changed" signal.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"profiledeck/internal/logging"
)

// State is the debounce state machine position.
type State int

const (
	Idle       State = iota // no pending events
	Debouncing              // events seen, waiting for the quiet period
	Firing                  // callback running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Firing:
		return "firing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// WatchError reports a failure to establish or keep a watch. It is logged,
// never fatal: the owner just stops getting change signals.
type WatchError struct {
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("watch %s: %v", e.Path, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }

// Stats tracks watcher activity for debugging.
type Stats struct {
	Events        int
	Ignored       int
	Fired         int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventOp   string
}

// Watcher observes one root directory (and its non-hidden subdirectories)
// and calls onChange once per burst of events.
type Watcher struct {
	mu        sync.RWMutex
	fsw       *fsnotify.Watcher
	root      string
	onChange  func()
	debouncer *Debouncer
	state     State
	detached  bool
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	stats     Stats
}

// New creates a watcher for root. quiet <= 0 selects DefaultQuietPeriod.
func New(root string, quiet time.Duration, onChange func()) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watcher: nil callback")
	}
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &WatchError{Path: root, Err: err}
	}
	return &Watcher{
		fsw:       fsw,
		root:      filepath.Clean(root),
		onChange:  onChange,
		debouncer: NewDebouncer(quiet),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start subscribes to the root and begins delivering callbacks. A root that
// cannot be watched is reported as *WatchError but the watcher still runs
// (and stays silent), so Stop remains safe to call.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	err := w.addTree(w.root)
	if err != nil {
		logging.Get(logging.CategoryWatcher).Warn("initial watch failed, auto-reload disabled: %v", err)
		w.mu.Lock()
		w.detached = true
		w.stats.Errors++
		w.mu.Unlock()
	} else {
		logging.Watcher("watching %s (%d dirs)", w.root, len(w.fsw.WatchList()))
	}

	go w.run(ctx)
	return err
}

// Stop unsubscribes and waits for the event loop and any running callback.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.debouncer.Cancel()
	w.debouncer.Wait()

	if err := w.fsw.Close(); err != nil {
		logging.Get(logging.CategoryWatcher).Error("error closing watcher: %v", err)
	}
	w.mu.Lock()
	w.state = Idle
	w.mu.Unlock()
	logging.Watcher("stopped watching %s", w.root)
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			w.debouncer.Cancel()
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.handleError(err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Clean(event.Name)

	w.mu.Lock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = name
	w.stats.LastEventOp = event.Op.String()
	detached := w.detached
	w.mu.Unlock()

	if detached {
		w.ignore()
		return
	}

	if name == w.root && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.detach()
		return
	}

	// Attribute-only changes and dotfiles never change a scan result.
	if event.Op == fsnotify.Chmod || isHiddenBelow(w.root, name) {
		w.ignore()
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := w.addTree(name); err != nil {
				logging.Get(logging.CategoryWatcher).Warn("could not watch new directory: %v", err)
			}
		}
	}

	logging.WatcherDebug("%s %s", event.Op, name)
	w.touch()
}

func (w *Watcher) handleError(err error) {
	w.mu.Lock()
	w.stats.Errors++
	w.mu.Unlock()

	if errors.Is(err, fsnotify.ErrEventOverflow) {
		// Lost events: the only safe answer is a full recheck.
		logging.Get(logging.CategoryWatcher).Warn("event queue overflowed, forcing recheck")
		w.touch()
		return
	}
	logging.Get(logging.CategoryWatcher).Error("watch error: %v", err)
}

// touch moves the machine into Debouncing, restarting the quiet period.
func (w *Watcher) touch() {
	w.mu.Lock()
	w.state = Debouncing
	w.mu.Unlock()
	w.debouncer.Debounce(w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if w.detached || !w.running {
		w.state = Idle
		w.mu.Unlock()
		return
	}
	w.state = Firing
	w.stats.Fired++
	w.mu.Unlock()

	logging.WatcherDebug("quiet period elapsed, signalling change")
	w.onChange()

	w.mu.Lock()
	if w.state == Firing {
		w.state = Idle
	}
	w.mu.Unlock()
}

// detach stops delivering callbacks once the root is gone. fsnotify drops
// the kernel watch on its own; later events are swallowed.
func (w *Watcher) detach() {
	w.debouncer.Cancel()
	w.mu.Lock()
	w.detached = true
	w.state = Idle
	w.stats.Errors++
	w.mu.Unlock()
	logging.Get(logging.CategoryWatcher).Warn("watched root %s disappeared, auto-reload disabled", w.root)
}

func (w *Watcher) ignore() {
	w.mu.Lock()
	w.stats.Ignored++
	w.mu.Unlock()
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return &WatchError{Path: path, Err: err}
			}
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if path == dir {
				return &WatchError{Path: path, Err: err}
			}
			logging.Get(logging.CategoryWatcher).Warn("could not watch %s: %v", path, err)
		}
		return nil
	})
}

// State returns the current debounce state.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Detached reports whether the watcher lost its root and went silent.
func (w *Watcher) Detached() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.detached
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// WatchedDirs returns the directories currently subscribed.
func (w *Watcher) WatchedDirs() []string {
	return w.fsw.WatchList()
}

func isHiddenBelow(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}
