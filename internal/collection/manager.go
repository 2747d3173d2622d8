// Package collection keeps a live, filtered and sorted view of the profiles
// installed under one directory.
//
// A Manager owns its state on a single loop goroutine. Watcher signals,
// queries, sorts, deletions and scan commits are all handed to that loop, so
// they never interleave. Scans themselves run off the loop and only their
// result is committed there, as one whole-set replacement.
package collection

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"profiledeck/internal/index"
	"profiledeck/internal/logging"
	"profiledeck/internal/profile"
	"profiledeck/internal/scanner"
	"profiledeck/internal/trash"
	"profiledeck/internal/watcher"
)

// ErrClosed is returned by operations on a closed Manager.
var ErrClosed = errors.New("collection: manager closed")

// DeleteError reports a failed trash operation. The collection is unchanged.
type DeleteError struct {
	Record profile.Record
	Err    error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %s (%s): %v", e.Record.UUID, e.Record.SourcePath, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// Controller is what a presentation layer needs from a collection.
type Controller interface {
	Reload(ctx context.Context) error
	SetQuery(q string)
	Sort(field profile.Field, ascending bool)
	Delete(ctx context.Context, rec profile.Record) error
	Subscribe() (<-chan Snapshot, func())
}

var _ Controller = (*Manager)(nil)

// Options configures a Manager.
type Options struct {
	Root     string
	Trash    trash.Trasher
	Index    *index.Index // optional decode cache
	Locale   string
	Sort     profile.SortKey
	Workers  int
	Watch    bool
	Debounce time.Duration
}

// Snapshot is the published state. Slices are shared between snapshots and
// must not be modified.
type Snapshot struct {
	Visible  []profile.Record
	All      []profile.Record
	Query    string
	Sort     profile.SortKey
	Loading  bool
	Err      error
	Warnings []scanner.Warning
	Skipped  int

	// Generation counts committed scans, failed ones included.
	Generation uint64
}

// newWatcher is replaced in tests.
var newWatcher = watcher.New

// Manager maintains the collection for one profiles root.
type Manager struct {
	root    string
	trash   trash.Trasher
	index   *index.Index
	sorter  *profile.Sorter
	workers int
	decode  func(path string) (profile.Record, error)
	watcher *watcher.Watcher

	ops     chan func(*state)
	signals chan struct{}
	results chan scanResult

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	scans     sync.WaitGroup
	closeOnce sync.Once

	st state
}

// New starts a Manager for opts.Root. The collection starts empty; call
// Reload to populate it. A watch that cannot be established is logged and
// leaves the Manager usable through manual reloads.
func New(opts Options) (*Manager, error) {
	if opts.Root == "" {
		return nil, errors.New("collection: root is required")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		root:    filepath.Clean(opts.Root),
		trash:   opts.Trash,
		index:   opts.Index,
		sorter:  profile.NewSorter(opts.Locale),
		workers: workers,
		decode:  profile.Parse,
		ops:     make(chan func(*state)),
		signals: make(chan struct{}, 1),
		results: make(chan scanResult),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		st: state{
			sort:    opts.Sort,
			subs:    make(map[chan Snapshot]struct{}),
			deleted: make(map[string]struct{}),
		},
	}

	if opts.Watch {
		log := logging.Get(logging.CategoryCollection)
		w, err := newWatcher(m.root, opts.Debounce, m.requestReload)
		if err != nil {
			log.Warn("auto-reload disabled: %v", err)
		} else {
			if err := w.Start(ctx); err != nil {
				log.Warn("auto-reload disabled: %v", err)
			}
			m.watcher = w
		}
	}

	go m.loop()
	return m, nil
}

// Root returns the directory the Manager scans.
func (m *Manager) Root() string { return m.root }

// requestReload is the watcher callback. It never blocks; a signal that
// finds one already queued is folded into it.
func (m *Manager) requestReload() {
	select {
	case m.signals <- struct{}{}:
	default:
	}
}

// Reload rescans the root and waits for the result to be committed. If a
// scan is already running, the request is served by one follow-up scan
// shared with every other request that arrived meanwhile. A cancelled ctx
// stops the wait, not the scan.
func (m *Manager) Reload(ctx context.Context) error {
	errc := make(chan error, 1)
	if err := m.do(ctx, func(s *state) { m.requestScan(s, errc) }); err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrClosed
	}
}

// SetQuery filters the visible records by q.
func (m *Manager) SetQuery(q string) {
	_ = m.do(context.Background(), func(s *state) {
		if s.query == q {
			return
		}
		s.query = q
		m.refresh(s)
	})
}

// Sort orders the visible records by field. The ordering is kept for every
// later refresh. An unknown field is ignored and the current ordering stays.
func (m *Manager) Sort(field profile.Field, ascending bool) {
	f, err := profile.ParseField(string(field))
	if err != nil {
		logging.Get(logging.CategoryCollection).Warn("sort: %v", err)
		return
	}
	_ = m.do(context.Background(), func(s *state) {
		s.sort = profile.SortKey{Field: f, Ascending: ascending}
		m.refresh(s)
	})
}

// Delete moves rec's file to the trash and drops rec from the collection.
// On failure a *DeleteError is returned and nothing changes.
func (m *Manager) Delete(ctx context.Context, rec profile.Record) error {
	var derr error
	err := m.do(ctx, func(s *state) {
		log := logging.Get(logging.CategoryCollection)
		if m.trash == nil {
			derr = &DeleteError{Record: rec, Err: errors.New("no trash configured")}
			return
		}
		if err := m.trash.Trash(rec.SourcePath); err != nil {
			derr = &DeleteError{Record: rec, Err: err}
			log.Warn("%v", derr)
			return
		}

		if i := slices.IndexFunc(s.all, rec.Equal); i >= 0 {
			s.all = slices.Delete(slices.Clone(s.all), i, i+1)
		}
		if m.index != nil {
			if err := m.index.Forget(rec.SourcePath); err != nil {
				logging.Get(logging.CategoryIndex).Warn("forget %s: %v", rec.SourcePath, err)
			}
		}
		// A running scan may already have read the file. Its result must not
		// bring the record back, and the follow-up scan settles the rest.
		if s.scanning {
			s.deleted[rec.SourcePath] = struct{}{}
			s.pending = true
		}
		log.Info("deleted %s (%s)", rec.UUID, rec.Name)
		m.refresh(s)
	})
	if err != nil {
		return err
	}
	return derr
}

// Snapshot returns the current published state.
func (m *Manager) Snapshot() Snapshot {
	var snap Snapshot
	if err := m.do(context.Background(), func(s *state) { snap = s.snapshot() }); err != nil {
		snap.Err = err
	}
	return snap
}

// Lookup finds a record in the full collection by UUID.
func (m *Manager) Lookup(uuid string) (profile.Record, bool) {
	var (
		rec profile.Record
		ok  bool
	)
	_ = m.do(context.Background(), func(s *state) {
		i := slices.IndexFunc(s.all, func(r profile.Record) bool { return r.UUID == uuid })
		if i >= 0 {
			rec, ok = s.all[i], true
		}
	})
	return rec, ok
}

// Subscribe returns a channel carrying the latest Snapshot. The current
// state is delivered immediately; a slow reader only ever misses
// intermediate states. The channel is closed by the returned cancel func or
// by Close.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	err := m.do(context.Background(), func(s *state) {
		s.subs[ch] = struct{}{}
		ch <- s.snapshot()
	})
	if err != nil {
		close(ch)
		return ch, func() {}
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			_ = m.do(context.Background(), func(s *state) {
				if _, ok := s.subs[ch]; ok {
					delete(s.subs, ch)
					close(ch)
				}
			})
		})
	}
}

// Close stops the watcher and the loop and waits for a running scan to
// finish. Pending Reload calls return ErrClosed.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		if m.watcher != nil {
			m.watcher.Stop()
		}
		m.cancel()
		<-m.done
		m.scans.Wait()
	})
	return nil
}

// do runs fn on the loop and waits for it to return.
func (m *Manager) do(ctx context.Context, fn func(*state)) error {
	ran := make(chan struct{})
	op := func(s *state) {
		defer close(ran)
		fn(s)
	}
	select {
	case m.ops <- op:
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ran
	return nil
}

func (m *Manager) loop() {
	defer close(m.done)
	s := &m.st
	for {
		select {
		case <-m.ctx.Done():
			m.shutdown(s)
			return
		case op := <-m.ops:
			op(s)
		case <-m.signals:
			logging.CollectionDebug("change signal from watcher")
			m.requestScan(s, nil)
		case res := <-m.results:
			m.commit(s, res)
		}
	}
}

// requestScan starts a scan, or marks a follow-up when one is running.
func (m *Manager) requestScan(s *state, waiter chan<- error) {
	if s.scanning {
		s.pending = true
		if waiter != nil {
			s.next = append(s.next, waiter)
		}
		return
	}
	if waiter != nil {
		s.waiters = append(s.waiters, waiter)
	}
	m.startScan(s)
}

func (m *Manager) startScan(s *state) {
	s.scanning = true
	s.loading = true
	s.err = nil
	m.publish(s)

	m.scans.Add(1)
	go func() {
		defer m.scans.Done()
		res := m.scan(m.ctx)
		select {
		case m.results <- res:
		case <-m.ctx.Done():
		}
	}()
}

func (m *Manager) commit(s *state, res scanResult) {
	s.scanning = false
	s.generation++
	if res.err != nil {
		s.err = res.err
	} else {
		s.all = withoutPaths(res.records, s.deleted)
		s.warnings = res.warnings
		s.skipped = res.skipped
	}
	clear(s.deleted)
	for _, w := range s.waiters {
		w <- res.err
	}
	s.waiters = nil

	s.recompute(m.sorter)
	if s.pending {
		s.pending = false
		s.waiters, s.next = s.next, nil
		m.startScan(s)
		return
	}
	s.loading = false
	m.publish(s)
}

// refresh recomputes the visible records and publishes them.
func (m *Manager) refresh(s *state) {
	s.recompute(m.sorter)
	m.publish(s)
}

func (m *Manager) publish(s *state) {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshot()
	for ch := range s.subs {
		// Only the loop sends, so after draining there is room.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (m *Manager) shutdown(s *state) {
	for _, w := range append(s.waiters, s.next...) {
		w <- ErrClosed
	}
	s.waiters, s.next = nil, nil
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
}
