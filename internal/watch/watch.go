// Package watch reports batched file system changes under a set of
// directories. It backs live reload of user themes and development plugins.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/keyed/internal/logging"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file or directory was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	var parts []string
	for _, o := range []struct {
		op   Op
		name string
	}{{OpCreate, "CREATE"}, {OpWrite, "WRITE"}, {OpRemove, "REMOVE"}, {OpRename, "RENAME"}} {
		if op.Has(o.op) {
			parts = append(parts, o.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event is a coalesced change to one path.
type Event struct {
	Path string
	Op   Op
}

// Handler receives one debounced batch of events, sorted by path.
type Handler func(events []Event)

// Config configures a Watcher.
type Config struct {
	// Debounce is how long the watcher waits for quiet before delivering.
	Debounce time.Duration

	// Extensions limits file events to these extensions (e.g. ".json").
	// Empty means every file.
	Extensions []string

	// Recursive watches subdirectories, including ones created later.
	Recursive bool
}

// Option configures a Watcher.
type Option func(*Config)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) { c.Debounce = d }
}

// WithExtensions restricts events to files with the given extensions.
func WithExtensions(exts ...string) Option {
	return func(c *Config) { c.Extensions = exts }
}

// WithRecursive enables recursive watching.
func WithRecursive() Option {
	return func(c *Config) { c.Recursive = true }
}

// Watcher wraps fsnotify with extension filtering and debouncing.
type Watcher struct {
	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	config  Config
	paths   map[string]bool
	pending map[string]Op
	closed  bool
	logger  *logging.Logger
}

// New creates a watcher.
func New(logger *logging.Logger, opts ...Option) (*Watcher, error) {
	cfg := Config{Debounce: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(&cfg)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsw:     fsw,
		config:  cfg,
		paths:   make(map[string]bool),
		pending: make(map[string]Op),
		logger:  logging.OrNull(logger).WithComponent("watch"),
	}, nil
}

// Add starts watching dir (and its subdirectories when recursive).
func (w *Watcher) Add(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrPathNotExist
		}
		return err
	}
	if !info.IsDir() || !w.config.Recursive {
		return w.addOne(abs)
	}

	return filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries, keep walking
		}
		if d.IsDir() {
			if addErr := w.addOne(p); addErr != nil {
				w.logger.Warn("watch %s: %v", p, addErr)
			}
		}
		return nil
	})
}

func (w *Watcher) addOne(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.paths[path] {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		return err
	}
	w.paths[path] = true
	return nil
}

// Paths returns the watched directories.
func (w *Watcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.paths))
	for p := range w.paths {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Run delivers debounced batches to handle until ctx is done or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return ErrWatcherClosed
			}
			if w.record(ev) {
				timer.Reset(w.config.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrWatcherClosed
			}
			w.logger.Warn("watch error: %v", err)

		case <-timer.C:
			if batch := w.flush(); len(batch) > 0 {
				handle(batch)
			}
		}
	}
}

// record adds ev to the pending batch and reports whether it was kept.
func (w *Watcher) record(ev fsnotify.Event) bool {
	op := convertOp(ev.Op)
	if op == 0 {
		return false
	}

	if op.Has(OpCreate) && w.config.Recursive {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.Add(ev.Name)
			return true
		}
	}
	if !w.matches(ev.Name) {
		return false
	}

	w.mu.Lock()
	w.pending[ev.Name] |= op
	w.mu.Unlock()
	return true
}

func (w *Watcher) matches(path string) bool {
	if len(w.config.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, want := range w.config.Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

func (w *Watcher) flush() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	batch := make([]Event, 0, len(w.pending))
	for path, op := range w.pending {
		batch = append(batch, Event{Path: path, Op: op})
	}
	clear(w.pending)
	slices.SortFunc(batch, func(a, b Event) int { return strings.Compare(a.Path, b.Path) })
	return batch
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	return w.fsw.Close()
}

// convertOp converts fsnotify.Op to Op. Chmod-only events are dropped.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}
