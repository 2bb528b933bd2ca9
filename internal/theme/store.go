package theme

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/keyed/internal/logging"
	"github.com/dshills/keyed/internal/watch"
)

// ChangeHandler is called with the new current theme.
type ChangeHandler func(Snapshot)

// Store holds the built-in themes plus any user themes from a directory.
type Store struct {
	mu       sync.RWMutex
	themes   map[string]Snapshot
	order    []string
	current  string
	dir      string
	handlers []ChangeHandler
	logger   *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDir sets the user theme directory.
func WithDir(dir string) Option {
	return func(s *Store) { s.dir = dir }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store holding the built-in themes with dark selected.
func NewStore(opts ...Option) *Store {
	s := &Store{current: DefaultID}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNull(s.logger).WithComponent("theme")
	s.reset(nil)
	return s
}

func (s *Store) reset(user []Snapshot) {
	s.themes = make(map[string]Snapshot)
	s.order = s.order[:0]
	for _, t := range append(builtins(), user...) {
		if _, exists := s.themes[t.ID]; !exists {
			s.order = append(s.order, t.ID)
		}
		s.themes[t.ID] = t
	}
}

// Dir returns the user theme directory.
func (s *Store) Dir() string {
	return s.dir
}

// Load re-reads the user theme directory. Invalid files are skipped and
// reported in the returned error; valid ones are still loaded. When the
// current theme disappears the store falls back to dark.
func (s *Store) Load() error {
	user, err := s.readDir()

	s.mu.Lock()
	prev := s.themes[s.current]
	s.reset(user)
	if _, ok := s.themes[s.current]; !ok {
		s.logger.Warn("theme %q removed, falling back to %q", s.current, DefaultID)
		s.current = DefaultID
	}
	cur := s.themes[s.current]
	handlers := slices.Clone(s.handlers)
	s.mu.Unlock()

	if !sameTheme(prev, cur) {
		s.notify(handlers, cur)
	}
	return err
}

func (s *Store) readDir() ([]Snapshot, error) {
	if s.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var themes []Snapshot
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t, err := Parse(path, data)
		if err != nil {
			s.logger.Warn("%v", err)
			errs = append(errs, err)
			continue
		}
		themes = append(themes, t)
	}
	return themes, errors.Join(errs...)
}

// Current returns a snapshot of the selected theme.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.themes[s.current].Clone()
}

// Get returns a theme by id.
func (s *Store) Get(id string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.themes[id]
	return t.Clone(), ok
}

// List returns all themes, built-ins first.
func (s *Store) List() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Snapshot, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.themes[id].Clone())
	}
	return out
}

// Switch selects a theme by id.
func (s *Store) Switch(id string) error {
	s.mu.Lock()
	t, ok := s.themes[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrThemeNotFound, id)
	}
	changed := s.current != id
	s.current = id
	handlers := slices.Clone(s.handlers)
	s.mu.Unlock()

	if changed {
		s.notify(handlers, t.Clone())
	}
	return nil
}

// OnChange registers a handler for current-theme changes and returns a
// function that removes it.
func (s *Store) OnChange(h ChangeHandler) func() {
	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	idx := len(s.handlers) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.handlers) {
			s.handlers[idx] = nil
		}
	}
}

func (s *Store) notify(handlers []ChangeHandler, t Snapshot) {
	for _, h := range handlers {
		if h == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("theme change handler panic: %v", r)
				}
			}()
			h(t.Clone())
		}()
	}
}

// Watch reloads user themes whenever a *.json file in the directory
// changes. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	w, err := watch.New(s.logger, watch.WithExtensions(".json"))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(s.dir); err != nil {
		return err
	}

	err = w.Run(ctx, func(events []watch.Event) {
		s.logger.Debug("%d theme file(s) changed", len(events))
		if err := s.Load(); err != nil {
			s.logger.Warn("reload themes: %v", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func sameTheme(a, b Snapshot) bool {
	if a.ID != b.ID || a.Name != b.Name || a.Type != b.Type || len(a.Colors) != len(b.Colors) {
		return false
	}
	for k, v := range a.Colors {
		if b.Colors[k] != v {
			return false
		}
	}
	return true
}
