package command

import (
	"slices"
	"sync"

	"github.com/dshills/keyed/internal/logging"
)

// Observer is called with the registry version after every change.
type Observer func(version uint64)

// Registry is the process-wide store of registered commands.
//
// Every mutation that changes the mapping bumps the version after the
// mapping is updated, then notifies observers outside the lock. Overwriting
// an id keeps its original position in iteration order.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Registered
	order    []string
	version  uint64

	observers map[int]Observer
	nextObs   int

	logger *logging.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger.
func WithRegistryLogger(l *logging.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty registry at version 0.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		commands:  make(map[string]Registered),
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNull(r.logger).WithComponent("commands")
	return r
}

// Register inserts or overwrites cmd and returns its id. An entry without
// an id takes the registry id.
func (r *Registry) Register(cmd Registered) (string, error) {
	if cmd.CommandName == "" {
		return "", ErrEmptyCommandName
	}
	if cmd.Entry.Execute == nil {
		return "", ErrNilExecutor
	}
	if cmd.Source == "" {
		cmd.Source = SourcePlugin
		if cmd.PluginID == "" {
			cmd.Source = SourceBuiltin
		}
	}
	id := cmd.ID()
	if cmd.Entry.ID == "" {
		cmd.Entry.ID = id
	}
	if cmd.Entry.CommandName == "" {
		cmd.Entry.CommandName = cmd.CommandName
	}
	cmd.Entry.PluginID = cmd.PluginID
	cmd.Entry.Keywords = slices.Clone(cmd.Entry.Keywords)

	r.mu.Lock()
	if _, exists := r.commands[id]; !exists {
		r.order = append(r.order, id)
	}
	r.commands[id] = cmd
	r.version++
	v := r.version
	r.mu.Unlock()

	r.logger.Debug("registered %s (%s)", id, cmd.Entry.Mode())
	r.notify(v)
	return id, nil
}

// Unregister removes id. It reports whether a command was removed; the
// version only changes when one was.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	if _, ok := r.commands[id]; !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.commands, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	r.version++
	v := r.version
	r.mu.Unlock()

	r.logger.Debug("unregistered %s", id)
	r.notify(v)
	return true
}

// UnregisterPlugin removes every command owned by pluginID and returns how
// many were removed. The version is bumped once, and only if any were.
func (r *Registry) UnregisterPlugin(pluginID string) int {
	if pluginID == "" {
		return 0
	}

	r.mu.Lock()
	removed := 0
	for id, cmd := range r.commands {
		if cmd.PluginID == pluginID {
			delete(r.commands, id)
			removed++
		}
	}
	if removed == 0 {
		r.mu.Unlock()
		return 0
	}
	r.order = slices.DeleteFunc(r.order, func(id string) bool {
		_, ok := r.commands[id]
		return !ok
	})
	r.version++
	v := r.version
	r.mu.Unlock()

	r.logger.Debug("unregistered %d command(s) of %s", removed, pluginID)
	r.notify(v)
	return removed
}

// Get returns the command registered under id.
func (r *Registry) Get(id string) (Registered, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

// All returns every command in registration order.
func (r *Registry) All() []Registered {
	return r.filter(func(Registered) bool { return true })
}

// BySource returns the commands with the given source.
func (r *Registry) BySource(src Source) []Registered {
	return r.filter(func(c Registered) bool { return c.Source == src })
}

// ByPlugin returns the commands owned by pluginID.
func (r *Registry) ByPlugin(pluginID string) []Registered {
	return r.filter(func(c Registered) bool { return c.PluginID == pluginID })
}

// Entries returns the launcher entries of every command in registration
// order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.commands[id].Entry)
	}
	return out
}

// FindEntry returns the entry whose Entry.ID or registry id is id.
func (r *Registry) FindEntry(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cmd, ok := r.commands[id]; ok {
		return cmd.Entry, true
	}
	for _, key := range r.order {
		if e := r.commands[key].Entry; e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

func (r *Registry) filter(keep func(Registered) bool) []Registered {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Registered
	for _, id := range r.order {
		if cmd := r.commands[id]; keep(cmd) {
			out = append(out, cmd)
		}
	}
	return out
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Version returns the change counter.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Subscribe registers an observer and returns a function that removes it.
func (r *Registry) Subscribe(fn Observer) func() {
	r.mu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.observers, id)
	}
}

func (r *Registry) notify(version uint64) {
	r.mu.RLock()
	ids := make([]int, 0, len(r.observers))
	for id := range r.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, r.observers[id])
	}
	r.mu.RUnlock()

	for _, fn := range observers {
		func() {
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("observer panic: %v", p)
				}
			}()
			fn(version)
		}()
	}
}
