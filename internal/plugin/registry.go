package plugin

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dshills/keyed/internal/logging"
)

// CommandSync keeps the command registry in step with plugin lifecycle.
type CommandSync interface {
	// RegisterPluginCommands registers every command the plugin declares.
	RegisterPluginCommands(p *Plugin)
	// UnregisterPluginCommands removes every command owned by pluginID.
	UnregisterPluginCommands(pluginID string)
}

// EventType is the type of registry event.
type EventType int

const (
	// EventRegistered is emitted when a plugin is registered or replaced.
	EventRegistered EventType = iota
	// EventUnregistered is emitted when a plugin is removed.
	EventUnregistered
	// EventEnabled is emitted when a plugin is enabled.
	EventEnabled
	// EventDisabled is emitted when a plugin is disabled.
	EventDisabled
	// EventStatusChanged is emitted when a plugin's status changes.
	EventStatusChanged
	// EventCleared is emitted after Clear.
	EventCleared
)

// String returns a string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventUnregistered:
		return "unregistered"
	case EventEnabled:
		return "enabled"
	case EventDisabled:
		return "disabled"
	case EventStatusChanged:
		return "status"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event describes a registry change.
type Event struct {
	Type     EventType
	PluginID string
	Status   Status
}

// EventHandler handles registry events.
// Handlers run outside the registry lock; panics are recovered.
type EventHandler func(event Event)

// Info is a read-only summary of a registered plugin.
type Info struct {
	ID      string
	Name    string
	Version string
	Source  string
	Enabled bool
	Status  Status
}

type registration struct {
	plugin *Plugin
	gen    uint64
	cancel context.CancelFunc
}

// Registry is the process-wide store of registered plugins, their enabled
// flag, and their load status.
type Registry struct {
	mu sync.RWMutex

	plugins map[string]*registration
	status  map[string]Status
	enabled map[string]bool

	// Registration order (for deterministic iteration)
	order []string

	// gen stamps each registration so a late startup hook from a replaced
	// plugin cannot overwrite the status of its successor.
	gen uint64

	handlers []EventHandler

	commands CommandSync
	logger   *logging.Logger
	now      func() time.Time
	baseCtx  context.Context

	hooks sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithCommandSync sets the command registry binding.
func WithCommandSync(cs CommandSync) Option {
	return func(r *Registry) {
		r.commands = cs
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithClock overrides the time source used for LoadedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithContext sets the parent context of startup hooks.
func WithContext(ctx context.Context) Option {
	return func(r *Registry) {
		r.baseCtx = ctx
	}
}

// NewRegistry creates an empty plugin registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		plugins: make(map[string]*registration),
		status:  make(map[string]Status),
		enabled: make(map[string]bool),
		now:     time.Now,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNull(r.logger).WithComponent("plugins")
	return r
}

// SetCommandSync sets the command registry binding after construction.
func (r *Registry) SetCommandSync(cs CommandSync) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = cs
}

// Register adds p, replacing any plugin with the same id. The plugin is
// enabled and marked loaded, its commands are registered, and OnStartup is
// started in the background. A failing OnStartup sets the status to error;
// the plugin and its commands stay registered.
func (r *Registry) Register(p *Plugin) error {
	if p == nil || p.Manifest == nil {
		return ErrNilPlugin
	}
	id := p.Manifest.ID

	r.mu.Lock()
	prev, replaced := r.plugins[id]
	if replaced && prev.cancel != nil {
		prev.cancel()
	}
	r.gen++
	gen := r.gen
	ctx, cancel := context.WithCancel(r.baseCtx)
	r.plugins[id] = &registration{plugin: p, gen: gen, cancel: cancel}
	if !replaced {
		r.order = append(r.order, id)
	}
	r.enabled[id] = true
	st := Loaded(r.now())
	r.status[id] = st
	commands := r.commands
	r.mu.Unlock()

	if commands != nil {
		if replaced {
			commands.UnregisterPluginCommands(id)
		}
		commands.RegisterPluginCommands(p)
	}

	r.logger.WithField("plugin", id).Debug("registered (replaced=%t)", replaced)
	r.emit(Event{Type: EventRegistered, PluginID: id, Status: st})

	if p.OnStartup != nil {
		r.hooks.Add(1)
		go r.runStartup(ctx, id, gen, p.OnStartup)
	}
	return nil
}

func (r *Registry) runStartup(ctx context.Context, id string, gen uint64, hook Hook) {
	defer r.hooks.Done()

	err := runHook(ctx, hook)
	if err == nil {
		return
	}

	lerr := &LifecycleError{PluginID: id, Hook: HookStartup, Err: err}
	r.logger.WithField("plugin", id).Error("%v", lerr)

	r.mu.Lock()
	reg, ok := r.plugins[id]
	current := ok && reg.gen == gen
	st := Failed(err.Error())
	if current {
		r.status[id] = st
	}
	r.mu.Unlock()

	if current {
		r.emit(Event{Type: EventStatusChanged, PluginID: id, Status: st})
	}
}

// Unregister runs the plugin's OnUnload hook, removes the plugin, and
// removes every command it owns. Hook failures are logged, not returned.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	r.mu.RLock()
	reg, ok := r.plugins[id]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("plugin %q: %w", id, ErrPluginNotFound)
	}

	r.unload(ctx, reg.plugin)

	// A Register during OnUnload replaced the plugin; the successor keeps
	// its registration and its commands.
	r.mu.Lock()
	cur, ok := r.plugins[id]
	removed := ok && cur.gen == reg.gen
	if removed {
		if cur.cancel != nil {
			cur.cancel()
		}
		delete(r.plugins, id)
		delete(r.status, id)
		delete(r.enabled, id)
		r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	}
	commands := r.commands
	r.mu.Unlock()

	if !removed {
		r.logger.WithField("plugin", id).Debug("replaced during unload; keeping successor")
		return nil
	}
	if commands != nil {
		commands.UnregisterPluginCommands(id)
	}

	r.emit(Event{Type: EventUnregistered, PluginID: id})
	return nil
}

func (r *Registry) unload(ctx context.Context, p *Plugin) {
	if p.OnUnload == nil {
		return
	}
	if err := runHook(ctx, p.OnUnload); err != nil {
		lerr := &LifecycleError{PluginID: p.ID(), Hook: HookUnload, Err: err}
		r.logger.WithField("plugin", p.ID()).Error("%v", lerr)
	}
}

// Enable makes a plugin's commands visible again.
func (r *Registry) Enable(id string) error {
	return r.setEnabled(id, true)
}

// Disable hides a plugin's commands without unregistering them.
func (r *Registry) Disable(id string) error {
	return r.setEnabled(id, false)
}

func (r *Registry) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	if _, ok := r.plugins[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", id, ErrPluginNotFound)
	}
	changed := r.enabled[id] != enabled
	r.enabled[id] = enabled
	r.mu.Unlock()

	if changed {
		typ := EventDisabled
		if enabled {
			typ = EventEnabled
		}
		r.emit(Event{Type: typ, PluginID: id})
	}
	return nil
}

// IsEnabled reports whether id is registered and enabled.
func (r *Registry) IsEnabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[id]
}

// SetStatus records a status for a registered plugin. Unknown ids are
// ignored.
func (r *Registry) SetStatus(id string, st Status) {
	r.mu.Lock()
	if _, ok := r.plugins[id]; !ok {
		r.mu.Unlock()
		return
	}
	r.status[id] = st
	r.mu.Unlock()

	r.emit(Event{Type: EventStatusChanged, PluginID: id, Status: st})
}

// Status returns the recorded status of a plugin.
func (r *Registry) Status(id string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.status[id]
	return st, ok
}

// Get returns a plugin by id.
func (r *Registry) Get(id string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.plugins[id]
	if !ok {
		return nil, false
	}
	return reg.plugin, true
}

// All returns registered plugins in registration order.
func (r *Registry) All() []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Plugin, 0, len(r.order))
	for _, id := range r.order {
		if reg, ok := r.plugins[id]; ok {
			result = append(result, reg.plugin)
		}
	}
	return result
}

// Infos summarizes every registered plugin in registration order.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		reg, ok := r.plugins[id]
		if !ok {
			continue
		}
		m := reg.plugin.Manifest
		result = append(result, Info{
			ID:      id,
			Name:    m.Name,
			Version: m.Version,
			Source:  reg.plugin.Source,
			Enabled: r.enabled[id],
			Status:  r.status[id],
		})
	}
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Clear runs OnUnload for every plugin, best-effort, then resets the
// registry to empty.
func (r *Registry) Clear(ctx context.Context) {
	plugins := r.All()
	for _, p := range plugins {
		r.unload(ctx, p)
	}

	r.mu.Lock()
	for _, reg := range r.plugins {
		if reg.cancel != nil {
			reg.cancel()
		}
	}
	r.plugins = make(map[string]*registration)
	r.status = make(map[string]Status)
	r.enabled = make(map[string]bool)
	r.order = nil
	commands := r.commands
	r.mu.Unlock()

	if commands != nil {
		for _, p := range plugins {
			commands.UnregisterPluginCommands(p.ID())
		}
	}

	r.emit(Event{Type: EventCleared})
}

// Wait blocks until every running startup hook has returned.
func (r *Registry) Wait() {
	r.hooks.Wait()
}

// Subscribe adds an event handler.
// Returns an unsubscribe function to remove the handler.
func (r *Registry) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	r.mu.Lock()
	r.handlers = append(r.handlers, handler)
	index := len(r.handlers) - 1
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		// Set to nil instead of removing to avoid index shifting issues
		if index < len(r.handlers) {
			r.handlers[index] = nil
		}
	}
}

// emit sends an event to all handlers outside the lock.
func (r *Registry) emit(event Event) {
	r.mu.RLock()
	handlers := slices.Clone(r.handlers)
	r.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Warn("event handler panic: %v", rec)
				}
			}()
			handler(event)
		}()
	}
}

// runHook calls hook, converting a panic into an error.
func runHook(ctx context.Context, hook Hook) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return hook(ctx)
}
