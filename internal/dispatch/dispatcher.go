package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/logging"
	"github.com/dshills/keyed/internal/platform"
)

// Environment builds the execution context passed to every command.
type Environment interface {
	Get() execctx.Context
}

// Navigator receives route changes.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(route string) { f(route) }

// Outcome describes one activation.
type Outcome struct {
	InvocationID string
	Entry        command.Entry
	State        State
	Route        string
	// Document is the rendered view or inline component.
	Document *command.Document
	// Err is the view or inline failure. No-view failures are logged,
	// notified and delivered on Done.
	Err error
	// Done receives the no-view result once the command returns. It is
	// nil for other modes.
	Done <-chan error
}

// Dispatcher activates entries.
type Dispatcher struct {
	env             Environment
	notifier        platform.Notifications
	navigator       Navigator
	notifyOnFailure bool
	metrics         *Metrics
	logger          *logging.Logger
	newID           func() string

	mu    sync.RWMutex
	state State
	route string

	running sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNotifier sets where execution failures are shown.
func WithNotifier(n platform.Notifications) Option {
	return func(d *Dispatcher) { d.notifier = n }
}

// WithNavigator sets the route change receiver.
func WithNavigator(n Navigator) Option {
	return func(d *Dispatcher) { d.navigator = n }
}

// WithNotifyOnFailure turns failure notifications on or off.
func WithNotifyOnFailure(on bool) Option {
	return func(d *Dispatcher) { d.notifyOnFailure = on }
}

// WithMetrics records every activation in m.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithIDGenerator overrides invocation id generation.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) { d.newID = fn }
}

// New creates a dispatcher. env must not be nil.
func New(env Environment, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		env:             env,
		notifyOnFailure: true,
		newID:           uuid.NewString,
		route:           RootRoute,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.OrNull(d.logger).WithComponent("dispatch")
	return d
}

// Activate activates entry according to its mode.
func (d *Dispatcher) Activate(ctx context.Context, entry command.Entry) Outcome {
	out := Outcome{InvocationID: d.newID(), Entry: entry}
	log := d.logger.WithFields(map[string]any{"entry": entry.ID, "invocation": out.InvocationID})

	switch exec := entry.Execute.(type) {
	case command.NoViewCommand:
		out.State = StateNoView
		d.setState(StateNoView, "")
		log.Debug("dispatching no-view command")
		done := make(chan error, 1)
		out.Done = done
		d.running.Add(1)
		go d.runNoView(ctx, entry, exec, log, done)

	case command.ViewCommand:
		out.State = StateView
		out.Route = ViewRoute(entry)
		d.setState(StateView, out.Route)
		if d.navigator != nil {
			d.navigator.Navigate(out.Route)
		}
		log.Debug("navigating to %s", out.Route)
		out.Document, out.Err = d.render(ctx, entry, exec.Execute)

	case command.InlineCommand:
		out.State = StateInline
		d.setState(StateInline, "")
		out.Document, out.Err = d.render(ctx, entry, exec.Execute)

	default:
		out.Err = fmt.Errorf("%s: %w", entry.ID, ErrNoExecutor)
	}

	if out.Err != nil {
		d.failed(log, entry, out.Err)
	}
	return out
}

func (d *Dispatcher) runNoView(ctx context.Context, entry command.Entry, exec command.NoViewCommand, log *logging.Logger, done chan<- error) {
	defer d.running.Done()
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &command.PanicError{Value: r}
				if d.metrics != nil {
					d.metrics.RecordPanic(entry.ID)
				}
			}
		}()
		return exec.Execute(ctx, d.env.Get())
	}()

	if d.metrics != nil {
		d.metrics.Record(entry.ID, time.Since(start), err)
	}
	if err != nil {
		d.failed(log, entry, err)
	} else {
		log.Debug("no-view command finished in %s", time.Since(start))
	}
	done <- err
}

func (d *Dispatcher) render(ctx context.Context, entry command.Entry, load func(context.Context) (command.Component, error)) (doc *command.Document, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &command.PanicError{Value: r}
			if d.metrics != nil {
				d.metrics.RecordPanic(entry.ID)
			}
		}
		if d.metrics != nil {
			d.metrics.Record(entry.ID, time.Since(start), err)
		}
	}()

	comp, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, fmt.Errorf("%s: %w", entry.ID, ErrNoComponent)
	}
	return comp.Render(ctx, d.env.Get())
}

func (d *Dispatcher) failed(log *logging.Logger, entry command.Entry, err error) {
	if errors.Is(err, context.Canceled) {
		log.Debug("cancelled: %v", err)
		return
	}
	log.Error("execution failed: %v", err)
	if d.notifyOnFailure && d.notifier != nil {
		title := entry.Title
		if title == "" {
			title = entry.ID
		}
		d.notifier.Show(fmt.Sprintf("%s failed: %v", title, err), platform.SeverityError)
	}
}

func (d *Dispatcher) setState(s State, route string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
	if route != "" {
		d.route = route
	}
}

// Back returns to the result list.
func (d *Dispatcher) Back() {
	d.mu.Lock()
	d.state = StateIdle
	changed := d.route != RootRoute
	d.route = RootRoute
	d.mu.Unlock()

	if changed && d.navigator != nil {
		d.navigator.Navigate(RootRoute)
	}
}

// State returns the presentation state.
func (d *Dispatcher) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Route returns the current route.
func (d *Dispatcher) Route() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.route
}

// Wait blocks until every started no-view command has finished.
func (d *Dispatcher) Wait() {
	d.running.Wait()
}
