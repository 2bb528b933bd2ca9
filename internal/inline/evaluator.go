// Package inline evaluates inline commands against the live query.
//
// Every query change starts a new evaluation. Inline commands are asked in
// registration order whether they claim the query, and the first one that
// does becomes the active inline command. A newer evaluation cancels the
// one in flight, and a superseded evaluation never replaces the result of
// a newer one.
package inline

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/logging"
)

// EntrySource supplies registered entries in registration order.
type EntrySource interface {
	Entries() []command.Entry
}

// EnabledChecker reports whether a plugin is enabled.
type EnabledChecker interface {
	IsEnabled(pluginID string) bool
}

// Environment builds the execution context for rendering.
type Environment interface {
	Get() execctx.Context
}

// Result is the outcome of one evaluation.
type Result struct {
	Query string
	// Entry is the active inline command, nil when none activated.
	Entry *command.Entry
	// Document is the rendered component when an Environment is set.
	Document *command.Document
	// Err is the execute or render failure of the active command.
	Err error
	// Generation orders results; higher is newer.
	Generation uint64
}

// Active reports whether an inline command activated.
func (r Result) Active() bool {
	return r.Entry != nil
}

// Handler receives applied results.
type Handler func(Result)

// Evaluator tracks the active inline command.
type Evaluator struct {
	source  EntrySource
	enabled EnabledChecker
	env     Environment
	logger  *logging.Logger

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	current  Result
	handlers map[int]Handler
	nextID   int

	pending sync.WaitGroup
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithEnabledChecker skips inline commands of disabled plugins.
func WithEnabledChecker(ec EnabledChecker) Option {
	return func(e *Evaluator) { e.enabled = ec }
}

// WithEnvironment renders the active command's component with the
// context built by env.
func WithEnvironment(env Environment) Option {
	return func(e *Evaluator) { e.env = env }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// New creates an evaluator over source.
func New(source EntrySource, opts ...Option) *Evaluator {
	e := &Evaluator{
		source:   source,
		handlers: make(map[int]Handler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNull(e.logger).WithComponent("inline")
	return e
}

// Evaluate runs an evaluation for query and applies its result unless a
// newer evaluation started meanwhile. It returns the result and whether it
// was applied. An empty query clears the active command without asking
// any candidate.
func (e *Evaluator) Evaluate(ctx context.Context, query string) (Result, bool) {
	ctx, gen, cancel := e.begin(ctx)
	defer cancel()
	return e.run(ctx, query, gen)
}

// Submit runs an evaluation in the background. Ordering is fixed when
// Submit is called, so the last submitted query wins regardless of how the
// goroutines are scheduled. Applied results reach the handlers registered
// with Subscribe.
func (e *Evaluator) Submit(ctx context.Context, query string) {
	ctx, gen, cancel := e.begin(ctx)
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		defer cancel()
		e.run(ctx, query, gen)
	}()
}

// begin supersedes the running evaluation and reserves a generation.
func (e *Evaluator) begin(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	return ctx, e.gen, cancel
}

func (e *Evaluator) run(ctx context.Context, query string, gen uint64) (Result, bool) {
	res := Result{Query: query, Generation: gen}
	if query != "" {
		var ok bool
		res, ok = e.scan(ctx, query, gen)
		if !ok {
			return res, false
		}
	}
	return res, e.apply(res)
}

// Wait blocks until every submitted evaluation has finished.
func (e *Evaluator) Wait() {
	e.pending.Wait()
}

func (e *Evaluator) scan(ctx context.Context, query string, gen uint64) (Result, bool) {
	res := Result{Query: query, Generation: gen}
	for _, entry := range e.candidates() {
		if ctx.Err() != nil {
			return res, false
		}
		ic := entry.Execute.(command.InlineCommand)
		if !e.activate(ctx, entry, ic, query) {
			continue
		}
		res.Entry = &entry
		if e.env != nil {
			res.Document, res.Err = e.render(ctx, entry, ic, query)
		}
		return res, ctx.Err() == nil
	}
	return res, ctx.Err() == nil
}

func (e *Evaluator) candidates() []command.Entry {
	if e.source == nil {
		return nil
	}
	var result []command.Entry
	for _, entry := range e.source.Entries() {
		if _, ok := entry.Execute.(command.InlineCommand); !ok {
			continue
		}
		if entry.PluginID != "" && e.enabled != nil && !e.enabled.IsEnabled(entry.PluginID) {
			continue
		}
		result = append(result, entry)
	}
	return result
}

// activate asks one candidate. A panic counts as false.
func (e *Evaluator) activate(ctx context.Context, entry command.Entry, ic command.InlineCommand, query string) (active bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithField("entry", entry.ID).Warn("shouldActivate panicked: %v", r)
			active = false
		}
	}()
	return ic.ShouldActivate(ctx, query)
}

func (e *Evaluator) render(ctx context.Context, entry command.Entry, ic command.InlineCommand, query string) (doc *command.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &command.PanicError{Value: r}
		}
		if err != nil && ctx.Err() == nil {
			e.logger.WithField("entry", entry.ID).Error("render inline result: %v", err)
		}
	}()

	ctx = command.WithQuery(ctx, query)
	comp, err := ic.Execute(ctx)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, fmt.Errorf("inline command %s returned no component", entry.ID)
	}
	return comp.Render(ctx, e.env.Get())
}

func (e *Evaluator) apply(res Result) bool {
	e.mu.Lock()
	if res.Generation != e.gen {
		e.mu.Unlock()
		return false
	}
	e.current = res
	handlers := make([]Handler, 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		e.safeCall(h, res)
	}
	return true
}

func (e *Evaluator) safeCall(h Handler, res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("inline handler panicked: %v", r)
		}
	}()
	h(res)
}

// Current returns the last applied result.
func (e *Evaluator) Current() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Active returns the active inline command, or nil.
func (e *Evaluator) Active() *command.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current.Entry == nil {
		return nil
	}
	entry := *e.current.Entry
	return &entry
}

// Subscribe registers h for applied results and returns a function that
// removes it.
func (e *Evaluator) Subscribe(h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.handlers[id] = h
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers, id)
	}
}

// Close cancels the evaluation in flight and waits for submitted ones.
func (e *Evaluator) Close() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()
	e.pending.Wait()
}
