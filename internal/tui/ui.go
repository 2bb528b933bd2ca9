package tui

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/keyed/internal/app"
	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/inline"
	"github.com/dshills/keyed/internal/palette"
	"github.com/dshills/keyed/internal/platform"
	"github.com/dshills/keyed/internal/plugin"
)

// signal is posted to the event loop as interrupt data.
type signal int

const (
	signalRefresh signal = iota
	signalQuit
)

type notice struct {
	message  string
	severity platform.Severity
}

// row is one line of the result list: a category header or an item.
type row struct {
	header string
	item   int
}

// UI is the terminal palette.
type UI struct {
	launcher *app.Launcher
	screen   tcell.Screen

	mu        sync.Mutex
	ctx       context.Context
	query     []rune
	items     []command.Entry
	inlineDoc *command.Document
	rows      []row
	cursor    *palette.Cursor
	offset    int
	view      *command.Document
	viewTitle string
	status    notice
}

// New creates a palette drawing on screen.
func New(l *app.Launcher, screen tcell.Screen) *UI {
	return &UI{
		launcher: l,
		screen:   screen,
		ctx:      context.Background(),
		cursor:   palette.NewCursor(0),
	}
}

// Run initializes the screen and processes events until the user quits
// or ctx is done.
func (u *UI) Run(ctx context.Context) error {
	if err := u.screen.Init(); err != nil {
		return err
	}
	defer u.screen.Fini()

	u.mu.Lock()
	u.ctx = ctx
	u.mu.Unlock()

	detach := u.attach()
	defer detach()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			u.post(signalQuit)
		case <-stop:
		}
	}()

	u.refresh(true)
	u.draw()
	for {
		ev := u.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if u.handleEvent(ev) {
			return nil
		}
		u.draw()
	}
}

// attach subscribes to everything that changes the list.
func (u *UI) attach() func() {
	l := u.launcher
	unsubs := []func(){
		l.Commands().Subscribe(func(uint64) { u.post(signalRefresh) }),
		l.Plugins().Subscribe(func(plugin.Event) { u.post(signalRefresh) }),
		l.Inline().Subscribe(func(inline.Result) { u.post(signalRefresh) }),
	}
	l.SetNotifySink(u.Notify)
	return func() {
		l.SetNotifySink(nil)
		for _, fn := range unsubs {
			fn()
		}
	}
}

// Notify shows message on the status line. It is safe to call from any
// goroutine.
func (u *UI) Notify(message string, severity platform.Severity) {
	u.post(notice{message: message, severity: severity})
}

func (u *UI) post(data any) {
	_ = u.screen.PostEvent(tcell.NewEventInterrupt(data)) // queue may be full
}

// handleEvent applies ev and reports whether the UI should exit.
func (u *UI) handleEvent(ev tcell.Event) bool {
	switch e := ev.(type) {
	case *tcell.EventKey:
		return u.handleKey(e)
	case *tcell.EventResize:
		u.screen.Sync()
	case *tcell.EventInterrupt:
		switch data := e.Data().(type) {
		case signal:
			if data == signalQuit {
				return true
			}
			u.refresh(false)
		case notice:
			u.mu.Lock()
			u.status = data
			u.mu.Unlock()
		}
	}
	return false
}

func (u *UI) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC {
		return true
	}

	u.mu.Lock()
	inView := u.view != nil
	u.mu.Unlock()
	if inView {
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyBackspace, tcell.KeyBackspace2:
			u.closeView()
		}
		return false
	}

	switch ev.Key() {
	case tcell.KeyEscape:
		if len(u.query) == 0 {
			return true
		}
		u.setQuery(nil)
	case tcell.KeyEnter:
		u.activate()
	case tcell.KeyUp:
		u.moveCursor((*palette.Cursor).Up)
	case tcell.KeyDown:
		u.moveCursor((*palette.Cursor).Down)
	case tcell.KeyPgUp:
		u.moveCursor((*palette.Cursor).PageUp)
	case tcell.KeyPgDn:
		u.moveCursor((*palette.Cursor).PageDown)
	case tcell.KeyHome:
		u.moveCursor((*palette.Cursor).Home)
	case tcell.KeyEnd:
		u.moveCursor((*palette.Cursor).End)
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(u.query); n > 0 {
			u.setQuery(u.query[:n-1])
		}
	case tcell.KeyCtrlU:
		u.setQuery(nil)
	case tcell.KeyRune:
		u.setQuery(append(slices.Clone(u.query), ev.Rune()))
	}
	return false
}

func (u *UI) moveCursor(move func(*palette.Cursor)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	move(u.cursor)
}

// setQuery replaces the query, starts inline evaluation and rebuilds the
// list with the selection reset.
func (u *UI) setQuery(q []rune) {
	u.mu.Lock()
	u.query = slices.Clone(q)
	ctx := u.ctx
	u.mu.Unlock()

	u.launcher.Inline().Submit(ctx, string(q))
	u.refresh(true)
}

// refresh rebuilds the list for the current query. The selection is reset
// to the top when reset is set, otherwise it keeps its index.
func (u *UI) refresh(reset bool) {
	l := u.launcher

	u.mu.Lock()
	q := string(u.query)
	u.mu.Unlock()

	matches := l.Palette().Results(q)
	res := l.Inline().Current()

	var items []command.Entry
	var rows []row
	var doc *command.Document
	if res.Active() && res.Query == q {
		doc = res.Document
		rows = append(rows, row{header: "Inline"}, row{item: 0})
		items = append(items, *res.Entry)
		matches = slices.DeleteFunc(matches, func(e command.Entry) bool { return e.ID == res.Entry.ID })
	}
	for _, g := range palette.GroupByCategory(matches) {
		rows = append(rows, row{header: g.Category})
		for _, e := range g.Entries {
			rows = append(rows, row{item: len(items)})
			items = append(items, e)
		}
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.items = items
	u.rows = rows
	u.inlineDoc = doc
	idx := u.cursor.Index()
	u.cursor.Reset(len(items))
	if reset {
		u.offset = 0
	} else {
		u.cursor.Set(idx)
	}
}

func (u *UI) selected() (command.Entry, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	i := u.cursor.Index()
	if i < 0 || i >= len(u.items) {
		return command.Entry{}, false
	}
	return u.items[i], true
}

// activate dispatches the selected entry. Views and inline results replace
// the list; no-view commands report on the status line.
func (u *UI) activate() {
	entry, ok := u.selected()
	if !ok {
		return
	}
	u.mu.Lock()
	ctx := u.ctx
	if entry.Mode() == plugin.ModeInline {
		ctx = command.WithQuery(ctx, string(u.query))
	}
	u.mu.Unlock()

	title := entry.Title
	if title == "" {
		title = entry.ID
	}
	out := u.launcher.Dispatcher().Activate(ctx, entry)

	u.mu.Lock()
	defer u.mu.Unlock()
	switch {
	case out.Err != nil:
		u.status = notice{fmt.Sprintf("%s failed: %v", title, out.Err), platform.SeverityError}
	case out.Document != nil:
		u.view = out.Document
		u.viewTitle = title
	case out.Done != nil:
		u.status = notice{"Running " + title, platform.SeverityInfo}
		go func() {
			if err := <-out.Done; err == nil {
				u.Notify(title+" done", platform.SeveritySuccess)
			}
		}()
	}
}

func (u *UI) closeView() {
	u.mu.Lock()
	u.view = nil
	u.viewTitle = ""
	u.mu.Unlock()
	u.launcher.Dispatcher().Back()
}
