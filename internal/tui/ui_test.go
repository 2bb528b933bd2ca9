package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keyed/internal/app"
	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/config"
	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/logging"
	"github.com/dshills/keyed/internal/platform"
)

type fakeHost struct {
	mu  sync.Mutex
	ran []string
}

func (h *fakeHost) Execute(_ context.Context, program string, args ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ran = append(h.ran, strings.Join(append([]string{program}, args...), " "))
	return nil
}

func (h *fakeHost) Show(string, platform.Severity) {}

func (h *fakeHost) commands() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.ran...)
}

func newLauncher(t *testing.T, h *fakeHost) *app.Launcher {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.Platform = platform.Linux
	cfg.Plugins.Watch = false

	l, err := app.New(app.Options{
		Config: cfg,
		Logger: logging.Null(),
		API:    &platform.API{Shell: h, Notifications: h},
	})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	require.NoError(t, l.Start(context.Background()))
	l.Plugins().Wait()
	return l
}

func newUI(t *testing.T) (*UI, tcell.SimulationScreen, *fakeHost) {
	t.Helper()
	h := &fakeHost{}
	l := newLauncher(t, h)

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(60, 24)

	u := New(l, screen)
	u.refresh(true)
	u.draw()
	return u, screen, h
}

// line returns row y of the screen with trailing blanks removed.
func line(s tcell.SimulationScreen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, width := s.GetContent(x, y)
		if width == 0 {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func contents(s tcell.SimulationScreen) string {
	_, h := s.Size()
	lines := make([]string, h)
	for y := range lines {
		lines[y] = line(s, y)
	}
	return strings.Join(lines, "\n")
}

func typeText(u *UI, text string) {
	for _, r := range text {
		u.handleEvent(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	u.draw()
}

func press(u *UI, key tcell.Key) bool {
	quit := u.handleEvent(tcell.NewEventKey(key, 0, tcell.ModNone))
	u.draw()
	return quit
}

// awaitNotice applies queued events until a notice arrives.
func awaitNotice(t *testing.T, u *UI, s tcell.SimulationScreen) {
	t.Helper()
	done := make(chan struct{})
	defer close(done)
	events := make(chan tcell.Event)
	go func() {
		for {
			ev := s.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			u.handleEvent(ev)
			u.draw()
			if ie, ok := ev.(*tcell.EventInterrupt); ok {
				if _, ok := ie.Data().(notice); ok {
					return
				}
			}
		case <-timeout:
			t.Fatal("no notice posted")
		}
	}
}

func TestInitialList(t *testing.T) {
	u, screen, _ := newUI(t)

	assert.Equal(t, "> ", line(screen, 0))
	assert.True(t, strings.HasPrefix(line(screen, 1), "───"))

	out := contents(screen)
	assert.Contains(t, out, "System")
	assert.Contains(t, out, "Lock Screen")

	n := len(u.launcher.Palette().Results(""))
	assert.Equal(t, fmt.Sprintf("%d results", n), line(screen, 23))
}

func TestTypingFilters(t *testing.T) {
	u, screen, _ := newUI(t)

	typeText(u, "lock")
	assert.Equal(t, "> lock", line(screen, 0))
	assert.Contains(t, contents(screen), "Lock Screen")
	assert.NotContains(t, contents(screen), "Volume Up")

	press(u, tcell.KeyBackspace2)
	assert.Equal(t, "> loc", line(screen, 0))

	press(u, tcell.KeyCtrlU)
	assert.Equal(t, "> ", line(screen, 0))
}

func TestNoResults(t *testing.T) {
	u, screen, _ := newUI(t)

	typeText(u, "zzqqxx")
	assert.Equal(t, "No results", strings.TrimSpace(line(screen, 2)))
	assert.Equal(t, "0 results", line(screen, 23))
}

func TestInlineResultShownFirst(t *testing.T) {
	u, screen, _ := newUI(t)

	typeText(u, "12*4")
	u.launcher.Inline().Wait()
	u.handleEvent(tcell.NewEventInterrupt(signalRefresh))
	u.draw()

	assert.Equal(t, "Inline", line(screen, 2))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(line(screen, 3)), "= 48"), line(screen, 3))

	press(u, tcell.KeyEnter)
	require.NotNil(t, u.view)
	assert.Contains(t, contents(screen), "48")
	assert.Contains(t, line(screen, 23), "(esc to go back)")

	assert.False(t, press(u, tcell.KeyEscape))
	assert.Nil(t, u.view)
	assert.Equal(t, "> 12*4", line(screen, 0))
}

func TestPageNavigation(t *testing.T) {
	u, _, _ := newUI(t)
	n := len(u.items)
	require.Greater(t, n, 10)

	press(u, tcell.KeyPgDn)
	assert.Equal(t, 10, u.cursor.Index())
	press(u, tcell.KeyPgDn)
	assert.Equal(t, n-1, u.cursor.Index())
	press(u, tcell.KeyPgUp)
	assert.Equal(t, n-11, u.cursor.Index())
	press(u, tcell.KeyHome)
	assert.Equal(t, 0, u.cursor.Index())
	press(u, tcell.KeyUp)
	assert.Equal(t, 0, u.cursor.Index())
	press(u, tcell.KeyEnd)
	assert.Equal(t, n-1, u.cursor.Index())
}

func TestSelectedRowStaysVisible(t *testing.T) {
	u, screen, _ := newUI(t)

	press(u, tcell.KeyEnd)
	last := u.items[len(u.items)-1]
	assert.Contains(t, contents(screen), last.Title)
}

func TestViewCommand(t *testing.T) {
	u, screen, _ := newUI(t)

	typeText(u, "show themes")
	require.NotEmpty(t, u.items)
	require.Equal(t, "Show Themes", u.items[0].Title)

	press(u, tcell.KeyEnter)
	require.NotNil(t, u.view)
	out := contents(screen)
	assert.Contains(t, out, "dark (dark) [current]")
	assert.Equal(t, "Show Themes  (esc to go back)", line(screen, 23))

	press(u, tcell.KeyBackspace2)
	assert.Nil(t, u.view)
	assert.Equal(t, "> show themes", line(screen, 0))
}

func TestNoViewCommandReportsDone(t *testing.T) {
	u, screen, h := newUI(t)

	typeText(u, "lock screen")
	require.Equal(t, "Lock Screen", u.items[0].Title)

	press(u, tcell.KeyEnter)
	assert.Nil(t, u.view)

	awaitNotice(t, u, screen)
	assert.Equal(t, "Lock Screen done", line(screen, 23))
	assert.Equal(t, []string{"loginctl lock-session"}, h.commands())
}

func TestNoticeOnStatusLine(t *testing.T) {
	u, screen, _ := newUI(t)

	u.handleEvent(tcell.NewEventInterrupt(notice{message: "Reloaded 7 plugins", severity: platform.SeveritySuccess}))
	u.draw()
	assert.Equal(t, "Reloaded 7 plugins", line(screen, 23))
}

func TestRegistryChangeRefreshes(t *testing.T) {
	u, screen, _ := newUI(t)

	typeText(u, "extra")
	assert.Equal(t, "0 results", line(screen, 23))

	_, err := u.launcher.Commands().Register(command.Registered{
		CommandName: "extra-thing",
		Source:      command.SourceUser,
		Entry: command.Entry{
			ID:    "extra-thing",
			Title: "Extra Thing",
			Execute: command.NoViewCommand{Run: func(context.Context, execctx.Context) error {
				return nil
			}},
		},
	})
	require.NoError(t, err)

	u.handleEvent(tcell.NewEventInterrupt(signalRefresh))
	u.draw()
	assert.Contains(t, contents(screen), "Extra Thing")
	assert.Equal(t, "1 result", line(screen, 23))
}

func TestEscapeQuits(t *testing.T) {
	u, _, _ := newUI(t)

	typeText(u, "x")
	assert.False(t, press(u, tcell.KeyEscape), "first escape clears the query")
	assert.Empty(t, u.query)
	assert.True(t, press(u, tcell.KeyEscape))
	assert.True(t, press(u, tcell.KeyCtrlC))
}

func TestRunStopsWhenContextDone(t *testing.T) {
	l := newLauncher(t, &fakeHost{})
	screen := tcell.NewSimulationScreen("UTF-8")
	u := New(l, screen)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
