package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keyed/internal/plugin"
)

func TestBinderRegisterPluginCommands(t *testing.T) {
	commands := NewRegistry()
	f, _, _ := newTestFactory(t)
	b := NewBinder(commands, f)

	p := testPlugin(
		cmdManifest("a", plugin.ModeNoView),
		cmdManifest("bad", plugin.Mode("weird")),
		cmdManifest("c", plugin.ModeView),
	)
	b.RegisterPluginCommands(p)

	ids := []string{}
	for _, c := range commands.ByPlugin(p.ID()) {
		ids = append(ids, c.ID())
	}
	assert.Equal(t, []string{"com.example.demo.a", "com.example.demo.c"}, ids)

	b.UnregisterPluginCommands(p.ID())
	assert.Zero(t, commands.Len())
}

func TestBinderDynamicEntries(t *testing.T) {
	commands := NewRegistry()
	f, _, _ := newTestFactory(t)
	b := NewBinder(commands, f)

	id, err := b.RegisterDynamic("com.keyed.app-launcher", Entry{
		ID:          "app.safari",
		CommandName: "launch-safari",
		Title:       "Safari",
		Execute:     noop(),
	})
	require.NoError(t, err)
	assert.Equal(t, "com.keyed.app-launcher.launch-safari", id)

	got, ok := commands.Get(id)
	require.True(t, ok)
	assert.Equal(t, "com.keyed.app-launcher", got.Entry.PluginID)
	assert.Equal(t, "app.safari", got.Entry.ID)

	err = b.RegisterDynamicEntries("com.keyed.app-launcher", []Entry{
		{CommandName: "launch-notes", Title: "Notes", Execute: noop()},
		{CommandName: "", Title: "broken", Execute: noop()},
		{CommandName: "launch-mail", Title: "Mail"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyCommandName)
	assert.ErrorIs(t, err, ErrNilExecutor)
	assert.Equal(t, 2, commands.Len())

	_, err = b.RegisterDynamic("", Entry{CommandName: "x", Execute: noop()})
	assert.ErrorIs(t, err, plugin.ErrPluginNotFound)

	assert.True(t, b.UnregisterDynamic("com.keyed.app-launcher", "launch-notes"))
	assert.False(t, b.UnregisterDynamic("com.keyed.app-launcher", "launch-notes"))
}

// The plugin registry drives command registration through the binder, and
// a failing startup hook leaves the commands in place.
func TestBinderWithPluginRegistry(t *testing.T) {
	commands := NewRegistry()
	f, _, _ := newTestFactory(t)
	b := NewBinder(commands, f)
	plugins := plugin.NewRegistry(plugin.WithCommandSync(b))
	f.SetReporter(plugins)

	p := testPlugin(cmdManifest("a", plugin.ModeNoView), cmdManifest("b", plugin.ModeInline))
	p.OnStartup = func(context.Context) error {
		_, err := b.RegisterDynamic(p.ID(), Entry{CommandName: "dyn", Title: "Dynamic", Execute: noop()})
		if err != nil {
			return err
		}
		return errors.New("half started")
	}
	require.NoError(t, plugins.Register(p))
	plugins.Wait()

	assert.Len(t, commands.ByPlugin(p.ID()), 3)
	st, _ := plugins.Status(p.ID())
	assert.Equal(t, plugin.StateError, st.State)
	assert.Equal(t, "half started", st.Error)

	require.NoError(t, plugins.Unregister(context.Background(), p.ID()))
	assert.Zero(t, commands.Len())
}

// Re-registering a plugin with a different command set leaves only the
// new commands behind.
func TestBinderReRegisterDropsStaleCommands(t *testing.T) {
	commands := NewRegistry()
	f, _, _ := newTestFactory(t)
	b := NewBinder(commands, f)
	plugins := plugin.NewRegistry(plugin.WithCommandSync(b))

	first := testPlugin(cmdManifest("a", plugin.ModeNoView), cmdManifest("b", plugin.ModeView))
	require.NoError(t, plugins.Register(first))
	_, err := b.RegisterDynamic(first.ID(), Entry{CommandName: "dyn", Title: "Dynamic", Execute: noop()})
	require.NoError(t, err)
	require.Len(t, commands.ByPlugin(first.ID()), 3)

	second := testPlugin(cmdManifest("c", plugin.ModeNoView))
	require.NoError(t, plugins.Register(second))
	plugins.Wait()

	ids := []string{}
	for _, c := range commands.ByPlugin(second.ID()) {
		ids = append(ids, c.ID())
	}
	assert.Equal(t, []string{"com.example.demo.c"}, ids)
	assert.Equal(t, 1, commands.Len())
	assert.Equal(t, 1, plugins.Count())

	_, ok := commands.FindEntry("com.example.demo.a")
	assert.False(t, ok)
}

func TestFactoryReportsToPluginRegistry(t *testing.T) {
	commands := NewRegistry()
	table := NewStaticTable()
	f := NewFactory(table)
	b := NewBinder(commands, f)
	plugins := plugin.NewRegistry(plugin.WithCommandSync(b), plugin.WithClock(func() time.Time { return time.Unix(0, 0) }))
	f.SetReporter(plugins)

	p := testPlugin(cmdManifest("a", plugin.ModeNoView))
	table.Add(StaticKey(p.ID(), "commands/a"), &Module{})
	require.NoError(t, plugins.Register(p))

	e, ok := commands.FindEntry("com.example.demo.a")
	require.True(t, ok)
	require.Error(t, e.Execute.(NoViewCommand).Execute(context.Background(), testEnv()))

	st, _ := plugins.Status(p.ID())
	assert.Equal(t, plugin.StateError, st.State)
	assert.Equal(t, "Command a must export a default function", st.Error)
}
