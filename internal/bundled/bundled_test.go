package bundled

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/platform"
	"github.com/dshills/keyed/internal/plugin"
	"github.com/dshills/keyed/internal/theme"
)

type call struct {
	program string
	args    []string
}

type fakeShell struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (s *fakeShell) Execute(_ context.Context, program string, args ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{program, args})
	return s.err
}

type fakeSystem struct {
	apps []platform.Application
	err  error
}

func (s fakeSystem) Applications(context.Context) ([]platform.Application, error) {
	return s.apps, s.err
}

type fakeClipboard struct{ text string }

func (c *fakeClipboard) ReadText() (string, error) { return c.text, nil }
func (c *fakeClipboard) WriteText(text string) error {
	c.text = text
	return nil
}

type fakeNotifier struct{ messages []string }

func (n *fakeNotifier) Show(message string, _ platform.Severity) {
	n.messages = append(n.messages, message)
}

type recordingDynamic struct {
	pluginID string
	entries  []command.Entry
}

func (d *recordingDynamic) RegisterDynamicEntries(pluginID string, entries []command.Entry) error {
	d.pluginID = pluginID
	d.entries = entries
	return nil
}

type fakeLister []plugin.Info

func (l fakeLister) Infos() []plugin.Info { return l }

func linuxEnv() execctx.Context {
	return execctx.Context{Environment: execctx.Environment{
		Platform: platform.Linux,
		Theme:    theme.Snapshot{ID: "light"},
	}}
}

func newBundle(t *testing.T, deps Deps) *Bundle {
	t.Helper()
	b, err := New(deps)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestManifestsValidate(t *testing.T) {
	manifests, err := Manifests()
	require.NoError(t, err)

	var ids []string
	for _, m := range manifests {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{
		"com.keyed.app-launcher",
		"com.keyed.system-ops",
		"com.keyed.volume-control",
		"com.keyed.theme-manager",
		"com.keyed.plugin-manager",
		"com.keyed.calculator",
		"com.keyed.developer",
	}, ids)
}

func TestEveryCommandHasHandler(t *testing.T) {
	b := newBundle(t, Deps{})
	table := command.NewStaticTable()
	b.Install(table)

	for _, p := range b.Plugins() {
		assert.Equal(t, plugin.SourceBundled, p.Source)
		for i := range p.Manifest.Commands {
			cmd := &p.Manifest.Commands[i]
			_, err := table.Resolve(context.Background(), p, cmd)
			assert.NoError(t, err, "%s/%s", p.ID(), cmd.Name)
		}
	}
	assert.Len(t, b.IDs(), 7)
}

func TestBundleThroughFactory(t *testing.T) {
	shell := &fakeShell{}
	b := newBundle(t, Deps{API: platform.API{Shell: shell}, Platform: platform.Linux})
	table := command.NewStaticTable()
	b.Install(table)
	factory := command.NewFactory(table)

	var systemOps *plugin.Plugin
	for _, p := range b.Plugins() {
		if p.ID() == "com.keyed.system-ops" {
			systemOps = p
		}
	}
	require.NotNil(t, systemOps)

	exec, err := factory.Build(systemOps, "lock-screen")
	require.NoError(t, err)
	require.NoError(t, exec.(command.NoViewCommand).Execute(context.Background(), linuxEnv()))
	require.Len(t, shell.calls, 1)
	assert.Equal(t, call{"loginctl", []string{"lock-session"}}, shell.calls[0])
}

func TestShellModulePlatforms(t *testing.T) {
	shell := &fakeShell{}
	deps := Deps{API: platform.API{Shell: shell}, Platform: platform.MacOS}

	mod := shellModule(deps, volumeActions["volume-set-75"])
	require.NoError(t, mod.Run(context.Background(), execctx.Context{}))
	assert.Equal(t, "osascript", shell.calls[0].program)
	assert.Equal(t, []string{"-e", "set volume output volume 75"}, shell.calls[0].args)

	win := execctx.Context{Environment: execctx.Environment{Platform: platform.Windows}}
	err := mod.Run(context.Background(), win)
	assert.ErrorIs(t, err, platform.ErrUnsupported)

	err = shellModule(Deps{}, systemActions["sleep"]).Run(context.Background(), linuxEnv())
	assert.EqualError(t, err, "shell is not available")

	shell.err = errors.New("denied")
	err = shellModule(deps, systemActions["shutdown"]).Run(context.Background(), linuxEnv())
	assert.EqualError(t, err, "denied")
}

func TestAppLauncherStartup(t *testing.T) {
	dyn := &recordingDynamic{}
	shell := &fakeShell{}
	deps := Deps{
		API: platform.API{
			System: fakeSystem{apps: []platform.Application{
				{Name: "Visual Studio Code", Path: "/Applications/Visual Studio Code.app", BundleID: "com.microsoft.VSCode"},
				{Name: "Text Editor", Exec: "gnome-text-editor"},
			}},
			Shell: shell,
		},
		Dynamic:  dyn,
		Platform: platform.Linux,
	}

	hook := appLauncherStartup(deps, nil)
	require.NoError(t, hook(context.Background()))
	assert.Equal(t, AppLauncherID, dyn.pluginID)
	require.Len(t, dyn.entries, 2)

	vscode := dyn.entries[0]
	assert.Equal(t, "app.com.microsoft.VSCode", vscode.ID)
	assert.Equal(t, "launch-com.microsoft.VSCode", vscode.CommandName)
	assert.Equal(t, "Application", vscode.Subtitle)
	assert.Equal(t, "Launch Visual Studio Code", vscode.Description)
	assert.Equal(t, CategoryApplications, vscode.Category)
	assert.Equal(t, []string{"visual studio code", "visual", "studio", "code", "app", "application", "launch"}, vscode.Keywords)

	editor := dyn.entries[1]
	assert.Equal(t, "app.text-editor", editor.ID)
	require.NoError(t, editor.Execute.(command.NoViewCommand).Execute(context.Background(), linuxEnv()))
	assert.Equal(t, call{"sh", []string{"-c", "gnome-text-editor"}}, shell.calls[0])

	err := vscode.Execute.(command.NoViewCommand).Execute(context.Background(), linuxEnv())
	assert.ErrorContains(t, err, "failed to launch Visual Studio Code")
}

func TestAppLauncherStartupFailures(t *testing.T) {
	hook := appLauncherStartup(Deps{Dynamic: &recordingDynamic{}}, nil)
	assert.Error(t, hook(context.Background()))

	hook = appLauncherStartup(Deps{
		API:     platform.API{System: fakeSystem{err: errors.New("scan failed")}},
		Dynamic: &recordingDynamic{},
	}, nil)
	assert.EqualError(t, hook(context.Background()), "list applications: scan failed")
}

func TestShowThemes(t *testing.T) {
	store := theme.NewStore()
	comp := showThemes(store)
	doc, err := comp.Render(context.Background(), linuxEnv())
	require.NoError(t, err)
	assert.Equal(t, "Themes", doc.Title)
	require.Len(t, doc.Items, 2)

	var current []string
	for _, it := range doc.Items {
		if it.Accessory == "current" {
			current = append(current, it.Subtitle)
		}
	}
	assert.Equal(t, []string{"light (light)"}, current)

	_, err = showThemes(nil).Render(context.Background(), linuxEnv())
	assert.Error(t, err)
}

func TestManagePlugins(t *testing.T) {
	lister := fakeLister{
		{ID: "com.a.one", Name: "One", Version: "1.0.0", Source: "bundled", Enabled: true, Status: plugin.Status{State: plugin.StateLoaded}},
		{ID: "com.a.two", Name: "Two", Version: "2.0.0", Source: "user", Enabled: false, Status: plugin.Failed("boom")},
	}
	doc, err := managePlugins(lister).Render(context.Background(), linuxEnv())
	require.NoError(t, err)
	assert.Equal(t, "2 plugins registered", doc.Body)
	require.Len(t, doc.Items, 2)
	assert.Equal(t, "loaded", doc.Items[0].Accessory)
	assert.Equal(t, "com.a.one v1.0.0 (bundled)", doc.Items[0].Subtitle)
	assert.Equal(t, "error: boom, disabled", doc.Items[1].Accessory)
}

func TestGenerateUUID(t *testing.T) {
	clip := &fakeClipboard{}
	notes := &fakeNotifier{}
	run := generateUUID(platform.API{Clipboard: clip, Notifications: notes})

	require.NoError(t, run(context.Background(), linuxEnv()))
	assert.Len(t, clip.text, 36)
	require.Len(t, notes.messages, 1)
	assert.True(t, strings.HasSuffix(notes.messages[0], clip.text))

	assert.Error(t, generateUUID(platform.API{})(context.Background(), linuxEnv()))
}

func TestCalculator(t *testing.T) {
	calc, err := newCalculator()
	require.NoError(t, err)
	defer calc.close()

	tests := []struct {
		query string
		want  string
		ok    bool
	}{
		{"12*4", "48", true},
		{"(1+2)/3", "1", true},
		{"1/3", "0.333333333333", true},
		{" 2 ^ 8 ", "256", true},
		{"10 % 4", "2", true},
		{"-3 + 5", "2", true},
		{"1/0", "", false},
		{"42", "", false},
		{"hello", "", false},
		{"5--3", "", false},
		{"1 +", "", false},
		{"os.exit()", "", false},
	}
	mod := calc.module()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := calc.Evaluate(context.Background(), tt.query)
			if !tt.ok {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			active, err := mod.ShouldActivate(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, active)
		})
	}

	doc, err := mod.Component.Render(command.WithQuery(context.Background(), "6*7"), linuxEnv())
	require.NoError(t, err)
	assert.Equal(t, "42", doc.Title)
	assert.Equal(t, "6*7", doc.Items[0].Subtitle)
}
