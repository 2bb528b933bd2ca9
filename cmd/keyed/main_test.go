package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/keyed/internal/plugin"
)

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand("test", "none", "today")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// isolate points the data directory at a temp dir and pins the platform.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	t.Setenv("KEYED_PLATFORM", "linux")
	t.Setenv("KEYED_LOG_LEVEL", "error")
	return filepath.Join(dir, "missing.toml")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "test (commit: none, built: today)")
}

func TestScaffoldAndValidate(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "scaffold", "com.me.tools", "--dir", dir, "--command", "greet", "--command", "report:view")
	require.NoError(t, err)
	assert.Contains(t, out, "with 2 commands")

	root := filepath.Join(dir, "tools")
	for _, name := range []string{"manifest.json", "commands/greet.lua", "commands/report.lua"} {
		assert.FileExists(t, filepath.Join(root, filepath.FromSlash(name)))
	}

	_, err = execute(t, "scaffold", "com.me.tools", "--dir", dir)
	assert.ErrorContains(t, err, "already exists")
	_, err = execute(t, "scaffold", "com.me.tools", "--dir", dir, "--force")
	assert.NoError(t, err)

	out, err = execute(t, "validate", root)
	require.NoError(t, err)
	assert.Contains(t, out, "com.me.tools")
	assert.Contains(t, out, "(0 commands)")
}

func TestScaffoldRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "scaffold", "com.me.tools", "--dir", dir, "--command", "greet:popup")
	assert.ErrorContains(t, err, "invalid mode")

	_, err = execute(t, "scaffold", "Bad ID", "--dir", dir)
	assert.ErrorIs(t, err, plugin.ErrInvalidManifest)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	bad := filepath.Join(dir, "bad.json")
	data, err := plugin.Scaffold("com.me.good", nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(good, data, 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`{"id": "nope", "commands": {}}`), 0o644))

	out, err := execute(t, "validate", good, bad)
	assert.ErrorContains(t, err, "1 of 2 manifests invalid")
	assert.Contains(t, out, "com.me.good")
	assert.Contains(t, out, "Invalid plugin manifest in "+bad)
	assert.Contains(t, out, `Missing or invalid "name" field`)
	assert.Contains(t, out, `"commands" field (must be an array)`)
}

func TestListAndSearch(t *testing.T) {
	cfg := isolate(t)

	out, err := execute(t, "--config", cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "System")
	assert.Contains(t, out, "Lock Screen")
	assert.Contains(t, out, "com.keyed.volume-control.volume-up [no-view]")

	out, err = execute(t, "--config", cfg, "list", "--category", "audio")
	require.NoError(t, err)
	assert.Contains(t, out, "Volume Up")
	assert.NotContains(t, out, "Lock Screen")

	out, err = execute(t, "--config", cfg, "search", "12", "*", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Inline")
	assert.Contains(t, out, "= 48")

	out, err = execute(t, "--config", cfg, "search", "zzqqxx")
	require.NoError(t, err)
	assert.Contains(t, out, "No results")
}

func TestRunView(t *testing.T) {
	cfg := isolate(t)

	out, err := execute(t, "--config", cfg, "--theme", "light", "run", "com.keyed.theme-manager.show-themes")
	require.NoError(t, err)
	assert.Contains(t, out, "Themes")
	assert.Contains(t, out, "light (light)")
	assert.Contains(t, out, "[current]")

	out, err = execute(t, "--config", cfg, "run", "com.keyed.calculator.calculate", "--query", "2^10")
	require.NoError(t, err)
	assert.Contains(t, out, "1024")

	_, err = execute(t, "--config", cfg, "run", "com.keyed.nothing.here")
	assert.ErrorContains(t, err, "not found")
}

func TestPluginsAndConfig(t *testing.T) {
	cfg := isolate(t)

	out, err := execute(t, "--config", cfg, "plugins")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "com.keyed.system-ops")
	assert.Contains(t, out, "bundled")

	out, err = execute(t, "--config", cfg, "--debug", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "# "+cfg)
	assert.Contains(t, out, "debug = true")
	assert.Regexp(t, `platform = ['"]linux['"]`, out)
}
