package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// APIVersion is the only plugin API version this launcher accepts.
const APIVersion = "1.0.0"

// Manifest file names probed in a plugin directory, in order.
const (
	ManifestJSON = "manifest.json"
	ManifestYAML = "manifest.yaml"
)

// Mode is how a command presents itself when executed.
type Mode string

// Command modes.
const (
	ModeNoView Mode = "no-view"
	ModeView   Mode = "view"
	ModeInline Mode = "inline"
)

// Valid reports whether m is one of the recognized modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeNoView, ModeView, ModeInline:
		return true
	}
	return false
}

// Manifest is a plugin's validated declaration. It is built once at load
// time and not modified afterwards.
type Manifest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	APIVersion  string            `json:"apiVersion"`
	Description string            `json:"description"`
	Author      string            `json:"author"`
	Permissions *Permissions      `json:"permissions,omitempty"`
	Commands    []CommandManifest `json:"commands"`

	// dir is the directory the manifest was loaded from, empty for
	// compiled-in plugins.
	dir string
}

// CommandManifest declares one command within a plugin.
type CommandManifest struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Description string   `json:"description"`
	Mode        Mode     `json:"mode"`
	Category    string   `json:"category,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Handler     string   `json:"handler"`
}

// Dir returns the directory the manifest was loaded from.
func (m *Manifest) Dir() string {
	return m.dir
}

// Command looks up a declared command by name.
func (m *Manifest) Command(name string) (*CommandManifest, bool) {
	for i := range m.Commands {
		if m.Commands[i].Name == name {
			return &m.Commands[i], true
		}
	}
	return nil, false
}

// ShortName returns the last dot-separated segment of the plugin id.
// Compiled-in handlers are keyed by it.
func (m *Manifest) ShortName() string {
	if i := strings.LastIndex(m.ID, "."); i >= 0 {
		return m.ID[i+1:]
	}
	return m.ID
}

// CreateDefaultManifest returns a minimal, valid manifest with no commands.
func CreateDefaultManifest(pluginID string) *Manifest {
	return &Manifest{
		ID:          pluginID,
		Name:        "New Plugin",
		Version:     "1.0.0",
		APIVersion:  APIVersion,
		Description: "A new plugin for Keyed Launcher",
		Author:      "Plugin Author",
		Permissions: &Permissions{
			Filesystem: AccessNone,
			Network:    NetworkNone,
			Shell:      ShellNone,
			System:     AccessNone,
		},
		Commands: []CommandManifest{},
	}
}

// LoadManifest reads and validates a manifest file. Files ending in .yaml
// or .yml are decoded as YAML, anything else as JSON.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m *Manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", path, err)
		}
		m, err = Validate(raw, path)
	default:
		m, err = Validate(data, path)
	}
	if err != nil {
		return nil, err
	}

	m.dir = filepath.Dir(path)
	return m, nil
}

// FindManifest returns the manifest path inside dir, preferring JSON.
func FindManifest(dir string) (string, error) {
	for _, name := range []string{ManifestJSON, ManifestYAML} {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrNoManifest
}
