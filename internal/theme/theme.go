// Package theme provides the theming collaborator: built-in and user themes,
// the current selection, and snapshots handed to command executions.
package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Theme types.
const (
	TypeDark  = "dark"
	TypeLight = "light"
)

// Built-in theme ids.
const (
	DefaultID = "dark"
	LightID   = "light"
)

// Errors returned by theme operations.
var (
	ErrThemeNotFound = errors.New("theme not found")
	ErrInvalidTheme  = errors.New("invalid theme")
)

// Snapshot is an immutable copy of one theme.
type Snapshot struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Author      string            `json:"author,omitempty"`
	Version     string            `json:"version,omitempty"`
	Description string            `json:"description,omitempty"`
	Type        string            `json:"type"`
	Colors      map[string]string `json:"colors"`
}

// Color returns the named color, or fallback when the theme lacks it.
func (s Snapshot) Color(name, fallback string) string {
	if c, ok := s.Colors[name]; ok {
		return c
	}
	return fallback
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	s.Colors = maps.Clone(s.Colors)
	return s
}

// ColorNames returns the color keys in sorted order.
func (s Snapshot) ColorNames() []string {
	return slices.Sorted(maps.Keys(s.Colors))
}

// Provider is the read side used by the execution context builder.
type Provider interface {
	Current() Snapshot
	List() []Snapshot
	Switch(id string) error
}

// file is the on-disk layout of a user theme.
type file struct {
	Meta struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Author      string `json:"author"`
		Version     string `json:"version"`
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"meta"`
	Colors map[string]string `json:"colors"`
}

// Parse decodes a user theme. The id falls back to the file name without
// extension; every color must be a hex value.
func Parse(path string, data []byte) (Snapshot, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return Snapshot{}, fmt.Errorf("%w %s: %v", ErrInvalidTheme, path, err)
	}

	s := Snapshot{
		ID:          f.Meta.ID,
		Name:        f.Meta.Name,
		Author:      f.Meta.Author,
		Version:     f.Meta.Version,
		Description: f.Meta.Description,
		Type:        strings.ToLower(f.Meta.Type),
		Colors:      make(map[string]string, len(f.Colors)),
	}
	if s.ID == "" {
		s.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if s.Name == "" {
		s.Name = s.ID
	}
	switch s.Type {
	case "":
		s.Type = TypeDark
	case TypeDark, TypeLight:
	default:
		return Snapshot{}, fmt.Errorf("%w %s: type must be %q or %q, got %q", ErrInvalidTheme, path, TypeDark, TypeLight, f.Meta.Type)
	}
	if len(f.Colors) == 0 {
		return Snapshot{}, fmt.Errorf("%w %s: no colors", ErrInvalidTheme, path)
	}

	for _, name := range slices.Sorted(maps.Keys(f.Colors)) {
		c, err := colorful.Hex(f.Colors[name])
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w %s: color %q: %v", ErrInvalidTheme, path, name, err)
		}
		s.Colors[name] = c.Hex()
	}
	return s, nil
}

func builtins() []Snapshot {
	return []Snapshot{
		{
			ID:          DefaultID,
			Name:        "Dark",
			Author:      "keyed",
			Version:     "1.0.0",
			Description: "Default dark theme",
			Type:        TypeDark,
			Colors: map[string]string{
				"background": "#1e1e2e",
				"foreground": "#cdd6f4",
				"accent":     "#89b4fa",
				"muted":      "#6c7086",
				"selection":  "#313244",
				"error":      "#f38ba8",
				"success":    "#a6e3a1",
			},
		},
		{
			ID:          LightID,
			Name:        "Light",
			Author:      "keyed",
			Version:     "1.0.0",
			Description: "Default light theme",
			Type:        TypeLight,
			Colors: map[string]string{
				"background": "#eff1f5",
				"foreground": "#4c4f69",
				"accent":     "#1e66f5",
				"muted":      "#9ca0b0",
				"selection":  "#ccd0da",
				"error":      "#d20f39",
				"success":    "#40a02b",
			},
		},
	}
}
