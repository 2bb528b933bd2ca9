package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/keyed/internal/logging"
	"github.com/dshills/keyed/internal/platform"
	"github.com/dshills/keyed/internal/theme"
)

// AppName names the configuration and data directories.
const AppName = "keyed"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KEYED_"

// Config is the launcher configuration.
type Config struct {
	Debug           bool          `toml:"debug"`
	Platform        string        `toml:"platform"`
	NotifyOnFailure bool          `toml:"notify_on_failure"`
	Log             LogConfig     `toml:"log"`
	Plugins         PluginsConfig `toml:"plugins"`
	Themes          ThemesConfig  `toml:"themes"`
}

// LogConfig is the [log] table.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// PluginsConfig is the [plugins] table.
type PluginsConfig struct {
	UserDir        string   `toml:"user_dir"`
	DevelopmentDir string   `toml:"development_dir"`
	Disabled       []string `toml:"disabled"`
	Watch          bool     `toml:"watch"`
}

// ThemesConfig is the [themes] table.
type ThemesConfig struct {
	Dir     string `toml:"dir"`
	Current string `toml:"current"`
}

// Default returns the built-in configuration rooted at dataDir.
func Default(dataDir string) *Config {
	return &Config{
		Platform:        platform.Current(),
		NotifyOnFailure: true,
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatText),
		},
		Plugins: PluginsConfig{
			UserDir:        filepath.Join(dataDir, "plugins", "user"),
			DevelopmentDir: filepath.Join(dataDir, "plugins", "development"),
			Watch:          true,
		},
		Themes: ThemesConfig{
			Dir:     filepath.Join(dataDir, "themes"),
			Current: theme.DefaultID,
		},
	}
}

// DataDir returns $XDG_DATA_HOME/keyed, falling back to ~/.local/share/keyed.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(home, ".local", "share", AppName)
}

// Path returns the default config file location.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(DataDir(), "config.toml")
	}
	return filepath.Join(dir, AppName, "config.toml")
}

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

type options struct {
	dataDir string
	lookup  LookupFunc
}

// Option configures Load.
type Option func(*options)

// WithDataDir roots the default directories at dir.
func WithDataDir(dir string) Option {
	return func(o *options) { o.dataDir = dir }
}

// WithLookup replaces the environment source.
func WithLookup(fn LookupFunc) Option {
	return func(o *options) { o.lookup = fn }
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result. An empty path means Path().
func Load(path string, opts ...Option) (*Config, error) {
	o := options{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dataDir == "" {
		o.dataDir = DataDir()
	}
	if path == "" {
		path = Path()
	}

	cfg := Default(o.dataDir)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// File doesn't exist, not an error
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := cfg.decode(path, data); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(o.lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	if err := toml.Unmarshal(data, c); err != nil {
		pe := &ParseError{Path: path, Message: err.Error(), Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		return pe
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}
	if v, ok := lookup(EnvPrefix + "DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &EnvError{Var: EnvPrefix + "DEBUG", Value: v, Err: err}
		}
		c.Debug = b
	}
	strs := []struct {
		name string
		dst  *string
	}{
		{"PLATFORM", &c.Platform},
		{"LOG_LEVEL", &c.Log.Level},
		{"LOG_FORMAT", &c.Log.Format},
		{"THEME", &c.Themes.Current},
	}
	for _, s := range strs {
		if v, ok := lookup(EnvPrefix + s.name); ok {
			*s.dst = strings.TrimSpace(v)
		}
	}
	return nil
}

var (
	levels  = []string{"debug", "info", "warn", "warning", "error"}
	formats = []string{string(logging.FormatText), string(logging.FormatLogfmt), string(logging.FormatJSON)}
)

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(levels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level))
	}
	if !slices.Contains(formats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format))
	}
	if c.Platform == "" {
		errs = append(errs, fmt.Errorf("%w: platform is empty", ErrInvalid))
	}
	if c.Themes.Current == "" {
		errs = append(errs, fmt.Errorf("%w: themes.current is empty", ErrInvalid))
	}
	return errors.Join(errs...)
}

// Logging returns the logger configuration. Debug forces the debug level.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.Log.Level)
	if c.Debug {
		lc.Level = logging.LevelDebug
	}
	lc.Format = logging.Format(strings.ToLower(c.Log.Format))
	return lc
}

// IsDisabled reports whether id is listed in plugins.disabled.
func (c *Config) IsDisabled(id string) bool {
	return slices.Contains(c.Plugins.Disabled, id)
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
