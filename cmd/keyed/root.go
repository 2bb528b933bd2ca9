package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/keyed/internal/app"
	"github.com/dshills/keyed/internal/config"
	"github.com/dshills/keyed/internal/logging"
	"github.com/dshills/keyed/internal/platform"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	debug      bool
	logLevel   string
	theme      string
}

func newRootCommand(version, commit, date string) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "keyed",
		Short: "Keyed - a keyboard-driven command launcher",
		Long: `Keyed is a command launcher driven by plugins.

Plugins declare commands in a manifest. Commands either run silently,
open a view, or answer inline while you type. The bundled plugins cover
system actions, volume, themes, a calculator and application launching;
user plugins are written in Lua.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to configuration file (default "+config.Path()+")")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "enable debug mode")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.theme, "theme", "", "theme id to start with")

	rootCmd.AddCommand(
		newListCommand(opts),
		newSearchCommand(opts),
		newRunCommand(opts),
		newPluginsCommand(opts),
		newValidateCommand(),
		newScaffoldCommand(),
		newConfigCommand(opts),
		newTUICommand(opts),
	)
	return rootCmd
}

// loadConfig loads the configuration file and applies flag overrides.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.debug {
		cfg.Debug = true
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.theme != "" {
		cfg.Themes.Current = o.theme
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// launcherSetup customizes a launcher before it starts.
type launcherSetup struct {
	logOutput io.Writer
	notify    platform.NotifySink
	watch     bool
}

// openLauncher builds and starts a launcher. Plugin load failures are
// logged by the launcher and do not stop the command. The caller must
// Close the launcher.
func (o *globalOptions) openLauncher(ctx context.Context, setup launcherSetup) (*app.Launcher, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if !setup.watch {
		cfg.Plugins.Watch = false
	}

	lc := cfg.Logging()
	if setup.logOutput != nil {
		lc.Output = setup.logOutput
	}

	l, err := app.New(app.Options{
		Config: cfg,
		Logger: logging.New(lc),
		Notify: setup.notify,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	_ = l.Start(ctx) // per-plugin failures are already logged
	l.Plugins().Wait()
	return l, nil
}
