package app

import (
	"context"
	"fmt"

	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/platform"
)

// Builtin command names.
const (
	BuiltinReloadPlugins = "reload-plugins"
	BuiltinToggleDebug   = "toggle-debug"
)

const categoryLauncher = "Launcher"

func (l *Launcher) installBuiltins() error {
	builtins := []command.Entry{
		{
			CommandName: BuiltinReloadPlugins,
			Title:       "Reload Plugins",
			Subtitle:    "Launcher",
			Description: "Unload and load every plugin again",
			Category:    categoryLauncher,
			Keywords:    []string{"reload", "plugins", "refresh"},
			Execute:     command.NoViewCommand{Run: l.reloadCommand},
		},
		{
			CommandName: BuiltinToggleDebug,
			Title:       "Toggle Debug Mode",
			Subtitle:    "Launcher",
			Description: "Flip the debug flag passed to commands",
			Category:    categoryLauncher,
			Keywords:    []string{"debug", "developer"},
			Execute:     command.NoViewCommand{Run: l.toggleDebugCommand},
		},
	}
	for _, e := range builtins {
		if _, err := l.commands.Register(command.Registered{
			CommandName: e.CommandName,
			Entry:       e,
			Source:      command.SourceBuiltin,
		}); err != nil {
			return fmt.Errorf("%s: %w", e.CommandName, err)
		}
	}
	return nil
}

func (l *Launcher) reloadCommand(ctx context.Context, _ execctx.Context) error {
	err := l.Reload(ctx)
	l.notify(fmt.Sprintf("Reloaded %d plugins", l.plugins.Count()), platform.SeveritySuccess)
	return err
}

func (l *Launcher) toggleDebugCommand(context.Context, execctx.Context) error {
	on := l.env.ToggleDebug()
	l.logger.Info("debug mode %s", onOff(on))
	l.notify(fmt.Sprintf("Debug mode %s", onOff(on)), platform.SeverityInfo)
	return nil
}

func (l *Launcher) notify(msg string, sev platform.Severity) {
	if l.api.Notifications != nil {
		l.api.Notifications.Show(msg, sev)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
