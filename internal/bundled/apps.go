package bundled

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/logging"
	"github.com/dshills/keyed/internal/platform"
	"github.com/dshills/keyed/internal/plugin"
)

// AppLauncherID is the id of the application launcher plugin.
const AppLauncherID = "com.keyed.app-launcher"

// CategoryApplications groups application entries.
const CategoryApplications = "Applications"

func appLauncherStartup(deps Deps, logger *logging.Logger) plugin.Hook {
	log := logging.OrNull(logger).WithField("plugin", AppLauncherID)
	return func(ctx context.Context) error {
		if deps.API.System == nil {
			return errors.New("application listing is not available")
		}
		if deps.Dynamic == nil {
			return errors.New("dynamic registration is not available")
		}
		apps, err := deps.API.System.Applications(ctx)
		if err != nil {
			return fmt.Errorf("list applications: %w", err)
		}
		log.Debug("found %d applications", len(apps))
		return deps.Dynamic.RegisterDynamicEntries(AppLauncherID, AppEntries(deps, apps))
	}
}

// AppEntries builds one no-view entry per application.
func AppEntries(deps Deps, apps []platform.Application) []command.Entry {
	entries := make([]command.Entry, 0, len(apps))
	for _, app := range apps {
		key := app.Key()
		lower := strings.ToLower(app.Name)
		keywords := append([]string{lower}, strings.Fields(lower)...)
		keywords = append(keywords, "app", "application", "launch")

		entries = append(entries, command.Entry{
			ID:          "app." + key,
			CommandName: "launch-" + key,
			Title:       app.Name,
			Subtitle:    "Application",
			Description: "Launch " + app.Name,
			Category:    CategoryApplications,
			Keywords:    keywords,
			Execute:     command.NoViewCommand{Run: launchApp(deps, app)},
		})
	}
	return entries
}

func launchApp(deps Deps, app platform.Application) func(context.Context, execctx.Context) error {
	return func(ctx context.Context, env execctx.Context) error {
		if deps.API.Shell == nil {
			return errors.New("shell is not available")
		}
		id := env.Environment.Platform
		if id == "" {
			id = deps.Platform
		}
		program, args, err := platform.LaunchCommand(id, app)
		if err != nil {
			return fmt.Errorf("failed to launch %s: %w", app.Name, err)
		}
		if err := deps.API.Shell.Execute(ctx, program, args...); err != nil {
			return fmt.Errorf("failed to launch %s: %w", app.Name, err)
		}
		return nil
	}
}
