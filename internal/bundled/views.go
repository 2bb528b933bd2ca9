package bundled

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/platform"
	"github.com/dshills/keyed/internal/plugin"
	"github.com/dshills/keyed/internal/theme"
)

func showThemes(themes theme.Provider) command.Component {
	return command.ComponentFunc(func(_ context.Context, env execctx.Context) (*command.Document, error) {
		if themes == nil {
			return nil, errors.New("themes are not available")
		}
		current := env.Environment.Theme.ID
		doc := &command.Document{Title: "Themes"}
		for _, t := range themes.List() {
			item := command.Item{Title: t.Name, Subtitle: t.ID + " (" + t.Type + ")"}
			if t.ID == current {
				item.Accessory = "current"
			}
			doc.Items = append(doc.Items, item)
		}
		return doc, nil
	})
}

func managePlugins(plugins PluginLister) command.Component {
	return command.ComponentFunc(func(context.Context, execctx.Context) (*command.Document, error) {
		if plugins == nil {
			return nil, errors.New("plugin registry is not available")
		}
		infos := plugins.Infos()
		doc := &command.Document{
			Title: "Plugins",
			Body:  fmt.Sprintf("%d plugins registered", len(infos)),
		}
		for _, info := range infos {
			doc.Items = append(doc.Items, command.Item{
				Title:     info.Name,
				Subtitle:  fmt.Sprintf("%s v%s (%s)", info.ID, info.Version, info.Source),
				Accessory: pluginState(info),
			})
		}
		return doc, nil
	})
}

func pluginState(info plugin.Info) string {
	state := info.Status.State.String()
	if info.Status.State == plugin.StateError && info.Status.Error != "" {
		state += ": " + info.Status.Error
	}
	if !info.Enabled {
		state += ", disabled"
	}
	return state
}

func generateUUID(api platform.API) func(context.Context, execctx.Context) error {
	return func(context.Context, execctx.Context) error {
		if api.Clipboard == nil {
			return errors.New("clipboard is not available")
		}
		id := uuid.NewString()
		if err := api.Clipboard.WriteText(id); err != nil {
			return fmt.Errorf("copy uuid: %w", err)
		}
		if api.Notifications != nil {
			api.Notifications.Show("Copied "+id, platform.SeveritySuccess)
		}
		return nil
	}
}
