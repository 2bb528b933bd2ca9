package plugin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ParseCommandSpec parses a "name[:mode]" command declaration. The mode
// defaults to no-view and the handler to "commands/<name>".
func ParseCommandSpec(s string) (CommandManifest, error) {
	name, mode, found := strings.Cut(strings.TrimSpace(s), ":")
	if name == "" {
		return CommandManifest{}, fmt.Errorf("command %q: missing name", s)
	}
	m := ModeNoView
	if found {
		m = Mode(mode)
		if !m.Valid() {
			return CommandManifest{}, fmt.Errorf("command %q: invalid mode %q", s, mode)
		}
	}

	display := cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ").Replace(name))
	return CommandManifest{
		Name:        name,
		DisplayName: display,
		Description: display,
		Mode:        m,
		Handler:     "commands/" + name,
	}, nil
}

// Scaffold renders the default manifest for pluginID with cmds appended.
// The result is indented JSON and has passed Validate.
func Scaffold(pluginID string, cmds []CommandManifest) ([]byte, error) {
	data, err := json.Marshal(CreateDefaultManifest(pluginID))
	if err != nil {
		return nil, err
	}
	for _, cmd := range cmds {
		data, err = sjson.SetBytes(data, "commands.-1", cmd)
		if err != nil {
			return nil, fmt.Errorf("add command %s: %w", cmd.Name, err)
		}
	}
	data = pretty.Pretty(data)
	if _, err := Validate(data, pluginID); err != nil {
		return nil, err
	}
	return data, nil
}

// HandlerTemplate returns a starter Lua module for cmd.
func HandlerTemplate(cmd CommandManifest) string {
	var body string
	switch cmd.Mode {
	case ModeView:
		body = fmt.Sprintf(`function M.default(ctx)
  return {
    title = %q,
    body = "Theme: " .. ctx.environment.theme.name,
    items = { "First item", "Second item" },
  }
end
`, cmd.DisplayName)
	case ModeInline:
		body = fmt.Sprintf(`local prefix = %q

function M.shouldActivate(query)
  return query:find(prefix, 1, true) == 1
end

function M.default(ctx, query)
  return { title = query:sub(#prefix + 1) }
end
`, cmd.Name+" ")
	default:
		body = fmt.Sprintf(`function M.default(ctx)
  keyed.notify(%q .. " ran on " .. ctx.environment.platform, "success")
end
`, cmd.DisplayName)
	}
	return "local M = {}\n\n" + body + "\nreturn M\n"
}
