package bundled

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/execctx"
	"github.com/dshills/keyed/internal/platform"
)

// shellAction maps a platform id to the program and arguments to run.
type shellAction map[string][]string

var systemActions = map[string]shellAction{
	"lock-screen": {
		platform.MacOS:   {"open", "-a", "ScreenSaverEngine"},
		platform.Linux:   {"loginctl", "lock-session"},
		platform.Windows: {"rundll32.exe", "user32.dll,LockWorkStation"},
	},
	"sleep": {
		platform.MacOS:   {"pmset", "sleepnow"},
		platform.Linux:   {"systemctl", "suspend"},
		platform.Windows: {"rundll32.exe", "powrprof.dll,SetSuspendState", "0,1,0"},
	},
	"logout": {
		platform.MacOS:   {"osascript", "-e", `tell application "System Events" to log out`},
		platform.Linux:   {"loginctl", "terminate-user", os.Getenv("USER")},
		platform.Windows: {"shutdown", "/l"},
	},
	"restart": {
		platform.MacOS:   {"sudo", "shutdown", "-r", "now"},
		platform.Linux:   {"systemctl", "reboot"},
		platform.Windows: {"shutdown", "/r", "/t", "0"},
	},
	"shutdown": {
		platform.MacOS:   {"sudo", "shutdown", "-h", "now"},
		platform.Linux:   {"systemctl", "poweroff"},
		platform.Windows: {"shutdown", "/s", "/t", "0"},
	},
}

var volumeActions = map[string]shellAction{
	"volume-up": {
		platform.MacOS: {"osascript", "-e", "set volume output volume (output volume of (get volume settings) +10)"},
		platform.Linux: {"pactl", "set-sink-volume", "@DEFAULT_SINK@", "+10%"},
	},
	"volume-down": {
		platform.MacOS: {"osascript", "-e", "set volume output volume (output volume of (get volume settings) -10)"},
		platform.Linux: {"pactl", "set-sink-volume", "@DEFAULT_SINK@", "-10%"},
	},
	"volume-set-75": {
		platform.MacOS: {"osascript", "-e", "set volume output volume 75"},
		platform.Linux: {"pactl", "set-sink-volume", "@DEFAULT_SINK@", "75%"},
	},
	"volume-mute-toggle": {
		platform.MacOS: {"osascript", "-e", "set volume output muted not (output muted of (get volume settings))"},
		platform.Linux: {"pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle"},
	},
}

func shellModule(deps Deps, action shellAction) *command.Module {
	return &command.Module{
		Run: func(ctx context.Context, env execctx.Context) error {
			if deps.API.Shell == nil {
				return errors.New("shell is not available")
			}
			id := env.Environment.Platform
			if id == "" {
				id = deps.Platform
			}
			argv, ok := action[id]
			if !ok {
				return fmt.Errorf("platform %q: %w", id, platform.ErrUnsupported)
			}
			return deps.API.Shell.Execute(ctx, argv[0], argv[1:]...)
		},
	}
}
