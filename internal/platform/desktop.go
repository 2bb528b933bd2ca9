package platform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/dshills/keyed/internal/logging"
)

// NotifySink receives notifications after they are logged.
type NotifySink func(message string, severity Severity)

// Desktop implements the capability surface for the local machine.
type Desktop struct {
	logger  *logging.Logger
	appDirs []string
	goos    string

	mu   sync.RWMutex
	sink NotifySink
}

// Option configures a Desktop.
type Option func(*Desktop)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Desktop) { d.logger = l }
}

// WithAppDirs overrides the directories scanned for applications.
func WithAppDirs(dirs ...string) Option {
	return func(d *Desktop) { d.appDirs = dirs }
}

// WithNotifySink sets where notifications are forwarded.
func WithNotifySink(sink NotifySink) Option {
	return func(d *Desktop) { d.sink = sink }
}

// NewDesktop creates a desktop adapter for the running OS.
func NewDesktop(opts ...Option) *Desktop {
	d := &Desktop{goos: runtime.GOOS}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.OrNull(d.logger).WithComponent("platform")
	if d.appDirs == nil {
		d.appDirs = defaultAppDirs(d.goos)
	}
	return d
}

// API bundles the desktop adapter with env into an API value.
func (d *Desktop) API(env Environment) API {
	return API{
		System:        d,
		Clipboard:     d,
		Shell:         d,
		Notifications: d,
		Environment:   env,
	}
}

// SetNotifySink replaces the notification sink.
func (d *Desktop) SetNotifySink(sink NotifySink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
}

// Applications lists installed applications for the current OS.
func (d *Desktop) Applications(ctx context.Context) ([]Application, error) {
	switch d.goos {
	case "darwin":
		return scanBundles(ctx, d.appDirs)
	case "linux", "freebsd", "openbsd", "netbsd":
		return scanDesktopEntries(ctx, d.appDirs)
	default:
		return nil, ErrUnsupported
	}
}

// ReadText returns the clipboard contents.
func (d *Desktop) ReadText() (string, error) {
	return clipboard.ReadAll()
}

// WriteText replaces the clipboard contents.
func (d *Desktop) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// Execute runs program with args and waits for it to exit.
func (d *Desktop) Execute(ctx context.Context, program string, args ...string) error {
	cmd := exec.CommandContext(ctx, program, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", program, err, msg)
		}
		return fmt.Errorf("%s: %w", program, err)
	}
	d.logger.Debug("executed %s %s", program, strings.Join(args, " "))
	return nil
}

// Show logs the message and forwards it to the sink.
func (d *Desktop) Show(message string, severity Severity) {
	switch severity {
	case SeverityError:
		d.logger.Error("%s", message)
	default:
		d.logger.Info("%s", message)
	}

	d.mu.RLock()
	sink := d.sink
	d.mu.RUnlock()
	if sink != nil {
		sink(message, severity)
	}
}

// LaunchCommand returns the program and arguments that open app.
func LaunchCommand(platformID string, app Application) (string, []string, error) {
	switch platformID {
	case MacOS:
		return "open", []string{"-a", app.Path}, nil
	case Linux:
		if app.Exec == "" {
			return "", nil, fmt.Errorf("%s: no Exec line", app.Name)
		}
		return "sh", []string{"-c", app.Exec}, nil
	case Windows:
		return "cmd", []string{"/C", "start", "", app.Path}, nil
	default:
		return "", nil, ErrUnsupported
	}
}

func defaultAppDirs(goos string) []string {
	home, _ := os.UserHomeDir()
	switch goos {
	case "darwin":
		dirs := []string{"/Applications", "/System/Applications"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Applications"))
		}
		return dirs
	default:
		var dirs []string
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" && home != "" {
			dataHome = filepath.Join(home, ".local", "share")
		}
		if dataHome != "" {
			dirs = append(dirs, filepath.Join(dataHome, "applications"))
		}
		dataDirs := os.Getenv("XDG_DATA_DIRS")
		if dataDirs == "" {
			dataDirs = "/usr/local/share:/usr/share"
		}
		for _, d := range filepath.SplitList(dataDirs) {
			dirs = append(dirs, filepath.Join(d, "applications"))
		}
		return dirs
	}
}
