// Package platform defines the host capability surface that plugins use to
// reach the operating system, plus a desktop implementation of it.
package platform

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"unicode"

	"github.com/dshills/keyed/internal/execctx"
)

// Platform identifiers handed to commands through the execution context.
const (
	MacOS   = "macos"
	Linux   = "linux"
	Windows = "windows"
)

// ErrUnsupported is returned for operations with no implementation on the
// current platform.
var ErrUnsupported = errors.New("unsupported on this platform")

// Current maps runtime.GOOS to a platform identifier.
func Current() string {
	return fromGOOS(runtime.GOOS)
}

func fromGOOS(goos string) string {
	switch goos {
	case "darwin":
		return MacOS
	case "windows":
		return Windows
	case "linux":
		return Linux
	default:
		return goos
	}
}

// Severity is the level of a user notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a name to a Severity, defaulting to info.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case "success":
		return SeveritySuccess
	case "error":
		return SeverityError
	default:
		return SeverityInfo
	}
}

// Application is an installed application.
type Application struct {
	Name     string
	Path     string
	BundleID string // macOS CFBundleIdentifier or the .desktop file id
	Exec     string // Linux Exec line with field codes removed
}

// Key returns a stable identifier for the application: its bundle id when
// known, otherwise a slug of the name.
func (a Application) Key() string {
	if a.BundleID != "" {
		return a.BundleID
	}
	return Slug(a.Name)
}

// Slug lowercases s and replaces runs of non-alphanumerics with '-'.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// System lists installed applications.
type System interface {
	Applications(ctx context.Context) ([]Application, error)
}

// Clipboard reads and writes plain text.
type Clipboard interface {
	ReadText() (string, error)
	WriteText(text string) error
}

// Shell runs external programs.
type Shell interface {
	Execute(ctx context.Context, program string, args ...string) error
}

// Notifications surfaces a message to the user.
type Notifications interface {
	Show(message string, severity Severity)
}

// Environment returns the current execution environment.
type Environment interface {
	Get() execctx.Context
}

// API is the full capability surface available to command handlers.
type API struct {
	System        System
	Clipboard     Clipboard
	Shell         Shell
	Notifications Notifications
	Environment   Environment
}
