package command

import (
	"errors"
	"fmt"

	"github.com/dshills/keyed/internal/plugin"
)

// Sentinel errors, matched with errors.Is against the typed errors below.
var (
	ErrCommandNotFound  = errors.New("command not found")
	ErrUnsupportedMode  = errors.New("unsupported command mode")
	ErrContract         = errors.New("handler contract violated")
	ErrModuleNotFound   = errors.New("handler module not found")
	ErrExecutionFailed  = errors.New("command failed to execute")
	ErrEntryNotFound    = errors.New("entry not found")
	ErrNilExecutor      = errors.New("entry has no executor")
	ErrEmptyCommandName = errors.New("command name is empty")
)

// NotFoundError reports a command name missing from a plugin's manifest.
type NotFoundError struct {
	PluginID string
	Command  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Command %s not found in plugin %s", e.Command, e.PluginID)
}

// Is matches ErrCommandNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrCommandNotFound
}

// UnsupportedModeError reports a manifest mode outside the known set.
type UnsupportedModeError struct {
	Mode plugin.Mode
}

func (e *UnsupportedModeError) Error() string {
	return fmt.Sprintf("Unsupported command mode: %s", e.Mode)
}

// Is matches ErrUnsupportedMode.
func (e *UnsupportedModeError) Is(target error) bool {
	return target == ErrUnsupportedMode
}

// ContractError reports a handler module that lacks a required export.
type ContractError struct {
	Command string
	Mode    plugin.Mode
	Export  string // "default" or "shouldActivate"
}

func (e *ContractError) Error() string {
	switch {
	case e.Export == ExportShouldActivate:
		return fmt.Sprintf("Inline command %s must export a shouldActivate function", e.Command)
	case e.Mode == plugin.ModeNoView:
		return fmt.Sprintf("Command %s must export a default function", e.Command)
	case e.Mode == plugin.ModeInline:
		return fmt.Sprintf("Inline command %s must export a default component", e.Command)
	default:
		return fmt.Sprintf("Command %s must export a default component", e.Command)
	}
}

// Is matches ErrContract.
func (e *ContractError) Is(target error) bool {
	return target == ErrContract
}

// ExecutionError is a failed command execution.
type ExecutionError struct {
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("Command %s failed to execute", e.Command)
	}
	return fmt.Sprintf("Command %s failed to execute: %v", e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is matches ErrExecutionFailed.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecutionFailed
}

// PanicError wraps a value recovered from plugin code.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
