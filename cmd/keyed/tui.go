package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/dshills/keyed/internal/config"
	"github.com/dshills/keyed/internal/tui"
)

func newTUICommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the command palette in the terminal",
		Long: `Open the interactive palette. Type to filter, use the arrow and page
keys to move, Enter to run and Esc to go back or quit. Logs are written to
keyed.log in the data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logPath := filepath.Join(config.DataDir(), "keyed.log")
			if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
				return err
			}
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}
			defer logFile.Close()

			l, err := opts.openLauncher(cmd.Context(), launcherSetup{logOutput: logFile, watch: true})
			if err != nil {
				return err
			}
			defer l.Close()

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("failed to create terminal: %w", err)
			}
			return tui.New(l, screen).Run(cmd.Context())
		},
	}
}
