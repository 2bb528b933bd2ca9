package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/keyed/internal/command"
	"github.com/dshills/keyed/internal/config"
)

func newListCommand(opts *globalOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every available command",
		Long:  `List every command of every enabled plugin, grouped by category.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := opts.openLauncher(cmd.Context(), launcherSetup{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer l.Close()

			res := l.Search(cmd.Context(), "")
			if category != "" {
				res.Groups = filterGroups(res.Groups, category)
			}
			printGroups(cmd.OutOrStdout(), res.Groups)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list commands in this category")
	return cmd
}

func newSearchCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search commands the way the palette does",
		Long: `Search commands by title, subtitle and keywords. Inline commands are
evaluated against the query first and an active one is shown on top.`,
		Example: `  # Find the lock command
  keyed search lock

  # Evaluate an expression inline
  keyed search "12 * 4"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := opts.openLauncher(cmd.Context(), launcherSetup{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer l.Close()

			printResults(cmd.OutOrStdout(), l.Search(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	}
}

func newRunCommand(opts *globalOptions) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "run <entry-id>",
		Short: "Run a command",
		Long: `Run a command by its entry id, as shown by "keyed list". Views are
printed as text. The command waits until a no-view command finishes.`,
		Example: `  keyed run com.keyed.system-ops.lock-screen
  keyed run com.keyed.calculator.calculate --query "2^10"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			l, err := opts.openLauncher(cmd.Context(), launcherSetup{
				logOutput: cmd.ErrOrStderr(),
				notify:    notifier(out),
			})
			if err != nil {
				return err
			}
			defer l.Close()

			ctx := cmd.Context()
			if query != "" {
				ctx = command.WithQuery(ctx, query)
			}
			res, err := l.Run(ctx, args[0])
			if err != nil {
				return err
			}
			printDocument(out, res.Document)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "query passed to an inline command")
	return cmd
}

func newPluginsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List plugins and their load status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := opts.openLauncher(cmd.Context(), launcherSetup{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer l.Close()

			printPlugins(cmd.OutOrStdout(), l.Plugins().Infos())
			return nil
		},
	}
}

func newConfigCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after the file, environment and flags are applied.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			data, err := cfg.Encode()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", configSource(opts.configPath), data)
			return nil
		},
	}
}

func configSource(path string) string {
	if path == "" {
		return config.Path()
	}
	return path
}
