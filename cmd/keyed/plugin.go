package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/keyed/internal/plugin"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest|plugin-dir>...",
		Short: "Validate plugin manifests",
		Long: `Validate one or more plugin manifests. A directory argument is searched
for manifest.json, then manifest.yaml. Every problem in a manifest is
reported, along with warnings for broad permissions.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, arg := range args {
				m, err := loadManifestArg(arg)
				if err != nil {
					failed++
					fmt.Fprintln(out, errorStyle.Render("✗ "+err.Error()))
					continue
				}
				fmt.Fprintf(out, "%s %s %s (%d commands)\n",
					successStyle.Render("✓"), arg, titleStyle.Render(m.ID), len(m.Commands))
				for _, w := range plugin.ReviewPermissions(m.Permissions) {
					fmt.Fprintln(out, "  "+warnStyle.Render("! "+w))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d manifests invalid", failed, len(args))
			}
			return nil
		},
	}
}

func loadManifestArg(arg string) (*plugin.Manifest, error) {
	path := arg
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		p, err := plugin.FindManifest(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", arg, err)
		}
		path = p
	}
	return plugin.LoadManifest(path)
}

func newScaffoldCommand() *cobra.Command {
	var (
		dir      string
		commands []string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "scaffold <plugin-id>",
		Short: "Create a new plugin",
		Long: `Create a plugin directory holding a default manifest and a starter Lua
handler for each --command. Commands are written as name or name:mode,
where mode is no-view (the default), view or inline.`,
		Example: `  keyed scaffold com.me.tools --command greet --command report:view
  keyed scaffold com.me.echo --command echo:inline --dir ~/.local/share/keyed/plugins/user`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			var cmds []plugin.CommandManifest
			for _, spec := range commands {
				c, err := plugin.ParseCommandSpec(spec)
				if err != nil {
					return err
				}
				cmds = append(cmds, c)
			}

			manifest, err := plugin.Scaffold(id, cmds)
			if err != nil {
				return err
			}

			root := filepath.Join(dir, (&plugin.Manifest{ID: id}).ShortName())
			path := filepath.Join(root, plugin.ManifestJSON)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			files := map[string][]byte{path: manifest}
			for _, c := range cmds {
				files[filepath.Join(root, filepath.FromSlash(c.Handler)+".lua")] = []byte(plugin.HandlerTemplate(c))
			}
			for p, data := range files {
				if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(p, data, 0o644); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s created %s with %d commands\n",
				successStyle.Render("✓"), root, len(cmds))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to create the plugin in")
	cmd.Flags().StringArrayVar(&commands, "command", nil, "command to add as name[:mode] (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing manifest")
	return cmd
}
