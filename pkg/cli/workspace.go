package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/pagebuilder/pkg/document"
	"github.com/dshills/pagebuilder/pkg/workspace"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newWorkspaceCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Manage saved editor layouts",
	}

	cmd.AddCommand(newWorkspaceListCommand(a))
	cmd.AddCommand(newWorkspaceNewCommand(a))
	cmd.AddCommand(newWorkspaceShowCommand(a))
	cmd.AddCommand(newWorkspaceResetCommand(a))
	cmd.AddCommand(newWorkspaceDeleteCommand(a))

	return cmd
}

func newWorkspaceListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved workspaces",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layouts, err := a.workspaces(cmd.Context())
			if err != nil {
				return err
			}
			docs, err := layouts.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list workspaces: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintln(out, "No workspaces saved")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-24s  %6s  %s\n", "ID", "NAME", "PANELS", "UPDATED")
			for _, l := range docs {
				fmt.Fprintf(out, "%-36s  %-24s  %6d  %s\n",
					l.ID, truncate(l.Name, 24), len(l.Panels), humanize.Time(time.UnixMilli(l.UpdatedAt)))
			}
			return nil
		},
	}
}

func newWorkspaceNewCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create a workspace with the default layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layouts, err := a.workspaces(cmd.Context())
			if err != nil {
				return err
			}
			ws, err := a.openWorkspace(workspace.Default(args[0]))
			if err != nil {
				return err
			}
			layout := ws.Layout()
			if err := layouts.Save(cmd.Context(), layout); err != nil {
				return fmt.Errorf("failed to save workspace: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), layout.ID)
			return nil
		},
	}
}

func newWorkspaceShowCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a workspace layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := a.loadWorkspace(cmd, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(layout, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode workspace: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "Workspace: %s (%s)\n", layout.Name, layout.ID)
			fmt.Fprintf(out, "Theme: %s, accent %s\n", layout.Theme.Mode, layout.Theme.Accent)
			fmt.Fprintf(out, "Canvas: %gx%g grid %d\n", layout.Canvas.Width, layout.Canvas.Height, layout.Canvas.GridSize)
			for _, p := range layout.Panels {
				state := "visible"
				switch {
				case !p.Visible:
					state = "hidden"
				case p.Collapsed:
					state = "collapsed"
				}
				fmt.Fprintf(out, "\n%s [%s] at (%g,%g) %gx%g %s\n",
					p.Title, p.ID, p.Position.X, p.Position.Y, p.Width, p.Height, state)
				for _, s := range p.Sections {
					fmt.Fprintf(out, "  - %s (%s)", s.Title, s.Kind)
					if len(s.Palette) > 0 {
						fmt.Fprintf(out, " %d kinds", len(s.Palette))
					}
					if s.Collapsed {
						fmt.Fprint(out, " collapsed")
					}
					fmt.Fprintln(out)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored document as JSON")
	return cmd
}

func newWorkspaceResetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <id>",
		Short: "Restore a workspace's default panels, theme and canvas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, err := a.loadWorkspace(cmd, args[0])
			if err != nil {
				return err
			}
			ws, err := a.openWorkspace(layout)
			if err != nil {
				return err
			}
			ws.Reset()

			layouts, err := a.workspaces(cmd.Context())
			if err != nil {
				return err
			}
			if err := layouts.Save(cmd.Context(), ws.Layout()); err != nil {
				return fmt.Errorf("failed to save workspace: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workspace %q reset\n", layout.Name)
			return nil
		},
	}
}

func newWorkspaceDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete workspaces",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			layouts, err := a.workspaces(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := layouts.Delete(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to delete workspace %s: %w", id, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d workspace(s)\n", len(args))
			return nil
		},
	}
}

func (a *app) openWorkspace(layout *workspace.Layout) (*workspace.Workspace, error) {
	cat, err := a.kinds()
	if err != nil {
		return nil, err
	}
	return workspace.New(layout,
		workspace.WithPanelBounds(a.cfg.PanelBounds()),
		workspace.WithCatalog(cat),
		workspace.WithLogger(a.logger),
	), nil
}

func (a *app) loadWorkspace(cmd *cobra.Command, id string) (*workspace.Layout, error) {
	layouts, err := a.workspaces(cmd.Context())
	if err != nil {
		return nil, err
	}
	layout, ok := layouts.Load(cmd.Context(), id)
	if !ok {
		return nil, fmt.Errorf("workspace %s: %w", id, document.ErrNotFound)
	}
	return layout, nil
}
