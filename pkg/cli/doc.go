package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/dshills/pagebuilder/pkg/agent"
	"github.com/dshills/pagebuilder/pkg/document"
	"github.com/dshills/pagebuilder/pkg/editor"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// ExportFlags holds flags for doc export
type ExportFlags struct {
	Output    string
	Format    string
	Clipboard bool
}

func newDocCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "doc",
		Aliases: []string{"page", "pages"},
		Short:   "Manage saved pages",
	}

	cmd.AddCommand(newDocListCommand(a))
	cmd.AddCommand(newDocNewCommand(a))
	cmd.AddCommand(newDocShowCommand(a))
	cmd.AddCommand(newDocExportCommand(a))
	cmd.AddCommand(newDocImportCommand(a))
	cmd.AddCommand(newDocDuplicateCommand(a))
	cmd.AddCommand(newDocDeleteCommand(a))
	cmd.AddCommand(newDocApplyCommand(a))

	return cmd
}

func newDocListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved pages, most recently edited first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := a.pages(cmd.Context())
			if err != nil {
				return err
			}
			docs, err := pages.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list pages: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintln(out, "No pages saved")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-24s  %6s  %s\n", "ID", "NAME", "NODES", "UPDATED")
			for _, p := range docs {
				fmt.Fprintf(out, "%-36s  %-24s  %6d  %s\n",
					p.ID, truncate(p.Name, 24), p.Count(), humanize.Time(time.UnixMilli(p.UpdatedAt)))
			}
			return nil
		},
	}
}

func newDocNewCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := a.pages(cmd.Context())
			if err != nil {
				return err
			}
			page := document.NewPage(args[0])
			if err := pages.Save(cmd.Context(), page); err != nil {
				return fmt.Errorf("failed to save page: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), page.ID)
			return nil
		},
	}
}

func newDocShowCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a page's node tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.loadPage(cmd, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(page, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode page: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "Page: %s (%s)\n", page.Name, page.ID)
			fmt.Fprintf(out, "Nodes: %d\n", page.Count())
			fmt.Fprintf(out, "Updated: %s\n\n", humanize.Time(time.UnixMilli(page.UpdatedAt)))
			fmt.Fprint(out, agent.Describe(page.Nodes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the stored document as JSON")
	return cmd
}

func newDocExportCommand(a *app) *cobra.Command {
	flags := &ExportFlags{}

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a page as a portable document",
		Long: `Export a page wrapped in a versioned envelope that doc import accepts.

Examples:
  pagebuilder doc export 3f2a... -o landing.json
  pagebuilder doc export 3f2a... --format yaml
  pagebuilder doc export 3f2a... --clipboard`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.loadPage(cmd, args[0])
			if err != nil {
				return err
			}

			var data []byte
			switch strings.ToLower(flags.Format) {
			case "", "json":
				data, err = document.Export(page, time.Now())
			case "yaml", "yml":
				data, err = document.ExportYAML(page, time.Now())
			default:
				return fmt.Errorf("unsupported format %q (use json or yaml)", flags.Format)
			}
			if err != nil {
				return fmt.Errorf("failed to export page: %w", err)
			}

			if flags.Clipboard {
				if err := clipboard.WriteAll(string(data)); err != nil {
					return fmt.Errorf("failed to copy to clipboard: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Copied %s to clipboard\n", humanize.Bytes(uint64(len(data))))
				return nil
			}

			if flags.Output != "" {
				if err := os.WriteFile(flags.Output, data, 0644); err != nil {
					return fmt.Errorf("failed to write output file: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %q to %s\n", page.Name, flags.Output)
				return nil
			}

			out := cmd.OutOrStdout()
			if _, err := out.Write(data); err != nil {
				return err
			}
			if len(data) > 0 && data[len(data)-1] != '\n' {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&flags.Format, "format", "json", "Export format: json or yaml")
	cmd.Flags().BoolVar(&flags.Clipboard, "clipboard", false, "Copy the export to the system clipboard")
	return cmd
}

func newDocImportCommand(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import an exported page under a new id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			page, err := document.ImportPage(data, a.cfg.Editor.MaxDepth, time.Now())
			if err != nil {
				return fmt.Errorf("failed to import page: %w", err)
			}
			if name != "" {
				page.Name = name
			}

			pages, err := a.pages(cmd.Context())
			if err != nil {
				return err
			}
			if err := pages.Save(cmd.Context(), page); err != nil {
				return fmt.Errorf("failed to save page: %w", err)
			}
			a.logger.Info().Str("page", page.ID).Int("nodes", page.Count()).Msg("page imported")
			fmt.Fprintln(cmd.OutOrStdout(), page.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name for the imported page")
	return cmd
}

func newDocDuplicateCommand(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:     "duplicate <id>",
		Aliases: []string{"dup", "cp"},
		Short:   "Copy a page under a new id",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := a.pages(cmd.Context())
			if err != nil {
				return err
			}
			dup, err := pages.Duplicate(cmd.Context(), args[0], name)
			if err != nil {
				return fmt.Errorf("failed to duplicate page: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dup.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name for the copy (default: \"<name> (copy)\")")
	return cmd
}

func newDocDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete pages",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := a.pages(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := pages.Delete(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to delete page %s: %w", id, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d page(s)\n", len(args))
			return nil
		},
	}
}

func newDocApplyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <id> <file|->",
		Short: "Apply an action batch to a page",
		Long: `Apply a batch of structural actions to a saved page and save it.

The input is read the same way an assistant reply is: a JSON object with
"actions" (and optionally "explanation"), a bare JSON array of actions, or
free text containing either. Actions that cannot be applied are reported
and skipped; the rest are applied as one change.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.loadPage(cmd, args[0])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			resp, err := agent.ParseResponse(string(data))
			if err != nil {
				return fmt.Errorf("failed to parse actions: %w", err)
			}

			cat, err := a.kinds()
			if err != nil {
				return err
			}
			pages, err := a.pages(cmd.Context())
			if err != nil {
				return err
			}
			ed, err := editor.New(editor.Options{
				Catalog:       cat,
				Page:          page,
				Pages:         pages,
				MaxDepth:      a.cfg.Editor.MaxDepth,
				Bounds:        a.cfg.CanvasBounds(),
				AutosaveDelay: a.cfg.Editor.AutosaveDelay,
				Logger:        &a.logger,
			})
			if err != nil {
				return err
			}

			res, applyErr := ed.ApplyActions(resp.Actions)
			if err := ed.Close(cmd.Context()); err != nil {
				return fmt.Errorf("failed to save page: %w", err)
			}
			if applyErr != nil {
				return applyErr
			}

			out := cmd.OutOrStdout()
			if resp.Explanation != "" {
				fmt.Fprintln(out, resp.Explanation)
			}
			fmt.Fprintln(out, res.Summary())
			for _, s := range res.Skipped {
				fmt.Fprintf(out, "  skipped #%d %s: %v\n", s.Index, s.Action, s.Err)
			}
			for _, r := range resp.Rejected {
				fmt.Fprintf(out, "  rejected #%d: %s\n", r.Index, strings.Join(r.Errors, "; "))
			}
			return nil
		},
	}
}

func (a *app) loadPage(cmd *cobra.Command, id string) (*document.Page, error) {
	pages, err := a.pages(cmd.Context())
	if err != nil {
		return nil, err
	}
	page, ok := pages.Load(cmd.Context(), id)
	if !ok {
		return nil, fmt.Errorf("page %s: %w", id, document.ErrNotFound)
	}
	return page, nil
}

// readInput reads path, or stdin when path is "-"
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
