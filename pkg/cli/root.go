package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dshills/pagebuilder/pkg/catalog"
	"github.com/dshills/pagebuilder/pkg/config"
	"github.com/dshills/pagebuilder/pkg/document"
	"github.com/dshills/pagebuilder/pkg/logging"
	"github.com/dshills/pagebuilder/pkg/storage"
	"github.com/dshills/pagebuilder/pkg/workspace"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	// Version is the current version of pagebuilder
	Version = "0.1.0"
)

// Flags holds the global command line flags
type Flags struct {
	ConfigDir string
	Debug     bool
}

// app is the state shared by the subcommands of one invocation
type app struct {
	flags   Flags
	dir     string
	cfg     *config.Config
	logger  zerolog.Logger
	catalog *catalog.Registry
	kv      storage.KV
}

// NewRootCommand creates the root cobra command for pagebuilder
func NewRootCommand() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "pagebuilder",
		Short: "pagebuilder - maintain stored pages and workspaces",
		Long: `pagebuilder inspects and maintains the documents saved by the page builder:
pages (node trees) and workspaces (editor layouts). It can list, export,
import, duplicate and delete documents and replay action batches against a page.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.init(); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	cmd.PersistentFlags().BoolVar(&a.flags.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&a.flags.ConfigDir, "config-dir", "", "Configuration directory (default: ~/.pagebuilder)")

	cmd.AddCommand(newDocCommand(a))
	cmd.AddCommand(newWorkspaceCommand(a))
	cmd.AddCommand(newCatalogCommand(a))

	return cmd
}

// init resolves the config directory, loads config.yaml and sets up logging
func (a *app) init() error {
	dir, err := config.ResolveDir(a.flags.ConfigDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	a.dir = dir
	a.cfg = cfg

	opts := logging.Options{Level: cfg.Log.Level, Writer: os.Stderr}
	if a.flags.Debug {
		opts.Level = "debug"
		opts.Console = true
	}
	a.logger = logging.New(opts)
	return nil
}

func (a *app) storage(ctx context.Context) (storage.KV, error) {
	if a.kv != nil {
		return a.kv, nil
	}
	kv, err := a.cfg.OpenStorage(ctx, a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	a.logger.Debug().Str("backend", a.cfg.Storage.Backend).Str("path", a.cfg.StoragePath(a.dir)).Msg("storage opened")
	a.kv = kv
	return kv, nil
}

func (a *app) pages(ctx context.Context) (*document.Collection[*document.Page], error) {
	kv, err := a.storage(ctx)
	if err != nil {
		return nil, err
	}
	return document.Pages(kv, document.WithLogger(a.logger)), nil
}

func (a *app) workspaces(ctx context.Context) (*document.Collection[*workspace.Layout], error) {
	kv, err := a.storage(ctx)
	if err != nil {
		return nil, err
	}
	return workspace.Collection(kv, document.WithLogger(a.logger)), nil
}

func (a *app) kinds() (*catalog.Registry, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}
	cat, err := a.cfg.LoadCatalog(a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	a.catalog = cat
	return cat, nil
}

func (a *app) close() error {
	if a.kv == nil {
		return nil
	}
	err := a.kv.Close()
	a.kv = nil
	return err
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
