// Package cli implements the dbsite command line: the web server and the
// maintenance commands that share its configuration.
package cli

import (
	"io/fs"

	"dbsite/internal/config"
	applog "dbsite/internal/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// AssetLoader returns the template and static file systems for the server.
type AssetLoader func(cfg config.ServerConfig) (templates fs.FS, static fs.FS, err error)

type app struct {
	configPath string
	assets     AssetLoader
}

// NewRootCommand builds the dbsite command tree.
func NewRootCommand(assets AssetLoader) *cobra.Command {
	a := &app{assets: assets}

	root := &cobra.Command{
		Use:           "dbsite",
		Short:         "A personal blog with categories, tags and moderated comments",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(newServeCommand(a))
	root.AddCommand(newCreateAdminCommand(a))
	root.AddCommand(newSeedCommand(a))
	root.AddCommand(newMinifyCommand())
	return root
}

// Execute runs the root command.
func Execute(assets AssetLoader) error {
	return NewRootCommand(assets).Execute()
}

// setup loads the configuration and builds the logger.
func (a *app) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := applog.NewLogger(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
