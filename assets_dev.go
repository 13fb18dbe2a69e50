//go:build !release

package main

import (
	"io/fs"
	"os"

	"dbsite/internal/config"
)

// loadAssets serves live templates and static files from the configured
// directories, so edits show up without a rebuild.
func loadAssets(cfg config.ServerConfig) (fs.FS, fs.FS, error) {
	return os.DirFS(cfg.TemplatesDir), os.DirFS(cfg.StaticDir), nil
}
