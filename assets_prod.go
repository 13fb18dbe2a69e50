//go:build release

package main

import (
	"embed"
	"fmt"
	"io/fs"

	"dbsite/internal/config"
)

//go:embed all:templates
var embedTemplatesFS embed.FS

//go:embed all:static
var embedStaticFS embed.FS

// loadAssets returns the assets embedded at build time. The configured
// directories are ignored.
func loadAssets(_ config.ServerConfig) (fs.FS, fs.FS, error) {
	templatesFS, err := fs.Sub(embedTemplatesFS, "templates")
	if err != nil {
		return nil, nil, fmt.Errorf("embedded templates: %w", err)
	}
	staticFS, err := fs.Sub(embedStaticFS, "static")
	if err != nil {
		return nil, nil, fmt.Errorf("embedded static files: %w", err)
	}
	return templatesFS, staticFS, nil
}
