package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
)

const dirFlag = "dir"

var minifyFlags = map[string]cobraflags.Flag{
	dirFlag: &cobraflags.StringFlag{
		Name:  dirFlag,
		Value: "static",
		Usage: "Directory holding the CSS and JavaScript assets",
	},
}

var assetTypes = map[string]string{
	".css": "text/css",
	".js":  "text/javascript",
}

func newMinifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "minify-assets",
		Short: "Write .min.css and .min.js copies of the static assets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			written, err := minifyAssets(minifyFlags[dirFlag].GetString())
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, minifyFlags)
	return cmd
}

// minifyAssets writes a minified sibling for every CSS and JS file below dir
// and returns the paths it wrote.
func minifyAssets(dir string) ([]string, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/javascript", js.Minify)

	var written []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		mediaType, ok := assetTypes[ext]
		if !ok || strings.HasSuffix(path, ".min"+ext) {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out, err := m.Bytes(mediaType, src)
		if err != nil {
			return fmt.Errorf("minify %s: %w", path, err)
		}
		dst := strings.TrimSuffix(path, ext) + ".min" + ext
		if err := os.WriteFile(dst, out, 0o644); err != nil {
			return err
		}
		written = append(written, dst)
		return nil
	})
	return written, err
}
