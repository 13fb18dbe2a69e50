package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Media.Backend)
	assert.Equal(t, "/media", cfg.Media.URLPrefix)
	assert.Equal(t, int64(10<<20), cfg.Media.MaxUploadSize)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.IsProd())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dbsite.yaml")
	content := `
server:
  addr: ":9000"
database:
  driver: sqlite
  dsn: /tmp/blog.db
media:
  root: /srv/media
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("DBSITE_SERVER_ADDR", ":9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.Addr, "env should override file")
	assert.Equal(t, "/tmp/blog.db", cfg.Database.DSN)
	assert.Equal(t, "/srv/media", cfg.Media.Root)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("DBSITE_DATABASE_DRIVER", "oracle")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		t.Setenv("DBSITE_MEDIA_BACKEND", "s3")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("prod with default secret", func(t *testing.T) {
		t.Setenv("DBSITE_SERVER_ENV", "prod")
		_, err := Load("")
		assert.Error(t, err)
	})
}
