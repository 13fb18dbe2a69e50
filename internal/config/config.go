// Package config loads runtime settings from an optional YAML file and
// DBSITE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Media    MediaConfig    `mapstructure:"media"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Env             string        `mapstructure:"env"` // "dev" or "prod"
	SessionSecret   string        `mapstructure:"session_secret"`
	SecureCookies   bool          `mapstructure:"secure_cookies"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TemplatesDir    string        `mapstructure:"templates_dir"`
	StaticDir       string        `mapstructure:"static_dir"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	DSN    string `mapstructure:"dsn"`
}

type MediaConfig struct {
	Backend       string   `mapstructure:"backend"` // "local" or "s3"
	Root          string   `mapstructure:"root"`
	URLPrefix     string   `mapstructure:"url_prefix"`
	MaxUploadSize int64    `mapstructure:"max_upload_size"`
	S3            S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	PublicURL string `mapstructure:"public_url"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

const defaultSessionSecret = "secret-key-should-be-changed"

// Load reads the config file at path (if non-empty) and overlays environment
// variables such as DBSITE_SERVER_ADDR or DBSITE_DATABASE_DSN.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DBSITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.env", "dev")
	v.SetDefault("server.session_secret", defaultSessionSecret)
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.templates_dir", "templates")
	v.SetDefault("server.static_dir", "static")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "dbsite.db")

	v.SetDefault("media.backend", "local")
	v.SetDefault("media.root", "media")
	v.SetDefault("media.url_prefix", "/media")
	v.SetDefault("media.max_upload_size", 10<<20)
	v.SetDefault("media.s3.endpoint", "")
	v.SetDefault("media.s3.region", "us-east-1")
	v.SetDefault("media.s3.access_key", "")
	v.SetDefault("media.s3.secret_key", "")
	v.SetDefault("media.s3.bucket", "")
	v.SetDefault("media.s3.public_url", "")

	v.SetDefault("log.level", "")
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Media.Backend {
	case "local":
		if c.Media.Root == "" {
			return errors.New("media.root is required for the local backend")
		}
	case "s3":
		if c.Media.S3.Bucket == "" || c.Media.S3.Endpoint == "" {
			return errors.New("media.s3.endpoint and media.s3.bucket are required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown media backend %q", c.Media.Backend)
	}
	if c.IsProd() && c.Server.SessionSecret == defaultSessionSecret {
		return errors.New("server.session_secret must be set in prod")
	}
	return nil
}

// IsProd reports whether the server runs with production settings.
func (c *Config) IsProd() bool {
	return c.Server.Env == "prod"
}
