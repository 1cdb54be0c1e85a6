// Package config loads client settings from ~/.elearn/config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/elearn/internal/client"
	"gopkg.in/yaml.v3"
)

// EnvAPIURL overrides the API base URL.
const EnvAPIURL = "ELEARN_API_URL"

const fileName = "config.yaml"

// Config is the resolved client configuration.
type Config struct {
	APIURL   string        `yaml:"api_url"`
	Timeout  time.Duration `yaml:"timeout"`
	Cache    bool          `yaml:"cache"`
	CacheDir string        `yaml:"cache_dir"`

	// StateDir holds the config file and the persisted session.
	StateDir string `yaml:"-"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		APIURL:  client.DefaultServerURL,
		Timeout: client.DefaultConfig().Timeout,
	}
}

// DefaultStateDir returns ~/.elearn.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".elearn"), nil
}

// Load reads the config file at path over the defaults. An empty path means
// config.yaml in stateDir, which may be absent. An explicit path must exist.
func Load(path, stateDir string) (Config, error) {
	cfg := Default()

	if stateDir == "" {
		dir, err := DefaultStateDir()
		if err != nil {
			return cfg, err
		}
		stateDir = dir
	}
	cfg.StateDir = stateDir

	explicit := path != ""
	if !explicit {
		path = filepath.Join(stateDir, fileName)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			log.Debug().Str("path", path).Msg("no config file")
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Keys present but empty fall back to defaults
	def := Default()
	if cfg.APIURL == "" {
		cfg.APIURL = def.APIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	log.Debug().Str("path", path).Str("api_url", cfg.APIURL).Msg("loaded config file")

	return cfg, nil
}

// WithAPIURL returns cfg with the API URL replaced when url is set. Callers
// pass the flag or ELEARN_API_URL value here so it wins over the file.
func (c Config) WithAPIURL(url string) Config {
	if url != "" {
		c.APIURL = url
	}
	return c
}

// Client returns the HTTP client configuration.
func (c Config) Client(debug bool, userAgent string) client.Config {
	cacheDir := c.CacheDir
	if c.Cache && cacheDir != "" && !filepath.IsAbs(cacheDir) && c.StateDir != "" {
		cacheDir = filepath.Join(c.StateDir, cacheDir)
	}

	return client.Config{
		ServerURL: c.APIURL,
		Timeout:   c.Timeout,
		Debug:     debug,
		UserAgent: userAgent,
		Cache:     c.Cache,
		CacheDir:  cacheDir,
	}
}
