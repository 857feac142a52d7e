// Package app wires the load pipeline: settings and cache paths, the
// concurrent fetch run (download, verify, extract), and the per-sample
// prepare step that turns raw downloads into dataset directories.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Policy controls when downloads and extractions run.
type Policy string

const (
	PolicyAlways  Policy = "always"
	PolicyNever   Policy = "never"
	PolicyMissing Policy = "missing"
)

func (p Policy) valid() bool {
	switch p {
	case PolicyAlways, PolicyNever, PolicyMissing:
		return true
	}
	return false
}

// EnvPrefix is the environment namespace: ST_VISIUM_DATASETS_CACHE_DIR etc.
const EnvPrefix = "ST_VISIUM_DATASETS"

const (
	defaultDownloadRetries = 3
	defaultBufferSize      = 8192
	maxAutoWorkers         = 8
)

// Settings is the resolved runtime configuration.
type Settings struct {
	CacheDir          string `mapstructure:"cache-dir"`
	DownloadPolicy    Policy `mapstructure:"download-policy"`
	ExtractPolicy     Policy `mapstructure:"extract-policy"`
	ValidateChecksums bool   `mapstructure:"validate-checksums"`
	DisableProgress   bool   `mapstructure:"disable-progress"`
	MaxWorkers        int    `mapstructure:"max-workers"`
	DownloadRetries   int    `mapstructure:"download-retries"`
	BufferSize        int    `mapstructure:"buffer-size"`

	ConfigPath string `mapstructure:"-"` // config file actually read, if any
}

// LoadSettings resolves settings from defaults, an optional YAML config file,
// and ST_VISIUM_DATASETS_* environment variables (highest precedence).
// configPath of "" means the default location under the user config dir.
func LoadSettings(configPath string) (*Settings, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("cache-dir", filepath.Join(home, ".cache", "st-visium-datasets"))
	v.SetDefault("download-policy", string(PolicyMissing))
	v.SetDefault("extract-policy", string(PolicyMissing))
	v.SetDefault("validate-checksums", true)
	v.SetDefault("disable-progress", false)
	v.SetDefault("max-workers", 0)
	v.SetDefault("download-retries", defaultDownloadRetries)
	v.SetDefault("buffer-size", defaultBufferSize)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "st-visium-datasets", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	s.ConfigPath = v.ConfigFileUsed()

	if !s.DownloadPolicy.valid() {
		return nil, fmt.Errorf("invalid download-policy: %q", s.DownloadPolicy)
	}
	if !s.ExtractPolicy.valid() {
		return nil, fmt.Errorf("invalid extract-policy: %q", s.ExtractPolicy)
	}
	if s.DownloadRetries < 1 {
		return nil, fmt.Errorf("invalid download-retries: %d", s.DownloadRetries)
	}

	// Expand ~ in cache-dir
	if strings.HasPrefix(s.CacheDir, "~/") {
		s.CacheDir = filepath.Join(home, s.CacheDir[2:])
	}

	return &s, nil
}

// Workers resolves max-workers: 0 means NumCPU capped at a sane bound for
// a download-heavy pool.
func (s *Settings) Workers() int {
	if s.MaxWorkers > 0 {
		return s.MaxWorkers
	}
	return min(runtime.NumCPU(), maxAutoWorkers)
}
