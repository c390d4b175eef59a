package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/goccy/go-yaml"
	"github.com/navmlang/navc/internal/buildcache"
	"github.com/rs/zerolog"
)

const (
	NAVC_APP_NAME = "navc"

	CONFIG_FILE_NAME    = "config.yaml"
	CONFIG_FILE_RELPATH = NAVC_APP_NAME + "/" + CONFIG_FILE_NAME
	CONFIG_FILE_PERM    = 0o600
	CACHE_FILE_RELPATH  = NAVC_APP_NAME + "/" + buildcache.CACHE_FILE_NAME

	LOG_LEVEL_ENV_VARNAME = "NAVC_LOG_LEVEL"
	TRACE_ENV_VARNAME     = "NAVC_TRACE"
	NO_CACHE_ENV_VARNAME  = "NAVC_NO_CACHE"

	DEFAULT_LOG_LEVEL = "warn"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings shared by all commands, flags override them.
type Config struct {
	LogLevel  string `yaml:"log-level"`
	Trace     bool   `yaml:"trace"`
	Cache     bool   `yaml:"cache"`
	CachePath string `yaml:"cache-path,omitempty"` //defaults to $XDG_CACHE_HOME/navc/build-cache.bbolt
	Output    string `yaml:"output,omitempty"`     //output directory of 'build' when -o is not set
}

func Default() Config {
	return Config{
		LogLevel: DEFAULT_LOG_LEVEL,
		Cache:    true,
	}
}

// Load returns the configuration read from the user's config file, if any, with the
// environment applied on top of it. The path of the file is empty if none was found.
func Load() (Config, string, error) {
	config := Default()

	path, err := xdg.SearchConfigFile(CONFIG_FILE_RELPATH)
	if err != nil {
		path = ""
	} else {
		config, err = LoadFile(path)
		if err != nil {
			return Config{}, path, err
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, path, err
	}
	return config, path, nil
}

// LoadFile reads a YAML config file, unknown keys are rejected.
func LoadFile(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	config := Default()
	if err := yaml.UnmarshalWithOptions(content, &config, yaml.DisallowUnknownField()); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if _, err := config.ZerologLevel(); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return config, nil
}

// ApplyEnv overrides the configuration with the NAVC_* environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if s, ok := lookup(LOG_LEVEL_ENV_VARNAME); ok && s != "" {
		c.LogLevel = s
		if _, err := c.ZerologLevel(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, LOG_LEVEL_ENV_VARNAME, err)
		}
	}

	if s, ok := lookup(TRACE_ENV_VARNAME); ok && s != "" {
		trace, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, TRACE_ENV_VARNAME, err)
		}
		c.Trace = trace
	}

	if s, ok := lookup(NO_CACHE_ENV_VARNAME); ok {
		c.Cache = len(s) == 0 || s == "false" || s == "0"
	}
	return nil
}

func (c Config) ZerologLevel() (zerolog.Level, error) {
	return zerolog.ParseLevel(c.LogLevel)
}

// ResolveCachePath returns the path of the build cache file, the parent directories are created.
func (c Config) ResolveCachePath() (string, error) {
	if c.CachePath != "" {
		return c.CachePath, nil
	}
	return xdg.CacheFile(CACHE_FILE_RELPATH)
}

func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteDefaultFile creates the user's config file with the default settings if it does not exist,
// and returns its path.
func WriteDefaultFile() (string, error) {
	path, err := xdg.SearchConfigFile(CONFIG_FILE_RELPATH)
	if err == nil {
		return path, nil
	}

	path, err = xdg.ConfigFile(CONFIG_FILE_RELPATH)
	if err != nil {
		return "", err
	}

	content, err := Default().Marshal()
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, content, CONFIG_FILE_PERM); err != nil {
		return "", err
	}
	return path, nil
}
