package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pb33f/frameseq/motor"
	"github.com/tailscale/hujson"
)

// ConfigFileName is the project config file looked up in the working directory
const ConfigFileName = ".frameseq.json"

var (
	errConfigInvalid      = errors.New("invalid config")
	errConfigFileNotFound = errors.New("config file not found")
)

// Config holds the settings a sequence is opened with.
type Config struct {
	CacheWindow    int  `json:"cache_window"`
	PrefetchWindow int  `json:"prefetch_window"`
	QueueDepth     int  `json:"queue_depth"`
	Verbose        bool `json:"verbose"`
}

// fileConfig tells set keys apart from zero values, prefetch_window 0 is meaningful
type fileConfig struct {
	CacheWindow    *int  `json:"cache_window"`
	PrefetchWindow *int  `json:"prefetch_window"`
	QueueDepth     *int  `json:"queue_depth"`
	Verbose        *bool `json:"verbose"`
}

// ConfigSources records which files contributed to a loaded config
type ConfigSources struct {
	Global   string
	Project  string
	Explicit string
}

func DefaultConfig() Config {
	return Config{
		CacheWindow:    motor.DefaultCacheWindow,
		PrefetchWindow: motor.DefaultPrefetchWindow,
		QueueDepth:     motor.DefaultQueueDepth,
	}
}

// SequenceOptions converts the config into options for motor.NewFrameSequence
func (c Config) SequenceOptions() motor.SequenceOptions {
	opts := motor.DefaultSequenceOptions()
	opts.CacheWindow = c.CacheWindow
	opts.PrefetchWindow = c.PrefetchWindow
	opts.QueueDepth = c.QueueDepth
	return opts
}

// globalConfigPath uses $XDG_CONFIG_HOME/frameseq/config.json, falling back to ~/.config
func globalConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "frameseq", "config.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "frameseq", "config.json")
}

// LoadConfig layers, lowest first: defaults, the global config, the project
// config in workDir, then configPath when given. CLI flags are applied by the caller.
func LoadConfig(workDir, configPath string) (Config, ConfigSources, error) {
	cfg := DefaultConfig()
	var sources ConfigSources

	if path := globalConfigPath(); path != "" {
		loaded, err := applyConfigFile(&cfg, path, false)
		if err != nil {
			return Config{}, ConfigSources{}, err
		}
		if loaded {
			sources.Global = path
		}
	}

	projectPath := filepath.Join(workDir, ConfigFileName)
	loaded, err := applyConfigFile(&cfg, projectPath, false)
	if err != nil {
		return Config{}, ConfigSources{}, err
	}
	if loaded {
		sources.Project = projectPath
	}

	if configPath != "" {
		if !filepath.IsAbs(configPath) {
			configPath = filepath.Join(workDir, configPath)
		}
		if _, err := applyConfigFile(&cfg, configPath, true); err != nil {
			return Config{}, ConfigSources{}, err
		}
		sources.Explicit = configPath
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, ConfigSources{}, err
	}
	return cfg, sources, nil
}

func applyConfigFile(cfg *Config, path string, mustExist bool) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return false, fmt.Errorf("%w: %s", errConfigFileNotFound, path)
			}
			return false, nil
		}
		return false, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	overlay, err := parseConfig(data)
	if err != nil {
		return false, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	*cfg = mergeConfig(*cfg, overlay)
	return true, nil
}

func parseConfig(data []byte) (fileConfig, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var fc fileConfig
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return fc, nil
}

func mergeConfig(base Config, overlay fileConfig) Config {
	if overlay.CacheWindow != nil {
		base.CacheWindow = *overlay.CacheWindow
	}
	if overlay.PrefetchWindow != nil {
		base.PrefetchWindow = *overlay.PrefetchWindow
	}
	if overlay.QueueDepth != nil {
		base.QueueDepth = *overlay.QueueDepth
	}
	if overlay.Verbose != nil {
		base.Verbose = *overlay.Verbose
	}
	return base
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.CacheWindow < 1:
		return fmt.Errorf("%w: cache_window must be at least 1, got %d", errConfigInvalid, cfg.CacheWindow)
	case cfg.PrefetchWindow < 0:
		return fmt.Errorf("%w: prefetch_window must not be negative, got %d", errConfigInvalid, cfg.PrefetchWindow)
	case cfg.QueueDepth < 1:
		return fmt.Errorf("%w: queue_depth must be at least 1, got %d", errConfigInvalid, cfg.QueueDepth)
	case cfg.PrefetchWindow > cfg.CacheWindow:
		// prefetched groups would evict each other before being read
		return fmt.Errorf("%w: prefetch_window %d exceeds cache_window %d", errConfigInvalid, cfg.PrefetchWindow, cfg.CacheWindow)
	}
	return nil
}

// FormatConfig renders cfg as indented JSON
func FormatConfig(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}
	return string(data), nil
}
