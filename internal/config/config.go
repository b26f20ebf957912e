// Package config loads cratefix settings from defaults, an optional YAML or
// TOML file, a .env file and CRATEFIX_* environment variables, in that
// order of increasing precedence. Command-line flags are applied on top by
// the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/cratefix/internal/emitter"
	"github.com/frederic-klein/cratefix/internal/registry"
	"github.com/frederic-klein/cratefix/internal/source"
)

const appName = "cratefix"

// Config holds every setting of a build run.
type Config struct {
	Source    string   `yaml:"source" toml:"source"`
	IndexDir  string   `yaml:"index_dir" toml:"index_dir"`
	CacheDir  string   `yaml:"cache_dir" toml:"cache_dir"`
	Commit    string   `yaml:"commit" toml:"commit"`
	BaseURL   string   `yaml:"base_url" toml:"base_url"`
	Patterns  []string `yaml:"patterns" toml:"patterns"`
	Format    string   `yaml:"format" toml:"format"`
	Namespace string   `yaml:"namespace" toml:"namespace"`
	RawNames  *bool    `yaml:"raw_names" toml:"raw_names"`
	Merge     string   `yaml:"merge" toml:"merge"`
	Strict    bool     `yaml:"strict" toml:"strict"`
	NoCheck   bool     `yaml:"no_check" toml:"no_check"`
	Workers   int      `yaml:"workers" toml:"workers"`
	CacheSize int      `yaml:"desugar_cache_size" toml:"desugar_cache_size"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Source:    source.KindSnapshot,
		CacheDir:  defaultCacheDir(),
		Commit:    source.DefaultCommit,
		BaseURL:   source.DefaultBaseURL,
		Format:    emitter.FormatMsgpack,
		Namespace: registry.DefaultNamespace,
		Merge:     registry.MergeReplace.String(),
		CacheSize: 4096,
	}
}

// Load builds a Config from defaults, the file at path (if non-empty) and
// the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	// .env is optional
	_ = godotenv.Load()
	ApplyEnv(&cfg)

	return cfg, nil
}

// LoadFile decodes path into cfg. The format follows the extension:
// .yaml/.yml or .toml. Fields absent from the file keep their values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return nil
}

// ApplyEnv overrides cfg with CRATEFIX_* variables that are set.
func ApplyEnv(cfg *Config) {
	setString(&cfg.Source, "CRATEFIX_SOURCE")
	setString(&cfg.IndexDir, "CRATEFIX_INDEX_DIR")
	setString(&cfg.CacheDir, "CRATEFIX_CACHE_DIR")
	setString(&cfg.Commit, "CRATEFIX_COMMIT")
	setString(&cfg.BaseURL, "CRATEFIX_BASE_URL")
	setString(&cfg.Format, "CRATEFIX_FORMAT")
	setString(&cfg.Namespace, "CRATEFIX_NAMESPACE")
	setString(&cfg.Merge, "CRATEFIX_MERGE")
	if v := strings.TrimSpace(os.Getenv("CRATEFIX_RAW_NAMES")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RawNames = &b
		}
	}
	setBool(&cfg.Strict, "CRATEFIX_STRICT")
	setBool(&cfg.NoCheck, "CRATEFIX_NO_CHECK")
	if v := strings.TrimSpace(os.Getenv("CRATEFIX_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch c.Source {
	case source.KindSnapshot, source.KindHome:
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", c.Source, source.KindSnapshot, source.KindHome)
	}
	if _, err := emitter.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, ok := registry.ParseMergeStrategy(c.Merge); !ok {
		return fmt.Errorf("unknown merge strategy %q (want replace or versions)", c.Merge)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("desugar_cache_size must be positive")
	}
	return nil
}

// Normalizer returns the name normalizer the settings describe. When
// raw_names is unset, names are kept as published for the home source and
// namespaced otherwise.
func (c Config) Normalizer() registry.Normalizer {
	if c.UseRawNames() {
		return registry.RawNames()
	}
	return registry.NewNormalizer(c.Namespace)
}

// UseRawNames resolves raw_names against the source default.
func (c Config) UseRawNames() bool {
	if c.RawNames != nil {
		return *c.RawNames
	}
	return c.Source == source.KindHome
}

// MergeStrategy returns the parsed merge strategy.
func (c Config) MergeStrategy() registry.MergeStrategy {
	s, _ := registry.ParseMergeStrategy(c.Merge)
	return s
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// defaultCacheDir follows XDG: $XDG_CACHE_HOME/cratefix or ~/.cache/cratefix.
func defaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, ".cache", appName)
}
