// Package config holds the browser configuration: catalog location,
// cache sizing, prefetch radius and UI options.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Catalog  CatalogConfig  `json:"catalog"`
	Cache    CacheConfig    `json:"cache"`
	Prefetch PrefetchConfig `json:"prefetch"`
	UI       UIConfig       `json:"ui"`
}

// CatalogConfig locates the catalog database and its sidecar files.
type CatalogConfig struct {
	// DBPath is the SQLite catalog database (supports ~ expansion).
	DBPath string `json:"dbPath"`
	// SnapshotPath is the vector side-cache snapshot, co-located with the
	// database by default.
	SnapshotPath string `json:"snapshotPath"`
	// Watch enables invalidation on external writes to the database.
	Watch bool `json:"watch"`
}

// CacheConfig sizes the record cache.
type CacheConfig struct {
	// Capacity is the shared entry budget across all sub-kind namespaces.
	Capacity int `json:"capacity"`
	// RecordTTL bounds how long an assembled entry is served without
	// re-assembly.
	RecordTTL time.Duration `json:"recordTTL"`
}

// PrefetchConfig configures neighbor warming.
type PrefetchConfig struct {
	// Radius is how many positions to each side get prefetched. 0 disables.
	Radius int `json:"radius"`
}

// UIConfig configures browser appearance.
type UIConfig struct {
	ShowFooter bool `json:"showFooter"`
	// SequencePreviewBases caps how much raw sequence the detail pane shows.
	SequencePreviewBases int `json:"sequencePreviewBases"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			DBPath:       "~/.local/share/genoscope/catalog.db",
			SnapshotPath: "~/.local/share/genoscope/vectors.json",
			Watch:        true,
		},
		Cache: CacheConfig{
			Capacity:  256,
			RecordTTL: 60 * time.Second,
		},
		Prefetch: PrefetchConfig{
			Radius: 2,
		},
		UI: UIConfig{
			ShowFooter:           true,
			SequencePreviewBases: 240,
		},
	}
}

// Validate rejects settings the caches would refuse at construction, so a
// bad config file fails here with a readable message instead of deeper in
// the stack.
func (c *Config) Validate() error {
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("config: cache.capacity must be at least 1, got %d", c.Cache.Capacity)
	}
	if c.Cache.RecordTTL < 0 {
		return fmt.Errorf("config: cache.recordTTL must not be negative, got %v", c.Cache.RecordTTL)
	}
	if c.Prefetch.Radius < 0 {
		return fmt.Errorf("config: prefetch.radius must not be negative, got %d", c.Prefetch.Radius)
	}
	return nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "genoscope", "config.json")
}

// fileConfig is the JSON intermediary using string durations, so the file
// reads "60s" rather than nanosecond integers.
type fileConfig struct {
	Catalog  *CatalogConfig  `json:"catalog,omitempty"`
	Cache    *fileCacheCfg   `json:"cache,omitempty"`
	Prefetch *PrefetchConfig `json:"prefetch,omitempty"`
	UI       *UIConfig       `json:"ui,omitempty"`
}

type fileCacheCfg struct {
	Capacity  *int   `json:"capacity,omitempty"`
	RecordTTL string `json:"recordTTL,omitempty"`
}

// Load reads the config at path (DefaultPath when empty), layering it over
// the defaults. A missing file yields the defaults without error; a
// malformed file is a real error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Catalog != nil {
		cfg.Catalog = *fc.Catalog
	}
	if fc.Cache != nil {
		if fc.Cache.Capacity != nil {
			cfg.Cache.Capacity = *fc.Cache.Capacity
		}
		if fc.Cache.RecordTTL != "" {
			ttl, err := time.ParseDuration(fc.Cache.RecordTTL)
			if err != nil {
				return nil, fmt.Errorf("parse config %s: cache.recordTTL: %w", path, err)
			}
			cfg.Cache.RecordTTL = ttl
		}
	}
	if fc.Prefetch != nil {
		cfg.Prefetch = *fc.Prefetch
	}
	if fc.UI != nil {
		cfg.UI = *fc.UI
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path (DefaultPath when empty), creating parent
// directories as needed.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return fmt.Errorf("save config: no config path available")
	}

	out := fileConfig{
		Catalog:  &cfg.Catalog,
		Cache:    &fileCacheCfg{Capacity: &cfg.Cache.Capacity, RecordTTL: cfg.Cache.RecordTTL.String()},
		Prefetch: &cfg.Prefetch,
		UI:       &cfg.UI,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save config %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save config %s: %w", path, err)
	}
	return nil
}

// ExpandHome resolves a leading ~/ against the user's home directory.
func ExpandHome(path string) string {
	if len(path) < 2 || path[0] != '~' || path[1] != '/' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
