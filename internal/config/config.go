// Package config loads and validates the TOML configuration of the region
// tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Defaults.
const (
	DefaultMaxRegions      = 4095
	DefaultSizeThreshold   = 100.0
	DefaultPixelsPerWorker = 500000
	DefaultLoadBatchSize   = 384
	DefaultSampleStride    = 7
	DefaultOutlineStep     = 10
)

// Config holds the settings of one editing session. Fields map to keys of a
// TOML file; keys missing from the file keep their defaults.
type Config struct {
	// MaxRegions is the store capacity. Labels above it are rejected.
	MaxRegions int `toml:"max_regions"`

	// SizeThreshold is the area below which a detected region is deleted
	// with tag "small" when RemoveSmall is set.
	SizeThreshold float64 `toml:"size_threshold"`
	RemoveSmall   bool    `toml:"remove_small"`

	// RemoveEdges deletes regions touching the image border with tag
	// "edge.image".
	RemoveEdges bool `toml:"remove_edges"`

	// Detection and loading parallelism.
	PixelsPerWorker int `toml:"pixels_per_worker"`
	LoadBatchSize   int `toml:"load_batch_size"`
	SampleStride    int `toml:"sample_stride"`

	// OutlineStep is the default angular sector width in degrees.
	OutlineStep int `toml:"outline_step"`

	// CacheDir enables the detection cache when set.
	CacheDir string `toml:"cache_dir"`

	// Autosave is an archive path written after every detection. Empty
	// disables it.
	Autosave string `toml:"autosave"`

	// TagKeys maps function keys to the tag a bulk delete records.
	TagKeys map[string]string `toml:"tag_keys"`
}

// DefaultTagKeys returns the default function key bindings.
func DefaultTagKeys() map[string]string {
	return map[string]string{
		"F5":  "freeze",
		"F6":  "fold",
		"F7":  "vessel",
		"F9":  "section.tear",
		"F10": "section.stretch",
	}
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxRegions:      DefaultMaxRegions,
		SizeThreshold:   DefaultSizeThreshold,
		RemoveSmall:     true,
		RemoveEdges:     true,
		PixelsPerWorker: DefaultPixelsPerWorker,
		LoadBatchSize:   DefaultLoadBatchSize,
		SampleStride:    DefaultSampleStride,
		OutlineStep:     DefaultOutlineStep,
		TagKeys:         DefaultTagKeys(),
	}
}

// Validate clamps values to safe ranges and normalises key names to upper
// case. A negative size threshold falls back to the default.
func (c *Config) Validate() {
	if c.MaxRegions <= 0 {
		c.MaxRegions = DefaultMaxRegions
	}
	if c.SizeThreshold < 0 {
		c.SizeThreshold = DefaultSizeThreshold
	}
	if c.PixelsPerWorker <= 0 {
		c.PixelsPerWorker = DefaultPixelsPerWorker
	}
	if c.LoadBatchSize <= 0 {
		c.LoadBatchSize = DefaultLoadBatchSize
	}
	if c.SampleStride <= 0 {
		c.SampleStride = DefaultSampleStride
	}
	if c.OutlineStep <= 0 || c.OutlineStep > 360 {
		c.OutlineStep = DefaultOutlineStep
	}
	if len(c.TagKeys) == 0 {
		c.TagKeys = DefaultTagKeys()
	}
	keys := make(map[string]string, len(c.TagKeys))
	for k, v := range c.TagKeys {
		keys[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	c.TagKeys = keys
}

// TagFor returns the tag bound to a function key.
func (c *Config) TagFor(key string) (string, bool) {
	tag, ok := c.TagKeys[strings.ToUpper(strings.TrimSpace(key))]
	return tag, ok
}

// Load reads configuration from a TOML file. A missing file yields
// DefaultConfig(). Unknown keys are reported as an error together with the
// otherwise decoded configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Validate()

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slices.Sort(keys)
		return cfg, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Save writes the configuration to path in TOML format.
func (c *Config) Save(path string) error {
	c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
