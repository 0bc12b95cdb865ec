// Package config holds the static tunables of the graph engine: scan
// limits, matching thresholds and expansion defaults. Values come from
// an optional YAML file layered over defaults; nothing here is computed
// at runtime.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration.
type Config struct {
	// Scan controls the repository walk and extraction.
	Scan ScanConfig `yaml:"scan"`
	// Retrieval controls anchor matching and subgraph expansion.
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// ScanConfig bounds the analysis phase.
type ScanConfig struct {
	Workers      int      `yaml:"workers"`
	MaxFileSize  int64    `yaml:"max_file_size"`
	FileTimeout  Duration `yaml:"file_timeout"`
	ScanTimeout  Duration `yaml:"scan_timeout"`
	ExcludeGlobs []string `yaml:"exclude"`
}

// Duration wraps time.Duration so YAML values can be written as "30s"
// or "5m" instead of nanosecond integers.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string or an integer
// nanosecond count.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// RetrievalConfig holds the matching tunables.
type RetrievalConfig struct {
	SimilarityThreshold int      `yaml:"similarity_threshold"`
	StopWords           []string `yaml:"stop_words"`
	MaxDepth            int      `yaml:"max_depth"`
	NodeCap             int      `yaml:"node_cap"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Workers:     8,
			MaxFileSize: 1024 * 1024,
			FileTimeout: Duration(10 * time.Second),
			ScanTimeout: Duration(5 * time.Minute),
		},
		Retrieval: RetrievalConfig{
			SimilarityThreshold: 70,
			MaxDepth:            2,
			NodeCap:             100,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is
// not an error: the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
