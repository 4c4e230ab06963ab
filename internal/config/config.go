package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration
type Config struct {
	Discovery DiscoveryConfig `yaml:"discovery"`
	Probe     ProbeConfig     `yaml:"probe"`
	Output    OutputConfig    `yaml:"output"`
}

// DiscoveryConfig controls which mirrors are looked up
type DiscoveryConfig struct {
	MirrorsURL    string `yaml:"mirrors_url"`
	MaxMirrors    int    `yaml:"max_mirrors"`
	Release       string `yaml:"release"` // empty: read from os-release
	Arch          string `yaml:"arch"`    // empty: uname -m
	OSReleasePath string `yaml:"os_release_path"`
}

// ProbeConfig controls how each mirror is measured
type ProbeConfig struct {
	TestFile        string `yaml:"test_file"`
	DownloadTimeout int    `yaml:"download_timeout"` // seconds
	ConnectTimeout  int    `yaml:"connect_timeout"`  // seconds
}

// OutputConfig holds optional report destinations
type OutputConfig struct {
	MetricsTextfile string `yaml:"metrics_textfile"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			MirrorsURL: "https://mirrors.fedoraproject.org/mirrorlist",
			MaxMirrors: 0,
		},
		Probe: ProbeConfig{
			TestFile:        "images/boot.iso",
			DownloadTimeout: 10,
			ConnectTimeout:  5,
		},
	}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"bestmirror.yaml",
		"/etc/bestmirror/bestmirror.yaml",
	}

	// Add user config path
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "bestmirror", "bestmirror.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// Validate rejects values no run could use
func (c *Config) Validate() error {
	if c.Discovery.MirrorsURL == "" {
		return fmt.Errorf("discovery.mirrors_url must not be empty")
	}
	if c.Discovery.MaxMirrors < 0 {
		return fmt.Errorf("discovery.max_mirrors must not be negative, got %d", c.Discovery.MaxMirrors)
	}
	if c.Probe.DownloadTimeout <= 0 {
		return fmt.Errorf("probe.download_timeout must be positive, got %d", c.Probe.DownloadTimeout)
	}
	if c.Probe.ConnectTimeout <= 0 {
		return fmt.Errorf("probe.connect_timeout must be positive, got %d", c.Probe.ConnectTimeout)
	}
	if c.Probe.TestFile == "" {
		return fmt.Errorf("probe.test_file must not be empty")
	}
	return nil
}

// TransferTimeout is the download time limit for one mirror
func (p ProbeConfig) TransferTimeout() time.Duration {
	return time.Duration(p.DownloadTimeout) * time.Second
}

// DialTimeout is the connection-establish limit for one mirror
func (p ProbeConfig) DialTimeout() time.Duration {
	return time.Duration(p.ConnectTimeout) * time.Second
}
