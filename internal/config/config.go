package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/livetemplate/jsblock"
)

// Config represents the jsblock site configuration
type Config struct {
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Server      ServerConfig    `yaml:"server"`
	Widget      map[string]any  `yaml:"widget,omitempty"` // Widget option overrides for every page
	Features    FeaturesConfig  `yaml:"features"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Ignore      []string        `yaml:"ignore"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
}

// FeaturesConfig holds feature flags
type FeaturesConfig struct {
	HotReload bool `yaml:"hot_reload"`
	// AllowRun lets browsers run blocks on the server. Code runs with the
	// server's privileges, so it is off unless enabled here or with --allow-run.
	AllowRun bool `yaml:"allow_run"`
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // Rate limit in requests per second (default: 10)
	Burst             int     `yaml:"burst,omitempty"`               // Burst size (default: 20)
	MaxTrackedIPs     int     `yaml:"max_tracked_ips,omitempty"`     // LRU capacity of per-IP limiters (default: 10000)
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 10)
func (c RateLimitConfig) GetRateLimitRPS() float64 {
	if c.RequestsPerSecond <= 0 {
		return 10
	}
	return c.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 20)
func (c RateLimitConfig) GetRateLimitBurst() int {
	if c.Burst <= 0 {
		return 20
	}
	return c.Burst
}

// GetMaxTrackedIPs returns how many client IPs get their own limiter (default: 10000)
func (c RateLimitConfig) GetMaxTrackedIPs() int {
	if c.MaxTrackedIPs <= 0 {
		return 10000
	}
	return c.MaxTrackedIPs
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WidgetOptions returns the widget defaults: the widget section merged over
// jsblock.DefaultOptions.
func (c *Config) WidgetOptions() (jsblock.Options, error) {
	opts, err := jsblock.MergeOptions(jsblock.DefaultOptions(), c.Widget)
	if err != nil {
		return jsblock.DefaultOptions(), fmt.Errorf("invalid widget config: %w", err)
	}
	return opts, nil
}

// IsIgnored reports whether a page path (slash separated, relative to the
// site root) matches one of the ignore patterns. A pattern ending in "/**"
// matches everything below that directory; other patterns are matched
// against the full path and the base name.
func (c *Config) IsIgnored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range c.Ignore {
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
			if rel == dir || strings.HasPrefix(rel, dir+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(rel)); ok {
			return true
		}
	}
	return false
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := c.WidgetOptions(); err != nil {
		return err
	}
	for _, pattern := range c.Ignore {
		if _, err := path.Match(strings.TrimSuffix(pattern, "/**"), "a"); err != nil {
			return fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title:       "jsblock",
		Description: "Runnable JavaScript examples",
		Server: ServerConfig{
			Port:  8080,
			Host:  "localhost",
			Debug: false,
		},
		Features: FeaturesConfig{
			HotReload: true,
		},
		Ignore: []string{
			"drafts/**",
			"_*.md",
		},
	}
}

// Load loads configuration from a YAML file
// If the file doesn't exist, returns the default configuration
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parse(configPath, data)
}

// configNames are the file names looked up in a site root, in order.
var configNames = []string{"jsblock.yaml", ".jsblock.yaml"}

// LoadFromDir looks for jsblock.yaml, then .jsblock.yaml, in the given
// directory. If neither is found, returns the default configuration
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range configNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return Load(p)
		}
	}
	return DefaultConfig(), nil
}

// LoadFromFS is LoadFromDir for the root of a file system such as an
// embed.FS.
func LoadFromFS(fsys fs.FS) (*Config, error) {
	for _, name := range configNames {
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		return parse(name, data)
	}
	return DefaultConfig(), nil
}

// parse unmarshals data over the defaults and validates the result.
func parse(name string, data []byte) (*Config, error) {
	config := DefaultConfig() // Start with defaults
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", name, err)
	}
	return config, nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
