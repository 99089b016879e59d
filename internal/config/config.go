package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Scoring  Scoring  `yaml:"scoring"`
	Interest Interest `yaml:"interest"`
	Feed     Feed     `yaml:"feed"`
	Cache    Cache    `yaml:"cache"`
	Sources  Sources  `yaml:"sources"`
	Output   Output   `yaml:"output"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

// Scoring holds the per-event weights and time parameters of the score
// formula. Weights apply at recomputation time, not at event time.
type Scoring struct {
	LikeWeight         float64 `yaml:"like_weight"`
	CommentWeight      float64 `yaml:"comment_weight"`
	ShareWeight        float64 `yaml:"share_weight"`
	ViewWeight         float64 `yaml:"view_weight"`
	TimeDecayRate      float64 `yaml:"time_decay_rate"`     // hours
	FreshnessThreshold float64 `yaml:"freshness_threshold"` // hours
}

type Interest struct {
	Enabled           bool    `yaml:"enabled"`
	FavoriteIncrement float64 `yaml:"favorite_increment"`
	CommentIncrement  float64 `yaml:"comment_increment"`
}

type Feed struct {
	SmartEnabled bool   `yaml:"smart_enabled"`
	DefaultType  string `yaml:"default_type"` // "smart" or "standard"
	PerPage      int    `yaml:"per_page"`
}

type Cache struct {
	Enabled  bool `yaml:"enabled"`
	Duration int  `yaml:"duration"` // seconds
}

type Sources struct {
	Feeds []FeedSource `yaml:"feeds"`
}

type FeedSource struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for smartfeed.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "smartfeed")
}

// DataDir returns the XDG data directory for smartfeed.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "smartfeed")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/smartfeed/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'smartfeed init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses, and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults and validating.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Scoring: Scoring{
			LikeWeight:         2.0,
			CommentWeight:      3.0,
			ShareWeight:        5.0,
			ViewWeight:         0.5,
			TimeDecayRate:      24,
			FreshnessThreshold: 2,
		},
		Interest: Interest{
			Enabled:           true,
			FavoriteIncrement: 1.5,
			CommentIncrement:  1.2,
		},
		Feed: Feed{
			SmartEnabled: true,
			DefaultType:  "smart",
			PerPage:      20,
		},
		Cache: Cache{
			Enabled:  true,
			Duration: 300,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	s := c.Scoring
	weights := []struct {
		name  string
		value float64
	}{
		{"like_weight", s.LikeWeight},
		{"comment_weight", s.CommentWeight},
		{"share_weight", s.ShareWeight},
		{"view_weight", s.ViewWeight},
	}
	for _, w := range weights {
		if w.value < 0 {
			return fmt.Errorf("scoring.%s must not be negative, got %g", w.name, w.value)
		}
	}
	if s.TimeDecayRate <= 0 {
		return fmt.Errorf("scoring.time_decay_rate must be positive, got %g", s.TimeDecayRate)
	}
	if s.FreshnessThreshold < 0 {
		return fmt.Errorf("scoring.freshness_threshold must not be negative, got %g", s.FreshnessThreshold)
	}
	if c.Cache.Duration <= 0 {
		return fmt.Errorf("cache.duration must be positive, got %d", c.Cache.Duration)
	}
	if c.Feed.DefaultType != "smart" && c.Feed.DefaultType != "standard" {
		return fmt.Errorf("feed.default_type must be 'smart' or 'standard', got %q", c.Feed.DefaultType)
	}
	if c.Feed.PerPage < 1 || c.Feed.PerPage > 100 {
		return fmt.Errorf("feed.per_page must be in 1..100, got %d", c.Feed.PerPage)
	}
	if c.Interest.FavoriteIncrement < 0 || c.Interest.CommentIncrement < 0 {
		return fmt.Errorf("interest increments must not be negative")
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
