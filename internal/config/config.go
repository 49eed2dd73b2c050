package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration
type Config struct {
	Version   int             `toml:"version"`
	Storage   StorageConfig   `toml:"storage"`
	Portal    PortalConfig    `toml:"portal"`
	Library   LibraryConfig   `toml:"library"`
	Reports   ReportsConfig   `toml:"reports"`
	Scraping  ScrapingConfig  `toml:"scraping"`
	Summarize SummarizeConfig `toml:"summarize"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type StorageConfig struct {
	DBPath string `toml:"db_path"`
}

type PortalConfig struct {
	BaseURL string `toml:"base_url"`
	// Bounds for event id discovery when the portal offers no listing.
	IDFloor   int `toml:"id_floor"`
	IDCeiling int `toml:"id_ceiling"`
	MaxProbes int `toml:"max_probes"`
}

type LibraryConfig struct {
	BaseURL  string `toml:"base_url"`
	MaxPages int    `toml:"max_pages"`
}

type ReportsConfig struct {
	BaseURL     string   `toml:"base_url"`
	Kinds       []string `toml:"kinds"`
	MonthsBack  int      `toml:"months_back"`
	NewestFirst bool     `toml:"newest_first"` // candidate ordering heuristic
}

type ScrapingConfig struct {
	Headless        bool `toml:"headless"`
	Workers         int  `toml:"workers"`
	PageTimeoutSecs int  `toml:"page_timeout_secs"`
}

type SummarizeConfig struct {
	Enabled bool   `toml:"enabled"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

type ScheduleConfig struct {
	Timezone   string `toml:"timezone"`
	ScrapeCron string `toml:"scrape_cron"`
	ReportCron string `toml:"report_cron"`
}

type RateLimitConfig struct {
	PerMinute int `toml:"per_minute"`
	Burst     int `toml:"burst"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			DBPath: "civtrace.db",
		},
		Portal: PortalConfig{
			IDFloor:   1,
			IDCeiling: 5000,
			MaxProbes: 500,
		},
		Library: LibraryConfig{
			MaxPages: 50,
		},
		Reports: ReportsConfig{
			Kinds:       []string{"permits", "businesses", "budget", "audit"},
			MonthsBack:  12,
			NewestFirst: true,
		},
		Scraping: ScrapingConfig{
			Headless:        true,
			Workers:         4,
			PageTimeoutSecs: 60,
		},
		Summarize: SummarizeConfig{
			Enabled: false,
			Model:   "claude-sonnet-4-20250514",
		},
		Schedule: ScheduleConfig{
			Timezone:   "America/Chicago",
			ScrapeCron: "0 5 * * *",
			ReportCron: "0 6 1 * *",
		},
		RateLimit: RateLimitConfig{
			PerMinute: 30,
			Burst:     5,
		},
	}
}

// Validate checks required settings and bounds. It runs before any
// network activity; a failure here aborts the whole invocation.
func (c *Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url is required")
	}
	if c.Portal.IDFloor <= 0 || c.Portal.IDCeiling < c.Portal.IDFloor {
		return fmt.Errorf("portal id range [%d, %d] is invalid", c.Portal.IDFloor, c.Portal.IDCeiling)
	}
	if c.Portal.MaxProbes <= 0 {
		return fmt.Errorf("portal.max_probes must be positive")
	}
	if c.Scraping.Workers <= 0 {
		return fmt.Errorf("scraping.workers must be positive")
	}
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Summarize.Enabled && c.Summarize.APIKey == "" {
		return fmt.Errorf("summarize.api_key is required when summarization is enabled")
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "civtrace"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from an explicit path
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
