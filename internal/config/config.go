// Package config holds the persistent tenderwatch configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the persistent application configuration
type Config struct {
	API        APIConfig       `json:"api"`
	Language   LanguageConfig  `json:"language"`
	Watchlists []WatchlistFeed `json:"watchlists"`
	UI         UIConfig        `json:"ui"`
}

// APIConfig locates the procurement API and carries the session token.
type APIConfig struct {
	BaseURL           string  `json:"base_url"`
	Token             string  `json:"token,omitempty"`
	TimeoutSeconds    int     `json:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	RetryMax          int     `json:"retry_max"`
}

// LanguageConfig controls which languages summaries, analyses and answers
// are requested in.
type LanguageConfig struct {
	Default   string   `json:"default"`
	Available []string `json:"available"`
}

// WatchlistFeed is a saved search exposed by the service as an RSS/Atom feed.
type WatchlistFeed struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	ShowLots bool `json:"show_lots"`
	Markdown bool `json:"markdown"` // render AI text as markdown
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "http://localhost:8080/api",
			TimeoutSeconds:    60,
			RequestsPerSecond: 5,
			RetryMax:          2,
		},
		Language: LanguageConfig{
			Default:   "fr",
			Available: []string{"fr", "nl", "en"},
		},
		Watchlists: []WatchlistFeed{},
		UI: UIConfig{
			ShowLots: true,
			Markdown: true,
		},
	}
}

// DataDir returns ~/.tenderwatch, the home of config, database and logs.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tenderwatch")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// Load reads config from the default path.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads config from path, or returns defaults when the file does
// not exist. Missing fields keep their default values.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// Save writes config to the default path.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // holds the session token
}

// AutoPopulateFromEnv applies environment overrides.
func (c *Config) AutoPopulateFromEnv() {
	if v := strings.TrimSpace(os.Getenv("TENDERWATCH_API_URL")); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TENDERWATCH_TOKEN")); v != "" {
		c.API.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("TENDERWATCH_LANG")); v != "" {
		c.SetLanguage(v)
	}
}

// SetLanguage makes lang the default, adding it to the available list.
func (c *Config) SetLanguage(lang string) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return
	}
	c.Language.Default = lang
	for _, l := range c.Language.Available {
		if l == lang {
			return
		}
	}
	c.Language.Available = append(c.Language.Available, lang)
}

// Timeout returns the per-request timeout.
func (c *Config) Timeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) normalize() {
	if len(c.Language.Available) == 0 {
		c.Language.Available = []string{"fr", "nl", "en"}
	}
	if c.Language.Default == "" {
		c.Language.Default = c.Language.Available[0]
	}
	if c.Watchlists == nil {
		c.Watchlists = []WatchlistFeed{}
	}
}
