package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/Kamar-Folarin/site-sync/internal/models"
)

// Config is the full service configuration
type Config struct {
	Port        string       `yaml:"port" default:"8080"`
	MetricsAddr string       `yaml:"metrics_addr" default:":9090"`
	LogLevel    string       `yaml:"log_level" default:"info"`
	Store       StoreConfig  `yaml:"store"`
	Redis       RedisConfig  `yaml:"redis"`
	Remote      RemoteConfig `yaml:"remote"`
	Sync        SyncConfig   `yaml:"sync"`
	Batch       BatchConfig  `yaml:"batch"`
	Gemini      GeminiConfig `yaml:"gemini"`
	Sites       []SiteConfig `yaml:"sites"`
}

// StoreConfig selects and configures the cache backend
type StoreConfig struct {
	// Driver is one of postgres, badger or memory
	Driver           string `yaml:"driver" default:"badger"`
	ConnectionString string `yaml:"connection_string"`
	BadgerPath       string `yaml:"badger_path" default:"./data/cache"`
}

// RedisConfig holds the batch session store connection
type RedisConfig struct {
	Address string `yaml:"address"`
	Prefix  string `yaml:"prefix" default:"sitesync"`
}

// PrefixKey adds the configured prefix to a Redis key
func (c *RedisConfig) PrefixKey(key string) string {
	if c.Prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", c.Prefix, key)
}

// GeminiConfig configures the content generator
type GeminiConfig struct {
	BaseURL     string `yaml:"base_url" default:"https://generativelanguage.googleapis.com"`
	Model       string `yaml:"model" default:"gemini-1.5-flash"`
	APIKey      string `yaml:"api_key"`
	AccessToken string `yaml:"access_token"`
	// PromptTemplate overrides the built-in prompt; Sprig functions are available
	PromptTemplate string `yaml:"prompt_template"`
}

// SiteConfig declares one managed site
type SiteConfig struct {
	ID                   int64  `yaml:"id"`
	Name                 string `yaml:"name"`
	URL                  string `yaml:"url"`
	WordPressUser        string `yaml:"wordpress_user"`
	WordPressAppPassword string `yaml:"wordpress_app_password"`
	ConsumerKey          string `yaml:"consumer_key"`
	ConsumerSecret       string `yaml:"consumer_secret"`
	Active               bool   `yaml:"active"`
}

// ToSite converts the declaration into a models.Site
func (c SiteConfig) ToSite() *models.Site {
	return &models.Site{
		ID:                   c.ID,
		Name:                 c.Name,
		URL:                  c.URL,
		WordPressUser:        c.WordPressUser,
		WordPressAppPassword: c.WordPressAppPassword,
		ConsumerKey:          c.ConsumerKey,
		ConsumerSecret:       c.ConsumerSecret,
		Active:               c.Active,
	}
}

// Load builds the configuration from defaults, the optional CONFIG_FILE and the environment
func Load() (*Config, error) {
	return LoadFile(getEnv("CONFIG_FILE", ""))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.MetricsAddr = getEnv("METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Store.Driver = getEnv("DB_DRIVER", c.Store.Driver)
	c.Store.ConnectionString = getEnv("DB_CONNECTION_STRING", c.Store.ConnectionString)
	c.Store.BadgerPath = getEnv("BADGER_PATH", c.Store.BadgerPath)
	c.Redis.Address = getEnv("REDIS_ADDRESS", c.Redis.Address)
	c.Redis.Prefix = getEnv("REDIS_PREFIX", c.Redis.Prefix)
	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.AccessToken = getEnv("GEMINI_ACCESS_TOKEN", c.Gemini.AccessToken)
	c.Gemini.Model = getEnv("GEMINI_MODEL", c.Gemini.Model)
	c.Sync.Schedule = getEnv("SYNC_SCHEDULE", c.Sync.Schedule)

	if v := getEnv("BATCH_DELAY_SECONDS", ""); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BATCH_DELAY_SECONDS: %w", err)
		}
		c.Batch.DelayBetweenBatches = time.Duration(seconds) * time.Second
	}
	if v := getEnv("BATCH_SIZE", ""); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BATCH_SIZE: %w", err)
		}
		c.Batch.ItemsPerBatch = size
	}
	return nil
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case "postgres":
		if c.Store.ConnectionString == "" {
			return fmt.Errorf("store driver postgres requires DB_CONNECTION_STRING")
		}
	case "badger", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Batch.ItemsPerBatch <= 0 {
		return fmt.Errorf("batch items_per_batch must be positive")
	}
	if c.Batch.DelayBetweenBatches < 0 {
		return fmt.Errorf("batch delay must not be negative")
	}

	active := 0
	seen := make(map[int64]bool, len(c.Sites))
	for _, s := range c.Sites {
		if s.ID <= 0 {
			return fmt.Errorf("site %q must have a positive id", s.Name)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate site id %d", s.ID)
		}
		seen[s.ID] = true
		if s.URL == "" {
			return fmt.Errorf("site %d has no url", s.ID)
		}
		if s.Active {
			active++
		}
	}
	if active > 1 {
		return fmt.Errorf("only one site may be active, found %d", active)
	}

	return c.Sync.Validate()
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
