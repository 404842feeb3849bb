package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Kamar-Folarin/site-sync/internal/models"
)

// SyncConfig holds synchronization configuration
type SyncConfig struct {
	// MaxAge is how long a completed sync of a data type stays fresh
	MaxAge map[models.EntityType]time.Duration `yaml:"max_age"`
	// DefaultMaxAge applies to data types missing from MaxAge
	DefaultMaxAge time.Duration `yaml:"default_max_age" default:"60m"`
	// UpsertBatchSize is the cache write chunk size per data type
	UpsertBatchSize map[models.EntityType]int `yaml:"upsert_batch_size"`
	// DefaultUpsertBatchSize applies to data types missing from UpsertBatchSize
	DefaultUpsertBatchSize int `yaml:"default_upsert_batch_size" default:"100"`
	// PageSize is the remote per_page value (the APIs cap it at 100)
	PageSize int `yaml:"page_size" default:"100"`
	// MaxPages stops runaway pagination against a misbehaving remote
	MaxPages int `yaml:"max_pages" default:"500"`
	// Schedule is the cron expression for background sync of the active site; empty disables it
	Schedule string `yaml:"schedule" default:"@every 30m"`
}

// DefaultSyncConfig returns the default sync configuration
func DefaultSyncConfig() *SyncConfig {
	cfg := &SyncConfig{
		DefaultMaxAge:          60 * time.Minute,
		DefaultUpsertBatchSize: 100,
		PageSize:               100,
		MaxPages:               500,
		Schedule:               "@every 30m",
	}
	cfg.fillMaps()
	return cfg
}

// SetDefaults is called by creasty/defaults after the tag defaults are applied
func (c *SyncConfig) SetDefaults() {
	c.fillMaps()
}

func (c *SyncConfig) fillMaps() {
	if c.MaxAge == nil {
		c.MaxAge = map[models.EntityType]time.Duration{
			models.EntityOrders:    30 * time.Minute,
			models.EntityProducts:  60 * time.Minute,
			models.EntityCustomers: 120 * time.Minute,
		}
	}
	if c.UpsertBatchSize == nil {
		c.UpsertBatchSize = map[models.EntityType]int{
			models.EntityOrders: 50,
		}
	}
}

// MaxAgeFor returns the staleness window of a data type
func (c *SyncConfig) MaxAgeFor(t models.EntityType) time.Duration {
	if d, ok := c.MaxAge[t]; ok {
		return d
	}
	return c.DefaultMaxAge
}

// BatchSizeFor returns the cache write chunk size of a data type
func (c *SyncConfig) BatchSizeFor(t models.EntityType) int {
	if n, ok := c.UpsertBatchSize[t]; ok && n > 0 {
		return n
	}
	if c.DefaultUpsertBatchSize > 0 {
		return c.DefaultUpsertBatchSize
	}
	return 100
}

// Validate checks the sync configuration
func (c *SyncConfig) Validate() error {
	for t := range c.MaxAge {
		if !t.Valid() {
			return fmt.Errorf("sync max_age: unknown entity type %q", t)
		}
	}
	for t := range c.UpsertBatchSize {
		if !t.Valid() {
			return fmt.Errorf("sync upsert_batch_size: unknown entity type %q", t)
		}
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		return fmt.Errorf("sync page_size must be between 1 and 100")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("sync max_pages must be positive")
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("sync schedule %q: %w", c.Schedule, err)
		}
	}
	return nil
}
