package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/site-sync/internal/models"
)

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "badger", cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Batch.ItemsPerBatch)
	assert.Equal(t, time.Minute, cfg.Batch.DelayBetweenBatches)
	assert.Equal(t, 30*time.Minute, cfg.Sync.MaxAgeFor(models.EntityOrders))
	assert.Equal(t, 60*time.Minute, cfg.Sync.MaxAgeFor(models.EntityProducts))
	assert.Equal(t, 120*time.Minute, cfg.Sync.MaxAgeFor(models.EntityCustomers))
	assert.Equal(t, 60*time.Minute, cfg.Sync.MaxAgeFor(models.EntityMedia))
	assert.Equal(t, 50, cfg.Sync.BatchSizeFor(models.EntityOrders))
	assert.Equal(t, 100, cfg.Sync.BatchSizeFor(models.EntityProducts))
	assert.Equal(t, 500, cfg.Sync.MaxPages)
}

func TestLoadFileYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: memory
batch:
  items_per_batch: 5
sync:
  max_age:
    orders: 10m
sites:
  - id: 7
    name: shop
    url: https://shop.example.com
    consumer_key: ck
    consumer_secret: cs
    active: true
`), 0o600))

	t.Setenv("BATCH_DELAY_SECONDS", "2")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Batch.ItemsPerBatch)
	assert.Equal(t, 2*time.Second, cfg.Batch.DelayBetweenBatches)
	assert.Equal(t, 10*time.Minute, cfg.Sync.MaxAgeFor(models.EntityOrders))
	require.Len(t, cfg.Sites, 1)
	site := cfg.Sites[0].ToSite()
	assert.Equal(t, int64(7), site.ID)
	assert.True(t, site.HasWooCommerceCredentials())
	assert.False(t, site.HasWordPressCredentials())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"postgres without dsn", func(c *Config) { c.Store.Driver = "postgres" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"zero batch size", func(c *Config) { c.Batch.ItemsPerBatch = 0 }},
		{"two active sites", func(c *Config) {
			c.Sites = []SiteConfig{
				{ID: 1, URL: "https://a.example", Active: true},
				{ID: 2, URL: "https://b.example", Active: true},
			}
		}},
		{"duplicate site ids", func(c *Config) {
			c.Sites = []SiteConfig{{ID: 1, URL: "https://a.example"}, {ID: 1, URL: "https://b.example"}}
		}},
		{"page size above api cap", func(c *Config) { c.Sync.PageSize = 250 }},
		{"bad cron schedule", func(c *Config) { c.Sync.Schedule = "every half hour" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFile("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
