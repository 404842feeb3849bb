package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/site-sync/internal/batch"
	"github.com/Kamar-Folarin/site-sync/internal/config"
	"github.com/Kamar-Folarin/site-sync/internal/db"
	apperrors "github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	cfg, err := config.LoadFile("")
	require.NoError(t, err)
	cfg.Store.Driver = "memory"
	cfg.Sites = []config.SiteConfig{{ID: 7, Name: "Shop", URL: "https://shop.example.com", Active: true}}
	return cfg
}

func TestNew_MemoryWiring(t *testing.T) {
	a, err := New(testConfig(t), testutil.NewLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &db.MemoryStore{}, a.Store)
	assert.IsType(t, &batch.MemorySessionStore{}, a.Sessions)
	assert.NotNil(t, a.Scheduler)
	assert.Equal(t, int64(7), a.Sites.Active().ID)
	assert.False(t, a.Syncer.IsSyncing())

	status, err := a.Syncer.Status(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, status, len(models.AllEntityTypes))
}

func TestNew_RedisAndBadger(t *testing.T) {
	mr, _ := testutil.NewMiniredisClient(t)

	cfg := testConfig(t)
	cfg.Store.Driver = "badger"
	cfg.Store.BadgerPath = filepath.Join(t.TempDir(), "cache")
	cfg.Redis.Address = mr.Addr()
	cfg.Sync.Schedule = ""

	a, err := New(cfg, testutil.NewLogger())
	require.NoError(t, err)

	assert.IsType(t, &db.BadgerStore{}, a.Store)
	assert.IsType(t, &batch.RedisSessionStore{}, a.Sessions)
	assert.Nil(t, a.Scheduler)

	ctx := context.Background()
	require.NoError(t, a.Sessions.Save(ctx, models.NewBatchSession("s-1", time.Now(), 2)))
	assert.True(t, mr.Exists("sitesync:batch:session"))

	require.NoError(t, a.Close())
}

func TestOpenSessionStore_Unreachable(t *testing.T) {
	_, _, err := OpenSessionStore(&config.RedisConfig{Address: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestMissingGenerator(t *testing.T) {
	_, err := missingGenerator{}.Generate(context.Background(), batch.Item{ID: 1}, "")
	assert.True(t, apperrors.IsUnauthorized(err))
}
