package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, siteURL string) string {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("SYNC_SCHEDULE", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`store:
  driver: memory
sync:
  schedule: ""
sites:
  - id: 7
    name: Shop
    url: %s
    consumer_key: ck_test
    consumer_secret: cs_test
    active: true
  - id: 3
    name: Blog
    url: https://blog.example.com
`, siteURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd(io.Discard)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSitesCommand(t *testing.T) {
	cfg := writeConfig(t, "https://shop.example.com")

	out, err := runCLI(t, "sites", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Shop")
	assert.Contains(t, out, "Blog")
	assert.NotContains(t, out, "ck_test")
}

func TestSyncCommand(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, "/wp-json/wc/v3/orders", r.URL.Path)
		w.Header().Set("X-WP-Total", "2")
		w.Header().Set("X-WP-TotalPages", "1")
		_, _ = w.Write([]byte(`[{"id":1,"status":"processing"},{"id":2,"status":"completed"}]`))
	}))
	defer server.Close()
	cfg := writeConfig(t, server.URL)

	out, err := runCLI(t, "sync", "--config", cfg, "--types", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "Synced 2 items (1 types synced, 0 skipped)")
	assert.Contains(t, out, "100.0%")
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))

	out, err = runCLI(t, "sync", "7", "--config", cfg, "--types", "orders", "--json")
	require.NoError(t, err)
	var result struct {
		SiteID      int64 `json:"site_id"`
		ItemsSynced int   `json:"items_synced"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, int64(7), result.SiteID)
	assert.Equal(t, 2, result.ItemsSynced)
}

func TestSyncCommandRejectsBadInput(t *testing.T) {
	cfg := writeConfig(t, "https://shop.example.com")

	_, err := runCLI(t, "sync", "--config", cfg, "--types", "coupons")
	assert.ErrorContains(t, err, "unknown entity type")

	_, err = runCLI(t, "sync", "abc", "--config", cfg)
	assert.ErrorContains(t, err, "invalid site id")

	_, err = runCLI(t, "sync", "99", "--config", cfg)
	assert.ErrorContains(t, err, "site 99 not found")
}

func TestCacheCommands(t *testing.T) {
	cfg := writeConfig(t, "https://shop.example.com")

	out, err := runCLI(t, "cache", "size", "--config", cfg, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_items":0,"size_estimate":0}`, out)

	out, err = runCLI(t, "cache", "status", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "never")

	out, err = runCLI(t, "cache", "logs", "3", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "STARTED")
}

func TestSessionCommands(t *testing.T) {
	cfg := writeConfig(t, "https://shop.example.com")

	out, err := runCLI(t, "session", "show", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "No batch session")

	_, err = runCLI(t, "session", "export", "--config", cfg)
	assert.ErrorContains(t, err, "no batch session")

	out, err = runCLI(t, "session", "reset", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Batch session reset")
}

func TestInvalidLogLevel(t *testing.T) {
	cfg := writeConfig(t, "https://shop.example.com")

	_, err := runCLI(t, "sites", "--config", cfg, "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid log level")
}
