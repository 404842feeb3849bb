package sites

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kamar-Folarin/site-sync/internal/config"
	apperrors "github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/testutil"
	"github.com/Kamar-Folarin/site-sync/internal/wordpress"
)

func TestContentUpdater_ApplyContent(t *testing.T) {
	var shopCalls, blogCalls int32
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&shopCalls, 1)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/wp-json/wc/v3/products/42", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Linen Shirt", body["name"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	defer shop.Close()
	blog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&blogCalls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer blog.Close()

	r, err := NewRegistry([]config.SiteConfig{
		{ID: 7, Name: "Shop", URL: shop.URL, ConsumerKey: "ck", ConsumerSecret: "cs", Active: true},
		{ID: 3, Name: "Blog", URL: blog.URL, ConsumerKey: "ck", ConsumerSecret: "cs"},
	}, nil, testutil.NewLogger(), wordpress.WithHTTPClient(http.DefaultClient))
	require.NoError(t, err)

	updater := NewContentUpdater(r)
	content := &models.GeneratedContent{Title: "Linen Shirt", Description: "<p>Cool linen.</p>"}

	require.NoError(t, updater.ApplyContent(context.Background(), 42, content))
	assert.Equal(t, int32(1), atomic.LoadInt32(&shopCalls))

	require.NoError(t, r.SetActive(3))
	err = updater.ApplyContent(context.Background(), 42, content)
	require.Error(t, err)
	remoteErr, ok := wordpress.AsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, remoteErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&blogCalls))
}

func TestContentUpdater_NoActiveSite(t *testing.T) {
	r, err := NewRegistry([]config.SiteConfig{
		{ID: 3, Name: "Blog", URL: "https://blog.example.com"},
	}, nil, testutil.NewLogger())
	require.NoError(t, err)

	err = NewContentUpdater(r).ApplyContent(context.Background(), 1, &models.GeneratedContent{Title: "x"})
	assert.True(t, apperrors.IsInvalidInput(err))
}
