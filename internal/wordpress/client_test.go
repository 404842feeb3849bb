package wordpress

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	site := &models.Site{
		ID:                   7,
		URL:                  server.URL + "/",
		WordPressUser:        "admin",
		WordPressAppPassword: "app-pass",
		ConsumerKey:          "ck_test",
		ConsumerSecret:       "cs_test",
	}
	return NewClient(site, nil, testLogger(), WithHTTPClient(server.Client()))
}

func TestClient_GetPage(t *testing.T) {
	ctx := context.Background()

	t.Run("woocommerce query auth and defaults", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/wp-json/wc/v3/products", r.URL.Path)

			q := r.URL.Query()
			assert.Equal(t, "ck_test", q.Get("consumer_key"))
			assert.Equal(t, "cs_test", q.Get("consumer_secret"))
			assert.Equal(t, "2", q.Get("page"))
			assert.Equal(t, "100", q.Get("per_page"))
			assert.Equal(t, "id", q.Get("orderby"))
			assert.Equal(t, "asc", q.Get("order"))
			assert.Equal(t, "instock", q.Get("stock_status"))
			assert.Equal(t, "2024-05-01T00:00:00Z", q.Get("modified_after"))

			_, _, ok := r.BasicAuth()
			assert.False(t, ok)

			w.Header().Set("X-WP-Total", "130")
			w.Header().Set("X-WP-TotalPages", "2")
			w.Write([]byte(`[{"id":101},{"id":102}]`))
		})

		modified := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		page, err := client.GetPage(ctx, models.EntityProducts, 2, 500, &Filters{
			StockStatus:   "instock",
			ModifiedAfter: &modified,
		})
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, 130, page.Total)
		assert.Equal(t, 2, page.TotalPages)
	})

	t.Run("wordpress basic auth", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/wp-json/wp/v2/media", r.URL.Path)
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "admin", user)
			assert.Equal(t, "app-pass", pass)
			assert.Empty(t, r.URL.Query().Get("consumer_key"))
			w.Write([]byte(`[]`))
		})

		page, err := client.GetPage(ctx, models.EntityMedia, 1, 50, nil)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("remote error envelope", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"code":"woocommerce_rest_cannot_view","message":"Sorry, you cannot list resources.","data":{"status":401}}`))
		})

		_, err := client.GetPage(ctx, models.EntityOrders, 1, 100, nil)
		require.Error(t, err)

		remoteErr, ok := AsRemoteError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, remoteErr.StatusCode)
		assert.Equal(t, "woocommerce_rest_cannot_view", remoteErr.Code)
		assert.Equal(t, "Sorry, you cannot list resources.", remoteErr.Message)
		assert.True(t, remoteErr.IsUnauthorized())
		assert.NotContains(t, remoteErr.URL, "cs_test")
	})

	t.Run("raw error body", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
		})

		_, err := client.GetPage(ctx, models.EntityPosts, 1, 100, nil)
		remoteErr, ok := AsRemoteError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadGateway, remoteErr.StatusCode)
		assert.Equal(t, "upstream down", remoteErr.Message)
	})

	t.Run("missing woocommerce credentials", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		client.site.ConsumerKey = ""

		_, err := client.GetPage(ctx, models.EntityCustomers, 1, 100, nil)
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("unknown entity type", func(t *testing.T) {
		client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		_, err := client.GetPage(ctx, models.EntityType("coupons"), 1, 100, nil)
		assert.True(t, apperrors.IsInvalidInput(err))
	})
}

func TestClient_UpdateProductContent(t *testing.T) {
	var body map[string]interface{}
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/wp-json/wc/v3/products/42", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"id":42}`))
	})

	err := client.UpdateProductContent(context.Background(), 42, &models.GeneratedContent{
		Title:           "Ceramic Mug",
		Description:     "<p>Holds coffee.</p>",
		MetaTitle:       "Ceramic Mug | Shop",
		MetaDescription: "A mug.",
		FocusKeyword:    "ceramic mug",
		Tags:            []string{"kitchen"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Ceramic Mug", body["name"])
	assert.Equal(t, "<p>Holds coffee.</p>", body["description"])
	assert.NotContains(t, body, "short_description")

	meta := map[string]string{}
	for _, m := range body["meta_data"].([]interface{}) {
		entry := m.(map[string]interface{})
		meta[entry["key"].(string)] = entry["value"].(string)
	}
	assert.Equal(t, map[string]string{
		"_yoast_wpseo_title":    "Ceramic Mug | Shop",
		"_yoast_wpseo_metadesc": "A mug.",
		"_yoast_wpseo_focuskw":  "ceramic mug",
	}, meta)
}
