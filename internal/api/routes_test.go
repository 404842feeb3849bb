package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Kamar-Folarin/site-sync/internal/batch"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/testutil"
)

func setupTestRoutes(t *testing.T) (*gin.Engine, *mocks) {
	gin.SetMode(gin.TestMode)

	handler, m := setupTestHandler()
	m.sites.On("List").Return([]*models.Site{}).Maybe()
	m.batch.On("GetProgress").Return(batch.Progress{Status: batch.StatusIdle}).Maybe()
	m.cache.On("CacheSizeEstimate", mock.Anything).Return(&models.CacheSize{}, nil).Maybe()

	return SetupRouter(handler, testutil.NewLogger()), m
}

func TestRouteRegistration(t *testing.T) {
	router, _ := setupTestRoutes(t)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"list sites", http.MethodGet, "/api/v1/sites", http.StatusOK},
		{"batch progress", http.MethodGet, "/api/v1/batch/progress", http.StatusOK},
		{"cache size", http.MethodGet, "/api/v1/cache/size", http.StatusOK},
		{"invalid site id", http.MethodGet, "/api/v1/sites/abc/sync-status", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/repositories", http.StatusNotFound},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"swagger ui", http.MethodGet, "/swagger/index.html", http.StatusOK},
		{"swagger doc", http.MethodGet, "/swagger/doc.json", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tt.method, tt.path, nil)
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupTestRoutes(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sitesync_batch_queue_depth")
}

func TestMiddlewareSetup(t *testing.T) {
	router, _ := setupTestRoutes(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/sites", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodOptions, "/api/v1/sites", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
