package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/site-sync/internal/config"
	apperrors "github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/observability"
)

// MaxPerPage is the largest page both REST APIs accept
const MaxPerPage = 100

var endpoints = map[models.EntityType]string{
	models.EntityOrders:    "/wp-json/wc/v3/orders",
	models.EntityProducts:  "/wp-json/wc/v3/products",
	models.EntityCustomers: "/wp-json/wc/v3/customers",
	models.EntityPosts:     "/wp-json/wp/v2/posts",
	models.EntityPages:     "/wp-json/wp/v2/pages",
	models.EntityMedia:     "/wp-json/wp/v2/media",
	models.EntityComments:  "/wp-json/wp/v2/comments",
	models.EntityUsers:     "/wp-json/wp/v2/users",
}

// Filters narrows a list request
type Filters struct {
	After         *time.Time
	ModifiedAfter *time.Time
	Status        string
	SKU           string
	Category      string
	StockStatus   string
	OrderBy       string
	Order         string
}

// Page is one page of a list endpoint
type Page struct {
	Items      []json.RawMessage
	Total      int
	TotalPages int
}

// Client talks to the REST APIs of a single site
type Client struct {
	site       *models.Site
	httpClient *http.Client
	userAgent  string
	logger     logrus.FieldLogger
}

// ClientOption allows configuring the client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for site
func NewClient(site *models.Site, cfg *config.RemoteConfig, logger logrus.FieldLogger, opts ...ClientOption) *Client {
	if cfg == nil {
		cfg = config.DefaultRemoteConfig()
	}

	client := &Client{
		site:       site,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		logger: logger.WithFields(logrus.Fields{
			"site_id": site.ID,
			"site":    site.BaseURL(),
		}),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Site returns the site the client is bound to
func (c *Client) Site() *models.Site {
	return c.site
}

// GetPage fetches one page of an entity list. Pages start at 1.
func (c *Client) GetPage(ctx context.Context, entityType models.EntityType, page, perPage int, filters *Filters) (*Page, error) {
	path, ok := endpoints[entityType]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown entity type %q", entityType), nil)
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	c.applyFilters(query, entityType, filters)

	req, err := c.newRequest(ctx, http.MethodGet, entityType.Backend(), path, query, nil)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	resp, err := c.do(req, entityType.Backend(), &items)
	if err != nil {
		return nil, err
	}

	result := &Page{Items: items}
	result.Total, _ = strconv.Atoi(resp.Header.Get("X-WP-Total"))
	result.TotalPages, _ = strconv.Atoi(resp.Header.Get("X-WP-TotalPages"))
	return result, nil
}

func (c *Client) applyFilters(query url.Values, entityType models.EntityType, f *Filters) {
	if entityType.Backend() == models.BackendWooCommerce {
		query.Set("orderby", "id")
		query.Set("order", "asc")
	}
	if f == nil {
		return
	}

	if f.OrderBy != "" {
		query.Set("orderby", f.OrderBy)
	}
	if f.Order != "" {
		query.Set("order", f.Order)
	}
	if f.After != nil {
		query.Set("after", f.After.UTC().Format(time.RFC3339))
	}
	if f.ModifiedAfter != nil {
		query.Set("modified_after", f.ModifiedAfter.UTC().Format(time.RFC3339))
	}
	if f.Status != "" {
		query.Set("status", f.Status)
	}
	if f.SKU != "" {
		query.Set("sku", f.SKU)
	}
	if f.Category != "" {
		query.Set("category", f.Category)
	}
	if f.StockStatus != "" {
		query.Set("stock_status", f.StockStatus)
	}
}

// productUpdate is the WooCommerce product body written by UpdateProductContent
type productUpdate struct {
	Name             string     `json:"name,omitempty"`
	Description      string     `json:"description,omitempty"`
	ShortDescription string     `json:"short_description,omitempty"`
	Tags             []tagRef   `json:"tags,omitempty"`
	MetaData         []metaItem `json:"meta_data,omitempty"`
}

type tagRef struct {
	Name string `json:"name"`
}

type metaItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// UpdateProductContent writes generated content and Yoast SEO meta onto a product
func (c *Client) UpdateProductContent(ctx context.Context, productID int64, content *models.GeneratedContent) error {
	if content == nil {
		return apperrors.NewValidationError("content is required", nil)
	}

	body := productUpdate{
		Name:             content.Title,
		Description:      content.Description,
		ShortDescription: content.ShortDescription,
	}
	for _, tag := range content.Tags {
		body.Tags = append(body.Tags, tagRef{Name: tag})
	}
	for key, value := range map[string]string{
		"_yoast_wpseo_title":    content.MetaTitle,
		"_yoast_wpseo_metadesc": content.MetaDescription,
		"_yoast_wpseo_focuskw":  content.FocusKeyword,
	} {
		if value != "" {
			body.MetaData = append(body.MetaData, metaItem{Key: key, Value: value})
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode product update: %w", err)
	}

	path := fmt.Sprintf("%s/%d", endpoints[models.EntityProducts], productID)
	req, err := c.newRequest(ctx, http.MethodPut, models.BackendWooCommerce, path, nil, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := c.do(req, models.BackendWooCommerce, nil); err != nil {
		return err
	}

	c.logger.WithField("product_id", productID).Info("Updated product content")
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, backend models.Backend, path string, query url.Values, body io.Reader) (*http.Request, error) {
	if query == nil {
		query = url.Values{}
	}

	if backend == models.BackendWooCommerce {
		if !c.site.HasWooCommerceCredentials() {
			return nil, apperrors.NewUnauthorizedError(fmt.Sprintf("site %d has no WooCommerce credentials", c.site.ID), nil)
		}
		query.Set("consumer_key", c.site.ConsumerKey)
		query.Set("consumer_secret", c.site.ConsumerSecret)
	}

	endpoint := c.site.BaseURL() + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if backend == models.BackendWordPress && c.site.HasWordPressCredentials() {
		req.SetBasicAuth(c.site.WordPressUser, c.site.WordPressAppPassword)
	}

	return req, nil
}

// do performs the request once and decodes a 2xx body into result
func (c *Client) do(req *http.Request, backend models.Backend, result interface{}) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	observability.RemoteRequestDuration.WithLabelValues(string(backend)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", redact(req.URL), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		remoteErr := newRemoteError(resp.StatusCode, redact(req.URL), body)
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"code":   remoteErr.Code,
			"url":    remoteErr.URL,
		}).Warn("Remote API returned an error")
		return nil, remoteErr
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return nil, fmt.Errorf("failed to decode response from %s: %w", redact(req.URL), err)
		}
	}

	return resp, nil
}

// redact strips credentials from a URL before it is logged or returned
func redact(u *url.URL) string {
	c := *u
	q := c.Query()
	for _, key := range []string{"consumer_key", "consumer_secret"} {
		if q.Has(key) {
			q.Set(key, "REDACTED")
		}
	}
	c.RawQuery = q.Encode()
	c.User = nil
	return c.String()
}
