package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/site-sync/internal/config"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/observability"
)

// ClientProvider resolves the REST client of a site
type ClientProvider interface {
	Client(siteID int64) (*Client, error)
}

// Fetcher pulls complete entity collections from a site, page by page
type Fetcher struct {
	clients  ClientProvider
	pageSize int
	maxPages int
	logger   logrus.FieldLogger
}

// NewFetcher creates a new Fetcher
func NewFetcher(clients ClientProvider, cfg *config.SyncConfig, logger logrus.FieldLogger) *Fetcher {
	if cfg == nil {
		cfg = config.DefaultSyncConfig()
	}
	return &Fetcher{
		clients:  clients,
		pageSize: cfg.PageSize,
		maxPages: cfg.MaxPages,
		logger:   logger.WithField("component", "fetcher"),
	}
}

// StopFunc is polled before every page request; true ends the fetch with ErrFetchStopped
type StopFunc func() bool

// FetchAll requests pages 1, 2, ... until an empty page, or the last page
// announced by X-WP-TotalPages, and returns every item in order.
// A failed page aborts the fetch without a partial result. Hitting the page cap
// stops paging and returns what was collected. stop may be nil.
func (f *Fetcher) FetchAll(ctx context.Context, siteID int64, entityType models.EntityType, filters *Filters, stop StopFunc) ([]json.RawMessage, error) {
	client, err := f.clients.Client(siteID)
	if err != nil {
		return nil, err
	}

	logger := f.logger.WithFields(logrus.Fields{
		"site_id":     siteID,
		"entity_type": entityType,
	})
	logger.Debug("Starting to fetch entities")

	var all []json.RawMessage
	for page := 1; ; page++ {
		if page > f.maxPages {
			logger.WithFields(logrus.Fields{
				"max_pages": f.maxPages,
				"fetched":   len(all),
			}).Warn("Reached page limit, stopping pagination")
			break
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if stop != nil && stop() {
			logger.WithField("page", page).Info("Fetch stopped before next page")
			return nil, ErrFetchStopped
		}

		result, err := client.GetPage(ctx, entityType, page, f.pageSize, filters)
		if err != nil {
			observability.RemotePagesTotal.WithLabelValues(string(entityType), "error").Inc()
			logger.WithError(err).WithField("page", page).Error("Failed to fetch page")
			return nil, fmt.Errorf("failed to fetch %s page %d: %w", entityType, page, err)
		}
		observability.RemotePagesTotal.WithLabelValues(string(entityType), "success").Inc()

		if len(result.Items) == 0 {
			break
		}

		all = append(all, result.Items...)
		logger.WithFields(logrus.Fields{
			"page":        page,
			"items":       len(result.Items),
			"total_items": len(all),
		}).Debug("Fetched page")

		if result.TotalPages > 0 && page >= result.TotalPages {
			break
		}
	}

	logger.WithField("total_items", len(all)).Info("Completed fetching entities")
	return all, nil
}

// Product is the part of a WooCommerce product the content generator works with
type Product struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	SKU              string `json:"sku"`
	Description      string `json:"description"`
	ShortDescription string `json:"short_description"`
	Categories       []struct {
		Name string `json:"name"`
	} `json:"categories"`
}

// CategoryNames flattens the product categories
func (p *Product) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		names = append(names, c.Name)
	}
	return names
}

// ListProductsNeedingContent returns the site's products that have no description yet
func (f *Fetcher) ListProductsNeedingContent(ctx context.Context, siteID int64) ([]*Product, error) {
	raw, err := f.FetchAll(ctx, siteID, models.EntityProducts, nil, nil)
	if err != nil {
		return nil, err
	}

	var products []*Product
	for _, item := range raw {
		var p Product
		if err := json.Unmarshal(item, &p); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		if strings.TrimSpace(stripTags(p.Description)) == "" {
			products = append(products, &p)
		}
	}
	return products, nil
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
