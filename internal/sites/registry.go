// Package sites keeps the managed sites and their REST clients
package sites

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/site-sync/internal/config"
	apperrors "github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/wordpress"
)

// ActiveChangeFunc is called after the active site changes. previous is nil when no site was active.
type ActiveChangeFunc func(previous, current *models.Site)

// Registry holds the configured sites, the active-site marker and a client per site
type Registry struct {
	mu          sync.RWMutex
	sites       map[int64]*models.Site
	activeID    int64
	clients     map[int64]*wordpress.Client
	subscribers []ActiveChangeFunc
	remote      *config.RemoteConfig
	clientOpts  []wordpress.ClientOption
	logger      logrus.FieldLogger
}

// NewRegistry creates a registry from the site declarations
func NewRegistry(decls []config.SiteConfig, remote *config.RemoteConfig, logger logrus.FieldLogger, opts ...wordpress.ClientOption) (*Registry, error) {
	r := &Registry{
		sites:      make(map[int64]*models.Site, len(decls)),
		clients:    make(map[int64]*wordpress.Client),
		remote:     remote,
		clientOpts: opts,
		logger:     logger.WithField("component", "sites"),
	}

	for _, decl := range decls {
		site := decl.ToSite()
		if _, dup := r.sites[site.ID]; dup {
			return nil, fmt.Errorf("duplicate site id %d", site.ID)
		}
		if site.Active {
			if r.activeID != 0 {
				return nil, fmt.Errorf("only one site may be active")
			}
			r.activeID = site.ID
		}
		r.sites[site.ID] = site
	}

	return r, nil
}

// Get returns a copy of a site
func (r *Registry) Get(siteID int64) (*models.Site, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	site, ok := r.sites[siteID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("site %d not found", siteID), nil)
	}
	c := *site
	return &c, nil
}

// List returns copies of all sites ordered by id
func (r *Registry) List() []*models.Site {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*models.Site, 0, len(r.sites))
	for _, site := range r.sites {
		c := *site
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Active returns the active site, or nil when none is active
func (r *Registry) Active() *models.Site {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.activeID == 0 {
		return nil
	}
	c := *r.sites[r.activeID]
	return &c
}

// SetActive marks siteID as the only active site, drops every cached client
// and notifies the subscribers
func (r *Registry) SetActive(siteID int64) error {
	r.mu.Lock()
	site, ok := r.sites[siteID]
	if !ok {
		r.mu.Unlock()
		return apperrors.NewNotFoundError(fmt.Sprintf("site %d not found", siteID), nil)
	}

	var previous *models.Site
	if prev, ok := r.sites[r.activeID]; ok {
		prev.Active = false
		c := *prev
		previous = &c
	}
	site.Active = true
	r.activeID = siteID
	r.clients = make(map[int64]*wordpress.Client)

	current := *site
	subscribers := append([]ActiveChangeFunc(nil), r.subscribers...)
	r.mu.Unlock()

	r.logger.WithField("site_id", siteID).Info("Active site changed")
	for _, fn := range subscribers {
		fn(previous, &current)
	}
	return nil
}

// OnActiveChange registers fn to run after every SetActive
func (r *Registry) OnActiveChange(fn ActiveChangeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Client returns the cached REST client of a site, creating it on first use
func (r *Registry) Client(siteID int64) (*wordpress.Client, error) {
	r.mu.RLock()
	client, ok := r.clients[siteID]
	r.mu.RUnlock()
	if ok {
		return client, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[siteID]; ok {
		return client, nil
	}
	site, ok := r.sites[siteID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("site %d not found", siteID), nil)
	}

	c := *site
	client = wordpress.NewClient(&c, r.remote, r.logger, r.clientOpts...)
	r.clients[siteID] = client
	return client, nil
}
