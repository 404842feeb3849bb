package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/site-sync/internal/batch"
	apperrors "github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
	"github.com/Kamar-Folarin/site-sync/internal/syncer"
	"github.com/Kamar-Folarin/site-sync/internal/wordpress"
)

// SiteService exposes the managed sites
type SiteService interface {
	List() []*models.Site
	Get(siteID int64) (*models.Site, error)
	Active() *models.Site
	SetActive(siteID int64) error
}

// SyncService runs and reports cache synchronization
type SyncService interface {
	SyncAll(ctx context.Context, siteID int64, opts syncer.Options) (*syncer.Result, error)
	StartSync(ctx context.Context, siteID int64, opts syncer.Options) (<-chan error, error)
	CancelSync() bool
	IsSyncing() bool
	Status(ctx context.Context, siteID int64) ([]*models.SyncMetadata, error)
}

// CacheReader reads the local cache
type CacheReader interface {
	Get(ctx context.Context, siteID int64, entityType models.EntityType, entityID int64) (*models.CacheRecord, error)
	List(ctx context.Context, siteID int64, entityType models.EntityType) ([]*models.CacheRecord, error)
	ListSyncLogs(ctx context.Context, siteID int64, limit int) ([]*models.SyncLog, error)
	CacheSizeEstimate(ctx context.Context) (*models.CacheSize, error)
}

// BatchService controls the content generation batch
type BatchService interface {
	Start(ctx context.Context, items []batch.Item, style string) error
	Pause() error
	Resume() error
	Cancel() error
	GetProgress() batch.Progress
	Session(ctx context.Context) (*models.BatchSession, error)
	ResetSession(ctx context.Context) error
	Subscribe(handler batch.EventHandler) func()
}

// ProductSource lists the products that still need generated content
type ProductSource interface {
	ListProductsNeedingContent(ctx context.Context, siteID int64) ([]*wordpress.Product, error)
}

// Handler handles HTTP requests
type Handler struct {
	sites    SiteService
	syncer   SyncService
	cache    CacheReader
	batch    BatchService
	products ProductSource
	logger   logrus.FieldLogger
}

// NewHandler creates a new Handler
func NewHandler(
	sites SiteService,
	syncService SyncService,
	cache CacheReader,
	batchService BatchService,
	products ProductSource,
	logger logrus.FieldLogger,
) *Handler {
	return &Handler{
		sites:    sites,
		syncer:   syncService,
		cache:    cache,
		batch:    batchService,
		products: products,
		logger:   logger,
	}
}

// ListSites returns every configured site
// @Summary List sites
// @Description Get the managed WordPress/WooCommerce sites
// @Tags sites
// @Produce json
// @Success 200 {array} models.Site
// @Router /sites [get]
func (h *Handler) ListSites(c *gin.Context) {
	c.JSON(http.StatusOK, h.sites.List())
}

// SetActiveSite makes a site the active one
// @Summary Set the active site
// @Description Mark a site as the only active site
// @Tags sites
// @Produce json
// @Param id path int true "Site ID"
// @Success 200 {object} models.Site
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sites/{id}/active [put]
func (h *Handler) SetActiveSite(c *gin.Context) {
	siteID, ok := siteIDParam(c)
	if !ok {
		return
	}

	if err := h.sites.SetActive(siteID); err != nil {
		h.respondError(c, err)
		return
	}

	site, err := h.sites.Get(siteID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, site)
}

// SyncSite starts a sync of the site's cache
// @Summary Sync a site
// @Description Start synchronizing the local cache of a site. With wait=true the call blocks and returns the result.
// @Tags sync
// @Accept json
// @Produce json
// @Param id path int true "Site ID"
// @Param wait query bool false "Wait for the sync to finish"
// @Param request body SyncRequest false "Sync options"
// @Success 200 {object} syncer.Result
// @Success 202 {object} StatusResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sites/{id}/sync [post]
func (h *Handler) SyncSite(c *gin.Context) {
	siteID, ok := siteIDParam(c)
	if !ok {
		return
	}
	if _, err := h.sites.Get(siteID); err != nil {
		h.respondError(c, err)
		return
	}

	var req SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	types, err := models.ParseEntityTypes(req.DataTypes)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	opts := syncer.Options{DataTypes: types, ForceFullSync: req.ForceFullSync}

	if c.Query("wait") == "true" {
		result, err := h.syncer.SyncAll(c.Request.Context(), siteID, opts)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	done, err := h.syncer.StartSync(context.WithoutCancel(c.Request.Context()), siteID, opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	go func() {
		if err := <-done; err != nil {
			h.logger.WithError(err).WithField("site_id", siteID).Warn("Sync failed")
		}
	}()

	c.JSON(http.StatusAccepted, StatusResponse{Status: "sync started"})
}

// CancelSync requests cancellation of the running sync
// @Summary Cancel the running sync
// @Tags sync
// @Produce json
// @Success 202 {object} StatusResponse
// @Failure 409 {object} ErrorResponse
// @Router /sync [delete]
func (h *Handler) CancelSync(c *gin.Context) {
	if !h.syncer.CancelSync() {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "no sync is running"})
		return
	}
	c.JSON(http.StatusAccepted, StatusResponse{Status: "cancel requested"})
}

// GetSyncStatus returns the sync metadata of every data type of a site
// @Summary Get site sync status
// @Tags sync
// @Produce json
// @Param id path int true "Site ID"
// @Success 200 {object} SyncStatusResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sites/{id}/sync-status [get]
func (h *Handler) GetSyncStatus(c *gin.Context) {
	siteID, ok := siteIDParam(c)
	if !ok {
		return
	}
	if _, err := h.sites.Get(siteID); err != nil {
		h.respondError(c, err)
		return
	}

	status, err := h.syncer.Status(c.Request.Context(), siteID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, SyncStatusResponse{
		SiteID:    siteID,
		IsSyncing: h.syncer.IsSyncing(),
		Types:     status,
	})
}

// GetSyncLogs returns the newest sync runs of a site
// @Summary List sync logs
// @Tags sync
// @Produce json
// @Param id path int true "Site ID"
// @Param limit query int false "Number of logs to return" default(20)
// @Success 200 {array} models.SyncLog
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sites/{id}/sync-logs [get]
func (h *Handler) GetSyncLogs(c *gin.Context) {
	siteID, ok := siteIDParam(c)
	if !ok {
		return
	}
	limit, err := getIntQueryParam(c, "limit", 20)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit parameter"})
		return
	}

	logs, err := h.cache.ListSyncLogs(c.Request.Context(), siteID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if logs == nil {
		logs = []*models.SyncLog{}
	}
	c.JSON(http.StatusOK, logs)
}

// ListCache returns the cached records of one entity type
// @Summary List cached records
// @Tags cache
// @Produce json
// @Param id path int true "Site ID"
// @Param type path string true "Entity type" Enums(orders,products,customers,posts,pages,media,comments,users)
// @Success 200 {array} models.CacheRecord
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sites/{id}/cache/{type} [get]
func (h *Handler) ListCache(c *gin.Context) {
	siteID, ok := siteIDParam(c)
	if !ok {
		return
	}
	entityType, ok := entityTypeParam(c)
	if !ok {
		return
	}

	records, err := h.cache.List(c.Request.Context(), siteID, entityType)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if records == nil {
		records = []*models.CacheRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// GetCacheRecord returns one cached record
// @Summary Get a cached record
// @Tags cache
// @Produce json
// @Param id path int true "Site ID"
// @Param type path string true "Entity type"
// @Param entityId path int true "Remote entity ID"
// @Success 200 {object} models.CacheRecord
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sites/{id}/cache/{type}/{entityId} [get]
func (h *Handler) GetCacheRecord(c *gin.Context) {
	siteID, ok := siteIDParam(c)
	if !ok {
		return
	}
	entityType, ok := entityTypeParam(c)
	if !ok {
		return
	}
	entityID, err := strconv.ParseInt(c.Param("entityId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid entity ID"})
		return
	}

	record, err := h.cache.Get(c.Request.Context(), siteID, entityType, entityID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "record not found"})
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetCacheSize estimates the size of the whole cache
// @Summary Estimate cache size
// @Tags cache
// @Produce json
// @Success 200 {object} models.CacheSize
// @Failure 500 {object} ErrorResponse
// @Router /cache/size [get]
func (h *Handler) GetCacheSize(c *gin.Context) {
	size, err := h.cache.CacheSizeEstimate(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, size)
}

// StartBatch starts generating content for products
// @Summary Start a content batch
// @Description Start generating content. Without items, every product of the active site that has no description is queued.
// @Tags batch
// @Accept json
// @Produce json
// @Param request body BatchStartRequest false "Items and style"
// @Success 202 {object} batch.Progress
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /batch/start [post]
func (h *Handler) StartBatch(c *gin.Context) {
	var req BatchStartRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	items := req.Items
	if len(items) == 0 {
		site := h.sites.Active()
		if site == nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no active site"})
			return
		}
		products, err := h.products.ListProductsNeedingContent(c.Request.Context(), site.ID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		items = productItems(products)
	}

	if err := h.batch.Start(c.Request.Context(), items, req.Style); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.batch.GetProgress())
}

// PauseBatch pauses the running batch
// @Summary Pause the batch
// @Tags batch
// @Produce json
// @Success 200 {object} batch.Progress
// @Failure 409 {object} ErrorResponse
// @Router /batch/pause [post]
func (h *Handler) PauseBatch(c *gin.Context) {
	h.batchControl(c, h.batch.Pause)
}

// ResumeBatch resumes a paused batch
// @Summary Resume the batch
// @Tags batch
// @Produce json
// @Success 200 {object} batch.Progress
// @Failure 409 {object} ErrorResponse
// @Router /batch/resume [post]
func (h *Handler) ResumeBatch(c *gin.Context) {
	h.batchControl(c, h.batch.Resume)
}

// CancelBatch cancels the running batch
// @Summary Cancel the batch
// @Tags batch
// @Produce json
// @Success 200 {object} batch.Progress
// @Failure 409 {object} ErrorResponse
// @Router /batch/cancel [post]
func (h *Handler) CancelBatch(c *gin.Context) {
	h.batchControl(c, h.batch.Cancel)
}

func (h *Handler) batchControl(c *gin.Context, fn func() error) {
	if err := fn(); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.batch.GetProgress())
}

// GetBatchProgress returns the progress of the current batch
// @Summary Get batch progress
// @Tags batch
// @Produce json
// @Success 200 {object} batch.Progress
// @Router /batch/progress [get]
func (h *Handler) GetBatchProgress(c *gin.Context) {
	c.JSON(http.StatusOK, h.batch.GetProgress())
}

// GetBatchSession returns the persisted batch session
// @Summary Get the batch session
// @Tags batch
// @Produce json
// @Success 200 {object} models.BatchSession
// @Failure 404 {object} ErrorResponse
// @Router /batch/session [get]
func (h *Handler) GetBatchSession(c *gin.Context) {
	session, err := h.batch.Session(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no batch session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// ResetBatchSession clears the persisted batch session
// @Summary Reset the batch session
// @Tags batch
// @Success 204 "No Content"
// @Failure 409 {object} ErrorResponse
// @Router /batch/session [delete]
func (h *Handler) ResetBatchSession(c *gin.Context) {
	if err := h.batch.ResetSession(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StreamBatchEvents streams processor events as server-sent events until the client disconnects
// @Summary Stream batch events
// @Tags batch
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /batch/events [get]
func (h *Handler) StreamBatchEvents(c *gin.Context) {
	events := make(chan batch.Event, 64)
	unsubscribe := h.batch.Subscribe(func(e batch.Event) {
		select {
		case events <- e:
		default:
			h.logger.WithField("event", e.Type).Debug("Dropping event for slow stream client")
		}
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			c.SSEvent(string(e.Type), e)
			c.Writer.Flush()
		}
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsInvalidInput(err):
		status = http.StatusBadRequest
	case apperrors.IsUnauthorized(err):
		status = http.StatusUnauthorized
	case apperrors.IsSyncInProgress(err), apperrors.IsBatchInProgress(err),
		stderrors.Is(err, apperrors.ErrBatchNotRunning), stderrors.Is(err, apperrors.ErrSyncCancelled):
		status = http.StatusConflict
	default:
		if _, ok := wordpress.AsRemoteError(err); ok {
			status = http.StatusBadGateway
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func siteIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid site ID"})
		return 0, false
	}
	return id, true
}

func entityTypeParam(c *gin.Context) (models.EntityType, bool) {
	t, err := models.ParseEntityType(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return "", false
	}
	return t, true
}

func getIntQueryParam(c *gin.Context, param string, defaultValue int) (int, error) {
	value := c.Query(param)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

func productItems(products []*wordpress.Product) []batch.Item {
	items := make([]batch.Item, 0, len(products))
	for _, p := range products {
		items = append(items, batch.Item{
			ID:          p.ID,
			Name:        p.Name,
			SKU:         p.SKU,
			Description: p.ShortDescription,
			Categories:  p.CategoryNames(),
		})
	}
	return items
}
