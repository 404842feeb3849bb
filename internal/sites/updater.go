package sites

import (
	"context"

	apperrors "github.com/Kamar-Folarin/site-sync/internal/errors"
	"github.com/Kamar-Folarin/site-sync/internal/models"
)

// ContentUpdater writes generated product content to whichever site is active
// at the time of the call
type ContentUpdater struct {
	registry *Registry
}

// NewContentUpdater creates an updater bound to the registry
func NewContentUpdater(registry *Registry) *ContentUpdater {
	return &ContentUpdater{registry: registry}
}

// ApplyContent updates one product on the active site
func (u *ContentUpdater) ApplyContent(ctx context.Context, itemID int64, content *models.GeneratedContent) error {
	site := u.registry.Active()
	if site == nil {
		return apperrors.NewValidationError("no active site", nil)
	}
	client, err := u.registry.Client(site.ID)
	if err != nil {
		return err
	}
	return client.UpdateProductContent(ctx, itemID, content)
}
